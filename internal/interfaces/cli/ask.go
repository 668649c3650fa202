package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <partner-id> <question>",
		Short: "Ask a question about a partner, answered from their profile data",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildServices(cmd, opts)
			if err != nil {
				return err
			}
			defer svc.Close()

			partnerID := args[0]
			question := strings.Join(args[1:], " ")

			answer, err := svc.Answerer.Answer(cmd.Context(), partnerID, question)
			if err != nil {
				return err
			}

			var sb strings.Builder
			sb.WriteString(answer.Answer)
			if len(answer.Citations) > 0 {
				parts := make([]string, len(answer.Citations))
				for i, c := range answer.Citations {
					parts[i] = fmt.Sprintf("%s=%q", c.Field, c.Value)
				}
				fmt.Fprintf(&sb, "\n\nGrounded in: %s", strings.Join(parts, ", "))
			}
			return printResult(cmd, opts, answer, sb.String())
		},
	}
}
