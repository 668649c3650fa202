package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finsentry/aml-insight/internal/application/conversation"
)

func newChatCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive analysis session",
		Long:  "Starts an interactive session. Messages are routed by intent to risk\nassessment or question answering; the last mentioned partner identifier\ncarries across turns. Exit with \"quit\" or Ctrl-D.",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildServices(cmd, opts)
			if err != nil {
				return err
			}
			defer svc.Close()

			var history []conversation.Turn
			scanner := bufio.NewScanner(cmd.InOrStdin())

			cmd.Println("finsentry chat. Type a message, or \"quit\" to exit.")
			for {
				fmt.Fprint(cmd.OutOrStdout(), "> ")
				if !scanner.Scan() {
					break
				}
				message := strings.TrimSpace(scanner.Text())
				if message == "" {
					continue
				}
				if message == "quit" || message == "exit" {
					break
				}

				reply := svc.Router.Route(cmd.Context(), message, history)
				cmd.Println(reply.Response)

				history = append(history,
					conversation.Turn{Role: "user", Content: message},
					conversation.Turn{Role: "assistant", Content: reply.Response, PartnerID: reply.PartnerID},
				)
			}
			return scanner.Err()
		},
	}
}
