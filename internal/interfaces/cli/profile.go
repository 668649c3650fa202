package cli

import (
	"github.com/spf13/cobra"
)

func newProfileCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "profile <partner-id>",
		Short: "Build and print the unified customer profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildServices(cmd, opts)
			if err != nil {
				return err
			}
			defer svc.Close()

			ucp, err := svc.Builder.Build(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResult(cmd, opts, ucp, ucp.Text())
		},
	}
}
