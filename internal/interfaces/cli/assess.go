package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finsentry/aml-insight/pkg/types/common"
)

func newAssessCommand(opts *RootOptions) *cobra.Command {
	var basic bool

	cmd := &cobra.Command{
		Use:   "assess <partner-id>",
		Short: "Run a risk assessment for a partner",
		Long:  "Runs the explainable risk assessment: profile aggregation, rule-based\nfeature contributions, and a generation-backed score. --basic skips the\naggregation pipeline and scores from the flat partner summary instead.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildServices(cmd, opts)
			if err != nil {
				return err
			}
			defer svc.Close()

			partnerID := args[0]
			if basic {
				result, err := svc.Basic.Assess(cmd.Context(), partnerID)
				if err != nil {
					return err
				}
				return printResult(cmd, opts, result, formatBasicResult(result.PartnerID, result.RiskScore, result.Rationale, result.Warning))
			}

			result, err := svc.Enhanced.Assess(cmd.Context(), partnerID)
			if err != nil {
				return err
			}

			var sb strings.Builder
			sb.WriteString(formatBasicResult(result.PartnerID, result.RiskScore, result.Rationale, result.Warning))
			sb.WriteString("\n\nFeature contributions:\n")
			keys := make([]string, 0, len(result.FeatureContributions))
			for k := range result.FeatureContributions {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				c := result.FeatureContributions[k]
				fmt.Fprintf(&sb, "  %-24s %-8s %s\n", k, c.Impact, c.Reason)
			}
			return printResult(cmd, opts, result, sb.String())
		},
	}

	cmd.Flags().BoolVar(&basic, "basic", false, "run the basic summary-based assessment")
	return cmd
}

func formatBasicResult(partnerID string, score *int, rationale, warning string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Partner: %s\n", partnerID)
	if score != nil {
		fmt.Fprintf(&sb, "Risk score: %d (%s)\n", *score, common.BandRiskScore(*score))
	} else {
		fmt.Fprintf(&sb, "Risk score: unavailable\n")
	}
	if warning != "" {
		fmt.Fprintf(&sb, "Warning: %s\n", warning)
	}
	fmt.Fprintf(&sb, "Rationale: %s", rationale)
	return sb.String()
}
