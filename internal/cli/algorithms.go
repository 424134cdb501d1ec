package cli

import (
	"github.com/spf13/cobra"

	"github.com/vnykmshr/goshape/internal/report"
	"github.com/vnykmshr/goshape/pkg/ratelimit/shaping"
)

func newAlgorithmsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "algorithms",
		Short: "List the available shaping algorithms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOutput(cmd) {
				return report.WriteJSON(cmd.OutOrStdout(), shaping.Algorithms())
			}
			newPrinter(cmd).PrintAlgorithms(shaping.Algorithms())
			return nil
		},
	}
}
