package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vnykmshr/goshape/internal/report"
	"github.com/vnykmshr/goshape/internal/scenario"
)

func newCompareCmd() *cobra.Command {
	defaults := scenario.DefaultCompareConfig()

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Check that both GCRA formulations make identical decisions",
		Long: `Feed the same random request sequences to GCRA virtual scheduling and the
GCRA leaky bucket and report every decision on which they disagree. The
command fails if any decision differs.`,
		Args: cobra.NoArgs,
		RunE: runCompare,
	}

	cmd.Flags().Float64P("capacity", "c", defaults.Capacity, "Maximum burst in units")
	cmd.Flags().DurationP("period", "p", defaults.Period, "Time to replenish the full capacity")
	cmd.Flags().Int("sequences", defaults.Sequences, "Number of random sequences")
	cmd.Flags().Int("steps", defaults.Steps, "Decisions per sequence")
	cmd.Flags().Int64("seed", defaults.Seed, "Random seed")
	cmd.Flags().Int("max-weight", defaults.MaxWeight, "Largest request weight (0 uses the capacity)")
	return cmd
}

func runCompare(cmd *cobra.Command, args []string) error {
	var config scenario.CompareConfig
	config.Capacity, _ = cmd.Flags().GetFloat64("capacity")
	config.Period, _ = cmd.Flags().GetDuration("period")
	config.Sequences, _ = cmd.Flags().GetInt("sequences")
	config.Steps, _ = cmd.Flags().GetInt("steps")
	config.Seed, _ = cmd.Flags().GetInt64("seed")
	config.MaxWeight, _ = cmd.Flags().GetInt("max-weight")

	result, err := scenario.Compare(config)
	if err != nil {
		return err
	}

	if jsonOutput(cmd) {
		if err := report.WriteJSON(cmd.OutOrStdout(), report.NewComparisonJSON(result)); err != nil {
			return err
		}
	} else {
		newPrinter(cmd).PrintComparison(result)
	}

	if !result.Equivalent() {
		return fmt.Errorf("%d of %d decisions differ", len(result.Mismatches), result.Decisions)
	}
	return nil
}
