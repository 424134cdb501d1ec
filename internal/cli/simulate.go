package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/vnykmshr/goshape/internal/report"
	"github.com/vnykmshr/goshape/internal/scenario"
	"github.com/vnykmshr/goshape/pkg/common/validation"
	"github.com/vnykmshr/goshape/pkg/ratelimit/shaping"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play a request sequence in virtual time",
		Long: `Play a request sequence against one algorithm on a virtual clock and print
when each request was admitted. Requests are served in arrival order; the
output is deterministic.

Uniform sequence from flags:
  goshape simulate -a gcra_virtual_scheduling -c 3 -p 1500ms -n 4

Scenario file, ignoring its mode:
  goshape simulate -f scenario.yaml`,
		Args: cobra.NoArgs,
		RunE: runSimulate,
	}

	cmd.Flags().StringP("file", "f", "", "Scenario file to simulate instead of a uniform sequence")
	cmd.Flags().StringP("algorithm", "a", shaping.AlgorithmGCRAVirtualScheduling, "Shaping algorithm")
	cmd.Flags().Float64P("capacity", "c", 3, "Maximum burst in units")
	cmd.Flags().DurationP("period", "p", time.Second, "Time to replenish the full capacity")
	cmd.Flags().IntP("requests", "n", 7, "Number of requests")
	cmd.Flags().IntP("weight", "w", 1, "Units per request")
	cmd.Flags().Duration("gap", 0, "Time between request arrivals")
	cmd.Flags().Duration("timeout", 0, "Give up on a request after waiting this long (0 waits forever)")
	return cmd
}

func runSimulate(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")

	var s *scenario.Scenario
	if file != "" {
		loaded, err := scenario.Load(file)
		if err != nil {
			return err
		}
		s = loaded
	} else {
		algorithm, _ := cmd.Flags().GetString("algorithm")
		capacity, _ := cmd.Flags().GetFloat64("capacity")
		period, _ := cmd.Flags().GetDuration("period")
		requests, _ := cmd.Flags().GetInt("requests")
		weight, _ := cmd.Flags().GetInt("weight")
		gap, _ := cmd.Flags().GetDuration("gap")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		if err := validation.ValidatePositive("cli", "requests", requests); err != nil {
			return err
		}
		s = scenario.Uniform(algorithm, capacity, period, requests, weight, gap)
		s.Timeout = scenario.Duration(timeout)
	}

	result, err := scenario.Simulate(s)
	if err != nil {
		return err
	}
	return writeResult(cmd, result)
}

func writeResult(cmd *cobra.Command, result *scenario.Result) error {
	if jsonOutput(cmd) {
		return report.WriteJSON(cmd.OutOrStdout(), report.NewResultJSON(result))
	}
	newPrinter(cmd).PrintResult(result)
	return nil
}
