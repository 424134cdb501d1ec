package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vnykmshr/goshape/internal/report"
	gferrors "github.com/vnykmshr/goshape/pkg/common/errors"
)

// Exit codes returned by ExitCode.
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitPermanent = 2 // the request or configuration can never succeed
	ExitRetryable = 3 // a wait timed out or was canceled; retrying may succeed
)

var version = "0.1.0"

// RootCmd represents the base command when called without any subcommands
var RootCmd = NewRootCmd()

// NewRootCmd builds the goshape command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "goshape",
		Short:   "Traffic-shaping admission control, simulated and live",
		Version: version,
		Long: `goshape plays request sequences against traffic-shaping algorithms:
leaky bucket, token bucket and the two GCRA formulations. Requests are
never dropped; each one is delayed until the configured rate and burst
envelope admits it.

Simulate a burst in virtual time:
  goshape simulate --algorithm leaky_bucket --capacity 4 --period 2s --requests 7

Run a scenario file in real time:
  goshape run -f scenario.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			// If no subcommand is provided, print help
			cmd.Help()
		},
	}

	cmd.PersistentFlags().Bool("json", false, "Write machine-readable JSON instead of text")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	cmd.AddCommand(newSimulateCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newCompareCmd())
	cmd.AddCommand(newAlgorithmsCmd())
	return cmd
}

// Execute runs RootCmd and reports any error on stderr.
// This is called by main.main().
func Execute() error {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case gferrors.IsPermanent(err):
		return ExitPermanent
	case gferrors.IsRetryable(err):
		return ExitRetryable
	default:
		return ExitFailure
	}
}

func newPrinter(cmd *cobra.Command) *report.Printer {
	noColor, _ := cmd.Flags().GetBool("no-color")
	return report.AutoPrinter(cmd.OutOrStdout(), noColor)
}

func jsonOutput(cmd *cobra.Command) bool {
	asJSON, _ := cmd.Flags().GetBool("json")
	return asJSON
}
