package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vnykmshr/goshape/internal/report"
	"github.com/vnykmshr/goshape/internal/scenario"
	"github.com/vnykmshr/goshape/pkg/diagnostics"
	"github.com/vnykmshr/goshape/pkg/metrics"
	"github.com/vnykmshr/goshape/pkg/ratelimit/shaping"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scenario file in real time",
		Long: `Run a YAML scenario in real time. Each request is issued from its own
goroutine at its arrival offset. In cooperative mode requests queue in FIFO
order behind a single dispatcher; in sync mode each one sleeps on the
engine directly.

Example scenario:
  name: checkout
  algorithm: gcra_virtual_scheduling
  capacity: 5
  period: 1s
  mode: cooperative
  max_concurrent: 2
  timeout: 2s
  diagnostics: "@every 500ms"
  requests:
    - weight: 1
      gap: 50ms
      hold: 100ms
      repeat: 20`,
		Args: cobra.NoArgs,
		RunE: runScenario,
	}

	cmd.Flags().StringP("file", "f", "", "Scenario file (required)")
	cmd.Flags().Bool("diagnostics", false, "Print shaper snapshots on the scenario's diagnostics schedule")
	cmd.Flags().Bool("metrics", false, "Print the collected metrics after the run")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runScenario(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	showDiagnostics, _ := cmd.Flags().GetBool("diagnostics")
	showMetrics, _ := cmd.Flags().GetBool("metrics")

	s, err := scenario.Load(file)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	// Side output goes to stderr when stdout carries JSON.
	side := newPrinter(cmd)
	if jsonOutput(cmd) {
		noColor, _ := cmd.Flags().GetBool("no-color")
		side = report.AutoPrinter(cmd.ErrOrStderr(), noColor)
	}

	var opts scenario.Options
	if showDiagnostics {
		var mu sync.Mutex
		opts.Sink = diagnostics.SinkFunc(func(name string, snap shaping.Snapshot) {
			mu.Lock()
			defer mu.Unlock()
			side.PrintSnapshot(name, snap)
		})
	}

	var reg *prometheus.Registry
	if showMetrics {
		reg = prometheus.NewRegistry()
		opts.Metrics = metrics.NewRegistry(reg)
	}

	result, runErr := scenario.Run(ctx, s, opts)
	if result == nil {
		return runErr
	}
	if err := writeResult(cmd, result); err != nil {
		return err
	}
	if reg != nil {
		if err := side.PrintMetrics(reg); err != nil {
			return err
		}
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}
