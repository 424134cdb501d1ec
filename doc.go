/*
Package goshape provides traffic-shaping admission control for Go programs.
Requests are never dropped: a request that does not fit the configured rate
and burst envelope is delayed until it does, unless the caller gives up.

Shaping engines (pkg/ratelimit):
  - leakybucket: Leaky bucket, admission while the bucket has room
  - bucket: Token bucket, admission while tokens remain
  - gcra: Generic Cell Rate Algorithm, virtual scheduling and leaky bucket forms
  - cooperative: FIFO coordinator that wakes exactly one waiter per admission
  - concurrency: Bound the number of operations running at once

Support:
  - shaping: Shared configuration, scoped acquisition and metrics decorator
  - metrics: Prometheus metrics for shapers and coordinators
  - diagnostics: Cron-scheduled snapshots of shaper state

Example usage:

	import (
		"github.com/vnykmshr/goshape/pkg/ratelimit/gcra"
		"github.com/vnykmshr/goshape/pkg/ratelimit/shaping"
	)

	config, _ := shaping.NewConfig(3, 1500*time.Millisecond) // 3 units per 1.5s
	shaper := gcra.NewVirtualScheduling(config)

	err := shaping.Do(ctx, shaper, func(ctx context.Context) error {
		return callUpstream(ctx)
	})

The goshape command (cmd/goshape) simulates request sequences against every
engine and runs YAML scenarios in real time.
*/
package goshape
