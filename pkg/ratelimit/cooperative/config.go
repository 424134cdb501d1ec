package cooperative

import (
	"github.com/vnykmshr/goshape/pkg/metrics"
	"github.com/vnykmshr/goshape/pkg/ratelimit/shaping"
)

const module = "cooperative"

// Config holds configuration options for creating a Coordinator.
type Config struct {
	// Shaper makes every admission decision. Required.
	Shaper shaping.Shaper

	// MaxConcurrent bounds the operations run through Do at the same time.
	// Zero means no bound.
	MaxConcurrent int

	// Name labels the coordinator's metrics. Defaults to "default".
	Name string

	// Metrics receives queue and wakeup metrics. Nil disables them.
	Metrics *metrics.Registry
}

// Stats is a point-in-time summary of a Coordinator.
type Stats struct {
	// Queued is the number of waiters not yet resolved.
	Queued int

	// InFlight is the number of operations currently running inside Do.
	InFlight int

	// Submitted counts requests that reached the dispatcher.
	Submitted uint64

	// Admitted counts acquisitions that succeeded.
	Admitted uint64

	// Woken counts admitted waiters that had to wait in the queue first.
	// Each such waiter is counted exactly once.
	Woken uint64

	TimedOut uint64
	Canceled uint64
	Rejected uint64
	Closed   uint64

	// Retry hints received by the dispatcher, by source.
	SubmitWakeups     uint64
	TimerWakeups      uint64
	CompletionWakeups uint64
	CancelWakeups     uint64
}
