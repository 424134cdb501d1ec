package shaping

import (
	"context"
	"math"
	"time"

	"github.com/vnykmshr/goshape/pkg/clock"
	gferrors "github.com/vnykmshr/goshape/pkg/common/errors"
	"github.com/vnykmshr/goshape/pkg/common/validation"
)

// Algorithm names reported by Shaper.Algorithm.
const (
	AlgorithmLeakyBucket           = "leaky_bucket"
	AlgorithmTokenBucket           = "token_bucket"
	AlgorithmGCRAVirtualScheduling = "gcra_virtual_scheduling"
	AlgorithmGCRALeakyBucket       = "gcra_leaky_bucket"
)

// Algorithms lists every algorithm name in a stable order.
func Algorithms() []string {
	return []string{
		AlgorithmLeakyBucket,
		AlgorithmTokenBucket,
		AlgorithmGCRAVirtualScheduling,
		AlgorithmGCRALeakyBucket,
	}
}

// Epsilon absorbs floating point drift in level comparisons, so a request
// that has waited the computed delay is never refused by rounding.
const Epsilon = 1e-9

// Acquirer admits weighted requests, blocking until they conform.
type Acquirer interface {
	// AcquireN blocks until n units conform or ctx is done. A done context
	// never consumes capacity.
	AcquireN(ctx context.Context, n int) error
}

// Shaper is the capability shared by every shaping engine.
type Shaper interface {
	Acquirer

	// Acquire is AcquireN(ctx, 1).
	Acquire(ctx context.Context) error

	// TryAcquireN admits n units now and returns 0, or leaves the state
	// untouched and returns how long the caller should wait before retrying.
	TryAcquireN(n int) (time.Duration, error)

	// Config returns the configuration the engine was built with.
	Config() Config

	// Algorithm returns the engine's algorithm name.
	Algorithm() string
}

// Inspector exposes a read-only view of an engine's state.
type Inspector interface {
	Snapshot() Snapshot
}

// Snapshot is a point-in-time view of a shaper.
type Snapshot struct {
	Algorithm string
	Capacity  float64
	Period    time.Duration

	// Level is the occupied capacity in units.
	Level float64

	// Available is the number of units that would be admitted right now.
	Available float64

	// TAT is the theoretical arrival time. Only GCRA virtual scheduling sets it.
	TAT time.Time

	At time.Time
}

// CheckWeight applies the weight rules shared by all engines. It reports
// whether n requires an admission decision at all.
func CheckWeight(module string, n int, capacity float64) (bool, error) {
	if err := validation.ValidateWeight(module, n, capacity); err != nil {
		return false, err
	}
	return n > 0, nil
}

// DurationOf converts seconds to a Duration, rounding up to the next
// nanosecond so that sleeping the result is always long enough.
func DurationOf(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	ns := math.Ceil(seconds * float64(time.Second))
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}

type tryAcquirer interface {
	TryAcquireN(n int) (time.Duration, error)
}

// AcquireWith runs the blocking admission loop shared by the engines:
// try, sleep the returned delay through sleeper, and try again.
func AcquireWith(ctx context.Context, module string, engine tryAcquirer, sleeper clock.Sleeper, n int) error {
	if err := ctx.Err(); err != nil {
		return gferrors.FromContext(module, "AcquireN", err)
	}

	for {
		wait, err := engine.TryAcquireN(n)
		if err != nil {
			return err
		}
		if wait == 0 {
			return nil
		}
		if err := sleeper.Sleep(ctx, wait); err != nil {
			return gferrors.FromContext(module, "AcquireN", err)
		}
	}
}
