package shaping

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/vnykmshr/goshape/pkg/metrics"
)

// MetricsShaper wraps a Shaper with Prometheus metrics collection.
type MetricsShaper struct {
	shaper   Shaper
	name     string
	registry atomic.Pointer[metrics.Registry]
	enabled  atomic.Bool
}

// WithMetrics decorates s so that every acquisition is recorded in registry
// under the given shaper name. A nil registry uses metrics.DefaultRegistry.
func WithMetrics(s Shaper, name string, registry *metrics.Registry) *MetricsShaper {
	if registry == nil {
		registry = metrics.DefaultRegistry
	}
	ms := &MetricsShaper{shaper: s, name: name}
	ms.registry.Store(registry)
	ms.enabled.Store(true)
	return ms
}

// Unwrap returns the decorated shaper.
func (ms *MetricsShaper) Unwrap() Shaper {
	return ms.shaper
}

// Acquire blocks until one unit conforms.
func (ms *MetricsShaper) Acquire(ctx context.Context) error {
	return ms.AcquireN(ctx, 1)
}

// AcquireN blocks until n units conform and records the outcome.
func (ms *MetricsShaper) AcquireN(ctx context.Context, n int) error {
	if !ms.enabled.Load() {
		return ms.shaper.AcquireN(ctx, n)
	}

	reg := ms.registry.Load()
	algo := ms.shaper.Algorithm()
	reg.ShapingRequests.WithLabelValues(algo, ms.name).Add(float64(n))

	start := time.Now()
	err := ms.shaper.AcquireN(ctx, n)
	if err != nil {
		reg.ShapingErrors.WithLabelValues(algo, ms.name, metrics.ReasonFor(err)).Inc()
	} else {
		reg.ShapingWaitTime.WithLabelValues(algo, ms.name).Observe(time.Since(start).Seconds())
		reg.ShapingAdmitted.WithLabelValues(algo, ms.name).Add(float64(n))
	}
	ms.observeState(reg)

	return err
}

// TryAcquireN admits n units now or returns the wait. Only final outcomes
// are counted: a returned wait is a retry hint, and the caller's next
// attempt for the same request is the one that gets recorded.
func (ms *MetricsShaper) TryAcquireN(n int) (time.Duration, error) {
	if !ms.enabled.Load() {
		return ms.shaper.TryAcquireN(n)
	}

	reg := ms.registry.Load()
	algo := ms.shaper.Algorithm()

	wait, err := ms.shaper.TryAcquireN(n)
	switch {
	case err != nil:
		reg.ShapingRequests.WithLabelValues(algo, ms.name).Add(float64(n))
		reg.ShapingErrors.WithLabelValues(algo, ms.name, metrics.ReasonFor(err)).Inc()
	case wait == 0:
		reg.ShapingRequests.WithLabelValues(algo, ms.name).Add(float64(n))
		reg.ShapingAdmitted.WithLabelValues(algo, ms.name).Add(float64(n))
	}
	ms.observeState(reg)

	return wait, err
}

// Config returns the decorated shaper's configuration.
func (ms *MetricsShaper) Config() Config {
	return ms.shaper.Config()
}

// Algorithm returns the decorated shaper's algorithm name.
func (ms *MetricsShaper) Algorithm() string {
	return ms.shaper.Algorithm()
}

// Snapshot returns the decorated shaper's snapshot, or a snapshot carrying
// only the configuration when it is not an Inspector.
func (ms *MetricsShaper) Snapshot() Snapshot {
	if in, ok := ms.shaper.(Inspector); ok {
		return in.Snapshot()
	}
	cfg := ms.shaper.Config()
	return Snapshot{
		Algorithm: ms.shaper.Algorithm(),
		Capacity:  cfg.Capacity,
		Period:    cfg.Period,
		At:        cfg.WithDefaults().Clock.Now(),
	}
}

func (ms *MetricsShaper) observeState(reg *metrics.Registry) {
	in, ok := ms.shaper.(Inspector)
	if !ok {
		return
	}
	snap := in.Snapshot()
	reg.ShapingLevel.WithLabelValues(snap.Algorithm, ms.name).Set(snap.Level)
	reg.ShapingAvailable.WithLabelValues(snap.Algorithm, ms.name).Set(snap.Available)
}

// EnableMetrics enables metrics collection.
func (ms *MetricsShaper) EnableMetrics(config metrics.Config) error {
	if config.Registry != nil {
		ms.registry.Store(metrics.NewRegistryWithConfig(config))
	}
	ms.enabled.Store(config.Enabled)
	return nil
}

// DisableMetrics disables metrics collection.
func (ms *MetricsShaper) DisableMetrics() {
	ms.enabled.Store(false)
}

// MetricsEnabled returns true if metrics are currently enabled.
func (ms *MetricsShaper) MetricsEnabled() bool {
	return ms.enabled.Load()
}

var (
	_ Shaper                 = (*MetricsShaper)(nil)
	_ Inspector              = (*MetricsShaper)(nil)
	_ metrics.Instrumentable = (*MetricsShaper)(nil)
)
