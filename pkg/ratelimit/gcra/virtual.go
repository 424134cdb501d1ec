package gcra

import (
	"context"
	"sync"
	"time"

	"github.com/vnykmshr/goshape/pkg/ratelimit/shaping"
)

type virtualScheduling struct {
	mu        sync.Mutex
	config    shaping.Config
	interval  time.Duration
	tolerance time.Duration
	tat       time.Time
}

func (vs *virtualScheduling) Acquire(ctx context.Context) error {
	return vs.AcquireN(ctx, 1)
}

func (vs *virtualScheduling) AcquireN(ctx context.Context, n int) error {
	return shaping.AcquireWith(ctx, module, vs, vs.config.Sleeper, n)
}

// TryAcquireN conforms n units at t when t ≥ max(TAT, t) + n×T − τ.
func (vs *virtualScheduling) TryAcquireN(n int) (time.Duration, error) {
	needed, err := shaping.CheckWeight(module, n, vs.config.Capacity)
	if !needed || err != nil {
		return 0, err
	}

	vs.mu.Lock()
	defer vs.mu.Unlock()

	now := vs.config.Clock.Now()
	tat := vs.tat
	if now.After(tat) {
		tat = now
	}
	newTAT := tat.Add(time.Duration(n) * vs.interval)

	allowAt := newTAT.Add(-vs.tolerance)
	if now.Before(allowAt) {
		return allowAt.Sub(now), nil
	}

	vs.tat = newTAT
	return 0, nil
}

func (vs *virtualScheduling) TAT() time.Time {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.tat
}

func (vs *virtualScheduling) Snapshot() shaping.Snapshot {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	now := vs.config.Clock.Now()
	level, available := occupancy(vs.tat.Sub(now), vs.interval, vs.tolerance)
	return shaping.Snapshot{
		Algorithm: shaping.AlgorithmGCRAVirtualScheduling,
		Capacity:  vs.config.Capacity,
		Period:    vs.config.Period,
		Level:     level,
		Available: available,
		TAT:       vs.tat,
		At:        now,
	}
}

func (vs *virtualScheduling) Config() shaping.Config {
	return vs.config
}

func (vs *virtualScheduling) Algorithm() string {
	return shaping.AlgorithmGCRAVirtualScheduling
}
