package gcra

import (
	"context"
	"sync"
	"time"

	"github.com/vnykmshr/goshape/pkg/ratelimit/shaping"
)

type leakyBucket struct {
	mu         sync.Mutex
	config     shaping.Config
	interval   time.Duration
	tolerance  time.Duration
	level      time.Duration
	lastUpdate time.Time
}

func (lb *leakyBucket) Acquire(ctx context.Context) error {
	return lb.AcquireN(ctx, 1)
}

func (lb *leakyBucket) AcquireN(ctx context.Context, n int) error {
	return shaping.AcquireWith(ctx, module, lb, lb.config.Sleeper, n)
}

// TryAcquireN conforms n units when the drained level plus n×T fits within τ.
func (lb *leakyBucket) TryAcquireN(n int) (time.Duration, error) {
	needed, err := shaping.CheckWeight(module, n, lb.config.Capacity)
	if !needed || err != nil {
		return 0, err
	}

	lb.mu.Lock()
	defer lb.mu.Unlock()

	now := lb.config.Clock.Now()
	next := lb.drained(now) + time.Duration(n)*lb.interval
	if next > lb.tolerance {
		return next - lb.tolerance, nil
	}

	lb.level = next
	lb.lastUpdate = now
	return 0, nil
}

func (lb *leakyBucket) BucketLevel() time.Duration {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.drained(lb.config.Clock.Now())
}

func (lb *leakyBucket) Snapshot() shaping.Snapshot {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	now := lb.config.Clock.Now()
	level, available := occupancy(lb.drained(now), lb.interval, lb.tolerance)
	return shaping.Snapshot{
		Algorithm: shaping.AlgorithmGCRALeakyBucket,
		Capacity:  lb.config.Capacity,
		Period:    lb.config.Period,
		Level:     level,
		Available: available,
		At:        now,
	}
}

func (lb *leakyBucket) Config() shaping.Config {
	return lb.config
}

func (lb *leakyBucket) Algorithm() string {
	return shaping.AlgorithmGCRALeakyBucket
}

// drained returns max(0, level − (now − lastUpdate)).
func (lb *leakyBucket) drained(now time.Time) time.Duration {
	elapsed := now.Sub(lb.lastUpdate)
	if elapsed < 0 {
		elapsed = 0
	}
	if d := lb.level - elapsed; d > 0 {
		return d
	}
	return 0
}
