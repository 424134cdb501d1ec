package leakybucket

import (
	"context"
	"math"
	"time"

	"github.com/vnykmshr/goshape/pkg/ratelimit/shaping"
)

// Acquire blocks until one unit conforms.
func (lb *leakyBucket) Acquire(ctx context.Context) error {
	return lb.AcquireN(ctx, 1)
}

// AcquireN blocks until n units conform.
func (lb *leakyBucket) AcquireN(ctx context.Context, n int) error {
	return shaping.AcquireWith(ctx, module, lb, lb.config.Sleeper, n)
}

// TryAcquireN admits n units now or returns the time until they would fit.
func (lb *leakyBucket) TryAcquireN(n int) (time.Duration, error) {
	needed, err := shaping.CheckWeight(module, n, lb.config.Capacity)
	if !needed || err != nil {
		return 0, err
	}

	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.leak(lb.config.Clock.Now())

	overflow := lb.level + float64(n) - lb.config.Capacity
	if overflow <= shaping.Epsilon {
		lb.level = math.Min(lb.config.Capacity, lb.level+float64(n))
		return 0, nil
	}

	return shaping.DurationOf(overflow / lb.rate), nil
}

// Leak drains the bucket up to the current time.
func (lb *leakyBucket) Leak() {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.leak(lb.config.Clock.Now())
}

// Level returns the current fill level of the bucket.
func (lb *leakyBucket) Level() float64 {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.leak(lb.config.Clock.Now())
	return lb.level
}

// Available returns the available space in the bucket.
func (lb *leakyBucket) Available() float64 {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.leak(lb.config.Clock.Now())
	return lb.config.Capacity - lb.level
}

// CapacityInfo reports whether n units fit without waiting.
func (lb *leakyBucket) CapacityInfo(n int) CapacityInfo {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.leak(lb.config.Clock.Now())
	overflow := lb.level + float64(n) - lb.config.Capacity
	if overflow <= shaping.Epsilon {
		return CapacityInfo{HasCapacity: true}
	}
	return CapacityInfo{Needed: overflow}
}

// Snapshot returns the bucket state after leaking.
func (lb *leakyBucket) Snapshot() shaping.Snapshot {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	now := lb.config.Clock.Now()
	lb.leak(now)
	return shaping.Snapshot{
		Algorithm: shaping.AlgorithmLeakyBucket,
		Capacity:  lb.config.Capacity,
		Period:    lb.config.Period,
		Level:     lb.level,
		Available: lb.config.Capacity - lb.level,
		At:        now,
	}
}

// Config returns the configuration the bucket was built with.
func (lb *leakyBucket) Config() shaping.Config {
	return lb.config
}

// Algorithm returns shaping.AlgorithmLeakyBucket.
func (lb *leakyBucket) Algorithm() string {
	return shaping.AlgorithmLeakyBucket
}

// leak drains rate × elapsed units since the last update, floored at zero.
func (lb *leakyBucket) leak(now time.Time) {
	elapsed := now.Sub(lb.lastUpdate)
	if elapsed <= 0 {
		return
	}

	lb.level = math.Max(0, lb.level-elapsed.Seconds()*lb.rate)
	lb.lastUpdate = now
}
