package bucket

import (
	"context"
	"math"
	"time"

	"github.com/vnykmshr/goshape/pkg/ratelimit/shaping"
)

// Acquire blocks until one token is available.
func (tb *tokenBucket) Acquire(ctx context.Context) error {
	return tb.AcquireN(ctx, 1)
}

// AcquireN blocks until n tokens are available and spends them.
func (tb *tokenBucket) AcquireN(ctx context.Context, n int) error {
	return shaping.AcquireWith(ctx, module, tb, tb.config.Sleeper, n)
}

// TryAcquireN spends n tokens now or returns the time until they accrue.
func (tb *tokenBucket) TryAcquireN(n int) (time.Duration, error) {
	needed, err := shaping.CheckWeight(module, n, tb.config.Capacity)
	if !needed || err != nil {
		return 0, err
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.fill(tb.config.Clock.Now())

	missing := float64(n) - tb.tokens
	if missing <= shaping.Epsilon {
		tb.tokens = math.Max(0, tb.tokens-float64(n))
		return 0, nil
	}

	return shaping.DurationOf(missing / tb.rate), nil
}

// Fill accrues tokens up to the current time.
func (tb *tokenBucket) Fill() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.fill(tb.config.Clock.Now())
}

// Tokens returns the number of tokens currently available.
func (tb *tokenBucket) Tokens() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.fill(tb.config.Clock.Now())
	return tb.tokens
}

// CapacityInfo reports whether n tokens are available without waiting.
func (tb *tokenBucket) CapacityInfo(n int) CapacityInfo {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.fill(tb.config.Clock.Now())
	missing := float64(n) - tb.tokens
	if missing <= shaping.Epsilon {
		return CapacityInfo{HasCapacity: true}
	}
	return CapacityInfo{Needed: missing}
}

// Snapshot reports spent tokens as the occupied level.
func (tb *tokenBucket) Snapshot() shaping.Snapshot {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.config.Clock.Now()
	tb.fill(now)
	return shaping.Snapshot{
		Algorithm: shaping.AlgorithmTokenBucket,
		Capacity:  tb.config.Capacity,
		Period:    tb.config.Period,
		Level:     tb.config.Capacity - tb.tokens,
		Available: tb.tokens,
		At:        now,
	}
}

// Config returns the configuration the bucket was built with.
func (tb *tokenBucket) Config() shaping.Config {
	return tb.config
}

// Algorithm returns shaping.AlgorithmTokenBucket.
func (tb *tokenBucket) Algorithm() string {
	return shaping.AlgorithmTokenBucket
}

// fill adds rate × elapsed tokens, capped at capacity.
func (tb *tokenBucket) fill(now time.Time) {
	elapsed := now.Sub(tb.lastUpdate)
	if elapsed <= 0 {
		return
	}

	tb.tokens = math.Min(tb.config.Capacity, tb.tokens+elapsed.Seconds()*tb.rate)
	tb.lastUpdate = now
}
