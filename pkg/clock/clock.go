// Package clock provides the time sources used by goshape's shaping engines.
//
// Engines read the current time through a Clock and suspend through a
// Sleeper, so tests and simulations can swap the system clock for a Manual
// clock that advances only when asked to.
package clock

import (
	"context"
	"sync"
	"time"
)

// Clock provides the current time. It can be mocked for testing.
type Clock interface {
	Now() time.Time
}

// Sleeper suspends the caller for a duration. Sleep returns ctx.Err() if the
// context is done before the duration elapses.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// System implements Clock and Sleeper using the system time. The times it
// returns carry a monotonic reading, so elapsed-time arithmetic is immune
// to wall-clock adjustments.
type System struct{}

// Now returns the current system time.
func (System) Now() time.Time {
	return time.Now()
}

// Sleep blocks for d or until ctx is done, whichever comes first.
func (System) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Manual is a virtual clock. Time only moves when Advance, Set or Sleep is
// called, which makes shaping decisions fully deterministic. Every Sleep is
// recorded so callers can inspect the delays an engine asked for.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

// NewManual creates a Manual clock starting at start.
// If zero time is provided, uses current time.
func NewManual(start time.Time) *Manual {
	if start.IsZero() {
		start = time.Now()
	}
	return &Manual{now: start}
}

// Now returns the current virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Set sets the clock to a specific time.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Sleep advances the clock by d instead of blocking and records the request.
// A done context is reported without moving time.
func (m *Manual) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sleeps = append(m.sleeps, d)
	if d > 0 {
		m.now = m.now.Add(d)
	}
	return nil
}

// Sleeps returns a copy of every duration passed to Sleep.
func (m *Manual) Sleeps() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Duration, len(m.sleeps))
	copy(out, m.sleeps)
	return out
}

// ResetSleeps forgets the recorded sleeps.
func (m *Manual) ResetSleeps() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sleeps = nil
}
