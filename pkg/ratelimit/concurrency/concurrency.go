package concurrency

import (
	"context"

	gferrors "github.com/vnykmshr/goshape/pkg/common/errors"
	"github.com/vnykmshr/goshape/pkg/common/validation"
)

// Acquire attempts to acquire one permit without blocking.
func (cl *concurrencyLimiter) Acquire() bool {
	return cl.AcquireN(1)
}

// AcquireN attempts to acquire n permits without blocking.
func (cl *concurrencyLimiter) AcquireN(n int) bool {
	if n <= 0 {
		return true
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if len(cl.waiters) == 0 && cl.available >= n {
		cl.available -= n
		cl.inUse += n
		return true
	}
	return false
}

// Wait blocks until one permit is available.
func (cl *concurrencyLimiter) Wait(ctx context.Context) error {
	return cl.WaitN(ctx, 1)
}

// WaitN blocks until n permits are available.
func (cl *concurrencyLimiter) WaitN(ctx context.Context, n int) error {
	if n == 0 {
		return nil
	}

	cl.mu.Lock()
	if err := validation.ValidateWeight(module, n, float64(cl.capacity)); err != nil {
		cl.mu.Unlock()
		return err
	}

	// Check if context is already canceled
	if err := ctx.Err(); err != nil {
		cl.mu.Unlock()
		return gferrors.FromContext(module, "WaitN", err)
	}

	// Fast path: permits available and nobody queued ahead
	if len(cl.waiters) == 0 && cl.available >= n {
		cl.available -= n
		cl.inUse += n
		cl.mu.Unlock()
		return nil
	}

	w := &waiter{n: n, ready: make(chan struct{})}
	cl.waiters = append(cl.waiters, w)
	cl.mu.Unlock()

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		cl.mu.Lock()
		select {
		case <-w.ready:
			// Granted while we were being canceled; give the permits back.
			cl.available += n
			cl.inUse -= n
		default:
			cl.removeWaiter(w)
		}
		cl.notifyWaiters()
		cl.mu.Unlock()
		return gferrors.FromContext(module, "WaitN", ctx.Err())
	}
}

// Release releases one permit back to the limiter.
func (cl *concurrencyLimiter) Release() {
	cl.ReleaseN(1)
}

// ReleaseN releases n permits back to the limiter.
func (cl *concurrencyLimiter) ReleaseN(n int) {
	if n <= 0 {
		return
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.inUse < n {
		panic("concurrency: released more permits than acquired")
	}

	cl.inUse -= n
	// Permits above a reduced capacity are retired instead of returned.
	cl.available = min(cl.available+n, cl.capacity-cl.inUse)

	cl.notifyWaiters()
}

// SetCapacity changes the maximum number of concurrent operations allowed.
func (cl *concurrencyLimiter) SetCapacity(newCapacity int) {
	if newCapacity <= 0 {
		panic("capacity must be positive")
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	cl.capacity = newCapacity
	cl.available = max(0, newCapacity-cl.inUse)
	cl.notifyWaiters()
}

// Capacity returns the maximum number of concurrent operations allowed.
func (cl *concurrencyLimiter) Capacity() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.capacity
}

// Available returns the number of permits currently available.
func (cl *concurrencyLimiter) Available() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.available
}

// InUse returns the number of permits currently in use.
func (cl *concurrencyLimiter) InUse() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.inUse
}

// Waiting returns the number of blocked callers.
func (cl *concurrencyLimiter) Waiting() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.waiters)
}

// notifyWaiters grants permits to waiters in FIFO order, stopping at the
// first one that does not fit. Must be called with cl.mu held.
func (cl *concurrencyLimiter) notifyWaiters() {
	for len(cl.waiters) > 0 {
		w := cl.waiters[0]
		if cl.available < w.n {
			return
		}
		cl.available -= w.n
		cl.inUse += w.n
		cl.waiters[0] = nil
		cl.waiters = cl.waiters[1:]
		close(w.ready)
	}
}

// removeWaiter drops w from the queue. Must be called with cl.mu held.
func (cl *concurrencyLimiter) removeWaiter(w *waiter) {
	for i, other := range cl.waiters {
		if other == w {
			cl.waiters = append(cl.waiters[:i], cl.waiters[i+1:]...)
			return
		}
	}
}
