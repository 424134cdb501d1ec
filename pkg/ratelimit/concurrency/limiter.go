package concurrency

import (
	"context"
	"sync"

	"github.com/vnykmshr/goshape/pkg/common/validation"
)

const module = "concurrency"

// Limiter bounds the number of operations in flight. Blocked callers are
// served strictly in arrival order: a waiter needing more permits than are
// free holds back every waiter behind it.
type Limiter interface {
	// Acquire attempts to acquire a permit for one operation.
	// It returns true if a permit was available, false otherwise.
	// This method does not block and never jumps ahead of queued waiters.
	Acquire() bool

	// AcquireN attempts to acquire n permits without blocking.
	AcquireN(n int) bool

	// Wait blocks until a permit is available for one operation.
	// It returns an error if the context is canceled or deadline exceeded.
	Wait(ctx context.Context) error

	// WaitN blocks until n permits are available. A request for more permits
	// than the capacity fails immediately with a CapacityError.
	WaitN(ctx context.Context, n int) error

	// Release releases one permit back to the limiter.
	// It panics if more permits are released than were acquired.
	Release()

	// ReleaseN releases n permits back to the limiter.
	ReleaseN(n int)

	// SetCapacity changes the maximum number of concurrent operations allowed.
	// If the new capacity is less than current usage, it will take effect
	// as operations complete and permits are released.
	SetCapacity(capacity int)

	// Capacity returns the maximum number of concurrent operations allowed.
	Capacity() int

	// Available returns the number of permits currently available.
	Available() int

	// InUse returns the number of permits currently in use.
	InUse() int

	// Waiting returns the number of blocked callers.
	Waiting() int
}

// Config holds configuration options for creating a new concurrency Limiter.
type Config struct {
	// Capacity is the maximum number of concurrent operations allowed.
	Capacity int

	// InitialAvailable is the initial number of available permits.
	// If negative or greater than Capacity, defaults to Capacity.
	InitialAvailable int
}

// concurrencyLimiter implements the Limiter interface using a semaphore approach.
type concurrencyLimiter struct {
	mu        sync.Mutex
	capacity  int
	available int
	inUse     int
	waiters   []*waiter
}

// waiter represents a goroutine waiting for permits
type waiter struct {
	n     int
	ready chan struct{} // closed once the permits are granted
}

// New creates a concurrency limiter. It panics if capacity is not positive.
func New(capacity int) Limiter {
	limiter, err := NewSafe(capacity)
	if err != nil {
		panic(err.Error())
	}
	return limiter
}

// NewSafe creates a new concurrency limiter with validation that returns an error instead of panicking.
// This is the recommended way to create concurrency limiters for production use.
func NewSafe(capacity int) (Limiter, error) {
	return NewWithConfigSafe(Config{
		Capacity:         capacity,
		InitialAvailable: -1, // Use capacity as default
	})
}

// NewWithConfigSafe creates a new concurrency limiter with validation that returns an error instead of panicking.
func NewWithConfigSafe(config Config) (Limiter, error) {
	if err := validation.ValidatePositive(module, "capacity", config.Capacity); err != nil {
		return nil, err
	}

	initialAvailable := config.InitialAvailable
	if config.InitialAvailable < 0 || config.InitialAvailable > config.Capacity {
		initialAvailable = config.Capacity
	}

	return &concurrencyLimiter{
		capacity:  config.Capacity,
		available: initialAvailable,
		inUse:     config.Capacity - initialAvailable,
	}, nil
}
