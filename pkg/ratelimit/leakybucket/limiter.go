package leakybucket

import (
	"sync"
	"time"

	"github.com/vnykmshr/goshape/pkg/ratelimit/shaping"
)

const module = "leakybucket"

// Limiter shapes traffic with a leaky bucket. Every admitted unit raises the
// level, the level drains at the configured rate, and a request is admitted
// only while the bucket has headroom for its full weight.
type Limiter interface {
	shaping.Shaper
	shaping.Inspector

	// Leak drains the bucket for the time elapsed since the last update.
	// Calling it twice at the same instant has no further effect.
	Leak()

	// Level returns the current fill level after leaking.
	Level() float64

	// Available returns the headroom left in the bucket after leaking.
	Available() float64

	// CapacityInfo reports whether n units fit right now and, when they do
	// not, how many units must drain first.
	CapacityInfo(n int) CapacityInfo
}

// CapacityInfo describes whether a request fits the bucket.
type CapacityInfo struct {
	HasCapacity bool
	Needed      float64
}

// leakyBucket implements the Limiter interface.
type leakyBucket struct {
	mu         sync.Mutex
	config     shaping.Config
	rate       float64
	level      float64
	lastUpdate time.Time
}

// New creates a leaky bucket admitting capacity units per period.
// It panics if the parameters are invalid; use NewSafe to get an error instead.
func New(capacity float64, period time.Duration) Limiter {
	limiter, err := NewSafe(capacity, period)
	if err != nil {
		panic(err.Error())
	}
	return limiter
}

// NewSafe creates a leaky bucket with validation that returns an error instead of panicking.
func NewSafe(capacity float64, period time.Duration) (Limiter, error) {
	return NewWithConfigSafe(shaping.Config{Capacity: capacity, Period: period})
}

// NewWithConfig creates a leaky bucket from config.
// It panics if the configuration is invalid.
func NewWithConfig(config shaping.Config) Limiter {
	limiter, err := NewWithConfigSafe(config)
	if err != nil {
		panic(err.Error())
	}
	return limiter
}

// NewWithConfigSafe creates a leaky bucket from config. The bucket starts empty.
func NewWithConfigSafe(config shaping.Config) (Limiter, error) {
	if err := config.Validate(module); err != nil {
		return nil, err
	}
	config = config.WithDefaults()

	return &leakyBucket{
		config:     config,
		rate:       config.Rate(),
		lastUpdate: config.Clock.Now(),
	}, nil
}
