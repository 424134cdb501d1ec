package bucket

import (
	"sync"
	"time"

	"github.com/vnykmshr/goshape/pkg/ratelimit/shaping"
)

const module = "bucket"

// Limiter shapes traffic with a token bucket. Tokens accrue at the
// configured rate up to the capacity and each admitted unit spends one.
// It is the dual of the leaky bucket and admits the same request sequence
// at the same instants.
type Limiter interface {
	shaping.Shaper
	shaping.Inspector

	// Fill adds the tokens accrued since the last update, capped at capacity.
	Fill()

	// Tokens returns the number of tokens currently available.
	Tokens() float64

	// CapacityInfo reports whether n tokens are available right now and,
	// when they are not, how many are missing.
	CapacityInfo(n int) CapacityInfo
}

// CapacityInfo describes whether a request can be paid for now.
type CapacityInfo struct {
	HasCapacity bool
	Needed      float64
}

// tokenBucket implements the Limiter interface using a token bucket algorithm.
type tokenBucket struct {
	mu         sync.Mutex
	config     shaping.Config
	rate       float64
	tokens     float64
	lastUpdate time.Time
}

// New creates a token bucket admitting capacity units per period.
// It panics if the parameters are invalid; use NewSafe to get an error instead.
func New(capacity float64, period time.Duration) Limiter {
	limiter, err := NewSafe(capacity, period)
	if err != nil {
		panic(err.Error())
	}
	return limiter
}

// NewSafe creates a new token bucket with validation that returns an error instead of panicking.
// This is the recommended way to create shapers for production use.
func NewSafe(capacity float64, period time.Duration) (Limiter, error) {
	return NewWithConfigSafe(shaping.Config{Capacity: capacity, Period: period})
}

// NewWithConfig creates a token bucket from config.
// It panics if the configuration is invalid.
func NewWithConfig(config shaping.Config) Limiter {
	limiter, err := NewWithConfigSafe(config)
	if err != nil {
		panic(err.Error())
	}
	return limiter
}

// NewWithConfigSafe creates a token bucket from config. The bucket starts full.
func NewWithConfigSafe(config shaping.Config) (Limiter, error) {
	if err := config.Validate(module); err != nil {
		return nil, err
	}
	config = config.WithDefaults()

	return &tokenBucket{
		config:     config,
		rate:       config.Rate(),
		tokens:     config.Capacity,
		lastUpdate: config.Clock.Now(),
	}, nil
}
