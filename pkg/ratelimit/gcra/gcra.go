package gcra

import (
	"time"

	gferrors "github.com/vnykmshr/goshape/pkg/common/errors"
	"github.com/vnykmshr/goshape/pkg/ratelimit/shaping"
)

const module = "gcra"

// VirtualScheduling is a GCRA shaper that tracks the theoretical arrival
// time (TAT) of the next unit.
type VirtualScheduling interface {
	shaping.Shaper
	shaping.Inspector

	// TAT returns the theoretical arrival time. It never decreases.
	TAT() time.Time
}

// LeakyBucket is a GCRA shaper that tracks a bucket level measured in time.
// It makes exactly the same decisions as VirtualScheduling.
type LeakyBucket interface {
	shaping.Shaper
	shaping.Inspector

	// BucketLevel returns the drained level at the current time. It is the
	// backlog TAT − now of the equivalent virtual scheduler, floored at 0.
	BucketLevel() time.Duration
}

// NewVirtualScheduling creates a virtual scheduling GCRA. TAT starts at the
// current time. It panics if config is invalid.
func NewVirtualScheduling(config shaping.Config) VirtualScheduling {
	vs, err := NewVirtualSchedulingSafe(config)
	if err != nil {
		panic(err.Error())
	}
	return vs
}

// NewVirtualSchedulingSafe is NewVirtualScheduling returning an error
// instead of panicking.
func NewVirtualSchedulingSafe(config shaping.Config) (VirtualScheduling, error) {
	if err := validate(config); err != nil {
		return nil, err
	}
	config = config.WithDefaults()

	return &virtualScheduling{
		config:    config,
		interval:  config.EmissionInterval(),
		tolerance: config.Tolerance(),
		tat:       config.Clock.Now(),
	}, nil
}

// NewLeakyBucket creates a leaky bucket GCRA with an empty bucket.
// It panics if config is invalid.
func NewLeakyBucket(config shaping.Config) LeakyBucket {
	lb, err := NewLeakyBucketSafe(config)
	if err != nil {
		panic(err.Error())
	}
	return lb
}

// NewLeakyBucketSafe is NewLeakyBucket returning an error instead of
// panicking.
func NewLeakyBucketSafe(config shaping.Config) (LeakyBucket, error) {
	if err := validate(config); err != nil {
		return nil, err
	}
	config = config.WithDefaults()

	return &leakyBucket{
		config:     config,
		interval:   config.EmissionInterval(),
		tolerance:  config.Tolerance(),
		lastUpdate: config.Clock.Now(),
	}, nil
}

func validate(config shaping.Config) error {
	if err := config.Validate(module); err != nil {
		return err
	}
	if config.EmissionInterval() <= 0 {
		return gferrors.NewValidationError(module, "capacity", config.Capacity, "emission interval rounds to zero").
			WithHint("period divided by capacity must be at least 1ns")
	}
	return nil
}

// occupancy converts a backlog into occupied and available units.
func occupancy(backlog, interval, tolerance time.Duration) (level, available float64) {
	if backlog < 0 {
		backlog = 0
	}
	level = float64(backlog) / float64(interval)
	available = float64(tolerance-backlog) / float64(interval)
	if available < 0 {
		available = 0
	}
	return level, available
}
