package shaping

import (
	"time"

	"github.com/vnykmshr/goshape/pkg/clock"
	"github.com/vnykmshr/goshape/pkg/common/validation"
)

// Config holds the parameters shared by every shaping engine.
type Config struct {
	// Capacity is the maximum number of units admitted in one burst.
	Capacity float64

	// Period is the time it takes to admit Capacity units at the steady rate.
	Period time.Duration

	// Clock provides the current time. If nil, clock.System is used.
	Clock clock.Clock

	// Sleeper suspends callers that must wait. If nil, the Clock is used when
	// it implements clock.Sleeper, otherwise clock.System.
	Sleeper clock.Sleeper
}

// NewConfig creates a validated Config using the system clock.
func NewConfig(capacity float64, period time.Duration) (Config, error) {
	cfg := Config{Capacity: capacity, Period: period}
	if err := cfg.Validate("shaping"); err != nil {
		return Config{}, err
	}
	return cfg.WithDefaults(), nil
}

// NewConfigSeconds is NewConfig with the period given in seconds.
func NewConfigSeconds(capacity, seconds float64) (Config, error) {
	if err := validation.ValidatePositiveFloat("shaping", "period", seconds); err != nil {
		return Config{}, err
	}
	return NewConfig(capacity, time.Duration(seconds*float64(time.Second)))
}

// Validate reports a ValidationError attributed to module when the capacity
// or the period is not positive.
func (c Config) Validate(module string) error {
	if err := validation.ValidatePositiveFloat(module, "capacity", c.Capacity); err != nil {
		return err
	}
	return validation.ValidatePositiveDuration(module, "period", c.Period)
}

// WithDefaults returns a copy of c with missing collaborators filled in.
func (c Config) WithDefaults() Config {
	if c.Clock == nil {
		c.Clock = clock.System{}
	}
	if c.Sleeper == nil {
		if s, ok := c.Clock.(clock.Sleeper); ok {
			c.Sleeper = s
		} else {
			c.Sleeper = clock.System{}
		}
	}
	return c
}

// Rate returns the steady admission rate in units per second.
func (c Config) Rate() float64 {
	return c.Capacity / c.Period.Seconds()
}

// EmissionInterval returns the minimum average spacing between conforming
// units, Period / Capacity.
func (c Config) EmissionInterval() time.Duration {
	return time.Duration(float64(c.Period) / c.Capacity)
}

// Tolerance returns the GCRA delay variation tolerance, one full Period.
func (c Config) Tolerance() time.Duration {
	return c.Period
}
