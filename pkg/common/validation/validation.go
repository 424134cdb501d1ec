package validation

import (
	"math"
	"time"

	gferrors "github.com/vnykmshr/goshape/pkg/common/errors"
)

// ValidatePositive validates that an integer value is positive (> 0).
// Returns a ValidationError if the value is not positive.
func ValidatePositive(module, field string, value int) error {
	if value <= 0 {
		return gferrors.NewValidationError(module, field, value, "must be positive").
			WithHint("value must be greater than 0")
	}
	return nil
}

// ValidateNonNegative validates that an integer value is non-negative (>= 0).
// Returns a ValidationError if the value is negative.
func ValidateNonNegative(module, field string, value int) error {
	if value < 0 {
		return gferrors.NewValidationError(module, field, value, "cannot be negative").
			WithHint("use 0 or a positive value")
	}
	return nil
}

// ValidatePositiveFloat validates that a float64 value is positive and finite.
// Returns a ValidationError otherwise.
func ValidatePositiveFloat(module, field string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return gferrors.NewValidationError(module, field, value, "must be finite").
			WithHint("use a finite number greater than 0")
	}
	if value <= 0 {
		return gferrors.NewValidationError(module, field, value, "must be positive").
			WithHint("value must be greater than 0")
	}
	return nil
}

// ValidatePositiveDuration validates that a duration is positive (> 0).
// Returns a ValidationError if the duration is zero or negative.
func ValidatePositiveDuration(module, field string, value time.Duration) error {
	if value <= 0 {
		return gferrors.NewValidationError(module, field, value, "must be positive").
			WithHint("use a duration greater than 0, e.g. 1s")
	}
	return nil
}

// ValidateWeight validates a request weight against a capacity. Negative
// weights are a ValidationError; weights larger than the capacity are a
// CapacityError because no amount of waiting can ever admit them.
func ValidateWeight(module string, weight int, capacity float64) error {
	if weight < 0 {
		return gferrors.NewValidationError(module, "weight", weight, "cannot be negative").
			WithHint("acquire at least 0 units")
	}
	if float64(weight) > capacity {
		return gferrors.NewCapacityError(module, weight, capacity)
	}
	return nil
}
