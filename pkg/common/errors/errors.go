package errors

import (
	"context"
	"errors"
	"fmt"
)

// Common error types used across the goshape library

var (
	// ErrClosed indicates that an operation was attempted on a closed resource
	ErrClosed = errors.New("resource is closed")

	// ErrTimeout indicates that a wait bound elapsed before admission
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that a wait was canceled before admission
	ErrCanceled = errors.New("operation canceled")

	// ErrCapacityExceeded indicates that a request can never fit the configured capacity
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrInvalidConfiguration indicates invalid configuration parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// IsRetryable returns true if the error indicates a condition that might
// be resolved by retrying the operation
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrCanceled)
}

// IsPermanent returns true if retrying the same request can never succeed
func IsPermanent(err error) bool {
	return errors.Is(err, ErrCapacityExceeded) || errors.Is(err, ErrInvalidConfiguration)
}

// ValidationError describes a rejected configuration value or argument.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string
}

// NewValidationError creates a ValidationError without a hint.
func NewValidationError(module, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// WithHint attaches a remediation hint and returns the same error for chaining.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s=%v (%s)", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " - " + e.Hint
	}
	return msg
}

// Unwrap returns ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// CapacityError reports a request whose weight exceeds the capacity of the
// shaper it was sent to. No amount of waiting can admit it.
type CapacityError struct {
	Module    string
	Requested int
	Capacity  float64
}

// NewCapacityError creates a CapacityError.
func NewCapacityError(module string, requested int, capacity float64) *CapacityError {
	return &CapacityError{Module: module, Requested: requested, Capacity: capacity}
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s: cannot acquire %d units, capacity is %v", e.Module, e.Requested, e.Capacity)
}

// Unwrap returns ErrCapacityExceeded.
func (e *CapacityError) Unwrap() error {
	return ErrCapacityExceeded
}

// OperationError wraps the failure of a named operation.
type OperationError struct {
	Module    string
	Operation string
	Cause     error
	Context   string
}

// NewOperationError creates an OperationError.
func NewOperationError(module, operation string, cause error) *OperationError {
	return &OperationError{
		Module:    module,
		Operation: operation,
		Cause:     cause,
	}
}

// WithContext attaches detail text and returns the same error for chaining.
func (e *OperationError) WithContext(context string) *OperationError {
	e.Context = context
	return e
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("%s.%s failed: %v", e.Module, e.Operation, e.Cause)
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	return msg
}

// Unwrap returns the cause.
func (e *OperationError) Unwrap() error {
	return e.Cause
}

// FromContext converts the error of a finished context into an
// OperationError whose cause matches both ErrTimeout or ErrCanceled and the
// original context error. Any other error is returned unchanged.
func FromContext(module, operation string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return NewOperationError(module, operation, fmt.Errorf("%w: %w", ErrTimeout, err))
	case errors.Is(err, context.Canceled):
		return NewOperationError(module, operation, fmt.Errorf("%w: %w", ErrCanceled, err))
	default:
		return err
	}
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsCapacityError reports whether err wraps a *CapacityError.
func IsCapacityError(err error) bool {
	var cerr *CapacityError
	return errors.As(err, &cerr)
}
