package errors

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCommonErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ErrClosed", ErrClosed, "resource is closed"},
		{"ErrTimeout", ErrTimeout, "operation timed out"},
		{"ErrCanceled", ErrCanceled, "operation canceled"},
		{"ErrCapacityExceeded", ErrCapacityExceeded, "capacity exceeded"},
		{"ErrInvalidConfiguration", ErrInvalidConfiguration, "invalid configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{
			name: "without hint",
			err: &ValidationError{
				Module: "shaping",
				Field:  "capacity",
				Value:  -1,
				Reason: "must be positive",
			},
			want: "shaping: invalid capacity=-1 (must be positive)",
		},
		{
			name: "with hint",
			err: &ValidationError{
				Module: "shaping",
				Field:  "period",
				Value:  0,
				Reason: "must be positive",
				Hint:   "use a duration greater than 0",
			},
			want: "shaping: invalid period=0 (must be positive) - use a duration greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationError_Unwrap(t *testing.T) {
	verr := NewValidationError("test", "field", 0, "test")

	if !errors.Is(verr, ErrInvalidConfiguration) {
		t.Error("ValidationError should wrap ErrInvalidConfiguration")
	}

	// Should return same instance for chaining
	if result := verr.WithHint("hint"); result != verr {
		t.Error("WithHint should return the same instance")
	}
}

func TestCapacityError(t *testing.T) {
	err := NewCapacityError("leakybucket", 5, 4)

	want := "leakybucket: cannot acquire 5 units, capacity is 4"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Error("CapacityError should wrap ErrCapacityExceeded")
	}
	if !IsCapacityError(NewOperationError("x", "y", err)) {
		t.Error("IsCapacityError should see through OperationError")
	}
}

func TestOperationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *OperationError
		want string
	}{
		{
			name: "without context",
			err: &OperationError{
				Module:    "cooperative",
				Operation: "AcquireN",
				Cause:     errors.New("queue closed"),
			},
			want: "cooperative.AcquireN failed: queue closed",
		},
		{
			name: "with context",
			err: &OperationError{
				Module:    "cooperative",
				Operation: "AcquireN",
				Cause:     ErrTimeout,
				Context:   "weight=2",
			},
			want: "cooperative.AcquireN failed: operation timed out (weight=2)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOperationError_WithContext(t *testing.T) {
	err := NewOperationError("test", "op", errors.New("err")).
		WithContext("additional context")

	if err.Context != "additional context" {
		t.Errorf("Context = %q, want %q", err.Context, "additional context")
	}
	if result := err.WithContext("new context"); result != err {
		t.Error("WithContext should return the same instance")
	}
}

func TestFromContext(t *testing.T) {
	t.Run("deadline", func(t *testing.T) {
		err := FromContext("gcra", "AcquireN", context.DeadlineExceeded)
		if !errors.Is(err, ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected context.DeadlineExceeded, got %v", err)
		}
		if errors.Is(err, ErrCanceled) {
			t.Error("deadline should not be classified as cancellation")
		}
	})

	t.Run("canceled", func(t *testing.T) {
		err := FromContext("gcra", "AcquireN", context.Canceled)
		if !errors.Is(err, ErrCanceled) || !errors.Is(err, context.Canceled) {
			t.Errorf("expected cancellation, got %v", err)
		}
		if !strings.Contains(err.Error(), "gcra.AcquireN") {
			t.Errorf("message should name the operation, got %q", err.Error())
		}
	})

	t.Run("passthrough", func(t *testing.T) {
		if FromContext("m", "op", nil) != nil {
			t.Error("nil should stay nil")
		}
		other := errors.New("other")
		if FromContext("m", "op", other) != other {
			t.Error("non-context errors should pass through unchanged")
		}
	})
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		permanent bool
	}{
		{"timeout", ErrTimeout, true, false},
		{"canceled", ErrCanceled, true, false},
		{"wrapped timeout", FromContext("m", "op", context.DeadlineExceeded), true, false},
		{"capacity", NewCapacityError("m", 2, 1), false, true},
		{"validation", NewValidationError("m", "f", 0, "bad"), false, true},
		{"closed", ErrClosed, false, false},
		{"nil", nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.retryable)
			}
			if got := IsPermanent(tt.err); got != tt.permanent {
				t.Errorf("IsPermanent() = %v, want %v", got, tt.permanent)
			}
		})
	}
}

func TestIsValidationError(t *testing.T) {
	if !IsValidationError(&OperationError{Cause: NewValidationError("m", "f", 0, "r")}) {
		t.Error("wrapped validation error should be detected")
	}
	if IsValidationError(ErrTimeout) || IsValidationError(nil) {
		t.Error("non-validation errors should not be detected")
	}
}
