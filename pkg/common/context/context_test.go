package context

import (
	"context"
	"testing"
	"time"
)

func TestWithTimeoutOrCancel(t *testing.T) {
	ctx, cancel := WithTimeoutOrCancel(context.Background(), 10*time.Millisecond)
	defer cancel()

	<-ctx.Done()
	if !IsTimedOut(ctx) {
		t.Errorf("expected deadline exceeded, got %v", ctx.Err())
	}
}

func TestWithTimeoutOrCancelUnbounded(t *testing.T) {
	ctx, cancel := WithTimeoutOrCancel(context.Background(), 0)

	if _, ok := ctx.Deadline(); ok {
		t.Error("zero timeout should not set a deadline")
	}
	if IsCanceled(ctx) {
		t.Error("context should not be canceled yet")
	}

	cancel()
	if !IsCanceled(ctx) {
		t.Error("context should be canceled")
	}
	if IsTimedOut(ctx) {
		t.Error("explicit cancel is not a timeout")
	}
}
