package concurrency

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain enables goroutine leak detection for all tests in this package.
// Waiters that give up must not leave goroutines parked on the limiter.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
