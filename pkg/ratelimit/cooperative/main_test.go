package cooperative

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain enables goroutine leak detection for all tests in this package.
// Every Coordinator must stop its dispatcher on Close.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
