package bucket_test

import (
	"context"
	"fmt"
	"time"

	"github.com/vnykmshr/goshape/pkg/clock"
	"github.com/vnykmshr/goshape/pkg/ratelimit/bucket"
	"github.com/vnykmshr/goshape/pkg/ratelimit/shaping"
)

// Example demonstrates burst admission followed by shaping delay.
func Example() {
	m := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	start := m.Now()

	limiter := bucket.NewWithConfig(shaping.Config{
		Capacity: 4,
		Period:   2 * time.Second,
		Clock:    m,
	})

	for i := 1; i <= 6; i++ {
		if err := limiter.Acquire(context.Background()); err != nil {
			fmt.Println("error:", err)
			return
		}
		fmt.Printf("request %d admitted at %v\n", i, m.Now().Sub(start))
	}
	// Output:
	// request 1 admitted at 0s
	// request 2 admitted at 0s
	// request 3 admitted at 0s
	// request 4 admitted at 0s
	// request 5 admitted at 500ms
	// request 6 admitted at 1s
}

// Example_tryAcquire shows a non-blocking admission decision.
func Example_tryAcquire() {
	m := clock.NewManual(time.Time{})
	limiter := bucket.NewWithConfig(shaping.Config{Capacity: 2, Period: time.Second, Clock: m})

	for i := 0; i < 3; i++ {
		wait, err := limiter.TryAcquireN(1)
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		if wait == 0 {
			fmt.Println("admitted")
		} else {
			fmt.Println("retry in", wait)
		}
	}
	// Output:
	// admitted
	// admitted
	// retry in 500ms
}
