/*
Package leakybucket provides a leaky bucket traffic shaper.

The bucket starts empty. Each admitted unit raises its level by one and the
level drains continuously at capacity/period units per second. A request of
weight n is admitted when level+n fits the capacity; otherwise the caller
sleeps for exactly as long as it takes the overflow to drain and tries again.

Basic usage:

	limiter := leakybucket.New(4, 2*time.Second) // 2 units/sec, burst of 4
	if err := limiter.AcquireN(ctx, 1); err != nil {
		return err
	}

Requests are never dropped. A weight larger than the capacity can never fit
and fails immediately with a CapacityError. Use TryAcquireN for a
non-blocking decision that reports the required wait instead of sleeping.

Introspection:

	limiter.Level()           // occupied units
	limiter.Available()       // headroom
	limiter.CapacityInfo(3)   // does a weight of 3 fit, and if not by how much
	limiter.Snapshot()        // everything above plus the config

All methods are safe for concurrent use. Concurrent callers are not served
in any particular order; use the cooperative package for FIFO admission.
*/
package leakybucket
