/*
Package concurrency provides a FIFO concurrency limiter.

A concurrency limiter bounds the number of operations in flight. It is the
gate behind the cooperative coordinator's MaxConcurrent option, and can be
used on its own:

	limiter, err := concurrency.NewSafe(10) // Allow 10 concurrent operations
	if err != nil {
		log.Fatal(err)
	}

	if err := limiter.Wait(ctx); err != nil {
		return err
	}
	defer limiter.Release()

Blocked callers are granted permits strictly in arrival order. A waiter that
needs more permits than are free holds back everyone queued behind it, and
the non-blocking Acquire never overtakes a queued waiter. A waiter whose
context ends leaves the queue without keeping any permits.
*/
package concurrency
