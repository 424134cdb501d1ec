/*
Package cooperative provides a FIFO wakeup coordinator for shaping engines.

A Coordinator queues waiters in arrival order and admits them against any
shaping.Shaper. One dispatcher goroutine owns the queue. Four kinds of event
reach it through a single select:

  - a new submission
  - the timer armed for the moment the head should conform
  - a completion notification sent with Notify
  - a cancellation or timeout of a queued waiter

Timer fires and notifications are retry hints. Whichever arrives, the
dispatcher re-runs the engine's admission check for the queue head only.
When the check passes the head is resolved exactly once and the next head
is checked; when it fails the timer is re-armed. Two events arriving
together therefore cause two checks, never two admissions.

Basic usage:

	shaper := leakybucket.New(10, time.Second)
	c := cooperative.New(cooperative.Config{Shaper: shaper, MaxConcurrent: 4})
	defer c.Close()

	err := c.Do(ctx, func(ctx context.Context) error {
		return callUpstream(ctx)
	})

A waiter whose context ends while queued is removed without touching the
engine, so it never consumes capacity, and the head position passes to the
next waiter. A waiter that was admitted before its cancellation reached the
dispatcher keeps its admission. Close fails every queued waiter with
ErrClosed.

The queue is strictly FIFO: a heavy request at the head holds back lighter
requests behind it even when they would fit.
*/
package cooperative
