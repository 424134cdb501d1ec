package cooperative

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vnykmshr/goshape/pkg/clock"
	gfcontext "github.com/vnykmshr/goshape/pkg/common/context"
	gferrors "github.com/vnykmshr/goshape/pkg/common/errors"
	"github.com/vnykmshr/goshape/pkg/common/validation"
	"github.com/vnykmshr/goshape/pkg/metrics"
	"github.com/vnykmshr/goshape/pkg/ratelimit/concurrency"
	"github.com/vnykmshr/goshape/pkg/ratelimit/shaping"
)

type waiterState int

const (
	stateQueued waiterState = iota
	stateWoken
	stateResolved
	stateCancelled
)

// waiter is owned by the dispatcher goroutine except for done, which the
// dispatcher fills exactly once. ctx is the caller's context; the
// dispatcher checks it before every admission attempt.
type waiter struct {
	ctx        context.Context
	n          int
	enqueuedAt time.Time
	state      waiterState
	waited     bool
	done       chan error
}

type cancelRequest struct {
	w   *waiter
	err error
}

// Coordinator admits waiters against a shaper in FIFO order. A single
// dispatcher goroutine owns the queue and is the only caller of the
// shaper's TryAcquireN, so timer fires, completion notifications,
// cancellations and new submissions are all serialized through it.
type Coordinator struct {
	shaper   shaping.Shaper
	clock    clock.Clock
	name     string
	gate     concurrency.Limiter
	registry *metrics.Registry

	submit  chan *waiter
	cancel  chan cancelRequest
	notify  chan struct{}
	closing chan struct{}
	stopped chan struct{}

	closeOnce sync.Once

	// dispatcher-owned
	queue []*waiter
	timer *time.Timer

	queued   atomic.Int64
	inFlight atomic.Int64

	submitted atomic.Uint64
	admitted  atomic.Uint64
	woken     atomic.Uint64
	timedOut  atomic.Uint64
	canceled  atomic.Uint64
	rejected  atomic.Uint64
	closed    atomic.Uint64

	submitWakeups     atomic.Uint64
	timerWakeups      atomic.Uint64
	completionWakeups atomic.Uint64
	cancelWakeups     atomic.Uint64
}

// New creates a Coordinator and starts its dispatcher.
// It panics if the configuration is invalid.
func New(config Config) *Coordinator {
	c, err := NewSafe(config)
	if err != nil {
		panic(err.Error())
	}
	return c
}

// NewSafe creates a Coordinator with validation that returns an error
// instead of panicking. Call Close to stop the dispatcher.
func NewSafe(config Config) (*Coordinator, error) {
	if config.Shaper == nil {
		return nil, gferrors.NewValidationError(module, "shaper", nil, "shaper is required").
			WithHint("build one with leakybucket, bucket or gcra")
	}
	if err := validation.ValidateNonNegative(module, "max_concurrent", config.MaxConcurrent); err != nil {
		return nil, err
	}
	if config.Name == "" {
		config.Name = "default"
	}

	c := &Coordinator{
		shaper:   config.Shaper,
		clock:    config.Shaper.Config().WithDefaults().Clock,
		name:     config.Name,
		registry: config.Metrics,
		submit:   make(chan *waiter),
		cancel:   make(chan cancelRequest),
		notify:   make(chan struct{}, 1),
		closing:  make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	if config.MaxConcurrent > 0 {
		c.gate = concurrency.New(config.MaxConcurrent)
	}

	go c.run()
	return c, nil
}

// Acquire is AcquireN(ctx, 1).
func (c *Coordinator) Acquire(ctx context.Context) error {
	return c.AcquireN(ctx, 1)
}

// AcquireN queues a request for n units and blocks until the dispatcher
// admits it, ctx ends or the coordinator closes. A request that ends with
// an error never consumed capacity, and a request is only admitted while
// its ctx is still live.
func (c *Coordinator) AcquireN(ctx context.Context, n int) error {
	needed, err := shaping.CheckWeight(module, n, c.shaper.Config().Capacity)
	if err != nil {
		c.rejected.Add(1)
		return err
	}
	if !needed {
		return nil
	}

	select {
	case <-c.stopped:
		return c.closedError()
	default:
	}
	if err := ctx.Err(); err != nil {
		return c.contextError(err)
	}

	w := &waiter{ctx: ctx, n: n, enqueuedAt: c.clock.Now(), done: make(chan error, 1)}
	select {
	case c.submit <- w:
	case <-c.stopped:
		return c.closedError()
	case <-ctx.Done():
		return c.contextError(ctx.Err())
	}

	select {
	case err := <-w.done:
		return err
	case <-ctx.Done():
		select {
		case c.cancel <- cancelRequest{w: w, err: ctx.Err()}:
		case <-c.stopped:
		}
		// Either the cancellation removed us, or the dispatcher resolved us
		// before ctx ended.
		return <-w.done
	}
}

// AcquireTimeout is AcquireN bounded by timeout. A non-positive timeout
// waits as long as ctx allows.
func (c *Coordinator) AcquireTimeout(ctx context.Context, n int, timeout time.Duration) error {
	ctx, cancel := gfcontext.WithTimeoutOrCancel(ctx, timeout)
	defer cancel()
	return c.AcquireN(ctx, n)
}

// Notify tells the dispatcher that capacity may have freed up. Calls are
// coalesced and never block.
func (c *Coordinator) Notify() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Do acquires the requested units, runs fn under the MaxConcurrent bound
// and reports completion with Notify.
func (c *Coordinator) Do(ctx context.Context, fn func(ctx context.Context) error, opts ...shaping.Option) error {
	if c.gate != nil {
		if err := c.gate.Wait(ctx); err != nil {
			return err
		}
		defer c.gate.Release()
	}
	defer c.Notify()

	return shaping.Do(ctx, c, func(ctx context.Context) error {
		c.trackInFlight(1)
		defer c.trackInFlight(-1)
		return fn(ctx)
	}, opts...)
}

// Len returns the number of queued waiters.
func (c *Coordinator) Len() int {
	return int(c.queued.Load())
}

// Stats returns a snapshot of the coordinator's counters.
func (c *Coordinator) Stats() Stats {
	return Stats{
		Queued:            int(c.queued.Load()),
		InFlight:          int(c.inFlight.Load()),
		Submitted:         c.submitted.Load(),
		Admitted:          c.admitted.Load(),
		Woken:             c.woken.Load(),
		TimedOut:          c.timedOut.Load(),
		Canceled:          c.canceled.Load(),
		Rejected:          c.rejected.Load(),
		Closed:            c.closed.Load(),
		SubmitWakeups:     c.submitWakeups.Load(),
		TimerWakeups:      c.timerWakeups.Load(),
		CompletionWakeups: c.completionWakeups.Load(),
		CancelWakeups:     c.cancelWakeups.Load(),
	}
}

// Shaper returns the shaper making admission decisions.
func (c *Coordinator) Shaper() shaping.Shaper {
	return c.shaper
}

// Snapshot returns the shaper's snapshot when it is an Inspector.
func (c *Coordinator) Snapshot() shaping.Snapshot {
	if in, ok := c.shaper.(shaping.Inspector); ok {
		return in.Snapshot()
	}
	cfg := c.shaper.Config()
	return shaping.Snapshot{
		Algorithm: c.shaper.Algorithm(),
		Capacity:  cfg.Capacity,
		Period:    cfg.Period,
		At:        c.clock.Now(),
	}
}

// Close stops the dispatcher and fails every queued waiter with ErrClosed.
// It is safe to call more than once.
func (c *Coordinator) Close() error {
	c.closeOnce.Do(func() {
		close(c.closing)
	})
	<-c.stopped
	return nil
}

func (c *Coordinator) closedError() error {
	return gferrors.NewOperationError(module, "AcquireN", gferrors.ErrClosed).WithContext(c.name)
}

func (c *Coordinator) contextError(err error) error {
	return gferrors.FromContext(module, "AcquireN", err)
}

func (c *Coordinator) trackInFlight(delta int64) {
	v := c.inFlight.Add(delta)
	if c.registry != nil {
		c.registry.CoordinatorInFlight.WithLabelValues(c.name).Set(float64(v))
	}
}

// run is the dispatcher loop. It is the only goroutine touching queue,
// timer and waiter state.
func (c *Coordinator) run() {
	defer close(c.stopped)

	var timerC <-chan time.Time
	for {
		var source string
		select {
		case w := <-c.submit:
			c.queue = append(c.queue, w)
			c.publishQueued()
			c.submitted.Add(1)
			if len(c.queue) > 1 {
				// Someone is already ahead; the head's own events will reach us.
				w.waited = true
				continue
			}
			source = metrics.SourceSubmit
		case <-timerC:
			timerC = nil
			source = metrics.SourceTimer
		case <-c.notify:
			source = metrics.SourceCompletion
		case req := <-c.cancel:
			if !c.dequeue(req) {
				continue
			}
			source = metrics.SourceCancel
		case <-c.closing:
			c.stopTimer()
			c.failAll()
			return
		}

		c.countWakeup(source)
		timerC = c.wake()
	}
}

// wake admits queue heads for as long as the shaper conforms, then arms the
// timer for the head that did not. It returns the timer channel to select
// on, or nil when the queue is empty.
func (c *Coordinator) wake() <-chan time.Time {
	defer c.publishQueued()

	for len(c.queue) > 0 {
		head := c.queue[0]
		if err := head.ctx.Err(); err != nil {
			// Gave up while queued; its cancel request may still be in flight.
			c.pop()
			c.abandon(head, err)
			continue
		}

		wait, err := c.shaper.TryAcquireN(head.n)
		if err != nil {
			c.pop()
			c.rejected.Add(1)
			c.resolve(head, err, "rejected")
			continue
		}
		if wait > 0 {
			head.waited = true
			c.stopTimer()
			c.timer = time.NewTimer(wait)
			return c.timer.C
		}

		c.pop()
		head.state = stateWoken
		c.admitted.Add(1)
		if head.waited {
			c.woken.Add(1)
		}
		if c.registry != nil {
			c.registry.CoordinatorWaitTime.WithLabelValues(c.name).
				Observe(c.clock.Now().Sub(head.enqueuedAt).Seconds())
		}
		c.resolve(head, nil, "admitted")
	}

	c.stopTimer()
	return nil
}

// dequeue removes a cancelled waiter. It reports whether the waiter was the
// head, whose position must now pass to the next waiter. A waiter that is no
// longer queued was resolved first and keeps its result.
func (c *Coordinator) dequeue(req cancelRequest) bool {
	for i, w := range c.queue {
		if w != req.w {
			continue
		}
		c.queue = append(c.queue[:i], c.queue[i+1:]...)
		c.publishQueued()
		c.abandon(w, req.err)
		return i == 0
	}
	return false
}

// abandon fails a waiter whose context ended while it was queued.
func (c *Coordinator) abandon(w *waiter, cause error) {
	err := c.contextError(cause)
	outcome := metrics.ReasonCanceled
	if errors.Is(err, gferrors.ErrTimeout) {
		c.timedOut.Add(1)
		outcome = metrics.ReasonTimeout
	} else {
		c.canceled.Add(1)
	}
	c.deliver(w, stateCancelled, err, outcome)
}

func (c *Coordinator) pop() {
	c.queue[0] = nil
	c.queue = c.queue[1:]
}

// resolve delivers the outcome of an admission check.
func (c *Coordinator) resolve(w *waiter, err error, outcome string) {
	c.deliver(w, stateResolved, err, outcome)
}

// deliver moves w to a terminal state and fires its single-fire signal.
// A waiter already in a terminal state is left alone.
func (c *Coordinator) deliver(w *waiter, terminal waiterState, err error, outcome string) {
	if w.state == stateResolved || w.state == stateCancelled {
		return
	}
	w.state = terminal
	w.done <- err
	if c.registry != nil {
		c.registry.CoordinatorResolved.WithLabelValues(c.name, outcome).Inc()
	}
}

func (c *Coordinator) failAll() {
	for _, w := range c.queue {
		c.closed.Add(1)
		c.deliver(w, stateCancelled, c.closedError(), "closed")
	}
	c.queue = nil
	c.publishQueued()
}

func (c *Coordinator) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Coordinator) publishQueued() {
	c.queued.Store(int64(len(c.queue)))
	if c.registry != nil {
		c.registry.CoordinatorQueued.WithLabelValues(c.name).Set(float64(len(c.queue)))
	}
}

func (c *Coordinator) countWakeup(source string) {
	switch source {
	case metrics.SourceSubmit:
		c.submitWakeups.Add(1)
	case metrics.SourceTimer:
		c.timerWakeups.Add(1)
	case metrics.SourceCompletion:
		c.completionWakeups.Add(1)
	case metrics.SourceCancel:
		c.cancelWakeups.Add(1)
	}
	if c.registry != nil {
		c.registry.CoordinatorWakeups.WithLabelValues(c.name, source).Inc()
	}
}
