package scenario

import (
	"context"
	"sync"
	"time"

	"github.com/vnykmshr/goshape/pkg/clock"
	gfcontext "github.com/vnykmshr/goshape/pkg/common/context"
	gferrors "github.com/vnykmshr/goshape/pkg/common/errors"
	"github.com/vnykmshr/goshape/pkg/diagnostics"
	"github.com/vnykmshr/goshape/pkg/metrics"
	"github.com/vnykmshr/goshape/pkg/ratelimit"
	"github.com/vnykmshr/goshape/pkg/ratelimit/cooperative"
	"github.com/vnykmshr/goshape/pkg/ratelimit/shaping"
)

// Options configures a real-time run.
type Options struct {
	// Metrics receives shaping and coordinator metrics. Nil disables them.
	Metrics *metrics.Registry

	// Sink receives snapshots on the scenario's diagnostics schedule and
	// once more when the run finishes. Nil disables diagnostics.
	Sink diagnostics.Sink
}

// DefaultDiagnostics is the snapshot schedule used when a scenario sets none.
const DefaultDiagnostics = "@every 1s"

type acquireFunc func(ctx context.Context, step Step, fn func(ctx context.Context) error) error

// Run plays the scenario in real time. Every request is issued from its own
// goroutine at its arrival offset and bounded by the scenario timeout. In
// cooperative mode requests wait in the coordinator's FIFO queue; in sync
// mode each one sleeps on the engine independently. Run stops issuing
// requests once ctx is done and returns the context error, marking the
// requests that were never issued.
func Run(ctx context.Context, s *Scenario, opts Options) (*Result, error) {
	cfg, err := s.Config()
	if err != nil {
		return nil, err
	}

	engine, err := ratelimit.New(s.Algorithm, cfg)
	if err != nil {
		return nil, err
	}

	var (
		shaper    shaping.Shaper    = engine
		inspector shaping.Inspector = engine
	)
	if opts.Metrics != nil {
		instrumented := shaping.WithMetrics(engine, s.Name, opts.Metrics)
		shaper, inspector = instrumented, instrumented
	}

	var (
		acquire acquireFunc
		coord   *cooperative.Coordinator
	)
	switch s.Mode {
	case ModeCooperative:
		coord, err = cooperative.NewSafe(cooperative.Config{
			Shaper:        shaper,
			MaxConcurrent: s.MaxConcurrent,
			Name:          s.Name,
			Metrics:       opts.Metrics,
		})
		if err != nil {
			return nil, err
		}
		defer coord.Close()

		inspector = coord
		acquire = func(ctx context.Context, step Step, fn func(ctx context.Context) error) error {
			return coord.Do(ctx, fn, shaping.WithWeight(step.Weight))
		}
	default:
		acquire = func(ctx context.Context, step Step, fn func(ctx context.Context) error) error {
			return shaping.Do(ctx, shaper, fn, shaping.WithWeight(step.Weight))
		}
	}

	if opts.Sink != nil {
		reporter, err := diagnostics.NewReporter(diagnostics.Config{Sink: opts.Sink, SkipIfStillRunning: true})
		if err != nil {
			return nil, err
		}
		spec := s.Diagnostics
		if spec == "" {
			spec = DefaultDiagnostics
		}
		if err := reporter.Watch(s.Name, spec, inspector); err != nil {
			return nil, err
		}
		reporter.Start()
		defer func() {
			<-reporter.Stop().Done()
			reporter.Report()
		}()
	}

	steps := s.Steps()
	result := &Result{
		Name:      s.Name,
		Algorithm: engine.Algorithm(),
		Mode:      s.Mode,
		Steps:     make([]StepResult, len(steps)),
	}

	var (
		wg      sync.WaitGroup
		sleeper clock.System
		start   = time.Now()
		timeout = time.Duration(s.Timeout)
		runErr  error
	)

	for i, step := range steps {
		if err := sleeper.Sleep(ctx, time.Until(start.Add(step.Arrival))); err != nil {
			runErr = err
			failed := gferrors.FromContext(module, "Run", err)
			for _, rest := range steps[i:] {
				at := time.Since(start)
				result.Steps[rest.Index] = newStepResult(rest, at, at, failed)
			}
			break
		}

		wg.Add(1)
		go func(step Step) {
			defer wg.Done()
			result.Steps[step.Index] = runStep(ctx, step, start, timeout, acquire)
		}(step)
	}
	wg.Wait()

	result.Elapsed = time.Since(start)
	result.Final = inspector.Snapshot()
	if coord != nil {
		stats := coord.Stats()
		result.Coordinator = &stats
	}
	return result, runErr
}

func runStep(ctx context.Context, step Step, start time.Time, timeout time.Duration, acquire acquireFunc) StepResult {
	arrival := time.Since(start)

	reqCtx, cancel := gfcontext.WithTimeoutOrCancel(ctx, timeout)
	defer cancel()

	var admitted time.Duration
	err := acquire(reqCtx, step, func(context.Context) error {
		admitted = time.Since(start)
		// The hold runs past the acquisition timeout, which only bounds the wait.
		_ = clock.System{}.Sleep(ctx, step.Hold)
		return nil
	})
	if err != nil {
		return newStepResult(step, time.Since(start), arrival, err)
	}
	return newStepResult(step, admitted, arrival, nil)
}
