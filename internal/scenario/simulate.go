package scenario

import (
	"context"
	"time"

	"github.com/vnykmshr/goshape/pkg/clock"
	gferrors "github.com/vnykmshr/goshape/pkg/common/errors"
	"github.com/vnykmshr/goshape/pkg/metrics"
	"github.com/vnykmshr/goshape/pkg/ratelimit"
	"github.com/vnykmshr/goshape/pkg/ratelimit/cooperative"
	"github.com/vnykmshr/goshape/pkg/ratelimit/shaping"
)

const module = "scenario"

// OutcomeAdmitted marks a request that was admitted. Failed requests carry
// the reason reported by metrics.ReasonFor.
const OutcomeAdmitted = "admitted"

// Epoch is the virtual start time of every simulation.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// StepResult is what happened to one request.
type StepResult struct {
	Step

	// At is the offset from the start of the run at which the request was
	// admitted or failed.
	At time.Duration

	// Wait is the time between arrival and At.
	Wait time.Duration

	Outcome string
	Err     error
}

// Admitted reports whether the request was admitted.
func (r StepResult) Admitted() bool {
	return r.Err == nil
}

// Result describes a finished scenario run.
type Result struct {
	Name      string
	Algorithm string
	Mode      string
	Virtual   bool
	Elapsed   time.Duration
	Steps     []StepResult

	// Final is the shaper state after the last request.
	Final shaping.Snapshot

	// Coordinator is set when the scenario ran in cooperative mode.
	Coordinator *cooperative.Stats
}

func newStepResult(step Step, at time.Duration, arrival time.Duration, err error) StepResult {
	r := StepResult{Step: step, At: at, Wait: at - arrival, Err: err, Outcome: OutcomeAdmitted}
	if err != nil {
		r.Outcome = metrics.ReasonFor(err)
	}
	return r
}

// Simulate plays the scenario in virtual time. Requests are served one at a
// time in arrival order, so a request that arrives while an earlier one is
// still waiting queues behind it. The outcome is fully deterministic.
// Holds and MaxConcurrent do not apply.
func Simulate(s *Scenario) (*Result, error) {
	cfg, err := s.Config()
	if err != nil {
		return nil, err
	}

	m := clock.NewManual(Epoch)
	cfg.Clock, cfg.Sleeper = m, m

	engine, err := ratelimit.New(s.Algorithm, cfg)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Name:      s.Name,
		Algorithm: engine.Algorithm(),
		Mode:      s.Mode,
		Virtual:   true,
	}

	timeout := time.Duration(s.Timeout)
	for _, step := range s.Steps() {
		arrival := Epoch.Add(step.Arrival)
		if m.Now().Before(arrival) {
			m.Set(arrival)
		}

		at, err := simulateStep(m, engine, step.Weight, arrival, timeout)
		result.Steps = append(result.Steps, newStepResult(step, at.Sub(Epoch), step.Arrival, err))
	}

	result.Elapsed = m.Now().Sub(Epoch)
	result.Final = engine.Snapshot()
	return result, nil
}

func simulateStep(m *clock.Manual, engine ratelimit.Engine, n int, arrival time.Time, timeout time.Duration) (time.Time, error) {
	if timeout <= 0 {
		err := engine.AcquireN(context.Background(), n)
		return m.Now(), err
	}

	deadline := arrival.Add(timeout)
	timedOut := gferrors.FromContext(module, "Simulate", context.DeadlineExceeded)
	for {
		// Queued behind earlier requests past its own deadline.
		if m.Now().After(deadline) {
			return deadline, timedOut
		}

		wait, err := engine.TryAcquireN(n)
		if err != nil {
			return m.Now(), err
		}
		if wait == 0 {
			return m.Now(), nil
		}

		if m.Now().Add(wait).After(deadline) {
			m.Set(deadline)
			return deadline, timedOut
		}
		m.Advance(wait)
	}
}
