package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/vnykmshr/goshape/internal/scenario"
	"github.com/vnykmshr/goshape/pkg/ratelimit/shaping"
)

// RequestJSON is one request of a ResultJSON. Durations are milliseconds.
type RequestJSON struct {
	Index     int     `json:"index"`
	Weight    int     `json:"weight"`
	ArrivalMs float64 `json:"arrival_ms"`
	AtMs      float64 `json:"at_ms"`
	WaitMs    float64 `json:"wait_ms"`
	Outcome   string  `json:"outcome"`
	Error     string  `json:"error,omitempty"`
}

// WaitsJSON is the wait distribution in milliseconds.
type WaitsJSON struct {
	MinMs  float64 `json:"min_ms"`
	MeanMs float64 `json:"mean_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P90Ms  float64 `json:"p90_ms"`
	P99Ms  float64 `json:"p99_ms"`
	MaxMs  float64 `json:"max_ms"`
}

// SummaryJSON is the JSON form of a Summary.
type SummaryJSON struct {
	Count    int            `json:"count"`
	Admitted int            `json:"admitted"`
	Outcomes map[string]int `json:"outcomes"`
	Waits    *WaitsJSON     `json:"waits,omitempty"`
}

// SnapshotJSON is the JSON form of a shaping.Snapshot.
type SnapshotJSON struct {
	Algorithm string  `json:"algorithm"`
	Capacity  float64 `json:"capacity"`
	PeriodMs  float64 `json:"period_ms"`
	Level     float64 `json:"level"`
	Available float64 `json:"available"`
	BacklogMs float64 `json:"backlog_ms,omitempty"`
}

// CoordinatorJSON is the JSON form of cooperative.Stats.
type CoordinatorJSON struct {
	Submitted         uint64 `json:"submitted"`
	Admitted          uint64 `json:"admitted"`
	Woken             uint64 `json:"woken"`
	TimedOut          uint64 `json:"timed_out"`
	Canceled          uint64 `json:"canceled"`
	Rejected          uint64 `json:"rejected"`
	Closed            uint64 `json:"closed"`
	SubmitWakeups     uint64 `json:"submit_wakeups"`
	TimerWakeups      uint64 `json:"timer_wakeups"`
	CompletionWakeups uint64 `json:"completion_wakeups"`
	CancelWakeups     uint64 `json:"cancel_wakeups"`
}

// ResultJSON is the machine-readable form of a scenario run.
type ResultJSON struct {
	Name        string           `json:"name"`
	Algorithm   string           `json:"algorithm"`
	Mode        string           `json:"mode"`
	Virtual     bool             `json:"virtual"`
	ElapsedMs   float64          `json:"elapsed_ms"`
	Requests    []RequestJSON    `json:"requests"`
	Summary     SummaryJSON      `json:"summary"`
	Final       SnapshotJSON     `json:"final"`
	Coordinator *CoordinatorJSON `json:"coordinator,omitempty"`
}

// MismatchJSON is one disagreement in a ComparisonJSON.
type MismatchJSON struct {
	Sequence      int     `json:"sequence"`
	Step          int     `json:"step"`
	Weight        int     `json:"weight"`
	AtMs          float64 `json:"at_ms"`
	VirtualWaitMs float64 `json:"virtual_wait_ms"`
	LeakyWaitMs   float64 `json:"leaky_wait_ms"`
	VirtualError  string  `json:"virtual_error,omitempty"`
	LeakyError    string  `json:"leaky_error,omitempty"`
	BacklogMs     float64 `json:"backlog_ms"`
	LevelMs       float64 `json:"level_ms"`
}

// ComparisonJSON is the machine-readable form of a GCRA differential run.
type ComparisonJSON struct {
	Capacity   float64        `json:"capacity"`
	PeriodMs   float64        `json:"period_ms"`
	Sequences  int            `json:"sequences"`
	Steps      int            `json:"steps"`
	Seed       int64          `json:"seed"`
	Decisions  int            `json:"decisions"`
	Admitted   int            `json:"admitted"`
	Refused    int            `json:"refused"`
	Equivalent bool           `json:"equivalent"`
	Mismatches []MismatchJSON `json:"mismatches"`
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// NewResultJSON converts a run result.
func NewResultJSON(r *scenario.Result) ResultJSON {
	out := ResultJSON{
		Name:      r.Name,
		Algorithm: r.Algorithm,
		Mode:      r.Mode,
		Virtual:   r.Virtual,
		ElapsedMs: ms(r.Elapsed),
		Requests:  make([]RequestJSON, 0, len(r.Steps)),
		Summary:   newSummaryJSON(Summarize(r.Steps)),
		Final:     NewSnapshotJSON(r.Final),
	}

	for _, step := range r.Steps {
		req := RequestJSON{
			Index:     step.Index,
			Weight:    step.Weight,
			ArrivalMs: ms(step.Arrival),
			AtMs:      ms(step.At),
			WaitMs:    ms(step.Wait),
			Outcome:   step.Outcome,
		}
		if step.Err != nil {
			req.Error = step.Err.Error()
		}
		out.Requests = append(out.Requests, req)
	}

	if c := r.Coordinator; c != nil {
		out.Coordinator = &CoordinatorJSON{
			Submitted:         c.Submitted,
			Admitted:          c.Admitted,
			Woken:             c.Woken,
			TimedOut:          c.TimedOut,
			Canceled:          c.Canceled,
			Rejected:          c.Rejected,
			Closed:            c.Closed,
			SubmitWakeups:     c.SubmitWakeups,
			TimerWakeups:      c.TimerWakeups,
			CompletionWakeups: c.CompletionWakeups,
			CancelWakeups:     c.CancelWakeups,
		}
	}
	return out
}

func newSummaryJSON(s Summary) SummaryJSON {
	out := SummaryJSON{Count: s.Count, Admitted: s.Admitted, Outcomes: s.Outcomes}
	if s.Admitted > 0 {
		out.Waits = &WaitsJSON{
			MinMs:  ms(s.Waits.Min),
			MeanMs: ms(s.Waits.Mean),
			P50Ms:  ms(s.Waits.P50),
			P90Ms:  ms(s.Waits.P90),
			P99Ms:  ms(s.Waits.P99),
			MaxMs:  ms(s.Waits.Max),
		}
	}
	return out
}

// NewSnapshotJSON converts a snapshot. BacklogMs is TAT − At for GCRA
// virtual scheduling and omitted otherwise.
func NewSnapshotJSON(snap shaping.Snapshot) SnapshotJSON {
	out := SnapshotJSON{
		Algorithm: snap.Algorithm,
		Capacity:  snap.Capacity,
		PeriodMs:  ms(snap.Period),
		Level:     snap.Level,
		Available: snap.Available,
	}
	if !snap.TAT.IsZero() && snap.TAT.After(snap.At) {
		out.BacklogMs = ms(snap.TAT.Sub(snap.At))
	}
	return out
}

// NewComparisonJSON converts a comparison.
func NewComparisonJSON(c *scenario.Comparison) ComparisonJSON {
	out := ComparisonJSON{
		Capacity:   c.Config.Capacity,
		PeriodMs:   ms(c.Config.Period),
		Sequences:  c.Config.Sequences,
		Steps:      c.Config.Steps,
		Seed:       c.Config.Seed,
		Decisions:  c.Decisions,
		Admitted:   c.Admitted,
		Refused:    c.Refused,
		Equivalent: c.Equivalent(),
		Mismatches: make([]MismatchJSON, 0, len(c.Mismatches)),
	}
	for _, m := range c.Mismatches {
		out.Mismatches = append(out.Mismatches, MismatchJSON{
			Sequence:      m.Sequence,
			Step:          m.Step,
			Weight:        m.Weight,
			AtMs:          ms(m.At),
			VirtualWaitMs: ms(m.VirtualWait),
			LeakyWaitMs:   ms(m.LeakyWait),
			VirtualError:  m.VirtualErr,
			LeakyError:    m.LeakyErr,
			BacklogMs:     ms(m.Backlog),
			LevelMs:       ms(m.Level),
		})
	}
	return out
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
