// Package report summarizes scenario results and renders them for the
// terminal or as JSON.
package report

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/vnykmshr/goshape/internal/scenario"
)

// Histogram bounds, in microseconds.
const (
	histogramMin     = 1
	histogramMax     = int64(time.Hour / time.Microsecond)
	histogramSigFigs = 3
)

// Waits describes the distribution of the time admitted requests waited.
type Waits struct {
	Min  time.Duration
	Mean time.Duration
	P50  time.Duration
	P90  time.Duration
	P99  time.Duration
	Max  time.Duration
}

// Summary aggregates the steps of a run.
type Summary struct {
	Count    int
	Admitted int

	// Outcomes counts requests by outcome, admitted included.
	Outcomes map[string]int

	// Waits covers admitted requests only. It is zero when none were.
	Waits Waits
}

// Summarize computes the summary of steps.
func Summarize(steps []scenario.StepResult) Summary {
	s := Summary{
		Count:    len(steps),
		Outcomes: make(map[string]int),
	}

	hist := hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs)
	for _, step := range steps {
		s.Outcomes[step.Outcome]++
		if !step.Admitted() {
			continue
		}
		s.Admitted++

		micros := step.Wait.Microseconds()
		if micros < 0 {
			micros = 0
		}
		if micros > histogramMax {
			micros = histogramMax
		}
		_ = hist.RecordValue(micros)
	}

	if s.Admitted == 0 {
		return s
	}

	s.Waits = Waits{
		Min:  time.Duration(hist.Min()) * time.Microsecond,
		Mean: time.Duration(hist.Mean() * float64(time.Microsecond)),
		P50:  time.Duration(hist.ValueAtQuantile(50)) * time.Microsecond,
		P90:  time.Duration(hist.ValueAtQuantile(90)) * time.Microsecond,
		P99:  time.Duration(hist.ValueAtQuantile(99)) * time.Microsecond,
		Max:  time.Duration(hist.Max()) * time.Microsecond,
	}
	return s
}
