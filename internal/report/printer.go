package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vnykmshr/goshape/internal/scenario"
	"github.com/vnykmshr/goshape/pkg/ratelimit/shaping"
)

// ColorScheme defines the colors used for different elements in the output
type ColorScheme struct {
	Title     *color.Color
	Label     *color.Color
	Admitted  *color.Color
	Delayed   *color.Color
	Failed    *color.Color
	Highlight *color.Color
}

// DefaultColorScheme returns the default color scheme
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Title:     color.New(color.FgCyan, color.Bold),
		Label:     color.New(color.FgYellow),
		Admitted:  color.New(color.FgGreen),
		Delayed:   color.New(color.FgYellow, color.Bold),
		Failed:    color.New(color.FgRed, color.Bold),
		Highlight: color.New(color.FgMagenta, color.Bold),
	}
}

// NoColorScheme returns a color scheme with all colors disabled
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()
	for _, c := range scheme.all() {
		c.DisableColor()
	}
	return scheme
}

func (s *ColorScheme) all() []*color.Color {
	return []*color.Color{s.Title, s.Label, s.Admitted, s.Delayed, s.Failed, s.Highlight}
}

// Printer renders results as human-readable text.
type Printer struct {
	w      io.Writer
	colors *ColorScheme
}

// NewPrinter creates a Printer writing to w, colored if useColor is set.
func NewPrinter(w io.Writer, useColor bool) *Printer {
	scheme := NoColorScheme()
	if useColor {
		scheme = DefaultColorScheme()
		for _, c := range scheme.all() {
			c.EnableColor()
		}
	}
	return &Printer{w: w, colors: scheme}
}

// AutoPrinter creates a Printer that colors its output only when w is a
// terminal and noColor is not set.
func AutoPrinter(w io.Writer, noColor bool) *Printer {
	return NewPrinter(w, !noColor && IsTerminal(w))
}

// PrintResult prints one row per request followed by the run summary.
func (p *Printer) PrintResult(r *scenario.Result) {
	timing := "real time"
	if r.Virtual {
		timing = "virtual time"
	}
	p.colors.Title.Fprintf(p.w, "Scenario %s", r.Name)
	fmt.Fprintf(p.w, " (%s, %s, %s)\n\n", r.Algorithm, r.Mode, timing)

	p.colors.Label.Fprintf(p.w, "%5s  %6s  %12s  %12s  %12s  %s\n", "#", "weight", "arrival", "at", "wait", "outcome")
	for _, step := range r.Steps {
		fmt.Fprintf(p.w, "%5d  %6d  %12s  %12s  %12s  ",
			step.Index, step.Weight, formatDuration(step.Arrival), formatDuration(step.At), formatDuration(step.Wait))
		p.outcomeColor(step).Fprintln(p.w, step.Outcome)
	}
	fmt.Fprintln(p.w)

	p.PrintSummary(Summarize(r.Steps))
	p.printSnapshot("Final", r.Final)
	fmt.Fprintf(p.w, "%-12s %s\n", "Elapsed", formatDuration(r.Elapsed))

	if c := r.Coordinator; c != nil {
		p.colors.Label.Fprintf(p.w, "%-12s ", "Coordinator")
		fmt.Fprintf(p.w, "submitted %d  admitted %d  woken %d  timed out %d  canceled %d  rejected %d\n",
			c.Submitted, c.Admitted, c.Woken, c.TimedOut, c.Canceled, c.Rejected)
		p.colors.Label.Fprintf(p.w, "%-12s ", "Wakeups")
		fmt.Fprintf(p.w, "submit %d  timer %d  completion %d  cancel %d\n",
			c.SubmitWakeups, c.TimerWakeups, c.CompletionWakeups, c.CancelWakeups)
	}
}

// PrintSummary prints request counts by outcome and the wait distribution.
func (p *Printer) PrintSummary(s Summary) {
	p.colors.Label.Fprintf(p.w, "%-12s ", "Requests")
	fmt.Fprintf(p.w, "%d total, ", s.Count)
	p.colors.Admitted.Fprintf(p.w, "%d admitted", s.Admitted)

	var failed []string
	for outcome := range s.Outcomes {
		if outcome != scenario.OutcomeAdmitted {
			failed = append(failed, outcome)
		}
	}
	sort.Strings(failed)
	for _, outcome := range failed {
		fmt.Fprint(p.w, ", ")
		p.colors.Failed.Fprintf(p.w, "%d %s", s.Outcomes[outcome], outcome)
	}
	fmt.Fprintln(p.w)

	if s.Admitted == 0 {
		return
	}
	w := s.Waits
	p.colors.Label.Fprintf(p.w, "%-12s ", "Wait")
	fmt.Fprintf(p.w, "min %s  mean %s  p50 %s  p90 %s  p99 %s  max %s\n",
		formatDuration(w.Min), formatDuration(w.Mean), formatDuration(w.P50),
		formatDuration(w.P90), formatDuration(w.P99), formatDuration(w.Max))
}

// PrintSnapshot prints a timestamped diagnostics line for a watched shaper.
func (p *Printer) PrintSnapshot(name string, snap shaping.Snapshot) {
	p.colors.Label.Fprintf(p.w, "[%s] ", snap.At.Format("15:04:05.000"))
	p.printSnapshot(name, snap)
}

func (p *Printer) printSnapshot(label string, snap shaping.Snapshot) {
	p.colors.Label.Fprintf(p.w, "%-12s ", label)
	fmt.Fprintf(p.w, "level %.2f/%g  available %.2f", snap.Level, snap.Capacity, snap.Available)
	if !snap.TAT.IsZero() && !snap.At.IsZero() {
		fmt.Fprintf(p.w, "  tat %s", formatDuration(snap.TAT.Sub(snap.At)))
	}
	fmt.Fprintln(p.w)
}

// PrintComparison prints the outcome of a GCRA differential run.
func (p *Printer) PrintComparison(c *scenario.Comparison) {
	cfg := c.Config
	p.colors.Title.Fprintf(p.w, "GCRA virtual scheduling vs leaky bucket")
	fmt.Fprintf(p.w, " (capacity %g, period %s, %d sequences x %d steps, seed %d)\n\n",
		cfg.Capacity, cfg.Period, cfg.Sequences, cfg.Steps, cfg.Seed)

	p.colors.Label.Fprintf(p.w, "%-12s ", "Decisions")
	fmt.Fprintf(p.w, "%d (%d admitted, %d refused)\n", c.Decisions, c.Admitted, c.Refused)

	if c.Equivalent() {
		p.colors.Admitted.Fprintln(p.w, "Equivalent: every decision and level matched")
		return
	}

	p.colors.Failed.Fprintf(p.w, "%d mismatches\n", len(c.Mismatches))
	for _, m := range c.Mismatches {
		fmt.Fprintf(p.w, "  seq %d step %d weight %d at %s: wait %s vs %s, backlog %s vs level %s",
			m.Sequence, m.Step, m.Weight, formatDuration(m.At),
			formatDuration(m.VirtualWait), formatDuration(m.LeakyWait),
			formatDuration(m.Backlog), formatDuration(m.Level))
		if m.VirtualErr != m.LeakyErr {
			fmt.Fprintf(p.w, ", error %q vs %q", m.VirtualErr, m.LeakyErr)
		}
		fmt.Fprintln(p.w)
	}
}

// PrintAlgorithms lists the available engines.
func (p *Printer) PrintAlgorithms(algorithms []string) {
	for _, a := range algorithms {
		p.colors.Highlight.Fprintln(p.w, a)
	}
}

func (p *Printer) outcomeColor(step scenario.StepResult) *color.Color {
	switch {
	case !step.Admitted():
		return p.colors.Failed
	case step.Wait > 0:
		return p.colors.Delayed
	default:
		return p.colors.Admitted
	}
}

// formatDuration rounds d for display, keeping sub-millisecond values.
func formatDuration(d time.Duration) string {
	switch {
	case d == 0:
		return "0s"
	case d < time.Millisecond && d > -time.Millisecond:
		return d.Round(time.Microsecond).String()
	default:
		return d.Round(100 * time.Microsecond).String()
	}
}

// PrintMetrics prints the current value of every metric g gathers, one
// series per line. Histograms print their sample count and sum.
func (p *Printer) PrintMetrics(g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			if pairs := m.GetLabel(); len(pairs) > 0 {
				labels := make([]string, 0, len(pairs))
				for _, lp := range pairs {
					labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
				}
				name += "{" + strings.Join(labels, ",") + "}"
			}

			p.colors.Label.Fprintf(p.w, "%s ", name)
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(p.w, "%g\n", m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				fmt.Fprintf(p.w, "%g\n", m.GetGauge().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				fmt.Fprintf(p.w, "count=%d sum=%g\n", h.GetSampleCount(), h.GetSampleSum())
			default:
				fmt.Fprintln(p.w)
			}
		}
	}
	return nil
}
