// Package diagnostics periodically captures snapshots of shapers and
// coordinators and hands them to a Sink.
//
// Watches are scheduled with cron expressions that include a seconds field,
// for example "*/5 * * * * *" for every five seconds, or descriptors such
// as "@every 1m".
package diagnostics

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	gferrors "github.com/vnykmshr/goshape/pkg/common/errors"
	"github.com/vnykmshr/goshape/pkg/metrics"
	"github.com/vnykmshr/goshape/pkg/ratelimit/shaping"
)

const module = "diagnostics"

// Sink receives snapshots.
type Sink interface {
	Record(name string, snap shaping.Snapshot)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(name string, snap shaping.Snapshot)

// Record calls f.
func (f SinkFunc) Record(name string, snap shaping.Snapshot) {
	f(name, snap)
}

// MetricsSink publishes snapshot levels to Prometheus gauges.
type MetricsSink struct {
	Registry *metrics.Registry
}

// Record sets the level and available gauges for the snapshot's shaper.
func (s MetricsSink) Record(name string, snap shaping.Snapshot) {
	reg := s.Registry
	if reg == nil {
		reg = metrics.DefaultRegistry
	}
	reg.ShapingLevel.WithLabelValues(snap.Algorithm, name).Set(snap.Level)
	reg.ShapingAvailable.WithLabelValues(snap.Algorithm, name).Set(snap.Available)
}

// Config holds configuration options for creating a Reporter.
type Config struct {
	// Sink receives every snapshot. Required.
	Sink Sink

	// Location is the time zone used to evaluate cron expressions.
	// Defaults to time.Local.
	Location *time.Location

	// SkipIfStillRunning drops a scheduled report while the previous one
	// for the same watch is still being recorded.
	SkipIfStillRunning bool
}

type watch struct {
	spec      string
	inspector shaping.Inspector
	entry     cron.EntryID
}

// Reporter schedules snapshot captures.
type Reporter struct {
	mu      sync.Mutex
	cron    *cron.Cron
	sink    Sink
	watches map[string]*watch
}

var parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSpec reports whether spec is a valid cron expression with a
// seconds field.
func ValidateSpec(spec string) error {
	if _, err := parser.Parse(spec); err != nil {
		return gferrors.NewValidationError(module, "spec", spec, err.Error()).
			WithHint(`use six fields such as "*/10 * * * * *" or a descriptor such as "@every 30s"`)
	}
	return nil
}

// NewReporter creates a stopped Reporter.
func NewReporter(config Config) (*Reporter, error) {
	if config.Sink == nil {
		return nil, gferrors.NewValidationError(module, "sink", nil, "sink is required")
	}
	if config.Location == nil {
		config.Location = time.Local
	}

	opts := []cron.Option{cron.WithParser(parser), cron.WithLocation(config.Location)}
	if config.SkipIfStillRunning {
		opts = append(opts, cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	}

	return &Reporter{
		cron:    cron.New(opts...),
		sink:    config.Sink,
		watches: make(map[string]*watch),
	}, nil
}

// Watch schedules snapshots of in under name.
func (r *Reporter) Watch(name, spec string, in shaping.Inspector) error {
	if name == "" {
		return gferrors.NewValidationError(module, "name", name, "name is required")
	}
	if in == nil {
		return gferrors.NewValidationError(module, "inspector", nil, "inspector is required")
	}
	if err := ValidateSpec(spec); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.watches[name]; exists {
		return gferrors.NewValidationError(module, "name", name, "already watched").
			WithHint("call Unwatch first to change the schedule")
	}

	id, err := r.cron.AddFunc(spec, func() {
		r.sink.Record(name, in.Snapshot())
	})
	if err != nil {
		return gferrors.NewOperationError(module, "Watch", err).WithContext(name)
	}

	r.watches[name] = &watch{spec: spec, inspector: in, entry: id}
	return nil
}

// Unwatch stops the snapshots for name. It reports whether name was watched.
func (r *Reporter) Unwatch(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.watches[name]
	if !ok {
		return false
	}
	r.cron.Remove(w.entry)
	delete(r.watches, name)
	return true
}

// Names returns the watched names in sorted order.
func (r *Reporter) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.watches))
	for name := range r.watches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Report snapshots every watched inspector now, in name order.
func (r *Reporter) Report() {
	for _, name := range r.Names() {
		r.mu.Lock()
		w, ok := r.watches[name]
		r.mu.Unlock()
		if ok {
			r.sink.Record(name, w.inspector.Snapshot())
		}
	}
}

// Next returns the next scheduled capture for name. It is zero while the
// reporter is stopped.
func (r *Reporter) Next(name string) (time.Time, error) {
	r.mu.Lock()
	w, ok := r.watches[name]
	r.mu.Unlock()
	if !ok {
		return time.Time{}, gferrors.NewValidationError(module, "name", name, "not watched")
	}
	return r.cron.Entry(w.entry).Next, nil
}

// Start begins scheduled captures in a background goroutine.
func (r *Reporter) Start() {
	r.cron.Start()
}

// Stop halts scheduled captures. The returned context is done once any
// capture in progress has finished.
func (r *Reporter) Stop() context.Context {
	return r.cron.Stop()
}
