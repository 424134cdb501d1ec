package diagnostics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vnykmshr/goshape/internal/testutil"
	"github.com/vnykmshr/goshape/pkg/clock"
	gferrors "github.com/vnykmshr/goshape/pkg/common/errors"
	"github.com/vnykmshr/goshape/pkg/metrics"
	"github.com/vnykmshr/goshape/pkg/ratelimit/leakybucket"
	"github.com/vnykmshr/goshape/pkg/ratelimit/shaping"
)

type recordingSink struct {
	mu    sync.Mutex
	names []string
	snaps []shaping.Snapshot
}

func (s *recordingSink) Record(name string, snap shaping.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, name)
	s.snaps = append(s.snaps, snap)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.names)
}

func newLeaky(t *testing.T) (leakybucket.Limiter, *clock.Manual) {
	t.Helper()
	m := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return leakybucket.NewWithConfig(shaping.Config{Capacity: 4, Period: 2 * time.Second, Clock: m}), m
}

func TestValidateSpec(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr bool
	}{
		{"*/5 * * * * *", false},
		{"0 0 * * * *", false},
		{"@every 30s", false},
		{"@hourly", false},
		{"* * * * *", true}, // five fields, seconds are required
		{"not a schedule", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			err := ValidateSpec(tt.spec)
			if tt.wantErr {
				testutil.AssertErrorIs(t, err, gferrors.ErrInvalidConfiguration)
			} else {
				testutil.AssertNoError(t, err)
			}
		})
	}
}

func TestNewReporterRequiresSink(t *testing.T) {
	_, err := NewReporter(Config{})
	testutil.AssertErrorIs(t, err, gferrors.ErrInvalidConfiguration)
}

func TestWatchValidation(t *testing.T) {
	r, err := NewReporter(Config{Sink: &recordingSink{}})
	testutil.AssertNoError(t, err)
	limiter, _ := newLeaky(t)

	testutil.AssertErrorIs(t, r.Watch("", "@every 1s", limiter), gferrors.ErrInvalidConfiguration)
	testutil.AssertErrorIs(t, r.Watch("api", "bogus", limiter), gferrors.ErrInvalidConfiguration)
	testutil.AssertErrorIs(t, r.Watch("api", "@every 1s", nil), gferrors.ErrInvalidConfiguration)

	testutil.AssertNoError(t, r.Watch("api", "@every 1s", limiter))
	testutil.AssertErrorIs(t, r.Watch("api", "@every 2s", limiter), gferrors.ErrInvalidConfiguration)

	testutil.AssertEqual(t, r.Unwatch("api"), true)
	testutil.AssertEqual(t, r.Unwatch("api"), false)
	testutil.AssertNoError(t, r.Watch("api", "@every 2s", limiter))
}

func TestReportSnapshotsInNameOrder(t *testing.T) {
	sink := &recordingSink{}
	r, err := NewReporter(Config{Sink: sink})
	testutil.AssertNoError(t, err)

	first, m := newLeaky(t)
	second, _ := newLeaky(t)
	_, err = first.TryAcquireN(3)
	testutil.AssertNoError(t, err)

	testutil.AssertNoError(t, r.Watch("zeta", "@every 1h", second))
	testutil.AssertNoError(t, r.Watch("alpha", "@every 1h", first))

	m.Advance(500 * time.Millisecond)
	r.Report()

	testutil.AssertEqual(t, sink.count(), 2)
	testutil.AssertEqual(t, sink.names[0], "alpha")
	testutil.AssertEqual(t, sink.names[1], "zeta")
	testutil.AssertInDelta(t, sink.snaps[0].Level, 2.0, 1e-9)
	testutil.AssertEqual(t, sink.snaps[1].Level, 0.0)
}

func TestScheduledCapture(t *testing.T) {
	sink := &recordingSink{}
	r, err := NewReporter(Config{Sink: sink, SkipIfStillRunning: true})
	testutil.AssertNoError(t, err)
	limiter, _ := newLeaky(t)

	testutil.AssertNoError(t, r.Watch("api", "* * * * * *", limiter))

	next, err := r.Next("api")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, next.IsZero(), true)

	r.Start()
	defer r.Stop()

	next, err = r.Next("api")
	testutil.AssertNoError(t, err)
	if !next.After(time.Now().Add(-time.Second)) {
		t.Errorf("next capture %v should be scheduled", next)
	}

	testutil.Eventually(t, func() bool { return sink.count() > 0 }, 3*time.Second, 10*time.Millisecond)

	_, err = r.Next("missing")
	testutil.AssertErrorIs(t, err, gferrors.ErrInvalidConfiguration)
}

func TestMetricsSink(t *testing.T) {
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	limiter, _ := newLeaky(t)
	_, err := limiter.TryAcquireN(3)
	testutil.AssertNoError(t, err)

	r, err := NewReporter(Config{Sink: MetricsSink{Registry: reg}})
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, r.Watch("uploads", "@every 10s", limiter))
	r.Report()

	testutil.AssertEqual(t, promtest.ToFloat64(reg.ShapingLevel.WithLabelValues(shaping.AlgorithmLeakyBucket, "uploads")), 3.0)
	testutil.AssertEqual(t, promtest.ToFloat64(reg.ShapingAvailable.WithLabelValues(shaping.AlgorithmLeakyBucket, "uploads")), 1.0)
}

func TestSinkFunc(t *testing.T) {
	tracker := testutil.NewCallbackTracker()
	sink := SinkFunc(func(name string, snap shaping.Snapshot) {
		tracker.Mark(name)
	})

	r, err := NewReporter(Config{Sink: sink})
	testutil.AssertNoError(t, err)
	limiter, _ := newLeaky(t)
	testutil.AssertNoError(t, r.Watch("api", "@every 5s", limiter))
	r.Report()

	tracker.AssertCallCount(t, 1)
	testutil.AssertEqual(t, tracker.Value(), interface{}("api"))
}
