package bucket

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/vnykmshr/goshape/internal/testutil"
	"github.com/vnykmshr/goshape/pkg/clock"
	gferrors "github.com/vnykmshr/goshape/pkg/common/errors"
	"github.com/vnykmshr/goshape/pkg/ratelimit/leakybucket"
	"github.com/vnykmshr/goshape/pkg/ratelimit/shaping"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newManual(t *testing.T, capacity float64, period time.Duration) (Limiter, *clock.Manual) {
	t.Helper()
	m := clock.NewManual(epoch)
	limiter, err := NewWithConfigSafe(shaping.Config{Capacity: capacity, Period: period, Clock: m})
	testutil.AssertNoError(t, err)
	return limiter, m
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		capacity float64
		period   time.Duration
		wantErr  bool
	}{
		{"valid parameters", 10, 5 * time.Second, false},
		{"zero capacity", 0, time.Second, true},
		{"negative capacity", -3, time.Second, true},
		{"zero period", 10, 0, true},
		{"negative period", 10, -time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter, err := NewSafe(tt.capacity, tt.period)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error for invalid parameters")
				}
				if limiter != nil {
					t.Error("expected nil limiter on error")
				}
				if !gferrors.IsValidationError(err) {
					t.Errorf("expected ValidationError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, limiter.Config().Capacity, tt.capacity)
			testutil.AssertEqual(t, limiter.Tokens(), tt.capacity) // Starts full
		})
	}
}

func TestNewPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic")
		}
	}()
	New(0, time.Second)
}

func TestSevenSequentialAcquires(t *testing.T) {
	limiter, m := newManual(t, 4, 2*time.Second)
	ctx := context.Background()

	var offsets []time.Duration
	for i := 0; i < 7; i++ {
		testutil.AssertNoError(t, limiter.Acquire(ctx))
		offsets = append(offsets, m.Now().Sub(epoch))
	}

	want := []time.Duration{0, 0, 0, 0, 500 * time.Millisecond, time.Second, 1500 * time.Millisecond}
	for i := range want {
		testutil.AssertDurationNear(t, offsets[i], want[i], time.Microsecond)
	}
	testutil.AssertInDelta(t, limiter.Tokens(), 0, 1e-9)

	m.Advance(time.Second)
	limiter.Fill()
	testutil.AssertInDelta(t, limiter.Tokens(), 2.0, 1e-9)
}

func TestFillCapped(t *testing.T) {
	limiter, m := newManual(t, 5, time.Second)

	_, err := limiter.TryAcquireN(5)
	testutil.AssertNoError(t, err)
	testutil.AssertInDelta(t, limiter.Tokens(), 0, 1e-12)

	m.Advance(200 * time.Millisecond)
	testutil.AssertInDelta(t, limiter.Tokens(), 1.0, 1e-9)

	m.Advance(time.Minute)
	limiter.Fill()
	testutil.AssertEqual(t, limiter.Tokens(), 5.0)
}

func TestTryAcquireWait(t *testing.T) {
	limiter, _ := newManual(t, 4, 2*time.Second)

	wait, err := limiter.TryAcquireN(3)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, wait, time.Duration(0))

	wait, err = limiter.TryAcquireN(3)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, wait, time.Second)
	testutil.AssertInDelta(t, limiter.Tokens(), 1.0, 1e-12)
}

func TestWeightRules(t *testing.T) {
	limiter, m := newManual(t, 4, 2*time.Second)
	ctx := context.Background()

	testutil.AssertNoError(t, limiter.AcquireN(ctx, 0))
	testutil.AssertEqual(t, limiter.Tokens(), 4.0)

	testutil.AssertErrorIs(t, limiter.AcquireN(ctx, -2), gferrors.ErrInvalidConfiguration)
	testutil.AssertErrorIs(t, limiter.AcquireN(ctx, 5), gferrors.ErrCapacityExceeded)
	testutil.AssertEqual(t, len(m.Sleeps()), 0)
}

func TestCapacityInfo(t *testing.T) {
	limiter, _ := newManual(t, 4, 2*time.Second)

	info := limiter.CapacityInfo(4)
	testutil.AssertEqual(t, info.HasCapacity, true)

	_, err := limiter.TryAcquireN(3)
	testutil.AssertNoError(t, err)

	info = limiter.CapacityInfo(2)
	testutil.AssertEqual(t, info.HasCapacity, false)
	testutil.AssertInDelta(t, info.Needed, 1.0, 1e-9)
}

func TestSnapshot(t *testing.T) {
	limiter, m := newManual(t, 4, 2*time.Second)
	_, err := limiter.TryAcquireN(4)
	testutil.AssertNoError(t, err)
	m.Advance(time.Second)

	snap := limiter.Snapshot()
	testutil.AssertEqual(t, snap.Algorithm, shaping.AlgorithmTokenBucket)
	testutil.AssertInDelta(t, snap.Available, 2.0, 1e-9)
	testutil.AssertInDelta(t, snap.Level, 2.0, 1e-9)
	testutil.AssertEqual(t, snap.At, epoch.Add(time.Second))
}

func TestCanceledWaitDoesNotConsume(t *testing.T) {
	limiter := New(2, 10*time.Second)
	ctx := context.Background()
	testutil.AssertNoError(t, limiter.AcquireN(ctx, 2))

	canceled, cancel := context.WithCancel(ctx)
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := limiter.Acquire(canceled)
	testutil.AssertErrorIs(t, err, gferrors.ErrCanceled)
	if tokens := limiter.Tokens(); tokens < 0 {
		t.Errorf("tokens %v went negative after a canceled wait", tokens)
	}
}

func TestBoundsInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	for seq := 0; seq < 20; seq++ {
		capacity := float64(1 + rng.Intn(8))
		limiter, m := newManual(t, capacity, time.Duration(100+rng.Intn(1900))*time.Millisecond)

		for i := 0; i < 200; i++ {
			m.Advance(time.Duration(rng.Intn(400)) * time.Millisecond)
			testutil.AssertNoError(t, limiter.AcquireN(context.Background(), rng.Intn(int(capacity)+1)))

			tokens := limiter.Tokens()
			if tokens < 0 || tokens > capacity {
				t.Fatalf("sequence %d step %d: tokens %v outside [0, %v]", seq, i, tokens, capacity)
			}
		}
	}
}

type request struct {
	gap    time.Duration
	weight int
}

func randomRequests(rng *rand.Rand, capacity int, count int) []request {
	reqs := make([]request, count)
	for i := range reqs {
		gap := time.Duration(0)
		if rng.Intn(3) == 0 {
			gap = time.Duration(rng.Intn(1500)) * time.Millisecond
		}
		reqs[i] = request{gap: gap, weight: 1 + rng.Intn(capacity)}
	}
	return reqs
}

// admissionOffsets runs reqs through s sequentially and returns the
// admission instant of each request relative to the epoch.
func admissionOffsets(t *testing.T, s shaping.Shaper, m *clock.Manual, reqs []request) []time.Duration {
	t.Helper()
	out := make([]time.Duration, len(reqs))
	for i, r := range reqs {
		m.Advance(r.gap)
		testutil.AssertNoError(t, s.AcquireN(context.Background(), r.weight))
		out[i] = m.Now().Sub(epoch)
	}
	return out
}

func TestMatchesLeakyBucket(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for seq := 0; seq < 50; seq++ {
		capacity := 1 + rng.Intn(10)
		period := time.Duration(200+rng.Intn(3000)) * time.Millisecond
		reqs := randomRequests(rng, capacity, 60)

		tokenClock := clock.NewManual(epoch)
		token := NewWithConfig(shaping.Config{Capacity: float64(capacity), Period: period, Clock: tokenClock})

		leakyClock := clock.NewManual(epoch)
		leaky := leakybucket.NewWithConfig(shaping.Config{Capacity: float64(capacity), Period: period, Clock: leakyClock})

		got := admissionOffsets(t, token, tokenClock, reqs)
		want := admissionOffsets(t, leaky, leakyClock, reqs)
		for i := range want {
			testutil.AssertDurationNear(t, got[i], want[i], time.Microsecond)
		}
	}
}

func TestMatchesXTimeRate(t *testing.T) {
	rng := rand.New(rand.NewSource(99))

	for seq := 0; seq < 50; seq++ {
		capacity := 1 + rng.Intn(10)
		period := time.Duration(200+rng.Intn(3000)) * time.Millisecond
		reqs := randomRequests(rng, capacity, 60)

		m := clock.NewManual(epoch)
		cfg := shaping.Config{Capacity: float64(capacity), Period: period, Clock: m}
		got := admissionOffsets(t, NewWithConfig(cfg), m, reqs)

		ref := rate.NewLimiter(rate.Limit(cfg.Rate()), capacity)
		now := epoch
		for i, r := range reqs {
			now = now.Add(r.gap)
			res := ref.ReserveN(now, r.weight)
			if !res.OK() {
				t.Fatalf("reference limiter refused weight %d", r.weight)
			}
			now = now.Add(res.DelayFrom(now))
			testutil.AssertDurationNear(t, got[i], now.Sub(epoch), 10*time.Microsecond)
		}
	}
}
