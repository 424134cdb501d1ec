package scenario

import (
	"math"
	"math/rand"
	"time"

	"github.com/vnykmshr/goshape/pkg/clock"
	"github.com/vnykmshr/goshape/pkg/common/validation"
	"github.com/vnykmshr/goshape/pkg/ratelimit/gcra"
	"github.com/vnykmshr/goshape/pkg/ratelimit/shaping"
)

// CompareConfig controls a differential run of the two GCRA formulations.
type CompareConfig struct {
	Capacity float64
	Period   time.Duration

	// Sequences is the number of independent random request sequences.
	Sequences int

	// Steps is the number of decisions taken per sequence.
	Steps int

	// Seed makes the run reproducible. Sequence i uses Seed+i.
	Seed int64

	// MaxWeight bounds the random weights. Zero means ceil(Capacity), so
	// some requests are refused outright only when Capacity is fractional.
	MaxWeight int
}

// DefaultCompareConfig returns the settings used by the compare command.
func DefaultCompareConfig() CompareConfig {
	return CompareConfig{
		Capacity:  3,
		Period:    time.Second,
		Sequences: 64,
		Steps:     100,
		Seed:      1,
	}
}

// Mismatch is a decision on which the two formulations disagreed.
type Mismatch struct {
	Sequence int
	Step     int
	Weight   int

	// At is the virtual offset of the decision.
	At time.Duration

	VirtualWait time.Duration
	LeakyWait   time.Duration
	VirtualErr  string
	LeakyErr    string

	// Backlog is TAT − now of the virtual scheduler, floored at 0, and
	// Level the bucket level of the leaky-bucket formulation after the
	// decision. They must be equal.
	Backlog time.Duration
	Level   time.Duration
}

// Comparison is the outcome of Compare.
type Comparison struct {
	Config     CompareConfig
	Decisions  int
	Admitted   int
	Refused    int
	Mismatches []Mismatch
}

// Equivalent reports whether every decision matched.
func (c *Comparison) Equivalent() bool {
	return len(c.Mismatches) == 0
}

// Compare feeds identical random request sequences to a GCRA virtual
// scheduler and a GCRA leaky bucket, each on its own virtual clock, and
// records every decision on which they differ.
func Compare(config CompareConfig) (*Comparison, error) {
	cfg, err := shaping.NewConfig(config.Capacity, config.Period)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidatePositive(module, "sequences", config.Sequences); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositive(module, "steps", config.Steps); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegative(module, "max_weight", config.MaxWeight); err != nil {
		return nil, err
	}

	maxWeight := config.MaxWeight
	if maxWeight == 0 {
		maxWeight = int(math.Ceil(config.Capacity))
	}

	result := &Comparison{Config: config}
	interval := cfg.EmissionInterval()

	for seq := 0; seq < config.Sequences; seq++ {
		rng := rand.New(rand.NewSource(config.Seed + int64(seq)))

		vsClock := clock.NewManual(Epoch)
		lbClock := clock.NewManual(Epoch)

		vsCfg, lbCfg := cfg, cfg
		vsCfg.Clock, vsCfg.Sleeper = vsClock, vsClock
		lbCfg.Clock, lbCfg.Sleeper = lbClock, lbClock

		vs, err := gcra.NewVirtualSchedulingSafe(vsCfg)
		if err != nil {
			return nil, err
		}
		lb, err := gcra.NewLeakyBucketSafe(lbCfg)
		if err != nil {
			return nil, err
		}

		for step := 0; step < config.Steps; step++ {
			gap := time.Duration(rng.Int63n(int64(2*interval) + 1))
			vsClock.Advance(gap)
			lbClock.Advance(gap)

			weight := rng.Intn(maxWeight + 1)
			vsWait, vsErr := vs.TryAcquireN(weight)
			lbWait, lbErr := lb.TryAcquireN(weight)

			result.Decisions++
			if vsErr == nil && vsWait == 0 {
				result.Admitted++
			} else {
				result.Refused++
			}

			now := vsClock.Now()
			backlog := vs.TAT().Sub(now)
			if backlog < 0 {
				backlog = 0
			}
			level := lb.BucketLevel()

			if vsWait != lbWait || errString(vsErr) != errString(lbErr) || backlog != level {
				result.Mismatches = append(result.Mismatches, Mismatch{
					Sequence:    seq,
					Step:        step,
					Weight:      weight,
					At:          now.Sub(Epoch),
					VirtualWait: vsWait,
					LeakyWait:   lbWait,
					VirtualErr:  errString(vsErr),
					LeakyErr:    errString(lbErr),
					Backlog:     backlog,
					Level:       level,
				})
			}
		}
	}
	return result, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
