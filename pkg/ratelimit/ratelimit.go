package ratelimit

import (
	"strings"

	gferrors "github.com/vnykmshr/goshape/pkg/common/errors"
	"github.com/vnykmshr/goshape/pkg/ratelimit/bucket"
	"github.com/vnykmshr/goshape/pkg/ratelimit/gcra"
	"github.com/vnykmshr/goshape/pkg/ratelimit/leakybucket"
	"github.com/vnykmshr/goshape/pkg/ratelimit/shaping"
)

// Engine is a shaper that can also report its state.
type Engine interface {
	shaping.Shaper
	shaping.Inspector
}

// New creates the engine named by algorithm, one of shaping.Algorithms().
func New(algorithm string, config shaping.Config) (Engine, error) {
	switch algorithm {
	case shaping.AlgorithmLeakyBucket:
		return leakybucket.NewWithConfigSafe(config)
	case shaping.AlgorithmTokenBucket:
		return bucket.NewWithConfigSafe(config)
	case shaping.AlgorithmGCRAVirtualScheduling:
		return gcra.NewVirtualSchedulingSafe(config)
	case shaping.AlgorithmGCRALeakyBucket:
		return gcra.NewLeakyBucketSafe(config)
	default:
		return nil, gferrors.NewValidationError("ratelimit", "algorithm", algorithm, "unknown algorithm").
			WithHint("use one of " + strings.Join(shaping.Algorithms(), ", "))
	}
}
