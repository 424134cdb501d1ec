package metrics

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	gferrors "github.com/vnykmshr/goshape/pkg/common/errors"
)

func TestNewRegistryRegistersAll(t *testing.T) {
	reg := prometheus.NewRegistry()
	registry := NewRegistry(reg)

	registry.ShapingRequests.WithLabelValues("gcra_virtual_scheduling", "a").Inc()
	registry.ShapingAdmitted.WithLabelValues("gcra_virtual_scheduling", "a").Inc()
	registry.ShapingErrors.WithLabelValues("gcra_virtual_scheduling", "a", ReasonCapacity).Inc()
	registry.ShapingWaitTime.WithLabelValues("gcra_virtual_scheduling", "a").Observe(0.5)
	registry.ShapingLevel.WithLabelValues("gcra_virtual_scheduling", "a").Set(2)
	registry.ShapingAvailable.WithLabelValues("gcra_virtual_scheduling", "a").Set(1)
	registry.CoordinatorQueued.WithLabelValues("c").Set(1)
	registry.CoordinatorInFlight.WithLabelValues("c").Set(1)
	registry.CoordinatorWakeups.WithLabelValues("c", SourceTimer).Inc()
	registry.CoordinatorResolved.WithLabelValues("c", "admitted").Inc()
	registry.CoordinatorWaitTime.WithLabelValues("c").Observe(0.25)

	count, err := testutil.GatherAndCount(reg)
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if count != 11 {
		t.Errorf("gathered %d series, want 11", count)
	}
}

func TestNamespaceOverride(t *testing.T) {
	reg := prometheus.NewRegistry()
	registry := NewRegistryWithConfig(Config{Registry: reg, Namespace: "edge"})
	registry.ShapingLevel.WithLabelValues("leaky_bucket", "x").Set(4)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(families) != 1 {
		t.Fatalf("got %d families, want 1", len(families))
	}
	if name := families[0].GetName(); !strings.HasPrefix(name, "edge_shaping_") {
		t.Errorf("metric name %q should use the edge namespace", name)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.Enabled {
		t.Error("default config should be enabled")
	}
	if cfg.Namespace != DefaultNamespace {
		t.Errorf("namespace = %q, want %q", cfg.Namespace, DefaultNamespace)
	}
	if DefaultRegistry == nil {
		t.Error("DefaultRegistry should be initialized")
	}
}

func TestReasonFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"timeout", gferrors.FromContext("m", "op", context.DeadlineExceeded), ReasonTimeout},
		{"canceled", gferrors.FromContext("m", "op", context.Canceled), ReasonCanceled},
		{"capacity", gferrors.NewCapacityError("m", 5, 2), ReasonCapacity},
		{"invalid", gferrors.NewValidationError("m", "f", -1, "bad"), ReasonInvalid},
		{"closed", gferrors.ErrClosed, ReasonClosed},
		{"other", stderrors.New("boom"), ReasonOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReasonFor(tt.err); got != tt.want {
				t.Errorf("ReasonFor() = %q, want %q", got, tt.want)
			}
		})
	}
}
