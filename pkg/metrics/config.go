package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	gferrors "github.com/vnykmshr/goshape/pkg/common/errors"
)

// DefaultNamespace prefixes every goshape metric name.
const DefaultNamespace = "goshape"

// Config holds configuration for metrics collection.
type Config struct {
	// Enabled controls whether metrics collection is active.
	Enabled bool

	// Registry is the Prometheus registry to use. If nil, uses prometheus.DefaultRegisterer.
	Registry prometheus.Registerer

	// Namespace overrides the default "goshape" namespace for metrics.
	Namespace string

	// Labels are additional constant labels to add to all metrics.
	Labels prometheus.Labels
}

// DefaultConfig returns a default metrics configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Registry:  prometheus.DefaultRegisterer,
		Namespace: DefaultNamespace,
		Labels:    nil,
	}
}

// Instrumentable is an interface for components that can be instrumented with metrics.
type Instrumentable interface {
	// EnableMetrics enables metrics collection for this component.
	EnableMetrics(config Config) error

	// DisableMetrics disables metrics collection for this component.
	DisableMetrics()

	// MetricsEnabled returns true if metrics are currently enabled.
	MetricsEnabled() bool
}

// ReasonFor maps an acquisition error to an errors_total reason label.
func ReasonFor(err error) string {
	switch {
	case errors.Is(err, gferrors.ErrTimeout):
		return ReasonTimeout
	case errors.Is(err, gferrors.ErrCanceled):
		return ReasonCanceled
	case errors.Is(err, gferrors.ErrCapacityExceeded):
		return ReasonCapacity
	case errors.Is(err, gferrors.ErrInvalidConfiguration):
		return ReasonInvalid
	case errors.Is(err, gferrors.ErrClosed):
		return ReasonClosed
	default:
		return ReasonOther
	}
}
