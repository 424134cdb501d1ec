// Package metrics provides Prometheus instrumentation for goshape components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Error reasons used for the errors_total reason label.
const (
	ReasonTimeout  = "timeout"
	ReasonCanceled = "canceled"
	ReasonCapacity = "capacity"
	ReasonInvalid  = "invalid"
	ReasonClosed   = "closed"
	ReasonOther    = "other"
)

// Wakeup sources used for the coordinator wakeups_total source label.
const (
	SourceSubmit     = "submit"
	SourceTimer      = "timer"
	SourceCompletion = "completion"
	SourceCancel     = "cancel"
)

// Registry holds all metric instances for goshape components.
type Registry struct {
	// Shaping Metrics
	ShapingRequests  *prometheus.CounterVec
	ShapingAdmitted  *prometheus.CounterVec
	ShapingErrors    *prometheus.CounterVec
	ShapingWaitTime  *prometheus.HistogramVec
	ShapingLevel     *prometheus.GaugeVec
	ShapingAvailable *prometheus.GaugeVec

	// Coordinator Metrics
	CoordinatorQueued   *prometheus.GaugeVec
	CoordinatorInFlight *prometheus.GaugeVec
	CoordinatorWakeups  *prometheus.CounterVec
	CoordinatorResolved *prometheus.CounterVec
	CoordinatorWaitTime *prometheus.HistogramVec
}

// DefaultRegistry is the default metrics registry used by goshape components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return NewRegistryWithConfig(Config{Enabled: true, Registry: reg})
}

// NewRegistryWithConfig creates a metrics registry honoring the namespace
// and constant labels of config. A nil config.Registry falls back to
// prometheus.DefaultRegisterer.
func NewRegistryWithConfig(config Config) *Registry {
	reg := config.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := config.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	if len(config.Labels) > 0 {
		reg = prometheus.WrapRegistererWith(config.Labels, reg)
	}
	factory := promauto.With(reg)

	shaperLabels := []string{"algorithm", "shaper"}
	coordinatorLabels := []string{"coordinator"}

	return &Registry{
		ShapingRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "shaping",
				Name:      "requests_total",
				Help:      "Total number of units requested from shapers",
			},
			shaperLabels,
		),

		ShapingAdmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "shaping",
				Name:      "admitted_total",
				Help:      "Total number of units admitted by shapers",
			},
			shaperLabels,
		),

		ShapingErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "shaping",
				Name:      "errors_total",
				Help:      "Total number of acquisitions that failed, by reason",
			},
			append(shaperLabels, "reason"),
		),

		ShapingWaitTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Subsystem: "shaping",
				Name:      "wait_duration_seconds",
				Help:      "Time spent delayed before admission",
				Buckets:   prometheus.DefBuckets,
			},
			shaperLabels,
		),

		ShapingLevel: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: ns,
				Subsystem: "shaping",
				Name:      "level_units",
				Help:      "Units of capacity currently occupied",
			},
			shaperLabels,
		),

		ShapingAvailable: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: ns,
				Subsystem: "shaping",
				Name:      "available_units",
				Help:      "Units of capacity currently available for immediate admission",
			},
			shaperLabels,
		),

		CoordinatorQueued: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: ns,
				Subsystem: "coordinator",
				Name:      "queued",
				Help:      "Number of waiters queued for admission",
			},
			coordinatorLabels,
		),

		CoordinatorInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: ns,
				Subsystem: "coordinator",
				Name:      "in_flight",
				Help:      "Number of admitted operations still running",
			},
			coordinatorLabels,
		),

		CoordinatorWakeups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "coordinator",
				Name:      "wakeups_total",
				Help:      "Admission retries triggered, by event source",
			},
			append(coordinatorLabels, "source"),
		),

		CoordinatorResolved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: "coordinator",
				Name:      "resolved_total",
				Help:      "Waiters that left the queue, by outcome",
			},
			append(coordinatorLabels, "outcome"),
		),

		CoordinatorWaitTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Subsystem: "coordinator",
				Name:      "queue_wait_duration_seconds",
				Help:      "Time admitted waiters spent in the queue",
				Buckets:   prometheus.DefBuckets,
			},
			coordinatorLabels,
		),
	}
}
