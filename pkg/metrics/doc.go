// Package metrics provides Prometheus instrumentation for goshape components.
//
// # Quick Start
//
// Decorate a shaper and expose the default registry:
//
//	shaper := shaping.WithMetrics(engine, "api", metrics.DefaultRegistry)
//	http.Handle("/metrics", promhttp.Handler())
//
// # Custom Registry
//
// Use a custom Prometheus registry for isolation:
//
//	reg := metrics.NewRegistryWithConfig(metrics.Config{
//		Enabled:   true,
//		Registry:  prometheus.NewRegistry(),
//		Namespace: "myapp",
//		Labels:    prometheus.Labels{"region": "eu"},
//	})
//
// # Available Metrics
//
//   - goshape_shaping_requests_total: units requested, counted once per request
//   - goshape_shaping_admitted_total: units admitted
//   - goshape_shaping_errors_total: failed acquisitions by reason
//   - goshape_shaping_wait_duration_seconds: delay before admission
//   - goshape_shaping_level_units: occupied capacity
//   - goshape_shaping_available_units: capacity available now
//   - goshape_coordinator_queued: waiters queued in a coordinator
//   - goshape_coordinator_in_flight: admitted operations still running
//   - goshape_coordinator_wakeups_total: admission retries by event source
//   - goshape_coordinator_resolved_total: waiters leaving the queue by outcome
//   - goshape_coordinator_queue_wait_duration_seconds: time admitted waiters spent queued
//
// Shaping series carry the labels algorithm and shaper; coordinator series
// carry coordinator.
package metrics
