// Package metrics provides Prometheus metrics for the telemetry pipeline.
//
// # Overview
//
// The Collector owns a private registry and groups metrics by subsystem:
//
//   - capture: exchanges observed, capture errors by kind, handler panics
//   - buffer: buffered records and bytes, flushes by trigger
//   - delivery: queue depth, dropped batches, attempts, outcomes, latency
//   - ledger: recorded outcomes and pruned entries
//
// Every Record/Update method is safe to call on a nil *Collector and on a
// disabled one, so callers never need to guard metric calls.
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordExchange("GET", "/pets/{petId}", 200)
//	collector.RecordDelivery("succeeded", 120*time.Millisecond, 10, 4096)
//
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// # Cardinality
//
// Resource labels come from normalized paths, but an API with many
// unnormalized segments could still explode the label space. A
// CardinalityLimiter caps the number of distinct resource labels and folds
// the overflow into "other".
package metrics
