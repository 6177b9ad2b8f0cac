// Package tracing provides OpenTelemetry tracing for the telemetry pipeline.
//
// # Overview
//
// Two kinds of spans are produced:
//
//   - firetail.proxy: one server span per proxied exchange, started by
//     HTTPMiddleware after extracting W3C trace context from the request
//   - firetail.deliver: one client span per batch delivery, covering every
//     retry attempt, with the batch ID, size and final outcome as attributes
//
// Trace context is injected into delivery requests so an ingestion
// collector that participates in tracing can link its own spans.
//
// # Sampling
//
//   - always: sample every trace
//   - never: sample nothing
//   - ratio: sample a fraction of root traces by trace ID
//
// All samplers are parent-based.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.StartDelivery(ctx, batchID, records, bytes)
//	defer span.End()
//
// When tracing is disabled New returns a tracer backed by the noop
// provider.
package tracing
