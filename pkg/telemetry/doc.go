// Package telemetry holds the pipeline's own observability.
//
//   - logging: slog construction with request and batch correlation and
//     redaction of credentials from log output
//   - metrics: Prometheus collectors for capture, batching and delivery
//   - tracing: OpenTelemetry spans around deliveries and proxied exchanges
//   - health: liveness, readiness and version endpoints
//
// None of these affect what is captured or delivered; a disabled component
// is replaced by a no-op.
package telemetry
