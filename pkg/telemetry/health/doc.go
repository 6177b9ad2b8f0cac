// Package health serves liveness, readiness and version endpoints for the
// admin listener.
//
// Liveness only reports that the process is running. Readiness runs every
// registered check concurrently, each bounded by the checker timeout, and
// answers 503 when any check fails. The pipeline registers two checks:
//
//   - delivery_queue: fails when the dispatch queue is above the configured
//     saturation ratio, which means batches are about to be dropped
//   - ledger: pings the ledger storage backend when the ledger is enabled
//
// Usage:
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("delivery_queue", health.QueueCheck(dispatcher, 0.9))
//	checker.RegisterCheck("ledger", health.PingCheck(store))
//	checker.Register(mux, cfg.Telemetry.Health, health.VersionInfo{Version: "1.0.0"})
package health
