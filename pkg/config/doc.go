// Package config provides configuration management for the Firetail pipeline.
//
// Configuration is assembled from three layers, later layers winning:
//
//  1. Default values (defaults.go)
//  2. An optional YAML file
//  3. Environment variables
//
// and is then validated as a whole, failing fast with every problem listed.
//
// # Environment Variables
//
// The ingestion endpoint and credential are read from the same variables the
// other Firetail libraries use:
//
//   - FIRETAIL_URL sets ingest.url
//   - FIRETAIL_APIKEY sets ingest.api_key
//
// Both are required. Every other field can be overridden with
// FIRETAIL_SECTION_FIELD, for example:
//
//   - FIRETAIL_BATCH_MAX_RECORDS overrides batch.max_records
//   - FIRETAIL_DELIVERY_RETRY_WAIT_MAX overrides delivery.retry_wait_max
//   - FIRETAIL_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Secret References
//
// ingest.url and ingest.api_key may contain ${secret:name}. The reference is
// resolved from FIRETAIL_SECRETS_DIR/name when that directory is set, then
// from FIRETAIL_SECRET_NAME, before validation runs.
//
// # Singleton Pattern
//
// For process-wide access:
//
//	if err := config.Initialize("firetail.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.GetConfig()
//
// Libraries embedding the middleware should build a Config explicitly and
// pass it to firetail.New instead.
//
// # Hot Reload
//
// FileWatcher watches the configuration file with fsnotify and reloads it
// after a debounce period. Only settings that are safe to change at runtime
// (currently the log level) are applied by the caller's callback.
//
// # Example Configuration
//
//	ingest:
//	  url: "https://api.logging.eu-west-1.prod.firetail.app/logs/bulk"
//
//	server:
//	  listen_address: "0.0.0.0:8080"
//	  upstream: "http://127.0.0.1:3000"
//
//	batch:
//	  max_records: 10
//	  max_bytes: 1048576
//	  flush_interval: "5s"
//
//	delivery:
//	  max_retries: 3
//	  workers: 2
//
//	ledger:
//	  backend: "sqlite"
//	  sqlite:
//	    path: "data/ledger.db"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
package config
