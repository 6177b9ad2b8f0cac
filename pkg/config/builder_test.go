package config

import "time"

// ConfigBuilder provides a fluent API for building Config instances in tests.
// It starts with default values and allows selective overrides.
type ConfigBuilder struct {
	cfg *Config
}

// NewTestConfig creates a new ConfigBuilder with a valid configuration.
func NewTestConfig() *ConfigBuilder {
	cfg := Default()
	cfg.Ingest.URL = "https://ingest.example.com/logs/bulk"
	cfg.Ingest.APIKey = "test-key"
	return &ConfigBuilder{cfg: cfg}
}

// Build returns the built Config instance.
func (b *ConfigBuilder) Build() *Config {
	return b.cfg
}

// WithIngest sets the ingestion endpoint and key.
func (b *ConfigBuilder) WithIngest(url, key string) *ConfigBuilder {
	b.cfg.Ingest.URL = url
	b.cfg.Ingest.APIKey = key
	return b
}

// WithBatch sets the flush thresholds.
func (b *ConfigBuilder) WithBatch(records, bytes int) *ConfigBuilder {
	b.cfg.Batch.MaxRecords = records
	b.cfg.Batch.MaxBytes = bytes
	return b
}

// WithRetryWaits sets the backoff bounds.
func (b *ConfigBuilder) WithRetryWaits(min, max time.Duration) *ConfigBuilder {
	b.cfg.Delivery.RetryWaitMin = min
	b.cfg.Delivery.RetryWaitMax = max
	return b
}

// WithLedgerBackend sets the ledger backend.
func (b *ConfigBuilder) WithLedgerBackend(backend string) *ConfigBuilder {
	b.cfg.Ledger.Backend = backend
	return b
}
