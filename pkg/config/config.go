package config

import "time"

// Config is the root configuration structure for the Firetail pipeline.
// It covers the ingestion endpoint, batching and delivery tuning, exchange
// capture, the delivery ledger, the bundled proxy host and telemetry.
type Config struct {
	// Ingest holds the ingestion endpoint and its credential. Both are
	// normally supplied through FIRETAIL_URL and FIRETAIL_APIKEY.
	Ingest IngestConfig `yaml:"ingest" ignored:"true"`

	// Server configures the bundled reverse proxy and its admin listener.
	Server ServerConfig `yaml:"server"`

	// Capture controls which exchanges are turned into records.
	Capture CaptureConfig `yaml:"capture"`

	// Batch holds the buffer flush thresholds.
	Batch BatchConfig `yaml:"batch"`

	// Delivery tunes the retrying client and the dispatcher worker pool.
	Delivery DeliveryConfig `yaml:"delivery"`

	// Ledger configures the local record of delivery outcomes.
	Ledger LedgerConfig `yaml:"ledger"`

	// Telemetry contains logging, metrics, tracing and health settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// IngestConfig identifies the telemetry ingestion endpoint.
type IngestConfig struct {
	// URL is the full ingestion endpoint URL. Env: FIRETAIL_URL.
	URL string `yaml:"url"`

	// APIKey is sent with every delivery. Env: FIRETAIL_APIKEY.
	APIKey string `yaml:"api_key"`

	// APIKeyHeader is the header carrying the API key.
	// Default: "x-ft-api-key"
	APIKeyHeader string `yaml:"api_key_header" split_words:"true"`

	// SecretsDir is searched for ${secret:name} references in URL and
	// APIKey before the FIRETAIL_SECRET_* environment. Env: FIRETAIL_SECRETS_DIR.
	SecretsDir string `yaml:"secrets_dir" split_words:"true"`
}

// ServerConfig configures the bundled proxy host.
type ServerConfig struct {
	// ListenAddress is where the proxy accepts traffic.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address" split_words:"true"`

	// AdminAddress serves health, readiness, version and metrics.
	// Default: "127.0.0.1:9090"
	AdminAddress string `yaml:"admin_address" split_words:"true"`

	// Upstream is the application the proxy forwards to.
	Upstream string `yaml:"upstream"`

	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" split_words:"true"`

	// TLS terminates HTTPS on the proxy listener.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig configures HTTPS on the proxy listener. The certificate pair is
// re-read when either file changes on disk.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file" split_words:"true"`
	KeyFile  string `yaml:"key_file" split_words:"true"`

	// MinVersion is "1.2" or "1.3".
	// Default: "1.2"
	MinVersion string `yaml:"min_version" split_words:"true"`

	// ReloadInterval is how often the pair is checked for changes. Zero
	// disables reloading.
	// Default: 5m
	ReloadInterval time.Duration `yaml:"reload_interval" split_words:"true"`
}

// CaptureConfig controls exchange capture.
type CaptureConfig struct {
	// Enabled toggles record creation without removing the middleware.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// TrustForwardedFor takes the client IP from X-Forwarded-For and the
	// scheme from X-Forwarded-Proto.
	// Default: false
	TrustForwardedFor bool `yaml:"trust_forwarded_for" split_words:"true"`

	// ExcludePaths lists exact paths, or prefixes ending in "*", to skip.
	ExcludePaths []string `yaml:"exclude_paths" split_words:"true"`
}

// BatchConfig holds the buffer flush thresholds.
type BatchConfig struct {
	// MaxRecords flushes when this many records are buffered.
	// Default: 10
	MaxRecords int `yaml:"max_records" split_words:"true"`

	// MaxBytes flushes when the payload reaches this size.
	// Default: 1048576 (1 MiB)
	MaxBytes int `yaml:"max_bytes" split_words:"true"`

	// FlushInterval drains records that have waited this long. 0 disables
	// age-based flushing.
	// Default: 5s
	FlushInterval time.Duration `yaml:"flush_interval" split_words:"true"`
}

// DeliveryConfig tunes delivery.
type DeliveryConfig struct {
	// Timeout bounds a single POST attempt.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of retries after the first attempt.
	// Default: 3
	MaxRetries int `yaml:"max_retries" split_words:"true"`

	// RetryWaitMin and RetryWaitMax bound the exponential backoff.
	// Defaults: 500ms and 8s
	RetryWaitMin time.Duration `yaml:"retry_wait_min" split_words:"true"`
	RetryWaitMax time.Duration `yaml:"retry_wait_max" split_words:"true"`

	// Workers is the number of concurrent delivery workers.
	// Default: 2
	Workers int `yaml:"workers"`

	// QueueSize is the number of batches that may wait for a worker.
	// Batches arriving at a full queue are dropped.
	// Default: 64
	QueueSize int `yaml:"queue_size" split_words:"true"`

	// ShutdownGrace is how long Close waits for in-flight deliveries.
	// Default: 15s
	ShutdownGrace time.Duration `yaml:"shutdown_grace" split_words:"true"`

	// Compress gzips payloads and sets Content-Encoding.
	// Default: false
	Compress bool `yaml:"compress"`
}

// LedgerConfig configures the delivery ledger.
type LedgerConfig struct {
	// Enabled turns outcome recording on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the store. Options: "memory", "sqlite".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite settings.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Retention controls pruning.
	Retention RetentionConfig `yaml:"retention"`

	// QueryLimit caps the rows returned by a query.
	// Default: 1000
	QueryLimit int `yaml:"query_limit" split_words:"true"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the database file.
	// Default: "data/ledger.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver: "sqlite3" (cgo,
	// mattn/go-sqlite3) or "sqlite" (pure Go, modernc.org/sqlite).
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	MaxOpenConns int           `yaml:"max_open_conns" split_words:"true"`
	MaxIdleConns int           `yaml:"max_idle_conns" split_words:"true"`
	WALMode      bool          `yaml:"wal_mode" split_words:"true"`
	BusyTimeout  time.Duration `yaml:"busy_timeout" split_words:"true"`
}

// RetentionConfig controls ledger pruning.
type RetentionConfig struct {
	// Days keeps entries younger than this many days.
	// Default: 30
	Days int `yaml:"days"`

	// MaxRecords keeps at most this many entries. 0 means unlimited.
	MaxRecords int64 `yaml:"max_records" split_words:"true"`

	// PruneSchedule is a cron expression.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule" split_words:"true"`
}

// TelemetryConfig contains observability settings.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	Health  HealthConfig  `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source" split_words:"true"`

	// Redact masks credentials in log attributes.
	// Default: true
	Redact bool `yaml:"redact"`

	// RedactPatterns adds custom redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns" ignored:"true"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	Name        string `yaml:"name"`
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "firetail"
	Namespace string `yaml:"namespace"`

	// DeliveryDurationBuckets are histogram buckets in seconds.
	DeliveryDurationBuckets []float64 `yaml:"delivery_duration_buckets" split_words:"true"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether deliveries are traced.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio" split_words:"true"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// ServiceName is the service name in traces.
	// Default: "firetail"
	ServiceName string `yaml:"service_name" split_words:"true"`
}

// HealthConfig contains health endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health endpoints are served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	LivenessPath  string `yaml:"liveness_path" split_words:"true"`
	ReadinessPath string `yaml:"readiness_path" split_words:"true"`
	VersionPath   string `yaml:"version_path" split_words:"true"`

	// CheckTimeout bounds each component check.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout" split_words:"true"`

	// QueueSaturation is the dispatcher queue fill ratio at which the
	// service reports not ready.
	// Default: 0.9
	QueueSaturation float64 `yaml:"queue_saturation" split_words:"true"`
}
