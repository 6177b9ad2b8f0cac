package config

import "time"

// Default values for configuration fields.
const (
	// Ingest defaults
	DefaultAPIKeyHeader = "x-ft-api-key"

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultAdminAddress    = "127.0.0.1:9090"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1 << 20
	DefaultTLSMinVersion   = "1.2"
	DefaultTLSReload       = 5 * time.Minute

	// Capture defaults
	DefaultCaptureEnabled = true

	// Batch defaults
	DefaultBatchMaxRecords    = 10
	DefaultBatchMaxBytes      = 1 << 20
	DefaultBatchFlushInterval = 5 * time.Second

	// Delivery defaults
	DefaultDeliveryTimeout       = 10 * time.Second
	DefaultDeliveryMaxRetries    = 3
	DefaultDeliveryRetryWaitMin  = 500 * time.Millisecond
	DefaultDeliveryRetryWaitMax  = 8 * time.Second
	DefaultDeliveryWorkers       = 2
	DefaultDeliveryQueueSize     = 64
	DefaultDeliveryShutdownGrace = 15 * time.Second

	// Ledger defaults
	DefaultLedgerEnabled            = true
	DefaultLedgerBackend            = "memory"
	DefaultLedgerSQLitePath         = "data/ledger.db"
	DefaultLedgerSQLiteDriver       = "sqlite"
	DefaultLedgerSQLiteMaxOpenConns = 4
	DefaultLedgerSQLiteMaxIdleConns = 2
	DefaultLedgerSQLiteWALMode      = true
	DefaultLedgerSQLiteBusyTimeout  = 5 * time.Second
	DefaultLedgerRetentionDays      = 30
	DefaultLedgerRetentionSchedule  = "0 3 * * *"
	DefaultLedgerQueryLimit         = 1000

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultLoggingRedact      = true
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "firetail"
	DefaultTracingEnabled     = false
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingInsecure    = true
	DefaultTracingServiceName = "firetail"
	DefaultHealthEnabled      = true
	DefaultLivenessPath       = "/health"
	DefaultReadinessPath      = "/ready"
	DefaultVersionPath        = "/version"
	DefaultHealthCheckTimeout = 5 * time.Second
	DefaultQueueSaturation    = 0.9
)

// DefaultDeliveryDurationBuckets spans fast local collectors to slow retried
// deliveries.
var DefaultDeliveryDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Default returns a configuration with every default applied, including the
// boolean switches that default to true and the counts and intervals for
// which zero is a meaningful setting. File values are decoded on top of it.
func Default() *Config {
	cfg := &Config{}
	cfg.Batch.FlushInterval = DefaultBatchFlushInterval
	cfg.Delivery.MaxRetries = DefaultDeliveryMaxRetries
	cfg.Capture.Enabled = DefaultCaptureEnabled
	cfg.Ledger.Enabled = DefaultLedgerEnabled
	cfg.Ledger.SQLite.WALMode = DefaultLedgerSQLiteWALMode
	cfg.Telemetry.Logging.Redact = DefaultLoggingRedact
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Tracing.Enabled = DefaultTracingEnabled
	cfg.Telemetry.Tracing.Insecure = DefaultTracingInsecure
	cfg.Telemetry.Health.Enabled = DefaultHealthEnabled
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets defaults for any fields that have zero values.
// Booleans, batch.flush_interval and delivery.max_retries are left alone
// since zero is a meaningful setting for them; Default seeds them before
// decoding. This function is idempotent.
func ApplyDefaults(cfg *Config) {
	// Ingest defaults
	if cfg.Ingest.APIKeyHeader == "" {
		cfg.Ingest.APIKeyHeader = DefaultAPIKeyHeader
	}

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.AdminAddress == "" {
		cfg.Server.AdminAddress = DefaultAdminAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.TLS.MinVersion == "" {
		cfg.Server.TLS.MinVersion = DefaultTLSMinVersion
	}
	if cfg.Server.TLS.ReloadInterval == 0 {
		cfg.Server.TLS.ReloadInterval = DefaultTLSReload
	}

	// Batch defaults
	if cfg.Batch.MaxRecords == 0 {
		cfg.Batch.MaxRecords = DefaultBatchMaxRecords
	}
	if cfg.Batch.MaxBytes == 0 {
		cfg.Batch.MaxBytes = DefaultBatchMaxBytes
	}

	// Delivery defaults
	if cfg.Delivery.Timeout == 0 {
		cfg.Delivery.Timeout = DefaultDeliveryTimeout
	}
	if cfg.Delivery.RetryWaitMin == 0 {
		cfg.Delivery.RetryWaitMin = DefaultDeliveryRetryWaitMin
	}
	if cfg.Delivery.RetryWaitMax == 0 {
		cfg.Delivery.RetryWaitMax = DefaultDeliveryRetryWaitMax
	}
	if cfg.Delivery.Workers == 0 {
		cfg.Delivery.Workers = DefaultDeliveryWorkers
	}
	if cfg.Delivery.QueueSize == 0 {
		cfg.Delivery.QueueSize = DefaultDeliveryQueueSize
	}
	if cfg.Delivery.ShutdownGrace == 0 {
		cfg.Delivery.ShutdownGrace = DefaultDeliveryShutdownGrace
	}

	// Ledger defaults
	if cfg.Ledger.Backend == "" {
		cfg.Ledger.Backend = DefaultLedgerBackend
	}
	if cfg.Ledger.SQLite.Path == "" {
		cfg.Ledger.SQLite.Path = DefaultLedgerSQLitePath
	}
	if cfg.Ledger.SQLite.Driver == "" {
		cfg.Ledger.SQLite.Driver = DefaultLedgerSQLiteDriver
	}
	if cfg.Ledger.SQLite.MaxOpenConns == 0 {
		cfg.Ledger.SQLite.MaxOpenConns = DefaultLedgerSQLiteMaxOpenConns
	}
	if cfg.Ledger.SQLite.MaxIdleConns == 0 {
		cfg.Ledger.SQLite.MaxIdleConns = DefaultLedgerSQLiteMaxIdleConns
	}
	if cfg.Ledger.SQLite.BusyTimeout == 0 {
		cfg.Ledger.SQLite.BusyTimeout = DefaultLedgerSQLiteBusyTimeout
	}
	if cfg.Ledger.Retention.Days == 0 {
		cfg.Ledger.Retention.Days = DefaultLedgerRetentionDays
	}
	if cfg.Ledger.Retention.PruneSchedule == "" {
		cfg.Ledger.Retention.PruneSchedule = DefaultLedgerRetentionSchedule
	}
	if cfg.Ledger.QueryLimit == 0 {
		cfg.Ledger.QueryLimit = DefaultLedgerQueryLimit
	}

	// Logging defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}

	// Metrics defaults
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.DeliveryDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DeliveryDurationBuckets = append([]float64(nil), DefaultDeliveryDurationBuckets...)
	}

	// Tracing defaults
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}

	// Health defaults
	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Telemetry.Health.VersionPath == "" {
		cfg.Telemetry.Health.VersionPath = DefaultVersionPath
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
	if cfg.Telemetry.Health.QueueSaturation == 0 {
		cfg.Telemetry.Health.QueueSaturation = DefaultQueueSaturation
	}
}
