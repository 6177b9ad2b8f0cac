package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "delivery.workers").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Has reports whether field failed validation.
func (e ValidationError) Has(field string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateIngest(&cfg.Ingest)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateCapture(&cfg.Capture)...)
	errs = append(errs, validateBatch(&cfg.Batch)...)
	errs = append(errs, validateDelivery(&cfg.Delivery)...)
	errs = append(errs, validateLedger(&cfg.Ledger)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateIngest requires both the endpoint and the credential; the
// pipeline cannot start without them.
func validateIngest(cfg *IngestConfig) []FieldError {
	var errs []FieldError

	if cfg.URL == "" {
		errs = append(errs, FieldError{
			Field:   "ingest.url",
			Message: "ingestion URL is required (set FIRETAIL_URL)",
		})
	} else if u, err := url.Parse(cfg.URL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, FieldError{
			Field:   "ingest.url",
			Message: fmt.Sprintf("invalid URL %q: must be an absolute http or https URL", cfg.URL),
		})
	}

	if cfg.APIKey == "" {
		errs = append(errs, FieldError{
			Field:   "ingest.api_key",
			Message: "API key is required (set FIRETAIL_APIKEY)",
		})
	}

	if strings.TrimSpace(cfg.APIKeyHeader) == "" {
		errs = append(errs, FieldError{
			Field:   "ingest.api_key_header",
			Message: "API key header name must not be empty",
		})
	}

	return errs
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	addrs := []struct{ field, addr string }{
		{"server.listen_address", cfg.ListenAddress},
		{"server.admin_address", cfg.AdminAddress},
	}
	for _, a := range addrs {
		if _, _, err := net.SplitHostPort(a.addr); err != nil {
			errs = append(errs, FieldError{
				Field:   a.field,
				Message: fmt.Sprintf("invalid address %q: %v", a.addr, err),
			})
		}
	}

	if cfg.Upstream != "" {
		if u, err := url.Parse(cfg.Upstream); err != nil || u.Host == "" {
			errs = append(errs, FieldError{
				Field:   "server.upstream",
				Message: fmt.Sprintf("invalid upstream URL %q", cfg.Upstream),
			})
		}
	}

	if cfg.ReadTimeout < 0 || cfg.WriteTimeout < 0 || cfg.IdleTimeout < 0 || cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server",
			Message: "timeouts must not be negative",
		})
	}

	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			errs = append(errs, FieldError{
				Field:   "server.tls",
				Message: "cert_file and key_file are required when TLS is enabled",
			})
		}
		switch cfg.TLS.MinVersion {
		case "1.2", "1.3":
		default:
			errs = append(errs, FieldError{
				Field:   "server.tls.min_version",
				Message: fmt.Sprintf("unsupported version %q (want 1.2 or 1.3)", cfg.TLS.MinVersion),
			})
		}
		if cfg.TLS.ReloadInterval < 0 {
			errs = append(errs, FieldError{
				Field:   "server.tls.reload_interval",
				Message: "must not be negative",
			})
		}
	}

	return errs
}

func validateCapture(cfg *CaptureConfig) []FieldError {
	var errs []FieldError

	for i, p := range cfg.ExcludePaths {
		if !strings.HasPrefix(p, "/") {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("capture.exclude_paths[%d]", i),
				Message: fmt.Sprintf("path %q must start with /", p),
			})
		}
		if idx := strings.Index(p, "*"); idx >= 0 && idx != len(p)-1 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("capture.exclude_paths[%d]", i),
				Message: "wildcard is only allowed at the end",
			})
		}
	}

	return errs
}

func validateBatch(cfg *BatchConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxRecords < 1 {
		errs = append(errs, FieldError{
			Field:   "batch.max_records",
			Message: "must be at least 1",
		})
	}
	if cfg.MaxBytes < 1 {
		errs = append(errs, FieldError{
			Field:   "batch.max_bytes",
			Message: "must be at least 1",
		})
	}
	if cfg.FlushInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "batch.flush_interval",
			Message: "must not be negative",
		})
	}

	return errs
}

func validateDelivery(cfg *DeliveryConfig) []FieldError {
	var errs []FieldError

	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "delivery.timeout",
			Message: "must be positive",
		})
	}
	if cfg.MaxRetries < 0 || cfg.MaxRetries > 10 {
		errs = append(errs, FieldError{
			Field:   "delivery.max_retries",
			Message: "must be between 0 and 10",
		})
	}
	if cfg.RetryWaitMin <= 0 || cfg.RetryWaitMax < cfg.RetryWaitMin {
		errs = append(errs, FieldError{
			Field:   "delivery.retry_wait_max",
			Message: "retry waits must be positive and retry_wait_max must not be below retry_wait_min",
		})
	}
	if cfg.Workers < 1 {
		errs = append(errs, FieldError{
			Field:   "delivery.workers",
			Message: "must be at least 1",
		})
	}
	if cfg.QueueSize < 1 {
		errs = append(errs, FieldError{
			Field:   "delivery.queue_size",
			Message: "must be at least 1",
		})
	}
	if cfg.ShutdownGrace < 0 {
		errs = append(errs, FieldError{
			Field:   "delivery.shutdown_grace",
			Message: "must not be negative",
		})
	}

	return errs
}

func validateLedger(cfg *LedgerConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return nil
	}

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "ledger.sqlite.path",
				Message: "path is required for the sqlite backend",
			})
		}
		if cfg.SQLite.Driver != "sqlite" && cfg.SQLite.Driver != "sqlite3" {
			errs = append(errs, FieldError{
				Field:   "ledger.sqlite.driver",
				Message: fmt.Sprintf("unsupported driver %q (want sqlite or sqlite3)", cfg.SQLite.Driver),
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "ledger.backend",
			Message: fmt.Sprintf("unsupported backend %q (want memory or sqlite)", cfg.Backend),
		})
	}

	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{
			Field:   "ledger.retention.days",
			Message: "must not be negative",
		})
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{
			Field:   "ledger.retention.max_records",
			Message: "must not be negative",
		})
	}
	if _, err := cron.ParseStandard(cfg.Retention.PruneSchedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "ledger.retention.prune_schedule",
			Message: fmt.Sprintf("invalid cron expression: %v", err),
		})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid level %q (want debug, info, warn or error)", cfg.Logging.Level),
		})
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid format %q (want json or text)", cfg.Logging.Format),
		})
	}

	for i, p := range cfg.Logging.RedactPatterns {
		if p.Pattern == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i),
				Message: "pattern is required",
			})
		}
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "must start with /",
		})
	}

	if cfg.Tracing.Enabled {
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.endpoint",
				Message: "endpoint is required when tracing is enabled",
			})
		}
		switch cfg.Tracing.Sampler {
		case "always", "never", "ratio":
		default:
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("invalid sampler %q", cfg.Tracing.Sampler),
			})
		}
		if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sample_ratio",
				Message: "must be between 0.0 and 1.0",
			})
		}
	}

	if cfg.Health.QueueSaturation <= 0 || cfg.Health.QueueSaturation > 1 {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.queue_saturation",
			Message: "must be in (0, 1]",
		})
	}

	return errs
}
