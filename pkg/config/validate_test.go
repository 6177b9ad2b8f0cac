package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidate_Defaults(t *testing.T) {
	if err := Validate(NewTestConfig().Build()); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"relative ingest url", func(c *Config) { c.Ingest.URL = "/logs" }, "ingest.url"},
		{"ftp ingest url", func(c *Config) { c.Ingest.URL = "ftp://ingest.example.com" }, "ingest.url"},
		{"empty key header", func(c *Config) { c.Ingest.APIKeyHeader = " " }, "ingest.api_key_header"},
		{"bad listen address", func(c *Config) { c.Server.ListenAddress = "8080" }, "server.listen_address"},
		{"bad upstream", func(c *Config) { c.Server.Upstream = "::nope" }, "server.upstream"},
		{"tls without files", func(c *Config) { c.Server.TLS.Enabled = true }, "server.tls"},
		{"tls old version", func(c *Config) {
			c.Server.TLS = TLSConfig{Enabled: true, CertFile: "c.pem", KeyFile: "k.pem", MinVersion: "1.0"}
		}, "server.tls.min_version"},
		{"exclude without slash", func(c *Config) { c.Capture.ExcludePaths = []string{"health"} }, "capture.exclude_paths[0]"},
		{"exclude inner wildcard", func(c *Config) { c.Capture.ExcludePaths = []string{"/a/*/b"} }, "capture.exclude_paths[0]"},
		{"zero max records", func(c *Config) { c.Batch.MaxRecords = 0 }, "batch.max_records"},
		{"negative flush interval", func(c *Config) { c.Batch.FlushInterval = -time.Second }, "batch.flush_interval"},
		{"too many retries", func(c *Config) { c.Delivery.MaxRetries = 11 }, "delivery.max_retries"},
		{"inverted waits", func(c *Config) { c.Delivery.RetryWaitMax = time.Millisecond }, "delivery.retry_wait_max"},
		{"no workers", func(c *Config) { c.Delivery.Workers = 0 }, "delivery.workers"},
		{"no queue", func(c *Config) { c.Delivery.QueueSize = 0 }, "delivery.queue_size"},
		{"unknown backend", func(c *Config) { c.Ledger.Backend = "postgres" }, "ledger.backend"},
		{"unknown driver", func(c *Config) { c.Ledger.Backend = "sqlite"; c.Ledger.SQLite.Driver = "pg" }, "ledger.sqlite.driver"},
		{"bad cron", func(c *Config) { c.Ledger.Retention.PruneSchedule = "every day" }, "ledger.retention.prune_schedule"},
		{"bad log level", func(c *Config) { c.Telemetry.Logging.Level = "loud" }, "telemetry.logging.level"},
		{"bad log format", func(c *Config) { c.Telemetry.Logging.Format = "xml" }, "telemetry.logging.format"},
		{"tracing without endpoint", func(c *Config) { c.Telemetry.Tracing.Enabled = true }, "telemetry.tracing.endpoint"},
		{"saturation above one", func(c *Config) { c.Telemetry.Health.QueueSaturation = 1.5 }, "telemetry.health.queue_saturation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewTestConfig().Build()
			tt.mutate(cfg)

			err := Validate(cfg)
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			if !verr.Has(tt.wantField) {
				t.Errorf("errors %v do not mention %s", verr.Errors, tt.wantField)
			}
		})
	}
}

func TestValidate_DisabledLedgerSkipsChecks(t *testing.T) {
	cfg := NewTestConfig().WithLedgerBackend("postgres").Build()
	cfg.Ledger.Enabled = false
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidationError_Message(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}}}
	if single.Error() != "configuration validation failed: a: bad" {
		t.Errorf("single = %q", single.Error())
	}

	multi := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}, {Field: "b", Message: "worse"}}}
	if !strings.Contains(multi.Error(), "2 errors") || !strings.Contains(multi.Error(), "b: worse") {
		t.Errorf("multi = %q", multi.Error())
	}
}
