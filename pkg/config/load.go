package config

import (
	"context"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/FireTail-io/firetail-go-lib/pkg/security/secrets"
)

// EnvPrefix prefixes every environment variable read by the loader.
const EnvPrefix = "FIRETAIL"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	cfg, err := decodeFile(path)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from an optional YAML file
// and applies environment variable overrides. An empty path skips the file.
//
// Environment variables follow the convention FIRETAIL_SECTION_FIELD (for
// example FIRETAIL_DELIVERY_MAX_RETRIES or FIRETAIL_TELEMETRY_LOGGING_LEVEL).
// The ingestion settings use the short names FIRETAIL_URL, FIRETAIL_APIKEY and
// FIRETAIL_API_KEY_HEADER. Environment variables always win over the file.
//
// The loading sequence is:
// 1. Start from Default()
// 2. Decode the YAML file on top
// 3. Apply environment variable overrides
// 4. Resolve ${secret:name} references in the ingest URL and API key
// 5. Fill remaining zero values with defaults
// 6. Validate the final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := decodeFile(path)
	if err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := resolveSecrets(context.Background(), &cfg.Ingest); err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// decodeFile returns Default() overlaid with the file at path. An empty path
// returns the defaults unchanged.
func decodeFile(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	return cfg, nil
}

// applyEnvOverrides overlays FIRETAIL_* variables onto cfg. Unset variables
// leave the current value alone.
func applyEnvOverrides(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg.Ingest); err != nil {
		return fmt.Errorf("failed to apply ingest environment overrides: %w", err)
	}
	return nil
}

// resolveSecrets replaces secret references in the ingest credentials. The
// secrets directory is only opened when a reference is present.
func resolveSecrets(ctx context.Context, cfg *IngestConfig) error {
	if !secrets.HasReferences(cfg.URL) && !secrets.HasReferences(cfg.APIKey) {
		return nil
	}

	mgr, err := secrets.Default(cfg.SecretsDir)
	if err != nil {
		return fmt.Errorf("failed to open secrets directory: %w", err)
	}

	if cfg.URL, err = mgr.ResolveReferences(ctx, cfg.URL); err != nil {
		return fmt.Errorf("ingest.url: %w", err)
	}
	if cfg.APIKey, err = mgr.ResolveReferences(ctx, cfg.APIKey); err != nil {
		return fmt.Errorf("ingest.api_key: %w", err)
	}
	return nil
}

// Redacted returns a copy of cfg safe for printing.
func Redacted(cfg *Config) *Config {
	out := *cfg
	if out.Ingest.APIKey != "" {
		out.Ingest.APIKey = "[REDACTED]"
	}
	return &out
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
