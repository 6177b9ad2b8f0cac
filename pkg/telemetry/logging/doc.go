// Package logging builds the process logger on top of log/slog.
//
// # Overview
//
// New returns a *slog.Logger whose handler:
//   - writes JSON or text to the configured writer
//   - reads its minimum level from a slog.LevelVar, so the level can be
//     changed at runtime (config hot reload)
//   - redacts credentials from attribute values and messages
//   - adds the request ID carried in the context to every record
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:   "info",
//	    Format:  "json",
//	    Redact:  true,
//	    Secrets: []string{cfg.Ingest.APIKey},
//	})
//	slog.SetDefault(logger.Logger)
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	logger.InfoContext(ctx, "batch delivered", "records", 10)
//
// # Redaction
//
// Attributes whose key names a credential (api_key, authorization, token,
// secret, password) are masked outright. Other string values are scanned for
// bearer tokens, key=value credentials, the configured secrets and any custom
// patterns.
package logging
