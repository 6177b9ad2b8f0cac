// Package tls terminates HTTPS on the proxy listener. Certificates are
// served through a CertificateReloader so that a renewed pair on disk is
// picked up without a restart.
package tls

import (
	"crypto/tls"
	"fmt"
	"log/slog"

	"github.com/FireTail-io/firetail-go-lib/pkg/config"
)

// NewServerConfig builds the listener configuration for cfg. The returned
// reloader has not loaded anything yet; call Start before accepting
// connections.
func NewServerConfig(cfg config.TLSConfig, logger *slog.Logger) (*tls.Config, *CertificateReloader, error) {
	if !cfg.Enabled {
		return nil, nil, fmt.Errorf("TLS is not enabled")
	}
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return nil, nil, fmt.Errorf("cert_file and key_file are required")
	}

	minVersion, err := parseTLSVersion(cfg.MinVersion)
	if err != nil {
		return nil, nil, err
	}

	reloader := NewCertificateReloader(cfg.CertFile, cfg.KeyFile, cfg.ReloadInterval, logger)
	return &tls.Config{
		MinVersion:     minVersion,
		NextProtos:     []string{"h2", "http/1.1"},
		GetCertificate: reloader.GetCertificateFunc(),
	}, reloader, nil
}

func parseTLSVersion(v string) (uint16, error) {
	switch v {
	case "", "1.2":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("unsupported TLS version %q", v)
	}
}
