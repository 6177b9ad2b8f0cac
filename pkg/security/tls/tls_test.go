package tls

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/FireTail-io/firetail-go-lib/pkg/config"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// writePair writes a self-signed certificate for cn valid between
// notBefore and notAfter.
func writePair(t *testing.T, dir, cn string, notBefore, notAfter time.Time) (certFile, keyFile string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: cn},
		DNSNames:     []string{"localhost"},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}

	certFile = filepath.Join(dir, "tls.crt")
	keyFile = filepath.Join(dir, "tls.key")
	if err := os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
		t.Fatal(err)
	}
	return certFile, keyFile
}

func validPair(t *testing.T, dir, cn string) (string, string) {
	now := time.Now()
	return writePair(t, dir, cn, now.Add(-time.Hour), now.Add(90*24*time.Hour))
}

func TestNewServerConfig(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := validPair(t, dir, "proxy.local")

	tests := []struct {
		name    string
		cfg     config.TLSConfig
		wantMin uint16
		wantErr bool
	}{
		{"tls12", config.TLSConfig{Enabled: true, CertFile: certFile, KeyFile: keyFile, MinVersion: "1.2"}, tls.VersionTLS12, false},
		{"tls13", config.TLSConfig{Enabled: true, CertFile: certFile, KeyFile: keyFile, MinVersion: "1.3"}, tls.VersionTLS13, false},
		{"disabled", config.TLSConfig{CertFile: certFile, KeyFile: keyFile}, 0, true},
		{"missing key", config.TLSConfig{Enabled: true, CertFile: certFile}, 0, true},
		{"old version", config.TLSConfig{Enabled: true, CertFile: certFile, KeyFile: keyFile, MinVersion: "1.1"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tlsCfg, reloader, err := NewServerConfig(tt.cfg, quiet)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewServerConfig() error = %v", err)
			}
			if tlsCfg.MinVersion != tt.wantMin {
				t.Errorf("MinVersion = %x, want %x", tlsCfg.MinVersion, tt.wantMin)
			}
			if _, err := tlsCfg.GetCertificate(nil); err == nil {
				t.Error("GetCertificate before Start should fail")
			}
			if err := reloader.Start(context.Background()); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			cert, err := tlsCfg.GetCertificate(nil)
			if err != nil || cert.Leaf.Subject.CommonName != "proxy.local" {
				t.Errorf("GetCertificate() = %v, %v", cert, err)
			}
		})
	}
}

func TestCertificateReloader_RejectsInvalidPairs(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name      string
		notBefore time.Time
		notAfter  time.Time
	}{
		{"expired", now.Add(-48 * time.Hour), now.Add(-24 * time.Hour)},
		{"not yet valid", now.Add(24 * time.Hour), now.Add(48 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			certFile, keyFile := writePair(t, t.TempDir(), "bad", tt.notBefore, tt.notAfter)
			r := NewCertificateReloader(certFile, keyFile, 0, quiet)
			if err := r.Start(context.Background()); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	r := NewCertificateReloader(filepath.Join(t.TempDir(), "none.crt"), "none.key", 0, quiet)
	if err := r.Start(context.Background()); err == nil {
		t.Error("expected error for missing files")
	}
}

func TestCertificateReloader_PicksUpRenewal(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := validPair(t, dir, "first")

	r := NewCertificateReloader(certFile, keyFile, time.Hour, quiet)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if r.checkAndReload() {
		t.Error("unchanged pair should not reload")
	}

	validPair(t, dir, "second")
	later := time.Now().Add(time.Minute)
	for _, f := range []string{certFile, keyFile} {
		if err := os.Chtimes(f, later, later); err != nil {
			t.Fatal(err)
		}
	}

	if !r.checkAndReload() {
		t.Fatal("renewed pair was not reloaded")
	}
	if cn := r.GetCertificate().Leaf.Subject.CommonName; cn != "second" {
		t.Errorf("CommonName = %q, want second", cn)
	}
}

func TestCertificateReloader_KeepsCertificateOnBadRenewal(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := validPair(t, dir, "good")

	r := NewCertificateReloader(certFile, keyFile, 0, quiet)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := os.WriteFile(certFile, []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(certFile, later, later); err != nil {
		t.Fatal(err)
	}

	if r.checkAndReload() {
		t.Error("garbage pair should not load")
	}
	if cn := r.GetCertificate().Leaf.Subject.CommonName; cn != "good" {
		t.Errorf("CommonName = %q, want good", cn)
	}
}

func TestCheckCertificateExpiration(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name     string
		notAfter time.Time
		wantSoon bool
	}{
		{"plenty", now.Add(90 * 24 * time.Hour), false},
		{"soon", now.Add(10 * 24 * time.Hour), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, soon := CheckCertificateExpiration(&x509.Certificate{NotAfter: tt.notAfter})
			if soon != tt.wantSoon {
				t.Errorf("expiringSoon = %v, want %v", soon, tt.wantSoon)
			}
		})
	}
}
