package secrets

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSecret(t *testing.T, dir, name, value string, perm os.FileMode) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(value), perm); err != nil {
		t.Fatal(err)
	}
	// WriteFile honours umask; force the mode under test.
	if err := os.Chmod(path, perm); err != nil {
		t.Fatal(err)
	}
}

func TestFileProvider_GetSecret(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, "api-key", "ft-from-file\n", 0o600)
	writeSecret(t, dir, "loose", "value", 0o644)
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o700); err != nil {
		t.Fatal(err)
	}

	p, err := NewFileProvider(dir)
	if err != nil {
		t.Fatalf("NewFileProvider() error = %v", err)
	}

	tests := []struct {
		name    string
		secret  string
		want    string
		wantErr string
	}{
		{"trimmed", "api-key", "ft-from-file", ""},
		{"missing", "nope", "", "not found"},
		{"insecure", "loose", "", "insecure permissions"},
		{"directory", "nested", "", "not a regular file"},
		{"traversal", "../etc/passwd", "", "directory traversal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.GetSecret(context.Background(), tt.secret)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("GetSecret() = %q, %v", got, err)
			}
		})
	}

	if !p.Supports("api-key") || p.Supports("nope") || p.Supports("nested") {
		t.Error("Supports() mismatch")
	}
}

func TestNewFileProvider_NotDirectory(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, "file", "x", 0o600)
	if _, err := NewFileProvider(filepath.Join(dir, "file")); err == nil {
		t.Error("expected error for a file base path")
	}
	if _, err := NewFileProvider(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for a missing base path")
	}
}

func TestEnvProvider(t *testing.T) {
	t.Setenv("FIRETAIL_SECRET_FIRETAIL_API_KEY", "ft-from-env")
	p := NewEnvProvider(DefaultEnvPrefix)

	got, err := p.GetSecret(context.Background(), "firetail-api-key")
	if err != nil || got != "ft-from-env" {
		t.Errorf("GetSecret() = %q, %v", got, err)
	}
	if _, err := p.GetSecret(context.Background(), "other"); err == nil {
		t.Error("expected error for unset variable")
	}
}

func TestManager_ResolveReferences(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, "file-key", "from-file", 0o400)
	t.Setenv("FIRETAIL_SECRET_ENV_KEY", "from-env")
	t.Setenv("FIRETAIL_SECRET_FILE_KEY", "shadowed")

	m, err := Default(dir)
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"plain-key", "plain-key", false},
		{"${secret:file-key}", "from-file", false},
		{"${secret:env-key}", "from-env", false},
		{"Bearer ${secret:env-key}", "Bearer from-env", false},
		{"${secret:missing-key}", "${secret:missing-key}", true},
	}
	for _, tt := range tests {
		got, err := m.ResolveReferences(context.Background(), tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ResolveReferences(%q) = %q, %v", tt.in, got, err)
		}
		if err != nil && strings.Contains(err.Error(), "missing-key") {
			t.Errorf("error leaks the secret name: %v", err)
		}
	}

	if !HasReferences("${secret:x}") || HasReferences("plain") {
		t.Error("HasReferences() mismatch")
	}
}

func TestDefault_BadDirectory(t *testing.T) {
	if _, err := Default(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("expected error for missing secrets directory")
	}
}
