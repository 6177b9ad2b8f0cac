package logging

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/FireTail-io/firetail-go-lib/pkg/config"
)

func TestRedactor_RedactString(t *testing.T) {
	r := NewRedactor([]config.RedactPattern{
		{Name: "card", Pattern: `\b\d{4}-\d{4}-\d{4}-\d{4}\b`, Replacement: "[CARD]"},
		{Name: "broken", Pattern: `(`},
	}, "topsecretkey", "abc")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "nothing to see", "nothing to see"},
		{"literal secret", "key is topsecretkey", "key is [REDACTED]"},
		{"short secret ignored", "abc", "abc"},
		{"bearer", "Authorization: Bearer eyJhbGci.x", "Authorization: Bearer [REDACTED]"},
		{"key value", "api_key=hunter2&x=1", "api_key=[REDACTED]&x=1"},
		{"firetail header", "x-ft-api-key: zzz", "x-ft-api-key: [REDACTED]"},
		{"custom pattern", "card 1234-5678-9012-3456", "card [CARD]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.RedactString(tt.input); got != tt.want {
				t.Errorf("RedactString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRedactor_RedactAttr(t *testing.T) {
	r := NewRedactor(nil, "topsecretkey")

	tests := []struct {
		name string
		attr slog.Attr
		want string
	}{
		{"sensitive key", slog.String("APIKey", "anything"), Mask},
		{"authorization", slog.String("Authorization", "Basic xyz"), Mask},
		{"error value", slog.Any("err", errors.New("bad key topsecretkey")), "bad key [REDACTED]"},
		{"int untouched", slog.Int("count", 3), "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.RedactAttr(tt.attr)
			if got.Value.String() != tt.want {
				t.Errorf("RedactAttr() = %q, want %q", got.Value.String(), tt.want)
			}
		})
	}
}

func TestRedactor_Group(t *testing.T) {
	r := NewRedactor(nil)

	got := r.RedactAttr(slog.Group("ingest", slog.String("token", "t"), slog.String("url", "u")))
	attrs := got.Value.Group()
	if len(attrs) != 2 {
		t.Fatalf("group has %d attrs", len(attrs))
	}
	if attrs[0].Value.String() != Mask {
		t.Errorf("token = %q", attrs[0].Value.String())
	}
	if attrs[1].Value.String() != "u" {
		t.Errorf("url = %q", attrs[1].Value.String())
	}
}

func TestRedactAPIKey(t *testing.T) {
	if got := RedactAPIKey("short"); got != "***" {
		t.Errorf("RedactAPIKey(short) = %q", got)
	}
	if got := RedactAPIKey("ftkey-123456789"); got != "ftke***" {
		t.Errorf("RedactAPIKey(long) = %q", got)
	}
}
