package logging

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/FireTail-io/firetail-go-lib/pkg/config"
)

// Mask replaces redacted values.
const Mask = "[REDACTED]"

// Redactor removes credentials from log output.
type Redactor struct {
	patterns []*redactPattern
	secrets  []string
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternBearerToken = "bearer_token"
	PatternKeyValue    = "key_value"
)

var defaultPatterns = []struct {
	name        string
	regex       string
	replacement string
}{
	{PatternBearerToken, `(?i)bearer\s+[a-z0-9\-._~+/]+=*`, "Bearer " + Mask},
	{PatternKeyValue, `(?i)((?:api[-_]?key|x-ft-api-key|token|secret|password)\s*[:=]\s*)[^\s,;&"]+`, "${1}" + Mask},
}

// sensitiveKeys are attribute key fragments whose values are always masked.
var sensitiveKeys = []string{
	"api_key", "apikey", "api-key",
	"authorization", "token", "secret", "password", "cookie",
}

// NewRedactor creates a Redactor with the built-in patterns, the custom
// patterns and the literal secrets. Invalid custom patterns are skipped.
func NewRedactor(custom []config.RedactPattern, secrets ...string) *Redactor {
	r := &Redactor{}

	for _, p := range defaultPatterns {
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		})
	}

	for _, p := range custom {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		replacement := p.Replacement
		if replacement == "" {
			replacement = Mask
		}
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: replacement,
		})
	}

	for _, s := range secrets {
		if len(s) >= 4 {
			r.secrets = append(r.secrets, s)
		}
	}

	return r
}

// RedactString removes secrets and pattern matches from value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, s := range r.secrets {
		value = strings.ReplaceAll(value, s, Mask)
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// RedactAttr returns a with credential values masked. Groups are walked
// recursively.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	if v.Kind() == slog.KindGroup {
		attrs := v.Group()
		out := make([]any, len(attrs))
		for i, ga := range attrs {
			out[i] = r.RedactAttr(ga)
		}
		return slog.Group(a.Key, out...)
	}

	if IsSensitiveKey(a.Key) {
		return slog.String(a.Key, Mask)
	}

	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, r.RedactString(v.String()))
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
		if s, ok := v.Any().(fmt.Stringer); ok {
			return slog.String(a.Key, r.RedactString(s.String()))
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}

// IsSensitiveKey reports whether an attribute key names a credential.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// RedactAPIKey keeps the first four characters of a key for identification.
func RedactAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "***"
	}
	return apiKey[:4] + "***"
}
