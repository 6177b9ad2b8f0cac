package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/FireTail-io/firetail-go-lib/pkg/resource"
)

// Builder turns exchanges into telemetry records. A Builder is safe for
// concurrent use.
type Builder struct {
	normalize         func(string) string
	trustForwardedFor bool
	includeHostHeader bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithNormalizer replaces the resource path normalizer.
func WithNormalizer(fn func(string) string) Option {
	return func(b *Builder) {
		b.normalize = fn
	}
}

// WithTrustForwardedFor makes the builder take the client IP from the first
// X-Forwarded-For entry and the scheme from X-Forwarded-Proto. Only enable
// it behind a proxy that sets those headers.
func WithTrustForwardedFor(trust bool) Option {
	return func(b *Builder) {
		b.trustForwardedFor = trust
	}
}

// WithHostHeader controls whether the Host header, which net/http moves
// out of Request.Header, is put back into the recorded headers.
func WithHostHeader(include bool) Option {
	return func(b *Builder) {
		b.includeHostHeader = include
	}
}

// NewBuilder creates a Builder using resource.Normalize for paths.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		normalize:         resource.Normalize,
		includeHostHeader: true,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build assembles the record for ex.
//
// A *ClockError is not fatal: the returned record is complete with an
// execution time of zero. Any other error means no record was produced.
func (b *Builder) Build(ex *Exchange) (*TelemetryRecord, error) {
	if ex == nil || ex.Request == nil {
		return nil, NewCaptureError("request", ErrBodyUnavailable)
	}
	r := ex.Request

	reqBody, err := bodyText("request_body", ex.RequestBody)
	if err != nil {
		return nil, err
	}

	var respBytes []byte
	if ex.ResponseBody != nil {
		respBytes = ex.ResponseBody.Bytes()
	}
	respBody, err := bodyText("response_body", respBytes)
	if err != nil {
		return nil, err
	}

	reqHeader := ex.RequestHeader
	if reqHeader == nil {
		reqHeader = r.Header
	}
	headers := cloneHeader(reqHeader)
	if b.includeHostHeader && r.Host != "" {
		if _, ok := headers["Host"]; !ok {
			headers["Host"] = []string{r.Host}
		}
	}

	status := ex.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	dateCreated, execTime, clockErr := timing(ex)

	rec := &TelemetryRecord{
		Version:       SchemaVersion,
		DateCreated:   dateCreated,
		ExecutionTime: execTime,
		Request: RequestInfo{
			HTTPProtocol: ProtocolLabel(r.ProtoMajor, r.ProtoMinor),
			Headers:      headers,
			Method:       r.Method,
			Body:         reqBody,
			IP:           b.clientIP(r, reqHeader),
			Resource:     b.normalize(r.URL.Path),
			URI:          b.uri(r, reqHeader),
		},
		Response: ResponseInfo{
			StatusCode: status,
			Headers:    cloneHeader(ex.ResponseHeader),
			Body:       respBody,
		},
	}

	if clockErr != nil {
		return rec, clockErr
	}
	return rec, nil
}

// Marshal encodes rec as a single line of JSON without a trailing newline.
// HTML characters are left unescaped.
func Marshal(rec *TelemetryRecord) ([]byte, error) {
	if rec == nil {
		return nil, &SerializationError{Cause: errors.New("nil record")}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, &SerializationError{Cause: err}
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// ProtocolLabel maps a protocol version to its record label. Versions that
// are not HTTP/0.9, 1.0, 1.1, 2 or 3 are labelled "Unknown".
func ProtocolLabel(major, minor int) string {
	switch {
	case major == 0 && minor == 9:
		return "HTTP/0.9"
	case major == 1 && minor == 0:
		return "HTTP/1.0"
	case major == 1 && minor == 1:
		return "HTTP/1.1"
	case major == 2 && minor == 0:
		return "HTTP/2.0"
	case major == 3 && minor == 0:
		return "HTTP/3.0"
	default:
		return "Unknown"
	}
}

func (b *Builder) clientIP(r *http.Request, h http.Header) string {
	if b.trustForwardedFor {
		if xff := h.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (b *Builder) uri(r *http.Request, h http.Header) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	} else if b.trustForwardedFor {
		if proto := strings.ToLower(h.Get("X-Forwarded-Proto")); proto == "https" || proto == "http" {
			scheme = proto
		}
	}
	host := r.Host
	if host == "" {
		host = r.URL.Host
	}
	return scheme + "://" + host + r.URL.RequestURI()
}

func timing(ex *Exchange) (dateCreated, execTime uint64, err error) {
	start, end := ex.Start, ex.End
	switch {
	case start.IsZero() && end.IsZero():
		return 0, 0, &ClockError{}
	case start.IsZero():
		return uint64(end.UnixMilli()), 0, &ClockError{End: end.UnixMilli()}
	case end.IsZero():
		return uint64(start.UnixMilli()), 0, &ClockError{Start: start.UnixMilli()}
	case end.Before(start):
		return uint64(start.UnixMilli()), 0, &ClockError{Start: start.UnixMilli(), End: end.UnixMilli()}
	}
	return uint64(start.UnixMilli()), uint64(end.Sub(start).Milliseconds()), nil
}

func bodyText(part string, body []byte) (string, error) {
	if len(body) == 0 {
		return "", nil
	}
	if !utf8.Valid(body) {
		return "", NewDecodeError(part, firstInvalid(body))
	}
	return string(body), nil
}

func firstInvalid(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return len(b)
}

func cloneHeader(h http.Header) map[string][]string {
	out := make(map[string][]string, len(h))
	for k, v := range h {
		vals := make([]string, len(v))
		copy(vals, v)
		out[k] = vals
	}
	return out
}
