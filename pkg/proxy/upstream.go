package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"
)

// Config describes the upstream application.
type Config struct {
	// Target is the base URL requests are forwarded to.
	Target string

	// Transport overrides the round tripper. Defaults to a clone of
	// http.DefaultTransport.
	Transport http.RoundTripper

	// FlushInterval is passed to httputil.ReverseProxy. Negative flushes
	// after every write.
	FlushInterval time.Duration
}

// NewUpstream returns a reverse proxy to cfg.Target.
//
// The inbound request is never mutated: capture middleware running in front
// of the proxy has already recorded it. Forwarding headers are added to the
// outbound copy only.
func NewUpstream(cfg Config, logger *slog.Logger) (*httputil.ReverseProxy, error) {
	if cfg.Target == "" {
		return nil, errors.New("upstream target is required")
	}
	target, err := url.Parse(cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream target %q: %w", cfg.Target, err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("invalid upstream target %q: scheme must be http or https", cfg.Target)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "proxy")

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}

	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Host = pr.In.Host
		},
		Transport:     transport,
		FlushInterval: cfg.FlushInterval,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
				// client went away
				w.WriteHeader(499)
				return
			}
			upErr := &UpstreamError{Target: target.Host, Method: r.Method, Path: r.URL.Path, Cause: err}
			status := upErr.StatusCode()
			logger.WarnContext(r.Context(), "upstream request failed",
				"error", upErr,
				"status", status,
			)
			WriteError(w, status, http.StatusText(status))
		},
	}
	return rp, nil
}
