package firetail

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/FireTail-io/firetail-go-lib/pkg/delivery"
	"github.com/FireTail-io/firetail-go-lib/pkg/ledger"
	"github.com/FireTail-io/firetail-go-lib/pkg/telemetry/tracing"
)

// Option customizes a Pipeline.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	registry   *prometheus.Registry
	tracer     *tracing.Tracer
	httpClient *http.Client
	deliverer  delivery.Deliverer
	store      ledger.Storage
	version    string
}

// WithLogger uses logger instead of one built from the logging section.
// Runtime level changes then become the caller's concern.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRegistry registers metrics on registry instead of a private one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = registry
	}
}

// WithTracer uses t instead of a tracer built from the tracing section.
// The caller keeps ownership; Close does not shut it down.
func WithTracer(t *tracing.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// WithHTTPClient sets the HTTP client used for deliveries.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithDeliverer replaces the HTTP delivery client entirely.
func WithDeliverer(d delivery.Deliverer) Option {
	return func(o *options) {
		o.deliverer = d
	}
}

// WithLedgerStorage records outcomes to s instead of opening the configured
// backend. The caller keeps ownership of s.
func WithLedgerStorage(s ledger.Storage) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithVersion sets the version reported to tracing and the version endpoint.
func WithVersion(version string) Option {
	return func(o *options) {
		o.version = version
	}
}
