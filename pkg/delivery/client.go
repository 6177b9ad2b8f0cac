// Package delivery ships drained batches to the Firetail ingestion endpoint.
//
// Client performs one delivery: a POST of the newline-delimited payload,
// retried on network errors, timeouts, 429 and 5xx responses with
// exponential backoff. Dispatcher runs deliveries on a fixed worker pool fed
// by a bounded queue so that the request path never waits on the network.
//
// A batch is delivered at most once. Whatever the outcome, it is discarded
// afterwards; failed batches are logged and counted, never requeued.
package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/FireTail-io/firetail-go-lib/pkg/batch"
	"github.com/FireTail-io/firetail-go-lib/pkg/config"
	"github.com/FireTail-io/firetail-go-lib/pkg/telemetry/tracing"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/gzip"
)

// ContentType is the media type of delivery payloads.
const ContentType = "application/x-ndjson"

// DefaultUserAgent identifies delivery requests.
const DefaultUserAgent = "firetail-go-lib"

// maxDrainBytes bounds how much of a response body is read before closing
// it so the connection can be reused.
const maxDrainBytes = 64 << 10

// Config configures a Client.
type Config struct {
	URL          string
	APIKey       string
	APIKeyHeader string

	// Timeout bounds each attempt, not the whole delivery.
	Timeout time.Duration

	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	Compress  bool
	UserAgent string
}

// ConfigFrom builds a client Config from the ingest and delivery sections.
func ConfigFrom(ingest config.IngestConfig, d config.DeliveryConfig) Config {
	return Config{
		URL:          ingest.URL,
		APIKey:       ingest.APIKey,
		APIKeyHeader: ingest.APIKeyHeader,
		Timeout:      d.Timeout,
		MaxRetries:   d.MaxRetries,
		RetryWaitMin: d.RetryWaitMin,
		RetryWaitMax: d.RetryWaitMax,
		Compress:     d.Compress,
	}
}

// Client delivers batches over HTTP.
type Client struct {
	cfg    Config
	http   *retryablehttp.Client
	logger *slog.Logger
	tracer *tracing.Tracer
	now    func() time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer traces each delivery.
func WithTracer(t *tracing.Tracer) ClientOption {
	return func(c *Client) {
		c.tracer = t
	}
}

// WithHTTPClient replaces the underlying *http.Client. Its Timeout is
// overridden by Config.Timeout when that is set.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http.HTTPClient = hc
		}
	}
}

type attemptsKey struct{}

// NewClient creates a delivery client.
func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("delivery: endpoint URL is required")
	}
	if cfg.APIKeyHeader == "" {
		cfg.APIKeyHeader = config.DefaultAPIKeyHeader
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryWaitMin <= 0 {
		cfg.RetryWaitMin = config.DefaultDeliveryRetryWaitMin
	}
	if cfg.RetryWaitMax < cfg.RetryWaitMin {
		cfg.RetryWaitMax = cfg.RetryWaitMin
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMin = cfg.RetryWaitMin
	rc.RetryWaitMax = cfg.RetryWaitMax
	rc.CheckRetry = checkRetry
	rc.Backoff = retryablehttp.DefaultBackoff
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.RequestLogHook = countAttempt

	c := &Client{
		cfg:    cfg,
		http:   rc,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With("component", "delivery.client")
	rc.Logger = c.logger
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	}

	return c, nil
}

// Deliver POSTs the batch payload, retrying transient failures. It never
// returns an error; failures are reported in the Outcome.
func (c *Client) Deliver(ctx context.Context, b *batch.Batch) Outcome {
	started := c.now()
	out := newOutcome(b, started)

	ctx, span := c.tracer.StartDelivery(ctx, b.ID, string(b.Trigger), b.Len(), b.Size)
	defer span.End()

	attempts := new(atomic.Int32)
	ctx = context.WithValue(ctx, attemptsKey{}, attempts)

	statusCode, err := c.post(ctx, b.Payload())

	out.Attempts = int(attempts.Load())
	out.StatusCode = statusCode
	out.Duration = c.now().Sub(started)
	if err != nil {
		out.Status = StatusFailed
		out.Err = NewDeliveryError(b.ID, statusCode, out.Attempts, err)
	} else {
		out.Status = StatusSucceeded
	}

	span.SetAttributes(
		tracing.AttrAttempts.Int(out.Attempts),
		tracing.AttrStatusCode.Int(out.StatusCode),
	)
	tracing.SetStatus(span, out.Err)

	return out
}

func (c *Client) post(ctx context.Context, payload []byte) (int, error) {
	body := payload
	encoding := ""
	if c.cfg.Compress {
		compressed, err := gzipPayload(payload)
		if err != nil {
			return 0, fmt.Errorf("compress payload: %w", err)
		}
		body = compressed
		encoding = "gzip"
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, body)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", ContentType)
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set(c.cfg.APIKeyHeader, c.cfg.APIKey)
	if encoding != "" {
		req.Header.Set("Content-Encoding", encoding)
	}
	tracing.Inject(ctx, req.Header)

	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil {
			drainAndClose(resp)
			return resp.StatusCode, err
		}
		return 0, err
	}
	defer drainAndClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return resp.StatusCode, nil
}

// checkRetry retries network errors, 429 and 5xx. Errors the default
// policy considers permanent (bad scheme, TLS verification, redirect
// loops) are not retried.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	return IsRetryableStatus(resp.StatusCode), nil
}

func countAttempt(_ retryablehttp.Logger, req *http.Request, _ int) {
	if n, ok := req.Context().Value(attemptsKey{}).(*atomic.Int32); ok {
		n.Add(1)
	}
}

func gzipPayload(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drainAndClose(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
	_ = resp.Body.Close()
}
