// Package interceptor is the net/http middleware that turns each exchange
// into a telemetry record.
//
// For every request the interceptor reads and restores the request body,
// runs the wrapped handler behind a capturing ResponseWriter, then builds,
// serializes and buffers the record. When the buffer reports a flush the
// drained batch is handed to the dispatcher, which delivers it on its own
// goroutines.
//
// Telemetry never changes the exchange: the handler reads the client's body
// byte for byte, the client receives the handler's response unmodified, and
// capture failures are logged and counted instead of being returned. A
// panicking handler is not recovered; the panic continues up the stack.
package interceptor

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/FireTail-io/firetail-go-lib/pkg/batch"
	"github.com/FireTail-io/firetail-go-lib/pkg/record"
	"github.com/FireTail-io/firetail-go-lib/pkg/telemetry/metrics"
)

// Dispatcher receives batches the buffer has cut. Dispatch must not block.
type Dispatcher interface {
	Dispatch(b *batch.Batch) error
}

// Interceptor records HTTP exchanges.
type Interceptor struct {
	builder    *record.Builder
	buffer     *batch.Buffer
	dispatcher Dispatcher
	metrics    *metrics.Collector
	logger     *slog.Logger
	now        func() time.Time

	enabled  atomic.Bool
	excludes atomic.Pointer[pathMatcher]

	// closeMu orders Close against in-flight appends: once Close returns
	// no exchange can reach the buffer.
	closeMu sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

// kindClosed is the capture error kind for exchanges completed after Close.
const kindClosed = "closed"

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithBuilder replaces the default record builder.
func WithBuilder(b *record.Builder) Option {
	return func(i *Interceptor) {
		if b != nil {
			i.builder = b
		}
	}
}

// WithMetrics reports capture metrics to c.
func WithMetrics(c *metrics.Collector) Option {
	return func(i *Interceptor) {
		i.metrics = c
	}
}

// WithLogger sets the interceptor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Interceptor) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithExcludePaths skips exchanges whose path matches one of patterns.
// A pattern is an exact path or a prefix ending in '*'.
func WithExcludePaths(patterns []string) Option {
	return func(i *Interceptor) {
		i.excludes.Store(newPathMatcher(patterns))
	}
}

// WithEnabled sets the initial capture state. Capture is enabled by
// default.
func WithEnabled(enabled bool) Option {
	return func(i *Interceptor) {
		i.enabled.Store(enabled)
	}
}

// WithClock replaces time.Now for exchange timing.
func WithClock(now func() time.Time) Option {
	return func(i *Interceptor) {
		if now != nil {
			i.now = now
		}
	}
}

// New creates an Interceptor appending to buffer and handing flushed
// batches to dispatcher.
func New(buffer *batch.Buffer, dispatcher Dispatcher, opts ...Option) *Interceptor {
	i := &Interceptor{
		builder:    record.NewBuilder(),
		buffer:     buffer,
		dispatcher: dispatcher,
		logger:     slog.Default(),
		now:        time.Now,
	}
	i.enabled.Store(true)
	i.excludes.Store(newPathMatcher(nil))

	for _, opt := range opts {
		opt(i)
	}
	i.logger = i.logger.With("component", "interceptor")
	return i
}

// SetEnabled turns capture on or off without removing the middleware.
func (i *Interceptor) SetEnabled(enabled bool) {
	i.enabled.Store(enabled)
}

// SetExcludePaths replaces the exclusion patterns.
func (i *Interceptor) SetExcludePaths(patterns []string) {
	i.excludes.Store(newPathMatcher(patterns))
}

// Enabled reports whether capture is on.
func (i *Interceptor) Enabled() bool {
	return i.enabled.Load()
}

// Skip reports whether r should pass through without being recorded.
func (i *Interceptor) Skip(r *http.Request) bool {
	return !i.enabled.Load() || i.isClosed() || i.excludes.Load().match(r.URL.Path)
}

// Close stops capture for good. Exchanges that start afterwards pass
// through unrecorded; exchanges already in flight that complete afterwards
// are counted as dropped. The buffer is left for the caller to drain.
func (i *Interceptor) Close() {
	i.closeMu.Lock()
	i.closed = true
	i.closeMu.Unlock()
}

// Dropped returns the number of completed exchanges discarded because the
// interceptor was closed.
func (i *Interceptor) Dropped() uint64 {
	return i.dropped.Load()
}

func (i *Interceptor) isClosed() bool {
	i.closeMu.RLock()
	defer i.closeMu.RUnlock()
	return i.closed
}

// Middleware returns the interceptor as a net/http middleware.
func (i *Interceptor) Middleware() func(http.Handler) http.Handler {
	return i.Wrap
}

// Wrap returns next wrapped with exchange capture.
func (i *Interceptor) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := i.Begin(r)
		if c == nil {
			next.ServeHTTP(w, r)
			return
		}
		defer c.Abort()

		cw := newCaptureWriter(w)
		next.ServeHTTP(cw, r)

		if cw.hijacked {
			c.Discard()
			return
		}
		c.Finish(cw.Status(), cw.CapturedHeader(), cw)
	})
}

// Capture is an exchange in progress, started by Begin and ended by exactly
// one of Finish, Discard or Abort.
type Capture struct {
	icpt    *Interceptor
	req     *http.Request
	header  http.Header
	body    []byte
	readErr error
	start   time.Time
	done    bool
}

// Begin starts capturing r: it notes the start time, snapshots the request
// headers and restores the request body for the handler. It returns nil
// when r is not recorded.
func (i *Interceptor) Begin(r *http.Request) *Capture {
	if i.Skip(r) {
		return nil
	}
	c := &Capture{icpt: i, req: r, start: i.now()}
	c.body, c.readErr = RestoreBody(r)
	c.header = r.Header.Clone()
	return c
}

// Finish records the exchange with the response the client received.
func (c *Capture) Finish(status int, header http.Header, body record.BodySource) {
	if c.done {
		return
	}
	c.done = true

	if c.readErr != nil {
		c.icpt.reject(c.req, c.readErr)
		return
	}
	c.icpt.Observe(&record.Exchange{
		Request:        c.req,
		RequestHeader:  c.header,
		RequestBody:    c.body,
		StatusCode:     status,
		ResponseHeader: header,
		ResponseBody:   body,
		Start:          c.start,
		End:            c.icpt.now(),
	})
}

// Discard ends the capture without a record. Used when the handler took
// over the connection.
func (c *Capture) Discard() {
	c.done = true
}

// Abort is deferred by callers. If the handler did not return normally it
// counts the panic and lets it continue; after Finish or Discard it does
// nothing.
func (c *Capture) Abort() {
	if c.done {
		return
	}
	c.done = true
	c.icpt.metrics.RecordPanic()
	c.icpt.logger.WarnContext(c.req.Context(), "handler panicked, exchange not recorded",
		"method", c.req.Method,
		"path", c.req.URL.Path,
	)
}

// Observe builds the record for a completed exchange and buffers it.
// Observe never fails; problems are logged and counted.
func (i *Interceptor) Observe(ex *record.Exchange) {
	r := ex.Request
	rec, err := i.builder.Build(ex)
	if err != nil {
		var clockErr *record.ClockError
		if !errors.As(err, &clockErr) {
			i.reject(r, err)
			return
		}
		i.metrics.RecordCaptureError(record.ErrorKind(err))
		i.logger.WarnContext(r.Context(), "clock went backwards, recording zero execution time",
			"error", err,
		)
	}

	i.metrics.RecordExchange(rec.Request.Method, rec.Request.Resource, rec.Response.StatusCode)

	line, err := record.Marshal(rec)
	if err != nil {
		i.reject(r, err)
		return
	}

	i.submit(r, line)
}

func (i *Interceptor) submit(r *http.Request, line []byte) {
	i.closeMu.RLock()
	if i.closed {
		i.closeMu.RUnlock()
		i.dropped.Add(1)
		i.metrics.RecordCaptureError(kindClosed)
		i.logger.WarnContext(r.Context(), "exchange completed after close, record dropped",
			"method", r.Method,
			"path", r.URL.Path,
		)
		return
	}
	decision, b := i.buffer.Append(line)
	i.closeMu.RUnlock()

	stats := i.buffer.Stats()
	i.metrics.UpdateBuffer(stats.Records, stats.Bytes)

	if decision != batch.TriggerFlush {
		return
	}

	i.metrics.RecordFlush(string(b.Trigger))
	if err := i.dispatcher.Dispatch(b); err != nil {
		i.logger.DebugContext(r.Context(), "flushed batch not dispatched",
			"batch_id", b.ID,
			"error", err,
		)
	}
}

func (i *Interceptor) reject(r *http.Request, err error) {
	kind := record.ErrorKind(err)
	i.metrics.RecordCaptureError(kind)
	i.logger.WarnContext(r.Context(), "exchange not recorded",
		"kind", kind,
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
}

// pathMatcher matches exact paths and '*'-terminated prefixes.
type pathMatcher struct {
	exact    map[string]struct{}
	prefixes []string
}

func newPathMatcher(patterns []string) *pathMatcher {
	m := &pathMatcher{exact: make(map[string]struct{}, len(patterns))}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if strings.HasSuffix(p, "*") {
			m.prefixes = append(m.prefixes, strings.TrimSuffix(p, "*"))
			continue
		}
		m.exact[p] = struct{}{}
	}
	return m
}

func (m *pathMatcher) match(path string) bool {
	if _, ok := m.exact[path]; ok {
		return true
	}
	for _, p := range m.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
