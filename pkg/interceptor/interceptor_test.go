package interceptor

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/FireTail-io/firetail-go-lib/pkg/batch"
	"github.com/FireTail-io/firetail-go-lib/pkg/config"
	"github.com/FireTail-io/firetail-go-lib/pkg/record"
	"github.com/FireTail-io/firetail-go-lib/pkg/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type recordingDispatcher struct {
	mu      sync.Mutex
	batches []*batch.Batch
	err     error
}

func (d *recordingDispatcher) Dispatch(b *batch.Batch) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.batches = append(d.batches, b)
	return d.err
}

func (d *recordingDispatcher) all() []*batch.Batch {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*batch.Batch(nil), d.batches...)
}

func newTestInterceptor(opts ...Option) (*Interceptor, *batch.Buffer, *recordingDispatcher) {
	buf := batch.NewBuffer(batch.DefaultConfig())
	disp := &recordingDispatcher{}
	return New(buf, disp, opts...), buf, disp
}

// drainRecords decodes everything currently buffered.
func drainRecords(t *testing.T, buf *batch.Buffer) []record.TelemetryRecord {
	t.Helper()
	b := buf.Drain(batch.TriggerManual)
	if b == nil {
		return nil
	}
	out := make([]record.TelemetryRecord, 0, b.Len())
	for _, line := range b.Records {
		var rec record.TelemetryRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			t.Fatalf("buffered record is not JSON: %v", err)
		}
		out = append(out, rec)
	}
	return out
}

func echoHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Add("X-Multi", "a")
		w.Header().Add("X-Multi", "b")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"echo":`))
		_, _ = w.Write(body)
		_, _ = w.Write([]byte(`}`))
	})
}

func TestWrap_ResponseUnchanged(t *testing.T) {
	icpt, _, _ := newTestInterceptor()

	send := func(h http.Handler) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/pets/42", strings.NewReader(`{"name":"rex"}`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	plain := send(echoHandler())
	wrapped := send(icpt.Wrap(echoHandler()))

	if plain.Code != wrapped.Code {
		t.Errorf("status %d != %d", wrapped.Code, plain.Code)
	}
	if !bytes.Equal(plain.Body.Bytes(), wrapped.Body.Bytes()) {
		t.Errorf("body %q != %q", wrapped.Body.String(), plain.Body.String())
	}
	if len(plain.Header()) != len(wrapped.Header()) {
		t.Errorf("headers %v != %v", wrapped.Header(), plain.Header())
	}
	for k, v := range plain.Header() {
		if strings.Join(wrapped.Header()[k], ",") != strings.Join(v, ",") {
			t.Errorf("header %s = %v, want %v", k, wrapped.Header()[k], v)
		}
	}
}

func TestWrap_RecordContents(t *testing.T) {
	icpt, buf, _ := newTestInterceptor()

	var handlerSaw string
	h := icpt.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		handlerSaw = string(b)
		w.Header().Set("X-Resp", "1")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("<ok>"))
		w.Header().Set("X-Late", "ignored")
	}))

	req := httptest.NewRequest(http.MethodPut, "http://api.example.com/users/7/posts/9?x=1", strings.NewReader("payload & <tags>"))
	req.Header.Add("Accept", "text/plain")
	req.Header.Add("Accept", "application/json")
	req.RemoteAddr = "10.1.2.3:5555"
	h.ServeHTTP(httptest.NewRecorder(), req)

	if handlerSaw != "payload & <tags>" {
		t.Errorf("handler read %q", handlerSaw)
	}

	recs := drainRecords(t, buf)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	rec := recs[0]

	if rec.Version != record.SchemaVersion {
		t.Errorf("Version = %q", rec.Version)
	}
	if rec.Request.Method != http.MethodPut {
		t.Errorf("Method = %q", rec.Request.Method)
	}
	if rec.Request.Resource != "/users/userId/posts/postId" {
		t.Errorf("Resource = %q", rec.Request.Resource)
	}
	if rec.Request.URI != "http://api.example.com/users/7/posts/9?x=1" {
		t.Errorf("URI = %q", rec.Request.URI)
	}
	if rec.Request.IP != "10.1.2.3" {
		t.Errorf("IP = %q", rec.Request.IP)
	}
	if rec.Request.Body != "payload & <tags>" {
		t.Errorf("request Body = %q", rec.Request.Body)
	}
	if got := rec.Request.Headers["Accept"]; len(got) != 2 {
		t.Errorf("Accept values = %v", got)
	}
	if rec.Response.StatusCode != http.StatusAccepted {
		t.Errorf("StatusCode = %d", rec.Response.StatusCode)
	}
	if rec.Response.Body != "<ok>" {
		t.Errorf("response Body = %q", rec.Response.Body)
	}
	if _, ok := rec.Response.Headers["X-Resp"]; !ok {
		t.Error("response header missing")
	}
	if _, ok := rec.Response.Headers["X-Late"]; ok {
		t.Error("header set after commit was recorded")
	}
}

func TestWrap_ImplicitStatus(t *testing.T) {
	icpt, buf, _ := newTestInterceptor()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    int
	}{
		{"no write", func(http.ResponseWriter, *http.Request) {}, http.StatusOK},
		{"write only", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("x")) }, http.StatusOK},
		{"early hints", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusEarlyHints)
			w.WriteHeader(http.StatusNotFound)
		}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			icpt.Wrap(tt.handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
			recs := drainRecords(t, buf)
			if len(recs) != 1 || recs[0].Response.StatusCode != tt.want {
				t.Errorf("records = %+v, want status %d", recs, tt.want)
			}
		})
	}
}

func TestWrap_FlushesAtTen(t *testing.T) {
	icpt, buf, disp := newTestInterceptor()
	h := icpt.Wrap(echoHandler())

	for n := 1; n <= 10; n++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(`1`)))
		if n == 9 && len(disp.all()) != 0 {
			t.Fatal("flushed before the tenth record")
		}
	}

	batches := disp.all()
	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(batches))
	}
	if batches[0].Len() != 10 || batches[0].Trigger != batch.TriggerCount {
		t.Errorf("batch = %d records, trigger %s", batches[0].Len(), batches[0].Trigger)
	}
	if buf.Len() != 0 {
		t.Errorf("buffer still holds %d records", buf.Len())
	}
}

func TestWrap_DispatchErrorIgnored(t *testing.T) {
	icpt, _, disp := newTestInterceptor()
	disp.err = errors.New("queue full")
	h := icpt.Wrap(echoHandler())

	for n := 0; n < 10; n++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d", rec.Code)
		}
	}
}

func TestWrap_InvalidUTF8Skipped(t *testing.T) {
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true}, nil)
	icpt, buf, _ := newTestInterceptor(WithMetrics(collector))

	raw := []byte{0xff, 0xfe, 'a'}
	var handlerSaw []byte
	h := icpt.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerSaw, _ = io.ReadAll(r.Body)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/bin", bytes.NewReader(raw)))

	if !bytes.Equal(handlerSaw, raw) {
		t.Errorf("handler read %v, want %v", handlerSaw, raw)
	}
	if recs := drainRecords(t, buf); len(recs) != 0 {
		t.Errorf("got %d records, want none", len(recs))
	}
	if n, err := testutil.GatherAndCount(collector.Registry(), "firetail_capture_errors_total"); err != nil || n != 1 {
		t.Errorf("capture error series = %d, err = %v", n, err)
	}
}

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestWrap_BodyReadError(t *testing.T) {
	icpt, buf, _ := newTestInterceptor()
	readErr := errors.New("connection reset")

	var (
		handlerSaw []byte
		handlerErr error
	)
	h := icpt.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerSaw, handlerErr = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusBadRequest)
	}))

	req := httptest.NewRequest(http.MethodPost, "/upload", nil)
	req.Body = io.NopCloser(&failingReader{data: []byte("part"), err: readErr})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if string(handlerSaw) != "part" || !errors.Is(handlerErr, readErr) {
		t.Errorf("handler saw %q, %v", handlerSaw, handlerErr)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
	if recs := drainRecords(t, buf); len(recs) != 0 {
		t.Errorf("got %d records, want none", len(recs))
	}
}

func TestWrap_PanicPropagates(t *testing.T) {
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true}, nil)
	icpt, buf, _ := newTestInterceptor(WithMetrics(collector))

	sentinel := errors.New("handler exploded")
	h := icpt.Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(sentinel)
	}))

	func() {
		defer func() {
			if got := recover(); got != sentinel {
				t.Errorf("recovered %v, want the original panic value", got)
			}
		}()
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}()

	if buf.Len() != 0 {
		t.Errorf("panicking exchange was recorded")
	}
	if n, err := testutil.GatherAndCount(collector.Registry(), "firetail_capture_handler_panics_total"); err != nil || n != 1 {
		t.Errorf("panic metric series = %d, err = %v", n, err)
	}
}

func TestWrap_SkipRules(t *testing.T) {
	icpt, buf, _ := newTestInterceptor(WithExcludePaths([]string{"/healthz", "/internal/*"}))
	h := icpt.Wrap(echoHandler())

	tests := []struct {
		path     string
		recorded bool
	}{
		{"/healthz", false},
		{"/healthz/deep", true},
		{"/internal/metrics", false},
		{"/internal", true},
		{"/api", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))
			if got := len(drainRecords(t, buf)) == 1; got != tt.recorded {
				t.Errorf("recorded = %v, want %v", got, tt.recorded)
			}
		})
	}

	icpt.SetEnabled(false)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api", nil))
	if rec.Code != http.StatusCreated {
		t.Errorf("disabled interceptor changed status: %d", rec.Code)
	}
	if buf.Len() != 0 {
		t.Error("disabled interceptor recorded an exchange")
	}
}

func TestWrap_ExecutionTime(t *testing.T) {
	base := time.UnixMilli(1_700_000_000_000)
	calls := 0
	clock := func() time.Time {
		calls++
		return base.Add(time.Duration(calls-1) * 25 * time.Millisecond)
	}
	icpt, buf, _ := newTestInterceptor(WithClock(clock))

	icpt.Wrap(echoHandler()).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	recs := drainRecords(t, buf)
	if len(recs) != 1 {
		t.Fatalf("got %d records", len(recs))
	}
	if recs[0].ExecutionTime != 25 {
		t.Errorf("ExecutionTime = %d, want 25", recs[0].ExecutionTime)
	}
	if recs[0].DateCreated != uint64(base.UnixMilli()) {
		t.Errorf("DateCreated = %d", recs[0].DateCreated)
	}
}

func TestWrap_ConcurrentExchanges(t *testing.T) {
	icpt, buf, disp := newTestInterceptor()
	h := icpt.Wrap(echoHandler())

	const n = 200
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/c", nil))
		}()
	}
	wg.Wait()

	total := buf.Len()
	for _, b := range disp.all() {
		total += b.Len()
	}
	if total != n {
		t.Errorf("accounted for %d records, want %d", total, n)
	}
}

func TestCaptureWriter_Flush(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := newCaptureWriter(rec)

	cw.Flush()

	if !rec.Flushed {
		t.Error("Flush was not forwarded")
	}
	if cw.Status() != http.StatusOK {
		t.Errorf("Status() = %d", cw.Status())
	}
}

func TestCaptureWriter_HijackUnsupported(t *testing.T) {
	cw := newCaptureWriter(httptest.NewRecorder())
	if _, _, err := cw.Hijack(); err == nil {
		t.Error("expected error from recorder without Hijacker")
	}
}

func TestRestoreBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("abc"))
	body, err := RestoreBody(req)
	if err != nil || string(body) != "abc" {
		t.Fatalf("RestoreBody() = %q, %v", body, err)
	}

	again, _ := io.ReadAll(req.Body)
	if string(again) != "abc" {
		t.Errorf("restored body = %q", again)
	}
	rc, err := req.GetBody()
	if err != nil {
		t.Fatalf("GetBody() error = %v", err)
	}
	replay, _ := io.ReadAll(rc)
	if string(replay) != "abc" {
		t.Errorf("GetBody replay = %q", replay)
	}

	empty := httptest.NewRequest(http.MethodGet, "/", nil)
	if body, err := RestoreBody(empty); err != nil || body != nil {
		t.Errorf("empty RestoreBody() = %v, %v", body, err)
	}
}

func TestClose_StopsCapture(t *testing.T) {
	icpt, buf, _ := newTestInterceptor()
	h := icpt.Wrap(echoHandler())

	// An exchange already in flight when Close runs.
	inFlight := icpt.Begin(httptest.NewRequest(http.MethodGet, "/orders/1", nil))
	if inFlight == nil {
		t.Fatal("Begin() = nil before Close")
	}

	icpt.Close()

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders/2", strings.NewReader(`{"qty":1}`)))
		if rec.Code != http.StatusCreated || rec.Body.String() != `{"echo":{"qty":1}}` {
			t.Fatalf("response after Close = %d %q", rec.Code, rec.Body.String())
		}
	}
	if buf.Len() != 0 {
		t.Errorf("buffered %d records after Close, want 0", buf.Len())
	}
	if icpt.Dropped() != 0 {
		t.Errorf("Dropped() = %d, new exchanges should pass through uncounted", icpt.Dropped())
	}

	inFlight.Finish(http.StatusOK, http.Header{}, record.BytesBody("ok"))
	if buf.Len() != 0 {
		t.Errorf("in-flight exchange reached the buffer after Close")
	}
	if icpt.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", icpt.Dropped())
	}
}
