package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/FireTail-io/firetail-go-lib/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Helper function to create test config
func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:                 true,
		Namespace:               "test",
		DeliveryDurationBuckets: []float64{0.1, 0.5, 1.0, 5.0},
	}
}

func TestCollector_NewCollector(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)

	if collector == nil {
		t.Fatal("Expected non-nil collector")
	}
	if collector.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}
}

func TestCollector_Defaults(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	NewCollector(cfg, nil)

	if cfg.Namespace != config.DefaultMetricsNamespace {
		t.Errorf("Namespace = %q", cfg.Namespace)
	}
	if len(cfg.DeliveryDurationBuckets) == 0 {
		t.Error("expected default buckets")
	}
}

func TestCollector_RecordExchange(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	tests := []struct {
		method   string
		resource string
		status   int
		class    string
	}{
		{"GET", "/pets/{petId}", 200, "2xx"},
		{"POST", "/pets", 201, "2xx"},
		{"GET", "/pets/{petId}", 404, "4xx"},
		{"DELETE", "/pets/{petId}", 503, "5xx"},
		{"GET", "/", 0, "unknown"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s %d", tt.method, tt.resource, tt.status), func(t *testing.T) {
			collector.RecordExchange(tt.method, tt.resource, tt.status)
			count := testutil.ToFloat64(collector.capture.exchanges.WithLabelValues(tt.method, tt.resource, tt.class))
			if count != 1 {
				t.Errorf("exchanges = %f, want 1", count)
			}
		})
	}
}

func TestCollector_ResourceCardinality(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.resources = NewCardinalityLimiter(2)

	collector.RecordExchange("GET", "/a", 200)
	collector.RecordExchange("GET", "/b", 200)
	collector.RecordExchange("GET", "/c", 200)
	collector.RecordExchange("GET", "/d", 200)

	if got := testutil.ToFloat64(collector.capture.exchanges.WithLabelValues("GET", OtherResource, "2xx")); got != 2 {
		t.Errorf("other = %f, want 2", got)
	}
	if got := testutil.ToFloat64(collector.capture.exchanges.WithLabelValues("GET", "/a", "2xx")); got != 1 {
		t.Errorf("/a = %f, want 1", got)
	}
}

func TestCollector_CaptureErrorsAndPanics(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordCaptureError("decode")
	collector.RecordCaptureError("decode")
	collector.RecordPanic()

	if got := testutil.ToFloat64(collector.capture.errors.WithLabelValues("decode")); got != 2 {
		t.Errorf("decode errors = %f", got)
	}
	if got := testutil.ToFloat64(collector.capture.panics); got != 1 {
		t.Errorf("panics = %f", got)
	}
}

func TestCollector_Buffer(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.UpdateBuffer(3, 512)
	collector.RecordFlush("count")

	if got := testutil.ToFloat64(collector.buffer.records); got != 3 {
		t.Errorf("records = %f", got)
	}
	if got := testutil.ToFloat64(collector.buffer.bytes); got != 512 {
		t.Errorf("bytes = %f", got)
	}
	if got := testutil.ToFloat64(collector.buffer.flushes.WithLabelValues("count")); got != 1 {
		t.Errorf("flushes = %f", got)
	}
}

func TestCollector_Delivery(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.UpdateQueueDepth(4)
	collector.RecordDropped("queue_full")
	collector.RecordDelivery("succeeded", 1, 50*time.Millisecond, 10, 2048)
	collector.RecordDelivery("failed", 4, 2*time.Second, 5, 100)

	if got := testutil.ToFloat64(collector.delivery.queueDepth); got != 4 {
		t.Errorf("queue depth = %f", got)
	}
	if got := testutil.ToFloat64(collector.delivery.dropped.WithLabelValues("queue_full")); got != 1 {
		t.Errorf("dropped = %f", got)
	}
	if got := testutil.ToFloat64(collector.delivery.attempts); got != 5 {
		t.Errorf("attempts = %f, want 5", got)
	}
	if got := testutil.ToFloat64(collector.delivery.deliveries.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed = %f", got)
	}
	if n := testutil.CollectAndCount(collector.delivery.duration); n != 2 {
		t.Errorf("duration series = %d, want 2", n)
	}
}

func TestCollector_Ledger(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordLedgerWrite(true)
	collector.RecordLedgerWrite(false)
	collector.RecordLedgerPruned(7)
	collector.RecordLedgerPruned(0)

	if got := testutil.ToFloat64(collector.ledger.writes.WithLabelValues("error")); got != 1 {
		t.Errorf("error writes = %f", got)
	}
	if got := testutil.ToFloat64(collector.ledger.pruned); got != 7 {
		t.Errorf("pruned = %f", got)
	}
}

func TestCollector_DisabledAndNil(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, nil)

	collector.RecordExchange("GET", "/", 200)
	collector.RecordDropped("queue_full")
	if got := testutil.ToFloat64(collector.delivery.dropped.WithLabelValues("queue_full")); got != 0 {
		t.Errorf("disabled collector recorded %f", got)
	}

	var nilCollector *Collector
	nilCollector.RecordExchange("GET", "/", 200)
	nilCollector.RecordPanic()
	nilCollector.UpdateBuffer(1, 1)
	nilCollector.RecordDelivery("succeeded", 1, time.Second, 1, 1)
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.RecordFlush("bytes")

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `test_buffer_flushes_total{trigger="bytes"} 1`) {
		t.Errorf("flush metric missing from exposition:\n%s", rec.Body.String())
	}
}

func TestCardinalityLimiter(t *testing.T) {
	cl := NewCardinalityLimiter(2)

	if !cl.Allow("a") || !cl.Allow("b") {
		t.Fatal("expected first two label sets to be allowed")
	}
	if cl.Allow("c") {
		t.Error("expected third label set to be rejected")
	}
	if !cl.Allow("a") {
		t.Error("existing label set should stay allowed")
	}
	if cl.Count() != 2 {
		t.Errorf("Count() = %d", cl.Count())
	}
}
