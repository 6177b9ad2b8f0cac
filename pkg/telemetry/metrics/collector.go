package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/FireTail-io/firetail-go-lib/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultMaxResources caps distinct resource label values.
const DefaultMaxResources = 2000

// OtherResource replaces resource labels past the cardinality limit.
const OtherResource = "other"

// Collector manages metric registration and exposes one method per
// pipeline event.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	capture  *CaptureMetrics
	buffer   *BufferMetrics
	delivery *DeliveryMetrics
	ledger   *LedgerMetrics

	resources *CardinalityLimiter
}

// NewCollector creates a collector registered against registry. If
// registry is nil a fresh one is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.DeliveryDurationBuckets) == 0 {
		cfg.DeliveryDurationBuckets = config.DefaultDeliveryDurationBuckets
	}

	return &Collector{
		config:    cfg,
		registry:  registry,
		capture:   NewCaptureMetrics(cfg, registry),
		buffer:    NewBufferMetrics(cfg, registry),
		delivery:  NewDeliveryMetrics(cfg, registry),
		ledger:    NewLedgerMetrics(cfg, registry),
		resources: NewCardinalityLimiter(DefaultMaxResources),
	}
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordExchange counts an observed request/response exchange.
func (c *Collector) RecordExchange(method, resource string, status int) {
	if !c.enabled() {
		return
	}
	if !c.resources.Allow(resource) {
		resource = OtherResource
	}
	c.capture.exchanges.WithLabelValues(method, resource, statusClass(status)).Inc()
}

// RecordCaptureError counts an exchange that produced no record.
// kind is one of the record error kinds ("decode", "capture", ...).
func (c *Collector) RecordCaptureError(kind string) {
	if !c.enabled() {
		return
	}
	c.capture.errors.WithLabelValues(kind).Inc()
}

// RecordPanic counts a handler panic observed by the interceptor.
func (c *Collector) RecordPanic() {
	if !c.enabled() {
		return
	}
	c.capture.panics.Inc()
}

// UpdateBuffer sets the current buffer occupancy.
func (c *Collector) UpdateBuffer(records, bytes int) {
	if !c.enabled() {
		return
	}
	c.buffer.records.Set(float64(records))
	c.buffer.bytes.Set(float64(bytes))
}

// RecordFlush counts a batch leaving the buffer.
func (c *Collector) RecordFlush(trigger string) {
	if !c.enabled() {
		return
	}
	c.buffer.flushes.WithLabelValues(trigger).Inc()
}

// UpdateQueueDepth sets the number of batches waiting for a worker.
func (c *Collector) UpdateQueueDepth(depth int) {
	if !c.enabled() {
		return
	}
	c.delivery.queueDepth.Set(float64(depth))
}

// RecordDropped counts a batch discarded before delivery was attempted.
func (c *Collector) RecordDropped(reason string) {
	if !c.enabled() {
		return
	}
	c.delivery.dropped.WithLabelValues(reason).Inc()
}

// RecordDelivery records the outcome of delivering one batch.
func (c *Collector) RecordDelivery(outcome string, attempts int, duration time.Duration, records, bytes int) {
	if !c.enabled() {
		return
	}
	c.delivery.deliveries.WithLabelValues(outcome).Inc()
	c.delivery.attempts.Add(float64(attempts))
	c.delivery.duration.WithLabelValues(outcome).Observe(duration.Seconds())
	c.delivery.batchRecords.Observe(float64(records))
	c.delivery.batchBytes.Observe(float64(bytes))
}

// RecordLedgerWrite counts a delivery outcome persisted to the ledger.
func (c *Collector) RecordLedgerWrite(ok bool) {
	if !c.enabled() {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	c.ledger.writes.WithLabelValues(status).Inc()
}

// RecordLedgerPruned counts ledger entries removed by retention.
func (c *Collector) RecordLedgerPruned(n int64) {
	if !c.enabled() || n <= 0 {
		return
	}
	c.ledger.pruned.Add(float64(n))
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether the label value already exists or still fits
// under the limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
