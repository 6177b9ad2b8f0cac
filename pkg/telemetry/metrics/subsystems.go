package metrics

import (
	"github.com/FireTail-io/firetail-go-lib/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CaptureMetrics tracks exchanges seen by the interceptor.
//
// Metrics:
//   - firetail_capture_exchanges_total{method,resource,status_class}
//   - firetail_capture_errors_total{kind}
//   - firetail_capture_handler_panics_total
type CaptureMetrics struct {
	exchanges *prometheus.CounterVec
	errors    *prometheus.CounterVec
	panics    prometheus.Counter
}

// NewCaptureMetrics creates and registers capture metrics.
func NewCaptureMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CaptureMetrics {
	m := &CaptureMetrics{
		exchanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "capture",
				Name:      "exchanges_total",
				Help:      "Total number of request/response exchanges observed",
			},
			[]string{"method", "resource", "status_class"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "capture",
				Name:      "errors_total",
				Help:      "Exchanges that could not be turned into a telemetry record",
			},
			[]string{"kind"},
		),
		panics: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "capture",
				Name:      "handler_panics_total",
				Help:      "Wrapped handler panics observed and re-raised",
			},
		),
	}

	registry.MustRegister(m.exchanges, m.errors, m.panics)
	return m
}

// BufferMetrics tracks the batch buffer.
type BufferMetrics struct {
	records prometheus.Gauge
	bytes   prometheus.Gauge
	flushes *prometheus.CounterVec
}

// NewBufferMetrics creates and registers buffer metrics.
func NewBufferMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *BufferMetrics {
	m := &BufferMetrics{
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "buffer",
			Name:      "records",
			Help:      "Records currently buffered",
		}),
		bytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "buffer",
			Name:      "bytes",
			Help:      "Payload bytes currently buffered",
		}),
		flushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "buffer",
				Name:      "flushes_total",
				Help:      "Batches flushed from the buffer by trigger",
			},
			[]string{"trigger"},
		),
	}

	registry.MustRegister(m.records, m.bytes, m.flushes)
	return m
}

// DeliveryMetrics tracks batch delivery to the ingestion endpoint.
type DeliveryMetrics struct {
	queueDepth   prometheus.Gauge
	dropped      *prometheus.CounterVec
	attempts     prometheus.Counter
	deliveries   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	batchRecords prometheus.Histogram
	batchBytes   prometheus.Histogram
}

// NewDeliveryMetrics creates and registers delivery metrics.
func NewDeliveryMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *DeliveryMetrics {
	m := &DeliveryMetrics{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "delivery",
			Name:      "queue_depth",
			Help:      "Batches waiting for a delivery worker",
		}),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "delivery",
				Name:      "dropped_batches_total",
				Help:      "Batches discarded without a delivery attempt",
			},
			[]string{"reason"},
		),
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "delivery",
			Name:      "attempts_total",
			Help:      "HTTP attempts made against the ingestion endpoint",
		}),
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "delivery",
				Name:      "batches_total",
				Help:      "Batches delivered by final outcome",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "delivery",
				Name:      "duration_seconds",
				Help:      "Time spent delivering a batch, retries included",
				Buckets:   cfg.DeliveryDurationBuckets,
			},
			[]string{"outcome"},
		),
		batchRecords: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: "delivery",
			Name:      "batch_records",
			Help:      "Records per delivered batch",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
		batchBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: "delivery",
			Name:      "batch_bytes",
			Help:      "Payload size per delivered batch",
			Buckets:   prometheus.ExponentialBuckets(1024, 2, 11), // 1KB to 1MB
		}),
	}

	registry.MustRegister(
		m.queueDepth,
		m.dropped,
		m.attempts,
		m.deliveries,
		m.duration,
		m.batchRecords,
		m.batchBytes,
	)
	return m
}

// LedgerMetrics tracks the delivery ledger.
type LedgerMetrics struct {
	writes *prometheus.CounterVec
	pruned prometheus.Counter
}

// NewLedgerMetrics creates and registers ledger metrics.
func NewLedgerMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *LedgerMetrics {
	m := &LedgerMetrics{
		writes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "ledger",
				Name:      "writes_total",
				Help:      "Delivery outcomes written to the ledger",
			},
			[]string{"status"},
		),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "ledger",
			Name:      "pruned_total",
			Help:      "Ledger entries removed by retention",
		}),
	}

	registry.MustRegister(m.writes, m.pruned)
	return m
}
