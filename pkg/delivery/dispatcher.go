package delivery

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/FireTail-io/firetail-go-lib/pkg/batch"
	"github.com/FireTail-io/firetail-go-lib/pkg/config"
	"github.com/FireTail-io/firetail-go-lib/pkg/telemetry/metrics"
)

// Drop reasons reported to metrics.
const (
	DropQueueFull = "queue_full"
	DropClosed    = "closed"
	DropShutdown  = "shutdown"
)

// Deliverer delivers a single batch.
type Deliverer interface {
	Deliver(ctx context.Context, b *batch.Batch) Outcome
}

// OutcomeHandler observes every finished delivery. Handlers run on the
// worker goroutine and must not block for long.
type OutcomeHandler func(Outcome)

// DispatcherConfig sizes the worker pool and its queue.
type DispatcherConfig struct {
	Workers   int
	QueueSize int
}

// DispatcherStats counts batches by fate.
type DispatcherStats struct {
	Dispatched uint64
	Dropped    uint64
	Succeeded  uint64
	Failed     uint64
}

// Dispatcher hands batches to a fixed pool of delivery workers through a
// bounded queue. Dispatch never blocks: when the queue is full the batch is
// dropped.
type Dispatcher struct {
	deliverer Deliverer
	queue     chan *batch.Batch

	mu     sync.RWMutex
	closed bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	handlers []OutcomeHandler
	metrics  *metrics.Collector
	logger   *slog.Logger

	dispatched atomic.Uint64
	dropped    atomic.Uint64
	succeeded  atomic.Uint64
	failed     atomic.Uint64
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithOutcomeHandler registers a handler called after every delivery.
func WithOutcomeHandler(h OutcomeHandler) DispatcherOption {
	return func(d *Dispatcher) {
		if h != nil {
			d.handlers = append(d.handlers, h)
		}
	}
}

// WithMetrics reports queue and delivery metrics to c.
func WithMetrics(c *metrics.Collector) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = c
	}
}

// WithDispatcherLogger sets the dispatcher logger.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher starts cfg.Workers workers delivering through deliverer.
func NewDispatcher(deliverer Deliverer, cfg DispatcherConfig, opts ...DispatcherOption) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = config.DefaultDeliveryWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = config.DefaultDeliveryQueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		deliverer: deliverer,
		queue:     make(chan *batch.Batch, cfg.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "delivery.dispatcher")

	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.worker()
	}
	return d
}

// Dispatch queues b for delivery. It returns ErrQueueFull or
// ErrDispatcherClosed when the batch was dropped instead. Empty batches
// are ignored.
func (d *Dispatcher) Dispatch(b *batch.Batch) error {
	if b == nil || b.Len() == 0 {
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(b, DropClosed)
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- b:
		d.dispatched.Add(1)
		d.metrics.UpdateQueueDepth(len(d.queue))
		return nil
	default:
		d.drop(b, DropQueueFull)
		return ErrQueueFull
	}
}

// Close stops intake and waits for queued batches to be delivered. If ctx
// ends first, in-flight deliveries are cancelled, the remaining queue is
// dropped and ctx.Err() is returned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

// QueueDepth returns the number of batches waiting for a worker.
func (d *Dispatcher) QueueDepth() int {
	return len(d.queue)
}

// QueueCapacity returns the queue size.
func (d *Dispatcher) QueueCapacity() int {
	return cap(d.queue)
}

// Stats returns a snapshot of the dispatcher counters.
func (d *Dispatcher) Stats() DispatcherStats {
	return DispatcherStats{
		Dispatched: d.dispatched.Load(),
		Dropped:    d.dropped.Load(),
		Succeeded:  d.succeeded.Load(),
		Failed:     d.failed.Load(),
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for b := range d.queue {
		d.metrics.UpdateQueueDepth(len(d.queue))

		if d.ctx.Err() != nil {
			d.drop(b, DropShutdown)
			continue
		}

		d.report(d.deliverer.Deliver(d.ctx, b))
	}
}

func (d *Dispatcher) report(out Outcome) {
	d.metrics.RecordDelivery(string(out.Status), out.Attempts, out.Duration, out.Records, out.Bytes)

	if out.Succeeded() {
		d.succeeded.Add(1)
		d.logger.Debug("batch delivered",
			"batch_id", out.BatchID,
			"records", out.Records,
			"bytes", out.Bytes,
			"attempts", out.Attempts,
			"duration", out.Duration,
		)
	} else {
		d.failed.Add(1)
		d.logger.Warn("batch delivery failed, discarding",
			"batch_id", out.BatchID,
			"records", out.Records,
			"attempts", out.Attempts,
			"status_code", out.StatusCode,
			"error", out.Err,
		)
	}

	for _, h := range d.handlers {
		h(out)
	}
}

func (d *Dispatcher) drop(b *batch.Batch, reason string) {
	d.dropped.Add(1)
	d.metrics.RecordDropped(reason)
	d.logger.Warn("batch dropped",
		"batch_id", b.ID,
		"records", b.Len(),
		"bytes", b.Size,
		"trigger", string(b.Trigger),
		"reason", reason,
	)
}
