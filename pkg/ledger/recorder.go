package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/FireTail-io/firetail-go-lib/pkg/delivery"
	"github.com/FireTail-io/firetail-go-lib/pkg/telemetry/metrics"
)

// RecorderConfig tunes the asynchronous writer.
type RecorderConfig struct {
	// AsyncBuffer is the number of entries that may wait for storage.
	// Default: 256
	AsyncBuffer int

	// WriteTimeout bounds a single storage write.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// Recorder turns delivery outcomes into ledger entries and writes them on
// a background goroutine.
type Recorder struct {
	storage Storage
	config  RecorderConfig
	metrics *metrics.Collector
	logger  *slog.Logger

	entries chan *Entry
	done    chan struct{}
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithRecorderMetrics counts ledger writes on c.
func WithRecorderMetrics(c *metrics.Collector) RecorderOption {
	return func(r *Recorder) {
		r.metrics = c
	}
}

// WithRecorderLogger sets the recorder logger.
func WithRecorderLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRecorder starts a recorder writing to storage.
func NewRecorder(storage Storage, cfg RecorderConfig, opts ...RecorderOption) *Recorder {
	if cfg.AsyncBuffer <= 0 {
		cfg.AsyncBuffer = 256
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	r := &Recorder{
		storage: storage,
		config:  cfg,
		logger:  slog.Default(),
		entries: make(chan *Entry, cfg.AsyncBuffer),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "ledger.recorder")

	r.wg.Add(1)
	go r.worker()
	return r
}

// Handle queues o for writing. It never blocks; when the buffer is full the
// entry is dropped and counted as a failed write. Handle has the signature
// of delivery.OutcomeHandler.
func (r *Recorder) Handle(o delivery.Outcome) {
	if err := r.Enqueue(NewEntry(o)); err != nil {
		r.logger.Debug("ledger entry not queued", "batch_id", o.BatchID, "error", err)
	}
}

// Enqueue queues e for writing.
func (r *Recorder) Enqueue(e *Entry) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return ErrRecorderClosed
	}

	select {
	case r.entries <- e:
		return nil
	default:
		r.metrics.RecordLedgerWrite(false)
		r.logger.Warn("ledger buffer full, dropping entry",
			"batch_id", e.BatchID,
			"capacity", r.config.AsyncBuffer,
		)
		return NewStorageError("recorder", "enqueue", context.DeadlineExceeded)
	}
}

// Storage returns the backing store.
func (r *Recorder) Storage() Storage {
	return r.storage
}

// Close stops accepting entries and waits until every queued entry has
// been written. It does not close the storage.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.done)
	r.mu.Unlock()

	r.wg.Wait()
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case e := <-r.entries:
			r.write(e)
		case <-r.done:
			for {
				select {
				case e := <-r.entries:
					r.write(e)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(e *Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.storage.Store(ctx, e); err != nil {
		r.metrics.RecordLedgerWrite(false)
		r.logger.Error("failed to store ledger entry",
			"batch_id", e.BatchID,
			"error", err,
		)
		return
	}
	r.metrics.RecordLedgerWrite(true)
	r.logger.Debug("delivery recorded",
		"batch_id", e.BatchID,
		"status", e.Status,
		"attempts", e.Attempts,
	)
}
