package batch

import (
	"sync"
	"time"
)

const (
	// DefaultMaxRecords is the record count that triggers a flush.
	DefaultMaxRecords = 10

	// DefaultMaxBytes is the summed record size that triggers a flush (1 MiB).
	DefaultMaxBytes = 1 << 20
)

// Config holds the flush thresholds.
type Config struct {
	MaxRecords int
	MaxBytes   int
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		MaxRecords: DefaultMaxRecords,
		MaxBytes:   DefaultMaxBytes,
	}
}

// Stats is a point-in-time view of a buffer. Bytes is the sum of the
// buffered record lengths, excluding separators.
type Stats struct {
	Records  int
	Bytes    int
	OpenedAt time.Time
}

// Buffer holds serialized records until a threshold is reached. It is safe
// for concurrent use.
type Buffer struct {
	cfg Config
	now func() time.Time

	mu       sync.Mutex
	records  [][]byte
	size     int // sum of len(rec); separators are not counted
	openedAt time.Time
}

// NewBuffer creates a Buffer. Non-positive thresholds fall back to the
// defaults.
func NewBuffer(cfg Config) *Buffer {
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = DefaultMaxRecords
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	return &Buffer{
		cfg:     cfg,
		now:     time.Now,
		records: make([][]byte, 0, cfg.MaxRecords),
	}
}

// Config returns the effective thresholds.
func (b *Buffer) Config() Config {
	return b.cfg
}

// Append adds one serialized record. The buffer takes ownership of rec.
//
// When the append reaches a threshold the buffer is swapped for an empty one
// and the full batch is returned with TriggerFlush; the caller is then the
// batch's only owner. Otherwise Append returns Keep and a nil batch.
func (b *Buffer) Append(rec []byte) (Decision, *Batch) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.records) == 0 {
		b.openedAt = b.now()
	}
	b.records = append(b.records, rec)
	b.size += len(rec)

	var trigger Trigger
	switch {
	case len(b.records) >= b.cfg.MaxRecords:
		trigger = TriggerCount
	case b.size >= b.cfg.MaxBytes:
		trigger = TriggerBytes
	default:
		return Keep, nil
	}
	return TriggerFlush, b.swapLocked(trigger)
}

// Drain swaps out whatever is buffered, regardless of thresholds. It
// returns nil when the buffer is empty.
func (b *Buffer) Drain(trigger Trigger) *Batch {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.records) == 0 {
		return nil
	}
	return b.swapLocked(trigger)
}

// DrainOlderThan drains the buffer only if its oldest record has waited at
// least maxAge. It returns nil otherwise.
func (b *Buffer) DrainOlderThan(maxAge time.Duration, trigger Trigger) *Batch {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.records) == 0 || b.now().Sub(b.openedAt) < maxAge {
		return nil
	}
	return b.swapLocked(trigger)
}

// Stats returns the current record count, record bytes and the time the
// oldest buffered record arrived.
func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Records:  len(b.records),
		Bytes:    b.size,
		OpenedAt: b.openedAt,
	}
}

// Len returns the number of buffered records.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

func (b *Buffer) swapLocked(trigger Trigger) *Batch {
	out := newBatch(b.records, b.size+len(b.records)-1, trigger, b.openedAt, b.now())
	b.records = make([][]byte, 0, b.cfg.MaxRecords)
	b.size = 0
	b.openedAt = time.Time{}
	return out
}
