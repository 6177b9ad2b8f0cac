// Package batch accumulates serialized telemetry records and decides when a
// group of them is ready to ship.
//
// The Buffer is the only shared mutable structure on the capture path. Every
// append happens under a single mutex, and the flush decision is taken inside
// that critical section: the appender that crosses a threshold receives the
// drained Batch and nobody else sees those records again.
//
// Flush triggers:
//   - count: the buffer holds MaxRecords records
//   - bytes: the buffered records' lengths sum to MaxBytes
//   - age:   a periodic drain found records waiting
//   - shutdown: the final drain on close
package batch

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

// Trigger names the reason a batch was cut.
type Trigger string

// Flush triggers.
const (
	TriggerCount    Trigger = "count"
	TriggerBytes    Trigger = "bytes"
	TriggerAge      Trigger = "age"
	TriggerShutdown Trigger = "shutdown"
	TriggerManual   Trigger = "manual"
)

// Decision is the outcome of an append.
type Decision int

const (
	// Keep means the record was buffered and nothing needs to ship yet.
	Keep Decision = iota

	// TriggerFlush means a threshold was reached and the caller now owns
	// the returned batch.
	TriggerFlush
)

// String returns the decision name.
func (d Decision) String() string {
	switch d {
	case Keep:
		return "keep"
	case TriggerFlush:
		return "flush"
	default:
		return "unknown"
	}
}

// Batch is a drained group of records owned by a single delivery. It is
// discarded after delivery whatever the outcome.
type Batch struct {
	ID      string
	Records [][]byte

	// Size is the length in bytes of Payload().
	Size int

	Trigger   Trigger
	OpenedAt  time.Time // first record appended
	CreatedAt time.Time // drained from the buffer
}

// Len returns the number of records in the batch.
func (b *Batch) Len() int {
	return len(b.Records)
}

// Payload joins the records with newlines. There is no trailing newline.
func (b *Batch) Payload() []byte {
	return bytes.Join(b.Records, []byte{'\n'})
}

func newBatch(records [][]byte, size int, trigger Trigger, opened, now time.Time) *Batch {
	return &Batch{
		ID:        uuid.NewString(),
		Records:   records,
		Size:      size,
		Trigger:   trigger,
		OpenedAt:  opened,
		CreatedAt: now,
	}
}
