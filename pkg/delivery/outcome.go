package delivery

import (
	"time"

	"github.com/FireTail-io/firetail-go-lib/pkg/batch"
)

// Status is the final state of one batch delivery.
type Status string

const (
	// StatusSucceeded means the endpoint accepted the batch.
	StatusSucceeded Status = "succeeded"

	// StatusFailed means the batch was dropped after a fatal response or
	// exhausted retries.
	StatusFailed Status = "failed"
)

// Outcome reports what happened to a batch.
type Outcome struct {
	BatchID    string
	Trigger    batch.Trigger
	Records    int
	Bytes      int
	Status     Status
	Attempts   int
	StatusCode int
	Err        error
	Started    time.Time
	Duration   time.Duration
}

// Succeeded reports whether the batch was accepted.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSucceeded
}

func newOutcome(b *batch.Batch, started time.Time) Outcome {
	return Outcome{
		BatchID: b.ID,
		Trigger: b.Trigger,
		Records: b.Len(),
		Bytes:   b.Size,
		Started: started,
	}
}
