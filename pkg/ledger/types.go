package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/FireTail-io/firetail-go-lib/pkg/delivery"
)

// Entry is the ledger row for one finished batch.
type Entry struct {
	ID         string        `json:"id"`
	BatchID    string        `json:"batch_id"`
	Trigger    string        `json:"trigger"`
	Status     string        `json:"status"` // "succeeded" or "failed"
	Records    int           `json:"records"`
	Bytes      int           `json:"bytes"`
	Attempts   int           `json:"attempts"`
	StatusCode int           `json:"status_code"` // last HTTP status, 0 when none was received
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// NewEntry converts a delivery outcome into a ledger entry.
func NewEntry(o delivery.Outcome) *Entry {
	e := &Entry{
		ID:         uuid.NewString(),
		BatchID:    o.BatchID,
		Trigger:    string(o.Trigger),
		Status:     string(o.Status),
		Records:    o.Records,
		Bytes:      o.Bytes,
		Attempts:   o.Attempts,
		StatusCode: o.StatusCode,
		StartedAt:  o.Started,
		Duration:   o.Duration,
		RecordedAt: time.Now(),
	}
	if o.Err != nil {
		e.Error = o.Err.Error()
	}
	return e
}

// Query filters ledger entries. Time bounds apply to RecordedAt and are
// inclusive.
type Query struct {
	Since   *time.Time `json:"since,omitempty"`
	Until   *time.Time `json:"until,omitempty"`
	Status  string     `json:"status,omitempty"`
	BatchID string     `json:"batch_id,omitempty"`

	// Limit caps the result size; 0 means the backend default.
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// Ascending returns oldest entries first. Newest first otherwise.
	Ascending bool `json:"ascending,omitempty"`
}

// DefaultQueryLimit applies when Query.Limit is 0.
const DefaultQueryLimit = 100

// Storage is implemented by ledger backends. Implementations are safe for
// concurrent use.
type Storage interface {
	// Store persists an entry.
	Store(ctx context.Context, e *Entry) error

	// Query returns entries matching q. An empty slice means no match.
	Query(ctx context.Context, q *Query) ([]*Entry, error)

	// Count returns the number of entries matching q, ignoring paging.
	Count(ctx context.Context, q *Query) (int64, error)

	// Delete removes entries matching q, ignoring paging, and returns the
	// number removed.
	Delete(ctx context.Context, q *Query) (int64, error)

	// Ping reports whether the backend is usable.
	Ping(ctx context.Context) error

	Close() error
}
