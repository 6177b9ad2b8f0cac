package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// MemoryStorage keeps entries in process memory.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries []*Entry
	closed  bool
}

// NewMemoryStorage creates an empty in-memory ledger.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

var errMemoryClosed = errors.New("storage closed")

// Store appends a copy of e.
func (s *MemoryStorage) Store(ctx context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageError("memory", "store", errMemoryClosed)
	}
	entryCopy := *e
	s.entries = append(s.entries, &entryCopy)
	return nil
}

// Query returns copies of matching entries ordered by RecordedAt.
func (s *MemoryStorage) Query(ctx context.Context, q *Query) ([]*Entry, error) {
	if q == nil {
		q = &Query{}
	}

	s.mu.RLock()
	results := make([]*Entry, 0)
	for _, e := range s.entries {
		if matches(e, q) {
			entryCopy := *e
			results = append(results, &entryCopy)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		if q.Ascending {
			return results[i].RecordedAt.Before(results[j].RecordedAt)
		}
		return results[i].RecordedAt.After(results[j].RecordedAt)
	})

	start := q.Offset
	if start > len(results) {
		return []*Entry{}, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	end := start + limit
	if end > len(results) {
		end = len(results)
	}
	return results[start:end], nil
}

// Count returns the number of matching entries.
func (s *MemoryStorage) Count(ctx context.Context, q *Query) (int64, error) {
	if q == nil {
		q = &Query{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, e := range s.entries {
		if matches(e, q) {
			n++
		}
	}
	return n, nil
}

// Delete removes matching entries.
func (s *MemoryStorage) Delete(ctx context.Context, q *Query) (int64, error) {
	if q == nil {
		q = &Query{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	var deleted int64
	for _, e := range s.entries {
		if matches(e, q) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(s.entries); i++ {
		s.entries[i] = nil
	}
	s.entries = kept
	return deleted, nil
}

// Ping fails once the storage is closed.
func (s *MemoryStorage) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return NewStorageError("memory", "ping", errMemoryClosed)
	}
	return nil
}

// Close drops all entries.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	s.closed = true
	return nil
}

// Size returns the number of stored entries.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func matches(e *Entry, q *Query) bool {
	if q.Since != nil && e.RecordedAt.Before(*q.Since) {
		return false
	}
	if q.Until != nil && e.RecordedAt.After(*q.Until) {
		return false
	}
	if q.Status != "" && e.Status != q.Status {
		return false
	}
	if q.BatchID != "" && e.BatchID != q.BatchID {
		return false
	}
	return true
}
