package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/FireTail-io/firetail-go-lib/pkg/batch"
	"github.com/FireTail-io/firetail-go-lib/pkg/config"
	"github.com/FireTail-io/firetail-go-lib/pkg/delivery"
)

// createTempDB creates a SQLite ledger in a temp dir. The cgo driver is
// skipped when the test binary was built without cgo.
func createTempDB(t *testing.T, driver string) (*SQLiteStorage, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "nested", "ledger.db")
	storage, err := NewSQLiteStorage(&SQLiteConfig{
		Path:         dbPath,
		Driver:       driver,
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	})
	if err != nil {
		if driver == DriverCgo && strings.Contains(err.Error(), "CGO_ENABLED=0") {
			t.Skip("go-sqlite3 requires cgo")
		}
		t.Fatalf("Failed to create SQLite storage: %v", err)
	}
	t.Cleanup(func() { storage.Close() })
	return storage, dbPath
}

// backends returns every Storage implementation under test.
func backends(t *testing.T) map[string]func(t *testing.T) Storage {
	return map[string]func(t *testing.T) Storage{
		"memory": func(t *testing.T) Storage { return NewMemoryStorage() },
		"sqlite": func(t *testing.T) Storage {
			s, _ := createTempDB(t, DriverModernc)
			return s
		},
		"sqlite3": func(t *testing.T) Storage {
			s, _ := createTempDB(t, DriverCgo)
			return s
		},
	}
}

func entryAt(id, status string, at time.Time) *Entry {
	return &Entry{
		ID:         id,
		BatchID:    "batch-" + id,
		Trigger:    string(batch.TriggerCount),
		Status:     status,
		Records:    10,
		Bytes:      2048,
		Attempts:   1,
		StatusCode: 200,
		StartedAt:  at.Add(-time.Second),
		Duration:   250 * time.Millisecond,
		RecordedAt: at,
	}
}

func TestStorage_StoreAndQuery(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()
			base := time.Now().UTC().Truncate(time.Millisecond)

			failed := entryAt("b", "failed", base.Add(time.Minute))
			failed.Error = "server returned 503"
			failed.StatusCode = 503
			failed.Attempts = 4

			for _, e := range []*Entry{entryAt("a", "succeeded", base), failed, entryAt("c", "succeeded", base.Add(2*time.Minute))} {
				if err := s.Store(ctx, e); err != nil {
					t.Fatalf("Store(%s) error = %v", e.ID, err)
				}
			}

			all, err := s.Query(ctx, &Query{})
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if len(all) != 3 || all[0].ID != "c" || all[2].ID != "a" {
				t.Fatalf("Query() order = %v, want newest first", ids(all))
			}

			asc, _ := s.Query(ctx, &Query{Ascending: true, Limit: 2})
			if got := ids(asc); got != "a,b" {
				t.Errorf("ascending limited = %s", got)
			}

			got, _ := s.Query(ctx, &Query{Status: "failed"})
			if len(got) != 1 {
				t.Fatalf("failed entries = %d", len(got))
			}
			e := got[0]
			if e.Error != "server returned 503" || e.StatusCode != 503 || e.Attempts != 4 {
				t.Errorf("failed entry = %+v", e)
			}
			if !e.RecordedAt.Equal(base.Add(time.Minute)) {
				t.Errorf("RecordedAt = %v, want %v", e.RecordedAt, base.Add(time.Minute))
			}
			if e.Duration != 250*time.Millisecond {
				t.Errorf("Duration = %v", e.Duration)
			}

			since := base.Add(30 * time.Second)
			if n, _ := s.Count(ctx, &Query{Since: &since}); n != 2 {
				t.Errorf("Count(since) = %d, want 2", n)
			}
			if n, _ := s.Count(ctx, &Query{BatchID: "batch-c"}); n != 1 {
				t.Errorf("Count(batch) = %d, want 1", n)
			}

			off, _ := s.Query(ctx, &Query{Offset: 5})
			if len(off) != 0 {
				t.Errorf("offset past end returned %d entries", len(off))
			}

			if err := s.Ping(ctx); err != nil {
				t.Errorf("Ping() error = %v", err)
			}
		})
	}
}

func TestStorage_Delete(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()
			base := time.Now().UTC().Truncate(time.Millisecond)

			for i := 0; i < 5; i++ {
				_ = s.Store(ctx, entryAt(fmt.Sprint(i), "succeeded", base.Add(time.Duration(i)*time.Hour)))
			}

			cutoff := base.Add(90 * time.Minute)
			deleted, err := s.Delete(ctx, &Query{Until: &cutoff})
			if err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if deleted != 2 {
				t.Errorf("deleted = %d, want 2", deleted)
			}
			if n, _ := s.Count(ctx, nil); n != 3 {
				t.Errorf("remaining = %d, want 3", n)
			}
		})
	}
}

func TestSQLiteStorage_CreatesFile(t *testing.T) {
	_, dbPath := createTempDB(t, DriverModernc)
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestSQLiteStorage_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	cfg := &SQLiteConfig{Path: dbPath, Driver: DriverModernc}

	s, err := NewSQLiteStorage(cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = s.Store(context.Background(), entryAt("keep", "succeeded", time.Now()))
	s.Close()

	s, err = NewSQLiteStorage(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if n, _ := s.Count(context.Background(), nil); n != 1 {
		t.Errorf("Count() after reopen = %d, want 1", n)
	}
}

func TestMemoryStorage_Closed(t *testing.T) {
	s := NewMemoryStorage()
	s.Close()

	var storageErr *StorageError
	if err := s.Store(context.Background(), entryAt("x", "succeeded", time.Now())); !errors.As(err, &storageErr) {
		t.Errorf("Store after Close = %v", err)
	}
	if err := s.Ping(context.Background()); err == nil {
		t.Error("Ping after Close succeeded")
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LedgerConfig
		want    string
		wantErr bool
	}{
		{name: "memory", cfg: config.LedgerConfig{Backend: "memory"}, want: "*ledger.MemoryStorage"},
		{name: "default", cfg: config.LedgerConfig{}, want: "*ledger.MemoryStorage"},
		{name: "sqlite", cfg: config.LedgerConfig{
			Backend: "sqlite",
			SQLite:  config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "l.db"), Driver: "sqlite"},
		}, want: "*ledger.SQLiteStorage"},
		{name: "unknown", cfg: config.LedgerConfig{Backend: "postgres"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer s.Close()
			if got := fmt.Sprintf("%T", s); got != tt.want {
				t.Errorf("Open() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNewEntry(t *testing.T) {
	started := time.Now()
	o := delivery.Outcome{
		BatchID:    "b1",
		Trigger:    batch.TriggerAge,
		Records:    3,
		Bytes:      120,
		Status:     delivery.StatusFailed,
		Attempts:   4,
		StatusCode: 429,
		Err:        errors.New("giving up"),
		Started:    started,
		Duration:   time.Second,
	}

	e := NewEntry(o)
	if e.ID == "" || e.BatchID != "b1" || e.Trigger != "age" || e.Status != "failed" {
		t.Errorf("NewEntry() = %+v", e)
	}
	if e.Error != "giving up" || e.Attempts != 4 || e.StatusCode != 429 {
		t.Errorf("NewEntry() = %+v", e)
	}
	if e.RecordedAt.Before(started) {
		t.Error("RecordedAt before start")
	}
}

func ids(entries []*Entry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.ID
	}
	return strings.Join(parts, ",")
}
