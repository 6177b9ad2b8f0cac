package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// SQLite driver names registered with database/sql.
const (
	DriverModernc = "sqlite"  // modernc.org/sqlite, pure Go
	DriverCgo     = "sqlite3" // github.com/mattn/go-sqlite3
)

// SQLiteConfig contains configuration for the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file path. ":memory:" is accepted for tests.
	Path string

	// Driver is DriverModernc or DriverCgo.
	// Default: DriverModernc
	Driver string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 4
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 2
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging.
	WALMode bool

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/ledger.db",
		Driver:       DriverModernc,
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements Storage on SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database, creating the file's directory and
// the schema when missing.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Driver == "" {
		config.Driver = DriverModernc
	}

	logger := slog.Default().With("component", "ledger.sqlite")

	if config.Path != ":memory:" {
		if dir := filepath.Dir(config.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, NewStorageError("sqlite", "mkdir", err)
			}
		}
	}

	db, err := sql.Open(config.Driver, config.Path)
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}

	if config.Path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite ledger initialized",
		"path", config.Path,
		"driver", config.Driver,
		"wal_mode", config.WALMode,
	)
	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode && s.config.Path != ":memory:" {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return NewStorageError("sqlite", "enable_wal", err)
		}
	}

	if s.config.BusyTimeout > 0 {
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
			return NewStorageError("sqlite", "set_busy_timeout", err)
		}
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return NewStorageError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion, time.Now().UnixMilli()); err != nil {
		return NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		return NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Store inserts e.
func (s *SQLiteStorage) Store(ctx context.Context, e *Entry) error {
	var errVal any
	if e.Error != "" {
		errVal = e.Error
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO deliveries ("+entryColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		e.ID, e.BatchID, e.Trigger, e.Status,
		e.Records, e.Bytes, e.Attempts, e.StatusCode,
		errVal,
		e.StartedAt.UnixMilli(), e.Duration.Milliseconds(), e.RecordedAt.UnixMilli(),
	)
	if err != nil {
		return NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Query returns matching entries.
func (s *SQLiteStorage) Query(ctx context.Context, q *Query) ([]*Entry, error) {
	if q == nil {
		q = &Query{}
	}
	where, args := buildWhereClause(q)

	var b strings.Builder
	b.WriteString("SELECT " + entryColumns + " FROM deliveries")
	if where != "" {
		b.WriteString(" WHERE " + where)
	}
	if q.Ascending {
		b.WriteString(" ORDER BY recorded_at ASC, rowid ASC")
	} else {
		b.WriteString(" ORDER BY recorded_at DESC, rowid DESC")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	fmt.Fprintf(&b, " LIMIT %d", limit)
	if q.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	entries := []*Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, NewStorageError("sqlite", "scan", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "query", err)
	}
	return entries, nil
}

// Count returns the number of matching entries.
func (s *SQLiteStorage) Count(ctx context.Context, q *Query) (int64, error) {
	if q == nil {
		q = &Query{}
	}
	where, args := buildWhereClause(q)
	query := "SELECT COUNT(*) FROM deliveries"
	if where != "" {
		query += " WHERE " + where
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, NewStorageError("sqlite", "count", err)
	}
	return n, nil
}

// Delete removes matching entries.
func (s *SQLiteStorage) Delete(ctx context.Context, q *Query) (int64, error) {
	if q == nil {
		q = &Query{}
	}
	where, args := buildWhereClause(q)
	query := "DELETE FROM deliveries"
	if where != "" {
		query += " WHERE " + where
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, NewStorageError("sqlite", "delete", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, NewStorageError("sqlite", "delete", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return NewStorageError("sqlite", "ping", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite ledger closed")
	return nil
}

func buildWhereClause(q *Query) (string, []any) {
	var conditions []string
	var args []any

	if q.Since != nil {
		conditions = append(conditions, "recorded_at >= ?")
		args = append(args, q.Since.UnixMilli())
	}
	if q.Until != nil {
		conditions = append(conditions, "recorded_at <= ?")
		args = append(args, q.Until.UnixMilli())
	}
	if q.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, q.Status)
	}
	if q.BatchID != "" {
		conditions = append(conditions, "batch_id = ?")
		args = append(args, q.BatchID)
	}

	return strings.Join(conditions, " AND "), args
}

func scanEntry(rows *sql.Rows) (*Entry, error) {
	var (
		e                                 Entry
		errVal                            sql.NullString
		startedMs, durationMs, recordedMs int64
	)
	err := rows.Scan(
		&e.ID, &e.BatchID, &e.Trigger, &e.Status,
		&e.Records, &e.Bytes, &e.Attempts, &e.StatusCode,
		&errVal,
		&startedMs, &durationMs, &recordedMs,
	)
	if err != nil {
		return nil, err
	}
	if errVal.Valid {
		e.Error = errVal.String
	}
	e.StartedAt = time.UnixMilli(startedMs)
	e.Duration = time.Duration(durationMs) * time.Millisecond
	e.RecordedAt = time.UnixMilli(recordedMs)
	return &e, nil
}
