package ledger

import (
	"fmt"

	"github.com/FireTail-io/firetail-go-lib/pkg/config"
)

// Open creates the backend selected by cfg.Backend.
func Open(cfg config.LedgerConfig) (Storage, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStorage(), nil
	case "sqlite":
		return NewSQLiteStorage(&SQLiteConfig{
			Path:         cfg.SQLite.Path,
			Driver:       cfg.SQLite.Driver,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.SQLite.MaxIdleConns,
			WALMode:      cfg.SQLite.WALMode,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		})
	default:
		return nil, NewStorageError(cfg.Backend, "open", fmt.Errorf("unsupported backend %q", cfg.Backend))
	}
}
