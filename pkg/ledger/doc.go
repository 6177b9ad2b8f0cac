// Package ledger keeps a local record of batch delivery outcomes.
//
// Every batch the dispatcher finishes with, delivered or dropped, becomes
// one Entry: batch ID, flush trigger, record count, payload size, attempts,
// last status code, outcome and error. The payload itself is never stored,
// so a failed batch cannot be replayed from the ledger.
//
// # Storage Backends
//
//   - Memory: the default; entries live for the life of the process
//   - SQLite: durable file storage through database/sql, using either the
//     pure Go "sqlite" driver (modernc.org/sqlite) or the cgo "sqlite3"
//     driver (mattn/go-sqlite3)
//
// # Basic Usage
//
//	store, err := ledger.Open(cfg.Ledger)
//	if err != nil {
//	    return err
//	}
//	rec := ledger.NewRecorder(store, ledger.RecorderConfig{})
//	dispatcher := delivery.NewDispatcher(client, dcfg,
//	    delivery.WithOutcomeHandler(rec.Handle),
//	)
//	defer rec.Close()
//
// The Recorder writes on its own goroutine so delivery workers never wait
// on storage. Retention is enforced by the retention subpackage.
package ledger
