package ledger

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the ledger tables. Timestamps are unix milliseconds so both
// drivers read them back identically.
const Schema = `
CREATE TABLE IF NOT EXISTS deliveries (
    id TEXT PRIMARY KEY,
    batch_id TEXT NOT NULL,
    flush_trigger TEXT NOT NULL,
    status TEXT NOT NULL,
    records INTEGER NOT NULL,
    bytes INTEGER NOT NULL,
    attempts INTEGER NOT NULL,
    status_code INTEGER NOT NULL,
    error TEXT,
    started_at INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,
    recorded_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_deliveries_recorded_at ON deliveries(recorded_at);
CREATE INDEX IF NOT EXISTS idx_deliveries_status ON deliveries(status);
CREATE INDEX IF NOT EXISTS idx_deliveries_batch_id ON deliveries(batch_id);
`

// InsertSchemaVersion records the applied schema version.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, ?)
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const entryColumns = `id, batch_id, flush_trigger, status, records, bytes, attempts, status_code, error, started_at, duration_ms, recorded_at`
