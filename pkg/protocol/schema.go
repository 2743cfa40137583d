package protocol

// SchemaDDL defines the SQLite schema for the history ledger.
// seq preserves insertion order; eviction deletes the lowest seq first.
const SchemaDDL = `
CREATE TABLE IF NOT EXISTS events (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    created_at INTEGER NOT NULL,
    mutation TEXT NOT NULL,
    snapshot_id TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'applied'
);

CREATE INDEX IF NOT EXISTS idx_events_mutation ON events(mutation);
`
