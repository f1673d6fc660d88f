package store

import "ledgermesh/internal/replicaerr"

// schema is the idempotent migration script (spec.md §6: "Tables:
// peers, messages, credit_relationships, credit_transactions,
// state_sync"). Timestamps are stored as signed seconds since epoch;
// JSON-encoded columns (addresses, reputation history) are opaque to
// SQL and validated on read.
const schema = `
CREATE TABLE IF NOT EXISTS peers (
	peer_id                 TEXT PRIMARY KEY,
	public_key              TEXT NOT NULL,
	addresses               TEXT NOT NULL DEFAULT '[]',
	display_name            TEXT,
	first_seen              INTEGER NOT NULL,
	last_seen               INTEGER NOT NULL,
	successful_interactions INTEGER NOT NULL DEFAULT 0,
	failed_interactions     INTEGER NOT NULL DEFAULT 0,
	reputation_history      TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS messages (
	id           TEXT PRIMARY KEY,
	message_type TEXT NOT NULL,
	sender       TEXT NOT NULL,
	recipient    TEXT,
	payload      BLOB NOT NULL,
	signature    BLOB,
	timestamp    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender);
CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp);
CREATE INDEX IF NOT EXISTS idx_messages_type ON messages(message_type);

CREATE TABLE IF NOT EXISTS credit_relationships (
	id               TEXT PRIMARY KEY,
	creditor         TEXT NOT NULL,
	debtor           TEXT NOT NULL,
	credit_limit     REAL NOT NULL DEFAULT 0,
	balance          REAL NOT NULL DEFAULT 0,
	active           INTEGER NOT NULL DEFAULT 1,
	established      INTEGER NOT NULL,
	last_transaction INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_credit_creditor ON credit_relationships(creditor);
CREATE INDEX IF NOT EXISTS idx_credit_debtor ON credit_relationships(debtor);

CREATE TABLE IF NOT EXISTS credit_transactions (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	relationship_id TEXT NOT NULL,
	amount          REAL NOT NULL,
	balance_after   REAL NOT NULL,
	description     TEXT,
	at              INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_credit_tx_relationship ON credit_transactions(relationship_id);

CREATE TABLE IF NOT EXISTS state_sync (
	key     TEXT PRIMARY KEY,
	value   BLOB NOT NULL,
	version INTEGER NOT NULL
);
`

// migrate applies schema. It is safe to call on every open: every
// statement is guarded with IF NOT EXISTS.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return replicaerr.Migration("store.migrate", err)
	}
	return nil
}
