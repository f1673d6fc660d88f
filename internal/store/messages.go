package store

import (
	"database/sql"
	"errors"
	"time"

	"ledgermesh/internal/model"
	"ledgermesh/internal/replicaerr"
)

// StoreMessage inserts m. Messages are immutable, and duplicates arise
// naturally from gossip, so a primary-key conflict silently keeps the
// existing row (spec.md §4.1, S6).
func (s *Store) StoreMessage(m model.Message) error {
	var recipient sql.NullString
	if m.Recipient != "" {
		recipient = sql.NullString{String: m.Recipient, Valid: true}
	}
	_, err := s.db.Exec(`
		INSERT INTO messages (id, message_type, sender, recipient, payload, signature, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, m.ID, string(m.MessageType), m.Sender, recipient, m.Payload, m.Signature, toUnix(m.Timestamp))
	if err != nil {
		return replicaerr.Integrity("store.StoreMessage", err)
	}
	return nil
}

const messageColumns = `id, message_type, sender, recipient, payload, signature, timestamp`

func scanMessage(scan func(...any) error) (model.Message, error) {
	var m model.Message
	var messageType string
	var recipient sql.NullString
	var signature []byte
	var ts int64
	if err := scan(&m.ID, &messageType, &m.Sender, &recipient, &m.Payload, &signature, &ts); err != nil {
		return m, err
	}
	m.MessageType = model.MessageType(messageType)
	if recipient.Valid {
		m.Recipient = recipient.String
	}
	m.Signature = signature
	m.Timestamp = fromUnix(ts)
	return m, nil
}

// GetMessage returns a single message by id.
func (s *Store) GetMessage(id string) (model.Message, error) {
	row := s.db.QueryRow(`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	m, err := scanMessage(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return m, replicaerr.NotFound("message", id)
	}
	if err != nil {
		return m, err
	}
	return m, nil
}

func (s *Store) queryMessages(query string, args ...any) ([]model.Message, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, replicaerr.Connection("store.queryMessages", err)
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		m, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListMessagesFrom returns up to limit messages from sender, newest first.
func (s *Store) ListMessagesFrom(sender string, limit int) ([]model.Message, error) {
	return s.queryMessages(`
		SELECT `+messageColumns+` FROM messages WHERE sender = ? ORDER BY timestamp DESC LIMIT ?
	`, sender, limit)
}

// ListRecentMessages returns up to limit messages, newest first.
func (s *Store) ListRecentMessages(limit int) ([]model.Message, error) {
	return s.queryMessages(`
		SELECT ` + messageColumns + ` FROM messages ORDER BY timestamp DESC LIMIT ?
	`, limit)
}

// ListMessagesByType returns every message of the given type, newest first.
func (s *Store) ListMessagesByType(t model.MessageType) ([]model.Message, error) {
	return s.queryMessages(`
		SELECT `+messageColumns+` FROM messages WHERE message_type = ? ORDER BY timestamp DESC
	`, string(t))
}

// PruneMessages deletes messages older than olderThanSeconds (measured
// from now) and returns the count removed (spec.md §4.1). Non-goal
// "compaction of old reputation history" does not cover messages, so
// this stays available.
func (s *Store) PruneMessages(olderThanSeconds int64) (int64, error) {
	cutoff := time.Now().Unix() - olderThanSeconds
	res, err := s.db.Exec(`DELETE FROM messages WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, replicaerr.Connection("store.PruneMessages", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, replicaerr.Connection("store.PruneMessages", err)
	}
	return n, nil
}
