package store

import (
	"database/sql"
	"errors"

	"ledgermesh/internal/replicaerr"
)

// SetSyncValue inserts key with version 1, or bumps version = version + 1
// on conflict (spec.md §4.1).
func (s *Store) SetSyncValue(key string, value []byte) (uint64, error) {
	_, err := s.db.Exec(`
		INSERT INTO state_sync (key, value, version) VALUES (?, ?, 1)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, version = state_sync.version + 1
	`, key, value)
	if err != nil {
		return 0, replicaerr.Integrity("store.SetSyncValue", err)
	}
	_, version, err := s.GetSyncValue(key)
	return version, err
}

// SetSyncValueAtVersion writes value at an explicit version, used when
// accepting a remote KeyValueUpdate whose version already won the
// resolver's comparison (spec.md §4.3: accept iff version_in > version_local).
func (s *Store) SetSyncValueAtVersion(key string, value []byte, version uint64) error {
	_, err := s.db.Exec(`
		INSERT INTO state_sync (key, value, version) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, version = excluded.version
	`, key, value, version)
	if err != nil {
		return replicaerr.Integrity("store.SetSyncValueAtVersion", err)
	}
	return nil
}

// GetSyncValue returns (value, version) for key.
func (s *Store) GetSyncValue(key string) ([]byte, uint64, error) {
	var value []byte
	var version uint64
	err := s.db.QueryRow(`SELECT value, version FROM state_sync WHERE key = ?`, key).Scan(&value, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, replicaerr.NotFound("sync_value", key)
	}
	if err != nil {
		return nil, 0, replicaerr.Connection("store.GetSyncValue", err)
	}
	return value, version, nil
}

// DeleteSyncValue removes key.
func (s *Store) DeleteSyncValue(key string) error {
	res, err := s.db.Exec(`DELETE FROM state_sync WHERE key = ?`, key)
	if err != nil {
		return replicaerr.Integrity("store.DeleteSyncValue", err)
	}
	return requireRowsAffected(res, "sync_value", key)
}
