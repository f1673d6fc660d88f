package store

import (
	"database/sql"
	"encoding/json"
	"errors"

	"ledgermesh/internal/model"
	"ledgermesh/internal/replicaerr"
)

// UpsertPeer performs INSERT ... ON CONFLICT(peer_id) DO UPDATE. If
// reputation is nil on insert, defaults are written (score 0.5, zero
// counters, empty history); on conflict, display_name uses
// COALESCE(new, old) so a peer never loses its name by being
// re-announced without one (spec.md §4.1).
func (s *Store) UpsertPeer(info model.PeerRecord, reputation *model.Reputation) error {
	addrJSON, err := json.Marshal(info.Addresses)
	if err != nil {
		return replicaerr.Serialization("store.UpsertPeer: addresses", err)
	}

	rep := model.DefaultReputation()
	if reputation != nil {
		rep = *reputation
	}
	historyJSON, err := json.Marshal(rep.History)
	if err != nil {
		return replicaerr.Serialization("store.UpsertPeer: history", err)
	}

	var displayName sql.NullString
	if info.DisplayName != "" {
		displayName = sql.NullString{String: info.DisplayName, Valid: true}
	}

	_, err = s.db.Exec(`
		INSERT INTO peers (peer_id, public_key, addresses, display_name, first_seen, last_seen,
			successful_interactions, failed_interactions, reputation_history)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(peer_id) DO UPDATE SET
			public_key = excluded.public_key,
			addresses = excluded.addresses,
			display_name = COALESCE(excluded.display_name, peers.display_name),
			last_seen = excluded.last_seen
	`, info.PeerID, info.PublicKey, string(addrJSON), displayName,
		toUnix(info.FirstSeen), toUnix(info.LastSeen),
		rep.SuccessfulInteractions, rep.FailedInteractions, string(historyJSON))
	if err != nil {
		return replicaerr.Integrity("store.UpsertPeer", err)
	}
	return nil
}

func scanPeer(scan func(...any) error) (model.PeerRecord, model.Reputation, error) {
	var (
		p                model.PeerRecord
		rep              model.Reputation
		addrJSON         string
		historyJSON      string
		displayName      sql.NullString
		firstSeen        int64
		lastSeen         int64
	)
	if err := scan(&p.PeerID, &p.PublicKey, &addrJSON, &displayName, &firstSeen, &lastSeen,
		&rep.SuccessfulInteractions, &rep.FailedInteractions, &historyJSON); err != nil {
		return p, rep, err
	}

	if err := json.Unmarshal([]byte(addrJSON), &p.Addresses); err != nil {
		return p, rep, replicaerr.Deserialization("store.scanPeer: addresses", err)
	}
	if err := json.Unmarshal([]byte(historyJSON), &rep.History); err != nil {
		return p, rep, replicaerr.Deserialization("store.scanPeer: history", err)
	}
	if displayName.Valid {
		p.DisplayName = displayName.String
	}
	p.FirstSeen = fromUnix(firstSeen)
	p.LastSeen = fromUnix(lastSeen)
	return p, rep, nil
}

const peerColumns = `peer_id, public_key, addresses, display_name, first_seen, last_seen,
	successful_interactions, failed_interactions, reputation_history`

// GetPeer returns the peer and its reputation, or a NotFound error.
func (s *Store) GetPeer(peerID string) (model.PeerRecord, model.Reputation, error) {
	row := s.db.QueryRow(`SELECT `+peerColumns+` FROM peers WHERE peer_id = ?`, peerID)
	p, rep, err := scanPeer(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return p, rep, replicaerr.NotFound("peer", peerID)
	}
	if err != nil {
		return p, rep, err
	}
	return p, rep, nil
}

// ListPeers returns every known peer, ordered by last_seen descending.
func (s *Store) ListPeers() ([]model.PeerRecord, []model.Reputation, error) {
	rows, err := s.db.Query(`SELECT ` + peerColumns + ` FROM peers ORDER BY last_seen DESC`)
	if err != nil {
		return nil, nil, replicaerr.Connection("store.ListPeers", err)
	}
	defer rows.Close()

	var peers []model.PeerRecord
	var reps []model.Reputation
	for rows.Next() {
		p, rep, err := scanPeer(rows.Scan)
		if err != nil {
			return nil, nil, err
		}
		peers = append(peers, p)
		reps = append(reps, rep)
	}
	return peers, reps, rows.Err()
}

// ListTrustedPeers returns peers whose score meets threshold, ordered by
// score descending. Score is computed in Go (not SQL) so the definition
// in model.Reputation.Score stays the single source of truth.
func (s *Store) ListTrustedPeers(threshold float64) ([]model.PeerRecord, []model.Reputation, error) {
	peers, reps, err := s.ListPeers()
	if err != nil {
		return nil, nil, err
	}
	var outPeers []model.PeerRecord
	var outReps []model.Reputation
	for i, rep := range reps {
		if rep.Score() >= threshold {
			outPeers = append(outPeers, peers[i])
			outReps = append(outReps, rep)
		}
	}
	for i := 0; i < len(outReps); i++ {
		for j := i + 1; j < len(outReps); j++ {
			if outReps[j].Score() > outReps[i].Score() {
				outReps[i], outReps[j] = outReps[j], outReps[i]
				outPeers[i], outPeers[j] = outPeers[j], outPeers[i]
			}
		}
	}
	return outPeers, outReps, nil
}

// UpdatePeerReputation writes new counters and history for peerID.
func (s *Store) UpdatePeerReputation(peerID string, rep model.Reputation) error {
	historyJSON, err := json.Marshal(rep.History)
	if err != nil {
		return replicaerr.Serialization("store.UpdatePeerReputation: history", err)
	}
	res, err := s.db.Exec(`
		UPDATE peers SET successful_interactions = ?, failed_interactions = ?, reputation_history = ?
		WHERE peer_id = ?
	`, rep.SuccessfulInteractions, rep.FailedInteractions, string(historyJSON), peerID)
	if err != nil {
		return replicaerr.Integrity("store.UpdatePeerReputation", err)
	}
	return requireRowsAffected(res, "peer", peerID)
}

// TouchPeer bumps last_seen to now.
func (s *Store) TouchPeer(peerID string, now int64) error {
	res, err := s.db.Exec(`UPDATE peers SET last_seen = ? WHERE peer_id = ?`, now, peerID)
	if err != nil {
		return replicaerr.Integrity("store.TouchPeer", err)
	}
	return requireRowsAffected(res, "peer", peerID)
}

// DeletePeer removes a peer row. The replica never calls this implicitly
// (spec.md §3: "never deleted implicitly") — it exists for operator use.
func (s *Store) DeletePeer(peerID string) error {
	res, err := s.db.Exec(`DELETE FROM peers WHERE peer_id = ?`, peerID)
	if err != nil {
		return replicaerr.Integrity("store.DeletePeer", err)
	}
	return requireRowsAffected(res, "peer", peerID)
}

// CountPeers returns the total number of known peers.
func (s *Store) CountPeers() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM peers`).Scan(&n); err != nil {
		return 0, replicaerr.Connection("store.CountPeers", err)
	}
	return n, nil
}

func requireRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return replicaerr.Connection("store.requireRowsAffected", err)
	}
	if n == 0 {
		return replicaerr.NotFound(entity, id)
	}
	return nil
}
