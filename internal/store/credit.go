package store

import (
	"database/sql"
	"errors"

	"ledgermesh/internal/model"
	"ledgermesh/internal/replicaerr"
)

// UpsertCreditRelationship writes c. Per SPEC_FULL.md Open Question
// decision 4, no foreign-key constraint ties this to the peers table —
// a CreditUpdate for unknown endpoints is accepted and persisted.
func (s *Store) UpsertCreditRelationship(c model.CreditRelationship) error {
	_, err := s.db.Exec(`
		INSERT INTO credit_relationships (id, creditor, debtor, credit_limit, balance, active, established, last_transaction)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			credit_limit = excluded.credit_limit,
			balance = excluded.balance,
			active = excluded.active,
			last_transaction = excluded.last_transaction
	`, c.ID(), c.Creditor, c.Debtor, c.CreditLimit, c.Balance, c.Active,
		toUnix(c.Established), toUnix(c.LastTransaction))
	if err != nil {
		return replicaerr.Integrity("store.UpsertCreditRelationship", err)
	}
	return nil
}

const creditColumns = `id, creditor, debtor, credit_limit, balance, active, established, last_transaction`

func scanCredit(scan func(...any) error) (model.CreditRelationship, error) {
	var c model.CreditRelationship
	var id string
	var established, lastTx int64
	if err := scan(&id, &c.Creditor, &c.Debtor, &c.CreditLimit, &c.Balance, &c.Active, &established, &lastTx); err != nil {
		return c, err
	}
	c.Established = fromUnix(established)
	c.LastTransaction = fromUnix(lastTx)
	return c, nil
}

// GetCreditRelationship looks up a relationship by its derived id.
func (s *Store) GetCreditRelationship(id string) (model.CreditRelationship, error) {
	row := s.db.QueryRow(`SELECT `+creditColumns+` FROM credit_relationships WHERE id = ?`, id)
	c, err := scanCredit(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return c, replicaerr.NotFound("credit_relationship", id)
	}
	return c, err
}

// GetCreditRelationshipBetween looks up the relationship for the ordered
// pair (creditor, debtor).
func (s *Store) GetCreditRelationshipBetween(creditor, debtor string) (model.CreditRelationship, error) {
	return s.GetCreditRelationship(model.RelationshipID(creditor, debtor))
}

func (s *Store) queryCredits(query string, args ...any) ([]model.CreditRelationship, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, replicaerr.Connection("store.queryCredits", err)
	}
	defer rows.Close()

	var out []model.CreditRelationship
	for rows.Next() {
		c, err := scanCredit(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListCreditRelationshipsFor returns every relationship where peer is
// either endpoint.
func (s *Store) ListCreditRelationshipsFor(peer string) ([]model.CreditRelationship, error) {
	return s.queryCredits(`
		SELECT `+creditColumns+` FROM credit_relationships WHERE creditor = ? OR debtor = ?
	`, peer, peer)
}

// ListActiveCreditRelationships returns every relationship with active = true.
func (s *Store) ListActiveCreditRelationships() ([]model.CreditRelationship, error) {
	return s.queryCredits(`
		SELECT ` + creditColumns + ` FROM credit_relationships WHERE active = 1
	`)
}

// RecordCreditTransaction appends to the transactions side-table. The
// caller is responsible for also calling UpsertCreditRelationship in the
// same logical operation to update the running balance and
// last_transaction (spec.md §4.1).
func (s *Store) RecordCreditTransaction(tx model.CreditTransaction) error {
	var desc sql.NullString
	if tx.Description != "" {
		desc = sql.NullString{String: tx.Description, Valid: true}
	}
	_, err := s.db.Exec(`
		INSERT INTO credit_transactions (relationship_id, amount, balance_after, description, at)
		VALUES (?, ?, ?, ?, ?)
	`, tx.RelationshipID, tx.Amount, tx.BalanceAfter, desc, toUnix(tx.At))
	if err != nil {
		return replicaerr.Integrity("store.RecordCreditTransaction", err)
	}
	return nil
}
