// Package replicaerr is the closed error taxonomy surfaced by the
// durable store to the replica coordinator (spec.md §7). Kinds, not
// concrete type names, are what callers are expected to switch on —
// every error here wraps the underlying driver error with %w so
// errors.Is/errors.As keep working against *sql.DB failures.
package replicaerr

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Use errors.Is against these, or the Kind() accessor
// below for logging.
var (
	ErrConnection     = errors.New("connection")
	ErrMigration      = errors.New("migration")
	ErrNotFound       = errors.New("not found")
	ErrSerialization  = errors.New("serialization")
	ErrDeserialize    = errors.New("deserialization")
	ErrIntegrity      = errors.New("integrity")
)

// NotFoundError is a NotFound{entity, id} per spec.md §7.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NotFound builds a NotFoundError.
func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func wrap(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// Connection wraps err as a Connection-kind error.
func Connection(op string, err error) error { return wrap(ErrConnection, op, err) }

// Migration wraps err as a Migration-kind error.
func Migration(op string, err error) error { return wrap(ErrMigration, op, err) }

// Serialization wraps err as a Serialization-kind error (encode side).
func Serialization(op string, err error) error { return wrap(ErrSerialization, op, err) }

// Deserialization wraps err as a Deserialization-kind error (decode side).
func Deserialization(op string, err error) error { return wrap(ErrDeserialize, op, err) }

// Integrity wraps err as an Integrity-kind error (constraint violation).
func Integrity(op string, err error) error { return wrap(ErrIntegrity, op, err) }

// Is reports whether err carries the given sentinel kind, looking
// through NotFoundError as well as the wrapped sentinels above.
func Is(err, kind error) bool {
	return errors.Is(err, kind)
}
