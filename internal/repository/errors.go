package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrConflict is returned when a conditional write matched no row because the
	// row is no longer in the expected state.
	ErrConflict = errors.New("record state changed")
	// ErrReferenced is returned when a delete is blocked by a foreign key.
	ErrReferenced = errors.New("record is referenced")
)

// Translate maps pgx errors onto the sentinels above. Other errors pass through.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrDuplicate
		case "23503":
			return ErrReferenced
		}
	}
	return err
}
