package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	other := errors.New("boom")

	assert.NoError(t, Translate(nil))
	assert.ErrorIs(t, Translate(pgx.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, Translate(fmt.Errorf("scan: %w", pgx.ErrNoRows)), ErrNotFound)
	assert.ErrorIs(t, Translate(&pgconn.PgError{Code: "23505"}), ErrDuplicate)
	assert.ErrorIs(t, Translate(&pgconn.PgError{Code: "23503"}), ErrReferenced)
	assert.Equal(t, other, Translate(other))

	syntax := &pgconn.PgError{Code: "42601"}
	assert.Equal(t, error(syntax), Translate(syntax))
}
