package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shramsetu/backend/internal/models"
)

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var a models.Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, phone, name, role, company, created_at, updated_at
		FROM accounts WHERE id = $1
	`, id).Scan(&a.ID, &a.Phone, &a.Name, &a.Role, &a.Company, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, Translate(err)
	}
	return &a, nil
}

// UpdateProfile changes the display fields of an account.
func (r *AccountRepo) UpdateProfile(ctx context.Context, id uuid.UUID, name, company string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts SET name = $2, company = $3, updated_at = now() WHERE id = $1
	`, id, name, company)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PhoneFor resolves the phone number of a notification recipient.
// Workers are addressed by worker profile id, employers by account id.
func (r *AccountRepo) PhoneFor(ctx context.Context, recipientID uuid.UUID, recipientType string) (string, error) {
	var query string
	switch recipientType {
	case models.RecipientWorker:
		query = `SELECT phone FROM workers WHERE id = $1`
	case models.RecipientEmployer:
		query = `SELECT phone FROM accounts WHERE id = $1`
	default:
		return "", fmt.Errorf("unknown recipient type %q", recipientType)
	}
	var phone string
	if err := r.pool.QueryRow(ctx, query, recipientID).Scan(&phone); err != nil {
		return "", Translate(err)
	}
	return phone, nil
}
