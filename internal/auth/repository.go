package auth

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shramsetu/backend/internal/models"
	"github.com/shramsetu/backend/internal/repository"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new account. A taken phone number fails with repository.ErrDuplicate.
func (r *Repository) Create(ctx context.Context, a *models.Account) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (phone, name, role, company, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, a.Phone, a.Name, a.Role, a.Company, a.PasswordHash).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return repository.Translate(err)
}

// GetByPhone returns the account including its password hash, or repository.ErrNotFound.
func (r *Repository) GetByPhone(ctx context.Context, phone string) (*models.Account, error) {
	var a models.Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, phone, name, role, company, password_hash, created_at, updated_at
		FROM accounts WHERE phone = $1
	`, phone).Scan(&a.ID, &a.Phone, &a.Name, &a.Role, &a.Company, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, repository.Translate(err)
	}
	return &a, nil
}
