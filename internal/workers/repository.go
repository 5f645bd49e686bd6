package workers

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shramsetu/backend/internal/models"
	"github.com/shramsetu/backend/internal/repository"
)

const workerColumns = `id, account_id, name, phone, national_id, skills, village, district, state, languages,
	experience_years, available, rating::float8, shakti_score::float8, balance, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanWorker(row pgx.Row) (*models.Worker, error) {
	var w models.Worker
	err := row.Scan(&w.ID, &w.AccountID, &w.Name, &w.Phone, &w.NationalID, &w.Skills,
		&w.Location.Village, &w.Location.District, &w.Location.State, &w.Languages,
		&w.ExperienceYears, &w.Available, &w.Rating, &w.ShaktiScore, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, repository.Translate(err)
	}
	return &w, nil
}

// Create inserts a worker profile. A second profile for the same account fails with
// repository.ErrDuplicate.
func (r *Repository) Create(ctx context.Context, w *models.Worker) (*models.Worker, error) {
	return scanWorker(r.pool.QueryRow(ctx, `
		INSERT INTO workers (account_id, name, phone, national_id, skills, village, district, state, languages,
			experience_years, available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+workerColumns,
		w.AccountID, w.Name, w.Phone, w.NationalID, w.Skills, w.Location.Village, w.Location.District,
		w.Location.State, w.Languages, w.ExperienceYears, w.Available))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Worker, error) {
	return scanWorker(r.pool.QueryRow(ctx, `SELECT `+workerColumns+` FROM workers WHERE id = $1`, id))
}

func (r *Repository) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*models.Worker, error) {
	return scanWorker(r.pool.QueryRow(ctx, `SELECT `+workerColumns+` FROM workers WHERE account_id = $1`, accountID))
}

// Update overwrites the editable profile fields. Balance, rating and score are not touched.
func (r *Repository) Update(ctx context.Context, w *models.Worker) (*models.Worker, error) {
	return scanWorker(r.pool.QueryRow(ctx, `
		UPDATE workers SET name = $2, skills = $3, village = $4, district = $5, state = $6, languages = $7,
			experience_years = $8, available = $9, updated_at = now()
		WHERE id = $1
		RETURNING `+workerColumns,
		w.ID, w.Name, w.Skills, w.Location.Village, w.Location.District, w.Location.State, w.Languages,
		w.ExperienceYears, w.Available))
}

// ListAvailableByState returns available workers in the state, compared case-insensitively.
func (r *Repository) ListAvailableByState(ctx context.Context, state string) ([]*models.Worker, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+workerColumns+` FROM workers
		WHERE lower(state) = lower($1) AND available
		ORDER BY created_at
	`, strings.TrimSpace(state))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]*models.Worker, 0)
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, w)
	}
	return list, rows.Err()
}
