package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shramsetu/backend/internal/models"
	"github.com/shramsetu/backend/internal/repository"
)

const jobColumns = `id, employer_id, title, description, category, location_type, street, city, state, pincode,
	employment_type, salary, required_skills, status, created_at, updated_at`

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job
	err := row.Scan(&j.ID, &j.EmployerID, &j.Title, &j.Description, &j.Category,
		&j.Location.Type, &j.Location.Street, &j.Location.City, &j.Location.State, &j.Location.Pincode,
		&j.EmploymentType, &j.Salary, &j.RequiredSkills, &j.Status, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, repository.Translate(err)
	}
	return &j, nil
}

func (r *Repository) Create(ctx context.Context, j *models.Job) (*models.Job, error) {
	return scanJob(r.pool.QueryRow(ctx, `
		INSERT INTO jobs (employer_id, title, description, category, location_type, street, city, state, pincode,
			employment_type, salary, required_skills, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+jobColumns,
		j.EmployerID, j.Title, j.Description, j.Category, j.Location.Type, j.Location.Street, j.Location.City,
		j.Location.State, j.Location.Pincode, j.EmploymentType, j.Salary, j.RequiredSkills, j.Status))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return scanJob(r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
}

// GetByIDForUpdate reads the job and holds its row lock until tx ends. Settlements of
// applications to the same job serialize on it.
func (r *Repository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Job, error) {
	return scanJob(tx.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1 FOR UPDATE`, id))
}

func (r *Repository) SetStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error {
	tag, err := tx.Exec(ctx, `UPDATE jobs SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return repository.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Update overwrites the mutable fields of the job owned by j.EmployerID.
func (r *Repository) Update(ctx context.Context, j *models.Job) (*models.Job, error) {
	return scanJob(r.pool.QueryRow(ctx, `
		UPDATE jobs SET title = $3, description = $4, category = $5, location_type = $6, street = $7, city = $8,
			state = $9, pincode = $10, employment_type = $11, salary = $12, required_skills = $13, status = $14,
			updated_at = now()
		WHERE id = $1 AND employer_id = $2
		RETURNING `+jobColumns,
		j.ID, j.EmployerID, j.Title, j.Description, j.Category, j.Location.Type, j.Location.Street, j.Location.City,
		j.Location.State, j.Location.Pincode, j.EmploymentType, j.Salary, j.RequiredSkills, j.Status))
}

// Delete removes a job. Jobs that still have applications fail with repository.ErrReferenced.
func (r *Repository) Delete(ctx context.Context, id, employerID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1 AND employer_id = $2`, id, employerID)
	if err != nil {
		return repository.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListActiveByState returns active jobs in the state, compared case-insensitively.
func (r *Repository) ListActiveByState(ctx context.Context, state string) ([]*models.Job, error) {
	return r.query(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE lower(state) = lower($1) AND status = 'active'
		ORDER BY created_at DESC
	`, strings.TrimSpace(state))
}

func (r *Repository) List(ctx context.Context, f models.JobFilter) ([]*models.Job, error) {
	where, args := buildFilter(f)
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)
	q := fmt.Sprintf(`SELECT %s FROM jobs %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		jobColumns, where, len(args)-1, len(args))
	return r.query(ctx, q, args...)
}

// buildFilter turns the non-zero filter fields into a WHERE clause with positional args.
func buildFilter(f models.JobFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.State != "" {
		add("lower(state) = lower($%d)", f.State)
	}
	if f.City != "" {
		add("lower(city) = lower($%d)", f.City)
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.EmploymentType != "" {
		add("employment_type = $%d", f.EmploymentType)
	}
	if f.Query != "" {
		add("(title || ' ' || description) ILIKE '%%' || $%d::text || '%%'", f.Query)
	}
	if f.MinSalary > 0 {
		add("salary >= $%d", f.MinSalary)
	}
	if f.MaxSalary > 0 {
		add("salary <= $%d", f.MaxSalary)
	}
	if f.EmployerID != uuid.Nil {
		add("employer_id = $%d", f.EmployerID)
	}
	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// CountApplications returns how many applications reference the job.
func (r *Repository) CountApplications(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM job_applications WHERE job_id = $1`, id).Scan(&n)
	return n, err
}

func (r *Repository) query(ctx context.Context, q string, args ...any) ([]*models.Job, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]*models.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, j)
	}
	return list, rows.Err()
}
