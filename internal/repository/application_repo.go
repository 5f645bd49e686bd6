package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shramsetu/backend/internal/models"
)

const applicationColumns = `id, job_id, worker_id, employer_id, status, worker_details, cover_note,
	payment_status, payment_amount, payment_date, status_history, applied_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*models.JobApplication, error) {
	var a models.JobApplication
	err := row.Scan(&a.ID, &a.JobID, &a.WorkerID, &a.EmployerID, &a.Status, &a.WorkerDetails, &a.CoverNote,
		&a.PaymentStatus, &a.PaymentAmount, &a.PaymentDate, &a.StatusHistory, &a.AppliedAt, &a.UpdatedAt)
	if err != nil {
		return nil, Translate(err)
	}
	return &a, nil
}

type ApplicationRepo struct {
	pool *pgxpool.Pool
}

func NewApplicationRepo(pool *pgxpool.Pool) *ApplicationRepo {
	return &ApplicationRepo{pool: pool}
}

// Begin starts a transaction on the underlying pool.
func (r *ApplicationRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Create inserts a new application. A second application for the same (job, worker)
// fails with ErrDuplicate from the unique index.
func (r *ApplicationRepo) Create(ctx context.Context, a *models.JobApplication) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO job_applications (id, job_id, worker_id, employer_id, status, worker_details, cover_note, payment_status, status_history)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING applied_at, updated_at
	`, a.ID, a.JobID, a.WorkerID, a.EmployerID, a.Status, a.WorkerDetails, a.CoverNote, a.PaymentStatus, a.StatusHistory).Scan(&a.AppliedAt, &a.UpdatedAt)
	return Translate(err)
}

func (r *ApplicationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.JobApplication, error) {
	return scanApplication(r.pool.QueryRow(ctx, `SELECT `+applicationColumns+` FROM job_applications WHERE id = $1`, id))
}

func (r *ApplicationRepo) FindByJobAndWorker(ctx context.Context, jobID, workerID uuid.UUID) (*models.JobApplication, error) {
	return scanApplication(r.pool.QueryRow(ctx, `
		SELECT `+applicationColumns+` FROM job_applications WHERE job_id = $1 AND worker_id = $2
	`, jobID, workerID))
}

// UpdateStatusTx moves the application from one status to another and appends to its history.
// The update only applies while the row is still in status from; otherwise ErrConflict.
func (r *ApplicationRepo) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to string, change models.StatusChange) (*models.JobApplication, error) {
	a, err := scanApplication(tx.QueryRow(ctx, `
		UPDATE job_applications
		SET status = $3, status_history = status_history || $4::jsonb, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+applicationColumns, id, from, to, []models.StatusChange{change}))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrConflict
	}
	return a, err
}

// MarkPaidTx records the payment on a pending-payment application. Reports false if it was already paid.
func (r *ApplicationRepo) MarkPaidTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64, paidAt time.Time) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE job_applications
		SET payment_status = 'paid', payment_amount = $2, payment_date = $3, updated_at = now()
		WHERE id = $1 AND payment_status = 'pending'
	`, id, amount, paidAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteCancellable removes the application only while it is pending or accepted.
func (r *ApplicationRepo) DeleteCancellable(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM job_applications WHERE id = $1 AND status IN ('pending', 'accepted')
	`, id)
	if err != nil {
		return Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// CountByJobTx returns how many applications of the job are still open (accepted or in-progress)
// and how many are completed, as seen by tx.
func (r *ApplicationRepo) CountByJobTx(ctx context.Context, tx pgx.Tx, jobID uuid.UUID) (open, completed int, err error) {
	err = tx.QueryRow(ctx, `
		SELECT count(*) FILTER (WHERE status IN ('accepted', 'in-progress')),
		       count(*) FILTER (WHERE status = 'completed')
		FROM job_applications WHERE job_id = $1
	`, jobID).Scan(&open, &completed)
	return open, completed, err
}

func (r *ApplicationRepo) ListByWorker(ctx context.Context, workerID uuid.UUID) ([]*models.JobApplication, error) {
	return r.list(ctx, `SELECT `+applicationColumns+` FROM job_applications WHERE worker_id = $1 ORDER BY applied_at DESC`, workerID)
}

func (r *ApplicationRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]*models.JobApplication, error) {
	return r.list(ctx, `SELECT `+applicationColumns+` FROM job_applications WHERE job_id = $1 ORDER BY applied_at ASC`, jobID)
}

func (r *ApplicationRepo) list(ctx context.Context, query string, args ...any) ([]*models.JobApplication, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.JobApplication{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// EmployerSummary counts an employer's jobs and applications by status and sums paid amounts.
func (r *ApplicationRepo) EmployerSummary(ctx context.Context, employerID uuid.UUID) (*models.EmployerSummary, error) {
	s := &models.EmployerSummary{
		JobsByStatus:         map[string]int{},
		ApplicationsByStatus: map[string]int{},
	}

	rows, err := r.pool.Query(ctx, `SELECT status, count(*) FROM jobs WHERE employer_id = $1 GROUP BY status`, employerID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, err
		}
		s.JobsByStatus[status] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.pool.Query(ctx, `SELECT status, count(*) FROM job_applications WHERE employer_id = $1 GROUP BY status`, employerID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, err
		}
		s.ApplicationsByStatus[status] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(payment_amount), 0) FROM job_applications
		WHERE employer_id = $1 AND payment_status = 'paid'
	`, employerID).Scan(&s.TotalPaid)
	if err != nil {
		return nil, err
	}
	return s, nil
}
