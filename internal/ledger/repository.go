package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
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

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// LockWorker takes the worker row lock for the rest of tx and returns the stored balance.
func (r *Repository) LockWorker(ctx context.Context, tx pgx.Tx, workerID uuid.UUID) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `SELECT balance FROM workers WHERE id = $1 FOR UPDATE`, workerID).Scan(&balance)
	if err != nil {
		return 0, repository.Translate(err)
	}
	return balance, nil
}

// InsertEarning appends an earning unless one already exists for (worker, job).
func (r *Repository) InsertEarning(ctx context.Context, tx pgx.Tx, e *models.Earning) (bool, error) {
	err := tx.QueryRow(ctx, `
		INSERT INTO worker_earnings (id, worker_id, job_id, application_id, amount, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (worker_id, job_id) DO NOTHING
		RETURNING created_at
	`, e.ID, e.WorkerID, e.JobID, e.ApplicationID, e.Amount, e.Description).Scan(&e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repository) InsertWithdrawal(ctx context.Context, tx pgx.Tx, w *models.Withdrawal) error {
	return tx.QueryRow(ctx, `
		INSERT INTO worker_withdrawals (id, worker_id, amount, method, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, w.ID, w.WorkerID, w.Amount, w.Method, w.Status).Scan(&w.CreatedAt)
}

// RecomputeBalance rewrites workers.balance from the earnings and non-failed withdrawals.
func (r *Repository) RecomputeBalance(ctx context.Context, tx pgx.Tx, workerID uuid.UUID) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `
		UPDATE workers SET balance =
			(SELECT COALESCE(SUM(amount), 0) FROM worker_earnings WHERE worker_id = $1)
			- (SELECT COALESCE(SUM(amount), 0) FROM worker_withdrawals WHERE worker_id = $1 AND status <> 'failed'),
			updated_at = now()
		WHERE id = $1
		RETURNING balance
	`, workerID).Scan(&balance)
	return balance, repository.Translate(err)
}

func (r *Repository) ListEarnings(ctx context.Context, workerID uuid.UUID) ([]*models.Earning, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, worker_id, job_id, application_id, amount, description, created_at
		FROM worker_earnings WHERE worker_id = $1 ORDER BY created_at DESC
	`, workerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.Earning{}
	for rows.Next() {
		var e models.Earning
		if err := rows.Scan(&e.ID, &e.WorkerID, &e.JobID, &e.ApplicationID, &e.Amount, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}

func (r *Repository) ListWithdrawals(ctx context.Context, workerID uuid.UUID) ([]*models.Withdrawal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, worker_id, amount, method, status, created_at
		FROM worker_withdrawals WHERE worker_id = $1 ORDER BY created_at DESC
	`, workerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.Withdrawal{}
	for rows.Next() {
		var w models.Withdrawal
		if err := rows.Scan(&w.ID, &w.WorkerID, &w.Amount, &w.Method, &w.Status, &w.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &w)
	}
	return list, rows.Err()
}
