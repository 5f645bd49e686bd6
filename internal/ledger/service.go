package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shramsetu/backend/internal/models"
)

// ErrInsufficientFunds is returned when a withdrawal exceeds the worker's balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrInvalidAmount is returned for non-positive amounts.
var ErrInvalidAmount = errors.New("amount must be > 0")

// Store is the persistence the ledger needs. *Repository implements it.
type Store interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	LockWorker(ctx context.Context, tx pgx.Tx, workerID uuid.UUID) (int64, error)
	InsertEarning(ctx context.Context, tx pgx.Tx, e *models.Earning) (bool, error)
	InsertWithdrawal(ctx context.Context, tx pgx.Tx, w *models.Withdrawal) error
	RecomputeBalance(ctx context.Context, tx pgx.Tx, workerID uuid.UUID) (int64, error)
	ListEarnings(ctx context.Context, workerID uuid.UUID) ([]*models.Earning, error)
	ListWithdrawals(ctx context.Context, workerID uuid.UUID) ([]*models.Withdrawal, error)
}

// Wallet is a worker's balance together with the entries it is derived from.
type Wallet struct {
	WorkerID    uuid.UUID            `json:"worker_id"`
	Balance     int64                `json:"balance"`
	Earnings    []*models.Earning    `json:"earnings"`
	Withdrawals []*models.Withdrawal `json:"withdrawals"`
}

type Service interface {
	CreditEarning(ctx context.Context, tx pgx.Tx, e *models.Earning) (credited bool, balance int64, err error)
	Withdraw(ctx context.Context, workerID uuid.UUID, amount int64, method string) (*models.Withdrawal, int64, error)
	Wallet(ctx context.Context, workerID uuid.UUID) (*Wallet, error)
}

type service struct {
	store Store
}

func NewService(store Store) Service {
	return &service{store: store}
}

var _ Service = (*service)(nil)

// CreditEarning runs inside the caller's transaction. It locks the worker row, appends the
// earning unless the worker was already paid for e.JobID, and rewrites the balance.
// credited is false when an earning for the job already existed.
func (s *service) CreditEarning(ctx context.Context, tx pgx.Tx, e *models.Earning) (bool, int64, error) {
	if e.Amount <= 0 {
		return false, 0, ErrInvalidAmount
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if _, err := s.store.LockWorker(ctx, tx, e.WorkerID); err != nil {
		return false, 0, fmt.Errorf("lock worker: %w", err)
	}
	inserted, err := s.store.InsertEarning(ctx, tx, e)
	if err != nil {
		return false, 0, fmt.Errorf("insert earning: %w", err)
	}
	balance, err := s.store.RecomputeBalance(ctx, tx, e.WorkerID)
	if err != nil {
		return false, 0, fmt.Errorf("recompute balance: %w", err)
	}
	return inserted, balance, nil
}

// Withdraw records a pending withdrawal if the balance covers it. Runs in its own transaction.
func (s *service) Withdraw(ctx context.Context, workerID uuid.UUID, amount int64, method string) (*models.Withdrawal, int64, error) {
	if amount <= 0 {
		return nil, 0, ErrInvalidAmount
	}
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback(ctx)

	balance, err := s.store.LockWorker(ctx, tx, workerID)
	if err != nil {
		return nil, 0, fmt.Errorf("lock worker: %w", err)
	}
	if balance < amount {
		return nil, balance, ErrInsufficientFunds
	}
	w := &models.Withdrawal{
		ID:       uuid.New(),
		WorkerID: workerID,
		Amount:   amount,
		Method:   method,
		Status:   models.WithdrawalPending,
	}
	if err := s.store.InsertWithdrawal(ctx, tx, w); err != nil {
		return nil, 0, fmt.Errorf("insert withdrawal: %w", err)
	}
	newBalance, err := s.store.RecomputeBalance(ctx, tx, workerID)
	if err != nil {
		return nil, 0, fmt.Errorf("recompute balance: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, 0, err
	}
	return w, newBalance, nil
}

func (s *service) Wallet(ctx context.Context, workerID uuid.UUID) (*Wallet, error) {
	earnings, err := s.store.ListEarnings(ctx, workerID)
	if err != nil {
		return nil, err
	}
	withdrawals, err := s.store.ListWithdrawals(ctx, workerID)
	if err != nil {
		return nil, err
	}
	return &Wallet{
		WorkerID:    workerID,
		Balance:     Balance(earnings, withdrawals),
		Earnings:    earnings,
		Withdrawals: withdrawals,
	}, nil
}

// Balance derives a balance from ledger entries: all earnings minus every withdrawal that did not fail.
func Balance(earnings []*models.Earning, withdrawals []*models.Withdrawal) int64 {
	var total int64
	for _, e := range earnings {
		total += e.Amount
	}
	for _, w := range withdrawals {
		if w.Status != models.WithdrawalFailed {
			total -= w.Amount
		}
	}
	return total
}
