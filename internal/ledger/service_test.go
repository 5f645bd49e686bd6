package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shramsetu/backend/internal/models"
)

// ---------------------------------------------------------------------------
// noopTx satisfies pgx.Tx; the in-memory store ignores it.
// ---------------------------------------------------------------------------

type noopTx struct{}

func (noopTx) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (noopTx) Commit(context.Context) error          { return nil }
func (noopTx) Rollback(context.Context) error        { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

// ---------------------------------------------------------------------------
// memStore reproduces the SQL contract: unique (worker, job) earnings and a
// balance recomputed from entries.
// ---------------------------------------------------------------------------

type memStore struct {
	mu          sync.Mutex
	balances    map[uuid.UUID]int64
	earnings    []*models.Earning
	withdrawals []*models.Withdrawal
}

func newMemStore(workers ...uuid.UUID) *memStore {
	m := &memStore{balances: make(map[uuid.UUID]int64)}
	for _, id := range workers {
		m.balances[id] = 0
	}
	return m
}

func (m *memStore) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

func (m *memStore) LockWorker(_ context.Context, _ pgx.Tx, id uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[id]
	if !ok {
		return 0, fmt.Errorf("worker %s not found", id)
	}
	return b, nil
}

func (m *memStore) InsertEarning(_ context.Context, _ pgx.Tx, e *models.Earning) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.earnings {
		if x.WorkerID == e.WorkerID && x.JobID == e.JobID {
			return false, nil
		}
	}
	cp := *e
	m.earnings = append(m.earnings, &cp)
	return true, nil
}

func (m *memStore) InsertWithdrawal(_ context.Context, _ pgx.Tx, w *models.Withdrawal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *w
	m.withdrawals = append(m.withdrawals, &cp)
	return nil
}

func (m *memStore) RecomputeBalance(_ context.Context, _ pgx.Tx, id uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var es []*models.Earning
	for _, e := range m.earnings {
		if e.WorkerID == id {
			es = append(es, e)
		}
	}
	var ws []*models.Withdrawal
	for _, w := range m.withdrawals {
		if w.WorkerID == id {
			ws = append(ws, w)
		}
	}
	b := Balance(es, ws)
	m.balances[id] = b
	return b, nil
}

func (m *memStore) ListEarnings(_ context.Context, id uuid.UUID) ([]*models.Earning, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Earning
	for _, e := range m.earnings {
		if e.WorkerID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) ListWithdrawals(_ context.Context, id uuid.UUID) ([]*models.Withdrawal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Withdrawal
	for _, w := range m.withdrawals {
		if w.WorkerID == id {
			out = append(out, w)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// 1. CreditEarning credits once per job
// ---------------------------------------------------------------------------

func TestCreditEarning_OncePerJob(t *testing.T) {
	workerID, jobID := uuid.New(), uuid.New()
	store := newMemStore(workerID)
	svc := NewService(store)
	ctx := context.Background()

	credited, balance, err := svc.CreditEarning(ctx, noopTx{}, &models.Earning{WorkerID: workerID, JobID: jobID, Amount: 15000})
	if err != nil {
		t.Fatalf("first credit: %v", err)
	}
	if !credited || balance != 15000 {
		t.Fatalf("expected credited with balance 15000, got credited=%v balance=%d", credited, balance)
	}

	credited, balance, err = svc.CreditEarning(ctx, noopTx{}, &models.Earning{WorkerID: workerID, JobID: jobID, Amount: 15000})
	if err != nil {
		t.Fatalf("second credit: %v", err)
	}
	if credited {
		t.Error("second credit for same job must be a no-op")
	}
	if balance != 15000 {
		t.Errorf("balance changed on duplicate credit: %d", balance)
	}
	if n := len(store.earnings); n != 1 {
		t.Errorf("expected 1 earning, got %d", n)
	}
}

// ---------------------------------------------------------------------------
// 2. CreditEarning rejects non-positive amounts
// ---------------------------------------------------------------------------

func TestCreditEarning_InvalidAmount(t *testing.T) {
	workerID := uuid.New()
	svc := NewService(newMemStore(workerID))
	_, _, err := svc.CreditEarning(context.Background(), noopTx{}, &models.Earning{WorkerID: workerID, JobID: uuid.New(), Amount: 0})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// 3. Withdraw honours the balance and the balance invariant
// ---------------------------------------------------------------------------

func TestWithdraw(t *testing.T) {
	workerID := uuid.New()
	store := newMemStore(workerID)
	svc := NewService(store)
	ctx := context.Background()

	if _, _, err := svc.CreditEarning(ctx, noopTx{}, &models.Earning{WorkerID: workerID, JobID: uuid.New(), Amount: 500}); err != nil {
		t.Fatal(err)
	}

	if _, _, err := svc.Withdraw(ctx, workerID, 600, "upi"); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	w, balance, err := svc.Withdraw(ctx, workerID, 200, "upi")
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if w.Status != models.WithdrawalPending || balance != 300 {
		t.Fatalf("unexpected withdrawal %+v balance %d", w, balance)
	}

	wallet, err := svc.Wallet(ctx, workerID)
	if err != nil {
		t.Fatal(err)
	}
	if wallet.Balance != store.balances[workerID] {
		t.Errorf("wallet balance %d != stored balance %d", wallet.Balance, store.balances[workerID])
	}
}

// ---------------------------------------------------------------------------
// 4. Balance ignores failed withdrawals
// ---------------------------------------------------------------------------

func TestBalance_IgnoresFailedWithdrawals(t *testing.T) {
	earnings := []*models.Earning{{Amount: 1000}, {Amount: 250}}
	withdrawals := []*models.Withdrawal{
		{Amount: 300, Status: models.WithdrawalCompleted},
		{Amount: 100, Status: models.WithdrawalPending},
		{Amount: 700, Status: models.WithdrawalFailed},
	}
	if got := Balance(earnings, withdrawals); got != 850 {
		t.Errorf("expected 850, got %d", got)
	}
}
