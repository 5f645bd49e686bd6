package workers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shramsetu/backend/internal/ledger"
	"github.com/shramsetu/backend/internal/middleware"
	"github.com/shramsetu/backend/internal/models"
	"github.com/shramsetu/backend/internal/repository"
	"github.com/shramsetu/backend/internal/services"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type memStore struct {
	mu      sync.Mutex
	workers map[uuid.UUID]*models.Worker
}

func (m *memStore) Create(_ context.Context, w *models.Worker) (*models.Worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.workers {
		if x.AccountID == w.AccountID {
			return nil, repository.ErrDuplicate
		}
	}
	c := *w
	c.ID = uuid.New()
	m.workers[c.ID] = &c
	out := c
	return &out, nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *w
	return &c, nil
}

func (m *memStore) GetByAccountID(_ context.Context, accountID uuid.UUID) (*models.Worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.workers {
		if w.AccountID == accountID {
			c := *w
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) Update(_ context.Context, w *models.Worker) (*models.Worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *w
	m.workers[w.ID] = &c
	return w, nil
}

type accounts map[uuid.UUID]*models.Account

func (a accounts) GetByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	acc, ok := a[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return acc, nil
}

type stubMatcher struct{ minScore float64 }

func (s *stubMatcher) FindMatchingJobs(_ context.Context, _ *models.Worker, minScore float64, _ int) ([]services.JobMatch, error) {
	s.minScore = minScore
	return []services.JobMatch{}, nil
}

// stubLedger holds one balance per worker.
type stubLedger struct {
	balance int64
}

func (l *stubLedger) CreditEarning(context.Context, pgx.Tx, *models.Earning) (bool, int64, error) {
	return false, l.balance, nil
}

func (l *stubLedger) Withdraw(_ context.Context, workerID uuid.UUID, amount int64, method string) (*models.Withdrawal, int64, error) {
	if amount <= 0 {
		return nil, 0, ledger.ErrInvalidAmount
	}
	if amount > l.balance {
		return nil, l.balance, ledger.ErrInsufficientFunds
	}
	l.balance -= amount
	return &models.Withdrawal{ID: uuid.New(), WorkerID: workerID, Amount: amount, Method: method, Status: models.WithdrawalPending}, l.balance, nil
}

func (l *stubLedger) Wallet(_ context.Context, workerID uuid.UUID) (*ledger.Wallet, error) {
	return &ledger.Wallet{WorkerID: workerID, Balance: l.balance}, nil
}

type fixture struct {
	svc     Service
	ledger  *stubLedger
	matcher *stubMatcher
	worker  *models.Account
	boss    *models.Account
}

func newFixture() *fixture {
	worker := &models.Account{ID: uuid.New(), Phone: "+919800000001", Name: "Sita", Role: models.RoleWorker}
	boss := &models.Account{ID: uuid.New(), Phone: "+919800000002", Name: "Builder Co", Role: models.RoleEmployer}
	f := &fixture{ledger: &stubLedger{balance: 15000}, matcher: &stubMatcher{}, worker: worker, boss: boss}
	f.svc = NewService(&memStore{workers: map[uuid.UUID]*models.Worker{}}, accounts{worker.ID: worker, boss.ID: boss}, f.matcher, f.ledger)
	return f
}

func strPtr(s string) *string { return &s }

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestCreateProfile(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	w, err := f.svc.CreateProfile(ctx, f.worker.ID, Profile{
		Skills:   []string{" masonry ", ""},
		Location: &models.WorkerLocation{District: " Pune", State: "Maharashtra "},
	})
	require.NoError(t, err)
	assert.Equal(t, "Sita", w.Name)
	assert.Equal(t, f.worker.Phone, w.Phone)
	assert.Equal(t, []string{"masonry"}, w.Skills)
	assert.Equal(t, "Pune", w.Location.District)
	assert.True(t, w.Available)

	_, err = f.svc.CreateProfile(ctx, f.worker.ID, Profile{})
	assert.ErrorIs(t, err, ErrProfileExists)

	_, err = f.svc.CreateProfile(ctx, f.boss.ID, Profile{})
	assert.ErrorIs(t, err, ErrNotWorker)
}

func TestUpdateProfile_OwnerOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	w, err := f.svc.CreateProfile(ctx, f.worker.ID, Profile{})
	require.NoError(t, err)

	years := 4
	updated, err := f.svc.UpdateProfile(ctx, f.worker.ID, w.ID, Profile{Name: strPtr("Sita Devi"), ExperienceYears: &years})
	require.NoError(t, err)
	assert.Equal(t, "Sita Devi", updated.Name)
	assert.Equal(t, 4, updated.ExperienceYears)

	_, err = f.svc.UpdateProfile(ctx, f.boss.ID, w.ID, Profile{})
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = f.svc.GetProfile(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrWorkerNotFound)
}

func TestHandler_WalletAndWithdraw(t *testing.T) {
	f := newFixture()
	w, err := f.svc.CreateProfile(context.Background(), f.worker.ID, Profile{})
	require.NoError(t, err)

	h := NewHandler(f.svc, 0, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /workers/{id}/wallet", h.Wallet)
	mux.HandleFunc("POST /workers/{id}/withdrawals", h.Withdraw)
	mux.HandleFunc("GET /workers/{id}/jobs", h.MatchingJobs)
	as := func(acc *models.Account, req *http.Request) *httptest.ResponseRecorder {
		ctx := middleware.WithPrincipal(req.Context(), &middleware.Principal{AccountID: acc.ID, Role: acc.Role})
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req.WithContext(ctx))
		return rec
	}
	base := "/workers/" + w.ID.String()

	rec := as(f.worker, httptest.NewRequest(http.MethodGet, base+"/wallet", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"balance":15000`)

	rec = as(f.worker, httptest.NewRequest(http.MethodPost, base+"/withdrawals", strings.NewReader(`{"amount":20000,"method":"upi"}`)))
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	rec = as(f.worker, httptest.NewRequest(http.MethodPost, base+"/withdrawals", strings.NewReader(`{"amount":5000,"method":"upi"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"balance":10000`)

	rec = as(f.boss, httptest.NewRequest(http.MethodGet, base+"/wallet", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = as(f.worker, httptest.NewRequest(http.MethodGet, base+"/jobs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.DefaultMinScore, f.matcher.minScore)

	rec = as(f.worker, httptest.NewRequest(http.MethodGet, base+"/jobs?min_score=0.9", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.9, f.matcher.minScore)
}
