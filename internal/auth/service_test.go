package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shramsetu/backend/internal/config"
	"github.com/shramsetu/backend/internal/models"
	"github.com/shramsetu/backend/internal/repository"
	"github.com/shramsetu/backend/internal/session"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type memAccounts struct {
	mu      sync.Mutex
	byPhone map[string]*models.Account
}

func (m *memAccounts) Create(_ context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byPhone[a.Phone]; ok {
		return repository.ErrDuplicate
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	c := *a
	m.byPhone[a.Phone] = &c
	return nil
}

func (m *memAccounts) GetByPhone(_ context.Context, phone string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byPhone[phone]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *a
	return &c, nil
}

func newTestService(t *testing.T) (*service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := session.NewClient(config.RedisConfig{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	s := NewService(&memAccounts{byPhone: map[string]*models.Account{}}, session.NewStore(rdb), "test-secret", time.Hour)
	return s, mr
}

// ---------------------------------------------------------------------------
// 1. TestRegisterAndLogin
// ---------------------------------------------------------------------------

func TestRegisterAndLogin(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	acc, err := s.Register(ctx, " +919800000001 ", "hunter22", "Sita", models.RoleWorker, "")
	require.NoError(t, err)
	assert.Equal(t, "+919800000001", acc.Phone)
	assert.NotEqual(t, "hunter22", acc.PasswordHash)

	_, err = s.Register(ctx, "+919800000001", "another1", "Gita", models.RoleWorker, "")
	assert.ErrorIs(t, err, ErrDuplicatePhone)

	_, err = s.Register(ctx, "+919800000002", "password", "X", "admin", "")
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = s.Login(ctx, "+919800000001", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Login(ctx, "+910000000000", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	token, err := s.Login(ctx, "+919800000001", "hunter22")
	require.NoError(t, err)

	id, role, err := s.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, id)
	assert.Equal(t, models.RoleWorker, role)
}

// ---------------------------------------------------------------------------
// 2. TestLogoutRevokesToken
// ---------------------------------------------------------------------------

func TestLogoutRevokesToken(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	_, err := s.Register(ctx, "+919800000003", "hunter22", "Ramesh", models.RoleEmployer, "Ramesh Builders")
	require.NoError(t, err)

	token, err := s.Login(ctx, "+919800000003", "hunter22")
	require.NoError(t, err)
	require.NoError(t, s.Logout(ctx, token))

	_, _, err = s.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// ---------------------------------------------------------------------------
// 3. TestValidateToken_Rejects
// ---------------------------------------------------------------------------

func TestValidateToken_Rejects(t *testing.T) {
	s, mr := newTestService(t)
	ctx := context.Background()
	_, err := s.Register(ctx, "+919800000004", "hunter22", "Asha", models.RoleWorker, "")
	require.NoError(t, err)
	token, err := s.Login(ctx, "+919800000004", "hunter22")
	require.NoError(t, err)

	_, _, err = s.ValidateToken(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Same claims signed with another key.
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{ID: uuid.NewString(), Subject: uuid.NewString(), ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Role:             models.RoleEmployer,
	})
	raw, err := forged.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, _, err = s.ValidateToken(ctx, raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Session expired in Redis while the JWT is still valid.
	mr.FastForward(2 * time.Hour)
	_, _, err = s.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// ---------------------------------------------------------------------------
// 4. TestHandler
// ---------------------------------------------------------------------------

func TestHandler(t *testing.T) {
	s, _ := newTestService(t)
	h := NewHandler(s, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", h.Register)
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("POST /auth/logout", h.Logout)

	do := func(path, body, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	reg := `{"phone":"+919800000005","password":"hunter22","name":"Kiran","role":"worker"}`
	rec := do("/auth/register", reg, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	rec = do("/auth/register", reg, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do("/auth/login", `{"phone":"+919800000005","password":"nope-nope"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do("/auth/login", `{"phone":"+919800000005","password":"hunter22"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	rec = do("/auth/logout", "", resp.Token)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do("/auth/logout", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
