package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/shramsetu/backend/internal/middleware"
	"github.com/shramsetu/backend/internal/models"
	"github.com/shramsetu/backend/internal/repository"
)

// Accounts is the subset of *repository.AccountRepo used here.
type Accounts interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name, company string) error
}

// WorkerProfiles finds the worker profile of a worker account.
type WorkerProfiles interface {
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*models.Worker, error)
}

// Summaries is the subset of *repository.ApplicationRepo used here.
type Summaries interface {
	EmployerSummary(ctx context.Context, employerID uuid.UUID) (*models.EmployerSummary, error)
}

type Handler struct {
	accounts  Accounts
	workers   WorkerProfiles
	summaries Summaries
	log       *slog.Logger
}

func NewHandler(accounts Accounts, workers WorkerProfiles, summaries Summaries, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{accounts: accounts, workers: workers, summaries: summaries, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GET /account/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	acc, err := h.accounts.GetByID(r.Context(), p.AccountID)
	if err != nil {
		h.log.Error("get account failed", "error", err)
		http.Error(w, `{"error":"account not found"}`, http.StatusNotFound)
		return
	}
	resp := map[string]any{
		"id":         acc.ID,
		"phone":      acc.Phone,
		"name":       acc.Name,
		"role":       acc.Role,
		"company":    acc.Company,
		"created_at": acc.CreatedAt,
	}
	if acc.Role == models.RoleWorker {
		wp, err := h.workers.GetByAccountID(r.Context(), acc.ID)
		switch {
		case err == nil:
			resp["worker_id"] = wp.ID
		case !errors.Is(err, repository.ErrNotFound):
			h.log.Error("get worker profile failed", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// PATCH /account/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	acc, err := h.accounts.GetByID(r.Context(), p.AccountID)
	if err != nil {
		http.Error(w, `{"error":"account not found"}`, http.StatusNotFound)
		return
	}
	var body struct {
		Name    *string `json:"name"`
		Company *string `json:"company"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if body.Name != nil {
		acc.Name = strings.TrimSpace(*body.Name)
	}
	if body.Company != nil {
		acc.Company = strings.TrimSpace(*body.Company)
	}
	if acc.Name == "" {
		http.Error(w, `{"error":"name cannot be empty"}`, http.StatusBadRequest)
		return
	}
	if err := h.accounts.UpdateProfile(r.Context(), acc.ID, acc.Name, acc.Company); err != nil {
		h.log.Error("update settings failed", "error", err)
		http.Error(w, `{"error":"update failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /employers/me/dashboard
func (h *Handler) EmployerDashboard(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	summary, err := h.summaries.EmployerSummary(r.Context(), p.AccountID)
	if err != nil {
		h.log.Error("employer summary failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
