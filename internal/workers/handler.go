package workers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/shramsetu/backend/internal/ledger"
	"github.com/shramsetu/backend/internal/middleware"
	"github.com/shramsetu/backend/internal/services"
)

type WithdrawRequest struct {
	Amount int64  `json:"amount"`
	Method string `json:"method"`
}

type WithdrawResponse struct {
	ID      string `json:"id"`
	Amount  int64  `json:"amount"`
	Method  string `json:"method"`
	Status  string `json:"status"`
	Balance int64  `json:"balance"`
}

type Handler struct {
	svc      Service
	minScore float64
	log      *slog.Logger
}

// NewHandler returns the workers API. minScore is the default Job Finder threshold.
func NewHandler(svc Service, minScore float64, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if minScore <= 0 {
		minScore = services.DefaultMinScore
	}
	return &Handler{svc: svc, minScore: minScore, log: log}
}

func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req Profile
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	worker, err := h.svc.CreateProfile(r.Context(), p.AccountID, req)
	if err != nil {
		h.writeError(w, "create worker", err)
		return
	}
	writeJSON(w, http.StatusCreated, worker)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	worker, err := h.svc.GetProfile(r.Context(), id)
	if err != nil {
		h.writeError(w, "get worker", err)
		return
	}
	writeJSON(w, http.StatusOK, worker)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req Profile
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	worker, err := h.svc.UpdateProfile(r.Context(), p.AccountID, id, req)
	if err != nil {
		h.writeError(w, "update worker", err)
		return
	}
	writeJSON(w, http.StatusOK, worker)
}

// MatchingJobs handles GET /workers/{id}/jobs?min_score=&limit=.
func (h *Handler) MatchingJobs(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	minScore := h.minScore
	if v := r.URL.Query().Get("min_score"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			http.Error(w, `{"error":"min_score must be between 0 and 1"}`, http.StatusBadRequest)
			return
		}
		minScore = f
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
			return
		}
		limit = n
	}
	matches, err := h.svc.MatchingJobs(r.Context(), p.AccountID, id, minScore, limit)
	if err != nil {
		h.writeError(w, "matching jobs", err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (h *Handler) Wallet(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	wallet, err := h.svc.Wallet(r.Context(), p.AccountID, id)
	if err != nil {
		h.writeError(w, "wallet", err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	wd, balance, err := h.svc.Withdraw(r.Context(), p.AccountID, id, req.Amount, req.Method)
	if err != nil {
		h.writeError(w, "withdraw", err)
		return
	}
	writeJSON(w, http.StatusCreated, WithdrawResponse{
		ID:      wd.ID.String(),
		Amount:  wd.Amount,
		Method:  wd.Method,
		Status:  wd.Status,
		Balance: balance,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrWorkerNotFound):
		http.Error(w, `{"error":"worker not found"}`, http.StatusNotFound)
	case errors.Is(err, ErrNotOwner):
		http.Error(w, `{"error":"worker profile belongs to another account"}`, http.StatusForbidden)
	case errors.Is(err, ErrNotWorker):
		http.Error(w, `{"error":"only worker accounts have worker profiles"}`, http.StatusForbidden)
	case errors.Is(err, ErrProfileExists):
		http.Error(w, `{"error":"worker profile already exists"}`, http.StatusConflict)
	case errors.Is(err, ledger.ErrInsufficientFunds):
		http.Error(w, `{"error":"insufficient funds"}`, http.StatusPaymentRequired)
	case errors.Is(err, ledger.ErrInvalidAmount):
		http.Error(w, `{"error":"amount must be > 0"}`, http.StatusBadRequest)
	default:
		h.log.Error(op+" failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid id"}`, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
