package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/shramsetu/backend/internal/middleware"
	"github.com/shramsetu/backend/internal/models"
	"github.com/shramsetu/backend/internal/services"
)

// ApplicationLifecycle is the subset of *services.Lifecycle the handler needs.
type ApplicationLifecycle interface {
	Apply(ctx context.Context, actorAccountID, jobID uuid.UUID, coverNote string) (*models.JobApplication, error)
	Get(ctx context.Context, appID, actorAccountID uuid.UUID) (*models.JobApplication, error)
	UpdateStatus(ctx context.Context, appID, actorAccountID uuid.UUID, to, note string, paymentAmount int64) (*models.JobApplication, error)
	Cancel(ctx context.Context, appID, actorAccountID uuid.UUID) error
	ProcessPayment(ctx context.Context, appID, actorAccountID uuid.UUID, amount int64) (*services.SettlementResult, error)
	ListForWorker(ctx context.Context, workerID, actorAccountID uuid.UUID) ([]*models.JobApplication, error)
	ListForJob(ctx context.Context, jobID, actorAccountID uuid.UUID) ([]*models.JobApplication, error)
}

// ApplicationHandler serves the /job-applications endpoints and the per-worker and
// per-job listings. Request bodies are schema-checked by middleware before they get here.
type ApplicationHandler struct {
	Lifecycle ApplicationLifecycle
	Logger    *slog.Logger
}

type createApplicationRequest struct {
	JobID     string `json:"job_id"`
	CoverNote string `json:"cover_note"`
}

type updateStatusRequest struct {
	Status        string `json:"status"`
	Note          string `json:"note"`
	PaymentAmount int64  `json:"payment_amount"`
}

type processPaymentRequest struct {
	Amount int64 `json:"amount"`
}

// Apply handles POST /job-applications.
func (h *ApplicationHandler) Apply(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req createApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	jobID, err := uuid.Parse(req.JobID)
	if err != nil {
		http.Error(w, `{"error":"invalid job_id"}`, http.StatusBadRequest)
		return
	}
	app, err := h.Lifecycle.Apply(r.Context(), p.AccountID, jobID, req.CoverNote)
	if err != nil {
		h.writeError(w, "apply", err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

// Get handles GET /job-applications/{id}.
func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	app, err := h.Lifecycle.Get(r.Context(), id, p.AccountID)
	if err != nil {
		h.writeError(w, "get application", err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// UpdateStatus handles PATCH /job-applications/{id}/status.
func (h *ApplicationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Status == "" {
		http.Error(w, `{"error":"status is required"}`, http.StatusBadRequest)
		return
	}
	app, err := h.Lifecycle.UpdateStatus(r.Context(), id, p.AccountID, req.Status, req.Note, req.PaymentAmount)
	if err != nil {
		h.writeError(w, "update application status", err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// Cancel handles DELETE /job-applications/{id}.
func (h *ApplicationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Lifecycle.Cancel(r.Context(), id, p.AccountID); err != nil {
		h.writeError(w, "cancel application", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ProcessPayment handles PATCH /job-applications/{id}/process-payment. An empty body is allowed.
func (h *ApplicationHandler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req processPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	res, err := h.Lifecycle.ProcessPayment(r.Context(), id, p.AccountID, req.Amount)
	if err != nil {
		h.writeError(w, "process payment", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListForWorker handles GET /workers/{id}/applications.
func (h *ApplicationHandler) ListForWorker(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	apps, err := h.Lifecycle.ListForWorker(r.Context(), id, p.AccountID)
	if err != nil {
		h.writeError(w, "list worker applications", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(apps))
}

// ListForJob handles GET /jobs/{id}/applications.
func (h *ApplicationHandler) ListForJob(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	apps, err := h.Lifecycle.ListForJob(r.Context(), id, p.AccountID)
	if err != nil {
		h.writeError(w, "list job applications", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(apps))
}

func (h *ApplicationHandler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, services.ErrDuplicateApplication),
		errors.Is(err, services.ErrJobNotAcceptingApplications),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrInvalidCancellationState),
		errors.Is(err, services.ErrNotCompleted):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
	default:
		h.logger().Error(op+" failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}

func (h *ApplicationHandler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// --- helpers ---

func principal(w http.ResponseWriter, r *http.Request) (*middleware.Principal, bool) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return nil, false
	}
	return p, true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, `{"error":"invalid id"}`, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func nonNil(apps []*models.JobApplication) []*models.JobApplication {
	if apps == nil {
		return []*models.JobApplication{}
	}
	return apps
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
