package jobs

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/shramsetu/backend/internal/middleware"
	"github.com/shramsetu/backend/internal/models"
	"github.com/shramsetu/backend/internal/services"
)

type CreateJobRequest struct {
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	Category       string             `json:"category"`
	Location       models.JobLocation `json:"location"`
	EmploymentType string             `json:"employment_type"`
	Salary         int64              `json:"salary"`
	RequiredSkills []string           `json:"required_skills"`
	Status         string             `json:"status"`
}

type Handler struct {
	svc      Service
	minScore float64
	log      *slog.Logger
}

// NewHandler returns the jobs API. minScore is the default threshold for matching-workers.
func NewHandler(svc Service, minScore float64, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, minScore: minScore, log: log}
}

// CreateJob handles POST /jobs. Employers only.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Title == "" || req.Description == "" || req.Salary <= 0 {
		http.Error(w, `{"error":"title, description and a positive salary are required"}`, http.StatusBadRequest)
		return
	}
	job, err := h.svc.CreateJob(r.Context(), p.AccountID, &models.Job{
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Location:       req.Location,
		EmploymentType: req.EmploymentType,
		Salary:         req.Salary,
		RequiredSkills: req.RequiredSkills,
		Status:         req.Status,
	})
	if err != nil {
		h.writeError(w, "create job", err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

// ListJobs handles GET /jobs with optional filters in the query string.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	list, err := h.svc.ListJobs(r.Context(), f)
	if err != nil {
		h.writeError(w, "list jobs", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	job, err := h.svc.GetJob(r.Context(), id)
	if err != nil {
		h.writeError(w, "get job", err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// UpdateJob handles PATCH /jobs/{id}. Only the owning employer may update.
func (h *Handler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	job, err := h.svc.UpdateJob(r.Context(), p.AccountID, id, patch)
	if err != nil {
		h.writeError(w, "update job", err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteJob(r.Context(), p.AccountID, id); err != nil {
		h.writeError(w, "delete job", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MatchingWorkers handles GET /jobs/{id}/matching-workers?min_score=&limit=.
func (h *Handler) MatchingWorkers(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	minScore, limit, err := matchParams(r, h.minScore)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	matches, err := h.svc.MatchingWorkers(r.Context(), p.AccountID, id, minScore, limit)
	if err != nil {
		h.writeError(w, "matching workers", err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrJobNotFound):
		http.Error(w, `{"error":"job not found"}`, http.StatusNotFound)
	case errors.Is(err, ErrNotOwner):
		http.Error(w, `{"error":"job belongs to another employer"}`, http.StatusForbidden)
	case errors.Is(err, ErrJobHasApplications):
		http.Error(w, `{"error":"job has applications and cannot be deleted"}`, http.StatusConflict)
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

func filterFromQuery(r *http.Request) (models.JobFilter, error) {
	q := r.URL.Query()
	f := models.JobFilter{
		State:          q.Get("state"),
		City:           q.Get("city"),
		Category:       q.Get("category"),
		Status:         q.Get("status"),
		EmploymentType: q.Get("employment_type"),
		Query:          q.Get("q"),
	}
	ints := []struct {
		key string
		dst *int
	}{{"limit", &f.Limit}, {"offset", &f.Offset}}
	for _, p := range ints {
		if v := q.Get(p.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return f, errors.New("invalid " + p.key)
			}
			*p.dst = n
		}
	}
	salaries := []struct {
		key string
		dst *int64
	}{{"min_salary", &f.MinSalary}, {"max_salary", &f.MaxSalary}}
	for _, p := range salaries {
		if v := q.Get(p.key); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 0 {
				return f, errors.New("invalid " + p.key)
			}
			*p.dst = n
		}
	}
	if v := q.Get("employer_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, errors.New("invalid employer_id")
		}
		f.EmployerID = id
	}
	return f, nil
}

// matchParams reads min_score (default def) and limit from the query string.
func matchParams(r *http.Request, def float64) (float64, int, error) {
	minScore := def
	if minScore <= 0 {
		minScore = services.DefaultMinScore
	}
	if v := r.URL.Query().Get("min_score"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return 0, 0, errors.New("min_score must be between 0 and 1")
		}
		minScore = f
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, errors.New("invalid limit")
		}
		limit = n
	}
	return minScore, limit, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
