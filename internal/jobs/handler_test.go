package jobs

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/shramsetu/backend/internal/middleware"
	"github.com/shramsetu/backend/internal/models"
	"github.com/shramsetu/backend/internal/services"
)

func newTestMux(s *service, employer uuid.UUID) http.Handler {
	h := NewHandler(s, 0, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /jobs", h.CreateJob)
	mux.HandleFunc("GET /jobs", h.ListJobs)
	mux.HandleFunc("GET /jobs/{id}", h.GetJob)
	mux.HandleFunc("PATCH /jobs/{id}", h.UpdateJob)
	mux.HandleFunc("DELETE /jobs/{id}", h.DeleteJob)
	mux.HandleFunc("GET /jobs/{id}/matching-workers", h.MatchingWorkers)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := middleware.WithPrincipal(r.Context(), &middleware.Principal{AccountID: employer, Role: models.RoleEmployer})
		mux.ServeHTTP(w, r.WithContext(ctx))
	})
}

func TestHandler_CreateAndGet(t *testing.T) {
	employer := uuid.New()
	srv := newTestMux(newTestService(newMemStore(), &stubMatcher{}), employer)

	body := `{"title":"Mason","description":"Wall work","category":"construction",
		"location":{"type":"onsite","city":"Pune","state":"Maharashtra"},"employment_type":"contract","salary":900}`
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created models.Job
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.EmployerID != employer || created.Salary != 900 {
		t.Errorf("unexpected job %+v", created)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/"+created.ID.String(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/"+uuid.NewString(), nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown job: expected 404, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/not-a-uuid", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: expected 400, got %d", rec.Code)
	}
}

func TestHandler_DeleteWithApplications(t *testing.T) {
	employer := uuid.New()
	store := newMemStore()
	s := newTestService(store, &stubMatcher{})
	srv := newTestMux(s, employer)
	j, _ := s.CreateJob(t.Context(), employer, sampleJob())
	store.appCount[j.ID] = 2

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/jobs/"+j.ID.String(), nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestHandler_ListFilters(t *testing.T) {
	srv := newTestMux(newTestService(newMemStore(), &stubMatcher{}), uuid.New())

	for _, q := range []string{"?limit=x", "?min_salary=-1", "?employer_id=nope"} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs"+q, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/jobs?state=Bihar&q=mason&min_salary=100&limit=5&offset=10", nil)
	f, err := filterFromQuery(req)
	if err != nil {
		t.Fatalf("filterFromQuery: %v", err)
	}
	if f.State != "Bihar" || f.Query != "mason" || f.MinSalary != 100 || f.Limit != 5 || f.Offset != 10 {
		t.Errorf("unexpected filter %+v", f)
	}
}

func TestHandler_MatchingWorkers(t *testing.T) {
	employer := uuid.New()
	s := newTestService(newMemStore(), &stubMatcher{})
	srv := newTestMux(s, employer)
	j, _ := s.CreateJob(t.Context(), employer, sampleJob())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/"+j.ID.String()+"/matching-workers?min_score=0.7", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got []services.WorkerMatch
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil || len(got) != 1 {
		t.Fatalf("decode: %v (%d matches)", err, len(got))
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/"+j.ID.String()+"/matching-workers?min_score=2", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("min_score=2: expected 400, got %d", rec.Code)
	}

	other := newTestMux(s, uuid.New())
	rec = httptest.NewRecorder()
	other.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/"+j.ID.String()+"/matching-workers", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("other employer: expected 403, got %d", rec.Code)
	}
}
