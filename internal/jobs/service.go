package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/shramsetu/backend/internal/models"
	"github.com/shramsetu/backend/internal/repository"
	"github.com/shramsetu/backend/internal/services"
)

var (
	ErrJobNotFound        = errors.New("job not found")
	ErrNotOwner           = errors.New("job belongs to another employer")
	ErrJobHasApplications = errors.New("job has applications and cannot be deleted")
)

// Store is the jobs persistence the service needs. *Repository implements it.
type Store interface {
	Create(ctx context.Context, j *models.Job) (*models.Job, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	Update(ctx context.Context, j *models.Job) (*models.Job, error)
	Delete(ctx context.Context, id, employerID uuid.UUID) error
	List(ctx context.Context, f models.JobFilter) ([]*models.Job, error)
	CountApplications(ctx context.Context, id uuid.UUID) (int, error)
}

// Matcher is the slice of the Job Finder the jobs API uses.
type Matcher interface {
	FindMatchingWorkers(ctx context.Context, j *models.Job, minScore float64, limit int) ([]services.WorkerMatch, error)
	NotifyMatchingWorkers(ctx context.Context, j *models.Job) (int, error)
}

// Patch carries the fields of a job update; nil fields are left alone.
type Patch struct {
	Title          *string             `json:"title"`
	Description    *string             `json:"description"`
	Category       *string             `json:"category"`
	Location       *models.JobLocation `json:"location"`
	EmploymentType *string             `json:"employment_type"`
	Salary         *int64              `json:"salary"`
	RequiredSkills []string            `json:"required_skills"`
	Status         *string             `json:"status"`
}

type Service interface {
	CreateJob(ctx context.Context, employerID uuid.UUID, j *models.Job) (*models.Job, error)
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListJobs(ctx context.Context, f models.JobFilter) ([]*models.Job, error)
	UpdateJob(ctx context.Context, employerID, id uuid.UUID, p Patch) (*models.Job, error)
	DeleteJob(ctx context.Context, employerID, id uuid.UUID) error
	MatchingWorkers(ctx context.Context, employerID, id uuid.UUID, minScore float64, limit int) ([]services.WorkerMatch, error)
}

type service struct {
	repo    Store
	matcher Matcher
	log     *slog.Logger
	// notifyAsync runs the post-create fan-out; tests swap it for a synchronous call.
	notifyAsync func(fn func())
}

func NewService(repo Store, matcher Matcher, log *slog.Logger) *service {
	if log == nil {
		log = slog.Default()
	}
	return &service{repo: repo, matcher: matcher, log: log, notifyAsync: func(fn func()) { go fn() }}
}

var _ Service = (*service)(nil)

// CreateJob stores the job and, for active jobs, notifies strongly matching workers in the
// background. Notification problems are logged, never returned.
func (s *service) CreateJob(ctx context.Context, employerID uuid.UUID, j *models.Job) (*models.Job, error) {
	j.EmployerID = employerID
	j.RequiredSkills = normalizeSkills(j.RequiredSkills)
	if j.Status == "" {
		j.Status = models.JobStatusActive
	}
	if j.Location.Type == "" {
		j.Location.Type = models.LocationOnsite
	}
	created, err := s.repo.Create(ctx, j)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	if created.Status == models.JobStatusActive && s.matcher != nil {
		bg := context.WithoutCancel(ctx)
		s.notifyAsync(func() {
			sent, err := s.matcher.NotifyMatchingWorkers(bg, created)
			if err != nil {
				s.log.Error("notify matching workers failed", "job_id", created.ID, "error", err)
				return
			}
			s.log.Info("matching workers notified", "job_id", created.ID, "count", sent)
		})
	}
	return created, nil
}

// normalizeSkills trims each skill and drops blanks.
func normalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	for _, sk := range skills {
		if sk = strings.TrimSpace(sk); sk != "" {
			out = append(out, sk)
		}
	}
	return out
}

func (s *service) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	j, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	return j, err
}

func (s *service) ListJobs(ctx context.Context, f models.JobFilter) ([]*models.Job, error) {
	return s.repo.List(ctx, f)
}

func (s *service) owned(ctx context.Context, employerID, id uuid.UUID) (*models.Job, error) {
	j, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if j.EmployerID != employerID {
		return nil, ErrNotOwner
	}
	return j, nil
}

func (s *service) UpdateJob(ctx context.Context, employerID, id uuid.UUID, p Patch) (*models.Job, error) {
	j, err := s.owned(ctx, employerID, id)
	if err != nil {
		return nil, err
	}
	if p.Title != nil {
		j.Title = *p.Title
	}
	if p.Description != nil {
		j.Description = *p.Description
	}
	if p.Category != nil {
		j.Category = *p.Category
	}
	if p.Location != nil {
		j.Location = *p.Location
	}
	if p.EmploymentType != nil {
		j.EmploymentType = *p.EmploymentType
	}
	if p.Salary != nil {
		j.Salary = *p.Salary
	}
	if p.RequiredSkills != nil {
		j.RequiredSkills = normalizeSkills(p.RequiredSkills)
	}
	if p.Status != nil {
		j.Status = *p.Status
	}
	updated, err := s.repo.Update(ctx, j)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	return updated, err
}

// DeleteJob removes a job that nobody has applied to.
func (s *service) DeleteJob(ctx context.Context, employerID, id uuid.UUID) error {
	if _, err := s.owned(ctx, employerID, id); err != nil {
		return err
	}
	n, err := s.repo.CountApplications(ctx, id)
	if err != nil {
		return fmt.Errorf("count applications: %w", err)
	}
	if n > 0 {
		return ErrJobHasApplications
	}
	switch err := s.repo.Delete(ctx, id, employerID); {
	case errors.Is(err, repository.ErrReferenced):
		// An application arrived after the count.
		return ErrJobHasApplications
	case errors.Is(err, repository.ErrNotFound):
		return ErrJobNotFound
	default:
		return err
	}
}

func (s *service) MatchingWorkers(ctx context.Context, employerID, id uuid.UUID, minScore float64, limit int) ([]services.WorkerMatch, error) {
	j, err := s.owned(ctx, employerID, id)
	if err != nil {
		return nil, err
	}
	return s.matcher.FindMatchingWorkers(ctx, j, minScore, limit)
}
