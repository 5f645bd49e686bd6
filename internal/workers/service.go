package workers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/shramsetu/backend/internal/ledger"
	"github.com/shramsetu/backend/internal/models"
	"github.com/shramsetu/backend/internal/repository"
	"github.com/shramsetu/backend/internal/services"
)

var (
	ErrWorkerNotFound = errors.New("worker not found")
	ErrNotWorker      = errors.New("only worker accounts have worker profiles")
	ErrProfileExists  = errors.New("worker profile already exists")
	ErrNotOwner       = errors.New("worker profile belongs to another account")
)

// Store is the workers persistence. *Repository implements it.
type Store interface {
	Create(ctx context.Context, w *models.Worker) (*models.Worker, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Worker, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*models.Worker, error)
	Update(ctx context.Context, w *models.Worker) (*models.Worker, error)
}

// AccountLookup resolves the account a profile is created for.
type AccountLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// JobMatcher is the worker-side half of the Job Finder.
type JobMatcher interface {
	FindMatchingJobs(ctx context.Context, w *models.Worker, minScore float64, limit int) ([]services.JobMatch, error)
}

// Profile carries the fields of a profile create or update; nil fields are left alone on update.
type Profile struct {
	Name            *string                `json:"name"`
	NationalID      *string                `json:"national_id"`
	Skills          []string               `json:"skills"`
	Location        *models.WorkerLocation `json:"location"`
	Languages       []string               `json:"languages"`
	ExperienceYears *int                   `json:"experience_years"`
	Available       *bool                  `json:"available"`
}

type Service interface {
	CreateProfile(ctx context.Context, accountID uuid.UUID, p Profile) (*models.Worker, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Worker, error)
	UpdateProfile(ctx context.Context, accountID, id uuid.UUID, p Profile) (*models.Worker, error)
	MatchingJobs(ctx context.Context, accountID, id uuid.UUID, minScore float64, limit int) ([]services.JobMatch, error)
	Wallet(ctx context.Context, accountID, id uuid.UUID) (*ledger.Wallet, error)
	Withdraw(ctx context.Context, accountID, id uuid.UUID, amount int64, method string) (*models.Withdrawal, int64, error)
}

type service struct {
	repo     Store
	accounts AccountLookup
	matcher  JobMatcher
	ledger   ledger.Service
}

func NewService(repo Store, accounts AccountLookup, matcher JobMatcher, ledgerSvc ledger.Service) Service {
	return &service{repo: repo, accounts: accounts, matcher: matcher, ledger: ledgerSvc}
}

var _ Service = (*service)(nil)

// CreateProfile creates the worker profile of a worker account. Name defaults to the
// account name and the phone always comes from the account.
func (s *service) CreateProfile(ctx context.Context, accountID uuid.UUID, p Profile) (*models.Worker, error) {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if acc.Role != models.RoleWorker {
		return nil, ErrNotWorker
	}
	w := &models.Worker{
		AccountID: accountID,
		Name:      acc.Name,
		Phone:     acc.Phone,
		Skills:    []string{},
		Languages: []string{},
		Available: true,
	}
	apply(w, p)
	if p.NationalID != nil {
		w.NationalID = strings.TrimSpace(*p.NationalID)
	}
	created, err := s.repo.Create(ctx, w)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrProfileExists
	}
	return created, err
}

func (s *service) GetProfile(ctx context.Context, id uuid.UUID) (*models.Worker, error) {
	w, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrWorkerNotFound
	}
	return w, err
}

func (s *service) owned(ctx context.Context, accountID, id uuid.UUID) (*models.Worker, error) {
	w, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.AccountID != accountID {
		return nil, ErrNotOwner
	}
	return w, nil
}

func (s *service) UpdateProfile(ctx context.Context, accountID, id uuid.UUID, p Profile) (*models.Worker, error) {
	w, err := s.owned(ctx, accountID, id)
	if err != nil {
		return nil, err
	}
	apply(w, p)
	return s.repo.Update(ctx, w)
}

func (s *service) MatchingJobs(ctx context.Context, accountID, id uuid.UUID, minScore float64, limit int) ([]services.JobMatch, error) {
	w, err := s.owned(ctx, accountID, id)
	if err != nil {
		return nil, err
	}
	return s.matcher.FindMatchingJobs(ctx, w, minScore, limit)
}

func (s *service) Wallet(ctx context.Context, accountID, id uuid.UUID) (*ledger.Wallet, error) {
	if _, err := s.owned(ctx, accountID, id); err != nil {
		return nil, err
	}
	return s.ledger.Wallet(ctx, id)
}

func (s *service) Withdraw(ctx context.Context, accountID, id uuid.UUID, amount int64, method string) (*models.Withdrawal, int64, error) {
	if _, err := s.owned(ctx, accountID, id); err != nil {
		return nil, 0, err
	}
	return s.ledger.Withdraw(ctx, id, amount, method)
}

func apply(w *models.Worker, p Profile) {
	if p.Name != nil {
		w.Name = strings.TrimSpace(*p.Name)
	}
	if p.Skills != nil {
		w.Skills = cleanList(p.Skills)
	}
	if p.Location != nil {
		w.Location = models.WorkerLocation{
			Village:  strings.TrimSpace(p.Location.Village),
			District: strings.TrimSpace(p.Location.District),
			State:    strings.TrimSpace(p.Location.State),
		}
	}
	if p.Languages != nil {
		w.Languages = cleanList(p.Languages)
	}
	if p.ExperienceYears != nil {
		w.ExperienceYears = *p.ExperienceYears
	}
	if p.Available != nil {
		w.Available = *p.Available
	}
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
