package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shramsetu/backend/internal/metrics"
	"github.com/shramsetu/backend/internal/models"
	"github.com/shramsetu/backend/internal/repository"
)

var (
	ErrDuplicateApplication        = errors.New("worker has already applied to this job")
	ErrJobNotAcceptingApplications = errors.New("job is not accepting applications")
	ErrInvalidTransition           = errors.New("invalid status transition")
	ErrInvalidCancellationState    = errors.New("application can only be cancelled while pending or accepted")
	ErrNotCompleted                = errors.New("application is not completed")
	ErrNotFound                    = errors.New("not found")
	ErrForbidden                   = errors.New("forbidden")
)

// transitions is the application state machine. rejected and completed are terminal.
var transitions = map[string][]string{
	models.ApplicationPending:    {models.ApplicationAccepted, models.ApplicationRejected},
	models.ApplicationAccepted:   {models.ApplicationInProgress},
	models.ApplicationInProgress: {models.ApplicationCompleted},
}

// CanTransition reports whether an application may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Cancellable reports whether a worker may still withdraw an application in this status.
func Cancellable(status string) bool {
	return status == models.ApplicationPending || status == models.ApplicationAccepted
}

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ApplicationStore is the job_applications persistence used by the lifecycle.
type ApplicationStore interface {
	Create(ctx context.Context, a *models.JobApplication) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.JobApplication, error)
	FindByJobAndWorker(ctx context.Context, jobID, workerID uuid.UUID) (*models.JobApplication, error)
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to string, change models.StatusChange) (*models.JobApplication, error)
	MarkPaidTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64, paidAt time.Time) (bool, error)
	DeleteCancellable(ctx context.Context, id uuid.UUID) error
	CountByJobTx(ctx context.Context, tx pgx.Tx, jobID uuid.UUID) (open, completed int, err error)
	ListByWorker(ctx context.Context, workerID uuid.UUID) ([]*models.JobApplication, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]*models.JobApplication, error)
}

// JobStore is the jobs persistence used by the lifecycle and settlement.
type JobStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Job, error)
	SetStatusTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) error
}

// WorkerStore resolves worker profiles.
type WorkerStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Worker, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*models.Worker, error)
}

// Lifecycle owns job application creation, transitions and cancellation.
type Lifecycle struct {
	Pool       TxBeginner
	Apps       ApplicationStore
	Jobs       JobStore
	Workers    WorkerStore
	Settlement *Settlement
	Notifier   Notifier
	Logger     *slog.Logger
	Now        func() time.Time
}

func NewLifecycle(pool TxBeginner, apps ApplicationStore, jobs JobStore, workers WorkerStore, settlement *Settlement, notifier Notifier, logger *slog.Logger) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifecycle{
		Pool:       pool,
		Apps:       apps,
		Jobs:       jobs,
		Workers:    workers,
		Settlement: settlement,
		Notifier:   notifier,
		Logger:     logger,
		Now:        time.Now,
	}
}

func (l *Lifecycle) now() time.Time {
	if l.Now == nil {
		return time.Now().UTC()
	}
	return l.Now().UTC()
}

// Apply creates a pending application from the worker owning actorAccountID to the job.
func (l *Lifecycle) Apply(ctx context.Context, actorAccountID, jobID uuid.UUID, coverNote string) (*models.JobApplication, error) {
	worker, err := l.Workers.GetByAccountID(ctx, actorAccountID)
	if err != nil {
		return nil, notFound("worker profile", err)
	}
	job, err := l.Jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, notFound("job", err)
	}

	existing, err := l.Apps.FindByJobAndWorker(ctx, job.ID, worker.ID)
	switch {
	case err == nil && existing != nil:
		metrics.ApplicationRejections.WithLabelValues("apply", "duplicate").Inc()
		return nil, ErrDuplicateApplication
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("check existing application: %w", err)
	}

	if job.Status != models.JobStatusActive {
		metrics.ApplicationRejections.WithLabelValues("apply", "job_not_active").Inc()
		return nil, ErrJobNotAcceptingApplications
	}

	now := l.now()
	app := &models.JobApplication{
		ID:         uuid.New(),
		JobID:      job.ID,
		WorkerID:   worker.ID,
		EmployerID: job.EmployerID,
		Status:     models.ApplicationPending,
		WorkerDetails: models.WorkerSnapshot{
			Name:            worker.Name,
			Phone:           worker.Phone,
			Skills:          append([]string(nil), worker.Skills...),
			ExperienceYears: worker.ExperienceYears,
			Rating:          worker.Rating,
		},
		CoverNote:     coverNote,
		PaymentStatus: models.PaymentPending,
		StatusHistory: []models.StatusChange{{Status: models.ApplicationPending, ChangedAt: now, Note: "Application submitted"}},
	}
	if err := l.Apps.Create(ctx, app); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a race with a concurrent apply for the same pair.
			metrics.ApplicationRejections.WithLabelValues("apply", "duplicate").Inc()
			return nil, ErrDuplicateApplication
		}
		return nil, fmt.Errorf("create application: %w", err)
	}
	metrics.ApplicationsCreated.Inc()

	l.notify(ctx, models.Notification{
		RecipientID:   job.EmployerID,
		RecipientType: models.RecipientEmployer,
		EventType:     models.EventApplicationReceived,
		Payload: payload(map[string]any{
			"application_id": app.ID,
			"job_id":         job.ID,
			"job_title":      job.Title,
			"worker_name":    worker.Name,
		}),
	})
	return app, nil
}

// UpdateStatus moves an application along the state machine on behalf of the job's employer.
// Completing an application settles payment in the same transaction. paymentAmount <= 0
// falls back to the job salary.
func (l *Lifecycle) UpdateStatus(ctx context.Context, appID, actorAccountID uuid.UUID, to, note string, paymentAmount int64) (*models.JobApplication, error) {
	app, err := l.Apps.GetByID(ctx, appID)
	if err != nil {
		return nil, notFound("application", err)
	}
	if app.EmployerID != actorAccountID {
		return nil, ErrForbidden
	}
	from := app.Status
	if !CanTransition(from, to) {
		metrics.ApplicationRejections.WithLabelValues("update_status", "invalid_transition").Inc()
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	tx, err := l.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if note == "" {
		note = "Status changed to " + to
	}
	updated, err := l.Apps.UpdateStatusTx(ctx, tx, app.ID, from, to, models.StatusChange{Status: to, ChangedAt: l.now(), Note: note})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// Someone else moved it first.
			metrics.ApplicationRejections.WithLabelValues("update_status", "concurrent_update").Inc()
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	var settled *SettlementResult
	if to == models.ApplicationCompleted {
		settled, err = l.Settlement.Settle(ctx, tx, updated, paymentAmount)
		if err != nil {
			return nil, fmt.Errorf("settle: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	metrics.ApplicationTransitions.WithLabelValues(from, to).Inc()
	settled.record()

	l.notifyTransition(ctx, updated, settled)
	return updated, nil
}

// Cancel withdraws a pending or accepted application on behalf of the applying worker.
func (l *Lifecycle) Cancel(ctx context.Context, appID, actorAccountID uuid.UUID) error {
	app, err := l.Apps.GetByID(ctx, appID)
	if err != nil {
		return notFound("application", err)
	}
	if err := l.requireWorker(ctx, app.WorkerID, actorAccountID); err != nil {
		return err
	}
	if !Cancellable(app.Status) {
		metrics.ApplicationRejections.WithLabelValues("cancel", "invalid_state").Inc()
		return ErrInvalidCancellationState
	}
	if err := l.Apps.DeleteCancellable(ctx, app.ID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			metrics.ApplicationRejections.WithLabelValues("cancel", "invalid_state").Inc()
			return ErrInvalidCancellationState
		}
		return fmt.Errorf("delete application: %w", err)
	}
	return nil
}

// ProcessPayment re-runs settlement for a completed application. Repeating it never credits twice.
func (l *Lifecycle) ProcessPayment(ctx context.Context, appID, actorAccountID uuid.UUID, amount int64) (*SettlementResult, error) {
	app, err := l.Apps.GetByID(ctx, appID)
	if err != nil {
		return nil, notFound("application", err)
	}
	if app.EmployerID != actorAccountID {
		return nil, ErrForbidden
	}
	if app.Status != models.ApplicationCompleted {
		return nil, ErrNotCompleted
	}

	tx, err := l.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	res, err := l.Settlement.Settle(ctx, tx, app, amount)
	if err != nil {
		return nil, fmt.Errorf("settle: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	res.record()

	if res.Credited {
		l.notify(ctx, models.Notification{
			RecipientID:   app.WorkerID,
			RecipientType: models.RecipientWorker,
			EventType:     models.EventPaymentReceived,
			Payload: payload(map[string]any{
				"application_id": app.ID,
				"job_id":         app.JobID,
				"job_title":      res.JobTitle,
				"amount":         res.Amount,
			}),
		})
	}
	return res, nil
}

// Get returns an application visible to the actor: its employer or the applying worker.
func (l *Lifecycle) Get(ctx context.Context, appID, actorAccountID uuid.UUID) (*models.JobApplication, error) {
	app, err := l.Apps.GetByID(ctx, appID)
	if err != nil {
		return nil, notFound("application", err)
	}
	if app.EmployerID == actorAccountID {
		return app, nil
	}
	if err := l.requireWorker(ctx, app.WorkerID, actorAccountID); err != nil {
		return nil, err
	}
	return app, nil
}

// ListForWorker returns a worker's applications. Only the worker may list them.
func (l *Lifecycle) ListForWorker(ctx context.Context, workerID, actorAccountID uuid.UUID) ([]*models.JobApplication, error) {
	if err := l.requireWorker(ctx, workerID, actorAccountID); err != nil {
		return nil, err
	}
	return l.Apps.ListByWorker(ctx, workerID)
}

// ListForJob returns the applications to a job. Only the job's employer may list them.
func (l *Lifecycle) ListForJob(ctx context.Context, jobID, actorAccountID uuid.UUID) ([]*models.JobApplication, error) {
	job, err := l.Jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, notFound("job", err)
	}
	if job.EmployerID != actorAccountID {
		return nil, ErrForbidden
	}
	return l.Apps.ListByJob(ctx, jobID)
}

func (l *Lifecycle) requireWorker(ctx context.Context, workerID, actorAccountID uuid.UUID) error {
	w, err := l.Workers.GetByID(ctx, workerID)
	if err != nil {
		return notFound("worker", err)
	}
	if w.AccountID != actorAccountID {
		return ErrForbidden
	}
	return nil
}

var transitionEvents = map[string]string{
	models.ApplicationAccepted:   models.EventApplicationAccepted,
	models.ApplicationRejected:   models.EventApplicationRejected,
	models.ApplicationInProgress: models.EventJobStarted,
	models.ApplicationCompleted:  models.EventJobCompleted,
}

func (l *Lifecycle) notifyTransition(ctx context.Context, app *models.JobApplication, settled *SettlementResult) {
	event, ok := transitionEvents[app.Status]
	if !ok {
		return
	}
	data := map[string]any{
		"application_id": app.ID,
		"job_id":         app.JobID,
		"status":         app.Status,
	}
	if settled != nil {
		data["job_title"] = settled.JobTitle
	}
	l.notify(ctx, models.Notification{
		RecipientID:   app.WorkerID,
		RecipientType: models.RecipientWorker,
		EventType:     event,
		Payload:       payload(data),
	})
	if settled != nil && settled.Credited {
		l.notify(ctx, models.Notification{
			RecipientID:   app.WorkerID,
			RecipientType: models.RecipientWorker,
			EventType:     models.EventPaymentReceived,
			Payload: payload(map[string]any{
				"application_id": app.ID,
				"job_id":         app.JobID,
				"job_title":      settled.JobTitle,
				"amount":         settled.Amount,
			}),
		})
	}
}

// notify dispatches after the state change is durable. Failures never fail the operation.
func (l *Lifecycle) notify(ctx context.Context, n models.Notification) {
	if l.Notifier == nil {
		return
	}
	if err := l.Notifier.Dispatch(ctx, n); err != nil {
		l.Logger.Error("notification dispatch failed",
			"recipient_id", n.RecipientID, "event_type", n.EventType, "error", err)
	}
}

func notFound(what string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("load %s: %w", what, err)
}

func payload(m map[string]any) json.RawMessage {
	b, _ := json.Marshal(m)
	return b
}
