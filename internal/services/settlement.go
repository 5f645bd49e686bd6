package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shramsetu/backend/internal/metrics"
	"github.com/shramsetu/backend/internal/models"
)

// DefaultPaymentAmount is paid when neither the caller nor the job names an amount.
const DefaultPaymentAmount int64 = 1000

// SettlementLedger credits worker earnings. ledger.Service implements it.
type SettlementLedger interface {
	CreditEarning(ctx context.Context, tx pgx.Tx, e *models.Earning) (credited bool, balance int64, err error)
}

// SettlementApps is the application persistence settlement needs.
type SettlementApps interface {
	MarkPaidTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64, paidAt time.Time) (bool, error)
	CountByJobTx(ctx context.Context, tx pgx.Tx, jobID uuid.UUID) (open, completed int, err error)
}

// Settlement pays a worker for a completed application and closes out the job when
// no application is still being worked.
type Settlement struct {
	Apps          SettlementApps
	Jobs          JobStore
	Ledger        SettlementLedger
	DefaultAmount int64
	Now           func() time.Time
}

func NewSettlement(apps SettlementApps, jobs JobStore, ledger SettlementLedger, defaultAmount int64) *Settlement {
	if defaultAmount <= 0 {
		defaultAmount = DefaultPaymentAmount
	}
	return &Settlement{Apps: apps, Jobs: jobs, Ledger: ledger, DefaultAmount: defaultAmount, Now: time.Now}
}

type SettlementResult struct {
	ApplicationID uuid.UUID `json:"application_id"`
	JobID         uuid.UUID `json:"job_id"`
	WorkerID      uuid.UUID `json:"worker_id"`
	JobTitle      string    `json:"-"`
	Amount        int64     `json:"amount"`
	Credited      bool      `json:"credited"`
	Balance       int64     `json:"balance"`
	JobCompleted  bool      `json:"job_completed"`
}

func (r *SettlementResult) record() {
	if r == nil {
		return
	}
	if r.Credited {
		metrics.Settlements.WithLabelValues("credited").Inc()
		metrics.SettledAmount.Add(float64(r.Amount))
		return
	}
	metrics.Settlements.WithLabelValues("duplicate").Inc()
}

// Settle runs inside tx. It locks the job row, records payment on the application,
// credits the worker at most once per job and completes the job if nothing is left open.
// app is updated in place with the payment fields.
func (s *Settlement) Settle(ctx context.Context, tx pgx.Tx, app *models.JobApplication, amount int64) (*SettlementResult, error) {
	job, err := s.Jobs.GetByIDForUpdate(ctx, tx, app.JobID)
	if err != nil {
		return nil, notFound("job", err)
	}
	amt := s.amountFor(app, job, amount)

	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	marked, err := s.Apps.MarkPaidTx(ctx, tx, app.ID, amt, now)
	if err != nil {
		return nil, fmt.Errorf("mark paid: %w", err)
	}
	if marked {
		app.PaymentStatus = models.PaymentPaid
		app.PaymentAmount = &amt
		app.PaymentDate = &now
	}

	appID := app.ID
	credited, balance, err := s.Ledger.CreditEarning(ctx, tx, &models.Earning{
		WorkerID:      app.WorkerID,
		JobID:         job.ID,
		ApplicationID: &appID,
		Amount:        amt,
		Description:   "Payment for job: " + job.Title,
	})
	if err != nil {
		return nil, fmt.Errorf("credit earning: %w", err)
	}

	res := &SettlementResult{
		ApplicationID: app.ID,
		JobID:         job.ID,
		WorkerID:      app.WorkerID,
		JobTitle:      job.Title,
		Amount:        amt,
		Credited:      credited,
		Balance:       balance,
	}

	open, completed, err := s.Apps.CountByJobTx(ctx, tx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("count applications: %w", err)
	}
	if open == 0 && completed > 0 && (job.Status == models.JobStatusActive || job.Status == models.JobStatusInProgress) {
		if err := s.Jobs.SetStatusTx(ctx, tx, job.ID, models.JobStatusCompleted); err != nil {
			return nil, fmt.Errorf("complete job: %w", err)
		}
		res.JobCompleted = true
	}
	return res, nil
}

// amountFor picks the payment: an amount already recorded on the application wins,
// then the caller's amount, then the job salary, then the configured default.
func (s *Settlement) amountFor(app *models.JobApplication, job *models.Job, amount int64) int64 {
	switch {
	case app.PaymentStatus == models.PaymentPaid && app.PaymentAmount != nil && *app.PaymentAmount > 0:
		return *app.PaymentAmount
	case amount > 0:
		return amount
	case job.Salary > 0:
		return job.Salary
	case s.DefaultAmount > 0:
		return s.DefaultAmount
	default:
		return DefaultPaymentAmount
	}
}
