package models

import (
	"time"

	"github.com/google/uuid"
)

// Application status enums.
const (
	ApplicationPending    = "pending"
	ApplicationAccepted   = "accepted"
	ApplicationRejected   = "rejected"
	ApplicationInProgress = "in-progress"
	ApplicationCompleted  = "completed"
)

// Payment status enums.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)

// WorkerSnapshot is copied from the worker profile when the application is created
// and never updated afterwards.
type WorkerSnapshot struct {
	Name            string   `json:"name"`
	Phone           string   `json:"phone"`
	Skills          []string `json:"skills"`
	ExperienceYears int      `json:"experience_years"`
	Rating          float64  `json:"rating"`
}

type StatusChange struct {
	Status    string    `json:"status"`
	ChangedAt time.Time `json:"changed_at"`
	Note      string    `json:"note,omitempty"`
}

type JobApplication struct {
	ID            uuid.UUID      `json:"id"`
	JobID         uuid.UUID      `json:"job_id"`
	WorkerID      uuid.UUID      `json:"worker_id"`
	EmployerID    uuid.UUID      `json:"employer_id"`
	Status        string         `json:"status"`
	WorkerDetails WorkerSnapshot `json:"worker_details"`
	CoverNote     string         `json:"cover_note,omitempty"`
	PaymentStatus string         `json:"payment_status"`
	PaymentAmount *int64         `json:"payment_amount,omitempty"`
	PaymentDate   *time.Time     `json:"payment_date,omitempty"`
	StatusHistory []StatusChange `json:"status_history"`
	AppliedAt     time.Time      `json:"applied_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// EmployerSummary aggregates an employer's postings for the dashboard.
type EmployerSummary struct {
	JobsByStatus         map[string]int `json:"jobs_by_status"`
	ApplicationsByStatus map[string]int `json:"applications_by_status"`
	TotalPaid            int64          `json:"total_paid"`
}
