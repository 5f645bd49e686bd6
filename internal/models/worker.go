package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkerLocation is where a worker lives. District is compared against a job's city when matching.
type WorkerLocation struct {
	Village  string `json:"village,omitempty"`
	District string `json:"district"`
	State    string `json:"state"`
}

type Worker struct {
	ID              uuid.UUID      `json:"id"`
	AccountID       uuid.UUID      `json:"account_id"`
	Name            string         `json:"name"`
	Phone           string         `json:"phone"`
	NationalID      string         `json:"national_id,omitempty"`
	Skills          []string       `json:"skills"`
	Location        WorkerLocation `json:"location"`
	Languages       []string       `json:"languages"`
	ExperienceYears int            `json:"experience_years"`
	Available       bool           `json:"available"`
	Rating          float64        `json:"rating"`
	ShaktiScore     float64        `json:"shakti_score"`
	Balance         int64          `json:"balance"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Withdrawal statuses. Failed withdrawals do not count against the balance.
const (
	WithdrawalPending   = "pending"
	WithdrawalCompleted = "completed"
	WithdrawalFailed    = "failed"
)

// Earning is an append-only credit to a worker. At most one exists per (worker, job).
type Earning struct {
	ID            uuid.UUID  `json:"id"`
	WorkerID      uuid.UUID  `json:"worker_id"`
	JobID         uuid.UUID  `json:"job_id"`
	ApplicationID *uuid.UUID `json:"application_id,omitempty"`
	Amount        int64      `json:"amount"`
	Description   string     `json:"description"`
	CreatedAt     time.Time  `json:"created_at"`
}

type Withdrawal struct {
	ID        uuid.UUID `json:"id"`
	WorkerID  uuid.UUID `json:"worker_id"`
	Amount    int64     `json:"amount"`
	Method    string    `json:"method"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
