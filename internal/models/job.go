package models

import (
	"time"

	"github.com/google/uuid"
)

// Job status enums.
const (
	JobStatusActive     = "active"
	JobStatusInProgress = "in-progress"
	JobStatusCompleted  = "completed"
	JobStatusClosed     = "closed"
	JobStatusDraft      = "draft"
)

// Job location types.
const (
	LocationRemote = "remote"
	LocationHybrid = "hybrid"
	LocationOnsite = "onsite"
)

var JobCategories = []string{
	"construction", "agriculture", "domestic", "manufacturing",
	"transport", "hospitality", "retail", "other",
}

var EmploymentTypes = []string{"full-time", "part-time", "contract", "daily-wage", "temporary"}

var JobStatuses = []string{JobStatusActive, JobStatusInProgress, JobStatusCompleted, JobStatusClosed, JobStatusDraft}

type JobLocation struct {
	Type    string `json:"type"`
	Street  string `json:"street,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode,omitempty"`
}

type Job struct {
	ID             uuid.UUID   `json:"id"`
	EmployerID     uuid.UUID   `json:"employer_id"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Category       string      `json:"category"`
	Location       JobLocation `json:"location"`
	EmploymentType string      `json:"employment_type"`
	Salary         int64       `json:"salary"`
	RequiredSkills []string    `json:"required_skills"`
	Status         string      `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// JobFilter narrows a job listing. Zero values mean "any".
type JobFilter struct {
	State          string
	City           string
	Category       string
	Status         string
	EmploymentType string
	Query          string
	MinSalary      int64
	MaxSalary      int64
	EmployerID     uuid.UUID
	Limit          int
	Offset         int
}
