package models

import (
	"time"

	"github.com/google/uuid"
)

// Account roles.
const (
	RoleWorker   = "worker"
	RoleEmployer = "employer"
)

type Account struct {
	ID           uuid.UUID `json:"id"`
	Phone        string    `json:"phone"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	Company      string    `json:"company,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
