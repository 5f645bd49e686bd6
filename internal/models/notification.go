package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Notification recipient types.
const (
	RecipientWorker   = "worker"
	RecipientEmployer = "employer"
)

// Notification event types.
const (
	EventJobMatch            = "job_match"
	EventApplicationReceived = "application_received"
	EventApplicationAccepted = "application_accepted"
	EventApplicationRejected = "application_rejected"
	EventJobStarted          = "job_started"
	EventJobCompleted        = "job_completed"
	EventPaymentReceived     = "payment_received"
)

type Notification struct {
	RecipientID   uuid.UUID       `json:"recipient_id"`
	RecipientType string          `json:"recipient_type"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}
