package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/shramsetu/backend/internal/metrics"
	"github.com/shramsetu/backend/internal/models"
)

type DeliverNotificationArgs struct {
	RecipientID   uuid.UUID       `json:"recipient_id"`
	RecipientType string          `json:"recipient_type"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

func (DeliverNotificationArgs) Kind() string { return "deliver_notification" }

// InsertFunc enqueues a delivery job. Provided by main using river.Client.Insert.
type InsertFunc func(ctx context.Context, args DeliverNotificationArgs) error

// Sender delivers one notification over some channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, n models.Notification) error
}

// ErrPermanent marks delivery failures that retrying cannot fix.
type ErrPermanent struct {
	Reason string
}

func (e *ErrPermanent) Error() string { return "permanent delivery failure: " + e.Reason }

type DeliverNotificationWorker struct {
	river.WorkerDefaults[DeliverNotificationArgs]
	sender Sender
	logger *slog.Logger
}

func NewDeliverNotificationWorker(sender Sender, logger *slog.Logger) *DeliverNotificationWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeliverNotificationWorker{sender: sender, logger: logger}
}

func (w *DeliverNotificationWorker) Work(ctx context.Context, job *river.Job[DeliverNotificationArgs]) error {
	args := job.Args
	n := models.Notification{
		RecipientID:   args.RecipientID,
		RecipientType: args.RecipientType,
		EventType:     args.EventType,
		Payload:       args.Payload,
	}

	err := w.sender.Send(ctx, n)
	if err == nil {
		metrics.NotificationsDelivered.WithLabelValues(w.sender.Name(), "ok").Inc()
		return nil
	}

	var perm *ErrPermanent
	if errors.As(err, &perm) {
		// Nothing to retry: drop the job after logging.
		metrics.NotificationsDelivered.WithLabelValues(w.sender.Name(), "dropped").Inc()
		w.logger.Warn("notification dropped",
			"recipient_id", n.RecipientID, "event_type", n.EventType, "reason", perm.Reason)
		return river.JobCancel(err)
	}
	metrics.NotificationsDelivered.WithLabelValues(w.sender.Name(), "error").Inc()
	return fmt.Errorf("deliver %s to %s: %w", n.EventType, n.RecipientID, err)
}
