package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shramsetu/backend/internal/metrics"
	"github.com/shramsetu/backend/internal/models"
	"github.com/shramsetu/backend/internal/notify"
)

// Notifier hands a notification off for delivery. Callers treat failures as non-fatal.
type Notifier interface {
	Dispatch(ctx context.Context, n models.Notification) error
}

// Dispatcher enqueues notifications on the background job queue; a notify.DeliverNotificationWorker
// delivers them.
type Dispatcher struct {
	insert notify.InsertFunc
	logger *slog.Logger
}

// NewDispatcher returns a Dispatcher. insert is typically a closure over river.Client.Insert.
func NewDispatcher(insert notify.InsertFunc, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{insert: insert, logger: logger}
}

var _ Notifier = (*Dispatcher)(nil)

func (d *Dispatcher) Dispatch(ctx context.Context, n models.Notification) error {
	if n.RecipientID == uuid.Nil || n.EventType == "" {
		metrics.NotificationsDispatched.WithLabelValues(n.EventType, "invalid").Inc()
		return errors.New("notification needs a recipient and an event type")
	}
	if n.RecipientType != models.RecipientWorker && n.RecipientType != models.RecipientEmployer {
		metrics.NotificationsDispatched.WithLabelValues(n.EventType, "invalid").Inc()
		return fmt.Errorf("unknown recipient type %q", n.RecipientType)
	}
	err := d.insert(ctx, notify.DeliverNotificationArgs{
		RecipientID:   n.RecipientID,
		RecipientType: n.RecipientType,
		EventType:     n.EventType,
		Payload:       n.Payload,
	})
	if err != nil {
		metrics.NotificationsDispatched.WithLabelValues(n.EventType, "error").Inc()
		return fmt.Errorf("enqueue notification: %w", err)
	}
	metrics.NotificationsDispatched.WithLabelValues(n.EventType, "queued").Inc()
	d.logger.Debug("notification queued", "recipient_id", n.RecipientID, "event_type", n.EventType)
	return nil
}
