package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"

	"github.com/shramsetu/backend/internal/models"
	"github.com/shramsetu/backend/internal/repository"
)

// LogSender writes notifications to the structured log. Used in development.
type LogSender struct {
	Logger *slog.Logger
}

func (LogSender) Name() string { return "log" }

func (s LogSender) Send(_ context.Context, n models.Notification) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notification",
		"recipient_id", n.RecipientID,
		"recipient_type", n.RecipientType,
		"event_type", n.EventType,
		"payload", string(n.Payload))
	return nil
}

// WebhookSender POSTs the notification as JSON to a fixed URL.
type WebhookSender struct {
	url        string
	httpClient *http.Client
}

func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{url: url, httpClient: &http.Client{Timeout: 10 * time.Second}}
}

func (*WebhookSender) Name() string { return "webhook" }

func (s *WebhookSender) Send(ctx context.Context, n models.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return &ErrPermanent{Reason: fmt.Sprintf("marshal notification: %v", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return &ErrPermanent{Reason: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("network error calling notification webhook: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return &ErrPermanent{Reason: fmt.Sprintf("webhook returned %d", resp.StatusCode)}
	default:
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
}

// SNSPublisher is the part of the SNS client used here; *sns.Client implements it.
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// ContactLookup resolves a recipient's phone number.
type ContactLookup interface {
	PhoneFor(ctx context.Context, recipientID uuid.UUID, recipientType string) (string, error)
}

// SNSSender sends notifications as SMS through AWS SNS.
type SNSSender struct {
	client   SNSPublisher
	contacts ContactLookup
}

func NewSNSSender(client SNSPublisher, contacts ContactLookup) *SNSSender {
	return &SNSSender{client: client, contacts: contacts}
}

// NewSNSClient loads the default AWS configuration for region.
func NewSNSClient(ctx context.Context, region string) (*sns.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return sns.NewFromConfig(cfg), nil
}

func (*SNSSender) Name() string { return "sns" }

func (s *SNSSender) Send(ctx context.Context, n models.Notification) error {
	phone, err := s.contacts.PhoneFor(ctx, n.RecipientID, n.RecipientType)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &ErrPermanent{Reason: "recipient has no phone on record"}
		}
		return fmt.Errorf("lookup phone: %w", err)
	}
	if phone == "" {
		return &ErrPermanent{Reason: "recipient has no phone on record"}
	}
	_, err = s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(SMSText(n)),
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}

// SMSText renders a short message for an event. Payload fields are optional.
func SMSText(n models.Notification) string {
	var p struct {
		JobTitle string  `json:"job_title"`
		Score    float64 `json:"match_score"`
		Amount   int64   `json:"amount"`
	}
	_ = json.Unmarshal(n.Payload, &p)

	title := p.JobTitle
	if title == "" {
		title = "your job"
	}
	switch n.EventType {
	case models.EventJobMatch:
		return fmt.Sprintf("New job match: %s (match %.0f%%). Open the app to apply.", title, p.Score*100)
	case models.EventApplicationReceived:
		return fmt.Sprintf("New application received for %s.", title)
	case models.EventApplicationAccepted:
		return fmt.Sprintf("Your application for %s was accepted.", title)
	case models.EventApplicationRejected:
		return fmt.Sprintf("Your application for %s was not selected.", title)
	case models.EventJobStarted:
		return fmt.Sprintf("Work on %s has started.", title)
	case models.EventJobCompleted:
		return fmt.Sprintf("%s is marked completed.", title)
	case models.EventPaymentReceived:
		return fmt.Sprintf("Payment of Rs %d received for %s.", p.Amount, title)
	default:
		return fmt.Sprintf("Update: %s", n.EventType)
	}
}
