package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shramsetu/backend/internal/models"
	"github.com/shramsetu/backend/internal/repository"
)

type mockPublisher struct {
	mu     sync.Mutex
	inputs []*sns.PublishInput
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.inputs = append(m.inputs, in)
	return &sns.PublishOutput{}, nil
}

type mockContacts map[uuid.UUID]string

func (m mockContacts) PhoneFor(_ context.Context, id uuid.UUID, _ string) (string, error) {
	p, ok := m[id]
	if !ok {
		return "", repository.ErrNotFound
	}
	return p, nil
}

type recordingSender struct {
	sent []models.Notification
	err  error
}

func (*recordingSender) Name() string { return "recording" }

func (s *recordingSender) Send(_ context.Context, n models.Notification) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, n)
	return nil
}

func matchNotification(recipient uuid.UUID) models.Notification {
	payload, _ := json.Marshal(map[string]any{"job_title": "Mason", "match_score": 0.88})
	return models.Notification{
		RecipientID:   recipient,
		RecipientType: models.RecipientWorker,
		EventType:     models.EventJobMatch,
		Payload:       payload,
	}
}

func TestSNSSender_PublishesSMS(t *testing.T) {
	workerID := uuid.New()
	pub := &mockPublisher{}
	s := NewSNSSender(pub, mockContacts{workerID: "+919800000000"})

	require.NoError(t, s.Send(context.Background(), matchNotification(workerID)))
	require.Len(t, pub.inputs, 1)
	assert.Equal(t, "+919800000000", *pub.inputs[0].PhoneNumber)
	assert.Contains(t, *pub.inputs[0].Message, "Mason")
	assert.Contains(t, *pub.inputs[0].Message, "88%")
}

func TestSNSSender_UnknownRecipientIsPermanent(t *testing.T) {
	s := NewSNSSender(&mockPublisher{}, mockContacts{})
	err := s.Send(context.Background(), matchNotification(uuid.New()))

	var perm *ErrPermanent
	assert.True(t, errors.As(err, &perm))
}

func TestSNSSender_PublishErrorIsRetryable(t *testing.T) {
	workerID := uuid.New()
	s := NewSNSSender(&mockPublisher{err: errors.New("throttled")}, mockContacts{workerID: "+91"})
	err := s.Send(context.Background(), matchNotification(workerID))

	require.Error(t, err)
	var perm *ErrPermanent
	assert.False(t, errors.As(err, &perm))
}

func TestWebhookSender(t *testing.T) {
	var got models.Notification
	status := http.StatusNoContent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(status)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL)
	n := matchNotification(uuid.New())
	require.NoError(t, s.Send(context.Background(), n))
	assert.Equal(t, n.RecipientID, got.RecipientID)
	assert.Equal(t, models.EventJobMatch, got.EventType)

	status = http.StatusBadRequest
	var perm *ErrPermanent
	assert.True(t, errors.As(s.Send(context.Background(), n), &perm))

	status = http.StatusServiceUnavailable
	err := s.Send(context.Background(), n)
	require.Error(t, err)
	assert.False(t, errors.As(err, &perm))
}

func TestDeliverNotificationWorker(t *testing.T) {
	sender := &recordingSender{}
	w := NewDeliverNotificationWorker(sender, nil)
	args := DeliverNotificationArgs{
		RecipientID:   uuid.New(),
		RecipientType: models.RecipientEmployer,
		EventType:     models.EventApplicationReceived,
	}

	require.NoError(t, w.Work(context.Background(), &river.Job[DeliverNotificationArgs]{Args: args}))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, args.RecipientID, sender.sent[0].RecipientID)

	sender.err = errors.New("down")
	assert.Error(t, w.Work(context.Background(), &river.Job[DeliverNotificationArgs]{Args: args}))
}

func TestSMSText_PaymentReceived(t *testing.T) {
	payload, _ := json.Marshal(map[string]any{"job_title": "Harvest", "amount": 15000})
	text := SMSText(models.Notification{EventType: models.EventPaymentReceived, Payload: payload})
	assert.True(t, strings.Contains(text, "15000"), text)
	assert.Contains(t, text, "Harvest")
}
