package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pvolkov/accounts-service/internal/core/domain"
	"github.com/pvolkov/accounts-service/internal/core/port"
	"github.com/pvolkov/accounts-service/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	AccountID string            `json:"account_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, accountID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		AccountID: accountID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata: map[string]string{
			"service":     p.appCfg.Name,
			"environment": p.appCfg.Env,
		},
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(accountID),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishAccountCreated publishes accounts.account.created events.
func (p *EventPublisher) PublishAccountCreated(ctx context.Context, event domain.AccountCreatedEvent) error {
	payload := struct {
		AccountID string         `json:"account_id"`
		Email     string         `json:"email"`
		Name      string         `json:"name"`
		Role      domain.Role    `json:"role"`
		CreatedAt time.Time      `json:"created_at"`
		CreatedBy *string        `json:"created_by,omitempty"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		AccountID: event.AccountID,
		Email:     event.Email,
		Name:      event.Name,
		Role:      event.Role,
		CreatedAt: event.CreatedAt.UTC(),
		CreatedBy: event.CreatedBy,
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "accounts.account.created", event.AccountID, event.CreatedAt, payload)
}

// PublishAccountStateChanged publishes accounts.account.state_changed events.
func (p *EventPublisher) PublishAccountStateChanged(ctx context.Context, event domain.AccountStateChangedEvent) error {
	payload := struct {
		AccountID  string         `json:"account_id"`
		Transition string         `json:"transition"`
		Deleted    bool           `json:"deleted"`
		Blocked    bool           `json:"blocked"`
		ChangedAt  time.Time      `json:"changed_at"`
		ChangedBy  *string        `json:"changed_by,omitempty"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:  event.AccountID,
		Transition: event.Transition,
		Deleted:    event.Deleted,
		Blocked:    event.Blocked,
		ChangedAt:  event.ChangedAt.UTC(),
		ChangedBy:  event.ChangedBy,
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, "accounts.account.state_changed", event.AccountID, event.ChangedAt, payload)
}

// PublishAccountLogin publishes accounts.account.login events.
func (p *EventPublisher) PublishAccountLogin(ctx context.Context, event domain.AccountLoginEvent) error {
	payload := struct {
		AccountID string         `json:"account_id"`
		Email     string         `json:"email"`
		IP        string         `json:"ip,omitempty"`
		LoginAt   time.Time      `json:"login_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		AccountID: event.AccountID,
		Email:     event.Email,
		IP:        event.IP,
		LoginAt:   event.LoginAt.UTC(),
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "accounts.account.login", event.AccountID, event.LoginAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
