package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pvolkov/accounts-service/internal/core/domain"
	"github.com/pvolkov/accounts-service/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without brokers.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, accountID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.String("account_id", accountID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishAccountCreated logs accounts.account.created events.
func (p *StubPublisher) PublishAccountCreated(_ context.Context, event domain.AccountCreatedEvent) error {
	payload := map[string]any{
		"account_id": event.AccountID,
		"email":      event.Email,
		"name":       event.Name,
		"role":       event.Role,
		"created_at": event.CreatedAt,
		"created_by": event.CreatedBy,
	}
	p.logEvent("accounts.account.created", event.AccountID, event.CreatedAt, payload)
	return nil
}

// PublishAccountStateChanged logs accounts.account.state_changed events.
func (p *StubPublisher) PublishAccountStateChanged(_ context.Context, event domain.AccountStateChangedEvent) error {
	payload := map[string]any{
		"account_id": event.AccountID,
		"transition": event.Transition,
		"deleted":    event.Deleted,
		"blocked":    event.Blocked,
		"changed_at": event.ChangedAt,
		"changed_by": event.ChangedBy,
	}
	p.logEvent("accounts.account.state_changed", event.AccountID, event.ChangedAt, payload)
	return nil
}

// PublishAccountLogin logs accounts.account.login events.
func (p *StubPublisher) PublishAccountLogin(_ context.Context, event domain.AccountLoginEvent) error {
	payload := map[string]any{
		"account_id": event.AccountID,
		"email":      event.Email,
		"ip":         event.IP,
		"login_at":   event.LoginAt,
	}
	p.logEvent("accounts.account.login", event.AccountID, event.LoginAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
