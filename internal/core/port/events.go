package port

import (
	"context"

	"github.com/pvolkov/accounts-service/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishAccountCreated(ctx context.Context, event domain.AccountCreatedEvent) error
	PublishAccountStateChanged(ctx context.Context, event domain.AccountStateChangedEvent) error
	PublishAccountLogin(ctx context.Context, event domain.AccountLoginEvent) error
}
