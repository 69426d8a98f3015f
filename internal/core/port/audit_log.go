package port

import (
	"context"

	"github.com/pvolkov/accounts-service/internal/core/domain"
)

// AuditLog is the append-only record of actions taken against accounts.
// Append failures must never fail the caller's primary operation; callers
// log and continue.
type AuditLog interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	// ListAdminModifications returns the most recent update/delete entries
	// whose target held the admin role at the time of the action.
	ListAdminModifications(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}
