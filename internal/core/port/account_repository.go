package port

import (
	"context"
	"time"

	"github.com/pvolkov/accounts-service/internal/core/domain"
)

// AccountFilter narrows listing and counting queries.
type AccountFilter struct {
	Deleted        *bool
	Blocked        *bool
	CreatedSince   *time.Time
	LastLoginSince *time.Time
	UpdatedSince   *time.Time
	Limit          int
	Offset         int
}

// LoginFailure captures the account's brute-force state after a failed
// attempt has been recorded.
type LoginFailure struct {
	Attempts     int
	LockoutUntil *time.Time
}

// AccountRepository exposes persistence behavior for accounts. Every
// read-modify-write operation is a single conditional statement against the
// store so concurrent requests never act on stale state.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	List(ctx context.Context, filter AccountFilter) ([]domain.Account, error)
	Count(ctx context.Context, filter AccountFilter) (int, error)

	// UpdateProfile applies the non-nil patch fields and returns the updated row.
	UpdateProfile(ctx context.Context, id string, patch domain.ProfilePatch, passwordHash *string, modifiedBy *string) (*domain.Account, error)
	// SetDeleted flips the deleted flag. When requireDeleted is true the update
	// only matches rows that currently have deleted = true (restore semantics).
	SetDeleted(ctx context.Context, id string, deleted bool, requireDeleted bool, modifiedBy *string) (*domain.Account, error)
	// SetBlocked flips the blocked flag regardless of other lifecycle state.
	SetBlocked(ctx context.Context, id string, blocked bool, modifiedBy *string) (*domain.Account, error)

	// RecordLoginFailure atomically increments the failure counter and, when the
	// incremented value reaches maxAttempts, sets the lockout deadline to
	// now + lockFor. It returns the post-increment state.
	RecordLoginFailure(ctx context.Context, id string, maxAttempts int, lockFor time.Duration, now time.Time) (LoginFailure, error)
	// ResetLoginFailures clears the failure counter and lockout. A no-op when
	// both are already clear.
	ResetLoginFailures(ctx context.Context, id string) error
	// RecordLogin stamps the last successful login time and source IP.
	RecordLogin(ctx context.Context, id string, ip string, at time.Time) error
}
