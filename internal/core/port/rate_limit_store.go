package port

import (
	"context"
	"time"
)

// LoginAttemptStore keeps a per-key log of recent attempts. Callers prune
// entries older than their window and count what remains; keys usually
// combine a rule name with the client IP.
type LoginAttemptStore interface {
	Add(ctx context.Context, key string, at time.Time) error
	PruneBefore(ctx context.Context, key string, cutoff time.Time) error
	CountSince(ctx context.Context, key string, from time.Time) (int, error)
	FirstSince(ctx context.Context, key string, from time.Time) (time.Time, bool, error)
}
