package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pvolkov/accounts-service/internal/core/port"
)

// AttemptLog records login attempts in a Redis sorted set per key. Scores are
// the attempt timestamps in microseconds (exact in a float64 score), members
// carry the full nanosecond value so reads round-trip precisely.
type AttemptLog struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewAttemptLog builds a log that namespaces keys with prefix and lets Redis
// drop idle keys after ttl (0 disables the expiry).
func NewAttemptLog(client *redis.Client, prefix string, ttl time.Duration) *AttemptLog {
	return &AttemptLog{client: client, prefix: prefix, ttl: ttl}
}

// Add appends an attempt at the given time and refreshes the key expiry.
func (l *AttemptLog) Add(ctx context.Context, key string, at time.Time) error {
	name := l.name(key)
	member := redis.Z{Score: float64(at.UnixMicro()), Member: at.UnixNano()}
	if err := l.client.ZAdd(ctx, name, member).Err(); err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	if l.ttl > 0 {
		if err := l.client.Expire(ctx, name, l.ttl).Err(); err != nil {
			return fmt.Errorf("refresh attempt ttl: %w", err)
		}
	}
	return nil
}

// PruneBefore drops every attempt strictly older than cutoff.
func (l *AttemptLog) PruneBefore(ctx context.Context, key string, cutoff time.Time) error {
	limit := "(" + microScore(cutoff)
	if err := l.client.ZRemRangeByScore(ctx, l.name(key), "-inf", limit).Err(); err != nil {
		return fmt.Errorf("prune attempts: %w", err)
	}
	return nil
}

// CountSince reports how many attempts happened at or after from.
func (l *AttemptLog) CountSince(ctx context.Context, key string, from time.Time) (int, error) {
	n, err := l.client.ZCount(ctx, l.name(key), microScore(from), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return int(n), nil
}

// FirstSince returns the earliest attempt at or after from, if any.
func (l *AttemptLog) FirstSince(ctx context.Context, key string, from time.Time) (time.Time, bool, error) {
	members, err := l.client.ZRangeByScore(ctx, l.name(key), &redis.ZRangeBy{
		Min:   microScore(from),
		Max:   "+inf",
		Count: 1,
	}).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read oldest attempt: %w", err)
	}
	if len(members) == 0 {
		return time.Time{}, false, nil
	}

	nanos, err := strconv.ParseInt(members[0], 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("decode attempt member %q: %w", members[0], err)
	}
	return time.Unix(0, nanos), true, nil
}

func (l *AttemptLog) name(key string) string {
	if l.prefix == "" {
		return key
	}
	return l.prefix + ":" + key
}

func microScore(t time.Time) string {
	return strconv.FormatInt(t.UnixMicro(), 10)
}

var _ port.LoginAttemptStore = (*AttemptLog)(nil)
