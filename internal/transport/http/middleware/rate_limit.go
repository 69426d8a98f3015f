package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	rateLimitProblemType  = "https://accounts.pvolkov.example.com/errors/rate-limit-exceeded"
	rateLimitProblemTitle = "Rate Limit Exceeded"
)

// AttemptStore is the slice of the attempt log the limiter needs.
type AttemptStore interface {
	Add(ctx context.Context, key string, at time.Time) error
	PruneBefore(ctx context.Context, key string, cutoff time.Time) error
	CountSince(ctx context.Context, key string, from time.Time) (int, error)
	FirstSince(ctx context.Context, key string, from time.Time) (time.Time, bool, error)
}

// IdentifierFunc extracts the identifier used to scope rate limits (e.g., client IP).
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule configures a sliding-window limit for a particular identifier.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

// RateLimiter enforces sliding-window limits backed by a shared store.
type RateLimiter struct {
	store  AttemptStore
	logger *zap.Logger
	now    func() time.Time
}

// ProblemDetails represents an RFC 9457 compatible error payload for rate limits.
type ProblemDetails struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail"`
	Instance   string `json:"instance"`
	RetryAfter int    `json:"retry_after"`
	TraceID    string `json:"trace_id,omitempty"`
}

// NewRateLimiter builds a reusable rate limiter middleware helper.
func NewRateLimiter(store AttemptStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{store: store, logger: logger, now: time.Now}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// ClientIPIdentifier builds an IdentifierFunc using the request's client IP.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		return ip, ip != ""
	}
}

// RateLimit returns a Gin middleware enforcing the provided rule. Store
// failures never block a request; the limiter fails open and logs.
func (rl *RateLimiter) RateLimit(rule RateLimitRule) gin.HandlerFunc {
	if rule.Name == "" {
		rule.Name = "default"
	}

	return func(c *gin.Context) {
		if rl.store == nil || rule.Identifier == nil || rule.Limit <= 0 || rule.Window <= 0 {
			c.Next()
			return
		}
		identifier, ok := rule.Identifier(c)
		if !ok || identifier == "" {
			c.Next()
			return
		}

		state, err := rl.evaluate(c.Request.Context(), rule, identifier)
		if err != nil {
			rl.logger.Warn("rate limit check failed",
				zap.String("rule", rule.Name),
				zap.String("identifier", identifier),
				zap.Error(err),
			)
			c.Next()
			return
		}

		rl.writeHeaders(c, rule.Limit, state)
		if state.blocked {
			rl.reject(c, state.retryAfter)
			return
		}
		c.Next()
	}
}

type limitState struct {
	blocked    bool
	remaining  int
	reset      time.Time
	retryAfter time.Duration
}

// evaluate prunes the window, checks the count against the limit, and records
// the attempt when it is allowed through.
func (rl *RateLimiter) evaluate(ctx context.Context, rule RateLimitRule, identifier string) (limitState, error) {
	now := rl.now()
	windowStart := now.Add(-rule.Window)
	key := rule.Name + ":" + identifier

	if err := rl.store.PruneBefore(ctx, key, windowStart); err != nil {
		return limitState{}, err
	}
	count, err := rl.store.CountSince(ctx, key, windowStart)
	if err != nil {
		return limitState{}, err
	}

	reset := now.Add(rule.Window)
	if first, found, err := rl.store.FirstSince(ctx, key, windowStart); err != nil {
		return limitState{}, err
	} else if found {
		reset = first.Add(rule.Window)
	}

	if count >= rule.Limit {
		retryAfter := reset.Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return limitState{blocked: true, reset: reset, retryAfter: retryAfter}, nil
	}

	if err := rl.store.Add(ctx, key, now); err != nil {
		return limitState{}, err
	}
	remaining := rule.Limit - count - 1
	if remaining < 0 {
		remaining = 0
	}
	return limitState{remaining: remaining, reset: reset}, nil
}

func (rl *RateLimiter) writeHeaders(c *gin.Context, limit int, state limitState) {
	h := c.Writer.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(state.remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(state.reset.Unix(), 10))
	if state.blocked && state.retryAfter > 0 {
		h.Set("Retry-After", strconv.Itoa(retrySeconds(state.retryAfter)))
	}
}

func (rl *RateLimiter) reject(c *gin.Context, retryAfter time.Duration) {
	seconds := retrySeconds(retryAfter)
	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	c.AbortWithStatusJSON(http.StatusTooManyRequests, ProblemDetails{
		Type:       rateLimitProblemType,
		Title:      rateLimitProblemTitle,
		Status:     http.StatusTooManyRequests,
		Detail:     fmt.Sprintf("Too many requests. Try again in %d seconds.", seconds),
		Instance:   instance,
		RetryAfter: seconds,
		TraceID:    GetTraceID(c),
	})
}

func retrySeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
