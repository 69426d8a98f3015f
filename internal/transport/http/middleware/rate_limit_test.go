package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

type fakeAttemptStore struct {
	pruneErr error
	count    int
	countErr error
	first    time.Time
	hasFirst bool
	firstErr error
	addErr   error

	prunedKeys []string
	addedKey   string
	addCalls   int
}

func (f *fakeAttemptStore) PruneBefore(_ context.Context, key string, _ time.Time) error {
	f.prunedKeys = append(f.prunedKeys, key)
	return f.pruneErr
}

func (f *fakeAttemptStore) CountSince(context.Context, string, time.Time) (int, error) {
	return f.count, f.countErr
}

func (f *fakeAttemptStore) Add(_ context.Context, key string, _ time.Time) error {
	f.addedKey = key
	f.addCalls++
	return f.addErr
}

func (f *fakeAttemptStore) FirstSince(context.Context, string, time.Time) (time.Time, bool, error) {
	return f.first, f.hasFirst, f.firstErr
}

func loginRule(limit int) RateLimitRule {
	return RateLimitRule{
		Name:   "login",
		Limit:  limit,
		Window: time.Minute,
		Identifier: func(c *gin.Context) (string, bool) {
			return "192.0.2.1", true
		},
	}
}

func newLimitedRouter(t *testing.T, store AttemptStore, now time.Time, rule RateLimitRule) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	limiter := NewRateLimiter(store, zaptest.NewLogger(t)).WithClock(func() time.Time { return now })

	router := gin.New()
	router.Use(limiter.RateLimit(rule))
	router.GET("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRateLimiterAllowsWhenBelowLimit(t *testing.T) {
	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	first := now.Add(-30 * time.Second)

	store := &fakeAttemptStore{count: 2, first: first, hasFirst: true}
	router := newLimitedRouter(t, store, now, loginRule(5))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if store.addCalls != 1 {
		t.Fatalf("expected one recorded attempt, got %d", store.addCalls)
	}
	if store.addedKey != "login:192.0.2.1" {
		t.Fatalf("expected attempt key login:192.0.2.1, got %q", store.addedKey)
	}
	if got := rr.Header().Get("X-RateLimit-Limit"); got != "5" {
		t.Fatalf("expected limit header 5, got %q", got)
	}
	if got := rr.Header().Get("X-RateLimit-Remaining"); got != "2" {
		t.Fatalf("expected remaining header 2, got %q", got)
	}
	expectedReset := first.Add(time.Minute).Unix()
	if got := rr.Header().Get("X-RateLimit-Reset"); got != strconv.FormatInt(expectedReset, 10) {
		t.Fatalf("expected reset header %d, got %q", expectedReset, got)
	}
	if got := rr.Header().Get("Retry-After"); got != "" {
		t.Fatalf("expected no retry-after header, got %q", got)
	}
}

func TestRateLimiterBlocksWhenLimitExceeded(t *testing.T) {
	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	first := now.Add(-30 * time.Second)

	store := &fakeAttemptStore{count: 5, first: first, hasFirst: true}
	router := newLimitedRouter(t, store, now, loginRule(5))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if store.addCalls != 0 {
		t.Fatalf("expected no attempt recorded once blocked, got %d", store.addCalls)
	}
	if got := rr.Header().Get("Retry-After"); got != "30" {
		t.Fatalf("expected retry-after 30, got %q", got)
	}

	var problem ProblemDetails
	if err := json.Unmarshal(rr.Body.Bytes(), &problem); err != nil {
		t.Fatalf("failed to decode problem payload: %v", err)
	}
	if problem.Status != http.StatusTooManyRequests {
		t.Fatalf("expected problem status 429, got %d", problem.Status)
	}
	if problem.RetryAfter != 30 {
		t.Fatalf("expected problem retry_after 30, got %d", problem.RetryAfter)
	}
}

func TestRateLimiterFailsOpenOnStoreError(t *testing.T) {
	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)

	store := &fakeAttemptStore{pruneErr: errors.New("redis down")}
	router := newLimitedRouter(t, store, now, loginRule(5))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected fail-open 200, got %d", rr.Code)
	}
}

func TestRateLimiterSkipsWithoutIdentifier(t *testing.T) {
	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)

	store := &fakeAttemptStore{}
	rule := RateLimitRule{
		Name:   "login",
		Limit:  5,
		Window: time.Minute,
		Identifier: func(c *gin.Context) (string, bool) {
			return "", false
		},
	}
	router := newLimitedRouter(t, store, now, rule)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if len(store.prunedKeys) != 0 {
		t.Fatalf("expected store to be untouched, got prunes %v", store.prunedKeys)
	}
}
