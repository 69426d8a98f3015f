package security

import (
	"errors"
	"testing"
	"time"

	"github.com/pvolkov/accounts-service/internal/core/domain"
	"github.com/pvolkov/accounts-service/internal/core/port"
)

func testClaims() port.SessionClaims {
	return port.SessionClaims{
		AccountID: "acct-123",
		Email:     "alice@example.com",
		Name:      "Alice",
		Surname:   "Liddell",
		Age:       30,
		Role:      domain.RoleAdmin,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).Unix(),
	}
}

func TestTokenManagerSignAndVerify(t *testing.T) {
	manager, err := NewTokenManager("test-secret-key", "accounts-test", time.Minute)
	if err != nil {
		t.Fatalf("NewTokenManager returned error: %v", err)
	}

	claims := testClaims()
	token, err := manager.Sign(claims)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	parsed, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}

	if *parsed != claims {
		t.Fatalf("claims did not round-trip: got %+v want %+v", *parsed, claims)
	}
}

func TestTokenManagerVerifyExpired(t *testing.T) {
	manager, err := NewTokenManager("test-secret-key", "accounts-test", time.Minute)
	if err != nil {
		t.Fatalf("NewTokenManager returned error: %v", err)
	}

	past := time.Now().Add(-time.Hour)
	manager.WithClock(func() time.Time { return past })

	token, err := manager.Sign(testClaims())
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	manager.WithClock(time.Now)

	if _, err := manager.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenManagerVerifyWrongSecret(t *testing.T) {
	signer, err := NewTokenManager("test-secret-key", "accounts-test", time.Minute)
	if err != nil {
		t.Fatalf("NewTokenManager returned error: %v", err)
	}

	verifier, err := NewTokenManager("another-secret-key", "accounts-test", time.Minute)
	if err != nil {
		t.Fatalf("NewTokenManager returned error: %v", err)
	}

	token, err := signer.Sign(testClaims())
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	if _, err := verifier.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestTokenManagerVerifyWrongIssuer(t *testing.T) {
	signer, err := NewTokenManager("test-secret-key", "other-service", time.Minute)
	if err != nil {
		t.Fatalf("NewTokenManager returned error: %v", err)
	}

	verifier, err := NewTokenManager("test-secret-key", "accounts-test", time.Minute)
	if err != nil {
		t.Fatalf("NewTokenManager returned error: %v", err)
	}

	token, err := signer.Sign(testClaims())
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	if _, err := verifier.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestTokenManagerVerifyMalformed(t *testing.T) {
	manager, err := NewTokenManager("test-secret-key", "accounts-test", time.Minute)
	if err != nil {
		t.Fatalf("NewTokenManager returned error: %v", err)
	}

	for _, token := range []string{"", "   ", "not.a.token"} {
		if _, err := manager.Verify(token); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("expected ErrTokenInvalid for %q, got %v", token, err)
		}
	}
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	if _, err := NewTokenManager("  ", "accounts-test", time.Minute); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
