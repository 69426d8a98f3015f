package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pvolkov/accounts-service/internal/core/domain"
	"github.com/pvolkov/accounts-service/internal/core/port"
	"github.com/pvolkov/accounts-service/internal/infra/logger"
	"github.com/pvolkov/accounts-service/internal/infra/security"
	"github.com/pvolkov/accounts-service/internal/repository"
)

const (
	// DefaultMaxLoginAttempts is the number of consecutive failures that arms the lockout.
	DefaultMaxLoginAttempts = 5
	// DefaultLockoutDuration is how long an armed lockout denies authentication.
	DefaultLockoutDuration = 15 * time.Minute
)

var (
	// ErrInvalidCredentials indicates the supplied password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnknownAccount indicates no account exists for the supplied email.
	// Callers must present it exactly like ErrInvalidCredentials.
	ErrUnknownAccount = errors.New("unknown account")
	// ErrAccountDeleted indicates the account is soft-deleted. Callers must
	// present it exactly like ErrInvalidCredentials; the distinct value exists
	// for internal logging only.
	ErrAccountDeleted = errors.New("account is deleted")
	// ErrAccountBlocked indicates the account was blocked by an administrator.
	ErrAccountBlocked = errors.New("account is blocked")
	// ErrAccountLocked indicates an active brute-force lockout.
	ErrAccountLocked = errors.New("account is locked")
	// ErrExpiredSessionToken indicates the session token is past its expiry.
	ErrExpiredSessionToken = errors.New("session token expired")
	// ErrInvalidSessionToken indicates the session token is malformed or its signature failed.
	ErrInvalidSessionToken = errors.New("invalid session token")
)

// AccountLockedError carries the remaining lockout time. It matches
// ErrAccountLocked through errors.Is.
type AccountLockedError struct {
	RetryAfterMinutes int
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account is locked, try again in %d minutes", e.RetryAfterMinutes)
}

// Is reports whether the target is the ErrAccountLocked sentinel.
func (e *AccountLockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

// AuthService coordinates credential validation, brute-force lockout, and
// session issuance.
type AuthService struct {
	accounts port.AccountRepository
	audit    port.AuditLog
	hasher   port.PasswordHasher
	signer   port.TokenSigner
	events   port.EventPublisher
	logger   *zap.Logger

	maxAttempts int
	lockoutFor  time.Duration
	now         func() time.Time
}

// NewAuthService constructs an AuthService. The lockout threshold and duration
// are explicit parameters so the state machine is testable without ambient
// configuration.
func NewAuthService(
	accounts port.AccountRepository,
	audit port.AuditLog,
	hasher port.PasswordHasher,
	signer port.TokenSigner,
	events port.EventPublisher,
	maxAttempts int,
	lockoutFor time.Duration,
	log *zap.Logger,
) *AuthService {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxLoginAttempts
	}
	if lockoutFor <= 0 {
		lockoutFor = DefaultLockoutDuration
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		accounts:    accounts,
		audit:       audit,
		hasher:      hasher,
		signer:      signer,
		events:      events,
		logger:      log,
		maxAttempts: maxAttempts,
		lockoutFor:  lockoutFor,
		now:         time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// Authenticate validates the credential against the account's brute-force
// state. The checks run strictly in order: existence, deleted, blocked,
// lockout, and only then the password comparison, so locked accounts never
// reach the comparator.
func (s *AuthService) Authenticate(ctx context.Context, email, password, ip string) (domain.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.Account{}, fmt.Errorf("email is required")
	}
	if password == "" {
		return domain.Account{}, fmt.Errorf("password is required")
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.auditBruteForce(ctx, email, "", domain.Role(""), ip, "account not found")
			return domain.Account{}, ErrUnknownAccount
		}
		return domain.Account{}, fmt.Errorf("lookup account: %w", err)
	}

	if account.Deleted {
		s.logger.Warn("login attempt for deleted account",
			zap.String("email", logger.MaskEmail(email)),
			zap.String("ip", logger.MaskIP(ip)),
		)
		s.auditBruteForce(ctx, email, account.ID, account.Role, ip, "account deleted")
		return domain.Account{}, ErrAccountDeleted
	}

	if account.Blocked {
		s.auditBruteForce(ctx, email, account.ID, account.Role, ip, "account blocked")
		return domain.Account{}, ErrAccountBlocked
	}

	now := s.now().UTC()
	if account.LockedAt(now) {
		remaining := remainingMinutes(account.LockoutUntil.Sub(now))
		s.auditBruteForce(ctx, email, account.ID, account.Role, ip,
			fmt.Sprintf("account locked, try again in %d minutes", remaining))
		return domain.Account{}, &AccountLockedError{RetryAfterMinutes: remaining}
	}

	match, err := s.hasher.Compare(password, account.PasswordHash)
	if err != nil {
		return domain.Account{}, fmt.Errorf("compare password: %w", err)
	}

	if !match {
		failure, err := s.accounts.RecordLoginFailure(ctx, account.ID, s.maxAttempts, s.lockoutFor, now)
		if err != nil {
			return domain.Account{}, fmt.Errorf("record login failure: %w", err)
		}

		if failure.Attempts >= s.maxAttempts && failure.LockoutUntil != nil {
			s.auditBruteForce(ctx, email, account.ID, account.Role, ip,
				fmt.Sprintf("account locked for %d minutes after %d failed attempts", int(s.lockoutFor.Minutes()), failure.Attempts))
		} else {
			s.auditBruteForce(ctx, email, account.ID, account.Role, ip, "invalid password")
		}

		return domain.Account{}, ErrInvalidCredentials
	}

	if account.FailedLoginAttempts > 0 || account.LockoutUntil != nil {
		if err := s.accounts.ResetLoginFailures(ctx, account.ID); err != nil {
			return domain.Account{}, fmt.Errorf("reset login failures: %w", err)
		}
		account.FailedLoginAttempts = 0
		account.LockoutUntil = nil
	}

	return account.Sanitized(), nil
}

// IssueSession records the login event and signs the session claims. The last
// login stamp is best-effort: a vanished account degrades to a no-op rather
// than failing a login that already succeeded.
func (s *AuthService) IssueSession(ctx context.Context, account domain.Account, ip string) (string, error) {
	now := s.now().UTC()

	if err := s.accounts.RecordLogin(ctx, account.ID, ip, now); err != nil {
		s.logger.Warn("record login skipped",
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
	}

	actorID := account.ID
	actorEmail := account.Email
	s.recordAudit(ctx, domain.AuditEntry{
		Action:     domain.AuditActionLogin,
		ActorID:    &actorID,
		ActorEmail: &actorEmail,
		TargetID:   account.ID,
		TargetRole: account.Role,
		Note:       fmt.Sprintf("login from %s", ip),
		IP:         ip,
	})

	if s.events != nil {
		if err := s.events.PublishAccountLogin(ctx, domain.AccountLoginEvent{
			AccountID: account.ID,
			Email:     account.Email,
			IP:        ip,
			LoginAt:   now,
		}); err != nil {
			s.logger.Warn("publish login event failed", zap.String("account_id", account.ID), zap.Error(err))
		}
	}

	token, err := s.signer.Sign(port.SessionClaims{
		AccountID: account.ID,
		Email:     account.Email,
		Name:      account.Name,
		Surname:   account.Surname,
		Age:       account.Age,
		Role:      account.Role,
		CreatedAt: account.CreatedAt.Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	return token, nil
}

// Login authenticates the credential and issues a session token in one step.
func (s *AuthService) Login(ctx context.Context, email, password, ip string) (string, domain.Account, error) {
	account, err := s.Authenticate(ctx, email, password, ip)
	if err != nil {
		return "", domain.Account{}, err
	}

	token, err := s.IssueSession(ctx, account, ip)
	if err != nil {
		return "", domain.Account{}, err
	}

	return token, account, nil
}

// ParseSessionToken validates an incoming bearer token and returns its claims.
func (s *AuthService) ParseSessionToken(token string) (*port.SessionClaims, error) {
	claims, err := s.signer.Verify(token)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return nil, ErrExpiredSessionToken
		}
		return nil, ErrInvalidSessionToken
	}
	return claims, nil
}

func (s *AuthService) auditBruteForce(ctx context.Context, email, targetID string, targetRole domain.Role, ip, reason string) {
	s.logger.Warn("failed login attempt",
		zap.String("email", logger.MaskEmail(email)),
		zap.String("ip", logger.MaskIP(ip)),
		zap.String("reason", reason),
	)

	entry := domain.AuditEntry{
		Action:     domain.AuditActionBruteForce,
		ActorEmail: &email,
		TargetID:   targetID,
		TargetRole: targetRole,
		Note:       reason,
		IP:         ip,
	}
	s.recordAudit(ctx, entry)
}

// recordAudit appends an audit entry. Failures are logged and swallowed; an
// audit write must never fail the primary operation.
func (s *AuthService) recordAudit(ctx context.Context, entry domain.AuditEntry) {
	if s.audit == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Error("append audit entry failed",
			zap.String("action", string(entry.Action)),
			zap.String("target_id", entry.TargetID),
			zap.Error(err),
		)
	}
}

// remainingMinutes rounds the remaining lockout up to whole minutes.
func remainingMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Minute - 1) / time.Minute)
}
