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
	"github.com/pvolkov/accounts-service/internal/infra/security"
	"github.com/pvolkov/accounts-service/internal/repository"
)

var (
	// ErrAccountNotFound indicates the target account does not exist or is not
	// visible to the requested operation.
	ErrAccountNotFound = errors.New("account not found")
	// ErrDuplicateEmail indicates the email is already taken, including by a
	// soft-deleted account.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidRole indicates an unknown role value.
	ErrInvalidRole = errors.New("invalid role")
)

// PasswordPolicy vets a candidate password before it is hashed.
type PasswordPolicy interface {
	Validate(password string) error
}

// AccountService implements the account lifecycle: create, update,
// soft-delete, restore, block, and unblock. Every transition appends an audit
// entry and publishes a domain event.
type AccountService struct {
	accounts  port.AccountRepository
	audit     port.AuditLog
	hasher    port.PasswordHasher
	passwords PasswordPolicy
	events    port.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewAccountService constructs an AccountService.
func NewAccountService(
	accounts port.AccountRepository,
	audit port.AuditLog,
	hasher port.PasswordHasher,
	passwords PasswordPolicy,
	events port.EventPublisher,
	log *zap.Logger,
) *AccountService {
	if passwords == nil {
		passwords = security.DefaultPasswordValidator()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountService{
		accounts:  accounts,
		audit:     audit,
		hasher:    hasher,
		passwords: passwords,
		events:    events,
		logger:    log,
		now:       time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *AccountService) WithClock(now func() time.Time) *AccountService {
	if now != nil {
		s.now = now
	}
	return s
}

// CreateInput carries the fields of a registration request.
type CreateInput struct {
	Email     string
	Name      string
	Surname   string
	Age       int
	BirthDate time.Time
	Role      domain.Role
	Password  string
}

// Create registers a new account. The email is lowercased before storage and
// uniqueness is enforced against all accounts, soft-deleted ones included.
func (s *AccountService) Create(ctx context.Context, in CreateInput, actor domain.Actor) (domain.Account, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return domain.Account{}, fmt.Errorf("email is required")
	}
	if in.Name == "" {
		return domain.Account{}, fmt.Errorf("name is required")
	}
	if in.Age < 0 {
		return domain.Account{}, fmt.Errorf("age must not be negative")
	}

	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return domain.Account{}, ErrInvalidRole
	}

	if err := s.passwords.Validate(in.Password); err != nil {
		return domain.Account{}, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return domain.Account{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	account := domain.Account{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         in.Name,
		Surname:      in.Surname,
		Age:          in.Age,
		BirthDate:    in.BirthDate,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if !actor.System() {
		id := actor.ID
		account.ModifiedBy = &id
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.Account{}, ErrDuplicateEmail
		}
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	s.recordAudit(ctx, actor, domain.AuditEntry{
		Action:     domain.AuditActionCreate,
		TargetID:   account.ID,
		TargetRole: account.Role,
		Changes: map[string]any{
			"after": snapshot(account),
		},
		Note: fmt.Sprintf("account %s created", account.Email),
	})

	if s.events != nil {
		var createdBy *string
		if !actor.System() {
			id := actor.ID
			createdBy = &id
		}
		if err := s.events.PublishAccountCreated(ctx, domain.AccountCreatedEvent{
			AccountID: account.ID,
			Email:     account.Email,
			Name:      account.Name,
			Role:      account.Role,
			CreatedAt: account.CreatedAt,
			CreatedBy: createdBy,
		}); err != nil {
			s.logger.Warn("publish account created event failed", zap.String("account_id", account.ID), zap.Error(err))
		}
	}

	return account.Sanitized(), nil
}

// Update applies a partial profile change. The lookup ignores the deleted and
// blocked flags so administrators can edit any account.
func (s *AccountService) Update(ctx context.Context, id string, patch domain.ProfilePatch, actor domain.Actor) (domain.Account, error) {
	before, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("lookup account: %w", err)
	}

	if patch.Empty() {
		return before.Sanitized(), nil
	}

	if patch.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*patch.Email))
		if email == "" {
			return domain.Account{}, fmt.Errorf("email must not be empty")
		}
		patch.Email = &email
	}
	if patch.Age != nil && *patch.Age < 0 {
		return domain.Account{}, fmt.Errorf("age must not be negative")
	}
	if patch.Role != nil && !patch.Role.Valid() {
		return domain.Account{}, ErrInvalidRole
	}

	var passwordHash *string
	if patch.Password != nil {
		if err := s.passwords.Validate(*patch.Password); err != nil {
			return domain.Account{}, err
		}
		hash, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return domain.Account{}, fmt.Errorf("hash password: %w", err)
		}
		passwordHash = &hash
	}

	updated, err := s.accounts.UpdateProfile(ctx, id, patch, passwordHash, modifiedBy(actor))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return domain.Account{}, ErrAccountNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return domain.Account{}, ErrDuplicateEmail
		}
		return domain.Account{}, fmt.Errorf("update account: %w", err)
	}

	s.recordAudit(ctx, actor, domain.AuditEntry{
		Action:     domain.AuditActionUpdate,
		TargetID:   updated.ID,
		TargetRole: updated.Role,
		Changes: map[string]any{
			"before": snapshot(*before),
			"after":  snapshot(*updated),
		},
		Note: fmt.Sprintf("account %s updated", updated.Email),
	})

	return updated.Sanitized(), nil
}

// SoftDelete marks an account deleted. The row and its history are retained.
func (s *AccountService) SoftDelete(ctx context.Context, id string, actor domain.Actor) error {
	updated, err := s.accounts.SetDeleted(ctx, id, true, false, modifiedBy(actor))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("delete account: %w", err)
	}

	s.recordAudit(ctx, actor, domain.AuditEntry{
		Action:     domain.AuditActionDelete,
		TargetID:   updated.ID,
		TargetRole: updated.Role,
		Changes: map[string]any{
			"before": map[string]any{"deleted": false},
			"after":  map[string]any{"deleted": true},
		},
		Note: fmt.Sprintf("account %s deleted", updated.Email),
	})

	s.publishStateChange(ctx, *updated, "deleted", actor)
	return nil
}

// Restore clears the deleted flag. The update only matches rows that are
// currently deleted, so restoring a live or missing account fails the same
// way.
func (s *AccountService) Restore(ctx context.Context, id string, actor domain.Actor) (domain.Account, error) {
	updated, err := s.accounts.SetDeleted(ctx, id, false, true, modifiedBy(actor))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("restore account: %w", err)
	}

	s.recordAudit(ctx, actor, domain.AuditEntry{
		Action:     domain.AuditActionRestore,
		TargetID:   updated.ID,
		TargetRole: updated.Role,
		Changes: map[string]any{
			"before": map[string]any{"deleted": true},
			"after":  map[string]any{"deleted": false},
		},
		Note: fmt.Sprintf("account %s restored", updated.Email),
	})

	s.publishStateChange(ctx, *updated, "restored", actor)
	return updated.Sanitized(), nil
}

// Block denies the account any further authentication. Blocking an already
// blocked account succeeds and still writes a fresh audit entry.
func (s *AccountService) Block(ctx context.Context, id string, actor domain.Actor) (domain.Account, error) {
	return s.setBlocked(ctx, id, true, actor)
}

// Unblock lifts an administrative block.
func (s *AccountService) Unblock(ctx context.Context, id string, actor domain.Actor) (domain.Account, error) {
	return s.setBlocked(ctx, id, false, actor)
}

func (s *AccountService) setBlocked(ctx context.Context, id string, blocked bool, actor domain.Actor) (domain.Account, error) {
	updated, err := s.accounts.SetBlocked(ctx, id, blocked, modifiedBy(actor))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("set blocked: %w", err)
	}

	action := domain.AuditActionBlock
	transition := "blocked"
	note := fmt.Sprintf("account %s blocked", updated.Email)
	if !blocked {
		action = domain.AuditActionUnblock
		transition = "unblocked"
		note = fmt.Sprintf("account %s unblocked", updated.Email)
	}

	s.recordAudit(ctx, actor, domain.AuditEntry{
		Action:     action,
		TargetID:   updated.ID,
		TargetRole: updated.Role,
		Changes: map[string]any{
			"after": map[string]any{"blocked": blocked},
		},
		Note: note,
	})

	s.publishStateChange(ctx, *updated, transition, actor)
	return updated.Sanitized(), nil
}

// GetAccount returns a single live account. Soft-deleted accounts are treated
// as missing.
func (s *AccountService) GetAccount(ctx context.Context, id string) (domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("lookup account: %w", err)
	}
	if account.Deleted {
		return domain.Account{}, ErrAccountNotFound
	}
	return account.Sanitized(), nil
}

// ListAccounts returns every account ordered by creation time, soft-deleted
// ones included. Admin listings are how deleted accounts stay visible.
func (s *AccountService) ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	return s.list(ctx, port.AccountFilter{Limit: limit, Offset: offset})
}

// ListDeleted returns soft-deleted accounts.
func (s *AccountService) ListDeleted(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	deleted := true
	return s.list(ctx, port.AccountFilter{Deleted: &deleted, Limit: limit, Offset: offset})
}

// ListBlocked returns blocked accounts regardless of deletion state, so a
// blocked account that was later soft-deleted still shows up here.
func (s *AccountService) ListBlocked(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	blocked := true
	return s.list(ctx, port.AccountFilter{Blocked: &blocked, Limit: limit, Offset: offset})
}

func (s *AccountService) list(ctx context.Context, filter port.AccountFilter) ([]domain.Account, error) {
	accounts, err := s.accounts.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	for i := range accounts {
		accounts[i] = accounts[i].Sanitized()
	}
	return accounts, nil
}

func (s *AccountService) publishStateChange(ctx context.Context, account domain.Account, transition string, actor domain.Actor) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishAccountStateChanged(ctx, domain.AccountStateChangedEvent{
		AccountID:  account.ID,
		Transition: transition,
		Deleted:    account.Deleted,
		Blocked:    account.Blocked,
		ChangedAt:  s.now().UTC(),
		ChangedBy:  modifiedBy(actor),
	}); err != nil {
		s.logger.Warn("publish state change event failed",
			zap.String("account_id", account.ID),
			zap.String("transition", transition),
			zap.Error(err),
		)
	}
}

// recordAudit appends an audit entry on behalf of the actor. Failures are
// logged and swallowed; an audit write must never fail the primary operation.
func (s *AccountService) recordAudit(ctx context.Context, actor domain.Actor, entry domain.AuditEntry) {
	if s.audit == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if !actor.System() {
		id := actor.ID
		email := actor.Email
		entry.ActorID = &id
		entry.ActorEmail = &email
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Error("append audit entry failed",
			zap.String("action", string(entry.Action)),
			zap.String("target_id", entry.TargetID),
			zap.Error(err),
		)
	}
}

func modifiedBy(actor domain.Actor) *string {
	if actor.System() {
		return nil
	}
	id := actor.ID
	return &id
}

// snapshot captures the audit-relevant profile fields of an account.
func snapshot(account domain.Account) map[string]any {
	return map[string]any{
		"email": account.Email,
		"name":  account.Name,
		"role":  string(account.Role),
	}
}
