package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/pvolkov/accounts-service/internal/core/domain"
	"github.com/pvolkov/accounts-service/internal/core/port"
	"github.com/pvolkov/accounts-service/internal/repository"
)

func newAccountMock(t *testing.T) (pgxmock.PgxPoolIface, *AccountRepository) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)

	return mock, NewAccountRepository(mock)
}

func accountRows(account domain.Account) *pgxmock.Rows {
	return pgxmock.NewRows(accountColumns).AddRow(
		account.ID,
		account.Email,
		account.Name,
		account.Surname,
		account.Age,
		account.BirthDate,
		account.Role,
		account.PasswordHash,
		account.Deleted,
		account.Blocked,
		account.FailedLoginAttempts,
		account.LockoutUntil,
		account.LastLoginAt,
		account.LastLoginIP,
		account.ModifiedBy,
		account.CreatedAt,
		account.UpdatedAt,
	)
}

func storedAccount() domain.Account {
	createdAt := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	return domain.Account{
		ID:           "acct-1",
		Email:        "alice@example.com",
		Name:         "Alice",
		Surname:      "Liddell",
		Age:          30,
		BirthDate:    time.Date(1996, 2, 1, 0, 0, 0, 0, time.UTC),
		Role:         domain.RoleUser,
		PasswordHash: "salt:hash",
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

func TestAccountRepository_Create(t *testing.T) {
	mock, repo := newAccountMock(t)

	account := storedAccount()

	mock.ExpectExec(`INSERT INTO accounts`).
		WithArgs(
			account.ID,
			account.Email,
			account.Name,
			account.Surname,
			account.Age,
			account.BirthDate,
			account.Role,
			account.PasswordHash,
			account.Deleted,
			account.Blocked,
			account.FailedLoginAttempts,
			account.LockoutUntil,
			account.LastLoginAt,
			account.LastLoginIP,
			account.ModifiedBy,
			account.CreatedAt,
			account.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), account); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_CreateDuplicateEmail(t *testing.T) {
	mock, repo := newAccountMock(t)

	mock.ExpectExec(`INSERT INTO accounts`).
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(),
		).
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode})

	err := repo.Create(context.Background(), storedAccount())
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestAccountRepository_GetByEmail(t *testing.T) {
	mock, repo := newAccountMock(t)

	stored := storedAccount()

	mock.ExpectQuery(`SELECT .* FROM accounts`).
		WithArgs(stored.Email).
		WillReturnRows(accountRows(stored))

	account, err := repo.GetByEmail(context.Background(), stored.Email)
	if err != nil {
		t.Fatalf("GetByEmail returned error: %v", err)
	}

	if account.ID != stored.ID || account.Email != stored.Email {
		t.Fatalf("unexpected account: %+v", account)
	}
	if account.PasswordHash != stored.PasswordHash {
		t.Fatalf("expected stored password hash, got %q", account.PasswordHash)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_GetByIDNotFound(t *testing.T) {
	mock, repo := newAccountMock(t)

	mock.ExpectQuery(`SELECT .* FROM accounts`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(accountColumns))

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAccountRepository_RecordLoginFailure(t *testing.T) {
	mock, repo := newAccountMock(t)

	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	lockUntil := now.Add(15 * time.Minute)

	mock.ExpectQuery(`UPDATE accounts`).
		WithArgs("acct-1", 5, lockUntil, now).
		WillReturnRows(pgxmock.NewRows([]string{"failed_login_attempts", "lockout_until"}).
			AddRow(5, &lockUntil))

	result, err := repo.RecordLoginFailure(context.Background(), "acct-1", 5, 15*time.Minute, now)
	if err != nil {
		t.Fatalf("RecordLoginFailure returned error: %v", err)
	}

	if result.Attempts != 5 {
		t.Fatalf("expected 5 attempts, got %d", result.Attempts)
	}
	if result.LockoutUntil == nil || !result.LockoutUntil.Equal(lockUntil) {
		t.Fatalf("unexpected lockout: %v", result.LockoutUntil)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_RecordLoginFailureBelowThreshold(t *testing.T) {
	mock, repo := newAccountMock(t)

	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`UPDATE accounts`).
		WithArgs("acct-1", 5, now.Add(15*time.Minute), now).
		WillReturnRows(pgxmock.NewRows([]string{"failed_login_attempts", "lockout_until"}).
			AddRow(2, (*time.Time)(nil)))

	result, err := repo.RecordLoginFailure(context.Background(), "acct-1", 5, 15*time.Minute, now)
	if err != nil {
		t.Fatalf("RecordLoginFailure returned error: %v", err)
	}

	if result.Attempts != 2 || result.LockoutUntil != nil {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestAccountRepository_SetDeletedRequireDeleted(t *testing.T) {
	mock, repo := newAccountMock(t)

	mock.ExpectQuery(`UPDATE accounts`).
		WithArgs(false, (*string)(nil), pgxmock.AnyArg(), "acct-1", true).
		WillReturnRows(pgxmock.NewRows(accountColumns))

	_, err := repo.SetDeleted(context.Background(), "acct-1", false, true, nil)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for live account, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_UpdateProfileDuplicateEmail(t *testing.T) {
	mock, repo := newAccountMock(t)

	email := "taken@example.com"

	mock.ExpectQuery(`UPDATE accounts`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode})

	_, err := repo.UpdateProfile(context.Background(), "acct-1", domain.ProfilePatch{Email: &email}, nil, nil)
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestAccountRepository_RecordLoginNotFound(t *testing.T) {
	mock, repo := newAccountMock(t)

	at := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE accounts`).
		WithArgs(at, "192.0.2.1", at, "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.RecordLogin(context.Background(), "missing", "192.0.2.1", at); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAccountRepository_CountWithFilter(t *testing.T) {
	mock, repo := newAccountMock(t)

	deleted := false
	since := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM accounts`).
		WithArgs(deleted, since).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))

	count, err := repo.Count(context.Background(), port.AccountFilter{
		Deleted:      &deleted,
		CreatedSince: &since,
	})
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}

	if count != 7 {
		t.Fatalf("expected 7, got %d", count)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_List(t *testing.T) {
	mock, repo := newAccountMock(t)

	first := storedAccount()
	second := storedAccount()
	second.ID = "acct-2"
	second.Email = "bob@example.com"

	blocked := true
	rows := accountRows(first).AddRow(
		second.ID, second.Email, second.Name, second.Surname, second.Age,
		second.BirthDate, second.Role, second.PasswordHash, second.Deleted,
		second.Blocked, second.FailedLoginAttempts, second.LockoutUntil,
		second.LastLoginAt, second.LastLoginIP, second.ModifiedBy,
		second.CreatedAt, second.UpdatedAt,
	)

	mock.ExpectQuery(`SELECT .* FROM accounts`).
		WithArgs(blocked).
		WillReturnRows(rows)

	accounts, err := repo.List(context.Background(), port.AccountFilter{Blocked: &blocked, Limit: 10})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}

	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
	if accounts[1].Email != "bob@example.com" {
		t.Fatalf("unexpected second account: %+v", accounts[1])
	}
}
