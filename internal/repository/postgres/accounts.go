package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pvolkov/accounts-service/internal/core/domain"
	"github.com/pvolkov/accounts-service/internal/core/port"
	"github.com/pvolkov/accounts-service/internal/repository"
)

const uniqueViolationCode = "23505"

var accountColumns = []string{
	"id",
	"email",
	"name",
	"surname",
	"age",
	"birth_date",
	"role",
	"password_hash",
	"deleted",
	"blocked",
	"failed_login_attempts",
	"lockout_until",
	"last_login_at",
	"last_login_ip",
	"modified_by",
	"created_at",
	"updated_at",
}

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	return &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new account row. A unique violation on the email column is
// reported as repository.ErrDuplicate.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	query := r.builder.Insert("accounts").
		Columns(accountColumns...).
		Values(
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

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by identifier.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	stmt, args, err := r.builder.Select(accountColumns...).
		From("accounts").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	account, err := scanAccount(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	return account, nil
}

// GetByEmail retrieves an account by its lowercase email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	stmt, args, err := r.builder.Select(accountColumns...).
		From("accounts").
		Where(squirrel.Eq{"email": email}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account by email sql: %w", err)
	}

	account, err := scanAccount(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account by email: %w", err)
	}

	return account, nil
}

// List returns accounts matching the filter, newest first.
func (r *AccountRepository) List(ctx context.Context, filter port.AccountFilter) ([]domain.Account, error) {
	query := applyAccountFilter(r.builder.Select(accountColumns...).From("accounts"), filter).
		OrderBy("created_at DESC")

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list accounts sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

// Count returns the number of accounts matching the filter.
func (r *AccountRepository) Count(ctx context.Context, filter port.AccountFilter) (int, error) {
	stmt, args, err := applyAccountFilter(r.builder.Select("COUNT(*)").From("accounts"), filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count accounts sql: %w", err)
	}

	var count int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("scan accounts count: %w", err)
	}

	return int(count), nil
}

// UpdateProfile applies the non-nil patch fields in a single statement and
// returns the updated row.
func (r *AccountRepository) UpdateProfile(ctx context.Context, id string, patch domain.ProfilePatch, passwordHash *string, modifiedBy *string) (*domain.Account, error) {
	query := r.builder.Update("accounts").
		Set("updated_at", time.Now().UTC()).
		Set("modified_by", modifiedBy)

	if patch.Email != nil {
		query = query.Set("email", *patch.Email)
	}
	if patch.Name != nil {
		query = query.Set("name", *patch.Name)
	}
	if patch.Surname != nil {
		query = query.Set("surname", *patch.Surname)
	}
	if patch.Age != nil {
		query = query.Set("age", *patch.Age)
	}
	if patch.BirthDate != nil {
		query = query.Set("birth_date", *patch.BirthDate)
	}
	if patch.Role != nil {
		query = query.Set("role", *patch.Role)
	}
	if passwordHash != nil {
		query = query.Set("password_hash", *passwordHash)
	}

	stmt, args, err := query.
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + joinColumns(accountColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update account sql: %w", err)
	}

	account, err := scanAccount(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, repository.ErrDuplicate
		}
		return nil, fmt.Errorf("update account: %w", err)
	}

	return account, nil
}

// SetDeleted flips the deleted flag. With requireDeleted the update only
// matches rows currently marked deleted, which gives restore its conditional
// semantics.
func (r *AccountRepository) SetDeleted(ctx context.Context, id string, deleted bool, requireDeleted bool, modifiedBy *string) (*domain.Account, error) {
	query := r.builder.Update("accounts").
		Set("deleted", deleted).
		Set("modified_by", modifiedBy).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id})

	if requireDeleted {
		query = query.Where(squirrel.Eq{"deleted": true})
	}

	stmt, args, err := query.Suffix("RETURNING " + joinColumns(accountColumns)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build set deleted sql: %w", err)
	}

	account, err := scanAccount(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("set deleted: %w", err)
	}

	return account, nil
}

// SetBlocked flips the blocked flag regardless of other lifecycle state.
func (r *AccountRepository) SetBlocked(ctx context.Context, id string, blocked bool, modifiedBy *string) (*domain.Account, error) {
	stmt, args, err := r.builder.Update("accounts").
		Set("blocked", blocked).
		Set("modified_by", modifiedBy).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + joinColumns(accountColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build set blocked sql: %w", err)
	}

	account, err := scanAccount(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("set blocked: %w", err)
	}

	return account, nil
}

// RecordLoginFailure increments the failure counter and arms the lockout in
// one statement, so concurrent failed attempts against the same account each
// observe a consistent pre-increment value.
func (r *AccountRepository) RecordLoginFailure(ctx context.Context, id string, maxAttempts int, lockFor time.Duration, now time.Time) (port.LoginFailure, error) {
	stmt := `
		UPDATE accounts
		   SET failed_login_attempts = failed_login_attempts + 1,
		       lockout_until = CASE
		           WHEN failed_login_attempts + 1 >= $2 THEN $3::timestamptz
		           ELSE lockout_until
		       END,
		       updated_at = $4
		 WHERE id = $1
		RETURNING failed_login_attempts, lockout_until
	`

	var result port.LoginFailure
	err := r.exec.QueryRow(ctx, stmt, id, maxAttempts, now.Add(lockFor), now).
		Scan(&result.Attempts, &result.LockoutUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return port.LoginFailure{}, repository.ErrNotFound
		}
		return port.LoginFailure{}, fmt.Errorf("record login failure: %w", err)
	}

	return result, nil
}

// ResetLoginFailures clears the failure counter and lockout when either is set.
func (r *AccountRepository) ResetLoginFailures(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Update("accounts").
		Set("failed_login_attempts", 0).
		Set("lockout_until", nil).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Or{
			squirrel.Gt{"failed_login_attempts": 0},
			squirrel.NotEq{"lockout_until": nil},
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build reset login failures sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("reset login failures: %w", err)
	}

	return nil
}

// RecordLogin stamps the last successful login time and source IP.
func (r *AccountRepository) RecordLogin(ctx context.Context, id string, ip string, at time.Time) error {
	var ipValue any
	if ip != "" {
		ipValue = ip
	}

	stmt, args, err := r.builder.Update("accounts").
		Set("last_login_at", at).
		Set("last_login_ip", ipValue).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build record login sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func applyAccountFilter(query squirrel.SelectBuilder, filter port.AccountFilter) squirrel.SelectBuilder {
	if filter.Deleted != nil {
		query = query.Where(squirrel.Eq{"deleted": *filter.Deleted})
	}
	if filter.Blocked != nil {
		query = query.Where(squirrel.Eq{"blocked": *filter.Blocked})
	}
	if filter.CreatedSince != nil {
		query = query.Where(squirrel.GtOrEq{"created_at": *filter.CreatedSince})
	}
	if filter.LastLoginSince != nil {
		query = query.Where(squirrel.GtOrEq{"last_login_at": *filter.LastLoginSince})
	}
	if filter.UpdatedSince != nil {
		query = query.Where(squirrel.GtOrEq{"updated_at": *filter.UpdatedSince})
	}
	return query
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	if err := row.Scan(
		&account.ID,
		&account.Email,
		&account.Name,
		&account.Surname,
		&account.Age,
		&account.BirthDate,
		&account.Role,
		&account.PasswordHash,
		&account.Deleted,
		&account.Blocked,
		&account.FailedLoginAttempts,
		&account.LockoutUntil,
		&account.LastLoginAt,
		&account.LastLoginIP,
		&account.ModifiedBy,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}

func joinColumns(columns []string) string {
	return strings.Join(columns, ", ")
}

var _ port.AccountRepository = (*AccountRepository)(nil)
