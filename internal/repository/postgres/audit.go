package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/pvolkov/accounts-service/internal/core/domain"
	"github.com/pvolkov/accounts-service/internal/core/port"
)

var auditColumns = []string{
	"id",
	"action",
	"actor_id",
	"actor_email",
	"target_id",
	"target_role",
	"changes",
	"note",
	"ip",
	"created_at",
}

// AuditRepository implements port.AuditLog using PostgreSQL. Rows are only
// ever inserted; nothing updates or deletes them.
type AuditRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAuditRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewAuditRepository(exec pgExecutor) *AuditRepository {
	return &AuditRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Append inserts a new audit entry.
func (r *AuditRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	var changesValue any
	if len(entry.Changes) > 0 {
		encoded, err := json.Marshal(entry.Changes)
		if err != nil {
			return fmt.Errorf("marshal audit changes: %w", err)
		}
		changesValue = encoded
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	stmt, args, err := r.builder.Insert("audit_entries").
		Columns(auditColumns...).
		Values(
			entry.ID,
			entry.Action,
			entry.ActorID,
			entry.ActorEmail,
			entry.TargetID,
			entry.TargetRole,
			changesValue,
			entry.Note,
			entry.IP,
			createdAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert audit entry sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	return nil
}

// ListAdminModifications returns the most recent update/delete entries whose
// target held the admin role at the time of the action.
func (r *AuditRepository) ListAdminModifications(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	stmt, args, err := r.builder.Select(auditColumns...).
		From("audit_entries").
		Where(squirrel.Eq{"action": []domain.AuditAction{domain.AuditActionUpdate, domain.AuditActionDelete}}).
		Where(squirrel.Eq{"target_role": domain.RoleAdmin}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list admin modifications sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query admin modifications: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.AuditEntry, 0)
	for rows.Next() {
		var (
			entry   domain.AuditEntry
			changes []byte
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.Action,
			&entry.ActorID,
			&entry.ActorEmail,
			&entry.TargetID,
			&entry.TargetRole,
			&changes,
			&entry.Note,
			&entry.IP,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if len(changes) > 0 {
			if err := json.Unmarshal(changes, &entry.Changes); err != nil {
				return nil, fmt.Errorf("unmarshal audit changes: %w", err)
			}
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}

	return entries, nil
}

var _ port.AuditLog = (*AuditRepository)(nil)
