package postgres

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/pvolkov/accounts-service/internal/core/domain"
)

func newAuditMock(t *testing.T) (pgxmock.PgxPoolIface, *AuditRepository) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)

	return mock, NewAuditRepository(mock)
}

func TestAuditRepository_Append(t *testing.T) {
	mock, repo := newAuditMock(t)

	actorID := "admin-1"
	actorEmail := "root@example.com"
	createdAt := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	entry := domain.AuditEntry{
		ID:         "audit-1",
		Action:     domain.AuditActionUpdate,
		ActorID:    &actorID,
		ActorEmail: &actorEmail,
		TargetID:   "acct-1",
		TargetRole: domain.RoleAdmin,
		Changes:    map[string]any{"before": map[string]any{"role": "user"}},
		Note:       "role changed",
		IP:         "192.0.2.1",
		CreatedAt:  createdAt,
	}

	mock.ExpectExec(`INSERT INTO audit_entries`).
		WithArgs(
			entry.ID,
			entry.Action,
			&actorID,
			&actorEmail,
			entry.TargetID,
			entry.TargetRole,
			pgxmock.AnyArg(),
			entry.Note,
			entry.IP,
			createdAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Append(context.Background(), entry); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuditRepository_AppendWithoutChanges(t *testing.T) {
	mock, repo := newAuditMock(t)

	entry := domain.AuditEntry{
		ID:        "audit-2",
		Action:    domain.AuditActionBruteForce,
		TargetID:  "acct-1",
		Note:      "invalid password",
		IP:        "192.0.2.1",
		CreatedAt: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec(`INSERT INTO audit_entries`).
		WithArgs(
			entry.ID,
			entry.Action,
			(*string)(nil),
			(*string)(nil),
			entry.TargetID,
			entry.TargetRole,
			nil,
			entry.Note,
			entry.IP,
			entry.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Append(context.Background(), entry); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuditRepository_ListAdminModifications(t *testing.T) {
	mock, repo := newAuditMock(t)

	actorID := "admin-1"
	createdAt := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows(auditColumns).AddRow(
		"audit-1",
		domain.AuditActionUpdate,
		&actorID,
		(*string)(nil),
		"acct-1",
		domain.RoleAdmin,
		[]byte(`{"before":{"role":"user"},"after":{"role":"admin"}}`),
		"role changed",
		"192.0.2.1",
		createdAt,
	)

	mock.ExpectQuery(`SELECT .* FROM audit_entries`).
		WithArgs(domain.AuditActionUpdate, domain.AuditActionDelete, domain.RoleAdmin).
		WillReturnRows(rows)

	entries, err := repo.ListAdminModifications(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListAdminModifications returned error: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.Action != domain.AuditActionUpdate {
		t.Fatalf("unexpected action: %s", entry.Action)
	}
	if entry.TargetRole != domain.RoleAdmin {
		t.Fatalf("unexpected target role: %s", entry.TargetRole)
	}

	before, ok := entry.Changes["before"].(map[string]any)
	if !ok {
		t.Fatalf("changes did not decode: %v", entry.Changes)
	}
	if before["role"] != "user" {
		t.Fatalf("unexpected before snapshot: %v", before)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
