package domain

import "time"

// AuditAction enumerates the actions an audit entry can describe.
type AuditAction string

const (
	AuditActionCreate     AuditAction = "create"
	AuditActionUpdate     AuditAction = "update"
	AuditActionDelete     AuditAction = "delete"
	AuditActionRestore    AuditAction = "restore"
	AuditActionBlock      AuditAction = "block"
	AuditActionUnblock    AuditAction = "unblock"
	AuditActionLogin      AuditAction = "login"
	AuditActionBruteForce AuditAction = "brute-force-attempt"
)

// AuditEntry is an immutable record of a state-changing action against an
// account. Entries are appended by the lifecycle and authentication flows
// and are never updated or deleted.
type AuditEntry struct {
	ID         string
	Action     AuditAction
	ActorID    *string
	ActorEmail *string
	TargetID   string
	TargetRole Role
	Changes    map[string]any
	Note       string
	IP         string
	CreatedAt  time.Time
}
