package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pvolkov/accounts-service/internal/core/domain"
	"github.com/pvolkov/accounts-service/internal/usecase"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// AccountSummary describes the API view of an account. The password hash is
// never part of this view.
type AccountSummary struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	Surname     string      `json:"surname,omitempty"`
	Age         int         `json:"age"`
	BirthDate   *string     `json:"birth_date,omitempty"`
	Role        domain.Role `json:"role"`
	Deleted     bool        `json:"deleted"`
	Blocked     bool        `json:"blocked"`
	LastLoginAt *time.Time  `json:"last_login_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func newAccountSummary(account domain.Account) AccountSummary {
	summary := AccountSummary{
		ID:          account.ID,
		Email:       account.Email,
		Name:        account.Name,
		Surname:     account.Surname,
		Age:         account.Age,
		Role:        account.Role,
		Deleted:     account.Deleted,
		Blocked:     account.Blocked,
		LastLoginAt: account.LastLoginAt,
		CreatedAt:   account.CreatedAt,
		UpdatedAt:   account.UpdatedAt,
	}
	if !account.BirthDate.IsZero() {
		birth := account.BirthDate.Format("2006-01-02")
		summary.BirthDate = &birth
	}
	return summary
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse describes the response returned for a successful login.
type LoginResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	Account     AccountSummary `json:"account"`
}

// CreateAccountRequest defines the account registration payload.
type CreateAccountRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Name      string `json:"name" binding:"required"`
	Surname   string `json:"surname"`
	Age       int    `json:"age" binding:"omitempty,min=0"`
	BirthDate string `json:"birth_date"`
	Role      string `json:"role"`
	Password  string `json:"password" binding:"required,min=8"`
}

// UpdateAccountRequest carries the optional fields of a profile update.
type UpdateAccountRequest struct {
	Email     *string `json:"email" binding:"omitempty,email"`
	Name      *string `json:"name"`
	Surname   *string `json:"surname"`
	Age       *int    `json:"age" binding:"omitempty,min=0"`
	BirthDate *string `json:"birth_date"`
	Role      *string `json:"role"`
	Password  *string `json:"password" binding:"omitempty,min=8"`
}

// AccountListResponse wraps a page of account summaries.
type AccountListResponse struct {
	Accounts []AccountSummary `json:"accounts"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// AuditEntryView is the API representation of an audit trail record.
type AuditEntryView struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	ActorID    *string        `json:"actor_id,omitempty"`
	ActorEmail *string        `json:"actor_email,omitempty"`
	TargetID   string         `json:"target_id,omitempty"`
	TargetRole string         `json:"target_role,omitempty"`
	Changes    map[string]any `json:"changes,omitempty"`
	Note       string         `json:"note,omitempty"`
	IP         string         `json:"ip,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func newAuditEntryView(entry domain.AuditEntry) AuditEntryView {
	return AuditEntryView{
		ID:         entry.ID,
		Action:     string(entry.Action),
		ActorID:    entry.ActorID,
		ActorEmail: entry.ActorEmail,
		TargetID:   entry.TargetID,
		TargetRole: string(entry.TargetRole),
		Changes:    entry.Changes,
		Note:       entry.Note,
		IP:         entry.IP,
		CreatedAt:  entry.CreatedAt,
	}
}

// StatsResponse aggregates account counters for the reporting endpoint.
type StatsResponse struct {
	TotalActive              int              `json:"total_active"`
	CreatedRecently          int              `json:"created_recently"`
	ActiveRecently           int              `json:"active_recently"`
	UpdatedRecently          int              `json:"updated_recently"`
	Deleted                  int              `json:"deleted"`
	Blocked                  int              `json:"blocked"`
	WindowDays               int              `json:"window_days"`
	RecentAdminModifications []AuditEntryView `json:"recent_admin_modifications"`
}

func newStatsResponse(overview usecase.StatsOverview) StatsResponse {
	resp := StatsResponse{
		TotalActive:     overview.TotalActive,
		CreatedRecently: overview.CreatedRecently,
		ActiveRecently:  overview.ActiveRecently,
		UpdatedRecently: overview.UpdatedRecently,
		Deleted:         overview.Deleted,
		Blocked:         overview.Blocked,
		WindowDays:      overview.WindowDays,
	}
	resp.RecentAdminModifications = make([]AuditEntryView, 0, len(overview.RecentAdminModifications))
	for _, entry := range overview.RecentAdminModifications {
		resp.RecentAdminModifications = append(resp.RecentAdminModifications, newAuditEntryView(entry))
	}
	return resp
}

// HealthResponse reports service status.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports per-dependency readiness.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
