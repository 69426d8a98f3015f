package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/pvolkov/accounts-service/internal/core/domain"
	"github.com/pvolkov/accounts-service/internal/core/port"
)

// StatsOverview aggregates account counters for the reporting endpoint.
type StatsOverview struct {
	TotalActive     int
	CreatedRecently int
	ActiveRecently  int
	UpdatedRecently int
	Deleted         int
	Blocked         int

	WindowDays               int
	RecentAdminModifications []domain.AuditEntry
}

// StatsService computes account statistics from the primary store. Counts are
// computed per request; the dataset is small enough that no cache is needed.
type StatsService struct {
	accounts port.AccountRepository
	audit    port.AuditLog
	now      func() time.Time
}

// NewStatsService constructs a StatsService.
func NewStatsService(accounts port.AccountRepository, audit port.AuditLog) *StatsService {
	return &StatsService{
		accounts: accounts,
		audit:    audit,
		now:      time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *StatsService) WithClock(now func() time.Time) *StatsService {
	if now != nil {
		s.now = now
	}
	return s
}

// Overview computes every counter over a lookback window of the given number
// of days. A non-positive window defaults to 30 days; a non-positive limit
// defaults to 10 admin modification entries. Only the total and deleted
// counts split on deletion state; the window and blocked counters cover all
// accounts so soft-deleting an account never hides its history.
func (s *StatsService) Overview(ctx context.Context, windowDays, adminLimit int) (StatsOverview, error) {
	if windowDays <= 0 {
		windowDays = 30
	}
	if adminLimit <= 0 {
		adminLimit = 10
	}

	since := s.now().UTC().AddDate(0, 0, -windowDays)
	live := false
	gone := true
	blocked := true

	overview := StatsOverview{WindowDays: windowDays}

	var err error
	if overview.TotalActive, err = s.accounts.Count(ctx, port.AccountFilter{Deleted: &live}); err != nil {
		return StatsOverview{}, fmt.Errorf("count active accounts: %w", err)
	}
	if overview.CreatedRecently, err = s.accounts.Count(ctx, port.AccountFilter{CreatedSince: &since}); err != nil {
		return StatsOverview{}, fmt.Errorf("count recently created accounts: %w", err)
	}
	if overview.ActiveRecently, err = s.accounts.Count(ctx, port.AccountFilter{LastLoginSince: &since}); err != nil {
		return StatsOverview{}, fmt.Errorf("count recently active accounts: %w", err)
	}
	if overview.UpdatedRecently, err = s.accounts.Count(ctx, port.AccountFilter{UpdatedSince: &since}); err != nil {
		return StatsOverview{}, fmt.Errorf("count recently updated accounts: %w", err)
	}
	if overview.Deleted, err = s.accounts.Count(ctx, port.AccountFilter{Deleted: &gone}); err != nil {
		return StatsOverview{}, fmt.Errorf("count deleted accounts: %w", err)
	}
	if overview.Blocked, err = s.accounts.Count(ctx, port.AccountFilter{Blocked: &blocked}); err != nil {
		return StatsOverview{}, fmt.Errorf("count blocked accounts: %w", err)
	}

	entries, err := s.audit.ListAdminModifications(ctx, adminLimit)
	if err != nil {
		return StatsOverview{}, fmt.Errorf("list admin modifications: %w", err)
	}
	overview.RecentAdminModifications = entries

	return overview, nil
}
