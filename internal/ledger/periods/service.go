// Package periods governs the fiscal period lifecycle. Periods close
// forward-only in normal operation; reopening is an explicit, audited
// transition and a locked period only reverts with elevated authority.
package periods

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// RepositoryPort abstracts period persistence.
type RepositoryPort interface {
	InsertYear(ctx context.Context, tenantID uuid.UUID, year int, windows [12][2]time.Time) ([]ledger.Period, error)
	FindByDate(ctx context.Context, tenantID uuid.UUID, date time.Time) (ledger.Period, error)
	Get(ctx context.Context, tenantID uuid.UUID, id int64) (ledger.Period, error)
	ListYear(ctx context.Context, tenantID uuid.UUID, year int) ([]ledger.Period, error)
	UpdateStatus(ctx context.Context, tenantID uuid.UUID, id int64, status ledger.PeriodStatus, actorID int64, at time.Time) (ledger.Period, error)
	CountDraftsIn(ctx context.Context, tenantID uuid.UUID, periodID int64) (int, error)
}

// AuditPort records lifecycle transitions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates fiscal year and period lifecycle operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the periods service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateFiscalYear bootstraps a year with its twelve calendar-month periods,
// all open.
func (s *Service) CreateFiscalYear(ctx context.Context, tenantID uuid.UUID, year int, actorID int64) ([]ledger.Period, error) {
	if tenantID == uuid.Nil {
		return nil, ledger.ErrTenantRequired
	}
	if year < 1900 || year > 9999 {
		return nil, fmt.Errorf("periods: implausible fiscal year %d", year)
	}
	var windows [12][2]time.Time
	for month := 1; month <= 12; month++ {
		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0).AddDate(0, 0, -1)
		windows[month-1] = [2]time.Time{start, end}
	}
	created, err := s.repo.InsertYear(ctx, tenantID, year, windows)
	if err != nil {
		return nil, err
	}
	s.record(ctx, tenantID, actorID, "period.create_year", fmt.Sprintf("%d", year), nil)
	return created, nil
}

// Close moves a period from open to closed. A period containing draft
// entries is rejected: drafts silently excluded from reports would make the
// close figures unreproducible.
func (s *Service) Close(ctx context.Context, tenantID uuid.UUID, periodID int64, actorID int64) (ledger.Period, error) {
	return s.transition(ctx, tenantID, periodID, ledger.PeriodStatusClosed, actorID, false, true)
}

// Reopen moves a closed period back to open.
func (s *Service) Reopen(ctx context.Context, tenantID uuid.UUID, periodID int64, actorID int64) (ledger.Period, error) {
	return s.transition(ctx, tenantID, periodID, ledger.PeriodStatusOpen, actorID, false, false)
}

// Lock freezes a period against any posting, reversing entries included.
func (s *Service) Lock(ctx context.Context, tenantID uuid.UUID, periodID int64, actorID int64) (ledger.Period, error) {
	return s.transition(ctx, tenantID, periodID, ledger.PeriodStatusLocked, actorID, false, false)
}

// Unlock reverts a locked period to closed. Requires elevated authority,
// asserted by the caller via override.
func (s *Service) Unlock(ctx context.Context, tenantID uuid.UUID, periodID int64, actorID int64, override bool) (ledger.Period, error) {
	return s.transition(ctx, tenantID, periodID, ledger.PeriodStatusClosed, actorID, override, false)
}

func (s *Service) transition(ctx context.Context, tenantID uuid.UUID, periodID int64, target ledger.PeriodStatus, actorID int64, override, checkDrafts bool) (ledger.Period, error) {
	if tenantID == uuid.Nil {
		return ledger.Period{}, ledger.ErrTenantRequired
	}
	current, err := s.repo.Get(ctx, tenantID, periodID)
	if err != nil {
		return ledger.Period{}, err
	}
	if err := ValidateTransition(current.Status, target, override); err != nil {
		return ledger.Period{}, fmt.Errorf("periods: %d/%02d is %s: %w", current.FiscalYear, current.Period, current.Status, err)
	}
	if checkDrafts {
		drafts, err := s.repo.CountDraftsIn(ctx, tenantID, periodID)
		if err != nil {
			return ledger.Period{}, err
		}
		if drafts > 0 {
			return ledger.Period{}, fmt.Errorf("periods: %d draft entries in %d/%02d: %w", drafts, current.FiscalYear, current.Period, ledger.ErrDraftsInPeriod)
		}
	}
	updated, err := s.repo.UpdateStatus(ctx, tenantID, periodID, target, actorID, s.now())
	if err != nil {
		return ledger.Period{}, err
	}
	s.record(ctx, tenantID, actorID, "period."+transitionAction(target), fmt.Sprintf("%d", periodID), map[string]any{
		"fiscal_year": current.FiscalYear,
		"period":      current.Period,
		"from":        string(current.Status),
		"to":          string(target),
		"override":    override,
	})
	return updated, nil
}

func transitionAction(target ledger.PeriodStatus) string {
	switch target {
	case ledger.PeriodStatusOpen:
		return "reopen"
	case ledger.PeriodStatusClosed:
		return "close"
	case ledger.PeriodStatusLocked:
		return "lock"
	}
	return "transition"
}

// FindByDate returns the period covering the supplied date.
func (s *Service) FindByDate(ctx context.Context, tenantID uuid.UUID, date time.Time) (ledger.Period, error) {
	if tenantID == uuid.Nil {
		return ledger.Period{}, ledger.ErrTenantRequired
	}
	return s.repo.FindByDate(ctx, tenantID, date)
}

// ListYear returns all periods of a fiscal year.
func (s *Service) ListYear(ctx context.Context, tenantID uuid.UUID, year int) ([]ledger.Period, error) {
	if tenantID == uuid.Nil {
		return nil, ledger.ErrTenantRequired
	}
	return s.repo.ListYear(ctx, tenantID, year)
}

func (s *Service) record(ctx context.Context, tenantID uuid.UUID, actorID int64, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   action,
		Entity:   "fiscal_period",
		EntityID: entityID,
		Meta:     meta,
		At:       s.now(),
	})
}
