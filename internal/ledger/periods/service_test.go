package periods

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

type stubRepo struct {
	period     ledger.Period
	drafts     int
	transition *ledger.PeriodStatus
}

func (r *stubRepo) InsertYear(ctx context.Context, tenantID uuid.UUID, year int, windows [12][2]time.Time) ([]ledger.Period, error) {
	out := make([]ledger.Period, 0, 12)
	for i, w := range windows {
		out = append(out, ledger.Period{
			ID: int64(i + 1), TenantID: tenantID, FiscalYear: year, Period: i + 1,
			StartDate: w[0], EndDate: w[1], Status: ledger.PeriodStatusOpen,
		})
	}
	return out, nil
}

func (r *stubRepo) FindByDate(ctx context.Context, tenantID uuid.UUID, date time.Time) (ledger.Period, error) {
	return r.period, nil
}

func (r *stubRepo) Get(ctx context.Context, tenantID uuid.UUID, id int64) (ledger.Period, error) {
	return r.period, nil
}

func (r *stubRepo) ListYear(ctx context.Context, tenantID uuid.UUID, year int) ([]ledger.Period, error) {
	return []ledger.Period{r.period}, nil
}

func (r *stubRepo) UpdateStatus(ctx context.Context, tenantID uuid.UUID, id int64, status ledger.PeriodStatus, actorID int64, at time.Time) (ledger.Period, error) {
	r.transition = &status
	p := r.period
	p.Status = status
	return p, nil
}

func (r *stubRepo) CountDraftsIn(ctx context.Context, tenantID uuid.UUID, periodID int64) (int, error) {
	return r.drafts, nil
}

var testTenant = uuid.New()

func TestCreateFiscalYearBuildsTwelveCalendarMonths(t *testing.T) {
	service := NewService(&stubRepo{}, nil)
	created, err := service.CreateFiscalYear(context.Background(), testTenant, 2024, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 12 {
		t.Fatalf("expected 12 periods, got %d", len(created))
	}
	feb := created[1]
	if feb.StartDate != time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected february start %v", feb.StartDate)
	}
	if feb.EndDate != time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("expected leap-year february end, got %v", feb.EndDate)
	}
}

func TestCloseRejectsPeriodWithDrafts(t *testing.T) {
	repo := &stubRepo{period: ledger.Period{ID: 1, FiscalYear: 2024, Period: 3, Status: ledger.PeriodStatusOpen}, drafts: 2}
	service := NewService(repo, nil)
	_, err := service.Close(context.Background(), testTenant, 1, 9)
	if !errors.Is(err, ledger.ErrDraftsInPeriod) {
		t.Fatalf("expected ErrDraftsInPeriod, got %v", err)
	}
	if repo.transition != nil {
		t.Fatal("transition must not be persisted on rejection")
	}
}

func TestCloseThenReopen(t *testing.T) {
	repo := &stubRepo{period: ledger.Period{ID: 1, Status: ledger.PeriodStatusOpen}}
	service := NewService(repo, nil)
	closed, err := service.Close(context.Background(), testTenant, 1, 9)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Status != ledger.PeriodStatusClosed {
		t.Fatalf("expected closed, got %s", closed.Status)
	}
	repo.period.Status = ledger.PeriodStatusClosed
	reopened, err := service.Reopen(context.Background(), testTenant, 1, 9)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Status != ledger.PeriodStatusOpen {
		t.Fatalf("expected open, got %s", reopened.Status)
	}
}

func TestUnlockRequiresOverride(t *testing.T) {
	repo := &stubRepo{period: ledger.Period{ID: 1, Status: ledger.PeriodStatusLocked}}
	service := NewService(repo, nil)
	if _, err := service.Unlock(context.Background(), testTenant, 1, 9, false); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition without override, got %v", err)
	}
	if _, err := service.Unlock(context.Background(), testTenant, 1, 9, true); err != nil {
		t.Fatalf("expected success with override, got %v", err)
	}
}

func TestLockedPeriodCannotReopenDirectly(t *testing.T) {
	repo := &stubRepo{period: ledger.Period{ID: 1, Status: ledger.PeriodStatusLocked}}
	service := NewService(repo, nil)
	if _, err := service.Reopen(context.Background(), testTenant, 1, 9); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}
