package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/ledger/gl"
)

// BalancePort is the slice of the general ledger the reports read.
type BalancePort interface {
	BalancesAsOf(ctx context.Context, tenantID uuid.UUID, asOf time.Time) ([]gl.AccountBalance, error)
	ChartBalancesAsOf(ctx context.Context, tenantID uuid.UUID, asOf time.Time) ([]gl.AccountBalance, error)
	BalancesInRange(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]gl.AccountBalance, error)
}

// Service renders financial statements, caching the results until the next
// posting invalidates them.
type Service struct {
	balances BalancePort
	cache    *Cache
}

// NewService constructs the reports service. cache may be nil.
func NewService(balances BalancePort, cache *Cache) *Service {
	return &Service{balances: balances, cache: cache}
}

const dayFormat = "2006-01-02"

// TrialBalance renders the trial balance as of a date.
func (s *Service) TrialBalance(ctx context.Context, tenantID uuid.UUID, asOf time.Time, includeZero bool) (TrialBalance, error) {
	if tenantID == uuid.Nil {
		return TrialBalance{}, ledger.ErrTenantRequired
	}
	key := cacheKey(tenantID, "tb", fmt.Sprintf("%s:%t", asOf.Format(dayFormat), includeZero))
	return getOrCompute(ctx, s.cache, key, func() (TrialBalance, error) {
		// Zero rows need the whole chart; never-posted accounts have no
		// ledger rows to aggregate.
		read := s.balances.BalancesAsOf
		if includeZero {
			read = s.balances.ChartBalancesAsOf
		}
		balances, err := read(ctx, tenantID, asOf)
		if err != nil {
			return TrialBalance{}, err
		}
		return BuildTrialBalance(asOf, convert(balances), includeZero), nil
	})
}

// IncomeStatement renders revenue and expenses over [from, to].
func (s *Service) IncomeStatement(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (IncomeStatement, error) {
	if tenantID == uuid.Nil {
		return IncomeStatement{}, ledger.ErrTenantRequired
	}
	if to.Before(from) {
		return IncomeStatement{}, fmt.Errorf("reports: range end %s precedes start %s", to.Format(dayFormat), from.Format(dayFormat))
	}
	key := cacheKey(tenantID, "is", from.Format(dayFormat)+":"+to.Format(dayFormat))
	return getOrCompute(ctx, s.cache, key, func() (IncomeStatement, error) {
		balances, err := s.balances.BalancesInRange(ctx, tenantID, from, to)
		if err != nil {
			return IncomeStatement{}, err
		}
		return BuildIncomeStatement(from, to, convert(balances)), nil
	})
}

// BalanceSheet renders cumulative financial position as of a date.
func (s *Service) BalanceSheet(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (BalanceSheet, error) {
	if tenantID == uuid.Nil {
		return BalanceSheet{}, ledger.ErrTenantRequired
	}
	key := cacheKey(tenantID, "bs", asOf.Format(dayFormat))
	return getOrCompute(ctx, s.cache, key, func() (BalanceSheet, error) {
		balances, err := s.balances.BalancesAsOf(ctx, tenantID, asOf)
		if err != nil {
			return BalanceSheet{}, err
		}
		return BuildBalanceSheet(asOf, convert(balances)), nil
	})
}

func convert(in []gl.AccountBalance) []AccountBalance {
	out := make([]AccountBalance, 0, len(in))
	for _, b := range in {
		out = append(out, AccountBalance{
			AccountID: b.AccountID,
			Code:      b.Code,
			Name:      b.Name,
			Type:      b.Type,
			SubType:   b.SubType,
			Debit:     b.Debit,
			Credit:    b.Credit,
		})
	}
	return out
}
