package gl

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

// StatementLine is one ledger row with the balance after applying it.
type StatementLine struct {
	ledger.LedgerEntry
	Balance ledger.Money
}

// Statement is an account's activity over a date range with running balances
// seeded from the balance carried into the range.
type Statement struct {
	AccountID int64
	From      time.Time
	To        time.Time
	Opening   ledger.Money
	Lines     []StatementLine
	Closing   ledger.Money
}

// RepositoryPort abstracts the projection reads the service needs.
type RepositoryPort interface {
	EntriesForAccount(ctx context.Context, tenantID uuid.UUID, accountID int64, from, to time.Time) ([]ledger.LedgerEntry, error)
	OpeningBalance(ctx context.Context, tenantID uuid.UUID, accountID int64, before time.Time) (ledger.Money, error)
	BalanceAsOf(ctx context.Context, tenantID uuid.UUID, accountID int64, asOf time.Time) (ledger.Money, error)
	BalancesAsOf(ctx context.Context, tenantID uuid.UUID, asOf time.Time) ([]AccountBalance, error)
	BalancesInRange(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]AccountBalance, error)
}

// Service exposes general ledger reads.
type Service struct {
	repo RepositoryPort
}

// NewService constructs the general ledger service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// AccountActivity returns an account's statement for [from, to]. Running
// balances are recomputed on every read; they are never stored.
func (s *Service) AccountActivity(ctx context.Context, tenantID uuid.UUID, accountID int64, from, to time.Time) (Statement, error) {
	if tenantID == uuid.Nil {
		return Statement{}, ledger.ErrTenantRequired
	}
	opening, err := s.repo.OpeningBalance(ctx, tenantID, accountID, from)
	if err != nil {
		return Statement{}, err
	}
	entries, err := s.repo.EntriesForAccount(ctx, tenantID, accountID, from, to)
	if err != nil {
		return Statement{}, err
	}
	lines, closing := RunningBalance(opening, entries)
	return Statement{
		AccountID: accountID,
		From:      from,
		To:        to,
		Opening:   opening,
		Lines:     lines,
		Closing:   closing,
	}, nil
}

// BalanceAsOf returns an account's signed cumulative balance.
func (s *Service) BalanceAsOf(ctx context.Context, tenantID uuid.UUID, accountID int64, asOf time.Time) (ledger.Money, error) {
	if tenantID == uuid.Nil {
		return 0, ledger.ErrTenantRequired
	}
	return s.repo.BalanceAsOf(ctx, tenantID, accountID, asOf)
}

// RunningBalance folds entries, ordered by date then entry number, into lines
// carrying the balance after each row. The balance convention is signed debit
// minus credit regardless of account type; presentation flips the sign for
// credit-normal accounts.
func RunningBalance(opening ledger.Money, entries []ledger.LedgerEntry) ([]StatementLine, ledger.Money) {
	balance := opening
	lines := make([]StatementLine, 0, len(entries))
	for _, e := range entries {
		balance += e.Debit - e.Credit
		lines = append(lines, StatementLine{LedgerEntry: e, Balance: balance})
	}
	return lines, balance
}
