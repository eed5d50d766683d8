// Package gl reads the general ledger projection: per-account activity with
// running balances, point-in-time balances, and the aggregates the reporting
// layer is built on. Void entries are filtered out at the status join; their
// rows stay on disk for audit.
package gl

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

// AccountBalance aggregates posted movements for one account.
type AccountBalance struct {
	AccountID int64
	Code      string
	Name      string
	Type      ledger.AccountType
	SubType   string
	Debit     ledger.Money
	Credit    ledger.Money
}

// Repository reads ledger_entries through the posted-status join.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const postedJoin = `JOIN journal_entries je ON je.id = le.entry_id AND je.status = 'POSTED'`

// EntriesForAccount returns posted rows for an account ordered by entry date
// then entry number, the order running balances are defined over.
func (r *Repository) EntriesForAccount(ctx context.Context, tenantID uuid.UUID, accountID int64, from, to time.Time) ([]ledger.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT le.id, le.tenant_id, le.entry_id, le.line_id, le.account_id, le.entry_date,
le.fiscal_year, le.fiscal_period, le.seq, le.debit, le.credit, le.description, le.created_at
FROM ledger_entries le `+postedJoin+`
WHERE le.tenant_id=$1 AND le.account_id=$2 AND le.entry_date BETWEEN $3 AND $4
ORDER BY le.entry_date ASC, le.seq ASC, le.id ASC`, tenantID, accountID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.LedgerEntry
	for rows.Next() {
		var e ledger.LedgerEntry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.EntryID, &e.LineID, &e.AccountID, &e.EntryDate,
			&e.FiscalYear, &e.FiscalPeriod, &e.Seq, &e.Debit, &e.Credit, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// BalanceAsOf returns the signed cumulative balance (debit minus credit) of an
// account up to and including asOf.
func (r *Repository) BalanceAsOf(ctx context.Context, tenantID uuid.UUID, accountID int64, asOf time.Time) (ledger.Money, error) {
	var balance int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(le.debit - le.credit), 0)
FROM ledger_entries le `+postedJoin+`
WHERE le.tenant_id=$1 AND le.account_id=$2 AND le.entry_date <= $3`, tenantID, accountID, asOf).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return ledger.Money(balance), nil
}

// OpeningBalance returns the signed balance strictly before the given date.
func (r *Repository) OpeningBalance(ctx context.Context, tenantID uuid.UUID, accountID int64, before time.Time) (ledger.Money, error) {
	return r.BalanceAsOf(ctx, tenantID, accountID, before.AddDate(0, 0, -1))
}

// BalancesAsOf aggregates cumulative debit and credit per account up to asOf.
// Accounts with no movement are omitted; ChartBalancesAsOf is the full
// listing.
func (r *Repository) BalancesAsOf(ctx context.Context, tenantID uuid.UUID, asOf time.Time) ([]AccountBalance, error) {
	return r.queryBalances(ctx, `SELECT a.id, a.code, a.name, a.type, a.sub_type, COALESCE(SUM(le.debit),0), COALESCE(SUM(le.credit),0)
FROM ledger_entries le `+postedJoin+`
JOIN accounts a ON a.id = le.account_id
WHERE le.tenant_id=$1 AND le.entry_date <= $2
GROUP BY a.id, a.code, a.name, a.type, a.sub_type
ORDER BY a.code ASC`, tenantID, asOf)
}

// ChartBalancesAsOf is BalancesAsOf with the chart of accounts left-joined in:
// every active account appears even without a single posted row, and inactive
// accounts still show whenever they carry movements.
func (r *Repository) ChartBalancesAsOf(ctx context.Context, tenantID uuid.UUID, asOf time.Time) ([]AccountBalance, error) {
	return r.queryBalances(ctx, `SELECT a.id, a.code, a.name, a.type, a.sub_type, COALESCE(SUM(le.debit),0), COALESCE(SUM(le.credit),0)
FROM accounts a
LEFT JOIN (ledger_entries le `+postedJoin+`)
ON le.account_id = a.id AND le.tenant_id = a.tenant_id AND le.entry_date <= $2
WHERE a.tenant_id=$1 AND (a.is_active OR le.id IS NOT NULL)
GROUP BY a.id, a.code, a.name, a.type, a.sub_type
ORDER BY a.code ASC`, tenantID, asOf)
}

// BalancesInRange aggregates debit and credit per account for entries dated
// within [from, to]. This is the income statement's strict-range read.
func (r *Repository) BalancesInRange(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]AccountBalance, error) {
	return r.queryBalances(ctx, `SELECT a.id, a.code, a.name, a.type, a.sub_type, COALESCE(SUM(le.debit),0), COALESCE(SUM(le.credit),0)
FROM ledger_entries le `+postedJoin+`
JOIN accounts a ON a.id = le.account_id
WHERE le.tenant_id=$1 AND le.entry_date BETWEEN $2 AND $3
GROUP BY a.id, a.code, a.name, a.type, a.sub_type
ORDER BY a.code ASC`, tenantID, from, to)
}

func (r *Repository) queryBalances(ctx context.Context, sql string, args ...any) ([]AccountBalance, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountBalance
	for rows.Next() {
		var b AccountBalance
		if err := rows.Scan(&b.AccountID, &b.Code, &b.Name, &b.Type, &b.SubType, &b.Debit, &b.Credit); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
