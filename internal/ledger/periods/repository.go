package periods

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

const periodColumns = `id, tenant_id, fiscal_year, period, start_date, end_date, status, closed_by, closed_at, created_at, updated_at`

// Repository persists fiscal periods.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanPeriod(row pgx.Row) (ledger.Period, error) {
	var p ledger.Period
	err := row.Scan(&p.ID, &p.TenantID, &p.FiscalYear, &p.Period, &p.StartDate, &p.EndDate, &p.Status, &p.ClosedBy, &p.ClosedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Period{}, ledger.ErrInvalidPeriod
		}
		return ledger.Period{}, err
	}
	return p, nil
}

// InsertYear creates the twelve periods of a fiscal year in one batch.
func (r *Repository) InsertYear(ctx context.Context, tenantID uuid.UUID, year int, windows [12][2]time.Time) ([]ledger.Period, error) {
	batch := &pgx.Batch{}
	for i, w := range windows {
		batch.Queue(`INSERT INTO fiscal_periods (tenant_id, fiscal_year, period, start_date, end_date, status)
VALUES ($1,$2,$3,$4,$5,'OPEN') RETURNING `+periodColumns, tenantID, year, i+1, w[0], w[1])
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	out := make([]ledger.Period, 0, 12)
	for i := 0; i < 12; i++ {
		p, err := scanPeriod(results.QueryRow())
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// FindByDate returns the period covering the date, regardless of status.
func (r *Repository) FindByDate(ctx context.Context, tenantID uuid.UUID, date time.Time) (ledger.Period, error) {
	return scanPeriod(r.pool.QueryRow(ctx, `SELECT `+periodColumns+`
FROM fiscal_periods WHERE tenant_id=$1 AND $2 BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`, tenantID, date))
}

// Get loads one period by id.
func (r *Repository) Get(ctx context.Context, tenantID uuid.UUID, id int64) (ledger.Period, error) {
	return scanPeriod(r.pool.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods WHERE tenant_id=$1 AND id=$2`, tenantID, id))
}

// ListYear returns the periods of one fiscal year in period order.
func (r *Repository) ListYear(ctx context.Context, tenantID uuid.UUID, year int) ([]ledger.Period, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+periodColumns+`
FROM fiscal_periods WHERE tenant_id=$1 AND fiscal_year=$2 ORDER BY period`, tenantID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateStatus persists a lifecycle transition.
func (r *Repository) UpdateStatus(ctx context.Context, tenantID uuid.UUID, id int64, status ledger.PeriodStatus, actorID int64, at time.Time) (ledger.Period, error) {
	if status == ledger.PeriodStatusOpen {
		return scanPeriod(r.pool.QueryRow(ctx, `UPDATE fiscal_periods SET status=$3, closed_by=NULL, closed_at=NULL, updated_at=NOW()
WHERE tenant_id=$1 AND id=$2 RETURNING `+periodColumns, tenantID, id, status))
	}
	return scanPeriod(r.pool.QueryRow(ctx, `UPDATE fiscal_periods SET status=$3, closed_by=$4, closed_at=$5, updated_at=NOW()
WHERE tenant_id=$1 AND id=$2 RETURNING `+periodColumns, tenantID, id, status, actorID, at))
}

// CountDraftsIn counts draft journal entries dated inside the period.
func (r *Repository) CountDraftsIn(ctx context.Context, tenantID uuid.UUID, periodID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM journal_entries je
JOIN fiscal_periods p ON p.id=$2 AND p.tenant_id=$1
WHERE je.tenant_id=$1 AND je.status='DRAFT' AND je.date BETWEEN p.start_date AND p.end_date`, tenantID, periodID).Scan(&count)
	return count, err
}
