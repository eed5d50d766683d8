package jobs

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgTenantLister enumerates tenants from the chart of accounts, which every
// active tenant has.
type PgTenantLister struct {
	pool *pgxpool.Pool
}

// NewPgTenantLister constructs PgTenantLister.
func NewPgTenantLister(pool *pgxpool.Pool) *PgTenantLister {
	return &PgTenantLister{pool: pool}
}

// ListTenants returns every tenant id present in accounts.
func (l *PgTenantLister) ListTenants(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := l.pool.Query(ctx, `SELECT DISTINCT tenant_id FROM accounts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
