// Package mappings translates business event categories into journal entry
// templates: each category names the debit and credit accounts its events
// post against. Events never bypass the posting engine.
package mappings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

// Mapping pairs a category key with its posting accounts.
type Mapping struct {
	ID              int64
	TenantID        uuid.UUID
	Category        string
	Description     string
	DebitAccountID  int64
	CreditAccountID int64
}

// ErrDuplicateCategory indicates the category already has a mapping.
var ErrDuplicateCategory = errors.New("mappings: category already mapped")

// Repository persists account mappings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, tenant_id, category, description, debit_account_id, credit_account_id`

func scanMapping(row pgx.Row) (Mapping, error) {
	var m Mapping
	err := row.Scan(&m.ID, &m.TenantID, &m.Category, &m.Description, &m.DebitAccountID, &m.CreditAccountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Mapping{}, ledger.ErrMappingNotFound
		}
		return Mapping{}, err
	}
	return m, nil
}

// Insert stores a new mapping.
func (r *Repository) Insert(ctx context.Context, m Mapping) (Mapping, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO account_mappings (tenant_id, category, description, debit_account_id, credit_account_id)
VALUES ($1,$2,$3,$4,$5) RETURNING `+columns,
		m.TenantID, m.Category, m.Description, m.DebitAccountID, m.CreditAccountID)
	inserted, err := scanMapping(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_account_mappings_category" {
			return Mapping{}, ErrDuplicateCategory
		}
		return Mapping{}, err
	}
	return inserted, nil
}

// GetByCategory resolves a category key to its mapping.
func (r *Repository) GetByCategory(ctx context.Context, tenantID uuid.UUID, category string) (Mapping, error) {
	return scanMapping(r.pool.QueryRow(ctx, `SELECT `+columns+`
FROM account_mappings WHERE tenant_id=$1 AND category=$2`, tenantID, category))
}

// List returns the tenant's mappings ordered by category.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID) ([]Mapping, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+`
FROM account_mappings WHERE tenant_id=$1 ORDER BY category ASC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Mapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Update replaces the accounts a category posts against.
func (r *Repository) Update(ctx context.Context, m Mapping) (Mapping, error) {
	return scanMapping(r.pool.QueryRow(ctx, `UPDATE account_mappings
SET description=$3, debit_account_id=$4, credit_account_id=$5
WHERE tenant_id=$1 AND id=$2 RETURNING `+columns,
		m.TenantID, m.ID, m.Description, m.DebitAccountID, m.CreditAccountID))
}

// Delete removes a mapping.
func (r *Repository) Delete(ctx context.Context, tenantID uuid.UUID, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM account_mappings WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ledger.ErrMappingNotFound
	}
	return nil
}
