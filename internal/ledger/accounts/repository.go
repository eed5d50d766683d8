package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

const accountColumns = `id, tenant_id, code, name, type, sub_type, parent_id, level, is_system, is_active, created_at, updated_at`

// Repository persists chart of accounts rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanAccount(row pgx.Row) (ledger.Account, error) {
	var a ledger.Account
	err := row.Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &a.Type, &a.SubType, &a.ParentID, &a.Level, &a.IsSystem, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Account{}, ledger.ErrAccountNotFound
		}
		return ledger.Account{}, err
	}
	return a, nil
}

// Insert creates an account, mapping the tenant+code uniqueness violation to
// ErrDuplicateCode.
func (r *Repository) Insert(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO accounts (tenant_id, code, name, type, sub_type, parent_id, level, is_system, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,TRUE) RETURNING `+accountColumns,
		a.TenantID, a.Code, a.Name, a.Type, a.SubType, a.ParentID, a.Level, a.IsSystem)
	inserted, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_accounts_tenant_code" {
			return ledger.Account{}, ledger.ErrDuplicateCode
		}
		return ledger.Account{}, err
	}
	return inserted, nil
}

// GetByID loads one account scoped to the tenant.
func (r *Repository) GetByID(ctx context.Context, tenantID uuid.UUID, id int64) (ledger.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id=$1 AND id=$2`, tenantID, id))
}

// GetByCode loads one account by its code.
func (r *Repository) GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (ledger.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id=$1 AND code=$2`, tenantID, code))
}

// List returns accounts ordered by code. Inactive accounts are included only
// when requested; they remain queryable either way via GetByID/GetByCode.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, includeInactive bool) ([]ledger.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE tenant_id=$1 ORDER BY code`
	if !includeInactive {
		query = `SELECT ` + accountColumns + ` FROM accounts WHERE tenant_id=$1 AND is_active ORDER BY code`
	}
	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []ledger.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// Update persists mutable fields.
func (r *Repository) Update(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	row := r.pool.QueryRow(ctx, `UPDATE accounts SET code=$3, name=$4, type=$5, sub_type=$6, updated_at=NOW()
WHERE tenant_id=$1 AND id=$2 RETURNING `+accountColumns, a.TenantID, a.ID, a.Code, a.Name, a.Type, a.SubType)
	updated, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_accounts_tenant_code" {
			return ledger.Account{}, ledger.ErrDuplicateCode
		}
		return ledger.Account{}, err
	}
	return updated, nil
}

// SetActive flips the soft-delete flag.
func (r *Repository) SetActive(ctx context.Context, tenantID uuid.UUID, id int64, active bool, at time.Time) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE accounts SET is_active=$3, updated_at=$4 WHERE tenant_id=$1 AND id=$2`, tenantID, id, active, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ledger.ErrAccountNotFound
	}
	return nil
}
