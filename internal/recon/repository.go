package recon

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

// Summary aggregates the tenant's reconciliation position. Deposits and
// Withdrawals total the signed amounts across every imported row.
type Summary struct {
	Unmatched       int
	Matched         int
	Reconciled      int
	Deposits        ledger.Money
	Withdrawals     ledger.Money
	UnmatchedAmount ledger.Money
}

// ChunkError reports one failed insert chunk. Offset is the index of the
// chunk's first row within the parsed statement.
type ChunkError struct {
	Offset int
	Rows   int
	Err    error
}

// Repository persists bank transactions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const insertChunkSize = 500

// BulkInsert writes parsed transactions in batches. Each chunk is one batched
// round-trip that commits on its own; a failed chunk is reported per chunk and
// does not roll back chunks already written.
func (r *Repository) BulkInsert(ctx context.Context, tenantID uuid.UUID, txs []ParsedTransaction) (int, []ChunkError) {
	inserted := 0
	var failed []ChunkError
	for offset := 0; offset < len(txs); offset += insertChunkSize {
		end := offset + insertChunkSize
		if end > len(txs) {
			end = len(txs)
		}
		chunk := txs[offset:end]
		batch := &pgx.Batch{}
		for _, tx := range chunk {
			batch.Queue(`INSERT INTO bank_transactions (tenant_id, date, reference, description, amount, balance, status)
VALUES ($1,$2,$3,$4,$5,$6,'UNMATCHED')`,
				tenantID, tx.Date, tx.Reference, tx.Description, tx.Amount, tx.Balance)
		}
		results := r.pool.SendBatch(ctx, batch)
		var chunkErr error
		for range chunk {
			if _, err := results.Exec(); err != nil && chunkErr == nil {
				chunkErr = err
			}
		}
		if err := results.Close(); err != nil && chunkErr == nil {
			chunkErr = err
		}
		if chunkErr != nil {
			failed = append(failed, ChunkError{Offset: offset, Rows: len(chunk), Err: chunkErr})
			continue
		}
		inserted += len(chunk)
	}
	return inserted, failed
}

const txColumns = `id, tenant_id, date, reference, description, amount, balance, status,
matched_entry_id, matched_by, matched_at, reconciled_by, reconciled_at, created_at`

func scanTx(row pgx.Row) (BankTransaction, error) {
	var tx BankTransaction
	err := row.Scan(&tx.ID, &tx.TenantID, &tx.Date, &tx.Reference, &tx.Description, &tx.Amount, &tx.Balance, &tx.Status,
		&tx.MatchedEntryID, &tx.MatchedBy, &tx.MatchedAt, &tx.ReconciledBy, &tx.ReconciledAt, &tx.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BankTransaction{}, ErrTxNotFound
		}
		return BankTransaction{}, err
	}
	return tx, nil
}

// Get loads one bank transaction.
func (r *Repository) Get(ctx context.Context, tenantID uuid.UUID, id int64) (BankTransaction, error) {
	return scanTx(r.pool.QueryRow(ctx, `SELECT `+txColumns+`
FROM bank_transactions WHERE tenant_id=$1 AND id=$2`, tenantID, id))
}

// List returns transactions, optionally filtered by status, newest first.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, status *TxStatus, limit int) ([]BankTransaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+txColumns+`
FROM bank_transactions WHERE tenant_id=$1 AND ($2::text IS NULL OR status=$2)
ORDER BY date DESC, id DESC LIMIT $3`, tenantID, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BankTransaction
	for rows.Next() {
		tx, err := scanTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// Match records a match; the guard on status makes concurrent matches of the
// same row lose cleanly.
func (r *Repository) Match(ctx context.Context, tenantID uuid.UUID, id, entryID, actorID int64, at time.Time) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE bank_transactions
SET status='MATCHED', matched_entry_id=$3, matched_by=$4, matched_at=$5
WHERE tenant_id=$1 AND id=$2 AND status='UNMATCHED'`, tenantID, id, entryID, actorID, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotUnmatched
	}
	return nil
}

// Unmatch reverts a matched or reconciled row to unmatched, clearing both the
// match and the reconcile stamps.
func (r *Repository) Unmatch(ctx context.Context, tenantID uuid.UUID, id int64) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE bank_transactions
SET status='UNMATCHED', matched_entry_id=NULL, matched_by=NULL, matched_at=NULL,
reconciled_by=NULL, reconciled_at=NULL
WHERE tenant_id=$1 AND id=$2 AND status IN ('MATCHED','RECONCILED')`, tenantID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotMatched
	}
	return nil
}

// Reconcile stamps a row reconciled. Legal from both unmatched and matched;
// only an already-reconciled row is refused.
func (r *Repository) Reconcile(ctx context.Context, tenantID uuid.UUID, id, actorID int64, at time.Time) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE bank_transactions
SET status='RECONCILED', reconciled_by=$3, reconciled_at=$4
WHERE tenant_id=$1 AND id=$2 AND status IN ('UNMATCHED','MATCHED')`, tenantID, id, actorID, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAlreadyReconciled
	}
	return nil
}

// Summarize aggregates counts per status, total deposits and withdrawals, and
// the total unmatched amount.
func (r *Repository) Summarize(ctx context.Context, tenantID uuid.UUID) (Summary, error) {
	var s Summary
	err := r.pool.QueryRow(ctx, `SELECT
COUNT(*) FILTER (WHERE status='UNMATCHED'),
COUNT(*) FILTER (WHERE status='MATCHED'),
COUNT(*) FILTER (WHERE status='RECONCILED'),
COALESCE(SUM(amount) FILTER (WHERE amount > 0), 0),
COALESCE(SUM(amount) FILTER (WHERE amount < 0), 0),
COALESCE(SUM(amount) FILTER (WHERE status='UNMATCHED'), 0)
FROM bank_transactions WHERE tenant_id=$1`, tenantID).
		Scan(&s.Unmatched, &s.Matched, &s.Reconciled, &s.Deposits, &s.Withdrawals, &s.UnmatchedAmount)
	return s, err
}
