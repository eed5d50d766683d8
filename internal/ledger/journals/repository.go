package journals

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/platform/db"
)

// Repository persists journal entries and their general ledger projection.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations available inside a posting transaction.
// Allocate-and-post runs as one transaction; entry numbering is never
// eventually-consistent.
type TxRepository interface {
	FindPeriodForUpdate(ctx context.Context, tenantID uuid.UUID, date time.Time) (ledger.Period, error)
	GetPeriodForUpdate(ctx context.Context, tenantID uuid.UUID, periodID int64) (ledger.Period, error)
	NextOpenPeriodAfter(ctx context.Context, tenantID uuid.UUID, date time.Time) (ledger.Period, error)
	NextSeq(ctx context.Context, tenantID uuid.UUID, fiscalYear int) (int64, error)
	InsertEntry(ctx context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error)
	InsertLines(ctx context.Context, entryID int64, lines []ledger.PostingLineInput) ([]ledger.JournalLine, error)
	InsertLedgerEntries(ctx context.Context, entry ledger.JournalEntry, lines []ledger.JournalLine) error
	LinkSource(ctx context.Context, tenantID uuid.UUID, source ledger.EntrySource, sourceID uuid.UUID, entryID int64) error
	GetEntryWithLines(ctx context.Context, tenantID uuid.UUID, entryID int64) (ledger.JournalEntry, error)
	MarkVoid(ctx context.Context, tenantID uuid.UUID, entryID int64, actorID int64, reason string, at time.Time) error
	MarkDraftPosted(ctx context.Context, tenantID uuid.UUID, entry ledger.JournalEntry) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("journals repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const entryColumns = `id, tenant_id, fiscal_year, fiscal_period, seq, period_id, date, description, source, source_id,
total_debit, total_credit, status, posted_by, posted_at, voided_by, voided_at, void_reason, reverses_id, created_at, updated_at`

func scanEntry(row pgx.Row) (ledger.JournalEntry, error) {
	var e ledger.JournalEntry
	err := row.Scan(&e.ID, &e.TenantID, &e.FiscalYear, &e.FiscalPeriod, &e.Seq, &e.PeriodID, &e.Date, &e.Description, &e.Source, &e.SourceID,
		&e.TotalDebit, &e.TotalCredit, &e.Status, &e.PostedBy, &e.PostedAt, &e.VoidedBy, &e.VoidedAt, &e.VoidReason, &e.ReversesID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.JournalEntry{}, ledger.ErrEntryNotFound
		}
		return ledger.JournalEntry{}, err
	}
	return e, nil
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

const periodColumns = `id, tenant_id, fiscal_year, period, start_date, end_date, status, closed_by, closed_at, created_at, updated_at`

func (r *txRepository) FindPeriodForUpdate(ctx context.Context, tenantID uuid.UUID, date time.Time) (ledger.Period, error) {
	return scanPeriod(r.tx.QueryRow(ctx, `SELECT `+periodColumns+`
FROM fiscal_periods WHERE tenant_id=$1 AND $2 BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1 FOR UPDATE`, tenantID, date))
}

func (r *txRepository) GetPeriodForUpdate(ctx context.Context, tenantID uuid.UUID, periodID int64) (ledger.Period, error) {
	return scanPeriod(r.tx.QueryRow(ctx, `SELECT `+periodColumns+`
FROM fiscal_periods WHERE tenant_id=$1 AND id=$2 FOR UPDATE`, tenantID, periodID))
}

func (r *txRepository) NextOpenPeriodAfter(ctx context.Context, tenantID uuid.UUID, date time.Time) (ledger.Period, error) {
	return scanPeriod(r.tx.QueryRow(ctx, `SELECT `+periodColumns+`
FROM fiscal_periods WHERE tenant_id=$1 AND status='OPEN' AND start_date >= $2 ORDER BY start_date ASC LIMIT 1`, tenantID, date))
}

// NextSeq allocates the next entry number for (tenant, fiscal year). The
// upsert serializes concurrent allocations on the counter row lock, inside
// the same transaction that writes the entry.
func (r *txRepository) NextSeq(ctx context.Context, tenantID uuid.UUID, fiscalYear int) (int64, error) {
	var seq int64
	err := r.tx.QueryRow(ctx, `INSERT INTO entry_sequences (tenant_id, fiscal_year, next_seq)
VALUES ($1, $2, 2)
ON CONFLICT (tenant_id, fiscal_year) DO UPDATE SET next_seq = entry_sequences.next_seq + 1
RETURNING next_seq - 1`, tenantID, fiscalYear).Scan(&seq)
	return seq, err
}

func (r *txRepository) InsertEntry(ctx context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries
(tenant_id, fiscal_year, fiscal_period, seq, period_id, date, description, source, source_id, total_debit, total_credit, status, posted_by, posted_at, reverses_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15) RETURNING `+entryColumns,
		entry.TenantID, entry.FiscalYear, entry.FiscalPeriod, entry.Seq, entry.PeriodID, entry.Date, entry.Description,
		entry.Source, entry.SourceID, entry.TotalDebit, entry.TotalCredit, entry.Status, entry.PostedBy, entry.PostedAt, entry.ReversesID)
	inserted, err := scanEntry(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_journal_entries_number" {
			return ledger.JournalEntry{}, errors.New("journals: entry number collision")
		}
		return ledger.JournalEntry{}, err
	}
	return inserted, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []ledger.PostingLineInput) ([]ledger.JournalLine, error) {
	out := make([]ledger.JournalLine, 0, len(lines))
	for _, line := range lines {
		var inserted ledger.JournalLine
		err := r.tx.QueryRow(ctx, `INSERT INTO journal_lines (entry_id, account_id, debit, credit, description, dim_department, dim_employee_id, dim_project_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, entry_id, account_id, debit, credit, description, dim_department, dim_employee_id, dim_project_id, created_at, updated_at`,
			entryID, line.AccountID, line.Debit, line.Credit, line.Description, line.Department, line.EmployeeID, line.ProjectID).
			Scan(&inserted.ID, &inserted.EntryID, &inserted.AccountID, &inserted.Debit, &inserted.Credit, &inserted.Description,
				&inserted.Department, &inserted.EmployeeID, &inserted.ProjectID, &inserted.CreatedAt, &inserted.UpdatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, inserted)
	}
	return out, nil
}

// InsertLedgerEntries materializes one general ledger row per journal line in
// the same transaction as the entry itself. Partial failure rolls back both.
func (r *txRepository) InsertLedgerEntries(ctx context.Context, entry ledger.JournalEntry, lines []ledger.JournalLine) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO ledger_entries (tenant_id, entry_id, line_id, account_id, entry_date, fiscal_year, fiscal_period, seq, debit, credit, description)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			entry.TenantID, entry.ID, line.ID, line.AccountID, entry.Date, entry.FiscalYear, entry.FiscalPeriod, entry.Seq, line.Debit, line.Credit, line.Description); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) LinkSource(ctx context.Context, tenantID uuid.UUID, source ledger.EntrySource, sourceID uuid.UUID, entryID int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO source_links (tenant_id, source, source_id, entry_id) VALUES ($1,$2,$3,$4)`, tenantID, source, sourceID, entryID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_source_links" {
			return ledger.ErrSourceAlreadyLinked
		}
		return err
	}
	return nil
}

func (r *txRepository) GetEntryWithLines(ctx context.Context, tenantID uuid.UUID, entryID int64) (ledger.JournalEntry, error) {
	entry, err := scanEntry(r.tx.QueryRow(ctx, `SELECT `+entryColumns+`
FROM journal_entries WHERE tenant_id=$1 AND id=$2 FOR UPDATE`, tenantID, entryID))
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	rows, err := r.tx.Query(ctx, `SELECT id, entry_id, account_id, debit, credit, description, dim_department, dim_employee_id, dim_project_id, created_at, updated_at
FROM journal_lines WHERE entry_id=$1 ORDER BY id ASC`, entryID)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line ledger.JournalLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.Debit, &line.Credit, &line.Description,
			&line.Department, &line.EmployeeID, &line.ProjectID, &line.CreatedAt, &line.UpdatedAt); err != nil {
			return ledger.JournalEntry{}, err
		}
		entry.Lines = append(entry.Lines, line)
	}
	return entry, rows.Err()
}

// MarkVoid records the void without touching the entry's general ledger rows;
// voided entries drop out of balances via the status filter on reads.
func (r *txRepository) MarkVoid(ctx context.Context, tenantID uuid.UUID, entryID int64, actorID int64, reason string, at time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status='VOID', voided_by=$3, voided_at=$4, void_reason=$5, updated_at=$4
WHERE tenant_id=$1 AND id=$2`, tenantID, entryID, actorID, at, reason)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ledger.ErrEntryNotFound
	}
	return nil
}

func (r *txRepository) MarkDraftPosted(ctx context.Context, tenantID uuid.UUID, entry ledger.JournalEntry) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status='POSTED', seq=$3, period_id=$4, fiscal_year=$5, fiscal_period=$6,
total_debit=$7, total_credit=$8, posted_by=$9, posted_at=$10, updated_at=$10
WHERE tenant_id=$1 AND id=$2 AND status='DRAFT'`,
		tenantID, entry.ID, entry.Seq, entry.PeriodID, entry.FiscalYear, entry.FiscalPeriod,
		entry.TotalDebit, entry.TotalCredit, entry.PostedBy, entry.PostedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ledger.ErrInvalidStatus
	}
	return nil
}

// ListByPeriod returns entries dated inside a period, newest number first.
func (r *Repository) ListByPeriod(ctx context.Context, tenantID uuid.UUID, fiscalYear, fiscalPeriod int) ([]ledger.JournalEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+`
FROM journal_entries WHERE tenant_id=$1 AND fiscal_year=$2 AND fiscal_period=$3 ORDER BY seq DESC, id DESC`, tenantID, fiscalYear, fiscalPeriod)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []ledger.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get loads one entry with lines outside any transaction.
func (r *Repository) Get(ctx context.Context, tenantID uuid.UUID, entryID int64) (ledger.JournalEntry, error) {
	var entry ledger.JournalEntry
	err := r.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = tx.GetEntryWithLines(ctx, tenantID, entryID)
		return err
	})
	return entry, err
}
