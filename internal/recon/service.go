package recon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// RepositoryPort abstracts bank transaction persistence.
type RepositoryPort interface {
	BulkInsert(ctx context.Context, tenantID uuid.UUID, txs []ParsedTransaction) (int, []ChunkError)
	Get(ctx context.Context, tenantID uuid.UUID, id int64) (BankTransaction, error)
	List(ctx context.Context, tenantID uuid.UUID, status *TxStatus, limit int) ([]BankTransaction, error)
	Match(ctx context.Context, tenantID uuid.UUID, id, entryID, actorID int64, at time.Time) error
	Unmatch(ctx context.Context, tenantID uuid.UUID, id int64) error
	Reconcile(ctx context.Context, tenantID uuid.UUID, id, actorID int64, at time.Time) error
	Summarize(ctx context.Context, tenantID uuid.UUID) (Summary, error)
}

// EntryPort verifies that a journal entry exists before matching against it.
type EntryPort interface {
	Get(ctx context.Context, tenantID uuid.UUID, entryID int64) (ledger.JournalEntry, error)
}

// AuditPort records reconciliation actions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service drives statement import and the reconciliation workflow.
type Service struct {
	repo    RepositoryPort
	entries EntryPort
	audit   AuditPort
	now     func() time.Time
}

// NewService constructs the reconciliation service.
func NewService(repo RepositoryPort, entries EntryPort, audit AuditPort) *Service {
	return &Service{repo: repo, entries: entries, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ImportResult reports the outcome of one statement import. Partial success
// is a normal outcome: rows the parser rejected and chunks the store refused
// are itemized while the rest of the statement stays imported.
type ImportResult struct {
	Layout       Layout
	Imported     int
	Rejected     []RowError
	FailedChunks []ChunkError
}

// ImportStatement parses a statement CSV and stores its rows as unmatched
// bank transactions. Rejected rows and failed chunks are reported, not fatal;
// an import with zero good rows still succeeds with Imported 0.
func (s *Service) ImportStatement(ctx context.Context, tenantID uuid.UUID, r io.Reader, actorID int64) (ImportResult, error) {
	if tenantID == uuid.Nil {
		return ImportResult{}, ledger.ErrTenantRequired
	}
	parsed, err := ParseStatement(r)
	if err != nil {
		return ImportResult{}, err
	}
	inserted, failed := s.repo.BulkInsert(ctx, tenantID, parsed.Transactions)
	s.record(ctx, tenantID, actorID, "recon.import", "statement", map[string]any{
		"layout":        string(parsed.Layout),
		"imported":      inserted,
		"rejected":      len(parsed.Errors),
		"failed_chunks": len(failed),
	})
	return ImportResult{Layout: parsed.Layout, Imported: inserted, Rejected: parsed.Errors, FailedChunks: failed}, nil
}

// Match links an unmatched bank transaction to an existing journal entry.
func (s *Service) Match(ctx context.Context, tenantID uuid.UUID, txID, entryID, actorID int64) (BankTransaction, error) {
	if tenantID == uuid.Nil {
		return BankTransaction{}, ledger.ErrTenantRequired
	}
	entry, err := s.entries.Get(ctx, tenantID, entryID)
	if err != nil {
		return BankTransaction{}, err
	}
	if entry.Status != ledger.EntryStatusPosted {
		return BankTransaction{}, fmt.Errorf("recon: entry %s is %s: %w", entry.EntryNumber(), entry.Status, ledger.ErrInvalidStatus)
	}
	if err := s.repo.Match(ctx, tenantID, txID, entryID, actorID, s.now()); err != nil {
		return BankTransaction{}, err
	}
	s.record(ctx, tenantID, actorID, "recon.match", fmt.Sprintf("%d", txID), map[string]any{"entry_id": entryID})
	return s.repo.Get(ctx, tenantID, txID)
}

// Unmatch reverts a matched or reconciled transaction to unmatched. A
// reconciled row loses both its match and its reconcile stamps; the explicit
// unmatch is the one way back out of reconciled.
func (s *Service) Unmatch(ctx context.Context, tenantID uuid.UUID, txID, actorID int64) (BankTransaction, error) {
	if tenantID == uuid.Nil {
		return BankTransaction{}, ledger.ErrTenantRequired
	}
	if _, err := s.repo.Get(ctx, tenantID, txID); err != nil {
		return BankTransaction{}, err
	}
	if err := s.repo.Unmatch(ctx, tenantID, txID); err != nil {
		return BankTransaction{}, err
	}
	s.record(ctx, tenantID, actorID, "recon.unmatch", fmt.Sprintf("%d", txID), nil)
	return s.repo.Get(ctx, tenantID, txID)
}

// Reconcile stamps one transaction reconciled, from either unmatched or
// matched.
func (s *Service) Reconcile(ctx context.Context, tenantID uuid.UUID, txID, actorID int64) (BankTransaction, error) {
	if tenantID == uuid.Nil {
		return BankTransaction{}, ledger.ErrTenantRequired
	}
	if err := s.reconcileOne(ctx, tenantID, txID, actorID, s.now()); err != nil {
		return BankTransaction{}, err
	}
	s.record(ctx, tenantID, actorID, "recon.reconcile", fmt.Sprintf("%d", txID), nil)
	return s.repo.Get(ctx, tenantID, txID)
}

// ReconcileOutcome reports one transaction of a bulk reconcile.
type ReconcileOutcome struct {
	ID     int64
	Status TxStatus
	Err    error
}

// ReconcileBulk stamps each listed transaction reconciled, reporting per-item
// outcomes. A bad id does not abort the rest of the batch.
func (s *Service) ReconcileBulk(ctx context.Context, tenantID uuid.UUID, txIDs []int64, actorID int64) ([]ReconcileOutcome, error) {
	if tenantID == uuid.Nil {
		return nil, ledger.ErrTenantRequired
	}
	at := s.now()
	out := make([]ReconcileOutcome, 0, len(txIDs))
	reconciled := 0
	for _, id := range txIDs {
		if err := s.reconcileOne(ctx, tenantID, id, actorID, at); err != nil {
			out = append(out, ReconcileOutcome{ID: id, Err: err})
			continue
		}
		out = append(out, ReconcileOutcome{ID: id, Status: StatusReconciled})
		reconciled++
	}
	s.record(ctx, tenantID, actorID, "recon.reconcile_bulk", "batch", map[string]any{
		"requested":  len(txIDs),
		"reconciled": reconciled,
	})
	return out, nil
}

// reconcileOne distinguishes a missing row from an already-reconciled one,
// which the guarded update alone cannot tell apart.
func (s *Service) reconcileOne(ctx context.Context, tenantID uuid.UUID, txID, actorID int64, at time.Time) error {
	err := s.repo.Reconcile(ctx, tenantID, txID, actorID, at)
	if errors.Is(err, ErrAlreadyReconciled) {
		if _, getErr := s.repo.Get(ctx, tenantID, txID); errors.Is(getErr, ErrTxNotFound) {
			return getErr
		}
	}
	return err
}

// List returns bank transactions, optionally filtered by status.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, status *TxStatus, limit int) ([]BankTransaction, error) {
	if tenantID == uuid.Nil {
		return nil, ledger.ErrTenantRequired
	}
	return s.repo.List(ctx, tenantID, status, limit)
}

// Summary returns the tenant's reconciliation position.
func (s *Service) Summary(ctx context.Context, tenantID uuid.UUID) (Summary, error) {
	if tenantID == uuid.Nil {
		return Summary{}, ledger.ErrTenantRequired
	}
	return s.repo.Summarize(ctx, tenantID)
}

func (s *Service) record(ctx context.Context, tenantID uuid.UUID, actorID int64, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   action,
		Entity:   "bank_transaction",
		EntityID: entityID,
		Meta:     meta,
		At:       s.now(),
	})
}
