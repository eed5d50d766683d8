package recon

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

type stubRepo struct {
	txs          map[int64]*BankTransaction
	nextID       int64
	failedChunks []ChunkError
}

func newStubRepo() *stubRepo {
	return &stubRepo{txs: make(map[int64]*BankTransaction)}
}

func (r *stubRepo) BulkInsert(ctx context.Context, tenantID uuid.UUID, txs []ParsedTransaction) (int, []ChunkError) {
	for _, tx := range txs {
		r.nextID++
		r.txs[r.nextID] = &BankTransaction{
			ID: r.nextID, TenantID: tenantID, Date: tx.Date, Reference: tx.Reference,
			Description: tx.Description, Amount: tx.Amount, Balance: tx.Balance, Status: StatusUnmatched,
		}
	}
	return len(txs), r.failedChunks
}

func (r *stubRepo) Get(ctx context.Context, tenantID uuid.UUID, id int64) (BankTransaction, error) {
	tx, ok := r.txs[id]
	if !ok {
		return BankTransaction{}, ErrTxNotFound
	}
	return *tx, nil
}

func (r *stubRepo) List(ctx context.Context, tenantID uuid.UUID, status *TxStatus, limit int) ([]BankTransaction, error) {
	var out []BankTransaction
	for _, tx := range r.txs {
		if status == nil || tx.Status == *status {
			out = append(out, *tx)
		}
	}
	return out, nil
}

func (r *stubRepo) Match(ctx context.Context, tenantID uuid.UUID, id, entryID, actorID int64, at time.Time) error {
	tx, ok := r.txs[id]
	if !ok || tx.Status != StatusUnmatched {
		return ErrNotUnmatched
	}
	tx.Status = StatusMatched
	tx.MatchedEntryID = &entryID
	tx.MatchedBy = &actorID
	tx.MatchedAt = &at
	return nil
}

func (r *stubRepo) Unmatch(ctx context.Context, tenantID uuid.UUID, id int64) error {
	tx, ok := r.txs[id]
	if !ok || tx.Status == StatusUnmatched {
		return ErrNotMatched
	}
	tx.Status = StatusUnmatched
	tx.MatchedEntryID = nil
	tx.MatchedBy = nil
	tx.MatchedAt = nil
	tx.ReconciledBy = nil
	tx.ReconciledAt = nil
	return nil
}

func (r *stubRepo) Reconcile(ctx context.Context, tenantID uuid.UUID, id, actorID int64, at time.Time) error {
	tx, ok := r.txs[id]
	if !ok || tx.Status == StatusReconciled {
		return ErrAlreadyReconciled
	}
	tx.Status = StatusReconciled
	tx.ReconciledBy = &actorID
	tx.ReconciledAt = &at
	return nil
}

func (r *stubRepo) Summarize(ctx context.Context, tenantID uuid.UUID) (Summary, error) {
	var s Summary
	for _, tx := range r.txs {
		if tx.Amount > 0 {
			s.Deposits += tx.Amount
		} else if tx.Amount < 0 {
			s.Withdrawals += tx.Amount
		}
		switch tx.Status {
		case StatusUnmatched:
			s.Unmatched++
			s.UnmatchedAmount += tx.Amount
		case StatusMatched:
			s.Matched++
		case StatusReconciled:
			s.Reconciled++
		}
	}
	return s, nil
}

type stubEntries struct {
	entries map[int64]ledger.JournalEntry
}

func (e *stubEntries) Get(ctx context.Context, tenantID uuid.UUID, entryID int64) (ledger.JournalEntry, error) {
	entry, ok := e.entries[entryID]
	if !ok {
		return ledger.JournalEntry{}, ledger.ErrEntryNotFound
	}
	return entry, nil
}

var testTenant = uuid.New()

func importFixture(t *testing.T, repo *stubRepo, entries *stubEntries) *Service {
	t.Helper()
	service := NewService(repo, entries, nil)
	csv := `Date,Description,Amount
2024-01-15,Office rent,-250.00
2024-01-16,Client payment,1200.00`
	result, err := service.ImportStatement(context.Background(), testTenant, strings.NewReader(csv), 7)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Imported != 2 {
		t.Fatalf("expected 2 imported, got %d", result.Imported)
	}
	return service
}

func TestImportThenMatchThenReconcile(t *testing.T) {
	repo := newStubRepo()
	entries := &stubEntries{entries: map[int64]ledger.JournalEntry{
		42: {ID: 42, FiscalYear: 2024, Seq: 1, Status: ledger.EntryStatusPosted},
	}}
	service := importFixture(t, repo, entries)
	ctx := context.Background()

	matched, err := service.Match(ctx, testTenant, 1, 42, 7)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if matched.Status != StatusMatched || matched.MatchedEntryID == nil || *matched.MatchedEntryID != 42 {
		t.Fatalf("unexpected matched state %+v", matched)
	}

	reconciled, err := service.Reconcile(ctx, testTenant, 1, 7)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if reconciled.Status != StatusReconciled {
		t.Fatalf("expected reconciled, got %s", reconciled.Status)
	}

	summary, err := service.Summary(ctx, testTenant)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Reconciled != 1 || summary.Unmatched != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.UnmatchedAmount != 120000 {
		t.Fatalf("unexpected unmatched amount %d", summary.UnmatchedAmount)
	}
	if summary.Deposits != 120000 || summary.Withdrawals != -25000 {
		t.Fatalf("unexpected deposit/withdrawal totals %d/%d", summary.Deposits, summary.Withdrawals)
	}
}

func TestImportReportsFailedChunksWithoutFailingCall(t *testing.T) {
	repo := newStubRepo()
	repo.failedChunks = []ChunkError{{Offset: 500, Rows: 120, Err: errors.New("connection reset")}}
	service := NewService(repo, &stubEntries{entries: map[int64]ledger.JournalEntry{}}, nil)

	csv := `Date,Description,Amount
2024-01-15,Office rent,-250.00
2024-01-16,Client payment,1200.00`
	result, err := service.ImportStatement(context.Background(), testTenant, strings.NewReader(csv), 7)
	if err != nil {
		t.Fatalf("a failed chunk must not fail the import: %v", err)
	}
	if result.Imported != 2 {
		t.Fatalf("committed chunks must stay reported, got %d", result.Imported)
	}
	if len(result.FailedChunks) != 1 || result.FailedChunks[0].Offset != 500 {
		t.Fatalf("unexpected failed chunks %+v", result.FailedChunks)
	}
}

func TestMatchRequiresPostedEntry(t *testing.T) {
	repo := newStubRepo()
	entries := &stubEntries{entries: map[int64]ledger.JournalEntry{
		42: {ID: 42, Status: ledger.EntryStatusVoid},
	}}
	service := importFixture(t, repo, entries)

	if _, err := service.Match(context.Background(), testTenant, 1, 42, 7); !errors.Is(err, ledger.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus for void entry, got %v", err)
	}
	if _, err := service.Match(context.Background(), testTenant, 1, 99, 7); !errors.Is(err, ledger.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestMatchTwiceRejected(t *testing.T) {
	repo := newStubRepo()
	entries := &stubEntries{entries: map[int64]ledger.JournalEntry{
		42: {ID: 42, Status: ledger.EntryStatusPosted},
	}}
	service := importFixture(t, repo, entries)
	ctx := context.Background()

	if _, err := service.Match(ctx, testTenant, 1, 42, 7); err != nil {
		t.Fatalf("first match: %v", err)
	}
	if _, err := service.Match(ctx, testTenant, 1, 42, 7); !errors.Is(err, ErrNotUnmatched) {
		t.Fatalf("expected ErrNotUnmatched, got %v", err)
	}
}

func TestUnmatchRevertsMatchedAndReconciledRows(t *testing.T) {
	repo := newStubRepo()
	entries := &stubEntries{entries: map[int64]ledger.JournalEntry{
		42: {ID: 42, Status: ledger.EntryStatusPosted},
	}}
	service := importFixture(t, repo, entries)
	ctx := context.Background()

	if _, err := service.Match(ctx, testTenant, 1, 42, 7); err != nil {
		t.Fatalf("match: %v", err)
	}
	reverted, err := service.Unmatch(ctx, testTenant, 1, 7)
	if err != nil {
		t.Fatalf("unmatch: %v", err)
	}
	if reverted.Status != StatusUnmatched || reverted.MatchedEntryID != nil {
		t.Fatalf("unexpected state after unmatch %+v", reverted)
	}

	if _, err := service.Match(ctx, testTenant, 1, 42, 7); err != nil {
		t.Fatalf("rematch: %v", err)
	}
	if _, err := service.Reconcile(ctx, testTenant, 1, 7); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	reverted, err = service.Unmatch(ctx, testTenant, 1, 7)
	if err != nil {
		t.Fatalf("unmatch of reconciled row: %v", err)
	}
	if reverted.Status != StatusUnmatched || reverted.ReconciledBy != nil || reverted.ReconciledAt != nil {
		t.Fatalf("reconcile stamps must clear on unmatch, got %+v", reverted)
	}

	if _, err := service.Unmatch(ctx, testTenant, 1, 7); !errors.Is(err, ErrNotMatched) {
		t.Fatalf("expected ErrNotMatched for an already-unmatched row, got %v", err)
	}
}

func TestReconcileLegalFromUnmatched(t *testing.T) {
	repo := newStubRepo()
	service := importFixture(t, repo, &stubEntries{entries: map[int64]ledger.JournalEntry{}})

	reconciled, err := service.Reconcile(context.Background(), testTenant, 1, 7)
	if err != nil {
		t.Fatalf("reconcile from unmatched: %v", err)
	}
	if reconciled.Status != StatusReconciled {
		t.Fatalf("expected reconciled, got %s", reconciled.Status)
	}

	if _, err := service.Reconcile(context.Background(), testTenant, 1, 7); !errors.Is(err, ErrAlreadyReconciled) {
		t.Fatalf("expected ErrAlreadyReconciled, got %v", err)
	}
	if _, err := service.Reconcile(context.Background(), testTenant, 99, 7); !errors.Is(err, ErrTxNotFound) {
		t.Fatalf("expected ErrTxNotFound, got %v", err)
	}
}

func TestReconcileBulkReportsPerItemOutcomes(t *testing.T) {
	repo := newStubRepo()
	entries := &stubEntries{entries: map[int64]ledger.JournalEntry{
		42: {ID: 42, Status: ledger.EntryStatusPosted},
	}}
	service := importFixture(t, repo, entries)
	ctx := context.Background()

	if _, err := service.Match(ctx, testTenant, 1, 42, 7); err != nil {
		t.Fatalf("match: %v", err)
	}

	outcomes, err := service.ReconcileBulk(ctx, testTenant, []int64{1, 2, 99}, 7)
	if err != nil {
		t.Fatalf("bulk reconcile: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Err != nil || outcomes[0].Status != StatusReconciled {
		t.Fatalf("matched row must reconcile, got %+v", outcomes[0])
	}
	if outcomes[1].Err != nil || outcomes[1].Status != StatusReconciled {
		t.Fatalf("unmatched row must reconcile, got %+v", outcomes[1])
	}
	if !errors.Is(outcomes[2].Err, ErrTxNotFound) {
		t.Fatalf("missing row must report ErrTxNotFound, got %+v", outcomes[2])
	}
}
