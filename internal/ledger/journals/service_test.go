package journals

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

// memRepo implements RepositoryPort in memory. WithTx holds a mutex for the
// duration of the callback, mirroring the row-lock serialization the real
// repository gets from the database.
type memRepo struct {
	mu          sync.Mutex
	periods     []ledger.Period
	entries     map[int64]*ledger.JournalEntry
	ledgerRows  []ledger.LedgerEntry
	seqs        map[int]int64
	links       map[string]int64
	nextEntryID int64
	nextLineID  int64
}

func newMemRepo(periods ...ledger.Period) *memRepo {
	return &memRepo{
		periods: periods,
		entries: make(map[int64]*ledger.JournalEntry),
		seqs:    make(map[int]int64),
		links:   make(map[string]int64),
	}
}

func (r *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx, &memTx{repo: r})
}

type memTx struct {
	repo *memRepo
}

func (t *memTx) FindPeriodForUpdate(ctx context.Context, tenantID uuid.UUID, date time.Time) (ledger.Period, error) {
	for _, p := range t.repo.periods {
		if !date.Before(p.StartDate) && !date.After(p.EndDate) {
			return p, nil
		}
	}
	return ledger.Period{}, ledger.ErrInvalidPeriod
}

func (t *memTx) GetPeriodForUpdate(ctx context.Context, tenantID uuid.UUID, periodID int64) (ledger.Period, error) {
	for _, p := range t.repo.periods {
		if p.ID == periodID {
			return p, nil
		}
	}
	return ledger.Period{}, ledger.ErrInvalidPeriod
}

func (t *memTx) NextOpenPeriodAfter(ctx context.Context, tenantID uuid.UUID, date time.Time) (ledger.Period, error) {
	var best *ledger.Period
	for i, p := range t.repo.periods {
		if p.Status != ledger.PeriodStatusOpen || p.StartDate.Before(date) {
			continue
		}
		if best == nil || p.StartDate.Before(best.StartDate) {
			best = &t.repo.periods[i]
		}
	}
	if best == nil {
		return ledger.Period{}, ledger.ErrInvalidPeriod
	}
	return *best, nil
}

func (t *memTx) NextSeq(ctx context.Context, tenantID uuid.UUID, fiscalYear int) (int64, error) {
	t.repo.seqs[fiscalYear]++
	return t.repo.seqs[fiscalYear], nil
}

func (t *memTx) InsertEntry(ctx context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error) {
	t.repo.nextEntryID++
	entry.ID = t.repo.nextEntryID
	copied := entry
	t.repo.entries[entry.ID] = &copied
	return entry, nil
}

func (t *memTx) InsertLines(ctx context.Context, entryID int64, lines []ledger.PostingLineInput) ([]ledger.JournalLine, error) {
	out := make([]ledger.JournalLine, 0, len(lines))
	for _, line := range lines {
		t.repo.nextLineID++
		out = append(out, ledger.JournalLine{
			ID: t.repo.nextLineID, EntryID: entryID, AccountID: line.AccountID,
			Debit: line.Debit, Credit: line.Credit, Description: line.Description,
		})
	}
	if stored, ok := t.repo.entries[entryID]; ok {
		stored.Lines = out
	}
	return out, nil
}

func (t *memTx) InsertLedgerEntries(ctx context.Context, entry ledger.JournalEntry, lines []ledger.JournalLine) error {
	for _, line := range lines {
		t.repo.ledgerRows = append(t.repo.ledgerRows, ledger.LedgerEntry{
			TenantID: entry.TenantID, EntryID: entry.ID, LineID: line.ID, AccountID: line.AccountID,
			EntryDate: entry.Date, FiscalYear: entry.FiscalYear, FiscalPeriod: entry.FiscalPeriod,
			Seq: entry.Seq, Debit: line.Debit, Credit: line.Credit,
		})
	}
	return nil
}

func (t *memTx) LinkSource(ctx context.Context, tenantID uuid.UUID, source ledger.EntrySource, sourceID uuid.UUID, entryID int64) error {
	key := string(source) + "/" + sourceID.String()
	if _, ok := t.repo.links[key]; ok {
		return ledger.ErrSourceAlreadyLinked
	}
	t.repo.links[key] = entryID
	return nil
}

func (t *memTx) GetEntryWithLines(ctx context.Context, tenantID uuid.UUID, entryID int64) (ledger.JournalEntry, error) {
	entry, ok := t.repo.entries[entryID]
	if !ok {
		return ledger.JournalEntry{}, ledger.ErrEntryNotFound
	}
	return *entry, nil
}

func (t *memTx) MarkVoid(ctx context.Context, tenantID uuid.UUID, entryID int64, actorID int64, reason string, at time.Time) error {
	entry, ok := t.repo.entries[entryID]
	if !ok {
		return ledger.ErrEntryNotFound
	}
	entry.Status = ledger.EntryStatusVoid
	entry.VoidedBy = &actorID
	entry.VoidedAt = &at
	entry.VoidReason = reason
	return nil
}

func (t *memTx) MarkDraftPosted(ctx context.Context, tenantID uuid.UUID, entry ledger.JournalEntry) error {
	stored, ok := t.repo.entries[entry.ID]
	if !ok || stored.Status != ledger.EntryStatusDraft {
		return ledger.ErrInvalidStatus
	}
	lines := stored.Lines
	*stored = entry
	stored.Lines = lines
	return nil
}

var testTenant = uuid.New()

func openPeriod(id int64, year, month int) ledger.Period {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return ledger.Period{
		ID: id, TenantID: testTenant, FiscalYear: year, Period: month,
		StartDate: start, EndDate: start.AddDate(0, 1, -1), Status: ledger.PeriodStatusOpen,
	}
}

func balancedInput(date time.Time, amount ledger.Money) ledger.PostingInput {
	return ledger.PostingInput{
		Date:        date,
		Description: "rent",
		Source:      ledger.SourceManual,
		SourceID:    uuid.New(),
		PostedBy:    3,
		Lines: []ledger.PostingLineInput{
			{AccountID: 10, Debit: amount},
			{AccountID: 20, Credit: amount},
		},
	}
}

func TestPostMaterializesEntryAndLedgerRows(t *testing.T) {
	repo := newMemRepo(openPeriod(1, 2024, 3))
	service := NewService(repo, nil, nil)

	entry, err := service.Post(context.Background(), testTenant, balancedInput(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), 25000))
	require.NoError(t, err)
	require.Equal(t, ledger.EntryStatusPosted, entry.Status)
	require.Equal(t, "JE-2024-00001", entry.EntryNumber())
	require.Equal(t, ledger.Money(25000), entry.TotalDebit)
	require.Equal(t, entry.TotalDebit, entry.TotalCredit)
	require.Len(t, repo.ledgerRows, 2)
	for _, row := range repo.ledgerRows {
		require.Equal(t, entry.ID, row.EntryID)
	}
}

func TestPostRejectsClosedAndLockedPeriods(t *testing.T) {
	closed := openPeriod(1, 2024, 1)
	closed.Status = ledger.PeriodStatusClosed
	locked := openPeriod(2, 2024, 2)
	locked.Status = ledger.PeriodStatusLocked
	repo := newMemRepo(closed, locked)
	service := NewService(repo, nil, nil)

	_, err := service.Post(context.Background(), testTenant, balancedInput(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), 100))
	require.ErrorIs(t, err, ledger.ErrPeriodClosed)

	_, err = service.Post(context.Background(), testTenant, balancedInput(time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), 100))
	require.ErrorIs(t, err, ledger.ErrPeriodLocked)
	require.Empty(t, repo.entries, "rejected postings must leave no artifacts")
}

func TestPostRejectsUnbalancedBeforeAnyWrite(t *testing.T) {
	repo := newMemRepo(openPeriod(1, 2024, 3))
	service := NewService(repo, nil, nil)
	in := balancedInput(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), 15000)
	in.Lines = []ledger.PostingLineInput{
		{AccountID: 10, Debit: 10000},
		{AccountID: 11, Debit: 5000},
		{AccountID: 20, Credit: 14000},
	}
	_, err := service.Post(context.Background(), testTenant, in)
	require.ErrorIs(t, err, ledger.ErrUnbalanced)
	require.Empty(t, repo.entries)
	require.Empty(t, repo.ledgerRows)
}

func TestSequentialNumbersHaveNoGaps(t *testing.T) {
	repo := newMemRepo(openPeriod(1, 2024, 3))
	service := NewService(repo, nil, nil)
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 5; i++ {
		entry, err := service.Post(context.Background(), testTenant, balancedInput(date, 100))
		require.NoError(t, err)
		require.Equal(t, int64(i), entry.Seq)
	}
}

func TestConcurrentPostersGetUniqueNumbers(t *testing.T) {
	repo := newMemRepo(openPeriod(1, 2024, 3))
	service := NewService(repo, nil, nil)
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	const posters = 32
	seqs := make(chan int64, posters)
	var wg sync.WaitGroup
	for i := 0; i < posters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry, err := service.Post(context.Background(), testTenant, balancedInput(date, 100))
			if err != nil {
				t.Error(err)
				return
			}
			seqs <- entry.Seq
		}()
	}
	wg.Wait()
	close(seqs)

	seen := make([]int64, 0, posters)
	for seq := range seqs {
		seen = append(seen, seq)
	}
	require.Len(t, seen, posters)
	sort.Slice(seen, func(i, j int) bool { return seen[i] < seen[j] })
	for i, seq := range seen {
		require.Equal(t, int64(i+1), seq, "numbers must be unique and gap-free")
	}
}

func TestVoidKeepsLedgerRowsForAudit(t *testing.T) {
	repo := newMemRepo(openPeriod(1, 2024, 3))
	service := NewService(repo, nil, nil)
	entry, err := service.Post(context.Background(), testTenant, balancedInput(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), 25000))
	require.NoError(t, err)

	voided, err := service.Void(context.Background(), testTenant, VoidInput{EntryID: entry.ID, ActorID: 9, Reason: "entered twice"})
	require.NoError(t, err)
	require.Equal(t, ledger.EntryStatusVoid, voided.Status)
	require.Equal(t, "entered twice", voided.VoidReason)
	require.Len(t, repo.ledgerRows, 2, "void must not delete ledger rows")

	_, err = service.Void(context.Background(), testTenant, VoidInput{EntryID: entry.ID, ActorID: 9, Reason: "again"})
	require.ErrorIs(t, err, ledger.ErrAlreadyVoid)
}

func TestVoidRejectedInClosedPeriod(t *testing.T) {
	repo := newMemRepo(openPeriod(1, 2024, 3))
	service := NewService(repo, nil, nil)
	entry, err := service.Post(context.Background(), testTenant, balancedInput(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), 100))
	require.NoError(t, err)

	repo.periods[0].Status = ledger.PeriodStatusClosed
	_, err = service.Void(context.Background(), testTenant, VoidInput{EntryID: entry.ID, ActorID: 9, Reason: "late"})
	require.ErrorIs(t, err, ledger.ErrPeriodClosed)
}

func TestReverseSwapsLinesAndLeavesOriginalUntouched(t *testing.T) {
	march := openPeriod(1, 2024, 3)
	april := openPeriod(2, 2024, 4)
	repo := newMemRepo(march, april)
	service := NewService(repo, nil, nil)

	original, err := service.Post(context.Background(), testTenant, balancedInput(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), 25000))
	require.NoError(t, err)

	repo.periods[0].Status = ledger.PeriodStatusClosed

	reversal, err := service.Reverse(context.Background(), testTenant, ReverseInput{EntryID: original.ID, ActorID: 9, Reason: "wrong account"})
	require.NoError(t, err)
	require.NotNil(t, reversal.ReversesID)
	require.Equal(t, original.ID, *reversal.ReversesID)
	require.Equal(t, april.StartDate, reversal.Date, "reversal must land in the next open period")
	require.Equal(t, ledger.Money(25000), reversal.TotalDebit)

	require.Equal(t, reversal.Lines[0].Debit, original.Lines[0].Credit)
	require.Equal(t, reversal.Lines[0].Credit, original.Lines[0].Debit)
	require.Equal(t, reversal.Lines[1].Debit, original.Lines[1].Credit)

	stored := repo.entries[original.ID]
	require.Equal(t, ledger.EntryStatusPosted, stored.Status, "original entry must stay posted")
	require.Equal(t, original.Date, stored.Date)
	require.Equal(t, original.TotalDebit, stored.TotalDebit)
}

func TestReverseHonorsAdjustmentDateInOpenPeriod(t *testing.T) {
	january := openPeriod(1, 2024, 1)
	june := openPeriod(6, 2024, 6)
	repo := newMemRepo(january, june)
	service := NewService(repo, nil, nil)

	original, err := service.Post(context.Background(), testTenant, balancedInput(time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC), 25000))
	require.NoError(t, err)

	repo.periods[0].Status = ledger.PeriodStatusClosed

	adjustment := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	reversal, err := service.Reverse(context.Background(), testTenant, ReverseInput{
		EntryID: original.ID, ActorID: 9, Reason: "late correction", TargetDate: &adjustment,
	})
	require.NoError(t, err)
	require.Equal(t, adjustment, reversal.Date, "an adjustment date in an open period must be kept")
	require.Equal(t, 6, reversal.FiscalPeriod)
}

func TestReverseRedatesAdjustmentDateInClosedPeriod(t *testing.T) {
	january := openPeriod(1, 2024, 1)
	june := openPeriod(6, 2024, 6)
	repo := newMemRepo(january, june)
	service := NewService(repo, nil, nil)

	original, err := service.Post(context.Background(), testTenant, balancedInput(time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC), 100))
	require.NoError(t, err)

	repo.periods[0].Status = ledger.PeriodStatusClosed

	adjustment := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	reversal, err := service.Reverse(context.Background(), testTenant, ReverseInput{
		EntryID: original.ID, ActorID: 9, TargetDate: &adjustment,
	})
	require.NoError(t, err)
	require.Equal(t, june.StartDate, reversal.Date, "a closed-period adjustment date moves to the next open period")
}

func TestReverseLockedPeriodRequiresOverride(t *testing.T) {
	march := openPeriod(1, 2024, 3)
	april := openPeriod(2, 2024, 4)
	repo := newMemRepo(march, april)
	service := NewService(repo, nil, nil)

	original, err := service.Post(context.Background(), testTenant, balancedInput(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), 100))
	require.NoError(t, err)

	repo.periods[0].Status = ledger.PeriodStatusLocked

	_, err = service.Reverse(context.Background(), testTenant, ReverseInput{EntryID: original.ID, ActorID: 9})
	require.ErrorIs(t, err, ledger.ErrPeriodLocked)

	reversal, err := service.Reverse(context.Background(), testTenant, ReverseInput{EntryID: original.ID, ActorID: 9, Override: true})
	require.NoError(t, err)
	require.Equal(t, april.StartDate, reversal.Date)
}

func TestPostDraftAllocatesNumberAtPostTime(t *testing.T) {
	repo := newMemRepo(openPeriod(1, 2024, 3))
	service := NewService(repo, nil, nil)
	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	draft, err := service.SaveDraft(context.Background(), testTenant, balancedInput(date, 5000))
	require.NoError(t, err)
	require.Equal(t, ledger.EntryStatusDraft, draft.Status)
	require.Zero(t, draft.Seq)
	require.Empty(t, repo.ledgerRows, "drafts must not touch the general ledger")

	_, err = service.Post(context.Background(), testTenant, balancedInput(date, 100))
	require.NoError(t, err)

	posted, err := service.PostDraft(context.Background(), testTenant, draft.ID, 9)
	require.NoError(t, err)
	require.Equal(t, int64(2), posted.Seq)
	require.Equal(t, ledger.EntryStatusPosted, posted.Status)
	require.Len(t, repo.ledgerRows, 4)

	_, err = service.PostDraft(context.Background(), testTenant, draft.ID, 9)
	require.ErrorIs(t, err, ledger.ErrInvalidStatus)
}

func TestDuplicateSourceRejected(t *testing.T) {
	repo := newMemRepo(openPeriod(1, 2024, 3))
	service := NewService(repo, nil, nil)
	in := balancedInput(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), 100)

	_, err := service.Post(context.Background(), testTenant, in)
	require.NoError(t, err)

	_, err = service.Post(context.Background(), testTenant, in)
	require.True(t, errors.Is(err, ledger.ErrSourceAlreadyLinked))
}
