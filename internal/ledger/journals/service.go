// Package journals implements the posting engine: balanced entry validation,
// race-free entry numbering, atomic general ledger materialization, voiding,
// and period-safe correction via reversing entries.
package journals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheInvalidator drops derived report caches after a write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, tenantID uuid.UUID)
}

// Service coordinates posting, voiding, and reversing journal entries.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	cache CacheInvalidator
	now   func() time.Time
}

// NewService constructs the posting engine.
func NewService(repo RepositoryPort, audit AuditPort, cache CacheInvalidator) *Service {
	return &Service{repo: repo, audit: audit, cache: cache, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// VoidInput wraps parameters for voiding.
type VoidInput struct {
	EntryID int64
	ActorID int64
	Reason  string
}

// ReverseInput wraps parameters for a reversing entry.
type ReverseInput struct {
	EntryID    int64
	ActorID    int64
	Reason     string
	TargetDate *time.Time
	Override   bool
}

// Post validates and persists a new journal entry, materializing its general
// ledger rows in the same transaction.
func (s *Service) Post(ctx context.Context, tenantID uuid.UUID, input ledger.PostingInput) (ledger.JournalEntry, error) {
	if tenantID == uuid.Nil {
		return ledger.JournalEntry{}, ledger.ErrTenantRequired
	}
	if err := input.Validate(); err != nil {
		return ledger.JournalEntry{}, err
	}
	var entry ledger.JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = s.postLocked(ctx, tx, tenantID, input)
		return err
	})
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	s.invalidate(ctx, tenantID)
	s.record(ctx, tenantID, input.PostedBy, "journal.post", entry.ID, map[string]any{
		"number":    entry.EntryNumber(),
		"source":    string(input.Source),
		"source_id": input.SourceID.String(),
	})
	return entry, nil
}

// postLocked runs the shared posting path inside an open transaction: period
// resolution and status check, number allocation, entry + lines + ledger rows.
func (s *Service) postLocked(ctx context.Context, tx TxRepository, tenantID uuid.UUID, input ledger.PostingInput) (ledger.JournalEntry, error) {
	period, err := tx.FindPeriodForUpdate(ctx, tenantID, input.Date)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	if err := periodOpenForPosting(period); err != nil {
		return ledger.JournalEntry{}, err
	}
	seq, err := tx.NextSeq(ctx, tenantID, period.FiscalYear)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	debit, credit := input.Totals()
	postedAt := s.now()
	entry, err := tx.InsertEntry(ctx, ledger.JournalEntry{
		TenantID:     tenantID,
		FiscalYear:   period.FiscalYear,
		FiscalPeriod: period.Period,
		Seq:          seq,
		PeriodID:     period.ID,
		Date:         input.Date,
		Description:  input.Description,
		Source:       input.Source,
		SourceID:     input.SourceID,
		TotalDebit:   debit,
		TotalCredit:  credit,
		Status:       ledger.EntryStatusPosted,
		PostedBy:     input.PostedBy,
		PostedAt:     &postedAt,
		ReversesID:   input.ReversesID,
	})
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	lines, err := tx.InsertLines(ctx, entry.ID, input.Lines)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	if err := tx.InsertLedgerEntries(ctx, entry, lines); err != nil {
		return ledger.JournalEntry{}, err
	}
	if err := tx.LinkSource(ctx, tenantID, input.Source, input.SourceID, entry.ID); err != nil {
		return ledger.JournalEntry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

func periodOpenForPosting(period ledger.Period) error {
	switch period.Status {
	case ledger.PeriodStatusOpen:
		return nil
	case ledger.PeriodStatusClosed:
		return fmt.Errorf("journals: period %d/%02d: %w", period.FiscalYear, period.Period, ledger.ErrPeriodClosed)
	case ledger.PeriodStatusLocked:
		return fmt.Errorf("journals: period %d/%02d: %w", period.FiscalYear, period.Period, ledger.ErrPeriodLocked)
	}
	return ledger.ErrInvalidPeriod
}

// SaveDraft stores a validated entry without number allocation or ledger
// rows. Drafts block the close of the period their date falls into.
func (s *Service) SaveDraft(ctx context.Context, tenantID uuid.UUID, input ledger.PostingInput) (ledger.JournalEntry, error) {
	if tenantID == uuid.Nil {
		return ledger.JournalEntry{}, ledger.ErrTenantRequired
	}
	if err := input.Validate(); err != nil {
		return ledger.JournalEntry{}, err
	}
	var entry ledger.JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period, err := tx.FindPeriodForUpdate(ctx, tenantID, input.Date)
		if err != nil {
			return err
		}
		debit, credit := input.Totals()
		entry, err = tx.InsertEntry(ctx, ledger.JournalEntry{
			TenantID:     tenantID,
			FiscalYear:   period.FiscalYear,
			FiscalPeriod: period.Period,
			PeriodID:     period.ID,
			Date:         input.Date,
			Description:  input.Description,
			Source:       input.Source,
			SourceID:     input.SourceID,
			TotalDebit:   debit,
			TotalCredit:  credit,
			Status:       ledger.EntryStatusDraft,
			PostedBy:     input.PostedBy,
		})
		if err != nil {
			return err
		}
		lines, err := tx.InsertLines(ctx, entry.ID, input.Lines)
		if err != nil {
			return err
		}
		entry.Lines = lines
		return nil
	})
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	s.record(ctx, tenantID, input.PostedBy, "journal.draft", entry.ID, nil)
	return entry, nil
}

// PostDraft promotes a draft through the full posting path: the period is
// re-resolved at post time, the number is allocated now, and ledger rows are
// materialized atomically with the status change.
func (s *Service) PostDraft(ctx context.Context, tenantID uuid.UUID, entryID int64, actorID int64) (ledger.JournalEntry, error) {
	if tenantID == uuid.Nil {
		return ledger.JournalEntry{}, ledger.ErrTenantRequired
	}
	var entry ledger.JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		draft, err := tx.GetEntryWithLines(ctx, tenantID, entryID)
		if err != nil {
			return err
		}
		if draft.Status != ledger.EntryStatusDraft {
			return ledger.ErrInvalidStatus
		}
		period, err := tx.FindPeriodForUpdate(ctx, tenantID, draft.Date)
		if err != nil {
			return err
		}
		if err := periodOpenForPosting(period); err != nil {
			return err
		}
		seq, err := tx.NextSeq(ctx, tenantID, period.FiscalYear)
		if err != nil {
			return err
		}
		postedAt := s.now()
		draft.Seq = seq
		draft.PeriodID = period.ID
		draft.FiscalYear = period.FiscalYear
		draft.FiscalPeriod = period.Period
		draft.Status = ledger.EntryStatusPosted
		draft.PostedBy = actorID
		draft.PostedAt = &postedAt
		if err := tx.MarkDraftPosted(ctx, tenantID, draft); err != nil {
			return err
		}
		if err := tx.InsertLedgerEntries(ctx, draft, draft.Lines); err != nil {
			return err
		}
		if err := tx.LinkSource(ctx, tenantID, draft.Source, draft.SourceID, draft.ID); err != nil {
			return err
		}
		entry = draft
		return nil
	})
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	s.invalidate(ctx, tenantID)
	s.record(ctx, tenantID, actorID, "journal.post_draft", entry.ID, map[string]any{"number": entry.EntryNumber()})
	return entry, nil
}

// Void marks a posted entry VOID. Its general ledger rows are retained for
// audit and excluded from balances by the status filter. Entries in closed or
// locked periods cannot be voided; corrections go through Reverse.
func (s *Service) Void(ctx context.Context, tenantID uuid.UUID, input VoidInput) (ledger.JournalEntry, error) {
	if tenantID == uuid.Nil {
		return ledger.JournalEntry{}, ledger.ErrTenantRequired
	}
	if input.EntryID == 0 {
		return ledger.JournalEntry{}, errors.New("journals: entry id required")
	}
	var entry ledger.JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryWithLines(ctx, tenantID, input.EntryID)
		if err != nil {
			return err
		}
		switch current.Status {
		case ledger.EntryStatusVoid:
			return ledger.ErrAlreadyVoid
		case ledger.EntryStatusPosted:
		default:
			return ledger.ErrInvalidStatus
		}
		period, err := tx.GetPeriodForUpdate(ctx, tenantID, current.PeriodID)
		if err != nil {
			return err
		}
		if err := periodOpenForPosting(period); err != nil {
			return err
		}
		voidedAt := s.now()
		if err := tx.MarkVoid(ctx, tenantID, current.ID, input.ActorID, input.Reason, voidedAt); err != nil {
			return err
		}
		current.Status = ledger.EntryStatusVoid
		current.VoidedBy = &input.ActorID
		current.VoidedAt = &voidedAt
		current.VoidReason = input.Reason
		entry = current
		return nil
	})
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	s.invalidate(ctx, tenantID)
	s.record(ctx, tenantID, input.ActorID, "journal.void", entry.ID, map[string]any{"reason": input.Reason})
	return entry, nil
}

// Reverse creates a new entry with every line's debit and credit swapped,
// dated into an open period, linked back to the original. The original entry
// is left physically untouched; this is the only legal correction for
// closed-period history. An explicit target date is honored whenever its own
// period is open; otherwise the reversal lands on the first day of the next
// open period after the original's.
func (s *Service) Reverse(ctx context.Context, tenantID uuid.UUID, input ReverseInput) (ledger.JournalEntry, error) {
	if tenantID == uuid.Nil {
		return ledger.JournalEntry{}, ledger.ErrTenantRequired
	}
	if input.EntryID == 0 {
		return ledger.JournalEntry{}, errors.New("journals: entry id required")
	}
	var reversal ledger.JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetEntryWithLines(ctx, tenantID, input.EntryID)
		if err != nil {
			return err
		}
		if original.Status != ledger.EntryStatusPosted {
			return ledger.ErrInvalidStatus
		}
		period, err := tx.GetPeriodForUpdate(ctx, tenantID, original.PeriodID)
		if err != nil {
			return err
		}
		targetDate := original.Date
		if input.TargetDate != nil {
			targetDate = *input.TargetDate
		}
		if period.Status != ledger.PeriodStatusOpen {
			if period.Status == ledger.PeriodStatusLocked && !input.Override {
				return fmt.Errorf("journals: period %d/%02d: %w", period.FiscalYear, period.Period, ledger.ErrPeriodLocked)
			}
			redate := input.TargetDate == nil
			if !redate {
				target, err := tx.FindPeriodForUpdate(ctx, tenantID, targetDate)
				switch {
				case errors.Is(err, ledger.ErrInvalidPeriod):
					redate = true
				case err != nil:
					return err
				default:
					redate = target.Status != ledger.PeriodStatusOpen
				}
			}
			if redate {
				next, err := tx.NextOpenPeriodAfter(ctx, tenantID, period.EndDate.AddDate(0, 0, 1))
				if err != nil {
					return err
				}
				targetDate = next.StartDate
			}
		}
		posting := ledger.PostingInput{
			Date:        targetDate,
			Description: reversalDescription(input.Reason, original),
			Source:      ledger.SourceReversal,
			SourceID:    uuid.New(),
			PostedBy:    input.ActorID,
			ReversesID:  &original.ID,
			Lines:       reverseLines(original.Lines),
		}
		reversal, err = s.postLocked(ctx, tx, tenantID, posting)
		return err
	})
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	s.invalidate(ctx, tenantID)
	s.record(ctx, tenantID, input.ActorID, "journal.reverse", input.EntryID, map[string]any{
		"reversal_id":     reversal.ID,
		"reversal_number": reversal.EntryNumber(),
		"reason":          input.Reason,
	})
	return reversal, nil
}

func reverseLines(lines []ledger.JournalLine) []ledger.PostingLineInput {
	out := make([]ledger.PostingLineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, ledger.PostingLineInput{
			AccountID:   line.AccountID,
			Debit:       line.Credit,
			Credit:      line.Debit,
			Description: line.Description,
			Department:  line.Department,
			EmployeeID:  line.EmployeeID,
			ProjectID:   line.ProjectID,
		})
	}
	return out
}

func reversalDescription(reason string, original ledger.JournalEntry) string {
	if reason != "" {
		return reason
	}
	return fmt.Sprintf("Reversal of %s", original.EntryNumber())
}

func (s *Service) invalidate(ctx context.Context, tenantID uuid.UUID) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, tenantID)
	}
}

func (s *Service) record(ctx context.Context, tenantID uuid.UUID, actorID int64, action string, entryID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entryID),
		Meta:     meta,
		At:       s.now(),
	})
}
