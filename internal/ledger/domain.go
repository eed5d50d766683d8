// Package ledger defines the domain model shared by the bookkeeping engine:
// chart of accounts, fiscal periods, journal entries, and the general ledger
// rows derived from them. All monetary amounts are int64 minor currency units;
// balance checks are exact, never epsilon-based.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Money is a monetary amount in minor currency units (e.g. cents).
type Money int64

// String renders the amount as a decimal with two fraction digits.
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// AccountType enumerates chart of accounts categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// DebitNormal reports whether the type naturally increases on the debit side.
func (t AccountType) DebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// Valid reports whether the type is a known category.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// PeriodStatus enumerates valid fiscal period states.
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "OPEN"
	PeriodStatusClosed PeriodStatus = "CLOSED"
	PeriodStatusLocked PeriodStatus = "LOCKED"
)

// EntryStatus enumerates journal entry lifecycle values.
type EntryStatus string

const (
	EntryStatusDraft  EntryStatus = "DRAFT"
	EntryStatusPosted EntryStatus = "POSTED"
	EntryStatusVoid   EntryStatus = "VOID"
)

// EntrySource identifies the business event class that produced an entry.
type EntrySource string

const (
	SourceManual     EntrySource = "MANUAL"
	SourcePayroll    EntrySource = "PAYROLL"
	SourceExpense    EntrySource = "EXPENSE"
	SourceAdjustment EntrySource = "ADJUSTMENT"
	SourceOpening    EntrySource = "OPENING"
	SourceReversal   EntrySource = "REVERSAL"
)

// Account models a chart of accounts node.
type Account struct {
	ID        int64
	TenantID  uuid.UUID
	Code      string
	Name      string
	Type      AccountType
	SubType   string
	ParentID  *int64
	Level     int
	IsSystem  bool
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Period represents one fiscal month within a fiscal year.
type Period struct {
	ID         int64
	TenantID   uuid.UUID
	FiscalYear int
	Period     int
	StartDate  time.Time
	EndDate    time.Time
	Status     PeriodStatus
	ClosedBy   *int64
	ClosedAt   *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Contains reports whether the date falls inside the period window.
func (p Period) Contains(date time.Time) bool {
	return !date.Before(p.StartDate) && !date.After(p.EndDate)
}

// JournalEntry captures posting metadata and lines.
type JournalEntry struct {
	ID           int64
	TenantID     uuid.UUID
	FiscalYear   int
	FiscalPeriod int
	Seq          int64
	PeriodID     int64
	Date         time.Time
	Description  string
	Source       EntrySource
	SourceID     uuid.UUID
	TotalDebit   Money
	TotalCredit  Money
	Status       EntryStatus
	PostedBy     int64
	PostedAt     *time.Time
	VoidedBy     *int64
	VoidedAt     *time.Time
	VoidReason   string
	ReversesID   *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Lines        []JournalLine
}

// EntryNumber renders the tenant+year scoped number, e.g. JE-2024-00042.
func (e JournalEntry) EntryNumber() string {
	return fmt.Sprintf("JE-%d-%05d", e.FiscalYear, e.Seq)
}

// JournalLine stores a debit or credit amount for an account.
type JournalLine struct {
	ID          int64
	EntryID     int64
	AccountID   int64
	Debit       Money
	Credit      Money
	Description string
	Department  *string
	EmployeeID  *int64
	ProjectID   *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LedgerEntry is one general ledger row, materialized per journal line at
// posting time. Running balances are never stored; they are recomputed in
// account/date order at read time.
type LedgerEntry struct {
	ID           int64
	TenantID     uuid.UUID
	EntryID      int64
	LineID       int64
	AccountID    int64
	EntryDate    time.Time
	FiscalYear   int
	FiscalPeriod int
	Seq          int64
	Debit        Money
	Credit       Money
	Description  string
	CreatedAt    time.Time
}

// PostingLineInput describes a journal line in a posting request.
type PostingLineInput struct {
	AccountID   int64
	Debit       Money
	Credit      Money
	Description string
	Department  *string
	EmployeeID  *int64
	ProjectID   *int64
}

// PostingInput groups fields required to create a journal entry.
type PostingInput struct {
	Date        time.Time
	Description string
	Source      EntrySource
	SourceID    uuid.UUID
	PostedBy    int64
	ReversesID  *int64
	Lines       []PostingLineInput
}

// Totals recomputes debit and credit sums from the lines. Caller-supplied
// totals are never trusted.
func (in PostingInput) Totals() (debit, credit Money) {
	for _, line := range in.Lines {
		debit += line.Debit
		credit += line.Credit
	}
	return debit, credit
}

var (
	// ErrUnbalanced indicates total debit != total credit.
	ErrUnbalanced = errors.New("ledger: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("ledger: journal requires at least two lines")
	// ErrMalformedLine indicates a line with both or neither side set.
	ErrMalformedLine = errors.New("ledger: line must carry exactly one of debit or credit")
	// ErrInvalidPeriod indicates no period covers the posting date.
	ErrInvalidPeriod = errors.New("ledger: no fiscal period covers date")
	// ErrPeriodClosed indicates posting into a closed period.
	ErrPeriodClosed = errors.New("ledger: period closed")
	// ErrPeriodLocked indicates posting into a locked period.
	ErrPeriodLocked = errors.New("ledger: period locked")
	// ErrEntryNotFound indicates a missing journal entry.
	ErrEntryNotFound = errors.New("ledger: journal entry not found")
	// ErrAlreadyVoid indicates a void request against a void entry.
	ErrAlreadyVoid = errors.New("ledger: entry already void")
	// ErrInvalidStatus indicates the action is illegal for the entry status.
	ErrInvalidStatus = errors.New("ledger: invalid status transition")
	// ErrSourceAlreadyLinked indicates an idempotency conflict on the source.
	ErrSourceAlreadyLinked = errors.New("ledger: source already linked")
	// ErrAccountNotFound indicates a missing account.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrDuplicateCode indicates the account code exists for the tenant.
	ErrDuplicateCode = errors.New("ledger: duplicate account code")
	// ErrInvalidParent indicates a parent of mismatched type or level.
	ErrInvalidParent = errors.New("ledger: invalid parent account")
	// ErrParentAmbiguous indicates parent id and legacy parent code disagree.
	ErrParentAmbiguous = errors.New("ledger: parent id and parent code disagree")
	// ErrSystemAccount indicates a protected account mutation.
	ErrSystemAccount = errors.New("ledger: system account is protected")
	// ErrAccountInUse indicates deactivation would hide a non-zero balance.
	ErrAccountInUse = errors.New("ledger: account carries a balance")
	// ErrMappingNotFound indicates a business event category without accounts.
	ErrMappingNotFound = errors.New("ledger: account mapping not found")
	// ErrDraftsInPeriod indicates a close attempt over open drafts.
	ErrDraftsInPeriod = errors.New("ledger: period has draft entries")
	// ErrTenantRequired indicates a call without tenant scope.
	ErrTenantRequired = errors.New("ledger: tenant required")
)

// UnbalancedError reports the computed imbalance so callers can correct the
// input without inspecting internals.
type UnbalancedError struct {
	TotalDebit  Money
	TotalCredit Money
}

func (e *UnbalancedError) Error() string {
	diff := e.TotalDebit - e.TotalCredit
	if diff < 0 {
		diff = -diff
	}
	return fmt.Sprintf("ledger: journal lines must balance: debit %s, credit %s, difference %s",
		e.TotalDebit, e.TotalCredit, diff)
}

// Is makes the typed error match ErrUnbalanced in errors.Is chains.
func (e *UnbalancedError) Is(target error) bool { return target == ErrUnbalanced }

// Difference returns the absolute imbalance.
func (e *UnbalancedError) Difference() Money {
	diff := e.TotalDebit - e.TotalCredit
	if diff < 0 {
		return -diff
	}
	return diff
}

// Validate ensures posting input meets the engine's invariants. Totals are
// recomputed from the lines and must match exactly.
func (in PostingInput) Validate() error {
	if in.Date.IsZero() {
		return errors.New("ledger: date required")
	}
	if in.Source == "" {
		return errors.New("ledger: source required")
	}
	if in.SourceID == uuid.Nil {
		return errors.New("ledger: source id required")
	}
	if len(in.Lines) < 2 {
		return ErrTooFewLines
	}
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("ledger: line %d missing account: %w", idx, ErrMalformedLine)
		}
		if line.Debit < 0 || line.Credit < 0 {
			return fmt.Errorf("ledger: line %d negative amount: %w", idx, ErrMalformedLine)
		}
		if line.Debit > 0 && line.Credit > 0 {
			return fmt.Errorf("ledger: line %d carries both debit and credit: %w", idx, ErrMalformedLine)
		}
		if line.Debit == 0 && line.Credit == 0 {
			return fmt.Errorf("ledger: line %d carries neither debit nor credit: %w", idx, ErrMalformedLine)
		}
	}
	debit, credit := in.Totals()
	if debit != credit {
		return &UnbalancedError{TotalDebit: debit, TotalCredit: credit}
	}
	return nil
}
