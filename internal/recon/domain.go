// Package recon imports bank statement CSV files and tracks each bank
// transaction through the match and reconcile workflow against journal
// entries. Reconciled closes a reconciliation run but stays reversible
// through an explicit unmatch.
package recon

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

// TxStatus enumerates the reconciliation workflow states.
type TxStatus string

const (
	StatusUnmatched  TxStatus = "UNMATCHED"
	StatusMatched    TxStatus = "MATCHED"
	StatusReconciled TxStatus = "RECONCILED"
)

// BankTransaction is one imported statement row. Amount is signed in minor
// units: deposits positive, withdrawals negative.
type BankTransaction struct {
	ID             int64
	TenantID       uuid.UUID
	Date           time.Time
	Reference      string
	Description    string
	Amount         ledger.Money
	Balance        *ledger.Money
	Status         TxStatus
	MatchedEntryID *int64
	MatchedBy      *int64
	MatchedAt      *time.Time
	ReconciledBy   *int64
	ReconciledAt   *time.Time
	CreatedAt      time.Time
}

var (
	// ErrTxNotFound indicates a missing bank transaction.
	ErrTxNotFound = errors.New("recon: bank transaction not found")
	// ErrNotUnmatched indicates a match attempt on a non-unmatched row.
	ErrNotUnmatched = errors.New("recon: transaction is not unmatched")
	// ErrNotMatched indicates an unmatch of a row that is neither matched
	// nor reconciled.
	ErrNotMatched = errors.New("recon: transaction is not matched")
	// ErrAlreadyReconciled indicates a reconcile of an already-reconciled row.
	ErrAlreadyReconciled = errors.New("recon: transaction already reconciled")
	// ErrUnknownLayout indicates a CSV whose columns fit no supported layout.
	ErrUnknownLayout = errors.New("recon: unrecognized statement layout")
	// ErrEmptyStatement indicates a CSV with no data rows.
	ErrEmptyStatement = errors.New("recon: statement contains no rows")
)
