package periods

import (
	"errors"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

// ErrInvalidTransition indicates a status change not allowed by policy.
var ErrInvalidTransition = errors.New("periods: transition invalid")

// ValidateTransition checks period status transitions. Locked periods only
// move back to closed with elevated authority.
func ValidateTransition(current, target ledger.PeriodStatus, hasOverride bool) error {
	if current == target {
		return nil
	}
	switch current {
	case ledger.PeriodStatusOpen:
		if target == ledger.PeriodStatusClosed || target == ledger.PeriodStatusLocked {
			return nil
		}
	case ledger.PeriodStatusClosed:
		if target == ledger.PeriodStatusOpen || target == ledger.PeriodStatusLocked {
			return nil
		}
	case ledger.PeriodStatusLocked:
		if target == ledger.PeriodStatusClosed && hasOverride {
			return nil
		}
	}
	return ErrInvalidTransition
}
