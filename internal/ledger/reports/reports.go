// Package reports builds the three financial statements from general ledger
// aggregates. The builders are pure: no I/O, deterministic output for a given
// set of balances, so the statements can be verified in isolation.
package reports

import (
	"time"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

// AccountBalance is one account's aggregated movement feeding a report.
type AccountBalance struct {
	AccountID int64
	Code      string
	Name      string
	Type      ledger.AccountType
	SubType   string
	Debit     ledger.Money
	Credit    ledger.Money
}

// Net returns the signed balance, debit minus credit.
func (b AccountBalance) Net() ledger.Money { return b.Debit - b.Credit }

// ReportLine is one presented row with the amount already flipped to the
// account type's normal side.
type ReportLine struct {
	AccountID int64        `json:"accountId"`
	Code      string       `json:"code"`
	Name      string       `json:"name"`
	Amount    ledger.Money `json:"amount"`
}

// TrialBalanceRow presents one account with its balance in the debit or
// credit column according to the sign of the net movement.
type TrialBalanceRow struct {
	AccountID int64              `json:"accountId"`
	Code      string             `json:"code"`
	Name      string             `json:"name"`
	Type      ledger.AccountType `json:"type"`
	Debit     ledger.Money       `json:"debit"`
	Credit    ledger.Money       `json:"credit"`
}

// TrialBalance lists every account balance as of a date with column totals.
type TrialBalance struct {
	AsOf        time.Time         `json:"asOf"`
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  ledger.Money      `json:"totalDebit"`
	TotalCredit ledger.Money      `json:"totalCredit"`
}

// IsBalanced reports the books' core self-check: column totals must match
// exactly.
func (tb TrialBalance) IsBalanced() bool { return tb.TotalDebit == tb.TotalCredit }

// BuildTrialBalance classifies each balance into the debit or credit column
// by the sign of its net movement. Zero-balance accounts are omitted unless
// includeZero is set.
func BuildTrialBalance(asOf time.Time, balances []AccountBalance, includeZero bool) TrialBalance {
	tb := TrialBalance{AsOf: asOf, Rows: make([]TrialBalanceRow, 0, len(balances))}
	for _, b := range balances {
		net := b.Net()
		if net == 0 && !includeZero {
			continue
		}
		row := TrialBalanceRow{AccountID: b.AccountID, Code: b.Code, Name: b.Name, Type: b.Type}
		if net >= 0 {
			row.Debit = net
		} else {
			row.Credit = -net
		}
		tb.Rows = append(tb.Rows, row)
		tb.TotalDebit += row.Debit
		tb.TotalCredit += row.Credit
	}
	return tb
}

// IncomeStatement presents revenue and expenses over a strict date range.
// Only entries dated inside the range contribute; balances carried from
// before it do not.
type IncomeStatement struct {
	From          time.Time    `json:"from"`
	To            time.Time    `json:"to"`
	Revenue       []ReportLine `json:"revenue"`
	TotalRevenue  ledger.Money `json:"totalRevenue"`
	Expenses      []ReportLine `json:"expenses"`
	TotalExpenses ledger.Money `json:"totalExpenses"`
	NetIncome     ledger.Money `json:"netIncome"`
	Result        string       `json:"result"`
}

// BuildIncomeStatement splits revenue and expense movements and labels the
// result NET PROFIT or NET LOSS. Accounts of other types are ignored.
func BuildIncomeStatement(from, to time.Time, balances []AccountBalance) IncomeStatement {
	is := IncomeStatement{From: from, To: to}
	for _, b := range balances {
		switch b.Type {
		case ledger.AccountTypeRevenue:
			amount := -b.Net()
			is.Revenue = append(is.Revenue, ReportLine{AccountID: b.AccountID, Code: b.Code, Name: b.Name, Amount: amount})
			is.TotalRevenue += amount
		case ledger.AccountTypeExpense:
			amount := b.Net()
			is.Expenses = append(is.Expenses, ReportLine{AccountID: b.AccountID, Code: b.Code, Name: b.Name, Amount: amount})
			is.TotalExpenses += amount
		}
	}
	is.NetIncome = is.TotalRevenue - is.TotalExpenses
	if is.NetIncome < 0 {
		is.Result = "NET LOSS"
	} else {
		is.Result = "NET PROFIT"
	}
	return is
}

// BalanceSheet presents cumulative financial position as of a date. The
// period's earnings appear as a synthetic equity row so the accounting
// identity holds without waiting for closing entries.
type BalanceSheet struct {
	AsOf                time.Time    `json:"asOf"`
	Assets              []ReportLine `json:"assets"`
	TotalAssets         ledger.Money `json:"totalAssets"`
	Liabilities         []ReportLine `json:"liabilities"`
	TotalLiabilities    ledger.Money `json:"totalLiabilities"`
	Equity              []ReportLine `json:"equity"`
	CurrentYearEarnings ledger.Money `json:"currentYearEarnings"`
	TotalEquity         ledger.Money `json:"totalEquity"`
}

// IsBalanced reports the accounting identity: assets equal liabilities plus
// equity, exactly.
func (bs BalanceSheet) IsBalanced() bool {
	return bs.TotalAssets == bs.TotalLiabilities+bs.TotalEquity
}

// BuildBalanceSheet classifies cumulative balances. Revenue and expense
// accounts are not presented as rows; their net folds into the synthetic
// earnings line, which is what makes the identity hold by construction.
func BuildBalanceSheet(asOf time.Time, balances []AccountBalance) BalanceSheet {
	bs := BalanceSheet{AsOf: asOf}
	for _, b := range balances {
		net := b.Net()
		if net == 0 {
			continue
		}
		switch b.Type {
		case ledger.AccountTypeAsset:
			bs.Assets = append(bs.Assets, ReportLine{AccountID: b.AccountID, Code: b.Code, Name: b.Name, Amount: net})
			bs.TotalAssets += net
		case ledger.AccountTypeLiability:
			bs.Liabilities = append(bs.Liabilities, ReportLine{AccountID: b.AccountID, Code: b.Code, Name: b.Name, Amount: -net})
			bs.TotalLiabilities += -net
		case ledger.AccountTypeEquity:
			bs.Equity = append(bs.Equity, ReportLine{AccountID: b.AccountID, Code: b.Code, Name: b.Name, Amount: -net})
			bs.TotalEquity += -net
		case ledger.AccountTypeRevenue:
			bs.CurrentYearEarnings += -net
		case ledger.AccountTypeExpense:
			bs.CurrentYearEarnings -= net
		}
	}
	bs.TotalEquity += bs.CurrentYearEarnings
	return bs
}
