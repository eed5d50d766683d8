package reports

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

func balance(id int64, code string, t ledger.AccountType, debit, credit ledger.Money) AccountBalance {
	return AccountBalance{AccountID: id, Code: code, Name: code, Type: t, Debit: debit, Credit: credit}
}

var asOf = time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

func TestTrialBalanceClassifiesByNetSign(t *testing.T) {
	tb := BuildTrialBalance(asOf, []AccountBalance{
		balance(1, "1000", ledger.AccountTypeAsset, 150000, 30000),
		balance(2, "2000", ledger.AccountTypeLiability, 0, 80000),
		balance(3, "3000", ledger.AccountTypeEquity, 0, 40000),
		balance(4, "4000", ledger.AccountTypeRevenue, 0, 50000),
		balance(5, "5000", ledger.AccountTypeExpense, 50000, 0),
	}, false)

	if len(tb.Rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(tb.Rows))
	}
	if tb.Rows[0].Debit != 120000 || tb.Rows[0].Credit != 0 {
		t.Fatalf("asset row should sit in the debit column, got %+v", tb.Rows[0])
	}
	if tb.Rows[1].Credit != 80000 {
		t.Fatalf("liability row should sit in the credit column, got %+v", tb.Rows[1])
	}
	if tb.TotalDebit != 170000 || tb.TotalCredit != 170000 {
		t.Fatalf("unexpected totals %s/%s", tb.TotalDebit, tb.TotalCredit)
	}
	if !tb.IsBalanced() {
		t.Fatal("trial balance over balanced postings must self-check")
	}
}

func TestTrialBalanceZeroRowsOmittedByDefault(t *testing.T) {
	balances := []AccountBalance{
		balance(1, "1000", ledger.AccountTypeAsset, 500, 500),
		balance(2, "2000", ledger.AccountTypeLiability, 0, 0),
	}
	if got := BuildTrialBalance(asOf, balances, false); len(got.Rows) != 0 {
		t.Fatalf("expected zero-balance rows omitted, got %d", len(got.Rows))
	}
	if got := BuildTrialBalance(asOf, balances, true); len(got.Rows) != 2 {
		t.Fatalf("expected zero-balance rows listed with includeZero, got %d", len(got.Rows))
	}
}

func TestIncomeStatementProfitAndLoss(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	profit := BuildIncomeStatement(from, asOf, []AccountBalance{
		balance(4, "4000", ledger.AccountTypeRevenue, 0, 90000),
		balance(5, "5000", ledger.AccountTypeExpense, 60000, 0),
		balance(1, "1000", ledger.AccountTypeAsset, 90000, 60000),
	})
	if profit.TotalRevenue != 90000 || profit.TotalExpenses != 60000 {
		t.Fatalf("unexpected totals %s/%s", profit.TotalRevenue, profit.TotalExpenses)
	}
	if profit.NetIncome != 30000 || profit.Result != "NET PROFIT" {
		t.Fatalf("expected 30000 NET PROFIT, got %s %s", profit.NetIncome, profit.Result)
	}
	if len(profit.Revenue) != 1 || len(profit.Expenses) != 1 {
		t.Fatal("balance sheet accounts must not appear on the income statement")
	}

	loss := BuildIncomeStatement(from, asOf, []AccountBalance{
		balance(4, "4000", ledger.AccountTypeRevenue, 0, 10000),
		balance(5, "5000", ledger.AccountTypeExpense, 25000, 0),
	})
	if loss.NetIncome != -15000 || loss.Result != "NET LOSS" {
		t.Fatalf("expected -15000 NET LOSS, got %s %s", loss.NetIncome, loss.Result)
	}
}

func TestBalanceSheetIdentityWithSyntheticEarnings(t *testing.T) {
	bs := BuildBalanceSheet(asOf, []AccountBalance{
		balance(1, "1000", ledger.AccountTypeAsset, 200000, 50000),
		balance(2, "2000", ledger.AccountTypeLiability, 0, 70000),
		balance(3, "3000", ledger.AccountTypeEquity, 0, 50000),
		balance(4, "4000", ledger.AccountTypeRevenue, 0, 80000),
		balance(5, "5000", ledger.AccountTypeExpense, 50000, 0),
	})
	if bs.TotalAssets != 150000 {
		t.Fatalf("unexpected assets %s", bs.TotalAssets)
	}
	if bs.CurrentYearEarnings != 30000 {
		t.Fatalf("expected synthetic earnings 30000, got %s", bs.CurrentYearEarnings)
	}
	if bs.TotalEquity != 80000 {
		t.Fatalf("expected equity 80000 including earnings, got %s", bs.TotalEquity)
	}
	if !bs.IsBalanced() {
		t.Fatalf("identity must hold: assets %s, liabilities %s, equity %s", bs.TotalAssets, bs.TotalLiabilities, bs.TotalEquity)
	}
	for _, line := range append(bs.Assets, append(bs.Liabilities, bs.Equity...)...) {
		if line.Code == "4000" || line.Code == "5000" {
			t.Fatal("revenue and expense accounts must fold into earnings, not appear as rows")
		}
	}
}

func TestTrialBalanceCSVHasTotalsFooter(t *testing.T) {
	tb := BuildTrialBalance(asOf, []AccountBalance{
		balance(1, "1000", ledger.AccountTypeAsset, 12345, 0),
		balance(2, "2000", ledger.AccountTypeLiability, 0, 12345),
	}, false)
	var buf bytes.Buffer
	if err := WriteTrialBalanceCSV(&buf, tb); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, 2 rows, footer; got %d lines", len(lines))
	}
	if lines[0] != "code,name,type,debit,credit" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[3], "TOTAL") || !strings.Contains(lines[3], "123.45") {
		t.Fatalf("unexpected footer %q", lines[3])
	}
}
