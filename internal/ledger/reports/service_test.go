package reports

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/ledger/gl"
)

type stubBalances struct {
	moved []gl.AccountBalance
	chart []gl.AccountBalance
}

func (s stubBalances) BalancesAsOf(ctx context.Context, tenantID uuid.UUID, asOf time.Time) ([]gl.AccountBalance, error) {
	return s.moved, nil
}

func (s stubBalances) ChartBalancesAsOf(ctx context.Context, tenantID uuid.UUID, asOf time.Time) ([]gl.AccountBalance, error) {
	return s.chart, nil
}

func (s stubBalances) BalancesInRange(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]gl.AccountBalance, error) {
	return s.moved, nil
}

func TestTrialBalanceIncludeZeroListsWholeChart(t *testing.T) {
	cash := gl.AccountBalance{AccountID: 1, Code: "1100", Name: "Cash", Type: ledger.AccountTypeAsset, Debit: 5000}
	receivables := gl.AccountBalance{AccountID: 2, Code: "1200", Name: "Receivables", Type: ledger.AccountTypeAsset}
	equity := gl.AccountBalance{AccountID: 3, Code: "3000", Name: "Owner equity", Type: ledger.AccountTypeEquity, Credit: 5000}
	port := stubBalances{
		moved: []gl.AccountBalance{cash, equity},
		chart: []gl.AccountBalance{cash, receivables, equity},
	}
	service := NewService(port, nil)
	ctx := context.Background()
	tenant := uuid.New()
	asOf := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	tb, err := service.TrialBalance(ctx, tenant, asOf, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tb.Rows) != 3 {
		t.Fatalf("expected the whole chart including never-posted accounts, got %d rows", len(tb.Rows))
	}
	var zeroRow *TrialBalanceRow
	for i := range tb.Rows {
		if tb.Rows[i].Code == "1200" {
			zeroRow = &tb.Rows[i]
		}
	}
	if zeroRow == nil {
		t.Fatal("never-posted account 1200 missing from zero-inclusive trial balance")
	}
	if zeroRow.Debit != 0 || zeroRow.Credit != 0 {
		t.Fatalf("never-posted account must carry zero balances, got %+v", zeroRow)
	}

	tb, err = service.TrialBalance(ctx, tenant, asOf, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tb.Rows) != 2 {
		t.Fatalf("expected moved accounts only, got %d rows", len(tb.Rows))
	}
}
