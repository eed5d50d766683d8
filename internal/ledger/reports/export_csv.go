package reports

import (
	"encoding/csv"
	"io"
)

// WriteTrialBalanceCSV streams the trial balance as CSV with a totals footer.
func WriteTrialBalanceCSV(w io.Writer, tb TrialBalance) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"code", "name", "type", "debit", "credit"}); err != nil {
		return err
	}
	for _, row := range tb.Rows {
		if err := cw.Write([]string{row.Code, row.Name, string(row.Type), row.Debit.String(), row.Credit.String()}); err != nil {
			return err
		}
	}
	if err := cw.Write([]string{"", "TOTAL", "", tb.TotalDebit.String(), tb.TotalCredit.String()}); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WriteBalanceSheetCSV streams the balance sheet as CSV, the synthetic
// earnings row included under equity.
func WriteBalanceSheetCSV(w io.Writer, bs BalanceSheet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"section", "code", "name", "amount"}); err != nil {
		return err
	}
	sections := []struct {
		name  string
		lines []ReportLine
	}{
		{"ASSETS", bs.Assets},
		{"LIABILITIES", bs.Liabilities},
		{"EQUITY", bs.Equity},
	}
	for _, section := range sections {
		for _, line := range section.lines {
			if err := cw.Write([]string{section.name, line.Code, line.Name, line.Amount.String()}); err != nil {
				return err
			}
		}
	}
	if err := cw.Write([]string{"EQUITY", "", "Current year earnings", bs.CurrentYearEarnings.String()}); err != nil {
		return err
	}
	if err := cw.Write([]string{"TOTAL", "", "Assets", bs.TotalAssets.String()}); err != nil {
		return err
	}
	if err := cw.Write([]string{"TOTAL", "", "Liabilities and equity", (bs.TotalLiabilities + bs.TotalEquity).String()}); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WriteIncomeStatementCSV streams the income statement as CSV.
func WriteIncomeStatementCSV(w io.Writer, is IncomeStatement) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"section", "code", "name", "amount"}); err != nil {
		return err
	}
	for _, line := range is.Revenue {
		if err := cw.Write([]string{"REVENUE", line.Code, line.Name, line.Amount.String()}); err != nil {
			return err
		}
	}
	for _, line := range is.Expenses {
		if err := cw.Write([]string{"EXPENSE", line.Code, line.Name, line.Amount.String()}); err != nil {
			return err
		}
	}
	if err := cw.Write([]string{is.Result, "", "", is.NetIncome.String()}); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
