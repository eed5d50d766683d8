package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ledgerline/ledgerline/internal/ledger/reports"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

func (a *API) trialBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := queryDate(r, "asOf", time.Now().UTC())
	if err != nil {
		a.badRequest(w, err)
		return
	}
	includeZero := r.URL.Query().Get("includeZero") == "true"
	tb, err := a.reports.TrialBalance(r.Context(), shared.TenantFromContext(r.Context()), asOf, includeZero)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if r.URL.Query().Get("format") == "csv" {
		writeCSV(w, fmt.Sprintf("trial-balance-%s.csv", asOf.Format("2006-01-02")))
		if err := reports.WriteTrialBalanceCSV(w, tb); err != nil {
			a.logger.Error("streaming trial balance csv", "error", err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (a *API) incomeStatement(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	from, err := queryDate(r, "from", time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		a.badRequest(w, err)
		return
	}
	to, err := queryDate(r, "to", now)
	if err != nil {
		a.badRequest(w, err)
		return
	}
	is, err := a.reports.IncomeStatement(r.Context(), shared.TenantFromContext(r.Context()), from, to)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if r.URL.Query().Get("format") == "csv" {
		writeCSV(w, fmt.Sprintf("income-statement-%s-%s.csv", from.Format("2006-01-02"), to.Format("2006-01-02")))
		if err := reports.WriteIncomeStatementCSV(w, is); err != nil {
			a.logger.Error("streaming income statement csv", "error", err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, is)
}

func (a *API) balanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, err := queryDate(r, "asOf", time.Now().UTC())
	if err != nil {
		a.badRequest(w, err)
		return
	}
	bs, err := a.reports.BalanceSheet(r.Context(), shared.TenantFromContext(r.Context()), asOf)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if r.URL.Query().Get("format") == "csv" {
		writeCSV(w, fmt.Sprintf("balance-sheet-%s.csv", asOf.Format("2006-01-02")))
		if err := reports.WriteBalanceSheetCSV(w, bs); err != nil {
			a.logger.Error("streaming balance sheet csv", "error", err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, bs)
}

func writeCSV(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
}
