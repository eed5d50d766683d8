package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

type periodResponse struct {
	ID         int64  `json:"id"`
	FiscalYear int    `json:"fiscalYear"`
	Period     int    `json:"period"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
	Status     string `json:"status"`
}

func toPeriodResponse(p ledger.Period) periodResponse {
	return periodResponse{
		ID:         p.ID,
		FiscalYear: p.FiscalYear,
		Period:     p.Period,
		StartDate:  p.StartDate.Format("2006-01-02"),
		EndDate:    p.EndDate.Format("2006-01-02"),
		Status:     string(p.Status),
	}
}

type createFiscalYearRequest struct {
	Year int `json:"year" validate:"required,min=1900,max=9999"`
}

func (a *API) createFiscalYear(w http.ResponseWriter, r *http.Request) {
	var req createFiscalYearRequest
	if err := a.decodeValid(r, &req); err != nil {
		a.badRequest(w, err)
		return
	}
	ctx := r.Context()
	created, err := a.periods.CreateFiscalYear(ctx, shared.TenantFromContext(ctx), req.Year, shared.ActorFromContext(ctx))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	out := make([]periodResponse, 0, len(created))
	for _, p := range created {
		out = append(out, toPeriodResponse(p))
	}
	httpx.JSON(w, http.StatusCreated, out)
}

func (a *API) listYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		a.badRequest(w, err)
		return
	}
	list, err := a.periods.ListYear(r.Context(), shared.TenantFromContext(r.Context()), year)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	out := make([]periodResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toPeriodResponse(p))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (a *API) closePeriod(w http.ResponseWriter, r *http.Request) {
	a.transitionPeriod(w, r, "close")
}

func (a *API) reopenPeriod(w http.ResponseWriter, r *http.Request) {
	a.transitionPeriod(w, r, "reopen")
}

func (a *API) lockPeriod(w http.ResponseWriter, r *http.Request) {
	a.transitionPeriod(w, r, "lock")
}

func (a *API) unlockPeriod(w http.ResponseWriter, r *http.Request) {
	a.transitionPeriod(w, r, "unlock")
}

type unlockRequest struct {
	Override bool `json:"override"`
}

func (a *API) transitionPeriod(w http.ResponseWriter, r *http.Request, action string) {
	id, err := pathID(r)
	if err != nil {
		a.badRequest(w, err)
		return
	}
	ctx := r.Context()
	tenantID := shared.TenantFromContext(ctx)
	actorID := shared.ActorFromContext(ctx)

	var period ledger.Period
	switch action {
	case "close":
		period, err = a.periods.Close(ctx, tenantID, id, actorID)
	case "reopen":
		period, err = a.periods.Reopen(ctx, tenantID, id, actorID)
	case "lock":
		period, err = a.periods.Lock(ctx, tenantID, id, actorID)
	case "unlock":
		var req unlockRequest
		_ = httpx.DecodeJSON(r, &req)
		period, err = a.periods.Unlock(ctx, tenantID, id, actorID, req.Override)
	}
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPeriodResponse(period))
}
