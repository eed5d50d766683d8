package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/ledger/accounts"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

type createAccountRequest struct {
	Code       string  `json:"code" validate:"required,max=20"`
	Name       string  `json:"name" validate:"required,max=120"`
	Type       string  `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	SubType    string  `json:"subType" validate:"max=60"`
	ParentID   *int64  `json:"parentId"`
	ParentCode *string `json:"parentCode"`
}

type accountResponse struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	SubType  string `json:"subType,omitempty"`
	ParentID *int64 `json:"parentId,omitempty"`
	Level    int    `json:"level"`
	IsSystem bool   `json:"isSystem"`
	IsActive bool   `json:"isActive"`
}

func toAccountResponse(a ledger.Account) accountResponse {
	return accountResponse{
		ID: a.ID, Code: a.Code, Name: a.Name, Type: string(a.Type), SubType: a.SubType,
		ParentID: a.ParentID, Level: a.Level, IsSystem: a.IsSystem, IsActive: a.IsActive,
	}
}

func (a *API) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := a.decodeValid(r, &req); err != nil {
		a.badRequest(w, err)
		return
	}
	in := accounts.CreateInput{
		TenantID: shared.TenantFromContext(r.Context()),
		Code:     req.Code,
		Name:     req.Name,
		Type:     ledger.AccountType(req.Type),
		SubType:  req.SubType,
		ParentID: req.ParentID,
		ActorID:  shared.ActorFromContext(r.Context()),
	}
	if req.ParentCode != nil {
		in.ParentCode = *req.ParentCode
	}
	account, err := a.accounts.Create(r.Context(), in)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAccountResponse(account))
}

func (a *API) listAccounts(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("includeInactive") == "true"
	list, err := a.accounts.List(r.Context(), shared.TenantFromContext(r.Context()), includeInactive)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	out := make([]accountResponse, 0, len(list))
	for _, account := range list {
		out = append(out, toAccountResponse(account))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (a *API) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.badRequest(w, err)
		return
	}
	account, err := a.accounts.Get(r.Context(), shared.TenantFromContext(r.Context()), id)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(account))
}

type updateAccountRequest struct {
	Code    *string `json:"code" validate:"omitempty,max=20"`
	Name    *string `json:"name" validate:"omitempty,max=120"`
	Type    *string `json:"type" validate:"omitempty,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	SubType *string `json:"subType" validate:"omitempty,max=60"`
}

func (a *API) updateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.badRequest(w, err)
		return
	}
	var req updateAccountRequest
	if err := a.decodeValid(r, &req); err != nil {
		a.badRequest(w, err)
		return
	}
	in := accounts.UpdateInput{
		TenantID: shared.TenantFromContext(r.Context()),
		ID:       id,
		Code:     req.Code,
		Name:     req.Name,
		SubType:  req.SubType,
		ActorID:  shared.ActorFromContext(r.Context()),
	}
	if req.Type != nil {
		t := ledger.AccountType(*req.Type)
		in.Type = &t
	}
	account, err := a.accounts.Update(r.Context(), in)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(account))
}

type deactivateAccountRequest struct {
	HideFromReports bool `json:"hideFromReports"`
}

func (a *API) deactivateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.badRequest(w, err)
		return
	}
	var req deactivateAccountRequest
	_ = httpx.DecodeJSON(r, &req)
	err = a.accounts.Deactivate(r.Context(), accounts.DeactivateInput{
		TenantID:        shared.TenantFromContext(r.Context()),
		ID:              id,
		HideFromReports: req.HideFromReports,
		ActorID:         shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) reactivateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.badRequest(w, err)
		return
	}
	ctx := r.Context()
	if err := a.accounts.Reactivate(ctx, shared.TenantFromContext(ctx), id, shared.ActorFromContext(ctx)); err != nil {
		a.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) accountActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.badRequest(w, err)
		return
	}
	from, err := queryDate(r, "from", time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		a.badRequest(w, err)
		return
	}
	to, err := queryDate(r, "to", time.Now().UTC())
	if err != nil {
		a.badRequest(w, err)
		return
	}
	statement, err := a.gl.AccountActivity(r.Context(), shared.TenantFromContext(r.Context()), id, from, to)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toStatementResponse(statement))
}

func (a *API) accountBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.badRequest(w, err)
		return
	}
	asOf, err := queryDate(r, "asOf", time.Now().UTC())
	if err != nil {
		a.badRequest(w, err)
		return
	}
	balance, err := a.gl.BalanceAsOf(r.Context(), shared.TenantFromContext(r.Context()), id, asOf)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"accountId": id,
		"asOf":      asOf.Format("2006-01-02"),
		"balance":   balance,
		"display":   balance.String(),
	})
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func queryDate(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return time.Parse("2006-01-02", raw)
}
