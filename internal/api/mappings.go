package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/ledger/mappings"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

type mappingRequest struct {
	Category        string `json:"category" validate:"required,max=60"`
	Description     string `json:"description" validate:"max=255"`
	DebitAccountID  int64  `json:"debitAccountId" validate:"required"`
	CreditAccountID int64  `json:"creditAccountId" validate:"required"`
}

type mappingResponse struct {
	ID              int64  `json:"id"`
	Category        string `json:"category"`
	Description     string `json:"description,omitempty"`
	DebitAccountID  int64  `json:"debitAccountId"`
	CreditAccountID int64  `json:"creditAccountId"`
}

func toMappingResponse(m mappings.Mapping) mappingResponse {
	return mappingResponse{
		ID: m.ID, Category: m.Category, Description: m.Description,
		DebitAccountID: m.DebitAccountID, CreditAccountID: m.CreditAccountID,
	}
}

func (a *API) createMapping(w http.ResponseWriter, r *http.Request) {
	var req mappingRequest
	if err := a.decodeValid(r, &req); err != nil {
		a.badRequest(w, err)
		return
	}
	ctx := r.Context()
	created, err := a.mappings.Create(ctx, shared.TenantFromContext(ctx), mappings.CreateInput{
		Category:        req.Category,
		Description:     req.Description,
		DebitAccountID:  req.DebitAccountID,
		CreditAccountID: req.CreditAccountID,
		ActorID:         shared.ActorFromContext(ctx),
	})
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toMappingResponse(created))
}

func (a *API) listMappings(w http.ResponseWriter, r *http.Request) {
	list, err := a.mappings.List(r.Context(), shared.TenantFromContext(r.Context()))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	out := make([]mappingResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toMappingResponse(m))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (a *API) updateMapping(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.badRequest(w, err)
		return
	}
	var req mappingRequest
	if err := a.decodeValid(r, &req); err != nil {
		a.badRequest(w, err)
		return
	}
	ctx := r.Context()
	updated, err := a.mappings.Update(ctx, shared.TenantFromContext(ctx), mappings.Mapping{
		ID:              id,
		Category:        req.Category,
		Description:     req.Description,
		DebitAccountID:  req.DebitAccountID,
		CreditAccountID: req.CreditAccountID,
	}, shared.ActorFromContext(ctx))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toMappingResponse(updated))
}

func (a *API) deleteMapping(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.badRequest(w, err)
		return
	}
	ctx := r.Context()
	if err := a.mappings.Delete(ctx, shared.TenantFromContext(ctx), id, shared.ActorFromContext(ctx)); err != nil {
		a.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type postEventRequest struct {
	Category    string `json:"category" validate:"required,max=60"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Date        string `json:"date" validate:"required"`
	Description string `json:"description" validate:"max=255"`
	Source      string `json:"source" validate:"omitempty,oneof=MANUAL PAYROLL EXPENSE ADJUSTMENT"`
	SourceID    string `json:"sourceId" validate:"required,uuid"`
}

func (a *API) postEvent(w http.ResponseWriter, r *http.Request) {
	var req postEventRequest
	if err := a.decodeValid(r, &req); err != nil {
		a.badRequest(w, err)
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		a.badRequest(w, err)
		return
	}
	sourceID, err := uuid.Parse(req.SourceID)
	if err != nil {
		a.badRequest(w, err)
		return
	}
	ctx := r.Context()
	entry, err := a.mappings.PostEvent(ctx, shared.TenantFromContext(ctx), mappings.EventInput{
		Category:    req.Category,
		Amount:      ledger.Money(req.Amount),
		Date:        date,
		Description: req.Description,
		Source:      ledger.EntrySource(req.Source),
		SourceID:    sourceID,
		ActorID:     shared.ActorFromContext(ctx),
	})
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(entry))
}
