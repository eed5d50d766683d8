package api

import (
	"net/http"
	"strconv"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/recon"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Statement uploads are capped; a year of daily transactions fits well within.
const maxStatementBytes = 10 << 20

type bankTransactionResponse struct {
	ID             int64  `json:"id"`
	Date           string `json:"date"`
	Reference      string `json:"reference,omitempty"`
	Description    string `json:"description"`
	Amount         int64  `json:"amount"`
	Display        string `json:"display"`
	Balance        *int64 `json:"balance,omitempty"`
	Status         string `json:"status"`
	MatchedEntryID *int64 `json:"matchedEntryId,omitempty"`
}

func toBankTransactionResponse(tx recon.BankTransaction) bankTransactionResponse {
	resp := bankTransactionResponse{
		ID:             tx.ID,
		Date:           tx.Date.Format("2006-01-02"),
		Reference:      tx.Reference,
		Description:    tx.Description,
		Amount:         int64(tx.Amount),
		Display:        tx.Amount.String(),
		Status:         string(tx.Status),
		MatchedEntryID: tx.MatchedEntryID,
	}
	if tx.Balance != nil {
		balance := int64(*tx.Balance)
		resp.Balance = &balance
	}
	return resp
}

type rowErrorResponse struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type chunkErrorResponse struct {
	Offset int    `json:"offset"`
	Rows   int    `json:"rows"`
	Error  string `json:"error"`
}

func (a *API) importStatement(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxStatementBytes)
	defer body.Close()
	ctx := r.Context()
	result, err := a.recon.ImportStatement(ctx, shared.TenantFromContext(ctx), body, shared.ActorFromContext(ctx))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	rejected := make([]rowErrorResponse, 0, len(result.Rejected))
	for _, rowErr := range result.Rejected {
		rejected = append(rejected, rowErrorResponse{Row: rowErr.Row, Error: rowErr.Err.Error()})
	}
	failed := make([]chunkErrorResponse, 0, len(result.FailedChunks))
	for _, chunkErr := range result.FailedChunks {
		failed = append(failed, chunkErrorResponse{Offset: chunkErr.Offset, Rows: chunkErr.Rows, Error: chunkErr.Err.Error()})
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"layout":       string(result.Layout),
		"imported":     result.Imported,
		"rejected":     rejected,
		"failedChunks": failed,
	})
}

func (a *API) listBankTransactions(w http.ResponseWriter, r *http.Request) {
	var status *recon.TxStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := recon.TxStatus(raw)
		switch s {
		case recon.StatusUnmatched, recon.StatusMatched, recon.StatusReconciled:
			status = &s
		default:
			httpx.Problem(w, http.StatusBadRequest, "Invalid Input", "unknown status "+raw)
			return
		}
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := a.recon.List(r.Context(), shared.TenantFromContext(r.Context()), status, limit)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	out := make([]bankTransactionResponse, 0, len(list))
	for _, tx := range list {
		out = append(out, toBankTransactionResponse(tx))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type matchRequest struct {
	EntryID int64 `json:"entryId" validate:"required"`
}

func (a *API) matchTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.badRequest(w, err)
		return
	}
	var req matchRequest
	if err := a.decodeValid(r, &req); err != nil {
		a.badRequest(w, err)
		return
	}
	ctx := r.Context()
	tx, err := a.recon.Match(ctx, shared.TenantFromContext(ctx), id, req.EntryID, shared.ActorFromContext(ctx))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toBankTransactionResponse(tx))
}

func (a *API) unmatchTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.badRequest(w, err)
		return
	}
	ctx := r.Context()
	tx, err := a.recon.Unmatch(ctx, shared.TenantFromContext(ctx), id, shared.ActorFromContext(ctx))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toBankTransactionResponse(tx))
}

func (a *API) reconcileTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.badRequest(w, err)
		return
	}
	ctx := r.Context()
	tx, err := a.recon.Reconcile(ctx, shared.TenantFromContext(ctx), id, shared.ActorFromContext(ctx))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toBankTransactionResponse(tx))
}

type reconcileBulkRequest struct {
	TransactionIDs []int64 `json:"transactionIds" validate:"required,min=1,dive,gt=0"`
}

type reconcileOutcomeResponse struct {
	ID     int64  `json:"id"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (a *API) reconcileBulk(w http.ResponseWriter, r *http.Request) {
	var req reconcileBulkRequest
	if err := a.decodeValid(r, &req); err != nil {
		a.badRequest(w, err)
		return
	}
	ctx := r.Context()
	outcomes, err := a.recon.ReconcileBulk(ctx, shared.TenantFromContext(ctx), req.TransactionIDs, shared.ActorFromContext(ctx))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	out := make([]reconcileOutcomeResponse, 0, len(outcomes))
	for _, outcome := range outcomes {
		resp := reconcileOutcomeResponse{ID: outcome.ID, Status: string(outcome.Status)}
		if outcome.Err != nil {
			resp.Error = outcome.Err.Error()
		}
		out = append(out, resp)
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (a *API) reconSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := a.recon.Summary(r.Context(), shared.TenantFromContext(r.Context()))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"unmatched":       summary.Unmatched,
		"matched":         summary.Matched,
		"reconciled":      summary.Reconciled,
		"deposits":        int64(summary.Deposits),
		"withdrawals":     int64(summary.Withdrawals),
		"unmatchedAmount": int64(summary.UnmatchedAmount),
	})
}
