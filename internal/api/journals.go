package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/ledger/gl"
	"github.com/ledgerline/ledgerline/internal/ledger/journals"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

type journalLineRequest struct {
	AccountID   int64   `json:"accountId" validate:"required"`
	Debit       int64   `json:"debit" validate:"min=0"`
	Credit      int64   `json:"credit" validate:"min=0"`
	Description string  `json:"description" validate:"max=255"`
	Department  *string `json:"department"`
	EmployeeID  *int64  `json:"employeeId"`
	ProjectID   *int64  `json:"projectId"`
}

type postEntryRequest struct {
	Date        string               `json:"date" validate:"required"`
	Description string               `json:"description" validate:"max=255"`
	Source      string               `json:"source" validate:"required,oneof=MANUAL PAYROLL EXPENSE ADJUSTMENT OPENING"`
	SourceID    string               `json:"sourceId" validate:"required,uuid"`
	Lines       []journalLineRequest `json:"lines" validate:"required,min=2,dive"`
}

func (req postEntryRequest) toPostingInput(actorID int64) (ledger.PostingInput, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return ledger.PostingInput{}, err
	}
	sourceID, err := uuid.Parse(req.SourceID)
	if err != nil {
		return ledger.PostingInput{}, err
	}
	lines := make([]ledger.PostingLineInput, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, ledger.PostingLineInput{
			AccountID:   line.AccountID,
			Debit:       ledger.Money(line.Debit),
			Credit:      ledger.Money(line.Credit),
			Description: line.Description,
			Department:  line.Department,
			EmployeeID:  line.EmployeeID,
			ProjectID:   line.ProjectID,
		})
	}
	return ledger.PostingInput{
		Date:        date,
		Description: req.Description,
		Source:      ledger.EntrySource(req.Source),
		SourceID:    sourceID,
		PostedBy:    actorID,
		Lines:       lines,
	}, nil
}

type journalLineResponse struct {
	ID          int64  `json:"id"`
	AccountID   int64  `json:"accountId"`
	Debit       int64  `json:"debit"`
	Credit      int64  `json:"credit"`
	Description string `json:"description,omitempty"`
}

type entryResponse struct {
	ID          int64                 `json:"id"`
	Number      string                `json:"number,omitempty"`
	Date        string                `json:"date"`
	Description string                `json:"description,omitempty"`
	Source      string                `json:"source"`
	SourceID    string                `json:"sourceId"`
	TotalDebit  int64                 `json:"totalDebit"`
	TotalCredit int64                 `json:"totalCredit"`
	Status      string                `json:"status"`
	ReversesID  *int64                `json:"reversesId,omitempty"`
	VoidReason  string                `json:"voidReason,omitempty"`
	Lines       []journalLineResponse `json:"lines,omitempty"`
}

func toEntryResponse(e ledger.JournalEntry) entryResponse {
	resp := entryResponse{
		ID:          e.ID,
		Date:        e.Date.Format("2006-01-02"),
		Description: e.Description,
		Source:      string(e.Source),
		SourceID:    e.SourceID.String(),
		TotalDebit:  int64(e.TotalDebit),
		TotalCredit: int64(e.TotalCredit),
		Status:      string(e.Status),
		ReversesID:  e.ReversesID,
		VoidReason:  e.VoidReason,
	}
	if e.Status != ledger.EntryStatusDraft {
		resp.Number = e.EntryNumber()
	}
	for _, line := range e.Lines {
		resp.Lines = append(resp.Lines, journalLineResponse{
			ID: line.ID, AccountID: line.AccountID,
			Debit: int64(line.Debit), Credit: int64(line.Credit), Description: line.Description,
		})
	}
	return resp
}

func (a *API) postEntry(w http.ResponseWriter, r *http.Request) {
	var req postEntryRequest
	if err := a.decodeValid(r, &req); err != nil {
		a.badRequest(w, err)
		return
	}
	input, err := req.toPostingInput(shared.ActorFromContext(r.Context()))
	if err != nil {
		a.badRequest(w, err)
		return
	}
	entry, err := a.journals.Post(r.Context(), shared.TenantFromContext(r.Context()), input)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (a *API) saveDraft(w http.ResponseWriter, r *http.Request) {
	var req postEntryRequest
	if err := a.decodeValid(r, &req); err != nil {
		a.badRequest(w, err)
		return
	}
	input, err := req.toPostingInput(shared.ActorFromContext(r.Context()))
	if err != nil {
		a.badRequest(w, err)
		return
	}
	entry, err := a.journals.SaveDraft(r.Context(), shared.TenantFromContext(r.Context()), input)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (a *API) postDraft(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.badRequest(w, err)
		return
	}
	ctx := r.Context()
	entry, err := a.journals.PostDraft(ctx, shared.TenantFromContext(ctx), id, shared.ActorFromContext(ctx))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

func (a *API) getEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.badRequest(w, err)
		return
	}
	entry, err := a.entries.Get(r.Context(), shared.TenantFromContext(r.Context()), id)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

func (a *API) listEntries(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		a.badRequest(w, err)
		return
	}
	period, err := strconv.Atoi(r.URL.Query().Get("period"))
	if err != nil {
		a.badRequest(w, err)
		return
	}
	entries, err := a.entries.ListByPeriod(r.Context(), shared.TenantFromContext(r.Context()), year, period)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toEntryResponse(entry))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type voidRequest struct {
	Reason string `json:"reason" validate:"required,max=255"`
}

func (a *API) voidEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.badRequest(w, err)
		return
	}
	var req voidRequest
	if err := a.decodeValid(r, &req); err != nil {
		a.badRequest(w, err)
		return
	}
	entry, err := a.journals.Void(r.Context(), shared.TenantFromContext(r.Context()), journals.VoidInput{
		EntryID: id,
		ActorID: shared.ActorFromContext(r.Context()),
		Reason:  req.Reason,
	})
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

type reverseRequest struct {
	Reason     string  `json:"reason" validate:"max=255"`
	TargetDate *string `json:"targetDate"`
	Override   bool    `json:"override"`
}

func (a *API) reverseEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.badRequest(w, err)
		return
	}
	var req reverseRequest
	if err := a.decodeValid(r, &req); err != nil {
		a.badRequest(w, err)
		return
	}
	input := journals.ReverseInput{
		EntryID:  id,
		ActorID:  shared.ActorFromContext(r.Context()),
		Reason:   req.Reason,
		Override: req.Override,
	}
	if req.TargetDate != nil {
		date, err := time.Parse("2006-01-02", *req.TargetDate)
		if err != nil {
			a.badRequest(w, err)
			return
		}
		input.TargetDate = &date
	}
	entry, err := a.journals.Reverse(r.Context(), shared.TenantFromContext(r.Context()), input)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(entry))
}

type statementLineResponse struct {
	Date        string `json:"date"`
	EntryID     int64  `json:"entryId"`
	Description string `json:"description,omitempty"`
	Debit       int64  `json:"debit"`
	Credit      int64  `json:"credit"`
	Balance     int64  `json:"balance"`
}

type statementResponse struct {
	AccountID int64                   `json:"accountId"`
	From      string                  `json:"from"`
	To        string                  `json:"to"`
	Opening   int64                   `json:"opening"`
	Lines     []statementLineResponse `json:"lines"`
	Closing   int64                   `json:"closing"`
}

func toStatementResponse(s gl.Statement) statementResponse {
	resp := statementResponse{
		AccountID: s.AccountID,
		From:      s.From.Format("2006-01-02"),
		To:        s.To.Format("2006-01-02"),
		Opening:   int64(s.Opening),
		Closing:   int64(s.Closing),
		Lines:     make([]statementLineResponse, 0, len(s.Lines)),
	}
	for _, line := range s.Lines {
		resp.Lines = append(resp.Lines, statementLineResponse{
			Date:        line.EntryDate.Format("2006-01-02"),
			EntryID:     line.EntryID,
			Description: line.Description,
			Debit:       int64(line.Debit),
			Credit:      int64(line.Credit),
			Balance:     int64(line.Balance),
		})
	}
	return resp
}
