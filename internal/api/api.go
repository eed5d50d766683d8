// Package api exposes the bookkeeping engine over HTTP. Handlers decode and
// validate input, delegate to the services, and translate domain errors into
// RFC7807 problem responses. All routes are tenant-scoped via middleware.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/ledger/accounts"
	"github.com/ledgerline/ledgerline/internal/ledger/gl"
	"github.com/ledgerline/ledgerline/internal/ledger/journals"
	"github.com/ledgerline/ledgerline/internal/ledger/mappings"
	"github.com/ledgerline/ledgerline/internal/ledger/periods"
	"github.com/ledgerline/ledgerline/internal/ledger/reports"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/recon"
)

// JournalReader reads journal entries outside the posting transaction.
type JournalReader interface {
	Get(ctx context.Context, tenantID uuid.UUID, entryID int64) (ledger.JournalEntry, error)
	ListByPeriod(ctx context.Context, tenantID uuid.UUID, fiscalYear, fiscalPeriod int) ([]ledger.JournalEntry, error)
}

// API bundles the services behind the HTTP surface.
type API struct {
	accounts *accounts.Service
	journals *journals.Service
	entries  JournalReader
	periods  *periods.Service
	gl       *gl.Service
	reports  *reports.Service
	mappings *mappings.Service
	recon    *recon.Service
	validate *validator.Validate
	logger   *slog.Logger
}

// New constructs the API.
func New(
	accountsSvc *accounts.Service,
	journalsSvc *journals.Service,
	entries JournalReader,
	periodsSvc *periods.Service,
	glSvc *gl.Service,
	reportsSvc *reports.Service,
	mappingsSvc *mappings.Service,
	reconSvc *recon.Service,
	logger *slog.Logger,
) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		accounts: accountsSvc,
		journals: journalsSvc,
		entries:  entries,
		periods:  periodsSvc,
		gl:       glSvc,
		reports:  reportsSvc,
		mappings: mappingsSvc,
		recon:    reconSvc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// Routes returns the tenant-scoped route tree, mounted under /api/v1.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", a.createAccount)
		r.Get("/", a.listAccounts)
		r.Get("/{id}", a.getAccount)
		r.Put("/{id}", a.updateAccount)
		r.Post("/{id}/deactivate", a.deactivateAccount)
		r.Post("/{id}/reactivate", a.reactivateAccount)
		r.Get("/{id}/activity", a.accountActivity)
		r.Get("/{id}/balance", a.accountBalance)
	})

	r.Route("/journal-entries", func(r chi.Router) {
		r.Post("/", a.postEntry)
		r.Get("/", a.listEntries)
		r.Post("/drafts", a.saveDraft)
		r.Get("/{id}", a.getEntry)
		r.Post("/{id}/post", a.postDraft)
		r.Post("/{id}/void", a.voidEntry)
		r.Post("/{id}/reverse", a.reverseEntry)
	})

	r.Route("/periods", func(r chi.Router) {
		r.Post("/years", a.createFiscalYear)
		r.Get("/years/{year}", a.listYear)
		r.Post("/{id}/close", a.closePeriod)
		r.Post("/{id}/reopen", a.reopenPeriod)
		r.Post("/{id}/lock", a.lockPeriod)
		r.Post("/{id}/unlock", a.unlockPeriod)
	})

	r.Route("/reports", func(r chi.Router) {
		r.Get("/trial-balance", a.trialBalance)
		r.Get("/income-statement", a.incomeStatement)
		r.Get("/balance-sheet", a.balanceSheet)
	})

	r.Route("/mappings", func(r chi.Router) {
		r.Post("/", a.createMapping)
		r.Get("/", a.listMappings)
		r.Put("/{id}", a.updateMapping)
		r.Delete("/{id}", a.deleteMapping)
	})
	r.Post("/events", a.postEvent)

	r.Route("/reconciliation", func(r chi.Router) {
		r.Post("/statements", a.importStatement)
		r.Get("/transactions", a.listBankTransactions)
		r.Post("/transactions/{id}/match", a.matchTransaction)
		r.Post("/transactions/{id}/unmatch", a.unmatchTransaction)
		r.Post("/transactions/{id}/reconcile", a.reconcileTransaction)
		r.Post("/transactions/reconcile", a.reconcileBulk)
		r.Get("/summary", a.reconSummary)
	})

	return r
}

// respondError translates domain errors into problem responses. Unrecognized
// errors surface as 500 without leaking internals.
func (a *API) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ledger.ErrTenantRequired):
		httpx.Problem(w, http.StatusBadRequest, "Tenant Required", "X-Tenant-ID header missing or invalid")
	case errors.Is(err, ledger.ErrUnbalanced),
		errors.Is(err, ledger.ErrTooFewLines),
		errors.Is(err, ledger.ErrMalformedLine):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unbalanced Entry", err.Error())
	case errors.Is(err, ledger.ErrEntryNotFound),
		errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, ledger.ErrMappingNotFound),
		errors.Is(err, ledger.ErrInvalidPeriod),
		errors.Is(err, recon.ErrTxNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ledger.ErrPeriodClosed),
		errors.Is(err, ledger.ErrPeriodLocked),
		errors.Is(err, ledger.ErrDraftsInPeriod),
		errors.Is(err, periods.ErrInvalidTransition),
		errors.Is(err, ledger.ErrAlreadyVoid),
		errors.Is(err, ledger.ErrInvalidStatus),
		errors.Is(err, ledger.ErrSourceAlreadyLinked),
		errors.Is(err, ledger.ErrAccountInUse),
		errors.Is(err, recon.ErrNotUnmatched),
		errors.Is(err, recon.ErrNotMatched),
		errors.Is(err, recon.ErrAlreadyReconciled):
		httpx.Problem(w, http.StatusConflict, "State Conflict", err.Error())
	case errors.Is(err, ledger.ErrDuplicateCode),
		errors.Is(err, mappings.ErrDuplicateCategory):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ledger.ErrSystemAccount):
		httpx.Problem(w, http.StatusForbidden, "Protected Account", err.Error())
	case errors.Is(err, ledger.ErrInvalidParent),
		errors.Is(err, ledger.ErrParentAmbiguous),
		errors.Is(err, recon.ErrUnknownLayout),
		errors.Is(err, recon.ErrEmptyStatement):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", err.Error())
	default:
		a.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// decodeValid decodes the body into dst and runs struct validation.
func (a *API) decodeValid(r *http.Request, dst any) error {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		return err
	}
	return a.validate.Struct(dst)
}

func (a *API) badRequest(w http.ResponseWriter, err error) {
	httpx.Problem(w, http.StatusBadRequest, "Invalid Input", err.Error())
}
