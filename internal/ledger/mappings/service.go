package mappings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// RepositoryPort abstracts mapping persistence.
type RepositoryPort interface {
	Insert(ctx context.Context, m Mapping) (Mapping, error)
	GetByCategory(ctx context.Context, tenantID uuid.UUID, category string) (Mapping, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]Mapping, error)
	Update(ctx context.Context, m Mapping) (Mapping, error)
	Delete(ctx context.Context, tenantID uuid.UUID, id int64) error
}

// PostingPort is the slice of the posting engine events go through.
type PostingPort interface {
	Post(ctx context.Context, tenantID uuid.UUID, input ledger.PostingInput) (ledger.JournalEntry, error)
}

// AuditPort records mapping changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages mappings and turns business events into journal entries.
type Service struct {
	repo    RepositoryPort
	posting PostingPort
	audit   AuditPort
	now     func() time.Time
}

// NewService constructs the mappings service.
func NewService(repo RepositoryPort, posting PostingPort, audit AuditPort) *Service {
	return &Service{repo: repo, posting: posting, audit: audit, now: time.Now}
}

// CreateInput describes a new category mapping.
type CreateInput struct {
	Category        string
	Description     string
	DebitAccountID  int64
	CreditAccountID int64
	ActorID         int64
}

// Create registers a category mapping.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, in CreateInput) (Mapping, error) {
	if tenantID == uuid.Nil {
		return Mapping{}, ledger.ErrTenantRequired
	}
	if in.Category == "" {
		return Mapping{}, errors.New("mappings: category required")
	}
	if in.DebitAccountID == 0 || in.CreditAccountID == 0 {
		return Mapping{}, errors.New("mappings: debit and credit accounts required")
	}
	if in.DebitAccountID == in.CreditAccountID {
		return Mapping{}, errors.New("mappings: debit and credit accounts must differ")
	}
	created, err := s.repo.Insert(ctx, Mapping{
		TenantID:        tenantID,
		Category:        in.Category,
		Description:     in.Description,
		DebitAccountID:  in.DebitAccountID,
		CreditAccountID: in.CreditAccountID,
	})
	if err != nil {
		return Mapping{}, err
	}
	s.record(ctx, tenantID, in.ActorID, "mapping.create", created.Category)
	return created, nil
}

// List returns the tenant's mappings.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]Mapping, error) {
	if tenantID == uuid.Nil {
		return nil, ledger.ErrTenantRequired
	}
	return s.repo.List(ctx, tenantID)
}

// EventInput is a business event to be posted through a category mapping.
type EventInput struct {
	Category    string
	Amount      ledger.Money
	Date        time.Time
	Description string
	Source      ledger.EntrySource
	SourceID    uuid.UUID
	ActorID     int64
}

// PostEvent resolves the category's accounts and posts a two-line entry
// through the posting engine, inheriting all of its invariants: balance
// check, period status, numbering, and source idempotency.
func (s *Service) PostEvent(ctx context.Context, tenantID uuid.UUID, in EventInput) (ledger.JournalEntry, error) {
	if tenantID == uuid.Nil {
		return ledger.JournalEntry{}, ledger.ErrTenantRequired
	}
	if in.Amount <= 0 {
		return ledger.JournalEntry{}, errors.New("mappings: event amount must be positive")
	}
	mapping, err := s.repo.GetByCategory(ctx, tenantID, in.Category)
	if err != nil {
		return ledger.JournalEntry{}, fmt.Errorf("mappings: category %q: %w", in.Category, err)
	}
	source := in.Source
	if source == "" {
		source = ledger.SourceExpense
	}
	description := in.Description
	if description == "" {
		description = mapping.Description
	}
	return s.posting.Post(ctx, tenantID, ledger.PostingInput{
		Date:        in.Date,
		Description: description,
		Source:      source,
		SourceID:    in.SourceID,
		PostedBy:    in.ActorID,
		Lines: []ledger.PostingLineInput{
			{AccountID: mapping.DebitAccountID, Debit: in.Amount, Description: description},
			{AccountID: mapping.CreditAccountID, Credit: in.Amount, Description: description},
		},
	})
}

// Update changes a mapping's accounts or description.
func (s *Service) Update(ctx context.Context, tenantID uuid.UUID, m Mapping, actorID int64) (Mapping, error) {
	if tenantID == uuid.Nil {
		return Mapping{}, ledger.ErrTenantRequired
	}
	if m.DebitAccountID == m.CreditAccountID {
		return Mapping{}, errors.New("mappings: debit and credit accounts must differ")
	}
	m.TenantID = tenantID
	updated, err := s.repo.Update(ctx, m)
	if err != nil {
		return Mapping{}, err
	}
	s.record(ctx, tenantID, actorID, "mapping.update", updated.Category)
	return updated, nil
}

// Delete removes a mapping; future events for the category are rejected until
// it is remapped.
func (s *Service) Delete(ctx context.Context, tenantID uuid.UUID, id int64, actorID int64) error {
	if tenantID == uuid.Nil {
		return ledger.ErrTenantRequired
	}
	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.record(ctx, tenantID, actorID, "mapping.delete", fmt.Sprintf("%d", id))
	return nil
}

func (s *Service) record(ctx context.Context, tenantID uuid.UUID, actorID int64, action, entityID string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   action,
		Entity:   "account_mapping",
		EntityID: entityID,
		At:       s.now(),
	})
}
