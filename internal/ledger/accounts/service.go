// Package accounts manages the chart of accounts: creation, hierarchy
// resolution, updates, and soft deletion.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// RepositoryPort abstracts account persistence.
type RepositoryPort interface {
	Insert(ctx context.Context, a ledger.Account) (ledger.Account, error)
	GetByID(ctx context.Context, tenantID uuid.UUID, id int64) (ledger.Account, error)
	GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (ledger.Account, error)
	List(ctx context.Context, tenantID uuid.UUID, includeInactive bool) ([]ledger.Account, error)
	Update(ctx context.Context, a ledger.Account) (ledger.Account, error)
	SetActive(ctx context.Context, tenantID uuid.UUID, id int64, active bool, at time.Time) error
}

// BalancePort reads the cumulative balance of an account.
type BalancePort interface {
	BalanceAsOf(ctx context.Context, tenantID uuid.UUID, accountID int64, asOf time.Time) (ledger.Money, error)
}

// AuditPort records account mutations for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates chart of accounts operations.
type Service struct {
	repo     RepositoryPort
	balances BalancePort
	audit    AuditPort
	now      func() time.Time
}

// NewService constructs the accounts service.
func NewService(repo RepositoryPort, balances BalancePort, audit AuditPort) *Service {
	return &Service{repo: repo, balances: balances, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateInput describes a new account. Parent may be given either by id or,
// for legacy callers, by code; when both are present they must agree.
type CreateInput struct {
	TenantID   uuid.UUID
	Code       string
	Name       string
	Type       ledger.AccountType
	SubType    string
	ParentID   *int64
	ParentCode string
	IsSystem   bool
	ActorID    int64
}

// Validate checks structural requirements before any read.
func (in CreateInput) Validate() error {
	if in.TenantID == uuid.Nil {
		return ledger.ErrTenantRequired
	}
	if strings.TrimSpace(in.Code) == "" {
		return errors.New("accounts: code required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("accounts: name required")
	}
	if !in.Type.Valid() {
		return fmt.Errorf("accounts: unknown account type %q", in.Type)
	}
	return nil
}

// Create validates hierarchy rules and inserts the account.
func (s *Service) Create(ctx context.Context, in CreateInput) (ledger.Account, error) {
	if err := in.Validate(); err != nil {
		return ledger.Account{}, err
	}
	level := 1
	parentID := in.ParentID
	if in.ParentID != nil || in.ParentCode != "" {
		parent, err := s.resolveParent(ctx, in.TenantID, in.ParentID, in.ParentCode)
		if err != nil {
			return ledger.Account{}, err
		}
		if parent.Type != in.Type {
			return ledger.Account{}, fmt.Errorf("accounts: parent %s is %s, child is %s: %w", parent.Code, parent.Type, in.Type, ledger.ErrInvalidParent)
		}
		if parent.Level != 1 {
			return ledger.Account{}, fmt.Errorf("accounts: parent %s is level %d: %w", parent.Code, parent.Level, ledger.ErrInvalidParent)
		}
		parentID = &parent.ID
		level = parent.Level + 1
	}
	account, err := s.repo.Insert(ctx, ledger.Account{
		TenantID: in.TenantID,
		Code:     strings.TrimSpace(in.Code),
		Name:     strings.TrimSpace(in.Name),
		Type:     in.Type,
		SubType:  in.SubType,
		ParentID: parentID,
		Level:    level,
		IsSystem: in.IsSystem,
	})
	if err != nil {
		return ledger.Account{}, err
	}
	s.record(ctx, in.TenantID, in.ActorID, "account.create", account.ID, map[string]any{"code": account.Code, "type": string(account.Type)})
	return account, nil
}

// resolveParent honors both the explicit parent id and the legacy parent code.
// When both are present and point at different accounts the ambiguity is
// surfaced, never silently resolved.
func (s *Service) resolveParent(ctx context.Context, tenantID uuid.UUID, parentID *int64, parentCode string) (ledger.Account, error) {
	switch {
	case parentID != nil && parentCode != "":
		byID, err := s.repo.GetByID(ctx, tenantID, *parentID)
		if err != nil {
			return ledger.Account{}, err
		}
		if byID.Code != parentCode {
			return ledger.Account{}, fmt.Errorf("accounts: parent id %d has code %s, caller sent %s: %w", *parentID, byID.Code, parentCode, ledger.ErrParentAmbiguous)
		}
		return byID, nil
	case parentID != nil:
		return s.repo.GetByID(ctx, tenantID, *parentID)
	default:
		return s.repo.GetByCode(ctx, tenantID, parentCode)
	}
}

// UpdateInput carries a partial account update. Nil fields are left untouched.
type UpdateInput struct {
	TenantID uuid.UUID
	ID       int64
	Code     *string
	Name     *string
	Type     *ledger.AccountType
	SubType  *string
	ActorID  int64
}

// Update applies a partial update. Code and type of system accounts are
// immutable.
func (s *Service) Update(ctx context.Context, in UpdateInput) (ledger.Account, error) {
	if in.TenantID == uuid.Nil {
		return ledger.Account{}, ledger.ErrTenantRequired
	}
	current, err := s.repo.GetByID(ctx, in.TenantID, in.ID)
	if err != nil {
		return ledger.Account{}, err
	}
	if current.IsSystem {
		if (in.Code != nil && *in.Code != current.Code) || (in.Type != nil && *in.Type != current.Type) {
			return ledger.Account{}, ledger.ErrSystemAccount
		}
	}
	if in.Code != nil {
		current.Code = strings.TrimSpace(*in.Code)
	}
	if in.Name != nil {
		current.Name = strings.TrimSpace(*in.Name)
	}
	if in.Type != nil {
		if !in.Type.Valid() {
			return ledger.Account{}, fmt.Errorf("accounts: unknown account type %q", *in.Type)
		}
		current.Type = *in.Type
	}
	if in.SubType != nil {
		current.SubType = *in.SubType
	}
	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		return ledger.Account{}, err
	}
	s.record(ctx, in.TenantID, in.ActorID, "account.update", updated.ID, map[string]any{"code": updated.Code})
	return updated, nil
}

// DeactivateInput controls soft deletion. HideFromReports requests exclusion
// from historical reports as well, which is refused while the account carries
// a balance.
type DeactivateInput struct {
	TenantID        uuid.UUID
	ID              int64
	HideFromReports bool
	ActorID         int64
}

// Deactivate soft-deletes an account. Accounts are never hard-deleted once
// referenced by postings; inactive accounts stay queryable and keep appearing
// in reports for ranges where they have movements.
func (s *Service) Deactivate(ctx context.Context, in DeactivateInput) error {
	if in.TenantID == uuid.Nil {
		return ledger.ErrTenantRequired
	}
	account, err := s.repo.GetByID(ctx, in.TenantID, in.ID)
	if err != nil {
		return err
	}
	if account.IsSystem {
		return ledger.ErrSystemAccount
	}
	if in.HideFromReports && s.balances != nil {
		balance, err := s.balances.BalanceAsOf(ctx, in.TenantID, in.ID, s.now())
		if err != nil {
			return err
		}
		if balance != 0 {
			return fmt.Errorf("accounts: %s holds %s: %w", account.Code, balance, ledger.ErrAccountInUse)
		}
	}
	if err := s.repo.SetActive(ctx, in.TenantID, in.ID, false, s.now()); err != nil {
		return err
	}
	s.record(ctx, in.TenantID, in.ActorID, "account.deactivate", in.ID, map[string]any{"code": account.Code})
	return nil
}

// Reactivate restores a soft-deleted account.
func (s *Service) Reactivate(ctx context.Context, tenantID uuid.UUID, id int64, actorID int64) error {
	if tenantID == uuid.Nil {
		return ledger.ErrTenantRequired
	}
	if err := s.repo.SetActive(ctx, tenantID, id, true, s.now()); err != nil {
		return err
	}
	s.record(ctx, tenantID, actorID, "account.reactivate", id, nil)
	return nil
}

// List returns the chart of accounts.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, includeInactive bool) ([]ledger.Account, error) {
	if tenantID == uuid.Nil {
		return nil, ledger.ErrTenantRequired
	}
	return s.repo.List(ctx, tenantID, includeInactive)
}

// Get loads a single account.
func (s *Service) Get(ctx context.Context, tenantID uuid.UUID, id int64) (ledger.Account, error) {
	if tenantID == uuid.Nil {
		return ledger.Account{}, ledger.ErrTenantRequired
	}
	return s.repo.GetByID(ctx, tenantID, id)
}

func (s *Service) record(ctx context.Context, tenantID uuid.UUID, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   action,
		Entity:   "account",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
		At:       s.now(),
	})
}
