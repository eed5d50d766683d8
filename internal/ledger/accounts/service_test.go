package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/ledger"
)

type stubRepo struct {
	byID      map[int64]ledger.Account
	byCode    map[string]ledger.Account
	inserted  []ledger.Account
	updated   []ledger.Account
	activeSet map[int64]bool
	insertErr error
}

func newStubRepo(existing ...ledger.Account) *stubRepo {
	r := &stubRepo{
		byID:      make(map[int64]ledger.Account),
		byCode:    make(map[string]ledger.Account),
		activeSet: make(map[int64]bool),
	}
	for _, a := range existing {
		r.byID[a.ID] = a
		r.byCode[a.Code] = a
	}
	return r
}

func (r *stubRepo) Insert(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	if r.insertErr != nil {
		return ledger.Account{}, r.insertErr
	}
	if _, ok := r.byCode[a.Code]; ok {
		return ledger.Account{}, ledger.ErrDuplicateCode
	}
	a.ID = int64(len(r.byID) + 100)
	r.inserted = append(r.inserted, a)
	r.byID[a.ID] = a
	r.byCode[a.Code] = a
	return a, nil
}

func (r *stubRepo) GetByID(ctx context.Context, tenantID uuid.UUID, id int64) (ledger.Account, error) {
	a, ok := r.byID[id]
	if !ok {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	return a, nil
}

func (r *stubRepo) GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (ledger.Account, error) {
	a, ok := r.byCode[code]
	if !ok {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	return a, nil
}

func (r *stubRepo) List(ctx context.Context, tenantID uuid.UUID, includeInactive bool) ([]ledger.Account, error) {
	var out []ledger.Account
	for _, a := range r.byID {
		if !includeInactive && !a.IsActive {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *stubRepo) Update(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	r.updated = append(r.updated, a)
	r.byID[a.ID] = a
	return a, nil
}

func (r *stubRepo) SetActive(ctx context.Context, tenantID uuid.UUID, id int64, active bool, at time.Time) error {
	if _, ok := r.byID[id]; !ok {
		return ledger.ErrAccountNotFound
	}
	r.activeSet[id] = active
	return nil
}

type stubBalances struct {
	balance ledger.Money
}

func (b stubBalances) BalanceAsOf(ctx context.Context, tenantID uuid.UUID, accountID int64, asOf time.Time) (ledger.Money, error) {
	return b.balance, nil
}

var testTenant = uuid.New()

func TestCreateRejectsDuplicateCode(t *testing.T) {
	repo := newStubRepo(ledger.Account{ID: 1, Code: "1100", Type: ledger.AccountTypeAsset, Level: 1})
	service := NewService(repo, nil, nil)
	_, err := service.Create(context.Background(), CreateInput{
		TenantID: testTenant, Code: "1100", Name: "Cash", Type: ledger.AccountTypeAsset,
	})
	if !errors.Is(err, ledger.ErrDuplicateCode) {
		t.Fatalf("expected ErrDuplicateCode, got %v", err)
	}
}

func TestCreateRejectsParentTypeMismatch(t *testing.T) {
	parent := ledger.Account{ID: 1, Code: "2000", Type: ledger.AccountTypeLiability, Level: 1}
	repo := newStubRepo(parent)
	service := NewService(repo, nil, nil)
	_, err := service.Create(context.Background(), CreateInput{
		TenantID: testTenant, Code: "1100", Name: "Cash", Type: ledger.AccountTypeAsset, ParentID: &parent.ID,
	})
	if !errors.Is(err, ledger.ErrInvalidParent) {
		t.Fatalf("expected ErrInvalidParent, got %v", err)
	}
}

func TestCreateRejectsDeepParent(t *testing.T) {
	parent := ledger.Account{ID: 5, Code: "1110", Type: ledger.AccountTypeAsset, Level: 2}
	repo := newStubRepo(parent)
	service := NewService(repo, nil, nil)
	_, err := service.Create(context.Background(), CreateInput{
		TenantID: testTenant, Code: "1111", Name: "Petty Cash", Type: ledger.AccountTypeAsset, ParentID: &parent.ID,
	})
	if !errors.Is(err, ledger.ErrInvalidParent) {
		t.Fatalf("expected ErrInvalidParent, got %v", err)
	}
}

func TestCreateResolvesLegacyParentCode(t *testing.T) {
	parent := ledger.Account{ID: 1, Code: "1000", Type: ledger.AccountTypeAsset, Level: 1}
	repo := newStubRepo(parent)
	service := NewService(repo, nil, nil)
	created, err := service.Create(context.Background(), CreateInput{
		TenantID: testTenant, Code: "1100", Name: "Cash", Type: ledger.AccountTypeAsset, ParentCode: "1000",
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if created.ParentID == nil || *created.ParentID != parent.ID {
		t.Fatalf("expected parent id %d, got %v", parent.ID, created.ParentID)
	}
	if created.Level != 2 {
		t.Fatalf("expected level 2, got %d", created.Level)
	}
}

func TestCreateFlagsDisagreeingParentFields(t *testing.T) {
	parent := ledger.Account{ID: 1, Code: "1000", Type: ledger.AccountTypeAsset, Level: 1}
	other := ledger.Account{ID: 2, Code: "1900", Type: ledger.AccountTypeAsset, Level: 1}
	repo := newStubRepo(parent, other)
	service := NewService(repo, nil, nil)
	_, err := service.Create(context.Background(), CreateInput{
		TenantID: testTenant, Code: "1100", Name: "Cash", Type: ledger.AccountTypeAsset,
		ParentID: &parent.ID, ParentCode: "1900",
	})
	if !errors.Is(err, ledger.ErrParentAmbiguous) {
		t.Fatalf("expected ErrParentAmbiguous, got %v", err)
	}
}

func TestUpdateProtectsSystemAccountCodeAndType(t *testing.T) {
	account := ledger.Account{ID: 1, Code: "3000", Type: ledger.AccountTypeEquity, Level: 1, IsSystem: true}
	repo := newStubRepo(account)
	service := NewService(repo, nil, nil)

	newCode := "3999"
	_, err := service.Update(context.Background(), UpdateInput{TenantID: testTenant, ID: 1, Code: &newCode})
	if !errors.Is(err, ledger.ErrSystemAccount) {
		t.Fatalf("expected ErrSystemAccount for code change, got %v", err)
	}

	newName := "Retained Earnings"
	if _, err := service.Update(context.Background(), UpdateInput{TenantID: testTenant, ID: 1, Name: &newName}); err != nil {
		t.Fatalf("name change on system account should succeed, got %v", err)
	}
}

func TestDeactivateRejectsSystemAccount(t *testing.T) {
	account := ledger.Account{ID: 1, Code: "3000", Type: ledger.AccountTypeEquity, IsSystem: true, IsActive: true}
	repo := newStubRepo(account)
	service := NewService(repo, stubBalances{}, nil)
	err := service.Deactivate(context.Background(), DeactivateInput{TenantID: testTenant, ID: 1})
	if !errors.Is(err, ledger.ErrSystemAccount) {
		t.Fatalf("expected ErrSystemAccount, got %v", err)
	}
}

func TestDeactivateAllowsNonZeroBalanceWhenVisible(t *testing.T) {
	account := ledger.Account{ID: 2, Code: "1100", Type: ledger.AccountTypeAsset, IsActive: true}
	repo := newStubRepo(account)
	service := NewService(repo, stubBalances{balance: 5000}, nil)
	if err := service.Deactivate(context.Background(), DeactivateInput{TenantID: testTenant, ID: 2}); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if active := repo.activeSet[2]; active {
		t.Fatal("account should be inactive")
	}
}

func TestDeactivateRejectsHidingNonZeroBalance(t *testing.T) {
	account := ledger.Account{ID: 2, Code: "1100", Type: ledger.AccountTypeAsset, IsActive: true}
	repo := newStubRepo(account)
	service := NewService(repo, stubBalances{balance: 5000}, nil)
	err := service.Deactivate(context.Background(), DeactivateInput{TenantID: testTenant, ID: 2, HideFromReports: true})
	if !errors.Is(err, ledger.ErrAccountInUse) {
		t.Fatalf("expected ErrAccountInUse, got %v", err)
	}
}
