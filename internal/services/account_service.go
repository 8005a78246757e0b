package services

import (
	"context"
	"fmt"

	"github.com/demobank/backend/internal/audit"
	"github.com/demobank/backend/internal/models"
	"github.com/demobank/backend/internal/storage"
)

// AccountService covers account lifecycle and the privileged
// administrative overrides. Admin mutations bypass the ledger engine,
// write no transaction record, and are audit-logged instead.
type AccountService struct {
	accounts storage.AccountStore
	audit    *audit.Logger
}

func NewAccountService(accounts storage.AccountStore) *AccountService {
	return &AccountService{
		accounts: accounts,
		audit:    audit.NewLogger(),
	}
}

// EnsureAccount creates the caller's account with balance 0 on first
// touch after registration. Idempotent: subsequent calls return the
// existing record unchanged.
func (s *AccountService) EnsureAccount(ctx context.Context, id, name, email string) (*models.Account, error) {
	return s.accounts.CreateIfAbsent(ctx, id, name, email)
}

func (s *AccountService) Get(ctx context.Context, id string) (*models.Account, error) {
	return s.accounts.Get(ctx, id)
}

func (s *AccountService) UpdateName(ctx context.Context, id, name string) error {
	return s.accounts.SetName(ctx, id, name)
}

func (s *AccountService) ListAll(ctx context.Context) ([]models.Account, error) {
	return s.accounts.ListAll(ctx)
}

// SetBalance overwrites a balance directly. The only ledger invariant it
// honors is non-negativity; no transaction record is written.
func (s *AccountService) SetBalance(ctx context.Context, adminID, accountID string, balance int64) error {
	if balance < 0 {
		return ErrInvalidAmount
	}
	if err := s.accounts.SetBalance(ctx, accountID, balance); err != nil {
		return err
	}
	s.audit.LogAdminOverride(adminID, accountID, "BALANCE_OVERRIDE",
		fmt.Sprintf("balance set to %d", balance))
	return nil
}

func (s *AccountService) SetDisabled(ctx context.Context, adminID, accountID string, disabled bool) error {
	if err := s.accounts.SetDisabled(ctx, accountID, disabled); err != nil {
		return err
	}
	s.audit.LogAdminOverride(adminID, accountID, "DISABLE_TOGGLE",
		fmt.Sprintf("disabled set to %t", disabled))
	return nil
}

// Delete removes an account permanently. The id is never reused;
// historical transaction records keep it as an opaque reference.
func (s *AccountService) Delete(ctx context.Context, adminID, accountID string) error {
	if err := s.accounts.Delete(ctx, accountID); err != nil {
		return err
	}
	s.audit.LogAdminOverride(adminID, accountID, "ACCOUNT_DELETE", "account deleted")
	return nil
}
