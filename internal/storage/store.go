package storage

import (
	"context"
	"errors"

	"github.com/demobank/backend/internal/models"
)

var (
	// ErrNotFound is returned when no account exists for the given key.
	ErrNotFound = errors.New("account not found")

	// ErrInsufficientFunds is returned by DebitCredit when the sender
	// balance, re-read inside the transactional unit, is below the amount.
	// No mutation is visible when this is returned.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrConflict is returned by DebitCredit when a concurrent writer
	// invalidated the attempt. The caller may retry.
	ErrConflict = errors.New("concurrent update conflict")
)

// AccountStore is the durable mapping from account id to balance record.
type AccountStore interface {
	// CreateIfAbsent creates an account with balance 0 if none exists.
	// Idempotent: re-invocation returns the existing account unchanged.
	CreateIfAbsent(ctx context.Context, id, name, email string) (*models.Account, error)

	Get(ctx context.Context, id string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	ListAll(ctx context.Context) ([]models.Account, error)

	// SetBalance overwrites the balance directly. Privileged; bypasses
	// the ledger and writes no transaction record.
	SetBalance(ctx context.Context, id string, balance int64) error
	SetDisabled(ctx context.Context, id string, disabled bool) error
	SetName(ctx context.Context, id, name string) error

	// Delete is terminal: the id cannot be reused and subsequent reads
	// return ErrNotFound. Historical transaction records keep the id.
	Delete(ctx context.Context, id string) error

	// DebitCredit performs one attempt of the atomic transfer mutation:
	// both balances change, or neither does. Balances are re-read inside
	// the transactional unit, not taken from a caller snapshot.
	DebitCredit(ctx context.Context, fromID, toID string, amount int64) error
}

// TransactionLog is the append-only store of completed transfers.
type TransactionLog interface {
	Append(ctx context.Context, record *models.Transaction) error

	// QueryByParticipant returns records where the account is sender or
	// recipient, newest first.
	QueryByParticipant(ctx context.Context, accountID string) ([]models.Transaction, error)

	// QueryAll returns every record, newest first. Administrative use;
	// collaborators paginate externally.
	QueryAll(ctx context.Context) ([]models.Transaction, error)
}
