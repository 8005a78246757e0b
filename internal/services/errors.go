package services

import (
	"errors"
	"fmt"

	"github.com/demobank/backend/internal/models"
)

// Transfer failure kinds. Every kind maps to a distinct HTTP status and
// message in the handler layer; none of them leaves a partial mutation
// behind except LoggingFailedError.
var (
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrSelfTransfer      = errors.New("cannot transfer to your own account")
	ErrAccountDisabled   = errors.New("account is disabled")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrContention        = errors.New("transfer aborted after repeated conflicts, retry later")
)

// LoggingFailedError is the one partial-failure state in the system:
// both balances moved and committed, but the transaction record append
// failed. Callers must surface this as "funds moved, receipt pending",
// never as a generic failure, and must not roll back.
type LoggingFailedError struct {
	Record *models.Transaction
	Err    error
}

func (e *LoggingFailedError) Error() string {
	return fmt.Sprintf("transfer %s committed but record append failed: %v", e.Record.ID, e.Err)
}

func (e *LoggingFailedError) Unwrap() error { return e.Err }

// DuplicateTransferError is returned when an idempotency key has already
// been claimed. TransactionID identifies the original transfer when it is
// known; it is empty while the original is still in flight.
type DuplicateTransferError struct {
	TransactionID string
}

func (e *DuplicateTransferError) Error() string {
	return fmt.Sprintf("transfer already processed (transaction %s)", e.TransactionID)
}
