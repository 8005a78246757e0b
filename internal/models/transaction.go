package models

import (
	"time"
)

// Transaction is the immutable record of one completed transfer.
// A record exists if and only if the corresponding balance mutation
// already committed; records are append-only and never mutated.
type Transaction struct {
	ID        string    `json:"id" db:"id"`
	From      string    `json:"from" db:"from_account"`
	To        string    `json:"to" db:"to_account"`
	Amount    int64     `json:"amount" db:"amount"` // in cents, > 0
	Note      string    `json:"note,omitempty" db:"note"`
	Timestamp time.Time `json:"timestamp" db:"created_at"`
}

// TransferRequest is the payload accepted by POST /transfers.
type TransferRequest struct {
	ToEmail        string `json:"toEmail" validate:"required,email"`
	Amount         int64  `json:"amount" validate:"required,gt=0"`
	Note           string `json:"note" validate:"max=200"`
	IdempotencyKey string `json:"idempotencyKey" validate:"max=64"`
}
