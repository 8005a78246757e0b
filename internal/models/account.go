package models

import (
	"time"
)

// Account represents a single user balance record.
// Balance is stored in the smallest currency unit (cents) to avoid
// floating-point drift. The Version column backs optimistic locking
// in the storage layer and is never exposed to callers.
type Account struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Balance   int64     `json:"balance" db:"balance"`
	Disabled  bool      `json:"disabled" db:"disabled"`
	Version   int       `json:"-" db:"version"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
