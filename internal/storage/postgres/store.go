package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/demobank/backend/internal/models"
	"github.com/demobank/backend/internal/storage"
)

const serializationFailure = "40001"

// AccountStore is the Postgres implementation of storage.AccountStore.
// DebitCredit locks both account rows in ascending-ID order and guards
// every balance write with a version column, so a concurrent writer that
// slips between read and write surfaces as storage.ErrConflict instead
// of a lost update.
type AccountStore struct {
	db *sql.DB
}

func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) CreateIfAbsent(ctx context.Context, id, name, email string) (*models.Account, error) {
	// Tombstoned ids are terminal and must not be resurrected.
	var gone bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM deleted_accounts WHERE id = $1)`, id).Scan(&gone)
	if err != nil {
		return nil, err
	}
	if gone {
		return nil, storage.ErrNotFound
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, email, balance, disabled, version, created_at, updated_at)
		VALUES ($1, $2, $3, 0, FALSE, 1, NOW(), NOW())
		ON CONFLICT (id) DO NOTHING`,
		id, name, email)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *AccountStore) Get(ctx context.Context, id string) (*models.Account, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT id, name, email, balance, disabled, version, created_at, updated_at
		FROM accounts WHERE id = $1`, id))
}

func (s *AccountStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT id, name, email, balance, disabled, version, created_at, updated_at
		FROM accounts WHERE LOWER(email) = LOWER($1)
		LIMIT 1`, email))
}

func (s *AccountStore) scanOne(row *sql.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Balance, &a.Disabled,
		&a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *AccountStore) ListAll(ctx context.Context) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, balance, disabled, version, created_at, updated_at
		FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.Balance, &a.Disabled,
			&a.Version, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *AccountStore) SetBalance(ctx context.Context, id string, balance int64) error {
	return s.exec(ctx, `
		UPDATE accounts
		SET balance = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2`, balance, id)
}

func (s *AccountStore) SetDisabled(ctx context.Context, id string, disabled bool) error {
	return s.exec(ctx, `
		UPDATE accounts SET disabled = $1, updated_at = NOW() WHERE id = $2`, disabled, id)
}

func (s *AccountStore) SetName(ctx context.Context, id, name string) error {
	return s.exec(ctx, `
		UPDATE accounts SET name = $1, updated_at = NOW() WHERE id = $2`, name, id)
}

func (s *AccountStore) exec(ctx context.Context, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *AccountStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO deleted_accounts (id, deleted_at) VALUES ($1, NOW())`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *AccountStore) DebitCredit(ctx context.Context, fromID, toID string, amount int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Lock rows in ascending-ID order to prevent deadlocks between
	// transfers touching the same account pair in opposite directions.
	firstLock, secondLock := fromID, toID
	if fromID > toID {
		firstLock, secondLock = toID, fromID
	}

	first, err := lockAccount(ctx, tx, firstLock)
	if err != nil {
		return err
	}
	second, err := lockAccount(ctx, tx, secondLock)
	if err != nil {
		return err
	}

	from, to := first, second
	if firstLock != fromID {
		from, to = second, first
	}

	if from.Balance < amount {
		return storage.ErrInsufficientFunds
	}

	if err := updateBalance(ctx, tx, from.ID, from.Balance-amount, from.Version); err != nil {
		return err
	}
	if err := updateBalance(ctx, tx, to.ID, to.Balance+amount, to.Version); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == serializationFailure {
			return storage.ErrConflict
		}
		return err
	}
	return nil
}

func lockAccount(ctx context.Context, tx *sql.Tx, id string) (*models.Account, error) {
	var a models.Account
	err := tx.QueryRowContext(ctx, `
		SELECT id, balance, version FROM accounts
		WHERE id = $1
		FOR UPDATE`, id).Scan(&a.ID, &a.Balance, &a.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func updateBalance(ctx context.Context, tx *sql.Tx, id string, balance int64, version int) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4`,
		balance, time.Now(), id, version)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("account %s: %w", id, storage.ErrConflict)
	}
	return nil
}

var _ storage.AccountStore = (*AccountStore)(nil)
