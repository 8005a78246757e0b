package postgres

import (
	"context"
	"database/sql"

	"github.com/demobank/backend/internal/models"
	"github.com/demobank/backend/internal/storage"
)

// TransactionLog is the Postgres implementation of storage.TransactionLog.
// The table is append-only; no UPDATE or DELETE is ever issued against it.
type TransactionLog struct {
	db *sql.DB
}

func NewTransactionLog(db *sql.DB) *TransactionLog {
	return &TransactionLog{db: db}
}

func (l *TransactionLog) Append(ctx context.Context, record *models.Transaction) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO transactions (id, from_account, to_account, amount, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		record.ID, record.From, record.To, record.Amount, record.Note, record.Timestamp)
	return err
}

func (l *TransactionLog) QueryByParticipant(ctx context.Context, accountID string) ([]models.Transaction, error) {
	// Two range scans (sender index, recipient index) unioned and sorted.
	return l.query(ctx, `
		SELECT id, from_account, to_account, amount, note, created_at
		FROM transactions WHERE from_account = $1
		UNION ALL
		SELECT id, from_account, to_account, amount, note, created_at
		FROM transactions WHERE to_account = $1
		ORDER BY created_at DESC`, accountID)
}

func (l *TransactionLog) QueryAll(ctx context.Context) ([]models.Transaction, error) {
	return l.query(ctx, `
		SELECT id, from_account, to_account, amount, note, created_at
		FROM transactions
		ORDER BY created_at DESC`)
}

func (l *TransactionLog) query(ctx context.Context, query string, args ...any) ([]models.Transaction, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.Transaction{}
	for rows.Next() {
		var r models.Transaction
		if err := rows.Scan(&r.ID, &r.From, &r.To, &r.Amount, &r.Note, &r.Timestamp); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

var _ storage.TransactionLog = (*TransactionLog)(nil)
