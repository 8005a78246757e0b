package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/demobank/backend/internal/audit"
	"github.com/demobank/backend/internal/config"
	"github.com/demobank/backend/internal/models"
	"github.com/demobank/backend/internal/storage"
)

// EventPublisher is the boundary to downstream notification consumers.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// TransferCompletedEvent is published after a transfer fully succeeds.
type TransferCompletedEvent struct {
	TransactionID string    `json:"transaction_id"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	Amount        int64     `json:"amount"`
	Timestamp     time.Time `json:"timestamp"`
}

// LedgerService executes transfers as a single atomic unit: both balances
// change, or neither does. The transaction record is appended strictly
// after the balance mutation commits; an append failure is surfaced as
// LoggingFailedError, never as a rollback.
type LedgerService struct {
	accounts storage.AccountStore
	txlog    storage.TransactionLog
	redis    *redis.Client
	events   EventPublisher
	audit    *audit.Logger
	cfg      *config.LedgerConfig
}

func NewLedgerService(accounts storage.AccountStore, txlog storage.TransactionLog,
	redisClient *redis.Client, events EventPublisher, cfg *config.LedgerConfig) *LedgerService {
	if cfg == nil {
		cfg = config.LoadLedgerConfig()
	}
	return &LedgerService{
		accounts: accounts,
		txlog:    txlog,
		redis:    redisClient,
		events:   events,
		audit:    audit.NewLogger(),
		cfg:      cfg,
	}
}

// Transfer moves amount from the sender to the account resolved from
// recipientEmail. Validation order: amount, idempotency key, recipient
// resolution, self-transfer, account status. The balance check happens
// again inside the atomic mutation, not only here, to close the race
// window between validation and commit.
func (s *LedgerService) Transfer(ctx context.Context, fromID, recipientEmail string,
	amount int64, note, idempotencyKey string) (*models.Transaction, error) {

	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if len(note) > s.cfg.MaxNoteLength {
		note = note[:s.cfg.MaxNoteLength]
	}

	claimed, err := s.claimIdempotencyKey(ctx, fromID, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, s.duplicateTransfer(ctx, fromID, idempotencyKey)
	}
	releaseClaim := func() { s.releaseIdempotencyKey(ctx, fromID, idempotencyKey) }

	recipient, err := s.accounts.FindByEmail(ctx, recipientEmail)
	if err != nil {
		releaseClaim()
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}

	if recipient.ID == fromID {
		releaseClaim()
		return nil, ErrSelfTransfer
	}

	sender, err := s.accounts.Get(ctx, fromID)
	if err != nil {
		releaseClaim()
		return nil, err
	}
	if sender.Disabled || recipient.Disabled {
		releaseClaim()
		return nil, ErrAccountDisabled
	}

	if err := s.mutateBalances(ctx, fromID, recipient.ID, amount); err != nil {
		releaseClaim()
		s.audit.LogError("", fromID, err)
		return nil, err
	}

	// The mutation is durable from here on. Whatever happens below, the
	// transfer must never be reported as a total failure.
	record := &models.Transaction{
		ID:        uuid.NewString(),
		From:      fromID,
		To:        recipient.ID,
		Amount:    amount,
		Note:      note,
		Timestamp: time.Now().UTC(),
	}

	if err := s.txlog.Append(ctx, record); err != nil {
		log.Printf("[TRANSFER] Balances committed but record append failed for %s -> %s: %v",
			fromID, recipient.ID, err)
		s.audit.LogError(record.ID, fromID, err)
		s.storeIdempotencyResult(ctx, fromID, idempotencyKey, record.ID)
		return nil, &LoggingFailedError{Record: record, Err: err}
	}

	s.storeIdempotencyResult(ctx, fromID, idempotencyKey, record.ID)
	s.audit.LogTransfer(record.ID, fromID, recipient.ID, amount, "SUCCESS")
	s.publishCompleted(record)

	return record, nil
}

// mutateBalances runs the bounded optimistic-retry loop around the
// store's DebitCredit primitive. InsufficientFunds aborts immediately;
// conflicts are retried with linear backoff until the bound is exhausted.
func (s *LedgerService) mutateBalances(ctx context.Context, fromID, toID string, amount int64) error {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(s.cfg.RetryBackoff * time.Duration(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := s.accounts.DebitCredit(ctx, fromID, toID, amount)
		if err == nil {
			return nil
		}
		if errors.Is(err, storage.ErrInsufficientFunds) {
			return ErrInsufficientFunds
		}
		if !errors.Is(err, storage.ErrConflict) {
			return err
		}
		lastErr = err
		log.Printf("[TRANSFER] Conflict on attempt %d for %s -> %s, retrying", attempt+1, fromID, toID)
	}
	return fmt.Errorf("%w: %v", ErrContention, lastErr)
}

// Statement returns every record where the account is sender or
// recipient, newest first.
func (s *LedgerService) Statement(ctx context.Context, accountID string) ([]models.Transaction, error) {
	return s.txlog.QueryByParticipant(ctx, accountID)
}

// AllTransactions is the administrative full scan.
func (s *LedgerService) AllTransactions(ctx context.Context) ([]models.Transaction, error) {
	return s.txlog.QueryAll(ctx)
}

func (s *LedgerService) idempotencyRedisKey(fromID, key string) string {
	return "transfer:idem:" + fromID + ":" + key
}

// claimIdempotencyKey reserves the key before the mutation begins.
// Returns true when this request owns the key, or when dedup is disabled
// (no key supplied, or no Redis configured).
func (s *LedgerService) claimIdempotencyKey(ctx context.Context, fromID, key string) (bool, error) {
	if key == "" || s.redis == nil {
		return true, nil
	}
	ok, err := s.redis.SetNX(ctx, s.idempotencyRedisKey(fromID, key), "pending", s.cfg.IdempotencyTTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (s *LedgerService) duplicateTransfer(ctx context.Context, fromID, key string) error {
	val, err := s.redis.Get(ctx, s.idempotencyRedisKey(fromID, key)).Result()
	if err != nil || val == "pending" {
		return &DuplicateTransferError{}
	}
	return &DuplicateTransferError{TransactionID: val}
}

// releaseIdempotencyKey drops the claim when the transfer failed before
// any balance moved, so the client can safely retry with the same key.
func (s *LedgerService) releaseIdempotencyKey(ctx context.Context, fromID, key string) {
	if key == "" || s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, s.idempotencyRedisKey(fromID, key)).Err(); err != nil {
		log.Printf("[TRANSFER] Failed to release idempotency key: %v", err)
	}
}

func (s *LedgerService) storeIdempotencyResult(ctx context.Context, fromID, key, transactionID string) {
	if key == "" || s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, s.idempotencyRedisKey(fromID, key), transactionID, s.cfg.IdempotencyTTL).Err(); err != nil {
		log.Printf("[TRANSFER] Failed to store idempotency result: %v", err)
	}
}

func (s *LedgerService) publishCompleted(record *models.Transaction) {
	if s.events == nil {
		return
	}
	event := TransferCompletedEvent{
		TransactionID: record.ID,
		From:          record.From,
		To:            record.To,
		Amount:        record.Amount,
		Timestamp:     record.Timestamp,
	}
	// The transfer is already durable; a lost event only delays
	// notification delivery.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.events.Publish(ctx, record.ID, event); err != nil {
			log.Printf("[TRANSFER] Failed to publish completed event for %s: %v", record.ID, err)
		}
	}()
}
