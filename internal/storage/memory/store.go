package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/demobank/backend/internal/models"
	"github.com/demobank/backend/internal/storage"
)

// AccountStore is an in-memory implementation of storage.AccountStore.
// Used by tests and local development. DebitCredit serializes per account
// pair by taking both account locks in ascending-ID order, so the memory
// implementation never reports storage.ErrConflict.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
	deleted  map[string]struct{} // terminal tombstones, ids are never reused
	lockMu   sync.Mutex
	locks    map[string]*sync.Mutex
}

func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[string]*models.Account),
		deleted:  make(map[string]struct{}),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *AccountStore) accountLock(id string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	if _, ok := s.locks[id]; !ok {
		s.locks[id] = &sync.Mutex{}
	}
	return s.locks[id]
}

func (s *AccountStore) CreateIfAbsent(ctx context.Context, id, name, email string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, gone := s.deleted[id]; gone {
		return nil, storage.ErrNotFound
	}
	if a, ok := s.accounts[id]; ok {
		cp := *a
		return &cp, nil
	}

	now := time.Now()
	a := &models.Account{
		ID:        id,
		Name:      name,
		Email:     email,
		Balance:   0,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.accounts[id] = a
	cp := *a
	return &cp, nil
}

func (s *AccountStore) Get(ctx context.Context, id string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *AccountStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *AccountStore) ListAll(ctx context.Context) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *AccountStore) SetBalance(ctx context.Context, id string, balance int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return storage.ErrNotFound
	}
	a.Balance = balance
	a.Version++
	a.UpdatedAt = time.Now()
	return nil
}

func (s *AccountStore) SetDisabled(ctx context.Context, id string, disabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return storage.ErrNotFound
	}
	a.Disabled = disabled
	a.UpdatedAt = time.Now()
	return nil
}

func (s *AccountStore) SetName(ctx context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return storage.ErrNotFound
	}
	a.Name = name
	a.UpdatedAt = time.Now()
	return nil
}

func (s *AccountStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.accounts, id)
	s.deleted[id] = struct{}{}
	return nil
}

func (s *AccountStore) DebitCredit(ctx context.Context, fromID, toID string, amount int64) error {
	// Lock both accounts in ascending-ID order to avoid deadlocks.
	first, second := fromID, toID
	if first > second {
		first, second = second, first
	}
	firstMu := s.accountLock(first)
	secondMu := s.accountLock(second)
	firstMu.Lock()
	defer firstMu.Unlock()
	secondMu.Lock()
	defer secondMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	from, ok := s.accounts[fromID]
	if !ok {
		return storage.ErrNotFound
	}
	to, ok := s.accounts[toID]
	if !ok {
		return storage.ErrNotFound
	}

	// Re-check at mutation time, not from a caller snapshot.
	if from.Balance < amount {
		return storage.ErrInsufficientFunds
	}

	now := time.Now()
	from.Balance -= amount
	from.Version++
	from.UpdatedAt = now
	to.Balance += amount
	to.Version++
	to.UpdatedAt = now
	return nil
}

// TransactionLog is an in-memory implementation of storage.TransactionLog.
type TransactionLog struct {
	mu      sync.Mutex
	records []models.Transaction
}

func NewTransactionLog() *TransactionLog {
	return &TransactionLog{records: make([]models.Transaction, 0)}
}

func (l *TransactionLog) Append(ctx context.Context, record *models.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, *record)
	return nil
}

func (l *TransactionLog) QueryByParticipant(ctx context.Context, accountID string) ([]models.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Transaction
	for _, r := range l.records {
		if r.From == accountID || r.To == accountID {
			out = append(out, r)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (l *TransactionLog) QueryAll(ctx context.Context) ([]models.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Transaction, len(l.records))
	copy(out, l.records)
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(records []models.Transaction) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
}

var (
	_ storage.AccountStore   = (*AccountStore)(nil)
	_ storage.TransactionLog = (*TransactionLog)(nil)
)
