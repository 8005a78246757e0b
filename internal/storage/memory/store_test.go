package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demobank/backend/internal/models"
	"github.com/demobank/backend/internal/storage"
)

func TestAccountStore_CreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	store := NewAccountStore()

	created, err := store.CreateIfAbsent(ctx, "u1", "Alice", "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(0), created.Balance)

	require.NoError(t, store.SetBalance(ctx, "u1", 250))

	existing, err := store.CreateIfAbsent(ctx, "u1", "Other", "other@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(250), existing.Balance, "existing account must not be reset")
	assert.Equal(t, "Alice", existing.Name)
}

func TestAccountStore_FindByEmail(t *testing.T) {
	ctx := context.Background()
	store := NewAccountStore()
	_, err := store.CreateIfAbsent(ctx, "u1", "Alice", "Alice@Example.com")
	require.NoError(t, err)

	found, err := store.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", found.ID)

	_, err = store.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAccountStore_DeleteIsTerminal(t *testing.T) {
	ctx := context.Background()
	store := NewAccountStore()
	_, err := store.CreateIfAbsent(ctx, "u1", "Alice", "alice@example.com")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "u1"))

	_, err = store.Get(ctx, "u1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.CreateIfAbsent(ctx, "u1", "Alice", "alice@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound, "a deleted id is never reused")
}

func TestAccountStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewAccountStore()
	_, err := store.CreateIfAbsent(ctx, "u1", "Alice", "alice@example.com")
	require.NoError(t, err)

	a, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	a.Balance = 999999

	fresh, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), fresh.Balance, "callers must not be able to mutate stored state")
}

func TestAccountStore_DebitCredit(t *testing.T) {
	ctx := context.Background()

	t.Run("moves funds atomically", func(t *testing.T) {
		store := NewAccountStore()
		_, err := store.CreateIfAbsent(ctx, "a", "A", "a@example.com")
		require.NoError(t, err)
		_, err = store.CreateIfAbsent(ctx, "b", "B", "b@example.com")
		require.NoError(t, err)
		require.NoError(t, store.SetBalance(ctx, "a", 100))

		require.NoError(t, store.DebitCredit(ctx, "a", "b", 40))

		a, _ := store.Get(ctx, "a")
		b, _ := store.Get(ctx, "b")
		assert.Equal(t, int64(60), a.Balance)
		assert.Equal(t, int64(40), b.Balance)
	})

	t.Run("insufficient funds leaves both untouched", func(t *testing.T) {
		store := NewAccountStore()
		_, err := store.CreateIfAbsent(ctx, "a", "A", "a@example.com")
		require.NoError(t, err)
		_, err = store.CreateIfAbsent(ctx, "b", "B", "b@example.com")
		require.NoError(t, err)
		require.NoError(t, store.SetBalance(ctx, "a", 30))

		err = store.DebitCredit(ctx, "a", "b", 100)
		assert.ErrorIs(t, err, storage.ErrInsufficientFunds)

		a, _ := store.Get(ctx, "a")
		b, _ := store.Get(ctx, "b")
		assert.Equal(t, int64(30), a.Balance)
		assert.Equal(t, int64(0), b.Balance)
	})

	t.Run("unknown accounts", func(t *testing.T) {
		store := NewAccountStore()
		_, err := store.CreateIfAbsent(ctx, "a", "A", "a@example.com")
		require.NoError(t, err)

		assert.ErrorIs(t, store.DebitCredit(ctx, "a", "ghost", 10), storage.ErrNotFound)
		assert.ErrorIs(t, store.DebitCredit(ctx, "ghost", "a", 10), storage.ErrNotFound)
	})
}

// Hammer the same sender from many goroutines. The balance must never go
// negative and the total across accounts must be conserved.
func TestAccountStore_DebitCreditConcurrent(t *testing.T) {
	ctx := context.Background()
	store := NewAccountStore()
	_, err := store.CreateIfAbsent(ctx, "sender", "S", "s@example.com")
	require.NoError(t, err)
	_, err = store.CreateIfAbsent(ctx, "r1", "R1", "r1@example.com")
	require.NoError(t, err)
	_, err = store.CreateIfAbsent(ctx, "r2", "R2", "r2@example.com")
	require.NoError(t, err)
	require.NoError(t, store.SetBalance(ctx, "sender", 1000))

	const workers = 50
	var wg sync.WaitGroup
	var successes, failures int64
	var mu sync.Mutex

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			to := "r1"
			if i%2 == 0 {
				to = "r2"
			}
			err := store.DebitCredit(ctx, "sender", to, 30)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, storage.ErrInsufficientFunds):
				failures++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	// 1000 / 30 = 33 transfers fit, the rest must be refused.
	assert.Equal(t, int64(33), successes)
	assert.Equal(t, int64(workers-33), failures)

	sender, _ := store.Get(ctx, "sender")
	r1, _ := store.Get(ctx, "r1")
	r2, _ := store.Get(ctx, "r2")
	assert.GreaterOrEqual(t, sender.Balance, int64(0))
	assert.Equal(t, int64(1000), sender.Balance+r1.Balance+r2.Balance)
}

func TestTransactionLog(t *testing.T) {
	ctx := context.Background()
	log := NewTransactionLog()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []models.Transaction{
		{ID: "t1", From: "a", To: "b", Amount: 10, Timestamp: base},
		{ID: "t2", From: "b", To: "c", Amount: 20, Timestamp: base.Add(time.Minute)},
		{ID: "t3", From: "c", To: "a", Amount: 30, Timestamp: base.Add(2 * time.Minute)},
	}
	for i := range records {
		require.NoError(t, log.Append(ctx, &records[i]))
	}

	t.Run("query by participant covers both directions newest first", func(t *testing.T) {
		got, err := log.QueryByParticipant(ctx, "a")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "t3", got[0].ID)
		assert.Equal(t, "t1", got[1].ID)
	})

	t.Run("uninvolved account gets an empty statement", func(t *testing.T) {
		got, err := log.QueryByParticipant(ctx, "z")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("query all newest first", func(t *testing.T) {
		got, err := log.QueryAll(ctx)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "t3", got[0].ID)
		assert.Equal(t, "t1", got[2].ID)
	})
}
