package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demobank/backend/internal/storage"
	"github.com/demobank/backend/internal/storage/memory"
)

func TestAccountService_EnsureAccount(t *testing.T) {
	ctx := context.Background()
	svc := NewAccountService(memory.NewAccountStore())

	first, err := svc.EnsureAccount(ctx, "u1", "Alice", "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(0), first.Balance)
	assert.False(t, first.Disabled)

	// Second call is a no-op, not a reset.
	require.NoError(t, svc.SetBalance(ctx, "admin", "u1", 500))
	again, err := svc.EnsureAccount(ctx, "u1", "Alice Renamed", "other@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(500), again.Balance)
	assert.Equal(t, "Alice", again.Name)
	assert.Equal(t, "alice@example.com", again.Email)
}

func TestAccountService_SetBalance(t *testing.T) {
	ctx := context.Background()
	svc := NewAccountService(memory.NewAccountStore())
	_, err := svc.EnsureAccount(ctx, "u1", "Alice", "alice@example.com")
	require.NoError(t, err)

	t.Run("rejects negative balances", func(t *testing.T) {
		assert.ErrorIs(t, svc.SetBalance(ctx, "admin", "u1", -1), ErrInvalidAmount)
	})

	t.Run("zero is a valid override", func(t *testing.T) {
		require.NoError(t, svc.SetBalance(ctx, "admin", "u1", 0))
		a, err := svc.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(0), a.Balance)
	})

	t.Run("unknown account", func(t *testing.T) {
		assert.ErrorIs(t, svc.SetBalance(ctx, "admin", "ghost", 100), storage.ErrNotFound)
	})
}

func TestAccountService_SetDisabled(t *testing.T) {
	ctx := context.Background()
	svc := NewAccountService(memory.NewAccountStore())
	_, err := svc.EnsureAccount(ctx, "u1", "Alice", "alice@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.SetDisabled(ctx, "admin", "u1", true))
	a, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, a.Disabled)

	require.NoError(t, svc.SetDisabled(ctx, "admin", "u1", false))
	a, err = svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, a.Disabled)
}

func TestAccountService_Delete(t *testing.T) {
	ctx := context.Background()
	svc := NewAccountService(memory.NewAccountStore())
	_, err := svc.EnsureAccount(ctx, "u1", "Alice", "alice@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "admin", "u1"))

	_, err = svc.Get(ctx, "u1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Deletion is terminal: the id cannot come back.
	_, err = svc.EnsureAccount(ctx, "u1", "Alice", "alice@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, "admin", "u1"), storage.ErrNotFound)
}
