package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demobank/backend/internal/middleware"
	"github.com/demobank/backend/internal/models"
	"github.com/demobank/backend/internal/services"
	"github.com/demobank/backend/internal/storage/memory"
)

// identityAs stands in for the auth middleware in tests.
func identityAs(id, email, name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = context.WithValue(ctx, middleware.UserIDKey, id)
			ctx = context.WithValue(ctx, middleware.UserEmailKey, email)
			ctx = context.WithValue(ctx, middleware.UserNameKey, name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newAccountRouter(caller string) (*chi.Mux, *memory.AccountStore) {
	store := memory.NewAccountStore()
	handler := NewAccountHandler(services.NewAccountService(store))

	r := chi.NewRouter()
	r.Use(identityAs(caller, caller+"@example.com", caller))
	r.Get("/accounts/me", handler.GetMyAccount)
	r.Put("/accounts/me/name", handler.UpdateMyName)
	r.Get("/admin/accounts", handler.ListAccounts)
	r.Put("/admin/accounts/{id}/balance", handler.SetBalance)
	r.Put("/admin/accounts/{id}/disabled", handler.SetDisabled)
	r.Delete("/admin/accounts/{id}", handler.DeleteAccount)
	return r, store
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAccountHandler_GetMyAccount(t *testing.T) {
	router, _ := newAccountRouter("alice")

	rec := doJSON(t, router, http.MethodGet, "/accounts/me", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var account models.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))
	assert.Equal(t, "alice", account.ID)
	assert.Equal(t, "alice@example.com", account.Email)
	assert.Equal(t, int64(0), account.Balance)

	// Second call returns the same account, not a fresh one.
	rec = doJSON(t, router, http.MethodGet, "/accounts/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAccountHandler_UpdateMyName(t *testing.T) {
	router, store := newAccountRouter("alice")
	_, err := store.CreateIfAbsent(context.Background(), "alice", "Alice", "alice@example.com")
	require.NoError(t, err)

	t.Run("updates the display name", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPut, "/accounts/me/name", `{"name":"Alice B"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		a, err := store.Get(context.Background(), "alice")
		require.NoError(t, err)
		assert.Equal(t, "Alice B", a.Name)
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPut, "/accounts/me/name", `{"name":""}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAccountHandler_SetBalance(t *testing.T) {
	router, store := newAccountRouter("admin")
	_, err := store.CreateIfAbsent(context.Background(), "u1", "User", "u1@example.com")
	require.NoError(t, err)

	t.Run("overrides the balance", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPut, "/admin/accounts/u1/balance", `{"balance":5000}`)
		require.Equal(t, http.StatusOK, rec.Code)

		a, err := store.Get(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(5000), a.Balance)
	})

	t.Run("zero is accepted", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPut, "/admin/accounts/u1/balance", `{"balance":0}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("negative balance is rejected", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPut, "/admin/accounts/u1/balance", `{"balance":-100}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing balance field is rejected", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPut, "/admin/accounts/u1/balance", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown account", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPut, "/admin/accounts/ghost/balance", `{"balance":100}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAccountHandler_SetDisabled(t *testing.T) {
	router, store := newAccountRouter("admin")
	_, err := store.CreateIfAbsent(context.Background(), "u1", "User", "u1@example.com")
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodPut, "/admin/accounts/u1/disabled", `{"disabled":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	a, err := store.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, a.Disabled)

	rec = doJSON(t, router, http.MethodPut, "/admin/accounts/u1/disabled", `{"disabled":false}`)
	require.Equal(t, http.StatusOK, rec.Code)

	a, err = store.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, a.Disabled)
}

func TestAccountHandler_DeleteAccount(t *testing.T) {
	router, store := newAccountRouter("admin")
	_, err := store.CreateIfAbsent(context.Background(), "u1", "User", "u1@example.com")
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodDelete, "/admin/accounts/u1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/admin/accounts/u1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAccountHandler_ListAccounts(t *testing.T) {
	router, store := newAccountRouter("admin")
	ctx := context.Background()
	for _, id := range []string{"u1", "u2", "u3"} {
		_, err := store.CreateIfAbsent(ctx, id, id, id+"@example.com")
		require.NoError(t, err)
	}

	rec := doJSON(t, router, http.MethodGet, "/admin/accounts", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Accounts []models.Account `json:"accounts"`
		Count    int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, "u1", resp.Accounts[0].ID, "listing is sorted by id")
}
