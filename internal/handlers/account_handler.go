package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/demobank/backend/internal/middleware"
	"github.com/demobank/backend/internal/services"
)

type AccountHandler struct {
	accounts  *services.AccountService
	validator *services.ValidationHelper
}

func NewAccountHandler(accounts *services.AccountService) *AccountHandler {
	return &AccountHandler{
		accounts:  accounts,
		validator: services.NewValidationHelper(),
	}
}

// GetMyAccount returns the caller's account, creating it on first touch
// @Summary Get own account
// @Description Return the authenticated account; created with balance 0 if it does not exist yet
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Account
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/me [get]
func (h *AccountHandler) GetMyAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	email, _ := r.Context().Value(middleware.UserEmailKey).(string)
	name, _ := r.Context().Value(middleware.UserNameKey).(string)

	account, err := h.accounts.EnsureAccount(r.Context(), userID, name, email)
	if err != nil {
		services.SendLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(account)
}

// UpdateMyName updates the caller's display name
// @Summary Update display name
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{name=string} true "New display name"
// @Success 200 {object} object{success=bool}
// @Failure 400 {object} services.ErrorResponse
// @Router /accounts/me/name [put]
func (h *AccountHandler) UpdateMyName(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Name string `json:"name" validate:"required,min=1,max=100"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := h.accounts.UpdateName(r.Context(), userID, req.Name); err != nil {
		services.SendLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

// ListAccounts lists every account for the admin console
// @Summary List all accounts
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{accounts=[]models.Account,count=int}
// @Failure 500 {object} services.ErrorResponse
// @Router /admin/accounts [get]
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.ListAll(r.Context())
	if err != nil {
		services.SendErrorResponse(w, "Failed to fetch accounts", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// SetBalance overrides an account balance directly
// @Summary Override account balance
// @Description Privileged direct balance set; bypasses the ledger and writes no transaction record
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Param request body object{balance=int64} true "New balance in cents"
// @Success 200 {object} object{success=bool}
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/accounts/{id}/balance [put]
func (h *AccountHandler) SetBalance(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.UserID(r.Context())
	accountID := chi.URLParam(r, "id")

	var req struct {
		Balance *int64 `json:"balance" validate:"required"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := h.accounts.SetBalance(r.Context(), adminID, accountID, *req.Balance); err != nil {
		services.SendLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

// SetDisabled toggles the disabled flag on an account
// @Summary Enable or disable an account
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Param request body object{disabled=bool} true "Disabled flag"
// @Success 200 {object} object{success=bool}
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/accounts/{id}/disabled [put]
func (h *AccountHandler) SetDisabled(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.UserID(r.Context())
	accountID := chi.URLParam(r, "id")

	var req struct {
		Disabled *bool `json:"disabled" validate:"required"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := h.accounts.SetDisabled(r.Context(), adminID, accountID, *req.Disabled); err != nil {
		services.SendLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

// DeleteAccount removes an account permanently
// @Summary Delete an account
// @Description Terminal delete; the id is never reused and historical records keep it as an opaque reference
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Success 200 {object} object{success=bool}
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/accounts/{id} [delete]
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.UserID(r.Context())
	accountID := chi.URLParam(r, "id")

	if err := h.accounts.Delete(r.Context(), adminID, accountID); err != nil {
		services.SendLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

// decodeBody applies the shared request decoding policy: size cap,
// unknown fields rejected, exactly one JSON object.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	return true
}
