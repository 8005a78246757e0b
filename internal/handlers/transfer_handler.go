package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/demobank/backend/internal/middleware"
	"github.com/demobank/backend/internal/models"
	"github.com/demobank/backend/internal/services"
)

type TransferHandler struct {
	ledger    *services.LedgerService
	validator *services.ValidationHelper
}

func NewTransferHandler(ledger *services.LedgerService) *TransferHandler {
	return &TransferHandler{
		ledger:    ledger,
		validator: services.NewValidationHelper(),
	}
}

// CreateTransfer executes a funds transfer
// @Summary Transfer funds
// @Description Move funds from the authenticated account to the recipient resolved from their email
// @Tags transfers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param transfer body models.TransferRequest true "Transfer details"
// @Success 201 {object} object{success=bool,transaction=models.Transaction}
// @Success 202 {object} object{success=bool,receiptPending=bool,transaction=models.Transaction}
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /transfers [post]
func (h *TransferHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req models.TransferRequest

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	record, err := h.ledger.Transfer(r.Context(), userID, req.ToEmail, req.Amount, req.Note, req.IdempotencyKey)
	if err != nil {
		var dup *services.DuplicateTransferError
		if errors.As(err, &dup) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"success":       true,
				"transactionId": dup.TransactionID,
				"message":       "Transfer already processed",
			})
			return
		}

		// Funds moved but the receipt write failed. This must never look
		// like a total failure to the caller.
		var logFail *services.LoggingFailedError
		if errors.As(err, &logFail) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]any{
				"success":        true,
				"receiptPending": true,
				"transaction":    logFail.Record,
				"message":        "Funds moved, receipt pending",
			})
			return
		}

		services.SendLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"success":     true,
		"transaction": record,
	})
}

// GetStatement lists the caller's transfer history
// @Summary Get transfer statement
// @Description List all transfers where the authenticated account is sender or recipient, newest first
// @Tags transfers
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{transactions=[]models.Transaction,count=int}
// @Failure 500 {object} services.ErrorResponse
// @Router /transfers [get]
func (h *TransferHandler) GetStatement(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	transactions, err := h.ledger.Statement(r.Context(), userID)
	if err != nil {
		services.SendErrorResponse(w, "Failed to fetch transactions", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// ListAllTransactions is the admin audit view
// @Summary List all transactions
// @Description Full scan of the transaction log, newest first
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{transactions=[]models.Transaction,count=int}
// @Failure 500 {object} services.ErrorResponse
// @Router /admin/transactions [get]
func (h *TransferHandler) ListAllTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.ledger.AllTransactions(r.Context())
	if err != nil {
		services.SendErrorResponse(w, "Failed to fetch transactions", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"transactions": transactions,
		"count":        len(transactions),
	})
}
