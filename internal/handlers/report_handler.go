package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/demobank/backend/internal/middleware"
	"github.com/demobank/backend/internal/models"
	"github.com/demobank/backend/internal/services"
	"github.com/demobank/backend/internal/storage"
)

type ReportHandler struct {
	ledger   *services.LedgerService
	accounts storage.AccountStore
	reports  *services.ReportService
}

func NewReportHandler(ledger *services.LedgerService, accounts storage.AccountStore) *ReportHandler {
	return &ReportHandler{
		ledger:   ledger,
		accounts: accounts,
		reports:  services.NewReportService(),
	}
}

// GetSummary returns the caller's transfer summary
// @Summary Get transfer summary
// @Description Totals sent/received, transaction count and active months for the authenticated account
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.TransferSummary
// @Failure 500 {object} services.ErrorResponse
// @Router /reports/summary [get]
func (h *ReportHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	records, err := h.ledger.Statement(r.Context(), userID)
	if err != nil {
		services.SendErrorResponse(w, "Failed to compute summary", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.reports.Summary(records, userID))
}

// GetMonthly returns the caller's monthly sent totals
// @Summary Get monthly sent totals
// @Description Amounts sent by the authenticated account bucketed per calendar month, oldest first
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Success 200 {array} services.MonthlyTotal
// @Failure 500 {object} services.ErrorResponse
// @Router /reports/monthly [get]
func (h *ReportHandler) GetMonthly(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	records, err := h.ledger.Statement(r.Context(), userID)
	if err != nil {
		services.SendErrorResponse(w, "Failed to compute monthly totals", http.StatusInternalServerError, nil)
		return
	}

	sent := make([]models.Transaction, 0, len(records))
	for _, rec := range records {
		if rec.From == userID {
			sent = append(sent, rec)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.reports.MonthlyTotals(sent))
}

// GetTopRecipients ranks the caller's recipients by volume
// @Summary Get top recipients
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of recipients to return (default: 5, max: 50)"
// @Success 200 {array} services.RecipientTotal
// @Failure 500 {object} services.ErrorResponse
// @Router /reports/top-recipients [get]
func (h *ReportHandler) GetTopRecipients(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	limit := 5
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 50 {
			limit = l
		}
	}

	records, err := h.ledger.Statement(r.Context(), userID)
	if err != nil {
		services.SendErrorResponse(w, "Failed to compute top recipients", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.reports.TopRecipients(records, userID, limit, h.labelLookup(r.Context())))
}

// GetAdminSummary returns global ledger totals
// @Summary Get global summary
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.GlobalSummary
// @Failure 500 {object} services.ErrorResponse
// @Router /admin/reports/summary [get]
func (h *ReportHandler) GetAdminSummary(w http.ResponseWriter, r *http.Request) {
	records, err := h.ledger.AllTransactions(r.Context())
	if err != nil {
		services.SendErrorResponse(w, "Failed to compute summary", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.reports.Global(records))
}

// GetSentByUser returns the per-user sent leaderboard
// @Summary Get volume sent per user
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} services.UserTotal
// @Failure 500 {object} services.ErrorResponse
// @Router /admin/reports/sent-by-user [get]
func (h *ReportHandler) GetSentByUser(w http.ResponseWriter, r *http.Request) {
	records, err := h.ledger.AllTransactions(r.Context())
	if err != nil {
		services.SendErrorResponse(w, "Failed to compute leaderboard", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.reports.TotalSentPerUser(records, h.labelLookup(r.Context())))
}

// labelLookup resolves ids to emails for report output. Deleted accounts
// resolve to the raw id.
func (h *ReportHandler) labelLookup(ctx context.Context) services.LabelLookup {
	return func(accountID string) string {
		account, err := h.accounts.Get(ctx, accountID)
		if err != nil {
			return ""
		}
		return account.Email
	}
}
