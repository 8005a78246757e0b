package services

import (
	"sort"

	"github.com/demobank/backend/internal/models"
)

// LabelLookup resolves an account id to a human label (email) for
// report output. Ids with no account left (deleted) fall back to the id.
type LabelLookup func(accountID string) string

// TransferSummary aggregates one account's transfer history.
type TransferSummary struct {
	TotalSent        int64 `json:"totalSent"`
	TotalReceived    int64 `json:"totalReceived"`
	TransactionCount int   `json:"transactionCount"`
	ActiveMonths     int   `json:"activeMonths"`
}

// GlobalSummary aggregates the whole transaction log.
type GlobalSummary struct {
	TotalVolume      int64 `json:"totalVolume"`
	TransactionCount int   `json:"transactionCount"`
	ActiveMonths     int   `json:"activeMonths"`
}

// MonthlyTotal is one bucket of the monthly time series, keyed "2006-01".
type MonthlyTotal struct {
	Month string `json:"month"`
	Total int64  `json:"total"`
}

// RecipientTotal ranks a recipient by volume received.
type RecipientTotal struct {
	Label string `json:"label"`
	Total int64  `json:"total"`
}

// UserTotal ranks a sender by volume sent.
type UserTotal struct {
	Label string `json:"label"`
	Total int64  `json:"total"`
}

// ReportService derives summaries from transaction records. Every method
// is a deterministic fold with no side effects: empty input yields zero
// totals and empty series, and no input ordering is assumed.
type ReportService struct{}

func NewReportService() *ReportService {
	return &ReportService{}
}

// Summary computes totals sent/received and distinct active months for
// one account over the given records.
func (rs *ReportService) Summary(records []models.Transaction, accountID string) TransferSummary {
	var summary TransferSummary
	months := map[string]struct{}{}

	for _, r := range records {
		involved := false
		if r.From == accountID {
			summary.TotalSent += r.Amount
			involved = true
		}
		if r.To == accountID {
			summary.TotalReceived += r.Amount
			involved = true
		}
		if involved {
			summary.TransactionCount++
			months[r.Timestamp.Format("2006-01")] = struct{}{}
		}
	}

	summary.ActiveMonths = len(months)
	return summary
}

func (rs *ReportService) Global(records []models.Transaction) GlobalSummary {
	var summary GlobalSummary
	months := map[string]struct{}{}

	for _, r := range records {
		summary.TotalVolume += r.Amount
		summary.TransactionCount++
		months[r.Timestamp.Format("2006-01")] = struct{}{}
	}

	summary.ActiveMonths = len(months)
	return summary
}

// MonthlyTotals buckets record amounts by calendar month, oldest first.
func (rs *ReportService) MonthlyTotals(records []models.Transaction) []MonthlyTotal {
	buckets := map[string]int64{}
	for _, r := range records {
		buckets[r.Timestamp.Format("2006-01")] += r.Amount
	}

	totals := make([]MonthlyTotal, 0, len(buckets))
	for month, total := range buckets {
		totals = append(totals, MonthlyTotal{Month: month, Total: total})
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Month < totals[j].Month })
	return totals
}

// TopRecipients ranks recipients by volume received from senderID.
// An empty senderID ranks across all records.
func (rs *ReportService) TopRecipients(records []models.Transaction, senderID string, n int, lookup LabelLookup) []RecipientTotal {
	byRecipient := map[string]int64{}
	for _, r := range records {
		if senderID != "" && r.From != senderID {
			continue
		}
		byRecipient[r.To] += r.Amount
	}

	ranked := make([]RecipientTotal, 0, len(byRecipient))
	for id, total := range byRecipient {
		ranked = append(ranked, RecipientTotal{Label: resolveLabel(lookup, id), Total: total})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Total != ranked[j].Total {
			return ranked[i].Total > ranked[j].Total
		}
		return ranked[i].Label < ranked[j].Label
	})

	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// TotalSentPerUser is the admin leaderboard: volume sent per account,
// highest first.
func (rs *ReportService) TotalSentPerUser(records []models.Transaction, lookup LabelLookup) []UserTotal {
	bySender := map[string]int64{}
	for _, r := range records {
		bySender[r.From] += r.Amount
	}

	ranked := make([]UserTotal, 0, len(bySender))
	for id, total := range bySender {
		ranked = append(ranked, UserTotal{Label: resolveLabel(lookup, id), Total: total})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Total != ranked[j].Total {
			return ranked[i].Total > ranked[j].Total
		}
		return ranked[i].Label < ranked[j].Label
	})
	return ranked
}

func resolveLabel(lookup LabelLookup, id string) string {
	if lookup == nil {
		return id
	}
	if label := lookup(id); label != "" {
		return label
	}
	return id
}
