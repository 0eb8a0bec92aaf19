package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockReportLine is one fully-enriched row of a report. A line always
// exists for every holding in the source portfolio; enrichment fields are
// simply empty when market data could not be fetched.
type StockReportLine struct {
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	Quantity     decimal.Decimal `json:"quantity"`
	AvgPrice     decimal.Decimal `json:"avg_price"`
	CurrentPrice decimal.Decimal `json:"current_price"` // Effective price used for valuation
	ProfitRate   decimal.Decimal `json:"profit_rate"`   // Percent
	Value        decimal.Decimal `json:"value"`
	Facts        *FinancialFact  `json:"facts,omitempty"`
	News         []NewsItem      `json:"news,omitempty"`
	Summary      string          `json:"summary,omitempty"` // One-paragraph narrative for this holding
}

// Report is the assembled analysis for one portfolio snapshot.
type Report struct {
	ID          string            `json:"id" badgerhold:"key"`
	UserEmail   string            `json:"user_email" badgerhold:"index"`
	GeneratedAt time.Time         `json:"generated_at"`
	TotalValue  decimal.Decimal   `json:"total_value"`
	Lines       []StockReportLine `json:"lines"`
	Insight     string            `json:"insight"` // Portfolio-level narrative
}

// DeliveryResult records the outcome of one report delivery attempt.
type DeliveryResult struct {
	ReportID    string    `json:"report_id"`
	Recipient   string    `json:"recipient,omitempty"`
	Delivered   bool      `json:"delivered"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}
