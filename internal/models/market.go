package models

import (
	"time"
)

// FinancialFact holds the fundamental snapshot for one symbol.
// Any field can be zero when the provider has no data; consumers render
// missing values as "N/A" rather than failing.
type FinancialFact struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	MarketCap     float64   `json:"market_cap"`
	PER           float64   `json:"per"`            // Price to earnings
	PBR           float64   `json:"pbr"`            // Price to book
	DividendYield float64   `json:"dividend_yield"` // Fractional (0.0132 = 1.32%)
	ROE           float64   `json:"roe"`            // Fractional return on equity
	Sector        string    `json:"sector"`
	Industry      string    `json:"industry"`
	Trend         string    `json:"trend"` // "up", "down" or "flat" over the recent window
	Currency      string    `json:"currency"`
	FetchedAt     time.Time `json:"fetched_at"`

	// Financials holds recent fiscal years of revenue and net income,
	// keyed by fiscal year ("2024"). Empty when the provider carries no
	// income statement for the symbol.
	Financials map[string]FinancialYear `json:"financials,omitempty"`
}

// FinancialYear is one fiscal year of income statement figures.
type FinancialYear struct {
	Revenue   float64 `json:"revenue"`
	NetIncome float64 `json:"net_income"`
}

// Trend values derived from the recent price window.
const (
	TrendUp   = "up"
	TrendDown = "down"
	TrendFlat = "flat"
)

// NewsItem is a single headline attached to a symbol. PubDate carries the
// feed's timestamp string as supplied, unparsed. Summary is the item
// description reduced to plain text.
type NewsItem struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Source  string `json:"source"`
	Summary string `json:"summary,omitempty"`
	PubDate string `json:"pub_date"`
}

// Quote is a live price observation for one symbol.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Change    float64   `json:"change"`
	ChangePct float64   `json:"change_pct"`
	Timestamp time.Time `json:"timestamp"`
}
