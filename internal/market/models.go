package market

import (
	"time"
)

// EODData represents a single day's end-of-day price data.
type EODData struct {
	Date          time.Time `json:"-"`
	DateStr       string    `json:"date"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	AdjustedClose float64   `json:"adjusted_close"`
	Volume        int64     `json:"volume"`
}

// EODResponse is a slice of EODData.
type EODResponse []EODData

// RealTimeQuote represents a live price observation from the provider.
type RealTimeQuote struct {
	Code          string  `json:"code"`
	Timestamp     int64   `json:"timestamp"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	PreviousClose float64 `json:"previousClose"`
	Change        float64 `json:"change"`
	ChangePct     float64 `json:"change_p"`
	Volume        int64   `json:"volume"`
}

// FundamentalsResponse represents the fundamentals payload, trimmed to the
// sections report enrichment uses.
type FundamentalsResponse struct {
	General    *GeneralInfo `json:"General"`
	Highlights *Highlights  `json:"Highlights"`
	Valuation  *Valuation   `json:"Valuation"`
	Financials *Financials  `json:"Financials"`
}

// GeneralInfo contains general company information.
type GeneralInfo struct {
	Code         string `json:"Code"`
	Type         string `json:"Type"`
	Name         string `json:"Name"`
	Exchange     string `json:"Exchange"`
	CurrencyCode string `json:"CurrencyCode"`
	CountryName  string `json:"CountryName"`
	Sector       string `json:"Sector"`
	Industry     string `json:"Industry"`
	Description  string `json:"Description"`
}

// Highlights contains key financial highlights.
type Highlights struct {
	MarketCapitalization float64 `json:"MarketCapitalization"`
	PERatio              float64 `json:"PERatio"`
	DividendYield        float64 `json:"DividendYield"`
	EarningsShare        float64 `json:"EarningsShare"`
	ProfitMargin         float64 `json:"ProfitMargin"`
	ReturnOnEquityTTM    float64 `json:"ReturnOnEquityTTM"`
}

// Valuation contains valuation metrics.
type Valuation struct {
	TrailingPE   float64 `json:"TrailingPE"`
	ForwardPE    float64 `json:"ForwardPE"`
	PriceBookMRQ float64 `json:"PriceBookMRQ"`
}

// Financials contains the income statement section of the fundamentals
// payload.
type Financials struct {
	IncomeStatement IncomeStatement `json:"Income_Statement"`
}

// IncomeStatement holds per-period income figures keyed by period end
// date ("2024-09-28").
type IncomeStatement struct {
	Yearly map[string]IncomeStatementYear `json:"yearly"`
}

// IncomeStatementYear is one fiscal year's figures. The provider sends
// the amounts as strings.
type IncomeStatementYear struct {
	Date         string `json:"date"`
	TotalRevenue string `json:"totalRevenue"`
	NetIncome    string `json:"netIncome"`
}
