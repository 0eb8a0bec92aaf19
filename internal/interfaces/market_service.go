package interfaces

import (
	"context"

	"github.com/ternarybob/folio/internal/models"
)

// MarketDataService provides live quotes, fundamentals and headlines for
// symbols. Implementations must tolerate partial provider failures: the
// enrichment result carries whatever was fetched, and a missing quote is
// expressed as a nil Quote rather than an error.
type MarketDataService interface {
	// GetQuote returns the latest price observation for one symbol.
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)

	// GetFundamentals returns the fundamental snapshot for one symbol.
	GetFundamentals(ctx context.Context, symbol string) (*models.FinancialFact, error)

	// GetNews returns recent headlines for one symbol.
	GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error)
}

// Enrichment is the per-symbol result of a market data sweep.
// Fields are nil or empty for the pieces that could not be fetched.
type Enrichment struct {
	Symbol string
	Quote  *models.Quote
	Facts  *models.FinancialFact
	News   []models.NewsItem
}

// MarketGateway fans a symbol list out to the provider and returns one
// Enrichment per symbol, suppressing individual failures.
type MarketGateway interface {
	Enrich(ctx context.Context, symbols []string) map[string]*Enrichment
	Quotes(ctx context.Context, symbols []string) map[string]*models.Quote
}
