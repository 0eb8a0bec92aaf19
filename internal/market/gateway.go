package market

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

// Gateway fans a symbol list out to the market data service. Individual
// failures are logged and suppressed: the report pipeline always receives
// an Enrichment per symbol, however empty.
type Gateway struct {
	service   interfaces.MarketDataService
	logger    arbor.ILogger
	timeout   time.Duration
	newsLimit int
}

// NewGateway creates a market gateway.
func NewGateway(service interfaces.MarketDataService, timeout time.Duration, newsLimit int, logger arbor.ILogger) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if newsLimit <= 0 {
		newsLimit = 5
	}
	return &Gateway{
		service:   service,
		logger:    logger,
		timeout:   timeout,
		newsLimit: newsLimit,
	}
}

// Enrich fetches quote, fundamentals and headlines for every symbol.
// Each fetch runs under its own deadline so one slow provider call cannot
// stall the whole sweep.
func (g *Gateway) Enrich(ctx context.Context, symbols []string) map[string]*interfaces.Enrichment {
	results := make(map[string]*interfaces.Enrichment, len(symbols))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, symbol := range symbols {
		mu.Lock()
		if _, seen := results[symbol]; seen {
			mu.Unlock()
			continue
		}
		results[symbol] = &interfaces.Enrichment{Symbol: symbol}
		mu.Unlock()

		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			enrichment := g.enrichOne(ctx, symbol)

			mu.Lock()
			results[symbol] = enrichment
			mu.Unlock()
		}(symbol)
	}

	wg.Wait()
	return results
}

// Quotes fetches live prices only. Missing quotes are nil entries.
func (g *Gateway) Quotes(ctx context.Context, symbols []string) map[string]*models.Quote {
	results := make(map[string]*models.Quote, len(symbols))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, symbol := range symbols {
		mu.Lock()
		if _, seen := results[symbol]; seen {
			mu.Unlock()
			continue
		}
		results[symbol] = nil
		mu.Unlock()

		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, g.timeout)
			defer cancel()

			quote, err := g.service.GetQuote(fetchCtx, symbol)
			if err != nil {
				g.logger.Warn().Str("symbol", symbol).Err(err).Msg("Quote unavailable")
				return
			}

			mu.Lock()
			results[symbol] = quote
			mu.Unlock()
		}(symbol)
	}

	wg.Wait()
	return results
}

// enrichOne fetches the three data classes for one symbol. Failures leave
// the corresponding field empty.
func (g *Gateway) enrichOne(ctx context.Context, symbol string) *interfaces.Enrichment {
	enrichment := &interfaces.Enrichment{Symbol: symbol}

	quoteCtx, cancel := context.WithTimeout(ctx, g.timeout)
	quote, err := g.service.GetQuote(quoteCtx, symbol)
	cancel()
	if err != nil {
		g.logger.Warn().Str("symbol", symbol).Err(err).Msg("Quote unavailable")
	} else {
		enrichment.Quote = quote
	}

	factsCtx, cancel := context.WithTimeout(ctx, g.timeout)
	facts, err := g.service.GetFundamentals(factsCtx, symbol)
	cancel()
	if err != nil {
		g.logger.Warn().Str("symbol", symbol).Err(err).Msg("Fundamentals unavailable")
	} else {
		enrichment.Facts = facts
	}

	newsCtx, cancel := context.WithTimeout(ctx, g.timeout)
	news, err := g.service.GetNews(newsCtx, symbol, g.newsLimit)
	cancel()
	if err != nil {
		g.logger.Warn().Str("symbol", symbol).Err(err).Msg("News unavailable")
	} else {
		enrichment.News = news
	}

	return enrichment
}
