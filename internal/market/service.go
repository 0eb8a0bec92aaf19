package market

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/models"
)

// trendThreshold is the fractional move below which the recent window
// counts as flat.
const trendThreshold = 0.005

// financialYears is how many recent fiscal years of revenue and net
// income go into the fundamental snapshot.
const financialYears = 3

// Service implements interfaces.MarketDataService on top of the provider
// client and the news fetcher.
type Service struct {
	client *Client
	news   *NewsFetcher
	logger arbor.ILogger

	// Company names learned from fundamentals, used for news queries
	nameMu sync.RWMutex
	names  map[string]string
}

// NewService creates a market data service.
func NewService(client *Client, news *NewsFetcher, logger arbor.ILogger) *Service {
	return &Service{
		client: client,
		news:   news,
		logger: logger,
		names:  make(map[string]string),
	}
}

// GetQuote returns the latest price observation for one symbol.
func (s *Service) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	sym := common.ParseSymbol(symbol)
	if sym.Code == "" {
		return nil, fmt.Errorf("invalid symbol %q", symbol)
	}

	quote, err := s.client.GetRealTimeQuote(ctx, sym.ProviderSymbol())
	if err != nil {
		return nil, fmt.Errorf("failed to get quote for %s: %w", symbol, err)
	}
	if quote.Close <= 0 {
		return nil, fmt.Errorf("no price available for %s", symbol)
	}

	result := &models.Quote{
		Symbol:    symbol,
		Price:     quote.Close,
		Change:    quote.Change,
		ChangePct: quote.ChangePct,
		Timestamp: time.Now(),
	}
	if quote.Timestamp > 0 {
		result.Timestamp = time.Unix(quote.Timestamp, 0)
	}
	return result, nil
}

// GetFundamentals returns the fundamental snapshot for one symbol, with the
// recent price trend derived from the end-of-day window.
func (s *Service) GetFundamentals(ctx context.Context, symbol string) (*models.FinancialFact, error) {
	sym := common.ParseSymbol(symbol)
	if sym.Code == "" {
		return nil, fmt.Errorf("invalid symbol %q", symbol)
	}

	fundamentals, err := s.client.GetFundamentals(ctx, sym.ProviderSymbol())
	if err != nil {
		return nil, fmt.Errorf("failed to get fundamentals for %s: %w", symbol, err)
	}

	fact := &models.FinancialFact{
		Symbol:    symbol,
		Trend:     models.TrendFlat,
		FetchedAt: time.Now(),
	}

	if general := fundamentals.General; general != nil {
		fact.Name = general.Name
		fact.Sector = general.Sector
		fact.Industry = general.Industry
		fact.Currency = general.CurrencyCode

		if general.Name != "" {
			s.nameMu.Lock()
			s.names[symbol] = general.Name
			s.nameMu.Unlock()
		}
	}
	if highlights := fundamentals.Highlights; highlights != nil {
		fact.MarketCap = highlights.MarketCapitalization
		fact.PER = highlights.PERatio
		fact.DividendYield = highlights.DividendYield
		fact.ROE = highlights.ReturnOnEquityTTM
	}
	if valuation := fundamentals.Valuation; valuation != nil {
		fact.PBR = valuation.PriceBookMRQ
		if fact.PER == 0 {
			fact.PER = valuation.TrailingPE
		}
	}
	if financials := fundamentals.Financials; financials != nil {
		fact.Financials = yearlyFinancials(financials.IncomeStatement.Yearly)
	}

	// Trend over the last trading week; a failed window lookup leaves the
	// trend flat rather than failing the whole snapshot.
	if trend, err := s.recentTrend(ctx, sym.ProviderSymbol()); err == nil {
		fact.Trend = trend
	} else if s.logger != nil {
		s.logger.Debug().Str("symbol", symbol).Err(err).Msg("Trend window unavailable")
	}

	return fact, nil
}

// GetNews returns recent headlines for one symbol.
func (s *Service) GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error) {
	sym := common.ParseSymbol(symbol)
	if sym.Code == "" {
		return nil, fmt.Errorf("invalid symbol %q", symbol)
	}

	s.nameMu.RLock()
	name := s.names[symbol]
	s.nameMu.RUnlock()

	headlines, err := s.news.Fetch(ctx, sym.NewsQuery(name), sym.IsKorean(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get news for %s: %w", symbol, err)
	}

	items := make([]models.NewsItem, 0, len(headlines))
	for _, h := range headlines {
		items = append(items, models.NewsItem{
			Title:   h.Title,
			URL:     h.URL,
			Source:  h.Source,
			Summary: h.Summary,
			PubDate: h.PubDate,
		})
	}
	return items, nil
}

// yearlyFinancials maps the most recent fiscal years of the income
// statement into per-year revenue and net income, keyed by fiscal year.
// A year with unparsable amounts is kept as zeros; consumers treat zero
// as "no data".
func yearlyFinancials(yearly map[string]IncomeStatementYear) map[string]models.FinancialYear {
	if len(yearly) == 0 {
		return nil
	}

	dates := make([]string, 0, len(yearly))
	for date := range yearly {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	if len(dates) > financialYears {
		dates = dates[:financialYears]
	}

	result := make(map[string]models.FinancialYear, len(dates))
	for _, date := range dates {
		entry := yearly[date]
		year := date
		if len(year) > 4 {
			year = year[:4]
		}
		revenue, _ := strconv.ParseFloat(entry.TotalRevenue, 64)
		netIncome, _ := strconv.ParseFloat(entry.NetIncome, 64)
		result[year] = models.FinancialYear{Revenue: revenue, NetIncome: netIncome}
	}
	return result
}

// recentTrend classifies the move over the last ten calendar days.
func (s *Service) recentTrend(ctx context.Context, providerSymbol string) (string, error) {
	now := time.Now()
	window, err := s.client.GetEOD(ctx, providerSymbol, WithDateRange(now.AddDate(0, 0, -10), now))
	if err != nil {
		return "", err
	}
	if len(window) < 2 {
		return models.TrendFlat, nil
	}

	first := window[0].Close
	last := window[len(window)-1].Close
	if first <= 0 {
		return models.TrendFlat, nil
	}

	move := (last - first) / first
	switch {
	case move > trendThreshold:
		return models.TrendUp, nil
	case move < -trendThreshold:
		return models.TrendDown, nil
	default:
		return models.TrendFlat, nil
	}
}
