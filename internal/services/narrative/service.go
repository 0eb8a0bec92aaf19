package narrative

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

// FallbackInsight is returned whenever the aggregate insight call fails.
// Callers render it as ordinary narrative text, so delivery never blocks
// on the LLM being available.
const FallbackInsight = "AI analysis is temporarily unavailable. The figures in this report are current; please retry the analysis later."

// EmptyPortfolioInsight is returned when there are no holdings to analyze.
const EmptyPortfolioInsight = "Not enough portfolio data to analyze. Add holdings and try again."

// insightSystemPrompt sets the analyst persona for the aggregate call.
const insightSystemPrompt = `You are a senior Wall Street analyst reviewing a client's portfolio from a long-term investment perspective.
Base every observation strictly on the position data provided. Lead with a clear conclusion, then cover concentration risk, sector balance, and any positions that deserve attention.
Write plain prose in short paragraphs. Do not invent prices or facts that are not in the data.`

// Service generates narrative text for reports. Per-holding summaries are
// template-based so the cost per report stays at one LLM call regardless
// of portfolio size.
type Service struct {
	llm    interfaces.LLMService
	logger arbor.ILogger
}

// NewService creates a narrative generator.
func NewService(llm interfaces.LLMService, logger arbor.ILogger) *Service {
	return &Service{
		llm:    llm,
		logger: logger,
	}
}

// SummarizeHolding builds the one-line summary for a report line from the
// fundamental snapshot and the number of recent headlines. An empty fact
// marks the line as having failed data enrichment.
func (s *Service) SummarizeHolding(fact *models.FinancialFact, newsCount int) string {
	if fact == nil || isEmptyFact(fact) {
		return "Data fetch failed; valued at cost basis."
	}

	sector := fact.Sector
	if sector == "" {
		sector = "Unclassified"
	}

	trend := "holding steady"
	switch fact.Trend {
	case models.TrendUp:
		trend = "trending up"
	case models.TrendDown:
		trend = "trending down"
	}

	parts := []string{sector + " sector", trend}
	if direction := revenueDirection(fact.Financials); direction != "" {
		parts = append(parts, direction)
	}

	switch newsCount {
	case 0:
		parts = append(parts, "no recent coverage")
	case 1:
		parts = append(parts, "1 recent headline")
	default:
		parts = append(parts, fmt.Sprintf("%d recent headlines", newsCount))
	}

	return strings.Join(parts, ", ") + "."
}

// revenueDirection reads the fiscal-year trend off the snapshot by
// comparing the oldest and newest years on file. Missing or zero figures
// yield no phrase rather than a wrong one.
func revenueDirection(financials map[string]models.FinancialYear) string {
	if len(financials) < 2 {
		return ""
	}

	years := make([]string, 0, len(financials))
	for year := range financials {
		years = append(years, year)
	}
	sort.Strings(years)

	oldest := financials[years[0]].Revenue
	newest := financials[years[len(years)-1]].Revenue
	if oldest <= 0 || newest <= 0 {
		return ""
	}

	switch {
	case newest > oldest:
		return "revenue growing"
	case newest < oldest:
		return "revenue shrinking"
	default:
		return ""
	}
}

// GeneratePortfolioInsight issues one LLM call over the full holdings list
// and returns free-form analyst prose. Any failure yields FallbackInsight
// so report generation never fails on narrative.
func (s *Service) GeneratePortfolioInsight(ctx context.Context, holdings []models.Holding) string {
	if len(holdings) == 0 {
		return EmptyPortfolioInsight
	}
	if s.llm == nil {
		return FallbackInsight
	}

	var positions strings.Builder
	for _, h := range holdings {
		name := h.Name
		if name == "" {
			name = h.Symbol
		}
		fmt.Fprintf(&positions, "- %s (%s): %s shares at cost basis %s\n",
			h.Symbol, name, h.Quantity.String(), h.AvgPrice.String())
	}

	messages := []interfaces.Message{
		{Role: "system", Content: insightSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Portfolio positions:\n%s\nAnalyze this portfolio from a long-term investment perspective.", positions.String())},
	}

	insight, err := s.llm.Chat(ctx, messages)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Int("holdings", len(holdings)).
			Msg("Portfolio insight generation failed, using fallback")
		return FallbackInsight
	}

	insight = strings.TrimSpace(insight)
	if insight == "" {
		return FallbackInsight
	}
	return insight
}

// isEmptyFact reports whether enrichment produced no usable data.
func isEmptyFact(fact *models.FinancialFact) bool {
	return fact.Name == "" &&
		fact.Sector == "" &&
		fact.MarketCap == 0 &&
		fact.PER == 0 &&
		fact.PBR == 0
}
