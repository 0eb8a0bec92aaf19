// -----------------------------------------------------------------------
// Report Orchestrator - assembles enriched report lines from a portfolio
// -----------------------------------------------------------------------

package report

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"github.com/ternarybob/folio/internal/services/narrative"
)

// Orchestrator turns a holdings snapshot into fully-enriched report lines
// plus one portfolio-level insight. Market data and AI failures degrade
// individual fields; a line is produced for every holding regardless.
type Orchestrator struct {
	gateway   interfaces.MarketGateway
	narrative *narrative.Service
	logger    arbor.ILogger
}

func NewOrchestrator(gateway interfaces.MarketGateway, narrativeService *narrative.Service, logger arbor.ILogger) *Orchestrator {
	return &Orchestrator{
		gateway:   gateway,
		narrative: narrativeService,
		logger:    logger,
	}
}

// BuildReport enriches every holding and generates the portfolio insight.
// Valuation uses the live quote when one arrived, then the stored price,
// then cost basis.
func (o *Orchestrator) BuildReport(ctx context.Context, holdings []models.Holding) ([]models.StockReportLine, string) {
	enrichments := o.gateway.Enrich(ctx, symbolsOf(holdings))

	lines := make([]models.StockReportLine, 0, len(holdings))
	for i := range holdings {
		lines = append(lines, o.buildLine(&holdings[i], enrichments[holdings[i].Symbol]))
	}

	insight := o.narrative.GeneratePortfolioInsight(ctx, holdings)

	o.logger.Info().
		Int("holdings", len(holdings)).
		Int("lines", len(lines)).
		Msg("Report content assembled")

	return lines, insight
}

func (o *Orchestrator) buildLine(holding *models.Holding, enrichment *interfaces.Enrichment) models.StockReportLine {
	line := models.StockReportLine{
		Symbol:   holding.Symbol,
		Name:     holding.Name,
		Quantity: holding.Quantity,
		AvgPrice: holding.AvgPrice,
	}

	var newsCount int
	var fact *models.FinancialFact

	if enrichment != nil {
		fact = enrichment.Facts
		line.Facts = enrichment.Facts
		line.News = enrichment.News
		newsCount = len(enrichment.News)

		if enrichment.Quote != nil && enrichment.Quote.Price > 0 {
			holding.CurrentPrice = decimal.NewFromFloat(enrichment.Quote.Price)
		}
	}

	if fact != nil && line.Name == "" {
		line.Name = fact.Name
	}

	line.CurrentPrice = holding.EffectivePrice()
	line.ProfitRate = holding.ProfitRate()
	line.Value = holding.Value()
	line.Summary = o.narrative.SummarizeHolding(fact, newsCount)

	return line
}

func symbolsOf(holdings []models.Holding) []string {
	symbols := make([]string, 0, len(holdings))
	for i := range holdings {
		symbols = append(symbols, holdings[i].Symbol)
	}
	return symbols
}

// totalValue sums the line values.
func totalValue(lines []models.StockReportLine) decimal.Decimal {
	total := decimal.Zero
	for i := range lines {
		total = total.Add(lines[i].Value)
	}
	return total
}
