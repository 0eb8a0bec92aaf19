package report

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"github.com/ternarybob/folio/internal/services/narrative"
	"github.com/ternarybob/folio/internal/services/render"
)

// stubLLM returns a fixed insight for Chat; other operations fail.
type stubLLM struct {
	response string
	err      error
}

func (s *stubLLM) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	return s.response, s.err
}

func (s *stubLLM) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("not implemented")
}

func (s *stubLLM) ExtractHoldings(ctx context.Context, image []byte, mimeType string) ([]models.Holding, error) {
	return nil, errors.New("not implemented")
}

func (s *stubLLM) HealthCheck(ctx context.Context) error { return nil }
func (s *stubLLM) Close() error                          { return nil }

// stubGateway serves canned enrichments; symbols absent from the map get
// an empty enrichment, matching the gateway's failure suppression.
type stubGateway struct {
	enrichments map[string]*interfaces.Enrichment
	panics      bool
}

func (g *stubGateway) Enrich(ctx context.Context, symbols []string) map[string]*interfaces.Enrichment {
	if g.panics {
		panic("gateway exploded")
	}
	out := make(map[string]*interfaces.Enrichment, len(symbols))
	for _, sym := range symbols {
		if e, ok := g.enrichments[sym]; ok {
			out[sym] = e
			continue
		}
		out[sym] = &interfaces.Enrichment{Symbol: sym}
	}
	return out
}

func (g *stubGateway) Quotes(ctx context.Context, symbols []string) map[string]*models.Quote {
	out := make(map[string]*models.Quote, len(symbols))
	for _, sym := range symbols {
		if e, ok := g.enrichments[sym]; ok {
			out[sym] = e.Quote
		}
	}
	return out
}

type memReportStorage struct {
	mu      sync.Mutex
	reports []*models.Report
}

func (m *memReportStorage) SaveReport(ctx context.Context, rpt *models.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, rpt)
	return nil
}

func (m *memReportStorage) GetReport(ctx context.Context, id string) (*models.Report, error) {
	return nil, interfaces.ErrNotFound
}

func (m *memReportStorage) ListReports(ctx context.Context, userEmail string, limit int) ([]*models.Report, error) {
	return nil, nil
}

func (m *memReportStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports)
}

// stubMailer records sends on a channel so async tests can wait for them.
type stubMailer struct {
	configured bool
	sendErr    error
	sent       chan string
}

func newStubMailer(configured bool) *stubMailer {
	return &stubMailer{configured: configured, sent: make(chan string, 1)}
}

func (m *stubMailer) IsConfigured(ctx context.Context) bool { return m.configured }

func (m *stubMailer) SendReportEmail(ctx context.Context, to string, pdfBytes []byte, filename string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent <- to
	return nil
}

func testHoldings() []models.Holding {
	return []models.Holding{
		{
			Symbol:   "NASDAQ:AAPL",
			Name:     "Apple Inc",
			Quantity: decimal.NewFromInt(10),
			AvgPrice: decimal.NewFromInt(150),
		},
		{
			Symbol:       "KRX:005930",
			Quantity:     decimal.NewFromInt(20),
			AvgPrice:     decimal.NewFromInt(50),
			CurrentPrice: decimal.NewFromInt(55),
		},
	}
}

func newOrchestrator(gateway interfaces.MarketGateway, llm interfaces.LLMService) *Orchestrator {
	logger := arbor.NewLogger()
	return NewOrchestrator(gateway, narrative.NewService(llm, logger), logger)
}

func newDispatcher(gateway interfaces.MarketGateway, llm interfaces.LLMService, mailer Mailer, reports interfaces.ReportStorage) *Dispatcher {
	logger := arbor.NewLogger()
	renderer := render.NewRenderer(common.ReportConfig{Title: "Investment Analysis Report"}, logger)
	return NewDispatcher(newOrchestrator(gateway, llm), renderer, mailer, reports, logger)
}

func TestOrchestrator_BuildReport(t *testing.T) {
	gateway := &stubGateway{
		enrichments: map[string]*interfaces.Enrichment{
			"NASDAQ:AAPL": {
				Symbol: "NASDAQ:AAPL",
				Quote:  &models.Quote{Symbol: "NASDAQ:AAPL", Price: 180},
				Facts:  &models.FinancialFact{Symbol: "NASDAQ:AAPL", Name: "Apple Inc", Sector: "Technology", Trend: models.TrendUp, PER: 29.4},
				News:   []models.NewsItem{{Title: "Apple hits record"}, {Title: "New product line"}},
			},
			// KRX:005930 enrichment missing entirely
		},
	}
	orchestrator := newOrchestrator(gateway, &stubLLM{response: "Diversify beyond tech."})

	lines, insight := orchestrator.BuildReport(context.Background(), testHoldings())

	if len(lines) != 2 {
		t.Fatalf("expected a line per holding, got %d", len(lines))
	}
	if insight != "Diversify beyond tech." {
		t.Errorf("unexpected insight: %q", insight)
	}

	apple := lines[0]
	if apple.CurrentPrice.String() != "180" {
		t.Errorf("expected gateway price 180, got %s", apple.CurrentPrice)
	}
	if apple.Value.String() != "1800" {
		t.Errorf("expected value 1800, got %s", apple.Value)
	}
	if apple.ProfitRate.String() != "20" {
		t.Errorf("expected profit rate 20, got %s", apple.ProfitRate)
	}
	if !strings.Contains(apple.Summary, "Technology sector") || !strings.Contains(apple.Summary, "trending up") {
		t.Errorf("unexpected summary: %q", apple.Summary)
	}
	if len(apple.News) != 2 {
		t.Errorf("expected 2 news items, got %d", len(apple.News))
	}

	samsung := lines[1]
	if samsung.CurrentPrice.String() != "55" {
		t.Errorf("expected stored price fallback 55, got %s", samsung.CurrentPrice)
	}
	if samsung.Summary != "Data fetch failed; valued at cost basis." {
		t.Errorf("expected failure marker summary, got %q", samsung.Summary)
	}
}

func TestOrchestrator_BuildReport_CostBasisFallback(t *testing.T) {
	orchestrator := newOrchestrator(&stubGateway{}, &stubLLM{err: errors.New("llm down")})

	holdings := []models.Holding{{
		Symbol:   "NYSE:GE",
		Quantity: decimal.NewFromInt(4),
		AvgPrice: decimal.NewFromInt(100),
	}}

	lines, insight := orchestrator.BuildReport(context.Background(), holdings)

	if lines[0].CurrentPrice.String() != "100" {
		t.Errorf("expected cost basis 100, got %s", lines[0].CurrentPrice)
	}
	if lines[0].Value.String() != "400" {
		t.Errorf("expected value 400, got %s", lines[0].Value)
	}
	if insight != narrative.FallbackInsight {
		t.Errorf("expected fallback insight, got %q", insight)
	}
}

func TestOrchestrator_BuildReport_NameFromFacts(t *testing.T) {
	gateway := &stubGateway{
		enrichments: map[string]*interfaces.Enrichment{
			"KRX:005930": {
				Symbol: "KRX:005930",
				Facts:  &models.FinancialFact{Name: "Samsung Electronics", Sector: "Technology"},
			},
		},
	}
	orchestrator := newOrchestrator(gateway, &stubLLM{response: "ok"})

	holdings := []models.Holding{{
		Symbol:   "KRX:005930",
		Quantity: decimal.NewFromInt(1),
		AvgPrice: decimal.NewFromInt(50),
	}}

	lines, _ := orchestrator.BuildReport(context.Background(), holdings)

	if lines[0].Name != "Samsung Electronics" {
		t.Errorf("expected name filled from fundamentals, got %q", lines[0].Name)
	}
}

func TestDispatcher_Deliver(t *testing.T) {
	reports := &memReportStorage{}
	dispatcher := newDispatcher(&stubGateway{}, &stubLLM{response: "Hold steady."}, newStubMailer(true), reports)

	pdfBytes, err := dispatcher.Deliver(context.Background(), "user@example.com", testHoldings())
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	if !strings.HasPrefix(string(pdfBytes[:4]), "%PDF") {
		t.Errorf("expected PDF output, got %q", pdfBytes[:4])
	}
	if reports.count() != 1 {
		t.Errorf("expected report persisted, got %d", reports.count())
	}
}

func TestDispatcher_Deliver_PipelineFailure(t *testing.T) {
	reports := &memReportStorage{}
	dispatcher := newDispatcher(&stubGateway{panics: true}, &stubLLM{response: "ok"}, newStubMailer(true), reports)

	pdfBytes, err := dispatcher.Deliver(context.Background(), "user@example.com", testHoldings())
	if err != nil {
		t.Fatalf("expected emergency document instead of error, got %v", err)
	}

	if !strings.HasPrefix(string(pdfBytes[:4]), "%PDF") {
		t.Errorf("expected PDF output, got %q", pdfBytes[:4])
	}
	if reports.count() != 0 {
		t.Errorf("failed pipeline must not persist a report, got %d", reports.count())
	}
}

func TestDispatcher_DeliverAsync(t *testing.T) {
	mailer := newStubMailer(true)
	dispatcher := newDispatcher(&stubGateway{}, &stubLLM{response: "ok"}, mailer, &memReportStorage{})

	dispatcher.DeliverAsync("user@example.com", testHoldings())

	select {
	case to := <-mailer.sent:
		if to != "user@example.com" {
			t.Errorf("unexpected recipient %q", to)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for async delivery")
	}
}

func TestDispatcher_DeliverAsync_MailNotConfigured(t *testing.T) {
	mailer := newStubMailer(false)
	dispatcher := newDispatcher(&stubGateway{}, &stubLLM{response: "ok"}, mailer, &memReportStorage{})

	// Must not panic or block; failure is logged and swallowed.
	dispatcher.DeliverAsync("user@example.com", testHoldings())

	select {
	case <-mailer.sent:
		t.Error("unexpected send without mail configuration")
	case <-time.After(500 * time.Millisecond):
	}
}
