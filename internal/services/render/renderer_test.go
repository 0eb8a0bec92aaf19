package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/models"
)

func newTestRenderer() *Renderer {
	return NewRenderer(common.ReportConfig{Title: "Investment Analysis Report"}, arbor.NewLogger())
}

// validatePDF parses the document with pdfcpu and returns the page count.
func validatePDF(t *testing.T, pdfBytes []byte) int {
	t.Helper()

	tempFile := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(tempFile, pdfBytes, 0644))

	ctx, err := api.ReadContextFile(tempFile)
	require.NoError(t, err, "rendered PDF must parse")
	return ctx.PageCount
}

func testLines() []models.StockReportLine {
	return []models.StockReportLine{
		{
			Symbol:       "NASDAQ:AAPL",
			Name:         "Apple Inc",
			Quantity:     decimal.NewFromInt(10),
			AvgPrice:     decimal.NewFromInt(150),
			CurrentPrice: decimal.NewFromInt(180),
			ProfitRate:   decimal.NewFromInt(20),
			Value:        decimal.NewFromInt(1800),
			Summary:      "Technology sector, trending up, 3 recent headlines.",
		},
		{
			Symbol:       "NASDAQ:TSLA",
			Name:         "Tesla Motors Incorporated",
			Quantity:     decimal.NewFromInt(5),
			AvgPrice:     decimal.NewFromInt(250),
			CurrentPrice: decimal.NewFromInt(200),
			ProfitRate:   decimal.NewFromInt(-20),
			Value:        decimal.NewFromInt(1000),
			Summary:      "Data fetch failed; valued at cost basis.",
		},
	}
}

func TestRenderer_Render(t *testing.T) {
	renderer := newTestRenderer()

	insight := "The portfolio is concentrated in US large caps.\n\nConsider diversifying across sectors:\n\n- Reduce single-name exposure\n- Add defensive positions"

	pdfBytes, err := renderer.Render("test@example.com", insight, testLines())
	require.NoError(t, err)
	require.NotEmpty(t, pdfBytes)

	assert.Equal(t, "%PDF", string(pdfBytes[:4]))
	assert.GreaterOrEqual(t, validatePDF(t, pdfBytes), 1)
}

func TestRenderer_Render_NoLines(t *testing.T) {
	renderer := newTestRenderer()

	// With no positive values the chart degrades to a placeholder but the
	// document still finalizes.
	pdfBytes, err := renderer.Render("test@example.com", "No holdings to analyze.", nil)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdfBytes[:4]))
	assert.GreaterOrEqual(t, validatePDF(t, pdfBytes), 1)
}

func TestRenderer_Render_EmptyInsight(t *testing.T) {
	renderer := newTestRenderer()

	pdfBytes, err := renderer.Render("test@example.com", "   ", testLines())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, validatePDF(t, pdfBytes), 1)
}

func TestRenderer_RenderEmergency(t *testing.T) {
	renderer := newTestRenderer()

	pdfBytes, err := renderer.RenderEmergency("test@example.com", "pipeline failure: market data unavailable")
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdfBytes[:4]))
	assert.Equal(t, 1, validatePDF(t, pdfBytes))
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "0", want: "$0.00"},
		{in: "1234.5", want: "$1,234.50"},
		{in: "1000000", want: "$1,000,000.00"},
		{in: "-9876.54", want: "-$9,876.54"},
		{in: "999", want: "$999.00"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := decimal.NewFromString(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, formatMoney(d))
		})
	}
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "+20.00%", formatRate(decimal.NewFromInt(20)))
	assert.Equal(t, "-20.00%", formatRate(decimal.NewFromInt(-20)))
	assert.Equal(t, "0.00%", formatRate(decimal.Zero))
}

func TestTruncateName(t *testing.T) {
	assert.Equal(t, "Unknown", truncateName(""))
	assert.Equal(t, "Apple Inc", truncateName("Apple Inc"))
	assert.Equal(t, "Tesla Motors In...", truncateName("Tesla Motors Incorporated"))
}
