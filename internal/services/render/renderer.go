package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/models"
)

// reportFont is the family name registered for the optional UTF-8 face.
const reportFont = "Report"

// maxNameWidth bounds the company name column in the holdings table.
const maxNameWidth = 15

// Renderer produces the PDF report document. Every section short of final
// output is fault-isolated: a failing section degrades to a placeholder
// line and the rest of the document still renders.
type Renderer struct {
	config common.ReportConfig
	logger arbor.ILogger
}

// NewRenderer creates a document renderer.
func NewRenderer(config common.ReportConfig, logger arbor.ILogger) *Renderer {
	return &Renderer{
		config: config,
		logger: logger,
	}
}

// Render builds the full report PDF. Only a failure to finalize the
// document is a hard error; section failures degrade in place.
func (r *Renderer) Render(recipient, insight string, lines []models.StockReportLine) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	font := r.setupFont(pdf)

	r.runSection(pdf, font, "header", func() {
		r.writeHeader(pdf, font, recipient)
	})
	r.runSection(pdf, font, "overview", func() {
		r.writeOverview(pdf, font, lines)
	})
	r.runSection(pdf, font, "allocation chart", func() {
		if err := drawAllocationChart(pdf, font, lines); err != nil {
			panic(err)
		}
	})
	r.runSection(pdf, font, "holdings table", func() {
		r.writeHoldingsTable(pdf, font, lines)
	})
	r.runSection(pdf, font, "analyst insight", func() {
		r.writeInsight(pdf, font, insight)
	})

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		r.logger.Error().Err(err).Msg("Failed to finalize report PDF")
		return nil, fmt.Errorf("failed to finalize report PDF: %w", err)
	}

	r.logger.Debug().
		Int("pdf_size", buf.Len()).
		Int("lines", len(lines)).
		Msg("Report PDF rendered")

	return buf.Bytes(), nil
}

// RenderEmergency builds the minimal fail-safe document: title plus error
// text. Used by the delivery path when the full pipeline fails.
func (r *Renderer) RenderEmergency(recipient, message string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(15, 76, 129)
	pdf.CellFormat(0, 10, r.title(), "", 1, "L", false, 0, "")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Date: %s | User: %s", time.Now().Format("2006-01-02"), recipient), "", 1, "L", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 7, "Report generation failed", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.MultiCell(0, 5, message, "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to finalize emergency PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// title returns the configured report title.
func (r *Renderer) title() string {
	if r.config.Title != "" {
		return r.config.Title
	}
	return "Investment Analysis Report"
}

// setupFont registers the optional UTF-8 face for non-Latin narrative
// text. Registration failure falls back to the built-in Latin face.
func (r *Renderer) setupFont(pdf *fpdf.Fpdf) string {
	if r.config.FontDir == "" || r.config.FontFile == "" {
		return "Arial"
	}

	path := filepath.Join(r.config.FontDir, r.config.FontFile)
	if _, err := os.Stat(path); err != nil {
		r.logger.Warn().Str("path", path).Err(err).Msg("Report font not found, using built-in face")
		return "Arial"
	}

	pdf.AddUTF8Font(reportFont, "", path)
	pdf.AddUTF8Font(reportFont, "B", path)
	if pdf.Err() {
		r.logger.Warn().Str("path", path).Msg("Report font registration failed, using built-in face")
		pdf.ClearError()
		return "Arial"
	}

	return reportFont
}

// runSection executes one document section, degrading to a placeholder
// line when the section panics.
func (r *Renderer) runSection(pdf *fpdf.Fpdf, font, name string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn().
				Str("section", name).
				Str("reason", fmt.Sprint(rec)).
				Msg("Report section failed, writing placeholder")
			pdf.SetTextColor(0, 0, 0)
			pdf.SetFont(font, "", 9)
			pdf.Ln(2)
			pdf.MultiCell(0, 5, fmt.Sprintf("[%s unavailable]", name), "", "L", false)
			pdf.Ln(2)
		}
	}()
	fn()
}

func (r *Renderer) writeHeader(pdf *fpdf.Fpdf, font, recipient string) {
	pdf.SetFont(font, "B", 18)
	pdf.SetTextColor(15, 76, 129)
	pdf.CellFormat(0, 11, r.title(), "", 1, "L", false, 0, "")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont(font, "", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Date: %s | User: %s", time.Now().Format("2006-01-02"), recipient), "", 1, "L", false, 0, "")
	pdf.Ln(6)
}

func (r *Renderer) writeOverview(pdf *fpdf.Fpdf, font string, lines []models.StockReportLine) {
	total := decimal.Zero
	for i := range lines {
		total = total.Add(lines[i].Value)
	}

	pdf.SetFont(font, "B", 12)
	pdf.CellFormat(0, 8, "1. Portfolio Overview", "", 1, "L", false, 0, "")
	pdf.SetFont(font, "B", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Total Assets: %s", formatMoney(total)), "", 1, "L", false, 0, "")
	pdf.Ln(3)
}

func (r *Renderer) writeHoldingsTable(pdf *fpdf.Fpdf, font string, lines []models.StockReportLine) {
	pdf.Ln(4)
	pdf.SetFont(font, "B", 12)
	pdf.CellFormat(0, 8, "2. Asset Details", "", 1, "L", false, 0, "")
	pdf.Ln(1)

	headers := []string{"Symbol", "Name", "Qty", "Avg Price", "Current", "Returns"}
	rows := make([][]string, 0, len(lines))
	for i := range lines {
		line := &lines[i]
		rows = append(rows, []string{
			line.Symbol,
			truncateName(line.Name),
			line.Quantity.String(),
			formatMoney(line.AvgPrice),
			formatMoney(line.CurrentPrice),
			formatRate(line.ProfitRate),
		})
	}

	fontSize := 8.5
	lineHeight := 6.0
	widths := r.columnWidths(pdf, font, headers, rows, fontSize)

	// Header row
	pdf.SetFont(font, "B", fontSize)
	pdf.SetFillColor(44, 62, 80)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		pdf.CellFormat(widths[i], lineHeight+1, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	// Data rows
	pdf.SetFont(font, "", fontSize)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFillColor(236, 240, 241)
	for _, row := range rows {
		for i, cell := range row {
			align := "R"
			if i < 2 {
				align = "L"
			}
			pdf.CellFormat(widths[i], lineHeight, cell, "1", 0, align, true, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}

// columnWidths measures each column's content and scales to the usable
// page width.
func (r *Renderer) columnWidths(pdf *fpdf.Fpdf, font string, headers []string, rows [][]string, fontSize float64) []float64 {
	widths := make([]float64, len(headers))

	pdf.SetFont(font, "B", fontSize)
	for i, h := range headers {
		widths[i] = pdf.GetStringWidth(h) + 6
	}

	pdf.SetFont(font, "", fontSize)
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				continue
			}
			if w := pdf.GetStringWidth(cell) + 6; w > widths[i] {
				widths[i] = w
			}
		}
	}

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageWidth - left - right

	total := 0.0
	for _, w := range widths {
		total += w
	}
	if total <= 0 {
		return widths
	}

	scale := usable / total
	for i := range widths {
		widths[i] *= scale
	}
	return widths
}

func (r *Renderer) writeInsight(pdf *fpdf.Fpdf, font, insight string) {
	pdf.SetFont(font, "B", 12)
	pdf.CellFormat(0, 8, "3. AI Analyst Insight", "", 1, "L", false, 0, "")
	pdf.Ln(1)

	if strings.TrimSpace(insight) == "" {
		pdf.SetFont(font, "", 9)
		pdf.MultiCell(0, 5, "No analysis available for this report.", "", "L", false)
		return
	}

	if err := writeMarkdown(pdf, font, insight); err != nil {
		panic(err)
	}
}

// truncateName bounds the display width of a company name.
func truncateName(name string) string {
	if name == "" {
		return "Unknown"
	}
	runes := []rune(name)
	if len(runes) <= maxNameWidth {
		return name
	}
	return string(runes[:maxNameWidth]) + "..."
}

// formatMoney renders a decimal as a dollar amount with thousands
// separators.
func formatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)

	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	parts := strings.SplitN(s, ".", 2)
	intPart := parts[0]

	var grouped strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(c)
	}

	out := "$" + grouped.String() + "." + parts[1]
	if negative {
		return "-" + out
	}
	return out
}

// formatRate renders a profit rate with an explicit sign.
func formatRate(rate decimal.Decimal) string {
	s := rate.StringFixed(2) + "%"
	if rate.IsPositive() {
		return "+" + s
	}
	return s
}
