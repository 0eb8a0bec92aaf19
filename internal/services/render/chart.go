package render

import (
	"fmt"
	"math"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/folio/internal/models"
)

// sliceColors cycles through the allocation chart palette.
var sliceColors = [][3]int{
	{49, 130, 246},
	{240, 68, 82},
	{51, 199, 89},
	{255, 179, 0},
	{142, 68, 173},
	{26, 188, 156},
}

// drawAllocationChart draws the allocation pie from (symbol, value) pairs
// using fpdf path primitives. An error means the chart cannot be drawn at
// all; the caller degrades the section.
func drawAllocationChart(pdf *fpdf.Fpdf, font string, lines []models.StockReportLine) error {
	type slice struct {
		label string
		value float64
	}

	var slices []slice
	total := 0.0
	for i := range lines {
		value, _ := lines[i].Value.Float64()
		if value <= 0 {
			continue
		}
		slices = append(slices, slice{label: lines[i].Symbol, value: value})
		total += value
	}

	if len(slices) == 0 || total <= 0 {
		return fmt.Errorf("no positive position values to chart")
	}

	const radius = 30.0
	cx := 60.0
	cy := pdf.GetY() + radius + 5

	pdf.SetDrawColor(255, 255, 255)
	pdf.SetLineWidth(0.3)

	startAngle := 90.0
	for i, s := range slices {
		sweep := s.value / total * 360.0
		endAngle := startAngle + sweep

		color := sliceColors[i%len(sliceColors)]
		pdf.SetFillColor(color[0], color[1], color[2])

		pdf.MoveTo(cx, cy)
		pdf.ArcTo(cx, cy, radius, radius, 0, startAngle, endAngle)
		pdf.ClosePath()
		pdf.DrawPath("FD")

		startAngle = endAngle
	}
	if pdf.Err() {
		return fmt.Errorf("allocation chart path drawing failed: %v", pdf.Error())
	}

	// Legend to the right of the pie
	legendX := cx + radius + 15
	legendY := cy - radius
	pdf.SetFont(font, "", 8)
	pdf.SetTextColor(0, 0, 0)
	for i, s := range slices {
		color := sliceColors[i%len(sliceColors)]
		pdf.SetFillColor(color[0], color[1], color[2])

		y := legendY + float64(i)*5
		pdf.Rect(legendX, y, 3, 3, "F")
		pdf.SetXY(legendX+5, y-1)
		pdf.CellFormat(60, 5, fmt.Sprintf("%s  %.1f%%", s.label, s.value/total*100), "", 0, "L", false, 0, "")
	}

	// Move the cursor below whichever ran longer, pie or legend
	legendBottom := legendY + float64(len(slices))*5
	pdf.SetY(math.Max(cy+radius, legendBottom) + 6)
	pdf.SetDrawColor(0, 0, 0)

	return nil
}
