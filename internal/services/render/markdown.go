package render

import (
	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// writeMarkdown renders narrative prose into the document. The narrative
// is opaque LLM output, so the supported surface is deliberately small:
// headings, paragraphs, emphasis and lists. Anything else renders as
// plain text.
func writeMarkdown(pdf *fpdf.Fpdf, font, content string) error {
	md := goldmark.New()
	source := []byte(content)
	doc := md.Parser().Parse(text.NewReader(source))

	w := &markdownWriter{
		pdf:    pdf,
		source: source,
		font:   font,
		size:   9,
	}
	return ast.Walk(doc, w.walk)
}

type markdownWriter struct {
	pdf       *fpdf.Fpdf
	source    []byte
	font      string
	size      float64
	bold      bool
	italic    bool
	listLevel int
}

func (w *markdownWriter) updateFont() {
	style := ""
	if w.bold {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	w.pdf.SetFont(w.font, style, w.size)
}

func (w *markdownWriter) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n.Kind() {
	case ast.KindHeading:
		if entering {
			w.pdf.Ln(4)
			size := 11.0
			if n.(*ast.Heading).Level <= 2 {
				size = 12
			}
			w.pdf.SetFont(w.font, "B", size)
		} else {
			w.pdf.Ln(6)
			w.updateFont()
		}
	case ast.KindParagraph:
		if entering {
			w.updateFont()
		} else {
			w.pdf.Ln(7)
		}
	case ast.KindText:
		if entering {
			t := n.(*ast.Text)
			w.pdf.Write(5, string(t.Text(w.source)))
			if t.SoftLineBreak() || t.HardLineBreak() {
				w.pdf.Ln(5)
			}
		}
	case ast.KindEmphasis:
		if n.(*ast.Emphasis).Level == 2 {
			w.bold = entering
		} else {
			w.italic = entering
		}
		w.updateFont()
	case ast.KindList:
		if entering {
			w.listLevel++
		} else {
			w.listLevel--
			if w.listLevel == 0 {
				w.pdf.Ln(2)
			}
		}
	case ast.KindListItem:
		if entering {
			w.pdf.Ln(5)
			w.pdf.SetX(15 + float64(w.listLevel)*5)
			w.pdf.Write(5, "- ")
		}
	}
	return ast.WalkContinue, nil
}
