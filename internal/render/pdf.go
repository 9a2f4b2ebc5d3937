package render

import (
	"bytes"
	"fmt"
	"time"

	"cvforge/internal/errors"
	"cvforge/internal/resume"

	"github.com/go-pdf/fpdf"
)

const fontFamily = "Helvetica"

type rgb struct{ r, g, b int }

var (
	colorText     = rgb{0, 0, 0}
	colorRule     = rgb{0xBD, 0xC3, 0xC7}
	colorPillFill = rgb{0xF0, 0xF2, 0xF6}
	colorPillText = rgb{0x31, 0x33, 0x3F}
	colorGrid     = rgb{0xD3, 0xD3, 0xD3}
	colorLink     = rgb{0, 0, 0xFF}
)

type textStyle struct {
	fontStyle  string
	size       float64
	leading    float64
	align      string
	color      rgb
	spaceAfter float64
	indent     float64
}

var styles = map[Style]textStyle{
	StyleName:          {fontStyle: "B", size: 24, leading: 28.8, align: "C", color: colorText, spaceAfter: 16},
	StyleContact:       {size: 10, leading: 12, align: "C", color: rgb{0x55, 0x55, 0x55}, spaceAfter: 6},
	StyleSectionTitle:  {fontStyle: "B", size: 13, leading: 16, align: "L", color: rgb{0x2C, 0x3E, 0x50}, spaceAfter: 2},
	StyleEntryTitle:    {fontStyle: "B", size: 11, leading: 13.2, align: "J", color: rgb{0x34, 0x49, 0x5E}, spaceAfter: 1},
	StyleEntrySubtitle: {fontStyle: "I", size: 10, leading: 12, align: "J", color: rgb{0x7F, 0x8C, 0x8D}, spaceAfter: 5},
	StyleBody:          {size: 10.5, leading: 14, align: "J", color: colorText, spaceAfter: 12},
	StyleListItem:      {size: 10.5, leading: 14, align: "J", color: colorText, spaceAfter: 4, indent: 14},
}

// Skill pill geometry.
const (
	pillFontSize = 8
	pillLeading  = 12
	pillPadX     = 8
	pillPadY     = 6
)

// Renderer draws Documents as PDF.
type Renderer struct {
	now func() time.Time
}

// NewRenderer returns a renderer stamping documents with the current time.
func NewRenderer() *Renderer {
	return &Renderer{now: time.Now}
}

// WithClock returns a copy of r that stamps documents with now().
func (r *Renderer) WithClock(now func() time.Time) *Renderer {
	return &Renderer{now: now}
}

// Render lays out and draws a record. It returns the whole document or
// nil and a RENDER_FAILED error.
func (r *Renderer) Render(rec resume.Record) ([]byte, error) {
	return r.Draw(Build(rec))
}

// Draw renders a laid out document.
func (r *Renderer) Draw(doc Document) (out []byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			out = nil
			err = errors.NewInternalError(errors.ErrCodeRenderFailed,
				"PDF rendering failed", fmt.Errorf("panic: %v", p))
		}
	}()

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(Margin, Margin, Margin)
	pdf.SetAutoPageBreak(true, Margin)
	pdf.SetCatalogSort(true)
	stamp := r.now()
	pdf.SetCreationDate(stamp)
	pdf.SetModificationDate(stamp)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(doc.Title), false)
	pdf.SetAuthor(tr(doc.Author), false)
	pdf.SetCreator("cvforge", false)

	pdf.AddPage()
	d := &drawer{pdf: pdf, tr: tr}
	for _, block := range doc.Blocks {
		switch b := block.(type) {
		case Paragraph:
			d.paragraph(b)
		case Rule:
			d.rule(b)
		case Spacer:
			pdf.Ln(b.Height)
		case SkillTable:
			d.skillTable(b)
		default:
			pdf.SetError(fmt.Errorf("unknown block %T", block))
		}
		if pdf.Err() {
			break
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeRenderFailed, "PDF rendering failed", err)
	}
	return buf.Bytes(), nil
}

type drawer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (d *drawer) setColor(c rgb) {
	d.pdf.SetTextColor(c.r, c.g, c.b)
}

func (d *drawer) paragraph(p Paragraph) {
	st, ok := styles[p.Style]
	if !ok {
		d.pdf.SetError(fmt.Errorf("unknown paragraph style %q", p.Style))
		return
	}
	d.pdf.SetFont(fontFamily, st.fontStyle, st.size)
	d.setColor(st.color)

	if p.Link != nil {
		d.linkLine(p, st)
	} else {
		for _, line := range markupLines(p.Markup) {
			d.pdf.SetX(Margin + st.indent)
			d.pdf.MultiCell(ContentWidth-st.indent, st.leading, d.tr(line), "", st.align, false)
		}
	}
	d.pdf.Ln(st.spaceAfter)
}

// linkLine draws a single centred line ending in a hyperlink.
func (d *drawer) linkLine(p Paragraph, st textStyle) {
	text := d.tr(markupLines(p.Markup)[0])
	if text != "" {
		text += " | "
	}
	linkText := d.tr(p.Link.Text)

	width := d.pdf.GetStringWidth(text)
	d.pdf.SetFont(fontFamily, "U", st.size)
	width += d.pdf.GetStringWidth(linkText)

	d.pdf.SetX(Margin + max(0, (ContentWidth-width)/2))
	d.pdf.SetFont(fontFamily, st.fontStyle, st.size)
	d.pdf.Write(st.leading, text)

	d.pdf.SetFont(fontFamily, "U", st.size)
	d.setColor(colorLink)
	d.pdf.WriteLinkString(st.leading, linkText, p.Link.URL)

	d.pdf.SetFont(fontFamily, st.fontStyle, st.size)
	d.setColor(st.color)
	d.pdf.Ln(st.leading)
}

func (d *drawer) rule(r Rule) {
	y := d.pdf.GetY()
	d.pdf.SetDrawColor(colorRule.r, colorRule.g, colorRule.b)
	d.pdf.SetLineWidth(1)
	d.pdf.Line(Margin, y, Margin+ContentWidth, y)
	d.pdf.Ln(r.SpaceAfter)
}

func (d *drawer) skillTable(t SkillTable) {
	pdf := d.pdf
	pdf.SetFont(fontFamily, "B", pillFontSize)
	textWidth := t.ColumnWidth - 2*pillPadX

	for _, row := range t.Rows {
		lines := make([][]string, len(row))
		height := 0.0
		for j, cell := range row {
			if cell.Pad {
				continue
			}
			lines[j] = pdf.SplitText(d.tr(cellText(cell.Text)), textWidth)
			height = max(height, float64(len(lines[j]))*pillLeading+2*pillPadY)
		}

		_, pageHeight := pdf.GetPageSize()
		if pdf.GetY()+height > pageHeight-Margin {
			pdf.AddPage()
		}
		y := pdf.GetY()

		for j, cell := range row {
			if cell.Pad {
				continue
			}
			x := Margin + float64(j)*t.ColumnWidth
			pdf.SetFillColor(colorPillFill.r, colorPillFill.g, colorPillFill.b)
			pdf.SetDrawColor(colorGrid.r, colorGrid.g, colorGrid.b)
			pdf.SetLineWidth(0.5)
			pdf.Rect(x, y, t.ColumnWidth, height, "FD")

			d.setColor(colorPillText)
			top := y + (height-float64(len(lines[j]))*pillLeading)/2
			for k, line := range lines[j] {
				pdf.SetXY(x+pillPadX, top+float64(k)*pillLeading)
				pdf.CellFormat(textWidth, pillLeading, line, "", 0, "C", false, 0, "")
			}
		}
		pdf.SetXY(Margin, y+height)
	}
	d.setColor(colorText)
}

// cellText undoes Escape for a single-line cell.
func cellText(markup string) string {
	return markupLines(markup)[0]
}
