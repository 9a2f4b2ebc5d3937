package extract

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF reads pages in order. Within a page, glyphs sharing a baseline
// form lines, lines are split at column gutters and each column block is
// read top to bottom, blocks ordered by (top, left).
func extractPDF(data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", extractionFailed("pdf", fmt.Errorf("empty document"))
	}

	// The reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", extractionFailed("pdf", fmt.Errorf("%v", r))
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", extractionFailed("pdf", err)
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, pageLines(page))
	}
	return strings.Join(pages, "\n\n"), nil
}

// Layout thresholds, in ems of the glyph's font size unless noted.
const (
	// defaultAdvance stands in for glyph widths when the font carries no
	// /Widths array, as with the standard 14 fonts.
	defaultAdvance = 0.5
	wordGap        = 0.15
	runGap         = 0.3
	columnGap      = 1.5
	rowTolerance   = 0.5
	// edgeTolerance is in points.
	edgeTolerance = 3.0
)

// run is a sequence of glyphs drawn along one baseline without a gap.
type run struct {
	x0, x1 float64
	y      float64
	size   float64
	text   string
}

// segment is the text of one row between two gutters.
type segment struct {
	x0, x1 float64
	text   string
}

func pageLines(page pdf.Page) string {
	rows := groupRows(textRuns(page.Content().Text))

	segRows := make([][]segment, len(rows))
	for i, r := range rows {
		segRows[i] = segments(r)
	}
	return layoutColumns(segRows)
}

func fontSize(g pdf.Text) float64 {
	if g.FontSize > 0 {
		return g.FontSize
	}
	return 10
}

func advance(g pdf.Text) float64 {
	if g.W > 0 {
		return g.W
	}
	return fontSize(g) * defaultAdvance
}

// textRuns splits the glyph stream, in content order, wherever the
// baseline changes, the pen moves backwards or a gap opens.
func textRuns(glyphs []pdf.Text) []run {
	var runs []run
	var b strings.Builder
	var cur run
	var lastX float64
	open := false

	flush := func() {
		if open {
			cur.text = b.String()
			if strings.TrimSpace(cur.text) != "" {
				runs = append(runs, cur)
			}
		}
		b.Reset()
		open = false
	}

	for _, g := range glyphs {
		if g.S == "\n" {
			flush()
			continue
		}
		if g.S == "" {
			continue
		}
		size := fontSize(g)
		if open && math.Abs(g.Y-cur.y) <= rowTolerance*size && g.X >= lastX-0.01 && g.X-cur.x1 <= runGap*size {
			if g.X-cur.x1 > wordGap*size {
				b.WriteString(spaceBetween(b.String(), g.S))
			}
			b.WriteString(g.S)
			cur.x1 = math.Max(cur.x1, g.X) + advance(g)
			lastX = g.X
			continue
		}
		flush()
		cur = run{x0: g.X, x1: g.X + advance(g), y: g.Y, size: size}
		b.WriteString(g.S)
		lastX = g.X
		open = true
	}
	flush()
	return runs
}

// groupRows clusters runs by baseline, top to bottom, each row left to
// right.
func groupRows(runs []run) [][]run {
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].y > runs[j].y })

	var rows [][]run
	var rowY float64
	for _, r := range runs {
		if n := len(rows); n > 0 && math.Abs(rowY-r.y) <= rowTolerance*r.size {
			rows[n-1] = append(rows[n-1], r)
			continue
		}
		rows = append(rows, []run{r})
		rowY = r.y
	}
	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool { return row[i].x0 < row[j].x0 })
	}
	return rows
}

// segments joins the runs of a row, breaking at gaps wider than columnGap.
func segments(row []run) []segment {
	var segs []segment
	for _, r := range row {
		if n := len(segs); n > 0 {
			last := &segs[n-1]
			gap := r.x0 - last.x1
			if gap <= columnGap*r.size {
				if gap > wordGap*r.size {
					last.text += spaceBetween(last.text, r.text)
				}
				last.text += r.text
				last.x1 = math.Max(last.x1, r.x1)
				continue
			}
		}
		segs = append(segs, segment{x0: r.x0, x1: r.x1, text: r.text})
	}
	return segs
}

// columnEdges returns the left edges of columns: x positions where at
// least two rows start a segment after a gutter. A gutter seen on one row
// only, like a right-aligned date, is not a column.
func columnEdges(rows [][]segment) []float64 {
	var starts []float64
	for _, segs := range rows {
		for _, s := range segs[1:] {
			starts = append(starts, s.x0)
		}
	}
	sort.Float64s(starts)

	var edges []float64
	for i := 0; i < len(starts); {
		j := i
		for j < len(starts) && starts[j]-starts[i] <= edgeTolerance {
			j++
		}
		if j-i >= 2 {
			edges = append(edges, starts[i])
		}
		i = j
	}
	return edges
}

func columnOf(x float64, edges []float64) int {
	c := 0
	for _, e := range edges {
		if x >= e-edgeTolerance {
			c++
		}
	}
	return c
}

// layoutColumns emits rows top to bottom. The rows from the first to the
// last one holding text right of a column edge form a band that is read
// column by column, so each column's block comes out whole, left first.
func layoutColumns(rows [][]segment) string {
	edges := columnEdges(rows)
	cells := make([][]string, len(rows))
	first, last := -1, -1
	for i, segs := range rows {
		cells[i] = make([]string, len(edges)+1)
		for _, s := range segs {
			c := columnOf(s.x0, edges)
			if cells[i][c] != "" {
				cells[i][c] += spaceBetween(cells[i][c], s.text)
			}
			cells[i][c] += s.text
			if c > 0 {
				if first < 0 {
					first = i
				}
				last = i
			}
		}
	}

	var lines []string
	add := func(s string) {
		if s = strings.TrimRight(s, " "); s != "" {
			lines = append(lines, s)
		}
	}
	for i := 0; i < len(cells); i++ {
		if i == first {
			for c := range cells[i] {
				for k := first; k <= last; k++ {
					add(cells[k][c])
				}
			}
			i = last
			continue
		}
		for _, cell := range cells[i] {
			add(cell)
		}
	}
	return strings.Join(lines, "\n")
}

// spaceBetween returns the separator for joining left and right across a
// gap: a single space unless one side already has it.
func spaceBetween(left, right string) string {
	if strings.HasSuffix(left, " ") || strings.HasPrefix(right, " ") {
		return ""
	}
	return " "
}
