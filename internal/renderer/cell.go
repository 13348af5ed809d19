package renderer

import (
	"unicode"
	"unicode/utf8"

	"github.com/dshills/doclines/internal/lines"
	"github.com/dshills/doclines/internal/shaping"
)

// cell is one drawn glyph of a visual line: the composed column it starts
// at, its cell offset within the row and its width in cells.
type cell struct {
	col   int
	x     int
	width int
	text  string
}

// cellsOf lays out the segment of fl shown on vl. Lines shaped by the
// terminal shaper keep their glyph positions; any other shaper is drawn one
// cell per rune.
func cellsOf(fl lines.FoldedLine, vl lines.VisualLine) []cell {
	if sl, ok := fl.Shaped.(*shaping.Line); ok {
		gs := sl.Glyphs(vl.SubIndex)
		out := make([]cell, 0, len(gs))
		for _, g := range gs {
			out = append(out, cell{col: g.Start, x: g.X, width: g.Width, text: sl.Cluster(g)})
		}
		return out
	}

	vi := vl.VisualInterval
	seg := fl.Text.Text[vi.Start:vi.End]
	out := make([]cell, 0, utf8.RuneCountInString(seg))
	x := 0
	for i, r := range seg {
		out = append(out, cell{col: vi.Start + i, x: x, width: 1, text: string(r)})
		x++
	}
	return out
}

// runesOf splits a cell's text into the main rune and combining runes
// tcell expects. Tabs and other control characters draw as blanks.
func runesOf(text string) (rune, []rune) {
	rs := []rune(text)
	if len(rs) == 0 || !unicode.IsPrint(rs[0]) {
		return ' ', nil
	}
	return rs[0], rs[1:]
}
