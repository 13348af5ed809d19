// Package shaping lays out composed lines on a monospace cell grid.
//
// Text is split into grapheme clusters with uniseg, each cluster is sized
// with go-runewidth, and tabs expand to the next tab stop. When a wrap width
// is set, lines break at the last line break opportunity that fits, falling
// back to a hard break inside long words.
package shaping

import (
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"

	"github.com/dshills/doclines/internal/lines"
)

// maxLookback is how many cells a word wrap may give up to break at a word
// boundary instead of mid-word.
const maxLookback = 20

// Shaper implements lines.Shaper for terminal cells.
type Shaper struct {
	cond       *runewidth.Condition
	wrapAtWord bool
}

// Option configures a Shaper.
type Option func(*Shaper)

// WithWordWrap selects breaking at word boundaries (the default) or hard
// breaking at the wrap width.
func WithWordWrap(atWord bool) Option {
	return func(s *Shaper) {
		s.wrapAtWord = atWord
	}
}

// WithEastAsianWidth treats ambiguous-width characters as two cells.
func WithEastAsianWidth(wide bool) Option {
	return func(s *Shaper) {
		s.cond.EastAsianWidth = wide
	}
}

// New creates a shaper.
func New(opts ...Option) *Shaper {
	cond := runewidth.NewCondition()
	cond.EastAsianWidth = false
	s := &Shaper{cond: cond, wrapAtWord: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// cluster is one grapheme cluster of the input.
type cluster struct {
	start, end int
	width      int  // cells, zero for tabs
	tab        bool // expands to the next tab stop
	breakAfter bool // a line may break after it
}

// clusters splits text into grapheme clusters.
func (s *Shaper) clusters(text string) []cluster {
	var out []cluster
	state := -1
	pos := 0
	rest := text
	for len(rest) > 0 {
		var c string
		var boundaries int
		c, rest, boundaries, state = uniseg.StepString(rest, state)

		cl := cluster{
			start:      pos,
			end:        pos + len(c),
			breakAfter: boundaries&uniseg.MaskLine != uniseg.LineDontBreak,
		}
		if c == "\t" {
			cl.tab = true
		} else {
			cl.width = max(1, s.cond.StringWidth(c))
		}
		out = append(out, cl)
		pos += len(c)
	}
	return out
}

// Shape implements lines.Shaper. Styles do not affect cell layout.
func (s *Shaper) Shape(text string, _ []lines.StyleSpan, wrap lines.WrapConfig) lines.ShapedLine {
	tabs := NewTabExpander(wrap.TabWidth)
	cs := s.clusters(text)
	l := &Line{text: text, glyphs: make([]Glyph, 0, len(cs))}

	segStart := 0
	x := 0
	lastBreak, breakX := -1, 0
	flush := func(end int) {
		first := segStart
		seg := lines.Segment{Start: byteStart(cs, first, len(text)), End: byteStart(cs, end, len(text)), Glyphs: end - first}
		l.segs = append(l.segs, seg)
	}

	for i := 0; i < len(cs); i++ {
		c := cs[i]
		w := c.width
		if c.tab {
			w = tabs.TabStopOffset(x)
		}

		if wrap.Width > 0 && x+w > wrap.Width && i > segStart {
			cut := i
			if s.wrapAtWord && lastBreak >= segStart && lastBreak+1 < i && x-breakX <= maxLookback {
				cut = lastBreak + 1
			}
			flush(cut)
			l.glyphs = l.glyphs[:cut]
			segStart, x, lastBreak = cut, 0, -1
			i = cut - 1
			continue
		}

		l.glyphs = append(l.glyphs, Glyph{Start: c.start, End: c.end, X: x, Width: w, Seg: len(l.segs)})
		x += w
		if c.breakAfter {
			lastBreak, breakX = i, x
		}
	}
	flush(len(cs))
	return l
}

func byteStart(cs []cluster, i, end int) int {
	if i >= len(cs) {
		return end
	}
	return cs[i].start
}

// Glyph is a laid out grapheme cluster: composed bytes [Start, End) drawn
// Width cells wide at cell X of segment Seg.
type Glyph struct {
	Start int
	End   int
	X     int
	Width int
	Seg   int
}

// Line is a shaped composed line.
type Line struct {
	text   string
	segs   []lines.Segment
	glyphs []Glyph
}

// Cluster returns the text drawn by g.
func (l *Line) Cluster(g Glyph) string {
	return l.text[g.Start:g.End]
}

// Segments implements lines.ShapedLine.
func (l *Line) Segments() []lines.Segment {
	return l.segs
}

// Glyphs returns the glyphs of segment seg in order.
func (l *Line) Glyphs(seg int) []Glyph {
	if seg < 0 || seg >= len(l.segs) {
		return nil
	}
	first := 0
	for _, s := range l.segs[:seg] {
		first += s.Glyphs
	}
	return l.glyphs[first : first+l.segs[seg].Glyphs]
}

// Width returns the cell width of segment seg.
func (l *Line) Width(seg int) int {
	gs := l.Glyphs(seg)
	if len(gs) == 0 {
		return 0
	}
	last := gs[len(gs)-1]
	return last.X + last.Width
}

// HitTest implements lines.ShapedLine. A cell inside a wide glyph or a tab
// resolves to the glyph's start.
func (l *Line) HitTest(seg int, x float64) (int, bool) {
	if seg < 0 || seg >= len(l.segs) {
		return 0, false
	}
	s := l.segs[seg]
	if x < 0 {
		return s.Start, false
	}
	cell := int(x)
	for _, g := range l.Glyphs(seg) {
		if cell < g.X+g.Width {
			return g.Start, true
		}
	}
	return s.End, false
}

// PointOf implements lines.ShapedLine.
func (l *Line) PointOf(col int) (int, float64) {
	for i, s := range l.segs {
		if col >= s.End && i < len(l.segs)-1 {
			continue
		}
		for _, g := range l.Glyphs(i) {
			if col < g.End {
				return i, float64(g.X)
			}
		}
		return i, float64(l.Width(i))
	}
	return 0, 0
}
