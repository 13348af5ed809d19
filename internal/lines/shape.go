package lines

import "unicode/utf8"

// WrapConfig controls how a composed line is split into visual lines.
type WrapConfig struct {
	// Width is the wrap width in cells. Zero disables wrapping.
	Width    int
	TabWidth int
}

// Segment is one wrap segment of a shaped line: composed byte columns
// [Start, End) holding Glyphs glyphs.
type Segment struct {
	Start  int
	End    int
	Glyphs int
}

// ShapedLine is the layout of one composed line.
type ShapedLine interface {
	// Segments returns the wrap segments in order. They cover the text
	// without gaps; a trailing segment may be empty.
	Segments() []Segment

	// HitTest returns the composed column under x cells into segment seg.
	// inside is false when x lies past the segment's last glyph.
	HitTest(seg int, x float64) (col int, inside bool)

	// PointOf returns the segment and cell position of a composed column.
	PointOf(col int) (seg int, x float64)
}

// Shaper lays out composed text.
type Shaper interface {
	Shape(text string, styles []StyleSpan, wrap WrapConfig) ShapedLine
}

// RuneShaper treats every rune as one cell and wraps hard at the width.
// It is the fallback when no shaper is configured.
type RuneShaper struct{}

// Shape implements Shaper.
func (RuneShaper) Shape(text string, _ []StyleSpan, wrap WrapConfig) ShapedLine {
	l := &runeLine{}
	seg := Segment{}
	for i := range text {
		if wrap.Width > 0 && seg.Glyphs == wrap.Width {
			seg.End = i
			l.segs = append(l.segs, seg)
			seg = Segment{Start: i}
		}
		seg.Glyphs++
	}
	seg.End = len(text)
	l.segs = append(l.segs, seg)
	l.text = text
	return l
}

type runeLine struct {
	text string
	segs []Segment
}

func (l *runeLine) Segments() []Segment { return l.segs }

func (l *runeLine) HitTest(seg int, x float64) (int, bool) {
	if seg < 0 || seg >= len(l.segs) {
		return 0, false
	}
	s := l.segs[seg]
	if x < 0 {
		return s.Start, false
	}
	n := int(x)
	col := s.Start
	for i := 0; i < n && col < s.End; i++ {
		_, size := utf8.DecodeRuneInString(l.text[col:])
		col += size
	}
	return col, n < s.Glyphs
}

func (l *runeLine) PointOf(col int) (int, float64) {
	for i, s := range l.segs {
		if col < s.End || i == len(l.segs)-1 {
			col = max(s.Start, min(col, s.End))
			return i, float64(utf8.RuneCountInString(l.text[s.Start:col]))
		}
	}
	return 0, 0
}
