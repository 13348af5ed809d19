package lines

import (
	"sort"

	"github.com/dshills/doclines/internal/config"
)

// FoldedLine is one rendered unit: a single origin line, or several merged
// by collapsed folds. OriginLineEnd is inclusive. OriginInterval covers the
// unit's bytes including its final line ending.
type FoldedLine struct {
	LineIndex       int
	OriginLineStart int
	OriginLineEnd   int
	OriginInterval  Interval
	Text            *ComposedLine
	// Styles are in composed columns.
	Styles []StyleSpan
	Shaped ShapedLine
}

// shifted returns a copy of a reused unit renumbered after an edit.
func (f FoldedLine) shifted(index, lines, bytes int) FoldedLine {
	f.LineIndex += index
	f.OriginLineStart += lines
	f.OriginLineEnd += lines
	f.OriginInterval = f.OriginInterval.Shift(bytes)
	f.Text = f.Text.shifted(lines)
	return f
}

// builder derives rendered units from the buffer and the current folds,
// overlays and config. A builder is used for one update only.
type builder struct {
	src    LineSource
	cfg    config.Editor
	shaper Shaper
	folds  *Folding
	layout *foldLayout
	ov     *overlays
	coll   collector
}

func newBuilder(src LineSource, cfg config.Editor, shaper Shaper, folds *Folding, ov *overlays) *builder {
	b := &builder{
		src:    src,
		cfg:    cfg,
		shaper: shaper,
		folds:  folds,
		layout: folds.layout(src),
		ov:     ov,
	}
	b.coll = collector{src: src, cfg: cfg, folds: folds, ov: ov, idx: ov.index(src)}
	return b
}

func (b *builder) wrap() WrapConfig {
	return WrapConfig{Width: b.cfg.EffectiveWrapWidth(), TabWidth: b.cfg.TabWidth}
}

// unit builds the rendered unit starting at origin line first.
func (b *builder) unit(first, index int) FoldedLine {
	spans := b.layout.chain(first)

	inputs := make([]chainInput, 0, len(spans)+1)
	lo := 0
	line := first
	for i := 0; ; i++ {
		content := b.src.LineContent(line)
		hi := len(content)
		last := i == len(spans)
		if !last {
			hi = min(spans[i].startCol, hi)
		}
		lo = min(lo, hi)

		var phantoms []PhantomText
		for _, p := range b.coll.phantoms(line) {
			if p.Col >= lo && p.Col <= hi && p.Text != "" {
				phantoms = append(phantoms, p)
			}
		}
		sort.SliceStable(phantoms, func(a, c int) bool { return phantoms[a].Col < phantoms[c].Col })
		if !last {
			phantoms = append(phantoms, PhantomText{
				Kind:     PhantomFoldPlaceholder,
				Line:     line,
				Col:      hi,
				Text:     b.cfg.FoldPlaceholder,
				Affinity: Backward,
				Fold:     spans[i].rng,
			})
		}
		inputs = append(inputs, chainInput{line: line, content: content, visible: Interval{Start: lo, End: hi}, phantoms: phantoms})

		if last {
			break
		}
		lo = spans[i].endCol
		line = spans[i].endLine
	}

	text := compose(inputs)
	styles := b.styles(text)
	return FoldedLine{
		LineIndex:       index,
		OriginLineStart: first,
		OriginLineEnd:   line,
		OriginInterval:  Interval{Start: b.src.OffsetOfLine(first), End: b.src.LineEnd(line)},
		Text:            text,
		Styles:          styles,
		Shaped:          b.shaper.Shape(text.Text, styles, b.wrap()),
	}
}

// styles projects buffer style spans onto the origin pieces of text.
func (b *builder) styles(text *ComposedLine) []StyleSpan {
	if len(b.ov.styles) == 0 {
		return nil
	}
	var out []StyleSpan
	for _, p := range text.Pieces {
		if p.IsPhantom() {
			continue
		}
		start := b.src.OffsetOfLine(p.Line) + p.Col
		end := start + p.Final.Len()
		for _, s := range b.ov.stylesFor(start, end) {
			out = append(out, StyleSpan{
				Start: p.Final.Start + max(s.Start, start) - start,
				End:   p.Final.Start + min(s.End, end) - start,
				Style: s.Style,
			})
		}
	}
	return out
}

// all builds every rendered unit of the document.
func (b *builder) all() []FoldedLine {
	n := b.src.NumLines()
	var out []FoldedLine
	for line := 0; line < n; {
		fl := b.unit(line, len(out))
		out = append(out, fl)
		line = fl.OriginLineEnd + 1
	}
	return out
}

// unitOfLine returns the index of the unit containing origin line.
func unitOfLine(folded []FoldedLine, line int) int {
	i := sort.Search(len(folded), func(i int) bool { return folded[i].OriginLineEnd >= line })
	return min(i, len(folded)-1)
}

// unitStartingAt returns the index of the unit whose first origin line is
// line.
func unitStartingAt(folded []FoldedLine, line int) (int, bool) {
	i := sort.Search(len(folded), func(i int) bool { return folded[i].OriginLineStart >= line })
	if i < len(folded) && folded[i].OriginLineStart == line {
		return i, true
	}
	return 0, false
}
