package lines

import "sort"

// VisualLine is one wrap segment of a rendered unit. FoldedLine is the
// index of the unit in the snapshot's folded vector and SubIndex the
// segment's position within it. OriginLine is the origin line holding the
// segment's first byte.
type VisualLine struct {
	LineIndex      int
	OriginInterval Interval
	VisualInterval Interval
	OriginLine     int
	FoldedLine     int
	SubIndex       int
}

// SegmentUnit splits a rendered unit into visual lines numbered from
// startIndex. Origin bounds of inner wrap points come from the unit's
// inverse column mapping; the first segment starts at the unit's start and
// the last ends at its end, line ending included.
func SegmentUnit(folded FoldedLine, foldedIndex, startIndex int, src LineSource) []VisualLine {
	segs := folded.Shaped.Segments()
	if len(segs) == 0 {
		segs = []Segment{{Start: 0, End: folded.Text.Len()}}
	}

	out := make([]VisualLine, 0, len(segs))
	originStart := folded.OriginInterval.Start
	line := folded.OriginLineStart
	for i, seg := range segs {
		originEnd, nextLine := folded.OriginInterval.End, line
		if i+1 < len(segs) {
			l, col := folded.Text.CursorPositionOfFinalCol(segs[i+1].Start)
			originEnd = max(originStart, src.OffsetOfLine(l)+col)
			nextLine = l
		}
		out = append(out, VisualLine{
			LineIndex:      startIndex + i,
			OriginInterval: Interval{Start: originStart, End: originEnd},
			VisualInterval: Interval{Start: seg.Start, End: seg.End},
			OriginLine:     line,
			FoldedLine:     foldedIndex,
			SubIndex:       i,
		})
		originStart, line = originEnd, nextLine
	}
	return out
}

// shifted returns a copy of a reused visual line renumbered after an edit.
func (v VisualLine) shifted(index, folded, lines, bytes int) VisualLine {
	v.LineIndex += index
	v.FoldedLine += folded
	v.OriginLine += lines
	v.OriginInterval = v.OriginInterval.Shift(bytes)
	return v
}

// segmentAll builds the visual lines of every unit.
func segmentAll(folded []FoldedLine, src LineSource) []VisualLine {
	var out []VisualLine
	for i, fl := range folded {
		out = append(out, SegmentUnit(fl, i, len(out), src)...)
	}
	return out
}

// firstVisualOf returns the index of the first visual line of unit.
func firstVisualOf(visual []VisualLine, unit int) int {
	return sort.Search(len(visual), func(i int) bool { return visual[i].FoldedLine >= unit })
}
