package lines

import (
	"fmt"
	"unicode/utf8"

	"github.com/dshills/doclines/internal/lsp"
)

// Snapshot is an immutable view of the line model at one buffer revision.
// It is safe to share between goroutines.
type Snapshot struct {
	Rev    uint64
	Len    int
	Origin []OriginLine
	Folded []FoldedLine
	Visual []VisualLine

	src   LineSource
	items []FoldingDisplayItem
}

// Source returns the buffer content the snapshot was built from.
func (s *Snapshot) Source() LineSource {
	return s.src
}

// VisualPosition locates a buffer offset on screen. Col is relative to the
// start of the visual line, FoldedCol to the start of its rendered unit.
type VisualPosition struct {
	Line      VisualLine
	Col       int
	FoldedCol int
	LastChar  bool
}

// Navigation is the result of moving the cursor one visual line.
type Navigation struct {
	Line     VisualLine
	Col      int
	LastChar bool
	Offset   int
}

// VisualLinesForRows returns up to count visual lines starting at row first.
func (s *Snapshot) VisualLinesForRows(first, count int) []VisualLine {
	first = max(0, first)
	if first >= len(s.Visual) || count <= 0 {
		return nil
	}
	return s.Visual[first:min(len(s.Visual), first+count)]
}

// FoldingDisplayItems returns the fold icons on visual rows [rows.Start,
// rows.End).
func (s *Snapshot) FoldingDisplayItems(rows Interval) []FoldingDisplayItem {
	var out []FoldingDisplayItem
	for _, it := range s.items {
		if rows.Contains(it.VisualLine) {
			out = append(out, it)
		}
	}
	return out
}

// placeItems assigns visual lines to fold icons. Icons whose position is no
// longer in the document are dropped.
func (s *Snapshot) placeItems(items []FoldingDisplayItem) {
	s.items = s.items[:0]
	for _, it := range items {
		if it.Position.Line >= s.src.NumLines() {
			continue
		}
		vp, err := s.BufferOffsetToVisual(s.PositionToOffset(it.Position), Backward)
		if err != nil {
			continue
		}
		it.VisualLine = vp.Line.LineIndex
		s.items = append(s.items, it)
	}
}

// OffsetToPosition converts a buffer offset to an LSP position.
func (s *Snapshot) OffsetToPosition(offset int) lsp.Position {
	return offsetToPosition(s.src, offset)
}

// PositionToOffset converts an LSP position to a buffer offset.
func (s *Snapshot) PositionToOffset(pos lsp.Position) int {
	return positionToOffset(s.src, pos)
}

// OriginLineOfOffset returns the origin line containing offset.
func (s *Snapshot) OriginLineOfOffset(offset int) (int, error) {
	if offset < 0 || offset > s.Len {
		return 0, fmt.Errorf("%w: %d not in [0,%d]", ErrOffsetOutOfRange, offset, s.Len)
	}
	return originLineOfOffset(s.Origin, offset)
}

// FoldedLineOfOffset returns the index of the rendered unit containing
// offset.
func (s *Snapshot) FoldedLineOfOffset(offset int) (int, error) {
	line, err := s.OriginLineOfOffset(offset)
	if err != nil {
		return 0, err
	}
	u := unitOfLine(s.Folded, line)
	if u < 0 || s.Folded[u].OriginLineStart > line || s.Folded[u].OriginLineEnd < line {
		return 0, invariantf("FoldedLineOfOffset", offset, "origin line %d in no rendered unit", line)
	}
	return u, nil
}

// VisualLineOfOffset returns the index of the visual line showing offset.
func (s *Snapshot) VisualLineOfOffset(offset int, aff Affinity) (int, error) {
	vp, err := s.BufferOffsetToVisual(offset, aff)
	if err != nil {
		return 0, err
	}
	return vp.Line.LineIndex, nil
}

// BufferOffsetToVisual locates offset on screen. Offsets in a line ending
// resolve to the end of the line's content, and offsets hidden by a fold to
// the fold's placeholder. At a wrap point Backward keeps the position at the
// end of the earlier visual line and Forward moves it to the start of the
// later one.
func (s *Snapshot) BufferOffsetToVisual(offset int, aff Affinity) (VisualPosition, error) {
	u, err := s.FoldedLineOfOffset(offset)
	if err != nil {
		return VisualPosition{}, err
	}
	fl := s.Folded[u]
	line := s.src.LineOfOffset(offset)
	final := fl.Text.FinalColOfCol(line, offset-s.src.OffsetOfLine(line), Forward)

	idx := -1
	for i := firstVisualOf(s.Visual, u); i < len(s.Visual) && s.Visual[i].FoldedLine == u; i++ {
		vi := s.Visual[i].VisualInterval
		more := i+1 < len(s.Visual) && s.Visual[i+1].FoldedLine == u
		if final < vi.End || (final == vi.End && (aff == Backward || !more)) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return VisualPosition{}, invariantf("BufferOffsetToVisual", offset, "composed column %d of unit %d in no visual line", final, u)
	}

	vl := s.Visual[idx]
	col := final - vl.VisualInterval.Start
	return VisualPosition{
		Line:      vl,
		Col:       col,
		FoldedCol: final,
		LastChar:  col >= lastCharIndex(fl.Text.Text, vl.VisualInterval),
	}, nil
}

// VisualToBufferOffset maps a column on a visual line back to a buffer
// offset. Columns past the line's end clamp to it; columns inside synthetic
// text resolve to the text's anchor.
func (s *Snapshot) VisualToBufferOffset(index, col int) (int, error) {
	if index < 0 || index >= len(s.Visual) {
		return 0, fmt.Errorf("%w: %d of %d", ErrLineOutOfRange, index, len(s.Visual))
	}
	vl := s.Visual[index]
	fl := s.Folded[vl.FoldedLine]
	final := vl.VisualInterval.Start + max(0, min(col, vl.VisualInterval.Len()))
	line, c := fl.Text.CursorPositionOfFinalCol(final)
	return s.src.OffsetOfLine(line) + c, nil
}

// PreviousVisualLine moves up one visual line keeping the column where
// possible. On the first line it stays put.
func (s *Snapshot) PreviousVisualLine(index, col int) (Navigation, error) {
	return s.moveVisual(index, index-1, col)
}

// NextVisualLine moves down one visual line keeping the column where
// possible. On the last line it stays put.
func (s *Snapshot) NextVisualLine(index, col int) (Navigation, error) {
	return s.moveVisual(index, index+1, col)
}

func (s *Snapshot) moveVisual(from, to, col int) (Navigation, error) {
	if from < 0 || from >= len(s.Visual) {
		return Navigation{}, fmt.Errorf("%w: %d of %d", ErrLineOutOfRange, from, len(s.Visual))
	}
	to = max(0, min(to, len(s.Visual)-1))
	vl := s.Visual[to]
	text := s.Folded[vl.FoldedLine].Text.Text
	seg := text[vl.VisualInterval.Start:vl.VisualInterval.End]

	col = max(0, min(col, len(seg)))
	for col > 0 && col < len(seg) && !utf8.RuneStart(seg[col]) {
		col--
	}
	off, err := s.VisualToBufferOffset(to, col)
	if err != nil {
		return Navigation{}, err
	}
	return Navigation{
		Line:     vl,
		Col:      col,
		LastChar: col >= lastCharIndex(text, vl.VisualInterval),
		Offset:   off,
	}, nil
}

// lastCharIndex returns the segment-relative column where the last
// character of a visual line starts. An empty line reports 0.
func lastCharIndex(text string, vi Interval) int {
	seg := text[vi.Start:vi.End]
	if seg == "" {
		return 0
	}
	_, size := utf8.DecodeLastRuneInString(seg)
	return len(seg) - size
}

// HitTest converts a cell position on a visual line to a composed column of
// its rendered unit.
func (s *Snapshot) HitTest(index int, x float64) (final int, inside bool, err error) {
	if index < 0 || index >= len(s.Visual) {
		return 0, false, fmt.Errorf("%w: %d of %d", ErrLineOutOfRange, index, len(s.Visual))
	}
	vl := s.Visual[index]
	col, inside := s.Folded[vl.FoldedLine].Shaped.HitTest(vl.SubIndex, x)
	return col, inside, nil
}
