package lines

import (
	"sort"

	"github.com/dshills/doclines/internal/engine/buffer"
	"github.com/dshills/doclines/internal/lsp"
)

// FoldStatus is the open/closed state of a folding range.
type FoldStatus int

const (
	// FoldExpanded shows the range's full text.
	FoldExpanded FoldStatus = iota
	// FoldCollapsed replaces the range's text with a placeholder.
	FoldCollapsed
	// FoldPendingToggle marks a collapsed range an edit ran through. It renders
	// expanded until the next range set confirms it, which collapses it again.
	FoldPendingToggle
)

// String returns the status name.
func (s FoldStatus) String() string {
	switch s {
	case FoldExpanded:
		return "expanded"
	case FoldCollapsed:
		return "collapsed"
	case FoldPendingToggle:
		return "pending"
	default:
		return "unknown"
	}
}

// FoldingRange is a foldable span. Start and End use LSP positions;
// identity is the (Start, End) pair.
type FoldingRange struct {
	Start  lsp.Position
	End    lsp.Position
	Status FoldStatus
}

// Range returns the span as an lsp.Range.
func (r FoldingRange) Range() lsp.Range {
	return lsp.Range{Start: r.Start, End: r.End}
}

// FoldingDisplayKind identifies a gutter icon.
type FoldingDisplayKind int

const (
	// DisplayFolded marks the start of a collapsed range.
	DisplayFolded FoldingDisplayKind = iota
	// DisplayUnfoldStart marks the start of an expanded range.
	DisplayUnfoldStart
	// DisplayUnfoldEnd marks the end of an expanded range.
	DisplayUnfoldEnd
)

// FoldingDisplayItem is a clickable fold icon.
type FoldingDisplayItem struct {
	Position   lsp.Position
	Kind       FoldingDisplayKind
	VisualLine int
}

// Folding tracks folding ranges and their status. It is owned by DocLines
// and is not safe for concurrent use.
type Folding struct {
	ranges []FoldingRange
}

// Ranges returns a copy of the ranges in start order.
func (f *Folding) Ranges() []FoldingRange {
	return append([]FoldingRange(nil), f.ranges...)
}

func sortRanges(rs []FoldingRange) {
	sort.SliceStable(rs, func(i, j int) bool {
		if c := lsp.ComparePositions(rs[i].Start, rs[j].Start); c != 0 {
			return c < 0
		}
		return lsp.ComparePositions(rs[i].End, rs[j].End) > 0
	})
}

// ReplaceAll installs a fresh range set. Ranges that do not span at least
// two lines are ignored. Ranges matching an existing one by
// (Start, End) keep its status; a pending range that is matched collapses
// again. Everything else starts expanded. It reports whether the visible
// fold state changed.
func (f *Folding) ReplaceAll(ranges []lsp.FoldingRange) bool {
	prev := make(map[lsp.Range]FoldStatus, len(f.ranges))
	for _, r := range f.ranges {
		prev[r.Range()] = r.Status
	}

	seen := make(map[lsp.Range]bool, len(ranges))
	next := make([]FoldingRange, 0, len(ranges))
	for _, fr := range ranges {
		rng := fr.Range()
		if seen[rng] || rng.Start.Line >= rng.End.Line {
			continue
		}
		seen[rng] = true

		status := prev[rng]
		if status == FoldPendingToggle {
			status = FoldCollapsed
		}
		next = append(next, FoldingRange{Start: rng.Start, End: rng.End, Status: status})
	}
	sortRanges(next)

	changed := collapsedKey(f.ranges) != collapsedKey(next)
	f.ranges = next
	return changed
}

// collapsedKey summarizes which ranges are collapsed.
func collapsedKey(rs []FoldingRange) string {
	var b []byte
	for _, r := range rs {
		if r.Status == FoldCollapsed {
			b = append(b, r.Start.String()...)
			b = append(b, '-')
			b = append(b, r.End.String()...)
			b = append(b, ';')
		}
	}
	return string(b)
}

// ToggleByDisplayItem flips the range whose start (or end, for an
// unfold-end icon) matches the item. Pending ranges render expanded, so
// toggling one collapses it.
func (f *Folding) ToggleByDisplayItem(item FoldingDisplayItem) bool {
	for i := range f.ranges {
		r := &f.ranges[i]
		match := r.Start == item.Position
		if item.Kind == DisplayUnfoldEnd {
			match = r.End == item.Position
		}
		if !match {
			continue
		}
		if r.Status == FoldCollapsed {
			r.Status = FoldExpanded
		} else {
			r.Status = FoldCollapsed
		}
		return true
	}
	return false
}

// ToggleByPhantomClick expands the outermost collapsed range containing pos,
// which is the one whose placeholder is on screen.
func (f *Folding) ToggleByPhantomClick(pos lsp.Position) bool {
	for i := range f.ranges {
		r := &f.ranges[i]
		if r.Status != FoldCollapsed {
			continue
		}
		if lsp.ComparePositions(r.Start, pos) <= 0 && lsp.ComparePositions(pos, r.End) < 0 {
			r.Status = FoldExpanded
			return true
		}
	}
	return false
}

// Contains reports whether pos lies strictly inside a collapsed range.
func (f *Folding) Contains(pos lsp.Position) bool {
	for _, r := range f.ranges {
		if r.Status == FoldCollapsed && lsp.IsPositionStrictlyInRange(pos, r.Range()) {
			return true
		}
	}
	return false
}

// FoldedSpan returns the origin lines merged into the rendered unit that
// begins at line. ok is false when no collapsed range starts on line.
func (f *Folding) FoldedSpan(src LineSource, line int) (Interval, bool) {
	spans := f.layout(src).chain(line)
	if len(spans) == 0 {
		return Interval{}, false
	}
	return Interval{Start: line, End: spans[len(spans)-1].endLine + 1}, true
}

// ApplyEdit moves the ranges through an edit. old and cur are the buffer
// before and after it. Collapsed ranges the edit runs through become
// pending, and ranges that shrink below two lines are dropped. It reports
// whether a collapsed range was affected, in which case merged lines can no
// longer be reused.
func (f *Folding) ApplyEdit(d buffer.Delta, old, cur LineSource) bool {
	changed := false
	next := f.ranges[:0]
	for _, r := range f.ranges {
		s := positionToOffset(old, r.Start)
		e := positionToOffset(old, r.End)

		touched := max(d.Start, s) < min(d.OldEnd, e) ||
			(d.Start == d.OldEnd && s < d.Start && d.Start < e)

		ns := d.Transform(s, true)
		ne := d.Transform(e, false)
		if ns < ne {
			r.Start = offsetToPosition(cur, ns)
			r.End = offsetToPosition(cur, ne)
		}
		if ns >= ne || r.Start.Line >= r.End.Line {
			changed = changed || r.Status == FoldCollapsed
			continue
		}
		if touched && r.Status == FoldCollapsed {
			r.Status = FoldPendingToggle
			changed = true
		}
		next = append(next, r)
	}
	f.ranges = next
	sortRanges(f.ranges)
	return changed
}

// DisplayItems returns the gutter icons for every range whose start is not
// hidden by another collapsed range. VisualLine is left zero.
func (f *Folding) DisplayItems() []FoldingDisplayItem {
	var items []FoldingDisplayItem
	for _, r := range f.ranges {
		if f.Contains(r.Start) {
			continue
		}
		if r.Status == FoldCollapsed {
			items = append(items, FoldingDisplayItem{Position: r.Start, Kind: DisplayFolded})
			continue
		}
		items = append(items, FoldingDisplayItem{Position: r.Start, Kind: DisplayUnfoldStart})
		if !f.Contains(r.End) {
			items = append(items, FoldingDisplayItem{Position: r.End, Kind: DisplayUnfoldEnd})
		}
	}
	return items
}

// FoldingAction is a change to the folding state.
type FoldingAction interface {
	apply(f *Folding, src LineSource) bool
}

// FoldByItem toggles the range behind a gutter icon.
type FoldByItem struct {
	Item FoldingDisplayItem
}

func (a FoldByItem) apply(f *Folding, _ LineSource) bool { return f.ToggleByDisplayItem(a.Item) }

// FoldByPhantom expands the collapsed range whose placeholder was clicked.
type FoldByPhantom struct {
	Position lsp.Position
}

func (a FoldByPhantom) apply(f *Folding, _ LineSource) bool { return f.ToggleByPhantomClick(a.Position) }

// FoldNew installs a fresh range set from analysis. Positions are clamped
// to the document first.
type FoldNew struct {
	Ranges []lsp.FoldingRange
}

func (a FoldNew) apply(f *Folding, src LineSource) bool {
	ranges := make([]lsp.FoldingRange, len(a.Ranges))
	for i, r := range a.Ranges {
		r.Start = offsetToPosition(src, positionToOffset(src, r.Start))
		r.End = offsetToPosition(src, positionToOffset(src, r.End))
		ranges[i] = r
	}
	f.ReplaceAll(ranges)
	return true
}

// foldSpan is a collapsed range resolved to byte columns.
type foldSpan struct {
	startLine, startCol int
	endLine, endCol     int
	rng                 lsp.Range
}

// foldLayout indexes the collapsed ranges that can merge lines.
type foldLayout struct {
	byStart map[int][]foldSpan
}

// layout resolves collapsed ranges against src. Ranges that stay on one
// line or end past the last line cannot merge anything and are skipped.
func (f *Folding) layout(src LineSource) *foldLayout {
	l := &foldLayout{byStart: make(map[int][]foldSpan)}
	n := src.NumLines()
	for _, r := range f.ranges {
		if r.Status != FoldCollapsed || r.Start.Line >= r.End.Line || r.Start.Line < 0 || r.End.Line >= n {
			continue
		}
		sp := foldSpan{
			startLine: r.Start.Line,
			startCol:  lsp.UTF16ToByte(src.LineContent(r.Start.Line), r.Start.Character),
			endLine:   r.End.Line,
			endCol:    lsp.UTF16ToByte(src.LineContent(r.End.Line), r.End.Character),
			rng:       r.Range(),
		}
		l.byStart[sp.startLine] = append(l.byStart[sp.startLine], sp)
	}
	for _, spans := range l.byStart {
		sort.SliceStable(spans, func(i, j int) bool {
			if spans[i].startCol != spans[j].startCol {
				return spans[i].startCol < spans[j].startCol
			}
			if spans[i].endLine != spans[j].endLine {
				return spans[i].endLine > spans[j].endLine
			}
			return spans[i].endCol > spans[j].endCol
		})
	}
	return l
}

// first returns the earliest collapsed span starting on line at or after
// minCol, preferring the widest on ties.
func (l *foldLayout) first(line, minCol int) (foldSpan, bool) {
	for _, sp := range l.byStart[line] {
		if sp.startCol >= minCol {
			return sp, true
		}
	}
	return foldSpan{}, false
}

// chain returns the collapsed spans that merge lines into the unit starting
// at line: the first span on line, then each span starting on the previous
// span's end line after its end column.
func (l *foldLayout) chain(line int) []foldSpan {
	var spans []foldSpan
	sp, ok := l.first(line, 0)
	for ok {
		spans = append(spans, sp)
		sp, ok = l.first(sp.endLine, sp.endCol)
	}
	return spans
}

// positionToOffset converts an LSP position to a byte offset, clamping the
// line and character to the document.
func positionToOffset(src LineSource, pos lsp.Position) int {
	if pos.Line < 0 {
		return 0
	}
	if pos.Line >= src.NumLines() {
		return src.Len()
	}
	return src.OffsetOfLine(pos.Line) + lsp.UTF16ToByte(src.LineContent(pos.Line), pos.Character)
}

// offsetToPosition converts a byte offset to an LSP position. Offsets in a
// line ending map to the end of that line's content.
func offsetToPosition(src LineSource, offset int) lsp.Position {
	offset = max(0, min(offset, src.Len()))
	line := src.LineOfOffset(offset)
	content := src.LineContent(line)
	col := min(offset-src.OffsetOfLine(line), len(content))
	return lsp.Position{Line: line, Character: lsp.ByteToUTF16(content, col)}
}

func (f *Folding) clone() *Folding {
	return &Folding{ranges: append([]FoldingRange(nil), f.ranges...)}
}
