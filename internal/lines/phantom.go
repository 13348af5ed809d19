package lines

import (
	"strings"

	"github.com/dshills/doclines/internal/lsp"
)

// PhantomKind identifies the source of synthetic text.
type PhantomKind int

const (
	// PhantomInlayHint is an inlay hint label inserted at its position.
	PhantomInlayHint PhantomKind = iota
	// PhantomDiagnostic is an error lens message appended after the line end.
	PhantomDiagnostic
	// PhantomCompletionLens is a completion preview shown at its anchor.
	PhantomCompletionLens
	// PhantomInlineCompletion is ghost text inserted at the cursor.
	PhantomInlineCompletion
	// PhantomPreedit is uncommitted input method text.
	PhantomPreedit
	// PhantomFoldPlaceholder stands in for the text of a collapsed range.
	PhantomFoldPlaceholder
)

// String returns the kind name.
func (k PhantomKind) String() string {
	switch k {
	case PhantomInlayHint:
		return "inlay-hint"
	case PhantomDiagnostic:
		return "diagnostic"
	case PhantomCompletionLens:
		return "completion-lens"
	case PhantomInlineCompletion:
		return "inline-completion"
	case PhantomPreedit:
		return "preedit"
	case PhantomFoldPlaceholder:
		return "fold-placeholder"
	default:
		return "unknown"
	}
}

// Affinity resolves a position sitting on a boundary. Backward sticks to
// what precedes the boundary, Forward to what follows it.
type Affinity int

const (
	Backward Affinity = iota
	Forward
)

// String returns the affinity name.
func (a Affinity) String() string {
	if a == Backward {
		return "backward"
	}
	return "forward"
}

// PhantomText is synthetic text spliced into a rendered line. Col is the
// byte column in origin line Line, MergeCol the column in the merged origin
// text of the rendered unit, and FinalCol its start in the composed text.
//
// A phantom's Affinity says which side the cursor keeps when it sits on the
// anchor: Backward leaves the cursor in front of the phantom, Forward puts
// it after.
type PhantomText struct {
	Kind     PhantomKind
	Line     int
	Col      int
	MergeCol int
	FinalCol int
	Text     string
	Affinity Affinity

	// Severity is set for diagnostics.
	Severity lsp.DiagnosticSeverity
	// Location is the navigation target of an inlay hint, if any.
	Location *lsp.Location
	// Fold is the collapsed range a placeholder stands for.
	Fold lsp.Range
}

// ChainLine is one origin line contributing text to a composed line.
type ChainLine struct {
	Line int
	// Visible is the byte range of the line's content that is shown.
	Visible Interval
	// Len is the byte length of the line's content.
	Len int
	// MergeBase is the merged origin column of the line's column 0.
	MergeBase int
	// FinalStart is the composed column where the visible range begins.
	FinalStart int
}

// Piece is a run of composed text. Origin pieces copy Final.Len() bytes of
// line Line starting at Col; phantom pieces hold Phantoms[Phantom].
type Piece struct {
	Final   Interval
	Line    int
	Col     int
	Phantom int
}

// IsPhantom reports whether the piece holds synthetic text.
func (p Piece) IsPhantom() bool {
	return p.Phantom >= 0
}

// ComposedLine is the text of one rendered unit with overlays spliced in and
// collapsed spans replaced by placeholders, plus the tables mapping between
// origin and composed columns.
type ComposedLine struct {
	Text     string
	Lines    []ChainLine
	Phantoms []PhantomText
	Pieces   []Piece
}

// chainInput describes one visible origin line before composition.
// phantoms must already be filtered to the visible range and ordered.
type chainInput struct {
	line     int
	content  string
	visible  Interval
	phantoms []PhantomText
}

// compose splices phantoms into the visible text of the chain lines.
func compose(chain []chainInput) *ComposedLine {
	c := &ComposedLine{Lines: make([]ChainLine, 0, len(chain))}
	var b strings.Builder
	mergeBase := 0

	emitOrigin := func(line, from, to int, content string) {
		if to <= from {
			return
		}
		start := b.Len()
		b.WriteString(content[from:to])
		c.Pieces = append(c.Pieces, Piece{
			Final:   Interval{Start: start, End: b.Len()},
			Line:    line,
			Col:     from,
			Phantom: -1,
		})
	}

	for _, in := range chain {
		c.Lines = append(c.Lines, ChainLine{
			Line:       in.line,
			Visible:    in.visible,
			Len:        len(in.content),
			MergeBase:  mergeBase,
			FinalStart: b.Len(),
		})

		pos := in.visible.Start
		for _, p := range in.phantoms {
			emitOrigin(in.line, pos, p.Col, in.content)
			pos = max(pos, p.Col)

			p.MergeCol = mergeBase + p.Col
			p.FinalCol = b.Len()
			b.WriteString(p.Text)
			c.Pieces = append(c.Pieces, Piece{
				Final:   Interval{Start: p.FinalCol, End: b.Len()},
				Line:    in.line,
				Col:     p.Col,
				Phantom: len(c.Phantoms),
			})
			c.Phantoms = append(c.Phantoms, p)
		}
		emitOrigin(in.line, pos, in.visible.End, in.content)
		mergeBase += len(in.content)
	}

	c.Text = b.String()
	return c
}

// Len returns the byte length of the composed text.
func (c *ComposedLine) Len() int {
	return len(c.Text)
}

// chainIndex returns the position of line in the chain, or -1.
func (c *ComposedLine) chainIndex(line int) int {
	for i, cl := range c.Lines {
		if cl.Line == line {
			return i
		}
	}
	return -1
}

// placeholderStart returns the composed column of the placeholder that
// follows chain line i.
func (c *ComposedLine) placeholderStart(i int) int {
	line := c.Lines[i].Line
	for j := len(c.Pieces) - 1; j >= 0; j-- {
		p := c.Pieces[j]
		if p.Line == line && p.IsPhantom() && c.Phantoms[p.Phantom].Kind == PhantomFoldPlaceholder {
			return p.Final.Start
		}
	}
	if i+1 < len(c.Lines) {
		return c.Lines[i+1].FinalStart
	}
	return len(c.Text)
}

// FinalColOfCol maps an origin column to a composed column. It always
// returns a position: columns hidden by a fold map to the start of the
// placeholder standing in for them, and lines outside the unit clamp to its
// ends.
//
// With Forward affinity the cursor follows each phantom anchored at col
// according to the phantom's own affinity. With Backward it stays in front
// of every phantom anchored there.
func (c *ComposedLine) FinalColOfCol(line, col int, aff Affinity) int {
	if len(c.Lines) == 0 {
		return 0
	}
	i := c.chainIndex(line)
	if i < 0 {
		switch {
		case line < c.Lines[0].Line:
			return 0
		case line > c.Lines[len(c.Lines)-1].Line:
			return len(c.Text)
		}
		for i = 0; i+1 < len(c.Lines) && c.Lines[i+1].Line < line; i++ {
		}
		return c.placeholderStart(i)
	}

	cl := c.Lines[i]
	col = max(0, min(col, cl.Len))
	if col < cl.Visible.Start && i > 0 {
		return c.placeholderStart(i - 1)
	}
	if col > cl.Visible.End {
		return c.placeholderStart(i)
	}

	candidate := cl.FinalStart
	for _, p := range c.Pieces {
		if p.Line != line {
			continue
		}
		if !p.IsPhantom() {
			end := p.Col + p.Final.Len()
			switch {
			case col < p.Col:
				return candidate
			case col < end:
				return p.Final.Start + col - p.Col
			case col == end:
				candidate = p.Final.End
			}
			continue
		}
		if p.Col < col {
			continue
		}
		if p.Col > col {
			break
		}
		ph := c.Phantoms[p.Phantom]
		if aff == Backward || ph.Kind == PhantomFoldPlaceholder || ph.Affinity == Backward {
			return p.Final.Start
		}
		candidate = p.Final.End
	}
	return candidate
}

// ColAt maps a visible origin column to its composed column. It reports
// false when the column is hidden inside a collapsed fold.
func (c *ComposedLine) ColAt(line, col int) (int, bool) {
	i := c.chainIndex(line)
	if i < 0 {
		return 0, false
	}
	cl := c.Lines[i]
	if col < cl.Visible.Start || col > cl.Visible.End || col > cl.Len {
		return 0, false
	}
	return c.FinalColOfCol(line, col, Forward), true
}

// CursorPositionOfFinalCol maps a composed column back to an origin line and
// byte column. Columns inside a phantom map to its anchor; columns past the
// end map to the end of the last visible line.
func (c *ComposedLine) CursorPositionOfFinalCol(final int) (line, col int) {
	if len(c.Lines) == 0 {
		return 0, 0
	}
	final = max(final, 0)
	for _, p := range c.Pieces {
		if final < p.Final.Start || final >= p.Final.End {
			continue
		}
		if p.IsPhantom() {
			return p.Line, p.Col
		}
		return p.Line, p.Col + final - p.Final.Start
	}
	last := c.Lines[len(c.Lines)-1]
	return last.Line, last.Visible.End
}

// PhantomAt returns the phantom covering a composed column.
func (c *ComposedLine) PhantomAt(final int) (PhantomText, bool) {
	for _, p := range c.Pieces {
		if p.IsPhantom() && final >= p.Final.Start && final < p.Final.End {
			return c.Phantoms[p.Phantom], true
		}
	}
	return PhantomText{}, false
}

// shifted returns a copy with every origin line number moved by delta.
func (c *ComposedLine) shifted(delta int) *ComposedLine {
	if delta == 0 {
		return c
	}
	out := &ComposedLine{
		Text:     c.Text,
		Lines:    append([]ChainLine(nil), c.Lines...),
		Phantoms: append([]PhantomText(nil), c.Phantoms...),
		Pieces:   append([]Piece(nil), c.Pieces...),
	}
	for i := range out.Lines {
		out.Lines[i].Line += delta
	}
	for i := range out.Phantoms {
		p := &out.Phantoms[i]
		p.Line += delta
		if p.Kind == PhantomFoldPlaceholder {
			p.Fold.Start.Line += delta
			p.Fold.End.Line += delta
		}
	}
	for i := range out.Pieces {
		out.Pieces[i].Line += delta
	}
	return out
}
