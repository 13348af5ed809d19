package renderer

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/doclines/internal/lines"
)

// Fold icons drawn in the gutter.
const (
	IconFolded      = '▸'
	IconUnfoldStart = '▾'
	IconUnfoldEnd   = '╰'
)

// Options configures a view.
type Options struct {
	ShowLineNumbers bool
	ShowFoldIcons   bool

	// ScrollMargin is the number of rows kept between the cursor and the
	// top or bottom edge.
	ScrollMargin int
}

// DefaultOptions returns default view options.
func DefaultOptions() Options {
	return Options{
		ShowLineNumbers: true,
		ShowFoldIcons:   true,
		ScrollMargin:    2,
	}
}

// View draws a window of a document's visual lines and tracks a cursor.
type View struct {
	mu sync.Mutex

	doc   *lines.DocLines
	theme *Theme
	opts  Options

	x, y, width, height int

	// top is the first visual row shown.
	top int

	// cursor is a buffer offset; aff resolves it at wrap points and
	// synthetic text.
	cursor int
	aff    lines.Affinity
	// goal is the column kept while moving vertically, -1 when unset.
	goal int
}

// NewView creates a view of doc.
func NewView(doc *lines.DocLines, theme *Theme, opts Options) *View {
	if theme == nil {
		theme = DefaultTheme()
	}
	return &View{
		doc:   doc,
		theme: theme,
		opts:  opts,
		aff:   lines.Forward,
		goal:  -1,
	}
}

// SetBounds sets the screen area of the view.
func (v *View) SetBounds(x, y, width, height int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.x, v.y, v.width, v.height = x, y, max(0, width), max(0, height)
}

// Bounds returns the view's position and size.
func (v *View) Bounds() (x, y, width, height int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.x, v.y, v.width, v.height
}

// Top returns the first visual row shown.
func (v *View) Top() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.top
}

// Cursor returns the cursor's buffer offset.
func (v *View) Cursor() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cursor
}

// SetCursor moves the cursor to a buffer offset and scrolls it into view.
func (v *View) SetCursor(offset int, aff lines.Affinity) {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.doc.Snapshot()
	v.cursor = max(0, min(offset, s.Len))
	v.aff = aff
	v.goal = -1
	v.follow(s)
}

// ScrollTo shows visual row first at the top, clamped to the document.
func (v *View) ScrollTo(first int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scrollTo(v.doc.Snapshot(), first)
}

// ScrollBy scrolls n rows down, or up when n is negative.
func (v *View) ScrollBy(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scrollTo(v.doc.Snapshot(), v.top+n)
}

func (v *View) scrollTo(s *lines.Snapshot, first int) {
	v.top = max(0, min(first, len(s.Visual)-1))
}

// follow scrolls so the cursor row sits inside the scroll margins.
func (v *View) follow(s *lines.Snapshot) {
	vp, err := s.BufferOffsetToVisual(v.cursor, v.aff)
	if err != nil || v.height == 0 {
		return
	}
	row := vp.Line.LineIndex
	margin := min(v.opts.ScrollMargin, (v.height-1)/2)
	if row < v.top+margin {
		v.scrollTo(s, row-margin)
	} else if row >= v.top+v.height-margin {
		v.scrollTo(s, row-v.height+margin+1)
	}
}

// CursorUp moves the cursor one visual line up.
func (v *View) CursorUp() error {
	return v.moveCursor(func(s *lines.Snapshot, index, col int) (lines.Navigation, error) {
		return s.PreviousVisualLine(index, col)
	})
}

// CursorDown moves the cursor one visual line down.
func (v *View) CursorDown() error {
	return v.moveCursor(func(s *lines.Snapshot, index, col int) (lines.Navigation, error) {
		return s.NextVisualLine(index, col)
	})
}

func (v *View) moveCursor(step func(*lines.Snapshot, int, int) (lines.Navigation, error)) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := v.doc.Snapshot()
	vp, err := s.BufferOffsetToVisual(v.cursor, v.aff)
	if err != nil {
		return fmt.Errorf("locate cursor: %w", err)
	}
	if v.goal < 0 {
		v.goal = vp.Col
	}
	nav, err := step(s, vp.Line.LineIndex, v.goal)
	if err != nil {
		return fmt.Errorf("move cursor: %w", err)
	}
	v.cursor = nav.Offset
	v.aff = lines.Forward
	if nav.LastChar {
		v.aff = lines.Backward
	}
	v.follow(s)
	return nil
}

// gutterLayout returns the line number width and total gutter width.
func (v *View) gutterLayout(s *lines.Snapshot) (numWidth, total int) {
	if v.opts.ShowLineNumbers {
		numWidth = len(strconv.Itoa(len(s.Origin)))
		total = numWidth + 1
	}
	if v.opts.ShowFoldIcons {
		total += 2
	}
	return numWidth, total
}

// GutterWidth returns the width of the gutter in cells.
func (v *View) GutterWidth() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, w := v.gutterLayout(v.doc.Snapshot())
	return w
}

// Draw draws the view onto screen. The caller shows the screen.
func (v *View) Draw(screen tcell.Screen) {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := v.doc.Snapshot()
	numWidth, gutter := v.gutterLayout(s)

	for row := 0; row < v.height; row++ {
		for col := 0; col < v.width; col++ {
			screen.SetContent(v.x+col, v.y+row, ' ', nil, v.theme.Default)
		}
	}

	icons := make(map[int]lines.FoldingDisplayKind)
	for _, it := range s.FoldingDisplayItems(lines.Interval{Start: v.top, End: v.top + v.height}) {
		if _, ok := icons[it.VisualLine]; !ok {
			icons[it.VisualLine] = it.Kind
		}
	}

	for i, vl := range s.VisualLinesForRows(v.top, v.height) {
		y := v.y + i
		if v.opts.ShowLineNumbers && vl.SubIndex == 0 {
			v.drawString(screen, v.x, y, fmt.Sprintf("%*d", numWidth, vl.OriginLine+1), v.theme.Gutter)
		}
		if kind, ok := icons[vl.LineIndex]; ok && v.opts.ShowFoldIcons {
			v.put(screen, v.x+gutter-2, y, foldIcon(kind), nil, v.theme.FoldIcon)
		}
		v.drawLine(screen, s, vl, v.x+gutter, y)
	}

	v.drawCursor(screen, s, gutter)
}

func foldIcon(kind lines.FoldingDisplayKind) rune {
	switch kind {
	case lines.DisplayFolded:
		return IconFolded
	case lines.DisplayUnfoldEnd:
		return IconUnfoldEnd
	default:
		return IconUnfoldStart
	}
}

func (v *View) drawLine(screen tcell.Screen, s *lines.Snapshot, vl lines.VisualLine, x, y int) {
	fl := s.Folded[vl.FoldedLine]
	for _, c := range cellsOf(fl, vl) {
		style := v.styleAt(fl, c.col)
		main, comb := runesOf(c.text)
		v.put(screen, x+c.x, y, main, comb, style)
		if c.text == "\t" {
			for i := 1; i < c.width; i++ {
				v.put(screen, x+c.x+i, y, ' ', nil, style)
			}
		}
	}
}

// styleAt returns the style of composed column col of fl.
func (v *View) styleAt(fl lines.FoldedLine, col int) tcell.Style {
	if ph, ok := fl.Text.PhantomAt(col); ok {
		return v.theme.Phantom(ph)
	}
	for _, sp := range fl.Styles {
		if col >= sp.Start && col < sp.End {
			return v.theme.Token(sp.Style)
		}
	}
	return v.theme.Default
}

func (v *View) drawCursor(screen tcell.Screen, s *lines.Snapshot, gutter int) {
	vp, err := s.BufferOffsetToVisual(v.cursor, v.aff)
	row := vp.Line.LineIndex - v.top
	if err != nil || row < 0 || row >= v.height {
		screen.HideCursor()
		return
	}
	x := cellX(cellsOf(s.Folded[vp.Line.FoldedLine], vp.Line), vp.FoldedCol)
	screen.ShowCursor(v.x+gutter+x, v.y+row)
}

// cellX returns the cell offset of composed column col among a row's cells.
// Columns past the last cell sit just after it.
func cellX(cells []cell, col int) int {
	x := 0
	for _, c := range cells {
		if c.col >= col {
			return c.x
		}
		x = c.x + c.width
	}
	return x
}

// put sets one cell, clipped to the view.
func (v *View) put(screen tcell.Screen, x, y int, main rune, comb []rune, style tcell.Style) {
	if x < v.x || x >= v.x+v.width || y < v.y || y >= v.y+v.height {
		return
	}
	screen.SetContent(x, y, main, comb, style)
}

func (v *View) drawString(screen tcell.Screen, x, y int, text string, style tcell.Style) {
	for i, r := range []rune(text) {
		v.put(screen, x+i, y, r, nil, style)
	}
}

// Click handles a mouse click at screen cell (x, y). A click on a fold icon
// toggles its range; a click on text is resolved by the document and, when
// it hit buffer text, moves the cursor there.
func (v *View) Click(x, y int) (lines.ClickResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := v.doc.Snapshot()
	row := v.top + y - v.y
	if y < v.y || y >= v.y+v.height || row >= len(s.Visual) || x < v.x {
		return lines.ClickResult{Kind: lines.ClickNoOverlay}, nil
	}
	_, gutter := v.gutterLayout(s)

	if x < v.x+gutter {
		for _, it := range s.FoldingDisplayItems(lines.Interval{Start: row, End: row + 1}) {
			if v.doc.UpdateFolding(lines.FoldByItem{Item: it}) {
				v.follow(v.doc.Snapshot())
				return lines.ClickResult{Kind: lines.ClickFoldToggled}, nil
			}
		}
		return lines.ClickResult{Kind: lines.ClickNoOverlay}, nil
	}

	cx := float64(x - v.x - gutter)
	res, err := v.doc.ResolveClick(row, cx)
	if err != nil {
		return res, err
	}
	if res.Kind == lines.ClickNoOverlay {
		final, inside, err := s.HitTest(row, cx)
		if err != nil {
			return res, err
		}
		off, err := s.VisualToBufferOffset(row, final-s.Visual[row].VisualInterval.Start)
		if err != nil {
			return res, err
		}
		v.cursor, v.aff, v.goal = off, lines.Forward, -1
		if !inside {
			v.aff = lines.Backward
		}
	}
	return res, nil
}

// ToggleFoldAtCursor toggles the fold whose icon is on the cursor's row. It
// reports whether a fold changed.
func (v *View) ToggleFoldAtCursor() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := v.doc.Snapshot()
	vp, err := s.BufferOffsetToVisual(v.cursor, v.aff)
	if err != nil {
		return false
	}
	row := vp.Line.LineIndex
	for _, it := range s.FoldingDisplayItems(lines.Interval{Start: row, End: row + 1}) {
		if v.doc.UpdateFolding(lines.FoldByItem{Item: it}) {
			v.follow(v.doc.Snapshot())
			return true
		}
	}
	return false
}
