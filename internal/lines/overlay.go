package lines

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dshills/doclines/internal/config"
	"github.com/dshills/doclines/internal/engine/buffer"
	"github.com/dshills/doclines/internal/lsp"
)

// StyleSpan colors the byte range [Start, End). Spans handed to the model
// use buffer offsets; spans attached to a FoldedLine use composed columns.
type StyleSpan struct {
	Start int
	End   int
	Style string
}

// HintSpan is an inlay hint anchored at a buffer offset.
type HintSpan struct {
	Offset int
	Hint   lsp.InlayHint
}

// DiagnosticSpan is a diagnostic covering a byte range of the buffer.
type DiagnosticSpan struct {
	Interval   Interval
	Diagnostic lsp.Diagnostic
}

// GhostText is completion text shown ahead of the cursor.
type GhostText struct {
	Text   string
	Offset int
}

// overlays holds every piece of synthetic input the composer draws from.
// Offsets are kept in the current buffer's coordinates and moved through
// each edit so that stale analysis stays anchored until it is replaced.
type overlays struct {
	hints       []HintSpan
	diagnostics []DiagnosticSpan
	lens        *GhostText
	inline      *GhostText
	preedit     *GhostText
	styles      []StyleSpan
	stylesRev   uint64
}

func (o *overlays) setHints(src LineSource, hints []lsp.InlayHint) {
	o.hints = o.hints[:0]
	for _, h := range hints {
		o.hints = append(o.hints, HintSpan{Offset: positionToOffset(src, h.Position), Hint: h})
	}
	sort.SliceStable(o.hints, func(i, j int) bool { return o.hints[i].Offset < o.hints[j].Offset })
}

func (o *overlays) setDiagnostics(src LineSource, diags []lsp.Diagnostic) {
	o.diagnostics = o.diagnostics[:0]
	for _, d := range diags {
		start := positionToOffset(src, d.Range.Start)
		end := max(start, positionToOffset(src, d.Range.End))
		o.diagnostics = append(o.diagnostics, DiagnosticSpan{Interval: Interval{Start: start, End: end}, Diagnostic: d})
	}
	sort.SliceStable(o.diagnostics, func(i, j int) bool {
		return o.diagnostics[i].Interval.Start < o.diagnostics[j].Interval.Start
	})
}

func (o *overlays) setStyles(spans []StyleSpan, rev uint64) {
	o.styles = append(o.styles[:0], spans...)
	sort.SliceStable(o.styles, func(i, j int) bool { return o.styles[i].Start < o.styles[j].Start })
	o.stylesRev = rev
}

// applyDelta moves every overlay through an edit.
func (o *overlays) applyDelta(d buffer.Delta) {
	hints := o.hints[:0]
	for _, h := range o.hints {
		if d.Start < h.Offset && h.Offset < d.OldEnd {
			continue
		}
		h.Offset = d.Transform(h.Offset, false)
		hints = append(hints, h)
	}
	o.hints = hints

	diags := o.diagnostics[:0]
	for _, s := range o.diagnostics {
		if !s.Interval.IsEmpty() && d.Start <= s.Interval.Start && s.Interval.End <= d.OldEnd && d.Start < d.OldEnd {
			continue
		}
		s.Interval = Interval{Start: d.Transform(s.Interval.Start, false), End: d.Transform(s.Interval.End, false)}
		diags = append(diags, s)
	}
	o.diagnostics = diags

	styles := o.styles[:0]
	for _, s := range o.styles {
		ns, ne := d.Transform(s.Start, false), d.Transform(s.End, false)
		if ns >= ne {
			continue
		}
		s.Start, s.End = ns, ne
		styles = append(styles, s)
	}
	o.styles = styles

	o.lens = shiftGhost(o.lens, d)
	o.inline = shiftGhost(o.inline, d)
	if o.preedit != nil {
		p := *o.preedit
		p.Offset = d.Transform(p.Offset, false)
		o.preedit = &p
	}
}

// shiftGhost moves completion text through an edit. Typing a prefix of the
// suggestion at its anchor consumes that prefix.
func shiftGhost(g *GhostText, d buffer.Delta) *GhostText {
	if g == nil {
		return nil
	}
	out := *g
	if d.IsSimpleInsert() && d.Start == g.Offset && strings.HasPrefix(g.Text, d.Inserted) {
		out.Text = g.Text[len(d.Inserted):]
		out.Offset = d.NewEnd()
		if out.Text == "" {
			return nil
		}
		return &out
	}
	out.Offset = d.Transform(g.Offset, false)
	return &out
}

// remap carries overlays across a change that keeps line and character
// positions but moves byte offsets, such as a line ending conversion.
func (o *overlays) remap(old, cur LineSource) {
	move := func(off int) int { return positionToOffset(cur, offsetToPosition(old, off)) }
	for i := range o.hints {
		o.hints[i].Offset = move(o.hints[i].Offset)
	}
	for i := range o.diagnostics {
		iv := &o.diagnostics[i].Interval
		iv.Start, iv.End = move(iv.Start), move(iv.End)
	}
	moveGhost := func(g *GhostText) *GhostText {
		if g == nil {
			return nil
		}
		out := *g
		out.Offset = move(g.Offset)
		return &out
	}
	o.lens = moveGhost(o.lens)
	o.inline = moveGhost(o.inline)
	o.preedit = moveGhost(o.preedit)
	o.styles = nil
}

// anchor is an overlay as seen by the unit it renders on: its kind, its
// offset from the unit's start, and what it draws.
type anchor struct {
	kind PhantomKind
	rel  int
	text string
}

// anchorsByUnit groups the hints, diagnostics and ghost texts by the
// rendered unit whose line they anchor on. Two units with equal anchors
// compose identically.
func (o *overlays) anchorsByUnit(src LineSource, units []FoldedLine) map[int][]anchor {
	out := make(map[int][]anchor)
	add := func(kind PhantomKind, offset int, text string) {
		if offset < 0 || offset > src.Len() || len(units) == 0 {
			return
		}
		u := unitOfLine(units, src.LineOfOffset(offset))
		out[u] = append(out[u], anchor{kind: kind, rel: offset - units[u].OriginInterval.Start, text: text})
	}

	for _, h := range o.hints {
		text := h.Hint.Text()
		if loc, ok := h.Hint.Target(); ok {
			text += fmt.Sprintf(" -> %v", loc)
		}
		add(PhantomInlayHint, h.Offset, text)
	}
	for _, d := range o.diagnostics {
		// The start decides suppression by folds, so it is part of the anchor.
		add(PhantomDiagnostic, d.Interval.End, fmt.Sprintf("%d %d %s", d.Interval.Len(), d.Diagnostic.Severity, d.Diagnostic.Message))
	}
	ghosts := []struct {
		kind PhantomKind
		g    *GhostText
	}{{PhantomCompletionLens, o.lens}, {PhantomInlineCompletion, o.inline}, {PhantomPreedit, o.preedit}}
	for _, gh := range ghosts {
		if gh.g != nil {
			add(gh.kind, gh.g.Offset, gh.g.Text)
		}
	}
	return out
}

// clear drops everything derived from the buffer's content.
func (o *overlays) clear() {
	*o = overlays{}
}

// clone returns a copy that shares no slices with o.
func (o *overlays) clone() *overlays {
	c := *o
	c.hints = append([]HintSpan(nil), o.hints...)
	c.diagnostics = append([]DiagnosticSpan(nil), o.diagnostics...)
	c.styles = append([]StyleSpan(nil), o.styles...)
	return &c
}

// overlayIndex buckets overlays by the origin line they render on.
type overlayIndex struct {
	hints       map[int][]HintSpan
	diagnostics map[int][]DiagnosticSpan
}

func (o *overlays) index(src LineSource) overlayIndex {
	idx := overlayIndex{
		hints:       make(map[int][]HintSpan),
		diagnostics: make(map[int][]DiagnosticSpan),
	}
	for _, h := range o.hints {
		if h.Offset < 0 || h.Offset > src.Len() {
			continue
		}
		line := src.LineOfOffset(h.Offset)
		idx.hints[line] = append(idx.hints[line], h)
	}
	for _, d := range o.diagnostics {
		if d.Interval.End < 0 || d.Interval.End > src.Len() {
			continue
		}
		line := src.LineOfOffset(d.Interval.End)
		idx.diagnostics[line] = append(idx.diagnostics[line], d)
	}
	return idx
}

// stylesFor returns the style spans overlapping [start, end). Spans come
// from a highlighter and do not overlap, so their ends are sorted too.
func (o *overlays) stylesFor(start, end int) []StyleSpan {
	i := sort.Search(len(o.styles), func(i int) bool { return o.styles[i].End > start })
	var out []StyleSpan
	for ; i < len(o.styles) && o.styles[i].Start < end; i++ {
		out = append(out, o.styles[i])
	}
	return out
}

// collector gathers the phantoms for one origin line in precedence order.
type collector struct {
	src   LineSource
	cfg   config.Editor
	folds *Folding
	ov    *overlays
	idx   overlayIndex
}

func (c *collector) hidden(offset int) bool {
	return c.folds.Contains(offsetToPosition(c.src, offset))
}

func (c *collector) phantoms(line int) []PhantomText {
	start := c.src.OffsetOfLine(line)
	content := c.src.LineContent(line)
	colOf := func(offset int) int { return max(0, min(offset-start, len(content))) }

	var out []PhantomText

	if c.cfg.EnableInlayHints {
		for _, h := range c.idx.hints[line] {
			if c.hidden(h.Offset) {
				continue
			}
			p := PhantomText{
				Kind:     PhantomInlayHint,
				Line:     line,
				Col:      colOf(h.Offset),
				Text:     padHint(h.Hint.Text()),
				Affinity: hintAffinity(c.src, h.Offset),
			}
			if loc, ok := h.Hint.Target(); ok {
				p.Location = &loc
			}
			out = append(out, p)
		}
	}

	if c.cfg.EnableErrorLens {
		threshold := c.cfg.ErrorLensThreshold()
		for _, d := range c.idx.diagnostics[line] {
			sev := d.Diagnostic.Severity
			if sev != 0 && sev >= threshold {
				continue
			}
			if c.hidden(d.Interval.Start) || c.hidden(d.Interval.End) {
				continue
			}
			out = append(out, PhantomText{
				Kind:     PhantomDiagnostic,
				Line:     line,
				Col:      len(content),
				Text:     "    " + joinLines(d.Diagnostic.Message),
				Affinity: Backward,
				Severity: sev,
			})
		}
	}

	ghost := func(enabled bool, g *GhostText, kind PhantomKind) {
		if !enabled || g == nil || g.Offset < 0 || g.Offset > c.src.Len() {
			return
		}
		if c.src.LineOfOffset(g.Offset) != line || c.hidden(g.Offset) {
			return
		}
		out = append(out, PhantomText{Kind: kind, Line: line, Col: colOf(g.Offset), Text: g.Text, Affinity: Backward})
	}
	ghost(c.cfg.EnableCompletionLens, c.ov.lens, PhantomCompletionLens)
	ghost(c.cfg.EnableInlineCompletion, c.ov.inline, PhantomInlineCompletion)
	ghost(true, c.ov.preedit, PhantomPreedit)

	return out
}

// padHint spaces a hint label away from the code around it.
func padHint(text string) string {
	switch {
	case strings.HasPrefix(text, ":"):
		return text + " "
	case strings.HasSuffix(text, ":"):
		return " " + text + " "
	default:
		return " " + text
	}
}

// hintAffinity keeps a hint attached to the word it annotates.
func hintAffinity(src LineSource, offset int) Affinity {
	prev, _ := utf8.DecodeLastRuneInString(src.Slice(max(0, offset-utf8.UTFMax), offset))
	next, _ := utf8.DecodeRuneInString(src.Slice(offset, offset+utf8.UTFMax))

	switch {
	case offset > 0 && isWordRune(prev):
		return Backward
	case offset > 0 && unicode.IsSpace(prev):
		return Forward
	case offset < src.Len() && isWordRune(next):
		return Forward
	case offset < src.Len() && unicode.IsSpace(next):
		return Backward
	}
	return Forward
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func joinLines(msg string) string {
	lines := strings.Split(strings.ReplaceAll(msg, "\r\n", "\n"), "\n")
	return strings.Join(lines, " ")
}
