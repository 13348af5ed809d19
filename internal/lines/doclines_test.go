package lines

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/dshills/doclines/internal/config"
	"github.com/dshills/doclines/internal/engine/buffer"
	"github.com/dshills/doclines/internal/lsp"
)

const fnText = "fn a(){\n  1\n}\n"

// program has a function body on lines 0-5 and an if block on lines 2-4.
const program = "func main() {\n\tx := 1\n\tif x > 0 {\n\t\tprintln(x)\n\t}\n}\n"

var (
	mainBody = lsp.FoldingRange{Start: pos(0, 13), End: pos(5, 0)}
	ifBody   = lsp.FoldingRange{Start: pos(2, 11), End: pos(4, 1)}
)

func foldedTexts(s *Snapshot) []string {
	var out []string
	for _, fl := range s.Folded {
		out = append(out, fl.Text.Text)
	}
	return out
}

func visualIntervals(s *Snapshot) []Interval {
	var out []Interval
	for _, vl := range s.Visual {
		out = append(out, vl.OriginInterval)
	}
	return out
}

func wrapConfig(width int) config.Editor {
	cfg := config.DefaultEditor()
	cfg.WrapMode = config.WrapColumn
	cfg.WrapWidth = width
	return cfg
}

func collapse(t *testing.T, d *DocLines, p lsp.Position) {
	t.Helper()
	if !d.UpdateFolding(FoldByItem{Item: FoldingDisplayItem{Position: p, Kind: DisplayUnfoldStart}}) {
		t.Fatalf("UpdateFolding() collapsing %s = false, want true", p)
	}
}

func TestNewPlainDocument(t *testing.T) {
	d := New(buffer.NewFromString(fnText))
	s := d.Snapshot()

	if len(s.Origin) != 3 {
		t.Errorf("len(Origin) = %d, want 3", len(s.Origin))
	}
	if want := []string{"fn a(){", "  1", "}"}; !reflect.DeepEqual(foldedTexts(s), want) {
		t.Errorf("folded texts = %q, want %q", foldedTexts(s), want)
	}
	want := []Interval{{0, 8}, {8, 12}, {12, 14}}
	if got := visualIntervals(s); !reflect.DeepEqual(got, want) {
		t.Errorf("visual origin intervals = %v, want %v", got, want)
	}
	if s.Rev != d.Buffer().Rev() || s.Len != 14 {
		t.Errorf("Snapshot Rev, Len = %d, %d, want %d, 14", s.Rev, s.Len, d.Buffer().Rev())
	}
	if d.ID() == uuid.Nil {
		t.Errorf("ID() = nil UUID")
	}
}

func TestNewEmptyDocument(t *testing.T) {
	s := New(buffer.New()).Snapshot()

	if len(s.Origin) != 1 || len(s.Folded) != 1 || len(s.Visual) != 1 {
		t.Fatalf("line counts = %d, %d, %d, want 1, 1, 1", len(s.Origin), len(s.Folded), len(s.Visual))
	}
	vp, err := s.BufferOffsetToVisual(0, Forward)
	if err != nil {
		t.Fatalf("BufferOffsetToVisual(0) error = %v", err)
	}
	if vp.Line.LineIndex != 0 || vp.Col != 0 || !vp.LastChar {
		t.Errorf("BufferOffsetToVisual(0) = line %d col %d last %v, want 0, 0, true", vp.Line.LineIndex, vp.Col, vp.LastChar)
	}
}

func TestCollapsedBodyMergesLines(t *testing.T) {
	d := New(buffer.NewFromString(fnText))
	d.SetFoldingRanges([]lsp.FoldingRange{{Start: pos(1, 0), End: pos(2, 1)}})
	collapse(t, d, pos(1, 0))
	s := d.Snapshot()

	if want := []string{"fn a(){", "..."}; !reflect.DeepEqual(foldedTexts(s), want) {
		t.Fatalf("folded texts = %q, want %q", foldedTexts(s), want)
	}
	unit := s.Folded[1]
	if unit.OriginLineStart != 1 || unit.OriginLineEnd != 2 || unit.OriginInterval != (Interval{8, 14}) {
		t.Errorf("unit = lines %d-%d %s, want lines 1-2 [8,14)", unit.OriginLineStart, unit.OriginLineEnd, unit.OriginInterval)
	}

	vp, err := s.BufferOffsetToVisual(10, Forward)
	if err != nil {
		t.Fatalf("BufferOffsetToVisual(10) error = %v", err)
	}
	if vp.Line.LineIndex != 1 || vp.Col != 0 {
		t.Errorf("BufferOffsetToVisual(10) = line %d col %d, want 1, 0", vp.Line.LineIndex, vp.Col)
	}

	items := s.FoldingDisplayItems(Interval{0, 2})
	want := []FoldingDisplayItem{{Position: pos(1, 0), Kind: DisplayFolded, VisualLine: 1}}
	if !reflect.DeepEqual(items, want) {
		t.Errorf("FoldingDisplayItems() = %v, want %v", items, want)
	}
	if got := s.FoldingDisplayItems(Interval{0, 1}); len(got) != 0 {
		t.Errorf("FoldingDisplayItems([0,1)) = %v, want none", got)
	}
}

func TestCollapsedBlockKeepsBraces(t *testing.T) {
	d := New(buffer.NewFromString(fnText))
	d.SetFoldingRanges([]lsp.FoldingRange{{Start: pos(0, 7), End: pos(2, 0)}})
	collapse(t, d, pos(0, 7))
	s := d.Snapshot()

	if want := []string{"fn a(){...}"}; !reflect.DeepEqual(foldedTexts(s), want) {
		t.Fatalf("folded texts = %q, want %q", foldedTexts(s), want)
	}
	if got := visualIntervals(s); !reflect.DeepEqual(got, []Interval{{0, 14}}) {
		t.Errorf("visual origin intervals = %v, want [[0,14)]", got)
	}

	tests := []struct {
		offset int
		col    int
	}{
		{0, 0},
		{7, 7},
		{10, 7},
		{12, 10},
		{13, 11},
	}
	for _, tt := range tests {
		vp, err := s.BufferOffsetToVisual(tt.offset, Forward)
		if err != nil {
			t.Fatalf("BufferOffsetToVisual(%d) error = %v", tt.offset, err)
		}
		if vp.Col != tt.col {
			t.Errorf("BufferOffsetToVisual(%d) col = %d, want %d", tt.offset, vp.Col, tt.col)
		}
	}

	off, err := s.VisualToBufferOffset(0, 8)
	if err != nil {
		t.Fatalf("VisualToBufferOffset() error = %v", err)
	}
	if off != 7 {
		t.Errorf("VisualToBufferOffset(0, 8) = %d, want 7", off)
	}
}

func TestWrappedLine(t *testing.T) {
	d := New(buffer.NewFromString("abcdefghij\n"), WithConfig(wrapConfig(4)))
	s := d.Snapshot()

	if got, want := visualIntervals(s), []Interval{{0, 4}, {4, 8}, {8, 11}}; !reflect.DeepEqual(got, want) {
		t.Fatalf("visual origin intervals = %v, want %v", got, want)
	}
	for i, want := range []Interval{{0, 4}, {4, 8}, {8, 10}} {
		if got := s.Visual[i].VisualInterval; got != want {
			t.Errorf("Visual[%d].VisualInterval = %s, want %s", i, got, want)
		}
	}

	tests := []struct {
		offset int
		aff    Affinity
		line   int
		col    int
		last   bool
	}{
		{0, Forward, 0, 0, false},
		{4, Backward, 0, 4, true},
		{4, Forward, 1, 0, false},
		{7, Forward, 1, 3, true},
		{10, Forward, 2, 2, true},
		{11, Forward, 2, 2, true},
	}
	for _, tt := range tests {
		vp, err := s.BufferOffsetToVisual(tt.offset, tt.aff)
		if err != nil {
			t.Fatalf("BufferOffsetToVisual(%d, %s) error = %v", tt.offset, tt.aff, err)
		}
		if vp.Line.LineIndex != tt.line || vp.Col != tt.col || vp.LastChar != tt.last {
			t.Errorf("BufferOffsetToVisual(%d, %s) = line %d col %d last %v, want %d, %d, %v",
				tt.offset, tt.aff, vp.Line.LineIndex, vp.Col, vp.LastChar, tt.line, tt.col, tt.last)
		}
	}

	if _, err := s.OriginLineOfOffset(12); !errors.Is(err, ErrOffsetOutOfRange) {
		t.Errorf("OriginLineOfOffset(12) error = %v, want %v", err, ErrOffsetOutOfRange)
	}
	if got, err := s.VisualLineOfOffset(5, Forward); err != nil || got != 1 {
		t.Errorf("VisualLineOfOffset(5) = %d, %v, want 1, nil", got, err)
	}
}

func TestVisualNavigation(t *testing.T) {
	s := New(buffer.NewFromString("abcdefghij\n"), WithConfig(wrapConfig(4))).Snapshot()

	tests := []struct {
		name   string
		move   func(int, int) (Navigation, error)
		index  int
		col    int
		line   int
		want   int
		offset int
		last   bool
	}{
		{"down", s.NextVisualLine, 0, 2, 1, 2, 6, false},
		{"down clamps column", s.NextVisualLine, 1, 3, 2, 2, 10, true},
		{"down at bottom", s.NextVisualLine, 2, 0, 2, 0, 8, false},
		{"up", s.PreviousVisualLine, 2, 1, 1, 1, 5, false},
		{"up at top", s.PreviousVisualLine, 0, 1, 0, 1, 1, false},
	}
	for _, tt := range tests {
		nav, err := tt.move(tt.index, tt.col)
		if err != nil {
			t.Fatalf("%s: error = %v", tt.name, err)
		}
		if nav.Line.LineIndex != tt.line || nav.Col != tt.want || nav.Offset != tt.offset || nav.LastChar != tt.last {
			t.Errorf("%s: got line %d col %d offset %d last %v, want %d, %d, %d, %v",
				tt.name, nav.Line.LineIndex, nav.Col, nav.Offset, nav.LastChar, tt.line, tt.want, tt.offset, tt.last)
		}
	}

	if _, err := s.NextVisualLine(3, 0); !errors.Is(err, ErrLineOutOfRange) {
		t.Errorf("NextVisualLine(3) error = %v, want %v", err, ErrLineOutOfRange)
	}
	if _, err := s.VisualToBufferOffset(-1, 0); !errors.Is(err, ErrLineOutOfRange) {
		t.Errorf("VisualToBufferOffset(-1) error = %v, want %v", err, ErrLineOutOfRange)
	}
}

func TestComposedOverlays(t *testing.T) {
	hints := []lsp.InlayHint{{Position: pos(0, 5), Label: ": i32"}}
	diags := []lsp.Diagnostic{
		{Range: lsp.Range{Start: pos(0, 4), End: pos(0, 5)}, Severity: lsp.DiagnosticSeverityError, Message: "unused\nvariable"},
		{Range: lsp.Range{Start: pos(0, 0), End: pos(0, 1)}, Severity: lsp.DiagnosticSeverityHint, Message: "style"},
	}

	tests := []struct {
		name string
		cfg  func(*config.Editor)
		want string
	}{
		{"all enabled", func(*config.Editor) {}, "let x: i32  = 1    unused variable// ok"},
		{"warnings only", func(c *config.Editor) { c.ErrorLensSeverity = "error" }, "let x: i32  = 1// ok"},
		{"all disabled", func(c *config.Editor) {
			c.EnableInlayHints = false
			c.EnableErrorLens = false
			c.EnableInlineCompletion = false
		}, "let x = 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultEditor()
			tt.cfg(&cfg)
			d := New(buffer.NewFromString("let x = 1\n"), WithConfig(cfg))
			d.SetInlayHints(hints)
			d.SetDiagnostics(diags)
			d.SetInlineCompletion("// ok", 0, 9)

			if got := d.Snapshot().Folded[0].Text.Text; got != tt.want {
				t.Errorf("composed text = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDiagnosticHiddenByFold(t *testing.T) {
	d := New(buffer.NewFromString(program))
	d.SetFoldingRanges([]lsp.FoldingRange{mainBody, ifBody})
	d.SetDiagnostics([]lsp.Diagnostic{
		{Range: lsp.Range{Start: pos(3, 2), End: pos(3, 9)}, Severity: lsp.DiagnosticSeverityError, Message: "undefined"},
	})

	s := d.Snapshot()
	if got := s.Folded[3].Text.Text; got != "\t\tprintln(x)    undefined" {
		t.Errorf("expanded line 3 = %q, want diagnostic shown", got)
	}

	collapse(t, d, ifBody.Start)
	s = d.Snapshot()
	if want := []string{"func main() {", "\tx := 1", "\tif x > 0 {...}", "}"}; !reflect.DeepEqual(foldedTexts(s), want) {
		t.Errorf("folded texts = %q, want %q", foldedTexts(s), want)
	}
}

func TestOverlaySuppressedInsideFold(t *testing.T) {
	d := New(buffer.NewFromString(program))
	d.SetFoldingRanges([]lsp.FoldingRange{mainBody, ifBody})
	d.SetInlayHints([]lsp.InlayHint{
		{Position: pos(4, 0), Label: "INSIDE"},
		{Position: pos(4, 1), Label: "EDGE"},
	})
	d.SetDiagnostics([]lsp.Diagnostic{
		{Range: lsp.Range{Start: pos(3, 2), End: pos(4, 2)}, Severity: lsp.DiagnosticSeverityError, Message: "HIDDEN"},
		{Range: lsp.Range{Start: pos(4, 1), End: pos(4, 2)}, Severity: lsp.DiagnosticSeverityError, Message: "TAIL"},
	})

	tests := []struct {
		name      string
		collapsed bool
		unit      int
		shown     []string
		hidden    []string
	}{
		{"expanded", false, 4, []string{"INSIDE", "EDGE", "HIDDEN", "TAIL"}, nil},
		{"collapsed", true, 2, []string{"EDGE", "TAIL"}, []string{"INSIDE", "HIDDEN"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.collapsed {
				collapse(t, d, ifBody.Start)
			}
			fl := d.Snapshot().Folded[tt.unit]
			if fl.OriginLineEnd != 4 {
				t.Fatalf("unit %d ends at line %d, want 4", tt.unit, fl.OriginLineEnd)
			}
			for _, w := range tt.shown {
				if !strings.Contains(fl.Text.Text, w) {
					t.Errorf("unit %d = %q, want %q shown", tt.unit, fl.Text.Text, w)
				}
			}
			for _, w := range tt.hidden {
				if strings.Contains(fl.Text.Text, w) {
					t.Errorf("unit %d = %q, want %q suppressed", tt.unit, fl.Text.Text, w)
				}
			}
		})
	}
}

func TestResolveClick(t *testing.T) {
	target := lsp.Location{URI: "file:///types.go", Range: lsp.Range{Start: pos(3, 5), End: pos(3, 8)}}
	d := New(buffer.NewFromString("let x = 1\n"))
	d.SetInlayHints([]lsp.InlayHint{{
		Position: pos(0, 5),
		Parts:    []lsp.InlayHintLabelPart{{Value: ": "}, {Value: "i32", Location: &target}},
	}})
	d.SetDiagnostics([]lsp.Diagnostic{{Range: lsp.Range{Start: pos(0, 4), End: pos(0, 5)}, Message: "unused"}})

	tests := []struct {
		x    float64
		want ClickResult
	}{
		{0, ClickResult{Kind: ClickNoOverlay}},
		{7, ClickResult{Kind: ClickNavigateTo, Location: target}},
		{12, ClickResult{Kind: ClickNoOverlay}},
		{17, ClickResult{Kind: ClickOverlayWithoutTarget}},
		{60, ClickResult{Kind: ClickNoOverlay}},
	}
	for _, tt := range tests {
		got, err := d.ResolveClick(0, tt.x)
		if err != nil {
			t.Fatalf("ResolveClick(0, %v) error = %v", tt.x, err)
		}
		if got != tt.want {
			t.Errorf("ResolveClick(0, %v) = %s, want %s", tt.x, got.Kind, tt.want.Kind)
		}
	}

	if _, err := d.ResolveClick(4, 0); !errors.Is(err, ErrLineOutOfRange) {
		t.Errorf("ResolveClick(4) error = %v, want %v", err, ErrLineOutOfRange)
	}
}

func TestResolveClickExpandsFold(t *testing.T) {
	d := New(buffer.NewFromString(fnText))
	d.SetFoldingRanges([]lsp.FoldingRange{{Start: pos(0, 7), End: pos(2, 0)}})
	collapse(t, d, pos(0, 7))

	got, err := d.ResolveClick(0, 8)
	if err != nil {
		t.Fatalf("ResolveClick() error = %v", err)
	}
	if got.Kind != ClickFoldToggled {
		t.Errorf("ResolveClick() = %s, want %s", got.Kind, ClickFoldToggled)
	}
	if n := len(d.Snapshot().Folded); n != 3 {
		t.Errorf("len(Folded) after click = %d, want 3", n)
	}
	if st := d.Folding()[0].Status; st != FoldExpanded {
		t.Errorf("fold status = %s, want %s", st, FoldExpanded)
	}
}

// setupProgram builds a document with every kind of overlay and a
// collapsed if block.
func setupProgram(t *testing.T, cfg config.Editor, ghosts bool) *DocLines {
	t.Helper()
	target := lsp.Location{URI: "file:///builtin.go"}
	d := New(buffer.NewFromString(program), WithConfig(cfg))
	d.SetFoldingRanges([]lsp.FoldingRange{mainBody, ifBody})
	collapse(t, d, ifBody.Start)
	d.SetInlayHints([]lsp.InlayHint{
		{Position: pos(1, 2), Parts: []lsp.InlayHintLabelPart{{Value: ": int", Location: &target}}},
		{Position: pos(3, 10), Label: "a:"},
		{Position: pos(5, 1), Label: "// main"},
	})
	d.SetDiagnostics([]lsp.Diagnostic{
		{Range: lsp.Range{Start: pos(1, 1), End: pos(1, 2)}, Severity: lsp.DiagnosticSeverityWarning, Message: "declared and not used: x"},
		{Range: lsp.Range{Start: pos(3, 2), End: pos(3, 9)}, Severity: lsp.DiagnosticSeverityError, Message: "undefined"},
		{Range: lsp.Range{Start: pos(0, 0), End: pos(5, 1)}, Severity: lsp.DiagnosticSeverityInformation, Message: "whole\nfunction"},
		{Range: lsp.Range{Start: pos(0, 5), End: pos(0, 9)}, Severity: lsp.DiagnosticSeverityHint, Message: "rename"},
	})
	if !d.SetSyntaxStyles([]StyleSpan{
		{Start: 0, End: 4, Style: "keyword"},
		{Start: 5, End: 9, Style: "function"},
		{Start: 23, End: 25, Style: "keyword"},
		{Start: 36, End: 43, Style: "builtin"},
	}, d.Buffer().Rev()) {
		t.Fatalf("SetSyntaxStyles() = false, want true")
	}
	if ghosts {
		d.SetCompletionLens("return", 5, 0)
		d.SetInlineCompletion(" // done", 1, 7)
		d.SetPreedit("ka", 30)
	}
	return d
}

// sameModel reports the first difference between two snapshots.
func sameModel(a, b *Snapshot) error {
	switch {
	case a.Rev != b.Rev || a.Len != b.Len:
		return fmt.Errorf("rev/len %d/%d vs %d/%d", a.Rev, a.Len, b.Rev, b.Len)
	case !reflect.DeepEqual(a.Origin, b.Origin):
		return fmt.Errorf("origin %v vs %v", a.Origin, b.Origin)
	case !reflect.DeepEqual(a.Folded, b.Folded):
		for i, n := 0, min(len(a.Folded), len(b.Folded)); i < n; i++ {
			if !reflect.DeepEqual(a.Folded[i], b.Folded[i]) {
				return fmt.Errorf("folded line %d: %+v vs %+v", i, a.Folded[i], b.Folded[i])
			}
		}
		return fmt.Errorf("%d vs %d folded lines", len(a.Folded), len(b.Folded))
	case !reflect.DeepEqual(a.Visual, b.Visual):
		return fmt.Errorf("visual %v vs %v", a.Visual, b.Visual)
	case !reflect.DeepEqual(a.items, b.items):
		return fmt.Errorf("fold items %v vs %v", a.items, b.items)
	}
	return nil
}

func TestApplyEditMatchesRebuild(t *testing.T) {
	configs := map[string]config.Editor{
		"nowrap": config.DefaultEditor(),
		"wrap":   wrapConfig(6),
	}

	for name, cfg := range configs {
		for _, ghosts := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s/ghosts=%v", name, ghosts), func(t *testing.T) {
				for _, edit := range editShapes(len(program)) {
					d := setupProgram(t, cfg, ghosts)
					if _, err := d.ApplyEdit(edit); err != nil {
						t.Fatalf("ApplyEdit(%s) error = %v", edit, err)
					}
					inc := d.Snapshot()
					full := d.Rebuild()
					if err := sameModel(inc, full); err != nil {
						t.Fatalf("ApplyEdit(%s) differs from rebuild: %v", edit, err)
					}
				}
			})
		}
	}
}

func TestApplyEditSequenceMatchesRebuild(t *testing.T) {
	edits := []buffer.Edit{
		buffer.NewInsert(14, "\n"),
		buffer.NewInsert(0, "// doc\n"),
		buffer.NewInsert(21, "y"),
		buffer.NewInsert(22, "\n\ty := 2"),
		buffer.NewDelete(0, 7),
		buffer.NewEdit(buffer.NewRange(14, 16), "z"),
		buffer.NewInsert(60, "\n"),
		buffer.NewDelete(40, 41),
		buffer.NewInsert(0, "\n"),
	}

	for _, boundaries := range []bool{false, true} {
		t.Run(fmt.Sprintf("boundaries=%v", boundaries), func(t *testing.T) {
			d := setupProgram(t, wrapConfig(5), true)
			if boundaries {
				setBoundaryOverlays(d)
			}
			for _, edit := range edits {
				if _, err := d.ApplyEdit(edit); err != nil {
					t.Fatalf("ApplyEdit(%s) error = %v", edit, err)
				}
				inc := d.Snapshot()
				checkPartition(t, inc)
				if err := sameModel(inc, d.Rebuild()); err != nil {
					t.Fatalf("after %s: %v", edit, err)
				}
			}
		})
	}
}

// setBoundaryOverlays replaces the overlays of a program document with ones
// anchored at line starts and line ends.
func setBoundaryOverlays(d *DocLines) {
	d.SetInlayHints([]lsp.InlayHint{
		{Position: pos(0, 0), Label: "h"},
		{Position: pos(0, 13), Label: "end"},
		{Position: pos(1, 0), Label: "ctx"},
		{Position: pos(4, 0), Label: "in"},
		{Position: pos(4, 2), Label: "tail"},
		{Position: pos(5, 1), Label: "eof"},
	})
	d.SetDiagnostics([]lsp.Diagnostic{
		{Range: lsp.Range{Start: pos(0, 0), End: pos(1, 0)}, Severity: lsp.DiagnosticSeverityError, Message: "spans break"},
		{Range: lsp.Range{Start: pos(1, 0), End: pos(1, 7)}, Severity: lsp.DiagnosticSeverityWarning, Message: "whole line"},
		{Range: lsp.Range{Start: pos(3, 2), End: pos(4, 2)}, Severity: lsp.DiagnosticSeverityError, Message: "into tail"},
		{Range: lsp.Range{Start: pos(4, 1), End: pos(4, 2)}, Severity: lsp.DiagnosticSeverityError, Message: "after fold"},
	})
	d.SetCompletionLens("ret", 1, 0)
	d.SetInlineCompletion(" // x", 4, 2)
	d.SetPreedit("ka", 22)
}

func TestApplyEditBoundaryOverlaysMatchRebuild(t *testing.T) {
	configs := map[string]config.Editor{
		"nowrap": config.DefaultEditor(),
		"wrap":   wrapConfig(6),
	}

	for name, cfg := range configs {
		for _, collapsed := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s/collapsed=%v", name, collapsed), func(t *testing.T) {
				for _, edit := range editShapes(len(program)) {
					d := New(buffer.NewFromString(program), WithConfig(cfg))
					d.SetFoldingRanges([]lsp.FoldingRange{mainBody, ifBody})
					if collapsed {
						collapse(t, d, ifBody.Start)
					}
					setBoundaryOverlays(d)
					if _, err := d.ApplyEdit(edit); err != nil {
						t.Fatalf("ApplyEdit(%s) error = %v", edit, err)
					}
					inc := d.Snapshot()
					checkPartition(t, inc)
					if err := sameModel(inc, d.Rebuild()); err != nil {
						t.Fatalf("ApplyEdit(%s) differs from rebuild: %v", edit, err)
					}
				}
			})
		}
	}
}

func TestLineBreakCarriesOverlays(t *testing.T) {
	d := New(buffer.NewFromString("x := 1\ny\n"))
	d.SetInlayHints([]lsp.InlayHint{{Position: pos(0, 0), Label: "h"}})
	d.SetDiagnostics([]lsp.Diagnostic{
		{Range: lsp.Range{Start: pos(1, 0), End: pos(1, 1)}, Severity: lsp.DiagnosticSeverityError, Message: "bad"},
	})
	if want := []string{" hx := 1", "y    bad"}; !reflect.DeepEqual(foldedTexts(d.Snapshot()), want) {
		t.Fatalf("folded texts = %q, want %q", foldedTexts(d.Snapshot()), want)
	}

	if _, err := d.ApplyEdit(buffer.NewInsert(0, "\n")); err != nil {
		t.Fatalf("ApplyEdit() error = %v", err)
	}
	inc := d.Snapshot()
	if want := []string{" h", "x := 1", "y    bad"}; !reflect.DeepEqual(foldedTexts(inc), want) {
		t.Errorf("folded texts = %q, want %q", foldedTexts(inc), want)
	}
	if err := sameModel(inc, d.Rebuild()); err != nil {
		t.Errorf("ApplyEdit() differs from rebuild: %v", err)
	}
}

// checkPartition verifies that units and visual lines tile the document.
func checkPartition(t *testing.T, s *Snapshot) {
	t.Helper()
	next, line := 0, 0
	for i, fl := range s.Folded {
		if fl.LineIndex != i || fl.OriginInterval.Start != next || fl.OriginLineStart != line {
			t.Fatalf("unit %d = %+v, want index %d starting at offset %d line %d", i, fl, i, next, line)
		}
		next, line = fl.OriginInterval.End, fl.OriginLineEnd+1
	}
	if next != s.Len || line != len(s.Origin) {
		t.Fatalf("units end at offset %d line %d, want %d, %d", next, line, s.Len, len(s.Origin))
	}

	next = 0
	seen := make(map[int]bool)
	for i, vl := range s.Visual {
		if vl.LineIndex != i || vl.OriginInterval.Start != next {
			t.Fatalf("visual line %d = %+v, want index %d starting at %d", i, vl, i, next)
		}
		next = vl.OriginInterval.End
		seen[vl.FoldedLine] = true
	}
	if next != s.Len || len(seen) != len(s.Folded) {
		t.Fatalf("visual lines end at %d over %d units, want %d over %d", next, len(seen), s.Len, len(s.Folded))
	}
}

func TestOffsetRoundTrip(t *testing.T) {
	for _, width := range []int{0, 5} {
		cfg := config.DefaultEditor()
		if width > 0 {
			cfg = wrapConfig(width)
		}
		d := setupProgram(t, cfg, true)
		s := d.Snapshot()
		src := s.Source()
		checkPartition(t, s)

		for off := 0; off <= s.Len; off++ {
			line := src.LineOfOffset(off)
			if off-src.OffsetOfLine(line) > len(src.LineContent(line)) {
				continue
			}
			if d.folding.Contains(s.OffsetToPosition(off)) {
				continue
			}
			vp, err := s.BufferOffsetToVisual(off, Forward)
			if err != nil {
				t.Fatalf("width %d: BufferOffsetToVisual(%d) error = %v", width, off, err)
			}
			got, err := s.VisualToBufferOffset(vp.Line.LineIndex, vp.Col)
			if err != nil {
				t.Fatalf("width %d: VisualToBufferOffset() error = %v", width, err)
			}
			if got != off {
				t.Errorf("width %d: offset %d -> line %d col %d -> %d", width, off, vp.Line.LineIndex, vp.Col, got)
			}
		}
	}
}

func TestApplyEditReusesUnits(t *testing.T) {
	d := New(buffer.NewFromString(program))
	d.SetFoldingRanges([]lsp.FoldingRange{mainBody, ifBody})
	collapse(t, d, ifBody.Start)
	old := d.Snapshot()

	if _, err := d.ApplyEdit(buffer.NewInsert(1, "x")); err != nil {
		t.Fatalf("ApplyEdit() error = %v", err)
	}
	s := d.Snapshot()
	if s.Folded[0].Text == old.Folded[0].Text {
		t.Errorf("edited unit was not rebuilt")
	}
	for i := 1; i < len(s.Folded); i++ {
		if s.Folded[i].Text != old.Folded[i].Text {
			t.Errorf("unit %d was rebuilt, want reused", i)
		}
	}
	if s.Folded[2].OriginInterval != old.Folded[2].OriginInterval.Shift(1) {
		t.Errorf("unit 2 interval = %s, want %s", s.Folded[2].OriginInterval, old.Folded[2].OriginInterval.Shift(1))
	}
}

func TestApplyEditInsideCollapsedFold(t *testing.T) {
	d := setupProgram(t, config.DefaultEditor(), false)

	if _, err := d.ApplyEdit(buffer.NewInsert(40, "ln")); err != nil {
		t.Fatalf("ApplyEdit() error = %v", err)
	}
	var ifStatus FoldStatus
	for _, r := range d.Folding() {
		if r.Start == ifBody.Start {
			ifStatus = r.Status
		}
	}
	if ifStatus != FoldPendingToggle {
		t.Errorf("if block status = %s, want %s", ifStatus, FoldPendingToggle)
	}
	if n := len(d.Snapshot().Folded); n != 6 {
		t.Errorf("len(Folded) = %d, want 6", n)
	}

	d.SetFoldingRanges([]lsp.FoldingRange{mainBody, ifBody})
	if n := len(d.Snapshot().Folded); n != 4 {
		t.Errorf("len(Folded) after new ranges = %d, want 4", n)
	}
}

func TestFoldAfterInvalidUTF8StaysPut(t *testing.T) {
	// Line 0 ends in a lone lead byte, so the fold starts one UTF-16 unit
	// after it.
	text := "f(){\xc3\n  1\n}\n"
	body := lsp.FoldingRange{Start: pos(0, 5), End: pos(2, 0)}
	d := New(buffer.NewFromString(text))
	d.SetFoldingRanges([]lsp.FoldingRange{body})
	collapse(t, d, body.Start)

	if _, err := d.ApplyEdit(buffer.NewInsert(len(text), "x")); err != nil {
		t.Fatalf("ApplyEdit() error = %v", err)
	}
	got := d.Folding()
	if len(got) != 1 || got[0].Start != body.Start || got[0].End != body.End || got[0].Status != FoldCollapsed {
		t.Errorf("Folding() = %+v, want %s-%s collapsed", got, body.Start, body.End)
	}
	if err := sameModel(d.Snapshot(), d.Rebuild()); err != nil {
		t.Errorf("ApplyEdit() differs from rebuild: %v", err)
	}
}

func TestApplyDelta(t *testing.T) {
	buf := buffer.NewFromString(fnText)
	d := New(buf)

	delta, err := buf.Apply(buffer.NewInsert(8, "  0\n"))
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if err := d.ApplyDelta(delta); err != nil {
		t.Fatalf("ApplyDelta() error = %v", err)
	}
	if want := []string{"fn a(){", "  0", "  1", "}"}; !reflect.DeepEqual(foldedTexts(d.Snapshot()), want) {
		t.Errorf("folded texts = %q, want %q", foldedTexts(d.Snapshot()), want)
	}

	before := d.Snapshot()
	if err := d.ApplyDelta(delta); !errors.Is(err, ErrInvalidDelta) {
		t.Errorf("replayed ApplyDelta() error = %v, want %v", err, ErrInvalidDelta)
	}
	if d.Snapshot() != before {
		t.Errorf("failed ApplyDelta() published a snapshot")
	}

	if _, err := d.ApplyEdit(buffer.NewDelete(0, 99)); err == nil {
		t.Errorf("ApplyEdit() past the end error = nil, want error")
	}
}

func TestCompletionLensConsumesTypedText(t *testing.T) {
	d := New(buffer.NewFromString("fmt.\n"))
	d.SetCompletionLens("Println", 0, 4)

	steps := []struct {
		edit buffer.Edit
		want string
	}{
		{buffer.NewInsert(4, "Pr"), "fmt.Println"},
		{buffer.NewInsert(6, "intln"), "fmt.Println"},
		{buffer.NewInsert(11, "("), "fmt.Println("},
	}
	if got := d.Snapshot().Folded[0].Text.Text; got != "fmt.Println" {
		t.Fatalf("initial text = %q, want %q", got, "fmt.Println")
	}
	for _, st := range steps {
		if _, err := d.ApplyEdit(st.edit); err != nil {
			t.Fatalf("ApplyEdit(%s) error = %v", st.edit, err)
		}
		if got := d.Snapshot().Folded[0].Text.Text; got != st.want {
			t.Errorf("after %s text = %q, want %q", st.edit, got, st.want)
		}
	}
	if d.overlays.lens != nil {
		t.Errorf("lens = %+v, want consumed", d.overlays.lens)
	}
}

func TestClearGhostText(t *testing.T) {
	d := New(buffer.NewFromString("ab\n"))
	d.SetInlineCompletion("cd", 0, 2)
	d.SetPreedit("x", 1)

	if got := d.Snapshot().Folded[0].Text.Text; got != "axbcd" {
		t.Errorf("text = %q, want %q", got, "axbcd")
	}
	d.ClearInlineCompletion()
	d.ClearPreedit()
	d.ClearCompletionLens()
	if got := d.Snapshot().Folded[0].Text.Text; got != "ab" {
		t.Errorf("text after clear = %q, want %q", got, "ab")
	}
}

func TestSetLineEnding(t *testing.T) {
	d := New(buffer.NewFromString("a\nb\n"))
	d.SetInlayHints([]lsp.InlayHint{{Position: pos(1, 1), Label: "x"}})

	if err := d.SetLineEnding(buffer.LineEndingCRLF); err != nil {
		t.Fatalf("SetLineEnding() error = %v", err)
	}
	s := d.Snapshot()
	if s.Len != 6 {
		t.Errorf("Len = %d, want 6", s.Len)
	}
	if want := []string{"a", "b x"}; !reflect.DeepEqual(foldedTexts(s), want) {
		t.Errorf("folded texts = %q, want %q", foldedTexts(s), want)
	}
	if got := visualIntervals(s); !reflect.DeepEqual(got, []Interval{{0, 3}, {3, 6}}) {
		t.Errorf("visual origin intervals = %v, want [[0,3) [3,6)]", got)
	}
}

func TestReloadContent(t *testing.T) {
	d := New(buffer.NewFromString(program))
	d.SetFoldingRanges([]lsp.FoldingRange{mainBody})
	collapse(t, d, mainBody.Start)
	d.SetInlayHints([]lsp.InlayHint{{Position: pos(0, 0), Label: "h"}})

	if err := d.ReloadContent("z\n"); err != nil {
		t.Fatalf("ReloadContent() error = %v", err)
	}
	if got := d.Folding(); len(got) != 0 {
		t.Errorf("Folding() = %v, want none", got)
	}
	if want := []string{"z"}; !reflect.DeepEqual(foldedTexts(d.Snapshot()), want) {
		t.Errorf("folded texts = %q, want %q", foldedTexts(d.Snapshot()), want)
	}
}

func TestUpdateConfig(t *testing.T) {
	updates := 0
	d := New(buffer.NewFromString("abcd\n"), WithOnUpdate(func(*Snapshot) { updates++ }))

	bad := config.DefaultEditor()
	bad.TabWidth = 0
	if err := d.UpdateConfig(bad); err == nil {
		t.Errorf("UpdateConfig() with tab width 0 error = nil, want error")
	}

	if err := d.UpdateConfig(wrapConfig(2)); err != nil {
		t.Fatalf("UpdateConfig() error = %v", err)
	}
	if n := len(d.Snapshot().Visual); n != 2 {
		t.Errorf("len(Visual) = %d, want 2", n)
	}
	if err := d.UpdateConfig(wrapConfig(2)); err != nil {
		t.Fatalf("UpdateConfig() error = %v", err)
	}
	if updates != 1 {
		t.Errorf("updates = %d, want 1", updates)
	}
	if d.Config().WrapWidth != 2 {
		t.Errorf("Config().WrapWidth = %d, want 2", d.Config().WrapWidth)
	}
}

func TestStaleRevisions(t *testing.T) {
	d := New(buffer.NewFromString(fnText))
	rev := d.Buffer().Rev()
	if _, err := d.ApplyEdit(buffer.NewInsert(0, " ")); err != nil {
		t.Fatalf("ApplyEdit() error = %v", err)
	}

	if d.SetSyntaxStyles([]StyleSpan{{Start: 0, End: 2, Style: "keyword"}}, rev) {
		t.Errorf("SetSyntaxStyles() with stale rev = true, want false")
	}
	if d.Snapshot().Folded[0].Styles != nil {
		t.Errorf("stale styles were applied")
	}
	ranges := []lsp.FoldingRange{{Start: pos(0, 8), End: pos(2, 0)}}
	if d.SetFoldingRangesWithRev(ranges, rev) {
		t.Errorf("SetFoldingRangesWithRev() with stale rev = true, want false")
	}
	if !d.SetFoldingRangesWithRev(ranges, d.Buffer().Rev()) {
		t.Errorf("SetFoldingRangesWithRev() with current rev = false, want true")
	}
	if n := len(d.Folding()); n != 1 {
		t.Errorf("len(Folding()) = %d, want 1", n)
	}
}

func TestSyntaxStylesProjectOntoComposedText(t *testing.T) {
	d := New(buffer.NewFromString("let x = 1\n"))
	d.SetInlayHints([]lsp.InlayHint{{Position: pos(0, 5), Label: ": i32"}})
	d.SetSyntaxStyles([]StyleSpan{{Start: 0, End: 3, Style: "keyword"}, {Start: 8, End: 9, Style: "number"}}, d.Buffer().Rev())

	want := []StyleSpan{{Start: 0, End: 3, Style: "keyword"}, {Start: 14, End: 15, Style: "number"}}
	if got := d.Snapshot().Folded[0].Styles; !reflect.DeepEqual(got, want) {
		t.Errorf("Styles = %v, want %v", got, want)
	}
}

func TestSetFoldingRangesKeepsState(t *testing.T) {
	d := New(buffer.NewFromString(program))
	d.SetFoldingRanges([]lsp.FoldingRange{mainBody, ifBody})
	collapse(t, d, ifBody.Start)
	before := d.Snapshot()

	d.SetFoldingRanges([]lsp.FoldingRange{ifBody, mainBody})
	if err := sameModel(before, d.Snapshot()); err != nil {
		t.Errorf("re-sending the same ranges changed the model: %v", err)
	}
}

func TestFoldToggleRestoresVisualLines(t *testing.T) {
	for _, width := range []int{0, 6} {
		cfg := config.DefaultEditor()
		if width > 0 {
			cfg = wrapConfig(width)
		}
		d := New(buffer.NewFromString(program), WithConfig(cfg))
		d.SetFoldingRanges([]lsp.FoldingRange{mainBody, ifBody})
		before := d.Snapshot().Visual

		for _, r := range []lsp.FoldingRange{ifBody, mainBody} {
			item := FoldingDisplayItem{Position: r.Start, Kind: DisplayUnfoldStart}
			if !d.UpdateFolding(FoldByItem{Item: item}) {
				t.Fatalf("width %d: collapsing %s = false, want true", width, r.Start)
			}
			checkPartition(t, d.Snapshot())
			if !d.UpdateFolding(FoldByItem{Item: item}) {
				t.Fatalf("width %d: expanding %s = false, want true", width, r.Start)
			}
			if got := d.Snapshot().Visual; !reflect.DeepEqual(got, before) {
				t.Errorf("width %d: visual lines after toggling %s twice = %v, want %v", width, r.Start, got, before)
			}
		}
	}
}

func TestInvariantError(t *testing.T) {
	err := invariantf("patch", 12, "unit %d missing", 3)
	wrapped := fmt.Errorf("apply: %w", err)

	if !IsInvariant(wrapped) {
		t.Errorf("IsInvariant(wrapped) = false, want true")
	}
	if IsInvariant(ErrInvalidDelta) {
		t.Errorf("IsInvariant(ErrInvalidDelta) = true, want false")
	}
	want := "line model invariant violated in patch at offset 12: unit 3 missing"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
