package lines

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dshills/doclines/internal/config"
	"github.com/dshills/doclines/internal/engine/buffer"
	"github.com/dshills/doclines/internal/logging"
	"github.com/dshills/doclines/internal/lsp"
)

// DocLines maintains the line model of one buffer.
//
// Mutating methods must be serialized by the caller; they are additionally
// guarded by a mutex. Snapshot may be called from any goroutine and never
// observes a partial update.
type DocLines struct {
	mu sync.Mutex

	id       uuid.UUID
	buf      *buffer.Buffer
	cfg      config.Editor
	shaper   Shaper
	folding  *Folding
	overlays *overlays
	logger   *logging.Logger
	onUpdate func(*Snapshot)

	snap atomic.Pointer[Snapshot]
}

// Option configures a DocLines.
type Option func(*DocLines)

// WithConfig sets the editor configuration.
func WithConfig(cfg config.Editor) Option {
	return func(d *DocLines) {
		d.cfg = cfg
	}
}

// WithShaper sets the text shaper. The default is RuneShaper.
func WithShaper(s Shaper) Option {
	return func(d *DocLines) {
		if s != nil {
			d.shaper = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(d *DocLines) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithOnUpdate registers a callback run after each published snapshot.
// It runs outside the model's lock.
func WithOnUpdate(fn func(*Snapshot)) Option {
	return func(d *DocLines) {
		d.onUpdate = fn
	}
}

// New builds the line model of buf.
func New(buf *buffer.Buffer, opts ...Option) *DocLines {
	d := &DocLines{
		id:       uuid.New(),
		buf:      buf,
		cfg:      config.DefaultEditor(),
		shaper:   RuneShaper{},
		folding:  &Folding{},
		overlays: &overlays{},
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.WithComponent("lines").WithField("doc", d.id.String())
	d.snap.Store(d.rebuild(buf.Snapshot()))
	return d
}

// ID returns the model's instance identifier.
func (d *DocLines) ID() uuid.UUID {
	return d.id
}

// Buffer returns the underlying buffer.
func (d *DocLines) Buffer() *buffer.Buffer {
	return d.buf
}

// Config returns the current editor configuration.
func (d *DocLines) Config() config.Editor {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Snapshot returns the current immutable view.
func (d *DocLines) Snapshot() *Snapshot {
	return d.snap.Load()
}

// Folding returns a copy of the folding ranges.
func (d *DocLines) Folding() []FoldingRange {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.folding.Ranges()
}

// update runs fn under the lock, publishes the snapshot it returns and
// notifies the update callback.
func (d *DocLines) update(fn func() (*Snapshot, error)) error {
	d.mu.Lock()
	s, err := fn()
	if s != nil {
		d.snap.Store(s)
	}
	d.mu.Unlock()

	if s != nil && d.onUpdate != nil {
		d.onUpdate(s)
	}
	return err
}

// rebuild derives every line of src from scratch.
func (d *DocLines) rebuild(src *buffer.Snapshot) *Snapshot {
	b := newBuilder(src, d.cfg, d.shaper, d.folding, d.overlays)
	folded := b.all()
	s := &Snapshot{
		Rev:    src.Rev(),
		Len:    src.Len(),
		Origin: BuildOrigin(src),
		Folded: folded,
		Visual: segmentAll(folded, src),
		src:    src,
	}
	s.placeItems(d.folding.DisplayItems())

	d.logger.Debug("rebuilt rev %d: %d origin, %d folded, %d visual lines", s.Rev, len(s.Origin), len(s.Folded), len(s.Visual))
	return s
}

// Rebuild recomputes the whole model from the buffer and publishes it.
func (d *DocLines) Rebuild() *Snapshot {
	var s *Snapshot
	_ = d.update(func() (*Snapshot, error) {
		s = d.rebuild(d.buf.Snapshot())
		return s, nil
	})
	return s
}

// ApplyEdit applies edit to the buffer and updates the model. If the buffer
// accepts the edit but the model cannot follow it, the error is returned
// and the previous snapshot stays published until Rebuild.
func (d *DocLines) ApplyEdit(edit buffer.Edit) (buffer.Delta, error) {
	var delta buffer.Delta
	err := d.update(func() (*Snapshot, error) {
		var err error
		delta, err = d.buf.Apply(edit)
		if err != nil {
			return nil, err
		}
		return d.applyDelta(delta)
	})
	return delta, err
}

// ApplyDelta updates the model for an edit already applied to the buffer.
func (d *DocLines) ApplyDelta(delta buffer.Delta) error {
	return d.update(func() (*Snapshot, error) {
		return d.applyDelta(delta)
	})
}

// applyDelta patches the current snapshot for one edit. On failure the
// folds and overlays are restored and nothing is published.
func (d *DocLines) applyDelta(delta buffer.Delta) (*Snapshot, error) {
	old := d.snap.Load()
	cur := d.buf.Snapshot()

	if delta.OldRev != old.Rev || delta.NewRev != cur.Rev() {
		return nil, fmt.Errorf("%w: delta rev %d->%d, model at rev %d, buffer at rev %d",
			ErrInvalidDelta, delta.OldRev, delta.NewRev, old.Rev, cur.Rev())
	}

	plan, err := PlanDelta(old.Origin, old.Len, delta, cur)
	if err != nil {
		return nil, d.fault(err)
	}

	savedFolds, savedOverlays := d.folding.clone(), d.overlays.clone()
	foldsChanged := d.folding.ApplyEdit(delta, old.src, cur)
	d.overlays.applyDelta(delta)

	if foldsChanged {
		d.logger.Debug("collapsed fold touched by %s, rebuilding", delta)
		return d.rebuild(cur), nil
	}

	s, err := d.patch(old, cur, plan, savedOverlays)
	if err != nil {
		d.folding, d.overlays = savedFolds, savedOverlays
		return nil, d.fault(err)
	}
	return s, nil
}

// reuse records where a unit of a patched snapshot came from.
// old is -1 when the unit must be segmented afresh.
type reuse struct {
	old   int
	lines int
	bytes int
	built bool
}

// patch reuses the unaffected prefix and suffix of old at every level and
// rebuilds the rest. before holds the overlays as they were before the edit.
func (d *DocLines) patch(old *Snapshot, cur *buffer.Snapshot, plan DeltaPlan, before *overlays) (*Snapshot, error) {
	origin := ApplyPlan(old.Origin, plan, cur)
	lineShift := plan.CopySuffixShift.Lines
	byteShift := plan.CopySuffixShift.Bytes

	// Rendered units restart one line before the recomputed range, since the
	// edit can pull text onto the previous line, and run until a unit
	// boundary lines up with an old one.
	u0 := unitOfLine(old.Folded, max(plan.RecomputeRange.Start-1, 0))
	if u0 < 0 {
		return nil, invariantf("patch", cur.OffsetOfLine(plan.RecomputeRange.Start), "no rendered unit for line %d", plan.RecomputeRange.Start)
	}
	b := newBuilder(cur, d.cfg, d.shaper, d.folding, d.overlays)
	n := cur.NumLines()

	folded := make([]FoldedLine, 0, len(old.Folded)+1)
	from := make([]reuse, 0, len(old.Folded)+1)
	for i, fl := range old.Folded[:u0] {
		folded = append(folded, fl)
		from = append(from, reuse{old: i})
	}
	suffix := len(old.Folded)
	for line := old.Folded[u0].OriginLineStart; line < n; {
		fl := b.unit(line, len(folded))
		folded = append(folded, fl)
		from = append(from, reuse{old: -1, built: true})
		line = fl.OriginLineEnd + 1
		if line >= n {
			break
		}
		if line >= plan.RecomputeRange.End {
			if j, ok := unitStartingAt(old.Folded, line-lineShift); ok {
				suffix = j
				break
			}
		}
	}
	unitShift := len(folded) - suffix
	for i, fl := range old.Folded[suffix:] {
		folded = append(folded, fl.shifted(unitShift, lineShift, byteShift))
		from = append(from, reuse{old: suffix + i, lines: lineShift, bytes: byteShift})
	}
	if last := folded[len(folded)-1]; last.OriginLineEnd != n-1 || last.OriginInterval.End != cur.Len() {
		return nil, invariantf("patch", cur.Len(), "rendered units end at line %d offset %d, buffer has %d lines and %d bytes",
			last.OriginLineEnd, last.OriginInterval.End, n, cur.Len())
	}

	// An edit at a line boundary can carry an overlay onto a neighbouring
	// line, and ghost text shrinks as the user types. Reused units whose
	// anchored overlays differ from before the edit are rebuilt in place.
	was := before.anchorsByUnit(old.src, old.Folded)
	now := d.overlays.anchorsByUnit(cur, folded)
	for u, r := range from {
		if r.old >= 0 && !slices.Equal(was[r.old], now[u]) {
			from[u].old = -1
		}
	}

	rebuilt := 0
	visual := make([]VisualLine, 0, len(old.Visual)+1)
	for u := range folded {
		r := from[u]
		if r.old < 0 {
			if !r.built {
				folded[u] = b.unit(folded[u].OriginLineStart, u)
			}
			visual = append(visual, SegmentUnit(folded[u], u, len(visual), cur)...)
			rebuilt++
			continue
		}
		v := firstVisualOf(old.Visual, r.old)
		shift := len(visual) - v
		for ; v < len(old.Visual) && old.Visual[v].FoldedLine == r.old; v++ {
			visual = append(visual, old.Visual[v].shifted(shift, u-r.old, r.lines, r.bytes))
		}
	}

	s := &Snapshot{
		Rev:    cur.Rev(),
		Len:    cur.Len(),
		Origin: origin,
		Folded: folded,
		Visual: visual,
		src:    cur,
	}
	s.placeItems(d.folding.DisplayItems())

	d.logger.Debug("patched rev %d (%s): rebuilt %d of %d units", s.Rev, plan, rebuilt, len(folded))
	return s, nil
}

// fault logs invariant violations, which mean the model is corrupt.
func (d *DocLines) fault(err error) error {
	if IsInvariant(err) {
		d.logger.Error("%v", err)
	}
	return err
}

// UpdateConfig installs a new editor configuration and rebuilds when it
// differs from the current one.
func (d *DocLines) UpdateConfig(cfg config.Editor) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return d.update(func() (*Snapshot, error) {
		if cfg == d.cfg {
			return nil, nil
		}
		d.cfg = cfg
		return d.rebuild(d.buf.Snapshot()), nil
	})
}

// SetLineEnding converts the buffer's line endings and rebuilds. Overlays
// keep their line and character positions; syntax styles are dropped until
// the next analysis.
func (d *DocLines) SetLineEnding(le buffer.LineEnding) error {
	return d.update(func() (*Snapshot, error) {
		old := d.buf.Snapshot()
		if !d.buf.SetLineEnding(le) {
			return nil, nil
		}
		cur := d.buf.Snapshot()
		d.overlays.remap(old, cur)
		return d.rebuild(cur), nil
	})
}

// ReloadContent replaces the buffer's content and rebuilds. Overlays and
// folds computed against the old content are discarded.
func (d *DocLines) ReloadContent(text string) error {
	return d.update(func() (*Snapshot, error) {
		d.buf.Reload(text)
		d.overlays.clear()
		d.folding = &Folding{}
		return d.rebuild(d.buf.Snapshot()), nil
	})
}

// SetInlayHints replaces the inlay hints.
func (d *DocLines) SetInlayHints(hints []lsp.InlayHint) {
	_ = d.update(func() (*Snapshot, error) {
		src := d.buf.Snapshot()
		d.overlays.setHints(src, hints)
		return d.rebuild(src), nil
	})
}

// SetDiagnostics replaces the diagnostics.
func (d *DocLines) SetDiagnostics(diags []lsp.Diagnostic) {
	_ = d.update(func() (*Snapshot, error) {
		src := d.buf.Snapshot()
		d.overlays.setDiagnostics(src, diags)
		return d.rebuild(src), nil
	})
}

// ghostSlot returns the overlay field holding ghost text of kind.
func (o *overlays) ghostSlot(kind PhantomKind) **GhostText {
	switch kind {
	case PhantomCompletionLens:
		return &o.lens
	case PhantomInlineCompletion:
		return &o.inline
	default:
		return &o.preedit
	}
}

// setGhost replaces ghost text of kind. at converts the anchor against the
// current buffer; a nil at clears the slot.
func (d *DocLines) setGhost(kind PhantomKind, text string, at func(src LineSource) int) {
	_ = d.update(func() (*Snapshot, error) {
		slot := d.overlays.ghostSlot(kind)
		src := d.buf.Snapshot()
		if at == nil {
			if *slot == nil {
				return nil, nil
			}
			*slot = nil
		} else {
			*slot = &GhostText{Text: text, Offset: at(src)}
		}
		return d.rebuild(src), nil
	})
}

func lspAnchor(line, col int) func(LineSource) int {
	return func(src LineSource) int {
		return positionToOffset(src, lsp.Position{Line: line, Character: col})
	}
}

// SetCompletionLens shows text as completion ghost text at line and UTF-16
// column col.
func (d *DocLines) SetCompletionLens(text string, line, col int) {
	d.setGhost(PhantomCompletionLens, text, lspAnchor(line, col))
}

// ClearCompletionLens removes the completion ghost text.
func (d *DocLines) ClearCompletionLens() {
	d.setGhost(PhantomCompletionLens, "", nil)
}

// SetInlineCompletion shows text as an inline completion at line and
// UTF-16 column col.
func (d *DocLines) SetInlineCompletion(text string, line, col int) {
	d.setGhost(PhantomInlineCompletion, text, lspAnchor(line, col))
}

// ClearInlineCompletion removes the inline completion.
func (d *DocLines) ClearInlineCompletion() {
	d.setGhost(PhantomInlineCompletion, "", nil)
}

// SetPreedit shows IME composition text at a buffer offset.
func (d *DocLines) SetPreedit(text string, offset int) {
	d.setGhost(PhantomPreedit, text, func(src LineSource) int {
		return max(0, min(offset, src.Len()))
	})
}

// ClearPreedit removes the IME composition text.
func (d *DocLines) ClearPreedit() {
	d.setGhost(PhantomPreedit, "", nil)
}

// SetSyntaxStyles installs style spans computed at buffer revision rev. It
// reports false, leaving the model untouched, when rev is not the buffer's
// current revision.
func (d *DocLines) SetSyntaxStyles(spans []StyleSpan, rev uint64) bool {
	applied := false
	_ = d.update(func() (*Snapshot, error) {
		src := d.buf.Snapshot()
		if rev != src.Rev() {
			d.logger.Debug("dropping syntax styles for rev %d, buffer at rev %d", rev, src.Rev())
			return nil, nil
		}
		d.overlays.setStyles(spans, rev)
		applied = true
		return d.rebuild(src), nil
	})
	return applied
}

// SetFoldingRanges replaces the folding ranges, keeping the status of
// ranges that survive.
func (d *DocLines) SetFoldingRanges(ranges []lsp.FoldingRange) {
	d.UpdateFolding(FoldNew{Ranges: ranges})
}

// SetFoldingRangesWithRev is SetFoldingRanges for ranges computed at
// revision rev. It reports false when rev is stale.
func (d *DocLines) SetFoldingRangesWithRev(ranges []lsp.FoldingRange, rev uint64) bool {
	applied := false
	_ = d.update(func() (*Snapshot, error) {
		src := d.buf.Snapshot()
		if rev != src.Rev() {
			d.logger.Debug("dropping folding ranges for rev %d, buffer at rev %d", rev, src.Rev())
			return nil, nil
		}
		FoldNew{Ranges: ranges}.apply(d.folding, src)
		applied = true
		return d.rebuild(src), nil
	})
	return applied
}

// UpdateFolding applies a folding action and rebuilds when it changed
// anything. It reports whether it did.
func (d *DocLines) UpdateFolding(action FoldingAction) bool {
	changed := false
	_ = d.update(func() (*Snapshot, error) {
		src := d.buf.Snapshot()
		if !action.apply(d.folding, src) {
			return nil, nil
		}
		changed = true
		return d.rebuild(src), nil
	})
	return changed
}

// ClickKind classifies what a click on a visual line hit.
type ClickKind int

const (
	// ClickNoOverlay means the click hit buffer text or empty space.
	ClickNoOverlay ClickKind = iota
	// ClickOverlayWithoutTarget means the click hit synthetic text with no
	// action attached.
	ClickOverlayWithoutTarget
	// ClickFoldToggled means the click hit a fold placeholder, which was
	// expanded.
	ClickFoldToggled
	// ClickNavigateTo means the click hit an inlay hint with a target.
	ClickNavigateTo
)

// String returns the kind name.
func (k ClickKind) String() string {
	switch k {
	case ClickNoOverlay:
		return "no-overlay"
	case ClickOverlayWithoutTarget:
		return "overlay-without-target"
	case ClickFoldToggled:
		return "fold-toggled"
	case ClickNavigateTo:
		return "navigate-to"
	default:
		return "unknown"
	}
}

// ClickResult is the outcome of ResolveClick. Location is set for
// ClickNavigateTo.
type ClickResult struct {
	Kind     ClickKind
	Location lsp.Location
}

// ResolveClick interprets a click x cells into visual line index. Clicking
// a fold placeholder expands the fold.
func (d *DocLines) ResolveClick(index int, x float64) (ClickResult, error) {
	s := d.Snapshot()
	final, inside, err := s.HitTest(index, x)
	if err != nil {
		return ClickResult{}, err
	}
	if !inside {
		return ClickResult{Kind: ClickNoOverlay}, nil
	}
	ph, ok := s.Folded[s.Visual[index].FoldedLine].Text.PhantomAt(final)
	if !ok {
		return ClickResult{Kind: ClickNoOverlay}, nil
	}

	switch {
	case ph.Kind == PhantomFoldPlaceholder:
		if d.UpdateFolding(FoldByPhantom{Position: ph.Fold.Start}) {
			return ClickResult{Kind: ClickFoldToggled}, nil
		}
		return ClickResult{Kind: ClickOverlayWithoutTarget}, nil
	case ph.Kind == PhantomInlayHint && ph.Location != nil:
		return ClickResult{Kind: ClickNavigateTo, Location: *ph.Location}, nil
	default:
		return ClickResult{Kind: ClickOverlayWithoutTarget}, nil
	}
}
