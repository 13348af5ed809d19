// Package syntax derives folding ranges from tree-sitter syntax trees.
//
// A node folds between its first opening bracket child and its last closing
// bracket child when they sit on different rows, so the brackets stay
// visible around the placeholder. Runs of line comments on consecutive rows
// fold after the first comment.
package syntax

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	sitter "github.com/mitjafelicijan/go-tree-sitter"
	"github.com/mitjafelicijan/go-tree-sitter/golang"

	"github.com/dshills/doclines/internal/engine/buffer"
	"github.com/dshills/doclines/internal/lines"
	"github.com/dshills/doclines/internal/logging"
	"github.com/dshills/doclines/internal/lsp"
)

// ErrNoTree is returned when the parser produced no syntax tree.
var ErrNoTree = errors.New("syntax: no tree")

// Folder computes folding ranges for Go source.
type Folder struct {
	mu     sync.Mutex
	parser *sitter.Parser
	logger *logging.Logger
}

// Option configures a Folder.
type Option func(*Folder)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(f *Folder) {
		f.logger = l
	}
}

// NewFolder creates a folder for Go source.
func NewFolder(opts ...Option) *Folder {
	p := sitter.NewParser()
	p.SetLanguage(golang.GetLanguage())
	f := &Folder{parser: p, logger: logging.Nop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FoldingRanges parses src and returns its folding ranges ordered by start.
func (f *Folder) FoldingRanges(ctx context.Context, src *buffer.Snapshot) ([]lsp.FoldingRange, error) {
	f.mu.Lock()
	tree, err := f.parser.ParseCtx(ctx, nil, []byte(src.Text()))
	f.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("parse rev %d: %w", src.Rev(), err)
	}
	if tree == nil {
		return nil, ErrNoTree
	}

	w := walker{src: src}
	w.walk(tree.RootNode())
	sort.SliceStable(w.ranges, func(i, j int) bool {
		return lsp.ComparePositions(w.ranges[i].Start, w.ranges[j].Start) < 0
	})
	f.logger.Debug("rev %d: %d folding ranges", src.Rev(), len(w.ranges))
	return w.ranges, nil
}

// Apply computes the document's folding ranges and installs them. It reports
// false when the buffer changed while parsing.
func (f *Folder) Apply(ctx context.Context, d *lines.DocLines) (bool, error) {
	src := d.Buffer().Snapshot()
	ranges, err := f.FoldingRanges(ctx, src)
	if err != nil {
		return false, err
	}
	return d.SetFoldingRangesWithRev(ranges, src.Rev()), nil
}

type walker struct {
	src    *buffer.Snapshot
	ranges []lsp.FoldingRange
}

func (w *walker) walk(n *sitter.Node) {
	count := int(n.ChildCount())
	if count == 0 {
		return
	}

	opening, closing := -1, -1
	for i := 0; i < count; i++ {
		switch n.Child(i).Type() {
		case "{", "(":
			if opening < 0 {
				opening = i
			}
		case "}", ")":
			closing = i
		}
	}
	if opening >= 0 && closing > opening {
		start, end := n.Child(opening).EndPoint(), n.Child(closing).StartPoint()
		if start.Row < end.Row {
			kind := lsp.FoldingRangeKind("")
			if n.Type() == "import_spec_list" {
				kind = lsp.FoldingRangeKindImports
			}
			w.add(start, end, kind)
		}
	}

	w.comments(n, count)
	for i := 0; i < count; i++ {
		w.walk(n.Child(i))
	}
}

// comments folds runs of comment children on consecutive rows.
func (w *walker) comments(n *sitter.Node, count int) {
	first, last := -1, -1
	flush := func() {
		if first >= 0 && last > first {
			w.add(n.Child(first).EndPoint(), n.Child(last).EndPoint(), lsp.FoldingRangeKindComment)
		}
		first, last = -1, -1
	}
	for i := 0; i < count; i++ {
		c := n.Child(i)
		if c.Type() != "comment" {
			flush()
			continue
		}
		if last >= 0 && c.StartPoint().Row != n.Child(last).EndPoint().Row+1 {
			flush()
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	flush()
}

func (w *walker) add(start, end sitter.Point, kind lsp.FoldingRangeKind) {
	w.ranges = append(w.ranges, lsp.FoldingRange{
		Start: w.position(start),
		End:   w.position(end),
		Kind:  kind,
	})
}

// position converts a tree-sitter byte column to a UTF-16 position.
func (w *walker) position(p sitter.Point) lsp.Position {
	row := int(p.Row)
	return lsp.Position{Line: row, Character: lsp.ByteToUTF16(w.src.LineContent(row), int(p.Column))}
}
