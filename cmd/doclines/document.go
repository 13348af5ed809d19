package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/doclines/internal/config"
	"github.com/dshills/doclines/internal/engine/buffer"
	"github.com/dshills/doclines/internal/highlight"
	"github.com/dshills/doclines/internal/lines"
	"github.com/dshills/doclines/internal/logging"
	"github.com/dshills/doclines/internal/lsp"
	"github.com/dshills/doclines/internal/shaping"
	"github.com/dshills/doclines/internal/syntax"
)

// document is an opened file with its analysis providers.
type document struct {
	path   string
	doc    *lines.DocLines
	hl     *highlight.Highlighter
	folder *syntax.Folder
}

// openDocument reads path and builds its line model, keeping the file's
// dominant line ending. Syntax styles come from chroma for any file;
// folding ranges come from tree-sitter for Go.
func openDocument(ctx context.Context, path string, cfg config.Editor, logger *logging.Logger, opts ...lines.Option) (*document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	text := string(data)
	buf := buffer.NewFromString(text, buffer.WithDetectedLineEnding(text))

	base := []lines.Option{
		lines.WithConfig(cfg),
		lines.WithShaper(shaping.New()),
		lines.WithLogger(logger),
	}
	d := &document{
		path: path,
		doc:  lines.New(buf, append(base, opts...)...),
		hl:   highlight.New(highlight.WithFilename(path), highlight.WithLogger(logger)),
	}
	if filepath.Ext(path) == ".go" {
		d.folder = syntax.NewFolder(syntax.WithLogger(logger))
	}
	if err := d.analyze(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// analyze refreshes syntax styles and folding ranges.
func (d *document) analyze(ctx context.Context) error {
	if _, err := d.hl.Apply(d.doc); err != nil {
		return fmt.Errorf("highlight %s: %w", d.path, err)
	}
	if d.folder == nil {
		return nil
	}
	if _, err := d.folder.Apply(ctx, d.doc); err != nil {
		return fmt.Errorf("fold %s: %w", d.path, err)
	}
	return nil
}

// collapseAll collapses every folding range and returns how many changed.
func (d *document) collapseAll() int {
	n := 0
	seen := make(map[lsp.Position]bool)
	for _, r := range d.doc.Folding() {
		// Ranges are toggled by start position, so only the first of
		// several sharing a start can be reached.
		if seen[r.Start] || r.Status == lines.FoldCollapsed {
			seen[r.Start] = true
			continue
		}
		seen[r.Start] = true
		item := lines.FoldingDisplayItem{Position: r.Start, Kind: lines.DisplayUnfoldStart}
		if d.doc.UpdateFolding(lines.FoldByItem{Item: item}) {
			n++
		}
	}
	return n
}
