package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dshills/doclines/internal/config"
	"github.com/dshills/doclines/internal/lines"
)

type dumpOptions struct {
	wrap     int
	collapse bool
	styles   bool
}

func newDumpCommand(a *app) *cobra.Command {
	var opts dumpOptions
	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Print the origin, folded, and visual lines of a file",
		Long: `Print the line model of a file.

Origin lines are the raw lines with their start offsets. Folded lines are
rendered units after collapsed ranges are merged and overlays composed.
Visual lines are the wrapped rows a viewport would draw.

Examples:
  # Print the model of a Go file
  doclines dump main.go

  # Wrap at 40 cells and collapse every folding range
  doclines dump main.go --wrap 40 --collapse`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd, a, args[0], opts)
		},
	}

	cmd.Flags().IntVarP(&opts.wrap, "wrap", "w", 0, "Wrap at this many cells (overrides the configured wrap)")
	cmd.Flags().BoolVar(&opts.collapse, "collapse", false, "Collapse every folding range")
	cmd.Flags().BoolVar(&opts.styles, "styles", false, "Print syntax style spans of each folded line")
	return cmd
}

func runDump(cmd *cobra.Command, a *app, path string, opts dumpOptions) error {
	editor := a.cfg.Editor
	if opts.wrap > 0 {
		editor.WrapMode = config.WrapColumn
		editor.WrapWidth = opts.wrap
	}

	d, err := openDocument(cmd.Context(), path, editor, a.logger)
	if err != nil {
		return err
	}
	if opts.collapse {
		n := d.collapseAll()
		a.logger.Debug("collapsed %d ranges", n)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "file: %s  language: %s  eol: %s\n", path, d.hl.Language(), d.doc.Buffer().LineEnding())
	dumpSnapshot(out, d.doc.Snapshot(), opts.styles)
	return nil
}

// dumpSnapshot writes the three line levels of s.
func dumpSnapshot(w io.Writer, s *lines.Snapshot, styles bool) {
	fmt.Fprintf(w, "rev: %d  len: %d\n", s.Rev, s.Len)

	fmt.Fprintf(w, "origin (%d):\n", len(s.Origin))
	for _, ol := range s.Origin {
		fmt.Fprintf(w, "  %4d  @%d\n", ol.LineIndex, ol.StartOffset)
	}

	fmt.Fprintf(w, "folded (%d):\n", len(s.Folded))
	for _, fl := range s.Folded {
		fmt.Fprintf(w, "  %4d  lines %d-%d  %s  %q\n",
			fl.LineIndex, fl.OriginLineStart, fl.OriginLineEnd, fl.OriginInterval, fl.Text.Text)
		if !styles {
			continue
		}
		for _, sp := range fl.Styles {
			fmt.Fprintf(w, "          [%d,%d) %s\n", sp.Start, sp.End, sp.Style)
		}
	}

	fmt.Fprintf(w, "visual (%d):\n", len(s.Visual))
	for _, vl := range s.Visual {
		text := s.Folded[vl.FoldedLine].Text.Text
		row := text[min(vl.VisualInterval.Start, len(text)):min(vl.VisualInterval.End, len(text))]
		fmt.Fprintf(w, "  %4d  unit %d.%d  %s  %q\n",
			vl.LineIndex, vl.FoldedLine, vl.SubIndex, vl.OriginInterval, row)
	}
}
