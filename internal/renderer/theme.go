package renderer

import (
	"github.com/gdamore/tcell/v2"

	"github.com/dshills/doclines/internal/highlight"
	"github.com/dshills/doclines/internal/lines"
	"github.com/dshills/doclines/internal/lsp"
)

// Theme maps style names and phantom kinds to terminal styles.
type Theme struct {
	Name string

	Default  tcell.Style
	Gutter   tcell.Style
	FoldIcon tcell.Style

	// Tokens maps syntax style names to styles.
	Tokens map[string]tcell.Style

	// Phantoms maps synthetic text kinds to styles. Diagnostics are styled
	// by severity instead.
	Phantoms map[lines.PhantomKind]tcell.Style

	// Severities maps diagnostic severities to styles.
	Severities map[lsp.DiagnosticSeverity]tcell.Style
}

func rgb(r, g, b int32) tcell.Color {
	return tcell.NewRGBColor(r, g, b)
}

// DefaultTheme returns a dark theme.
func DefaultTheme() *Theme {
	bg := rgb(30, 30, 30)
	base := tcell.StyleDefault.Background(bg).Foreground(rgb(212, 212, 212))
	fg := func(c tcell.Color) tcell.Style { return base.Foreground(c) }

	keyword := rgb(86, 156, 214)
	return &Theme{
		Name:     "Default Dark",
		Default:  base,
		Gutter:   fg(rgb(133, 133, 133)),
		FoldIcon: fg(rgb(197, 197, 197)),
		Tokens: map[string]tcell.Style{
			highlight.ClassComment.String():     fg(rgb(106, 153, 85)).Italic(true),
			highlight.ClassString.String():      fg(rgb(206, 145, 120)),
			highlight.ClassNumber.String():      fg(rgb(181, 206, 168)),
			highlight.ClassKeyword.String():     fg(keyword),
			highlight.ClassType.String():        fg(rgb(78, 201, 176)),
			highlight.ClassConstant.String():    fg(rgb(79, 193, 255)),
			highlight.ClassFunction.String():    fg(rgb(220, 220, 170)),
			highlight.ClassBuiltin.String():     fg(keyword),
			highlight.ClassOperator.String():    fg(rgb(212, 212, 212)),
			highlight.ClassPunctuation.String(): fg(rgb(212, 212, 212)),
		},
		Phantoms: map[lines.PhantomKind]tcell.Style{
			lines.PhantomInlayHint:        fg(rgb(150, 150, 150)).Background(rgb(45, 45, 45)),
			lines.PhantomCompletionLens:   fg(rgb(110, 110, 110)).Italic(true),
			lines.PhantomInlineCompletion: fg(rgb(110, 110, 110)).Italic(true),
			lines.PhantomPreedit:          base.Underline(true),
			lines.PhantomFoldPlaceholder:  fg(rgb(197, 197, 197)).Background(rgb(60, 60, 60)),
		},
		Severities: map[lsp.DiagnosticSeverity]tcell.Style{
			lsp.DiagnosticSeverityError:       fg(rgb(244, 71, 71)),
			lsp.DiagnosticSeverityWarning:     fg(rgb(205, 173, 0)),
			lsp.DiagnosticSeverityInformation: fg(rgb(55, 148, 255)),
			lsp.DiagnosticSeverityHint:        fg(rgb(150, 150, 150)),
		},
	}
}

// Token returns the style of a syntax style name.
func (t *Theme) Token(name string) tcell.Style {
	if s, ok := t.Tokens[name]; ok {
		return s
	}
	return t.Default
}

// Phantom returns the style of a piece of synthetic text.
func (t *Theme) Phantom(ph lines.PhantomText) tcell.Style {
	if ph.Kind == lines.PhantomDiagnostic {
		if s, ok := t.Severities[ph.Severity]; ok {
			return s
		}
		return t.Severities[lsp.DiagnosticSeverityError]
	}
	if s, ok := t.Phantoms[ph.Kind]; ok {
		return s
	}
	return t.Default
}
