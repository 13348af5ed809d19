package renderer

import (
	"testing"

	"github.com/dshills/doclines/internal/lines"
	"github.com/dshills/doclines/internal/lsp"
)

func TestThemeToken(t *testing.T) {
	theme := DefaultTheme()
	if theme.Token("keyword") == theme.Default {
		t.Errorf("expected keyword style to differ from default")
	}
	if got := theme.Token("no-such-style"); got != theme.Default {
		t.Errorf("Token() for unknown name = %v, want default", got)
	}
}

func TestThemePhantom(t *testing.T) {
	theme := DefaultTheme()
	tests := []struct {
		name string
		ph   lines.PhantomText
		want lsp.DiagnosticSeverity
	}{
		{"warning", lines.PhantomText{Kind: lines.PhantomDiagnostic, Severity: lsp.DiagnosticSeverityWarning}, lsp.DiagnosticSeverityWarning},
		{"hint", lines.PhantomText{Kind: lines.PhantomDiagnostic, Severity: lsp.DiagnosticSeverityHint}, lsp.DiagnosticSeverityHint},
		{"unset severity", lines.PhantomText{Kind: lines.PhantomDiagnostic}, lsp.DiagnosticSeverityError},
	}
	for _, tt := range tests {
		if got := theme.Phantom(tt.ph); got != theme.Severities[tt.want] {
			t.Errorf("%s: Phantom() = %v, want %s style", tt.name, got, tt.want)
		}
	}

	lens := lines.PhantomText{Kind: lines.PhantomCompletionLens}
	if got := theme.Phantom(lens); got != theme.Phantoms[lines.PhantomCompletionLens] {
		t.Errorf("Phantom(lens) = %v, want completion lens style", got)
	}
}

func TestCellX(t *testing.T) {
	cells := []cell{{col: 0, x: 0, width: 4}, {col: 1, x: 4, width: 1}, {col: 2, x: 5, width: 2}}
	tests := []struct {
		col  int
		want int
	}{
		{0, 0},
		{1, 4},
		{2, 5},
		{5, 7},
	}
	for _, tt := range tests {
		if got := cellX(cells, tt.col); got != tt.want {
			t.Errorf("cellX(%d) = %d, want %d", tt.col, got, tt.want)
		}
	}
	if got := cellX(nil, 3); got != 0 {
		t.Errorf("cellX() on empty row = %d, want 0", got)
	}
}

func TestRunesOf(t *testing.T) {
	tests := []struct {
		text string
		main rune
		comb int
	}{
		{"a", 'a', 0},
		{"é", 'e', 1},
		{"\t", ' ', 0},
		{"", ' ', 0},
	}
	for _, tt := range tests {
		main, comb := runesOf(tt.text)
		if main != tt.main || len(comb) != tt.comb {
			t.Errorf("runesOf(%q) = %q, %d combining, want %q, %d", tt.text, main, len(comb), tt.main, tt.comb)
		}
	}
}
