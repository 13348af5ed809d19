package config

import (
	"errors"
	"fmt"

	"github.com/dshills/doclines/internal/lsp"
)

// WrapMode selects how composed lines are split into visual lines.
type WrapMode string

const (
	// WrapNone keeps every rendered unit on one visual line.
	WrapNone WrapMode = "none"
	// WrapColumn wraps at WrapWidth cells.
	WrapColumn WrapMode = "column"
)

// Editor holds the settings that shape the line model.
type Editor struct {
	EnableInlayHints       bool     `toml:"enable_inlay_hints" yaml:"enable_inlay_hints"`
	EnableErrorLens        bool     `toml:"enable_error_lens" yaml:"enable_error_lens"`
	EnableCompletionLens   bool     `toml:"enable_completion_lens" yaml:"enable_completion_lens"`
	EnableInlineCompletion bool     `toml:"enable_inline_completion" yaml:"enable_inline_completion"`
	WrapMode               WrapMode `toml:"wrap_mode" yaml:"wrap_mode"`
	WrapWidth              int      `toml:"wrap_width" yaml:"wrap_width"`
	TabWidth               int      `toml:"tab_width" yaml:"tab_width"`
	LineHeight             int      `toml:"line_height" yaml:"line_height"`
	FontSize               int      `toml:"font_size" yaml:"font_size"`

	// ErrorLensSeverity is the threshold: only diagnostics strictly more
	// severe than it are rendered inline.
	ErrorLensSeverity string `toml:"error_lens_severity" yaml:"error_lens_severity"`

	// FoldPlaceholder replaces the hidden text of a collapsed range.
	FoldPlaceholder string `toml:"fold_placeholder" yaml:"fold_placeholder"`
}

// File is the on-disk configuration document.
type File struct {
	LogLevel string `toml:"log_level" yaml:"log_level"`
	Editor   Editor `toml:"editor" yaml:"editor"`
}

// DefaultEditor returns the built-in editor settings.
func DefaultEditor() Editor {
	return Editor{
		EnableInlayHints:       true,
		EnableErrorLens:        true,
		EnableCompletionLens:   true,
		EnableInlineCompletion: true,
		WrapMode:               WrapNone,
		WrapWidth:              80,
		TabWidth:               4,
		LineHeight:             1,
		FontSize:               14,
		ErrorLensSeverity:      "hint",
		FoldPlaceholder:        "...",
	}
}

// Default returns the built-in configuration document.
func Default() File {
	return File{
		LogLevel: "info",
		Editor:   DefaultEditor(),
	}
}

// ErrorLensThreshold returns the parsed severity threshold.
// Invalid values fall back to hint; Validate reports them.
func (e Editor) ErrorLensThreshold() lsp.DiagnosticSeverity {
	s, err := lsp.ParseDiagnosticSeverity(e.ErrorLensSeverity)
	if err != nil {
		return lsp.DiagnosticSeverityHint
	}
	return s
}

// EffectiveWrapWidth returns the wrap width in cells, or 0 when wrapping is off.
func (e Editor) EffectiveWrapWidth() int {
	if e.WrapMode != WrapColumn {
		return 0
	}
	return e.WrapWidth
}

// Validate checks the settings and returns every problem found.
func (e Editor) Validate() error {
	var errs []error

	switch e.WrapMode {
	case WrapNone:
	case WrapColumn:
		if e.WrapWidth < 1 {
			errs = append(errs, &ValidationError{Path: "editor.wrap_width", Message: "must be positive in column mode", Value: e.WrapWidth})
		}
	default:
		errs = append(errs, &ValidationError{Path: "editor.wrap_mode", Message: "must be none or column", Value: e.WrapMode})
	}

	if e.TabWidth < 1 || e.TabWidth > 16 {
		errs = append(errs, &ValidationError{Path: "editor.tab_width", Message: "must be between 1 and 16", Value: e.TabWidth})
	}
	if e.LineHeight < 1 {
		errs = append(errs, &ValidationError{Path: "editor.line_height", Message: "must be positive", Value: e.LineHeight})
	}
	if e.FontSize < 1 {
		errs = append(errs, &ValidationError{Path: "editor.font_size", Message: "must be positive", Value: e.FontSize})
	}
	if _, err := lsp.ParseDiagnosticSeverity(e.ErrorLensSeverity); err != nil {
		errs = append(errs, &ValidationError{Path: "editor.error_lens_severity", Message: err.Error(), Value: e.ErrorLensSeverity})
	}
	if e.FoldPlaceholder == "" {
		errs = append(errs, &ValidationError{Path: "editor.fold_placeholder", Message: "must not be empty", Value: e.FoldPlaceholder})
	}

	return errors.Join(errs...)
}

// String returns a short summary for logs.
func (e Editor) String() string {
	return fmt.Sprintf("wrap=%s/%d tab=%d hints=%v lens=%v", e.WrapMode, e.WrapWidth, e.TabWidth, e.EnableInlayHints, e.EnableErrorLens)
}
