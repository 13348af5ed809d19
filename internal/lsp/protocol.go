package lsp

import "fmt"

// DocumentURI represents a URI as used in LSP.
// It is typically a file:// URI.
type DocumentURI string

// Position in a text document expressed as zero-based line and character offset.
// Character offset is measured in UTF-16 code units, as LSP defines it.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// String returns a human-readable representation of the position.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Character)
}

// Range in a text document expressed as start and end positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Location represents a location inside a resource.
type Location struct {
	URI   DocumentURI `json:"uri"`
	Range Range       `json:"range"`
}

// Diagnostic represents a diagnostic, such as a compiler error or warning.
type Diagnostic struct {
	Range    Range              `json:"range"`
	Severity DiagnosticSeverity `json:"severity,omitempty"`
	Code     any                `json:"code,omitempty"` // string or number
	Source   string             `json:"source,omitempty"`
	Message  string             `json:"message"`
}

// DiagnosticSeverity represents the severity of a diagnostic.
// Lower values are more severe.
type DiagnosticSeverity int

const (
	DiagnosticSeverityError       DiagnosticSeverity = 1
	DiagnosticSeverityWarning     DiagnosticSeverity = 2
	DiagnosticSeverityInformation DiagnosticSeverity = 3
	DiagnosticSeverityHint        DiagnosticSeverity = 4
)

// String returns the lowercase name of the severity.
func (s DiagnosticSeverity) String() string {
	switch s {
	case DiagnosticSeverityError:
		return "error"
	case DiagnosticSeverityWarning:
		return "warning"
	case DiagnosticSeverityInformation:
		return "information"
	case DiagnosticSeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

// ParseDiagnosticSeverity parses a severity name.
func ParseDiagnosticSeverity(s string) (DiagnosticSeverity, error) {
	switch s {
	case "error":
		return DiagnosticSeverityError, nil
	case "warning", "warn":
		return DiagnosticSeverityWarning, nil
	case "information", "info":
		return DiagnosticSeverityInformation, nil
	case "hint":
		return DiagnosticSeverityHint, nil
	default:
		return 0, fmt.Errorf("unknown diagnostic severity %q", s)
	}
}

// InlayHintKind classifies an inlay hint.
type InlayHintKind int

const (
	InlayHintKindType      InlayHintKind = 1
	InlayHintKindParameter InlayHintKind = 2
)

// InlayHintLabelPart is one piece of a multi-part inlay hint label.
type InlayHintLabelPart struct {
	Value    string    `json:"value"`
	Tooltip  string    `json:"tooltip,omitempty"`
	Location *Location `json:"location,omitempty"`
}

// InlayHint is an inline annotation rendered at a position.
// Label is used when Parts is empty.
type InlayHint struct {
	Position Position             `json:"position"`
	Label    string               `json:"-"`
	Parts    []InlayHintLabelPart `json:"-"`
	Kind     InlayHintKind        `json:"kind,omitempty"`
}

// Text returns the label text, joining multi-part labels.
func (h InlayHint) Text() string {
	if len(h.Parts) == 0 {
		return h.Label
	}
	var s string
	for _, p := range h.Parts {
		s += p.Value
	}
	return s
}

// Target returns the first navigation target among the label parts.
func (h InlayHint) Target() (Location, bool) {
	for _, p := range h.Parts {
		if p.Location != nil {
			return *p.Location, true
		}
	}
	return Location{}, false
}

// FoldingRangeKind classifies a folding range.
type FoldingRangeKind string

const (
	FoldingRangeKindComment FoldingRangeKind = "comment"
	FoldingRangeKindImports FoldingRangeKind = "imports"
	FoldingRangeKindRegion  FoldingRangeKind = "region"
)

// FoldingRange is a foldable span reported by analysis.
type FoldingRange struct {
	Start Position         `json:"start"`
	End   Position         `json:"end"`
	Kind  FoldingRangeKind `json:"kind,omitempty"`
}

// Range returns the span without its kind.
func (f FoldingRange) Range() Range {
	return Range{Start: f.Start, End: f.End}
}
