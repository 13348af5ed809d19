// Package highlight computes syntax style spans for a document with chroma
// lexers and installs them on the line model.
package highlight

import (
	"fmt"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/google/uuid"

	"github.com/dshills/doclines/internal/lines"
	"github.com/dshills/doclines/internal/logging"
)

// Highlighter tokenizes buffer text with one chroma lexer.
type Highlighter struct {
	mu     sync.Mutex
	lexer  chroma.Lexer
	logger *logging.Logger

	// cache holds the last spans computed per document.
	cache map[uuid.UUID]cachedSpans
}

type cachedSpans struct {
	rev   uint64
	spans []lines.StyleSpan
}

// Option configures a Highlighter.
type Option func(*Highlighter)

// WithLanguage selects the lexer by language name or alias.
func WithLanguage(name string) Option {
	return func(h *Highlighter) {
		if l := lexers.Get(name); l != nil {
			h.lexer = l
		}
	}
}

// WithFilename selects the lexer matching a file name.
func WithFilename(name string) Option {
	return func(h *Highlighter) {
		if l := lexers.Match(name); l != nil {
			h.lexer = l
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(h *Highlighter) {
		h.logger = l
	}
}

// New creates a highlighter. Without a matching lexer it falls back to plain
// text, which produces no spans.
func New(opts ...Option) *Highlighter {
	h := &Highlighter{
		lexer:  lexers.Fallback,
		logger: logging.Nop(),
		cache:  make(map[uuid.UUID]cachedSpans),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.lexer = chroma.Coalesce(h.lexer)
	return h
}

// Language returns the lexer's language name.
func (h *Highlighter) Language() string {
	if cfg := h.lexer.Config(); cfg != nil {
		return cfg.Name
	}
	return ""
}

// Spans tokenizes text and returns byte spans of every classified token.
// Adjacent tokens of one class merge into one span; trailing line breaks are
// left unstyled.
func (h *Highlighter) Spans(text string) ([]lines.StyleSpan, error) {
	it, err := h.lexer.Tokenise(nil, text)
	if err != nil {
		return nil, fmt.Errorf("tokenise %s: %w", h.Language(), err)
	}

	var spans []lines.StyleSpan
	pos := 0
	for _, tok := range it.Tokens() {
		start := pos
		pos += len(tok.Value)
		class := ClassOf(tok.Type)
		if class == ClassNone || start >= len(text) {
			continue
		}
		end := start + len(strings.TrimRight(tok.Value, "\r\n"))
		end = min(end, len(text))
		if end <= start {
			continue
		}

		style := class.String()
		if n := len(spans); n > 0 && spans[n-1].End == start && spans[n-1].Style == style {
			spans[n-1].End = end
			continue
		}
		spans = append(spans, lines.StyleSpan{Start: start, End: end, Style: style})
	}
	return spans, nil
}

// Apply highlights the document's current text and installs the spans. It
// reports whether the model accepted them; it does not when the buffer
// moved on while tokenizing.
func (h *Highlighter) Apply(d *lines.DocLines) (bool, error) {
	src := d.Buffer().Snapshot()

	h.mu.Lock()
	c, ok := h.cache[d.ID()]
	h.mu.Unlock()

	spans := c.spans
	if !ok || c.rev != src.Rev() {
		var err error
		spans, err = h.Spans(src.Text())
		if err != nil {
			return false, err
		}
		h.mu.Lock()
		h.cache[d.ID()] = cachedSpans{rev: src.Rev(), spans: spans}
		h.mu.Unlock()
		h.logger.Debug("highlighted rev %d: %d spans", src.Rev(), len(spans))
	}
	return d.SetSyntaxStyles(spans, src.Rev()), nil
}

// Forget drops cached spans of a document.
func (h *Highlighter) Forget(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.cache, id)
}
