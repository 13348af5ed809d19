package buffer

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Errors returned by buffer operations.
var (
	ErrOffsetOutOfRange = errors.New("offset out of range")
	ErrRangeInvalid     = errors.New("invalid range")
)

// LineEnding specifies the line ending style.
type LineEnding uint8

const (
	LineEndingLF   LineEnding = iota // Unix: \n
	LineEndingCRLF                   // Windows: \r\n
)

// String returns the string representation of the line ending.
func (le LineEnding) String() string {
	switch le {
	case LineEndingCRLF:
		return "\\r\\n"
	default:
		return "\\n"
	}
}

// Sequence returns the actual line ending characters.
func (le LineEnding) Sequence() string {
	switch le {
	case LineEndingCRLF:
		return "\r\n"
	default:
		return "\n"
	}
}

var revisionCounter atomic.Uint64

// nextRevision returns a process-wide unique, increasing revision number.
func nextRevision() uint64 {
	return revisionCounter.Add(1)
}

// Buffer holds the document text and its line index.
// All methods are thread-safe.
type Buffer struct {
	mu         sync.RWMutex
	snap       *Snapshot
	lineEnding LineEnding
}

// New creates a new empty buffer.
func New(opts ...Option) *Buffer {
	b := &Buffer{lineEnding: LineEndingLF}
	for _, opt := range opts {
		opt(b)
	}
	b.snap = newSnapshot("", nextRevision(), b.lineEnding)
	return b
}

// NewFromString creates a buffer with initial content.
// Line endings are normalized to the buffer's style.
func NewFromString(s string, opts ...Option) *Buffer {
	b := New(opts...)
	b.snap = newSnapshot(normalizeLineEndings(s, b.lineEnding), b.snap.rev, b.lineEnding)
	return b
}

// normalizeLineEndings converts all line endings to the given style.
func normalizeLineEndings(s string, le LineEnding) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	if le == LineEndingCRLF {
		s = strings.ReplaceAll(s, "\n", "\r\n")
	}
	return s
}

// Snapshot returns the current immutable view of the buffer.
func (b *Buffer) Snapshot() *Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snap
}

// Text returns the full buffer content.
func (b *Buffer) Text() string {
	return b.Snapshot().Text()
}

// Len returns the total byte length of the buffer.
func (b *Buffer) Len() int {
	return b.Snapshot().Len()
}

// Rev returns the current revision.
func (b *Buffer) Rev() uint64 {
	return b.Snapshot().Rev()
}

// LineEnding returns the buffer's line ending style.
func (b *Buffer) LineEnding() LineEnding {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lineEnding
}

// Apply applies a single edit and returns the resulting delta.
// The new text is normalized to the buffer's line ending style.
func (b *Buffer) Apply(edit Edit) (Delta, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	old := b.snap
	if !edit.Range.IsValid() {
		return Delta{}, fmt.Errorf("%w: %s", ErrRangeInvalid, edit.Range)
	}
	if edit.Range.End > len(old.text) {
		return Delta{}, fmt.Errorf("%w: %s exceeds length %d", ErrOffsetOutOfRange, edit.Range, len(old.text))
	}

	inserted := normalizeLineEndings(edit.NewText, b.lineEnding)
	text := old.text[:edit.Range.Start] + inserted + old.text[edit.Range.End:]
	b.snap = newSnapshot(text, nextRevision(), b.lineEnding)

	return Delta{
		Start:    edit.Range.Start,
		OldEnd:   edit.Range.End,
		Inserted: inserted,
		OldLen:   len(old.text),
		NewLen:   len(text),
		OldRev:   old.rev,
		NewRev:   b.snap.rev,
	}, nil
}

// SetLineEnding changes the line ending style and rewrites the content.
// It reports whether anything changed.
func (b *Buffer) SetLineEnding(le LineEnding) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.lineEnding == le {
		return false
	}
	b.lineEnding = le
	b.snap = newSnapshot(normalizeLineEndings(b.snap.text, le), nextRevision(), le)
	return true
}

// Reload replaces the whole content.
func (b *Buffer) Reload(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snap = newSnapshot(normalizeLineEndings(text, b.lineEnding), nextRevision(), b.lineEnding)
}

// Snapshot is a read-only view of a buffer at one revision.
// It is safe for concurrent access.
type Snapshot struct {
	text       string
	lineStarts []int
	rev        uint64
	lineEnding LineEnding
}

func newSnapshot(text string, rev uint64, le LineEnding) *Snapshot {
	return &Snapshot{
		text:       text,
		lineStarts: indexLines(text),
		rev:        rev,
		lineEnding: le,
	}
}

// indexLines returns the start offset of every line. A trailing line ending
// terminates the last line rather than opening an empty one.
func indexLines(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' && i+1 < len(text) {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// Text returns the full content.
func (s *Snapshot) Text() string { return s.text }

// Len returns the byte length of the content.
func (s *Snapshot) Len() int { return len(s.text) }

// Rev returns the revision the snapshot was taken at.
func (s *Snapshot) Rev() uint64 { return s.rev }

// LineEnding returns the line ending style.
func (s *Snapshot) LineEnding() LineEnding { return s.lineEnding }

// NumLines returns the number of lines. An empty buffer has one line.
func (s *Snapshot) NumLines() int { return len(s.lineStarts) }

// OffsetOfLine returns the start offset of a line. Lines past the end map
// to the buffer length.
func (s *Snapshot) OffsetOfLine(line int) int {
	if line <= 0 {
		return 0
	}
	if line >= len(s.lineStarts) {
		return len(s.text)
	}
	return s.lineStarts[line]
}

// LineEnd returns the end offset of a line including its line ending.
func (s *Snapshot) LineEnd(line int) int {
	return s.OffsetOfLine(line + 1)
}

// LineOfOffset returns the line containing offset. Offsets past the end
// belong to the last line.
func (s *Snapshot) LineOfOffset(offset int) int {
	i := sort.Search(len(s.lineStarts), func(i int) bool {
		return s.lineStarts[i] > offset
	})
	if i == 0 {
		return 0
	}
	return i - 1
}

// LineEndingLen returns the byte length of the line ending terminating line.
func (s *Snapshot) LineEndingLen(line int) int {
	end := s.LineEnd(line)
	start := s.OffsetOfLine(line)
	if end == start || s.text[end-1] != '\n' {
		return 0
	}
	if end-2 >= start && s.text[end-2] == '\r' {
		return 2
	}
	return 1
}

// LineContent returns the text of a line without its line ending.
func (s *Snapshot) LineContent(line int) string {
	start := s.OffsetOfLine(line)
	end := s.LineEnd(line) - s.LineEndingLen(line)
	return s.text[start:end]
}

// Slice returns the text in [start, end), clamped to the content.
func (s *Snapshot) Slice(start, end int) string {
	start = max(0, min(start, len(s.text)))
	end = max(start, min(end, len(s.text)))
	return s.text[start:end]
}
