package buffer

import "fmt"

// Edit represents a text edit operation.
// It specifies a range to replace and the new text.
type Edit struct {
	Range   Range  // The range to replace
	NewText string // The replacement text
}

// NewEdit creates a new Edit.
func NewEdit(r Range, newText string) Edit {
	return Edit{Range: r, NewText: newText}
}

// NewInsert creates an Edit that inserts text at a position.
func NewInsert(offset int, text string) Edit {
	return Edit{
		Range:   Range{Start: offset, End: offset},
		NewText: text,
	}
}

// NewDelete creates an Edit that deletes a range of text.
func NewDelete(start, end int) Edit {
	return Edit{
		Range:   Range{Start: start, End: end},
		NewText: "",
	}
}

// String returns a human-readable representation of the edit.
func (e Edit) String() string {
	if e.Range.IsEmpty() {
		return fmt.Sprintf("Insert(%d, %q)", e.Range.Start, e.NewText)
	}
	if e.NewText == "" {
		return fmt.Sprintf("Delete%s", e.Range.String())
	}
	return fmt.Sprintf("Replace%s with %q", e.Range.String(), e.NewText)
}

// IsNoOp returns true if this edit does nothing.
func (e Edit) IsNoOp() bool {
	return e.Range.IsEmpty() && e.NewText == ""
}

// Delta describes an applied edit in terms of the buffer before and after it.
//
// The replaced interval [Start, OldEnd) is expressed in old coordinates; the
// inserted text occupies [Start, NewEnd()) in new coordinates.
type Delta struct {
	Start    int
	OldEnd   int
	Inserted string
	OldLen   int
	NewLen   int
	OldRev   uint64
	NewRev   uint64
}

// InsertLen returns the byte length of the inserted text.
func (d Delta) InsertLen() int {
	return len(d.Inserted)
}

// NewEnd returns the end of the inserted text in new coordinates.
func (d Delta) NewEnd() int {
	return d.Start + len(d.Inserted)
}

// LenDelta returns the change in buffer length.
func (d Delta) LenDelta() int {
	return len(d.Inserted) - (d.OldEnd - d.Start)
}

// IsSimpleInsert reports whether the edit inserted text without removing any.
func (d Delta) IsSimpleInsert() bool {
	return d.Start == d.OldEnd && d.Inserted != ""
}

// Transform maps an offset in the old buffer into the new buffer.
//
// Offsets inside the replaced interval collapse to the start of the inserted
// text, or to its end when after is set. An offset exactly at an insertion
// point stays put unless after is set.
func (d Delta) Transform(offset int, after bool) int {
	switch {
	case offset < d.Start:
		return offset
	case offset > d.OldEnd:
		return offset + d.LenDelta()
	case offset == d.OldEnd && d.OldEnd > d.Start:
		return offset + d.LenDelta()
	case after:
		return d.NewEnd()
	default:
		return d.Start
	}
}

// String returns a human-readable representation of the delta.
func (d Delta) String() string {
	return fmt.Sprintf("Delta{[%d:%d) -> %q, rev %d->%d}", d.Start, d.OldEnd, d.Inserted, d.OldRev, d.NewRev)
}
