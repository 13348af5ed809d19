package lines

import "fmt"

// Interval is a half-open range [Start, End) of byte offsets or columns.
type Interval struct {
	Start int
	End   int
}

// Len returns End - Start.
func (iv Interval) Len() int {
	return iv.End - iv.Start
}

// IsEmpty reports whether the interval covers nothing.
func (iv Interval) IsEmpty() bool {
	return iv.Start >= iv.End
}

// Contains reports whether Start <= off < End.
func (iv Interval) Contains(off int) bool {
	return off >= iv.Start && off < iv.End
}

// Shift returns the interval moved by delta.
func (iv Interval) Shift(delta int) Interval {
	return Interval{Start: iv.Start + delta, End: iv.End + delta}
}

// String returns a human-readable representation of the interval.
func (iv Interval) String() string {
	return fmt.Sprintf("[%d,%d)", iv.Start, iv.End)
}
