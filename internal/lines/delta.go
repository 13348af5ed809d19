package lines

import (
	"fmt"

	"github.com/dshills/doclines/internal/engine/buffer"
)

// SuffixShift is applied to every reused line after the recomputed region.
type SuffixShift struct {
	Lines int
	Bytes int
}

// DeltaPlan classifies the origin lines of a document around one edit.
//
// CopyPrefix and CopySuffix index the old line vector; RecomputeRange
// indexes the new one. Prefix lines are reused as-is, suffix lines are
// reused with CopySuffixShift applied, and only RecomputeRange is re-derived
// from the buffer.
type DeltaPlan struct {
	RecomputeFirstLine bool
	CopyPrefix         Interval
	CopyPrefixShift    int
	RecomputeRange     Interval
	RecomputeOffsetEnd int
	CopySuffix         Interval
	CopySuffixShift    SuffixShift
	RecomputeLastLine  bool
}

// String returns a compact representation for logs.
func (p DeltaPlan) String() string {
	return fmt.Sprintf("first=%v prefix=%s recompute=%s end=%d suffix=%s shift=%+v last=%v",
		p.RecomputeFirstLine, p.CopyPrefix, p.RecomputeRange, p.RecomputeOffsetEnd,
		p.CopySuffix, p.CopySuffixShift, p.RecomputeLastLine)
}

// validateDelta rejects edits that do not fit a document of oldLen bytes or
// that disagree with the post-edit source.
func validateDelta(oldLen int, d buffer.Delta, src LineSource) error {
	if d.Start < 0 || d.Start > d.OldEnd || d.OldEnd > oldLen {
		return fmt.Errorf("%w: replaced [%d,%d) outside document of length %d", ErrInvalidDelta, d.Start, d.OldEnd, oldLen)
	}
	if d.OldLen != oldLen {
		return fmt.Errorf("%w: delta built against length %d, model has %d", ErrInvalidDelta, d.OldLen, oldLen)
	}
	want := oldLen - (d.OldEnd - d.Start) + d.InsertLen()
	if d.NewLen != want || src.Len() != want {
		return fmt.Errorf("%w: expected new length %d, delta says %d, buffer has %d", ErrInvalidDelta, want, d.NewLen, src.Len())
	}
	return nil
}

// PlanDelta works out which origin lines an edit invalidates. old describes
// the document before the edit, src the document after it.
func PlanDelta(old []OriginLine, oldLen int, d buffer.Delta, src LineSource) (DeltaPlan, error) {
	if err := validateDelta(oldLen, d, src); err != nil {
		return DeltaPlan{}, err
	}

	first, err := originLineOfOffset(old, d.Start)
	if err != nil {
		return DeltaPlan{}, err
	}

	plan := DeltaPlan{
		RecomputeFirstLine: first == 0,
		CopyPrefix:         Interval{Start: 0, End: first},
		RecomputeOffsetEnd: d.NewEnd(),
	}

	shift := d.LenDelta()
	n := src.NumLines()
	for k := first; ; k++ {
		if k >= n-1 {
			plan.RecomputeRange = Interval{Start: first, End: n}
			plan.CopySuffix = Interval{Start: len(old), End: len(old)}
			plan.CopySuffixShift = SuffixShift{Lines: n - len(old), Bytes: shift}
			plan.RecomputeLastLine = true
			return plan, nil
		}

		end := src.OffsetOfLine(k + 1)
		if end < plan.RecomputeOffsetEnd {
			continue
		}
		j, ok := originLineStartingAt(old, end-shift)
		if !ok {
			continue
		}
		if (k+1)+(len(old)-j) != n {
			return DeltaPlan{}, invariantf("PlanDelta", end, "suffix from old line %d leaves %d lines, buffer has %d", j, (k+1)+(len(old)-j), n)
		}
		plan.RecomputeRange = Interval{Start: first, End: k + 1}
		plan.CopySuffix = Interval{Start: j, End: len(old)}
		plan.CopySuffixShift = SuffixShift{Lines: k + 1 - j, Bytes: shift}
		return plan, nil
	}
}

// ApplyPlan produces the post-edit origin line vector.
func ApplyPlan(old []OriginLine, plan DeltaPlan, src LineSource) []OriginLine {
	out := make([]OriginLine, 0, plan.CopyPrefix.Len()+plan.RecomputeRange.Len()+plan.CopySuffix.Len())
	out = append(out, old[plan.CopyPrefix.Start:plan.CopyPrefix.End]...)
	for i := plan.RecomputeRange.Start; i < plan.RecomputeRange.End; i++ {
		out = append(out, OriginLine{LineIndex: i, StartOffset: src.OffsetOfLine(i)})
	}
	for _, ol := range old[plan.CopySuffix.Start:plan.CopySuffix.End] {
		out = append(out, OriginLine{
			LineIndex:   ol.LineIndex + plan.CopySuffixShift.Lines,
			StartOffset: ol.StartOffset + plan.CopySuffixShift.Bytes,
		})
	}
	return out
}
