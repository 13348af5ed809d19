// Package buffer provides the text-storage primitive consumed by the line
// model: document content, a line index, and revision tracking.
//
// The buffer package provides:
//
//   - Thread-safe access via sync.RWMutex
//   - Immutable snapshots for consistent reads during a rebuild
//   - Edit application that reports a Delta describing the change
//   - Line ending normalization (LF or CRLF)
//   - Monotonic revision numbers for stale-result detection
//
// Basic usage:
//
//	buf := buffer.NewFromString("fn a(){\n  1\n}\n")
//
//	delta, err := buf.Apply(buffer.NewInsert(3, "x"))
//	if err != nil {
//	    return err
//	}
//
//	snap := buf.Snapshot()
//	line := snap.LineOfOffset(delta.NewEnd())
//
// Line model:
//
// A line owns its line ending. A trailing line ending terminates the last
// line instead of opening an empty one, so "a\nb\n" has two lines and an
// empty buffer has exactly one.
package buffer
