package lines

import (
	"errors"
	"fmt"
)

// Errors returned by the line model.
var (
	// ErrInvalidDelta indicates an edit that does not fit the current buffer.
	ErrInvalidDelta = errors.New("invalid delta")

	// ErrOffsetOutOfRange indicates a buffer offset past the end of the document.
	ErrOffsetOutOfRange = errors.New("offset out of range")

	// ErrLineOutOfRange indicates a visual line index with no line.
	ErrLineOutOfRange = errors.New("visual line out of range")
)

// InvariantError reports a broken internal partition: a lookup that must
// always succeed found nothing. The model that produced it can no longer
// map positions reliably.
type InvariantError struct {
	Op     string
	Offset int
	Detail string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("line model invariant violated in %s at offset %d: %s", e.Op, e.Offset, e.Detail)
}

func invariantf(op string, offset int, format string, args ...any) error {
	return &InvariantError{Op: op, Offset: offset, Detail: fmt.Sprintf(format, args...)}
}

// IsInvariant reports whether err carries an InvariantError.
func IsInvariant(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
