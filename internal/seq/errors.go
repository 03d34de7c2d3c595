package seq

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrShapeMismatch reports payload dimensions that disagree with the
	// container's lengths, size_at_t or indices.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrUnrecognized reports a value that is none of the known sequence
	// representations (for example a dense value with the wrong arity).
	ErrUnrecognized = errors.New("unrecognized sequence representation")
)

// ShapeError provides detail about a failed shape precondition.
// It matches ErrShapeMismatch with errors.Is.
type ShapeError struct {
	Op      string // Conversion or check that failed (e.g., "unflatten")
	Details string
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Op, ErrShapeMismatch, e.Details)
}

// Unwrap returns ErrShapeMismatch.
func (e *ShapeError) Unwrap() error {
	return ErrShapeMismatch
}

func shapeErrorf(op, format string, args ...any) error {
	return &ShapeError{Op: op, Details: fmt.Sprintf(format, args...)}
}
