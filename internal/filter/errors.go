package filter

import (
	"errors"
	"fmt"
)

// ErrMalformedFilter is matched by every parse failure (errors.Is).
var ErrMalformedFilter = errors.New("malformed filter")

// Parser errors.
var (
	ErrMissingOperator   = errors.New("missing operator")
	ErrMultipleOperators = errors.New("more than one operator")
	ErrBadColumn         = errors.New("bad column reference")
	ErrEmptyValue        = errors.New("empty value")
	ErrBadThreshold      = errors.New("threshold is not a number")
)

// Evaluation errors. They concern a single row and never abort a query.
var (
	ErrColumnOutOfRange = errors.New("column out of range")
	ErrNotNumeric       = fmt.Errorf("%w: field is not numeric", ErrMalformedFilter)
)

// ParseError provides detailed error information including position.
type ParseError struct {
	Pos     int    // byte offset in input
	Message string // human-readable error message
	Err     error  // underlying sentinel error (for errors.Is)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed filter at position %d: %s", e.Pos, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is makes every ParseError match ErrMalformedFilter.
func (e *ParseError) Is(target error) bool {
	return target == ErrMalformedFilter
}

func newParseError(pos int, err error, msgFmt string, args ...any) *ParseError {
	return &ParseError{
		Pos:     pos,
		Message: fmt.Sprintf(msgFmt, args...),
		Err:     err,
	}
}
