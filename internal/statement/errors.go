package statement

import (
	"errors"
	"fmt"
)

var (
	// ErrParse is matched by every ParseError.
	ErrParse = errors.New("statement: unreadable statement")
	// ErrNoValidRows is matched by NoValidRowsError.
	ErrNoValidRows = errors.New("statement: no valid rows")
)

// ParseError reports content that could not be read as a statement at all.
type ParseError struct {
	Cause error
}

func (e *ParseError) Error() string {
	if e.Cause == nil {
		return ErrParse.Error()
	}
	return fmt.Sprintf("%s: %v", ErrParse.Error(), e.Cause)
}

func (e *ParseError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrParse}
	}
	return []error{ErrParse, e.Cause}
}

// NoValidRowsError reports a readable statement where no row survived the settled filter.
type NoValidRowsError struct {
	RawRows int
}

func (e *NoValidRowsError) Error() string {
	return fmt.Sprintf("%s (%d data rows read)", ErrNoValidRows.Error(), e.RawRows)
}

func (e *NoValidRowsError) Is(target error) bool {
	return target == ErrNoValidRows
}

func parseErrorf(format string, args ...any) error {
	return &ParseError{Cause: fmt.Errorf(format, args...)}
}
