package funding

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingColumn is returned when a required column is absent from the header.
	ErrMissingColumn = errors.New("missing column")

	// ErrBadNumber is returned when a numeric field cannot be parsed or is out of range.
	ErrBadNumber = errors.New("bad number")

	// ErrBadDate is returned when a date field cannot be parsed.
	ErrBadDate = errors.New("bad date")
)

// InputError describes a malformed input table. Row is the 1-based data row
// (0 for header problems).
type InputError struct {
	Row    int
	Column string
	Err    error
}

func (e *InputError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("input: column %q: %v", e.Column, e.Err)
	}
	return fmt.Sprintf("input: row %d column %q: %v", e.Row, e.Column, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// IsInputError reports whether err is (or wraps) an InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}
