package search

import (
	"errors"
	"fmt"
)

// ValidationError reports a malformed search input, such as an
// unparseable filter date. It is surfaced to the caller before the
// backing store is contacted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
