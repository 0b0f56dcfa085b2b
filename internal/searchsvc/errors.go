package searchsvc

import (
	"errors"
	"fmt"
)

// TransportError wraps a backing-store failure. Results carried by a
// TransportError are never cached; the caller keeps showing its last
// successful results.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("backing store: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
