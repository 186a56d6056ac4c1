package loader

import (
	"errors"
	"fmt"
)

// MisuseError marks a programmer fault: using a loader outside a request
// scope, or double-resolving a write-once thunk. These are raised as
// panics, never returned as ordinary errors, so they cannot be confused
// with user input or fetch failures.
type MisuseError struct {
	Reason string
}

func (e *MisuseError) Error() string {
	return "loader misuse: " + e.Reason
}

func misuse(format string, args ...any) *MisuseError {
	return &MisuseError{Reason: fmt.Sprintf(format, args...)}
}

// ErrBatchSizeMismatch is returned (wrapped) to every placeholder of a
// flush whose positional batch function produced a different number of
// results than distinct keys.
var ErrBatchSizeMismatch = errors.New("batch result count does not match key count")

// IsMisuse reports whether a recovered panic value is a loader misuse.
func IsMisuse(v any) bool {
	err, ok := v.(error)
	if !ok {
		return false
	}
	var misuseErr *MisuseError
	return errors.As(err, &misuseErr)
}
