package recipe

import (
	"errors"
	"fmt"
)

// ErrInput is matched by every InputError via errors.Is.
var ErrInput = errors.New("invalid input")

// InputError indicates a missing or malformed required field, or an
// unusable input set. It is always surfaced, never coerced.
type InputError struct {
	// Row is the 1-based source row when known, 0 otherwise.
	Row    int
	Field  string
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	msg := e.Reason
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Row > 0 {
		msg = fmt.Sprintf("row %d: %s", e.Row, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return "invalid input: " + msg
}

func (e *InputError) Is(target error) bool { return target == ErrInput }

func (e *InputError) Unwrap() error { return e.Err }
