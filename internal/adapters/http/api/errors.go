package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotReady   = errors.New("snapshot not loaded")
)

// Error attaches the failing operation to an underlying error.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// NewKind reports a failure of op with a sentinel kind.
func NewKind(op string, kind error) error { return &Error{Op: op, Err: kind} }

// Wrap annotates err with op. A nil err stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// badRequest reports a malformed query parameter.
func badRequest(op, format string, args ...any) error {
	return &Error{Op: op, Err: fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))}
}
