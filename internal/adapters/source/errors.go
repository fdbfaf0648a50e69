package source

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package.
var (
	ErrOpen          = errors.New("open source failed")
	ErrRead          = errors.New("read source failed")
	ErrParse         = errors.New("parse source value failed")
	ErrUnknownFormat = errors.New("unknown source format")
)

// ParseError pinpoints a value that could not be coerced into its column type.
// Row counts data rows from 1, excluding the header.
type ParseError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d column %s: value %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrParse) match.
func (e *ParseError) Is(target error) bool { return target == ErrParse }
