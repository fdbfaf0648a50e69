package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrInvalidLimit = errors.New("invalid limit")
	ErrDuplicateKey = errors.New("duplicate employee-week key")
)
