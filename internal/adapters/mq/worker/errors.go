package worker

import "errors"

// Sentinel kinds for worker errors.
var (
	ErrEmptyJob        = errors.New("job has no record")
	ErrIndexOutOfRange = errors.New("assessment index out of range")
)
