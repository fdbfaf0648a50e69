package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNoSource       = errors.New("no snapshot source configured")
	ErrNoClassifier   = errors.New("no classifier configured")
	ErrClassifierLoad = errors.New("load classifier failed")
	ErrNotLoaded      = errors.New("snapshot not loaded")
)
