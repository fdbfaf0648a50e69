package inference

import (
	"errors"
	"fmt"

	"github.com/okian/empathy/internal/domain/model"
)

// Sentinel kinds for inference errors.
var (
	ErrInference    = errors.New("inference error")
	ErrNoClassifier = errors.New("no classifier configured")
)

// InferenceError wraps any classifier failure. It is fatal to the pipeline.
type InferenceError struct {
	Op  string
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s: inference error: %v", e.Op, e.Err)
}

// Unwrap returns the underlying classifier error.
func (e *InferenceError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrInference) match.
func (e *InferenceError) Is(target error) bool { return target == ErrInference }

// ShapeError reports a classifier returning the wrong number of results.
type ShapeError struct {
	Rows          int
	Labels        int
	Probabilities int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("classifier returned %d labels and %d probability rows for %d inputs",
		e.Labels, e.Probabilities, e.Rows)
}

// LabelError reports a label outside {low, medium, high}.
type LabelError struct {
	Row   int
	Label model.RiskLabel
}

func (e *LabelError) Error() string {
	return fmt.Sprintf("classifier returned label %d for row %d", int(e.Label), e.Row)
}
