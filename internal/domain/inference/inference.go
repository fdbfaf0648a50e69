// Package inference bridges validated weekly records and an opaque,
// pre-trained burnout-risk classifier.
package inference

import (
	"context"
	"time"

	"github.com/okian/empathy/internal/domain/features"
	"github.com/okian/empathy/internal/domain/model"
	"github.com/okian/empathy/pkg/logger"
	"github.com/okian/empathy/pkg/metrics"
)

// Classifier is the trained model collaborator. Both operations receive the
// feature rows in contract order and must return one result per row.
// Probability triples are in the fixed class order low, medium, high.
type Classifier interface {
	PredictLabels(ctx context.Context, rows []features.Row) ([]model.RiskLabel, error)
	PredictProbabilities(ctx context.Context, rows []features.Row) ([]model.Probabilities, error)
}

// Option applies a configuration option to the Adapter.
type Option func(*Adapter)

// WithLogger sets a custom logger for the adapter.
func WithLogger(l logger.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// Adapter writes predicted_label and the probability triple onto records.
type Adapter struct {
	classifier Classifier
	logger     logger.Logger
}

// NewAdapter creates an Adapter around classifier.
func NewAdapter(classifier Classifier, opts ...Option) *Adapter {
	a := &Adapter{
		classifier: classifier,
		logger:     logger.Get().Named("inference"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Predict scores every record and stores the result in its Prediction field.
// No record is touched unless both classifier calls succeed, so a failure
// leaves the batch exactly as it was. Re-running on the same records with the
// same classifier rewrites identical values.
func (a *Adapter) Predict(ctx context.Context, records []model.WeeklyRecord) error {
	const op = "inference.predict"
	if len(records) == 0 {
		return nil
	}
	if a.classifier == nil {
		return a.fail(ctx, op, ErrNoClassifier)
	}

	start := time.Now()
	rows := features.Rows(records)

	labels, err := a.classifier.PredictLabels(ctx, rows)
	if err != nil {
		return a.fail(ctx, op, err)
	}
	probs, err := a.classifier.PredictProbabilities(ctx, rows)
	if err != nil {
		return a.fail(ctx, op, err)
	}
	if len(labels) != len(records) || len(probs) != len(records) {
		return a.fail(ctx, op, &ShapeError{Rows: len(records), Labels: len(labels), Probabilities: len(probs)})
	}
	for i, l := range labels {
		if !l.Valid() {
			return a.fail(ctx, op, &LabelError{Row: i, Label: l})
		}
	}

	for i := range records {
		records[i].Prediction = model.Prediction{Label: labels[i], Probabilities: probs[i]}
	}

	metrics.RecordInferenceLatency(float64(time.Since(start).Milliseconds()))
	a.logger.Debug(ctx, "inference complete",
		logger.Int("records", len(records)),
		logger.Int("latencyMs", int(time.Since(start).Milliseconds())),
	)
	return nil
}

func (a *Adapter) fail(ctx context.Context, op string, err error) error {
	metrics.RecordInferenceError()
	metrics.RecordErrorByComponent("inference", "classifier_error")
	a.logger.Error(ctx, "classifier failed", logger.Error(err))
	return &InferenceError{Op: op, Err: err}
}
