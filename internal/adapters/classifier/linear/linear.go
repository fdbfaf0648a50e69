// Package linear is a multinomial logistic-regression classifier whose
// coefficients are stored in a YAML file.
package linear

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okian/empathy/internal/adapters/classifier"
	"github.com/okian/empathy/internal/domain/features"
	"github.com/okian/empathy/internal/domain/model"
)

// ErrModel marks a model file that cannot be used.
var ErrModel = errors.New("invalid linear model")

// Model is the on-disk form. Coefficients has one row per class in the
// order low, medium, high; each row has Encoder.Width() weights.
type Model struct {
	Version      int                `yaml:"version"`
	Encoder      classifier.Encoder `yaml:"encoder"`
	Intercepts   []float64          `yaml:"intercepts"`
	Coefficients [][]float64        `yaml:"coefficients"`
}

// Classifier scores feature rows with a prepared Model.
type Classifier struct {
	m *Model
}

// Load reads and prepares the model at path.
func Load(path string) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModel, err)
	}
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrModel, path, err)
	}
	return New(&m)
}

// New prepares m for scoring.
func New(m *Model) (*Classifier, error) {
	if err := m.Encoder.Prepare(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModel, err)
	}
	if len(m.Intercepts) != model.ClassCount || len(m.Coefficients) != model.ClassCount {
		return nil, fmt.Errorf("%w: want %d intercepts and coefficient rows, got %d/%d",
			ErrModel, model.ClassCount, len(m.Intercepts), len(m.Coefficients))
	}
	for k, row := range m.Coefficients {
		if len(row) != m.Encoder.Width() {
			return nil, fmt.Errorf("%w: class %d has %d weights, want %d",
				ErrModel, k, len(row), m.Encoder.Width())
		}
	}
	return &Classifier{m: m}, nil
}

// PredictProbabilities returns the softmax of the class scores for every row.
func (c *Classifier) PredictProbabilities(ctx context.Context, rows []features.Row) ([]model.Probabilities, error) {
	out := make([]model.Probabilities, len(rows))
	x := make([]float64, c.m.Encoder.Width())
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.m.Encoder.Encode(row, x); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = c.softmax(x)
	}
	return out, nil
}

// PredictLabels returns the most probable class of every row.
func (c *Classifier) PredictLabels(ctx context.Context, rows []features.Row) ([]model.RiskLabel, error) {
	probs, err := c.PredictProbabilities(ctx, rows)
	if err != nil {
		return nil, err
	}
	labels := make([]model.RiskLabel, len(probs))
	for i, p := range probs {
		labels[i] = p.Argmax()
	}
	return labels, nil
}

func (c *Classifier) softmax(x []float64) model.Probabilities {
	var z model.Probabilities
	maxZ := math.Inf(-1)
	for k := range z {
		s := c.m.Intercepts[k]
		for j, w := range c.m.Coefficients[k] {
			s += w * x[j]
		}
		z[k] = s
		maxZ = math.Max(maxZ, s)
	}
	var sum float64
	for k := range z {
		z[k] = math.Exp(z[k] - maxZ)
		sum += z[k]
	}
	for k := range z {
		z[k] /= sum
	}
	return z
}
