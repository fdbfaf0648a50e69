package synth

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/okian/empathy/internal/adapters/classifier"
	"github.com/okian/empathy/internal/adapters/classifier/linear"
	"github.com/okian/empathy/internal/domain/features"
	"github.com/okian/empathy/internal/domain/model"
)

// ModelVersion is written into generated model files.
const ModelVersion = 1

// Standardized-feature weights for the high class. The low class gets the
// negated weights and the medium class none.
var highWeights = map[string]float64{ //nolint:gochecknoglobals // fixed synthetic model
	"after_hours_msgs_count":       1.4,
	"total_meeting_hours":          0.8,
	"back_to_back_meeting_blocks":  0.5,
	"isolation_score":              0.9,
	"avg_email_reply_time_min":     0.3,
	"z_after_hours_within_country": 0.4,
}

// Model builds a linear model for records: the encoder is fitted on them
// (means, scales and categorical levels) and the weights favor high risk
// for after-hours load, meeting load and isolation.
func Model(records []model.WeeklyRecord) *linear.Model {
	rows := features.Rows(records)
	means := make([]float64, features.NumericCount)
	scales := make([]float64, features.NumericCount)
	for j := range means {
		means[j], scales[j] = meanStd(len(rows), func(i int) float64 { return rows[i].Numeric[j] })
		if scales[j] == 0 {
			scales[j] = 1
		}
	}

	cats := features.Categorical()
	levels := make(map[string][]string, len(cats))
	width := features.NumericCount
	for j, col := range cats {
		seen := map[string]struct{}{}
		for _, r := range rows {
			seen[r.Categorical[j]] = struct{}{}
		}
		for lv := range seen {
			levels[col] = append(levels[col], lv)
		}
		sort.Strings(levels[col])
		width += len(levels[col])
	}

	coef := make([][]float64, model.ClassCount)
	for k := range coef {
		coef[k] = make([]float64, width)
	}
	for j, col := range features.Numeric() {
		w := highWeights[col]
		coef[model.RiskHigh][j] = w
		coef[model.RiskLow][j] = -w
	}

	return &linear.Model{
		Version: ModelVersion,
		Encoder: classifier.Encoder{
			Means:      roundAll(means),
			Scales:     roundAll(scales),
			Categories: levels,
		},
		Intercepts:   []float64{0.4, 0.6, -1.2},
		Coefficients: coef,
	}
}

// WriteModel encodes m as YAML, the format linear.Load reads.
func WriteModel(w io.Writer, m *linear.Model) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	return enc.Close()
}

func roundAll(v []float64) []float64 {
	for i := range v {
		v[i] = round(v[i])
	}
	return v
}
