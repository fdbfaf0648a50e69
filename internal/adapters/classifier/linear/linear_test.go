package linear

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/okian/empathy/internal/adapters/classifier"
	"github.com/okian/empathy/internal/domain/features"
	"github.com/okian/empathy/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// afterHoursModel scores high risk on after_hours_msgs_count alone.
func afterHoursModel() *Model {
	enc := classifier.Encoder{Categories: map[string][]string{
		"role":            {"Engineer"},
		"team":            {"Platform"},
		"country":         {"DE"},
		"culture_cluster": {"Germanic"},
	}}
	width := features.NumericCount + 4
	coef := make([][]float64, model.ClassCount)
	for k := range coef {
		coef[k] = make([]float64, width)
	}
	coef[model.RiskHigh][4] = 0.5 // after_hours_msgs_count
	return &Model{
		Version:      1,
		Encoder:      enc,
		Intercepts:   []float64{2, 0, -8},
		Coefficients: coef,
	}
}

func rowWithAfterHours(n float64) features.Row {
	num := make([]float64, features.NumericCount)
	num[4] = n
	return features.Row{Numeric: num, Categorical: []string{"Engineer", "Platform", "DE", "Germanic"}}
}

func TestClassifier(t *testing.T) {
	Convey("Given a linear classifier", t, func() {
		ctx := context.Background()
		c, err := New(afterHoursModel())
		So(err, ShouldBeNil)

		rows := []features.Row{rowWithAfterHours(0), rowWithAfterHours(40)}

		Convey("When predicting probabilities", func() {
			probs, err := c.PredictProbabilities(ctx, rows)

			Convey("Then each triple is a distribution", func() {
				So(err, ShouldBeNil)
				So(probs, ShouldHaveLength, 2)
				for _, p := range probs {
					So(math.Abs(p.Sum()-1), ShouldBeLessThan, 1e-9)
					for _, v := range p {
						So(v, ShouldBeBetweenOrEqual, 0.0, 1.0)
					}
				}
			})

			Convey("Then more after-hours traffic raises prob_high", func() {
				So(probs[1].High(), ShouldBeGreaterThan, probs[0].High())
			})
		})

		Convey("When predicting labels", func() {
			labels, err := c.PredictLabels(ctx, rows)
			probs, _ := c.PredictProbabilities(ctx, rows)

			Convey("Then labels are the argmax of the probabilities", func() {
				So(err, ShouldBeNil)
				So(labels, ShouldResemble, []model.RiskLabel{model.RiskLow, model.RiskHigh})
				for i := range labels {
					So(labels[i], ShouldEqual, probs[i].Argmax())
				}
			})
		})

		Convey("When the batch is empty", func() {
			labels, err := c.PredictLabels(ctx, nil)
			So(err, ShouldBeNil)
			So(labels, ShouldBeEmpty)
		})

		Convey("When a row is malformed", func() {
			_, err := c.PredictProbabilities(ctx, []features.Row{{Numeric: []float64{1}}})
			So(errors.Is(err, classifier.ErrEncoder), ShouldBeTrue)
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := c.PredictLabels(cctx, rows)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestLoad(t *testing.T) {
	Convey("Given a model file", t, func() {
		dir := t.TempDir()

		Convey("When it round-trips through YAML", func() {
			data, err := yaml.Marshal(afterHoursModel())
			So(err, ShouldBeNil)
			path := filepath.Join(dir, "model.yaml")
			So(os.WriteFile(path, data, 0o600), ShouldBeNil)

			c, err := Load(path)

			Convey("Then it scores like the in-memory model", func() {
				So(err, ShouldBeNil)
				labels, err := c.PredictLabels(context.Background(), []features.Row{rowWithAfterHours(40)})
				So(err, ShouldBeNil)
				So(labels[0], ShouldEqual, model.RiskHigh)
			})
		})

		Convey("When the file is missing", func() {
			_, err := Load(filepath.Join(dir, "nope.yaml"))
			So(errors.Is(err, ErrModel), ShouldBeTrue)
		})

		Convey("When the file is not YAML", func() {
			path := filepath.Join(dir, "bad.yaml")
			So(os.WriteFile(path, []byte("intercepts: [1, 2"), 0o600), ShouldBeNil)
			_, err := Load(path)
			So(errors.Is(err, ErrModel), ShouldBeTrue)
		})
	})

	Convey("Given malformed models", t, func() {
		Convey("When a class row is missing", func() {
			m := afterHoursModel()
			m.Coefficients = m.Coefficients[:2]
			_, err := New(m)
			So(errors.Is(err, ErrModel), ShouldBeTrue)
		})

		Convey("When a weight row has the wrong width", func() {
			m := afterHoursModel()
			m.Coefficients[1] = []float64{1, 2}
			_, err := New(m)
			So(errors.Is(err, ErrModel), ShouldBeTrue)
		})

		Convey("When the encoder lacks a categorical column", func() {
			m := afterHoursModel()
			delete(m.Encoder.Categories, "team")
			_, err := New(m)
			So(errors.Is(err, ErrModel), ShouldBeTrue)
			So(errors.Is(err, classifier.ErrEncoder), ShouldBeTrue)
		})
	})
}
