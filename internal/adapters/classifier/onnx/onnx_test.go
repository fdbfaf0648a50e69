package onnx

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/okian/empathy/internal/domain/features"
	"github.com/okian/empathy/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const vocabYAML = `
input: features
encoder:
  categories:
    role: [Engineer, Manager]
    team: [Platform]
    country: [DE]
    culture_cluster: [Germanic]
`

func writeVocab(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vocab.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write vocab: %v", err)
	}
	return path
}

func TestLoadVocab(t *testing.T) {
	Convey("Given a vocabulary sidecar", t, func() {
		Convey("When it sets only the input name", func() {
			v, err := LoadVocab(writeVocab(t, vocabYAML))

			Convey("Then output names fall back to defaults", func() {
				So(err, ShouldBeNil)
				So(v.Input, ShouldEqual, "features")
				So(v.LabelOutput, ShouldEqual, DefaultLabelOutput)
				So(v.ProbabilityOutput, ShouldEqual, DefaultProbabilityOutput)
				So(v.Encoder.Width(), ShouldEqual, features.NumericCount+5)
			})
		})

		Convey("When a categorical vocabulary is missing", func() {
			_, err := LoadVocab(writeVocab(t, "encoder:\n  categories:\n    role: [Engineer]\n"))
			So(errors.Is(err, ErrVocab), ShouldBeTrue)
		})

		Convey("When the file does not exist", func() {
			_, err := LoadVocab(filepath.Join(t.TempDir(), "missing.yaml"))
			So(errors.Is(err, ErrVocab), ShouldBeTrue)
		})
	})
}

func TestEncode(t *testing.T) {
	Convey("Given a prepared vocabulary", t, func() {
		v, err := LoadVocab(writeVocab(t, vocabYAML))
		So(err, ShouldBeNil)
		width := v.Encoder.Width()

		num := make([]float64, features.NumericCount)
		num[0] = 2.5
		rows := []features.Row{
			{Numeric: num, Categorical: []string{"Manager", "Platform", "DE", "Germanic"}},
			{Numeric: make([]float64, features.NumericCount), Categorical: []string{"Engineer", "Other", "DE", "Germanic"}},
		}

		Convey("When encoding a batch", func() {
			flat, err := v.encode(rows)

			Convey("Then rows are laid out row-major as float32", func() {
				So(err, ShouldBeNil)
				So(flat, ShouldHaveLength, 2*width)
				So(flat[0], ShouldEqual, float32(2.5))
				So(flat[features.NumericCount:width], ShouldResemble, []float32{0, 1, 1, 1, 1})
				So(flat[width+features.NumericCount:], ShouldResemble, []float32{1, 0, 0, 1, 1})
			})
		})

		Convey("When a row is malformed", func() {
			_, err := v.encode([]features.Row{{}})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestOutputs(t *testing.T) {
	Convey("Given raw output tensors", t, func() {
		Convey("When converting labels", func() {
			So(toLabels([]int64{0, 2, 1}), ShouldResemble, []model.RiskLabel{model.RiskLow, model.RiskHigh, model.RiskMedium})
		})

		Convey("When reshaping probabilities", func() {
			probs := toProbabilities([]float32{0.5, 0.25, 0.25, 0, 0, 1})

			So(probs, ShouldHaveLength, 2)
			So(probs[0].Low(), ShouldEqual, 0.5)
			So(probs[0].High(), ShouldEqual, 0.25)
			So(probs[1].Argmax(), ShouldEqual, model.RiskHigh)
		})
	})
}

func TestCheckNames(t *testing.T) {
	Convey("Given model tensor metadata", t, func() {
		infos := []ort.InputOutputInfo{{Name: "output_label"}, {Name: "output_probability"}}

		So(checkNames(infos, DefaultLabelOutput, DefaultProbabilityOutput), ShouldBeNil)
		So(errors.Is(checkNames(infos, "probabilities"), ErrVocab), ShouldBeTrue)
	})
}
