package classifier

import (
	"errors"
	"testing"

	"github.com/okian/empathy/internal/domain/features"
	. "github.com/smartystreets/goconvey/convey"
)

func testEncoder() *Encoder {
	return &Encoder{
		Categories: map[string][]string{
			"role":            {"Engineer", "Manager"},
			"team":            {"Platform"},
			"country":         {"DE", "US", "JP"},
			"culture_cluster": {"Germanic", "Anglo"},
		},
	}
}

func testRow() features.Row {
	num := make([]float64, features.NumericCount)
	for i := range num {
		num[i] = float64(i + 1)
	}
	return features.Row{Numeric: num, Categorical: []string{"Manager", "Platform", "JP", "Nordic"}}
}

func TestEncoder(t *testing.T) {
	Convey("Given an encoder without standardization", t, func() {
		enc := testEncoder()
		So(enc.Prepare(), ShouldBeNil)

		Convey("Then the width covers numeric plus every level", func() {
			So(enc.Width(), ShouldEqual, features.NumericCount+2+1+3+2)
		})

		Convey("When encoding a row", func() {
			dst := make([]float64, enc.Width())
			So(enc.Encode(testRow(), dst), ShouldBeNil)

			Convey("Then numeric values pass through in order", func() {
				So(dst[0], ShouldEqual, 1)
				So(dst[features.NumericCount-1], ShouldEqual, float64(features.NumericCount))
			})

			Convey("Then known levels are one-hot and unknown levels are all zero", func() {
				cats := dst[features.NumericCount:]
				So(cats, ShouldResemble, []float64{0, 1, 1, 0, 0, 1, 0, 0})
			})
		})

		Convey("When the destination has the wrong size", func() {
			err := enc.Encode(testRow(), make([]float64, 3))
			So(errors.Is(err, ErrEncoder), ShouldBeTrue)
		})

		Convey("When the row is short", func() {
			err := enc.Encode(features.Row{Numeric: []float64{1}}, make([]float64, enc.Width()))
			So(errors.Is(err, ErrEncoder), ShouldBeTrue)
		})
	})

	Convey("Given an encoder with standardization", t, func() {
		enc := testEncoder()
		enc.Means = make([]float64, features.NumericCount)
		enc.Scales = make([]float64, features.NumericCount)
		for i := range enc.Means {
			enc.Means[i] = 1
			enc.Scales[i] = 2
		}
		enc.Scales[1] = 0
		So(enc.Prepare(), ShouldBeNil)

		dst := make([]float64, enc.Width())
		So(enc.Encode(testRow(), dst), ShouldBeNil)

		Convey("Then numeric values are centred and scaled", func() {
			So(dst[0], ShouldEqual, 0)
			So(dst[2], ShouldEqual, 1)
		})

		Convey("Then a zero scale leaves the value centred only", func() {
			So(dst[1], ShouldEqual, 1)
		})
	})

	Convey("Given invalid encoder definitions", t, func() {
		Convey("When a categorical column has no vocabulary", func() {
			enc := testEncoder()
			delete(enc.Categories, "country")
			So(errors.Is(enc.Prepare(), ErrEncoder), ShouldBeTrue)
		})

		Convey("When a level repeats", func() {
			enc := testEncoder()
			enc.Categories["team"] = []string{"Platform", "Platform"}
			So(errors.Is(enc.Prepare(), ErrEncoder), ShouldBeTrue)
		})

		Convey("When means are the wrong length", func() {
			enc := testEncoder()
			enc.Means = []float64{1}
			enc.Scales = []float64{1}
			So(errors.Is(enc.Prepare(), ErrEncoder), ShouldBeTrue)
		})
	})
}
