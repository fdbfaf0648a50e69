// Package classifier holds what the concrete classifier backends share:
// turning a contract-ordered feature row into a dense model input.
package classifier

import (
	"errors"
	"fmt"

	"github.com/okian/empathy/internal/domain/features"
)

// ErrEncoder marks an encoder definition that does not fit the feature contract.
var ErrEncoder = errors.New("invalid feature encoder")

// Encoder standardizes numeric features and one-hot encodes categorical ones.
//
// The encoded vector is the numeric block followed by one block per
// categorical feature, each in contract order. Categorical levels missing
// from the vocabulary encode as an all-zero block.
type Encoder struct {
	// Means and Scales standardize numeric features as (x-mean)/scale.
	// Both empty means the numeric block passes through unchanged.
	Means  []float64 `yaml:"means,omitempty"`
	Scales []float64 `yaml:"scales,omitempty"`

	// Categories lists the known levels of each categorical feature by column name.
	Categories map[string][]string `yaml:"categories"`

	index [][]string
	level []map[string]int
	width int
}

// Prepare checks the encoder against the feature contract and builds lookup tables.
// It must be called once before Encode.
func (e *Encoder) Prepare() error {
	if len(e.Means) != 0 || len(e.Scales) != 0 {
		if len(e.Means) != features.NumericCount || len(e.Scales) != features.NumericCount {
			return fmt.Errorf("%w: means/scales need %d values, got %d/%d",
				ErrEncoder, features.NumericCount, len(e.Means), len(e.Scales))
		}
	}
	cats := features.Categorical()
	e.index = make([][]string, len(cats))
	e.level = make([]map[string]int, len(cats))
	e.width = features.NumericCount
	for i, col := range cats {
		levels, ok := e.Categories[col]
		if !ok {
			return fmt.Errorf("%w: no categories for %s", ErrEncoder, col)
		}
		e.index[i] = levels
		e.level[i] = make(map[string]int, len(levels))
		for j, lv := range levels {
			if _, dup := e.level[i][lv]; dup {
				return fmt.Errorf("%w: duplicate level %q for %s", ErrEncoder, lv, col)
			}
			e.level[i][lv] = j
		}
		e.width += len(levels)
	}
	return nil
}

// Width is the length of an encoded row.
func (e *Encoder) Width() int { return e.width }

// Encode writes the encoded row into dst, which must have length Width().
func (e *Encoder) Encode(row features.Row, dst []float64) error {
	if len(row.Numeric) != features.NumericCount || len(row.Categorical) != features.CategoricalCount {
		return fmt.Errorf("%w: row has %d numeric and %d categorical values",
			ErrEncoder, len(row.Numeric), len(row.Categorical))
	}
	if len(dst) != e.width {
		return fmt.Errorf("%w: destination has %d slots, want %d", ErrEncoder, len(dst), e.width)
	}
	for i, v := range row.Numeric {
		if len(e.Means) > 0 {
			scale := e.Scales[i]
			if scale == 0 {
				scale = 1
			}
			v = (v - e.Means[i]) / scale
		}
		dst[i] = v
	}
	off := features.NumericCount
	for i, v := range row.Categorical {
		block := dst[off : off+len(e.index[i])]
		for j := range block {
			block[j] = 0
		}
		if j, ok := e.level[i][v]; ok {
			block[j] = 1
		}
		off += len(e.index[i])
	}
	return nil
}
