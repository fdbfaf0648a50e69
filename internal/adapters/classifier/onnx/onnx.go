// Package onnx runs an exported burnout-risk model through ONNX Runtime.
//
// The model takes one float tensor [batch, width] built by a
// classifier.Encoder and returns an int64 label tensor [batch] and a float
// probability tensor [batch, 3]. The encoder and the tensor names live in a
// YAML sidecar next to the model.
package onnx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"gopkg.in/yaml.v3"

	"github.com/okian/empathy/internal/adapters/classifier"
	"github.com/okian/empathy/internal/domain/features"
	"github.com/okian/empathy/internal/domain/model"
)

// Default tensor names, as written by skl2onnx with zipmap disabled.
const (
	DefaultInput             = "float_input"
	DefaultLabelOutput       = "output_label"
	DefaultProbabilityOutput = "output_probability"
)

// Sentinel errors for this package.
var (
	ErrRuntime = errors.New("onnx runtime error")
	ErrVocab   = errors.New("invalid onnx vocabulary")
)

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct { //nolint:gochecknoglobals // runtime can be initialized once per process
	once sync.Once
	err  error
}

// initORT initializes the ONNX Runtime environment. Only the first call has
// any effect; an empty libPath keeps the library's platform default.
func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// Vocab is the YAML sidecar describing how rows reach the model.
type Vocab struct {
	Input             string             `yaml:"input"`
	LabelOutput       string             `yaml:"label_output"`
	ProbabilityOutput string             `yaml:"probability_output"`
	Encoder           classifier.Encoder `yaml:"encoder"`
}

// LoadVocab reads and prepares the sidecar at path.
func LoadVocab(path string) (*Vocab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVocab, err)
	}
	var v Vocab
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrVocab, path, err)
	}
	if err := v.prepare(); err != nil {
		return nil, err
	}
	return &v, nil
}

func (v *Vocab) prepare() error {
	if v.Input == "" {
		v.Input = DefaultInput
	}
	if v.LabelOutput == "" {
		v.LabelOutput = DefaultLabelOutput
	}
	if v.ProbabilityOutput == "" {
		v.ProbabilityOutput = DefaultProbabilityOutput
	}
	if err := v.Encoder.Prepare(); err != nil {
		return fmt.Errorf("%w: %w", ErrVocab, err)
	}
	return nil
}

// encode flattens rows into the row-major float32 input tensor data.
func (v *Vocab) encode(rows []features.Row) ([]float32, error) {
	width := v.Encoder.Width()
	flat := make([]float32, len(rows)*width)
	buf := make([]float64, width)
	for i, row := range rows {
		if err := v.Encoder.Encode(row, buf); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		dst := flat[i*width : (i+1)*width]
		for j, x := range buf {
			dst[j] = float32(x)
		}
	}
	return flat, nil
}

// Classifier wraps a DynamicAdvancedSession for the exported model.
type Classifier struct {
	session *ort.DynamicAdvancedSession
	vocab   *Vocab
}

// Option configures Open.
type Option func(*options)

type options struct {
	libPath string
	intraOp int
	interOp int
}

// WithLibraryPath sets the onnxruntime shared library path.
func WithLibraryPath(path string) Option {
	return func(o *options) { o.libPath = path }
}

// WithThreads sets intra- and inter-op thread counts.
func WithThreads(intra, inter int) Option {
	return func(o *options) {
		if intra > 0 {
			o.intraOp = intra
		}
		if inter > 0 {
			o.interOp = inter
		}
	}
}

// Open loads the model at modelPath with the sidecar at vocabPath.
func Open(modelPath, vocabPath string, opts ...Option) (*Classifier, error) {
	o := options{intraOp: 4, interOp: 1}
	for _, opt := range opts {
		opt(&o)
	}

	vocab, err := LoadVocab(vocabPath)
	if err != nil {
		return nil, err
	}

	if err := initORT(o.libPath); err != nil {
		return nil, fmt.Errorf("%w: initialize: %w", ErrRuntime, err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read model info: %w", ErrRuntime, err)
	}
	if err := checkNames(inputs, vocab.Input); err != nil {
		return nil, err
	}
	if err := checkNames(outputs, vocab.LabelOutput, vocab.ProbabilityOutput); err != nil {
		return nil, err
	}

	so, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("%w: session options: %w", ErrRuntime, err)
	}
	defer func() { _ = so.Destroy() }()
	if err := so.SetIntraOpNumThreads(o.intraOp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	if err := so.SetInterOpNumThreads(o.interOp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{vocab.Input},
		[]string{vocab.LabelOutput, vocab.ProbabilityOutput},
		so,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: create session: %w", ErrRuntime, err)
	}
	return &Classifier{session: session, vocab: vocab}, nil
}

func checkNames(infos []ort.InputOutputInfo, want ...string) error {
	have := make(map[string]bool, len(infos))
	for _, info := range infos {
		have[info.Name] = true
	}
	for _, name := range want {
		if !have[name] {
			return fmt.Errorf("%w: model has no tensor %q", ErrVocab, name)
		}
	}
	return nil
}

// run executes one inference call and copies both outputs out of the tensors.
func (c *Classifier) run(ctx context.Context, rows []features.Row) ([]int64, []float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	n := int64(len(rows))
	if n == 0 {
		return nil, nil, nil
	}
	flat, err := c.vocab.encode(rows)
	if err != nil {
		return nil, nil, err
	}

	in, err := ort.NewTensor(ort.NewShape(n, int64(c.vocab.Encoder.Width())), flat)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: input tensor: %w", ErrRuntime, err)
	}
	defer func() { _ = in.Destroy() }()

	labels, err := ort.NewEmptyTensor[int64](ort.NewShape(n))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: label tensor: %w", ErrRuntime, err)
	}
	defer func() { _ = labels.Destroy() }()

	probs, err := ort.NewEmptyTensor[float32](ort.NewShape(n, model.ClassCount))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: probability tensor: %w", ErrRuntime, err)
	}
	defer func() { _ = probs.Destroy() }()

	if err := c.session.Run([]ort.Value{in}, []ort.Value{labels, probs}); err != nil {
		return nil, nil, fmt.Errorf("%w: run: %w", ErrRuntime, err)
	}

	l := append([]int64(nil), labels.GetData()...)
	p := append([]float32(nil), probs.GetData()...)
	return l, p, nil
}

// PredictLabels returns the model's label output.
func (c *Classifier) PredictLabels(ctx context.Context, rows []features.Row) ([]model.RiskLabel, error) {
	raw, _, err := c.run(ctx, rows)
	if err != nil {
		return nil, err
	}
	return toLabels(raw), nil
}

// PredictProbabilities returns the model's probability output.
func (c *Classifier) PredictProbabilities(ctx context.Context, rows []features.Row) ([]model.Probabilities, error) {
	_, raw, err := c.run(ctx, rows)
	if err != nil {
		return nil, err
	}
	return toProbabilities(raw), nil
}

// Close releases the session.
func (c *Classifier) Close() error {
	return c.session.Destroy()
}

func toLabels(raw []int64) []model.RiskLabel {
	out := make([]model.RiskLabel, len(raw))
	for i, v := range raw {
		out[i] = model.RiskLabel(v)
	}
	return out
}

// toProbabilities reshapes flat [n*3] data into triples.
func toProbabilities(raw []float32) []model.Probabilities {
	out := make([]model.Probabilities, len(raw)/model.ClassCount)
	for i := range out {
		for k := 0; k < model.ClassCount; k++ {
			out[i][k] = float64(raw[i*model.ClassCount+k])
		}
	}
	return out
}
