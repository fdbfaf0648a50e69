package service

import (
	"context"
	"fmt"

	"github.com/okian/empathy/internal/adapters/classifier/linear"
	"github.com/okian/empathy/internal/adapters/classifier/onnx"
	"github.com/okian/empathy/internal/adapters/source"
	"github.com/okian/empathy/internal/config"
	"github.com/okian/empathy/internal/domain/inference"
	"github.com/okian/empathy/pkg/logger"
)

// FromConfig translates cfg into service options: the snapshot source, the
// classifier loader matching the model format and the pipeline tuning.
func FromConfig(cfg *config.Config) ([]Option, error) {
	src, err := source.New(cfg.DataFormat, cfg.DataPath,
		source.WithTable(cfg.SQLiteTable),
		source.WithLogger(logger.Get().Named("source")),
	)
	if err != nil {
		return nil, err
	}

	load, err := classifierLoader(cfg)
	if err != nil {
		return nil, err
	}

	return []Option{
		WithSource(src),
		WithClassifierLoader(load),
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithConnectionRequiresRisk(cfg.ConnectionRequiresRisk),
	}, nil
}

func classifierLoader(cfg *config.Config) (ClassifierLoader, error) {
	switch cfg.ModelFormat {
	case config.ModelLinear:
		return func(context.Context) (inference.Classifier, error) {
			c, err := linear.Load(cfg.ModelPath)
			if err != nil {
				return nil, err
			}
			return c, nil
		}, nil
	case config.ModelONNX:
		return func(context.Context) (inference.Classifier, error) {
			c, err := onnx.Open(cfg.ModelPath, cfg.ONNXVocabPath, onnx.WithLibraryPath(cfg.ONNXLibraryPath))
			if err != nil {
				return nil, err
			}
			return c, nil
		}, nil
	default:
		return nil, fmt.Errorf("%w: model format %q", ErrClassifierLoad, cfg.ModelFormat)
	}
}
