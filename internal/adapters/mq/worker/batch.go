package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/empathy/internal/adapters/mq/queue"
	"github.com/okian/empathy/internal/domain/model"
	"github.com/okian/empathy/internal/domain/nudge"
	"github.com/okian/empathy/pkg/logger"
)

// sliceSink writes each assessment to its own slot; indexes never collide.
type sliceSink struct {
	out []nudge.Assessment
}

func (s *sliceSink) Put(_ context.Context, index int, a nudge.Assessment) error {
	if index < 0 || index >= len(s.out) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	s.out[index] = a
	return nil
}

// BatchOption configures AssessAll.
type BatchOption func(*batchConfig)

type batchConfig struct {
	workers  int
	capacity int
	log      logger.Logger
}

// WithWorkers sets the pool size.
func WithWorkers(n int) BatchOption {
	return func(c *batchConfig) { c.workers = n }
}

// WithQueueCapacity sets the job queue capacity.
func WithQueueCapacity(n int) BatchOption {
	return func(c *batchConfig) { c.capacity = n }
}

// WithBatchLogger sets the logger used for the batch summary.
func WithBatchLogger(l logger.Logger) BatchOption {
	return func(c *batchConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// AssessAll derives nudges for every record on a worker pool and returns the
// assessments in record order. The first job error fails the whole batch.
func AssessAll(ctx context.Context, records []model.WeeklyRecord, deriver Deriver, opts ...BatchOption) ([]nudge.Assessment, error) {
	cfg := batchConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.log == nil {
		cfg.log = logger.Get().Named("worker-pool")
	}
	if len(records) == 0 {
		return []nudge.Assessment{}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	q := queue.NewInMemoryQueue(queue.WithCapacity(cfg.capacity))
	sink := &sliceSink{out: make([]nudge.Assessment, len(records))}
	pool := NewPool(cfg.workers, q, deriver, sink)
	pool.Start(ctx)

	for i := range records {
		if err := q.Put(ctx, queue.Job{Index: i, Record: &records[i]}); err != nil {
			_ = pool.Shutdown(ctx)
			return nil, fmt.Errorf("enqueue record %d: %w", i, err)
		}
	}
	_ = q.Close()

	if err := pool.Wait(ctx); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := pool.Err(); err != nil {
		return nil, fmt.Errorf("assess batch: %w", err)
	}

	cfg.log.Debug(ctx, "batch assessed",
		logger.Int("records", len(records)),
		logger.Int("workers", len(pool.workers)),
		logger.Any("duration", time.Since(start)),
	)
	return sink.out, nil
}
