// Package worker derives nudges for a batch of scored records in parallel.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/empathy/internal/adapters/mq/queue"
	"github.com/okian/empathy/internal/domain/model"
	"github.com/okian/empathy/internal/domain/nudge"
	"github.com/okian/empathy/pkg/logger"
	"github.com/okian/empathy/pkg/metrics"
)

// Default worker configuration constants.
const (
	poolShutdownTimeout = 30 * time.Second
)

// Deriver assesses one record. nudge.Engine satisfies it.
type Deriver interface {
	Assess(r *model.WeeklyRecord) nudge.Assessment
}

// Sink receives the assessment for the record at index.
type Sink interface {
	Put(ctx context.Context, index int, a nudge.Assessment) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until its queue is drained.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in hand.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker over a Queue.
type InMemoryWorker struct {
	queue   Queue
	deriver Deriver
	sink    Sink
	name    string

	shutdown chan struct{}
	done     chan struct{}

	mu  sync.Mutex
	err error

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, deriver Deriver, sink Sink, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		deriver:  deriver,
		sink:     sink,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, j); err != nil {
				w.logger.Error(ctx, "error processing job", logger.Error(err))
				w.fail(err)
			}
		}
	}
}

func (w *InMemoryWorker) fail(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		w.err = err
	}
}

// Err returns the first job error the worker hit, or nil.
func (w *InMemoryWorker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process assesses a single record and hands the result to the sink.
func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if j.Record == nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "empty_job")
		return fmt.Errorf("%w: job %d", ErrEmptyJob, j.Index)
	}

	a := w.deriver.Assess(j.Record)
	for _, m := range a.Nudges {
		metrics.RecordNudgeDerived(string(m.Kind))
	}

	if err := w.sink.Put(ctx, j.Index, a); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "sink_error")
		metrics.RecordErrorByType("sink_error", "high")
		w.logger.Error(ctx, "storing assessment failed",
			logger.String("key", a.Key.String()),
			logger.Error(err),
		)
		return fmt.Errorf("store assessment %s: %w", a.Key, err)
	}
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	logger logger.Logger
}

// NewPool creates a new worker pool. A non-positive workerCount uses one
// worker per CPU.
func NewPool(workerCount int, queue Queue, deriver Deriver, sink Sink) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			deriver,
			sink,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Wait blocks until every worker has returned, which happens once the
// queue is closed and drained or ctx is canceled.
func (p *Pool) Wait(ctx context.Context) error {
	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker wait interrupted", logger.Int("worker_id", i))
			return ctx.Err()
		}
	}
	return nil
}

// Err returns the first job error reported by any worker, in worker order.
func (p *Pool) Err() error {
	for _, w := range p.workers {
		if err := w.Err(); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown closes the queue, stops every worker and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
