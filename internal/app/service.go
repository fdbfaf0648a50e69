// Package service runs the one-shot load pipeline (read, validate, infer,
// derive nudges) and serves the enriched snapshot to the HTTP API and CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/empathy/internal/adapters/mq/worker"
	"github.com/okian/empathy/internal/adapters/repository"
	"github.com/okian/empathy/internal/adapters/source"
	"github.com/okian/empathy/internal/domain/dedupe"
	"github.com/okian/empathy/internal/domain/features"
	"github.com/okian/empathy/internal/domain/inference"
	"github.com/okian/empathy/internal/domain/model"
	"github.com/okian/empathy/internal/domain/nudge"
	"github.com/okian/empathy/internal/domain/types"
	"github.com/okian/empathy/pkg/logger"
	"github.com/okian/empathy/pkg/metrics"
)

// ClassifierLoader opens the trained model. It runs concurrently with the
// snapshot read.
type ClassifierLoader func(ctx context.Context) (inference.Classifier, error)

// Service implements the API dependencies for the burnout nudge dashboard.
type Service struct {
	mu sync.RWMutex

	// Core components
	source     source.Source
	loadModel  ClassifierLoader
	classifier inference.Classifier
	engine     *nudge.Engine
	store      repository.Store

	// Configuration
	workerCount            int
	queueSize              int
	connectionRequiresRisk bool

	// State
	loaded  bool
	summary types.LoadSummary

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSource sets where the snapshot is read from.
func WithSource(src source.Source) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithClassifier sets an already opened classifier.
func WithClassifier(c inference.Classifier) Option {
	return func(s *Service) {
		if c != nil {
			s.loadModel = func(context.Context) (inference.Classifier, error) { return c, nil }
		}
	}
}

// WithClassifierLoader sets a function that opens the classifier during Load.
func WithClassifierLoader(fn ClassifierLoader) Option {
	return func(s *Service) {
		if fn != nil {
			s.loadModel = fn
		}
	}
}

// WithStore replaces the default in-memory snapshot store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithWorkerCount sets the number of nudge derivation workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the nudge job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithConnectionRequiresRisk selects the Connection rule variant.
func WithConnectionRequiresRisk(required bool) Option {
	return func(s *Service) {
		s.connectionRequiresRisk = required
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:            runtime.NumCPU(),
		queueSize:              1024,
		connectionRequiresRisk: true,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	s.engine = nudge.New(nudge.WithConnectionRequiresRisk(s.connectionRequiresRisk))

	return s
}

// Load runs the pipeline once: the snapshot and the classifier are opened
// in parallel, then the records are checked for duplicate keys, scored,
// assessed on the worker pool and published. Later calls return the first
// summary without reloading.
//
// Schema, duplicate and inference failures are fatal and returned as is.
func (s *Service) Load(ctx context.Context) (types.LoadSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.summary, nil
	}
	if s.source == nil {
		return types.LoadSummary{}, ErrNoSource
	}
	if s.loadModel == nil {
		return types.LoadSummary{}, ErrNoClassifier
	}

	start := time.Now()
	s.logger.Info(ctx, "loading snapshot...")

	var (
		records    []model.WeeklyRecord
		classifier inference.Classifier
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.source.Load(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		classifier, err = s.loadModel(gctx)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrClassifierLoad, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		if closer, ok := classifier.(io.Closer); ok {
			_ = closer.Close()
		}
		return types.LoadSummary{}, s.fail(ctx, err)
	}
	s.classifier = classifier

	if err := dedupe.Check(ctx, records); err != nil {
		return types.LoadSummary{}, s.fail(ctx, err)
	}

	if err := inference.NewAdapter(classifier).Predict(ctx, records); err != nil {
		return types.LoadSummary{}, s.fail(ctx, err)
	}

	assessments, err := worker.AssessAll(ctx, records, s.engine,
		worker.WithWorkers(s.workerCount),
		worker.WithQueueCapacity(s.queueSize),
	)
	if err != nil {
		return types.LoadSummary{}, s.fail(ctx, err)
	}

	entries := make([]repository.Entry, len(records))
	for i := range records {
		entries[i] = repository.Entry{Record: records[i], Assessment: assessments[i]}
	}
	if err := s.store.Publish(ctx, entries); err != nil {
		return types.LoadSummary{}, s.fail(ctx, err)
	}

	s.summary = summarize(ctx, s.store, entries, time.Since(start))
	s.loaded = true
	s.publishMetrics()
	metrics.RecordSnapshotLoad(float64(time.Since(start).Milliseconds()))

	s.logger.Info(ctx, "snapshot loaded",
		logger.Int("records", s.summary.Records),
		logger.Int("weeks", s.summary.Weeks),
		logger.String("latest_week", s.summary.LatestWeek),
		logger.Any("labels", s.summary.Labels),
		logger.Any("nudges", s.summary.Nudges),
		logger.Int("interventions", s.summary.Interventions),
	)
	return s.summary, nil
}

// fail records metrics and logs for a fatal pipeline error and returns it unchanged.
func (s *Service) fail(ctx context.Context, err error) error {
	var se *features.SchemaError
	switch {
	case errors.As(err, &se):
		metrics.RecordSchemaError()
		metrics.RecordErrorByComponent("source", "schema_error")
		s.logger.Error(ctx, "snapshot rejected: missing required columns",
			logger.Strings("missing", se.Missing))
	case errors.Is(err, dedupe.ErrDuplicateRecord):
		metrics.RecordDuplicateError()
		metrics.RecordErrorByComponent("dedupe", "duplicate_record")
		s.logger.Error(ctx, "snapshot rejected: duplicate employee-week keys", logger.Error(err))
	case errors.Is(err, inference.ErrInference):
		s.logger.Error(ctx, "inference failed", logger.Error(err))
	default:
		metrics.RecordErrorByComponent("service", "load_error")
		s.logger.Error(ctx, "load failed", logger.Error(err))
	}
	return err
}

func summarize(ctx context.Context, store repository.Store, entries []repository.Entry, took time.Duration) types.LoadSummary {
	sum := types.LoadSummary{
		Records:    len(entries),
		Labels:     make(map[string]int, model.ClassCount),
		Nudges:     make(map[string]int, len(nudge.Kinds())),
		DurationMs: took.Milliseconds(),
	}
	for l := model.RiskLow; l <= model.RiskHigh; l++ {
		sum.Labels[l.String()] = 0
	}
	for _, k := range nudge.Kinds() {
		sum.Nudges[string(k)] = 0
	}
	for i := range entries {
		sum.Labels[entries[i].Record.Prediction.Label.String()]++
		for _, k := range entries[i].Assessment.Kinds() {
			sum.Nudges[string(k)]++
		}
		if entries[i].Assessment.NeedsIntervention() {
			sum.Interventions++
		}
	}
	weeks := store.Options(ctx).Weeks
	sum.Weeks = len(weeks)
	if len(weeks) > 0 {
		sum.LatestWeek = weeks[len(weeks)-1]
	}
	return sum
}

func (s *Service) publishMetrics() {
	for label, n := range s.summary.Labels {
		metrics.UpdatePredictedLabelCount(label, n)
	}
}

// Loaded reports whether Load has completed successfully.
func (s *Service) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Summary returns the result of the completed load.
func (s *Service) Summary() types.LoadSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary
}

// Close releases the classifier when it holds native resources.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if closer, ok := s.classifier.(io.Closer); ok {
		s.classifier = nil
		return closer.Close()
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	rules := make([]string, 0, len(nudge.Kinds()))
	for _, r := range s.engine.Rules() {
		rules = append(rules, string(r.Kind()))
	}
	stats := map[string]interface{}{
		"loaded":                 s.loaded,
		"workerCount":            s.workerCount,
		"queueSize":              s.queueSize,
		"connectionRequiresRisk": s.engine.ConnectionRequiresRisk(),
		"rules":                  rules,
	}

	if s.loaded {
		stats["records"] = s.store.Count(ctx)
		stats["weeks"] = s.summary.Weeks
		stats["latestWeek"] = s.summary.LatestWeek
		stats["labels"] = s.summary.Labels
		stats["nudges"] = s.summary.Nudges
		stats["interventions"] = s.summary.Interventions
		stats["loadDurationMs"] = s.summary.DurationMs
	}

	return stats
}
