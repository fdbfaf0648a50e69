package worker_test

import (
	"context"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/okian/empathy/internal/adapters/mq/queue"
	"github.com/okian/empathy/internal/adapters/mq/worker"
	"github.com/okian/empathy/internal/domain/model"
	"github.com/okian/empathy/internal/domain/nudge"
	logging "github.com/okian/empathy/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logging.Init()
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// Mock implementations for testing.
type mockQueue struct {
	jobs chan queue.Job
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 10)}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan queue.Job { return mq.jobs }

func (mq *mockQueue) Close() error {
	close(mq.jobs)
	return nil
}

type mockSink struct {
	mu   sync.Mutex
	got  map[int]nudge.Assessment
	fail error
}

func newMockSink() *mockSink {
	return &mockSink{got: make(map[int]nudge.Assessment)}
}

func (s *mockSink) Put(ctx context.Context, index int, a nudge.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.got[index] = a
	return nil
}

func (s *mockSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func record(id string, afterHours int, probHigh float64) model.WeeklyRecord {
	return model.WeeklyRecord{
		EmployeeID:          id,
		WeekStartDate:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		AfterHoursMsgsCount: afterHours,
		Prediction: model.Prediction{
			Label:         model.RiskHigh,
			Probabilities: model.Probabilities{1 - probHigh, 0, probHigh},
		},
	}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker over a mock queue", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		q := newMockQueue()
		sink := newMockSink()
		w := worker.NewInMemoryWorker(q, nudge.New(), sink, worker.WithName("w-test"))

		convey.Convey("When jobs arrive and the queue closes", func() {
			r1 := record("e1", 25, 0.5)
			r2 := record("e2", 0, 0.1)
			q.jobs <- queue.Job{Index: 0, Record: &r1}
			q.jobs <- queue.Job{Index: 1, Record: &r2}
			_ = q.Close()

			w.Run(ctx)

			convey.Convey("Then every record is assessed into its slot", func() {
				convey.So(sink.len(), convey.ShouldEqual, 2)
				convey.So(sink.got[0].Kinds(), convey.ShouldResemble, []nudge.Kind{nudge.KindBoundary})
				convey.So(sink.got[1].Kinds(), convey.ShouldResemble, []nudge.Kind{nudge.KindNone})
				convey.So(sink.got[0].Key.EmployeeID, convey.ShouldEqual, "e1")
			})
		})

		convey.Convey("When a job carries no record", func() {
			q.jobs <- queue.Job{Index: 3}
			_ = q.Close()

			w.Run(ctx)

			convey.Convey("Then it is skipped and reported", func() {
				convey.So(sink.len(), convey.ShouldEqual, 0)
				convey.So(errors.Is(w.Err(), worker.ErrEmptyJob), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the sink fails", func() {
			sink.fail = errors.New("disk full")
			r := record("e1", 0, 0)
			q.jobs <- queue.Job{Index: 0, Record: &r}
			_ = q.Close()

			convey.Convey("Then the worker keeps running until the queue closes", func() {
				done := make(chan struct{})
				go func() {
					w.Run(ctx)
					close(done)
				}()
				select {
				case <-done:
				case <-time.After(time.Second):
					convey.So("worker did not return", convey.ShouldBeEmpty)
				}
				convey.So(errors.Is(w.Err(), sink.fail), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When shut down while idle", func() {
			go w.Run(ctx)
			err := w.Shutdown(ctx)

			convey.Convey("Then it stops promptly", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over an in-memory queue", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		sink := newMockSink()
		pool := worker.NewPool(3, q, nudge.New(), sink)
		pool.Start(ctx)

		convey.Convey("When jobs are put and the queue is closed", func() {
			records := make([]model.WeeklyRecord, 20)
			for i := range records {
				records[i] = record(fmt.Sprintf("e%02d", i), i*2, 0.4)
			}
			for i := range records {
				convey.So(q.Put(ctx, queue.Job{Index: i, Record: &records[i]}), convey.ShouldBeNil)
			}
			_ = q.Close()

			convey.Convey("Then Wait returns after every job is processed", func() {
				convey.So(pool.Wait(ctx), convey.ShouldBeNil)
				convey.So(sink.len(), convey.ShouldEqual, len(records))
			})
		})

		convey.Convey("When the sink rejects assessments", func() {
			diskFull := errors.New("disk full")
			sink.mu.Lock()
			sink.fail = diskFull
			sink.mu.Unlock()
			records := []model.WeeklyRecord{record("e1", 0, 0), record("e2", 30, 0.9)}
			for i := range records {
				convey.So(q.Put(ctx, queue.Job{Index: i, Record: &records[i]}), convey.ShouldBeNil)
			}
			_ = q.Close()

			convey.Convey("Then Err surfaces the first failure after Wait", func() {
				convey.So(pool.Wait(ctx), convey.ShouldBeNil)
				convey.So(errors.Is(pool.Err(), diskFull), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When every job succeeds", func() {
			r := record("e1", 0, 0)
			convey.So(q.Put(ctx, queue.Job{Index: 0, Record: &r}), convey.ShouldBeNil)
			_ = q.Close()

			convey.So(pool.Wait(ctx), convey.ShouldBeNil)
			convey.So(pool.Err(), convey.ShouldBeNil)
		})

		convey.Convey("When the pool is shut down", func() {
			convey.So(pool.Shutdown(ctx), convey.ShouldBeNil)

			convey.Convey("Then the queue is closed", func() {
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})
}

func TestAssessAll(t *testing.T) {
	convey.Convey("Given a batch of scored records", t, func() {
		ctx := context.Background()
		records := make([]model.WeeklyRecord, 100)
		for i := range records {
			records[i] = record(fmt.Sprintf("e%03d", i), i%40, float64(i%10)/10)
		}

		convey.Convey("When assessing with a small queue and several workers", func() {
			out, err := worker.AssessAll(ctx, records, nudge.New(), worker.WithWorkers(4), worker.WithQueueCapacity(3))

			convey.Convey("Then results line up with a sequential pass", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldHaveLength, len(records))
				engine := nudge.New()
				for i := range records {
					convey.So(out[i], convey.ShouldResemble, engine.Assess(&records[i]))
				}
			})
		})

		convey.Convey("When the batch is empty", func() {
			out, err := worker.AssessAll(ctx, nil, nudge.New())

			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldBeEmpty)
		})

		convey.Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := worker.AssessAll(cctx, records, nudge.New(), worker.WithQueueCapacity(1))

			convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
		})
	})
}

func TestPackageDocIsSingle(t *testing.T) {
	convey.Convey("Given the package sources", t, func() {
		fset := token.NewFileSet()
		pkgs, err := parser.ParseDir(fset, ".", func(fi fs.FileInfo) bool {
			return !strings.HasSuffix(fi.Name(), "_test.go")
		}, parser.PackageClauseOnly|parser.ParseComments)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then exactly one file carries the package doc", func() {
			docs := 0
			for _, p := range pkgs {
				for _, f := range p.Files {
					if f.Doc != nil {
						docs++
					}
				}
			}
			convey.So(docs, convey.ShouldEqual, 1)
		})
	})
}
