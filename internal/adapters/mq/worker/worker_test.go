package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/lomba/internal/adapters/mq/queue"
	worker "github.com/okian/lomba/internal/adapters/mq/worker"
	model "github.com/okian/lomba/internal/domain/model"
	scoring "github.com/okian/lomba/internal/domain/scoring"
	logging "github.com/okian/lomba/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockQueue struct {
	eventChan chan queue.Event
	closeOnce sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{eventChan: make(chan queue.Event, 10)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan queue.Event { return mq.eventChan }

func (mq *mockQueue) Close() error {
	mq.closeOnce.Do(func() { close(mq.eventChan) })
	return nil
}

type mockScorer struct {
	mu     sync.RWMutex
	errors map[string]error
}

func newMockScorer() *mockScorer { return &mockScorer{errors: make(map[string]error)} }

func (ms *mockScorer) Score(_ context.Context, in scoring.Input) (scoring.Result, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	if err, ok := ms.errors[in.TeamID]; ok {
		return scoring.Result{}, err
	}
	var total float64
	for _, v := range in.Marks {
		total += v
	}
	return scoring.Result{Score: model.Score{
		TeamID:        in.TeamID,
		CompetitionID: in.CompetitionID,
		JudgeID:       in.JudgeID,
		MemberName:    in.MemberName,
		TotalScore:    total,
	}}, nil
}

func (ms *mockScorer) setError(teamID string, err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.errors[teamID] = err
}

type mockUpdater struct {
	mu     sync.RWMutex
	rows   map[model.ScoreKey]float64
	errors map[string]error
}

func newMockUpdater() *mockUpdater {
	return &mockUpdater{rows: make(map[model.ScoreKey]float64), errors: make(map[string]error)}
}

func (mu *mockUpdater) UpsertScore(_ context.Context, s model.Score) (bool, error) {
	mu.mu.Lock()
	defer mu.mu.Unlock()
	if err, ok := mu.errors[s.TeamID]; ok {
		return false, err
	}
	_, existed := mu.rows[s.Key()]
	mu.rows[s.Key()] = s.TotalScore
	return !existed, nil
}

func (mu *mockUpdater) setError(teamID string, err error) {
	mu.mu.Lock()
	defer mu.mu.Unlock()
	mu.errors[teamID] = err
}

func (mu *mockUpdater) get(teamID string) (float64, bool) {
	mu.mu.RLock()
	defer mu.mu.RUnlock()
	v, ok := mu.rows[model.ScoreKey{TeamID: teamID, CompetitionID: "pbb", JudgeID: "j1"}]
	return v, ok
}

func (mu *mockUpdater) count() int {
	mu.mu.RLock()
	defer mu.mu.RUnlock()
	return len(mu.rows)
}

func sheet(id, team string, marks float64) queue.Event {
	return queue.Event{
		SubmissionID:  id,
		TeamID:        team,
		CompetitionID: "pbb",
		JudgeID:       "j1",
		Marks:         map[string]float64{"kerapian": marks},
	}
}

// eventually polls cond until it holds or a second passes.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a running InMemoryWorker", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		scorer := newMockScorer()
		updater := newMockUpdater()

		var failedMu sync.Mutex
		var failed []string
		w := worker.NewInMemoryWorker(q, scorer, updater,
			worker.WithName("test-worker"),
			worker.WithFailureHook(func(_ context.Context, e worker.Event, _ error) {
				failedMu.Lock()
				defer failedMu.Unlock()
				failed = append(failed, e.SubmissionID)
			}),
		)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a valid sheet arrives", func() {
			q.eventChan <- sheet("s1", "t1", 85)

			convey.Convey("Then its row is stored", func() {
				convey.So(eventually(func() bool { _, ok := updater.get("t1"); return ok }), convey.ShouldBeTrue)
				v, _ := updater.get("t1")
				convey.So(v, convey.ShouldEqual, 85.0)
			})
		})

		convey.Convey("When scoring fails", func() {
			scorer.setError("t2", errors.New("unknown criterion"))
			q.eventChan <- sheet("s2", "t2", 10)

			convey.Convey("Then nothing is stored and the hook sees the sheet", func() {
				convey.So(eventually(func() bool {
					failedMu.Lock()
					defer failedMu.Unlock()
					return len(failed) == 1
				}), convey.ShouldBeTrue)
				_, ok := updater.get("t2")
				convey.So(ok, convey.ShouldBeFalse)
				convey.So(failed[0], convey.ShouldEqual, "s2")
			})
		})

		convey.Convey("When the store fails", func() {
			updater.setError("t3", errors.New("connection reset"))
			q.eventChan <- sheet("s3", "t3", 10)
			q.eventChan <- sheet("s4", "t4", 20)

			convey.Convey("Then the worker keeps going", func() {
				convey.So(eventually(func() bool { _, ok := updater.get("t4"); return ok }), convey.ShouldBeTrue)
				_, ok := updater.get("t3")
				convey.So(ok, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer shutdownCancel()

			convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a worker whose queue closes", t, func() {
		_ = logging.Init()
		q := newMockQueue()
		w := worker.NewInMemoryWorker(q, newMockScorer(), newMockUpdater())
		go w.Run(context.Background())

		_ = q.Close()

		convey.Convey("Then Run returns", func() {
			select {
			case <-w.Done():
				convey.So(true, convey.ShouldBeTrue)
			case <-time.After(time.Second):
				convey.So("worker still running", convey.ShouldBeEmpty)
			}
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of workers over a real queue", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(500))
		updater := newMockUpdater()
		scorer := newMockScorer()
		scorer.setError("bad", errors.New("member required"))
		pool := worker.NewPool(4, q, scorer, updater)
		convey.So(pool.Size(), convey.ShouldEqual, 4)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		convey.Convey("When sheets are queued and the pool is shut down", func() {
			for i := 0; i < 200; i++ {
				convey.So(q.Enqueue(ctx, sheet(fmt.Sprintf("s%d", i), fmt.Sprintf("t%d", i), float64(i))), convey.ShouldBeTrue)
			}
			convey.So(q.Enqueue(ctx, sheet("sx", "bad", 1)), convey.ShouldBeTrue)

			err := pool.Shutdown(context.Background())

			convey.Convey("Then every sheet is drained before the workers stop", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(updater.count(), convey.ShouldEqual, 200)
				convey.So(pool.Processed(), convey.ShouldEqual, 200)
				convey.So(pool.Failed(), convey.ShouldEqual, 1)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a non-positive worker count", t, func() {
		_ = logging.Init()
		pool := worker.NewPool(0, newMockQueue(), newMockScorer(), newMockUpdater())

		convey.Convey("Then the pool sizes itself from the CPU count", func() {
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}
