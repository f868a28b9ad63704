package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/lomba/internal/domain/model"
)

func sheet(id string) model.Submission {
	return model.Submission{
		SubmissionID:  id,
		TeamID:        "team-1",
		CompetitionID: "pbb",
		JudgeID:       "judge-1",
		Marks:         map[string]float64{"kerapian": 40},
	}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if c := q.Capacity(); c != 2 {
		t.Errorf("expected capacity 2, got %d", c)
	}

	if !q.Enqueue(ctx, sheet("s1")) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	dctx, cancel := context.WithCancel(ctx)
	defer cancel()
	got := <-q.Dequeue(dctx)
	if got.SubmissionID != "s1" {
		t.Errorf("expected s1, got %v", got.SubmissionID)
	}
	if got.Marks["kerapian"] != 40 {
		t.Errorf("expected marks to survive the queue, got %v", got.Marks)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, sheet("s1")) || !q.Enqueue(ctx, sheet("s2")) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, sheet("s3")) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_IgnoresInvalidCapacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(0))
	if q.Capacity() != defaultQueueCapacity {
		t.Errorf("expected default capacity, got %d", q.Capacity())
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, sheet("s1")) {
		t.Error("expected enqueue to fail with a cancelled context")
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	q.Enqueue(ctx, sheet("s1"))
	q.Enqueue(ctx, sheet("s2"))

	if err := q.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to report closed")
	}
	if q.Enqueue(ctx, sheet("s3")) {
		t.Error("expected enqueue after close to fail")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected second close to be a no-op, got %v", err)
	}

	// Sheets queued before close are still delivered.
	var ids []string
	for e := range q.Dequeue(ctx) {
		ids = append(ids, e.SubmissionID)
	}
	if len(ids) != 2 || ids[0] != "s1" || ids[1] != "s2" {
		t.Errorf("expected [s1 s2], got %v", ids)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	const producers = 10
	const perProducer = 100
	q := NewInMemoryQueue(WithCapacity(producers * perProducer))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				if !q.Enqueue(ctx, sheet(fmt.Sprintf("p%d-s%d", id, j))) {
					t.Errorf("enqueue failed for producer %d", id)
				}
			}
		}(i)
	}
	wg.Wait()

	if l := q.Len(ctx); l != producers*perProducer {
		t.Fatalf("expected %d queued, got %d", producers*perProducer, l)
	}

	dctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	seen := make(map[string]bool)
	ch := q.Dequeue(dctx)
	for len(seen) < producers*perProducer {
		select {
		case e := <-ch:
			if seen[e.SubmissionID] {
				t.Fatalf("duplicate delivery of %s", e.SubmissionID)
			}
			seen[e.SubmissionID] = true
		case <-dctx.Done():
			t.Fatalf("timed out after %d sheets", len(seen))
		}
	}
}
