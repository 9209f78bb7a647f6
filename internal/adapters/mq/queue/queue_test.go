package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/jmscore/internal/domain/model"
)

func job(player string, score int64) Job {
	return NewJob(model.Submission{PlayerID: player, Score: score})
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, job("alice", 10)) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.Submission.PlayerID != "alice" || got.Submission.Score != 10 {
		t.Errorf("unexpected job %+v", got.Submission)
	}
	if cap(got.Reply) != 1 {
		t.Errorf("reply channel must hold one outcome, cap=%d", cap(got.Reply))
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2), WithBufferSize(1))
	ctx := context.Background()

	if !q.Enqueue(ctx, job("a", 1)) || !q.Enqueue(ctx, job("b", 2)) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, job("c", 3)) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_FIFO(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if !q.Enqueue(ctx, job("alice", int64(i))) {
			t.Fatalf("enqueue %d failed", i)
		}
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var scores []int64
	for j := range q.Dequeue(ctx) {
		scores = append(scores, j.Submission.Score)
	}
	if fmt.Sprint(scores) != "[0 1 2 3 4]" {
		t.Errorf("jobs out of order after close: %v", scores)
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()

	if q.IsClosed() {
		t.Error("new queue reports closed")
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("queue should report closed")
	}
	if q.Enqueue(ctx, job("late", 1)) {
		t.Error("enqueue after close must fail")
	}
}

func TestInMemoryQueue_CancelledConsumerReplies(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())

	j := job("alice", 1)
	if !q.Enqueue(context.Background(), j) {
		t.Fatal("enqueue failed")
	}
	out := q.Dequeue(ctx)
	time.Sleep(10 * time.Millisecond) // let the forwarder pick the job up
	cancel()

	select {
	case o := <-j.Reply:
		if !errors.Is(o.Err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", o.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("job dropped without a reply")
	}
	if _, ok := <-out; ok {
		t.Error("dequeue channel should be closed")
	}
}

func TestInMemoryQueue_CancelledConsumerFailsBuffered(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())

	jobs := []Job{job("alice", 1), job("alice", 2), job("bob", 3)}
	for _, j := range jobs {
		if !q.Enqueue(context.Background(), j) {
			t.Fatal("enqueue failed")
		}
	}
	_ = q.Dequeue(ctx) // nobody reads: the forwarder blocks on the first job
	time.Sleep(10 * time.Millisecond)
	cancel()

	for i, j := range jobs {
		select {
		case o := <-j.Reply:
			if !errors.Is(o.Err, context.Canceled) {
				t.Errorf("job %d: expected context.Canceled, got %v", i, o.Err)
			}
		case <-time.After(time.Second):
			t.Fatalf("job %d dropped without a reply", i)
		}
	}
	if n := q.Len(context.Background()); n != 0 {
		t.Errorf("expected an empty queue, got %d", n)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1000))
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if !q.Enqueue(ctx, job(fmt.Sprintf("p%d", g), int64(i))) {
					t.Errorf("enqueue failed for producer %d", g)
				}
			}
		}(g)
	}
	wg.Wait()

	if l := q.Len(ctx); l != 1000 {
		t.Errorf("expected 1000 queued jobs, got %d", l)
	}
}
