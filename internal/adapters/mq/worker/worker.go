// Package worker runs the writers that apply queued score submissions.
//
// Each writer drains exactly one queue, so submissions routed to the same
// queue are applied in arrival order.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/jmscore/internal/adapters/mq/queue"
	"github.com/okian/jmscore/internal/domain/model"
	"github.com/okian/jmscore/internal/domain/ranking"
	"github.com/okian/jmscore/pkg/logger"
	"github.com/okian/jmscore/pkg/metrics"
)

// Default worker configuration constants.
const (
	poolShutdownTimeout = 30 * time.Second
)

// Submitter applies one submission to the leaderboard state.
type Submitter interface {
	SubmitScore(ctx context.Context, sub model.Submission) (ranking.SubmitResult, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs and reports each outcome back to the caller.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue drains.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in hand.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker on top of a Queue.
type InMemoryWorker struct {
	queue     Queue
	submitter Submitter
	name      string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, submitter Submitter, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		submitter: submitter,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
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
			w.process(ctx, j)
		}
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

// Shutdown stops the worker and waits for Run to return.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process applies a single job and always answers on its reply channel.
func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	metrics.RecordQueueProcessingLatency(float64(start.Sub(j.Enqueued).Milliseconds()))
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	res, err := w.submitter.SubmitScore(ctx, j.Submission)
	if err != nil && !errors.Is(err, context.Canceled) {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "submit_error")
		w.logger.Error(ctx, "submission failed",
			logger.String("player", j.Submission.PlayerID),
			logger.Int("mode", j.Submission.Mode),
			logger.Error(err),
		)
	}

	if j.Reply != nil {
		j.Reply <- queue.Outcome{Result: res, Err: err}
	}
}

// Pool runs one worker per queue.
type Pool struct {
	workers []*InMemoryWorker
	queues  []queue.Queue
	cancel  context.CancelFunc

	logger logger.Logger
}

// NewPool creates a pool with a dedicated worker for every queue.
func NewPool(queues []queue.Queue, submitter Submitter, opts ...Option) *Pool {
	pool := &Pool{
		workers: make([]*InMemoryWorker, len(queues)),
		queues:  queues,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i, q := range queues {
		workerOpts := append([]Option{WithName("writer-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(q, submitter, workerOpts...)
	}

	metrics.UpdateWorkerCount(len(queues))

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool. They stop when ctx ends or when
// Shutdown gives up waiting for them.
func (p *Pool) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	for _, w := range p.workers {
		go w.Run(runCtx)
	}
	p.logger.Info(ctx, "writers started", logger.Int("count", len(p.workers)))
}

// Shutdown closes every queue and waits for the workers to drain them.
// Workers still busy when ctx or the pool timeout expires are stopped, and
// the jobs they leave behind are answered with context.Canceled.
func (p *Pool) Shutdown(ctx context.Context) error {
	defer p.stop()

	for _, q := range p.queues {
		if err := q.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var errs []error
	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			p.stop()
			stopCtx, stop := context.WithTimeout(context.Background(), time.Second)
			if err := w.Shutdown(stopCtx); err != nil {
				errs = append(errs, fmt.Errorf("writer-%d: %w", i, err))
			}
			stop()
		}
	}

	metrics.UpdateWorkerCount(0)
	return errors.Join(errs...)
}

func (p *Pool) stop() {
	if p.cancel != nil {
		p.cancel()
	}
}
