// Package service wires storage, the ranking engine and the submission
// writers into the operations served over HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/okian/jmscore/internal/adapters/mq/queue"
	"github.com/okian/jmscore/internal/adapters/mq/worker"
	"github.com/okian/jmscore/internal/adapters/replay"
	"github.com/okian/jmscore/internal/adapters/repository"
	"github.com/okian/jmscore/internal/config"
	"github.com/okian/jmscore/internal/domain/dedupe"
	"github.com/okian/jmscore/internal/domain/model"
	"github.com/okian/jmscore/internal/domain/ranking"
	"github.com/okian/jmscore/internal/domain/scoring"
	"github.com/okian/jmscore/internal/domain/types"
	"github.com/okian/jmscore/pkg/logger"
	"github.com/okian/jmscore/pkg/metrics"
)

// Service implements the API dependencies for the scoring server.
type Service struct {
	mu sync.RWMutex

	cfg        *config.Config
	engineOpts []ranking.Option

	store     *repository.SQLiteStore
	replays   *replay.Store
	engine    *ranking.Engine
	validator *scoring.Validator
	deduper   dedupe.Deduper
	queues    []queue.Queue
	pool      *worker.Pool

	started bool
	logger  logger.Logger
}

// New constructs a Service over cfg. Nothing is opened until Start.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the stores and starts the submission writers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting scoring service...",
		logger.String("db", s.cfg.DatabasePath()),
		logger.String("replays", s.cfg.ReplayPath()),
	)

	store, err := repository.NewSQLiteStore(ctx, s.cfg.DatabasePath(),
		repository.WithMultiScores(s.cfg.MultiScores),
		repository.WithReaderConns(s.cfg.ReaderConns),
		repository.WithBusyTimeout(s.cfg.BusyTimeout),
		repository.WithMetricsUpdateInterval(metrics.RefreshInterval()),
		repository.WithLogger(logger.Get().Named("store")),
	)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	replays, err := replay.Open(s.cfg.ReplayPath(),
		replay.WithCompression(s.cfg.ReplayCompression),
		replay.WithLogger(logger.Get().Named("replay")),
	)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("open replays: %w", err)
	}
	if _, err := replays.Sweep(ctx); err != nil {
		s.logger.Warn(ctx, "replay sweep failed", logger.Error(err))
	}

	engineOpts := append([]ranking.Option{
		ranking.WithRegister(s.cfg.Register),
		ranking.WithMultiScores(s.cfg.MultiScores),
		ranking.WithNoScores(s.cfg.NoScores),
		ranking.WithRejectEmptyID(s.cfg.RejectEmptyID),
	}, s.engineOpts...)

	s.store = store
	s.replays = replays
	s.engine = ranking.NewEngine(store, replays, engineOpts...)
	s.validator = scoring.NewValidator(
		scoring.WithModes(s.cfg.Modes...),
		scoring.WithMaxScore(s.cfg.MaxScore),
	)

	if s.cfg.DedupeSize > 0 {
		s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.cfg.DedupeSize))
	} else {
		s.deduper = dedupe.Disabled()
	}

	writers := s.cfg.WriterCount
	if writers < 1 {
		writers = 1
	}
	s.queues = make([]queue.Queue, writers)
	for i := range s.queues {
		s.queues[i] = queue.NewInMemoryQueue(
			queue.WithCapacity(s.cfg.QueueSize),
			queue.WithBufferSize(s.cfg.QueueSize),
		)
	}
	metrics.UpdateQueueCapacity(s.cfg.QueueSize * writers)

	// Writers outlive the caller's start context; Stop ends them.
	s.pool = worker.NewPool(s.queues, s.engine)
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.Int("writers", writers),
		logger.Int("queueSize", s.cfg.QueueSize),
		logger.Int("dedupeSize", s.cfg.DedupeSize),
		logger.Any("register", s.cfg.Register),
		logger.Any("multiScores", s.cfg.MultiScores),
	)

	return nil
}

// Stop drains the writers and closes the stores.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping scoring service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("writers: %w", err))
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if err := s.replays.Close(); err != nil {
		errs = append(errs, fmt.Errorf("replays: %w", err))
	}

	s.started = false
	s.logger.Info(ctx, "scoring service stopped")
	return errors.Join(errs...)
}

// running returns the engine once the service has started.
func (s *Service) running() (*ranking.Engine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.engine, nil
}

// Authenticate logs a player in, registering on first login if enabled.
func (s *Service) Authenticate(ctx context.Context, id, password string) (ranking.AuthResult, error) {
	engine, err := s.running()
	if err != nil {
		return ranking.AuthResult{}, err
	}
	return engine.Authenticate(ctx, id, password)
}

// Submit validates sub and hands it to the writer that owns the player,
// then waits for the outcome. A retry carrying the RetryID of a submission
// already accepted is acknowledged without being applied again.
func (s *Service) Submit(ctx context.Context, sub model.Submission) (ranking.SubmitResult, error) { //nolint:gocritic // hugeParam: the submission is handed to the queue by value
	s.mu.RLock()
	if !s.started {
		s.mu.RUnlock()
		return ranking.SubmitResult{}, ErrNotStarted
	}
	validator, deduper, queues := s.validator, s.deduper, s.queues
	noScores := s.cfg.NoScores
	s.mu.RUnlock()

	if noScores {
		metrics.RecordSubmission("disabled")
		return ranking.SubmitResult{}, ranking.ErrScoresDisabled
	}
	if err := validator.Validate(ctx, &sub); err != nil {
		metrics.RecordSubmission("invalid")
		return ranking.SubmitResult{}, err
	}

	key, tagged := dedupe.RetryKey(&sub)
	if tagged && deduper.SeenAndRecord(ctx, key) {
		metrics.RecordSubmission("duplicate")
		s.logger.Debug(ctx, "duplicate submission skipped",
			logger.String("player", sub.PlayerID),
			logger.Int64("score", sub.Score),
		)
		return ranking.SubmitResult{}, nil
	}

	q := queues[shard(sub.PlayerID, len(queues))]
	job := queue.NewJob(sub)
	if !q.Enqueue(ctx, job) {
		if tagged {
			deduper.Unrecord(ctx, key)
		}
		if err := ctx.Err(); err != nil {
			return ranking.SubmitResult{}, err
		}
		if q.IsClosed() {
			return ranking.SubmitResult{}, ErrNotStarted
		}
		metrics.RecordSubmission("busy")
		return ranking.SubmitResult{}, ErrQueueFull
	}

	select {
	case out := <-job.Reply:
		if out.Err != nil {
			if tagged {
				deduper.Unrecord(ctx, key)
			}
			metrics.RecordSubmission("failed")
			return ranking.SubmitResult{}, out.Err
		}
		metrics.RecordSubmission("accepted")
		return out.Result, nil
	case <-ctx.Done():
		return ranking.SubmitResult{}, ctx.Err()
	}
}

// shard picks the writer for a player so one player's submissions are
// applied in arrival order.
func shard(playerID string, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(playerID))
	return int(h.Sum32() % uint32(n))
}

// PersonalRanking returns the player's personal rows for mode.
func (s *Service) PersonalRanking(ctx context.Context, playerID string, mode int) ([]types.PersonalRow, error) {
	engine, err := s.running()
	if err != nil {
		return nil, err
	}
	return engine.PersonalRanking(ctx, playerID, mode)
}

// GlobalRanking returns one page of the global leaderboard.
func (s *Service) GlobalRanking(ctx context.Context, q ranking.GlobalQuery) ([]types.GlobalRow, error) {
	engine, err := s.running()
	if err != nil {
		return nil, err
	}
	return engine.GlobalRanking(ctx, q)
}

// Replay returns the replay bytes stored for an entry.
func (s *Service) Replay(ctx context.Context, entryID string) ([]byte, error) {
	engine, err := s.running()
	if err != nil {
		return nil, err
	}
	return engine.Replay(ctx, entryID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"writerCount": s.cfg.WriterCount,
		"queueSize":   s.cfg.QueueSize,
		"dedupeSize":  s.cfg.DedupeSize,
		"register":    s.cfg.Register,
		"multiScores": s.cfg.MultiScores,
		"noScores":    s.cfg.NoScores,
	}
	if !s.started {
		return stats
	}

	queued := 0
	for _, q := range s.queues {
		queued += q.Len(ctx)
	}
	stats["queueLength"] = queued
	stats["writers"] = s.pool.Size()
	stats["dedupeEntries"] = s.deduper.Size()

	for name, table := range map[string]repository.Table{
		"accounts":           repository.Accounts,
		"leaderboardEntries": repository.Leaderboard,
	} {
		n, err := s.store.Count(ctx, table)
		if err != nil {
			s.logger.Warn(ctx, "count failed", logger.String("table", string(table)), logger.Error(err))
			continue
		}
		stats[name] = n
		metrics.UpdateStoreRecords(string(table), n)
	}
	metrics.UpdateQueueSize(queued)

	return stats
}
