// Package ranking implements accounts, score submission and the personal
// and global leaderboard views on top of the key-value store.
//
// The engine is the only writer of both tables and the only driver of the
// replay store. Writes hold the engine's write lock from the store
// transaction through the replay publish, so a reader never sees an entry
// whose replay is missing or stale.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/okian/jmscore/internal/adapters/replay"
	"github.com/okian/jmscore/internal/adapters/repository"
	"github.com/okian/jmscore/internal/domain/codec"
	"github.com/okian/jmscore/internal/domain/model"
	"github.com/okian/jmscore/pkg/logger"
	"github.com/okian/jmscore/pkg/metrics"
)

// Replays is the subset of the replay store the engine drives.
type Replays interface {
	Stage(ctx context.Context, data []byte) (*replay.Staged, error)
	Get(ctx context.Context, entryID string) ([]byte, error)
	Exists(ctx context.Context, entryID string) (bool, error)
	Delete(ctx context.Context, entryID string) error
}

// AuthResult is the outcome of Authenticate.
type AuthResult struct {
	OK         bool
	Registered bool
}

// Engine serves the five game operations.
type Engine struct {
	store   repository.Store
	replays Replays

	register      bool
	multiScores   bool
	noScores      bool
	rejectEmptyID bool
	nextEntryID   func() string

	mu     sync.RWMutex
	logger logger.Logger
}

// NewEngine creates an engine over store and replays. Registration is on
// and single-score mode is the default.
func NewEngine(store repository.Store, replays Replays, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		replays:     replays,
		register:    true,
		nextEntryID: randomEntryID,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("ranking")
	}
	return e
}

// Authenticate logs a player in, creating the account on first login when
// registration is enabled. A wrong password is a result, not an error.
func (e *Engine) Authenticate(ctx context.Context, id, password string) (AuthResult, error) {
	if utf8.RuneCountInString(id) > model.MaxPlayerIDLength {
		metrics.RecordAuth("denied")
		return AuthResult{}, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var res AuthResult
	err := e.store.Update(ctx, func(tx repository.Tx) error {
		raw, found, err := tx.Get(ctx, repository.Accounts, id)
		if err != nil {
			return err
		}
		if found {
			acc, err := codec.DecodeAccount(raw)
			if err != nil {
				return err
			}
			res.OK = acc.Password == password
			return nil
		}

		if !e.register || (id == "" && e.rejectEmptyID) {
			return nil
		}
		acc := model.Account{ID: id, Password: password}
		b, err := codec.EncodeAccount(&acc)
		if err != nil {
			return err
		}
		if err := tx.Put(ctx, repository.Accounts, id, b); err != nil {
			return err
		}
		res = AuthResult{OK: true, Registered: true}
		return nil
	})
	if err != nil {
		metrics.RecordErrorByComponent("ranking", "auth")
		return AuthResult{}, fmt.Errorf("authenticate %q: %w", id, err)
	}

	switch {
	case res.Registered:
		metrics.RecordAuth("registered")
		e.logger.Info(ctx, "account registered", logger.String("player", id))
	case res.OK:
		metrics.RecordAuth("ok")
	default:
		metrics.RecordAuth("denied")
	}
	return res, nil
}

// Replay returns the replay bytes of an entry. replay.ErrNotFound is a
// normal outcome.
func (e *Engine) Replay(ctx context.Context, entryID string) ([]byte, error) {
	start := time.Now()
	defer func() {
		metrics.RecordQueryLatency("replay", float64(time.Since(start).Milliseconds()))
	}()

	e.mu.RLock()
	defer e.mu.RUnlock()

	data, err := e.replays.Get(ctx, entryID)
	switch {
	case errors.Is(err, replay.ErrNotFound):
		metrics.RecordReplayMiss()
		return nil, err
	case err != nil:
		metrics.RecordErrorByComponent("ranking", "replay_read")
		return nil, fmt.Errorf("replay %q: %w", entryID, err)
	}
	metrics.RecordReplayServed(len(data))
	return data, nil
}
