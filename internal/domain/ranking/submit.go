package ranking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/okian/jmscore/internal/adapters/replay"
	"github.com/okian/jmscore/internal/adapters/repository"
	"github.com/okian/jmscore/internal/domain/codec"
	"github.com/okian/jmscore/internal/domain/model"
	"github.com/okian/jmscore/pkg/logger"
	"github.com/okian/jmscore/pkg/metrics"
)

// PersonalLimit is the number of personal entries kept per mode.
const PersonalLimit = 10

// SubmitResult describes what a submission changed.
type SubmitResult struct {
	// EntryID is the leaderboard entry written, empty when the global
	// table was left untouched.
	EntryID            string
	LeaderboardUpdated bool
	PersonalUpdated    bool
}

// plan collects the replay work to do once the transaction commits.
type plan struct {
	publishID string
	deleteID  string
}

// SubmitScore records a finished game. The leaderboard and account writes
// commit together; the replay is published after the commit while the
// write lock is still held.
func (e *Engine) SubmitScore(ctx context.Context, sub model.Submission) (SubmitResult, error) {
	if e.noScores {
		return SubmitResult{}, ErrScoresDisabled
	}

	start := time.Now()
	defer func() {
		metrics.RecordSubmissionLatency(float64(time.Since(start).Milliseconds()))
	}()

	var staged *replay.Staged
	if len(sub.Replay) > 0 {
		var err error
		staged, err = e.replays.Stage(ctx, sub.Replay)
		if err != nil {
			metrics.RecordErrorByComponent("ranking", "replay_stage")
			return SubmitResult{}, fmt.Errorf("submit %q: %w", sub.PlayerID, err)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		res SubmitResult
		p   plan
	)
	err := e.store.Update(ctx, func(tx repository.Tx) error {
		raw, found, err := tx.Get(ctx, repository.Accounts, sub.PlayerID)
		if err != nil {
			return err
		}
		if !found {
			return ErrUnknownAccount
		}
		acc, err := codec.DecodeAccount(raw)
		if err != nil {
			return err
		}

		res, p, err = e.applyLeaderboard(ctx, tx, &sub, staged != nil)
		if err != nil {
			return err
		}

		res.PersonalUpdated = applyPersonal(&acc, sub.PersonalEntry())
		b, err := codec.EncodeAccount(&acc)
		if err != nil {
			return err
		}
		return tx.Put(ctx, repository.Accounts, acc.ID, b)
	})
	if err != nil {
		if staged != nil {
			if derr := staged.Discard(); derr != nil {
				e.logger.Warn(ctx, "discard staged replay failed", logger.Error(derr))
			}
		}
		return SubmitResult{}, fmt.Errorf("submit %q: %w", sub.PlayerID, err)
	}

	e.finishReplay(ctx, staged, p)

	if res.LeaderboardUpdated {
		metrics.RecordLeaderboardWrite()
	}
	e.logger.Debug(ctx, "score stored",
		logger.String("player", sub.PlayerID),
		logger.Int("mode", sub.Mode),
		logger.Int64("score", sub.Score),
		logger.String("entry", res.EntryID),
		logger.Any("leaderboard", res.LeaderboardUpdated),
		logger.Any("personal", res.PersonalUpdated),
	)
	return res, nil
}

// applyLeaderboard writes the global entry for sub, if any, and reports
// which replay operation must follow the commit.
func (e *Engine) applyLeaderboard(ctx context.Context, tx repository.Tx, sub *model.Submission, hasReplay bool) (SubmitResult, plan, error) {
	key := sub.Key()

	if !e.multiScores {
		raw, found, err := tx.Get(ctx, repository.Leaderboard, key)
		if err != nil {
			return SubmitResult{}, plan{}, err
		}
		if found {
			old, err := codec.DecodeEntry(raw)
			if err != nil {
				return SubmitResult{}, plan{}, err
			}
			if sub.Score <= old.Score {
				return SubmitResult{}, plan{}, nil
			}
			if err := e.putEntry(ctx, tx, sub.Entry(old.EntryID)); err != nil {
				return SubmitResult{}, plan{}, err
			}
			res := SubmitResult{EntryID: old.EntryID, LeaderboardUpdated: true}
			if hasReplay {
				return res, plan{publishID: old.EntryID}, nil
			}
			return res, plan{deleteID: old.EntryID}, nil
		}
	}

	id, err := e.mintEntryID(ctx)
	if err != nil {
		return SubmitResult{}, plan{}, err
	}
	if err := e.putEntry(ctx, tx, sub.Entry(id)); err != nil {
		return SubmitResult{}, plan{}, err
	}
	res := SubmitResult{EntryID: id, LeaderboardUpdated: true}
	if hasReplay {
		return res, plan{publishID: id}, nil
	}
	return res, plan{}, nil
}

func (e *Engine) putEntry(ctx context.Context, tx repository.Tx, entry model.LeaderboardEntry) error {
	b, err := codec.EncodeEntry(&entry)
	if err != nil {
		return err
	}
	return tx.Put(ctx, repository.Leaderboard, entry.Key(), b)
}

// finishReplay runs after commit. Failures leave the entry without a
// replay and are only logged.
func (e *Engine) finishReplay(ctx context.Context, staged *replay.Staged, p plan) {
	if staged != nil {
		if p.publishID == "" {
			if err := staged.Discard(); err != nil {
				e.logger.Warn(ctx, "discard staged replay failed", logger.Error(err))
			}
		} else if err := staged.Publish(p.publishID); err != nil {
			metrics.RecordErrorByComponent("ranking", "replay_publish")
			e.logger.Error(ctx, "publish replay failed", logger.String("entry", p.publishID), logger.Error(err))
		}
	}
	if p.deleteID != "" {
		if err := e.replays.Delete(ctx, p.deleteID); err != nil {
			metrics.RecordErrorByComponent("ranking", "replay_delete")
			e.logger.Error(ctx, "delete stale replay failed", logger.String("entry", p.deleteID), logger.Error(err))
		}
	}
}

// applyPersonal inserts entry into the account's personal ranking. Each
// mode keeps at most PersonalLimit entries; when full, the lowest score of
// the mode (the first one met in stored order on ties) is replaced if the
// new score is strictly greater. The whole list is then re-sorted
// descending by score, ties keeping their order.
func applyPersonal(acc *model.Account, entry model.PersonalRankingEntry) bool {
	updated := false
	if acc.ModeCount(entry.Mode) < PersonalLimit {
		acc.Rankings = append(acc.Rankings, entry)
		updated = true
	} else {
		lowest := -1
		for i := range acc.Rankings {
			if acc.Rankings[i].Mode != entry.Mode {
				continue
			}
			if lowest < 0 || acc.Rankings[i].Score < acc.Rankings[lowest].Score {
				lowest = i
			}
		}
		if lowest >= 0 && entry.Score > acc.Rankings[lowest].Score {
			acc.Rankings[lowest] = entry
			updated = true
			metrics.RecordPersonalEviction()
		}
	}

	sort.SliceStable(acc.Rankings, func(i, j int) bool {
		return acc.Rankings[i].Score > acc.Rankings[j].Score
	})
	return updated
}
