package ranking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/okian/jmscore/internal/adapters/repository"
	"github.com/okian/jmscore/internal/domain/codec"
	"github.com/okian/jmscore/internal/domain/model"
	"github.com/okian/jmscore/internal/domain/types"
	"github.com/okian/jmscore/pkg/metrics"
)

// PageSize is the number of rows on a global leaderboard page.
const PageSize = 10

// AutoPage asks for the first page unless the player's own position picks one.
const AutoPage = -1

// GlobalQuery selects a page of the global leaderboard.
type GlobalQuery struct {
	Mode     int
	View     int    // page index; AutoPage and other negatives mean 0
	PlayerID string // when set and ranked, its page overrides View
}

// PersonalRanking returns the player's personal entries for mode in stored
// (descending) order. An unknown account yields no rows.
func (e *Engine) PersonalRanking(ctx context.Context, playerID string, mode int) ([]types.PersonalRow, error) {
	start := time.Now()
	defer func() {
		metrics.RecordQueryLatency("personal", float64(time.Since(start).Milliseconds()))
	}()

	e.mu.RLock()
	defer e.mu.RUnlock()

	var acc model.Account
	var found bool
	err := e.store.View(ctx, func(r repository.Reader) error {
		raw, ok, err := r.Get(ctx, repository.Accounts, playerID)
		if err != nil || !ok {
			return err
		}
		found = true
		acc, err = codec.DecodeAccount(raw)
		return err
	})
	if err != nil {
		metrics.RecordErrorByComponent("ranking", "personal_query")
		return nil, fmt.Errorf("personal ranking %q: %w", playerID, err)
	}
	if !found {
		return nil, nil
	}

	var rows []types.PersonalRow
	for _, r := range acc.Rankings {
		if r.Mode != mode {
			continue
		}
		rows = append(rows, types.PersonalRow{
			PlayerID:    acc.ID,
			Score:       r.Score,
			Level:       r.Level,
			ElapsedTime: r.ElapsedTime,
			JewelCount:  r.JewelCount,
			First:       len(rows) == 0,
		})
	}
	return rows, nil
}

// GlobalRanking returns one page of the mode's leaderboard, best first.
// Equal scores keep their storage order.
func (e *Engine) GlobalRanking(ctx context.Context, q GlobalQuery) ([]types.GlobalRow, error) {
	start := time.Now()
	defer func() {
		metrics.RecordQueryLatency("global", float64(time.Since(start).Milliseconds()))
	}()

	e.mu.RLock()
	defer e.mu.RUnlock()

	var entries []model.LeaderboardEntry
	err := e.store.View(ctx, func(r repository.Reader) error {
		all, err := r.GetAll(ctx, repository.Leaderboard, "")
		if err != nil {
			return err
		}
		for _, raw := range all {
			entry, err := codec.DecodeEntry(raw)
			if err != nil {
				return err
			}
			if entry.Mode == q.Mode {
				entries = append(entries, entry)
			}
		}
		return nil
	})
	if err != nil {
		metrics.RecordErrorByComponent("ranking", "global_query")
		return nil, fmt.Errorf("global ranking mode %d: %w", q.Mode, err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	page := resolvePage(entries, q)
	if page >= (len(entries)+PageSize-1)/PageSize {
		return nil, nil
	}
	lo := page * PageSize
	hi := min(lo+PageSize, len(entries))

	rows := make([]types.GlobalRow, 0, hi-lo)
	lit := false
	for _, en := range entries[lo:hi] {
		row := types.GlobalRow{
			Page:        page,
			EntryID:     en.EntryID,
			PlayerID:    en.PlayerID,
			Score:       en.Score,
			Level:       en.Level,
			Class:       en.Class,
			ElapsedTime: en.ElapsedTime,
			JewelCount:  en.JewelCount,
		}
		if !lit && q.PlayerID != "" && en.PlayerID == q.PlayerID {
			row.Highlight = true
			lit = true
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// resolvePage picks the page: the player's own page when ranked, else the
// requested one with negatives treated as 0.
func resolvePage(sorted []model.LeaderboardEntry, q GlobalQuery) int {
	if q.PlayerID != "" {
		for i := range sorted {
			if sorted[i].PlayerID == q.PlayerID {
				return i / PageSize
			}
		}
	}
	if q.View < 0 {
		return 0
	}
	return q.View
}
