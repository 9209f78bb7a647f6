package loadgen

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/okian/jmscore/pkg/logger"
)

const (
	personalLimit = 10
	maxPagesScan  = 1000
)

// verify checks every fully accepted player against the server, then
// walks the global leaderboard. Mismatches become violations; transport
// failures end the run.
func verify(ctx context.Context, cfg *Config, client *Client, players []Player, stats *Stats) error {
	log := logger.Get().Named("loadgen")
	log.Info(ctx, "verifying rankings", logger.Int("players", len(players)))

	for i := range players {
		if players[i].failed {
			continue
		}
		if err := verifyPlayer(ctx, cfg, client, &players[i], stats); err != nil {
			return err
		}
	}
	return verifyPages(ctx, cfg, client, stats)
}

func verifyPlayer(ctx context.Context, cfg *Config, client *Client, p *Player, stats *Stats) error {
	violate := func(format string, args ...any) {
		stats.Violations = append(stats.Violations, p.ID+": "+fmt.Sprintf(format, args...))
	}

	personal, err := client.Personal(ctx, p.ID, cfg.Mode)
	if err != nil {
		return err
	}
	want := expectedPersonal(p)
	if len(personal) != len(want) {
		violate("personal ranking has %d rows, want %d", len(personal), len(want))
	} else {
		for i, row := range personal {
			if row.Score != want[i] {
				violate("personal row %d score %d, want %d", i, row.Score, want[i])
				break
			}
			if row.First != (i == 0) {
				violate("personal row %d first flag %v", i, row.First)
				break
			}
		}
	}

	page, err := client.Global(ctx, p.ID, cfg.Mode, -1)
	if err != nil {
		return err
	}
	stats.PagesScanned++
	var mine *GlobalRow
	for i := range page {
		if page[i].Highlight {
			mine = &page[i]
			break
		}
	}
	best := p.best()
	switch {
	case mine == nil:
		violate("not highlighted on the leaderboard")
		return nil
	case mine.PlayerID != p.ID:
		violate("highlighted row belongs to %s", mine.PlayerID)
		return nil
	case mine.Score != best.Score:
		violate("leaderboard score %d, want best %d", mine.Score, best.Score)
		return nil
	}

	replay, err := client.Replay(ctx, mine.EntryID)
	if err != nil {
		return err
	}
	if !bytes.Equal(replay, best.Replay) {
		violate("replay %s differs from the best game's replay", mine.EntryID)
		return nil
	}
	stats.ReplaysVerified++
	return nil
}

// expectedPersonal is the descending top of p's scores.
func expectedPersonal(p *Player) []int64 {
	scores := make([]int64, len(p.Games))
	for i, g := range p.Games {
		scores[i] = g.Score
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i] > scores[j] })
	return scores[:min(personalLimit, len(scores))]
}

// verifyPages walks the leaderboard until an empty page, checking that
// scores never increase and that each page echoes its index.
func verifyPages(ctx context.Context, cfg *Config, client *Client, stats *Stats) error {
	last := int64(-1)
	for view := 0; view < maxPagesScan; view++ {
		rows, err := client.Global(ctx, "", cfg.Mode, view)
		if err != nil {
			return err
		}
		stats.PagesScanned++
		if len(rows) == 0 {
			return nil
		}
		for _, row := range rows {
			if row.Page != view {
				stats.Violations = append(stats.Violations, fmt.Sprintf("page %d: row reports page %d", view, row.Page))
			}
			if last >= 0 && row.Score > last {
				stats.Violations = append(stats.Violations, fmt.Sprintf("page %d: score %d after %d", view, row.Score, last))
			}
			if row.Highlight {
				stats.Violations = append(stats.Violations, fmt.Sprintf("page %d: highlight without a player", view))
			}
			last = row.Score
		}
	}
	return nil
}
