package loadgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/okian/jmscore/pkg/logger"
)

const (
	directoryPermission = 0750
	maxBusyRetries      = 8
	retryBaseDelay      = 25 * time.Millisecond
)

// Run registers cfg.Players players, submits their games and verifies the
// server's rankings and replays against what was sent. The summary goes
// to out; violations are reported in Stats, not as an error.
func Run(ctx context.Context, cfg *Config, out io.Writer) (*Stats, error) {
	c := cfg.withDefaults()
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("loadgen")

	log.Info(ctx, "starting load run",
		logger.String("baseURL", c.BaseURL),
		logger.Int("players", c.Players),
		logger.Int("games", c.Games),
		logger.Int("mode", c.Mode),
		logger.Int("workers", c.Workers))

	if err := CheckConnection(ctx, &http.Client{Timeout: c.Timeout}, c.BaseURL); err != nil {
		return nil, fmt.Errorf("connection check failed: %w", err)
	}

	players := generatePlayers(&c)
	client := NewClient(c.BaseURL, c.RoutePrefix, c.Timeout)

	if err := playAll(ctx, &c, client, players, stats); err != nil {
		return nil, fmt.Errorf("submission failed: %w", err)
	}

	if err := verify(ctx, &c, client, players, stats); err != nil {
		return nil, fmt.Errorf("verification failed: %w", err)
	}

	if c.OutputFile != "" {
		if err := savePlayers(c.OutputFile, players); err != nil {
			log.Warn(ctx, "failed to save generated games", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	writeReport(out, stats)

	log.Info(ctx, "load run finished",
		logger.Int("accepted", stats.GamesAccepted),
		logger.Int("violations", len(stats.Violations)))
	return stats, nil
}

// playAll feeds players to cfg.Workers goroutines. Each player registers
// and then submits its games one after another.
func playAll(ctx context.Context, cfg *Config, client *Client, players []Player, stats *Stats) error {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	work := make(chan *Player)

	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range work {
				s, err := play(ctx, cfg, client, p)
				mu.Lock()
				stats.PlayersRegistered += s.PlayersRegistered
				stats.GamesSubmitted += s.GamesSubmitted
				stats.GamesAccepted += s.GamesAccepted
				stats.GamesRetried += s.GamesRetried
				stats.GamesFailed += s.GamesFailed
				if err != nil && firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for i := range players {
		select {
		case work <- &players[i]:
		case <-ctx.Done():
			break feed
		}
	}
	close(work)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

func play(ctx context.Context, cfg *Config, client *Client, p *Player) (Stats, error) {
	var s Stats
	ok, err := client.GameEntry(ctx, p.ID, p.Password)
	if err != nil {
		return s, fmt.Errorf("register %s: %w", p.ID, err)
	}
	if !ok {
		return s, fmt.Errorf("register %s: refused", p.ID)
	}
	s.PlayersRegistered++

	for i := range p.Games {
		s.GamesSubmitted++
		retries, err := submit(ctx, client, p.ID, &p.Games[i])
		s.GamesRetried += retries
		if err != nil {
			s.GamesFailed++
			p.failed = true
			if ctx.Err() != nil {
				return s, ctx.Err()
			}
			if cfg.Verbose {
				logger.Get().Warn(ctx, "game rejected", logger.String("player", p.ID), logger.Error(err))
			}
			continue
		}
		s.GamesAccepted++
	}
	return s, nil
}

// submit retries a game refused as busy with growing delays.
func submit(ctx context.Context, client *Client, id string, g *Game) (int, error) {
	delay := retryBaseDelay
	for attempt := 0; ; attempt++ {
		err := client.ScoreEntry(ctx, id, g)
		if !errors.Is(err, ErrBusy) || attempt == maxBusyRetries {
			return attempt, err
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return attempt, ctx.Err()
		}
		delay *= 2
	}
}

func savePlayers(filename string, players []Player) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(players, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal players: %w", err)
	}
	return os.WriteFile(filename, data, 0o600)
}
