package loadgen

import (
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

// Generated value ranges.
const (
	scoreSpread   = 1_000_000
	maxJewels     = 9999
	maxLevel      = 999
	maxClass      = 999
	maxElapsedMS  = 3_600_000
	playerIDChars = 12
)

// generatePlayers builds cfg.Players players with cfg.Games games each.
// Scores are unique per player so a retried submission is never mistaken
// for a duplicate of another game.
func generatePlayers(cfg *Config) []Player {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)) //nolint:gosec // load data, not secrets
	run := strings.ReplaceAll(uuid.NewString(), "-", "")

	players := make([]Player, cfg.Players)
	for i := range players {
		p := Player{
			ID:       "lg" + run[:4] + strings.ReplaceAll(uuid.NewString(), "-", "")[:playerIDChars-6] + suffix(i),
			Password: uuid.NewString()[:8],
			Games:    make([]Game, cfg.Games),
		}
		for g := range p.Games {
			replay := make([]byte, cfg.ReplayBytes)
			for b := range replay {
				replay[b] = byte(rng.UintN(256))
			}
			p.Games[g] = Game{
				Mode:        cfg.Mode,
				Score:       rng.Int64N(scoreSpread)*int64(cfg.Games) + int64(g),
				JewelCount:  rng.IntN(maxJewels + 1),
				Level:       rng.IntN(maxLevel + 1),
				Class:       rng.IntN(maxClass + 1),
				ElapsedTime: rng.Int64N(maxElapsedMS),
				RetryID:     uuid.NewString(),
				Replay:      replay,
			}
		}
		players[i] = p
	}
	return players
}

// suffix renders i in base 36 on two characters so ids stay unique within
// a run and within the client's 16 character limit.
func suffix(i int) string {
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	return string([]byte{digits[(i/36)%36], digits[i%36]})
}

// best returns the highest-scoring game of p.
func (p *Player) best() Game {
	top := p.Games[0]
	for _, g := range p.Games[1:] {
		if g.Score > top.Score {
			top = g
		}
	}
	return top
}
