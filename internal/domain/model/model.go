// Package model contains domain models passed between layers.
package model

import "strconv"

// Game modes reported by the client.
const (
	ModeNormal = 0
	ModeHard   = 1
	ModeDeath  = 2
)

// MaxPlayerIDLength is the longest player id the client can send.
const MaxPlayerIDLength = 16

// Account is a registered player. Stored in the accounts table under its ID.
type Account struct {
	ID       string                 // player identifier, immutable
	Password string                 // compared verbatim on login
	Rankings []PersonalRankingEntry // per-mode top scores, descending by score
}

// PersonalRankingEntry is one slot of a player's personal ranking.
type PersonalRankingEntry struct {
	Mode        int
	Score       int64
	JewelCount  int
	Level       int
	Class       int
	ElapsedTime int64
}

// ModeCount returns how many personal entries the account holds for mode.
func (a *Account) ModeCount(mode int) int {
	n := 0
	for i := range a.Rankings {
		if a.Rankings[i].Mode == mode {
			n++
		}
	}
	return n
}

// LeaderboardEntry is one row of the global leaderboard.
type LeaderboardEntry struct {
	EntryID     string // 16-digit id, also the replay address
	PlayerID    string
	Mode        int
	Score       int64
	JewelCount  int
	Level       int
	Class       int
	ElapsedTime int64
}

// Key returns the composite leaderboard key of the entry.
func (e *LeaderboardEntry) Key() string {
	return LeaderboardKey(e.PlayerID, e.Mode)
}

// LeaderboardKey builds the composite key playerID ++ mode.
func LeaderboardKey(playerID string, mode int) string {
	return playerID + strconv.Itoa(mode)
}

// Submission is a validated score submission with its replay payload.
type Submission struct {
	PlayerID    string
	Mode        int
	Score       int64
	JewelCount  int
	Level       int
	Class       int
	ElapsedTime int64
	Replay      []byte

	// RetryID is a client token repeated on retries of the same
	// submission. The game client never sends one.
	RetryID string
}

// Key returns the composite leaderboard key the submission targets.
func (s *Submission) Key() string {
	return LeaderboardKey(s.PlayerID, s.Mode)
}

// Entry builds the leaderboard row for this submission.
func (s *Submission) Entry(entryID string) LeaderboardEntry {
	return LeaderboardEntry{
		EntryID:     entryID,
		PlayerID:    s.PlayerID,
		Mode:        s.Mode,
		Score:       s.Score,
		JewelCount:  s.JewelCount,
		Level:       s.Level,
		Class:       s.Class,
		ElapsedTime: s.ElapsedTime,
	}
}

// PersonalEntry builds the personal ranking slot for this submission.
func (s *Submission) PersonalEntry() PersonalRankingEntry {
	return PersonalRankingEntry{
		Mode:        s.Mode,
		Score:       s.Score,
		JewelCount:  s.JewelCount,
		Level:       s.Level,
		Class:       s.Class,
		ElapsedTime: s.ElapsedTime,
	}
}
