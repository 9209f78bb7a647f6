// Package codec encodes account and leaderboard records for storage.
//
// Records are flat JSON objects whose field names match the ones the
// original emulator wrote, plus a schema version "v". Records written
// before versioning (no "v" field) decode as version 0.
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/okian/jmscore/internal/domain/model"
)

// SchemaVersion is the record layout written by this package.
const SchemaVersion = 1

type rankingRecord struct {
	Mode  int   `json:"mode"`
	Score int64 `json:"score"`
	Jewel int   `json:"jewel"`
	Level int   `json:"level"`
	Class int   `json:"class"`
	Time  int64 `json:"time"`
}

type accountRecord struct {
	Version  int             `json:"v"`
	ID       string          `json:"id"`
	Pass     string          `json:"pass"`
	Count    int             `json:"count"`
	Rankings []rankingRecord `json:"rankings"`
}

type entryRecord struct {
	Version int    `json:"v"`
	EntryID string `json:"_id"`
	ID      string `json:"id"`
	Mode    int    `json:"mode"`
	Score   int64  `json:"score"`
	Jewel   int    `json:"jewel"`
	Level   int    `json:"level"`
	Class   int    `json:"class"`
	Time    int64  `json:"time"`
}

// EncodeAccount serializes an account.
func EncodeAccount(a *model.Account) ([]byte, error) {
	rec := accountRecord{
		Version:  SchemaVersion,
		ID:       a.ID,
		Pass:     a.Password,
		Count:    len(a.Rankings),
		Rankings: make([]rankingRecord, len(a.Rankings)),
	}
	for i, r := range a.Rankings {
		rec.Rankings[i] = rankingRecord{
			Mode:  r.Mode,
			Score: r.Score,
			Jewel: r.JewelCount,
			Level: r.Level,
			Class: r.Class,
			Time:  r.ElapsedTime,
		}
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: account %q: %w", ErrEncode, a.ID, err)
	}
	return b, nil
}

// DecodeAccount parses an account record.
func DecodeAccount(b []byte) (model.Account, error) {
	var rec accountRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return model.Account{}, fmt.Errorf("%w: account: %w", ErrMalformed, err)
	}
	if rec.Version > SchemaVersion {
		return model.Account{}, fmt.Errorf("%w: account version %d", ErrUnsupportedVersion, rec.Version)
	}
	acc := model.Account{
		ID:       rec.ID,
		Password: rec.Pass,
		Rankings: make([]model.PersonalRankingEntry, len(rec.Rankings)),
	}
	for i, r := range rec.Rankings {
		acc.Rankings[i] = model.PersonalRankingEntry{
			Mode:        r.Mode,
			Score:       r.Score,
			JewelCount:  r.Jewel,
			Level:       r.Level,
			Class:       r.Class,
			ElapsedTime: r.Time,
		}
	}
	return acc, nil
}

// EncodeEntry serializes a leaderboard entry.
func EncodeEntry(e *model.LeaderboardEntry) ([]byte, error) {
	b, err := json.Marshal(entryRecord{
		Version: SchemaVersion,
		EntryID: e.EntryID,
		ID:      e.PlayerID,
		Mode:    e.Mode,
		Score:   e.Score,
		Jewel:   e.JewelCount,
		Level:   e.Level,
		Class:   e.Class,
		Time:    e.ElapsedTime,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: entry %q: %w", ErrEncode, e.EntryID, err)
	}
	return b, nil
}

// DecodeEntry parses a leaderboard entry record.
func DecodeEntry(b []byte) (model.LeaderboardEntry, error) {
	var rec entryRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return model.LeaderboardEntry{}, fmt.Errorf("%w: entry: %w", ErrMalformed, err)
	}
	if rec.Version > SchemaVersion {
		return model.LeaderboardEntry{}, fmt.Errorf("%w: entry version %d", ErrUnsupportedVersion, rec.Version)
	}
	return model.LeaderboardEntry{
		EntryID:     rec.EntryID,
		PlayerID:    rec.ID,
		Mode:        rec.Mode,
		Score:       rec.Score,
		JewelCount:  rec.Jewel,
		Level:       rec.Level,
		Class:       rec.Class,
		ElapsedTime: rec.Time,
	}, nil
}
