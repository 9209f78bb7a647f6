package ranking

import (
	"context"
	"fmt"
	"math/rand/v2"
)

const (
	entryIDSpace    = 10_000_000_000_000_000 // 16 decimal digits
	entryIDAttempts = 8
)

// randomEntryID returns a zero-padded 16-digit decimal string.
func randomEntryID() string {
	return fmt.Sprintf("%016d", rand.Int64N(entryIDSpace)) //nolint:gosec // ids need uniqueness, not secrecy
}

// mintEntryID returns an id that has no replay on disk yet.
func (e *Engine) mintEntryID(ctx context.Context) (string, error) {
	for i := 0; i < entryIDAttempts; i++ {
		id := e.nextEntryID()
		taken, err := e.replays.Exists(ctx, id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
	return "", ErrEntryID
}
