package ranking

import "errors"

// Sentinel kinds for ranking errors.
var (
	ErrUnknownAccount = errors.New("unknown account")
	ErrScoresDisabled = errors.New("score submission disabled")
	ErrEntryID        = errors.New("could not mint a free entry id")
)
