package replay

import "errors"

// Sentinel kinds for replay store errors.
var (
	ErrNotFound  = errors.New("replay not found")
	ErrInvalidID = errors.New("invalid entry id")
	ErrStorage   = errors.New("replay storage failure")
	ErrFinished  = errors.New("staged replay already published or discarded")
)
