package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrStorage      = errors.New("storage failure")
	ErrUnknownTable = errors.New("unknown table")
	ErrClosed       = errors.New("store closed")
)
