package service

import "errors"

// Sentinel errors returned by the service.
var (
	// ErrNotStarted is returned when an operation runs before Start or after Stop.
	ErrNotStarted = errors.New("service not started")

	// ErrQueueFull is returned when the writer for a submission has no room.
	ErrQueueFull = errors.New("submission queue full")
)
