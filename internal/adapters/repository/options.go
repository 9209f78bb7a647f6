package repository

import (
	"time"

	"github.com/okian/jmscore/pkg/logger"
)

// Option applies a configuration option to the SQLiteStore.
type Option func(*SQLiteStore)

// WithMultiScores makes Put append leaderboard values instead of replacing
// the existing value under the same key.
func WithMultiScores(enabled bool) Option {
	return func(s *SQLiteStore) {
		s.multiScores = enabled
	}
}

// WithReaderConns sets the size of the read-only connection pool.
func WithReaderConns(n int) Option {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.readerConns = n
		}
	}
}

// WithBusyTimeout sets how long a connection waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *SQLiteStore) {
		if d > 0 {
			s.busyTimeout = d
		}
	}
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *SQLiteStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *SQLiteStore) {
		if l != nil {
			s.logger = l
		}
	}
}
