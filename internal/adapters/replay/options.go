package replay

import "github.com/okian/jmscore/pkg/logger"

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithCompression writes new replays as zstd frames.
func WithCompression(enabled bool) Option {
	return func(s *Store) {
		s.compress = enabled
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}
