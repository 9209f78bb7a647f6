package ranking

import "github.com/okian/jmscore/pkg/logger"

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithRegister creates accounts on first login.
func WithRegister(enabled bool) Option {
	return func(e *Engine) {
		e.register = enabled
	}
}

// WithMultiScores keeps every submission on the global leaderboard.
// The store must be opened with the same setting.
func WithMultiScores(enabled bool) Option {
	return func(e *Engine) {
		e.multiScores = enabled
	}
}

// WithNoScores refuses all submissions.
func WithNoScores(enabled bool) Option {
	return func(e *Engine) {
		e.noScores = enabled
	}
}

// WithRejectEmptyID refuses to register the empty player id.
func WithRejectEmptyID(enabled bool) Option {
	return func(e *Engine) {
		e.rejectEmptyID = enabled
	}
}

// WithEntryIDSource replaces the random entry id generator.
func WithEntryIDSource(next func() string) Option {
	return func(e *Engine) {
		if next != nil {
			e.nextEntryID = next
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
