package api

import "github.com/okian/jmscore/pkg/logger"

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithRoutePrefix sets the path the game routes are served under.
func WithRoutePrefix(prefix string) Option {
	return func(s *Server) {
		if prefix != "" {
			s.routePrefix = prefix
		}
	}
}

// WithMOTD sets the message returned by GetMessage.
func WithMOTD(motd string) Option {
	return func(s *Server) {
		s.motd = motd
	}
}

// WithMaxReplayBytes caps the ScoreEntry request body.
func WithMaxReplayBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxReplayBytes = n
		}
	}
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
