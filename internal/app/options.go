package service

import (
	"github.com/okian/jmscore/internal/domain/ranking"
	"github.com/okian/jmscore/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEngineOptions appends options passed to the ranking engine after the
// ones derived from configuration.
func WithEngineOptions(opts ...ranking.Option) Option {
	return func(s *Service) {
		s.engineOpts = append(s.engineOpts, opts...)
	}
}
