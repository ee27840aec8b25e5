package keyframe

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-synth/engine/session"
)

// StoreBuilderOption is a functional option for configuring a Store during construction.
type StoreBuilderOption func(*store)

// WithSessionGuard sets the guard checked by Insert. It overrides the guard taken from a scene lookup.
//
// Parameters:
//   - g: the shared session guard
//
// Returns:
//   - StoreBuilderOption: functional option to set the guard
func WithSessionGuard(g *session.Guard) StoreBuilderOption {
	return func(s *store) {
		s.guard = g
	}
}

// WithLogger sets the structured logger.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - StoreBuilderOption: functional option to set the logger
func WithLogger(logger *slog.Logger) StoreBuilderOption {
	return func(s *store) {
		if logger != nil {
			s.logger = logger
		}
	}
}
