package renderer

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-synth/engine/profiler"
)

// CollectorBuilderOption is a functional option for configuring a Collector during construction.
type CollectorBuilderOption func(*collector)

// WithBackgroundTransparency renders the background with zero alpha.
//
// Parameters:
//   - transparent: true for a transparent background
//
// Returns:
//   - CollectorBuilderOption: functional option to set background transparency
func WithBackgroundTransparency(transparent bool) CollectorBuilderOption {
	return func(c *collector) {
		c.transparent = transparent
	}
}

// WithProfiler sets the profiler ticked after each frame.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - CollectorBuilderOption: functional option to set the profiler
func WithProfiler(p *profiler.Profiler) CollectorBuilderOption {
	return func(c *collector) {
		c.profiler = p
	}
}

// WithCollectorLogger sets the collector's structured logger.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - CollectorBuilderOption: functional option to set the logger
func WithCollectorLogger(logger *slog.Logger) CollectorBuilderOption {
	return func(c *collector) {
		if logger != nil {
			c.logger = logger
		}
	}
}
