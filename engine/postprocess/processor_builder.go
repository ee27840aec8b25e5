package postprocess

import "log/slog"

// ProcessorBuilderOption is a functional option for configuring a Processor during construction.
type ProcessorBuilderOption func(*processor)

// WithWorkers sets the number of pooled goroutines processing frames.
//
// Parameters:
//   - n: the worker count (values below 1 use one worker)
//
// Returns:
//   - ProcessorBuilderOption: functional option to set the worker count
func WithWorkers(n int) ProcessorBuilderOption {
	return func(p *processor) {
		p.workers = n
	}
}

// WithLogger sets the processor's structured logger.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - ProcessorBuilderOption: functional option to set the logger
func WithLogger(logger *slog.Logger) ProcessorBuilderOption {
	return func(p *processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}
