package renderer

import "log/slog"

// AdapterBuilderOption is a functional option for configuring an Adapter during construction.
type AdapterBuilderOption func(*adapter)

// WithAdapterLogger sets the adapter's structured logger.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - AdapterBuilderOption: functional option to set the logger
func WithAdapterLogger(logger *slog.Logger) AdapterBuilderOption {
	return func(a *adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}
