package renderer

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-synth/common"
)

// RasterBackendOption is a functional option for configuring the raster backend during construction.
type RasterBackendOption func(*rasterBackend)

// WithLabelSeed seeds the raw segmentation label generator. Two backends with the same seed
// assign the same labels in the same materialization order.
//
// Parameters:
//   - seed: the generator seed
//
// Returns:
//   - RasterBackendOption: functional option to set the label seed
func WithLabelSeed(seed uint64) RasterBackendOption {
	return func(b *rasterBackend) {
		b.rng = common.NewRNG(seed)
	}
}

// WithRasterWorkers sets the number of pooled goroutines tracing pixel rows.
//
// Parameters:
//   - n: the worker count (values below 1 use one worker)
//
// Returns:
//   - RasterBackendOption: functional option to set the worker count
func WithRasterWorkers(n int) RasterBackendOption {
	return func(b *rasterBackend) {
		b.workers = n
	}
}

// WithRasterLogger sets the backend's structured logger.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - RasterBackendOption: functional option to set the logger
func WithRasterLogger(logger *slog.Logger) RasterBackendOption {
	return func(b *rasterBackend) {
		if logger != nil {
			b.logger = logger
		}
	}
}
