package writer

import (
	"image/color"
	"log/slog"
)

// WriterBuilderOption is a functional option for configuring a Writer during construction.
type WriterBuilderOption func(*writer)

// WithPalette replaces the segmentation palette.
//
// Parameters:
//   - p: the palette; index i colors output label i (at most 256 entries are used)
//
// Returns:
//   - WriterBuilderOption: functional option to set the palette
func WithPalette(p color.Palette) WriterBuilderOption {
	return func(w *writer) {
		if len(p) > 0 {
			w.palette = p[:min(len(p), 256)]
		}
	}
}

// WithLogger sets the writer's structured logger.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - WriterBuilderOption: functional option to set the logger
func WithLogger(logger *slog.Logger) WriterBuilderOption {
	return func(w *writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}
