package engine

import (
	"log/slog"
	"slices"

	"github.com/Carmen-Shannon/oxy-synth/engine/keyframe"
	"github.com/Carmen-Shannon/oxy-synth/engine/postprocess"
	"github.com/Carmen-Shannon/oxy-synth/engine/renderer"
	"github.com/Carmen-Shannon/oxy-synth/engine/writer"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables render throughput output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithBackend sets the renderer collaborator. The engine takes ownership and closes it in Close.
//
// Parameters:
//   - b: the backend
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithBackend(b renderer.Backend) EngineBuilderOption {
	return func(e *engine) {
		e.backend = b
	}
}

// WithStore sets the keyframe store. The store must have been created for the engine's scene.
//
// Parameters:
//   - s: the keyframe store
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithStore(s keyframe.Store) EngineBuilderOption {
	return func(e *engine) {
		e.store = s
	}
}

// WithProcessor sets the postprocessor.
//
// Parameters:
//   - p: the postprocessor
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProcessor(p postprocess.Processor) EngineBuilderOption {
	return func(e *engine) {
		e.processor = p
	}
}

// WithWriter sets the artifact writer.
//
// Parameters:
//   - w: the writer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWriter(w writer.Writer) EngineBuilderOption {
	return func(e *engine) {
		e.writer = w
	}
}

// WithChannels sets the channels written by Run and returned by RenderStill. Segmentation is
// always rendered for postprocessing but only written when listed here.
//
// Parameters:
//   - channels: the channels (ignored when empty)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithChannels(channels ...renderer.Channel) EngineBuilderOption {
	return func(e *engine) {
		if len(channels) > 0 {
			e.channels = slices.Clone(channels)
		}
	}
}

// WithInstances sets the ordering of the objects of interest. The object at position i receives
// segmentation index i+1. Without this option every non-background object is used in scene order.
//
// Parameters:
//   - ids: the object ids in output order
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithInstances(ids ...string) EngineBuilderOption {
	return func(e *engine) {
		e.instances = slices.Clone(ids)
	}
}

// WithSeed records the run seed in the metadata and seeds the default backend's label generator.
//
// Parameters:
//   - seed: the seed
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSeed(seed uint64) EngineBuilderOption {
	return func(e *engine) {
		e.seed = seed
	}
}

// WithBackgroundTransparency renders the background with zero alpha.
//
// Parameters:
//   - transparent: if true, the background is transparent
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithBackgroundTransparency(transparent bool) EngineBuilderOption {
	return func(e *engine) {
		e.transparent = transparent
	}
}

// WithOutputDir sets the directory Run writes artifacts and metadata to. Nothing is written
// when the directory is empty.
//
// Parameters:
//   - dir: the output directory
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithOutputDir(dir string) EngineBuilderOption {
	return func(e *engine) {
		e.outputDir = dir
	}
}

// WithStatePath sets the file the backend state is saved to before rendering.
//
// Parameters:
//   - path: the state file
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithStatePath(path string) EngineBuilderOption {
	return func(e *engine) {
		e.statePath = path
	}
}

// WithLogger sets the structured logger shared with the components the engine creates.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) EngineBuilderOption {
	return func(e *engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}
