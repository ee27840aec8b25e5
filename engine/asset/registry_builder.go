package asset

import (
	"log/slog"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-synth/engine/session"
)

// RegistryBuilderOption is a functional option for configuring a Registry during construction.
type RegistryBuilderOption func(*registry)

// WithDataDir overrides the manifest's data directory, e.g. to point a remote manifest at a local mirror.
//
// Parameters:
//   - dir: the directory relative render and simulation files are resolved against
//
// Returns:
//   - RegistryBuilderOption: functional option to set the data directory
func WithDataDir(dir string) RegistryBuilderOption {
	return func(r *registry) {
		r.dataDir = dir
	}
}

// withDefaultDataDir anchors relative data directories at the manifest's own location.
func withDefaultDataDir(manifestDir string) RegistryBuilderOption {
	return func(r *registry) {
		switch {
		case r.dataDir == "":
			r.dataDir = manifestDir
		case !isRemote(r.dataDir) && !filepath.IsAbs(r.dataDir):
			r.dataDir = filepath.Join(manifestDir, r.dataDir)
		}
	}
}

// WithDescriptor pre-registers a descriptor that is not part of the manifest.
//
// Parameters:
//   - d: the descriptor to register
//
// Returns:
//   - RegistryBuilderOption: functional option to add the descriptor
func WithDescriptor(d Descriptor) RegistryBuilderOption {
	return func(r *registry) {
		r.cache[d.ID] = d
	}
}

// WithSessionGuard makes Register refuse to mutate the registry while a render session is active.
//
// Parameters:
//   - g: the shared session guard
//
// Returns:
//   - RegistryBuilderOption: functional option to set the guard
func WithSessionGuard(g *session.Guard) RegistryBuilderOption {
	return func(r *registry) {
		r.guard = g
	}
}

// WithLogger sets the structured logger used by the registry.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - RegistryBuilderOption: functional option to set the logger
func WithLogger(logger *slog.Logger) RegistryBuilderOption {
	return func(r *registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}
