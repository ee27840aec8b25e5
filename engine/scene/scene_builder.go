package scene

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-synth/common"
	"github.com/Carmen-Shannon/oxy-synth/engine/session"
	"github.com/go-gl/mathgl/mgl32"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithResolution sets the output image size.
//
// Parameters:
//   - res: the resolution
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithResolution(res common.Resolution) SceneBuilderOption {
	return func(s *scene) {
		s.resolution = res
	}
}

// WithFrameRange sets the inclusive frame range.
//
// Parameters:
//   - start: the first frame
//   - end: the last frame
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithFrameRange(start, end int) SceneBuilderOption {
	return func(s *scene) {
		s.frameStart, s.frameEnd = start, end
	}
}

// WithFrameRate sets the frames per second.
//
// Parameters:
//   - fps: the frame rate
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithFrameRate(fps int) SceneBuilderOption {
	return func(s *scene) {
		s.frameRate = fps
	}
}

// WithAmbient sets the ambient illumination color.
//
// Parameters:
//   - c: linear RGB color
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithAmbient(c mgl32.Vec3) SceneBuilderOption {
	return func(s *scene) {
		s.ambient = c
	}
}

// WithSessionGuard shares a session guard with other components (keyframe store, asset registry)
// so one render session freezes all of them. A fresh guard is created when this option is absent.
//
// Parameters:
//   - g: the guard
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithSessionGuard(g *session.Guard) SceneBuilderOption {
	return func(s *scene) {
		s.guard = g
	}
}

// WithLogger sets the structured logger.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) SceneBuilderOption {
	return func(s *scene) {
		if logger != nil {
			s.logger = logger
		}
	}
}
