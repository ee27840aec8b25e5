package game_object

import (
	"github.com/Carmen-Shannon/oxy-synth/engine/asset"
	"github.com/go-gl/mathgl/mgl32"
)

// GameObjectBuilderOption is a functional option for configuring a GameObject during construction.
// Options run before the entity joins a scene, so its guarded setters cannot fail.
type GameObjectBuilderOption func(*gameObject)

// WithAsset sets the object's asset descriptor. The static and background flags are taken from it.
//
// Parameters:
//   - d: the resolved asset descriptor
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the asset
func WithAsset(d asset.Descriptor) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.asset = d
		_ = g.SetStatic(d.Static)
		_ = g.SetBackground(d.Background)
	}
}

// WithPosition sets the initial world-space position of the object.
//
// Parameters:
//   - p: the position
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the position
func WithPosition(p mgl32.Vec3) GameObjectBuilderOption {
	return func(g *gameObject) {
		_ = g.SetPosition(p)
	}
}

// WithQuaternion sets the initial orientation of the object.
//
// Parameters:
//   - q: the orientation
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the orientation
func WithQuaternion(q mgl32.Quat) GameObjectBuilderOption {
	return func(g *gameObject) {
		_ = g.SetQuaternion(q)
	}
}

// WithScale sets the initial per-axis scale of the object.
//
// Parameters:
//   - s: the scale factors
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the scale
func WithScale(s mgl32.Vec3) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.scale = s
	}
}

// WithColor sets the object's base color.
//
// Parameters:
//   - c: linear RGB color
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the color
func WithColor(c mgl32.Vec3) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.color = c
	}
}

// WithStatic overrides the static flag taken from the asset.
func WithStatic(static bool) GameObjectBuilderOption {
	return func(g *gameObject) {
		_ = g.SetStatic(static)
	}
}

// WithBackground overrides the background flag taken from the asset.
func WithBackground(background bool) GameObjectBuilderOption {
	return func(g *gameObject) {
		_ = g.SetBackground(background)
	}
}
