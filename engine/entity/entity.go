// Package entity defines the addressable things a scene is made of (mesh objects, lights and
// cameras) and the named-property surface through which they are keyframed and pushed to a renderer.
package entity

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-synth/engine/session"
	"github.com/go-gl/mathgl/mgl32"
)

// Kind identifies the category of a scene entity.
type Kind int

const (
	// KindObject is a renderable mesh object backed by an asset.
	KindObject Kind = iota

	// KindLight is a light source. Lights never produce segmentation labels.
	KindLight

	// KindCamera is a viewpoint. Only the scene's active camera is used for evaluation.
	KindCamera
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindLight:
		return "light"
	case KindCamera:
		return "camera"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Value is the renderer-agnostic value of one entity property. Scalars have length 1,
// vectors length 3 and quaternions length 4 in (w, x, y, z) order.
type Value []float32

// Equal reports whether two values hold the same components.
func (v Value) Equal(o Value) bool {
	return slices.Equal(v, o)
}

// Clone returns a copy that does not share storage with v.
func (v Value) Clone() Value {
	return slices.Clone(v)
}

// Property names shared by the entity kinds.
const (
	PropPosition          = "position"
	PropQuaternion        = "quaternion"
	PropScale             = "scale"
	PropColor             = "color"
	PropIntensity         = "intensity"
	PropFocalLength       = "focal_length"
	PropSensorWidth       = "sensor_width"
	PropOrthographicScale = "orthographic_scale"
)

var (
	// ErrUnknownProperty is returned when an entity kind has no property of the requested name.
	ErrUnknownProperty = errors.New("unknown property")

	// ErrPropertyArity is returned when a value has the wrong number of components for a property.
	ErrPropertyArity = errors.New("property arity mismatch")
)

// PropertyError describes a rejected property read or write on a specific entity.
type PropertyError struct {
	EntityID string
	Property string
	Err      error
}

func (e *PropertyError) Error() string {
	return fmt.Sprintf("entity %q property %q: %v", e.EntityID, e.Property, e.Err)
}

func (e *PropertyError) Unwrap() error {
	return e.Err
}

// Entity is an addressable object, light, or camera in the scene graph.
//
// Every entity carries a pose. Kind-specific parameters are reachable through the
// Property/SetProperty pair so the keyframe store and the render adapter can handle
// all kinds uniformly. Implementations are safe for concurrent use.
type Entity interface {
	// ID returns the entity's unique identifier within a scene.
	//
	// Returns:
	//   - string: the identifier
	ID() string

	// Kind returns the entity category.
	//
	// Returns:
	//   - Kind: object, light, or camera
	Kind() Kind

	// Position returns the world-space position.
	//
	// Returns:
	//   - mgl32.Vec3: the position
	Position() mgl32.Vec3

	// SetPosition sets the world-space position.
	//
	// Parameters:
	//   - p: the new position
	//
	// Returns:
	//   - error: wraps session.ErrActive while a render session holds the owning scene
	SetPosition(p mgl32.Vec3) error

	// Quaternion returns the unit orientation quaternion.
	//
	// Returns:
	//   - mgl32.Quat: the orientation
	Quaternion() mgl32.Quat

	// SetQuaternion sets the orientation. The quaternion is normalized before it is stored.
	//
	// Parameters:
	//   - q: the new orientation
	//
	// Returns:
	//   - error: wraps session.ErrActive while a render session holds the owning scene
	SetQuaternion(q mgl32.Quat) error

	// LookAt orients the entity so that its local -Z axis points at target.
	//
	// Parameters:
	//   - target: the world-space point to face
	//
	// Returns:
	//   - error: wraps session.ErrActive while a render session holds the owning scene
	LookAt(target mgl32.Vec3) error

	// Static reports whether the entity is excluded from simulation.
	//
	// Returns:
	//   - bool: true if static
	Static() bool

	// Background reports whether the entity is scenery that is not an instance of interest.
	//
	// Returns:
	//   - bool: true if background
	Background() bool

	// Properties lists every property name the entity accepts, in a stable order.
	//
	// Returns:
	//   - []string: the property names
	Properties() []string

	// Property returns a copy of the named property's current value.
	//
	// Parameters:
	//   - name: the property name
	//
	// Returns:
	//   - Value: the current value
	//   - error: a *PropertyError wrapping ErrUnknownProperty if the name is not supported
	Property(name string) (Value, error)

	// SetProperty replaces the named property's value.
	//
	// Parameters:
	//   - name: the property name
	//   - v: the new value
	//
	// Returns:
	//   - error: a *PropertyError wrapping ErrUnknownProperty or ErrPropertyArity, or an error
	//     wrapping session.ErrActive while a render session holds the owning scene
	SetProperty(name string, v Value) error

	// BindSession attaches the render-session guard of the scene the entity belongs to. While the
	// guard is held every mutator fails. Scenes call it on Add and clear it on Remove.
	//
	// Parameters:
	//   - g: the scene's guard, or nil to detach
	BindSession(g *session.Guard)
}

// Snapshot reads every property of e into a fresh map.
//
// Parameters:
//   - e: the entity to read
//
// Returns:
//   - map[string]Value: property name to current value
//   - error: the first property read error
func Snapshot(e Entity) (map[string]Value, error) {
	out := make(map[string]Value, len(e.Properties()))
	for _, name := range e.Properties() {
		v, err := e.Property(name)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// CheckArity verifies that v has exactly n components for the named property.
//
// Parameters:
//   - id: the owning entity id, for error context
//   - name: the property name
//   - v: the value to check
//   - n: the required component count
//
// Returns:
//   - error: a *PropertyError wrapping ErrPropertyArity, or nil
func CheckArity(id, name string, v Value, n int) error {
	if len(v) != n {
		return &PropertyError{
			EntityID: id,
			Property: name,
			Err:      fmt.Errorf("%w: want %d components, got %d", ErrPropertyArity, n, len(v)),
		}
	}
	return nil
}

// Arity returns the number of components the named property carries, or 0 if the name is unknown.
func Arity(name string) int {
	switch name {
	case PropPosition, PropScale, PropColor:
		return 3
	case PropQuaternion:
		return 4
	case PropIntensity, PropFocalLength, PropSensorWidth, PropOrthographicScale:
		return 1
	}
	return 0
}

// Vec3 converts a 3-component value to a vector. The caller guarantees the arity.
func (v Value) Vec3() mgl32.Vec3 {
	return mgl32.Vec3{v[0], v[1], v[2]}
}

// VecValue converts a vector into a Value.
func VecValue(v mgl32.Vec3) Value {
	return Value{v[0], v[1], v[2]}
}
