// Package light provides the light source entities and the simple irradiance model the reference
// rasterizer shades with.
package light

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-synth/engine/entity"
	"github.com/go-gl/mathgl/mgl32"
)

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypeDirectional represents a light with no position, only direction.
	// Used for large distant sources like the sun. Affects all surfaces
	// uniformly with no distance attenuation.
	LightTypeDirectional LightType = iota

	// LightTypePoint represents a light that emits in all directions from a position.
	// Attenuates with distance up to a configurable range.
	LightTypePoint

	// LightTypeSpot represents a light that emits in a cone from a position along its -Z axis.
	// Attenuates with both distance and angle from the cone axis, controlled by inner and outer cone angles.
	LightTypeSpot

	// LightTypeArea represents a rectangular emitter facing along its -Z axis, as used by studio
	// lighting rigs. It is shaded like a spot light with a 90 degree falloff scaled by its area.
	LightTypeArea
)

func (t LightType) String() string {
	switch t {
	case LightTypeDirectional:
		return "directional"
	case LightTypePoint:
		return "point"
	case LightTypeSpot:
		return "spot"
	case LightTypeArea:
		return "area"
	}
	return fmt.Sprintf("light(%d)", int(t))
}

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	*entity.Base

	lightType    LightType
	color        mgl32.Vec3
	intensity    float32
	lightRange   float32
	innerCone    float32 // stored as cos(angle in radians)
	outerCone    float32 // stored as cos(angle in radians)
	width        float32
	height       float32
	castsShadows bool
}

// Light defines the interface for a light source in the scene.
//
// All light types share this interface; type-specific properties (e.g. cone angles for
// spot lights) return zero-effect values when not applicable. Lights never receive
// segmentation labels.
type Light interface {
	entity.Entity

	// Type returns the kind of light source.
	//
	// Returns:
	//   - LightType: the light type
	Type() LightType

	// Direction returns the normalized direction the light emits along (its local -Z axis).
	//
	// Returns:
	//   - mgl32.Vec3: the emission direction
	Direction() mgl32.Vec3

	// Color returns the linear RGB color of the light.
	//
	// Returns:
	//   - mgl32.Vec3: the color
	Color() mgl32.Vec3

	// Intensity returns the scalar intensity multiplier for the light.
	//
	// Returns:
	//   - float32: the intensity value
	Intensity() float32

	// Range returns the maximum attenuation distance for positional lights.
	// Beyond this distance the light contributes zero energy.
	//
	// Returns:
	//   - float32: the range value
	Range() float32

	// Size returns the emitter extent of an area light.
	//
	// Returns:
	//   - width, height: the rectangle dimensions in world units
	Size() (width, height float32)

	// CastsShadows returns whether this light is eligible for shadowing.
	//
	// Returns:
	//   - bool: true if the light casts shadows
	CastsShadows() bool

	// SetColor sets the linear RGB color of the light.
	//
	// Parameters:
	//   - c: the color
	//
	// Returns:
	//   - error: wraps session.ErrActive while a render session holds the owning scene
	SetColor(c mgl32.Vec3) error

	// SetIntensity sets the scalar intensity multiplier.
	//
	// Parameters:
	//   - intensity: the intensity value
	//
	// Returns:
	//   - error: wraps session.ErrActive while a render session holds the owning scene
	SetIntensity(intensity float32) error

	// SpotCone returns the inner and outer cone half-angles of a spot light.
	//
	// Returns:
	//   - innerDeg, outerDeg: the half-angles in degrees
	SpotCone() (innerDeg, outerDeg float32)

	// SetSpotCone sets the inner and outer cone half-angles for spot lights.
	// Angles are specified in degrees and stored internally as cosines.
	//
	// Parameters:
	//   - innerDeg: inner cone half-angle in degrees
	//   - outerDeg: outer cone half-angle in degrees
	//
	// Returns:
	//   - error: wraps session.ErrActive while a render session holds the owning scene
	SetSpotCone(innerDeg, outerDeg float32) error

	// Irradiance returns the colored energy this light delivers to a surface point.
	//
	// Parameters:
	//   - point: the world-space surface point
	//   - normal: the unit surface normal
	//
	// Returns:
	//   - mgl32.Vec3: the RGB irradiance, zero if the point faces away or is out of range
	Irradiance(point, normal mgl32.Vec3) mgl32.Vec3
}

var _ Light = &lightImpl{}

// NewLight creates a new Light of the specified type with sensible defaults and
// any provided options applied.
//
// Parameters:
//   - id: the unique entity id
//   - lightType: the kind of light to create
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(id string, lightType LightType, opts ...LightBuilderOption) Light {
	l := &lightImpl{
		Base:       entity.NewBase(id, entity.KindLight),
		lightType:  lightType,
		color:      mgl32.Vec3{1, 1, 1},
		intensity:  1.0,
		lightRange: 100.0,
		innerCone:  0.9063, // cos(25°)
		outerCone:  0.8192, // cos(35°)
		width:      1,
		height:     1,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewDirectionalLight creates a directional light.
func NewDirectionalLight(id string, opts ...LightBuilderOption) Light {
	return NewLight(id, LightTypeDirectional, opts...)
}

// NewPointLight creates a point light.
func NewPointLight(id string, opts ...LightBuilderOption) Light {
	return NewLight(id, LightTypePoint, opts...)
}

// NewSpotLight creates a spot light.
func NewSpotLight(id string, opts ...LightBuilderOption) Light {
	return NewLight(id, LightTypeSpot, opts...)
}

// NewAreaLight creates a rectangular area light.
func NewAreaLight(id string, opts ...LightBuilderOption) Light {
	return NewLight(id, LightTypeArea, opts...)
}

func (l *lightImpl) Type() LightType {
	return l.lightType
}

func (l *lightImpl) Direction() mgl32.Vec3 {
	return l.Quaternion().Rotate(mgl32.Vec3{0, 0, -1}).Normalize()
}

func (l *lightImpl) Color() mgl32.Vec3 {
	l.RLock()
	defer l.RUnlock()
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	l.RLock()
	defer l.RUnlock()
	return l.intensity
}

func (l *lightImpl) Range() float32 {
	l.RLock()
	defer l.RUnlock()
	return l.lightRange
}

func (l *lightImpl) Size() (width, height float32) {
	l.RLock()
	defer l.RUnlock()
	return l.width, l.height
}

func (l *lightImpl) CastsShadows() bool {
	l.RLock()
	defer l.RUnlock()
	return l.castsShadows
}

func (l *lightImpl) SetColor(c mgl32.Vec3) error {
	if err := l.CheckSession("set color of"); err != nil {
		return err
	}
	l.Lock()
	defer l.Unlock()
	l.color = c
	return nil
}

func (l *lightImpl) SetIntensity(intensity float32) error {
	if err := l.CheckSession("set intensity of"); err != nil {
		return err
	}
	l.Lock()
	defer l.Unlock()
	l.intensity = intensity
	return nil
}

func (l *lightImpl) SpotCone() (innerDeg, outerDeg float32) {
	l.RLock()
	defer l.RUnlock()
	return acosDeg(l.innerCone), acosDeg(l.outerCone)
}

func (l *lightImpl) SetSpotCone(innerDeg, outerDeg float32) error {
	if err := l.CheckSession("set spot cone of"); err != nil {
		return err
	}
	l.Lock()
	defer l.Unlock()
	l.innerCone = cosDeg(innerDeg)
	l.outerCone = cosDeg(outerDeg)
	return nil
}

func (l *lightImpl) Irradiance(point, normal mgl32.Vec3) mgl32.Vec3 {
	l.RLock()
	defer l.RUnlock()
	pos, rot := l.CurrentPose()
	axis := rot.Rotate(mgl32.Vec3{0, 0, -1}).Normalize()

	if l.lightType == LightTypeDirectional {
		lambert := max(0, normal.Dot(axis.Mul(-1)))
		return l.color.Mul(l.intensity * lambert)
	}

	toLight := pos.Sub(point)
	dist := toLight.Len()
	if dist == 0 || dist > l.lightRange {
		return mgl32.Vec3{}
	}
	toLight = toLight.Mul(1 / dist)
	lambert := max(0, normal.Dot(toLight))
	attenuation := 1 / (1 + dist*dist)

	switch l.lightType {
	case LightTypeSpot:
		attenuation *= coneFalloff(axis.Dot(toLight.Mul(-1)), l.innerCone, l.outerCone)
	case LightTypeArea:
		attenuation *= max(0, axis.Dot(toLight.Mul(-1))) * l.width * l.height
	}
	return l.color.Mul(l.intensity * lambert * attenuation)
}

func (l *lightImpl) Properties() []string {
	return append(entity.PoseProperties(), entity.PropColor, entity.PropIntensity)
}

func (l *lightImpl) Property(name string) (entity.Value, error) {
	l.RLock()
	defer l.RUnlock()
	if v, ok := l.PoseProperty(name); ok {
		return v, nil
	}
	switch name {
	case entity.PropColor:
		return entity.VecValue(l.color), nil
	case entity.PropIntensity:
		return entity.Value{l.intensity}, nil
	}
	return nil, l.UnknownProperty(name)
}

func (l *lightImpl) SetProperty(name string, v entity.Value) error {
	if err := l.CheckSession("set " + name + " of"); err != nil {
		return err
	}
	l.Lock()
	defer l.Unlock()
	if ok, err := l.SetPoseProperty(name, v); ok {
		return err
	}
	switch name {
	case entity.PropColor:
		if err := entity.CheckArity(l.ID(), name, v, 3); err != nil {
			return err
		}
		l.color = v.Vec3()
		return nil
	case entity.PropIntensity:
		if err := entity.CheckArity(l.ID(), name, v, 1); err != nil {
			return err
		}
		l.intensity = v[0]
		return nil
	}
	return l.UnknownProperty(name)
}

// coneFalloff interpolates between full intensity inside the inner cone and zero outside the outer cone.
func coneFalloff(cosAngle, inner, outer float32) float32 {
	if cosAngle >= inner {
		return 1
	}
	if cosAngle <= outer || inner == outer {
		return 0
	}
	return (cosAngle - outer) / (inner - outer)
}

// cosDeg converts an angle in degrees to the cosine of that angle in radians.
func cosDeg(deg float32) float32 {
	return float32(math.Cos(float64(deg) * math.Pi / 180.0))
}

// acosDeg converts a stored cone cosine back to an angle in degrees.
func acosDeg(c float32) float32 {
	return float32(math.Acos(float64(mgl32.Clamp(c, -1, 1))) * 180.0 / math.Pi)
}
