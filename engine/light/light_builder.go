package light

import "github.com/go-gl/mathgl/mgl32"

// LightBuilderOption is a function that configures a Light instance during construction.
// Options run before the entity joins a scene, so its guarded setters cannot fail.
type LightBuilderOption func(*lightImpl)

// WithPosition is an option builder that sets the world-space position of the light.
//
// Parameters:
//   - p: the position
//
// Returns:
//   - LightBuilderOption: a function that applies the position option to a lightImpl
func WithPosition(p mgl32.Vec3) LightBuilderOption {
	return func(l *lightImpl) {
		_ = l.SetPosition(p)
	}
}

// WithLookAt is an option builder that points the light's -Z axis at target.
// It must follow WithPosition to take the final position into account.
//
// Parameters:
//   - target: the world-space point to face
//
// Returns:
//   - LightBuilderOption: a function that orients the light
func WithLookAt(target mgl32.Vec3) LightBuilderOption {
	return func(l *lightImpl) {
		_ = l.LookAt(target)
	}
}

// WithColor is an option builder that sets the linear RGB color of the light.
//
// Parameters:
//   - c: the color
//
// Returns:
//   - LightBuilderOption: a function that applies the color option to a lightImpl
func WithColor(c mgl32.Vec3) LightBuilderOption {
	return func(l *lightImpl) {
		l.color = c
	}
}

// WithHexColor is an option builder that sets the color from a 0xRRGGBB value.
//
// Parameters:
//   - hex: the packed sRGB color
//
// Returns:
//   - LightBuilderOption: a function that applies the color option to a lightImpl
func WithHexColor(hex uint32) LightBuilderOption {
	return func(l *lightImpl) {
		l.color = mgl32.Vec3{
			float32((hex>>16)&0xff) / 255,
			float32((hex>>8)&0xff) / 255,
			float32(hex&0xff) / 255,
		}
	}
}

// WithIntensity is an option builder that sets the scalar intensity multiplier.
//
// Parameters:
//   - intensity: the intensity value
//
// Returns:
//   - LightBuilderOption: a function that applies the intensity option to a lightImpl
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.intensity = intensity
	}
}

// WithRange is an option builder that sets the maximum attenuation distance for
// positional lights.
//
// Parameters:
//   - lightRange: the range value
//
// Returns:
//   - LightBuilderOption: a function that applies the range option to a lightImpl
func WithRange(lightRange float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.lightRange = lightRange
	}
}

// WithSpotCone is an option builder that sets the inner and outer cone half-angles
// for spot lights. Angles are specified in degrees and converted to cosines internally.
//
// Parameters:
//   - innerDeg: inner cone half-angle in degrees
//   - outerDeg: outer cone half-angle in degrees
//
// Returns:
//   - LightBuilderOption: a function that applies the spot cone option to a lightImpl
func WithSpotCone(innerDeg, outerDeg float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.innerCone = cosDeg(innerDeg)
		l.outerCone = cosDeg(outerDeg)
	}
}

// WithSize is an option builder that sets the rectangle extent of an area light.
//
// Parameters:
//   - width, height: the emitter dimensions in world units
//
// Returns:
//   - LightBuilderOption: a function that applies the size option to a lightImpl
func WithSize(width, height float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.width, l.height = width, height
	}
}

// WithCastsShadows is an option builder that sets whether the light is eligible for shadowing.
//
// Parameters:
//   - castsShadows: true to enable shadow casting
//
// Returns:
//   - LightBuilderOption: a function that applies the shadow casting option to a lightImpl
func WithCastsShadows(castsShadows bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.castsShadows = castsShadows
	}
}
