package camera

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// orbitImpl is the implementation of the Orbit interface.
type orbitImpl struct {
	mu *sync.Mutex

	target mgl32.Vec3

	// spherical coordinates relative to target, Z-up
	radius    float32
	azimuth   float32 // angle around Z from +X
	elevation float32 // angle above the XY plane

	minElevation float32
	maxElevation float32

	// per-frame azimuth increment in radians
	orbitSpeed float32
}

// Orbit is a camera rig that places a camera on a sphere around a target and advances it
// around the vertical axis by a fixed step per frame.
type Orbit interface {
	// Target returns the orbit pivot point.
	//
	// Returns:
	//   - mgl32.Vec3: the pivot
	Target() mgl32.Vec3

	// Radius returns the distance from the pivot.
	//
	// Returns:
	//   - float32: the orbit radius
	Radius() float32

	// PositionAt returns the rig position after the given number of steps from the initial azimuth.
	//
	// Parameters:
	//   - step: the number of orbit steps (frames) advanced
	//
	// Returns:
	//   - mgl32.Vec3: the world-space camera position
	PositionAt(step int) mgl32.Vec3

	// Apply places cam at the rig position for the given step and points it at the pivot.
	//
	// Parameters:
	//   - cam: the camera to move
	//   - step: the number of orbit steps (frames) advanced
	//
	// Returns:
	//   - error: wraps session.ErrActive while a render session holds the camera's scene
	Apply(cam Camera, step int) error
}

var _ Orbit = &orbitImpl{}

// NewOrbit creates an orbit rig. Defaults: radius 10, elevation 30 degrees, one degree per frame.
//
// Parameters:
//   - options: functional options to configure the rig
//
// Returns:
//   - Orbit: the newly created rig
func NewOrbit(options ...OrbitOption) Orbit {
	o := &orbitImpl{
		mu:           &sync.Mutex{},
		radius:       10,
		elevation:    float32(math.Pi / 6),
		minElevation: 0.05,
		maxElevation: float32(math.Pi/2 - 0.1),
		orbitSpeed:   mgl32.DegToRad(1),
	}
	for _, option := range options {
		option(o)
	}
	o.elevation = mgl32.Clamp(o.elevation, o.minElevation, o.maxElevation)
	return o
}

func (o *orbitImpl) Target() mgl32.Vec3 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.target
}

func (o *orbitImpl) Radius() float32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.radius
}

func (o *orbitImpl) PositionAt(step int) mgl32.Vec3 {
	o.mu.Lock()
	defer o.mu.Unlock()
	azimuth := float64(o.azimuth + float32(step)*o.orbitSpeed)
	cosElev := float32(math.Cos(float64(o.elevation)))
	sinElev := float32(math.Sin(float64(o.elevation)))
	return mgl32.Vec3{
		o.target[0] + o.radius*cosElev*float32(math.Cos(azimuth)),
		o.target[1] + o.radius*cosElev*float32(math.Sin(azimuth)),
		o.target[2] + o.radius*sinElev,
	}
}

func (o *orbitImpl) Apply(cam Camera, step int) error {
	if err := cam.SetPosition(o.PositionAt(step)); err != nil {
		return err
	}
	return cam.LookAt(o.Target())
}

// OrbitOption is a functional option for configuring an Orbit.
type OrbitOption func(*orbitImpl)

// WithOrbitTarget sets the pivot point.
//
// Parameters:
//   - target: the world-space pivot
//
// Returns:
//   - OrbitOption: functional option to set the pivot
func WithOrbitTarget(target mgl32.Vec3) OrbitOption {
	return func(o *orbitImpl) {
		o.target = target
	}
}

// WithRadius sets the orbit radius (distance from target).
//
// Parameters:
//   - radius: distance from the orbit target
//
// Returns:
//   - OrbitOption: functional option to set the radius
func WithRadius(radius float32) OrbitOption {
	return func(o *orbitImpl) {
		o.radius = radius
	}
}

// WithAzimuth sets the initial angle around the Z axis.
//
// Parameters:
//   - azimuth: angle in radians (0 = +X axis)
//
// Returns:
//   - OrbitOption: functional option to set the azimuth
func WithAzimuth(azimuth float32) OrbitOption {
	return func(o *orbitImpl) {
		o.azimuth = azimuth
	}
}

// WithElevation sets the vertical angle from the horizontal plane. It is clamped so the camera
// never reaches the pole.
//
// Parameters:
//   - elevation: vertical angle in radians (0 = horizontal)
//
// Returns:
//   - OrbitOption: functional option to set the elevation
func WithElevation(elevation float32) OrbitOption {
	return func(o *orbitImpl) {
		o.elevation = elevation
	}
}

// WithOrbitSpeed sets the azimuth advanced per step.
//
// Parameters:
//   - speed: radians per step
//
// Returns:
//   - OrbitOption: functional option to set the orbit speed
func WithOrbitSpeed(speed float32) OrbitOption {
	return func(o *orbitImpl) {
		o.orbitSpeed = speed
	}
}
