// Package camera provides the perspective and orthographic camera entities, their projection
// and intrinsics math, and an orbit rig for generating camera paths.
package camera

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-synth/common"
	"github.com/Carmen-Shannon/oxy-synth/engine/entity"
	"github.com/go-gl/mathgl/mgl32"
)

// Projection identifies how a camera maps view space to the image plane.
type Projection int

const (
	// ProjectionPerspective is a pinhole camera parameterised by focal length and sensor width in millimetres.
	ProjectionPerspective Projection = iota

	// ProjectionOrthographic is a parallel projection whose horizontal extent is OrthographicScale world units.
	ProjectionOrthographic
)

func (p Projection) String() string {
	switch p {
	case ProjectionPerspective:
		return "perspective"
	case ProjectionOrthographic:
		return "orthographic"
	}
	return fmt.Sprintf("projection(%d)", int(p))
}

const (
	defaultFocalLength       = 50.0
	defaultSensorWidth       = 36.0
	defaultOrthographicScale = 6.0
	defaultNear              = 0.1
	defaultFar               = 100.0
)

type cameraImpl struct {
	*entity.Base

	projection        Projection
	focalLength       float32
	sensorWidth       float32
	orthographicScale float32
	near              float32
	far               float32
}

// Camera defines the interface for a scene viewpoint.
//
// A camera looks down its local -Z axis with +Y up. All image-space quantities take the scene
// resolution as a parameter because the sensor height and the aspect ratio follow from it.
type Camera interface {
	entity.Entity

	// Projection returns the projection type.
	//
	// Returns:
	//   - Projection: perspective or orthographic
	Projection() Projection

	// FocalLength returns the focal length in millimetres. Meaningless for orthographic cameras.
	//
	// Returns:
	//   - float32: the focal length
	FocalLength() float32

	// SensorWidth returns the sensor width in millimetres.
	//
	// Returns:
	//   - float32: the sensor width
	SensorWidth() float32

	// SensorHeight returns the sensor height implied by the sensor width and the image aspect.
	//
	// Parameters:
	//   - res: the image resolution
	//
	// Returns:
	//   - float32: the sensor height in millimetres
	SensorHeight(res common.Resolution) float32

	// OrthographicScale returns the horizontal extent of an orthographic view in world units.
	//
	// Returns:
	//   - float32: the orthographic scale
	OrthographicScale() float32

	// Near returns the near clipping distance.
	//
	// Returns:
	//   - float32: the near plane distance
	Near() float32

	// Far returns the far clipping distance.
	//
	// Returns:
	//   - float32: the far plane distance
	Far() float32

	// FieldOfView returns the horizontal field of view in radians, or 0 for orthographic cameras.
	//
	// Returns:
	//   - float32: the field of view
	FieldOfView() float32

	// MatrixWorld returns the camera-to-world transform.
	//
	// Returns:
	//   - mgl32.Mat4: the world matrix
	MatrixWorld() mgl32.Mat4

	// ViewMatrix returns the world-to-camera transform.
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the camera-to-clip transform (OpenGL clip conventions).
	//
	// Parameters:
	//   - res: the image resolution
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	ProjectionMatrix(res common.Resolution) mgl32.Mat4

	// Intrinsics returns the 3x3 intrinsics matrix K in normalized image coordinates.
	// The perspective form is [[fx, 0, -px], [0, -fy, -py], [0, 0, -1]] so that it applies directly
	// to camera-space points with the camera looking down -Z.
	//
	// Parameters:
	//   - res: the image resolution
	//
	// Returns:
	//   - mgl32.Mat3: the intrinsics matrix
	Intrinsics(res common.Resolution) mgl32.Mat3

	// ProjectPoint maps a world-space point to pixel coordinates.
	//
	// Parameters:
	//   - p: the world-space point
	//   - res: the image resolution
	//
	// Returns:
	//   - mgl32.Vec2: the pixel position (x right, y down)
	//   - float32: the view-space depth along -Z
	//   - bool: false if the point lies behind the near plane
	ProjectPoint(p mgl32.Vec3, res common.Resolution) (mgl32.Vec2, float32, bool)

	// SetFocalLength sets the focal length in millimetres.
	//
	// Parameters:
	//   - f: the focal length
	//
	// Returns:
	//   - error: wraps session.ErrActive while a render session holds the owning scene
	SetFocalLength(f float32) error

	// SetOrthographicScale sets the orthographic scale.
	//
	// Parameters:
	//   - s: the horizontal extent in world units
	//
	// Returns:
	//   - error: wraps session.ErrActive while a render session holds the owning scene
	SetOrthographicScale(s float32) error
}

var _ Camera = &cameraImpl{}

// NewPerspectiveCamera creates a perspective camera with a 50mm lens on a 36mm sensor.
//
// Parameters:
//   - id: the unique entity id
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewPerspectiveCamera(id string, options ...CameraBuilderOption) Camera {
	return newCamera(id, ProjectionPerspective, options...)
}

// NewOrthographicCamera creates an orthographic camera with a scale of 6 world units.
//
// Parameters:
//   - id: the unique entity id
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewOrthographicCamera(id string, options ...CameraBuilderOption) Camera {
	return newCamera(id, ProjectionOrthographic, options...)
}

func newCamera(id string, projection Projection, options ...CameraBuilderOption) *cameraImpl {
	c := &cameraImpl{
		Base:              entity.NewBase(id, entity.KindCamera),
		projection:        projection,
		focalLength:       defaultFocalLength,
		sensorWidth:       defaultSensorWidth,
		orthographicScale: defaultOrthographicScale,
		near:              defaultNear,
		far:               defaultFar,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *cameraImpl) Projection() Projection {
	return c.projection
}

func (c *cameraImpl) FocalLength() float32 {
	c.RLock()
	defer c.RUnlock()
	return c.focalLength
}

func (c *cameraImpl) SensorWidth() float32 {
	c.RLock()
	defer c.RUnlock()
	return c.sensorWidth
}

func (c *cameraImpl) SensorHeight(res common.Resolution) float32 {
	return c.SensorWidth() / res.Aspect()
}

func (c *cameraImpl) OrthographicScale() float32 {
	c.RLock()
	defer c.RUnlock()
	return c.orthographicScale
}

func (c *cameraImpl) Near() float32 {
	c.RLock()
	defer c.RUnlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.RLock()
	defer c.RUnlock()
	return c.far
}

func (c *cameraImpl) FieldOfView() float32 {
	if c.projection == ProjectionOrthographic {
		return 0
	}
	c.RLock()
	defer c.RUnlock()
	return 2 * float32(math.Atan(float64(c.sensorWidth/(2*c.focalLength))))
}

func (c *cameraImpl) MatrixWorld() mgl32.Mat4 {
	c.RLock()
	defer c.RUnlock()
	pos, rot := c.CurrentPose()
	return common.MatrixWorld(pos, rot, mgl32.Vec3{1, 1, 1})
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	return c.MatrixWorld().Inv()
}

func (c *cameraImpl) ProjectionMatrix(res common.Resolution) mgl32.Mat4 {
	c.RLock()
	defer c.RUnlock()
	aspect := res.Aspect()
	if c.projection == ProjectionOrthographic {
		halfW := c.orthographicScale / 2
		halfH := halfW / aspect
		return mgl32.Ortho(-halfW, halfW, -halfH, halfH, c.near, c.far)
	}
	sensorHeight := c.sensorWidth / aspect
	fovY := 2 * float32(math.Atan(float64(sensorHeight/(2*c.focalLength))))
	return mgl32.Perspective(fovY, aspect, c.near, c.far)
}

func (c *cameraImpl) Intrinsics(res common.Resolution) mgl32.Mat3 {
	c.RLock()
	defer c.RUnlock()
	aspect := res.Aspect()
	if c.projection == ProjectionOrthographic {
		sx := 1 / c.orthographicScale
		sy := aspect / c.orthographicScale
		return mgl32.Mat3FromRows(
			mgl32.Vec3{sx, 0, 0.5},
			mgl32.Vec3{0, -sy, 0.5},
			mgl32.Vec3{0, 0, 1},
		)
	}
	fx := c.focalLength / c.sensorWidth
	fy := c.focalLength / (c.sensorWidth / aspect)
	return mgl32.Mat3FromRows(
		mgl32.Vec3{fx, 0, -0.5},
		mgl32.Vec3{0, -fy, -0.5},
		mgl32.Vec3{0, 0, -1},
	)
}

func (c *cameraImpl) ProjectPoint(p mgl32.Vec3, res common.Resolution) (mgl32.Vec2, float32, bool) {
	view := c.ViewMatrix()
	camPos := view.Mul4x1(p.Vec4(1))
	depth := -camPos[2]
	if depth < c.Near() {
		return mgl32.Vec2{}, depth, false
	}
	clip := c.ProjectionMatrix(res).Mul4x1(camPos)
	if clip[3] == 0 {
		return mgl32.Vec2{}, depth, false
	}
	ndcX, ndcY := clip[0]/clip[3], clip[1]/clip[3]
	return mgl32.Vec2{
		(ndcX + 1) / 2 * float32(res.Width),
		(1 - ndcY) / 2 * float32(res.Height),
	}, depth, true
}

func (c *cameraImpl) SetFocalLength(f float32) error {
	if err := c.CheckSession("set focal length of"); err != nil {
		return err
	}
	c.Lock()
	defer c.Unlock()
	c.focalLength = f
	return nil
}

func (c *cameraImpl) SetOrthographicScale(s float32) error {
	if err := c.CheckSession("set orthographic scale of"); err != nil {
		return err
	}
	c.Lock()
	defer c.Unlock()
	c.orthographicScale = s
	return nil
}

func (c *cameraImpl) Properties() []string {
	if c.projection == ProjectionOrthographic {
		return append(entity.PoseProperties(), entity.PropOrthographicScale)
	}
	return append(entity.PoseProperties(), entity.PropFocalLength, entity.PropSensorWidth)
}

func (c *cameraImpl) Property(name string) (entity.Value, error) {
	c.RLock()
	defer c.RUnlock()
	if v, ok := c.PoseProperty(name); ok {
		return v, nil
	}
	if f := c.scalar(name); f != nil {
		return entity.Value{*f}, nil
	}
	return nil, c.UnknownProperty(name)
}

func (c *cameraImpl) SetProperty(name string, v entity.Value) error {
	if err := c.CheckSession("set " + name + " of"); err != nil {
		return err
	}
	c.Lock()
	defer c.Unlock()
	if ok, err := c.SetPoseProperty(name, v); ok {
		return err
	}
	f := c.scalar(name)
	if f == nil {
		return c.UnknownProperty(name)
	}
	if err := entity.CheckArity(c.ID(), name, v, 1); err != nil {
		return err
	}
	*f = v[0]
	return nil
}

// scalar returns a pointer to the named projection parameter, or nil if the projection type
// does not carry it. Caller must hold the lock.
func (c *cameraImpl) scalar(name string) *float32 {
	switch {
	case name == entity.PropOrthographicScale && c.projection == ProjectionOrthographic:
		return &c.orthographicScale
	case name == entity.PropFocalLength && c.projection == ProjectionPerspective:
		return &c.focalLength
	case name == entity.PropSensorWidth && c.projection == ProjectionPerspective:
		return &c.sensorWidth
	}
	return nil
}
