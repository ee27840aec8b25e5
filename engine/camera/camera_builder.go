package camera

import (
	"github.com/go-gl/mathgl/mgl32"
)

// CameraBuilderOption is a functional option for configuring a Camera during construction.
// Options run before the entity joins a scene, so its guarded setters cannot fail.
type CameraBuilderOption func(*cameraImpl)

// WithPosition sets the camera's world-space position.
//
// Parameters:
//   - p: the position
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera position
func WithPosition(p mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		_ = c.SetPosition(p)
	}
}

// WithQuaternion sets the camera's orientation.
//
// Parameters:
//   - q: the orientation
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera orientation
func WithQuaternion(q mgl32.Quat) CameraBuilderOption {
	return func(c *cameraImpl) {
		_ = c.SetQuaternion(q)
	}
}

// WithLookAt orients the camera toward target. Apply it after WithPosition.
//
// Parameters:
//   - target: the world-space point to face
//
// Returns:
//   - CameraBuilderOption: a function that orients the camera
func WithLookAt(target mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		_ = c.LookAt(target)
	}
}

// WithFocalLength sets the focal length in millimetres.
//
// Parameters:
//   - f: the focal length
//
// Returns:
//   - CameraBuilderOption: a function that sets the focal length
func WithFocalLength(f float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.focalLength = f
	}
}

// WithSensorWidth sets the sensor width in millimetres.
//
// Parameters:
//   - w: the sensor width
//
// Returns:
//   - CameraBuilderOption: a function that sets the sensor width
func WithSensorWidth(w float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.sensorWidth = w
	}
}

// WithOrthographicScale sets the horizontal extent of an orthographic view.
//
// Parameters:
//   - s: the scale in world units
//
// Returns:
//   - CameraBuilderOption: a function that sets the orthographic scale
func WithOrthographicScale(s float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.orthographicScale = s
	}
}

// WithNear sets the near clipping plane distance.
//
// Parameters:
//   - near: near plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the near plane
func WithNear(near float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
	}
}

// WithFar sets the far clipping plane distance.
//
// Parameters:
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: functional option to set the far plane
func WithFar(far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.far = far
	}
}
