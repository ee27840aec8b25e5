package common

import (
	"github.com/go-gl/mathgl/mgl32"
)

// parallelEpsilon is the squared cross-product length under which two unit vectors are treated as parallel.
const parallelEpsilon = 1e-10

// WorldUp is the world up axis. Scenes are Z-up, matching the renderer collaborators this pipeline drives.
var WorldUp = mgl32.Vec3{0, 0, 1}

// QuatFromAxisDegrees builds a unit quaternion rotating by the given angle around the given axis.
// A zero-length axis yields the identity rotation.
//
// Parameters:
//   - axis: the rotation axis (normalized internally)
//   - degrees: the rotation angle in degrees
//
// Returns:
//   - mgl32.Quat: the rotation quaternion
func QuatFromAxisDegrees(axis mgl32.Vec3, degrees float32) mgl32.Quat {
	if axis.Len() == 0 {
		return mgl32.QuatIdent()
	}
	return mgl32.QuatRotate(mgl32.DegToRad(degrees), axis.Normalize())
}

// LookAtQuat computes the orientation that points an object's local -Z axis from eye toward target,
// keeping local +Y as close to up as possible. This is the convention used for cameras and lights.
// When the view direction is parallel to up, the Y axis is used as a fallback up vector.
// If eye and target coincide, the identity rotation is returned.
//
// Parameters:
//   - eye: the position of the oriented object
//   - target: the point to look at
//   - up: the preferred up direction
//
// Returns:
//   - mgl32.Quat: the unit orientation quaternion
func LookAtQuat(eye, target, up mgl32.Vec3) mgl32.Quat {
	z := eye.Sub(target)
	if z.Len() == 0 {
		return mgl32.QuatIdent()
	}
	z = z.Normalize()

	x := up.Cross(z)
	if x.Dot(x) < parallelEpsilon {
		x = mgl32.Vec3{0, 1, 0}.Cross(z)
		if x.Dot(x) < parallelEpsilon {
			x = mgl32.Vec3{1, 0, 0}.Cross(z)
		}
	}
	x = x.Normalize()
	y := z.Cross(x)

	// column-major rotation with the basis vectors as columns
	rot := mgl32.Mat4{
		x[0], x[1], x[2], 0,
		y[0], y[1], y[2], 0,
		z[0], z[1], z[2], 0,
		0, 0, 0, 1,
	}
	return mgl32.Mat4ToQuat(rot).Normalize()
}

// MatrixWorld composes a column-major local-to-world matrix from translation, rotation and scale (T * R * S).
//
// Parameters:
//   - position: world-space translation
//   - rotation: unit orientation quaternion
//   - scale: per-axis scale factors
//
// Returns:
//   - mgl32.Mat4: the world matrix
func MatrixWorld(position mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Translate3D(position[0], position[1], position[2]).
		Mul4(rotation.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(scale[0], scale[1], scale[2]))
}

// QuatToSlice flattens a quaternion in (w, x, y, z) order.
func QuatToSlice(q mgl32.Quat) []float32 {
	return []float32{q.W, q.V[0], q.V[1], q.V[2]}
}

// QuatFromSlice reads a quaternion stored in (w, x, y, z) order. The caller guarantees len(v) >= 4.
func QuatFromSlice(v []float32) mgl32.Quat {
	return mgl32.Quat{W: v[0], V: mgl32.Vec3{v[1], v[2], v[3]}}
}
