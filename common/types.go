// package common contains common types that are used throughout this pipeline. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Resolution is the pixel size of every rendered array.
type Resolution struct {
	// Width is the number of pixel columns.
	Width int `yaml:"width" json:"width"`
	// Height is the number of pixel rows.
	Height int `yaml:"height" json:"height"`
}

// Aspect returns Width / Height, or 1 for a degenerate resolution.
func (r Resolution) Aspect() float32 {
	if r.Width <= 0 || r.Height <= 0 {
		return 1
	}
	return float32(r.Width) / float32(r.Height)
}

// Pixels returns the number of pixels in one frame.
func (r Resolution) Pixels() int {
	return r.Width * r.Height
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// AABB is an axis-aligned bounding box in an object's local space.
// It is immutable by convention: all methods return new values.
type AABB struct {
	// Min is the corner with the smallest coordinates.
	Min mgl32.Vec3 `json:"min"`
	// Max is the corner with the largest coordinates.
	Max mgl32.Vec3 `json:"max"`
}

// EmptyAABB returns a box that any Union will replace.
func EmptyAABB() AABB {
	inf := float32(3.4e38)
	return AABB{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

// IsEmpty reports whether the box contains no points.
func (b AABB) IsEmpty() bool {
	return b.Max[0] < b.Min[0] || b.Max[1] < b.Min[1] || b.Max[2] < b.Min[2]
}

// Equal reports whether two boxes share both corners.
func (b AABB) Equal(o AABB) bool {
	return b.Min == o.Min && b.Max == o.Max
}

// Union returns the smallest box containing both boxes.
//
// Parameters:
//   - o: the other box
//
// Returns:
//   - AABB: the enclosing box
func (b AABB) Union(o AABB) AABB {
	return AABB{
		Min: mgl32.Vec3{min(b.Min[0], o.Min[0]), min(b.Min[1], o.Min[1]), min(b.Min[2], o.Min[2])},
		Max: mgl32.Vec3{max(b.Max[0], o.Max[0]), max(b.Max[1], o.Max[1]), max(b.Max[2], o.Max[2])},
	}
}

// Corners returns the eight corner points of the box.
func (b AABB) Corners() [8]mgl32.Vec3 {
	var out [8]mgl32.Vec3
	for i := range out {
		for axis := 0; axis < 3; axis++ {
			if i&(1<<axis) != 0 {
				out[i][axis] = b.Max[axis]
			} else {
				out[i][axis] = b.Min[axis]
			}
		}
	}
	return out
}

// Center returns the midpoint of the box.
func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Transform returns the world-space box enclosing this box after applying m to every corner.
//
// Parameters:
//   - m: a column-major affine transform
//
// Returns:
//   - AABB: the enclosing world-space box
func (b AABB) Transform(m mgl32.Mat4) AABB {
	out := EmptyAABB()
	for _, c := range b.Corners() {
		p := m.Mul4x1(c.Vec4(1)).Vec3()
		out = out.Union(AABB{Min: p, Max: p})
	}
	return out
}

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}
