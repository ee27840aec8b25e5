package camera

import (
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-synth/common"
	"github.com/Carmen-Shannon/oxy-synth/engine/entity"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrthographicCamera_ProjectPoint(t *testing.T) {
	cam := NewOrthographicCamera("camera",
		WithPosition(mgl32.Vec3{0, 0, 3}),
		WithOrthographicScale(2.2),
		WithLookAt(mgl32.Vec3{}),
	)
	res := common.Resolution{Width: 256, Height: 256}

	px, depth, ok := cam.ProjectPoint(mgl32.Vec3{}, res)
	require.True(t, ok)
	assert.InDelta(t, 128, px[0], 1e-3)
	assert.InDelta(t, 128, px[1], 1e-3)
	assert.InDelta(t, 3, depth, 1e-5)

	px, _, ok = cam.ProjectPoint(mgl32.Vec3{1.1, 1.1, 0}, res)
	require.True(t, ok)
	assert.InDelta(t, 256, px[0], 1e-2)
	assert.InDelta(t, 0, px[1], 1e-2)

	_, _, ok = cam.ProjectPoint(mgl32.Vec3{0, 0, 5}, res)
	assert.False(t, ok, "points behind the camera are rejected")
	assert.Equal(t, float32(0), cam.FieldOfView())
}

func TestPerspectiveCamera_Defaults(t *testing.T) {
	cam := NewPerspectiveCamera("camera")
	assert.Equal(t, ProjectionPerspective, cam.Projection())
	assert.Equal(t, float32(50), cam.FocalLength())
	assert.Equal(t, float32(36), cam.SensorWidth())
	assert.InDelta(t, 2*math.Atan(36.0/100.0), cam.FieldOfView(), 1e-5)

	res := common.Resolution{Width: 640, Height: 480}
	assert.InDelta(t, 27, cam.SensorHeight(res), 1e-4)

	k := cam.Intrinsics(res)
	assert.InDelta(t, 50.0/36.0, k.At(0, 0), 1e-5)
	assert.InDelta(t, -50.0/27.0, k.At(1, 1), 1e-5)
	assert.InDelta(t, -0.5, k.At(0, 2), 1e-5)
	assert.InDelta(t, -1, k.At(2, 2), 1e-5)
}

func TestPerspectiveCamera_CenterProjectsToImageCenter(t *testing.T) {
	cam := NewPerspectiveCamera("camera", WithPosition(mgl32.Vec3{4, -3, 5}), WithLookAt(mgl32.Vec3{1, 1, 0}))
	res := common.Resolution{Width: 640, Height: 480}
	px, depth, ok := cam.ProjectPoint(mgl32.Vec3{1, 1, 0}, res)
	require.True(t, ok)
	assert.InDelta(t, 320, px[0], 1e-2)
	assert.InDelta(t, 240, px[1], 1e-2)
	assert.InDelta(t, mgl32.Vec3{3, -4, 5}.Len(), depth, 1e-4)
}

func TestCamera_PropertiesByProjection(t *testing.T) {
	persp := NewPerspectiveCamera("p")
	ortho := NewOrthographicCamera("o")

	assert.Equal(t, []string{"position", "quaternion", "focal_length", "sensor_width"}, persp.Properties())
	assert.Equal(t, []string{"position", "quaternion", "orthographic_scale"}, ortho.Properties())

	require.NoError(t, persp.SetProperty(entity.PropFocalLength, entity.Value{800}))
	assert.Equal(t, float32(800), persp.FocalLength())

	err := ortho.SetProperty(entity.PropFocalLength, entity.Value{800})
	assert.True(t, errors.Is(err, entity.ErrUnknownProperty))

	err = ortho.SetProperty(entity.PropOrthographicScale, entity.Value{1, 2})
	assert.True(t, errors.Is(err, entity.ErrPropertyArity))

	v, err := ortho.Property(entity.PropOrthographicScale)
	require.NoError(t, err)
	assert.Equal(t, entity.Value{6}, v)
}

func TestCamera_ViewInvertsWorld(t *testing.T) {
	cam := NewPerspectiveCamera("c", WithPosition(mgl32.Vec3{1, 2, 3}), WithLookAt(mgl32.Vec3{}))
	id := cam.ViewMatrix().Mul4(cam.MatrixWorld())
	want := mgl32.Ident4()
	for i := range id {
		assert.InDelta(t, want[i], id[i], 1e-4, "element %d", i)
	}
}

func TestOrbit_PositionsStayOnSphere(t *testing.T) {
	o := NewOrbit(
		WithOrbitTarget(mgl32.Vec3{0, 0, 1}),
		WithRadius(10),
		WithElevation(float32(math.Pi/4)),
		WithOrbitSpeed(mgl32.DegToRad(90)),
	)
	p0 := o.PositionAt(0)
	assert.InDelta(t, 7.0710678, p0[0], 1e-4)
	assert.InDelta(t, 0, p0[1], 1e-4)
	assert.InDelta(t, 1+7.0710678, p0[2], 1e-4)

	p1 := o.PositionAt(1)
	assert.InDelta(t, 0, p1[0], 1e-4)
	assert.InDelta(t, 7.0710678, p1[1], 1e-4)

	for step := range 8 {
		assert.InDelta(t, 10, o.PositionAt(step).Sub(o.Target()).Len(), 1e-4)
	}

	cam := NewPerspectiveCamera("c")
	require.NoError(t, o.Apply(cam, 2))
	forward := cam.Quaternion().Rotate(mgl32.Vec3{0, 0, -1})
	want := o.Target().Sub(cam.Position()).Normalize()
	assert.InDelta(t, 1, forward.Dot(want), 1e-4)
}

func TestOrbit_ElevationClamped(t *testing.T) {
	o := NewOrbit(WithElevation(float32(math.Pi)), WithRadius(1))
	p := o.PositionAt(0)
	assert.Less(t, p[2], float32(1))
}
