package game_object

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-synth/common"
	"github.com/Carmen-Shannon/oxy-synth/engine/asset"
	"github.com/Carmen-Shannon/oxy-synth/engine/entity"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitCube() asset.Descriptor {
	return asset.Descriptor{
		ID:        "cube",
		Category:  "shape",
		Bounds:    common.AABB{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}},
		HasBounds: true,
	}
}

func TestGameObject_Defaults(t *testing.T) {
	obj := NewGameObject("a", WithAsset(unitCube()))
	assert.Equal(t, "a", obj.ID())
	assert.Equal(t, entity.KindObject, obj.Kind())
	assert.Equal(t, "cube", obj.AssetID())
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, obj.Scale())
	assert.Equal(t, mgl32.QuatIdent(), obj.Quaternion())
	assert.Equal(t, []string{"position", "quaternion", "scale", "color"}, obj.Properties())
}

func TestGameObject_PropertyRoundTrip(t *testing.T) {
	obj := NewGameObject("a")
	require.NoError(t, obj.SetProperty(entity.PropPosition, entity.Value{1, 2, 3}))
	require.NoError(t, obj.SetProperty(entity.PropScale, entity.Value{2, 2, 2}))

	v, err := obj.Property(entity.PropPosition)
	require.NoError(t, err)
	assert.Equal(t, entity.Value{1, 2, 3}, v)
	assert.Equal(t, mgl32.Vec3{2, 2, 2}, obj.Scale())

	snap, err := entity.Snapshot(obj)
	require.NoError(t, err)
	assert.Len(t, snap, 4)
	assert.Equal(t, entity.Value{1, 0, 0, 0}, snap[entity.PropQuaternion])
}

func TestGameObject_PropertyErrors(t *testing.T) {
	obj := NewGameObject("a")

	err := obj.SetProperty(entity.PropScale, entity.Value{1})
	assert.True(t, errors.Is(err, entity.ErrPropertyArity))

	_, err = obj.Property(entity.PropFocalLength)
	assert.True(t, errors.Is(err, entity.ErrUnknownProperty))
	var pe *entity.PropertyError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "a", pe.EntityID)
}

func TestGameObject_WorldBoundsAndFloor(t *testing.T) {
	obj := NewGameObject("a",
		WithAsset(unitCube()),
		WithScale(mgl32.Vec3{1, 1, 0.5}),
		WithPosition(mgl32.Vec3{0, 0, 3}),
	)
	box, ok := obj.WorldBounds()
	require.True(t, ok)
	assert.InDelta(t, 2.5, box.Min[2], 1e-5)
	assert.InDelta(t, 3.5, box.Max[2], 1e-5)

	require.NoError(t, obj.RestOnFloor(0))
	box, _ = obj.WorldBounds()
	assert.InDelta(t, 0, box.Min[2], 1e-5)
	assert.InDelta(t, 0.5, obj.Position()[2], 1e-5)
}

func TestGameObject_NoBounds(t *testing.T) {
	obj := NewGameObject("custom", WithPosition(mgl32.Vec3{0, 0, 1}))
	_, ok := obj.WorldBounds()
	assert.False(t, ok)
	require.NoError(t, obj.RestOnFloor(0))
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, obj.Position())
}

func TestGameObject_AssetFlags(t *testing.T) {
	d := unitCube()
	d.Static, d.Background = true, true
	obj := NewGameObject("dome", WithAsset(d))
	assert.True(t, obj.Static())
	assert.True(t, obj.Background())

	obj = NewGameObject("dome", WithAsset(d), WithBackground(false))
	assert.False(t, obj.Background())
}
