package postprocess

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-synth/common"
	"github.com/Carmen-Shannon/oxy-synth/engine/asset"
	"github.com/Carmen-Shannon/oxy-synth/engine/camera"
	"github.com/Carmen-Shannon/oxy-synth/engine/entity"
	"github.com/Carmen-Shannon/oxy-synth/engine/game_object"
	"github.com/Carmen-Shannon/oxy-synth/engine/keyframe"
	"github.com/Carmen-Shannon/oxy-synth/engine/light"
	"github.com/Carmen-Shannon/oxy-synth/engine/renderer"
	"github.com/Carmen-Shannon/oxy-synth/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMetadataScene(t *testing.T) (scene.Scene, keyframe.Store) {
	t.Helper()
	sc := scene.NewScene("metadata",
		scene.WithResolution(common.Resolution{Width: 4, Height: 2}),
		scene.WithFrameRange(1, 3))
	cube := asset.Descriptor{
		ID:        "cube",
		HasBounds: true,
		Bounds:    common.AABB{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}},
	}
	for _, e := range []entity.Entity{
		game_object.NewGameObject("obj", game_object.WithAsset(cube)),
		light.NewDirectionalLight("sun"),
		camera.NewPerspectiveCamera("camera", camera.WithPosition(mgl32.Vec3{0, 0, 10}), camera.WithFocalLength(35)),
	} {
		_, err := sc.Add(e)
		require.NoError(t, err)
	}
	require.NoError(t, sc.SetCamera("camera"))

	store := keyframe.NewStore(sc)
	require.NoError(t, store.Insert("obj", entity.PropPosition, 1, entity.Value{0, 0, 0}))
	require.NoError(t, store.Insert("obj", entity.PropPosition, 3, entity.Value{2, 0, 0}))
	require.NoError(t, store.Insert("camera", entity.PropPosition, 3, entity.Value{0, 0, 20}))
	return sc, store
}

func TestNewSceneMetadata(t *testing.T) {
	sc, _ := newMetadataScene(t)
	md, err := NewSceneMetadata(sc, 42, 1)
	require.NoError(t, err)

	id, err := uuid.Parse(md.RunID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.Equal(t, 1, md.FrameStart)
	assert.Equal(t, 3, md.FrameEnd)
	assert.Equal(t, uint64(42), md.Seed)
	assert.Equal(t, common.Resolution{Width: 4, Height: 2}, md.Resolution)

	again, err := NewSceneMetadata(sc, 42, 1)
	require.NoError(t, err)
	assert.NotEqual(t, md.RunID, again.RunID)
}

func TestCameraTrack(t *testing.T) {
	sc, store := newMetadataScene(t)
	info, err := CameraTrack(sc, store)
	require.NoError(t, err)

	assert.Equal(t, "perspective", info.Projection)
	assert.Equal(t, float32(35), info.FocalLength)
	assert.Equal(t, float32(36), info.SensorWidth)
	assert.InDelta(t, 18, info.SensorHeight, 1e-4)
	assert.InDelta(t, 35.0/36.0, info.K[0][0], 1e-5)
	require.Len(t, info.Positions, 3)
	assert.Equal(t, [3]float32{0, 0, 20}, info.Positions[0], "a single key holds over the whole range")
	assert.Equal(t, float32(20), info.MatrixWorld[0][2][3])
}

func TestCameraTrack_NoCamera(t *testing.T) {
	sc := scene.NewScene("empty")
	_, err := CameraTrack(sc, keyframe.NewStore(sc))
	assert.ErrorIs(t, err, renderer.ErrNoCamera)
}

func TestInstanceTrack(t *testing.T) {
	sc, store := newMetadataScene(t)
	p := NewProcessor()
	frames := []int{1, 2, 3}

	raw := make([]*renderer.Array, 3)
	for i := range raw {
		raw[i] = renderer.NewLabelArray(4, 2)
	}
	raw[0].SetLabel(1, 0, 7)
	raw[0].SetLabel(2, 1, 7)
	raw[2].SetLabel(3, 1, 7)
	labels := map[string]uint32{"obj": 7}

	vis, err := p.ComputeVisibility(raw, frames, labels)
	require.NoError(t, err)
	remapped, err := p.Remap(raw, frames, labels, []string{"obj"})
	require.NoError(t, err)

	infos, err := InstanceTrack(sc, store, []string{"obj"}, vis, remapped)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	info := infos[0]

	assert.Equal(t, "cube", info.AssetID)
	assert.Equal(t, 1, info.SegmentationIndex)
	require.NotNil(t, info.Bounds)
	assert.Equal(t, []int{2, 0, 1}, info.Visibility)
	assert.Equal(t, [][3]float32{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}}, info.Positions)
	assert.Equal(t, []int{1, 3}, info.BBoxFrames)
	assert.Equal(t, [4]float32{0, 0.25, 1, 0.75}, info.BBoxes[0])
	assert.Equal(t, [4]float32{0.5, 0.75, 1, 1}, info.BBoxes[1])

	_, err = InstanceTrack(sc, store, []string{"sun"}, vis, remapped)
	assert.Error(t, err)
	_, err = InstanceTrack(sc, store, []string{"ghost"}, vis, remapped)
	assert.ErrorIs(t, err, scene.ErrUnknownEntity)
}
