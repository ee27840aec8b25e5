package keyframe

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-synth/engine/camera"
	"github.com/Carmen-Shannon/oxy-synth/engine/entity"
	"github.com/Carmen-Shannon/oxy-synth/engine/game_object"
	"github.com/Carmen-Shannon/oxy-synth/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture(t *testing.T) (scene.Scene, Store) {
	t.Helper()
	sc := scene.NewScene("keyframes")
	_, err := sc.Add(game_object.NewGameObject("cube"))
	require.NoError(t, err)
	_, err = sc.Add(camera.NewPerspectiveCamera("camera"))
	require.NoError(t, err)
	return sc, NewStore(sc)
}

func collectTrack(s Store, id, prop string) ([]int, []entity.Value) {
	var frames []int
	var values []entity.Value
	for f, v := range s.TrackFor(id, prop) {
		frames = append(frames, f)
		values = append(values, v)
	}
	return frames, values
}

func TestStore_OrderingAndOverwrite(t *testing.T) {
	_, s := newFixture(t)

	for _, f := range []int{5, 1, 3, 4, 2} {
		require.NoError(t, s.Insert("cube", entity.PropPosition, f, entity.Value{float32(f), 0, 0}))
	}
	require.NoError(t, s.Insert("cube", entity.PropPosition, 3, entity.Value{30, 0, 0}))

	frames, values := collectTrack(s, "cube", entity.PropPosition)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, frames)
	assert.Equal(t, entity.Value{30, 0, 0}, values[2], "last write wins at a frame")

	again, _ := collectTrack(s, "cube", entity.PropPosition)
	assert.Equal(t, frames, again, "iteration is restartable")
}

func TestStore_TrackForStopsEarly(t *testing.T) {
	_, s := newFixture(t)
	for f := 1; f <= 10; f++ {
		require.NoError(t, s.Insert("cube", entity.PropScale, f, entity.Value{1, 1, 1}))
	}
	n := 0
	for f := range s.TrackFor("cube", entity.PropScale) {
		n++
		if f == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}

func TestStore_ValuesAreCopies(t *testing.T) {
	_, s := newFixture(t)
	v := entity.Value{1, 2, 3}
	require.NoError(t, s.Insert("cube", entity.PropPosition, 1, v))
	v[0] = 99

	for _, got := range s.TrackFor("cube", entity.PropPosition) {
		assert.Equal(t, float32(1), got[0])
		got[1] = 42
	}
	_, values := collectTrack(s, "cube", entity.PropPosition)
	assert.Equal(t, entity.Value{1, 2, 3}, values[0])
}

func TestStore_InsertErrors(t *testing.T) {
	_, s := newFixture(t)

	err := s.Insert("ghost", entity.PropPosition, 1, entity.Value{0, 0, 0})
	assert.True(t, errors.Is(err, scene.ErrUnknownEntity))

	err = s.Insert("camera", entity.PropScale, 1, entity.Value{1, 1, 1})
	assert.True(t, errors.Is(err, entity.ErrUnknownProperty))

	err = s.Insert("cube", entity.PropQuaternion, 1, entity.Value{1, 0, 0})
	assert.True(t, errors.Is(err, entity.ErrPropertyArity))
}

func TestStore_InsertCurrent(t *testing.T) {
	sc, s := newFixture(t)
	cam, err := sc.Get("camera")
	require.NoError(t, err)

	require.NoError(t, cam.SetPosition(mgl32.Vec3{0, 0, 3}))
	require.NoError(t, cam.LookAt(mgl32.Vec3{}))
	require.NoError(t, s.InsertCurrent(cam, entity.PropPosition, 1))
	require.NoError(t, s.InsertCurrent(cam, entity.PropQuaternion, 1))
	require.NoError(t, cam.SetPosition(mgl32.Vec3{1, 0, 3}))
	require.NoError(t, s.InsertCurrent(cam, entity.PropPosition, 2))

	assert.Equal(t, []string{entity.PropPosition, entity.PropQuaternion}, s.Tracks("camera"))
	_, values := collectTrack(s, "camera", entity.PropPosition)
	assert.Equal(t, []entity.Value{{0, 0, 3}, {1, 0, 3}}, values)
}

func TestStore_SpanAndRelevant(t *testing.T) {
	_, s := newFixture(t)
	require.NoError(t, s.Insert("cube", entity.PropPosition, 2, entity.Value{0, 0, 0}))
	require.NoError(t, s.Insert("cube", entity.PropPosition, 6, entity.Value{0, 0, 1}))
	require.NoError(t, s.Insert("camera", entity.PropFocalLength, 5, entity.Value{35}))

	first, last, ok := s.Span("cube", entity.PropPosition)
	require.True(t, ok)
	assert.Equal(t, 2, first)
	assert.Equal(t, 6, last)
	_, _, ok = s.Span("cube", entity.PropScale)
	assert.False(t, ok)

	assert.Empty(t, s.Relevant(1))
	assert.Equal(t, []string{"cube"}, s.Relevant(4))
	assert.Equal(t, []string{"camera", "cube"}, s.Relevant(5))
	assert.Empty(t, s.Relevant(7))
	assert.Equal(t, []string{"camera", "cube"}, s.Entities())
}

func TestStore_DropOnSceneRemove(t *testing.T) {
	sc, s := newFixture(t)
	require.NoError(t, s.Insert("cube", entity.PropPosition, 1, entity.Value{0, 0, 0}))
	require.NoError(t, sc.Remove("cube"))

	assert.Empty(t, s.Tracks("cube"))
	frames, _ := collectTrack(s, "cube", entity.PropPosition)
	assert.Empty(t, frames)
}

func TestStore_SessionBlocksInsert(t *testing.T) {
	sc, s := newFixture(t)
	tok, err := sc.BeginSession()
	require.NoError(t, err)

	err = s.Insert("cube", entity.PropPosition, 1, entity.Value{0, 0, 0})
	assert.True(t, errors.Is(err, scene.ErrSessionActive))

	tok.Release()
	assert.NoError(t, s.Insert("cube", entity.PropPosition, 1, entity.Value{0, 0, 0}))
}
