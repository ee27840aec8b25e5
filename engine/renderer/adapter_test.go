package renderer_test

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-synth/engine/camera"
	"github.com/Carmen-Shannon/oxy-synth/engine/entity"
	"github.com/Carmen-Shannon/oxy-synth/engine/game_object"
	"github.com/Carmen-Shannon/oxy-synth/engine/keyframe"
	"github.com/Carmen-Shannon/oxy-synth/engine/light"
	"github.com/Carmen-Shannon/oxy-synth/engine/renderer"
	"github.com/Carmen-Shannon/oxy-synth/engine/renderer/renderertest"
	"github.com/Carmen-Shannon/oxy-synth/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	scene   scene.Scene
	store   keyframe.Store
	backend *renderertest.Backend
	adapter renderer.Adapter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sc := scene.NewScene("adapter", scene.WithFrameRange(1, 4))
	for _, e := range []entity.Entity{
		game_object.NewGameObject("cube", game_object.WithPosition(mgl32.Vec3{0, 0, 1})),
		light.NewDirectionalLight("sun"),
		camera.NewOrthographicCamera("camera", camera.WithPosition(mgl32.Vec3{0, 0, 3})),
	} {
		_, err := sc.Add(e)
		require.NoError(t, err)
	}
	require.NoError(t, sc.SetCamera("camera"))

	store := keyframe.NewStore(sc)
	backend := renderertest.NewBackend()
	return &fixture{
		scene:   sc,
		store:   store,
		backend: backend,
		adapter: renderer.NewAdapter(backend, store),
	}
}

func (f *fixture) entity(t *testing.T, id string) entity.Entity {
	t.Helper()
	e, err := f.scene.Get(id)
	require.NoError(t, err)
	return e
}

func (f *fixture) attachAll(t *testing.T) {
	t.Helper()
	for _, e := range f.scene.Entities() {
		_, err := f.adapter.Attach(e, false)
		require.NoError(t, err)
	}
}

func TestAdapter_AttachDetachAttach(t *testing.T) {
	f := newFixture(t)
	cube := f.entity(t, "cube")

	first, err := f.adapter.Attach(cube, false)
	require.NoError(t, err)
	assert.Equal(t, "cube", first.EntityID)
	assert.Equal(t, entity.KindObject, first.Kind)
	assert.False(t, first.Synced)

	_, err = f.adapter.Attach(cube, false)
	var already *renderer.AlreadyAttachedError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, "cube", already.EntityID)
	assert.ErrorIs(t, err, renderer.ErrAlreadyAttached)

	require.NoError(t, f.adapter.Detach("cube"))
	_, ok := f.adapter.Link("cube")
	assert.False(t, ok)
	assert.Equal(t, []renderer.Handle{first.Handle}, f.backend.Released)

	second, err := f.adapter.Attach(cube, false)
	require.NoError(t, err)
	assert.NotEqual(t, first.Handle, second.Handle)

	assert.ErrorIs(t, f.adapter.Detach("ghost"), renderer.ErrNotAttached)
}

func TestAdapter_ForceAttachReplacesLink(t *testing.T) {
	f := newFixture(t)
	cube := f.entity(t, "cube")

	first, err := f.adapter.Attach(cube, false)
	require.NoError(t, err)
	second, err := f.adapter.Attach(cube, true)
	require.NoError(t, err)

	assert.NotEqual(t, first.Handle, second.Handle)
	assert.Equal(t, []renderer.Handle{first.Handle}, f.backend.Released)
	assert.Len(t, f.adapter.Links(), 1)
}

func TestAdapter_SyncPushesPropertiesAndKeyframes(t *testing.T) {
	f := newFixture(t)
	cube := f.entity(t, "cube")
	_, err := f.adapter.Attach(cube, false)
	require.NoError(t, err)

	require.NoError(t, f.store.Insert("cube", entity.PropPosition, 1, entity.Value{0, 0, 1}))
	require.NoError(t, f.store.Insert("cube", entity.PropPosition, 4, entity.Value{3, 0, 1}))

	require.NoError(t, f.adapter.Sync(cube, 2))

	node := f.backend.Node("cube")
	require.NotNil(t, node)
	assert.Equal(t, entity.Value{0, 0, 1}, node.Update.Properties[entity.PropPosition])
	require.Len(t, node.Update.Keyframes[entity.PropPosition], 2)
	assert.Equal(t, 4, node.Update.Keyframes[entity.PropPosition][1].Frame)

	link, ok := f.adapter.Link("cube")
	require.True(t, ok)
	assert.True(t, link.Synced)
	assert.Equal(t, 2, link.Frame)
	assert.Equal(t, []string{"color", "position", "quaternion", "scale"}, link.Pushed)
}

func TestAdapter_SyncErrors(t *testing.T) {
	f := newFixture(t)
	cube := f.entity(t, "cube")

	err := f.adapter.Sync(cube, 1)
	var syncErr *renderer.SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, "cube", syncErr.EntityID)
	assert.Equal(t, 1, syncErr.Frame)
	assert.ErrorIs(t, err, renderer.ErrSync)
	assert.ErrorIs(t, err, renderer.ErrNotAttached)

	_, err = f.adapter.Attach(cube, false)
	require.NoError(t, err)
	rejected := errors.New("rejected")
	f.backend.FailApply = map[string]error{"cube": rejected}

	err = f.adapter.Sync(cube, 3)
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, 3, syncErr.Frame)
	assert.ErrorIs(t, err, rejected)

	link, _ := f.adapter.Link("cube")
	assert.False(t, link.Synced, "a rejected update leaves the link unsynced")
}

func TestAdapter_LabelsAndWatch(t *testing.T) {
	f := newFixture(t)
	f.attachAll(t)
	f.adapter.Watch(f.scene)

	labels, err := f.adapter.Labels()
	require.NoError(t, err)
	assert.Equal(t, []string{"cube"}, keys(labels))

	_, err = f.adapter.Label("sun")
	assert.Error(t, err)

	require.NoError(t, f.scene.Remove("cube"))
	_, ok := f.adapter.Link("cube")
	assert.False(t, ok, "removing an entity from the scene detaches it")
	assert.Nil(t, f.backend.Node("cube"))
}

func TestAdapter_DetachAll(t *testing.T) {
	f := newFixture(t)
	f.attachAll(t)
	require.Len(t, f.adapter.Links(), 3)

	require.NoError(t, f.adapter.DetachAll())
	assert.Empty(t, f.adapter.Links())
	assert.Empty(t, f.backend.Nodes)
}

func keys(m map[string]uint32) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
