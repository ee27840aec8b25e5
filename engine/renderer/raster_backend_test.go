package renderer_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-synth/common"
	"github.com/Carmen-Shannon/oxy-synth/engine/camera"
	"github.com/Carmen-Shannon/oxy-synth/engine/entity"
	"github.com/Carmen-Shannon/oxy-synth/engine/game_object"
	"github.com/Carmen-Shannon/oxy-synth/engine/keyframe"
	"github.com/Carmen-Shannon/oxy-synth/engine/light"
	"github.com/Carmen-Shannon/oxy-synth/engine/renderer"
	"github.com/Carmen-Shannon/oxy-synth/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rasterFixture struct {
	scene     scene.Scene
	store     keyframe.Store
	backend   renderer.Backend
	adapter   renderer.Adapter
	collector renderer.Collector
}

// newRasterFixture builds the helloworld scene: an orthographic camera of scale 2.2 three units
// above the origin and one directional light, plus any extra entities.
func newRasterFixture(t *testing.T, extra ...entity.Entity) *rasterFixture {
	t.Helper()
	sc := scene.NewScene("raster",
		scene.WithResolution(common.Resolution{Width: 64, Height: 64}),
		scene.WithFrameRange(1, 1))
	entities := append([]entity.Entity{
		camera.NewOrthographicCamera("camera",
			camera.WithPosition(mgl32.Vec3{0, 0, 3}),
			camera.WithLookAt(mgl32.Vec3{}),
			camera.WithOrthographicScale(2.2)),
		light.NewDirectionalLight("sun", light.WithPosition(mgl32.Vec3{0, 0, 5}), light.WithLookAt(mgl32.Vec3{})),
	}, extra...)
	for _, e := range entities {
		_, err := sc.Add(e)
		require.NoError(t, err)
	}
	require.NoError(t, sc.SetCamera("camera"))

	store := keyframe.NewStore(sc)
	backend := renderer.NewRasterBackend(renderer.WithLabelSeed(7), renderer.WithRasterWorkers(4))
	t.Cleanup(func() { backend.Close() })
	adapter := renderer.NewAdapter(backend, store)
	for _, e := range sc.Entities() {
		_, err := adapter.Attach(e, false)
		require.NoError(t, err)
	}
	return &rasterFixture{
		scene:     sc,
		store:     store,
		backend:   backend,
		adapter:   adapter,
		collector: renderer.NewCollector(sc, store, adapter),
	}
}

func smallCube() game_object.GameObject {
	return game_object.NewGameObject("cube", game_object.WithScale(mgl32.Vec3{0.5, 0.5, 0.5}))
}

func TestRasterBackend_HelloWorldIsAllBackground(t *testing.T) {
	f := newRasterFixture(t)
	require.NoError(t, f.scene.SetResolution(common.Resolution{Width: 256, Height: 256}))

	stack, err := f.collector.RenderScene(context.Background(),
		[]renderer.Channel{renderer.ChannelRGBA, renderer.ChannelSegmentation, renderer.ChannelDepth})
	require.NoError(t, err)
	require.Equal(t, 1, stack.Len())

	out := stack.Frame(0)
	seg := out[renderer.ChannelSegmentation]
	assert.Equal(t, 256, seg.Width)
	assert.Equal(t, 256, seg.Height)
	assert.Equal(t, []uint32{0}, seg.UniqueLabels())
	assert.Equal(t, float32(100), out[renderer.ChannelDepth].At(128, 128, 0))
	assert.Equal(t, float32(1), out[renderer.ChannelRGBA].At(0, 0, 3))
}

func TestRasterBackend_VisibleCube(t *testing.T) {
	f := newRasterFixture(t, smallCube())
	label, err := f.adapter.Label("cube")
	require.NoError(t, err)
	assert.NotZero(t, label)

	out, err := f.collector.RenderFrame(context.Background(), 1, []renderer.Channel{
		renderer.ChannelRGBA, renderer.ChannelDepth, renderer.ChannelSegmentation,
		renderer.ChannelNormal, renderer.ChannelObjectCoordinates,
	})
	require.NoError(t, err)

	seg := out[renderer.ChannelSegmentation]
	assert.Equal(t, label, seg.LabelAt(32, 32))
	assert.Equal(t, uint32(0), seg.LabelAt(0, 0))
	assert.ElementsMatch(t, []uint32{0, label}, seg.UniqueLabels())

	assert.InDelta(t, 2.5, out[renderer.ChannelDepth].At(32, 32, 0), 1e-3)
	assert.InDelta(t, 1, out[renderer.ChannelNormal].At(32, 32, 2), 1e-4)
	assert.InDelta(t, 1, out[renderer.ChannelObjectCoordinates].At(32, 32, 2), 1e-4)

	rgba := out[renderer.ChannelRGBA]
	assert.Greater(t, rgba.At(32, 32, 0), float32(0))
	assert.Equal(t, float32(1), rgba.At(32, 32, 3))
}

func TestRasterBackend_InterpolatesKeyframes(t *testing.T) {
	f := newRasterFixture(t, smallCube())
	require.NoError(t, f.store.Insert("cube", entity.PropPosition, 1, entity.Value{-0.6, 0, 0}))
	require.NoError(t, f.store.Insert("cube", entity.PropPosition, 3, entity.Value{0.6, 0, 0}))
	label, err := f.adapter.Label("cube")
	require.NoError(t, err)

	stack, err := f.collector.RenderRange(context.Background(), 1, 3, []renderer.Channel{renderer.ChannelSegmentation})
	require.NoError(t, err)

	centre := func(i int) uint32 {
		return stack.Channels[renderer.ChannelSegmentation][i].LabelAt(32, 32)
	}
	assert.Equal(t, uint32(0), centre(0))
	assert.Equal(t, label, centre(1))
	assert.Equal(t, uint32(0), centre(2))
}

func TestRasterBackend_TransparentBackground(t *testing.T) {
	f := newRasterFixture(t)
	c := renderer.NewCollector(f.scene, f.store, f.adapter, renderer.WithBackgroundTransparency(true))

	out, err := c.RenderFrame(context.Background(), 1, []renderer.Channel{renderer.ChannelRGBA})
	require.NoError(t, err)
	assert.Equal(t, float32(0), out[renderer.ChannelRGBA].At(10, 10, 3))
}

func TestRasterBackend_ApplyIsAllOrNothing(t *testing.T) {
	f := newRasterFixture(t, smallCube())
	link, ok := f.adapter.Link("cube")
	require.True(t, ok)

	err := f.backend.Apply(link.Handle, renderer.Update{
		Properties: map[string]entity.Value{
			entity.PropPosition: {5, 5, 5},
			entity.PropScale:    {1, 1},
		},
	})
	assert.ErrorIs(t, err, entity.ErrPropertyArity)

	err = f.backend.Apply(link.Handle, renderer.Update{
		Properties: map[string]entity.Value{entity.PropPosition: {5, 5, 5}},
		Keyframes: map[string][]keyframe.Keyframe{
			entity.PropFocalLength: {{Frame: 1, Value: entity.Value{35}}},
		},
	})
	assert.ErrorIs(t, err, entity.ErrUnknownProperty)

	out, err := f.backend.Evaluate(context.Background(), renderer.FrameRequest{
		Frame:      1,
		Camera:     mustLink(t, f.adapter, "camera").Handle,
		Resolution: f.scene.Resolution(),
		Channels:   []renderer.Channel{renderer.ChannelSegmentation},
	})
	require.NoError(t, err)
	label, _ := f.backend.Label(link.Handle)
	assert.Equal(t, label, out[renderer.ChannelSegmentation].LabelAt(32, 32), "rejected updates leave the object in place")
}

func TestRasterBackend_LabelsAreSeededAndUnique(t *testing.T) {
	materialize := func() []uint32 {
		b := renderer.NewRasterBackend(renderer.WithLabelSeed(99))
		defer b.Close()
		var labels []uint32
		for _, id := range []string{"a", "b", "c", "d"} {
			h, err := b.Materialize(game_object.NewGameObject(id))
			require.NoError(t, err)
			l, err := b.Label(h)
			require.NoError(t, err)
			labels = append(labels, l)
		}
		return labels
	}

	first := materialize()
	assert.Equal(t, first, materialize())
	seen := map[uint32]bool{}
	for _, l := range first {
		assert.NotZero(t, l)
		assert.False(t, seen[l])
		seen[l] = true
	}
}

func TestRasterBackend_RejectsUnknownChannel(t *testing.T) {
	f := newRasterFixture(t)
	_, err := f.collector.RenderFrame(context.Background(), 1, []renderer.Channel{"albedo"})
	assert.ErrorIs(t, err, renderer.ErrUnsupportedChannel)
}

func TestRasterBackend_SaveState(t *testing.T) {
	f := newRasterFixture(t, smallCube())
	require.NoError(t, f.store.Insert("cube", entity.PropPosition, 1, entity.Value{0, 0, 0}))
	require.NoError(t, f.store.Insert("cube", entity.PropPosition, 2, entity.Value{1, 0, 0}))
	for _, e := range f.scene.Entities() {
		require.NoError(t, f.adapter.Sync(e, 1))
	}

	path := filepath.Join(t.TempDir(), "scene.db")
	require.NoError(t, f.backend.SaveState(path))
	require.NoError(t, f.backend.SaveState(path), "saving twice replaces the file")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var nodes, keys int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM nodes`).Scan(&nodes))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM keyframes WHERE property = 'position'`).Scan(&keys))
	assert.Equal(t, 3, nodes)
	assert.Equal(t, 2, keys)

	var kind string
	var label int64
	require.NoError(t, db.QueryRow(`SELECT kind, label FROM nodes WHERE entity_id = 'cube'`).Scan(&kind, &label))
	assert.Equal(t, "object", kind)
	want, _ := f.adapter.Label("cube")
	assert.Equal(t, int64(want), label)
}

func mustLink(t *testing.T, a renderer.Adapter, id string) renderer.Link {
	t.Helper()
	link, ok := a.Link(id)
	require.True(t, ok)
	return link
}

func TestRasterBackend_CloseStopsWorkers(t *testing.T) {
	before := runtime.NumGoroutine()
	b := renderer.NewRasterBackend(renderer.WithRasterWorkers(1))

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.Eventually(t, func() bool { return runtime.NumGoroutine() <= before },
		2*time.Second, 10*time.Millisecond, "pool goroutines exit after Close")

	_, err := b.Materialize(game_object.NewGameObject("late"))
	assert.Error(t, err)
}
