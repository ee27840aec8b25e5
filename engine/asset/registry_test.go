package asset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-synth/engine/session"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `{
  "name": "shapenet-mini",
  "data_dir": "assets",
  "assets": {
    "cube": {
      "asset_type": "FileBasedObject",
      "kwargs": {
        "render_filename": "{asset_id}/mesh.gltf",
        "bounds": [[-1, -1, -1], [1, 1, 1]],
        "mass": 1.5
      },
      "metadata": {"category": "shape"}
    },
    "teapot": {
      "asset_type": "FileBasedObject",
      "kwargs": {"render_filename": "{asset_id}/mesh.gltf"},
      "metadata": {"category": "kitchen"}
    },
    "sphere": {
      "asset_type": "FileBasedObject",
      "kwargs": {"bounds": [[-0.5, -0.5, -0.5], [0.5, 0.5, 0.5]]},
      "metadata": {"category": "shape", "license": "CC-BY"}
    }
  }
}`

const teapotGLTF = `{
  "asset": {"version": "2.0"},
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}}, {"attributes": {"POSITION": 1}}]}],
  "accessors": [
    {"type": "VEC3", "min": [-2, -1, 0], "max": [1, 1, 1]},
    {"type": "VEC3", "min": [0, -3, 0], "max": [3, 0, 0.5]}
  ]
}`

func writeManifest(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(testManifest), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets", "teapot"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "teapot", "mesh.gltf"), []byte(teapotGLTF), 0o644))
	return path
}

func TestRegistry_ResolveIsMemoized(t *testing.T) {
	reg, err := Open(writeManifest(t))
	require.NoError(t, err)
	assert.Equal(t, "shapenet-mini", reg.Name())

	a, err := reg.Resolve("cube")
	require.NoError(t, err)
	b, err := reg.Resolve("cube")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	assert.Equal(t, "shape", a.Category)
	assert.True(t, a.HasBounds)
	assert.Equal(t, mgl32.Vec3{-1, -1, -1}, a.Bounds.Min)
	assert.Equal(t, float32(1.5), a.Mass)
	assert.True(t, strings.HasSuffix(a.RenderFile, filepath.Join("assets", "cube", "mesh.gltf")))
}

func TestRegistry_ResolveUnknownID(t *testing.T) {
	reg, err := Open(writeManifest(t))
	require.NoError(t, err)

	_, err = reg.Resolve("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "nope", nf.AssetID)
}

func TestRegistry_DerivesBoundsFromGLTF(t *testing.T) {
	reg, err := Open(writeManifest(t))
	require.NoError(t, err)

	d, err := reg.Resolve("teapot")
	require.NoError(t, err)
	require.True(t, d.HasBounds)
	assert.Equal(t, mgl32.Vec3{-2, -3, 0}, d.Bounds.Min)
	assert.Equal(t, mgl32.Vec3{3, 1, 1}, d.Bounds.Max)
}

func TestRegistry_MissingGeometryIsManifestError(t *testing.T) {
	path := writeManifest(t)
	require.NoError(t, os.Remove(filepath.Join(filepath.Dir(path), "assets", "teapot", "mesh.gltf")))
	reg, err := Open(path)
	require.NoError(t, err)

	_, err = reg.Resolve("teapot")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrManifest))
	var me *ManifestError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "teapot", me.AssetID)
}

func TestRegistry_MalformedManifest(t *testing.T) {
	cases := map[string]string{
		"not a document":   "{{{",
		"missing assets":   `{"name": "x"}`,
		"malformed bounds": `{"assets": {"a": {"kwargs": {"bounds": [[0, 0], [1, 1]]}}}}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			reg, err := NewRegistry(strings.NewReader(doc), "inline")
			if err == nil {
				_, err = reg.Resolve("a")
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrManifest), "got %v", err)
		})
	}
}

func TestRegistry_OpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.json"))
	assert.True(t, errors.Is(err, ErrManifest))
}

func TestRegistry_IDsAndFilter(t *testing.T) {
	reg, err := Open(writeManifest(t), WithDescriptor(Descriptor{ID: "custom", Category: "shape"}))
	require.NoError(t, err)

	assert.Equal(t, []string{"cube", "custom", "sphere", "teapot"}, reg.IDs())
	assert.Equal(t, []string{"cube", "custom", "sphere"}, reg.Filter("shape"))
	assert.Equal(t, []string{"teapot"}, reg.Filter("kitchen"))
	assert.Empty(t, reg.Filter("vehicle"))
}

func TestRegistry_MetadataIsCopy(t *testing.T) {
	reg, err := Open(writeManifest(t))
	require.NoError(t, err)

	md, err := reg.Metadata("sphere")
	require.NoError(t, err)
	assert.Equal(t, "CC-BY", md["license"])
	md["license"] = "mutated"

	again, err := reg.Metadata("sphere")
	require.NoError(t, err)
	assert.Equal(t, "CC-BY", again["license"])

	_, err = reg.Metadata("nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRegistry_YAMLManifestWithDataDirOverride(t *testing.T) {
	doc := `
name: yaml-assets
data_dir: gs://bucket/assets
assets:
  rock:
    asset_type: FileBasedObject
    kwargs:
      render_filename: "{asset_id}.glb"
    metadata:
      category: nature
`
	remote, err := NewRegistry(strings.NewReader(doc), "inline.yaml")
	require.NoError(t, err)
	d, err := remote.Resolve("rock")
	require.NoError(t, err)
	assert.Equal(t, "gs://bucket/assets/rock.glb", d.RenderFile)
	assert.False(t, d.HasBounds)

	local, err := NewRegistry(strings.NewReader(doc), "inline.yaml", WithDataDir("/mirror"))
	require.NoError(t, err)
	_, err = local.Resolve("rock")
	assert.True(t, errors.Is(err, ErrManifest), "local mirror without the file should fail bounds derivation")
}

func TestRegistry_RegisterRespectsSession(t *testing.T) {
	guard := session.NewGuard()
	reg := NewEmptyRegistry(WithSessionGuard(guard))

	require.NoError(t, reg.Register(Descriptor{ID: "box", Category: "shape"}))
	assert.Error(t, reg.Register(Descriptor{ID: "box"}))

	tok, err := guard.Acquire()
	require.NoError(t, err)
	err = reg.Register(Descriptor{ID: "ball"})
	assert.True(t, errors.Is(err, session.ErrActive))
	tok.Release()

	require.NoError(t, reg.Register(Descriptor{ID: "ball"}))
	d, err := reg.Resolve("ball")
	require.NoError(t, err)
	assert.Equal(t, "ball", d.ID)
}

func TestReadGLTFBounds_GLB(t *testing.T) {
	jsonChunk := []byte(teapotGLTF)
	for len(jsonChunk)%4 != 0 {
		jsonChunk = append(jsonChunk, ' ')
	}
	buf := make([]byte, 0, 20+len(jsonChunk))
	le := func(v uint32) []byte { return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)} }
	buf = append(buf, le(gltfGLBMagic)...)
	buf = append(buf, le(gltfGLBVersion)...)
	buf = append(buf, le(uint32(20+len(jsonChunk)))...)
	buf = append(buf, le(uint32(len(jsonChunk)))...)
	buf = append(buf, le(gltfGLBChunkJSON)...)
	buf = append(buf, jsonChunk...)

	path := filepath.Join(t.TempDir(), "mesh.glb")
	require.NoError(t, os.WriteFile(path, buf, 0o644))

	box, err := readGLTFBounds(path)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{-2, -3, 0}, box.Min)
	assert.Equal(t, mgl32.Vec3{3, 1, 1}, box.Max)
}
