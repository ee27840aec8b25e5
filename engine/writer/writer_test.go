package writer

import (
	"context"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-synth/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

func testStack(t *testing.T) *renderer.FrameStack {
	t.Helper()
	channels := []renderer.Channel{
		renderer.ChannelRGBA, renderer.ChannelDepth, renderer.ChannelSegmentation, renderer.ChannelNormal,
	}
	stack := renderer.NewFrameStack(1, channels)
	for frame := 1; frame <= 2; frame++ {
		rgba := renderer.NewFloatArray(3, 2, 4)
		rgba.Fill(1, 0, 0, 1)
		depth := renderer.NewFloatArray(3, 2, 1)
		depth.Fill(float32(frame))
		depth.Set(0, 0, 0, 10)
		seg := renderer.NewLabelArray(3, 2)
		seg.SetLabel(1, 1, 2)
		normal := renderer.NewFloatArray(3, 2, 3)
		normal.Fill(0, 0, 1)
		require.NoError(t, stack.Append(frame, map[renderer.Channel]*renderer.Array{
			renderer.ChannelRGBA:         rgba,
			renderer.ChannelDepth:        depth,
			renderer.ChannelSegmentation: seg,
			renderer.ChannelNormal:       normal,
		}))
	}
	return stack
}

func decode(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	var img image.Image
	if filepath.Ext(path) == ".tiff" {
		img, err = tiff.Decode(f)
	} else {
		img, err = png.Decode(f)
	}
	require.NoError(t, err)
	return img
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "rgba_00007.png", FileName(renderer.ChannelRGBA, 7, "png"))
	assert.Equal(t, "depth_00120.tiff", FileName(renderer.ChannelDepth, 120, "tiff"))
}

func TestWriteStack(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	results, err := NewWriter().WriteStack(context.Background(), testStack(t), dir)
	require.NoError(t, err)
	require.Len(t, results, 4)

	rgba := results[renderer.ChannelRGBA]
	assert.Equal(t, []string{
		filepath.Join(dir, "rgba_00001.png"),
		filepath.Join(dir, "rgba_00002.png"),
	}, rgba.Paths)
	r, _, _, a := decode(t, rgba.Paths[0]).At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0xffff), a)

	seg := decode(t, results[renderer.ChannelSegmentation].Paths[1])
	paletted, ok := seg.(*image.Paletted)
	require.True(t, ok)
	assert.Equal(t, uint8(2), paletted.ColorIndexAt(1, 1))
	assert.Equal(t, uint8(0), paletted.ColorIndexAt(0, 0))

	depth := results[renderer.ChannelDepth]
	require.NotNil(t, depth.Range)
	assert.Equal(t, ValueRange{Min: 1, Max: 10}, *depth.Range, "depth is scaled over every frame")
	assert.Equal(t, filepath.Join(dir, "depth_00002.tiff"), depth.Paths[1])
	gray, ok := decode(t, depth.Paths[0]).(*image.Gray16)
	require.True(t, ok)
	assert.Equal(t, uint16(0xffff), gray.Gray16At(0, 0).Y)
	assert.Equal(t, uint16(0), gray.Gray16At(1, 0).Y)

	_, g, b, _ := decode(t, results[renderer.ChannelNormal].Paths[0]).At(2, 1).RGBA()
	assert.InDelta(t, 0x8000, g, 1)
	assert.Equal(t, uint32(0xffff), b)
}

func TestWriteChannel_RejectsOversizedLabels(t *testing.T) {
	seg := renderer.NewLabelArray(1, 1)
	seg.SetLabel(0, 0, 300)
	_, err := NewWriter().WriteChannel(context.Background(), renderer.ChannelSegmentation,
		[]int{1}, []*renderer.Array{seg}, t.TempDir())
	assert.Error(t, err)
}

func TestWriteChannel_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewWriter().WriteChannel(ctx, renderer.ChannelRGBA,
		[]int{1}, []*renderer.Array{renderer.NewFloatArray(1, 1, 4)}, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "metadata.json")
	record := map[string]any{"metadata": map[string]int{"frame_start": 1}}
	require.NoError(t, NewWriter().WriteMetadata(record, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]map[string]int
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, 1, got["metadata"]["frame_start"])
}

func TestSegmentationPalette(t *testing.T) {
	p := SegmentationPalette()
	require.Len(t, p, 256)
	r, g, b, _ := p[0].RGBA()
	assert.Zero(t, r+g+b)
	assert.NotEqual(t, p[1], p[2])
}
