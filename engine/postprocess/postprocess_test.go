package postprocess

import (
	"runtime"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-synth/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// labelMap builds a width x 1 instance index map from raw labels.
func labelMap(labels ...uint32) *renderer.Array {
	m := renderer.NewLabelArray(len(labels), 1)
	copy(m.Labels, labels)
	return m
}

func TestRemap_SingleObjectIsStableAcrossFrames(t *testing.T) {
	p := NewProcessor(WithWorkers(2))
	maps := []*renderer.Array{labelMap(0, 7, 7, 0), labelMap(7, 0, 0, 0)}

	out, err := p.Remap(maps, []int{1, 2}, map[string]uint32{"obj": 7}, []string{"obj"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []uint32{0, 1, 1, 0}, out[0].Labels)
	assert.Equal(t, []uint32{1, 0, 0, 0}, out[1].Labels)
	assert.Equal(t, []uint32{0, 7, 7, 0}, maps[0].Labels, "inputs are not modified")
}

func TestRemap_SecondObjectAddedLater(t *testing.T) {
	p := NewProcessor()
	maps := []*renderer.Array{labelMap(7, 0), labelMap(7, 0), labelMap(7, 12)}
	labels := map[string]uint32{"first": 7, "second": 12}

	out, err := p.Remap(maps, []int{1, 2, 3}, labels, []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 0}, out[0].Labels)
	assert.Equal(t, []uint32{1, 0}, out[1].Labels)
	assert.Equal(t, []uint32{1, 2}, out[2].Labels)
}

func TestRemap_StableWhenRawLabelsDifferBetweenRuns(t *testing.T) {
	p := NewProcessor()
	order := []string{"b", "a"}

	runA, err := p.Remap(
		[]*renderer.Array{labelMap(7, 12, 0)},
		[]int{1},
		map[string]uint32{"a": 7, "b": 12},
		order)
	require.NoError(t, err)

	runB, err := p.Remap(
		[]*renderer.Array{labelMap(40, 3, 0)},
		[]int{1},
		map[string]uint32{"a": 40, "b": 3},
		order)
	require.NoError(t, err)

	assert.Equal(t, []uint32{2, 1, 0}, runA[0].Labels)
	assert.Equal(t, runA[0].Labels, runB[0].Labels)
}

func TestRemap_KnownObjectOutsideOrderingIsBackground(t *testing.T) {
	p := NewProcessor()
	out, err := p.Remap([]*renderer.Array{labelMap(5, 9)}, []int{1},
		map[string]uint32{"dome": 5, "obj": 9}, []string{"obj"})
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1}, out[0].Labels)
}

func TestRemap_UnmappedLabel(t *testing.T) {
	p := NewProcessor()
	_, err := p.Remap(
		[]*renderer.Array{labelMap(7), labelMap(7, 3)},
		[]int{4, 5},
		map[string]uint32{"obj": 7},
		[]string{"obj"})

	var unmapped *UnmappedLabelError
	require.ErrorAs(t, err, &unmapped)
	assert.Equal(t, 5, unmapped.Frame)
	assert.Equal(t, uint32(3), unmapped.Label)
	assert.ErrorIs(t, err, ErrUnmappedLabel)
}

func TestRemap_InvalidInputs(t *testing.T) {
	p := NewProcessor()
	one := []*renderer.Array{labelMap(1)}

	_, err := p.Remap(one, []int{1, 2}, nil, nil)
	assert.ErrorIs(t, err, ErrShape)

	_, err = p.Remap([]*renderer.Array{renderer.NewFloatArray(1, 1, 1)}, []int{1}, nil, nil)
	assert.ErrorIs(t, err, ErrShape)

	_, err = p.Remap(one, []int{1}, map[string]uint32{"a": 1, "b": 1}, nil)
	assert.ErrorIs(t, err, ErrShape)

	_, err = p.Remap(one, []int{1}, map[string]uint32{"a": 1}, []string{"a", "a"})
	assert.ErrorIs(t, err, ErrShape)
}

func TestComputeVisibility_FollowsPixelCoverage(t *testing.T) {
	p := NewProcessor(WithWorkers(3))
	maps := []*renderer.Array{
		labelMap(7, 7, 0, 12),
		labelMap(0, 0, 0, 12),
		labelMap(7, 0, 0, 0),
	}
	labels := map[string]uint32{"a": 7, "b": 12, "hidden": 99}

	v, err := p.ComputeVisibility(maps, []int{10, 11, 12}, labels)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 0, 1}, v.Counts["a"])
	assert.Equal(t, []int{1, 1, 0}, v.Counts["b"])
	assert.Equal(t, []int{0, 0, 0}, v.Counts["hidden"])
	for _, id := range v.Objects() {
		for i := range v.Frames {
			assert.Equal(t, v.Counts[id][i] > 0, v.Visible(id, i), "%s frame %d", id, v.Frames[i])
		}
	}
	assert.Equal(t, []int{10, 12}, v.VisibleFrames("a"))
	assert.Empty(t, v.VisibleFrames("hidden"), "an always-occluded object is reported, not rejected")
}

func TestComputeVisibility_IgnoresUnknownLabels(t *testing.T) {
	p := NewProcessor()
	v, err := p.ComputeVisibility([]*renderer.Array{labelMap(3, 3)}, []int{1}, map[string]uint32{"a": 7})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, v.Counts["a"])
}

func TestProcessor_CloseStopsWorkers(t *testing.T) {
	before := runtime.NumGoroutine()
	p := NewProcessor(WithWorkers(1))
	_, err := p.ComputeVisibility([]*renderer.Array{labelMap(7, 0)}, []int{1}, map[string]uint32{"obj": 7})
	require.NoError(t, err)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Eventually(t, func() bool { return runtime.NumGoroutine() <= before },
		2*time.Second, 10*time.Millisecond, "pool goroutines exit after Close")

	_, err = p.ComputeVisibility([]*renderer.Array{labelMap(7, 0)}, []int{1}, map[string]uint32{"obj": 7})
	assert.ErrorIs(t, err, ErrClosed, "a failing frame pass surfaces from ComputeVisibility")
	_, err = p.Remap([]*renderer.Array{labelMap(7, 0)}, []int{1}, map[string]uint32{"obj": 7}, []string{"obj"})
	assert.ErrorIs(t, err, ErrClosed)
}
