package renderer

import (
	"slices"
)

// Array is one channel of one frame: a Height x Width x Depth grid stored row-major.
// Float channels use Data; label channels use Labels with Depth 1.
type Array struct {
	Width  int
	Height int
	Depth  int
	Data   []float32
	Labels []uint32
}

// NewFloatArray allocates a zeroed float array.
//
// Parameters:
//   - width, height: the grid size
//   - depth: the number of components per pixel
//
// Returns:
//   - *Array: the new array
func NewFloatArray(width, height, depth int) *Array {
	return &Array{Width: width, Height: height, Depth: depth, Data: make([]float32, width*height*depth)}
}

// NewLabelArray allocates a zeroed (all background) label array.
//
// Parameters:
//   - width, height: the grid size
//
// Returns:
//   - *Array: the new array
func NewLabelArray(width, height int) *Array {
	return &Array{Width: width, Height: height, Depth: 1, Labels: make([]uint32, width*height)}
}

// IsLabel reports whether the array stores labels.
func (a *Array) IsLabel() bool {
	return a.Labels != nil
}

// At returns component c of pixel (x, y).
func (a *Array) At(x, y, c int) float32 {
	return a.Data[(y*a.Width+x)*a.Depth+c]
}

// Set writes component c of pixel (x, y).
func (a *Array) Set(x, y, c int, v float32) {
	a.Data[(y*a.Width+x)*a.Depth+c] = v
}

// LabelAt returns the label of pixel (x, y).
func (a *Array) LabelAt(x, y int) uint32 {
	return a.Labels[y*a.Width+x]
}

// SetLabel writes the label of pixel (x, y).
func (a *Array) SetLabel(x, y int, v uint32) {
	a.Labels[y*a.Width+x] = v
}

// Fill sets every pixel of a float array to the given components.
func (a *Array) Fill(v ...float32) {
	for i := 0; i < len(a.Data); i += a.Depth {
		copy(a.Data[i:i+a.Depth], v)
	}
}

// Clone returns a deep copy.
func (a *Array) Clone() *Array {
	return &Array{
		Width:  a.Width,
		Height: a.Height,
		Depth:  a.Depth,
		Data:   slices.Clone(a.Data),
		Labels: slices.Clone(a.Labels),
	}
}

// SameShape reports whether two arrays have identical dimensions.
func (a *Array) SameShape(o *Array) bool {
	return a.Width == o.Width && a.Height == o.Height && a.Depth == o.Depth
}

// UniqueLabels returns the distinct labels present, in increasing order. The background label 0
// is included when any pixel is uncovered.
func (a *Array) UniqueLabels() []uint32 {
	seen := make(map[uint32]struct{})
	for _, l := range a.Labels {
		seen[l] = struct{}{}
	}
	out := make([]uint32, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}
