package postprocess

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/Carmen-Shannon/oxy-synth/engine/renderer"
)

// Visibility is the per-object pixel coverage of a rendered range.
type Visibility struct {
	// Frames are the frame indices, aligned with every slice in Counts.
	Frames []int

	// Counts maps an object id to its pixel count in each frame.
	Counts map[string][]int
}

// Visible reports whether the object covers at least one pixel in the i-th frame.
func (v Visibility) Visible(id string, i int) bool {
	counts := v.Counts[id]
	return i < len(counts) && counts[i] > 0
}

// VisibleFrames returns the frame indices in which the object is visible.
func (v Visibility) VisibleFrames(id string) []int {
	var out []int
	for i, c := range v.Counts[id] {
		if c > 0 {
			out = append(out, v.Frames[i])
		}
	}
	return out
}

// Objects returns the tracked object ids in lexical order.
func (v Visibility) Objects() []string {
	return slices.Sorted(maps.Keys(v.Counts))
}

func (p *processor) ComputeVisibility(segs []*renderer.Array, frames []int, labels map[string]uint32) (Visibility, error) {
	if err := checkShape(segs, frames); err != nil {
		return Visibility{}, err
	}
	owners, err := reverseLabels(labels)
	if err != nil {
		return Visibility{}, err
	}

	perFrame := make([]map[string]int, len(segs))
	if err := p.forEachFrame(len(segs), func(i int) error {
		counts := make(map[string]int)
		for _, l := range segs[i].Labels {
			if id, ok := owners[l]; ok {
				counts[id]++
			}
		}
		perFrame[i] = counts
		return nil
	}); err != nil {
		return Visibility{}, err
	}

	v := Visibility{
		Frames: slices.Clone(frames),
		Counts: make(map[string][]int, len(labels)),
	}
	for id := range labels {
		series := make([]int, len(frames))
		for i := range perFrame {
			series[i] = perFrame[i][id]
		}
		v.Counts[id] = series
	}
	for _, id := range v.Objects() {
		if len(v.VisibleFrames(id)) == 0 {
			p.logger.Info("object never visible", slog.String("id", id))
		}
	}
	return v, nil
}
