package postprocess

import (
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-synth/engine/renderer"
)

func (p *processor) Remap(segs []*renderer.Array, frames []int, labels map[string]uint32, order []string) ([]*renderer.Array, error) {
	if err := checkShape(segs, frames); err != nil {
		return nil, err
	}
	owners, err := reverseLabels(labels)
	if err != nil {
		return nil, err
	}

	index := make(map[string]uint32, len(order))
	for i, id := range order {
		if _, dup := index[id]; dup {
			return nil, fmt.Errorf("%w: object %q appears twice in the ordering", ErrShape, id)
		}
		index[id] = uint32(i + 1)
	}
	// raw label to output index; known objects outside the ordering fold into background
	lookup := make(map[uint32]uint32, len(owners)+1)
	lookup[0] = 0
	for l, id := range owners {
		lookup[l] = index[id]
	}

	out := make([]*renderer.Array, len(segs))
	err = p.forEachFrame(len(segs), func(i int) error {
		src := segs[i]
		dst := renderer.NewLabelArray(src.Width, src.Height)
		for k, l := range src.Labels {
			v, ok := lookup[l]
			if !ok {
				return &UnmappedLabelError{Frame: frames[i], Label: l}
			}
			dst.Labels[k] = v
		}
		out[i] = dst
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.logger.Debug("segmentation remapped", slog.Int("frames", len(segs)), slog.Int("instances", len(order)))
	return out, nil
}
