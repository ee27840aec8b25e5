// Package renderertest provides an in-memory renderer.Backend that records every call, for
// testing code that drives a renderer.
package renderertest

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-synth/engine/entity"
	"github.com/Carmen-Shannon/oxy-synth/engine/renderer"
)

// Node is the fake linked representation of one entity.
type Node struct {
	ID     string
	Kind   entity.Kind
	Label  uint32
	Update renderer.Update
	Synced bool
}

// Backend is a recording renderer.Backend. Exported fields configure failures and may be
// read after the calls under test have returned.
type Backend struct {
	mu sync.Mutex

	// LabelOffset is added to the handle to form an object's raw label.
	LabelOffset uint32

	// FailMaterialize fails Materialize for the named entities.
	FailMaterialize map[string]error

	// FailApply fails Apply for the named entities.
	FailApply map[string]error

	// FailEvaluate fails Evaluate at the given frames.
	FailEvaluate map[int]error

	// OmitChannel drops a channel from every evaluation result.
	OmitChannel renderer.Channel

	// OnEvaluate runs at the start of every evaluation.
	OnEvaluate func(frame int)

	// Visible reports whether an object covers its pixel at a frame. Object n (in handle order)
	// covers pixel (n mod width, n / width) of the segmentation array. Nil means nothing is visible.
	Visible func(id string, frame int) bool

	Nodes     map[renderer.Handle]*Node
	Applied   []string
	Evaluated []int
	Released  []renderer.Handle
	SavedTo   []string
	Closed    bool

	next renderer.Handle
}

var _ renderer.Backend = &Backend{}

// NewBackend returns an empty fake backend.
func NewBackend() *Backend {
	return &Backend{
		LabelOffset: 100,
		Nodes:       make(map[renderer.Handle]*Node),
	}
}

func (b *Backend) Materialize(e entity.Entity) (renderer.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.FailMaterialize[e.ID()]; err != nil {
		return 0, err
	}
	b.next++
	n := &Node{ID: e.ID(), Kind: e.Kind()}
	if n.Kind == entity.KindObject {
		n.Label = b.LabelOffset + uint32(b.next)
	}
	b.Nodes[b.next] = n
	return b.next, nil
}

func (b *Backend) Apply(h renderer.Handle, u renderer.Update) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.Nodes[h]
	if !ok {
		return fmt.Errorf("fake backend: unknown %s", h)
	}
	if err := b.FailApply[n.ID]; err != nil {
		return err
	}
	n.Update = u
	n.Synced = true
	b.Applied = append(b.Applied, n.ID)
	return nil
}

func (b *Backend) Evaluate(ctx context.Context, req renderer.FrameRequest) (map[renderer.Channel]*renderer.Array, error) {
	if b.OnEvaluate != nil {
		b.OnEvaluate(req.Frame)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.FailEvaluate[req.Frame]; err != nil {
		return nil, err
	}
	if _, ok := b.Nodes[req.Camera]; !ok {
		return nil, fmt.Errorf("fake backend: unknown camera %s", req.Camera)
	}
	b.Evaluated = append(b.Evaluated, req.Frame)

	w, h := req.Resolution.Width, req.Resolution.Height
	out := make(map[renderer.Channel]*renderer.Array, len(req.Channels))
	for _, c := range req.Channels {
		if c == b.OmitChannel {
			continue
		}
		if c.IsLabel() {
			out[c] = b.segmentation(req.Frame, w, h)
			continue
		}
		arr := renderer.NewFloatArray(w, h, c.Components())
		fill := make([]float32, c.Components())
		for i := range fill {
			fill[i] = float32(req.Frame)
		}
		arr.Fill(fill...)
		out[c] = arr
	}
	return out, nil
}

// segmentation paints each visible object's label on its own pixel. Caller holds the lock.
func (b *Backend) segmentation(frame, w, h int) *renderer.Array {
	arr := renderer.NewLabelArray(w, h)
	if b.Visible == nil {
		return arr
	}
	handles := make([]renderer.Handle, 0, len(b.Nodes))
	for hd := range b.Nodes {
		handles = append(handles, hd)
	}
	slices.Sort(handles)
	i := 0
	for _, hd := range handles {
		n := b.Nodes[hd]
		if n.Kind != entity.KindObject {
			continue
		}
		if i < w*h && b.Visible(n.ID, frame) {
			arr.SetLabel(i%w, i/w, n.Label)
		}
		i++
	}
	return arr
}

func (b *Backend) Label(h renderer.Handle) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.Nodes[h]
	if !ok || n.Kind != entity.KindObject {
		return 0, fmt.Errorf("fake backend: %s has no label", h)
	}
	return n.Label, nil
}

func (b *Backend) SaveState(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.SavedTo = append(b.SavedTo, path)
	return nil
}

func (b *Backend) Release(h renderer.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.Nodes[h]; !ok {
		return fmt.Errorf("fake backend: unknown %s", h)
	}
	delete(b.Nodes, h)
	b.Released = append(b.Released, h)
	return nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Closed = true
	return nil
}

// Node returns the live node linked to an entity id, or nil.
func (b *Backend) Node(id string) *Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, n := range b.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}
