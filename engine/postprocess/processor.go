// Package postprocess turns raw renderer output into the run's output contract: per-object
// visibility, segmentation maps with stable dense instance indices, and structured metadata.
package postprocess

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-synth/engine/renderer"
)

type processor struct {
	mu      *sync.Mutex
	pool    worker.DynamicWorkerPool
	workers int
	closed  bool
	logger  *slog.Logger
}

// Processor runs the per-frame postprocessing passes. Frames are independent, so each pass fans
// out over a worker pool; results never depend on scheduling.
type Processor interface {
	// ComputeVisibility counts, per frame and per object, the pixels carrying the object's raw label.
	// An object is visible in a frame iff its count is nonzero. The inputs are not modified.
	//
	// Parameters:
	//   - maps: one instance index map per frame
	//   - frames: the frame index of each map
	//   - labels: object id to raw label
	//
	// Returns:
	//   - Visibility: the per-object pixel counts
	//   - error: ErrShape if maps and frames disagree or a map carries no labels
	ComputeVisibility(maps []*renderer.Array, frames []int, labels map[string]uint32) (Visibility, error)

	// Remap renumbers raw labels into the stable output range. The object at order[i] becomes
	// index i+1 in every frame, background stays 0, and known objects absent from order become 0.
	//
	// Parameters:
	//   - maps: one instance index map per frame
	//   - frames: the frame index of each map
	//   - labels: object id to raw label for this run
	//   - order: the caller's object ordering
	//
	// Returns:
	//   - []*renderer.Array: new remapped maps, one per input map
	//   - error: *UnmappedLabelError for a label no object owns, or ErrShape
	Remap(maps []*renderer.Array, frames []int, labels map[string]uint32, order []string) ([]*renderer.Array, error)

	// Close stops the worker pool. Passes run after Close fail with ErrClosed. Safe to call
	// multiple times.
	//
	// Returns:
	//   - error: always nil
	Close() error
}

var _ Processor = &processor{}

// NewProcessor creates a postprocessor.
//
// Parameters:
//   - options: functional options to configure the processor
//
// Returns:
//   - Processor: the new processor
func NewProcessor(options ...ProcessorBuilderOption) Processor {
	p := &processor{
		mu:      &sync.Mutex{},
		workers: runtime.NumCPU(),
		logger:  slog.Default(),
	}
	for _, option := range options {
		option(p)
	}
	p.workers = max(1, p.workers)
	p.pool = worker.NewDynamicWorkerPool(p.workers, 256, 1*time.Second)
	return p
}

func (p *processor) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.pool.Stop()
	return nil
}

// forEachFrame runs fn for every frame index on the pool and waits for all of them. The error of
// the lowest failing index is returned.
func (p *processor) forEachFrame(n int, fn func(i int) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		p.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				errs[i] = fn(i)
				return nil, errs[i]
			},
		})
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func checkShape(maps []*renderer.Array, frames []int) error {
	if len(maps) != len(frames) {
		return fmt.Errorf("%w: %d maps for %d frames", ErrShape, len(maps), len(frames))
	}
	for i, m := range maps {
		if m == nil || !m.IsLabel() {
			return fmt.Errorf("%w: frame %d is not an instance index map", ErrShape, frames[i])
		}
	}
	return nil
}

// reverseLabels inverts an id to label association. Two objects sharing a label is an error.
func reverseLabels(labels map[string]uint32) (map[uint32]string, error) {
	out := make(map[uint32]string, len(labels))
	for id, l := range labels {
		if l == 0 {
			return nil, fmt.Errorf("%w: object %q carries the background label", ErrShape, id)
		}
		if other, dup := out[l]; dup {
			return nil, fmt.Errorf("%w: objects %q and %q share raw label %d", ErrShape, min(id, other), max(id, other), l)
		}
		out[l] = id
	}
	return out, nil
}
