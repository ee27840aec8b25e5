// Package engine runs the synthetic frame pipeline: it links a scene to a renderer backend,
// evaluates the frame range, postprocesses the instance maps and writes the artifacts.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-synth/engine/keyframe"
	"github.com/Carmen-Shannon/oxy-synth/engine/postprocess"
	"github.com/Carmen-Shannon/oxy-synth/engine/profiler"
	"github.com/Carmen-Shannon/oxy-synth/engine/renderer"
	"github.com/Carmen-Shannon/oxy-synth/engine/scene"
	"github.com/Carmen-Shannon/oxy-synth/engine/writer"
)

// MetadataFile is the name of the metadata record written next to the frame artifacts.
const MetadataFile = "metadata.json"

// Result is everything a run produced.
type Result struct {
	// Stack holds the raw evaluated frames. On a failed or cancelled render it holds the frames
	// produced before the failure.
	Stack *renderer.FrameStack

	// Segmentation holds the remapped instance index maps, aligned with Stack.Frames.
	Segmentation []*renderer.Array

	// Visibility is the per-object pixel coverage of the rendered range.
	Visibility postprocess.Visibility

	// Record is the run's metadata.
	Record postprocess.Record

	// Files lists the artifacts written per channel. Empty when no output directory is set.
	Files map[renderer.Channel]writer.Result

	// Stats summarises render throughput.
	Stats profiler.Stats
}

// engine implements the Engine interface.
type engine struct {
	mu *sync.Mutex

	scene     scene.Scene
	store     keyframe.Store
	backend   renderer.Backend
	adapter   renderer.Adapter
	processor postprocess.Processor
	writer    writer.Writer

	// ownsProcessor is set when the engine built the processor and must close it.
	ownsProcessor bool

	profilingEnabled bool

	channels    []renderer.Channel
	instances   []string
	seed        uint64
	transparent bool

	outputDir string
	statePath string

	closed bool
	logger *slog.Logger
}

// Engine is the main entry point of the pipeline. It owns the renderer backend and the adapter
// linking the scene to it.
type Engine interface {
	// Scene returns the scene the engine renders.
	//
	// Returns:
	//   - scene.Scene: the scene
	Scene() scene.Scene

	// Store returns the keyframe store animating the scene.
	//
	// Returns:
	//   - keyframe.Store: the store
	Store() keyframe.Store

	// Adapter returns the render adapter linking the scene to the backend.
	//
	// Returns:
	//   - renderer.Adapter: the adapter
	Adapter() renderer.Adapter

	// EnableProfiler enables render throughput output to the log.
	EnableProfiler()

	// DisableProfiler disables render throughput output.
	DisableProfiler()

	// Run renders the scene's frame range and postprocesses it. The scene is frozen for the
	// duration of the run and every entity is linked to the backend; all links are released
	// before Run returns. When an output directory is configured the channel artifacts and the
	// metadata record are written to it.
	//
	// Parameters:
	//   - ctx: cancels the run
	//
	// Returns:
	//   - Result: the produced frames, maps and metadata; partial on a render failure
	//   - error: the first failure of any stage
	Run(ctx context.Context) (Result, error)

	// RenderStill renders a single frame without postprocessing.
	//
	// Parameters:
	//   - ctx: cancels the evaluation
	//   - frame: the frame to evaluate
	//
	// Returns:
	//   - map[renderer.Channel]*renderer.Array: one raw array per configured channel
	//   - error: error if the scene is busy or the frame cannot be rendered
	RenderStill(ctx context.Context, frame int) (map[renderer.Channel]*renderer.Array, error)

	// Close releases the renderer backend and the processor the engine built. Safe to call multiple times.
	//
	// Returns:
	//   - error: error if teardown fails
	Close() error
}

var _ Engine = &engine{}

// NewEngine creates an engine for a scene. Without WithBackend the reference raster backend is
// used, seeded from WithSeed; without WithStore a fresh keyframe store bound to the scene is used.
//
// Parameters:
//   - sc: the scene to render (must not be nil)
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(sc scene.Scene, options ...EngineBuilderOption) Engine {
	if sc == nil {
		panic("engine: NewEngine requires a non-nil Scene")
	}
	e := &engine{
		mu:       &sync.Mutex{},
		scene:    sc,
		channels: slices.Clone(renderer.DefaultChannels),
		logger:   slog.Default(),
	}
	for _, opt := range options {
		opt(e)
	}

	if e.store == nil {
		e.store = keyframe.NewStore(sc, keyframe.WithLogger(e.logger))
	}
	if e.backend == nil {
		e.backend = renderer.NewRasterBackend(
			renderer.WithLabelSeed(e.seed),
			renderer.WithRasterLogger(e.logger),
		)
	}
	if e.processor == nil {
		e.processor = postprocess.NewProcessor(postprocess.WithLogger(e.logger))
		e.ownsProcessor = true
	}
	if e.writer == nil {
		e.writer = writer.NewWriter(writer.WithLogger(e.logger))
	}
	e.adapter = renderer.NewAdapter(e.backend, e.store, renderer.WithAdapterLogger(e.logger))
	e.adapter.Watch(sc)
	return e
}

func (e *engine) Scene() scene.Scene {
	return e.scene
}

func (e *engine) Store() keyframe.Store {
	return e.store
}

func (e *engine) Adapter() renderer.Adapter {
	return e.adapter
}

func (e *engine) EnableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = false
}

func (e *engine) Run(ctx context.Context) (res Result, err error) {
	release, err := e.begin()
	if err != nil {
		return Result{}, err
	}
	defer func() {
		err = errors.Join(err, release())
	}()

	start, end := e.scene.FrameRange()
	e.logger.Info("render started",
		slog.String("scene", e.scene.Name()),
		slog.Int("frame_start", start),
		slog.Int("frame_end", end),
		slog.String("resolution", e.scene.Resolution().String()))

	if e.statePath != "" {
		if err := os.MkdirAll(filepath.Dir(e.statePath), 0o755); err != nil {
			return Result{}, fmt.Errorf("create state dir: %w", err)
		}
		if err := e.backend.SaveState(e.statePath); err != nil {
			return Result{}, fmt.Errorf("save renderer state: %w", err)
		}
	}

	prof := e.newProfiler()
	collector := renderer.NewCollector(e.scene, e.store, e.adapter,
		renderer.WithBackgroundTransparency(e.transparent),
		renderer.WithProfiler(prof),
		renderer.WithCollectorLogger(e.logger),
	)
	stack, err := collector.RenderScene(ctx, e.renderChannels())
	res.Stack = stack
	res.Stats = prof.Stats()
	if err != nil {
		return res, err
	}

	if err := e.postprocess(&res); err != nil {
		return res, err
	}
	if err := e.write(ctx, &res); err != nil {
		return res, err
	}

	e.logger.Info("render finished",
		slog.String("scene", e.scene.Name()),
		slog.Int("frames", stack.Len()),
		slog.Int("instances", len(res.Record.Instances)))
	return res, nil
}

func (e *engine) RenderStill(ctx context.Context, frame int) (out map[renderer.Channel]*renderer.Array, err error) {
	release, err := e.begin()
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, release())
	}()

	collector := renderer.NewCollector(e.scene, e.store, e.adapter,
		renderer.WithBackgroundTransparency(e.transparent),
		renderer.WithProfiler(e.newProfiler()),
		renderer.WithCollectorLogger(e.logger),
	)
	return collector.RenderFrame(ctx, frame, e.channels)
}

func (e *engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	err := errors.Join(e.adapter.DetachAll(), e.backend.Close())
	if e.ownsProcessor {
		err = errors.Join(err, e.processor.Close())
	}
	return err
}

// begin freezes the scene and links every entity. The returned function detaches every entity
// and ends the session; it must run on every exit path.
func (e *engine) begin() (func() error, error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return nil, errors.New("engine: closed")
	}

	token, err := e.scene.BeginSession()
	if err != nil {
		return nil, fmt.Errorf("begin render session: %w", err)
	}
	release := func() error {
		defer token.Release()
		return e.adapter.DetachAll()
	}

	for _, ent := range e.scene.Entities() {
		if _, err := e.adapter.Attach(ent, false); err != nil {
			return nil, errors.Join(fmt.Errorf("attach %q: %w", ent.ID(), err), release())
		}
	}
	return release, nil
}

// postprocess computes visibility, remaps the instance maps into the stable index range and
// assembles the metadata record.
func (e *engine) postprocess(res *Result) error {
	labels, err := e.adapter.Labels()
	if err != nil {
		return fmt.Errorf("collect labels: %w", err)
	}
	order := e.instanceOrder()
	segs := res.Stack.Channels[renderer.ChannelSegmentation]

	vis, err := e.processor.ComputeVisibility(segs, res.Stack.Frames, labels)
	if err != nil {
		return fmt.Errorf("compute visibility: %w", err)
	}
	remapped, err := e.processor.Remap(segs, res.Stack.Frames, labels, order)
	if err != nil {
		return fmt.Errorf("remap segmentation: %w", err)
	}
	res.Visibility = vis
	res.Segmentation = remapped

	meta, err := postprocess.NewSceneMetadata(e.scene, e.seed, len(order))
	if err != nil {
		return err
	}
	cam, err := postprocess.CameraTrack(e.scene, e.store)
	if err != nil {
		return err
	}
	instances, err := postprocess.InstanceTrack(e.scene, e.store, order, vis, remapped)
	if err != nil {
		return err
	}
	res.Record = postprocess.Record{Metadata: meta, Camera: cam, Instances: instances}
	return nil
}

// write encodes the requested channels, with segmentation replaced by the remapped maps, and the
// metadata record.
func (e *engine) write(ctx context.Context, res *Result) error {
	if e.outputDir == "" {
		return nil
	}
	out := &renderer.FrameStack{
		FrameStart: res.Stack.FrameStart,
		Frames:     res.Stack.Frames,
		Channels:   maps.Clone(res.Stack.Channels),
	}
	if slices.Contains(e.channels, renderer.ChannelSegmentation) {
		out.Channels[renderer.ChannelSegmentation] = res.Segmentation
	} else {
		delete(out.Channels, renderer.ChannelSegmentation)
	}

	files, err := e.writer.WriteStack(ctx, out, e.outputDir)
	if err != nil {
		return fmt.Errorf("write frames: %w", err)
	}
	res.Files = files
	if err := e.writer.WriteMetadata(res.Record, filepath.Join(e.outputDir, MetadataFile)); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// renderChannels returns the configured channels plus segmentation, which postprocessing needs.
func (e *engine) renderChannels() []renderer.Channel {
	if slices.Contains(e.channels, renderer.ChannelSegmentation) {
		return e.channels
	}
	return append(slices.Clone(e.channels), renderer.ChannelSegmentation)
}

// instanceOrder returns the configured instance ordering, or every foreground object in insertion order.
func (e *engine) instanceOrder() []string {
	if e.instances != nil {
		return e.instances
	}
	var order []string
	for _, obj := range e.scene.Objects() {
		if !obj.Background() {
			order = append(order, obj.ID())
		}
	}
	return order
}

// newProfiler returns a profiler reporting to the engine logger, or a silent one when profiling
// is disabled.
func (e *engine) newProfiler() *profiler.Profiler {
	e.mu.Lock()
	enabled := e.profilingEnabled
	e.mu.Unlock()
	if !enabled {
		return profiler.NewProfiler(profiler.WithLogger(slog.New(slog.DiscardHandler)))
	}
	return profiler.NewProfiler(profiler.WithLogger(e.logger))
}
