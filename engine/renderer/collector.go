package renderer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-synth/engine/keyframe"
	"github.com/Carmen-Shannon/oxy-synth/engine/profiler"
	"github.com/Carmen-Shannon/oxy-synth/engine/scene"
)

type collector struct {
	scene   scene.Scene
	store   keyframe.Store
	adapter Adapter

	transparent bool

	profiler *profiler.Profiler
	logger   *slog.Logger
}

// Collector drives frame evaluation over the adapter's backend and gathers the output arrays.
// Every evaluation runs inside the scene's render session: a session the caller already holds is
// reused, otherwise the collector holds one for the duration of the call.
type Collector interface {
	// RenderFrame syncs every attached entity and evaluates a single frame.
	//
	// Parameters:
	//   - ctx: cancels the evaluation
	//   - frame: the frame index
	//   - channels: the channels to produce; DefaultChannels when empty
	//
	// Returns:
	//   - map[Channel]*Array: one array per channel
	//   - error: *RenderError wrapping the cause
	RenderFrame(ctx context.Context, frame int, channels []Channel) (map[Channel]*Array, error)

	// RenderRange evaluates frames start..end inclusive in strictly increasing order. Every attached
	// entity is synced before the first frame; entities with keyframes spanning a later frame are
	// synced again before it. On failure or cancellation the frames already produced are returned
	// together with the error.
	//
	// Parameters:
	//   - ctx: cancels the remaining range
	//   - start, end: the inclusive frame range
	//   - channels: the channels to produce; DefaultChannels when empty
	//
	// Returns:
	//   - *FrameStack: the produced frames, dense from start
	//   - error: *RenderError naming the frame that failed
	RenderRange(ctx context.Context, start, end int, channels []Channel) (*FrameStack, error)

	// RenderScene evaluates the scene's configured frame range.
	//
	// Parameters:
	//   - ctx: cancels the remaining range
	//   - channels: the channels to produce; DefaultChannels when empty
	//
	// Returns:
	//   - *FrameStack: the produced frames
	//   - error: *RenderError naming the frame that failed
	RenderScene(ctx context.Context, channels []Channel) (*FrameStack, error)
}

var _ Collector = &collector{}

// NewCollector creates a collector for a scene whose entities are linked through adapter.
//
// Parameters:
//   - sc: the scene (must not be nil)
//   - store: the keyframe store (must not be nil)
//   - adapter: the render adapter (must not be nil)
//   - options: functional options to configure the collector
//
// Returns:
//   - Collector: the new collector
func NewCollector(sc scene.Scene, store keyframe.Store, adapter Adapter, options ...CollectorBuilderOption) Collector {
	if sc == nil || store == nil || adapter == nil {
		panic("renderer: NewCollector requires a scene, a keyframe store and an adapter")
	}
	c := &collector{
		scene:   sc,
		store:   store,
		adapter: adapter,
		logger:  slog.Default(),
	}
	for _, option := range options {
		option(c)
	}
	if c.profiler == nil {
		c.profiler = profiler.NewProfiler(profiler.WithLogger(c.logger))
	}
	return c
}

func (c *collector) RenderFrame(ctx context.Context, frame int, channels []Channel) (map[Channel]*Array, error) {
	channels = defaultChannels(channels)
	release, err := c.hold()
	if err != nil {
		return nil, &RenderError{Frame: frame, Err: err}
	}
	defer release()

	if err := c.syncAttached(frame); err != nil {
		return nil, &RenderError{Frame: frame, Err: err}
	}
	out, err := c.evaluate(ctx, frame, channels)
	if err != nil {
		return nil, &RenderError{Frame: frame, Err: err}
	}
	c.profiler.Tick(frame)
	return out, nil
}

func (c *collector) RenderRange(ctx context.Context, start, end int, channels []Channel) (*FrameStack, error) {
	channels = defaultChannels(channels)
	stack := NewFrameStack(start, channels)
	if start > end {
		return stack, &RenderError{Frame: start, Err: fmt.Errorf("empty frame range [%d, %d]", start, end)}
	}
	release, err := c.hold()
	if err != nil {
		return stack, &RenderError{Frame: start, Err: err}
	}
	defer release()

	c.logger.Info("rendering frame range",
		slog.Int("frame_start", start),
		slog.Int("frame_end", end),
		slog.Any("channels", channels))

	if err := c.syncAttached(start); err != nil {
		return stack, &RenderError{Frame: start, Err: err}
	}
	for frame := start; frame <= end; frame++ {
		if err := ctx.Err(); err != nil {
			c.logger.Warn("render cancelled", slog.Int("frame", frame), slog.Int("produced", stack.Len()))
			return stack, &RenderError{Frame: frame, Err: err}
		}
		if frame != start {
			if err := c.syncRelevant(frame); err != nil {
				return stack, &RenderError{Frame: frame, Err: err}
			}
		}
		out, err := c.evaluate(ctx, frame, channels)
		if err != nil {
			return stack, &RenderError{Frame: frame, Err: err}
		}
		if err := stack.Append(frame, out); err != nil {
			return stack, &RenderError{Frame: frame, Err: err}
		}
		c.profiler.Tick(frame)
	}
	c.profiler.Summary()
	return stack, nil
}

func (c *collector) RenderScene(ctx context.Context, channels []Channel) (*FrameStack, error) {
	start, end := c.scene.FrameRange()
	return c.RenderRange(ctx, start, end, channels)
}

// hold acquires the scene's render session unless one is already held.
func (c *collector) hold() (func(), error) {
	if c.scene.Guard().Active() {
		return func() {}, nil
	}
	token, err := c.scene.BeginSession()
	if err != nil {
		return nil, err
	}
	return token.Release, nil
}

// syncAttached pushes every attached entity's state.
func (c *collector) syncAttached(frame int) error {
	for _, link := range c.adapter.Links() {
		if err := c.syncOne(link.EntityID, frame); err != nil {
			return err
		}
	}
	return nil
}

// syncRelevant pushes the state of attached entities whose keyframes span frame.
func (c *collector) syncRelevant(frame int) error {
	for _, id := range c.store.Relevant(frame) {
		if _, ok := c.adapter.Link(id); !ok {
			continue
		}
		if err := c.syncOne(id, frame); err != nil {
			return err
		}
	}
	return nil
}

func (c *collector) syncOne(id string, frame int) error {
	e, err := c.scene.Get(id)
	if err != nil {
		return &SyncError{EntityID: id, Frame: frame, Err: err}
	}
	return c.adapter.Sync(e, frame)
}

// evaluate renders one frame and checks that the backend honoured the request.
func (c *collector) evaluate(ctx context.Context, frame int, channels []Channel) (map[Channel]*Array, error) {
	cam := c.scene.Camera()
	if cam == nil {
		return nil, ErrNoCamera
	}
	link, ok := c.adapter.Link(cam.ID())
	if !ok {
		return nil, fmt.Errorf("camera %q: %w", cam.ID(), ErrNoCamera)
	}

	res := c.scene.Resolution()
	out, err := c.adapter.Backend().Evaluate(ctx, FrameRequest{
		Frame:       frame,
		Camera:      link.Handle,
		Resolution:  res,
		Ambient:     c.scene.Ambient(),
		Transparent: c.transparent,
		Channels:    channels,
	})
	if err != nil {
		return nil, err
	}
	for _, ch := range channels {
		arr := out[ch]
		if arr == nil {
			return nil, fmt.Errorf("backend produced no %q array", string(ch))
		}
		if arr.Width != res.Width || arr.Height != res.Height {
			return nil, fmt.Errorf("backend produced %dx%d %q array, want %s", arr.Width, arr.Height, string(ch), res)
		}
	}
	return out, nil
}

func defaultChannels(channels []Channel) []Channel {
	if len(channels) == 0 {
		return DefaultChannels
	}
	return channels
}
