package renderer

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"math/rand/v2"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-synth/common"
	"github.com/Carmen-Shannon/oxy-synth/engine/camera"
	"github.com/Carmen-Shannon/oxy-synth/engine/entity"
	"github.com/Carmen-Shannon/oxy-synth/engine/game_object"
	"github.com/Carmen-Shannon/oxy-synth/engine/keyframe"
	"github.com/Carmen-Shannon/oxy-synth/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

// maxRasterLabel bounds the raw labels handed out by the raster backend.
const maxRasterLabel = 1 << 20

// defaultObjectBounds is used for objects whose asset declares no geometry bounds.
var defaultObjectBounds = common.AABB{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}

// rasterNode is the raster backend's linked representation of one entity.
type rasterNode struct {
	handle Handle
	id     string
	kind   entity.Kind
	label  uint32

	allowed []string

	// object
	assetID string
	bounds  common.AABB

	// camera
	projection camera.Projection
	near, far  float32

	// light
	lightType            light.LightType
	lightRange           float32
	innerCone, outerCone float32
	width, height        float32
	castsShadows         bool

	properties map[string]entity.Value
	keyframes  map[string][]keyframe.Keyframe
}

// value evaluates a property at frame: the keyframed value when a track exists, otherwise the
// last pushed value.
func (n *rasterNode) value(name string, frame int) entity.Value {
	if track := n.keyframes[name]; len(track) > 0 {
		return keyframe.Sample(track, name, frame, keyframe.InterpolationLinear)
	}
	return n.properties[name]
}

func (n *rasterNode) vec3(name string, frame int, fallback mgl32.Vec3) mgl32.Vec3 {
	if v := n.value(name, frame); len(v) == 3 {
		return v.Vec3()
	}
	return fallback
}

func (n *rasterNode) quat(frame int) mgl32.Quat {
	if v := n.value(entity.PropQuaternion, frame); len(v) == 4 {
		q := common.QuatFromSlice(v)
		if q.Len() > 0 {
			return q.Normalize()
		}
	}
	return mgl32.QuatIdent()
}

// rasterObject is an object posed at the evaluated frame.
type rasterObject struct {
	label    uint32
	bounds   common.AABB
	world    mgl32.Mat4
	invWorld mgl32.Mat4
	normal   mgl32.Mat3
	color    mgl32.Vec3

	x0, y0, x1, y1 int
}

// rasterHit is the nearest surface found along one pixel ray.
type rasterHit struct {
	obj    *rasterObject
	depth  float32
	point  mgl32.Vec3
	normal mgl32.Vec3
	local  mgl32.Vec3
}

type rasterBackend struct {
	mu *sync.RWMutex

	nodes      map[Handle]*rasterNode
	nextHandle Handle
	labels     map[uint32]struct{}
	rng        *rand.Rand

	pool    worker.DynamicWorkerPool
	workers int
	closed  bool

	logger *slog.Logger
}

var _ Backend = &rasterBackend{}

// NewRasterBackend creates the reference CPU renderer. Objects are drawn as their oriented asset
// bounds, shaded with Lambertian lighting from every light plus the scene ambient term. Pixel
// rows are traced in parallel bands on a worker pool.
//
// Parameters:
//   - options: functional options to configure the backend
//
// Returns:
//   - Backend: the new backend
func NewRasterBackend(options ...RasterBackendOption) Backend {
	b := &rasterBackend{
		mu:         &sync.RWMutex{},
		nodes:      make(map[Handle]*rasterNode),
		nextHandle: 1,
		labels:     make(map[uint32]struct{}),
		rng:        common.NewRNG(1),
		workers:    runtime.NumCPU(),
		logger:     slog.Default(),
	}
	for _, option := range options {
		option(b)
	}
	b.workers = max(1, b.workers)
	b.pool = worker.NewDynamicWorkerPool(b.workers, 256, 1*time.Second)
	return b
}

func (b *rasterBackend) Materialize(e entity.Entity) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, fmt.Errorf("raster backend is closed")
	}

	props, err := entity.Snapshot(e)
	if err != nil {
		return 0, err
	}
	n := &rasterNode{
		id:         e.ID(),
		kind:       e.Kind(),
		allowed:    slices.Clone(e.Properties()),
		properties: props,
		keyframes:  make(map[string][]keyframe.Keyframe),
	}

	switch v := e.(type) {
	case game_object.GameObject:
		d := v.Asset()
		n.assetID = d.ID
		n.bounds = defaultObjectBounds
		if d.HasBounds {
			n.bounds = d.Bounds
		}
		n.label = b.newLabel()
	case camera.Camera:
		n.projection = v.Projection()
		n.near, n.far = v.Near(), v.Far()
	case light.Light:
		n.lightType = v.Type()
		n.lightRange = v.Range()
		n.innerCone, n.outerCone = v.SpotCone()
		n.width, n.height = v.Size()
		n.castsShadows = v.CastsShadows()
	default:
		return 0, fmt.Errorf("raster backend cannot materialize %s entity %q", e.Kind(), e.ID())
	}

	n.handle = b.nextHandle
	b.nextHandle++
	b.nodes[n.handle] = n
	b.logger.Debug("raster node materialized",
		slog.String("id", n.id),
		slog.String("kind", n.kind.String()),
		slog.Uint64("label", uint64(n.label)))
	return n.handle, nil
}

func (b *rasterBackend) Apply(h Handle, u Update) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.nodes[h]
	if !ok {
		return fmt.Errorf("apply: unknown %s", h)
	}

	for name, v := range u.Properties {
		if err := n.check(name, v); err != nil {
			return err
		}
	}
	for name, track := range u.Keyframes {
		for i, k := range track {
			if err := n.check(name, k.Value); err != nil {
				return fmt.Errorf("keyframe at frame %d: %w", k.Frame, err)
			}
			if i > 0 && track[i-1].Frame >= k.Frame {
				return fmt.Errorf("entity %q property %q: keyframes out of order at frame %d", n.id, name, k.Frame)
			}
		}
	}

	props := make(map[string]entity.Value, len(u.Properties))
	for name, v := range u.Properties {
		props[name] = v.Clone()
	}
	keys := make(map[string][]keyframe.Keyframe, len(u.Keyframes))
	for name, track := range u.Keyframes {
		cp := make([]keyframe.Keyframe, len(track))
		for i, k := range track {
			cp[i] = keyframe.Keyframe{Frame: k.Frame, Value: k.Value.Clone()}
		}
		keys[name] = cp
	}
	n.properties = props
	n.keyframes = keys
	return nil
}

// check validates one pushed value against the node's property set. Caller holds the lock.
func (n *rasterNode) check(name string, v entity.Value) error {
	if !slices.Contains(n.allowed, name) {
		return &entity.PropertyError{EntityID: n.id, Property: name, Err: entity.ErrUnknownProperty}
	}
	return entity.CheckArity(n.id, name, v, entity.Arity(name))
}

func (b *rasterBackend) Label(h Handle) (uint32, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n, ok := b.nodes[h]
	if !ok {
		return 0, fmt.Errorf("label: unknown %s", h)
	}
	if n.kind != entity.KindObject {
		return 0, fmt.Errorf("label: %s entity %q carries no segmentation label", n.kind, n.id)
	}
	return n.label, nil
}

func (b *rasterBackend) Release(h Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.nodes[h]
	if !ok {
		return fmt.Errorf("release: unknown %s", h)
	}
	delete(b.labels, n.label)
	delete(b.nodes, h)
	return nil
}

func (b *rasterBackend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.nodes = make(map[Handle]*rasterNode)
	b.labels = make(map[uint32]struct{})
	b.mu.Unlock()

	b.pool.Stop()
	return nil
}

// newLabel draws an unused nonzero raw label. Caller holds the lock.
func (b *rasterBackend) newLabel() uint32 {
	for {
		l := b.rng.Uint32N(maxRasterLabel-1) + 1
		if _, taken := b.labels[l]; !taken {
			b.labels[l] = struct{}{}
			return l
		}
	}
}

func (b *rasterBackend) Evaluate(ctx context.Context, req FrameRequest) (map[Channel]*Array, error) {
	for _, c := range req.Channels {
		if _, err := ParseChannel(string(c)); err != nil {
			return nil, err
		}
	}
	if req.Resolution.Width <= 0 || req.Resolution.Height <= 0 {
		return nil, fmt.Errorf("invalid resolution %s", req.Resolution)
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil, fmt.Errorf("raster backend is closed")
	}
	camNode, ok := b.nodes[req.Camera]
	if !ok || camNode.kind != entity.KindCamera {
		b.mu.RUnlock()
		return nil, fmt.Errorf("evaluate: %s is not a linked camera: %w", req.Camera, ErrNoCamera)
	}
	cam, err := camNode.camera(req.Frame)
	if err != nil {
		b.mu.RUnlock()
		return nil, err
	}
	var lights []light.Light
	var objects []*rasterObject
	handles := slices.Sorted(maps.Keys(b.nodes))
	for _, h := range handles {
		n := b.nodes[h]
		switch n.kind {
		case entity.KindLight:
			l, err := n.light(req.Frame)
			if err != nil {
				b.mu.RUnlock()
				return nil, err
			}
			lights = append(lights, l)
		case entity.KindObject:
			objects = append(objects, n.object(req.Frame))
		}
	}
	b.mu.RUnlock()

	view := cam.ViewMatrix()
	proj := cam.ProjectionMatrix(req.Resolution)
	viewProj := proj.Mul4(view)
	frustum := common.ExtractFrustum(viewProj)
	visible := objects[:0]
	for _, o := range objects {
		box := o.bounds.Transform(o.world)
		if !frustum.IntersectsAABB(box) {
			continue
		}
		o.screenRect(cam, box, req.Resolution)
		visible = append(visible, o)
	}

	out := b.allocate(req)
	tracer := &rasterTracer{
		req:     req,
		invVP:   viewProj.Inv(),
		eye:     cam.Position(),
		forward: cam.Quaternion().Rotate(mgl32.Vec3{0, 0, -1}).Normalize(),
		far:     cam.Far(),
		objects: visible,
		lights:  lights,
		out:     out,
	}
	if err := b.trace(ctx, tracer); err != nil {
		return nil, err
	}
	return out, nil
}

// trace runs the tracer over horizontal bands of rows on the worker pool.
func (b *rasterBackend) trace(ctx context.Context, t *rasterTracer) error {
	rows := t.req.Resolution.Height
	bands := min(rows, b.workers*2)
	per := (rows + bands - 1) / bands

	var wg sync.WaitGroup
	for i := 0; i < bands; i++ {
		y0, y1 := i*per, min(rows, (i+1)*per)
		if y0 >= y1 {
			break
		}
		wg.Add(1)
		b.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				for y := y0; y < y1; y++ {
					if ctx.Err() != nil {
						return nil, ctx.Err()
					}
					t.row(y)
				}
				return nil, nil
			},
		})
	}
	wg.Wait()
	return ctx.Err()
}

func (b *rasterBackend) allocate(req FrameRequest) map[Channel]*Array {
	w, h := req.Resolution.Width, req.Resolution.Height
	out := make(map[Channel]*Array, len(req.Channels))
	for _, c := range req.Channels {
		if c.IsLabel() {
			out[c] = NewLabelArray(w, h)
			continue
		}
		out[c] = NewFloatArray(w, h, c.Components())
	}
	return out
}

// camera rebuilds the camera at frame. Caller holds the read lock.
func (n *rasterNode) camera(frame int) (camera.Camera, error) {
	opts := []camera.CameraBuilderOption{camera.WithNear(n.near), camera.WithFar(n.far)}
	var cam camera.Camera
	if n.projection == camera.ProjectionOrthographic {
		cam = camera.NewOrthographicCamera(n.id, opts...)
	} else {
		cam = camera.NewPerspectiveCamera(n.id, opts...)
	}
	if err := n.restore(cam, frame); err != nil {
		return nil, err
	}
	return cam, nil
}

// light rebuilds the light at frame. Caller holds the read lock.
func (n *rasterNode) light(frame int) (light.Light, error) {
	l := light.NewLight(n.id, n.lightType,
		light.WithRange(n.lightRange),
		light.WithSize(n.width, n.height),
		light.WithSpotCone(n.innerCone, n.outerCone),
		light.WithCastsShadows(n.castsShadows))
	if err := n.restore(l, frame); err != nil {
		return nil, err
	}
	return l, nil
}

func (n *rasterNode) restore(e entity.Entity, frame int) error {
	for _, name := range n.allowed {
		v := n.value(name, frame)
		if v == nil {
			continue
		}
		if err := e.SetProperty(name, v); err != nil {
			return fmt.Errorf("evaluate %q at frame %d: %w", n.id, frame, err)
		}
	}
	return nil
}

// object poses the object at frame. Caller holds the read lock.
func (n *rasterNode) object(frame int) *rasterObject {
	pos := n.vec3(entity.PropPosition, frame, mgl32.Vec3{})
	scale := n.vec3(entity.PropScale, frame, mgl32.Vec3{1, 1, 1})
	world := common.MatrixWorld(pos, n.quat(frame), scale)
	inv := world.Inv()
	return &rasterObject{
		label:    n.label,
		bounds:   n.bounds,
		world:    world,
		invWorld: inv,
		normal:   inv.Mat3().Transpose(),
		color:    n.vec3(entity.PropColor, frame, mgl32.Vec3{0.8, 0.8, 0.8}),
	}
}

// screenRect bounds the pixels the object can cover. Boxes crossing the near plane cover the
// whole frame.
func (o *rasterObject) screenRect(cam camera.Camera, box common.AABB, res common.Resolution) {
	o.x0, o.y0, o.x1, o.y1 = 0, 0, res.Width-1, res.Height-1
	minX, minY := float32(res.Width), float32(res.Height)
	var maxX, maxY float32 = -1, -1
	for _, c := range box.Corners() {
		p, _, ok := cam.ProjectPoint(c, res)
		if !ok {
			return
		}
		minX, minY = min(minX, p[0]), min(minY, p[1])
		maxX, maxY = max(maxX, p[0]), max(maxY, p[1])
	}
	o.x0 = max(0, int(minX)-1)
	o.y0 = max(0, int(minY)-1)
	o.x1 = min(res.Width-1, int(maxX)+1)
	o.y1 = min(res.Height-1, int(maxY)+1)
}

// intersect casts a world-space ray against the object's oriented bounds using the slab method.
func (o *rasterObject) intersect(origin, dir mgl32.Vec3) (float32, mgl32.Vec3, mgl32.Vec3, bool) {
	lo := o.invWorld.Mul4x1(origin.Vec4(1)).Vec3()
	ld := o.invWorld.Mul4x1(dir.Vec4(0)).Vec3()

	tmin, tmax := float32(-3.4e38), float32(3.4e38)
	axis, sign := -1, float32(0)
	for a := 0; a < 3; a++ {
		if ld[a] == 0 {
			if lo[a] < o.bounds.Min[a] || lo[a] > o.bounds.Max[a] {
				return 0, mgl32.Vec3{}, mgl32.Vec3{}, false
			}
			continue
		}
		t0 := (o.bounds.Min[a] - lo[a]) / ld[a]
		t1 := (o.bounds.Max[a] - lo[a]) / ld[a]
		s := float32(-1)
		if t0 > t1 {
			t0, t1 = t1, t0
			s = 1
		}
		if t0 > tmin {
			tmin, axis, sign = t0, a, s
		}
		tmax = min(tmax, t1)
		if tmin > tmax {
			return 0, mgl32.Vec3{}, mgl32.Vec3{}, false
		}
	}
	if axis < 0 || tmin < 0 {
		return 0, mgl32.Vec3{}, mgl32.Vec3{}, false
	}
	var n mgl32.Vec3
	n[axis] = sign
	return tmin, lo.Add(ld.Mul(tmin)), o.normal.Mul3x1(n).Normalize(), true
}

// rasterTracer holds the per-frame state shared by every band.
type rasterTracer struct {
	req     FrameRequest
	invVP   mgl32.Mat4
	eye     mgl32.Vec3
	forward mgl32.Vec3
	far     float32
	objects []*rasterObject
	lights  []light.Light
	out     map[Channel]*Array
}

func (t *rasterTracer) row(y int) {
	w, h := t.req.Resolution.Width, t.req.Resolution.Height
	ndcY := 1 - 2*(float32(y)+0.5)/float32(h)
	for x := 0; x < w; x++ {
		ndcX := 2*(float32(x)+0.5)/float32(w) - 1
		near := unproject(t.invVP, ndcX, ndcY, -1)
		far := unproject(t.invVP, ndcX, ndcY, 1)
		dir := far.Sub(near)

		var hit rasterHit
		for _, o := range t.objects {
			if x < o.x0 || x > o.x1 || y < o.y0 || y > o.y1 {
				continue
			}
			tHit, local, normal, ok := o.intersect(near, dir)
			if !ok {
				continue
			}
			point := near.Add(dir.Mul(tHit))
			depth := point.Sub(t.eye).Dot(t.forward)
			if hit.obj == nil || depth < hit.depth {
				hit = rasterHit{obj: o, depth: depth, point: point, normal: normal, local: local}
			}
		}
		t.shade(x, y, hit)
	}
}

func (t *rasterTracer) shade(x, y int, hit rasterHit) {
	for c, arr := range t.out {
		switch c {
		case ChannelRGBA:
			if hit.obj == nil {
				alpha := float32(1)
				if t.req.Transparent {
					alpha = 0
				}
				arr.Set(x, y, 0, t.req.Ambient[0])
				arr.Set(x, y, 1, t.req.Ambient[1])
				arr.Set(x, y, 2, t.req.Ambient[2])
				arr.Set(x, y, 3, alpha)
				continue
			}
			energy := t.req.Ambient
			for _, l := range t.lights {
				energy = energy.Add(l.Irradiance(hit.point, hit.normal))
			}
			for k := 0; k < 3; k++ {
				arr.Set(x, y, k, mgl32.Clamp(hit.obj.color[k]*energy[k], 0, 1))
			}
			arr.Set(x, y, 3, 1)
		case ChannelDepth:
			if hit.obj == nil {
				arr.Set(x, y, 0, t.far)
				continue
			}
			arr.Set(x, y, 0, hit.depth)
		case ChannelSegmentation:
			if hit.obj != nil {
				arr.SetLabel(x, y, hit.obj.label)
			}
		case ChannelNormal:
			if hit.obj != nil {
				for k := 0; k < 3; k++ {
					arr.Set(x, y, k, hit.normal[k])
				}
			}
		case ChannelObjectCoordinates:
			if hit.obj != nil {
				for k := 0; k < 3; k++ {
					extent := hit.obj.bounds.Max[k] - hit.obj.bounds.Min[k]
					v := float32(0.5)
					if extent > 0 {
						v = mgl32.Clamp((hit.local[k]-hit.obj.bounds.Min[k])/extent, 0, 1)
					}
					arr.Set(x, y, k, v)
				}
			}
		}
	}
}

// unproject maps a normalized device coordinate back to world space.
func unproject(invVP mgl32.Mat4, x, y, z float32) mgl32.Vec3 {
	p := invVP.Mul4x1(mgl32.Vec4{x, y, z, 1})
	if p[3] == 0 {
		return p.Vec3()
	}
	return p.Vec3().Mul(1 / p[3])
}
