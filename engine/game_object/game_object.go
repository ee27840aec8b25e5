// Package game_object provides the mesh object entity: an asset placed in the scene with a pose,
// a scale, and a base color.
package game_object

import (
	"github.com/Carmen-Shannon/oxy-synth/common"
	"github.com/Carmen-Shannon/oxy-synth/engine/asset"
	"github.com/Carmen-Shannon/oxy-synth/engine/entity"
	"github.com/go-gl/mathgl/mgl32"
)

type gameObject struct {
	*entity.Base

	asset asset.Descriptor
	scale mgl32.Vec3
	color mgl32.Vec3
}

// GameObject defines the interface for a renderable object instantiated from an asset descriptor.
// Objects are the only entities that receive instance segmentation labels.
type GameObject interface {
	entity.Entity

	// Asset returns the descriptor the object was created from.
	//
	// Returns:
	//   - asset.Descriptor: the asset descriptor
	Asset() asset.Descriptor

	// AssetID returns the id of the backing asset.
	//
	// Returns:
	//   - string: the asset id
	AssetID() string

	// Scale returns the per-axis scale factors.
	//
	// Returns:
	//   - mgl32.Vec3: the scale
	Scale() mgl32.Vec3

	// SetScale sets the per-axis scale factors.
	//
	// Parameters:
	//   - s: the new scale
	//
	// Returns:
	//   - error: wraps session.ErrActive while a render session holds the owning scene
	SetScale(s mgl32.Vec3) error

	// Color returns the linear RGB base color.
	//
	// Returns:
	//   - mgl32.Vec3: the color
	Color() mgl32.Vec3

	// SetColor sets the linear RGB base color.
	//
	// Parameters:
	//   - c: the new color
	//
	// Returns:
	//   - error: wraps session.ErrActive while a render session holds the owning scene
	SetColor(c mgl32.Vec3) error

	// MatrixWorld returns the object's local-to-world transform (translate * rotate * scale).
	//
	// Returns:
	//   - mgl32.Mat4: the world matrix
	MatrixWorld() mgl32.Mat4

	// WorldBounds returns the world-space box enclosing the object's asset bounds.
	//
	// Returns:
	//   - common.AABB: the world-space bounds
	//   - bool: false if the asset declares no bounds
	WorldBounds() (common.AABB, bool)

	// RestOnFloor shifts the object along Z so the lowest point of its world bounds touches z = floor.
	// Objects without bounds are left unchanged.
	//
	// Parameters:
	//   - floor: the floor height
	//
	// Returns:
	//   - error: wraps session.ErrActive while a render session holds the owning scene
	RestOnFloor(floor float32) error
}

var _ GameObject = &gameObject{}

// NewGameObject creates a new object with the given id.
//
// Parameters:
//   - id: the unique entity id
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the newly created object
func NewGameObject(id string, options ...GameObjectBuilderOption) GameObject {
	obj := &gameObject{
		Base:  entity.NewBase(id, entity.KindObject),
		scale: mgl32.Vec3{1, 1, 1},
		color: mgl32.Vec3{0.8, 0.8, 0.8},
	}
	for _, option := range options {
		option(obj)
	}
	return obj
}

func (g *gameObject) Asset() asset.Descriptor {
	return g.asset
}

func (g *gameObject) AssetID() string {
	return g.asset.ID
}

func (g *gameObject) Scale() mgl32.Vec3 {
	g.RLock()
	defer g.RUnlock()
	return g.scale
}

func (g *gameObject) SetScale(s mgl32.Vec3) error {
	if err := g.CheckSession("set scale of"); err != nil {
		return err
	}
	g.Lock()
	defer g.Unlock()
	g.scale = s
	return nil
}

func (g *gameObject) Color() mgl32.Vec3 {
	g.RLock()
	defer g.RUnlock()
	return g.color
}

func (g *gameObject) SetColor(c mgl32.Vec3) error {
	if err := g.CheckSession("set color of"); err != nil {
		return err
	}
	g.Lock()
	defer g.Unlock()
	g.color = c
	return nil
}

func (g *gameObject) MatrixWorld() mgl32.Mat4 {
	g.RLock()
	defer g.RUnlock()
	return g.matrixWorld()
}

func (g *gameObject) WorldBounds() (common.AABB, bool) {
	if !g.asset.HasBounds {
		return common.AABB{}, false
	}
	g.RLock()
	defer g.RUnlock()
	return g.asset.Bounds.Transform(g.matrixWorld()), true
}

func (g *gameObject) RestOnFloor(floor float32) error {
	if !g.asset.HasBounds {
		return nil
	}
	if err := g.CheckSession("rest on floor"); err != nil {
		return err
	}
	g.Lock()
	defer g.Unlock()
	box := g.asset.Bounds.Transform(g.matrixWorld())
	pos, _ := g.CurrentPose()
	pos[2] += floor - box.Min[2]
	_, err := g.SetPoseProperty(entity.PropPosition, entity.VecValue(pos))
	return err
}

func (g *gameObject) Properties() []string {
	return append(entity.PoseProperties(), entity.PropScale, entity.PropColor)
}

func (g *gameObject) Property(name string) (entity.Value, error) {
	g.RLock()
	defer g.RUnlock()
	if v, ok := g.PoseProperty(name); ok {
		return v, nil
	}
	switch name {
	case entity.PropScale:
		return entity.VecValue(g.scale), nil
	case entity.PropColor:
		return entity.VecValue(g.color), nil
	}
	return nil, g.UnknownProperty(name)
}

func (g *gameObject) SetProperty(name string, v entity.Value) error {
	if err := g.CheckSession("set " + name + " of"); err != nil {
		return err
	}
	g.Lock()
	defer g.Unlock()
	if ok, err := g.SetPoseProperty(name, v); ok {
		return err
	}
	switch name {
	case entity.PropScale:
		if err := entity.CheckArity(g.ID(), name, v, 3); err != nil {
			return err
		}
		g.scale = v.Vec3()
		return nil
	case entity.PropColor:
		if err := entity.CheckArity(g.ID(), name, v, 3); err != nil {
			return err
		}
		g.color = v.Vec3()
		return nil
	}
	return g.UnknownProperty(name)
}

// matrixWorld computes the world transform. Caller must hold at least the read lock.
func (g *gameObject) matrixWorld() mgl32.Mat4 {
	pos, rot := g.CurrentPose()
	return common.MatrixWorld(pos, rot, g.scale)
}
