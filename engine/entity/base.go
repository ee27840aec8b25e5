package entity

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-synth/common"
	"github.com/Carmen-Shannon/oxy-synth/engine/session"
	"github.com/go-gl/mathgl/mgl32"
)

// Base holds the identity and pose shared by every entity kind. Concrete kinds embed *Base and
// extend Properties/Property/SetProperty with their own parameters.
//
// Every mutator fails with session.ErrActive while the guard bound by the owning scene is held.
type Base struct {
	mu    *sync.RWMutex
	guard *session.Guard

	id         string
	kind       Kind
	position   mgl32.Vec3
	quaternion mgl32.Quat
	static     bool
	background bool
}

// NewBase creates the shared entity state at the origin with identity orientation.
//
// Parameters:
//   - id: the entity identifier
//   - kind: the entity kind
//
// Returns:
//   - *Base: the new base state
func NewBase(id string, kind Kind) *Base {
	return &Base{
		mu:         &sync.RWMutex{},
		id:         id,
		kind:       kind,
		quaternion: mgl32.QuatIdent(),
	}
}

// Lock exposes the write lock so embedding kinds can guard their own fields with the same mutex.
func (b *Base) Lock() { b.mu.Lock() }

// Unlock releases the write lock.
func (b *Base) Unlock() { b.mu.Unlock() }

// RLock acquires the read lock.
func (b *Base) RLock() { b.mu.RLock() }

// RUnlock releases the read lock.
func (b *Base) RUnlock() { b.mu.RUnlock() }

// BindSession attaches the session guard of the scene the entity joined. A nil guard detaches it.
func (b *Base) BindSession(g *session.Guard) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.guard = g
}

// CheckSession returns an error wrapping session.ErrActive if a render session holds the bound
// guard. It must be called without holding the entity lock.
func (b *Base) CheckSession(op string) error {
	b.mu.RLock()
	g := b.guard
	b.mu.RUnlock()
	return g.Check(fmt.Sprintf("%s %q", op, b.id))
}

func (b *Base) ID() string {
	return b.id
}

func (b *Base) Kind() Kind {
	return b.kind
}

func (b *Base) Position() mgl32.Vec3 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.position
}

func (b *Base) SetPosition(p mgl32.Vec3) error {
	if err := b.CheckSession("set position of"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.position = p
	return nil
}

func (b *Base) Quaternion() mgl32.Quat {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.quaternion
}

func (b *Base) SetQuaternion(q mgl32.Quat) error {
	if err := b.CheckSession("set quaternion of"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quaternion = normalizeQuat(q)
	return nil
}

func (b *Base) LookAt(target mgl32.Vec3) error {
	if err := b.CheckSession("look at from"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quaternion = common.LookAtQuat(b.position, target, common.WorldUp)
	return nil
}

func (b *Base) Static() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.static
}

// SetStatic marks the entity as static.
func (b *Base) SetStatic(static bool) error {
	if err := b.CheckSession("set static flag of"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.static = static
	return nil
}

func (b *Base) Background() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.background
}

// SetBackground marks the entity as background scenery.
func (b *Base) SetBackground(background bool) error {
	if err := b.CheckSession("set background flag of"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.background = background
	return nil
}

// CurrentPose returns position and orientation together. Caller must hold at least the read lock.
func (b *Base) CurrentPose() (mgl32.Vec3, mgl32.Quat) {
	return b.position, b.quaternion
}

// PoseProperties lists the pose property names every kind supports.
func PoseProperties() []string {
	return []string{PropPosition, PropQuaternion}
}

// PoseProperty reads a pose property. The bool result is false if name is not a pose property.
// Caller must hold at least the read lock.
func (b *Base) PoseProperty(name string) (Value, bool) {
	switch name {
	case PropPosition:
		return VecValue(b.position), true
	case PropQuaternion:
		return Value(common.QuatToSlice(b.quaternion)), true
	}
	return nil, false
}

// SetPoseProperty writes a pose property. The bool result is false if name is not a pose property.
// Caller must hold the write lock.
func (b *Base) SetPoseProperty(name string, v Value) (bool, error) {
	switch name {
	case PropPosition:
		if err := CheckArity(b.id, name, v, 3); err != nil {
			return true, err
		}
		b.position = v.Vec3()
		return true, nil
	case PropQuaternion:
		if err := CheckArity(b.id, name, v, 4); err != nil {
			return true, err
		}
		b.quaternion = normalizeQuat(common.QuatFromSlice(v))
		return true, nil
	}
	return false, nil
}

// UnknownProperty builds the error returned for an unsupported property name.
func (b *Base) UnknownProperty(name string) error {
	return &PropertyError{EntityID: b.id, Property: name, Err: ErrUnknownProperty}
}

// normalizeQuat returns q scaled to unit length, or the identity for a zero quaternion.
func normalizeQuat(q mgl32.Quat) mgl32.Quat {
	if q.Len() == 0 {
		return mgl32.QuatIdent()
	}
	return q.Normalize()
}
