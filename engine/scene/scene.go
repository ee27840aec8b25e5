// Package scene holds the scene graph: the authoritative set of objects, lights and cameras,
// the active camera, and the global render settings a frame range is evaluated with.
package scene

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-synth/common"
	"github.com/Carmen-Shannon/oxy-synth/engine/camera"
	"github.com/Carmen-Shannon/oxy-synth/engine/entity"
	"github.com/Carmen-Shannon/oxy-synth/engine/game_object"
	"github.com/Carmen-Shannon/oxy-synth/engine/light"
	"github.com/Carmen-Shannon/oxy-synth/engine/session"
	"github.com/go-gl/mathgl/mgl32"
)

// Scene is the entity container. Entities are kept in insertion order. Reads are safe for
// concurrent use; every mutator fails with ErrSessionActive while a render session holds the scene.
// Adding an entity never attaches it to a renderer.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Add inserts an entity.
	//
	// Parameters:
	//   - e: the entity to add
	//
	// Returns:
	//   - string: the entity id
	//   - error: *DuplicateIDError if the id is taken, or ErrSessionActive
	Add(e entity.Entity) (string, error)

	// Remove deletes an entity and notifies every OnRemove observer. Removing the active camera
	// clears the active camera reference.
	//
	// Parameters:
	//   - id: the entity id
	//
	// Returns:
	//   - error: *UnknownEntityError if the id is absent, or ErrSessionActive
	Remove(id string) error

	// Get looks up an entity by id.
	//
	// Parameters:
	//   - id: the entity id
	//
	// Returns:
	//   - entity.Entity: the entity
	//   - error: *UnknownEntityError if the id is absent
	Get(id string) (entity.Entity, error)

	// Entities returns every entity in insertion order.
	Entities() []entity.Entity

	// Objects returns the mesh objects in insertion order.
	Objects() []game_object.GameObject

	// Lights returns the lights in insertion order.
	Lights() []light.Light

	// Cameras returns the cameras in insertion order.
	Cameras() []camera.Camera

	// SetCamera makes a camera already in the scene the active camera.
	//
	// Parameters:
	//   - id: the camera's entity id
	//
	// Returns:
	//   - error: *UnknownEntityError if the id is absent or not a camera, or ErrSessionActive
	SetCamera(id string) error

	// Camera returns the active camera, or nil if none is set.
	Camera() camera.Camera

	// Resolution returns the output image size.
	Resolution() common.Resolution

	// SetResolution sets the output image size.
	//
	// Parameters:
	//   - res: the resolution (both dimensions must be positive)
	//
	// Returns:
	//   - error: error if the resolution is invalid, or ErrSessionActive
	SetResolution(res common.Resolution) error

	// FrameRange returns the inclusive range of frames to render.
	//
	// Returns:
	//   - start, end: the first and last frame
	FrameRange() (start, end int)

	// SetFrameRange sets the inclusive range of frames to render.
	//
	// Parameters:
	//   - start, end: the first and last frame; start must not exceed end
	//
	// Returns:
	//   - error: error if the range is empty, or ErrSessionActive
	SetFrameRange(start, end int) error

	// FrameRate returns the frames per second recorded in metadata.
	FrameRate() int

	// SetFrameRate sets the frames per second.
	//
	// Parameters:
	//   - fps: the frame rate (must be positive)
	//
	// Returns:
	//   - error: error if fps is not positive, or ErrSessionActive
	SetFrameRate(fps int) error

	// Ambient returns the ambient illumination color.
	Ambient() mgl32.Vec3

	// SetAmbient sets the ambient illumination color.
	//
	// Parameters:
	//   - c: linear RGB color
	//
	// Returns:
	//   - error: ErrSessionActive while rendering
	SetAmbient(c mgl32.Vec3) error

	// OnRemove registers an observer called with the id of every removed entity, after the
	// scene lock is released.
	//
	// Parameters:
	//   - fn: the observer
	OnRemove(fn func(id string))

	// BeginSession acquires the exclusive render session that freezes scene authoring.
	//
	// Returns:
	//   - *session.Token: the token to release when rendering ends
	//   - error: ErrSessionActive if a session is already running
	BeginSession() (*session.Token, error)

	// Guard returns the session guard shared with the keyframe store and asset registry.
	Guard() *session.Guard
}

type scene struct {
	mu *sync.RWMutex

	name string

	order    []string
	registry map[string]entity.Entity
	cam      camera.Camera

	resolution common.Resolution
	frameStart int
	frameEnd   int
	frameRate  int
	ambient    mgl32.Vec3

	onRemove []func(id string)

	guard  *session.Guard
	logger *slog.Logger
}

// Ensure scene implements Scene interface.
var _ Scene = &scene{}

// NewScene creates an empty scene with a 512x512 resolution, frames 1 to 24 at 24 fps and
// no ambient light.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:         &sync.RWMutex{},
		name:       name,
		registry:   make(map[string]entity.Entity),
		resolution: common.Resolution{Width: 512, Height: 512},
		frameStart: 1,
		frameEnd:   24,
		frameRate:  24,
		logger:     slog.Default(),
	}
	for _, option := range options {
		option(s)
	}
	if s.guard == nil {
		s.guard = session.NewGuard()
	}
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Add(e entity.Entity) (string, error) {
	if e == nil {
		panic("scene: Add requires a non-nil entity")
	}
	id := e.ID()
	if err := s.guard.Check("add " + id); err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("add %s: entity has no id", e.Kind())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.registry[id]; exists {
		return "", &DuplicateIDError{ID: id}
	}
	s.registry[id] = e
	s.order = append(s.order, id)
	e.BindSession(s.guard)
	s.logger.Debug("entity added", slog.String("id", id), slog.String("kind", e.Kind().String()))
	return id, nil
}

func (s *scene) Remove(id string) error {
	if err := s.guard.Check("remove " + id); err != nil {
		return err
	}

	s.mu.Lock()
	e, exists := s.registry[id]
	if !exists {
		s.mu.Unlock()
		return &UnknownEntityError{ID: id}
	}
	delete(s.registry, id)
	s.order = slices.DeleteFunc(s.order, func(o string) bool { return o == id })
	if s.cam != nil && s.cam.ID() == id {
		s.cam = nil
	}
	observers := slices.Clone(s.onRemove)
	s.mu.Unlock()
	e.BindSession(nil)

	s.logger.Debug("entity removed", slog.String("id", id), slog.String("kind", e.Kind().String()))
	for _, fn := range observers {
		fn(id)
	}
	return nil
}

func (s *scene) Get(id string) (entity.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.registry[id]
	if !ok {
		return nil, &UnknownEntityError{ID: id}
	}
	return e, nil
}

func (s *scene) Entities() []entity.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.Entity, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.registry[id])
	}
	return out
}

func (s *scene) Objects() []game_object.GameObject {
	return collect[game_object.GameObject](s)
}

func (s *scene) Lights() []light.Light {
	return collect[light.Light](s)
}

func (s *scene) Cameras() []camera.Camera {
	return collect[camera.Camera](s)
}

func (s *scene) SetCamera(id string) error {
	if err := s.guard.Check("set camera " + id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.registry[id]
	if !ok {
		return &UnknownEntityError{ID: id}
	}
	cam, ok := e.(camera.Camera)
	if !ok {
		return &UnknownEntityError{ID: id, Reason: "not a camera"}
	}
	s.cam = cam
	return nil
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam
}

func (s *scene) Resolution() common.Resolution {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolution
}

func (s *scene) SetResolution(res common.Resolution) error {
	if err := s.guard.Check("set resolution"); err != nil {
		return err
	}
	if res.Width <= 0 || res.Height <= 0 {
		return fmt.Errorf("set resolution: invalid resolution %s", res)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolution = res
	return nil
}

func (s *scene) FrameRange() (start, end int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frameStart, s.frameEnd
}

func (s *scene) SetFrameRange(start, end int) error {
	if err := s.guard.Check("set frame range"); err != nil {
		return err
	}
	if start > end {
		return fmt.Errorf("set frame range: start %d exceeds end %d", start, end)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameStart, s.frameEnd = start, end
	return nil
}

func (s *scene) FrameRate() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frameRate
}

func (s *scene) SetFrameRate(fps int) error {
	if err := s.guard.Check("set frame rate"); err != nil {
		return err
	}
	if fps <= 0 {
		return fmt.Errorf("set frame rate: fps must be positive, got %d", fps)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameRate = fps
	return nil
}

func (s *scene) Ambient() mgl32.Vec3 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ambient
}

func (s *scene) SetAmbient(c mgl32.Vec3) error {
	if err := s.guard.Check("set ambient"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ambient = c
	return nil
}

func (s *scene) OnRemove(fn func(id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRemove = append(s.onRemove, fn)
}

func (s *scene) BeginSession() (*session.Token, error) {
	return s.guard.Acquire()
}

func (s *scene) Guard() *session.Guard {
	return s.guard
}

// collect returns the entities that implement T, in insertion order.
func collect[T entity.Entity](s *scene) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []T
	for _, id := range s.order {
		if e, ok := s.registry[id].(T); ok {
			out = append(out, e)
		}
	}
	return out
}
