package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-synth/engine/entity"
	"github.com/Carmen-Shannon/oxy-synth/engine/keyframe"
	"github.com/Carmen-Shannon/oxy-synth/engine/scene"
)

// Link is the adapter's record of an entity's linked representation.
type Link struct {
	// EntityID is the linked entity.
	EntityID string

	// Kind is the linked entity's kind.
	Kind entity.Kind

	// Handle is the backend reference.
	Handle Handle

	// Pushed lists the property names included in the last successful sync, in lexical order.
	Pushed []string

	// Frame is the frame of the last successful sync. Only meaningful when Synced is true.
	Frame int

	// Synced reports whether the link has been synced at least once.
	Synced bool
}

type adapter struct {
	mu *sync.RWMutex

	backend Backend
	store   keyframe.Store

	links map[string]*Link
	order []string

	logger *slog.Logger
}

// Adapter maintains one linked representation per attached entity and pushes entity state to it.
// An entity has at most one live link at a time.
type Adapter interface {
	// Attach creates the entity's linked representation.
	//
	// Parameters:
	//   - e: the entity
	//   - force: release and replace an existing link instead of failing
	//
	// Returns:
	//   - Link: a copy of the new link
	//   - error: *AlreadyAttachedError if linked and force is false, or a backend failure
	Attach(e entity.Entity, force bool) (Link, error)

	// Sync pushes the entity's current properties and all of its keyframes to its link in a single
	// all-or-nothing backend update.
	//
	// Parameters:
	//   - e: the entity
	//   - frame: the frame being prepared, recorded on the link
	//
	// Returns:
	//   - error: *SyncError wrapping the cause (including *NotAttachedError)
	Sync(e entity.Entity, frame int) error

	// Detach releases the entity's link.
	//
	// Parameters:
	//   - id: the entity id
	//
	// Returns:
	//   - error: *NotAttachedError if there is no link, or a backend failure
	Detach(id string) error

	// DetachAll releases every link. All releases are attempted; failures are joined.
	//
	// Returns:
	//   - error: the joined release failures
	DetachAll() error

	// Link returns a copy of an entity's link.
	//
	// Parameters:
	//   - id: the entity id
	//
	// Returns:
	//   - Link: the link
	//   - bool: false if the entity is not attached
	Link(id string) (Link, bool)

	// Links returns copies of every link in attach order.
	Links() []Link

	// Label returns the raw segmentation label of an attached object.
	//
	// Parameters:
	//   - id: the object id
	//
	// Returns:
	//   - uint32: the raw label
	//   - error: *NotAttachedError or a backend failure
	Label(id string) (uint32, error)

	// Labels returns the raw label of every attached object, keyed by entity id.
	//
	// Returns:
	//   - map[string]uint32: entity id to raw label
	//   - error: the first backend failure
	Labels() (map[string]uint32, error)

	// Watch detaches entities as they are removed from sc.
	//
	// Parameters:
	//   - sc: the scene to observe
	Watch(sc scene.Scene)

	// Backend returns the renderer collaborator.
	Backend() Backend
}

var _ Adapter = &adapter{}

// NewAdapter creates an adapter over a backend. Keyframes pushed by Sync are read from store.
//
// Parameters:
//   - backend: the renderer collaborator (must not be nil)
//   - store: the keyframe store (must not be nil)
//   - options: functional options to configure the adapter
//
// Returns:
//   - Adapter: the new adapter
func NewAdapter(backend Backend, store keyframe.Store, options ...AdapterBuilderOption) Adapter {
	if backend == nil {
		panic("renderer: NewAdapter requires a non-nil Backend")
	}
	if store == nil {
		panic("renderer: NewAdapter requires a non-nil keyframe Store")
	}
	a := &adapter{
		mu:      &sync.RWMutex{},
		backend: backend,
		store:   store,
		links:   make(map[string]*Link),
		logger:  slog.Default(),
	}
	for _, option := range options {
		option(a)
	}
	return a
}

func (a *adapter) Attach(e entity.Entity, force bool) (Link, error) {
	id := e.ID()
	a.mu.Lock()
	defer a.mu.Unlock()

	if old, ok := a.links[id]; ok {
		if !force {
			return Link{}, &AlreadyAttachedError{EntityID: id}
		}
		if err := a.backend.Release(old.Handle); err != nil {
			return Link{}, fmt.Errorf("attach %q: release previous link: %w", id, err)
		}
		delete(a.links, id)
		a.order = slices.DeleteFunc(a.order, func(o string) bool { return o == id })
	}

	h, err := a.backend.Materialize(e)
	if err != nil {
		return Link{}, fmt.Errorf("attach %q: %w", id, err)
	}
	link := &Link{EntityID: id, Kind: e.Kind(), Handle: h}
	a.links[id] = link
	a.order = append(a.order, id)
	a.logger.Debug("entity attached", slog.String("id", id), slog.String("handle", h.String()))
	return copyLink(link), nil
}

func (a *adapter) Sync(e entity.Entity, frame int) error {
	id := e.ID()
	a.mu.RLock()
	link, ok := a.links[id]
	var h Handle
	if ok {
		h = link.Handle
	}
	a.mu.RUnlock()
	if !ok {
		return &SyncError{EntityID: id, Frame: frame, Err: &NotAttachedError{EntityID: id}}
	}

	props, err := entity.Snapshot(e)
	if err != nil {
		return &SyncError{EntityID: id, Frame: frame, Err: err}
	}
	update := Update{Properties: props, Keyframes: make(map[string][]keyframe.Keyframe)}
	for _, prop := range a.store.Tracks(id) {
		for f, v := range a.store.TrackFor(id, prop) {
			update.Keyframes[prop] = append(update.Keyframes[prop], keyframe.Keyframe{Frame: f, Value: v})
		}
	}
	if err := a.backend.Apply(h, update); err != nil {
		return &SyncError{EntityID: id, Frame: frame, Err: err}
	}

	pushed := slices.Sorted(maps.Keys(props))
	for prop := range update.Keyframes {
		if !slices.Contains(pushed, prop) {
			pushed = append(pushed, prop)
		}
	}
	slices.Sort(pushed)

	a.mu.Lock()
	defer a.mu.Unlock()
	if cur, ok := a.links[id]; ok && cur.Handle == h {
		cur.Pushed = pushed
		cur.Frame = frame
		cur.Synced = true
	}
	return nil
}

func (a *adapter) Detach(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	link, ok := a.links[id]
	if !ok {
		return &NotAttachedError{EntityID: id}
	}
	delete(a.links, id)
	a.order = slices.DeleteFunc(a.order, func(o string) bool { return o == id })
	if err := a.backend.Release(link.Handle); err != nil {
		return fmt.Errorf("detach %q: %w", id, err)
	}
	a.logger.Debug("entity detached", slog.String("id", id))
	return nil
}

func (a *adapter) DetachAll() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	var errs []error
	for _, id := range a.order {
		if err := a.backend.Release(a.links[id].Handle); err != nil {
			errs = append(errs, fmt.Errorf("detach %q: %w", id, err))
		}
	}
	a.links = make(map[string]*Link)
	a.order = nil
	return errors.Join(errs...)
}

func (a *adapter) Link(id string) (Link, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	link, ok := a.links[id]
	if !ok {
		return Link{}, false
	}
	return copyLink(link), true
}

func (a *adapter) Links() []Link {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Link, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, copyLink(a.links[id]))
	}
	return out
}

func (a *adapter) Label(id string) (uint32, error) {
	link, ok := a.Link(id)
	if !ok {
		return 0, &NotAttachedError{EntityID: id}
	}
	if link.Kind != entity.KindObject {
		return 0, fmt.Errorf("label %q: %s entities carry no segmentation label", id, link.Kind)
	}
	return a.backend.Label(link.Handle)
}

func (a *adapter) Labels() (map[string]uint32, error) {
	out := make(map[string]uint32)
	for _, link := range a.Links() {
		if link.Kind != entity.KindObject {
			continue
		}
		l, err := a.backend.Label(link.Handle)
		if err != nil {
			return nil, fmt.Errorf("label %q: %w", link.EntityID, err)
		}
		out[link.EntityID] = l
	}
	return out, nil
}

func (a *adapter) Watch(sc scene.Scene) {
	sc.OnRemove(func(id string) {
		if err := a.Detach(id); err != nil && !errors.Is(err, ErrNotAttached) {
			a.logger.Warn("detach removed entity", slog.String("id", id), slog.Any("error", err))
		}
	})
}

func (a *adapter) Backend() Backend {
	return a.backend
}

func copyLink(l *Link) Link {
	out := *l
	out.Pushed = slices.Clone(l.Pushed)
	return out
}
