// Package keyframe stores per-entity, per-property sequences of (frame, value) samples.
// Tracks are kept sorted by frame with at most one key per frame; the store never interpolates.
package keyframe

import (
	"cmp"
	"iter"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-synth/engine/entity"
	"github.com/Carmen-Shannon/oxy-synth/engine/scene"
	"github.com/Carmen-Shannon/oxy-synth/engine/session"
)

// Keyframe is one sample of a track.
type Keyframe struct {
	Frame int
	Value entity.Value
}

// EntityLookup resolves entity ids. A scene.Scene satisfies it.
type EntityLookup interface {
	Get(id string) (entity.Entity, error)
}

// trackKey identifies a single track.
type trackKey struct {
	entityID string
	property string
}

type store struct {
	mu *sync.RWMutex

	lookup EntityLookup
	tracks map[trackKey][]Keyframe

	guard  *session.Guard
	logger *slog.Logger
}

// Store holds keyframe tracks. Reads are safe for concurrent use; writes are refused while a render
// session holds the shared guard.
type Store interface {
	// Insert records value for the entity's property at frame, replacing any existing key at that frame.
	//
	// Parameters:
	//   - entityID: the keyed entity
	//   - property: the property name
	//   - frame: the frame index
	//   - value: the value to record
	//
	// Returns:
	//   - error: *scene.UnknownEntityError if the entity is not in the scene, *entity.PropertyError if
	//     the property is unknown or the value has the wrong arity, or ErrSessionActive
	Insert(entityID, property string, frame int, value entity.Value) error

	// InsertCurrent snapshots the entity's current property value at frame.
	//
	// Parameters:
	//   - e: the keyed entity
	//   - property: the property name
	//   - frame: the frame index
	//
	// Returns:
	//   - error: as Insert
	InsertCurrent(e entity.Entity, property string, frame int) error

	// TrackFor returns a lazy, restartable iterator over a track in strictly increasing frame order.
	// An absent track yields nothing. Values are copies.
	//
	// Parameters:
	//   - entityID: the keyed entity
	//   - property: the property name
	//
	// Returns:
	//   - iter.Seq2[int, entity.Value]: frame, value pairs
	TrackFor(entityID, property string) iter.Seq2[int, entity.Value]

	// Tracks returns the names of the entity's keyed properties in lexical order.
	Tracks(entityID string) []string

	// Entities returns the ids of every entity with at least one track, in lexical order.
	Entities() []string

	// Span returns the first and last keyed frame of a track.
	//
	// Returns:
	//   - first, last: the frame bounds
	//   - bool: false if the track is empty
	Span(entityID, property string) (first, last int, ok bool)

	// Relevant returns the ids of entities having a track whose span contains frame, in lexical order.
	//
	// Parameters:
	//   - frame: the frame index
	//
	// Returns:
	//   - []string: the entity ids
	Relevant(frame int) []string

	// Drop destroys every track of an entity. It is called when the entity leaves the scene.
	//
	// Parameters:
	//   - entityID: the entity whose tracks are dropped
	Drop(entityID string)
}

var _ Store = &store{}

// NewStore creates an empty store that validates entity ids against lookup. When lookup is a scene
// the store shares its session guard and drops tracks of removed entities automatically.
//
// Parameters:
//   - lookup: the entity resolver (must not be nil)
//   - options: functional options to configure the store
//
// Returns:
//   - Store: the newly created store
func NewStore(lookup EntityLookup, options ...StoreBuilderOption) Store {
	if lookup == nil {
		panic("keyframe: NewStore requires a non-nil EntityLookup")
	}
	s := &store{
		mu:     &sync.RWMutex{},
		lookup: lookup,
		tracks: make(map[trackKey][]Keyframe),
		logger: slog.Default(),
	}
	if sc, ok := lookup.(scene.Scene); ok {
		s.guard = sc.Guard()
		sc.OnRemove(s.Drop)
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *store) Insert(entityID, property string, frame int, value entity.Value) error {
	if err := s.guard.Check("insert keyframe"); err != nil {
		return err
	}
	e, err := s.lookup.Get(entityID)
	if err != nil {
		return err
	}
	if !slices.Contains(e.Properties(), property) {
		return &entity.PropertyError{EntityID: entityID, Property: property, Err: entity.ErrUnknownProperty}
	}
	if n := entity.Arity(property); n > 0 {
		if err := entity.CheckArity(entityID, property, value, n); err != nil {
			return err
		}
	}

	key := trackKey{entityID: entityID, property: property}
	kf := Keyframe{Frame: frame, Value: value.Clone()}

	s.mu.Lock()
	defer s.mu.Unlock()
	track := s.tracks[key]
	i, found := slices.BinarySearchFunc(track, frame, func(k Keyframe, f int) int {
		return cmp.Compare(k.Frame, f)
	})
	if found {
		track[i] = kf
	} else {
		track = slices.Insert(track, i, kf)
	}
	s.tracks[key] = track
	return nil
}

func (s *store) InsertCurrent(e entity.Entity, property string, frame int) error {
	v, err := e.Property(property)
	if err != nil {
		return err
	}
	return s.Insert(e.ID(), property, frame, v)
}

func (s *store) TrackFor(entityID, property string) iter.Seq2[int, entity.Value] {
	key := trackKey{entityID: entityID, property: property}
	return func(yield func(int, entity.Value) bool) {
		s.mu.RLock()
		track := slices.Clone(s.tracks[key])
		s.mu.RUnlock()
		for _, kf := range track {
			if !yield(kf.Frame, kf.Value.Clone()) {
				return
			}
		}
	}
}

func (s *store) Tracks(entityID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for key := range s.tracks {
		if key.entityID == entityID {
			out = append(out, key.property)
		}
	}
	slices.Sort(out)
	return out
}

func (s *store) Entities() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make(map[string]struct{})
	for key := range s.tracks {
		ids[key.entityID] = struct{}{}
	}
	return slices.Sorted(maps.Keys(ids))
}

func (s *store) Span(entityID, property string) (first, last int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	track := s.tracks[trackKey{entityID: entityID, property: property}]
	if len(track) == 0 {
		return 0, 0, false
	}
	return track[0].Frame, track[len(track)-1].Frame, true
}

func (s *store) Relevant(frame int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make(map[string]struct{})
	for key, track := range s.tracks {
		if len(track) > 0 && track[0].Frame <= frame && frame <= track[len(track)-1].Frame {
			ids[key.entityID] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(ids))
}

func (s *store) Drop(entityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for key := range s.tracks {
		if key.entityID == entityID {
			delete(s.tracks, key)
			dropped++
		}
	}
	if dropped > 0 {
		s.logger.Debug("keyframe tracks dropped", slog.String("entity_id", entityID), slog.Int("tracks", dropped))
	}
}
