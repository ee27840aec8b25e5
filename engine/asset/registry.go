// Package asset resolves symbolic asset identifiers to immutable descriptors using a manifest
// document indexed by id.
package asset

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-synth/common"
	"github.com/Carmen-Shannon/oxy-synth/engine/session"
	"gopkg.in/yaml.v3"
)

// Descriptor is the resolved, immutable description of an asset. It holds only comparable
// fields so two resolutions of the same id compare equal with ==.
type Descriptor struct {
	// ID is the manifest key of the asset.
	ID string

	// AssetType is the manifest asset type (e.g. "FileBasedObject").
	AssetType string

	// Category is the metadata category used for filtering.
	Category string

	// RenderFile is the geometry/material file handed to the renderer.
	RenderFile string

	// SimulationFile is the optional collision mesh reference.
	SimulationFile string

	// Bounds is the mesh-local axis-aligned bounding box. Only meaningful when HasBounds is true.
	Bounds common.AABB

	// HasBounds reports whether Bounds was declared or derived.
	HasBounds bool

	// Static marks assets that never move under simulation.
	Static bool

	// Background marks scenery that is not an instance of interest.
	Background bool

	// Mass, Friction and Restitution are physical parameters passed through to the simulator.
	Mass, Friction, Restitution float32
}

// registry is the implementation of the Registry interface.
type registry struct {
	mu *sync.RWMutex

	source  string
	name    string
	dataDir string

	entries map[string]manifestEntry
	cache   map[string]Descriptor

	guard  *session.Guard
	logger *slog.Logger
}

// Registry resolves asset ids to descriptors. Resolution is memoized and deterministic;
// the registry is safe for concurrent reads.
type Registry interface {
	// Name returns the manifest's declared name.
	//
	// Returns:
	//   - string: the manifest name, or empty for an ad-hoc registry
	Name() string

	// Resolve returns the descriptor for an asset id, building and caching it on first use.
	//
	// Parameters:
	//   - id: the asset identifier
	//
	// Returns:
	//   - Descriptor: the resolved descriptor
	//   - error: *NotFoundError if the id is absent, *ManifestError if its entry cannot be interpreted
	Resolve(id string) (Descriptor, error)

	// IDs returns every known asset id in lexical order.
	//
	// Returns:
	//   - []string: the asset ids
	IDs() []string

	// Filter returns the ids whose metadata category equals category, in lexical order.
	//
	// Parameters:
	//   - category: the category to match
	//
	// Returns:
	//   - []string: the matching asset ids
	Filter(category string) []string

	// Metadata returns a copy of the free-form metadata recorded for an asset.
	//
	// Parameters:
	//   - id: the asset identifier
	//
	// Returns:
	//   - map[string]any: the metadata copy
	//   - error: *NotFoundError if the id is absent
	Metadata(id string) (map[string]any, error)

	// Register adds a descriptor for an asset that is not described by the manifest
	// (e.g. a local file-based object). Registration is refused while a render session is active.
	//
	// Parameters:
	//   - d: the descriptor to add; d.ID must be unique
	//
	// Returns:
	//   - error: error if the id is taken or a session is active
	Register(d Descriptor) error
}

var _ Registry = &registry{}

// Open reads and indexes the manifest at path. The whole manifest is indexed eagerly;
// descriptors are built lazily on first Resolve.
//
// Parameters:
//   - path: the manifest file (JSON or YAML)
//   - options: functional options to configure the registry
//
// Returns:
//   - Registry: the indexed registry
//   - error: *ManifestError if the file cannot be read or parsed
func Open(path string, options ...RegistryBuilderOption) (Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ManifestError{Path: path, Err: err}
	}
	opts := append([]RegistryBuilderOption{withDefaultDataDir(filepath.Dir(path))}, options...)
	return NewRegistry(bytes.NewReader(data), path, opts...)
}

// NewRegistry indexes a manifest document read from r.
//
// Parameters:
//   - r: the manifest document (JSON or YAML)
//   - source: a name for the document used in error messages
//   - options: functional options to configure the registry
//
// Returns:
//   - Registry: the indexed registry
//   - error: *ManifestError if the document cannot be parsed
func NewRegistry(r io.Reader, source string, options ...RegistryBuilderOption) (Registry, error) {
	var doc manifestDocument
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, &ManifestError{Path: source, Err: err}
	}
	if doc.Assets == nil {
		return nil, &ManifestError{Path: source, Err: fmt.Errorf("missing \"assets\" section")}
	}

	reg := newRegistry(source)
	reg.name = doc.Name
	reg.dataDir = doc.DataDir
	reg.entries = doc.Assets
	for _, option := range options {
		option(reg)
	}
	reg.logger.Debug("asset manifest indexed",
		slog.String("source", source),
		slog.String("name", reg.name),
		slog.Int("assets", len(reg.entries)))
	return reg, nil
}

// NewEmptyRegistry creates a registry with no manifest; descriptors come from Register or WithDescriptor.
//
// Parameters:
//   - options: functional options to configure the registry
//
// Returns:
//   - Registry: the empty registry
func NewEmptyRegistry(options ...RegistryBuilderOption) Registry {
	reg := newRegistry("<memory>")
	for _, option := range options {
		option(reg)
	}
	return reg
}

func newRegistry(source string) *registry {
	return &registry{
		mu:      &sync.RWMutex{},
		source:  source,
		entries: make(map[string]manifestEntry),
		cache:   make(map[string]Descriptor),
		logger:  slog.Default(),
	}
}

func (r *registry) Name() string {
	return r.name
}

func (r *registry) Resolve(id string) (Descriptor, error) {
	r.mu.RLock()
	if d, ok := r.cache[id]; ok {
		r.mu.RUnlock()
		return d, nil
	}
	entry, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return Descriptor{}, &NotFoundError{AssetID: id}
	}

	d, err := r.build(id, entry)
	if err != nil {
		return Descriptor{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.cache[id]; ok {
		return cached, nil
	}
	r.cache[id] = d
	return d, nil
}

func (r *registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make(map[string]struct{}, len(r.entries)+len(r.cache))
	for id := range r.entries {
		ids[id] = struct{}{}
	}
	for id := range r.cache {
		ids[id] = struct{}{}
	}
	return slices.Sorted(maps.Keys(ids))
}

func (r *registry) Filter(category string) []string {
	var out []string
	for _, id := range r.IDs() {
		r.mu.RLock()
		entry, inManifest := r.entries[id]
		cached, inCache := r.cache[id]
		r.mu.RUnlock()
		switch {
		case inManifest && entry.category() == category:
			out = append(out, id)
		case !inManifest && inCache && cached.Category == category:
			out = append(out, id)
		}
	}
	return out
}

func (r *registry) Metadata(id string) (map[string]any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.entries[id]; ok {
		return maps.Clone(entry.Metadata), nil
	}
	if d, ok := r.cache[id]; ok {
		return map[string]any{"category": d.Category}, nil
	}
	return nil, &NotFoundError{AssetID: id}
}

func (r *registry) Register(d Descriptor) error {
	if err := r.guard.Check("register asset " + d.ID); err != nil {
		return err
	}
	if d.ID == "" {
		return fmt.Errorf("register asset: empty id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[d.ID]; ok {
		return fmt.Errorf("register asset %q: already declared by manifest %s", d.ID, r.source)
	}
	if _, ok := r.cache[d.ID]; ok {
		return fmt.Errorf("register asset %q: already registered", d.ID)
	}
	r.cache[d.ID] = d
	return nil
}

// build converts a manifest entry into a descriptor, deriving bounds from glTF geometry when
// the entry does not declare them and the file is reachable on the local filesystem.
func (r *registry) build(id string, entry manifestEntry) (Descriptor, error) {
	d := Descriptor{
		ID:             id,
		AssetType:      entry.AssetType,
		Category:       entry.category(),
		RenderFile:     r.resolvePath(id, entry.Kwargs.RenderFilename),
		SimulationFile: r.resolvePath(id, entry.Kwargs.SimulationFilename),
		Static:         entry.Kwargs.Static,
		Background:     entry.Kwargs.Background,
		Mass:           entry.Kwargs.Mass,
		Friction:       entry.Kwargs.Friction,
		Restitution:    entry.Kwargs.Restitution,
	}

	box, ok, err := entry.Kwargs.bounds()
	if err != nil {
		return Descriptor{}, &ManifestError{Path: r.source, AssetID: id, Err: err}
	}
	if ok {
		d.Bounds, d.HasBounds = box, true
		return d, nil
	}

	if d.RenderFile == "" || !isGLTFPath(d.RenderFile) || isRemote(d.RenderFile) {
		return d, nil
	}
	box, err = readGLTFBounds(d.RenderFile)
	if err != nil {
		return Descriptor{}, &ManifestError{Path: d.RenderFile, AssetID: id, Err: err}
	}
	d.Bounds, d.HasBounds = box, true
	r.logger.Debug("derived asset bounds from geometry",
		slog.String("asset_id", id),
		slog.String("render_file", d.RenderFile))
	return d, nil
}

// resolvePath expands the {asset_id} placeholder and anchors relative paths at the data directory.
func (r *registry) resolvePath(id, name string) string {
	if name == "" {
		return ""
	}
	name = strings.ReplaceAll(name, "{asset_id}", id)
	if filepath.IsAbs(name) || isRemote(name) || r.dataDir == "" {
		return name
	}
	if isRemote(r.dataDir) {
		return strings.TrimSuffix(r.dataDir, "/") + "/" + name
	}
	return filepath.Join(r.dataDir, name)
}

// isRemote reports whether a location is a URL rather than a local path. Remote geometry is
// never fetched here; downloading assets is the job of the manifest collaborator.
func isRemote(path string) bool {
	return strings.Contains(path, "://")
}
