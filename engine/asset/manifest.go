package asset

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-synth/common"
	"github.com/go-gl/mathgl/mgl32"
)

// manifestDocument is the on-disk manifest layout. JSON manifests decode through the YAML decoder
// because every JSON document is also valid YAML.
type manifestDocument struct {
	Name    string                   `yaml:"name"`
	DataDir string                   `yaml:"data_dir"`
	Version string                   `yaml:"version"`
	Assets  map[string]manifestEntry `yaml:"assets"`
}

// manifestEntry is a single asset record within a manifest.
type manifestEntry struct {
	AssetType string         `yaml:"asset_type"`
	License   string         `yaml:"license"`
	Kwargs    manifestKwargs `yaml:"kwargs"`
	Metadata  map[string]any `yaml:"metadata"`
}

// manifestKwargs holds the construction arguments for an asset.
type manifestKwargs struct {
	RenderFilename     string      `yaml:"render_filename"`
	SimulationFilename string      `yaml:"simulation_filename"`
	Bounds             [][]float32 `yaml:"bounds"`
	Static             bool        `yaml:"static"`
	Background         bool        `yaml:"background"`
	Mass               float32     `yaml:"mass"`
	Friction           float32     `yaml:"friction"`
	Restitution        float32     `yaml:"restitution"`
}

// category reads the "category" field from the entry metadata.
func (e manifestEntry) category() string {
	if c, ok := e.Metadata["category"].(string); ok {
		return c
	}
	return ""
}

// bounds converts the [[min], [max]] kwargs form into an AABB.
//
// Returns:
//   - common.AABB: the parsed bounds
//   - bool: false if the entry declares no bounds
//   - error: error if the bounds are malformed
func (k manifestKwargs) bounds() (common.AABB, bool, error) {
	if len(k.Bounds) == 0 {
		return common.AABB{}, false, nil
	}
	if len(k.Bounds) != 2 || len(k.Bounds[0]) != 3 || len(k.Bounds[1]) != 3 {
		return common.AABB{}, false, fmt.Errorf("bounds must be [[x,y,z],[x,y,z]], got %v", k.Bounds)
	}
	box := common.AABB{
		Min: mgl32.Vec3{k.Bounds[0][0], k.Bounds[0][1], k.Bounds[0][2]},
		Max: mgl32.Vec3{k.Bounds[1][0], k.Bounds[1][1], k.Bounds[1][2]},
	}
	if box.IsEmpty() {
		return common.AABB{}, false, fmt.Errorf("bounds min %v exceeds max %v", box.Min, box.Max)
	}
	return box, true, nil
}
