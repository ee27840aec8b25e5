package asset

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-synth/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Common errors returned by the glTF bounds reader
var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.0")
	errInvalidGLBMagic    = errors.New("invalid GLB magic number")
	errInvalidGLBVersion  = errors.New("invalid GLB version: must be 2")
	errMissingJSONChunk   = errors.New("GLB file missing JSON chunk")
	errNoPositions        = errors.New("no mesh primitive declares POSITION min/max")
)

// GLB magic number and chunk type constants
const (
	gltfGLBMagic     = 0x46546C67 // "glTF" in little-endian ASCII
	gltfGLBVersion   = 2
	gltfGLBChunkJSON = 0x4E4F534A // "JSON" in little-endian ASCII
)

// gltfGLBHeader is the header of a GLB file (12 bytes).
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
type gltfGLBHeader struct {
	Magic   uint32
	Version uint32
	Length  uint32
}

// gltfGLBChunkHeader is the header of a GLB chunk (8 bytes).
type gltfGLBChunkHeader struct {
	ChunkLength uint32
	ChunkType   uint32
}

// gltfBoundsDocument is the subset of the glTF 2.0 root needed to derive mesh bounds.
// glTF requires POSITION accessors to carry min and max, so no buffer data is read.
type gltfBoundsDocument struct {
	Asset struct {
		Version string `json:"version"`
	} `json:"asset"`
	Meshes []struct {
		Primitives []struct {
			Attributes map[string]int `json:"attributes"`
		} `json:"primitives"`
	} `json:"meshes"`
	Accessors []struct {
		Type string    `json:"type"`
		Min  []float32 `json:"min"`
		Max  []float32 `json:"max"`
	} `json:"accessors"`
}

// isGLTFPath reports whether a render file is a glTF or GLB document.
func isGLTFPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".gltf" || ext == ".glb"
}

// readGLTFBounds loads a glTF/GLB file and returns the union of all POSITION accessor bounds.
//
// Parameters:
//   - path: path to the .gltf or .glb file
//
// Returns:
//   - common.AABB: the mesh-local bounds
//   - error: error if the file cannot be read or declares no bounded positions
func readGLTFBounds(path string) (common.AABB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return common.AABB{}, fmt.Errorf("failed to read file: %w", err)
	}

	jsonData := data
	if strings.ToLower(filepath.Ext(path)) == ".glb" || (len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic) {
		jsonData, err = glbJSONChunk(data)
		if err != nil {
			return common.AABB{}, err
		}
	}

	var doc gltfBoundsDocument
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return common.AABB{}, fmt.Errorf("failed to parse glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return common.AABB{}, errInvalidGLTFVersion
	}

	box := common.EmptyAABB()
	for _, mesh := range doc.Meshes {
		for _, prim := range mesh.Primitives {
			idx, ok := prim.Attributes["POSITION"]
			if !ok || idx < 0 || idx >= len(doc.Accessors) {
				continue
			}
			acc := doc.Accessors[idx]
			if acc.Type != "VEC3" || len(acc.Min) != 3 || len(acc.Max) != 3 {
				continue
			}
			box = box.Union(common.AABB{
				Min: mgl32.Vec3{acc.Min[0], acc.Min[1], acc.Min[2]},
				Max: mgl32.Vec3{acc.Max[0], acc.Max[1], acc.Max[2]},
			})
		}
	}
	if box.IsEmpty() {
		return common.AABB{}, errNoPositions
	}
	return box, nil
}

// glbJSONChunk extracts the JSON chunk of a GLB container.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
func glbJSONChunk(data []byte) ([]byte, error) {
	if len(data) < 12 {
		return nil, errors.New("GLB file too small")
	}

	r := bytes.NewReader(data)

	var header gltfGLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read GLB header: %w", err)
	}
	if header.Magic != gltfGLBMagic {
		return nil, errInvalidGLBMagic
	}
	if header.Version != gltfGLBVersion {
		return nil, errInvalidGLBVersion
	}

	for {
		var chunkHeader gltfGLBChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunkHeader); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to read chunk header: %w", err)
		}

		chunkData := make([]byte, chunkHeader.ChunkLength)
		if _, err := io.ReadFull(r, chunkData); err != nil {
			return nil, fmt.Errorf("failed to read chunk data: %w", err)
		}
		if chunkHeader.ChunkType == gltfGLBChunkJSON {
			return chunkData, nil
		}
	}
	return nil, errMissingJSONChunk
}
