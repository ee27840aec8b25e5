// Package renderer bridges the scene graph to a renderer collaborator. The Adapter keeps a linked
// representation of each entity inside a Backend and pushes property and keyframe state to it;
// the Collector drives the backend frame by frame and gathers the per-channel output arrays.
package renderer

import (
	"context"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-synth/common"
	"github.com/Carmen-Shannon/oxy-synth/engine/entity"
	"github.com/Carmen-Shannon/oxy-synth/engine/keyframe"
	"github.com/go-gl/mathgl/mgl32"
)

// Channel names one output modality of an evaluated frame.
type Channel string

const (
	// ChannelRGBA is the shaded color image, 4 float components in [0, 1].
	ChannelRGBA Channel = "rgba"

	// ChannelDepth is the view-space distance along the camera axis, 1 component.
	ChannelDepth Channel = "depth"

	// ChannelSegmentation is the raw instance label map; 0 is background.
	ChannelSegmentation Channel = "segmentation"

	// ChannelNormal is the world-space surface normal, 3 components.
	ChannelNormal Channel = "normal"

	// ChannelObjectCoordinates is the object-space surface position normalized to the asset bounds, 3 components.
	ChannelObjectCoordinates Channel = "object_coordinates"
)

// DefaultChannels are the channels rendered when none are requested explicitly.
var DefaultChannels = []Channel{ChannelRGBA, ChannelDepth, ChannelSegmentation}

// Components returns the number of values per pixel the channel carries.
func (c Channel) Components() int {
	switch c {
	case ChannelRGBA:
		return 4
	case ChannelNormal, ChannelObjectCoordinates:
		return 3
	}
	return 1
}

// IsLabel reports whether the channel carries integer labels rather than floats.
func (c Channel) IsLabel() bool {
	return c == ChannelSegmentation
}

// ParseChannel validates a channel name.
//
// Parameters:
//   - name: the channel name
//
// Returns:
//   - Channel: the channel
//   - error: *UnsupportedChannelError if the name is not a known channel
func ParseChannel(name string) (Channel, error) {
	c := Channel(name)
	if !slices.Contains([]Channel{ChannelRGBA, ChannelDepth, ChannelSegmentation, ChannelNormal, ChannelObjectCoordinates}, c) {
		return "", &UnsupportedChannelError{Channel: c}
	}
	return c, nil
}

// Handle is an opaque reference to a linked representation inside a Backend.
type Handle uint64

func (h Handle) String() string {
	return fmt.Sprintf("handle(%d)", uint64(h))
}

// Update is the complete state pushed to a linked representation in one Apply call: the entity's
// current property values and every keyframe of its tracks.
type Update struct {
	Properties map[string]entity.Value
	Keyframes  map[string][]keyframe.Keyframe
}

// FrameRequest describes one frame evaluation.
type FrameRequest struct {
	// Frame is the frame index to evaluate keyframed state at.
	Frame int

	// Camera is the linked representation of the active camera.
	Camera Handle

	// Resolution is the output size of every channel.
	Resolution common.Resolution

	// Ambient is the scene's ambient illumination.
	Ambient mgl32.Vec3

	// Transparent renders the background with zero alpha.
	Transparent bool

	// Channels are the modalities to produce.
	Channels []Channel
}

// Backend is the renderer collaborator capability set. Implementations must apply an Update
// all-or-nothing: when Apply returns an error the linked representation is unchanged.
type Backend interface {
	// Materialize creates the linked representation of an entity.
	//
	// Parameters:
	//   - e: the entity
	//
	// Returns:
	//   - Handle: the new linked representation
	//   - error: error if the entity kind is not supported
	Materialize(e entity.Entity) (Handle, error)

	// Apply replaces the linked representation's state.
	//
	// Parameters:
	//   - h: the linked representation
	//   - u: the full property and keyframe state
	//
	// Returns:
	//   - error: error if any part of the update is rejected; nothing is applied in that case
	Apply(h Handle, u Update) error

	// Evaluate renders one frame.
	//
	// Parameters:
	//   - ctx: cancels the evaluation
	//   - req: the frame to render
	//
	// Returns:
	//   - map[Channel]*Array: one array per requested channel
	//   - error: *UnsupportedChannelError or an evaluation failure
	Evaluate(ctx context.Context, req FrameRequest) (map[Channel]*Array, error)

	// Label returns the raw segmentation label assigned to an object's linked representation.
	// Labels are stable for the life of the handle only.
	//
	// Parameters:
	//   - h: the linked representation
	//
	// Returns:
	//   - uint32: the raw label
	//   - error: error if the handle is unknown or not an object
	Label(h Handle) (uint32, error)

	// SaveState persists the backend's scene state to path.
	//
	// Parameters:
	//   - path: the destination file
	//
	// Returns:
	//   - error: error if the state cannot be written
	SaveState(path string) error

	// Release destroys a linked representation.
	//
	// Parameters:
	//   - h: the linked representation
	//
	// Returns:
	//   - error: error if the handle is unknown
	Release(h Handle) error

	// Close releases every resource held by the backend.
	//
	// Returns:
	//   - error: error if teardown fails
	Close() error
}
