package renderer

import (
	"fmt"
	"slices"
)

// FrameStack is the per-channel sequence of arrays produced over a contiguous frame range.
// Every channel holds exactly one array per entry of Frames, and Frames is dense from FrameStart.
type FrameStack struct {
	FrameStart int
	Frames     []int
	Channels   map[Channel][]*Array
}

// NewFrameStack creates an empty stack for the given channels.
//
// Parameters:
//   - start: the first frame the stack will hold
//   - channels: the channels every frame must provide
//
// Returns:
//   - *FrameStack: the empty stack
func NewFrameStack(start int, channels []Channel) *FrameStack {
	fs := &FrameStack{
		FrameStart: start,
		Channels:   make(map[Channel][]*Array, len(channels)),
	}
	for _, c := range channels {
		fs.Channels[c] = nil
	}
	return fs
}

// Len returns the number of frames in the stack.
func (fs *FrameStack) Len() int {
	return len(fs.Frames)
}

// Append adds the next frame. The frame must directly follow the last one and provide every channel.
//
// Parameters:
//   - frame: the frame index
//   - out: the evaluated channels
//
// Returns:
//   - error: error if the frame is out of order or a channel is missing
func (fs *FrameStack) Append(frame int, out map[Channel]*Array) error {
	if want := fs.FrameStart + len(fs.Frames); frame != want {
		return fmt.Errorf("frame stack: got frame %d, want %d", frame, want)
	}
	for c := range fs.Channels {
		if out[c] == nil {
			return fmt.Errorf("frame stack: frame %d is missing channel %q", frame, string(c))
		}
	}
	for c := range fs.Channels {
		fs.Channels[c] = append(fs.Channels[c], out[c])
	}
	fs.Frames = append(fs.Frames, frame)
	return nil
}

// ChannelNames returns the stack's channels in lexical order.
func (fs *FrameStack) ChannelNames() []Channel {
	out := make([]Channel, 0, len(fs.Channels))
	for c := range fs.Channels {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// Frame returns every channel of the i-th frame in the stack.
//
// Parameters:
//   - i: the position in Frames
//
// Returns:
//   - map[Channel]*Array: the channels of that frame
func (fs *FrameStack) Frame(i int) map[Channel]*Array {
	out := make(map[Channel]*Array, len(fs.Channels))
	for c, arrays := range fs.Channels {
		out[c] = arrays[i]
	}
	return out
}
