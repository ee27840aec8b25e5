package keyframe

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-synth/common"
	"github.com/Carmen-Shannon/oxy-synth/engine/entity"
	"github.com/go-gl/mathgl/mgl32"
)

// Interpolation selects how a track is evaluated between two keyframes.
type Interpolation int

const (
	// InterpolationLinear blends neighbouring keys; quaternions use a shortest-path slerp.
	InterpolationLinear Interpolation = iota

	// InterpolationHold keeps the value of the last key at or before the frame.
	InterpolationHold
)

// Sample evaluates a frame-ordered track at frame. Frames before the first key take the first
// value and frames after the last key take the last value. An empty track yields nil.
//
// Parameters:
//   - track: keyframes in strictly increasing frame order
//   - property: the property name, used to pick quaternion interpolation
//   - frame: the frame to evaluate
//   - mode: linear or hold
//
// Returns:
//   - entity.Value: a fresh value
func Sample(track []Keyframe, property string, frame int, mode Interpolation) entity.Value {
	if len(track) == 0 {
		return nil
	}
	i := sort.Search(len(track), func(i int) bool { return track[i].Frame >= frame })
	switch {
	case i < len(track) && track[i].Frame == frame:
		return track[i].Value.Clone()
	case i == 0:
		return track[0].Value.Clone()
	case i == len(track):
		return track[len(track)-1].Value.Clone()
	}

	a, b := track[i-1], track[i]
	if mode == InterpolationHold || len(a.Value) != len(b.Value) {
		return a.Value.Clone()
	}
	t := float32(frame-a.Frame) / float32(b.Frame-a.Frame)
	if property == entity.PropQuaternion && len(a.Value) == 4 {
		return slerp(a.Value, b.Value, t)
	}
	out := make(entity.Value, len(a.Value))
	for k := range out {
		out[k] = a.Value[k] + (b.Value[k]-a.Value[k])*t
	}
	return out
}

func slerp(a, b entity.Value, t float32) entity.Value {
	qa, qb := common.QuatFromSlice(a).Normalize(), common.QuatFromSlice(b).Normalize()
	if qa.Dot(qb) < 0 {
		qb = qb.Scale(-1)
	}
	return entity.Value(common.QuatToSlice(mgl32.QuatSlerp(qa, qb, t).Normalize()))
}
