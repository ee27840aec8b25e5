package postprocess

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-synth/common"
	"github.com/Carmen-Shannon/oxy-synth/engine/camera"
	"github.com/Carmen-Shannon/oxy-synth/engine/entity"
	"github.com/Carmen-Shannon/oxy-synth/engine/game_object"
	"github.com/Carmen-Shannon/oxy-synth/engine/keyframe"
	"github.com/Carmen-Shannon/oxy-synth/engine/renderer"
	"github.com/Carmen-Shannon/oxy-synth/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Record is the structured metadata of one run.
type Record struct {
	Metadata  SceneMetadata  `json:"metadata"`
	Camera    CameraInfo     `json:"camera"`
	Instances []InstanceInfo `json:"instances"`
}

// SceneMetadata describes the run as a whole.
type SceneMetadata struct {
	RunID        string            `json:"run_id"`
	Scene        string            `json:"scene"`
	Resolution   common.Resolution `json:"resolution"`
	FrameStart   int               `json:"frame_start"`
	FrameEnd     int               `json:"frame_end"`
	FrameRate    int               `json:"frame_rate"`
	Seed         uint64            `json:"seed"`
	NumInstances int               `json:"num_instances"`
}

// CameraInfo holds the active camera's intrinsics and its per-frame extrinsics.
type CameraInfo struct {
	ID                string          `json:"id"`
	Projection        string          `json:"projection"`
	FocalLength       float32         `json:"focal_length,omitempty"`
	SensorWidth       float32         `json:"sensor_width,omitempty"`
	SensorHeight      float32         `json:"sensor_height,omitempty"`
	FieldOfView       float32         `json:"field_of_view"`
	OrthographicScale float32         `json:"orthographic_scale,omitempty"`
	K                 [3][3]float32   `json:"K"`
	Positions         [][3]float32    `json:"positions"`
	Quaternions       [][4]float32    `json:"quaternions"`
	MatrixWorld       [][4][4]float32 `json:"matrix_world"`
}

// InstanceInfo holds one object of interest over the rendered range. Slices are aligned with the
// frame range; bounding boxes are listed only for frames where the object is visible.
type InstanceInfo struct {
	ID                string       `json:"id"`
	AssetID           string       `json:"asset_id"`
	SegmentationIndex int          `json:"segmentation_index"`
	Bounds            *common.AABB `json:"bounds,omitempty"`
	Positions         [][3]float32 `json:"positions"`
	Quaternions       [][4]float32 `json:"quaternions"`
	Visibility        []int        `json:"visibility"`
	BBoxFrames        []int        `json:"bbox_frames"`
	BBoxes            [][4]float32 `json:"bboxes"`
}

// NewSceneMetadata describes the run. Each call draws a fresh time-ordered run id.
//
// Parameters:
//   - sc: the rendered scene
//   - seed: the run's random seed
//   - numInstances: the number of objects of interest
//
// Returns:
//   - SceneMetadata: the record
//   - error: error if a run id cannot be generated
func NewSceneMetadata(sc scene.Scene, seed uint64, numInstances int) (SceneMetadata, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return SceneMetadata{}, fmt.Errorf("generate run id: %w", err)
	}
	start, end := sc.FrameRange()
	return SceneMetadata{
		RunID:        id.String(),
		Scene:        sc.Name(),
		Resolution:   sc.Resolution(),
		FrameStart:   start,
		FrameEnd:     end,
		FrameRate:    sc.FrameRate(),
		Seed:         seed,
		NumInstances: numInstances,
	}, nil
}

// CameraTrack samples the active camera over the scene's frame range. Keyframed properties are
// interpolated the way the renderer evaluates them; the rest keep their current value.
//
// Parameters:
//   - sc: the scene
//   - store: the keyframe store
//
// Returns:
//   - CameraInfo: the camera record
//   - error: error if the scene has no active camera
func CameraTrack(sc scene.Scene, store keyframe.Store) (CameraInfo, error) {
	cam := sc.Camera()
	if cam == nil {
		return CameraInfo{}, fmt.Errorf("camera metadata: %w", renderer.ErrNoCamera)
	}
	res := sc.Resolution()
	start, end := sc.FrameRange()

	first, err := cameraAt(cam, store, start)
	if err != nil {
		return CameraInfo{}, err
	}
	info := CameraInfo{
		ID:          cam.ID(),
		Projection:  cam.Projection().String(),
		FieldOfView: first.FieldOfView(),
		K:           mat3Rows(first.Intrinsics(res)),
	}
	if cam.Projection() == camera.ProjectionOrthographic {
		info.OrthographicScale = first.OrthographicScale()
	} else {
		info.FocalLength = first.FocalLength()
		info.SensorWidth = first.SensorWidth()
		info.SensorHeight = first.SensorHeight(res)
	}

	for frame := start; frame <= end; frame++ {
		posed, err := cameraAt(cam, store, frame)
		if err != nil {
			return CameraInfo{}, err
		}
		info.Positions = append(info.Positions, vec3(posed.Position()))
		info.Quaternions = append(info.Quaternions, quat(posed.Quaternion()))
		info.MatrixWorld = append(info.MatrixWorld, mat4Rows(posed.MatrixWorld()))
	}
	return info, nil
}

// InstanceTrack assembles the per-object records for the objects of interest. The object at
// order[i] is reported with segmentation index i+1.
//
// Parameters:
//   - sc: the scene
//   - store: the keyframe store
//   - order: the object ordering used for the remap
//   - vis: the visibility of the rendered range
//   - remapped: the remapped instance index maps, aligned with vis.Frames
//
// Returns:
//   - []InstanceInfo: one record per ordered object
//   - error: error if an ordered id is not an object in the scene or the inputs disagree
func InstanceTrack(sc scene.Scene, store keyframe.Store, order []string, vis Visibility, remapped []*renderer.Array) ([]InstanceInfo, error) {
	if len(remapped) != len(vis.Frames) {
		return nil, fmt.Errorf("%w: %d remapped maps for %d frames", ErrShape, len(remapped), len(vis.Frames))
	}
	out := make([]InstanceInfo, 0, len(order))
	for i, id := range order {
		e, err := sc.Get(id)
		if err != nil {
			return nil, fmt.Errorf("instance metadata: %w", err)
		}
		obj, ok := e.(game_object.GameObject)
		if !ok {
			return nil, fmt.Errorf("instance metadata: %s entity %q is not an object", e.Kind(), id)
		}

		info := InstanceInfo{
			ID:                id,
			AssetID:           obj.AssetID(),
			SegmentationIndex: i + 1,
			Visibility:        make([]int, len(vis.Frames)),
			BBoxFrames:        []int{},
			BBoxes:            [][4]float32{},
		}
		if d := obj.Asset(); d.HasBounds {
			b := d.Bounds
			info.Bounds = &b
		}
		copy(info.Visibility, vis.Counts[id])

		for k, frame := range vis.Frames {
			values, err := valuesAt(obj, store, frame)
			if err != nil {
				return nil, err
			}
			info.Positions = append(info.Positions, [3]float32(values[entity.PropPosition]))
			info.Quaternions = append(info.Quaternions, [4]float32(values[entity.PropQuaternion]))

			if box, ok := imageBBox(remapped[k], uint32(i+1)); ok {
				info.BBoxFrames = append(info.BBoxFrames, frame)
				info.BBoxes = append(info.BBoxes, box)
			}
		}
		out = append(out, info)
	}
	return out, nil
}

// imageBBox returns the normalized (ymin, xmin, ymax, xmax) box of the pixels carrying index.
func imageBBox(m *renderer.Array, index uint32) ([4]float32, bool) {
	xmin, ymin, xmax, ymax := m.Width, m.Height, -1, -1
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.LabelAt(x, y) != index {
				continue
			}
			xmin, ymin = min(xmin, x), min(ymin, y)
			xmax, ymax = max(xmax, x), max(ymax, y)
		}
	}
	if xmax < 0 {
		return [4]float32{}, false
	}
	w, h := float32(m.Width), float32(m.Height)
	return [4]float32{float32(ymin) / h, float32(xmin) / w, float32(ymax+1) / h, float32(xmax+1) / w}, true
}

// valuesAt evaluates every property of e at frame.
func valuesAt(e entity.Entity, store keyframe.Store, frame int) (map[string]entity.Value, error) {
	out := make(map[string]entity.Value, len(e.Properties()))
	for _, name := range e.Properties() {
		var track []keyframe.Keyframe
		for f, v := range store.TrackFor(e.ID(), name) {
			track = append(track, keyframe.Keyframe{Frame: f, Value: v})
		}
		if len(track) > 0 {
			out[name] = keyframe.Sample(track, name, frame, keyframe.InterpolationLinear)
			continue
		}
		v, err := e.Property(name)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// cameraAt returns a detached copy of cam posed at frame.
func cameraAt(cam camera.Camera, store keyframe.Store, frame int) (camera.Camera, error) {
	opts := []camera.CameraBuilderOption{camera.WithNear(cam.Near()), camera.WithFar(cam.Far())}
	var out camera.Camera
	if cam.Projection() == camera.ProjectionOrthographic {
		out = camera.NewOrthographicCamera(cam.ID(), opts...)
	} else {
		out = camera.NewPerspectiveCamera(cam.ID(), opts...)
	}
	values, err := valuesAt(cam, store, frame)
	if err != nil {
		return nil, err
	}
	for name, v := range values {
		if err := out.SetProperty(name, v); err != nil {
			return nil, fmt.Errorf("camera metadata at frame %d: %w", frame, err)
		}
	}
	return out, nil
}

func vec3(v mgl32.Vec3) [3]float32 {
	return [3]float32(v)
}

func quat(q mgl32.Quat) [4]float32 {
	return [4]float32{q.W, q.V[0], q.V[1], q.V[2]}
}

func mat3Rows(m mgl32.Mat3) [3][3]float32 {
	var out [3][3]float32
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r][c] = m.At(r, c)
		}
	}
	return out
}

func mat4Rows(m mgl32.Mat4) [4][4]float32 {
	var out [4][4]float32
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[r][c] = m.At(r, c)
		}
	}
	return out
}
