// Package config holds the application configuration and the declarative scene description a
// render run is assembled from.
package config

import (
	"errors"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/Carmen-Shannon/oxy-synth/common"
)

// Light types.
const (
	LightDirectional = "directional"
	LightPoint       = "point"
	LightSpot        = "spot"
	LightArea        = "area"
)

// Camera projections.
const (
	ProjectionPerspective  = "perspective"
	ProjectionOrthographic = "orthographic"
)

// Camera motions.
const (
	MotionStatic = "static"
	MotionShell  = "shell"
	MotionOrbit  = "orbit"
)

// Channel names accepted by the render configuration.
var channelNames = []any{"rgba", "depth", "segmentation", "normal", "object_coordinates"}

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Render RenderConfig      `yaml:"render"`
	Paths  PathsConfig       `yaml:"paths"`
	Scene  SceneConfig       `yaml:"scene"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Render.Validate(); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := c.Paths.Validate(); err != nil {
		return fmt.Errorf("paths: %w", err)
	}
	if err := c.Scene.Validate(); err != nil {
		return fmt.Errorf("scene: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	Profiling bool       `yaml:"profiling"`
}

// RenderConfig holds the global render settings.
type RenderConfig struct {
	FrameStart             int               `yaml:"frame_start"`
	FrameEnd               int               `yaml:"frame_end"`
	FrameRate              int               `yaml:"frame_rate"`
	Resolution             common.Resolution `yaml:"resolution"`
	Seed                   uint64            `yaml:"seed"`
	Channels               []string          `yaml:"channels"`
	BackgroundTransparency bool              `yaml:"background_transparency"`
	Workers                int               `yaml:"workers"`
}

// Validate validates the render configuration.
func (c *RenderConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.FrameRate, validation.Required, validation.Min(1)),
		validation.Field(&c.Channels, validation.Each(validation.In(channelNames...))),
		validation.Field(&c.Workers, validation.Min(0)),
	); err != nil {
		return err
	}
	if c.FrameEnd < c.FrameStart {
		return fmt.Errorf("frame_end %d precedes frame_start %d", c.FrameEnd, c.FrameStart)
	}
	return validation.ValidateStruct(&c.Resolution,
		validation.Field(&c.Resolution.Width, validation.Required, validation.Min(1)),
		validation.Field(&c.Resolution.Height, validation.Required, validation.Min(1)),
	)
}

// PathsConfig holds the filesystem locations of a run.
type PathsConfig struct {
	// Output receives the frame artifacts and metadata.json.
	Output string `yaml:"output"`
	// State is the file the renderer state is saved to before rendering. Empty disables saving.
	State string `yaml:"state"`
	// Manifest is the asset manifest. Optional when the scene references no assets.
	Manifest string `yaml:"manifest"`
	// DataDir overrides the manifest's data directory.
	DataDir string `yaml:"data_dir"`
}

// Validate validates the paths configuration.
func (c *PathsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Output, validation.Required),
	)
}

// SceneConfig describes the scene graph of a run.
type SceneConfig struct {
	Name    string            `yaml:"name"`
	Ambient [3]float32        `yaml:"ambient"`
	Clevr   *ClevrLightConfig `yaml:"clevr_lights"`
	Lights  []LightConfig     `yaml:"lights"`
	Camera  CameraConfig      `yaml:"camera"`
	Objects []ObjectConfig    `yaml:"objects"`
	// Instances orders the objects of interest; defaults to every non-background object.
	Instances []string `yaml:"instances"`
}

// Validate validates the scene description.
func (c SceneConfig) Validate() error {
	if err := validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Lights),
		validation.Field(&c.Camera),
		validation.Field(&c.Objects),
	); err != nil {
		return err
	}

	ids := map[string]bool{c.Camera.ID: true}
	for _, l := range c.Lights {
		if ids[l.ID] {
			return fmt.Errorf("duplicate entity id %q", l.ID)
		}
		ids[l.ID] = true
	}
	objects := map[string]bool{}
	for _, o := range c.Objects {
		if ids[o.ID] {
			return fmt.Errorf("duplicate entity id %q", o.ID)
		}
		ids[o.ID] = true
		objects[o.ID] = true
	}
	for _, id := range c.Instances {
		if !objects[id] {
			return fmt.Errorf("instance %q is not an object of the scene", id)
		}
	}
	return nil
}

// ClevrLightConfig enables the CLEVR studio light rig.
type ClevrLightConfig struct {
	// Jitter is the maximum per-axis random offset of each lamp.
	Jitter float32 `yaml:"jitter"`
}

// LightConfig describes one light.
type LightConfig struct {
	ID        string      `yaml:"id"`
	Type      string      `yaml:"type"`
	Position  [3]float32  `yaml:"position"`
	LookAt    [3]float32  `yaml:"look_at"`
	Color     *[3]float32 `yaml:"color"`
	Intensity float32     `yaml:"intensity"`
	Range     float32     `yaml:"range"`
	InnerCone float32     `yaml:"inner_cone"`
	OuterCone float32     `yaml:"outer_cone"`
	Size      [2]float32  `yaml:"size"`
}

// Validate validates the light description.
func (c LightConfig) Validate() error {
	if err := validation.ValidateStruct(&c,
		validation.Field(&c.ID, validation.Required),
		validation.Field(&c.Type, validation.Required, validation.In(LightDirectional, LightPoint, LightSpot, LightArea)),
		validation.Field(&c.Intensity, validation.Min(float32(0))),
	); err != nil {
		return err
	}
	if c.Type == LightSpot && c.OuterCone < c.InnerCone {
		return errors.New("outer_cone must not be smaller than inner_cone")
	}
	return nil
}

// CameraConfig describes the active camera and how it moves over the frame range.
type CameraConfig struct {
	ID                string      `yaml:"id"`
	Projection        string      `yaml:"projection"`
	Position          [3]float32  `yaml:"position"`
	LookAt            [3]float32  `yaml:"look_at"`
	FocalLength       float32     `yaml:"focal_length"`
	SensorWidth       float32     `yaml:"sensor_width"`
	OrthographicScale float32     `yaml:"orthographic_scale"`
	Near              float32     `yaml:"near"`
	Far               float32     `yaml:"far"`
	Motion            string      `yaml:"motion"`
	Shell             ShellConfig `yaml:"shell"`
	Orbit             OrbitConfig `yaml:"orbit"`
}

// Validate validates the camera description.
func (c CameraConfig) Validate() error {
	if err := validation.ValidateStruct(&c,
		validation.Field(&c.ID, validation.Required),
		validation.Field(&c.Projection, validation.Required, validation.In(ProjectionPerspective, ProjectionOrthographic)),
		validation.Field(&c.Motion, validation.In(MotionStatic, MotionShell, MotionOrbit)),
		validation.Field(&c.FocalLength, validation.Min(float32(0))),
		validation.Field(&c.SensorWidth, validation.Min(float32(0))),
		validation.Field(&c.OrthographicScale, validation.Min(float32(0))),
	); err != nil {
		return err
	}
	if c.Far != 0 && c.Far <= c.Near {
		return fmt.Errorf("far %v must exceed near %v", c.Far, c.Near)
	}
	if c.Motion == MotionShell {
		return c.Shell.Validate()
	}
	return nil
}

// ShellConfig places the camera at a random point of an upper half-sphere shell each frame.
type ShellConfig struct {
	Inner  float32 `yaml:"inner"`
	Outer  float32 `yaml:"outer"`
	Offset float32 `yaml:"offset"`
}

// Validate validates the shell parameters.
func (c ShellConfig) Validate() error {
	if c.Inner < 0 || c.Outer <= c.Inner || c.Outer <= c.Offset {
		return fmt.Errorf("shell requires 0 <= inner < outer and offset < outer, got inner=%v outer=%v offset=%v",
			c.Inner, c.Outer, c.Offset)
	}
	return nil
}

// OrbitConfig moves the camera around its look-at point by a fixed step per frame.
type OrbitConfig struct {
	Radius    float32 `yaml:"radius"`
	Azimuth   float32 `yaml:"azimuth"`
	Elevation float32 `yaml:"elevation"`
	// Speed is the azimuth step per frame in degrees.
	Speed float32 `yaml:"speed"`
}

// ObjectConfig describes one mesh object instance.
type ObjectConfig struct {
	ID       string     `yaml:"id"`
	Asset    string     `yaml:"asset"`
	Position [3]float32 `yaml:"position"`
	// Rotation is an axis-angle rotation; RandomRotation replaces it with a uniformly random one.
	Rotation       *AxisAngle  `yaml:"rotation"`
	RandomRotation bool        `yaml:"random_rotation"`
	Scale          *[3]float32 `yaml:"scale"`
	Color          *[3]float32 `yaml:"color"`
	// RestOnFloor lifts or lowers the object so its bounds touch z = 0.
	RestOnFloor bool             `yaml:"rest_on_floor"`
	Background  bool             `yaml:"background"`
	Keyframes   []KeyframeConfig `yaml:"keyframes"`
}

// Validate validates the object description.
func (c ObjectConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ID, validation.Required),
		validation.Field(&c.Keyframes),
	)
}

// AxisAngle is a rotation of Degrees around Axis.
type AxisAngle struct {
	Axis    [3]float32 `yaml:"axis"`
	Degrees float32    `yaml:"degrees"`
}

// KeyframeConfig keys one property of an object at a frame.
type KeyframeConfig struct {
	Frame    int       `yaml:"frame"`
	Property string    `yaml:"property"`
	Value    []float32 `yaml:"value"`
}

// Validate validates the keyframe.
func (c KeyframeConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Property, validation.Required),
		validation.Field(&c.Value, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values: the helloworld scene of one
// orthographic camera looking down at the origin under a single sun.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Render: RenderConfig{
			FrameStart: 1,
			FrameEnd:   1,
			FrameRate:  24,
			Resolution: common.Resolution{Width: 256, Height: 256},
			Channels:   []string{"rgba", "depth", "segmentation"},
		},
		Paths: PathsConfig{
			Output: "./output",
		},
		Scene: SceneConfig{
			Name: "helloworld",
			Lights: []LightConfig{
				{ID: "sun", Type: LightDirectional, Position: [3]float32{-1, -0.5, 3}, Intensity: 1},
			},
			Camera: CameraConfig{
				ID:                "camera",
				Projection:        ProjectionOrthographic,
				Position:          [3]float32{0, 0, 3},
				OrthographicScale: 2.2,
			},
		},
	}
}
