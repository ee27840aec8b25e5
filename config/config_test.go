package config

import (
	"log/slog"
	"strings"
	"testing"

	pkgconfig "github.com/Carmen-Shannon/oxy-synth/pkg/config"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
	if cfg.Scene.Camera.Projection != ProjectionOrthographic {
		t.Errorf("projection = %q, want %q", cfg.Scene.Camera.Projection, ProjectionOrthographic)
	}
}

func TestRenderConfig_EmptyFrameRange(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Render.FrameStart, cfg.Render.FrameEnd = 5, 4
	err := cfg.Validate()
	if err == nil {
		t.Fatal("frame_end before frame_start should fail")
	}
	if !strings.Contains(err.Error(), "precedes") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRenderConfig_UnknownChannel(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Render.Channels = []string{"rgba", "albedo"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown channel should fail validation")
	}
}

func TestRenderConfig_ZeroResolution(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Render.Resolution.Height = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero height should fail validation")
	}
}

func TestSceneConfig_DuplicateIDs(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Scene.Objects = []ObjectConfig{{ID: "sun"}}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("object sharing a light id should fail")
	}
	if !strings.Contains(err.Error(), `duplicate entity id "sun"`) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSceneConfig_InstanceMustBeObject(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Scene.Objects = []ObjectConfig{{ID: "cube"}}
	cfg.Scene.Instances = []string{"cube", "camera"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("camera listed as instance should fail")
	}
}

func TestLightConfig_InvalidType(t *testing.T) {
	cfg := LightConfig{ID: "l", Type: "laser"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid light type should fail validation")
	}
}

func TestLightConfig_SpotCone(t *testing.T) {
	cfg := LightConfig{ID: "l", Type: LightSpot, InnerCone: 30, OuterCone: 20}
	if err := cfg.Validate(); err == nil {
		t.Fatal("outer cone narrower than inner cone should fail")
	}
	cfg.OuterCone = 40
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid spot cone should pass: %v", err)
	}
}

func TestCameraConfig_Shell(t *testing.T) {
	cfg := CameraConfig{ID: "c", Projection: ProjectionPerspective, Motion: MotionShell,
		Shell: ShellConfig{Inner: 12, Outer: 8}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("inverted shell should fail validation")
	}
	cfg.Shell = ShellConfig{Inner: 8, Outer: 12, Offset: 1}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid shell should pass: %v", err)
	}
}

func TestCameraConfig_InvalidMotion(t *testing.T) {
	cfg := CameraConfig{ID: "c", Projection: ProjectionPerspective, Motion: "dolly"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid motion should fail validation")
	}
}

func TestObjectConfig_KeyframeNeedsValue(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Scene.Objects = []ObjectConfig{{ID: "cube", Keyframes: []KeyframeConfig{{Frame: 1, Property: "position"}}}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("keyframe without value should fail validation")
	}
}

func TestSampleConfig_Loads(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load("config.yaml", cfg); err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if cfg.Scene.Name != "cubesat" {
		t.Errorf("scene = %q, want %q", cfg.Scene.Name, "cubesat")
	}
	if cfg.App.LogLevel != slog.LevelInfo {
		t.Errorf("log level = %v, want INFO", cfg.App.LogLevel)
	}
	if got := len(cfg.Scene.Objects); got != 3 {
		t.Errorf("objects = %d, want 3", got)
	}
	if cfg.Scene.Camera.Motion != MotionShell {
		t.Errorf("motion = %q, want %q", cfg.Scene.Camera.Motion, MotionShell)
	}
}
