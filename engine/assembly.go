package engine

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/Carmen-Shannon/oxy-synth/common"
	"github.com/Carmen-Shannon/oxy-synth/config"
	"github.com/Carmen-Shannon/oxy-synth/engine/asset"
	"github.com/Carmen-Shannon/oxy-synth/engine/camera"
	"github.com/Carmen-Shannon/oxy-synth/engine/entity"
	"github.com/Carmen-Shannon/oxy-synth/engine/game_object"
	"github.com/Carmen-Shannon/oxy-synth/engine/keyframe"
	"github.com/Carmen-Shannon/oxy-synth/engine/light"
	"github.com/Carmen-Shannon/oxy-synth/engine/scene"
	"github.com/Carmen-Shannon/oxy-synth/engine/session"
	"github.com/go-gl/mathgl/mgl32"
)

// CubeAsset is the asset id of the built-in unit cube, available without a manifest.
const CubeAsset = "cube"

// Assembly is a scene built from a description, together with its animation and assets.
type Assembly struct {
	Scene    scene.Scene
	Store    keyframe.Store
	Registry asset.Registry

	// Instances is the ordering of the objects of interest, or nil for the default ordering.
	Instances []string
}

// Assemble builds the scene described by cfg. Every random choice (light jitter, object rotation,
// camera placement) is drawn from one source seeded with cfg.Render.Seed, so equal configurations
// assemble equal scenes.
//
// Parameters:
//   - cfg: the validated configuration
//   - logger: the logger shared by the scene, store and registry
//
// Returns:
//   - *Assembly: the assembled scene
//   - error: error if an asset cannot be resolved or an entity or keyframe is rejected
func Assemble(cfg *config.Config, logger *slog.Logger) (*Assembly, error) {
	if logger == nil {
		logger = slog.Default()
	}
	guard := session.NewGuard()
	reg, err := openRegistry(cfg.Paths, guard, logger)
	if err != nil {
		return nil, err
	}

	desc := cfg.Scene
	ambient := mgl32.Vec3(desc.Ambient)
	if desc.Clevr != nil && ambient == (mgl32.Vec3{}) {
		ambient = light.ClevrAmbient
	}
	sc := scene.NewScene(desc.Name,
		scene.WithResolution(cfg.Render.Resolution),
		scene.WithFrameRange(cfg.Render.FrameStart, cfg.Render.FrameEnd),
		scene.WithFrameRate(cfg.Render.FrameRate),
		scene.WithAmbient(ambient),
		scene.WithSessionGuard(guard),
		scene.WithLogger(logger),
	)
	store := keyframe.NewStore(sc, keyframe.WithLogger(logger))
	rng := common.NewRNG(cfg.Render.Seed)

	var lights []light.Light
	if desc.Clevr != nil {
		lights = light.ClevrLights(rng, desc.Clevr.Jitter)
	}
	for _, lc := range desc.Lights {
		lights = append(lights, newLight(lc))
	}
	for _, l := range lights {
		if _, err := sc.Add(l); err != nil {
			return nil, err
		}
	}

	cam := newCamera(desc.Camera)
	if _, err := sc.Add(cam); err != nil {
		return nil, err
	}
	if err := sc.SetCamera(cam.ID()); err != nil {
		return nil, err
	}

	for _, oc := range desc.Objects {
		obj, err := newObject(oc, reg, rng)
		if err != nil {
			return nil, err
		}
		if _, err := sc.Add(obj); err != nil {
			return nil, err
		}
		for _, kc := range oc.Keyframes {
			if err := store.Insert(oc.ID, kc.Property, kc.Frame, entity.Value(kc.Value)); err != nil {
				return nil, fmt.Errorf("object %q: %w", oc.ID, err)
			}
		}
	}

	if err := animateCamera(cam, desc.Camera, store, rng, cfg.Render.FrameStart, cfg.Render.FrameEnd); err != nil {
		return nil, err
	}

	logger.Info("scene assembled",
		slog.String("scene", desc.Name),
		slog.Int("lights", len(lights)),
		slog.Int("objects", len(desc.Objects)),
		slog.String("camera_motion", common.Coalesce(desc.Camera.Motion, config.MotionStatic)))

	return &Assembly{Scene: sc, Store: store, Registry: reg, Instances: desc.Instances}, nil
}

// openRegistry opens the configured manifest, or an empty registry, with the built-in cube registered.
func openRegistry(paths config.PathsConfig, guard *session.Guard, logger *slog.Logger) (asset.Registry, error) {
	options := []asset.RegistryBuilderOption{
		asset.WithSessionGuard(guard),
		asset.WithLogger(logger),
		asset.WithDescriptor(asset.Descriptor{
			ID:        CubeAsset,
			AssetType: "Cube",
			Category:  "primitive",
			Bounds:    common.AABB{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}},
			HasBounds: true,
		}),
	}
	if paths.DataDir != "" {
		options = append(options, asset.WithDataDir(paths.DataDir))
	}
	if paths.Manifest == "" {
		return asset.NewEmptyRegistry(options...), nil
	}
	return asset.Open(paths.Manifest, options...)
}

func newLight(lc config.LightConfig) light.Light {
	position := mgl32.Vec3(lc.Position)
	opts := []light.LightBuilderOption{light.WithPosition(position)}
	if target := mgl32.Vec3(lc.LookAt); target != position {
		opts = append(opts, light.WithLookAt(target))
	}
	if lc.Color != nil {
		opts = append(opts, light.WithColor(mgl32.Vec3(*lc.Color)))
	}
	if lc.Intensity > 0 {
		opts = append(opts, light.WithIntensity(lc.Intensity))
	}
	if lc.Range > 0 {
		opts = append(opts, light.WithRange(lc.Range))
	}
	if lc.OuterCone > 0 {
		opts = append(opts, light.WithSpotCone(lc.InnerCone, lc.OuterCone))
	}
	if lc.Size[0] > 0 && lc.Size[1] > 0 {
		opts = append(opts, light.WithSize(lc.Size[0], lc.Size[1]))
	}

	switch lc.Type {
	case config.LightPoint:
		return light.NewPointLight(lc.ID, opts...)
	case config.LightSpot:
		return light.NewSpotLight(lc.ID, opts...)
	case config.LightArea:
		return light.NewAreaLight(lc.ID, opts...)
	default:
		return light.NewDirectionalLight(lc.ID, opts...)
	}
}

func newCamera(cc config.CameraConfig) camera.Camera {
	position := mgl32.Vec3(cc.Position)
	opts := []camera.CameraBuilderOption{camera.WithPosition(position)}
	if target := mgl32.Vec3(cc.LookAt); target != position {
		opts = append(opts, camera.WithLookAt(target))
	}
	if cc.FocalLength > 0 {
		opts = append(opts, camera.WithFocalLength(cc.FocalLength))
	}
	if cc.SensorWidth > 0 {
		opts = append(opts, camera.WithSensorWidth(cc.SensorWidth))
	}
	if cc.OrthographicScale > 0 {
		opts = append(opts, camera.WithOrthographicScale(cc.OrthographicScale))
	}
	if cc.Near > 0 {
		opts = append(opts, camera.WithNear(cc.Near))
	}
	if cc.Far > 0 {
		opts = append(opts, camera.WithFar(cc.Far))
	}

	if cc.Projection == config.ProjectionOrthographic {
		return camera.NewOrthographicCamera(cc.ID, opts...)
	}
	return camera.NewPerspectiveCamera(cc.ID, opts...)
}

func newObject(oc config.ObjectConfig, reg asset.Registry, rng *rand.Rand) (game_object.GameObject, error) {
	desc, err := reg.Resolve(common.Coalesce(oc.Asset, CubeAsset))
	if err != nil {
		return nil, fmt.Errorf("object %q: %w", oc.ID, err)
	}

	opts := []game_object.GameObjectBuilderOption{
		game_object.WithAsset(desc),
		game_object.WithPosition(mgl32.Vec3(oc.Position)),
	}
	switch {
	case oc.RandomRotation:
		opts = append(opts, game_object.WithQuaternion(common.RandomUnitQuat(rng)))
	case oc.Rotation != nil:
		opts = append(opts, game_object.WithQuaternion(common.QuatFromAxisDegrees(mgl32.Vec3(oc.Rotation.Axis), oc.Rotation.Degrees)))
	}
	if oc.Scale != nil {
		opts = append(opts, game_object.WithScale(mgl32.Vec3(*oc.Scale)))
	}
	if oc.Color != nil {
		opts = append(opts, game_object.WithColor(mgl32.Vec3(*oc.Color)))
	}
	if oc.Background {
		opts = append(opts, game_object.WithBackground(true))
	}

	obj := game_object.NewGameObject(oc.ID, opts...)
	if oc.RestOnFloor {
		if err := obj.RestOnFloor(0); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

// animateCamera keys the camera pose on every frame of the range according to its motion.
// A static camera is not keyed.
func animateCamera(cam camera.Camera, cc config.CameraConfig, store keyframe.Store, rng *rand.Rand, start, end int) error {
	target := mgl32.Vec3(cc.LookAt)

	var place func(frame int) error
	switch cc.Motion {
	case config.MotionShell:
		place = func(int) error {
			if err := cam.SetPosition(common.SampleHalfSphereShell(rng, cc.Shell.Inner, cc.Shell.Outer, cc.Shell.Offset)); err != nil {
				return err
			}
			return cam.LookAt(target)
		}
	case config.MotionOrbit:
		opts := []camera.OrbitOption{
			camera.WithOrbitTarget(target),
			camera.WithAzimuth(mgl32.DegToRad(cc.Orbit.Azimuth)),
			camera.WithElevation(mgl32.DegToRad(cc.Orbit.Elevation)),
			camera.WithOrbitSpeed(mgl32.DegToRad(cc.Orbit.Speed)),
		}
		if cc.Orbit.Radius > 0 {
			opts = append(opts, camera.WithRadius(cc.Orbit.Radius))
		}
		orbit := camera.NewOrbit(opts...)
		place = func(frame int) error {
			return orbit.Apply(cam, frame-start)
		}
	default:
		return nil
	}

	for frame := start; frame <= end; frame++ {
		if err := place(frame); err != nil {
			return fmt.Errorf("camera %q frame %d: %w", cam.ID(), frame, err)
		}
		for _, prop := range []string{entity.PropPosition, entity.PropQuaternion} {
			if err := store.InsertCurrent(cam, prop, frame); err != nil {
				return fmt.Errorf("camera %q frame %d: %w", cam.ID(), frame, err)
			}
		}
	}
	return nil
}
