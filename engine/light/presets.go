package light

import (
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
)

// ClevrAmbient is the ambient illumination that accompanies the CLEVR light rig.
var ClevrAmbient = mgl32.Vec3{0.05, 0.05, 0.05}

// ClevrLights builds the four-light CLEVR studio rig: a sun plus back, key and fill area lamps.
// Each light position is jittered by up to jitter world units per axis (rng may be nil when
// jitter is 0) and then aimed at the origin. The lights are not yet part of a scene, so their
// setters cannot fail.
//
// Parameters:
//   - rng: the random source for jitter
//   - jitter: the maximum per-axis offset
//
// Returns:
//   - []Light: sun, lamp_back, lamp_key, lamp_fill
func ClevrLights(rng *rand.Rand, jitter float32) []Light {
	lights := []Light{
		NewDirectionalLight("sun",
			WithIntensity(0.45),
			WithPosition(mgl32.Vec3{11.6608, -6.62799, 25.8232}),
			WithCastsShadows(true),
		),
		NewAreaLight("lamp_back",
			WithIntensity(50),
			WithSize(1, 1),
			WithPosition(mgl32.Vec3{-1.1685, 2.64602, 5.81574}),
		),
		NewAreaLight("lamp_key",
			WithHexColor(0xffedd0),
			WithIntensity(100),
			WithSize(0.5, 0.5),
			WithPosition(mgl32.Vec3{6.44671, -2.90517, 4.2584}),
		),
		NewAreaLight("lamp_fill",
			WithHexColor(0xc2d0ff),
			WithIntensity(30),
			WithSize(0.5, 0.5),
			WithPosition(mgl32.Vec3{-4.67112, -4.0136, 3.01122}),
		),
	}
	for _, l := range lights {
		if jitter > 0 && rng != nil {
			offset := mgl32.Vec3{rng.Float32(), rng.Float32(), rng.Float32()}.Mul(jitter)
			_ = l.SetPosition(l.Position().Add(offset))
		}
		_ = l.LookAt(mgl32.Vec3{})
	}
	return lights
}
