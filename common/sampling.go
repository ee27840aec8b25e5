package common

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
)

// NewRNG returns the deterministic random source used for all stochastic placement in a run.
func NewRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// SampleHalfSphereShell draws a point uniformly from the upper half of a spherical shell by
// rejection sampling. Points are restricted to z >= offset.
//
// Parameters:
//   - rng: the random source
//   - inner: the inner shell radius
//   - outer: the outer shell radius (must be > inner and > offset)
//   - offset: the minimum z coordinate
//
// Returns:
//   - mgl32.Vec3: the sampled point
func SampleHalfSphereShell(rng *rand.Rand, inner, outer, offset float32) mgl32.Vec3 {
	uniform := func(lo, hi float32) float32 {
		return lo + rng.Float32()*(hi-lo)
	}
	for {
		v := mgl32.Vec3{
			uniform(-outer, outer),
			uniform(-outer, outer),
			uniform(offset, outer),
		}
		if l := v.Len(); l >= inner && l <= outer {
			return v
		}
	}
}

// RandomUnitQuat samples a rotation uniformly from SO(3) (Shoemake's method).
func RandomUnitQuat(rng *rand.Rand) mgl32.Quat {
	u1, u2, u3 := rng.Float64(), rng.Float64(), rng.Float64()
	a := mgl32.Vec3{
		float32(math.Sqrt(1-u1) * math.Sin(2*math.Pi*u2)),
		float32(math.Sqrt(1-u1) * math.Cos(2*math.Pi*u2)),
		float32(math.Sqrt(u1) * math.Sin(2*math.Pi*u3)),
	}
	w := float32(math.Sqrt(u1) * math.Cos(2*math.Pi*u3))
	return mgl32.Quat{W: w, V: a}.Normalize()
}
