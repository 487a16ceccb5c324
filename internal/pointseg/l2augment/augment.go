package l2augment

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/pointseg/internal/config"
)

// Transform is one coordinate augmentation. Implementations return a new
// slice and never mutate their input.
type Transform interface {
	Apply(coords []r3.Vec, rng *rand.Rand) []r3.Vec
}

// Rotation draws one angle per axis inside Bounds[axis] = {lo, hi} and
// applies the three axis rotations composed in a random order.
type Rotation struct {
	Bounds [3][2]float64
}

// Apply rotates every point as a row vector: p' = p·R.
func (r Rotation) Apply(coords []r3.Vec, rng *rand.Rand) []r3.Vec {
	mats := make([]*mat.Dense, 3)
	for axis, b := range r.Bounds {
		mats[axis] = axisRotation(axis, uniform(rng, b[0], b[1]))
	}
	rng.Shuffle(len(mats), func(i, j int) { mats[i], mats[j] = mats[j], mats[i] })

	var tmp, rot mat.Dense
	tmp.Mul(mats[0], mats[1])
	rot.Mul(&tmp, mats[2])

	out := make([]r3.Vec, len(coords))
	for i, p := range coords {
		out[i] = r3.Vec{
			X: p.X*rot.At(0, 0) + p.Y*rot.At(1, 0) + p.Z*rot.At(2, 0),
			Y: p.X*rot.At(0, 1) + p.Y*rot.At(1, 1) + p.Z*rot.At(2, 1),
			Z: p.X*rot.At(0, 2) + p.Y*rot.At(1, 2) + p.Z*rot.At(2, 2),
		}
	}
	return out
}

// axisRotation returns the right-handed rotation by theta about axis 0/1/2.
func axisRotation(axis int, theta float64) *mat.Dense {
	c, s := math.Cos(theta), math.Sin(theta)
	switch axis {
	case 0:
		return mat.NewDense(3, 3, []float64{1, 0, 0, 0, c, -s, 0, s, c})
	case 1:
		return mat.NewDense(3, 3, []float64{c, 0, s, 0, 1, 0, -s, 0, c})
	default:
		return mat.NewDense(3, 3, []float64{c, -s, 0, s, c, 0, 0, 0, 1})
	}
}

// Translation shifts the whole cloud with probability Probability by
// uniform(-Fraction, Fraction) of the bounding-box extent on each axis.
type Translation struct {
	Probability float64
	Fraction    float64
}

// Apply returns a shifted copy of coords. A degenerate extent yields no shift.
func (t Translation) Apply(coords []r3.Vec, rng *rand.Rand) []r3.Vec {
	out := append([]r3.Vec(nil), coords...)
	if len(coords) == 0 || rng.Float64() >= t.Probability {
		return out
	}
	lo, hi := Bounds(coords)
	ext := r3.Sub(hi, lo)
	shift := r3.Vec{
		X: uniform(rng, -t.Fraction, t.Fraction) * ext.X,
		Y: uniform(rng, -t.Fraction, t.Fraction) * ext.Y,
		Z: uniform(rng, -t.Fraction, t.Fraction) * ext.Z,
	}
	for i := range out {
		out[i] = r3.Add(out[i], shift)
	}
	return out
}

// Scale multiplies every coordinate by one scalar drawn from [Min, Max).
type Scale struct {
	Min, Max float64
}

// Apply returns a scaled copy of coords.
func (s Scale) Apply(coords []r3.Vec, rng *rand.Rand) []r3.Vec {
	f := uniform(rng, s.Min, s.Max)
	out := make([]r3.Vec, len(coords))
	for i, p := range coords {
		out[i] = r3.Scale(f, p)
	}
	return out
}

// Augmenter applies rotation, then translation jitter, then scale.
type Augmenter struct {
	Rotation    Rotation
	Translation Translation
	Scale       Scale
}

// DefaultAugmenter mirrors the S3DIS training setup: tilt within ±π/32,
// full yaw, 50% translation jitter, scale in [0.9, 1.1).
func DefaultAugmenter() Augmenter {
	return NewAugmenter(config.EmptyDatasetConfig())
}

// NewAugmenter builds an Augmenter from the dataset configuration.
func NewAugmenter(cfg *config.DatasetConfig) Augmenter {
	xy, z := cfg.GetRotationBoundXY(), cfg.GetRotationBoundZ()
	return Augmenter{
		Rotation:    Rotation{Bounds: [3][2]float64{{-xy, xy}, {-xy, xy}, {-z, z}}},
		Translation: Translation{Probability: cfg.GetShiftProbability(), Fraction: cfg.GetShiftFraction()},
		Scale:       Scale{Min: cfg.GetScaleMin(), Max: cfg.GetScaleMax()},
	}
}

// Apply runs the three transforms in their fixed order.
func (a Augmenter) Apply(coords []r3.Vec, rng *rand.Rand) []r3.Vec {
	coords = a.Rotation.Apply(coords, rng)
	coords = a.Translation.Apply(coords, rng)
	return a.Scale.Apply(coords, rng)
}

// NewRand returns a PCG-backed generator. Seeded streams are reproducible
// per (seed, stream); pass seeded=false to draw a fresh seed.
func NewRand(seed, stream uint64, seeded bool) *rand.Rand {
	if !seeded {
		seed, stream = rand.Uint64(), rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, stream))
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.Float64()
}

// Bounds returns the axis-aligned bounding box of coords.
func Bounds(coords []r3.Vec) (lo, hi r3.Vec) {
	if len(coords) == 0 {
		return r3.Vec{}, r3.Vec{}
	}
	lo, hi = coords[0], coords[0]
	for _, p := range coords[1:] {
		lo = r3.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = r3.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	return lo, hi
}
