package l3voxel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/pointseg/internal/pointseg"
	"github.com/banshee-data/pointseg/internal/pointseg/l1sources"
)

func line(n int, step float64) []r3.Vec {
	out := make([]r3.Vec, n)
	for i := range out {
		out[i] = r3.Vec{X: float64(i) * step}
	}
	return out
}

func TestClip_SmallCloudIsIdentity(t *testing.T) {
	coords := line(10, 0.1) // extent 0.9 m
	m := Clip(coords, DefaultClipBound, nil)
	assert.True(t, m.IsIdentity())
	assert.Equal(t, 10, m.Len())
	assert.Equal(t, Arange(10), m.Indices())
}

func TestClip_HalfOpenCube(t *testing.T) {
	// x spans 0..10, midpoint 5, cube [1, 9).
	coords := line(11, 1)
	m := Clip(coords, DefaultClipBound, nil)
	require.False(t, m.IsIdentity())
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, m.Indices())
	assert.False(t, m.Contains(9), "upper bound is exclusive")
	assert.True(t, m.Contains(1), "lower bound is inclusive")
}

func TestClip_ExplicitCenter(t *testing.T) {
	coords := line(11, 1)
	c := r3.Vec{X: 2}
	m := Clip(coords, 1.5, &c)
	assert.Equal(t, []int{1, 2, 3}, m.Indices())
}

func TestClip_CenterAwayFromCloudIsEmpty(t *testing.T) {
	coords := line(10, 1)
	m := Clip(coords, 2, &r3.Vec{X: 100})
	assert.False(t, m.IsIdentity())
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 10, m.SourceLen())
	assert.Empty(t, m.Indices())

	kept, err := Apply(m, "coords", coords)
	require.NoError(t, err)
	assert.Empty(t, kept)
	_, err = Quantize(kept, 0.5)
	assert.ErrorIs(t, err, pointseg.ErrPrecondition)
}

func TestClip_EveryKeptPointInsideCube(t *testing.T) {
	var coords []r3.Vec
	for i := 0; i < 20; i++ {
		for j := 0; j < 20; j++ {
			coords = append(coords, r3.Vec{X: float64(i) * 0.5, Y: float64(j) * 0.5, Z: float64(i+j) * 0.1})
		}
	}
	const bound = 3.0
	m := Clip(coords, bound, nil)
	require.False(t, m.IsIdentity())
	// bbox: x,y in [0, 9.5], z in [0, 3.8]; midpoint (4.75, 4.75, 1.9).
	c := r3.Vec{X: 4.75, Y: 4.75, Z: 1.9}
	for i, p := range coords {
		inside := p.X >= c.X-bound && p.X < c.X+bound &&
			p.Y >= c.Y-bound && p.Y < c.Y+bound &&
			p.Z >= c.Z-bound && p.Z < c.Z+bound
		assert.Equal(t, inside, m.Contains(i), "point %d %v", i, p)
	}
}

func TestClip_EmptyAndNonPositiveBound(t *testing.T) {
	assert.True(t, Clip(nil, DefaultClipBound, nil).IsIdentity())
	assert.True(t, Clip(line(100, 1), 0, nil).IsIdentity())
}

func TestApply(t *testing.T) {
	coords := line(11, 1)
	m := Clip(coords, DefaultClipBound, nil)

	labels := []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	got, err := Apply(m, "labels", labels)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8}, got)

	_, err = Apply(m, "labels", labels[:5])
	require.Error(t, err)
	assert.True(t, errors.Is(err, pointseg.ErrLengthMismatch))
	var se *pointseg.ShapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "labels", se.What)
}

func TestApply_IdentityCopies(t *testing.T) {
	in := []int64{4, 5, 6}
	out, err := Apply(IdentityMask(3), "x", in)
	require.NoError(t, err)
	out[0] = 99
	assert.Equal(t, int64(4), in[0])

	// The zero mask accepts any length.
	out, err = Apply(ClipMask{}, "x", in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestApplyMatrix(t *testing.T) {
	m := Clip(line(11, 1), DefaultClipBound, nil)
	mat := l1sources.NewMatrix(11, 2)
	for i := 0; i < 11; i++ {
		mat.Row(i)[0] = float32(i)
	}
	got, err := ApplyMatrix(m, "feats", mat)
	require.NoError(t, err)
	assert.Equal(t, 8, got.Rows)
	assert.Equal(t, float32(1), got.Row(0)[0])
	assert.Equal(t, float32(8), got.Row(7)[0])

	_, err = ApplyMatrix(m, "feats", l1sources.NewMatrix(3, 2))
	assert.ErrorIs(t, err, pointseg.ErrLengthMismatch)
}
