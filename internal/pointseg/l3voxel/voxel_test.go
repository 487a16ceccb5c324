package l3voxel

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/pointseg/internal/pointseg"
)

func TestQuantize_SameVoxel(t *testing.T) {
	coords := make([]r3.Vec, 10)
	for i := range coords {
		coords[i] = r3.Vec{X: 0.001 * float64(i), Y: 0.01, Z: 0.02}
	}
	g, err := Quantize(coords, 0.05)
	require.NoError(t, err)
	assert.Equal(t, 1, g.Len())
	assert.Equal(t, []int{0}, g.UniqueMap)
	assert.Equal(t, make([]int, 10), g.InverseMap)
	assert.Equal(t, VoxelKey{}, g.Coords[0])
}

func TestQuantize_FirstSeenOrder(t *testing.T) {
	coords := []r3.Vec{
		{X: 1.2}, {X: -0.3}, {X: 1.4}, {X: 5}, {X: -0.1},
	}
	g, err := Quantize(coords, 1)
	require.NoError(t, err)

	want := &VoxelGrid{
		Coords:     []VoxelKey{{X: 1}, {X: -1}, {X: 5}},
		UniqueMap:  []int{0, 1, 3},
		InverseMap: []int{0, 1, 0, 2, 1},
	}
	if diff := cmp.Diff(want, g); diff != "" {
		t.Errorf("grid mismatch (-want +got):\n%s", diff)
	}
}

func TestQuantize_InverseMapReconstructs(t *testing.T) {
	var coords []r3.Vec
	for i := 0; i < 200; i++ {
		coords = append(coords, r3.Vec{
			X: float64(i%7) * 0.031,
			Y: float64(i%11) * 0.047,
			Z: float64(i%3) * 0.09,
		})
	}
	g, err := Quantize(coords, 0.05)
	require.NoError(t, err)
	require.Len(t, g.InverseMap, len(coords))
	require.Len(t, g.UniqueMap, g.Len())

	for i, v := range g.InverseMap {
		require.GreaterOrEqual(t, v, 0)
		require.Less(t, v, g.Len())
		k, err := keyOf(coords[i], 1/0.05)
		require.NoError(t, err)
		assert.Equal(t, g.Coords[v], k, "point %d", i)
	}
	for v, u := range g.UniqueMap {
		assert.Equal(t, v, g.InverseMap[u], "representative maps to itself")
	}
}

func TestQuantize_Deterministic(t *testing.T) {
	coords := line(50, 0.013)
	a, err := Quantize(coords, 0.05)
	require.NoError(t, err)
	b, err := Quantize(coords, 0.05)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestQuantize_IdempotentOnAlignedCloud(t *testing.T) {
	// One point per voxel center: nothing merges.
	var coords []r3.Vec
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			coords = append(coords, r3.Vec{X: (float64(i) + 0.5) * 0.05, Y: (float64(j) + 0.5) * 0.05})
		}
	}
	g, err := Quantize(coords, 0.05)
	require.NoError(t, err)
	assert.Equal(t, len(coords), g.Len())
	assert.Equal(t, Arange(len(coords)), g.UniqueMap)
	assert.Equal(t, Arange(len(coords)), g.InverseMap)

	// Re-quantizing the voxel keys at unit size returns the same keys.
	keys := make([]r3.Vec, g.Len())
	for i, k := range g.Coords {
		keys[i] = k.Vec()
	}
	g2, err := Quantize(keys, 1)
	require.NoError(t, err)
	assert.Equal(t, g.Coords, g2.Coords)
}

func TestQuantize_Preconditions(t *testing.T) {
	_, err := Quantize(nil, 0.05)
	assert.ErrorIs(t, err, pointseg.ErrPrecondition)

	for _, size := range []float64{0, -1} {
		_, err := Quantize(line(3, 1), size)
		assert.ErrorIs(t, err, pointseg.ErrPrecondition, "voxel size %v", size)
	}

	_, err = Quantize([]r3.Vec{{X: 1e12}}, 0.05)
	assert.ErrorIs(t, err, pointseg.ErrPrecondition)
}

func TestVoxelize(t *testing.T) {
	coords := []r3.Vec{{X: 0.01}, {X: 0.02}, {X: 0.2}}
	colors := [][3]float32{{1, 1, 1}, {2, 2, 2}, {3, 3, 3}}
	labels := []int64{-1, 4, 7}

	v, err := Voxelize(coords, colors, labels, 0.05)
	require.NoError(t, err)
	assert.Equal(t, [][3]float32{{1, 1, 1}, {3, 3, 3}}, v.Colors)
	// Representative label wins, ignore label included.
	assert.Equal(t, []int64{-1, 7}, v.Labels)
	assert.Equal(t, []int{0, 0, 1}, v.Grid.InverseMap)

	v, err = Voxelize(coords, colors, nil, 0.05)
	require.NoError(t, err)
	assert.Nil(t, v.Labels)
}

func TestVoxelize_LengthMismatch(t *testing.T) {
	coords := line(3, 1)
	_, err := Voxelize(coords, make([][3]float32, 2), nil, 0.05)
	assert.ErrorIs(t, err, pointseg.ErrLengthMismatch)

	_, err = Voxelize(coords, make([][3]float32, 3), make([]int64, 4), 0.05)
	assert.ErrorIs(t, err, pointseg.ErrLengthMismatch)
}

func TestGather(t *testing.T) {
	got, err := Gather([]string{"a", "b", "c"}, []int{2, 0, 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "c"}, got)

	_, err = Gather([]string{"a"}, []int{1})
	assert.ErrorIs(t, err, pointseg.ErrPrecondition)
}
