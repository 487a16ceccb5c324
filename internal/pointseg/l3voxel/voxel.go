package l3voxel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/pointseg/internal/pointseg"
)

// VoxelKey is an integer voxel index, floor(coord / voxelSize) per axis.
type VoxelKey struct {
	X, Y, Z int32
}

// VoxelGrid is the result of quantizing one cloud. Coords and UniqueMap
// have length M (one entry per occupied voxel, in first-seen order);
// InverseMap has one entry per input point and indexes into Coords.
type VoxelGrid struct {
	Coords     []VoxelKey
	UniqueMap  []int
	InverseMap []int
}

// Len returns the number of occupied voxels.
func (g *VoxelGrid) Len() int { return len(g.Coords) }

// Quantize groups points by voxel. The representative of each voxel is its
// first point in input order, so the maps are reproducible for a given
// input order.
func Quantize(coords []r3.Vec, voxelSize float64) (*VoxelGrid, error) {
	if len(coords) == 0 {
		return nil, fmt.Errorf("quantize: %w", pointseg.NewShapeError(pointseg.ErrPrecondition, "coords", 1, 0))
	}
	if !(voxelSize > 0) || math.IsInf(voxelSize, 0) {
		return nil, fmt.Errorf("quantize: voxel size %v: %w", voxelSize, pointseg.ErrPrecondition)
	}
	scale := 1 / voxelSize

	g := &VoxelGrid{InverseMap: make([]int, len(coords))}
	seen := make(map[VoxelKey]int, len(coords)/4+1)
	for i, p := range coords {
		key, err := keyOf(p, scale)
		if err != nil {
			return nil, fmt.Errorf("quantize point %d: %w", i, err)
		}
		v, ok := seen[key]
		if !ok {
			v = len(g.Coords)
			seen[key] = v
			g.Coords = append(g.Coords, key)
			g.UniqueMap = append(g.UniqueMap, i)
		}
		g.InverseMap[i] = v
	}
	return g, nil
}

func keyOf(p r3.Vec, scale float64) (VoxelKey, error) {
	var k [3]int32
	for a, v := range [3]float64{p.X, p.Y, p.Z} {
		f := math.Floor(v * scale)
		if math.IsNaN(f) || f < math.MinInt32 || f > math.MaxInt32 {
			return VoxelKey{}, fmt.Errorf("coordinate %v outside voxel range: %w", v, pointseg.ErrPrecondition)
		}
		k[a] = int32(f)
	}
	return VoxelKey{X: k[0], Y: k[1], Z: k[2]}, nil
}

// Vec returns the voxel key as float coordinates in voxel units.
func (k VoxelKey) Vec() r3.Vec {
	return r3.Vec{X: float64(k.X), Y: float64(k.Y), Z: float64(k.Z)}
}

// Voxelized bundles a grid with the representative color and label of each
// voxel.
type Voxelized struct {
	Grid   *VoxelGrid
	Colors [][3]float32
	Labels []int64
}

// Voxelize quantizes coords and gathers colors and labels by the unique
// map. Labels keep the representative's value, ignore label included; no
// vote is taken inside a voxel. labels may be nil.
func Voxelize(coords []r3.Vec, colors [][3]float32, labels []int64, voxelSize float64) (*Voxelized, error) {
	if err := pointseg.CheckLen("colors", len(coords), len(colors)); err != nil {
		return nil, fmt.Errorf("voxelize: %w", err)
	}
	if labels != nil {
		if err := pointseg.CheckLen("labels", len(coords), len(labels)); err != nil {
			return nil, fmt.Errorf("voxelize: %w", err)
		}
	}
	g, err := Quantize(coords, voxelSize)
	if err != nil {
		return nil, err
	}
	out := &Voxelized{Grid: g}
	if out.Colors, err = Gather(colors, g.UniqueMap); err != nil {
		return nil, err
	}
	if labels != nil {
		if out.Labels, err = Gather(labels, g.UniqueMap); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Gather returns in[idx[0]], in[idx[1]], ... as a new slice.
func Gather[T any](in []T, idx []int) ([]T, error) {
	out := make([]T, len(idx))
	for k, i := range idx {
		if i < 0 || i >= len(in) {
			return nil, fmt.Errorf("gather index %d: %w", i, pointseg.NewShapeError(pointseg.ErrPrecondition, "source", len(in), i))
		}
		out[k] = in[i]
	}
	return out, nil
}

// Arange returns 0..n-1, the identity index list emitted as inds.
func Arange(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
