package l4regions

import (
	"fmt"

	"github.com/banshee-data/pointseg/internal/pointseg"
	"github.com/banshee-data/pointseg/internal/pointseg/l1sources"
	"github.com/banshee-data/pointseg/internal/pointseg/l3voxel"
)

// ClipToPoints applies the clip mask to a per-point sidecar and checks the
// result lines up with the grid's inverse map. A mismatch means the sidecar
// was written for a different point cloud.
func ClipToPoints[T any](mask l3voxel.ClipMask, grid *l3voxel.VoxelGrid, what string, in []T) ([]T, error) {
	out, err := l3voxel.Apply(mask, what, in)
	if err != nil {
		return nil, fmt.Errorf("clip %s: %w", what, err)
	}
	if err := pointseg.CheckLen(what, len(grid.InverseMap), len(out)); err != nil {
		return nil, fmt.Errorf("align %s: %w", what, err)
	}
	return out, nil
}

// AlignToVoxels clips a per-point sidecar and gathers one entry per voxel
// through the grid's unique map.
func AlignToVoxels[T any](mask l3voxel.ClipMask, grid *l3voxel.VoxelGrid, what string, in []T) ([]T, error) {
	pts, err := ClipToPoints(mask, grid, what, in)
	if err != nil {
		return nil, err
	}
	return l3voxel.Gather(pts, grid.UniqueMap)
}

// AlignMatrixToVoxels is AlignToVoxels for per-point feature rows.
func AlignMatrixToVoxels(mask l3voxel.ClipMask, grid *l3voxel.VoxelGrid, what string, in l1sources.Matrix) (l1sources.Matrix, error) {
	pts, err := l3voxel.ApplyMatrix(mask, what, in)
	if err != nil {
		return l1sources.Matrix{}, fmt.Errorf("clip %s: %w", what, err)
	}
	if err := pointseg.CheckLen(what, len(grid.InverseMap), pts.Rows); err != nil {
		return l1sources.Matrix{}, fmt.Errorf("align %s: %w", what, err)
	}
	return pts.Gather(grid.UniqueMap)
}
