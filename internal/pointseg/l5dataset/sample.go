package l5dataset

import (
	"maps"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/pointseg/internal/pointseg/l1sources"
	"github.com/banshee-data/pointseg/internal/pointseg/l4regions"
)

// Sample is one scene after the pipeline. Coords, Feats, DeepFeats and
// Pseudo have one entry per voxel (M). InverseMap has one entry per clipped
// point. Labels and Region follow the pipeline's LabelAlign and RegionAlign.
type Sample struct {
	Kind      Kind
	Index     int
	SceneName string

	Coords     []r3.Vec         // voxel units, augmented, x/y centered
	Feats      l1sources.Matrix // [color/255-0.5, centered xyz]
	DeepFeats  l1sources.Matrix // distill only
	Labels     []int64          // ignore label normalized to -1
	InverseMap []int
	Region     []int64
	Pseudo     []int64 // nil unless the pipeline emits pseudo labels
	Inds       []int   // nil unless the pipeline emits inds
}

// Voxels returns M.
func (s *Sample) Voxels() int { return len(s.Coords) }

// Points returns the number of points that survived clipping.
func (s *Sample) Points() int { return len(s.InverseMap) }

// SceneStats summarizes one sample for the catalog and plots.
type SceneStats struct {
	Scene      string
	Kind       Kind
	Points     int
	Voxels     int
	Regions    int
	Unassigned int
	Sizes      []int // points or voxels per region, by region id order
}

// Stats summarizes s. Region sizes count entries of s.Region, so they are
// per point or per voxel depending on the pipeline.
func Stats(s *Sample) SceneStats {
	sizes, unassigned := l4regions.Sizes(s.Region)
	st := SceneStats{
		Scene:      s.SceneName,
		Kind:       s.Kind,
		Points:     s.Points(),
		Voxels:     s.Voxels(),
		Regions:    len(sizes),
		Unassigned: unassigned,
	}
	ids := slices.Sorted(maps.Keys(sizes))
	for _, id := range ids {
		st.Sizes = append(st.Sizes, sizes[id])
	}
	return st
}
