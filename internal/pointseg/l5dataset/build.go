package l5dataset

import (
	"context"
	"fmt"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/pointseg/internal/pointseg"
	"github.com/banshee-data/pointseg/internal/pointseg/l1sources"
	"github.com/banshee-data/pointseg/internal/pointseg/l2augment"
	"github.com/banshee-data/pointseg/internal/pointseg/l3voxel"
	"github.com/banshee-data/pointseg/internal/pointseg/l4regions"
)

func (d *Dataset) regionPath(name string) string {
	return filepath.Join(d.cfg.GetSPPath(), d.pipeline.RegionDir, name+d.pipeline.RegionSuffix)
}

func (d *Dataset) pseudoPath(name string) string {
	return filepath.Join(d.cfg.GetPseudoPath(), name+".npy")
}

// build runs read → clip → voxelize → realign → augment → features.
func (d *Dataset) build(ctx context.Context, i int) (*Sample, error) {
	p := d.pipeline
	sc := d.scenes[i]
	ignore := d.cfg.GetIgnoreLabel()

	pc, err := l1sources.LoadPointCloud(d.fsys, sc.ply)
	if err != nil {
		return nil, err
	}
	if err := pc.Validate(); err != nil {
		return nil, err
	}
	coords := l2augment.CenterCloud(pc.Coords)
	labels := pc.Labels
	if p.FabricateLabels {
		labels = make([]int64, pc.Len())
		for k := range labels {
			labels[k] = 1
		}
	}

	region, err := l1sources.LoadInt64s(d.fsys, d.regionPath(sc.name))
	if err != nil {
		return nil, err
	}
	if err := pointseg.CheckLen("region", pc.Len(), len(region)); err != nil {
		return nil, err
	}
	var deep l1sources.Matrix
	if p.Sidecar == SidecarDeepFeature {
		if deep, err = l4regions.LookupFeatures(d.tables[i], region); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mask := l3voxel.IdentityMask(pc.Len())
	if p.ClipBeforeVoxelize {
		mask = l3voxel.Clip(coords, d.cfg.GetClipBound(), nil)
		if mask.Len() == 0 {
			return nil, fmt.Errorf("clip kept none of %d points: %w", pc.Len(), pointseg.ErrPrecondition)
		}
	}
	keptCoords, err := l3voxel.Apply(mask, "coords", coords)
	if err != nil {
		return nil, err
	}
	keptColors, err := l3voxel.Apply(mask, "colors", pc.Colors)
	if err != nil {
		return nil, err
	}
	keptLabels, err := l3voxel.Apply(mask, "labels", labels)
	if err != nil {
		return nil, err
	}
	vox, err := l3voxel.Voxelize(keptCoords, keptColors, keptLabels, d.cfg.GetVoxelSize())
	if err != nil {
		return nil, err
	}
	grid := vox.Grid
	pointseg.Tracef("%s: %d points, %d clipped, %d voxels", sc.name, pc.Len(), mask.Len(), grid.Len())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pointLabels := l4regions.NormalizeLabels(keptLabels, ignore)
	s := &Sample{
		Kind:       p.Kind,
		Index:      i,
		SceneName:  sc.name,
		InverseMap: grid.InverseMap,
		Labels:     pointLabels,
	}
	if p.LabelAlign == AlignVoxels {
		s.Labels = l4regions.NormalizeLabels(vox.Labels, ignore)
	}

	if s.Region, err = d.alignRegions(mask, grid, region, pointLabels); err != nil {
		return nil, err
	}

	switch p.Sidecar {
	case SidecarDeepFeature:
		if s.DeepFeats, err = l4regions.AlignMatrixToVoxels(mask, grid, "deep features", deep); err != nil {
			return nil, err
		}
	case SidecarPseudoLabel:
		if s.Pseudo, err = d.loadPseudo(sc.name, mask, grid, pointLabels); err != nil {
			return nil, err
		}
	}
	if p.PseudoPlaceholder {
		s.Pseudo = make([]int64, grid.Len())
		for k := range s.Pseudo {
			s.Pseudo[k] = l4regions.IgnoredLabel
		}
	}
	if p.EmitInds {
		s.Inds = l3voxel.Arange(grid.Len())
	}

	voxCoords := make([]r3.Vec, grid.Len())
	for k, key := range grid.Coords {
		voxCoords[k] = key.Vec()
	}
	if p.Augment {
		seed, seeded := d.cfg.GetSeed()
		voxCoords = d.aug.Apply(voxCoords, l2augment.NewRand(seed, uint64(i), seeded))
	}
	s.Coords, s.Feats = l2augment.CenterToFeatures(voxCoords, vox.Colors)
	return s, nil
}

// alignRegions clips the raw region ids, applies the pipeline's cleanup and
// leaves one entry per point or per voxel.
func (d *Dataset) alignRegions(mask l3voxel.ClipMask, grid *l3voxel.VoxelGrid, region, pointLabels []int64) ([]int64, error) {
	p := d.pipeline
	pts, err := l4regions.ClipToPoints(mask, grid, "region", region)
	if err != nil {
		return nil, err
	}

	if p.Cleanup == CleanupDropAndRenumber && p.RegionAlign == AlignPoints {
		return l4regions.CleanupDropAndRenumber(pts, pointLabels, d.cfg.GetDropThreshold())
	}
	if p.Cleanup != CleanupNone {
		if pts, err = l4regions.ForceIgnored(pts, pointLabels); err != nil {
			return nil, err
		}
	}
	out := pts
	if p.RegionAlign == AlignVoxels {
		if out, err = l3voxel.Gather(pts, grid.UniqueMap); err != nil {
			return nil, err
		}
	}
	switch p.Cleanup {
	case CleanupDropAndRenumber:
		return l4regions.Renumber(l4regions.DropSmall(out, d.cfg.GetDropThreshold())), nil
	case CleanupRenumberOnly:
		return l4regions.CleanupRenumberOnly(out), nil
	default:
		return out, nil
	}
}

// loadPseudo reads the scene's pseudo labels, clips them, unsets the
// ignored points and keeps one label per voxel.
func (d *Dataset) loadPseudo(name string, mask l3voxel.ClipMask, grid *l3voxel.VoxelGrid, pointLabels []int64) ([]int64, error) {
	raw, err := l1sources.LoadInt64s(d.fsys, d.pseudoPath(name))
	if err != nil {
		return nil, err
	}
	pts, err := l4regions.ClipToPoints(mask, grid, "pseudo labels", raw)
	if err != nil {
		return nil, fmt.Errorf("pseudo labels: %w", err)
	}
	for k, l := range pointLabels {
		if l == l4regions.IgnoredLabel {
			pts[k] = l4regions.IgnoredLabel
		}
	}
	return l3voxel.Gather(pts, grid.UniqueMap)
}
