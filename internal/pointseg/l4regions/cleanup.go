package l4regions

import (
	"slices"

	"github.com/banshee-data/pointseg/internal/pointseg"
)

// IgnoredLabel is the normalized ignore sentinel after NormalizeLabels.
const IgnoredLabel int64 = -1

// NormalizeLabels maps the dataset's ignore label to IgnoredLabel.
func NormalizeLabels(labels []int64, ignore int64) []int64 {
	out := make([]int64, len(labels))
	for i, l := range labels {
		if l == ignore {
			l = IgnoredLabel
		}
		out[i] = l
	}
	return out
}

// ForceIgnored unassigns the region of every point whose label is
// IgnoredLabel.
func ForceIgnored(region, labels []int64) ([]int64, error) {
	if err := pointseg.CheckLen("labels", len(region), len(labels)); err != nil {
		return nil, err
	}
	out := slices.Clone(region)
	for i, l := range labels {
		if l == IgnoredLabel {
			out[i] = NoRegion
		}
	}
	return out, nil
}

// DropSmall unassigns every region with fewer than threshold points.
func DropSmall(region []int64, threshold int) []int64 {
	counts := make(map[int64]int)
	for _, r := range region {
		if r != NoRegion {
			counts[r]++
		}
	}
	out := slices.Clone(region)
	for i, r := range out {
		if r != NoRegion && counts[r] < threshold {
			out[i] = NoRegion
		}
	}
	return out
}

// Renumber maps each assigned id to its rank among the sorted distinct
// assigned ids, giving a dense 0..R-1 space. NoRegion stays NoRegion.
func Renumber(region []int64) []int64 {
	var ids []int64
	for _, r := range region {
		if r != NoRegion {
			ids = append(ids, r)
		}
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	out := make([]int64, len(region))
	for i, r := range region {
		if r == NoRegion {
			out[i] = NoRegion
			continue
		}
		rank, _ := slices.BinarySearch(ids, r)
		out[i] = int64(rank)
	}
	return out
}

// CleanupDropAndRenumber is the clustering cleanup: ignored points lose
// their region, regions under threshold are dropped, survivors are
// renumbered densely.
func CleanupDropAndRenumber(region, labels []int64, threshold int) ([]int64, error) {
	out, err := ForceIgnored(region, labels)
	if err != nil {
		return nil, err
	}
	return Renumber(DropSmall(out, threshold)), nil
}

// CleanupRenumberOnly is the evaluation cleanup: the caller has already
// forced ignored points out and reindexed by voxel, and no size threshold
// applies.
func CleanupRenumberOnly(region []int64) []int64 {
	return Renumber(region)
}

// Sizes counts points per assigned region id. Unassigned points are
// reported separately.
func Sizes(region []int64) (sizes map[int64]int, unassigned int) {
	sizes = make(map[int64]int)
	for _, r := range region {
		if r == NoRegion {
			unassigned++
			continue
		}
		sizes[r]++
	}
	return sizes, unassigned
}
