package l4regions

import (
	"fmt"

	"github.com/banshee-data/pointseg/internal/pointseg"
	"github.com/banshee-data/pointseg/internal/pointseg/l1sources"
)

// NoRegion is the on-disk id of a point that belongs to no region.
const NoRegion int64 = -1

// RegionRef is either Unassigned or Region(id) with id >= 0. The zero value
// is Unassigned.
type RegionRef struct {
	slot int64 // id+1; 0 means unassigned
}

// Unassigned returns the reference of a point outside every region.
func Unassigned() RegionRef { return RegionRef{} }

// Region returns the reference to region id. id must be non-negative.
func Region(id int64) RegionRef { return RegionRef{slot: id + 1} }

// RefOf decodes an on-disk region id. Only -1 marks an unassigned point;
// other negative values are malformed.
func RefOf(raw int64) (RegionRef, error) {
	switch {
	case raw == NoRegion:
		return Unassigned(), nil
	case raw < 0:
		return RegionRef{}, fmt.Errorf("region id %d: %w", raw, pointseg.ErrPrecondition)
	default:
		return Region(raw), nil
	}
}

// ID returns the region id and whether the reference is assigned.
func (r RegionRef) ID() (int64, bool) { return r.slot - 1, r.slot != 0 }

// Raw returns the on-disk encoding, -1 for Unassigned.
func (r RegionRef) Raw() int64 { return r.slot - 1 }

// TableIndex is the row of the deep feature table holding this region's
// features. Row 0 is reserved for unassigned points.
func (r RegionRef) TableIndex() int { return int(r.slot) }

func (r RegionRef) String() string {
	if id, ok := r.ID(); ok {
		return fmt.Sprintf("Region(%d)", id)
	}
	return "Unassigned"
}

// LookupFeatures returns table row RefOf(region[i]).TableIndex() for every
// point. A region id without a table row is an error.
func LookupFeatures(table l1sources.Matrix, region []int64) (l1sources.Matrix, error) {
	idx := make([]int, len(region))
	for i, raw := range region {
		ref, err := RefOf(raw)
		if err != nil {
			return l1sources.Matrix{}, fmt.Errorf("lookup features point %d: %w", i, err)
		}
		row := ref.TableIndex()
		if row >= table.Rows {
			return l1sources.Matrix{}, fmt.Errorf("lookup features point %d: %v: %w",
				i, ref, pointseg.NewShapeError(pointseg.ErrPrecondition, "feature table rows", row+1, table.Rows))
		}
		idx[i] = row
	}
	return table.Gather(idx)
}
