package l3voxel

import (
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/pointseg/internal/pointseg"
	"github.com/banshee-data/pointseg/internal/pointseg/l1sources"
	"github.com/banshee-data/pointseg/internal/pointseg/l2augment"
)

// DefaultClipBound is the half side of the clipping cube in meters.
const DefaultClipBound = 4.0

// ClipMask selects a subset of the N points of one cloud. A mask without a
// selection is the identity: every point is kept. The zero value is an
// identity mask that accepts arrays of any length.
type ClipMask struct {
	n   int
	sel *roaring.Bitmap
}

// IdentityMask keeps all n points.
func IdentityMask(n int) ClipMask { return ClipMask{n: n} }

// IsIdentity reports whether the mask keeps every point.
func (m ClipMask) IsIdentity() bool { return m.sel == nil }

// SourceLen is the length of the arrays the mask applies to.
func (m ClipMask) SourceLen() int { return m.n }

// Len is the number of points the mask keeps.
func (m ClipMask) Len() int {
	if m.sel == nil {
		return m.n
	}
	return int(m.sel.GetCardinality())
}

// Contains reports whether point i survives the clip.
func (m ClipMask) Contains(i int) bool {
	if i < 0 || (m.n > 0 && i >= m.n) {
		return false
	}
	return m.sel == nil || m.sel.Contains(uint32(i))
}

// Indices returns the kept point indices in ascending order.
func (m ClipMask) Indices() []int {
	if m.sel == nil {
		return Arange(m.n)
	}
	out := make([]int, 0, m.sel.GetCardinality())
	it := m.sel.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}

func (m ClipMask) check(what string, n int) error {
	if m.sel == nil && m.n == 0 {
		return nil
	}
	return pointseg.CheckLen(what, m.n, n)
}

// Clip computes the mask of points inside a cube of side 2*bound centered on
// center, or on the bounding-box midpoint when center is nil. Each axis is
// half-open: [c-bound, c+bound). A cloud whose largest extent is below bound
// (or a non-positive bound) yields the identity mask. With an explicit center
// the cube may miss the cloud entirely; the mask is then empty (Len 0, not
// identity) and callers must check it before voxelizing.
func Clip(coords []r3.Vec, bound float64, center *r3.Vec) ClipMask {
	n := len(coords)
	if n == 0 || bound <= 0 {
		return IdentityMask(n)
	}
	lo, hi := l2augment.Bounds(coords)
	size := r3.Sub(hi, lo)
	if max(size.X, size.Y, size.Z) < bound {
		return IdentityMask(n)
	}

	c := r3.Add(lo, r3.Scale(0.5, size))
	if center != nil {
		c = *center
	}
	sel := roaring.New()
	for i, p := range coords {
		if inHalfOpen(p.X, c.X, bound) && inHalfOpen(p.Y, c.Y, bound) && inHalfOpen(p.Z, c.Z, bound) {
			sel.Add(uint32(i))
		}
	}
	sel.RunOptimize()
	return ClipMask{n: n, sel: sel}
}

func inHalfOpen(v, c, lim float64) bool {
	return v >= c-lim && v < c+lim
}

// Apply gathers the kept entries of a per-point array. The result never
// aliases in.
func Apply[T any](m ClipMask, what string, in []T) ([]T, error) {
	if err := m.check(what, len(in)); err != nil {
		return nil, err
	}
	if m.sel == nil {
		return slices.Clone(in), nil
	}
	out := make([]T, 0, m.sel.GetCardinality())
	it := m.sel.Iterator()
	for it.HasNext() {
		out = append(out, in[it.Next()])
	}
	return out, nil
}

// ApplyMatrix gathers the kept rows of a per-point matrix.
func ApplyMatrix(m ClipMask, what string, in l1sources.Matrix) (l1sources.Matrix, error) {
	if err := m.check(what, in.Rows); err != nil {
		return l1sources.Matrix{}, err
	}
	if m.sel == nil {
		return l1sources.Matrix{Rows: in.Rows, Cols: in.Cols, Data: slices.Clone(in.Data)}, nil
	}
	return in.Gather(m.Indices())
}
