package l1sources

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/pointseg/internal/pointseg"
)

// PointCloud is one scene as stored on disk. All slices share length N.
type PointCloud struct {
	Coords []r3.Vec     // meters
	Colors [][3]float32 // 0-255
	Labels []int64      // semantic class, ignore label included
}

// Len returns the number of points.
func (pc *PointCloud) Len() int { return len(pc.Coords) }

// Validate checks the per-point arrays line up.
func (pc *PointCloud) Validate() error {
	n := len(pc.Coords)
	if err := pointseg.CheckLen("colors", n, len(pc.Colors)); err != nil {
		return err
	}
	return pointseg.CheckLen("labels", n, len(pc.Labels))
}

// Matrix is a dense row-major float32 table. It carries color+coordinate
// features and deep feature tables, where float64 would double memory.
type Matrix struct {
	Rows int       `msgpack:"rows"`
	Cols int       `msgpack:"cols"`
	Data []float32 `msgpack:"data"`
}

// NewMatrix allocates a zeroed rows×cols matrix.
func NewMatrix(rows, cols int) Matrix {
	return Matrix{Rows: rows, Cols: cols, Data: make([]float32, rows*cols)}
}

// Row returns row i as a slice aliasing the matrix storage.
func (m Matrix) Row(i int) []float32 {
	return m.Data[i*m.Cols : (i+1)*m.Cols]
}

// Empty reports whether the matrix holds no rows.
func (m Matrix) Empty() bool { return m.Rows == 0 }

// Gather returns a new matrix whose row k is m.Row(idx[k]).
func (m Matrix) Gather(idx []int) (Matrix, error) {
	out := NewMatrix(len(idx), m.Cols)
	for k, i := range idx {
		if i < 0 || i >= m.Rows {
			return Matrix{}, fmt.Errorf("gather row %d: %w", i, pointseg.NewShapeError(pointseg.ErrPrecondition, "matrix rows", m.Rows, i))
		}
		copy(out.Row(k), m.Row(i))
	}
	return out, nil
}

// AppendRows concatenates matrices with equal column counts.
func AppendRows(ms ...Matrix) (Matrix, error) {
	if len(ms) == 0 {
		return Matrix{}, nil
	}
	cols := ms[0].Cols
	rows := 0
	for _, m := range ms {
		if m.Cols != cols {
			return Matrix{}, pointseg.NewShapeError(pointseg.ErrLengthMismatch, "matrix columns", cols, m.Cols)
		}
		rows += m.Rows
	}
	out := Matrix{Rows: rows, Cols: cols, Data: make([]float32, 0, rows*cols)}
	for _, m := range ms {
		out.Data = append(out.Data, m.Data[:m.Rows*m.Cols]...)
	}
	return out, nil
}
