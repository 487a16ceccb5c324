package l2augment

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/pointseg/internal/pointseg/l1sources"
)

// FeatureCols is the width of the network input: three normalized colors
// followed by the centered xyz.
const FeatureCols = 6

// Mean returns the centroid of coords, or the origin for an empty cloud.
func Mean(coords []r3.Vec) r3.Vec {
	if len(coords) == 0 {
		return r3.Vec{}
	}
	var sum r3.Vec
	for _, p := range coords {
		sum = r3.Add(sum, p)
	}
	return r3.Scale(1/float64(len(coords)), sum)
}

// CenterCloud subtracts the full 3-D centroid from every point.
func CenterCloud(coords []r3.Vec) []r3.Vec {
	c := Mean(coords)
	out := make([]r3.Vec, len(coords))
	for i, p := range coords {
		out[i] = r3.Sub(p, c)
	}
	return out
}

// CenterToFeatures recenters x and y on the centroid while keeping the
// absolute height, then lays out [color/255-0.5, centered xyz] per point.
func CenterToFeatures(coords []r3.Vec, colors [][3]float32) ([]r3.Vec, l1sources.Matrix) {
	c := Mean(coords)
	c.Z = 0

	norm := make([]r3.Vec, len(coords))
	feats := l1sources.NewMatrix(len(coords), FeatureCols)
	for i, p := range coords {
		norm[i] = r3.Sub(p, c)
		row := feats.Row(i)
		for k := 0; k < 3; k++ {
			row[k] = colors[i][k]/255 - 0.5
		}
		row[3], row[4], row[5] = float32(norm[i].X), float32(norm[i].Y), float32(norm[i].Z)
	}
	return norm, feats
}
