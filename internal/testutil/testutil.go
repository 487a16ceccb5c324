// Package testutil provides shared test utilities and synthetic S3DIS-style
// scene fixtures.
//
// Fixtures are written through fsutil.FileSystem using the same directory
// layout the dataset loaders read, so tests can run against an in-memory
// filesystem.
package testutil

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/pointseg/internal/fsutil"
	"github.com/banshee-data/pointseg/internal/pointseg/l1sources"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// IgnoreLabel is the S3DIS clutter class used as ignore label by fixtures.
const IgnoreLabel = 12

// Scene is a synthetic room with every sidecar the loaders can ask for.
type Scene struct {
	Name        string
	Cloud       *l1sources.PointCloud
	Superpoints []int64          // initial_superpoints
	Rebuild     []int64          // initial_superpoints_rebuild
	Pseudo      []int64          // pseudo labels
	Features    l1sources.Matrix // deep feature table, rows = regions+1
}

// RoomScene builds a deterministic nx×ny floor grid with the given spacing.
// Labels cycle through all 13 classes in point order, so any scene with at
// least 13 points contains the ignore label. Regions are 2×2 blocks of grid
// cells. Scenes wider than 8 m get clipped by the default bound.
func RoomScene(name string, nx, ny int, spacing float64) *Scene {
	n := nx * ny
	pc := &l1sources.PointCloud{
		Coords: make([]r3.Vec, 0, n),
		Colors: make([][3]float32, 0, n),
		Labels: make([]int64, 0, n),
	}
	s := &Scene{Name: name, Cloud: pc}
	blocksX := (nx + 1) / 2
	var maxRegion int64 = -1
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			pc.Coords = append(pc.Coords, r3.Vec{
				X: float64(i) * spacing,
				Y: float64(j) * spacing,
				Z: float64((i+j)%5) * 0.1,
			})
			pc.Colors = append(pc.Colors, [3]float32{float32(i % 256), float32(j % 256), float32((i * j) % 256)})
			pc.Labels = append(pc.Labels, int64((j*nx+i)%13))

			region := int64((j/2)*blocksX + i/2)
			maxRegion = max(maxRegion, region)
			s.Superpoints = append(s.Superpoints, region)
			rebuilt := region
			if (i+j)%11 == 0 {
				rebuilt = -1
			}
			s.Rebuild = append(s.Rebuild, rebuilt)
			s.Pseudo = append(s.Pseudo, int64((i+2*j)%4))
		}
	}

	const featDim = 4
	s.Features = l1sources.NewMatrix(int(maxRegion)+2, featDim)
	for r := 0; r < s.Features.Rows; r++ {
		row := s.Features.Row(r)
		for k := range row {
			row[k] = float32(r) + float32(k)/10
		}
	}
	return s
}

// Layout names the dataset roots fixtures are written under.
type Layout struct {
	DataPath   string
	SPPath     string
	PseudoPath string
	Compress   bool // write NPY sidecars as .npy.zst
}

// DefaultLayout mirrors the default dataset configuration.
func DefaultLayout() Layout {
	return Layout{DataPath: "data/S3DIS", SPPath: "data/S3DIS", PseudoPath: "pseudo_label_s3dis"}
}

// WriteScene writes the PLY cloud under processed/ of both roots and every
// NPY sidecar next to it.
func WriteScene(fsys fsutil.FileSystem, l Layout, s *Scene) error {
	var ply bytes.Buffer
	if err := l1sources.WritePLY(&ply, s.Cloud, l1sources.PLYBinaryLittleEndian); err != nil {
		return fmt.Errorf("write %s: %w", s.Name, err)
	}
	plyPaths := []string{filepath.Join(l.DataPath, "processed", s.Name+".ply")}
	if l.SPPath != l.DataPath {
		plyPaths = append(plyPaths, filepath.Join(l.SPPath, "processed", s.Name+".ply"))
	}
	for _, p := range plyPaths {
		if err := fsys.WriteFile(p, ply.Bytes(), 0644); err != nil {
			return err
		}
	}

	ints := map[string][]int64{
		filepath.Join(l.SPPath, "initial_superpoints", s.Name+"_superpoint.npy"):                 s.Superpoints,
		filepath.Join(l.SPPath, "initial_superpoints_rebuild", s.Name+"_rebuild_superpoint.npy"): s.Rebuild,
		filepath.Join(l.PseudoPath, s.Name+".npy"):                                               s.Pseudo,
	}
	for p, v := range ints {
		var buf bytes.Buffer
		if err := l1sources.WriteInt64s(&buf, v); err != nil {
			return err
		}
		if err := writeMaybeCompressed(fsys, p, buf.Bytes(), l.Compress); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	if err := l1sources.WriteMatrix(&buf, s.Features); err != nil {
		return err
	}
	return writeMaybeCompressed(fsys, filepath.Join(l.DataPath, "input_spfeats", s.Name+"_spfeats.npy"), buf.Bytes(), l.Compress)
}

func writeMaybeCompressed(fsys fsutil.FileSystem, name string, data []byte, compress bool) error {
	if !compress {
		return fsys.WriteFile(name, data, 0644)
	}
	z, err := l1sources.Compress(data)
	if err != nil {
		return err
	}
	return fsys.WriteFile(name+l1sources.CompressedSuffix, z, 0644)
}

// MemoryDataset writes scenes into a fresh in-memory filesystem.
func MemoryDataset(t testing.TB, l Layout, scenes ...*Scene) *fsutil.MemoryFileSystem {
	t.Helper()
	fsys := fsutil.NewMemoryFileSystem()
	for _, s := range scenes {
		AssertNoError(t, WriteScene(fsys, l, s))
	}
	return fsys
}
