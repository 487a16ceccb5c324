package l1sources

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/banshee-data/pointseg/internal/fsutil"
)

// CompressedSuffix marks sidecar files stored with zstd compression.
const CompressedSuffix = ".zst"

type zstdReadCloser struct {
	dec *zstd.Decoder
	f   io.Closer
}

func (z *zstdReadCloser) Read(p []byte) (int, error) { return z.dec.Read(p) }

func (z *zstdReadCloser) Close() error {
	z.dec.Close()
	return z.f.Close()
}

// Open opens name on fsys, transparently decompressing *.zst files.
// A missing file surfaces as an error wrapping fs.ErrNotExist.
func Open(fsys fsutil.FileSystem, name string) (io.ReadCloser, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(name, CompressedSuffix) {
		return f, nil
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("zstd %s: %w", name, err)
	}
	return &zstdReadCloser{dec: dec, f: f}, nil
}

// ResolveSidecar returns name, or name+".zst" when only the compressed
// variant exists. If neither exists name is returned so the caller's open
// reports the plain path.
func ResolveSidecar(fsys fsutil.FileSystem, name string) string {
	if !fsys.Exists(name) && fsys.Exists(name+CompressedSuffix) {
		return name + CompressedSuffix
	}
	return name
}

// LoadPointCloud reads and validates a PLY scene.
func LoadPointCloud(fsys fsutil.FileSystem, name string) (*PointCloud, error) {
	rc, err := Open(fsys, ResolveSidecar(fsys, name))
	if err != nil {
		return nil, fmt.Errorf("load point cloud: %w", err)
	}
	defer rc.Close()

	pc, err := ReadPLY(rc)
	if err != nil {
		return nil, fmt.Errorf("load point cloud %s: %w", name, err)
	}
	return pc, nil
}

// LoadInt64s reads a 1-D integer NPY sidecar (regions, pseudo labels).
func LoadInt64s(fsys fsutil.FileSystem, name string) ([]int64, error) {
	rc, err := Open(fsys, ResolveSidecar(fsys, name))
	if err != nil {
		return nil, fmt.Errorf("load sidecar: %w", err)
	}
	defer rc.Close()

	v, err := ReadInt64s(rc)
	if err != nil {
		return nil, fmt.Errorf("load sidecar %s: %w", name, err)
	}
	return v, nil
}

// LoadMatrix reads a 2-D NPY feature table.
func LoadMatrix(fsys fsutil.FileSystem, name string) (Matrix, error) {
	rc, err := Open(fsys, ResolveSidecar(fsys, name))
	if err != nil {
		return Matrix{}, fmt.Errorf("load feature table: %w", err)
	}
	defer rc.Close()

	m, err := ReadMatrix(rc)
	if err != nil {
		return Matrix{}, fmt.Errorf("load feature table %s: %w", name, err)
	}
	return m, nil
}

// Compress zstd-encodes data; used by export tools and fixtures.
func Compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}
