package l1sources

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func sampleCloud() *PointCloud {
	return &PointCloud{
		Coords: []r3.Vec{{X: 0.5, Y: -1.25, Z: 2}, {X: 3.75, Y: 0, Z: -0.5}, {X: -2, Y: 1, Z: 0.125}},
		Colors: [][3]float32{{255, 0, 12}, {1, 2, 3}, {128, 128, 128}},
		Labels: []int64{0, 12, 7},
	}
}

func TestPLYRoundTrip(t *testing.T) {
	for _, format := range []PLYFormat{PLYBinaryLittleEndian, PLYBinaryBigEndian, PLYASCII} {
		t.Run(string(format), func(t *testing.T) {
			want := sampleCloud()
			var buf bytes.Buffer
			require.NoError(t, WritePLY(&buf, want, format))

			got, err := ReadPLY(&buf)
			require.NoError(t, err)
			require.Equal(t, want.Len(), got.Len())
			for i := range want.Coords {
				assert.InDelta(t, want.Coords[i].X, got.Coords[i].X, 1e-6)
				assert.InDelta(t, want.Coords[i].Y, got.Coords[i].Y, 1e-6)
				assert.InDelta(t, want.Coords[i].Z, got.Coords[i].Z, 1e-6)
			}
			assert.Equal(t, want.Colors, got.Colors)
			assert.Equal(t, want.Labels, got.Labels)
		})
	}
}

func TestReadPLY_ExtraPropertiesAndLabelAlias(t *testing.T) {
	src := strings.Join([]string{
		"ply",
		"format ascii 1.0",
		"comment produced by a test",
		"element vertex 2",
		"property double x",
		"property double y",
		"property double z",
		"property float nx",
		"property ushort red",
		"property ushort green",
		"property ushort blue",
		"property uchar label",
		"element face 0",
		"property list uchar int vertex_indices",
		"end_header",
		"1 2 3 0.5 10 20 30 4",
		"4 5 6 0.5 40 50 60 5",
		"",
	}, "\n")

	pc, err := ReadPLY(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5}, pc.Labels)
	assert.Equal(t, r3.Vec{X: 4, Y: 5, Z: 6}, pc.Coords[1])
	assert.Equal(t, [3]float32{10, 20, 30}, pc.Colors[0])
}

func TestReadPLY_SignedBinaryLabels(t *testing.T) {
	pc := &PointCloud{
		Coords: []r3.Vec{{X: 1, Y: 1, Z: 1}},
		Colors: [][3]float32{{0, 0, 0}},
		Labels: []int64{-1},
	}
	var buf bytes.Buffer
	require.NoError(t, WritePLY(&buf, pc, PLYBinaryLittleEndian))
	got, err := ReadPLY(&buf)
	require.NoError(t, err)
	assert.Equal(t, []int64{-1}, got.Labels)
}

func TestReadPLY_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"no magic", "plx\n"},
		{"no format", "ply\nelement vertex 0\nend_header\n"},
		{"bad format", "ply\nformat utf8 1.0\nelement vertex 0\nend_header\n"},
		{"no vertex", "ply\nformat ascii 1.0\nend_header\n"},
		{"missing class", "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float y\nproperty float z\nproperty uchar red\nproperty uchar green\nproperty uchar blue\nend_header\n1 2 3 4 5 6\n"},
		{"unknown type", "ply\nformat ascii 1.0\nelement vertex 1\nproperty half x\nend_header\n"},
		{"face first", "ply\nformat ascii 1.0\nelement face 1\nelement vertex 1\nend_header\n"},
		{"truncated binary", "ply\nformat binary_little_endian 1.0\nelement vertex 2\nproperty float x\nproperty float y\nproperty float z\nproperty uchar red\nproperty uchar green\nproperty uchar blue\nproperty int class\nend_header\n\x00\x00"},
		{"unterminated header", "ply\nformat ascii 1.0\n"},
		{"negative count", "ply\nformat ascii 1.0\nelement vertex -3\nend_header\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadPLY(strings.NewReader(tt.src)); err == nil {
				t.Errorf("expected error for %s", tt.name)
			}
		})
	}
}

func TestWritePLY_RejectsMisalignedCloud(t *testing.T) {
	pc := sampleCloud()
	pc.Labels = pc.Labels[:1]
	var buf bytes.Buffer
	if err := WritePLY(&buf, pc, PLYASCII); err == nil {
		t.Fatal("expected error for misaligned arrays")
	}
}

func TestClampColor(t *testing.T) {
	tests := []struct {
		in   float32
		want uint8
	}{
		{-3, 0}, {0, 0}, {12.4, 12}, {12.6, 13}, {255, 255}, {300, 255}, {float32(math.Inf(1)), 255},
	}
	for _, tt := range tests {
		if got := clampColor(tt.in); got != tt.want {
			t.Errorf("clampColor(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
