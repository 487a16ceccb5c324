package testutil

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/banshee-data/pointseg/internal/pointseg/l1sources"
)

func TestAssertHelpers(t *testing.T) {
	t.Parallel()
	AssertNoError(t, nil)
	AssertError(t, errors.New("boom"))
}

func TestRoomScene(t *testing.T) {
	t.Parallel()
	s := RoomScene("Area_1_office_1", 6, 4, 0.5)
	if err := s.Cloud.Validate(); err != nil {
		t.Fatal(err)
	}
	if got := s.Cloud.Len(); got != 24 {
		t.Fatalf("points = %d, want 24", got)
	}
	for name, v := range map[string][]int64{"superpoints": s.Superpoints, "rebuild": s.Rebuild, "pseudo": s.Pseudo} {
		if len(v) != 24 {
			t.Errorf("%s length = %d, want 24", name, len(v))
		}
	}
	// 3×2 blocks of 2×2 cells.
	if s.Features.Rows != 7 {
		t.Errorf("feature rows = %d, want regions+1 = 7", s.Features.Rows)
	}
	sawIgnore := false
	for _, l := range s.Cloud.Labels {
		sawIgnore = sawIgnore || l == IgnoreLabel
	}
	if !sawIgnore {
		t.Error("fixture should contain the ignore label")
	}
}

func TestWriteScene_RoundTrip(t *testing.T) {
	t.Parallel()
	for _, compress := range []bool{false, true} {
		l := DefaultLayout()
		l.Compress = compress
		s := RoomScene("Area_2_hall_1", 3, 3, 1)
		fsys := MemoryDataset(t, l, s)

		pc, err := l1sources.LoadPointCloud(fsys, filepath.Join(l.DataPath, "processed", s.Name+".ply"))
		AssertNoError(t, err)
		if pc.Len() != 9 {
			t.Errorf("compress=%v: loaded %d points, want 9", compress, pc.Len())
		}

		rebuild, err := l1sources.LoadInt64s(fsys, filepath.Join(l.SPPath, "initial_superpoints_rebuild", s.Name+"_rebuild_superpoint.npy"))
		AssertNoError(t, err)
		if len(rebuild) != 9 || rebuild[0] != -1 {
			t.Errorf("compress=%v: rebuild = %v", compress, rebuild)
		}

		feats, err := l1sources.LoadMatrix(fsys, filepath.Join(l.DataPath, "input_spfeats", s.Name+"_spfeats.npy"))
		AssertNoError(t, err)
		if feats.Rows != s.Features.Rows || feats.Cols != s.Features.Cols {
			t.Errorf("compress=%v: feature shape %dx%d", compress, feats.Rows, feats.Cols)
		}
	}
}
