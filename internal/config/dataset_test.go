package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestEmptyDatasetConfigDefaults(t *testing.T) {
	cfg := EmptyDatasetConfig()

	if cfg.GetVoxelSize() != 0.05 {
		t.Errorf("GetVoxelSize() = %f, want 0.05", cfg.GetVoxelSize())
	}
	if cfg.GetIgnoreLabel() != 12 {
		t.Errorf("GetIgnoreLabel() = %d, want 12", cfg.GetIgnoreLabel())
	}
	if cfg.GetDropThreshold() != 10 {
		t.Errorf("GetDropThreshold() = %d, want 10", cfg.GetDropThreshold())
	}
	if cfg.GetClipBound() != 4.0 {
		t.Errorf("GetClipBound() = %f, want 4", cfg.GetClipBound())
	}
	if cfg.GetRotationBoundXY() != math.Pi/32 {
		t.Errorf("GetRotationBoundXY() = %f, want π/32", cfg.GetRotationBoundXY())
	}
	if cfg.GetSPPath() != cfg.GetDataPath() {
		t.Errorf("GetSPPath() = %q, want data path %q", cfg.GetSPPath(), cfg.GetDataPath())
	}
	if got := cfg.GetTestAreas(); len(got) != 1 || got[0] != "Area_5" {
		t.Errorf("GetTestAreas() = %v, want [Area_5]", got)
	}
	if _, ok := cfg.GetSeed(); ok {
		t.Error("expected no seed by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("empty config should validate: %v", err)
	}
}

func TestLoadDatasetConfig_JSON(t *testing.T) {
	path := writeConfig(t, "dataset.json", `{
  "data_path": "/data/s3dis/",
  "voxel_size": 0.02,
  "ignore_label": -1,
  "drop_threshold": 25,
  "seed": 7,
  "train_areas": ["Area_1"]
}`)

	cfg, err := LoadDatasetConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GetDataPath() != "/data/s3dis/" {
		t.Errorf("GetDataPath() = %q", cfg.GetDataPath())
	}
	if cfg.GetVoxelSize() != 0.02 {
		t.Errorf("GetVoxelSize() = %f, want 0.02", cfg.GetVoxelSize())
	}
	if cfg.GetIgnoreLabel() != -1 {
		t.Errorf("GetIgnoreLabel() = %d, want -1", cfg.GetIgnoreLabel())
	}
	if cfg.GetDropThreshold() != 25 {
		t.Errorf("GetDropThreshold() = %d, want 25", cfg.GetDropThreshold())
	}
	if seed, ok := cfg.GetSeed(); !ok || seed != 7 {
		t.Errorf("GetSeed() = %d, %v, want 7, true", seed, ok)
	}
	if got := cfg.GetTrainAreas(); len(got) != 1 || got[0] != "Area_1" {
		t.Errorf("GetTrainAreas() = %v", got)
	}
	// Unset fields keep their defaults.
	if cfg.GetClipBound() != 4.0 {
		t.Errorf("GetClipBound() = %f, want default 4", cfg.GetClipBound())
	}
}

func TestLoadDatasetConfig_YAML(t *testing.T) {
	path := writeConfig(t, "dataset.yaml", `
sp_path: /sp/
pseudo_path: /pseudo/
voxel_size: 0.1
scale_min: 0.8
scale_max: 1.2
test_areas:
  - Area_5
  - Area_6
`)

	cfg, err := LoadDatasetConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GetSPPath() != "/sp/" || cfg.GetPseudoPath() != "/pseudo/" {
		t.Errorf("paths = %q, %q", cfg.GetSPPath(), cfg.GetPseudoPath())
	}
	if cfg.GetVoxelSize() != 0.1 {
		t.Errorf("GetVoxelSize() = %f, want 0.1", cfg.GetVoxelSize())
	}
	if cfg.GetScaleMin() != 0.8 || cfg.GetScaleMax() != 1.2 {
		t.Errorf("scale = [%f, %f]", cfg.GetScaleMin(), cfg.GetScaleMax())
	}
	if got := cfg.GetTestAreas(); len(got) != 2 || got[1] != "Area_6" {
		t.Errorf("GetTestAreas() = %v", got)
	}
}

func TestLoadDatasetConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"bad extension", "dataset.toml", `voxel_size = 1`, "extension"},
		{"bad json", "dataset.json", `{`, "failed to parse"},
		{"zero voxel", "dataset.json", `{"voxel_size": 0}`, "voxel_size"},
		{"negative drop", "dataset.json", `{"drop_threshold": -1}`, "drop_threshold"},
		{"bad probability", "dataset.json", `{"shift_probability": 1.5}`, "shift_probability"},
		{"inverted scale", "dataset.json", `{"scale_min": 1.2, "scale_max": 1.0}`, "scale range"},
		{"no workers", "dataset.yaml", "preload_workers: 0\n", "preload_workers"},
		{"empty area", "dataset.json", `{"train_areas": [""]}`, "area names"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.body)
			_, err := LoadDatasetConfig(path)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDatasetConfig_MissingFile(t *testing.T) {
	if _, err := LoadDatasetConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if cfg.VoxelSize == nil || *cfg.VoxelSize != 0.05 {
		t.Errorf("expected voxel_size 0.05 in defaults file, got %v", cfg.VoxelSize)
	}
	if cfg.GetDropThreshold() != 10 {
		t.Errorf("expected drop_threshold 10 in defaults file, got %d", cfg.GetDropThreshold())
	}
}
