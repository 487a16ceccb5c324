// Package config loads the dataset configuration shared by every loader
// variant and the pointseg CLI.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// DefaultConfigPath is the path to the canonical dataset defaults file.
const DefaultConfigPath = "config/dataset.defaults.json"

// DatasetConfig is the options object consumed by the dataset variants.
// Every field is optional; Get* accessors fall back to built-in defaults so
// partial files are safe.
type DatasetConfig struct {
	// Locations
	DataPath   *string `json:"data_path,omitempty" yaml:"data_path,omitempty"`
	SPPath     *string `json:"sp_path,omitempty" yaml:"sp_path,omitempty"`
	PseudoPath *string `json:"pseudo_path,omitempty" yaml:"pseudo_path,omitempty"`

	// Quantization and cleanup
	VoxelSize     *float64 `json:"voxel_size,omitempty" yaml:"voxel_size,omitempty"`
	IgnoreLabel   *int64   `json:"ignore_label,omitempty" yaml:"ignore_label,omitempty"`
	DropThreshold *int     `json:"drop_threshold,omitempty" yaml:"drop_threshold,omitempty"`
	ClipBound     *float64 `json:"clip_bound,omitempty" yaml:"clip_bound,omitempty"` // meters

	// Scene selection
	TrainAreas []string `json:"train_areas,omitempty" yaml:"train_areas,omitempty"`
	TestAreas  []string `json:"test_areas,omitempty" yaml:"test_areas,omitempty"`

	// Loader behaviour
	Seed           *uint64 `json:"seed,omitempty" yaml:"seed,omitempty"`
	PreloadWorkers *int    `json:"preload_workers,omitempty" yaml:"preload_workers,omitempty"`

	// Augmentation
	RotationBoundXY  *float64 `json:"rotation_bound_xy,omitempty" yaml:"rotation_bound_xy,omitempty"` // radians
	RotationBoundZ   *float64 `json:"rotation_bound_z,omitempty" yaml:"rotation_bound_z,omitempty"`   // radians
	ShiftProbability *float64 `json:"shift_probability,omitempty" yaml:"shift_probability,omitempty"`
	ShiftFraction    *float64 `json:"shift_fraction,omitempty" yaml:"shift_fraction,omitempty"`
	ScaleMin         *float64 `json:"scale_min,omitempty" yaml:"scale_min,omitempty"`
	ScaleMax         *float64 `json:"scale_max,omitempty" yaml:"scale_max,omitempty"`
}

// EmptyDatasetConfig returns a DatasetConfig with all fields unset.
func EmptyDatasetConfig() *DatasetConfig {
	return &DatasetConfig{}
}

// LoadDatasetConfig loads a DatasetConfig from a .json, .yaml or .yml file
// no larger than 1MB and validates it.
func LoadDatasetConfig(path string) (*DatasetConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyDatasetConfig()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", ext, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *DatasetConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/pointseg/l5dataset/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadDatasetConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configured values are usable.
func (c *DatasetConfig) Validate() error {
	if c.VoxelSize != nil && !(*c.VoxelSize > 0) {
		return fmt.Errorf("voxel_size must be positive, got %f", *c.VoxelSize)
	}
	if c.DropThreshold != nil && *c.DropThreshold < 0 {
		return fmt.Errorf("drop_threshold must be non-negative, got %d", *c.DropThreshold)
	}
	if c.ClipBound != nil && !(*c.ClipBound > 0) {
		return fmt.Errorf("clip_bound must be positive, got %f", *c.ClipBound)
	}
	if c.PreloadWorkers != nil && *c.PreloadWorkers < 1 {
		return fmt.Errorf("preload_workers must be at least 1, got %d", *c.PreloadWorkers)
	}
	if c.ShiftProbability != nil && (*c.ShiftProbability < 0 || *c.ShiftProbability > 1) {
		return fmt.Errorf("shift_probability must be between 0 and 1, got %f", *c.ShiftProbability)
	}
	if c.ShiftFraction != nil && *c.ShiftFraction < 0 {
		return fmt.Errorf("shift_fraction must be non-negative, got %f", *c.ShiftFraction)
	}
	if c.RotationBoundXY != nil && *c.RotationBoundXY < 0 {
		return fmt.Errorf("rotation_bound_xy must be non-negative, got %f", *c.RotationBoundXY)
	}
	if c.RotationBoundZ != nil && *c.RotationBoundZ < 0 {
		return fmt.Errorf("rotation_bound_z must be non-negative, got %f", *c.RotationBoundZ)
	}
	lo, hi := c.GetScaleMin(), c.GetScaleMax()
	if !(lo > 0) || hi < lo {
		return fmt.Errorf("scale range must satisfy 0 < scale_min <= scale_max, got [%f, %f]", lo, hi)
	}
	for _, a := range append(append([]string{}, c.TrainAreas...), c.TestAreas...) {
		if a == "" {
			return fmt.Errorf("area names must be non-empty")
		}
	}
	return nil
}

// GetDataPath returns the data_path value or the default.
func (c *DatasetConfig) GetDataPath() string {
	if c.DataPath == nil {
		return "data/S3DIS/"
	}
	return *c.DataPath
}

// GetSPPath returns the sp_path value, defaulting to the data path.
func (c *DatasetConfig) GetSPPath() string {
	if c.SPPath == nil {
		return c.GetDataPath()
	}
	return *c.SPPath
}

// GetPseudoPath returns the pseudo_path value or the default.
func (c *DatasetConfig) GetPseudoPath() string {
	if c.PseudoPath == nil {
		return "pseudo_label_s3dis/"
	}
	return *c.PseudoPath
}

// GetVoxelSize returns the voxel_size value or the default.
func (c *DatasetConfig) GetVoxelSize() float64 {
	if c.VoxelSize == nil {
		return 0.05
	}
	return *c.VoxelSize
}

// GetIgnoreLabel returns the ignore_label value or the default.
func (c *DatasetConfig) GetIgnoreLabel() int64 {
	if c.IgnoreLabel == nil {
		return 12
	}
	return *c.IgnoreLabel
}

// GetDropThreshold returns the drop_threshold value or the default.
func (c *DatasetConfig) GetDropThreshold() int {
	if c.DropThreshold == nil {
		return 10
	}
	return *c.DropThreshold
}

// GetClipBound returns the clip_bound value or the default (4m).
func (c *DatasetConfig) GetClipBound() float64 {
	if c.ClipBound == nil {
		return 4.0
	}
	return *c.ClipBound
}

// GetTrainAreas returns the train_areas value or the default.
func (c *DatasetConfig) GetTrainAreas() []string {
	if len(c.TrainAreas) == 0 {
		return []string{"Area_1", "Area_2", "Area_3", "Area_4", "Area_6"}
	}
	return c.TrainAreas
}

// GetTestAreas returns the test_areas value or the default.
func (c *DatasetConfig) GetTestAreas() []string {
	if len(c.TestAreas) == 0 {
		return []string{"Area_5"}
	}
	return c.TestAreas
}

// GetSeed returns the seed and whether one was configured.
func (c *DatasetConfig) GetSeed() (uint64, bool) {
	if c.Seed == nil {
		return 0, false
	}
	return *c.Seed, true
}

// GetPreloadWorkers returns the preload_workers value or the default.
func (c *DatasetConfig) GetPreloadWorkers() int {
	if c.PreloadWorkers == nil {
		return 4
	}
	return *c.PreloadWorkers
}

// GetRotationBoundXY returns the rotation_bound_xy value or the default (π/32).
func (c *DatasetConfig) GetRotationBoundXY() float64 {
	if c.RotationBoundXY == nil {
		return math.Pi / 32
	}
	return *c.RotationBoundXY
}

// GetRotationBoundZ returns the rotation_bound_z value or the default (π).
func (c *DatasetConfig) GetRotationBoundZ() float64 {
	if c.RotationBoundZ == nil {
		return math.Pi
	}
	return *c.RotationBoundZ
}

// GetShiftProbability returns the shift_probability value or the default.
func (c *DatasetConfig) GetShiftProbability() float64 {
	if c.ShiftProbability == nil {
		return 0.5
	}
	return *c.ShiftProbability
}

// GetShiftFraction returns the shift_fraction value or the default.
func (c *DatasetConfig) GetShiftFraction() float64 {
	if c.ShiftFraction == nil {
		return 0.05
	}
	return *c.ShiftFraction
}

// GetScaleMin returns the scale_min value or the default.
func (c *DatasetConfig) GetScaleMin() float64 {
	if c.ScaleMin == nil {
		return 0.9
	}
	return *c.ScaleMin
}

// GetScaleMax returns the scale_max value or the default.
func (c *DatasetConfig) GetScaleMax() float64 {
	if c.ScaleMax == nil {
		return 1.1
	}
	return *c.ScaleMax
}
