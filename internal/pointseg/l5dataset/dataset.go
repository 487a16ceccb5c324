package l5dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/pointseg/internal/config"
	"github.com/banshee-data/pointseg/internal/fsutil"
	"github.com/banshee-data/pointseg/internal/pointseg"
	"github.com/banshee-data/pointseg/internal/pointseg/l1sources"
	"github.com/banshee-data/pointseg/internal/pointseg/l2augment"
)

const (
	plySuffix      = ".ply"
	spfeatsSuffix  = "_spfeats.npy"
	areaNameLength = 6 // "Area_N"
)

// Observer receives per-sample outcomes. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveSample(kind Kind, points, voxels int, elapsed time.Duration)
	ObserveError(kind Kind, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveSample(Kind, int, int, time.Duration) {}
func (nopObserver) ObserveError(Kind, error)                    {}

type scene struct {
	name string
	ply  string
}

// Dataset is an index-addressable collection of scenes run through one
// Pipeline. Get is safe for concurrent use; nothing is written after
// construction.
type Dataset struct {
	fsys     fsutil.FileSystem
	cfg      *config.DatasetConfig
	pipeline Pipeline
	aug      l2augment.Augmenter
	obs      Observer

	scenes []scene
	tables []l1sources.Matrix // deep feature tables, parallel to scenes
}

// Option customizes a Dataset.
type Option func(*Dataset)

// WithObserver reports sample outcomes to o.
func WithObserver(o Observer) Option {
	return func(d *Dataset) {
		if o != nil {
			d.obs = o
		}
	}
}

// WithAugmenter overrides the augmenter built from the configuration.
func WithAugmenter(a l2augment.Augmenter) Option {
	return func(d *Dataset) { d.aug = a }
}

// New discovers the scenes of areas and, for deep feature pipelines,
// preloads every feature table. ctx bounds the preload only.
func New(ctx context.Context, fsys fsutil.FileSystem, cfg *config.DatasetConfig, p Pipeline, areas []string, opts ...Option) (*Dataset, error) {
	if cfg == nil {
		cfg = config.EmptyDatasetConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("dataset config: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	d := &Dataset{
		fsys:     fsys,
		cfg:      cfg,
		pipeline: p,
		aug:      l2augment.NewAugmenter(cfg),
		obs:      nopObserver{},
	}
	for _, opt := range opts {
		opt(d)
	}

	var err error
	if p.Sidecar == SidecarDeepFeature {
		err = d.discoverFeatureScenes(areas)
	} else {
		err = d.discoverScenes(areas)
	}
	if err != nil {
		return nil, err
	}
	if p.Sidecar == SidecarDeepFeature {
		if err := d.preload(ctx); err != nil {
			return nil, err
		}
	}
	pointseg.Opsf("%s dataset: %d scenes from %v", p.Kind, len(d.scenes), areas)
	return d, nil
}

// NewDistillDataset builds the feature distillation loader. nil areas
// select the configured training areas.
func NewDistillDataset(ctx context.Context, fsys fsutil.FileSystem, cfg *config.DatasetConfig, areas []string, opts ...Option) (*Dataset, error) {
	return New(ctx, fsys, cfg, DistillPipeline(), orTrainAreas(cfg, areas), opts...)
}

// NewClusterDataset builds the clustering loader over training areas.
func NewClusterDataset(ctx context.Context, fsys fsutil.FileSystem, cfg *config.DatasetConfig, areas []string, opts ...Option) (*Dataset, error) {
	return New(ctx, fsys, cfg, ClusterPipeline(), orTrainAreas(cfg, areas), opts...)
}

// NewTrainDataset builds the training loader in the given mode.
func NewTrainDataset(ctx context.Context, fsys fsutil.FileSystem, cfg *config.DatasetConfig, mode Mode, areas []string, opts ...Option) (*Dataset, error) {
	return New(ctx, fsys, cfg, TrainPipeline(mode), orTrainAreas(cfg, areas), opts...)
}

// NewTestDataset builds the evaluation loader. nil areas select the
// configured test areas.
func NewTestDataset(ctx context.Context, fsys fsutil.FileSystem, cfg *config.DatasetConfig, areas []string, opts ...Option) (*Dataset, error) {
	if areas == nil {
		if cfg == nil {
			cfg = config.EmptyDatasetConfig()
		}
		areas = cfg.GetTestAreas()
	}
	return New(ctx, fsys, cfg, TestPipeline(), areas, opts...)
}

func orTrainAreas(cfg *config.DatasetConfig, areas []string) []string {
	if areas != nil {
		return areas
	}
	if cfg == nil {
		cfg = config.EmptyDatasetConfig()
	}
	return cfg.GetTrainAreas()
}

func inAreas(base string, areas []string) bool {
	if len(base) < areaNameLength {
		return false
	}
	return slices.Contains(areas, base[:areaNameLength])
}

func (d *Dataset) discoverScenes(areas []string) error {
	pattern := filepath.Join(d.cfg.GetDataPath(), "processed", "*"+plySuffix)
	files, err := d.fsys.Glob(pattern)
	if err != nil {
		return fmt.Errorf("discover scenes %s: %w", pattern, err)
	}
	for _, f := range files {
		base := filepath.Base(f)
		if !inAreas(base, areas) {
			continue
		}
		d.scenes = append(d.scenes, scene{name: strings.TrimSuffix(base, plySuffix), ply: f})
	}
	return nil
}

func (d *Dataset) discoverFeatureScenes(areas []string) error {
	dir := filepath.Join(d.cfg.GetDataPath(), "input_spfeats")
	var names []string
	for _, suffix := range []string{spfeatsSuffix, spfeatsSuffix + l1sources.CompressedSuffix} {
		files, err := d.fsys.Glob(filepath.Join(dir, "*"+suffix))
		if err != nil {
			return fmt.Errorf("discover feature tables: %w", err)
		}
		for _, f := range files {
			base := filepath.Base(f)
			if inAreas(base, areas) {
				names = append(names, strings.TrimSuffix(base, suffix))
			}
		}
	}
	slices.Sort(names)
	for _, name := range slices.Compact(names) {
		d.scenes = append(d.scenes, scene{
			name: name,
			ply:  filepath.Join(d.cfg.GetSPPath(), "processed", name+plySuffix),
		})
	}
	return nil
}

func (d *Dataset) featureTablePath(name string) string {
	return filepath.Join(d.cfg.GetDataPath(), "input_spfeats", name+spfeatsSuffix)
}

func (d *Dataset) preload(ctx context.Context) error {
	d.tables = make([]l1sources.Matrix, len(d.scenes))
	var done atomic.Int64
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.GetPreloadWorkers())
	for i, sc := range d.scenes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, err := l1sources.LoadMatrix(d.fsys, d.featureTablePath(sc.name))
			if err != nil {
				return fmt.Errorf("preload %s: %w", sc.name, err)
			}
			d.tables[i] = m
			n := done.Add(1)
			pointseg.Diagf("preload %d/%d %s (%d regions × %d)", n, len(d.scenes), sc.name, m.Rows-1, m.Cols)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	pointseg.Diagf("preloaded %d feature tables in %v", len(d.scenes), time.Since(start))
	return nil
}

// Len returns the number of scenes.
func (d *Dataset) Len() int { return len(d.scenes) }

// Name returns the scene name at index i.
func (d *Dataset) Name(i int) string { return d.scenes[i].name }

// Names returns every scene name in index order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.scenes))
	for i, s := range d.scenes {
		out[i] = s.name
	}
	return out
}

// Pipeline returns the flags the dataset runs with.
func (d *Dataset) Pipeline() Pipeline { return d.pipeline }

// Get builds the sample for scene i. Each call reads the scene from disk;
// only deep feature tables are cached.
func (d *Dataset) Get(ctx context.Context, i int) (*Sample, error) {
	if i < 0 || i >= len(d.scenes) {
		err := fmt.Errorf("get %d of %d: %w", i, len(d.scenes), pointseg.ErrUnknownScene)
		d.obs.ObserveError(d.pipeline.Kind, err)
		return nil, err
	}
	start := time.Now()
	s, err := d.build(ctx, i)
	if err != nil {
		err = fmt.Errorf("%s scene %s: %w", d.pipeline.Kind, d.scenes[i].name, err)
		d.obs.ObserveError(d.pipeline.Kind, err)
		return nil, err
	}
	d.obs.ObserveSample(d.pipeline.Kind, s.Points(), s.Voxels(), time.Since(start))
	return s, nil
}
