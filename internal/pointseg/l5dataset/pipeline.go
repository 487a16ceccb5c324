package l5dataset

import "fmt"

// Kind names the loader variant that produced a sample.
type Kind int

const (
	KindDistill Kind = iota
	KindCluster
	KindTrain
	KindTest
)

func (k Kind) String() string {
	switch k {
	case KindDistill:
		return "distill"
	case KindCluster:
		return "cluster"
	case KindTrain:
		return "train"
	case KindTest:
		return "test"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Mode selects what the training loader supervises with.
type Mode string

const (
	// ModeCluster cleans regions for a clustering round; pseudo labels are
	// a placeholder.
	ModeCluster Mode = "cluster"
	// ModeTrain loads pseudo labels from a previous clustering round.
	ModeTrain Mode = "train"
)

// ParseMode accepts "cluster" or "train".
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeCluster, ModeTrain:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want cluster or train)", s)
	}
}

// Sidecar is the optional per-scene array loaded next to the regions.
type Sidecar int

const (
	SidecarNone Sidecar = iota
	SidecarPseudoLabel
	SidecarDeepFeature
)

// Cleanup is the region post-processing applied after alignment.
type Cleanup int

const (
	CleanupNone Cleanup = iota
	// CleanupDropAndRenumber forces ignored points out, drops regions under
	// the drop threshold and renumbers densely.
	CleanupDropAndRenumber
	// CleanupRenumberOnly forces ignored points out and renumbers without a
	// size threshold.
	CleanupRenumberOnly
)

// Align says whether an output array has one entry per clipped point or
// one per voxel.
type Align int

const (
	AlignPoints Align = iota
	AlignVoxels
)

// Pipeline holds the capability flags that distinguish loader variants.
type Pipeline struct {
	Kind Kind

	ClipBeforeVoxelize bool
	Sidecar            Sidecar
	Cleanup            Cleanup
	RegionAlign        Align
	LabelAlign         Align

	Augment           bool
	FabricateLabels   bool // labels are all 1; the cloud's classes are unused
	EmitInds          bool // inds = 0..M-1
	PseudoPlaceholder bool // pseudo = all -1, one per voxel

	// Region file is <sp_path>/<RegionDir>/<scene><RegionSuffix>.
	RegionDir    string
	RegionSuffix string
}

// DistillPipeline reads regions rebuilt for feature distillation and
// carries the preloaded deep feature rows of each voxel.
func DistillPipeline() Pipeline {
	return Pipeline{
		Kind:               KindDistill,
		ClipBeforeVoxelize: true,
		Sidecar:            SidecarDeepFeature,
		RegionAlign:        AlignVoxels,
		LabelAlign:         AlignVoxels,
		Augment:            true,
		FabricateLabels:    true,
		RegionDir:          "initial_superpoints_rebuild",
		RegionSuffix:       "_rebuild_superpoint.npy",
	}
}

// ClusterPipeline voxelizes whole scenes without augmentation and cleans
// the initial superpoints for clustering.
func ClusterPipeline() Pipeline {
	return Pipeline{
		Kind:              KindCluster,
		Cleanup:           CleanupDropAndRenumber,
		RegionAlign:       AlignPoints,
		LabelAlign:        AlignPoints,
		EmitInds:          true,
		PseudoPlaceholder: true,
		RegionDir:         "initial_superpoints",
		RegionSuffix:      "_superpoint.npy",
	}
}

// TrainPipeline clips and augments scenes. In ModeCluster it behaves like
// ClusterPipeline on the clipped cube; in ModeTrain it loads pseudo labels
// instead of cleaning regions.
func TrainPipeline(mode Mode) Pipeline {
	p := Pipeline{
		Kind:               KindTrain,
		ClipBeforeVoxelize: true,
		RegionAlign:        AlignPoints,
		LabelAlign:         AlignPoints,
		Augment:            true,
		EmitInds:           true,
		RegionDir:          "initial_superpoints",
		RegionSuffix:       "_superpoint.npy",
	}
	if mode == ModeTrain {
		p.Sidecar = SidecarPseudoLabel
	} else {
		p.Cleanup = CleanupDropAndRenumber
		p.PseudoPlaceholder = true
	}
	return p
}

// TestPipeline voxelizes whole scenes for evaluation. Regions are kept per
// voxel and renumbered without dropping small ones.
func TestPipeline() Pipeline {
	return Pipeline{
		Kind:         KindTest,
		Cleanup:      CleanupRenumberOnly,
		RegionAlign:  AlignVoxels,
		LabelAlign:   AlignPoints,
		RegionDir:    "initial_superpoints",
		RegionSuffix: "_superpoint.npy",
	}
}

// Validate rejects flag combinations the sample pipeline cannot honor.
func (p Pipeline) Validate() error {
	if p.RegionDir == "" || p.RegionSuffix == "" {
		return fmt.Errorf("pipeline %v: region location is not set", p.Kind)
	}
	if p.Sidecar == SidecarPseudoLabel && p.PseudoPlaceholder {
		return fmt.Errorf("pipeline %v: pseudo labels cannot be both loaded and placeholder", p.Kind)
	}
	if p.Sidecar > SidecarDeepFeature || p.Cleanup > CleanupRenumberOnly {
		return fmt.Errorf("pipeline %v: unknown sidecar or cleanup", p.Kind)
	}
	return nil
}
