// Package l5dataset owns Layer 5 (Datasets) of the preprocessing stack.
//
// Responsibilities: scene discovery, the one-time deep feature preload, and
// the per-index sample pipeline (read, clip, voxelize, realign sidecars,
// augment, build features). The four loader variants are presets of a
// single Pipeline rather than separate types.
// Key types: Dataset, Pipeline, Sample, Loader.
//
// Dependency rule: L5 may depend on L1-L4, but never on L6.
package l5dataset
