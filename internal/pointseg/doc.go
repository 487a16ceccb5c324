// Package pointseg holds the shared pieces of the S3DIS point-cloud
// preprocessing stack: log streams and error sentinels.
//
// The processing itself lives in the layer packages:
//
//	l1sources  PLY / NPY / feature-table readers
//	l2augment  coordinate augmentation and feature centering
//	l3voxel    spatial clipping and voxel quantization
//	l4regions  region (superpoint) alignment and cleanup
//	l5dataset  dataset variants built from one configurable pipeline
//	l6batch    batch collation and export
//
// Dependency rule: layer N may depend on layers below N and on this
// package, never on layers above it.
package pointseg
