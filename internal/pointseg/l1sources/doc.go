// Package l1sources owns Layer 1 (Sources) of the preprocessing stack.
//
// Responsibilities: decoding scene point clouds (PLY), per-point sidecar
// arrays and deep-feature tables (NPY, optionally zstd-compressed), and the
// matching encoders used by fixtures and export tools.
// Key types: PointCloud, Matrix.
//
// Dependency rule: L1 depends only on the pointseg root package and fsutil.
package l1sources
