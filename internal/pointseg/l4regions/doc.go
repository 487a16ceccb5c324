// Package l4regions owns Layer 4 (Regions) of the preprocessing stack.
//
// Responsibilities: carrying superpoint/region ids and the per-region deep
// feature rows through clipping and voxel deduplication, and the cleanup
// that turns raw region ids into a dense 0..R-1 label space (ignored points
// forced out, small regions dropped, survivors renumbered).
// Key types: RegionRef, Sizes.
//
// Dependency rule: L4 may depend on L1-L3, but never on L5+.
package l4regions
