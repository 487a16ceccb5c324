// Package l3voxel owns Layer 3 (Voxel grid) of the preprocessing stack.
//
// Responsibilities: selecting the cube of raw points that survives spatial
// clipping, quantizing coordinates into integer voxel keys, and the
// unique/inverse index maps every later layer uses to realign per-point
// arrays.
// Key types: ClipMask, VoxelKey, VoxelGrid, Voxelized.
//
// Dependency rule: L3 may depend on L1 and L2, but never on L4+.
package l3voxel
