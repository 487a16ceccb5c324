// Package l6batch owns Layer 6 (Batches) of the preprocessing stack.
//
// Responsibilities: concatenating samples into one batch with a
// scene-in-batch column on the voxel coordinates and voxel indices offset by
// the running voxel count, plus a msgpack encoding so batches can be handed
// to an out-of-process trainer.
// Key types: Batch.
//
// Dependency rule: L6 may depend on L1-L5.
package l6batch
