// Package monitor observes the dataset pipeline: Prometheus metrics for
// sample loading, PNG histograms of region sizes and an HTML chart of how
// much each scene shrinks under voxelization.
package monitor
