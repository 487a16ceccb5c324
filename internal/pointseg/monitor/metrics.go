package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/banshee-data/pointseg/internal/pointseg"
	"github.com/banshee-data/pointseg/internal/pointseg/l5dataset"
)

// Metrics records sample loading outcomes. It implements l5dataset.Observer.
type Metrics struct {
	registry *prometheus.Registry

	Samples     *prometheus.CounterVec
	Errors      *prometheus.CounterVec
	LoadSeconds *prometheus.HistogramVec
	Points      *prometheus.HistogramVec
	Reduction   *prometheus.HistogramVec
}

// NewMetrics registers the loader metrics on a fresh registry.
func NewMetrics(labels prometheus.Labels) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pointseg_samples_total",
			Help:        "Samples built, by loader kind",
			ConstLabels: labels,
		}, []string{"kind"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pointseg_sample_errors_total",
			Help:        "Sample builds that failed, by loader kind and cause",
			ConstLabels: labels,
		}, []string{"kind", "cause"}),
		LoadSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "pointseg_sample_load_seconds",
			Help:        "Time to read and preprocess one scene",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"kind"}),
		Points: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "pointseg_sample_points",
			Help:        "Points per sample after clipping",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1024, 4, 10),
		}, []string{"kind"}),
		Reduction: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "pointseg_voxel_reduction_ratio",
			Help:        "Voxels divided by clipped points per sample",
			ConstLabels: labels,
			Buckets:     prometheus.LinearBuckets(0.1, 0.1, 10),
		}, []string{"kind"}),
	}
	m.registry.MustRegister(m.Samples, m.Errors, m.LoadSeconds, m.Points, m.Reduction)
	return m
}

// Registry exposes the underlying registry for scraping or pushing.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveSample records one successful build.
func (m *Metrics) ObserveSample(kind l5dataset.Kind, points, voxels int, elapsed time.Duration) {
	k := kind.String()
	m.Samples.WithLabelValues(k).Inc()
	m.LoadSeconds.WithLabelValues(k).Observe(elapsed.Seconds())
	m.Points.WithLabelValues(k).Observe(float64(points))
	if points > 0 {
		m.Reduction.WithLabelValues(k).Observe(float64(voxels) / float64(points))
	}
}

// ObserveError records one failed build.
func (m *Metrics) ObserveError(kind l5dataset.Kind, err error) {
	m.Errors.WithLabelValues(kind.String(), Cause(err)).Inc()
}

// Cause buckets an error into a low-cardinality label value.
func Cause(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, pointseg.ErrUnknownScene):
		return "unknown_scene"
	case errors.Is(err, pointseg.ErrLengthMismatch):
		return "length_mismatch"
	case errors.Is(err, pointseg.ErrPrecondition):
		return "precondition"
	case errors.Is(err, fs.ErrNotExist):
		return "missing_file"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}

// WriteText dumps every metric family in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
