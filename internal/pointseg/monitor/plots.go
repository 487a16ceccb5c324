package monitor

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/pointseg/internal/fsutil"
	"github.com/banshee-data/pointseg/internal/pointseg"
	"github.com/banshee-data/pointseg/internal/pointseg/l5dataset"
	"github.com/banshee-data/pointseg/internal/security"
)

// RegionPlotter writes one region-size histogram per scene.
type RegionPlotter struct {
	fsys      fsutil.FileSystem
	outputDir string
	bins      int
}

// NewRegionPlotter writes PNGs under outputDir on fsys.
func NewRegionPlotter(fsys fsutil.FileSystem, outputDir string) *RegionPlotter {
	return &RegionPlotter{fsys: fsys, outputDir: outputDir, bins: 30}
}

// Plot renders a log10 histogram of region sizes for st and returns the
// written path. Scenes without regions are skipped with an empty path.
func (rp *RegionPlotter) Plot(st l5dataset.SceneStats) (string, error) {
	if len(st.Sizes) == 0 {
		pointseg.Diagf("plot %s: no regions", st.Scene)
		return "", nil
	}
	values := make(plotter.Values, len(st.Sizes))
	for i, n := range st.Sizes {
		values[i] = math.Log10(float64(n))
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (%s): %d regions, %d unassigned", st.Scene, st.Kind, st.Regions, st.Unassigned)
	p.X.Label.Text = "log10(region size)"
	p.Y.Label.Text = "regions"

	hist, err := plotter.NewHist(values, rp.bins)
	if err != nil {
		return "", fmt.Errorf("histogram %s: %w", st.Scene, err)
	}
	hist.FillColor = color.RGBA{R: 49, G: 104, B: 142, A: 255}
	hist.LineStyle.Width = vg.Points(0.5)
	p.Add(hist)

	wt, err := p.WriterTo(8*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return "", fmt.Errorf("render %s: %w", st.Scene, err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("render %s: %w", st.Scene, err)
	}
	out := filepath.Join(rp.outputDir, security.SanitizeFilename(fmt.Sprintf("%s_%s_regions.png", st.Scene, st.Kind)))
	if err := rp.fsys.WriteFile(out, buf.Bytes(), 0644); err != nil {
		return "", err
	}
	return out, nil
}

// RenderReductionChart writes an HTML bar chart comparing clipped points
// with voxels for each scene.
func RenderReductionChart(fsys fsutil.FileSystem, path string, stats []l5dataset.SceneStats) error {
	names := make([]string, len(stats))
	points := make([]opts.BarData, len(stats))
	voxels := make([]opts.BarData, len(stats))
	for i, st := range stats {
		names[i] = st.Scene
		points[i] = opts.BarData{Value: st.Points}
		voxels[i] = opts.BarData{Value: st.Voxels}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Voxel reduction", Width: "100%", Height: "640px"}),
		charts.WithTitleOpts(opts.Title{Title: "Points vs voxels", Subtitle: fmt.Sprintf("scenes=%d", len(stats))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(names).
		AddSeries("points", points).
		AddSeries("voxels", voxels)

	page := components.NewPage()
	page.AddCharts(bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("render reduction chart: %w", err)
	}
	return fsys.WriteFile(path, buf.Bytes(), 0644)
}
