package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/pointseg/internal/catalog"
	"github.com/banshee-data/pointseg/internal/fsutil"
	"github.com/banshee-data/pointseg/internal/pointseg"
	"github.com/banshee-data/pointseg/internal/pointseg/l5dataset"
	"github.com/banshee-data/pointseg/internal/pointseg/monitor"
)

// fileSystem is swapped for an in-memory tree in tests.
var fileSystem fsutil.FileSystem = fsutil.OSFileSystem{}

var (
	dbPath      string
	metricsPath string
	batchSize   int
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Build every sample and record per-scene statistics",
	Long: `Build every sample of the selected loader variant in batches, log per-scene
point, voxel and region counts, and optionally record them in the scan
catalog (--db) and write Prometheus text metrics (--metrics).

A scene that fails is logged and counted, and the scan continues.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if metricsPath != "" && metricsPath != "-" {
			if err := checkOutput(metricsPath); err != nil {
				return err
			}
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		metrics := monitor.NewMetrics(nil)
		ds, err := openDataset(ctx, fileSystem, cfg, l5dataset.WithObserver(metrics))
		if err != nil {
			return err
		}

		var store *catalog.Store
		if dbPath != "" {
			store, err = catalog.Open(dbPath)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer store.Close()
		}
		cfgJSON, err := json.Marshal(cfg)
		if err != nil {
			return err
		}

		res, err := runScan(ctx, ds, store, cfg.GetDataPath(), string(cfgJSON))
		if err != nil {
			return err
		}
		printStats(cmd.OutOrStdout(), res.stats)
		fmt.Fprintf(cmd.OutOrStdout(), "%d scenes, %d failed\n", ds.Len(), res.failed)
		if res.scanID != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "scan %s\n", res.scanID)
		}

		if metricsPath != "" {
			if err := writeMetrics(cmd.OutOrStdout(), metrics, metricsPath); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVar(&dbPath, "db", "", "scan catalog (SQLite) to record into")
	scanCmd.Flags().StringVar(&metricsPath, "metrics", "", "write Prometheus text metrics here (- for stdout)")
	scanCmd.Flags().IntVar(&batchSize, "batch-size", 8, "scenes loaded per batch")
}

type scanResult struct {
	scanID string
	stats  []l5dataset.SceneStats
	failed int
}

// runScan builds every scene of ds. A failing scene is logged and counted
// without cancelling the rest of its batch.
func runScan(ctx context.Context, ds *l5dataset.Dataset, store *catalog.Store, dataPath, cfgJSON string) (scanResult, error) {
	var res scanResult
	if store != nil {
		id, err := store.StartScan(ctx, ds.Pipeline().Kind, dataPath, cfgJSON)
		if err != nil {
			return res, err
		}
		res.scanID = id
	}

	record := func(s *l5dataset.Sample, elapsed time.Duration) error {
		st := l5dataset.Stats(s)
		res.stats = append(res.stats, st)
		pointseg.Diagf("%s: %d points, %d voxels, %d regions, %d unassigned",
			st.Scene, st.Points, st.Voxels, st.Regions, st.Unassigned)
		if store == nil {
			return nil
		}
		return store.RecordScene(ctx, res.scanID, st, elapsed)
	}

	loader := l5dataset.NewLoader(ds, workers)
	for _, batch := range l5dataset.Batches(ds.Len(), batchSize) {
		start := time.Now()
		samples, errs := loader.LoadEach(ctx, batch)
		if err := ctx.Err(); err != nil {
			return res, err
		}
		per := time.Since(start) / time.Duration(len(batch))
		for k, s := range samples {
			if errs[k] != nil {
				pointseg.Opsf("skipping %s: %v", ds.Name(batch[k]), errs[k])
				res.failed++
				continue
			}
			if err := record(s, per); err != nil {
				return res, err
			}
		}
	}

	if store != nil {
		if err := store.FinishScan(ctx, res.scanID, res.failed); err != nil {
			return res, err
		}
	}
	return res, nil
}

func printStats(w io.Writer, stats []l5dataset.SceneStats) {
	for _, st := range stats {
		fmt.Fprintf(w, "%-32s %9d points %9d voxels %6d regions %9d unassigned\n",
			st.Scene, st.Points, st.Voxels, st.Regions, st.Unassigned)
	}
}

func writeMetrics(stdout io.Writer, m *monitor.Metrics, path string) error {
	if path == "-" {
		return m.WriteText(stdout)
	}
	var buf bytes.Buffer
	if err := m.WriteText(&buf); err != nil {
		return err
	}
	return fileSystem.WriteFile(path, buf.Bytes(), 0644)
}
