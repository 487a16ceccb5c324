package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/banshee-data/pointseg/internal/pointseg/monitor"
)

var plotDir string

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Plot region size histograms and the voxel reduction chart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := checkOutput(plotDir); err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ds, err := openDataset(ctx, fileSystem, cfg)
		if err != nil {
			return err
		}
		res, err := runScan(ctx, ds, nil, cfg.GetDataPath(), "")
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		rp := monitor.NewRegionPlotter(fileSystem, plotDir)
		for _, st := range res.stats {
			path, err := rp.Plot(st)
			if err != nil {
				return fmt.Errorf("plot %s: %w", st.Scene, err)
			}
			if path != "" {
				fmt.Fprintln(out, path)
			}
		}
		chart := filepath.Join(plotDir, ds.Pipeline().Kind.String()+"_reduction.html")
		if err := monitor.RenderReductionChart(fileSystem, chart, res.stats); err != nil {
			return err
		}
		fmt.Fprintln(out, chart)
		return nil
	},
}

func init() {
	plotCmd.Flags().StringVar(&plotDir, "out", "plots", "output directory")
	plotCmd.Flags().IntVar(&batchSize, "batch-size", 8, "scenes loaded per batch")
}
