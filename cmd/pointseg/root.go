package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/pointseg/internal/config"
	"github.com/banshee-data/pointseg/internal/fsutil"
	"github.com/banshee-data/pointseg/internal/pointseg"
	"github.com/banshee-data/pointseg/internal/pointseg/l5dataset"
	"github.com/banshee-data/pointseg/internal/security"
	"github.com/banshee-data/pointseg/internal/version"
)

var (
	cfgFile  string
	variant  string
	mode     string
	areas    string
	workers  int
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "pointseg",
	Short: "S3DIS point cloud dataset loader tools",
	Long: `pointseg drives the distill, cluster, train and test dataset loaders
over a preprocessed S3DIS tree.

Scene files are read relative to data_path, sp_path and pseudo_path from
the dataset config (default config/dataset.defaults.json).`,
	Version:      version.String(),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(cmd.ErrOrStderr(), logLevel)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", config.DefaultConfigPath, "dataset config (.json, .yaml or .yml)")
	pf.StringVar(&variant, "variant", "train", "loader variant: distill, cluster, train or test")
	pf.StringVar(&mode, "mode", "train", "train loader mode: cluster or train")
	pf.StringVar(&areas, "areas", "", "comma separated area prefixes (default from config)")
	pf.IntVar(&workers, "workers", 4, "concurrent sample builds")
	pf.StringVar(&logLevel, "log", "ops", "log streams to stderr: none, ops, diag or trace")

	rootCmd.AddCommand(inspectCmd, scanCmd, dumpCmd, plotCmd, migrateCmd)
}

// setupLogging enables the ops, diag and trace streams up to level.
func setupLogging(w io.Writer, level string) error {
	var lw pointseg.LogWriters
	switch level {
	case "trace":
		lw.Trace = w
		fallthrough
	case "diag":
		lw.Diag = w
		fallthrough
	case "ops":
		lw.Ops = w
	case "none":
	default:
		return fmt.Errorf("unknown log level %q", level)
	}
	pointseg.SetLogWriters(lw)
	return nil
}

func loadConfig() (*config.DatasetConfig, error) {
	if cfgFile == "" {
		return config.EmptyDatasetConfig(), nil
	}
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) && cfgFile == config.DefaultConfigPath {
		pointseg.Opsf("%s not found, using built-in defaults", cfgFile)
		return config.EmptyDatasetConfig(), nil
	}
	return config.LoadDatasetConfig(cfgFile)
}

func areaList() []string {
	if areas == "" {
		return nil
	}
	var out []string
	for _, a := range strings.Split(areas, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// openDataset builds the loader variant selected by the persistent flags.
func openDataset(ctx context.Context, fsys fsutil.FileSystem, cfg *config.DatasetConfig, opts ...l5dataset.Option) (*l5dataset.Dataset, error) {
	a := areaList()
	switch variant {
	case "distill":
		return l5dataset.NewDistillDataset(ctx, fsys, cfg, a, opts...)
	case "cluster":
		return l5dataset.NewClusterDataset(ctx, fsys, cfg, a, opts...)
	case "train":
		m, err := l5dataset.ParseMode(mode)
		if err != nil {
			return nil, err
		}
		return l5dataset.NewTrainDataset(ctx, fsys, cfg, m, a, opts...)
	case "test":
		return l5dataset.NewTestDataset(ctx, fsys, cfg, a, opts...)
	default:
		return nil, fmt.Errorf("unknown variant %q", variant)
	}
}

// checkOutput rejects output paths that leave the working directory.
func checkOutput(path string) error {
	if err := security.ValidatePathWithinDirectory(path, "."); err != nil {
		return fmt.Errorf("output %s: %w", path, err)
	}
	return nil
}
