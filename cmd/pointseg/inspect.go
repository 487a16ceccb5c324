package main

import (
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the effective config and the scenes a variant would serve",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ds, err := openDataset(cmd.Context(), fileSystem, cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		p := ds.Pipeline()
		eff := map[string]any{
			"variant":        p.Kind.String(),
			"data_path":      cfg.GetDataPath(),
			"sp_path":        cfg.GetSPPath(),
			"pseudo_path":    cfg.GetPseudoPath(),
			"voxel_size":     cfg.GetVoxelSize(),
			"ignore_label":   cfg.GetIgnoreLabel(),
			"drop_threshold": cfg.GetDropThreshold(),
			"clip_bound":     cfg.GetClipBound(),
			"clip":           p.ClipBeforeVoxelize,
			"augment":        p.Augment,
		}
		b, err := yaml.Marshal(eff)
		if err != nil {
			return err
		}
		fmt.Fprint(out, string(b))
		fmt.Fprintf(out, "scenes: %d\n", ds.Len())
		for i, name := range ds.Names() {
			fmt.Fprintf(out, "  %4d %s\n", i, name)
		}
		return nil
	},
}
