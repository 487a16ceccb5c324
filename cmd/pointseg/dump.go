package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/pointseg/internal/pointseg/l5dataset"
	"github.com/banshee-data/pointseg/internal/pointseg/l6batch"
)

var (
	dumpOut   string
	dumpBatch int
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Collate one batch and write it as msgpack",
	Long: `Load batch --batch (of --batch-size scenes), collate it the way the
selected variant's training loop would, and write the result to --out as
msgpack.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := checkOutput(dumpOut); err != nil {
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
		batches := l5dataset.Batches(ds.Len(), batchSize)
		if dumpBatch < 0 || dumpBatch >= len(batches) {
			return fmt.Errorf("batch %d out of range (%d batches)", dumpBatch, len(batches))
		}

		samples, err := l5dataset.NewLoader(ds, workers).Load(ctx, batches[dumpBatch])
		if err != nil {
			return err
		}
		b, err := l6batch.Collate(samples)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := b.WriteMsgpack(&buf); err != nil {
			return err
		}
		if err := fileSystem.WriteFile(dumpOut, buf.Bytes(), 0644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s batch of %d scenes, %d voxels to %s\n",
			b.Kind, len(samples), b.Len(), dumpOut)
		return nil
	},
}

func init() {
	dumpCmd.Flags().StringVar(&dumpOut, "out", "batch.msgpack", "output file")
	dumpCmd.Flags().IntVar(&dumpBatch, "batch", 0, "batch index")
	dumpCmd.Flags().IntVar(&batchSize, "batch-size", 8, "scenes per batch")
}
