// Command pointseg inspects and exercises the S3DIS dataset loaders.
//
// Usage:
//
//	pointseg [flags] <command> [args]
//
// Commands:
//
//	inspect  - list the scenes a loader variant would serve
//	scan     - build every sample, record statistics and metrics
//	dump     - collate one batch and write it as msgpack
//	plot     - region size histograms and a voxel reduction chart
//	migrate  - manage the scan catalog schema
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
