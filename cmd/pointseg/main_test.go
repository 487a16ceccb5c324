package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pointseg/internal/catalog"
	"github.com/banshee-data/pointseg/internal/fsutil"
	"github.com/banshee-data/pointseg/internal/pointseg/l1sources"
	"github.com/banshee-data/pointseg/internal/pointseg/l6batch"
	"github.com/banshee-data/pointseg/internal/testutil"
)

// setupCLI points the commands at an in-memory dataset and a temp config.
func setupCLI(t *testing.T) *fsutil.MemoryFileSystem {
	t.Helper()
	mem := testutil.MemoryDataset(t, testutil.DefaultLayout(),
		testutil.RoomScene("Area_1_office_1", 6, 4, 0.5),
		testutil.RoomScene("Area_1_hall_1", 24, 4, 0.5),
		testutil.RoomScene("Area_3_storage_1", 4, 4, 0.5),
		testutil.RoomScene("Area_5_conference_1", 5, 5, 0.3),
	)
	prev := fileSystem
	fileSystem = mem
	t.Cleanup(func() { fileSystem = prev })

	cfg := filepath.Join(t.TempDir(), "dataset.json")
	require.NoError(t, os.WriteFile(cfg, []byte(`{"seed": 7, "drop_threshold": 2}`), 0644))

	// Flag variables outlive a single Execute.
	cfgFile, variant, mode, areas = cfg, "train", "train", ""
	workers, batchSize, logLevel = 2, 8, "none"
	dbPath, metricsPath, migrateDB = "", "", ""
	dumpOut, dumpBatch, plotDir = "batch.msgpack", 0, "plots"
	if f := rootCmd.Flags().Lookup("version"); f != nil {
		require.NoError(t, f.Value.Set("false"))
	}
	return mem
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInspect_TrainAreas(t *testing.T) {
	setupCLI(t)
	out, err := runCLI(t, "inspect", "--variant", "train", "--mode", "cluster")
	require.NoError(t, err)
	assert.Contains(t, out, "scenes: 3")
	assert.Contains(t, out, "Area_1_office_1")
	assert.Contains(t, out, "Area_3_storage_1")
	assert.NotContains(t, out, "Area_5_conference_1")
	assert.Contains(t, out, "variant: train")
}

func TestInspect_AreaFlag(t *testing.T) {
	setupCLI(t)
	out, err := runCLI(t, "inspect", "--variant", "cluster", "--areas", "Area_3, Area_5")
	require.NoError(t, err)
	assert.Contains(t, out, "scenes: 2")
	assert.Contains(t, out, "Area_5_conference_1")
}

func TestInspect_UnknownVariant(t *testing.T) {
	setupCLI(t)
	_, err := runCLI(t, "inspect", "--variant", "bogus")
	assert.ErrorContains(t, err, "unknown variant")
}

func TestScan_RecordsCatalog(t *testing.T) {
	mem := setupCLI(t)
	db := filepath.Join(t.TempDir(), "catalog.db")
	out, err := runCLI(t, "scan", "--variant", "cluster", "--db", db, "--batch-size", "2", "--metrics", "metrics.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "3 scenes, 0 failed")

	metrics, err := mem.ReadFile("metrics.txt")
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `pointseg_samples_total{kind="cluster"} 3`)

	store, err := catalog.Open(db)
	require.NoError(t, err)
	defer store.Close()
	scans, err := store.ListScans(context.Background())
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Equal(t, "cluster", scans[0].Kind)
	assert.Contains(t, out, scans[0].ScanID)
	rows, err := store.SceneRows(context.Background(), scans[0].ScanID)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestScan_CountsFailedScenes(t *testing.T) {
	mem := setupCLI(t)
	// A pseudo label file of the wrong length fails only that scene.
	var buf bytes.Buffer
	require.NoError(t, l1sources.WriteInt64s(&buf, []int64{1, 2, 3}))
	require.NoError(t, mem.WriteFile("pseudo_label_s3dis/Area_1_office_1.npy", buf.Bytes(), 0644))

	out, err := runCLI(t, "scan", "--variant", "train", "--mode", "train", "--batch-size", "3", "--metrics", "metrics.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "3 scenes, 1 failed")
	assert.NotContains(t, out, "Area_1_office_1 ")

	// Batch siblings of the failed scene are neither cancelled nor counted twice.
	metrics, err := mem.ReadFile("metrics.txt")
	require.NoError(t, err)
	text := string(metrics)
	assert.Contains(t, text, `pointseg_samples_total{kind="train"} 2`)
	assert.Contains(t, text, `pointseg_sample_errors_total{cause="length_mismatch",kind="train"} 1`)
	assert.NotContains(t, text, `cause="canceled"`)
}

func TestDump_TestBatch(t *testing.T) {
	mem := setupCLI(t)
	out, err := runCLI(t, "dump", "--variant", "test", "--out", "out/test.msgpack")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote test batch of 1 scenes")

	data, err := mem.ReadFile("out/test.msgpack")
	require.NoError(t, err)
	b, err := l6batch.ReadBatch(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "test", b.Kind)
	assert.Equal(t, []string{"Area_5_conference_1"}, b.SceneNames)
	assert.Equal(t, b.Len(), b.Feats.Rows)
}

func TestDump_BatchOutOfRange(t *testing.T) {
	setupCLI(t)
	_, err := runCLI(t, "dump", "--variant", "cluster", "--batch", "5")
	assert.ErrorContains(t, err, "out of range")
}

func TestDump_RejectsEscapingPath(t *testing.T) {
	setupCLI(t)
	_, err := runCLI(t, "dump", "--variant", "test", "--out", "../../escape.msgpack")
	assert.ErrorContains(t, err, "path traversal")
}

func TestVersionFlag(t *testing.T) {
	setupCLI(t)
	out, err := runCLI(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "dev")
}

func TestPlot_WritesFiles(t *testing.T) {
	mem := setupCLI(t)
	out, err := runCLI(t, "plot", "--variant", "cluster", "--out", "plots")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)
	for _, l := range lines {
		if strings.HasPrefix(l, "plots/") {
			assert.True(t, mem.Exists(l), l)
		}
	}
	assert.True(t, mem.Exists("plots/cluster_reduction.html"))
}

func TestMigrate_Version(t *testing.T) {
	setupCLI(t)
	db := filepath.Join(t.TempDir(), "m.db")
	out, err := runCLI(t, "migrate", "version", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "version 2 (dirty=false)")

	out, err = runCLI(t, "migrate", "down", "--db", db)
	require.NoError(t, err)
	// Open migrates up before rolling back one step.
	assert.Contains(t, out, "version 1")
}

func TestSetupLogging(t *testing.T) {
	var buf bytes.Buffer
	for _, level := range []string{"none", "ops", "diag", "trace"} {
		assert.NoError(t, setupLogging(&buf, level))
	}
	assert.Error(t, setupLogging(&buf, "loud"))
	require.NoError(t, setupLogging(nil, "none"))
}
