// Package catalog keeps a SQLite record of dataset scans: which loader ran
// over which data, and per-scene point, voxel and region counts.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/pointseg/internal/pointseg/l5dataset"
	"github.com/banshee-data/pointseg/internal/timeutil"
)

// Store wraps the catalog database.
type Store struct {
	db    *sql.DB
	clock timeutil.Clock
}

// Option configures a Store.
type Option func(*Store)

// WithClock stamps scans with c instead of the wall clock.
func WithClock(c timeutil.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// Open opens (creating if needed) the catalog at path and migrates it to
// the latest schema.
func Open(path string, opts ...Option) (*Store, error) {
	// Pragmas in the DSN apply to every pooled connection.
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, clock: timeutil.RealClock{}}
	for _, o := range opts {
		o(s)
	}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Scan is one pass of a loader over a set of scenes.
type Scan struct {
	ScanID       string
	Kind         string
	DataPath     string
	ConfigJSON   string
	StartedAtNs  int64
	FinishedAtNs *int64
	Failed       int
}

// SceneRow is the stored summary of one scene in a scan.
type SceneRow struct {
	ScanID        string
	Scene         string
	Points        int
	Voxels        int
	Regions       int
	Unassigned    int
	LargestRegion int
	LoadMs        float64
}

// StartScan records a new scan and returns its id.
func (s *Store) StartScan(ctx context.Context, kind l5dataset.Kind, dataPath, configJSON string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scans (scan_id, kind, data_path, config_json, started_at_ns)
		VALUES (?, ?, ?, ?, ?)`,
		id, kind.String(), dataPath, configJSON, s.clock.Now().UnixNano())
	if err != nil {
		return "", fmt.Errorf("failed to insert scan: %w", err)
	}
	return id, nil
}

// RecordScene stores the statistics of one scene. Re-recording a scene
// within the same scan replaces the earlier row.
func (s *Store) RecordScene(ctx context.Context, scanID string, st l5dataset.SceneStats, elapsed time.Duration) error {
	largest := 0
	for _, n := range st.Sizes {
		largest = max(largest, n)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO scene_stats (
			scan_id, scene, points, voxels, regions, unassigned, largest_region, load_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		scanID, st.Scene, st.Points, st.Voxels, st.Regions, st.Unassigned, largest,
		float64(elapsed.Microseconds())/1000)
	if err != nil {
		return fmt.Errorf("failed to record scene %s: %w", st.Scene, err)
	}
	return nil
}

// FinishScan marks a scan complete with the number of scenes that failed.
func (s *Store) FinishScan(ctx context.Context, scanID string, failed int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scans SET finished_at_ns = ?, failed = ? WHERE scan_id = ?`,
		s.clock.Now().UnixNano(), failed, scanID)
	if err != nil {
		return fmt.Errorf("failed to finish scan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("scan %s: %w", scanID, sql.ErrNoRows)
	}
	return nil
}

// ListScans returns scans newest first.
func (s *Store) ListScans(ctx context.Context) ([]Scan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT scan_id, kind, data_path, COALESCE(config_json, ''), started_at_ns, finished_at_ns, failed
		FROM scans ORDER BY started_at_ns DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	var out []Scan
	for rows.Next() {
		var sc Scan
		var finished sql.NullInt64
		if err := rows.Scan(&sc.ScanID, &sc.Kind, &sc.DataPath, &sc.ConfigJSON, &sc.StartedAtNs, &finished, &sc.Failed); err != nil {
			return nil, err
		}
		if finished.Valid {
			sc.FinishedAtNs = &finished.Int64
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// SceneRows returns the scenes recorded for a scan, by name.
func (s *Store) SceneRows(ctx context.Context, scanID string) ([]SceneRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT scan_id, scene, points, voxels, regions, unassigned, largest_region, load_ms
		FROM scene_stats WHERE scan_id = ? ORDER BY scene`, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scene stats: %w", err)
	}
	defer rows.Close()

	var out []SceneRow
	for rows.Next() {
		var r SceneRow
		if err := rows.Scan(&r.ScanID, &r.Scene, &r.Points, &r.Voxels, &r.Regions, &r.Unassigned, &r.LargestRegion, &r.LoadMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
