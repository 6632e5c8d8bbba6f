// Package staging implements the Staging Store (C2): a per-run SQLite
// workspace holding the trails, edges, vertices and diagnostics a pipeline
// run produces, mirroring the teacher's PostGISService in structure
// (sql.DB handle, ExecContext/QueryContext, explicit error wrapping) but
// backed by modernc.org/sqlite's pure-Go driver instead of PostGIS, since
// the pipeline owns a disposable per-run database rather than a shared
// server.
package staging

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"

	_ "modernc.org/sqlite"

	"github.com/shaydu/carthorse/internal/entities"
)

// identifierPattern validates any table/column name interpolated into a DDL
// statement, per spec.md §9's "no dynamic SQL built from interpolated user
// data" re-architecture note. All DML in this package uses bound
// parameters; Reset is the one place that must build a DDL statement by
// concatenation (DROP TABLE doesn't accept a bound parameter), so it
// checks every table name against this pattern first.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ErrInvalidIdentifier is returned by any helper asked to use a SQL
// identifier that fails identifierPattern.
var ErrInvalidIdentifier = fmt.Errorf("staging: invalid identifier")

// Store is a single run's staging workspace. It is not safe for concurrent
// writers beyond what SQLite's own locking provides; the pipeline runs its
// stages sequentially against one Store.
type Store struct {
	db *sql.DB
}

// Open creates (or opens) the SQLite database at path and ensures the
// schema exists. An empty path opens an in-memory database, used by tests.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("staging: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: one writer at a time

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("staging: ping %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trails (
			trail_uuid TEXT PRIMARY KEY,
			original_trail_uuid TEXT,
			name TEXT,
			region TEXT,
			trail_type TEXT,
			surface TEXT,
			difficulty TEXT,
			source TEXT,
			geometry_json TEXT NOT NULL,
			length_km REAL,
			elevation_json TEXT,
			min_elevation_m REAL,
			max_elevation_m REAL,
			avg_elevation_m REAL,
			bbox_min_lng REAL,
			bbox_min_lat REAL,
			bbox_max_lng REAL,
			bbox_max_lat REAL,
			split_index INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trails_bbox ON trails(bbox_min_lng, bbox_min_lat, bbox_max_lng, bbox_max_lat)`,
		`CREATE INDEX IF NOT EXISTS idx_trails_region ON trails(region)`,
		`CREATE TABLE IF NOT EXISTS vertices (
			vertex_id INTEGER PRIMARY KEY,
			lng REAL NOT NULL,
			lat REAL NOT NULL,
			degree INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_vertices_coords ON vertices(lng, lat)`,
		`CREATE TABLE IF NOT EXISTS edges (
			edge_id INTEGER PRIMARY KEY,
			source INTEGER NOT NULL,
			target INTEGER NOT NULL,
			geometry_json TEXT NOT NULL,
			cost REAL,
			reverse_cost REAL,
			trail_uuid TEXT,
			name TEXT,
			old_id INTEGER,
			sub_id INTEGER,
			length_km REAL,
			elev_gain_m REAL,
			elev_loss_m REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target)`,
		`CREATE TABLE IF NOT EXISTS diagnostics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			stage TEXT NOT NULL,
			reason TEXT NOT NULL,
			detail TEXT,
			trail_uuid TEXT
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("staging: migrate: %w", err)
		}
	}
	return nil
}

// Reset drops and recreates every table, giving the store teardown
// idempotence between runs (spec.md §4.2: "teardown must be idempotent").
func (s *Store) Reset(ctx context.Context) error {
	for _, table := range []string{"trails", "vertices", "edges", "diagnostics"} {
		if !identifierPattern.MatchString(table) {
			return fmt.Errorf("%w: %q", ErrInvalidIdentifier, table)
		}
		if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS `+table); err != nil {
			return fmt.Errorf("staging: reset drop %s: %w", table, err)
		}
	}
	return s.migrate(ctx)
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on any returned error — the teacher's services wrap multi-step
// writes the same way via explicit error checks, generalized here to a
// single reusable helper.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("staging: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("staging: rollback after %v: %w", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("staging: commit tx: %w", err)
	}
	return nil
}

func marshalPoints3D(points []entities.Point3D) (string, error) {
	b, err := json.Marshal(points)
	if err != nil {
		return "", fmt.Errorf("staging: marshal geometry: %w", err)
	}
	return string(b), nil
}

func unmarshalPoints3D(s string) ([]entities.Point3D, error) {
	var points []entities.Point3D
	if err := json.Unmarshal([]byte(s), &points); err != nil {
		return nil, fmt.Errorf("staging: unmarshal geometry: %w", err)
	}
	return points, nil
}

func marshalPoints2D(points []entities.Point2D) (string, error) {
	b, err := json.Marshal(points)
	if err != nil {
		return "", fmt.Errorf("staging: marshal geometry: %w", err)
	}
	return string(b), nil
}

func unmarshalPoints2D(s string) ([]entities.Point2D, error) {
	var points []entities.Point2D
	if err := json.Unmarshal([]byte(s), &points); err != nil {
		return nil, fmt.Errorf("staging: unmarshal geometry: %w", err)
	}
	return points, nil
}

func marshalElevation(e entities.ElevationProfile) (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("staging: marshal elevation: %w", err)
	}
	return string(b), nil
}

func unmarshalElevation(s string) (entities.ElevationProfile, error) {
	var e entities.ElevationProfile
	if s == "" {
		return e, nil
	}
	if err := json.Unmarshal([]byte(s), &e); err != nil {
		return e, fmt.Errorf("staging: unmarshal elevation: %w", err)
	}
	return e, nil
}
