package staging

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shaydu/carthorse/internal/entities"
)

// InsertTrail inserts or replaces a trail, keyed by TrailUUID — mirrors the
// teacher's PostGISService.InsertTrail upsert pattern. Every trail record,
// whether freshly ingested or synthesized by a later stage (split piece,
// connector), is validated here first, per spec.md §7's
// "trail record validation on ingestion".
func (s *Store) InsertTrail(ctx context.Context, t *entities.Trail) error {
	if errs := t.Validate(); errs.HasErrors() {
		return fmt.Errorf("staging: insert trail %s: %w", t.TrailUUID, errs)
	}

	geomJSON, err := marshalPoints3D(t.Geometry)
	if err != nil {
		return err
	}
	elevJSON, err := marshalElevation(t.Elevation)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO trails (
			trail_uuid, original_trail_uuid, name, region, trail_type, surface,
			difficulty, source, geometry_json, length_km, elevation_json,
			min_elevation_m, max_elevation_m, avg_elevation_m,
			bbox_min_lng, bbox_min_lat, bbox_max_lng, bbox_max_lat, split_index
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(trail_uuid) DO UPDATE SET
			original_trail_uuid = excluded.original_trail_uuid,
			name = excluded.name,
			region = excluded.region,
			trail_type = excluded.trail_type,
			surface = excluded.surface,
			difficulty = excluded.difficulty,
			source = excluded.source,
			geometry_json = excluded.geometry_json,
			length_km = excluded.length_km,
			elevation_json = excluded.elevation_json,
			min_elevation_m = excluded.min_elevation_m,
			max_elevation_m = excluded.max_elevation_m,
			avg_elevation_m = excluded.avg_elevation_m,
			bbox_min_lng = excluded.bbox_min_lng,
			bbox_min_lat = excluded.bbox_min_lat,
			bbox_max_lng = excluded.bbox_max_lng,
			bbox_max_lat = excluded.bbox_max_lat,
			split_index = excluded.split_index`

	_, err = s.db.ExecContext(ctx, query,
		t.TrailUUID, t.OriginalTrailUUID, t.Name, t.Region, string(t.TrailType), t.Surface,
		string(t.Difficulty), t.Source, geomJSON, t.LengthKM, elevJSON,
		t.MinElevationM, t.MaxElevationM, t.AvgElevationM,
		t.BBox.MinLng, t.BBox.MinLat, t.BBox.MaxLng, t.BBox.MaxLat, t.SplitIndex,
	)
	if err != nil {
		return fmt.Errorf("staging: insert trail %s: %w", t.TrailUUID, err)
	}
	return nil
}

// DeleteTrail removes a trail by UUID.
func (s *Store) DeleteTrail(ctx context.Context, trailUUID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM trails WHERE trail_uuid = ?`, trailUUID)
	if err != nil {
		return fmt.Errorf("staging: delete trail %s: %w", trailUUID, err)
	}
	return nil
}

// GetTrail fetches a single trail by UUID.
func (s *Store) GetTrail(ctx context.Context, trailUUID string) (*entities.Trail, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+trailColumns+` FROM trails WHERE trail_uuid = ?`, trailUUID)
	t, err := scanTrail(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("staging: trail %s: %w", trailUUID, sql.ErrNoRows)
		}
		return nil, err
	}
	return t, nil
}

// ListTrailsByRegion returns every trail tagged with region, ordered by
// trail_uuid for deterministic downstream pair iteration (spec.md §4.4's
// "process pairs in sorted (uuid1, uuid2) order").
func (s *Store) ListTrailsByRegion(ctx context.Context, region string) ([]*entities.Trail, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+trailColumns+` FROM trails WHERE region = ? ORDER BY trail_uuid`, region)
	if err != nil {
		return nil, fmt.Errorf("staging: list trails by region %s: %w", region, err)
	}
	defer rows.Close()
	return scanTrails(rows)
}

// ListTrailsInBBox returns trails whose bounding box intersects the given
// envelope, ordered by trail_uuid, using the bbox-column index. C4 does
// not call it: it prunes candidate pairs in memory with
// BoundingBox.Intersects.
func (s *Store) ListTrailsInBBox(ctx context.Context, bbox entities.BoundingBox) ([]*entities.Trail, error) {
	const query = `
		SELECT ` + trailColumns + ` FROM trails
		WHERE bbox_min_lng <= ? AND bbox_max_lng >= ?
		  AND bbox_min_lat <= ? AND bbox_max_lat >= ?
		ORDER BY trail_uuid`
	rows, err := s.db.QueryContext(ctx, query, bbox.MaxLng, bbox.MinLng, bbox.MaxLat, bbox.MinLat)
	if err != nil {
		return nil, fmt.Errorf("staging: list trails in bbox: %w", err)
	}
	defer rows.Close()
	return scanTrails(rows)
}

// ListAllTrails returns every trail, ordered by trail_uuid.
func (s *Store) ListAllTrails(ctx context.Context) ([]*entities.Trail, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+trailColumns+` FROM trails ORDER BY trail_uuid`)
	if err != nil {
		return nil, fmt.Errorf("staging: list all trails: %w", err)
	}
	defer rows.Close()
	return scanTrails(rows)
}

// CountTrails returns the number of staged trails, used for StageCounts
// diagnostics.
func (s *Store) CountTrails(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trails`).Scan(&n); err != nil {
		return 0, fmt.Errorf("staging: count trails: %w", err)
	}
	return n, nil
}

const trailColumns = `
	trail_uuid, original_trail_uuid, name, region, trail_type, surface,
	difficulty, source, geometry_json, length_km, elevation_json,
	min_elevation_m, max_elevation_m, avg_elevation_m,
	bbox_min_lng, bbox_min_lat, bbox_max_lng, bbox_max_lat, split_index`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrail(row rowScanner) (*entities.Trail, error) {
	var t entities.Trail
	var trailType, difficulty, geomJSON, elevJSON string
	err := row.Scan(
		&t.TrailUUID, &t.OriginalTrailUUID, &t.Name, &t.Region, &trailType, &t.Surface,
		&difficulty, &t.Source, &geomJSON, &t.LengthKM, &elevJSON,
		&t.MinElevationM, &t.MaxElevationM, &t.AvgElevationM,
		&t.BBox.MinLng, &t.BBox.MinLat, &t.BBox.MaxLng, &t.BBox.MaxLat, &t.SplitIndex,
	)
	if err != nil {
		return nil, err
	}
	t.TrailType = entities.TrailType(trailType)
	t.Difficulty = entities.Difficulty(difficulty)
	if t.Geometry, err = unmarshalPoints3D(geomJSON); err != nil {
		return nil, err
	}
	if t.Elevation, err = unmarshalElevation(elevJSON); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTrails(rows *sql.Rows) ([]*entities.Trail, error) {
	var out []*entities.Trail
	for rows.Next() {
		t, err := scanTrail(rows)
		if err != nil {
			return nil, fmt.Errorf("staging: scan trail row: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("staging: iterate trail rows: %w", err)
	}
	return out, nil
}
