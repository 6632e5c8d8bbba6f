package staging

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shaydu/carthorse/internal/entities"
)

// InsertVertex inserts a vertex and returns its assigned vertex_id (C6's
// node canonicalization writes one row per distinct rounded coordinate).
func (s *Store) InsertVertex(ctx context.Context, v *entities.Vertex) (int64, error) {
	// A zero VertexID is bound as NULL so SQLite assigns the next rowid;
	// binding 0 itself would store vertex_id 0.
	var vertexID any
	if v.VertexID != 0 {
		vertexID = v.VertexID
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO vertices (vertex_id, lng, lat, degree) VALUES (?, ?, ?, ?)`,
		vertexID, v.TheGeom.Lng, v.TheGeom.Lat, v.Degree,
	)
	if err != nil {
		return 0, fmt.Errorf("staging: insert vertex: %w", err)
	}
	if v.VertexID != 0 {
		return v.VertexID, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("staging: vertex last insert id: %w", err)
	}
	return id, nil
}

// UpdateVertexDegree sets the stored degree for a vertex, called once C6
// has counted incident edges.
func (s *Store) UpdateVertexDegree(ctx context.Context, vertexID int64, degree int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE vertices SET degree = ? WHERE vertex_id = ?`, degree, vertexID)
	if err != nil {
		return fmt.Errorf("staging: update vertex %d degree: %w", vertexID, err)
	}
	return nil
}

// FindVertexAt returns the vertex at exactly (lng, lat), if one exists —
// used by C6 to canonicalize endpoints onto a single vertex per location.
func (s *Store) FindVertexAt(ctx context.Context, p entities.Point2D) (*entities.Vertex, error) {
	row := s.db.QueryRowContext(ctx, `SELECT vertex_id, lng, lat, degree FROM vertices WHERE lng = ? AND lat = ?`, p.Lng, p.Lat)
	var v entities.Vertex
	if err := row.Scan(&v.VertexID, &v.TheGeom.Lng, &v.TheGeom.Lat, &v.Degree); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("staging: find vertex at (%v,%v): %w", p.Lng, p.Lat, err)
	}
	return &v, nil
}

// ListVertices returns every staged vertex ordered by vertex_id.
func (s *Store) ListVertices(ctx context.Context) ([]*entities.Vertex, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT vertex_id, lng, lat, degree FROM vertices ORDER BY vertex_id`)
	if err != nil {
		return nil, fmt.Errorf("staging: list vertices: %w", err)
	}
	defer rows.Close()

	var out []*entities.Vertex
	for rows.Next() {
		var v entities.Vertex
		if err := rows.Scan(&v.VertexID, &v.TheGeom.Lng, &v.TheGeom.Lat, &v.Degree); err != nil {
			return nil, fmt.Errorf("staging: scan vertex row: %w", err)
		}
		out = append(out, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("staging: iterate vertex rows: %w", err)
	}
	return out, nil
}

// InsertEdge inserts an edge and returns its assigned edge_id.
func (s *Store) InsertEdge(ctx context.Context, e *entities.Edge) (int64, error) {
	geomJSON, err := marshalPoints2D(e.TheGeom)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO edges (
			source, target, geometry_json, cost, reverse_cost, trail_uuid, name,
			old_id, sub_id, length_km, elev_gain_m, elev_loss_m
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Source, e.Target, geomJSON, e.Cost, e.ReverseCost, e.TrailUUID, e.Name,
		e.OldID, e.SubID, e.LengthKM, e.ElevGainM, e.ElevLossM,
	)
	if err != nil {
		return 0, fmt.Errorf("staging: insert edge: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("staging: edge last insert id: %w", err)
	}
	return id, nil
}

// DeleteEdge removes an edge by id (used by C7 once its endpoints have
// been merged into a contracted chain edge).
func (s *Store) DeleteEdge(ctx context.Context, edgeID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM edges WHERE edge_id = ?`, edgeID)
	if err != nil {
		return fmt.Errorf("staging: delete edge %d: %w", edgeID, err)
	}
	return nil
}

// ListEdges returns every staged edge ordered by edge_id.
func (s *Store) ListEdges(ctx context.Context) ([]*entities.Edge, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+edgeColumns+` FROM edges ORDER BY edge_id`)
	if err != nil {
		return nil, fmt.Errorf("staging: list edges: %w", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

// ListEdgesIncidentTo returns every edge whose source or target is vertexID.
func (s *Store) ListEdgesIncidentTo(ctx context.Context, vertexID int64) ([]*entities.Edge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+edgeColumns+` FROM edges WHERE source = ? OR target = ? ORDER BY edge_id`,
		vertexID, vertexID)
	if err != nil {
		return nil, fmt.Errorf("staging: list edges incident to %d: %w", vertexID, err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

// CountEdges returns the number of staged edges.
func (s *Store) CountEdges(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM edges`).Scan(&n); err != nil {
		return 0, fmt.Errorf("staging: count edges: %w", err)
	}
	return n, nil
}

const edgeColumns = `
	edge_id, source, target, geometry_json, cost, reverse_cost, trail_uuid, name,
	old_id, sub_id, length_km, elev_gain_m, elev_loss_m`

func scanEdges(rows *sql.Rows) ([]*entities.Edge, error) {
	var out []*entities.Edge
	for rows.Next() {
		var e entities.Edge
		var geomJSON string
		if err := rows.Scan(
			&e.EdgeID, &e.Source, &e.Target, &geomJSON, &e.Cost, &e.ReverseCost, &e.TrailUUID, &e.Name,
			&e.OldID, &e.SubID, &e.LengthKM, &e.ElevGainM, &e.ElevLossM,
		); err != nil {
			return nil, fmt.Errorf("staging: scan edge row: %w", err)
		}
		geom, err := unmarshalPoints2D(geomJSON)
		if err != nil {
			return nil, err
		}
		e.TheGeom = geom
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("staging: iterate edge rows: %w", err)
	}
	return out, nil
}
