// Package graphbuild implements the Node-Network Builder (C6): it turns
// the staged edge geometries into a canonical vertex set plus
// source/target-assigned edges, the way the teacher's PostGISService
// shapes raw rows into domain entities before handing them to a caller.
package graphbuild

import (
	"context"
	"fmt"
	"sort"

	"github.com/shaydu/carthorse/internal/config"
	"github.com/shaydu/carthorse/internal/entities"
	"github.com/shaydu/carthorse/internal/perr"
	"github.com/shaydu/carthorse/internal/staging"
)

// BuildResult summarizes what BuildNodes did, for StageCounts reporting.
type BuildResult struct {
	VerticesCreated int
	EdgesAssigned   int
}

// BuildNodes reads every staged trail, treats each as a single candidate
// edge between its two endpoints, canonicalizes endpoints onto shared
// vertices by rounded coordinate (spec.md §4.6), and writes the resulting
// vertices/edges back to the store. Trails must already be fully split
// (C3/C4/C5 complete) before this runs.
func BuildNodes(ctx context.Context, store *staging.Store, cfg *config.Config) (*BuildResult, error) {
	trails, err := store.ListAllTrails(ctx)
	if err != nil {
		return nil, fmt.Errorf("graphbuild: list trails: %w", err)
	}
	if len(trails) == 0 {
		return nil, perr.ErrEmptyGraph
	}

	canon := newVertexCanon(cfg.RoundDecimals)
	result := &BuildResult{}

	// Allocate vertex IDs in sorted (lng, lat) order over every distinct
	// rounded endpoint, per spec.md §4.6 step 2 — independent of the
	// order trails happen to be listed in.
	seen := make(map[entities.Point2D]struct{})
	var coords []entities.Point2D
	for _, t := range trails {
		start3D, end3D := t.Endpoints()
		for _, p := range [2]entities.Point2D{start3D.To2D(), end3D.To2D()} {
			key := p.RoundTo(cfg.RoundDecimals)
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				coords = append(coords, key)
			}
		}
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].Lng != coords[j].Lng {
			return coords[i].Lng < coords[j].Lng
		}
		return coords[i].Lat < coords[j].Lat
	})
	for _, c := range coords {
		_, created, err := canon.resolve(ctx, store, c)
		if err != nil {
			return nil, err
		}
		if created {
			result.VerticesCreated++
		}
	}

	for _, t := range trails {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("graphbuild: %w", perr.ErrCancelled)
		default:
		}

		start3D, end3D := t.Endpoints()
		startID, _, err := canon.resolve(ctx, store, start3D.To2D())
		if err != nil {
			return nil, err
		}
		endID, _, err := canon.resolve(ctx, store, end3D.To2D())
		if err != nil {
			return nil, err
		}

		// Reject zero-length edges after rounding (spec.md §4.6 step 5):
		// diagnose and skip rather than inserting a source==target edge.
		if startID == endID {
			if err := store.RecordSkip(ctx, "C6", t.TrailUUID, "zero-length edge after rounding: source == target"); err != nil {
				return nil, err
			}
			continue
		}

		geom2D := make([]entities.Point2D, len(t.Geometry))
		for i, p := range t.Geometry {
			geom2D[i] = p.To2D()
		}

		edge := &entities.Edge{
			Source:      startID,
			Target:      endID,
			TheGeom:     geom2D,
			Cost:        t.LengthKM,
			ReverseCost: t.LengthKM,
			TrailUUID:   t.TrailUUID,
			Name:        t.Name,
			LengthKM:    t.LengthKM,
			ElevGainM:   t.Elevation.GainM,
			ElevLossM:   t.Elevation.LossM,
		}
		if _, err := store.InsertEdge(ctx, edge); err != nil {
			return nil, fmt.Errorf("graphbuild: insert edge for trail %s: %w", t.TrailUUID, err)
		}
		result.EdgesAssigned++
	}

	if err := recomputeDegrees(ctx, store); err != nil {
		return nil, err
	}
	if result.EdgesAssigned == 0 {
		return nil, perr.ErrEmptyGraph
	}
	return result, nil
}

// recomputeDegrees sets every vertex's Degree to its incident edge count,
// per spec.md §4.6's "maintain degree consistent with the edge table".
func recomputeDegrees(ctx context.Context, store *staging.Store) error {
	vertices, err := store.ListVertices(ctx)
	if err != nil {
		return fmt.Errorf("graphbuild: list vertices: %w", err)
	}
	for _, v := range vertices {
		edges, err := store.ListEdgesIncidentTo(ctx, v.VertexID)
		if err != nil {
			return fmt.Errorf("graphbuild: list edges incident to vertex %d: %w", v.VertexID, err)
		}
		if err := store.UpdateVertexDegree(ctx, v.VertexID, len(edges)); err != nil {
			return err
		}
	}
	return nil
}

// vertexCanon canonicalizes endpoint coordinates onto a single vertex ID
// per rounded location, allocating new IDs sequentially.
type vertexCanon struct {
	decimals int
	nextID   int64
	seen     map[entities.Point2D]int64
}

func newVertexCanon(decimals int) *vertexCanon {
	return &vertexCanon{decimals: decimals, seen: make(map[entities.Point2D]int64)}
}

// resolve returns the canonical vertex ID for p (rounded to v.decimals),
// creating and persisting a new vertex row the first time a location is
// seen. The bool return reports whether a new vertex was created.
func (v *vertexCanon) resolve(ctx context.Context, store *staging.Store, p entities.Point2D) (int64, bool, error) {
	key := p.RoundTo(v.decimals)
	if id, ok := v.seen[key]; ok {
		return id, false, nil
	}

	if existing, err := store.FindVertexAt(ctx, key); err != nil {
		return 0, false, fmt.Errorf("graphbuild: find vertex at (%v,%v): %w", key.Lng, key.Lat, err)
	} else if existing != nil {
		v.seen[key] = existing.VertexID
		return existing.VertexID, false, nil
	}

	v.nextID++
	vertex := &entities.Vertex{VertexID: v.nextID, TheGeom: key}
	id, err := store.InsertVertex(ctx, vertex)
	if err != nil {
		return 0, false, fmt.Errorf("graphbuild: insert vertex: %w", err)
	}
	v.seen[key] = id
	return id, true, nil
}
