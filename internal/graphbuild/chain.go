package graphbuild

import (
	"context"
	"fmt"

	"github.com/shaydu/carthorse/internal/config"
	"github.com/shaydu/carthorse/internal/entities"
	"github.com/shaydu/carthorse/internal/staging"
)

// MergeResult summarizes a MergeChains pass.
type MergeResult struct {
	ChainsMerged int
	EdgesRemoved int
}

// MergeChains contracts every maximal degree-2 path into a single edge,
// per spec.md §4.7: geometry is concatenated (reversing a segment's
// geometry when its stored direction runs the wrong way along the
// chain), length/elevation are summed, and provenance is recorded as
// "merged:{e1.trail_uuid}+{e2.trail_uuid}". A closed loop through only
// degree-2 vertices (a "bubble") is left untouched, per spec.md's bubble
// exception, since contracting it would leave a dangling self-loop with
// no distinguishable start vertex.
func MergeChains(ctx context.Context, store *staging.Store, cfg *config.Config) (*MergeResult, error) {
	if !cfg.MergeDegree2 {
		return &MergeResult{}, nil
	}

	result := &MergeResult{}
	for {
		select {
		case <-ctx.Done():
			return result, fmt.Errorf("graphbuild: merge chains: %w", ctx.Err())
		default:
		}

		merged, err := mergeOnePass(ctx, store)
		if err != nil {
			return result, err
		}
		if merged == 0 {
			break
		}
		result.ChainsMerged++
		result.EdgesRemoved++
	}
	return result, nil
}

// mergeOnePass finds a single degree-2 vertex with exactly two distinct
// incident edges and contracts them into one, returning 1 if it merged
// something and 0 once the graph has no more mergeable vertices
// (idempotence: re-running after a dry pass is a no-op).
func mergeOnePass(ctx context.Context, store *staging.Store) (int, error) {
	vertices, err := store.ListVertices(ctx)
	if err != nil {
		return 0, fmt.Errorf("graphbuild: list vertices: %w", err)
	}

	for _, v := range vertices {
		if v.Degree != 2 {
			continue
		}
		edges, err := store.ListEdgesIncidentTo(ctx, v.VertexID)
		if err != nil {
			return 0, fmt.Errorf("graphbuild: list edges incident to %d: %w", v.VertexID, err)
		}
		if len(edges) != 2 || edges[0].EdgeID == edges[1].EdgeID {
			continue
		}
		// A bubble: both edges run from v back to the same other vertex
		// u, i.e. contracting would close the chain into a loop — leave
		// it alone (spec.md §4.7: do not merge that last step).
		if isBubble(edges[0], edges[1], v.VertexID) {
			continue
		}

		merged, err := contractAt(v.VertexID, edges[0], edges[1])
		if err != nil {
			return 0, err
		}
		if _, err := store.InsertEdge(ctx, merged); err != nil {
			return 0, fmt.Errorf("graphbuild: insert merged edge: %w", err)
		}
		if err := store.DeleteEdge(ctx, edges[0].EdgeID); err != nil {
			return 0, err
		}
		if err := store.DeleteEdge(ctx, edges[1].EdgeID); err != nil {
			return 0, err
		}
		if err := store.UpdateVertexDegree(ctx, v.VertexID, 0); err != nil {
			return 0, err
		}
		if err := recomputeDegreesAt(ctx, store, merged.Source, merged.Target); err != nil {
			return 0, err
		}
		return 1, nil
	}
	return 0, nil
}

func isBubble(e1, e2 *entities.Edge, throughID int64) bool {
	return otherEnd(e1, throughID) == otherEnd(e2, throughID)
}

func otherEnd(e *entities.Edge, vertexID int64) int64 {
	if e.Source == vertexID {
		return e.Target
	}
	return e.Source
}

// contractAt merges e1 and e2, both incident to the shared degree-2
// vertex through, into a single edge spanning their other two endpoints.
func contractAt(through int64, e1, e2 *entities.Edge) (*entities.Edge, error) {
	g1 := orientTo(e1, through)
	g2 := orientFrom(e2, through)

	geom := make([]entities.Point2D, 0, len(g1)+len(g2)-1)
	geom = append(geom, g1...)
	geom = append(geom, g2[1:]...)

	src := otherEnd(e1, through)
	dst := otherEnd(e2, through)

	return &entities.Edge{
		Source:      src,
		Target:      dst,
		TheGeom:     geom,
		Cost:        e1.Cost + e2.Cost,
		ReverseCost: e1.ReverseCost + e2.ReverseCost,
		TrailUUID:   fmt.Sprintf("merged:%s+%s", e1.TrailUUID, e2.TrailUUID),
		Name:        mergedName(e1, e2),
		OldID:       e1.EdgeID,
		SubID:       e2.EdgeID,
		LengthKM:    e1.LengthKM + e2.LengthKM,
		ElevGainM:   e1.ElevGainM + e2.ElevGainM,
		ElevLossM:   e1.ElevLossM + e2.ElevLossM,
	}, nil
}

func mergedName(e1, e2 *entities.Edge) string {
	if e1.Name == e2.Name {
		return e1.Name
	}
	return e1.Name + " / " + e2.Name
}

// orientTo returns e's geometry running toward endVertex (ending at it).
func orientTo(e *entities.Edge, endVertex int64) []entities.Point2D {
	if e.Target == endVertex {
		return e.TheGeom
	}
	return reverse(e.TheGeom)
}

// orientFrom returns e's geometry running away from startVertex (starting
// at it).
func orientFrom(e *entities.Edge, startVertex int64) []entities.Point2D {
	if e.Source == startVertex {
		return e.TheGeom
	}
	return reverse(e.TheGeom)
}

func reverse(points []entities.Point2D) []entities.Point2D {
	out := make([]entities.Point2D, len(points))
	for i, p := range points {
		out[len(points)-1-i] = p
	}
	return out
}

func recomputeDegreesAt(ctx context.Context, store *staging.Store, vertexIDs ...int64) error {
	for _, id := range vertexIDs {
		edges, err := store.ListEdgesIncidentTo(ctx, id)
		if err != nil {
			return fmt.Errorf("graphbuild: list edges incident to %d: %w", id, err)
		}
		if err := store.UpdateVertexDegree(ctx, id, len(edges)); err != nil {
			return err
		}
	}
	return nil
}
