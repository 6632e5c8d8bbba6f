// Package loopdecomp implements the Loop Decomposer (C3): it finds trails
// that touch themselves, densifies them, splits them at the self-touch
// points, and re-inserts the pieces as new Trails carrying provenance
// back to the original — grounded on the teacher's gpx_importer.go
// pattern of rewriting one GPX track into several persisted Trail rows.
package loopdecomp

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shaydu/carthorse/internal/config"
	"github.com/shaydu/carthorse/internal/entities"
	"github.com/shaydu/carthorse/internal/geometry"
	"github.com/shaydu/carthorse/internal/staging"
)

// Result summarizes a Decompose pass for StageCounts reporting.
type Result struct {
	TrailsExamined int
	TrailsSplit    int
	PiecesCreated  int
	PiecesDiscarded int
}

// Decompose scans every staged trail for self-intersections, densifying
// and splitting any that touch themselves, per spec.md §4.3. Split pieces
// shorter than cfg.MinSegmentM are discarded (diagnosed, not fatal); the
// original self-touching trail is removed once its pieces are staged.
func Decompose(ctx context.Context, store *staging.Store, cfg *config.Config) (*Result, error) {
	trails, err := store.ListAllTrails(ctx)
	if err != nil {
		return nil, fmt.Errorf("loopdecomp: list trails: %w", err)
	}

	result := &Result{}
	for _, t := range trails {
		select {
		case <-ctx.Done():
			return result, fmt.Errorf("loopdecomp: %w", ctx.Err())
		default:
		}
		result.TrailsExamined++

		line2D := make(geometry.LineString2D, len(t.Geometry))
		for i, p := range t.Geometry {
			line2D[i] = p.To2D()
		}

		simple, err := geometry.IsSimple(line2D)
		if err != nil {
			if recErr := store.RecordSkip(ctx, "C3", t.TrailUUID, err.Error()); recErr != nil {
				return result, recErr
			}
			continue
		}
		if simple {
			continue
		}

		pieces, discarded, err := splitSelfTouching(t, cfg)
		if err != nil {
			if recErr := store.RecordSkip(ctx, "C3", t.TrailUUID, err.Error()); recErr != nil {
				return result, recErr
			}
			continue
		}
		if len(pieces) == 0 {
			if recErr := store.RecordSkip(ctx, "C3", t.TrailUUID, "loop decomposition produced no simple pieces"); recErr != nil {
				return result, recErr
			}
			continue
		}

		for i, piece := range pieces {
			piece.SplitIndex = i
			if err := store.InsertTrail(ctx, piece); err != nil {
				return result, fmt.Errorf("loopdecomp: insert split piece %d of %s: %w", i, t.TrailUUID, err)
			}
		}
		if err := store.DeleteTrail(ctx, t.TrailUUID); err != nil {
			return result, fmt.Errorf("loopdecomp: delete original %s: %w", t.TrailUUID, err)
		}

		result.TrailsSplit++
		result.PiecesCreated += len(pieces)
		result.PiecesDiscarded += discarded
	}
	return result, nil
}

// splitSelfTouching densifies t's geometry to cfg.DensifyIntervalM, then
// cuts it at every self-intersection point, discarding any resulting
// piece shorter than cfg.MinSegmentM.
func splitSelfTouching(t *entities.Trail, cfg *config.Config) ([]*entities.Trail, int, error) {
	line2D, err := densify(t, cfg.DensifyIntervalM)
	if err != nil {
		return nil, 0, err
	}

	touches, err := geometry.SelfIntersections(line2D)
	if err != nil {
		return nil, 0, err
	}
	if len(touches) == 0 {
		// Densifying resolved the apparent self-touch (it was within
		// tolerance of an endpoint); nothing to split.
		return nil, 0, nil
	}

	pieces := []geometry.LineString2D{line2D}
	for _, pt := range touches {
		pieces = splitAllAt(pieces, pt, cfg.SplitBufferDegrees)
	}

	var out []*entities.Trail
	discarded := 0
	for _, piece := range pieces {
		lenM, err := geometry.LengthM(piece)
		if err != nil || lenM < cfg.MinSegmentM {
			discarded++
			continue
		}
		piece3D, err := geometry.Force3D(piece, toLine3D(t.Geometry))
		if err != nil {
			discarded++
			continue
		}
		child := cloneTrailWithGeometry(t, piece3D)
		out = append(out, child)
	}
	return out, discarded, nil
}

func splitAllAt(pieces []geometry.LineString2D, pt entities.Point2D, bufferDeg float64) []geometry.LineString2D {
	var out []geometry.LineString2D
	for _, piece := range pieces {
		split, err := geometry.Split(piece, pt, bufferDeg)
		if err != nil {
			out = append(out, piece)
			continue
		}
		out = append(out, split...)
	}
	return out
}

// densify inserts extra vertices so no segment exceeds intervalM, which
// makes near-tangential self-touches detectable by SelfIntersections
// (spec.md §4.3's densify-before-split step).
func densify(t *entities.Trail, intervalM float64) (geometry.LineString2D, error) {
	line2D := make(geometry.LineString2D, len(t.Geometry))
	for i, p := range t.Geometry {
		line2D[i] = p.To2D()
	}
	if intervalM <= 0 {
		return line2D, nil
	}

	out := geometry.LineString2D{line2D[0]}
	for i := 1; i < len(line2D); i++ {
		a, b := line2D[i-1], line2D[i]
		segLen, err := geometry.LengthM(geometry.LineString2D{a, b})
		if err != nil {
			return nil, err
		}
		steps := int(segLen / intervalM)
		for s := 1; s <= steps; s++ {
			frac := float64(s) / float64(steps+1)
			out = append(out, entities.Point2D{
				Lng: a.Lng + frac*(b.Lng-a.Lng),
				Lat: a.Lat + frac*(b.Lat-a.Lat),
			})
		}
		out = append(out, b)
	}
	return out, nil
}

func toLine3D(points []entities.Point3D) geometry.LineString3D {
	out := make(geometry.LineString3D, len(points))
	copy(out, points)
	return out
}

func cloneTrailWithGeometry(t *entities.Trail, geom geometry.LineString3D) *entities.Trail {
	child := *t
	child.TrailUUID = uuid.NewString()
	child.OriginalTrailUUID = t.TrailUUID
	child.Geometry = geom
	child.Source = "loop_split"
	if lenM, err := geometry.LengthM3D(geom); err == nil {
		child.LengthKM = lenM / 1000.0
	}
	start, end := child.Endpoints()
	child.BBox = boundingBoxOf(geom, start, end)
	return &child
}

func boundingBoxOf(geom []entities.Point3D, _, _ entities.Point3D) entities.BoundingBox {
	bb := entities.BoundingBox{
		MinLng: geom[0].Lng, MaxLng: geom[0].Lng,
		MinLat: geom[0].Lat, MaxLat: geom[0].Lat,
	}
	for _, p := range geom[1:] {
		if p.Lng < bb.MinLng {
			bb.MinLng = p.Lng
		}
		if p.Lng > bb.MaxLng {
			bb.MaxLng = p.Lng
		}
		if p.Lat < bb.MinLat {
			bb.MinLat = p.Lat
		}
		if p.Lat > bb.MaxLat {
			bb.MaxLat = p.Lat
		}
	}
	return bb
}
