// Package splitter implements the Intersection Splitter (C4): Pass A
// finds exact X/Y crossings between distinct trails and splits both at
// the crossing point; Pass B finds near-miss T/Y intersections within a
// small tolerance and splits the through-trail at the near point. Both
// passes run to a fixpoint (spec.md §4.4), processing candidate pairs in
// deterministic (uuid1, uuid2) order so reruns are reproducible.
package splitter

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/shaydu/carthorse/internal/config"
	"github.com/shaydu/carthorse/internal/entities"
	"github.com/shaydu/carthorse/internal/geometry"
	"github.com/shaydu/carthorse/internal/staging"
)

// Result summarizes a Split pass for StageCounts reporting.
type Result struct {
	PairsExamined int
	SplitsMade    int
	PairsFailed   int
}

// Split runs Pass A and Pass B to a fixpoint, per spec.md §4.4.
func Split(ctx context.Context, store *staging.Store, cfg *config.Config) (*Result, error) {
	result := &Result{}
	for {
		select {
		case <-ctx.Done():
			return result, fmt.Errorf("splitter: %w", ctx.Err())
		default:
		}

		madeA, err := passA(ctx, store, cfg, result)
		if err != nil {
			return result, err
		}
		madeB, err := passB(ctx, store, cfg, result)
		if err != nil {
			return result, err
		}
		if !madeA && !madeB {
			break
		}
	}
	return result, nil
}

// passA finds one exact crossing among all staged trail pairs and splits
// both trails at it, returning true if it made a split. It re-reads the
// trail list each call since a split invalidates the previous set.
func passA(ctx context.Context, store *staging.Store, cfg *config.Config, result *Result) (bool, error) {
	pairs, err := sortedPairs(ctx, store)
	if err != nil {
		return false, err
	}

	for _, pair := range pairs {
		result.PairsExamined++
		a, b := pair[0], pair[1]

		lineA, lineB := to2D(a), to2D(b)
		snappedA, err := geometry.Snap(lineA, lineB, cfg.SnapTolDegrees)
		if err != nil {
			result.PairsFailed++
			_ = store.RecordSkip(ctx, "C4-A", pairKey(a, b), err.Error())
			continue
		}
		snappedB, err := geometry.Snap(lineB, lineA, cfg.SnapTolDegrees)
		if err != nil {
			result.PairsFailed++
			_ = store.RecordSkip(ctx, "C4-A", pairKey(a, b), err.Error())
			continue
		}

		hits, err := geometry.Intersect(snappedA, snappedB)
		if err != nil {
			result.PairsFailed++
			_ = store.RecordSkip(ctx, "C4-A", pairKey(a, b), err.Error())
			continue
		}
		points := dedupPoints(pointsOnly(hits), cfg.PointMergeTolDegrees)
		if len(points) == 0 {
			continue
		}

		n, err := splitBothAt(ctx, store, cfg, a, b, points[0])
		if err != nil {
			result.PairsFailed++
			_ = store.RecordSkip(ctx, "C4-A", pairKey(a, b), err.Error())
			continue
		}
		if n == 0 {
			continue
		}
		result.SplitsMade += n
		return true, nil
	}
	return false, nil
}

// passB finds one near-miss T/Y intersection (an endpoint of one trail
// landing within cfg.TIntersectionTolM of another trail's interior) and
// splits the through-trail there.
func passB(ctx context.Context, store *staging.Store, cfg *config.Config, result *Result) (bool, error) {
	pairs, err := sortedPairs(ctx, store)
	if err != nil {
		return false, err
	}

	for _, pair := range pairs {
		a, b := pair[0], pair[1]
		if hit, err := tryTIntersection(ctx, store, cfg, a, b); err != nil {
			result.PairsFailed++
			_ = store.RecordSkip(ctx, "C4-B", pairKey(a, b), err.Error())
			continue
		} else if hit {
			result.SplitsMade++
			return true, nil
		}
		if hit, err := tryTIntersection(ctx, store, cfg, b, a); err != nil {
			result.PairsFailed++
			_ = store.RecordSkip(ctx, "C4-B", pairKey(b, a), err.Error())
			continue
		} else if hit {
			result.SplitsMade++
			return true, nil
		}
	}
	return false, nil
}

// tryTIntersection checks whether either endpoint of endpointOwner lands
// within cfg.TIntersectionTolM of through's interior and, if so, splits
// through there.
func tryTIntersection(ctx context.Context, store *staging.Store, cfg *config.Config, endpointOwner, through *entities.Trail) (bool, error) {
	throughLine := to2D(through)
	start, end := endpointOwner.Endpoints()
	for _, ep := range []entities.Point2D{start.To2D(), end.To2D()} {
		distM, err := geometry.PointToLineDistanceM(throughLine, ep)
		if err != nil {
			return false, err
		}
		if distM == 0 || distM > cfg.TIntersectionTolM {
			continue
		}
		cp, _, err := geometry.ClosestPoint(throughLine, ep)
		if err != nil {
			return false, err
		}
		split, err := splitOneAt(ctx, store, cfg, through, cp)
		if err != nil {
			return false, err
		}
		if !split {
			continue
		}
		return true, nil
	}
	return false, nil
}

// splitBothAt splits a and b at pt, replacing each with its two pieces,
// and returns how many of the two trails were actually split.
func splitBothAt(ctx context.Context, store *staging.Store, cfg *config.Config, a, b *entities.Trail, pt entities.Point2D) (int, error) {
	n := 0
	for _, t := range []*entities.Trail{a, b} {
		split, err := splitOneAt(ctx, store, cfg, t, pt)
		if err != nil {
			return n, err
		}
		if split {
			n++
		}
	}
	return n, nil
}

// splitOneAt splits trail t at pt and writes the pieces back, removing
// the original, and reports whether it did so. The split is declined
// (false, no error) when geometry.Split rejects pt (perr.ErrDegenerateSplit:
// pt is not within the buffer of the line), when pt falls on an endpoint
// of t (a single piece comes back), or when any piece would be shorter
// than cfg.MinSegmentM; t is then left unchanged.
func splitOneAt(ctx context.Context, store *staging.Store, cfg *config.Config, t *entities.Trail, pt entities.Point2D) (bool, error) {
	line := to2D(t)
	pieces, err := geometry.Split(line, pt, cfg.SplitBufferDegrees)
	if err != nil {
		return false, nil
	}
	if len(pieces) < 2 {
		return false, nil
	}

	children := make([]*entities.Trail, 0, len(pieces))
	for i, piece := range pieces {
		lenM, err := geometry.LengthM(piece)
		if err != nil || lenM < cfg.MinSegmentM {
			return false, nil
		}
		piece3D, err := geometry.Force3D(piece, toLine3D(t.Geometry))
		if err != nil {
			return false, nil
		}
		children = append(children, cloneWithGeometry(t, piece3D, i))
	}
	for _, child := range children {
		if err := store.InsertTrail(ctx, child); err != nil {
			return false, fmt.Errorf("splitter: insert split piece: %w", err)
		}
	}
	if err := store.DeleteTrail(ctx, t.TrailUUID); err != nil {
		return false, err
	}
	return true, nil
}

func to2D(t *entities.Trail) geometry.LineString2D {
	out := make(geometry.LineString2D, len(t.Geometry))
	for i, p := range t.Geometry {
		out[i] = p.To2D()
	}
	return out
}

func toLine3D(points []entities.Point3D) geometry.LineString3D {
	out := make(geometry.LineString3D, len(points))
	copy(out, points)
	return out
}

func cloneWithGeometry(t *entities.Trail, geom geometry.LineString3D, splitIndex int) *entities.Trail {
	child := *t
	child.TrailUUID = uuid.NewString()
	if t.OriginalTrailUUID != "" {
		child.OriginalTrailUUID = t.OriginalTrailUUID
	} else {
		child.OriginalTrailUUID = t.TrailUUID
	}
	child.Geometry = geom
	child.Source = "intersection_split"
	child.SplitIndex = splitIndex
	if lenM, err := geometry.LengthM3D(geom); err == nil {
		child.LengthKM = lenM / 1000.0
	}
	child.BBox = boundingBoxOf(geom)
	return &child
}

func boundingBoxOf(geom []entities.Point3D) entities.BoundingBox {
	bb := entities.BoundingBox{MinLng: geom[0].Lng, MaxLng: geom[0].Lng, MinLat: geom[0].Lat, MaxLat: geom[0].Lat}
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

// sortedPairs returns every distinct pair of staged trails whose bounding
// boxes intersect, ordered by (uuid1, uuid2) ascending for determinism.
func sortedPairs(ctx context.Context, store *staging.Store) ([][2]*entities.Trail, error) {
	trails, err := store.ListAllTrails(ctx)
	if err != nil {
		return nil, fmt.Errorf("splitter: list trails: %w", err)
	}
	sort.Slice(trails, func(i, j int) bool { return trails[i].TrailUUID < trails[j].TrailUUID })

	var pairs [][2]*entities.Trail
	for i := 0; i < len(trails); i++ {
		for j := i + 1; j < len(trails); j++ {
			if !trails[i].BBox.Intersects(trails[j].BBox) {
				continue
			}
			pairs = append(pairs, [2]*entities.Trail{trails[i], trails[j]})
		}
	}
	return pairs, nil
}

func pairKey(a, b *entities.Trail) string {
	return a.TrailUUID + "," + b.TrailUUID
}

func pointsOnly(hits []geometry.Intersection) []entities.Point2D {
	var out []entities.Point2D
	for _, h := range hits {
		if h.Kind == geometry.IntersectionPoint {
			out = append(out, h.Point)
		}
	}
	return out
}

// dedupPoints merges candidate points within tol of each other, keeping
// the first of each cluster — spec.md §4.4's point-merge-tol dedup.
func dedupPoints(points []entities.Point2D, tol float64) []entities.Point2D {
	var out []entities.Point2D
	for _, p := range points {
		dup := false
		for _, kept := range out {
			if geometry.Haversine(p, kept) <= tol*111320.0 {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}
