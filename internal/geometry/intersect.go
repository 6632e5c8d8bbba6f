package geometry

import "github.com/shaydu/carthorse/internal/entities"

// IntersectionKind distinguishes the two shapes a linestring-linestring
// intersection can take, per spec.md §4.1's intersect contract.
type IntersectionKind int

const (
	// IntersectionPoint is a transversal (X or T/Y) crossing at a point.
	IntersectionPoint IntersectionKind = iota
	// IntersectionLine is a collinear-overlap crossing. C4 neither splits
	// on it nor records a diagnostic for it.
	IntersectionLine
)

// Intersection is one crossing found between two linestrings.
type Intersection struct {
	Kind  IntersectionKind
	Point entities.Point2D   // valid when Kind == IntersectionPoint
	Line  LineString2D       // valid when Kind == IntersectionLine
}

// Intersect finds every point where segments of a cross segments of b,
// plus any segment that overlaps collinearly. A crossing point that is an
// endpoint of both segments involved (the common case for trails that
// already meet at a node) is not reported.
func Intersect(a, b LineString2D) ([]Intersection, error) {
	if err := checkValid2D(a); err != nil {
		return nil, err
	}
	if err := checkValid2D(b); err != nil {
		return nil, err
	}

	var out []Intersection
	for i := 0; i < len(a)-1; i++ {
		for j := 0; j < len(b)-1; j++ {
			kind, pt, line, ok := segmentIntersect(a[i], a[i+1], b[j], b[j+1])
			if !ok {
				continue
			}
			if kind == IntersectionLine {
				out = append(out, Intersection{Kind: IntersectionLine, Line: line})
				continue
			}
			if isSharedEndpoint(pt, a[i], a[i+1]) && isSharedEndpoint(pt, b[j], b[j+1]) {
				continue
			}
			out = append(out, Intersection{Kind: IntersectionPoint, Point: pt})
		}
	}
	return out, nil
}

func isSharedEndpoint(p, segA, segB entities.Point2D) bool {
	return p.Equal(segA) || p.Equal(segB)
}

// segmentIntersect computes the intersection of segments [p1,p2] and
// [p3,p4] using the standard parametric line-intersection solution.
// Returns ok=false for segments that do not cross.
func segmentIntersect(p1, p2, p3, p4 entities.Point2D) (IntersectionKind, entities.Point2D, LineString2D, bool) {
	r1 := entities.Point2D{Lng: p2.Lng - p1.Lng, Lat: p2.Lat - p1.Lat}
	r2 := entities.Point2D{Lng: p4.Lng - p3.Lng, Lat: p4.Lat - p3.Lat}

	denom := r1.Lng*r2.Lat - r1.Lat*r2.Lng
	dx := p3.Lng - p1.Lng
	dy := p3.Lat - p1.Lat

	if denom == 0 {
		// Parallel. Collinear iff (p3-p1) x r1 == 0 too.
		cross := dx*r1.Lat - dy*r1.Lng
		if cross != 0 {
			return 0, entities.Point2D{}, nil, false
		}
		return collinearOverlap(p1, p2, p3, p4)
	}

	t := (dx*r2.Lat - dy*r2.Lng) / denom
	u := (dx*r1.Lat - dy*r1.Lng) / denom

	if t < 0 || t > 1 || u < 0 || u > 1 {
		return 0, entities.Point2D{}, nil, false
	}

	pt := entities.Point2D{Lng: p1.Lng + t*r1.Lng, Lat: p1.Lat + t*r1.Lat}
	return IntersectionPoint, pt, nil, true
}

// collinearOverlap handles the degenerate case where both segments lie on
// the same infinite line; returns the overlapping sub-segment if any.
func collinearOverlap(p1, p2, p3, p4 entities.Point2D) (IntersectionKind, entities.Point2D, LineString2D, bool) {
	// Project onto the dominant axis to get a 1D parameterization.
	useX := absF(p2.Lng-p1.Lng) >= absF(p2.Lat-p1.Lat)

	coord := func(p entities.Point2D) float64 {
		if useX {
			return p.Lng
		}
		return p.Lat
	}

	a0, a1 := coord(p1), coord(p2)
	b0, b1 := coord(p3), coord(p4)
	if a0 > a1 {
		a0, a1 = a1, a0
	}
	if b0 > b1 {
		b0, b1 = b1, b0
	}

	lo := maxF(a0, b0)
	hi := minF(a1, b1)
	if lo >= hi {
		return 0, entities.Point2D{}, nil, false
	}

	start := pointAtCoord(p1, p2, useX, lo)
	end := pointAtCoord(p1, p2, useX, hi)
	if start.Equal(end) {
		return 0, entities.Point2D{}, nil, false
	}
	return IntersectionLine, entities.Point2D{}, LineString2D{start, end}, true
}

func pointAtCoord(a, b entities.Point2D, useX bool, v float64) entities.Point2D {
	dx := b.Lng - a.Lng
	dy := b.Lat - a.Lat
	if useX {
		if dx == 0 {
			return entities.Point2D{Lng: v, Lat: a.Lat}
		}
		t := (v - a.Lng) / dx
		return entities.Point2D{Lng: v, Lat: a.Lat + t*dy}
	}
	if dy == 0 {
		return entities.Point2D{Lng: a.Lng, Lat: v}
	}
	t := (v - a.Lat) / dy
	return entities.Point2D{Lng: a.Lng + t*dx, Lat: v}
}

func absF(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// IsSimple reports whether line has no self-intersections other than a
// shared start/end point (a closed loop), per spec.md §4.3's self-touch
// detection needed by the Loop Decomposer.
func IsSimple(line LineString2D) (bool, error) {
	if err := checkValid2D(line); err != nil {
		return false, err
	}
	n := len(line)
	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n-1; j++ {
			if j == i {
				continue
			}
			// Skip segments that share an endpoint by construction.
			if j == i+1 || (i == 0 && j == n-2 && line[0].Equal(line[n-1])) {
				continue
			}
			kind, pt, _, ok := segmentIntersect(line[i], line[i+1], line[j], line[j+1])
			if !ok {
				continue
			}
			if kind == IntersectionLine {
				return false, nil
			}
			// A touch at the shared closing vertex of a loop is allowed.
			if i == 0 && j == n-2 && pt.Equal(line[0]) {
				continue
			}
			return false, nil
		}
	}
	return true, nil
}

// SelfIntersections returns every point where line touches or crosses
// itself, excluding the closing vertex of a simple closed loop.
func SelfIntersections(line LineString2D) ([]entities.Point2D, error) {
	if err := checkValid2D(line); err != nil {
		return nil, err
	}
	n := len(line)
	var out []entities.Point2D
	closed := line[0].Equal(line[n-1])
	for i := 0; i < n-1; i++ {
		for j := i + 2; j < n-1; j++ {
			if closed && i == 0 && j == n-2 {
				continue
			}
			kind, pt, segLine, ok := segmentIntersect(line[i], line[i+1], line[j], line[j+1])
			if !ok {
				continue
			}
			if kind == IntersectionLine {
				out = append(out, segLine[0], segLine[1])
				continue
			}
			out = append(out, pt)
		}
	}
	return out, nil
}
