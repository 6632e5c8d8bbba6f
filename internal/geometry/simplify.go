package geometry

import (
	"math"

	"github.com/shaydu/carthorse/internal/entities"
)

// SimplifyPreserveTopology applies Douglas-Peucker simplification with
// tolerance epsilon (in degrees), always preserving the first and last
// point — spec.md §4.1's simplify_preserve_topology contract.
func SimplifyPreserveTopology(line LineString2D, epsilon float64) (LineString2D, error) {
	if err := checkValid2D(line); err != nil {
		return nil, err
	}
	if len(line) <= 2 || epsilon <= 0 {
		out := make(LineString2D, len(line))
		copy(out, line)
		return out, nil
	}
	kept := douglasPeucker(line, epsilon)
	return kept, nil
}

func douglasPeucker(points LineString2D, epsilon float64) LineString2D {
	if len(points) < 3 {
		out := make(LineString2D, len(points))
		copy(out, points)
		return out
	}

	first, last := points[0], points[len(points)-1]
	maxDist := -1.0
	maxIdx := -1
	for i := 1; i < len(points)-1; i++ {
		d := perpendicularDistance(points[i], first, last)
		if d > maxDist {
			maxDist = d
			maxIdx = i
		}
	}

	if maxDist <= epsilon {
		return LineString2D{first, last}
	}

	left := douglasPeucker(points[:maxIdx+1], epsilon)
	right := douglasPeucker(points[maxIdx:], epsilon)
	return append(left[:len(left)-1], right...)
}

// perpendicularDistance is the planar (degree-space) distance from p to
// the infinite line through a and b, matching the scale Douglas-Peucker's
// epsilon is expressed in (degrees, per spec.md §4.1).
func perpendicularDistance(p, a, b entities.Point2D) float64 {
	dx := b.Lng - a.Lng
	dy := b.Lat - a.Lat
	if dx == 0 && dy == 0 {
		return math.Hypot(p.Lng-a.Lng, p.Lat-a.Lat)
	}
	num := math.Abs(dy*p.Lng - dx*p.Lat + b.Lng*a.Lat - b.Lat*a.Lng)
	den := math.Hypot(dx, dy)
	return num / den
}
