package geometry

import (
	"github.com/shaydu/carthorse/internal/entities"
	"github.com/shaydu/carthorse/internal/perr"
)

// Split divides line into ordered segments at splitPoint, inserting the
// point into the vertex sequence if it does not already fall exactly on
// one. Per spec.md §4.1, callers must accept a small buffer around the
// point to avoid "unsupported GeometryCollection" degeneracies; bufferDeg
// is that buffer radius in degrees — any existing vertex within bufferDeg
// of splitPoint is treated as the split point itself rather than creating
// a near-duplicate vertex.
func Split(line LineString2D, splitPoint entities.Point2D, bufferDeg float64) ([]LineString2D, error) {
	if err := checkValid2D(line); err != nil {
		return nil, err
	}

	// If the split point coincides (within buffer) with an existing
	// vertex, split there without inserting a new point.
	for i, p := range line {
		if degDistance(p, splitPoint) <= bufferDeg {
			if i == 0 || i == len(line)-1 {
				// Splitting at an endpoint yields only the whole line back.
				return []LineString2D{append(LineString2D{}, line...)}, nil
			}
			left := append(LineString2D{}, line[:i+1]...)
			right := append(LineString2D{}, line[i:]...)
			return []LineString2D{left, right}, nil
		}
	}

	// Otherwise locate the segment the point projects onto and insert it.
	for i := 0; i < len(line)-1; i++ {
		cp, t := closestPointOnSegment(line[i], line[i+1], splitPoint)
		if degDistance(cp, splitPoint) <= bufferDeg && t > 0 && t < 1 {
			left := append(append(LineString2D{}, line[:i+1]...), cp)
			right := append(LineString2D{cp}, line[i+1:]...)
			return []LineString2D{left, right}, nil
		}
	}

	return nil, perr.ErrDegenerateSplit
}
