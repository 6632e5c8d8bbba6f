// Package geometry is the Geometry Kernel (C1): 2D/3D linestring
// primitives used by every downstream stage. All operations work in
// EPSG:4326 with geodesic length wherever "meters" are required, the way
// the teacher's utils.haversineDistance underlies its trail-length math.
package geometry

import (
	"math"

	"github.com/shaydu/carthorse/internal/entities"
	"github.com/shaydu/carthorse/internal/perr"
)

// earthRadiusM is the mean Earth radius used by the haversine formula,
// matching the teacher's utils/gpx.go constant.
const earthRadiusM = 6371000.0

// LineString3D is an ordered sequence of 3D points forming a Trail's
// working geometry.
type LineString3D []entities.Point3D

// LineString2D is the 2D projection used for Edge/Vertex geometry.
type LineString2D []entities.Point2D

// checkValid2D and checkValid3D return perr.ErrInvalidGeometry if line is
// empty, has fewer than 2 points, or contains a non-finite coordinate.
// Every kernel operation that takes a line calls one of them first, except
// RoundCoords and NumPoints; callers must filter upstream accordingly.
func checkValid2D(line LineString2D) error {
	if len(line) < 2 {
		return perr.ErrInvalidGeometry
	}
	for _, p := range line {
		if !p.IsFinite() {
			return perr.ErrInvalidGeometry
		}
	}
	return nil
}

func checkValid3D(line LineString3D) error {
	if len(line) < 2 {
		return perr.ErrInvalidGeometry
	}
	for _, p := range line {
		if !p.IsFinite() {
			return perr.ErrInvalidGeometry
		}
	}
	return nil
}

// Haversine returns the great-circle distance between two 2D points in
// meters. This is the sole distance primitive the rest of the kernel
// builds on, grounded on the teacher's utils.haversineDistance.
func Haversine(a, b entities.Point2D) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)

	h := sinLat*sinLat + math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*sinLng*sinLng
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusM * c
}

// LengthM returns the geodesic length of a 2D linestring in meters.
func LengthM(line LineString2D) (float64, error) {
	if err := checkValid2D(line); err != nil {
		return 0, err
	}
	var total float64
	for i := 1; i < len(line); i++ {
		total += Haversine(line[i-1], line[i])
	}
	return total, nil
}

// LengthM3D returns the geodesic length of a 3D linestring's 2D
// projection, ignoring elevation (matching PostGIS ST_Length semantics on
// a geography cast, which the teacher's length math also ignores).
func LengthM3D(line LineString3D) (float64, error) {
	if err := checkValid3D(line); err != nil {
		return 0, err
	}
	var total float64
	for i := 1; i < len(line); i++ {
		total += Haversine(line[i-1].To2D(), line[i].To2D())
	}
	return total, nil
}

// Force2D projects a 3D linestring down to 2D, dropping elevation.
func Force2D(line LineString3D) (LineString2D, error) {
	if err := checkValid3D(line); err != nil {
		return nil, err
	}
	out := make(LineString2D, len(line))
	for i, p := range line {
		out[i] = p.To2D()
	}
	return out, nil
}

// Force3D lifts a 2D linestring into 3D by nearest-neighbor elevation
// lookup against a source 3D line, per spec.md §4.1's force_3d contract.
func Force3D(line LineString2D, source LineString3D) (LineString3D, error) {
	if err := checkValid2D(line); err != nil {
		return nil, err
	}
	if err := checkValid3D(source); err != nil {
		return nil, err
	}
	out := make(LineString3D, len(line))
	for i, p := range line {
		out[i] = entities.Point3D{Lng: p.Lng, Lat: p.Lat, Elev: nearestElevation(p, source)}
	}
	return out, nil
}

func nearestElevation(p entities.Point2D, source LineString3D) float64 {
	best := source[0]
	bestDist := Haversine(p, best.To2D())
	for _, s := range source[1:] {
		d := Haversine(p, s.To2D())
		if d < bestDist {
			bestDist = d
			best = s
		}
	}
	return best.Elev
}

// RoundCoords returns a copy of line with every vertex coordinate rounded
// to decimals places, per spec.md §4.1's round_coords contract (used
// before snapping to avoid float noise).
func RoundCoords(line LineString2D, decimals int) LineString2D {
	out := make(LineString2D, len(line))
	for i, p := range line {
		out[i] = p.RoundTo(decimals)
	}
	return out
}

// NumPoints returns the number of vertices in the linestring.
func NumPoints(line LineString2D) int { return len(line) }

// IsValid reports whether line satisfies the kernel's basic validity
// precondition (>=2 points, finite coordinates).
func IsValid(line LineString2D) bool {
	return checkValid2D(line) == nil
}

// ClosestPoint returns the point on line nearest to p, and the segment
// index at which that closest point occurs.
func ClosestPoint(line LineString2D, p entities.Point2D) (entities.Point2D, int, error) {
	if err := checkValid2D(line); err != nil {
		return entities.Point2D{}, 0, err
	}
	best := line[0]
	bestSeg := 0
	bestDist := math.MaxFloat64
	for i := 0; i < len(line)-1; i++ {
		cp, _ := closestPointOnSegment(line[i], line[i+1], p)
		d := Haversine(p, cp)
		if d < bestDist {
			bestDist = d
			best = cp
			bestSeg = i
		}
	}
	return best, bestSeg, nil
}

// PointToLineDistanceM returns the distance in meters from p to the
// nearest point on line.
func PointToLineDistanceM(line LineString2D, p entities.Point2D) (float64, error) {
	cp, _, err := ClosestPoint(line, p)
	if err != nil {
		return 0, err
	}
	return Haversine(p, cp), nil
}

// LineLocatePoint returns the fractional position in [0,1] along line's
// total length at which ClosestPoint(line, p) occurs.
func LineLocatePoint(line LineString2D, p entities.Point2D) (float64, error) {
	if err := checkValid2D(line); err != nil {
		return 0, err
	}
	total, err := LengthM(line)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	var cumulative float64
	bestFrac := 0.0
	bestDist := math.MaxFloat64
	for i := 0; i < len(line)-1; i++ {
		segLen := Haversine(line[i], line[i+1])
		cp, t := closestPointOnSegment(line[i], line[i+1], p)
		d := Haversine(p, cp)
		if d < bestDist {
			bestDist = d
			bestFrac = (cumulative + t*segLen) / total
		}
		cumulative += segLen
	}
	return bestFrac, nil
}

// closestPointOnSegment returns the closest point on segment [a,b] to p in
// planar (lng/lat-as-cartesian) approximation, appropriate at the short
// distances (meters to low kilometers) the intersection/snap tolerances
// in this package operate at, along with the fractional position t in [0,1].
func closestPointOnSegment(a, b, p entities.Point2D) (entities.Point2D, float64) {
	dx := b.Lng - a.Lng
	dy := b.Lat - a.Lat
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return a, 0
	}
	t := ((p.Lng-a.Lng)*dx + (p.Lat-a.Lat)*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return entities.Point2D{Lng: a.Lng + t*dx, Lat: a.Lat + t*dy}, t
}
