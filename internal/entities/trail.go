// Package entities defines the domain types shared across the trail-to-graph
// pipeline: Trail, Edge, Vertex, and their supporting value types.
package entities

import (
	"fmt"
	"math"
)

// TrailType mirrors the teacher's TrailLevel string-enum pattern.
type TrailType string

const (
	TrailTypeHike      TrailType = "hike"
	TrailTypeBike      TrailType = "bike"
	TrailTypeMultiUse  TrailType = "multi_use"
	TrailTypeConnector TrailType = "connector"
)

// IsValid reports whether t is one of the known trail types.
func (t TrailType) IsValid() bool {
	switch t {
	case TrailTypeHike, TrailTypeBike, TrailTypeMultiUse, TrailTypeConnector:
		return true
	default:
		return false
	}
}

// Difficulty is an opaque attribute string, kept free-form per spec.md §3
// ("opaque attribute strings") rather than constrained to an enum.
type Difficulty string

// Point3D is a single (lng, lat, elev) vertex of a Trail's geometry, in
// EPSG:4326 with elevation in meters.
type Point3D struct {
	Lng  float64
	Lat  float64
	Elev float64
}

// Point2D drops elevation; used for Edge/Vertex geometry downstream of C6.
type Point2D struct {
	Lng float64
	Lat float64
}

// To2D projects away elevation.
func (p Point3D) To2D() Point2D { return Point2D{Lng: p.Lng, Lat: p.Lat} }

// IsFinite reports whether all coordinates are finite (no NaN/Inf), the
// base precondition the Geometry Kernel enforces before any operation.
func (p Point3D) IsFinite() bool {
	return isFinite(p.Lng) && isFinite(p.Lat) && isFinite(p.Elev)
}

// IsFinite reports whether both coordinates are finite.
func (p Point2D) IsFinite() bool {
	return isFinite(p.Lng) && isFinite(p.Lat)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// RoundTo rounds both coordinates to decimals places, per spec.md §4.6's
// vertex canonicalization rule.
func (p Point2D) RoundTo(decimals int) Point2D {
	scale := math.Pow(10, float64(decimals))
	return Point2D{
		Lng: math.Round(p.Lng*scale) / scale,
		Lat: math.Round(p.Lat*scale) / scale,
	}
}

// Equal compares two points for exact equality (callers round first).
func (p Point2D) Equal(o Point2D) bool {
	return p.Lng == o.Lng && p.Lat == o.Lat
}

// ElevationPoint is one sample of an elevation profile (teacher's
// entities.ElevationPoint, generalized to 3D geometry already carrying
// elevation rather than a side-channel GPX track).
type ElevationPoint struct {
	DistanceM float64
	Elevation float64
}

// ElevationProfile summarizes gain/loss and the distance-ordered profile,
// mirroring the teacher's entities.ElevationData.
type ElevationProfile struct {
	GainM   float64
	LossM   float64
	Profile []ElevationPoint
}

// BoundingBox is a geographic envelope (teacher's entities.BoundingBox,
// renamed fields to match spec.md's bbox_{min,max}_{lng,lat} naming).
type BoundingBox struct {
	MinLng float64
	MinLat float64
	MaxLng float64
	MaxLat float64
}

// Intersects reports whether two bounding boxes overlap (including
// touching edges), used by C4 to prune candidate trail pairs.
func (b BoundingBox) Intersects(o BoundingBox) bool {
	return b.MinLng <= o.MaxLng && o.MinLng <= b.MaxLng &&
		b.MinLat <= o.MaxLat && o.MinLat <= b.MaxLat
}

// Trail is the input/working entity described in spec.md §3. It is
// imported at run start, rewritten in place by C3–C5, and read-only from
// C6 onward.
type Trail struct {
	TrailUUID         string
	OriginalTrailUUID string // empty unless this Trail is a split descendant

	Name       string
	Region     string
	TrailType  TrailType
	Surface    string
	Difficulty Difficulty
	Source     string // "import", "gap_filler", or a loop/split decomposition tag

	Geometry []Point3D // >=2 distinct points, no duplicate consecutive points

	LengthKM         float64
	Elevation        ElevationProfile
	MinElevationM    float64
	MaxElevationM    float64
	AvgElevationM    float64
	BBox             BoundingBox
	SplitIndex       int // ordinal among siblings sharing OriginalTrailUUID
}

// Endpoints returns the first and last points of the trail geometry.
func (t *Trail) Endpoints() (start, end Point3D) {
	return t.Geometry[0], t.Geometry[len(t.Geometry)-1]
}

// Validate checks the structural invariants spec.md §3 requires of Trail
// geometry: at least two distinct points, no duplicate consecutive points,
// and finite coordinates. It does not check self-intersection (C3's job).
func (t *Trail) Validate() *MultiValidationError {
	errs := NewMultiValidationError()
	if len(t.Geometry) < 2 {
		errs.Add("geometry", "trail geometry must have at least 2 points")
		return errs
	}
	for i, p := range t.Geometry {
		if !p.IsFinite() {
			errs.Add("geometry", fmt.Sprintf("point %d has non-finite coordinates", i))
		}
		if i > 0 && t.Geometry[i-1] == p {
			errs.Add("geometry", fmt.Sprintf("duplicate consecutive point at index %d", i))
		}
	}
	return errs
}
