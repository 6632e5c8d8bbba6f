package geometry

import (
	"math"

	"github.com/shaydu/carthorse/internal/entities"
)

// Snap returns a copy of a with any vertex within tol (degrees) of some
// vertex of b moved exactly onto that vertex of b, per spec.md §4.1's
// snap contract ("symmetric call required for splitting": callers snap
// a onto b and b onto a separately before computing their intersection).
func Snap(a, b LineString2D, tol float64) (LineString2D, error) {
	if err := checkValid2D(a); err != nil {
		return nil, err
	}
	if err := checkValid2D(b); err != nil {
		return nil, err
	}
	out := make(LineString2D, len(a))
	for i, pa := range a {
		out[i] = pa
		for _, pb := range b {
			if degDistance(pa, pb) <= tol {
				out[i] = pb
				break
			}
		}
	}
	return out, nil
}

// degDistance is a cheap planar distance in degrees, used only for the
// small snap/point-merge tolerances which are themselves expressed in
// degrees (spec.md §6: snap_tol_degrees, split_buffer_degrees).
func degDistance(a, b entities.Point2D) float64 {
	dx := a.Lng - b.Lng
	dy := a.Lat - b.Lat
	return math.Hypot(dx, dy)
}
