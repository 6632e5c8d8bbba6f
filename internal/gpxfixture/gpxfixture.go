// Package gpxfixture loads GPX track files into entities.Trail values for
// use as test fixtures. It supersedes the teacher's hand-rolled
// encoding/xml GPX structs (gpx_importer.go) with tkrajina/gpxgo, a
// dependency the teacher already declared but never actually imported.
package gpxfixture

import (
	"fmt"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/shaydu/carthorse/internal/entities"
)

// LoadTrails parses raw GPX data and returns one Trail per track segment,
// named after the track (or "track N" if the track has no name).
func LoadTrails(data []byte, region string) ([]*entities.Trail, error) {
	g, err := gpx.ParseString(string(data))
	if err != nil {
		return nil, fmt.Errorf("gpxfixture: parse: %w", err)
	}

	var trails []*entities.Trail
	for ti, track := range g.Tracks {
		name := track.Name
		if name == "" {
			name = fmt.Sprintf("track %d", ti+1)
		}
		for _, seg := range track.Segments {
			if len(seg.Points) < 2 {
				continue
			}
			geom := make([]entities.Point3D, len(seg.Points))
			for i, pt := range seg.Points {
				geom[i] = entities.Point3D{Lng: pt.Longitude, Lat: pt.Latitude, Elev: pt.Elevation.Value()}
			}
			t := &entities.Trail{
				Name:      name,
				Region:    region,
				TrailType: entities.TrailTypeHike,
				Source:    "gpx_fixture",
				Geometry:  geom,
			}
			t.BBox = boundingBoxOf(geom)
			trails = append(trails, t)
		}
	}
	return trails, nil
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
