package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaydu/carthorse/internal/entities"
	"github.com/shaydu/carthorse/internal/perr"
)

func TestHaversine(t *testing.T) {
	a := entities.Point2D{Lng: -105.2705, Lat: 40.0150}
	b := entities.Point2D{Lng: -105.2705, Lat: 40.0150}
	assert.Equal(t, 0.0, Haversine(a, b))

	c := entities.Point2D{Lng: -105.2705, Lat: 40.0250}
	d := Haversine(a, c)
	assert.InDelta(t, 1112.0, d, 50.0, "roughly 0.01 deg of latitude ~ 1.11km")
}

func TestLengthM(t *testing.T) {
	line := LineString2D{
		{Lng: 0, Lat: 0},
		{Lng: 0, Lat: 0.01},
		{Lng: 0, Lat: 0.02},
	}
	total, err := LengthM(line)
	require.NoError(t, err)
	assert.Greater(t, total, 0.0)
}

func TestLengthM_InvalidGeometry(t *testing.T) {
	_, err := LengthM(LineString2D{{Lng: 0, Lat: 0}})
	assert.ErrorIs(t, err, perr.ErrInvalidGeometry)
}

func TestForce2DForce3DRoundTrip(t *testing.T) {
	line3D := LineString3D{
		{Lng: 0, Lat: 0, Elev: 100},
		{Lng: 0.001, Lat: 0.001, Elev: 110},
		{Lng: 0.002, Lat: 0.002, Elev: 120},
	}
	line2D, err := Force2D(line3D)
	require.NoError(t, err)
	assert.Len(t, line2D, 3)

	back, err := Force3D(line2D, line3D)
	require.NoError(t, err)
	require.Len(t, back, 3)
	for i := range back {
		assert.Equal(t, line3D[i].Elev, back[i].Elev)
	}
}

func TestRoundCoords(t *testing.T) {
	line := LineString2D{{Lng: 1.123456789, Lat: 2.987654321}}
	out := RoundCoords(line, 4)
	assert.Equal(t, 1.1235, out[0].Lng)
	assert.Equal(t, 2.9877, out[0].Lat)
}

func TestClosestPoint(t *testing.T) {
	line := LineString2D{{Lng: 0, Lat: 0}, {Lng: 0, Lat: 1}}
	p := entities.Point2D{Lng: 0.5, Lat: 0.5}
	cp, seg, err := ClosestPoint(line, p)
	require.NoError(t, err)
	assert.Equal(t, 0, seg)
	assert.InDelta(t, 0.0, cp.Lng, 1e-9)
	assert.InDelta(t, 0.5, cp.Lat, 1e-9)
}

func TestLineLocatePoint(t *testing.T) {
	line := LineString2D{{Lng: 0, Lat: 0}, {Lng: 0, Lat: 1}, {Lng: 0, Lat: 2}}
	frac, err := LineLocatePoint(line, entities.Point2D{Lng: 0, Lat: 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, frac, 1e-6)
}
