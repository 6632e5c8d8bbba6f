package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntersect_XCrossing(t *testing.T) {
	a := LineString2D{{Lng: -1, Lat: 0}, {Lng: 1, Lat: 0}}
	b := LineString2D{{Lng: 0, Lat: -1}, {Lng: 0, Lat: 1}}

	hits, err := Intersect(a, b)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, IntersectionPoint, hits[0].Kind)
	assert.InDelta(t, 0, hits[0].Point.Lng, 1e-9)
	assert.InDelta(t, 0, hits[0].Point.Lat, 1e-9)
}

func TestIntersect_NoCrossing(t *testing.T) {
	a := LineString2D{{Lng: 0, Lat: 0}, {Lng: 1, Lat: 0}}
	b := LineString2D{{Lng: 0, Lat: 5}, {Lng: 1, Lat: 5}}

	hits, err := Intersect(a, b)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIntersect_SharedEndpointNotReported(t *testing.T) {
	a := LineString2D{{Lng: 0, Lat: 0}, {Lng: 1, Lat: 0}}
	b := LineString2D{{Lng: 1, Lat: 0}, {Lng: 2, Lat: 1}}

	hits, err := Intersect(a, b)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIsSimple_SimplePath(t *testing.T) {
	line := LineString2D{{Lng: 0, Lat: 0}, {Lng: 1, Lat: 0}, {Lng: 1, Lat: 1}}
	ok, err := IsSimple(line)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsSimple_ClosedLoopAllowed(t *testing.T) {
	line := LineString2D{
		{Lng: 0, Lat: 0}, {Lng: 1, Lat: 0}, {Lng: 1, Lat: 1}, {Lng: 0, Lat: 1}, {Lng: 0, Lat: 0},
	}
	ok, err := IsSimple(line)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsSimple_SelfCrossingDetected(t *testing.T) {
	line := LineString2D{
		{Lng: 0, Lat: 0}, {Lng: 2, Lat: 2}, {Lng: 2, Lat: 0}, {Lng: 0, Lat: 2},
	}
	ok, err := IsSimple(line)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSelfIntersections_FindsCrossing(t *testing.T) {
	line := LineString2D{
		{Lng: 0, Lat: 0}, {Lng: 2, Lat: 2}, {Lng: 2, Lat: 0}, {Lng: 0, Lat: 2},
	}
	hits, err := SelfIntersections(line)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.InDelta(t, 1, hits[0].Lng, 1e-9)
	assert.InDelta(t, 1, hits[0].Lat, 1e-9)
}
