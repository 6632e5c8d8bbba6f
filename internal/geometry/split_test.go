package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaydu/carthorse/internal/entities"
)

func TestSplit_AtExistingVertex(t *testing.T) {
	line := LineString2D{{Lng: 0, Lat: 0}, {Lng: 1, Lat: 0}, {Lng: 2, Lat: 0}}
	pieces, err := Split(line, entities.Point2D{Lng: 1, Lat: 0}, 1e-6)
	require.NoError(t, err)
	require.Len(t, pieces, 2)
	assert.Equal(t, LineString2D{{Lng: 0, Lat: 0}, {Lng: 1, Lat: 0}}, pieces[0])
	assert.Equal(t, LineString2D{{Lng: 1, Lat: 0}, {Lng: 2, Lat: 0}}, pieces[1])
}

func TestSplit_MidSegmentInsertsVertex(t *testing.T) {
	line := LineString2D{{Lng: 0, Lat: 0}, {Lng: 2, Lat: 0}}
	pieces, err := Split(line, entities.Point2D{Lng: 1, Lat: 0}, 1e-6)
	require.NoError(t, err)
	require.Len(t, pieces, 2)
	assert.Equal(t, entities.Point2D{Lng: 1, Lat: 0}, pieces[0][len(pieces[0])-1])
	assert.Equal(t, entities.Point2D{Lng: 1, Lat: 0}, pieces[1][0])
}

func TestSplit_AtEndpointReturnsWholeLine(t *testing.T) {
	line := LineString2D{{Lng: 0, Lat: 0}, {Lng: 2, Lat: 0}}
	pieces, err := Split(line, entities.Point2D{Lng: 0, Lat: 0}, 1e-6)
	require.NoError(t, err)
	require.Len(t, pieces, 1)
	assert.Equal(t, line, pieces[0])
}

func TestSplit_PointNotOnLineErrors(t *testing.T) {
	line := LineString2D{{Lng: 0, Lat: 0}, {Lng: 2, Lat: 0}}
	_, err := Split(line, entities.Point2D{Lng: 1, Lat: 5}, 1e-6)
	assert.Error(t, err)
}
