package gpxfixture_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaydu/carthorse/internal/entities"
	"github.com/shaydu/carthorse/internal/gpxfixture"
)

const sampleGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test">
  <trk>
    <name>Ridge Loop</name>
    <trkseg>
      <trkpt lat="40.0" lon="-105.3"><ele>1600</ele></trkpt>
      <trkpt lat="40.001" lon="-105.301"><ele>1620</ele></trkpt>
      <trkpt lat="40.002" lon="-105.302"><ele>1650</ele></trkpt>
    </trkseg>
  </trk>
</gpx>`

func TestLoadTrails_ParsesTrackIntoTrail(t *testing.T) {
	trails, err := gpxfixture.LoadTrails([]byte(sampleGPX), "boulder")
	require.NoError(t, err)
	require.Len(t, trails, 1)

	trail := trails[0]
	assert.Equal(t, "Ridge Loop", trail.Name)
	assert.Equal(t, "boulder", trail.Region)
	assert.Equal(t, entities.TrailTypeHike, trail.TrailType)
	require.Len(t, trail.Geometry, 3)
	assert.Equal(t, -105.3, trail.Geometry[0].Lng)
	assert.Equal(t, 1600.0, trail.Geometry[0].Elev)
	assert.InDelta(t, 40.002, trail.BBox.MaxLat, 1e-9)
}

func TestLoadTrails_SkipsSegmentsWithFewerThanTwoPoints(t *testing.T) {
	const gpx = `<?xml version="1.0"?>
<gpx version="1.1"><trk><name>Tiny</name><trkseg>
  <trkpt lat="1" lon="1"></trkpt>
</trkseg></trk></gpx>`
	trails, err := gpxfixture.LoadTrails([]byte(gpx), "r")
	require.NoError(t, err)
	assert.Empty(t, trails)
}

func TestLoadTrails_InvalidXMLErrors(t *testing.T) {
	_, err := gpxfixture.LoadTrails([]byte("not xml"), "r")
	assert.Error(t, err)
}
