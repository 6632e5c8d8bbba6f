package snapper_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaydu/carthorse/internal/config"
	"github.com/shaydu/carthorse/internal/entities"
	"github.com/shaydu/carthorse/internal/snapper"
	"github.com/shaydu/carthorse/internal/staging"
)

func openStore(t *testing.T) *staging.Store {
	t.Helper()
	store, err := staging.Open(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func line(pts ...[2]float64) []entities.Point3D {
	out := make([]entities.Point3D, len(pts))
	for i, p := range pts {
		out[i] = entities.Point3D{Lng: p[0], Lat: p[1]}
	}
	return out
}

func TestRun_MergesCoincidentEndpoints(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertTrail(ctx, &entities.Trail{TrailUUID: "a", Geometry: line([2]float64{0, 0}, [2]float64{0, 0.001})}))
	require.NoError(t, store.InsertTrail(ctx, &entities.Trail{TrailUUID: "b", Geometry: line([2]float64{0.0000004, 0.001}, [2]float64{0, 0.002})}))

	cfg := config.NewDefault()
	res, err := snapper.Run(ctx, store, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, res.EndpointsMerged)

	b, err := store.GetTrail(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 0.0, b.Geometry[0].Lng)
	assert.Equal(t, 0.001, b.Geometry[0].Lat)
}

func TestRun_FillsGapWithConnector(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertTrail(ctx, &entities.Trail{TrailUUID: "a", Geometry: line([2]float64{0, 0}, [2]float64{0, 0.0001})}))
	// ~5m gap between (0,0.0001) and (0,0.00015): within default GapToleranceM=10, beyond VertexMergeTolM=0.1.
	require.NoError(t, store.InsertTrail(ctx, &entities.Trail{TrailUUID: "b", Geometry: line([2]float64{0, 0.00015}, [2]float64{0, 0.0003})}))

	cfg := config.NewDefault()
	res, err := snapper.Run(ctx, store, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, res.BridgesCreated)

	trails, err := store.ListAllTrails(ctx)
	require.NoError(t, err)
	var foundConnector bool
	for _, tr := range trails {
		if tr.TrailType == entities.TrailTypeConnector {
			foundConnector = true
		}
	}
	assert.True(t, foundConnector)
}

func TestRun_NoChangeFarApart(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertTrail(ctx, &entities.Trail{TrailUUID: "a", Geometry: line([2]float64{0, 0}, [2]float64{1, 0})}))
	require.NoError(t, store.InsertTrail(ctx, &entities.Trail{TrailUUID: "b", Geometry: line([2]float64{10, 10}, [2]float64{11, 10})}))

	cfg := config.NewDefault()
	res, err := snapper.Run(ctx, store, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, res.EndpointsMerged)
	assert.Equal(t, 0, res.BridgesCreated)
}
