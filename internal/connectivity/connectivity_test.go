package connectivity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaydu/carthorse/internal/connectivity"
	"github.com/shaydu/carthorse/internal/entities"
	"github.com/shaydu/carthorse/internal/staging"
)

func openStore(t *testing.T) *staging.Store {
	t.Helper()
	store, err := staging.Open(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAnalyze_SingleComponentFullyConnected(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	v1, err := store.InsertVertex(ctx, &entities.Vertex{TheGeom: entities.Point2D{Lng: 0, Lat: 0}})
	require.NoError(t, err)
	v2, err := store.InsertVertex(ctx, &entities.Vertex{TheGeom: entities.Point2D{Lng: 1, Lat: 0}})
	require.NoError(t, err)
	_, err = store.InsertEdge(ctx, &entities.Edge{Source: v1, Target: v2, TheGeom: []entities.Point2D{{Lng: 0, Lat: 0}, {Lng: 1, Lat: 0}}})
	require.NoError(t, err)

	report, err := connectivity.Analyze(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ComponentCount)
	assert.Equal(t, 2, report.LargestComponent)
	assert.Equal(t, 1.0, report.ConnectivityScore)
	assert.Empty(t, report.IsolatedNodeIDs)
}

func TestAnalyze_IsolatedNodeLowersScore(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	v1, err := store.InsertVertex(ctx, &entities.Vertex{TheGeom: entities.Point2D{Lng: 0, Lat: 0}})
	require.NoError(t, err)
	v2, err := store.InsertVertex(ctx, &entities.Vertex{TheGeom: entities.Point2D{Lng: 1, Lat: 0}})
	require.NoError(t, err)
	_, err = store.InsertEdge(ctx, &entities.Edge{Source: v1, Target: v2, TheGeom: []entities.Point2D{{Lng: 0, Lat: 0}, {Lng: 1, Lat: 0}}})
	require.NoError(t, err)

	isolated, err := store.InsertVertex(ctx, &entities.Vertex{TheGeom: entities.Point2D{Lng: 99, Lat: 99}})
	require.NoError(t, err)

	report, err := connectivity.Analyze(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 2, report.ComponentCount)
	assert.Less(t, report.ConnectivityScore, 1.0)
	require.Len(t, report.IsolatedNodeIDs, 1)
	assert.Equal(t, isolated, report.IsolatedNodeIDs[0])
}

func TestAnalyze_IsolatedEdgeReportedAsDangling(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	v1, err := store.InsertVertex(ctx, &entities.Vertex{TheGeom: entities.Point2D{Lng: 0, Lat: 0}})
	require.NoError(t, err)
	v2, err := store.InsertVertex(ctx, &entities.Vertex{TheGeom: entities.Point2D{Lng: 1, Lat: 0}})
	require.NoError(t, err)

	// A pair forming its own disconnected component...
	_, err = store.InsertEdge(ctx, &entities.Edge{Source: v1, Target: v2, TheGeom: []entities.Point2D{{Lng: 0, Lat: 0}, {Lng: 1, Lat: 0}}})
	require.NoError(t, err)
	// ...plus a third vertex whose only edge shares an endpoint with v2,
	// so v2 is now referenced twice and neither edge is isolated.
	v3, err := store.InsertVertex(ctx, &entities.Vertex{TheGeom: entities.Point2D{Lng: 3, Lat: 0}})
	require.NoError(t, err)
	_, err = store.InsertEdge(ctx, &entities.Edge{Source: v2, Target: v3, TheGeom: []entities.Point2D{{Lng: 1, Lat: 0}, {Lng: 3, Lat: 0}}})
	require.NoError(t, err)

	report, err := connectivity.Analyze(ctx, store)
	require.NoError(t, err)
	assert.Empty(t, report.IsolatedEdgeIDs, "v2 is now shared between two edges, so neither is isolated")

	// A genuinely isolated edge: both endpoints referenced by nothing else.
	isoA, err := store.InsertVertex(ctx, &entities.Vertex{TheGeom: entities.Point2D{Lng: 10, Lat: 10}})
	require.NoError(t, err)
	isoB, err := store.InsertVertex(ctx, &entities.Vertex{TheGeom: entities.Point2D{Lng: 11, Lat: 10}})
	require.NoError(t, err)
	isoEdge, err := store.InsertEdge(ctx, &entities.Edge{Source: isoA, Target: isoB, TheGeom: []entities.Point2D{{Lng: 10, Lat: 10}, {Lng: 11, Lat: 10}}})
	require.NoError(t, err)

	report, err = connectivity.Analyze(ctx, store)
	require.NoError(t, err)
	require.Len(t, report.IsolatedEdgeIDs, 1)
	assert.Equal(t, isoEdge, report.IsolatedEdgeIDs[0])
}

func TestAnalyze_EmptyGraph(t *testing.T) {
	store := openStore(t)
	report, err := connectivity.Analyze(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, 0, report.ComponentCount)
	assert.Equal(t, 0.0, report.ConnectivityScore)
}
