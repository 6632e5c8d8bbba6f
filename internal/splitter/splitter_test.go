package splitter_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaydu/carthorse/internal/config"
	"github.com/shaydu/carthorse/internal/entities"
	"github.com/shaydu/carthorse/internal/splitter"
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

func bbox(geom []entities.Point3D) entities.BoundingBox {
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

func insert(t *testing.T, store *staging.Store, uuid string, geom []entities.Point3D) {
	t.Helper()
	require.NoError(t, store.InsertTrail(context.Background(), &entities.Trail{
		TrailUUID: uuid,
		Geometry:  geom,
		BBox:      bbox(geom),
	}))
}

func TestSplit_XCrossingSplitsBoth(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	insert(t, store, "a", line([2]float64{0, 0}, [2]float64{2, 2}))
	insert(t, store, "b", line([2]float64{0, 2}, [2]float64{2, 0}))

	cfg := config.NewDefault()
	cfg.MinSegmentM = 0.001
	res, err := splitter.Split(ctx, store, cfg)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.SplitsMade, 2)

	trails, err := store.ListAllTrails(ctx)
	require.NoError(t, err)
	assert.Len(t, trails, 4)
}

func TestSplit_NoIntersectionIsNoop(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	insert(t, store, "a", line([2]float64{0, 0}, [2]float64{1, 0}))
	insert(t, store, "b", line([2]float64{10, 10}, [2]float64{11, 10}))

	cfg := config.NewDefault()
	res, err := splitter.Split(ctx, store, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, res.SplitsMade)

	trails, err := store.ListAllTrails(ctx)
	require.NoError(t, err)
	assert.Len(t, trails, 2)
}
