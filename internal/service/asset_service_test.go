package service

import (
	"context"
	"testing"
	"time"

	"Waypoint/internal/api/config"
	"Waypoint/internal/model"
	"Waypoint/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAssetService(t *testing.T) (AssetService, repository.AssetRegistryRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	registry := repository.NewAssetRegistryRepo(rdb)
	return NewAssetService(registry, nil, &config.Config{}), registry
}

func TestAssetService(t *testing.T) {
	svc, registry := newAssetService(t)
	ctx := context.Background()

	require.NoError(t, registry.Add(ctx, &model.AssetRecord{
		ID: "stale", Kind: model.MediaKindImage, Status: model.AssetStatusPending,
		UploadedAt: time.Now().Add(-31 * time.Minute),
	}))
	require.NoError(t, registry.Add(ctx, &model.AssetRecord{
		ID: "fresh", Kind: model.MediaKindVideo, Status: model.AssetStatusPending,
		UploadedAt: time.Now(),
	}))

	n, err := svc.CleanExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	records, err := svc.ListAssets(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "fresh", records[0].ID)

	_, err = svc.GetAsset(ctx, "stale")
	assert.ErrorIs(t, err, ErrAssetNotFound)

	require.NoError(t, svc.RemoveAsset(ctx, "fresh"))
	assert.ErrorIs(t, svc.RemoveAsset(ctx, "fresh"), ErrAssetNotFound)
}

type liveTasksFunc func(ctx context.Context) []string

func (f liveTasksFunc) InFlight(ctx context.Context) []string { return f(ctx) }

func TestAssetService_CleanExpiredSkipsInFlight(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	registry := repository.NewAssetRegistryRepo(rdb)
	ctx := context.Background()

	live := liveTasksFunc(func(context.Context) []string { return []string{"uploading"} })
	svc := NewAssetService(registry, live, &config.Config{})

	for _, id := range []string{"uploading", "abandoned"} {
		require.NoError(t, registry.Add(ctx, &model.AssetRecord{
			ID: id, Kind: model.MediaKindVideo, Status: model.AssetStatusPending,
			UploadedAt: time.Now().Add(-time.Hour),
		}))
	}

	n, err := svc.CleanExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	record, err := svc.GetAsset(ctx, "uploading")
	require.NoError(t, err)
	assert.Equal(t, model.AssetStatusPending, record.Status)
}
