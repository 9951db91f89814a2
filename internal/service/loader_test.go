package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"telemetry-mdb/internal/mdb"
	"telemetry-mdb/internal/repository"
	"telemetry-mdb/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFetcher struct {
	snap  *mdb.Snapshot
	err   error
	calls int
}

func (f *fakeFetcher) FetchSnapshot(_ context.Context, _ string) (*mdb.Snapshot, error) {
	f.calls++
	return f.snap, f.err
}

func setupLoaderRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client, *store.SnapshotCache) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cache := store.NewSnapshotCache(store.NewRedisKV(client), "mdb:snapshot:", time.Hour, zap.NewNop())
	return mr, client, cache
}

func TestLoader_PrefersCache(t *testing.T) {
	_, _, cache := setupLoaderRedis(t)
	ctx := context.Background()

	cached := newTestSnapshot(t)
	require.NoError(t, cache.Put(ctx, cached))

	fetcher := &fakeFetcher{}
	registry := NewRegistry(zap.NewNop())
	loader := NewLoader(registry, repository.NewMemoryMdbRepo(), cache, fetcher, nil, zap.NewNop())

	source, err := loader.Load(ctx, "simulator")
	require.NoError(t, err)
	assert.Equal(t, SourceCache, source)
	assert.Zero(t, fetcher.calls)

	snap, err := registry.Get("simulator")
	require.NoError(t, err)
	assert.Equal(t, cached.ID, snap.ID)
}

func TestLoader_RepoThenCacheAndPublish(t *testing.T) {
	mr, client, cache := setupLoaderRedis(t)
	ctx := context.Background()

	repo := repository.NewMemoryMdbRepo()
	stored := newTestSnapshot(t)
	require.NoError(t, repo.SaveSnapshot(ctx, stored))

	registry := NewRegistry(zap.NewNop())
	publisher := NewStreamPublisher(client, "mdb:updates", 100)
	loader := NewLoader(registry, repo, cache, nil, publisher, zap.NewNop())

	source, err := loader.Load(ctx, "simulator")
	require.NoError(t, err)
	assert.Equal(t, SourceRepo, source)

	assert.True(t, mr.Exists("mdb:snapshot:simulator"))

	entries, err := client.XRange(ctx, "mdb:updates", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Values["data"], stored.ID)
}

func TestLoader_UpstreamFallback(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryMdbRepo()
	fetched := newTestSnapshot(t)
	fetcher := &fakeFetcher{snap: fetched}

	registry := NewRegistry(zap.NewNop())
	loader := NewLoader(registry, repo, nil, fetcher, nil, zap.NewNop())

	source, err := loader.Load(ctx, "simulator")
	require.NoError(t, err)
	assert.Equal(t, SourceUpstream, source)

	// 上游结果写回仓库
	saved, err := repo.LoadSnapshot(ctx, "simulator")
	require.NoError(t, err)
	assert.Equal(t, fetched.ID, saved.ID)
}

func TestLoader_NoSource(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(zap.NewNop())

	loader := NewLoader(registry, repository.NewMemoryMdbRepo(), nil, nil, nil, zap.NewNop())
	_, err := loader.Load(ctx, "simulator")
	assert.True(t, errors.Is(err, repository.ErrSnapshotNotFound))

	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	loader = NewLoader(registry, nil, nil, fetcher, nil, zap.NewNop())
	_, err = loader.Load(ctx, "simulator")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	err = loader.LoadAll(ctx, []string{"a", "b"})
	require.Error(t, err)
	assert.Equal(t, 3, fetcher.calls)
}

func TestLoader_ReloadBypassesCache(t *testing.T) {
	mr, _, cache := setupLoaderRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, newTestSnapshot(t)))

	repo := repository.NewMemoryMdbRepo()
	stored := newTestSnapshot(t)
	require.NoError(t, repo.SaveSnapshot(ctx, stored))

	registry := NewRegistry(zap.NewNop())
	loader := NewLoader(registry, repo, cache, nil, nil, zap.NewNop())

	source, err := loader.Load(ctx, "simulator")
	require.NoError(t, err)
	assert.Equal(t, SourceCache, source)

	source, err = loader.Reload(ctx, "simulator")
	require.NoError(t, err)
	assert.Equal(t, SourceRepo, source)

	snap, err := registry.Get("simulator")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, snap.ID)
	assert.True(t, mr.Exists("mdb:snapshot:simulator"))
}
