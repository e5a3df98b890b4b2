package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheServiceHitMissAndMetrics(t *testing.T) {
	metrics := NewMetricsService()
	cache := NewCacheService(newMemoryCache(), metrics, 0, nil, true)
	ctx := context.Background()

	var out map[string]int
	hit, err := cache.Get(ctx, "cal:2024-03", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(ctx, "cal:2024-03", map[string]int{"days": 4}, 0))
	hit, err = cache.Get(ctx, "cal:2024-03", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 4, out["days"])

	snapshot := metrics.Snapshot()
	assert.EqualValues(t, 1, snapshot.CacheHits)
	assert.EqualValues(t, 1, snapshot.CacheMisses)
	assert.InDelta(t, 0.5, snapshot.CacheHitRatio, 0.0001)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCache()
	cache := NewCacheService(repo, nil, 0, nil, false)
	require.NoError(t, cache.Set(context.Background(), "k", 1, 0))
	assert.Empty(t, repo.data)
	assert.False(t, cache.Enabled())

	var nilCache *CacheService
	assert.False(t, nilCache.Enabled())
}

func TestCacheServiceGetErrorSurfaces(t *testing.T) {
	repo := newMemoryCache()
	repo.getErr = errors.New("redis down")
	cache := NewCacheService(repo, nil, 0, nil, true)

	var out int
	hit, err := cache.Get(context.Background(), "k", &out)
	assert.False(t, hit)
	assert.Error(t, err)
}

func TestCacheServiceInvalidate(t *testing.T) {
	repo := newMemoryCache()
	cache := NewCacheService(repo, nil, 0, nil, true)
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "util:teachers:40", 1, 0))
	require.NoError(t, cache.Set(ctx, "cal:2024-03", 1, 0))

	require.NoError(t, cache.Invalidate(ctx, "util:*"))
	assert.NotContains(t, repo.data, "util:teachers:40")
	assert.Contains(t, repo.data, "cal:2024-03")
}
