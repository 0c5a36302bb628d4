package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kontexthq/kontext/internal/core/model"
)

// flakyStore simulates a backend that can be taken down mid-test.
type flakyStore struct {
	*Cache
	down bool
}

func (f *flakyStore) Ping(ctx context.Context) error {
	if f.down {
		return ErrUnavailable
	}
	return nil
}

func (f *flakyStore) QueryEntities(ctx context.Context, userID string, minConfidence float64, limit int) ([]model.Entity, error) {
	if f.down {
		return nil, ErrUnavailable
	}
	return f.Cache.QueryEntities(ctx, userID, minConfidence, limit)
}

func TestTieredWritesThroughToBothTiers(t *testing.T) {
	primary := &flakyStore{Cache: NewCache(10, 10)}
	cache := NewCache(10, 10)
	ts := NewTieredStore(primary, cache, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, ts.UpsertEntities(ctx, "u1", []model.Entity{cacheEntity("revenue", 0.9, now)}))

	fromPrimary, err := primary.QueryEntities(ctx, "u1", 0, 0)
	require.NoError(t, err)
	assert.Len(t, fromPrimary, 1)

	fromCache, err := cache.QueryEntities(ctx, "u1", 0, 0)
	require.NoError(t, err)
	assert.Len(t, fromCache, 1)
}

func TestTieredServesFromCacheWhenPrimaryDown(t *testing.T) {
	primary := &flakyStore{Cache: NewCache(10, 10)}
	cache := NewCache(10, 10)
	ts := NewTieredStore(primary, cache, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, ts.UpsertEntities(ctx, "u1", []model.Entity{cacheEntity("revenue", 0.9, now)}))
	primary.down = true

	got, err := ts.QueryEntities(ctx, "u1", 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "revenue", got[0].Name)

	// Writes while the primary is down still land in the cache.
	require.NoError(t, ts.UpsertEntities(ctx, "u1", []model.Entity{cacheEntity("expenses", 0.9, now)}))
	got, err = ts.QueryEntities(ctx, "u1", 0, 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestTieredNilPrimaryIsCacheOnly(t *testing.T) {
	cache := NewCache(10, 10)
	ts := NewTieredStore(nil, cache, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, ts.UpsertEntities(ctx, "u1", []model.Entity{cacheEntity("revenue", 0.9, now)}))

	got, err := ts.QueryEntities(ctx, "u1", 0, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.NoError(t, ts.Ping(ctx))
	assert.NoError(t, ts.Close(ctx))
}

func TestTieredPingReflectsPrimary(t *testing.T) {
	primary := &flakyStore{Cache: NewCache(10, 10)}
	ts := NewTieredStore(primary, NewCache(10, 10), nil)
	ctx := context.Background()

	assert.NoError(t, ts.Ping(ctx))
	primary.down = true
	assert.True(t, errors.Is(ts.Ping(ctx), ErrUnavailable))
}

func TestTieredCleanupSweepsBothTiers(t *testing.T) {
	primary := &flakyStore{Cache: NewCache(10, 10)}
	cache := NewCache(10, 10)
	ts := NewTieredStore(primary, cache, nil)
	ctx := context.Background()
	old := time.Now().UTC().Add(-40 * 24 * time.Hour)

	require.NoError(t, ts.UpsertEntities(ctx, "u1", []model.Entity{cacheEntity("old_weak", 0.1, old)}))

	removed, err := ts.Cleanup(ctx, "u1", 30*24*time.Hour, 0.3, 0.3)
	require.NoError(t, err)
	// Once from the cache tier, once from the primary.
	assert.Equal(t, 2, removed)
}
