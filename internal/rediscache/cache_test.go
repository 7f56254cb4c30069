package rediscache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsp-router/internal/database"
	"tsp-router/internal/logging"
	"tsp-router/internal/models"
)

// newTestCache connects to REDIS_ADDR and starts from an empty prefix.
// Tests are skipped when no server is configured.
func newTestCache(t *testing.T) *Cache {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	c, err := New(ctx, addr, time.Minute, logging.Discard())
	require.NoError(t, err)
	require.NoError(t, c.Clear(ctx))
	t.Cleanup(func() {
		c.Clear(context.Background())
		c.Close()
	})
	return c
}

func TestKey(t *testing.T) {
	assert.Equal(t, `tsp-router:distance:"A"->"B"`, key("A", "B"))
	assert.NotEqual(t, key("Gate A->B", "Dock C"), key("Gate A", "B->Dock C"))
}

func TestCache_SetAndGet(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	entry, err := c.Get(ctx, "A", "B")
	require.NoError(t, err)
	assert.Nil(t, entry)

	require.NoError(t, c.Set(ctx, &models.DistanceCacheEntry{
		Origin: "A", Destination: "B", DistanceMeters: 500, DurationSecs: 60,
	}))

	entry, err = c.Get(ctx, "A", "B")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 500.0, entry.DistanceMeters)

	ttl, err := c.client.TTL(ctx, key("A", "B")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestCache_BatchCountClear(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.SetBatch(ctx, []models.DistanceCacheEntry{
		{Origin: "A", Destination: "B", DistanceMeters: 1},
		{Origin: "B", Destination: "A", DistanceMeters: 2},
	}))

	got, err := c.GetBatch(ctx, []database.Pair{
		{Origin: "A", Dest: "B"},
		{Origin: "B", Dest: "A"},
		{Origin: "A", Dest: "C"},
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 2.0, got[database.Pair{Origin: "B", Dest: "A"}].DistanceMeters)

	// Keys outside the prefix are not ours to count or clear
	require.NoError(t, c.client.Set(ctx, "other:key", "x", time.Minute).Err())
	defer c.client.Del(ctx, "other:key")

	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, c.Clear(ctx))
	count, err = c.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	err = c.client.Get(ctx, "other:key").Err()
	assert.NotErrorIs(t, err, redis.Nil)
}

func TestCache_UnreadableValueIsMiss(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.client.Set(ctx, key("A", "B"), "not json", time.Minute).Err())
	entry, err := c.Get(ctx, "A", "B")
	require.NoError(t, err)
	assert.Nil(t, entry)
}
