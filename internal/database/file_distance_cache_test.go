package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsp-router/internal/logging"
	"tsp-router/internal/models"
)

func newTestFileCache(t *testing.T) (*FileDistanceCache, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "distances.json")
	cache, err := NewFileDistanceCache(path, logging.Discard())
	require.NoError(t, err)
	return cache, path
}

func TestFileCache_CreatesFile(t *testing.T) {
	_, path := newTestFileCache(t)

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestFileCache_SetGet(t *testing.T) {
	cache, _ := newTestFileCache(t)
	ctx := context.Background()

	entry := &models.DistanceCacheEntry{
		Origin:         "San Jose, CA",
		Destination:    "Palo Alto, CA",
		DistanceMeters: 25000,
		DurationSecs:   1500,
	}
	require.NoError(t, cache.Set(ctx, entry))

	got, err := cache.Get(ctx, "San Jose, CA", "Palo Alto, CA")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 25000.0, got.DistanceMeters)

	// Direction matters
	reverse, err := cache.Get(ctx, "Palo Alto, CA", "San Jose, CA")
	require.NoError(t, err)
	assert.Nil(t, reverse)

	// Returned entries are copies
	got.DistanceMeters = 1
	again, _ := cache.Get(ctx, "San Jose, CA", "Palo Alto, CA")
	assert.Equal(t, 25000.0, again.DistanceMeters)
}

func TestFileCache_BatchAndOverwrite(t *testing.T) {
	cache, _ := newTestFileCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetBatch(ctx, []models.DistanceCacheEntry{
		{Origin: "A", Destination: "B", DistanceMeters: 1},
		{Origin: "B", Destination: "A", DistanceMeters: 2},
		{Origin: "A", Destination: "C", DistanceMeters: 3},
	}))
	require.NoError(t, cache.Set(ctx, &models.DistanceCacheEntry{Origin: "A", Destination: "B", DistanceMeters: 10}))

	count, err := cache.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	hits, err := cache.GetBatch(ctx, []Pair{{"A", "B"}, {"B", "A"}, {"C", "A"}})
	require.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.Equal(t, 10.0, hits[Pair{"A", "B"}].DistanceMeters)
	assert.Equal(t, 2.0, hits[Pair{"B", "A"}].DistanceMeters)
}

func TestFileCache_SeparatorInAddress(t *testing.T) {
	cache, path := newTestFileCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &models.DistanceCacheEntry{Origin: "Gate A->B", Destination: "Dock C", DistanceMeters: 100}))

	entry, err := cache.Get(ctx, "Gate A", "B->Dock C")
	require.NoError(t, err)
	assert.Nil(t, entry)

	hits, err := cache.GetBatch(ctx, []Pair{{"Gate A", "B->Dock C"}, {"Gate A->B", "Dock C"}})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 100.0, hits[Pair{"Gate A->B", "Dock C"}].DistanceMeters)

	reopened, err := NewFileDistanceCache(path, logging.Discard())
	require.NoError(t, err)
	entry, err = reopened.Get(ctx, "Gate A", "B->Dock C")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestFileCache_PersistsAcrossReopen(t *testing.T) {
	cache, path := newTestFileCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &models.DistanceCacheEntry{Origin: "A", Destination: "B", DistanceMeters: 42}))
	require.NoError(t, cache.Close())

	reopened, err := NewFileDistanceCache(path, logging.Discard())
	require.NoError(t, err)

	got, err := reopened.Get(ctx, "A", "B")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 42.0, got.DistanceMeters)
}

func TestFileCache_Clear(t *testing.T) {
	cache, _ := newTestFileCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &models.DistanceCacheEntry{Origin: "A", Destination: "B", DistanceMeters: 1}))
	require.NoError(t, cache.Clear(ctx))

	got, err := cache.Get(ctx, "A", "B")
	require.NoError(t, err)
	assert.Nil(t, got)

	count, _ := cache.Count(ctx)
	assert.Zero(t, count)
}

func TestFileCache_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "distances.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewFileDistanceCache(path, logging.Discard())
	assert.Error(t, err)
}

func TestNullDistanceCache(t *testing.T) {
	var cache DistanceCacheRepository = NullDistanceCache{}
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &models.DistanceCacheEntry{Origin: "A", Destination: "B"}))
	got, err := cache.Get(ctx, "A", "B")
	require.NoError(t, err)
	assert.Nil(t, got)

	hits, err := cache.GetBatch(ctx, []Pair{{"A", "B"}})
	require.NoError(t, err)
	assert.Empty(t, hits)
}
