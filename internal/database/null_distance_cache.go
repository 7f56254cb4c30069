package database

import (
	"context"

	"tsp-router/internal/models"
)

// NullDistanceCache never stores anything. Every lookup is a miss.
type NullDistanceCache struct{}

func (NullDistanceCache) Get(ctx context.Context, origin, dest string) (*models.DistanceCacheEntry, error) {
	return nil, nil
}

func (NullDistanceCache) GetBatch(ctx context.Context, pairs []Pair) (map[Pair]*models.DistanceCacheEntry, error) {
	return map[Pair]*models.DistanceCacheEntry{}, nil
}

func (NullDistanceCache) Set(ctx context.Context, entry *models.DistanceCacheEntry) error { return nil }

func (NullDistanceCache) SetBatch(ctx context.Context, entries []models.DistanceCacheEntry) error {
	return nil
}

func (NullDistanceCache) Clear(ctx context.Context) error        { return nil }
func (NullDistanceCache) Count(ctx context.Context) (int, error) { return 0, nil }
func (NullDistanceCache) Close() error                           { return nil }
