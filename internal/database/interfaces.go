package database

import (
	"context"

	"tsp-router/internal/models"
)

// Pair identifies a directed origin/destination lookup
type Pair struct {
	Origin string
	Dest   string
}

// DistanceCacheRepository handles distance cache persistence.
// Get returns nil, nil on a miss.
type DistanceCacheRepository interface {
	Get(ctx context.Context, origin, dest string) (*models.DistanceCacheEntry, error)
	// GetBatch returns the hits keyed by the requested pair.
	GetBatch(ctx context.Context, pairs []Pair) (map[Pair]*models.DistanceCacheEntry, error)
	Set(ctx context.Context, entry *models.DistanceCacheEntry) error
	SetBatch(ctx context.Context, entries []models.DistanceCacheEntry) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	Close() error
}
