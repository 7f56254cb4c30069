package testutil

import (
	"context"
	"fmt"
	"sync"

	"tsp-router/internal/database"
	"tsp-router/internal/geocoding"
	"tsp-router/internal/models"
)

// MockDistanceCache is an in-memory DistanceCacheRepository for testing
type MockDistanceCache struct {
	mu      sync.Mutex
	entries map[string]*models.DistanceCacheEntry
	closed  bool

	// Err, when set, is returned by every operation
	Err error
}

func NewMockDistanceCache() *MockDistanceCache {
	return &MockDistanceCache{
		entries: make(map[string]*models.DistanceCacheEntry),
	}
}

func (c *MockDistanceCache) Get(ctx context.Context, origin, dest string) (*models.DistanceCacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	if entry, ok := c.entries[models.CacheKey(origin, dest)]; ok {
		copied := *entry
		return &copied, nil
	}
	return nil, nil
}

func (c *MockDistanceCache) GetBatch(ctx context.Context, pairs []database.Pair) (map[database.Pair]*models.DistanceCacheEntry, error) {
	result := make(map[database.Pair]*models.DistanceCacheEntry)
	for _, pair := range pairs {
		entry, err := c.Get(ctx, pair.Origin, pair.Dest)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			result[pair] = entry
		}
	}
	return result, nil
}

func (c *MockDistanceCache) Set(ctx context.Context, entry *models.DistanceCacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	copied := *entry
	c.entries[models.CacheKey(entry.Origin, entry.Destination)] = &copied
	return nil
}

func (c *MockDistanceCache) SetBatch(ctx context.Context, entries []models.DistanceCacheEntry) error {
	for i := range entries {
		if err := c.Set(ctx, &entries[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c *MockDistanceCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.entries = make(map[string]*models.DistanceCacheEntry)
	return nil
}

func (c *MockDistanceCache) Count(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries), nil
}

func (c *MockDistanceCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Closed reports whether Close was called
func (c *MockDistanceCache) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// MockGeocoder resolves addresses from a fixed table
type MockGeocoder struct {
	mu     sync.Mutex
	Coords map[string]models.Coordinates
	Calls  []string
}

func NewMockGeocoder(coords map[string]models.Coordinates) *MockGeocoder {
	return &MockGeocoder{Coords: coords}
}

func (g *MockGeocoder) Geocode(ctx context.Context, address string) (*geocoding.GeocodingResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls = append(g.Calls, address)

	coords, ok := g.Coords[address]
	if !ok {
		return nil, &geocoding.ErrGeocodingFailed{Address: address, Reason: "no results found"}
	}
	return &geocoding.GeocodingResult{Coords: coords, DisplayName: address}, nil
}

func (g *MockGeocoder) GeocodeWithRetry(ctx context.Context, address string, maxRetries int) (*geocoding.GeocodingResult, error) {
	return g.Geocode(ctx, address)
}

// CallCount returns how many lookups were made
func (g *MockGeocoder) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Calls)
}

// Locations returns n distinct addresses "Stop 0" .. "Stop n-1"
func Locations(n int) []string {
	locs := make([]string, n)
	for i := range locs {
		locs[i] = fmt.Sprintf("Stop %d", i)
	}
	return locs
}
