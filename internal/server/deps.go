package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"tsp-router/internal/config"
	"tsp-router/internal/database"
	"tsp-router/internal/distance"
	"tsp-router/internal/geocoding"
	"tsp-router/internal/rediscache"
	"tsp-router/internal/sqlite"
)

// OpenCache opens the distance cache backend selected by cfg.
func OpenCache(ctx context.Context, cfg config.CacheConfig, logger *log.Logger) (database.DistanceCacheRepository, error) {
	switch cfg.Backend {
	case config.CacheSQLite:
		store, err := sqlite.New(cfg.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite cache: %w", err)
		}
		return store.DistanceCache(), nil
	case config.CacheFile:
		cache, err := database.NewFileDistanceCache(cfg.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file cache: %w", err)
		}
		return cache, nil
	case config.CacheRedis:
		cache, err := rediscache.New(ctx, cfg.RedisAddr, cfg.TTL.Duration, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis cache: %w", err)
		}
		return cache, nil
	case config.CacheNone:
		return database.NullDistanceCache{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// NewProvider builds the distance provider selected by cfg.
func NewProvider(cfg config.ProviderConfig, cache database.DistanceCacheRepository, logger *log.Logger) (distance.Provider, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout.Duration}

	switch cfg.Name {
	case config.ProviderGoogle:
		return distance.NewGoogleProvider(distance.GoogleOptions{
			APIKey:     cfg.GoogleAPIKey,
			HTTPClient: httpClient,
			Cache:      cache,
			Retries:    cfg.Retries,
			Logger:     logger,
		}), nil
	case config.ProviderOSRM:
		return distance.NewOSRMProvider(distance.OSRMOptions{
			HTTPClient: httpClient,
			Geocoder:   geocoding.NewNominatimGeocoder(geocoding.Options{Logger: logger}),
			Cache:      cache,
			Retries:    cfg.Retries,
			BatchDelay: distance.DefaultOSRMBatchDelay,
			Logger:     logger,
		}), nil
	case config.ProviderHaversine:
		geocoder := geocoding.NewNominatimGeocoder(geocoding.Options{Logger: logger})
		return distance.NewHaversineProvider(geocoder, cfg.Retries, logger), nil
	default:
		return nil, fmt.Errorf("unknown distance provider %q", cfg.Name)
	}
}
