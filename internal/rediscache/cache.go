// Package rediscache stores distance cache entries in Redis so several
// tsp-router instances can share provider results.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"tsp-router/internal/database"
	"tsp-router/internal/logging"
	"tsp-router/internal/models"
)

// KeyPrefix namespaces every key written by the cache.
const KeyPrefix = "tsp-router:distance:"

// scanBatch is the COUNT hint passed to SCAN when clearing or counting.
const scanBatch = 500

// Cache is a Redis implementation of database.DistanceCacheRepository.
// Entries are JSON values under KeyPrefix + origin + "->" + destination and
// expire after the configured TTL (zero keeps them forever).
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

var _ database.DistanceCacheRepository = (*Cache)(nil)

// New connects to addr and verifies the connection with a PING.
func New(ctx context.Context, addr string, ttl time.Duration, logger *log.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	c := NewWithClient(client, ttl, logger)
	c.logger.Info("Using redis distance cache", "addr", addr, "ttl", ttl)
	return c, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration, logger *log.Logger) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logging.OrDefault(logger).WithPrefix("redis"),
	}
}

func key(origin, dest string) string {
	return KeyPrefix + models.CacheKey(origin, dest)
}

func (c *Cache) Get(ctx context.Context, origin, dest string) (*models.DistanceCacheEntry, error) {
	data, err := c.client.Get(ctx, key(origin, dest)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get distance cache entry: %w", err)
	}

	var entry models.DistanceCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// A value we cannot read is treated as a miss and overwritten later
		c.logger.Warn("Discarding unreadable cache entry", "origin", origin, "dest", dest, "err", err)
		return nil, nil
	}
	return &entry, nil
}

func (c *Cache) GetBatch(ctx context.Context, pairs []database.Pair) (map[database.Pair]*models.DistanceCacheEntry, error) {
	result := make(map[database.Pair]*models.DistanceCacheEntry)
	if len(pairs) == 0 {
		return result, nil
	}

	keys := make([]string, len(pairs))
	for i, p := range pairs {
		keys[i] = key(p.Origin, p.Dest)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get distance cache batch: %w", err)
	}

	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var entry models.DistanceCacheEntry
		if err := json.Unmarshal([]byte(s), &entry); err != nil {
			continue
		}
		result[pairs[i]] = &entry
	}
	return result, nil
}

func (c *Cache) Set(ctx context.Context, entry *models.DistanceCacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key(entry.Origin, entry.Destination), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set distance cache entry: %w", err)
	}
	return nil
}

func (c *Cache) SetBatch(ctx context.Context, entries []models.DistanceCacheEntry) error {
	if len(entries) == 0 {
		return nil
	}

	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i := range entries {
			data, err := json.Marshal(&entries[i])
			if err != nil {
				return err
			}
			pipe.Set(ctx, key(entries[i].Origin, entries[i].Destination), data, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set distance cache batch: %w", err)
	}
	return nil
}

// Clear removes every key under KeyPrefix. Other keys in the database are
// left alone.
func (c *Cache) Clear(ctx context.Context) error {
	removed := 0
	err := c.scan(ctx, func(keys []string) error {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return err
		}
		removed += len(keys)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to clear distance cache: %w", err)
	}
	c.logger.Info("Distance cache cleared", "removed", removed)
	return nil
}

func (c *Cache) Count(ctx context.Context) (int, error) {
	count := 0
	err := c.scan(ctx, func(keys []string) error {
		count += len(keys)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count distance cache entries: %w", err)
	}
	return count, nil
}

func (c *Cache) scan(ctx context.Context, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, KeyPrefix+"*", scanBatch).Result()
		if err != nil {
			return err
		}
		var own []string
		for _, k := range keys {
			if strings.HasPrefix(k, KeyPrefix) {
				own = append(own, k)
			}
		}
		if len(own) > 0 {
			if err := fn(own); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// HealthCheck pings the server.
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
