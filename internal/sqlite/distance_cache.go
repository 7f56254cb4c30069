package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tsp-router/internal/database"
	"tsp-router/internal/models"
)

type distanceCacheRepository struct {
	store *Store
}

const selectEntryQuery = `SELECT origin, destination, distance_meters, duration_secs
	FROM distance_cache
	WHERE origin = ? AND destination = ?`

const upsertEntryQuery = `INSERT OR REPLACE INTO distance_cache
	(origin, destination, distance_meters, duration_secs, updated_at)
	VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`

func (r *distanceCacheRepository) Get(ctx context.Context, origin, dest string) (*models.DistanceCacheEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if r.store.db == nil {
		return nil, sql.ErrConnDone
	}

	var entry models.DistanceCacheEntry
	err := r.store.db.QueryRowContext(ctx, selectEntryQuery, origin, dest).Scan(
		&entry.Origin, &entry.Destination,
		&entry.DistanceMeters, &entry.DurationSecs,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get distance cache entry: %w", err)
	}

	return &entry, nil
}

func (r *distanceCacheRepository) GetBatch(ctx context.Context, pairs []database.Pair) (map[database.Pair]*models.DistanceCacheEntry, error) {
	result := make(map[database.Pair]*models.DistanceCacheEntry)
	if len(pairs) == 0 {
		return result, nil
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if r.store.db == nil {
		return nil, sql.ErrConnDone
	}

	// One prepared statement, one lookup per pair
	stmt, err := r.store.db.PrepareContext(ctx, selectEntryQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare batch query: %w", err)
	}
	defer stmt.Close()

	for _, pair := range pairs {
		var entry models.DistanceCacheEntry
		err := stmt.QueryRowContext(ctx, pair.Origin, pair.Dest).Scan(
			&entry.Origin, &entry.Destination,
			&entry.DistanceMeters, &entry.DurationSecs,
		)

		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query batch entry: %w", err)
		}

		result[pair] = &entry
	}

	return result, nil
}

func (r *distanceCacheRepository) Set(ctx context.Context, entry *models.DistanceCacheEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.store.db == nil {
		return sql.ErrConnDone
	}

	_, err := r.store.db.ExecContext(ctx, upsertEntryQuery,
		entry.Origin, entry.Destination,
		entry.DistanceMeters, entry.DurationSecs,
	)
	if err != nil {
		return fmt.Errorf("failed to set distance cache entry: %w", err)
	}

	return nil
}

func (r *distanceCacheRepository) SetBatch(ctx context.Context, entries []models.DistanceCacheEntry) error {
	if len(entries) == 0 {
		return nil
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.store.db == nil {
		return sql.ErrConnDone
	}

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertEntryQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		_, err := stmt.ExecContext(ctx, entry.Origin, entry.Destination,
			entry.DistanceMeters, entry.DurationSecs)
		if err != nil {
			return fmt.Errorf("failed to insert batch entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *distanceCacheRepository) Clear(ctx context.Context) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.store.db == nil {
		return sql.ErrConnDone
	}

	if _, err := r.store.db.ExecContext(ctx, "DELETE FROM distance_cache"); err != nil {
		return fmt.Errorf("failed to clear distance cache: %w", err)
	}

	return nil
}

func (r *distanceCacheRepository) Count(ctx context.Context) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if r.store.db == nil {
		return 0, sql.ErrConnDone
	}

	var count int
	if err := r.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM distance_cache").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count distance cache entries: %w", err)
	}
	return count, nil
}

func (r *distanceCacheRepository) Close() error {
	return r.store.Close()
}

func (r *distanceCacheRepository) HealthCheck(ctx context.Context) error {
	return r.store.HealthCheck(ctx)
}
