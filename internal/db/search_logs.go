package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"venuechat/internal/models"
)

// FindRecentSearch returns the search log entry for key if it was updated
// less than maxAge ago. Stale and missing entries both yield nil.
func (d *DB) FindRecentSearch(ctx context.Context, key models.SearchKey, maxAge time.Duration) (*models.SearchLogEntry, error) {
	var e models.SearchLogEntry
	err := d.Pool.QueryRow(ctx, `
		SELECT lng, lat, query, results, created_at, updated_at
		FROM search_logs
		WHERE lng = $1 AND lat = $2 AND query IS NOT DISTINCT FROM $3
	`, key.Lng, key.Lat, key.Query).Scan(&e.Lng, &e.Lat, &e.Query, &e.Results, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError(err)
	}

	if !e.IsFresh(d.now(), maxAge) {
		return nil, nil
	}
	return &e, nil
}

// RecordSearch upserts the search log entry for key, refreshing its result
// count and updated time.
func (d *DB) RecordSearch(ctx context.Context, key models.SearchKey, results int) error {
	_, err := d.Pool.Exec(ctx, `
		INSERT INTO search_logs (lng, lat, query, results, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (lng, lat, query) DO UPDATE
		SET results = EXCLUDED.results, updated_at = EXCLUDED.updated_at
	`, key.Lng, key.Lat, key.Query, results, d.now())
	return storageError(err)
}

// GetCacheStats returns store-side counts for metrics export.
func (d *DB) GetCacheStats(ctx context.Context) (models.CacheStats, error) {
	var s models.CacheStats
	err := d.Pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM venues),
			(SELECT COUNT(*) FROM venues WHERE room_count > 0),
			(SELECT COUNT(*) FROM search_logs)
	`).Scan(&s.Venues, &s.VenuesWithRooms, &s.SearchEntries)
	if err != nil {
		return s, storageError(err)
	}
	return s, nil
}
