package db

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"venuechat/internal/models"
	"venuechat/migrations"
)

// DB wraps a pgxpool connection pool.
type DB struct {
	Pool *pgxpool.Pool

	// Clock stamps created/updated times and judges search freshness.
	Clock func() time.Time
}

// New creates a new database connection pool.
func New(ctx context.Context, connString string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool, Clock: time.Now}, nil
}

// RunMigrations runs all embedded SQL migrations.
func (d *DB) RunMigrations(connString string) error {
	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, connString)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Ping reports whether the store is reachable.
func (d *DB) Ping(ctx context.Context) error {
	if err := d.Pool.Ping(ctx); err != nil {
		return storageError(err)
	}
	return nil
}

// Close closes the connection pool.
func (d *DB) Close() {
	d.Pool.Close()
}

func (d *DB) now() time.Time {
	if d.Clock == nil {
		return time.Now().UTC()
	}
	return d.Clock().UTC()
}

// SeedDevVenues reconciles a few fixed venues for development. Running it
// again only refreshes their updated timestamps.
func (d *DB) SeedDevVenues(ctx context.Context) error {
	coord := func(lat, lng float64) models.ExternalLocation {
		return models.ExternalLocation{Lat: &lat, Lng: &lng, City: "New York", State: "NY", Country: "United States", CC: "US"}
	}

	seeds := []models.ExternalVenue{
		{ID: "dev-bryant-park", Name: "Bryant Park", Location: coord(40.7536, -73.9832)},
		{ID: "dev-grand-central", Name: "Grand Central Terminal", Location: coord(40.7527, -73.9772), Verified: true},
		{ID: "dev-ny-public-library", Name: "New York Public Library", Location: coord(40.7532, -73.9822)},
	}

	result, err := d.UpsertVenues(ctx, seeds)
	if err != nil {
		return fmt.Errorf("failed to seed venues: %w", err)
	}
	if len(result.Failures) > 0 {
		return fmt.Errorf("failed to seed venue %s: %w", result.Failures[0].ExternalID, result.Failures[0].Err)
	}

	return nil
}
