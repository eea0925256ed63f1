package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"venuechat/internal/models"
)

const (
	// MaxRadiusResults caps every radius query regardless of radius.
	MaxRadiusResults = 100

	// upsertConcurrency bounds the per-candidate transactions in flight.
	upsertConcurrency = 8
)

// venueColumns is the standard column list for venue queries.
const venueColumns = `id, external_id, name, lng, lat, location, categories, verified, referral_id,
	room_count, user_count, message_count, last_message, created_at, updated_at`

// scanVenue scans a row into a Venue struct. A missing row yields nil, nil.
func scanVenue(row pgx.Row) (*models.Venue, error) {
	var v models.Venue
	var lng, lat float64
	err := row.Scan(
		&v.ID,
		&v.ExternalID,
		&v.Name,
		&lng,
		&lat,
		&v.Location,
		&v.Categories,
		&v.Verified,
		&v.ReferralID,
		&v.RoomCount,
		&v.UserCount,
		&v.MessageCount,
		&v.LastMessage,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v.Coord = [2]float64{lng, lat}
	return &v, nil
}

// scanVenues scans multiple rows into a slice of Venues.
func scanVenues(rows pgx.Rows) ([]models.Venue, error) {
	defer rows.Close()

	venues := []models.Venue{}
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		venues = append(venues, *v)
	}

	return venues, rows.Err()
}

// FindVenueByID returns the venue with the given internal ID, or nil if it
// does not exist.
func (d *DB) FindVenueByID(ctx context.Context, id uuid.UUID) (*models.Venue, error) {
	query := `SELECT ` + venueColumns + ` FROM venues WHERE id = $1`

	v, err := scanVenue(d.Pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, storageError(err)
	}
	return v, nil
}

// FindVenuesByIDs returns the venues matching ids. Unknown ids are omitted.
func (d *DB) FindVenuesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Venue, error) {
	if len(ids) == 0 {
		return []models.Venue{}, nil
	}

	query := `SELECT ` + venueColumns + ` FROM venues WHERE id = ANY($1) ORDER BY external_id`

	rows, err := d.Pool.Query(ctx, query, ids)
	if err != nil {
		return nil, storageError(err)
	}
	venues, err := scanVenues(rows)
	if err != nil {
		return nil, storageError(err)
	}
	return venues, nil
}

// FindVenuesNear returns venues within q.Meters of the point ordered by
// distance. Filter is a case-insensitive substring match on the name and
// RoomsOnly restricts to venues with at least one room.
func (d *DB) FindVenuesNear(ctx context.Context, q models.RadiusQuery) ([]models.Venue, error) {
	limit := q.Limit
	if limit <= 0 || limit > MaxRadiusResults {
		limit = MaxRadiusResults
	}

	var filter *string
	if q.Filter != "" {
		pattern := "%" + escapeLike(q.Filter) + "%"
		filter = &pattern
	}

	query := `
		SELECT ` + venueColumns + `
		FROM venues
		WHERE earth_box(ll_to_earth($1, $2), $3) @> ll_to_earth(lat, lng)
		  AND earth_distance(ll_to_earth($1, $2), ll_to_earth(lat, lng)) <= $3
		  AND ($4::text IS NULL OR name ILIKE $4)
		  AND (NOT $5 OR room_count > 0)
		ORDER BY earth_distance(ll_to_earth($1, $2), ll_to_earth(lat, lng)), external_id
		LIMIT $6
	`

	rows, err := d.Pool.Query(ctx, query, q.Lat, q.Lng, float64(q.Meters), filter, q.RoomsOnly, limit)
	if err != nil {
		return nil, storageError(err)
	}
	venues, err := scanVenues(rows)
	if err != nil {
		return nil, storageError(err)
	}
	return venues, nil
}

// UpsertVenues reconciles provider candidates into the store. Each
// candidate is written in its own transaction; a malformed or rejected
// candidate is reported in Failures without failing the batch, while an
// unreachable store fails the whole call with ErrStorageUnavailable.
//
// Inserts start the counters at zero. Updates refresh identity, location,
// and category fields and never touch counters, last_message, or created_at.
func (d *DB) UpsertVenues(ctx context.Context, candidates []models.ExternalVenue) (*models.UpsertResult, error) {
	result := &models.UpsertResult{Venues: []models.Venue{}}
	if len(candidates) == 0 {
		return result, nil
	}

	if err := d.Pool.Ping(ctx); err != nil {
		return nil, storageError(err)
	}

	upserted := make([]*models.Venue, len(candidates))
	failures := make([]error, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(upsertConcurrency)
	for i := range candidates {
		g.Go(func() error {
			v, err := d.upsertVenue(gctx, &candidates[i])
			if err != nil {
				if isUnavailable(err) {
					return err
				}
				failures[i] = err
				return nil
			}
			upserted[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, storageError(err)
	}

	for i := range candidates {
		if upserted[i] != nil {
			result.Venues = append(result.Venues, *upserted[i])
			continue
		}
		result.Failures = append(result.Failures, models.UpsertFailure{
			ExternalID: candidates[i].ID,
			Err:        failures[i],
		})
	}

	return result, nil
}

// upsertVenue applies one candidate atomically: category remap and venue
// row share a transaction.
func (d *DB) upsertVenue(ctx context.Context, c *models.ExternalVenue) (*models.Venue, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	now := d.now()
	coord := c.Coord()

	query := `
		INSERT INTO venues (external_id, name, lng, lat, location, categories, verified, referral_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (external_id) DO UPDATE
		SET name = EXCLUDED.name,
		    lng = EXCLUDED.lng,
		    lat = EXCLUDED.lat,
		    location = EXCLUDED.location,
		    categories = EXCLUDED.categories,
		    verified = EXCLUDED.verified,
		    referral_id = EXCLUDED.referral_id,
		    updated_at = EXCLUDED.updated_at
		RETURNING ` + venueColumns

	var venue *models.Venue
	err := pgx.BeginFunc(ctx, d.Pool, func(tx pgx.Tx) error {
		categories, err := upsertCategories(ctx, tx, c.Categories, now)
		if err != nil {
			return err
		}

		venue, err = scanVenue(tx.QueryRow(ctx, query,
			c.ID,
			c.Name,
			coord[0],
			coord[1],
			c.StoredLocation(),
			categories,
			c.Verified,
			c.ReferralID,
			now,
		))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("upsert venue %s: %w", c.ID, err)
	}

	return venue, nil
}

// escapeLike escapes LIKE wildcards so the filter matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
