// Package venues answers "which venues are near this point" by deciding
// whether a recent search already covers the query or the venue directory
// has to be consulted.
//
// Freshness lives in a side table (the search log) keyed by the rounded
// coordinate and normalized filter, never on the venue rows. A hit means a
// similar search ran recently, so hits always re-read venues from the store.
// A miss asks the provider, reconciles its answer into the store, and then
// records the search. Provider failures never write the search log.
package venues

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"venuechat/internal/foursquare"
	"venuechat/internal/geo"
	"venuechat/internal/metrics"
	"venuechat/internal/models"
)

const (
	// KeyPrecision is the number of decimals kept in search log coordinates.
	KeyPrecision = 4

	// HitLimit caps results served from the store on a cache hit.
	HitLimit = 50
	// RoomsLimit caps results of room-filtered store queries.
	RoomsLimit = 100
	// ProviderLimit is how many venues are requested per miss.
	ProviderLimit = 50
)

// ErrLogWriteFailed wraps search log failures. It is only ever logged.
var ErrLogWriteFailed = errors.New("search log write failed")

// Store is the durable venue store.
type Store interface {
	FindVenueByID(ctx context.Context, id uuid.UUID) (*models.Venue, error)
	FindVenuesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Venue, error)
	FindVenuesNear(ctx context.Context, q models.RadiusQuery) ([]models.Venue, error)
	UpsertVenues(ctx context.Context, candidates []models.ExternalVenue) (*models.UpsertResult, error)
}

// SearchLog records which search keys ran recently.
type SearchLog interface {
	FindRecentSearch(ctx context.Context, key models.SearchKey, maxAge time.Duration) (*models.SearchLogEntry, error)
	RecordSearch(ctx context.Context, key models.SearchKey, results int) error
}

// Provider is the external venue directory.
type Provider interface {
	SearchVenues(ctx context.Context, q models.ProviderQuery) ([]models.ExternalVenue, error)
}

// Options tunes a Cache. Zero values fall back to the defaults above.
type Options struct {
	MaxAge     time.Duration
	HitLimit   int
	RoomsLimit int
}

// Cache is the venue proximity cache.
type Cache struct {
	store    Store
	log      SearchLog
	provider Provider
	logger   *zap.SugaredLogger

	maxAge     time.Duration
	hitLimit   int
	roomsLimit int

	misses singleflight.Group
}

// NewCache wires the cache to its collaborators.
func NewCache(store Store, log SearchLog, provider Provider, logger *zap.SugaredLogger, opts Options) *Cache {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	c := &Cache{
		store:      store,
		log:        log,
		provider:   provider,
		logger:     logger,
		maxAge:     opts.MaxAge,
		hitLimit:   opts.HitLimit,
		roomsLimit: opts.RoomsLimit,
	}
	if c.maxAge <= 0 {
		c.maxAge = models.DefaultSearchMaxAge
	}
	if c.hitLimit <= 0 {
		c.hitLimit = HitLimit
	}
	if c.roomsLimit <= 0 {
		c.roomsLimit = RoomsLimit
	}
	return c
}

// SearchKeyFor builds the cache key of a search: coordinates rounded to
// KeyPrecision decimals and the filter trimmed and lower-cased, with an
// empty filter mapped to nil.
func SearchKeyFor(lng, lat float64, filter string) models.SearchKey {
	key := models.SearchKey{
		Lng: geo.RoundToPrecision(lng, KeyPrecision),
		Lat: geo.RoundToPrecision(lat, KeyPrecision),
	}
	if q := normalizeFilter(filter); q != "" {
		key.Query = &q
	}
	return key
}

func normalizeFilter(filter string) string {
	return strings.ToLower(strings.TrimSpace(filter))
}

// FindNearby returns venues within meters of the point, optionally
// matching filter. Provider and store errors are returned unchanged; search
// log errors are logged and never returned.
func (c *Cache) FindNearby(ctx context.Context, lat, lng float64, meters int, filter string) ([]models.Venue, error) {
	key := SearchKeyFor(lng, lat, filter)
	filter = strings.TrimSpace(filter)

	if c.isFresh(ctx, key) {
		metrics.CacheHits.Inc()
		return c.store.FindVenuesNear(ctx, models.RadiusQuery{
			Lng:    lng,
			Lat:    lat,
			Meters: meters,
			Filter: filter,
			Limit:  c.hitLimit,
		})
	}

	metrics.CacheMisses.Inc()

	// Identical concurrent misses in this process share one provider call.
	// Callers in other processes may still race; the upserts are idempotent.
	flight := fmt.Sprintf("%v|%v|%s|%d", key.Lng, key.Lat, key.QueryText(), meters)
	ch := c.misses.DoChan(flight, func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx), key, lat, lng, meters, filter)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.([]models.Venue), nil
	}
}

// refresh runs the miss path: provider search, reconciliation, search log.
func (c *Cache) refresh(ctx context.Context, key models.SearchKey, lat, lng float64, meters int, filter string) ([]models.Venue, error) {
	candidates, err := c.provider.SearchVenues(ctx, models.ProviderQuery{
		Lat:    lat,
		Lng:    lng,
		Meters: meters,
		Filter: filter,
		Limit:  ProviderLimit,
	})
	if err != nil {
		metrics.ProviderErrors.WithLabelValues(providerErrorKind(err)).Inc()
		c.logger.Warnw("provider search failed", "lat", lat, "lng", lng, "meters", meters, "query", key.QueryText(), "error", err)
		return nil, err
	}

	result, err := c.store.UpsertVenues(ctx, candidates)
	if err != nil {
		return nil, err
	}
	for _, f := range result.Failures {
		metrics.UpsertFailures.Inc()
		c.logger.Warnw("venue candidate skipped", "external_id", f.ExternalID, "error", f.Err)
	}

	if err := c.log.RecordSearch(ctx, key, len(candidates)); err != nil {
		metrics.SearchLogFailures.WithLabelValues("write").Inc()
		c.logger.Errorw("failed to record search", "lng", key.Lng, "lat", key.Lat, "query", key.QueryText(), "error", fmt.Errorf("%w: %w", ErrLogWriteFailed, err))
	}

	return result.Venues, nil
}

// isFresh consults the search log. A log failure counts as a miss.
func (c *Cache) isFresh(ctx context.Context, key models.SearchKey) bool {
	entry, err := c.log.FindRecentSearch(ctx, key, c.maxAge)
	if err != nil {
		metrics.SearchLogFailures.WithLabelValues("read").Inc()
		c.logger.Errorw("failed to read search log", "lng", key.Lng, "lat", key.Lat, "query", key.QueryText(), "error", fmt.Errorf("%w: %w", ErrLogWriteFailed, err))
		return false
	}
	return entry != nil
}

// FindNearbyWithRooms returns venues within meters of the point that have at
// least one room, nearest first. It never calls the provider.
func (c *Cache) FindNearbyWithRooms(ctx context.Context, lat, lng float64, meters int) ([]models.Venue, error) {
	venues, err := c.store.FindVenuesNear(ctx, models.RadiusQuery{
		Lng:       lng,
		Lat:       lat,
		Meters:    meters,
		RoomsOnly: true,
		Limit:     c.roomsLimit,
	})
	if err != nil {
		return nil, err
	}
	return geo.SortByDistance(lat, lng, venues), nil
}

// FindByID returns the venue with the given ID, or nil if there is none.
func (c *Cache) FindByID(ctx context.Context, id uuid.UUID) (*models.Venue, error) {
	return c.store.FindVenueByID(ctx, id)
}

// FindMany returns the venues matching ids, omitting unknown ids.
func (c *Cache) FindMany(ctx context.Context, ids []uuid.UUID) ([]models.Venue, error) {
	return c.store.FindVenuesByIDs(ctx, ids)
}

// providerErrorKind labels provider failures for metrics.
func providerErrorKind(err error) string {
	if errors.Is(err, foursquare.ErrProviderTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "unavailable"
}
