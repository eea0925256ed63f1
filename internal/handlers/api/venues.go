package api

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"venuechat/internal/db"
	"venuechat/internal/foursquare"
	"venuechat/internal/models"
	"venuechat/internal/validation"
)

// VenueFinder is the proximity cache as seen by the API.
type VenueFinder interface {
	FindNearby(ctx context.Context, lat, lng float64, meters int, filter string) ([]models.Venue, error)
	FindNearbyWithRooms(ctx context.Context, lat, lng float64, meters int) ([]models.Venue, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Venue, error)
	FindMany(ctx context.Context, ids []uuid.UUID) ([]models.Venue, error)
}

// VenueHandler serves venue lookups via JSON API.
type VenueHandler struct {
	venues VenueFinder
	log    *zap.SugaredLogger
}

// NewVenueHandler creates a new API venue handler.
func NewVenueHandler(venues VenueFinder, log *zap.SugaredLogger) *VenueHandler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &VenueHandler{venues: venues, log: log}
}

// Nearby returns venues around lat/lng, consulting the provider on a miss.
func (h *VenueHandler) Nearby(c fiber.Ctx) error {
	p, msg := parseNearby(c)
	if msg != "" {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	venues, err := h.venues.FindNearby(c.Context(), p.lat, p.lng, p.meters, p.q)
	if err != nil {
		return h.venueError(c, err)
	}

	return jsonVenues(c, venues)
}

// NearbyWithRooms returns venues around lat/lng that have chat rooms,
// nearest first.
func (h *VenueHandler) NearbyWithRooms(c fiber.Ctx) error {
	p, msg := parseNearby(c)
	if msg != "" {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	venues, err := h.venues.FindNearbyWithRooms(c.Context(), p.lat, p.lng, p.meters)
	if err != nil {
		return h.venueError(c, err)
	}

	return jsonVenues(c, venues)
}

// Get returns a single venue by ID.
func (h *VenueHandler) Get(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid venue id")
	}

	venue, err := h.venues.FindByID(c.Context(), id)
	if err != nil {
		return h.venueError(c, err)
	}
	if venue == nil {
		return jsonError(c, fiber.StatusNotFound, "venue not found")
	}

	return jsonSuccess(c, venue)
}

// List returns the venues named by the comma-separated ids parameter.
// Unknown ids are omitted.
func (h *VenueHandler) List(c fiber.Ctx) error {
	ids, msg := validation.ParseIDs(c.Query("ids"))
	if msg != "" {
		return jsonError(c, fiber.StatusBadRequest, msg)
	}

	venues, err := h.venues.FindMany(c.Context(), ids)
	if err != nil {
		return h.venueError(c, err)
	}

	return jsonVenues(c, venues)
}

// venueError maps cache errors onto HTTP statuses.
func (h *VenueHandler) venueError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, foursquare.ErrProviderTimeout):
		return jsonError(c, fiber.StatusGatewayTimeout, "venue provider timed out")
	case errors.Is(err, foursquare.ErrProviderUnavailable):
		return jsonError(c, fiber.StatusBadGateway, "venue provider unavailable")
	case errors.Is(err, db.ErrStorageUnavailable):
		h.log.Errorw("venue store unavailable", "path", c.Path(), "error", err)
		return jsonError(c, fiber.StatusServiceUnavailable, "venue store unavailable")
	default:
		h.log.Errorw("venue lookup failed", "path", c.Path(), "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch venues")
	}
}

type nearbyParams struct {
	lat    float64
	lng    float64
	meters int
	q      string
}

func parseNearby(c fiber.Ctx) (nearbyParams, string) {
	var p nearbyParams

	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		return p, "lat is required and must be a number"
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		return p, "lng is required and must be a number"
	}
	if ok, msg := validation.ValidateCoordinate(lat, lng); !ok {
		return p, msg
	}

	meters := validation.DefaultMeters
	if raw := c.Query("meters"); raw != "" {
		meters, err = strconv.Atoi(raw)
		if err != nil {
			return p, "meters must be an integer"
		}
	}
	if ok, msg := validation.ValidateMeters(meters); !ok {
		return p, msg
	}

	q := strings.TrimSpace(c.Query("q"))
	if ok, msg := validation.ValidateQuery(q); !ok {
		return p, msg
	}

	return nearbyParams{lat: lat, lng: lng, meters: meters, q: q}, ""
}
