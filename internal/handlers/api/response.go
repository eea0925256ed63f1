package api

import (
	"github.com/gofiber/fiber/v3"

	"venuechat/internal/models"
)

// jsonSuccess returns a 200 response with data wrapped in the standard envelope.
func jsonSuccess(c fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"data":   data,
	})
}

// jsonVenues returns a venue list with its length. A nil list encodes as [].
func jsonVenues(c fiber.Ctx, venues []models.Venue) error {
	if venues == nil {
		venues = []models.Venue{}
	}
	return c.JSON(fiber.Map{
		"status": "ok",
		"count":  len(venues),
		"data":   venues,
	})
}

// jsonError returns an error response in the standard envelope.
func jsonError(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status": "error",
		"error":  message,
	})
}
