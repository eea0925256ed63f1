package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service readiness.
type HealthHandler struct {
	store Pinger
	log   *zap.SugaredLogger
}

// NewHealthHandler creates a new API health handler.
func NewHealthHandler(store Pinger, log *zap.SugaredLogger) *HealthHandler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &HealthHandler{store: store, log: log}
}

// Check pings the venue store.
func (h *HealthHandler) Check(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.Warnw("health check failed", "error", err)
		return jsonError(c, fiber.StatusServiceUnavailable, "database unavailable")
	}

	return jsonSuccess(c, fiber.Map{"database": "ok"})
}
