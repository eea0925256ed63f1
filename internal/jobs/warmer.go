package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"venuechat/internal/config"
	"venuechat/internal/models"
)

// NearbyFinder runs a proximity search through the cache.
type NearbyFinder interface {
	FindNearby(ctx context.Context, lat, lng float64, meters int, filter string) ([]models.Venue, error)
}

// Warmer periodically searches configured hotspots so their search log
// entries stay fresh and popular areas are served from the store.
type Warmer struct {
	finder   NearbyFinder
	hotspots []config.Hotspot
	interval time.Duration
	delay    time.Duration
	log      *zap.SugaredLogger
}

// NewWarmer creates a new cache warmer.
func NewWarmer(finder NearbyFinder, hotspots []config.Hotspot, interval time.Duration, log *zap.SugaredLogger) *Warmer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Warmer{
		finder:   finder,
		hotspots: hotspots,
		interval: interval,
		delay:    500 * time.Millisecond,
		log:      log,
	}
}

// Start begins the background warm loop and blocks until ctx is done.
func (w *Warmer) Start(ctx context.Context) {
	w.log.Infow("cache warmer started", "interval", w.interval, "hotspots", len(w.hotspots))

	// Run immediately on start
	w.warmAll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("cache warmer stopped")
			return
		case <-ticker.C:
			w.warmAll(ctx)
		}
	}
}

// warmAll searches every hotspot once. Hotspots that are still fresh are
// cache hits and cost only a store read.
func (w *Warmer) warmAll(ctx context.Context) {
	for i, h := range w.hotspots {
		if i > 0 {
			// Spread provider calls out
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.delay):
			}
		}

		venues, err := w.finder.FindNearby(ctx, h.Lat, h.Lng, h.Meters, h.Query)
		if err != nil {
			w.log.Warnw("failed to warm hotspot", "hotspot", h.Name, "error", err)
			continue
		}
		w.log.Debugw("hotspot warmed", "hotspot", h.Name, "venues", len(venues))
	}
}
