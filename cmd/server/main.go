package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"venuechat/internal/config"
	"venuechat/internal/db"
	"venuechat/internal/foursquare"
	"venuechat/internal/jobs"
	"venuechat/internal/logger"
	"venuechat/internal/metrics"
	"venuechat/internal/middleware"
	"venuechat/internal/server"
	"venuechat/internal/venues"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Dev:        cfg.IsDev(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Errorw("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("Server exited")
}

func run(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) error {
	// Initialize database
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Info("Migrations completed successfully")

	if cfg.IsDev() && cfg.SeedDev {
		if err := database.SeedDevVenues(ctx); err != nil {
			log.Warnw("failed to seed dev venues", "error", err)
		}
	}

	metrics.Init(database, log.Named("metrics"))

	provider := foursquare.NewClient(foursquare.Config{
		BaseURL:      cfg.Provider.BaseURL,
		ClientID:     cfg.Provider.ClientID,
		ClientSecret: cfg.Provider.ClientSecret,
		OAuthToken:   cfg.Provider.OAuthToken,
		APIVersion:   cfg.Provider.APIVersion,
		Timeout:      cfg.Provider.Timeout,
		Retries:      cfg.Provider.Retries,
		Limit:        cfg.Provider.ResultLimit,
	}, log.Named("foursquare"))

	cache := venues.NewCache(database, database, provider, log.Named("venues"), venues.Options{
		MaxAge:     cfg.Cache.MaxAge,
		HitLimit:   cfg.Cache.HitLimit,
		RoomsLimit: cfg.Cache.RoomsLimit,
	})

	deps := server.Deps{Venues: cache, Store: database}
	if cfg.OIDC.Issuer != "" {
		verifier, err := middleware.NewOIDCVerifier(ctx, cfg.OIDC.Issuer, cfg.OIDC.ClientID)
		if err != nil {
			return fmt.Errorf("initialize OIDC: %w", err)
		}
		deps.Verifier = verifier
	}

	srv := server.New(cfg, log)
	srv.RegisterRoutes(deps)

	// Start cache warmer
	if cfg.Warmer.Interval > 0 && len(cfg.Warmer.Hotspots) > 0 {
		warmer := jobs.NewWarmer(cache, cfg.Warmer.Hotspots, cfg.Warmer.Interval, log.Named("warmer"))
		go warmer.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	return srv.Shutdown(10 * time.Second)
}
