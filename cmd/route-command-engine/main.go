package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	httpapi "github.com/i474232898/route-command-engine/internal/api/http"
	"github.com/i474232898/route-command-engine/internal/config"
	"github.com/i474232898/route-command-engine/internal/geocode"
	"github.com/i474232898/route-command-engine/internal/logging"
	"github.com/i474232898/route-command-engine/internal/route"
	"github.com/i474232898/route-command-engine/internal/routebuilder"
	"github.com/i474232898/route-command-engine/internal/routing/providers"
	"github.com/i474232898/route-command-engine/internal/scheduler"
	"github.com/i474232898/route-command-engine/internal/store"
)

const appName = "route-command-engine"

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	lg := logging.Init(appName, cfg.LogLevel, cfg.LogFormat)

	// Shared HTTP client for outbound routing calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Routing provider with resilience (backoff + circuit breaker).
	var directions route.Directions = providers.StraightLine{}
	if cfg.OSRMBaseURL != "" {
		directions = providers.NewOSRMProvider(httpClient, cfg.OSRMBaseURL,
			providers.WithMaxRetries(cfg.RoutingMaxRetries),
			providers.WithTimeout(cfg.HTTPTimeout),
			providers.WithLogger(logging.Component(lg, "osrm")),
		)
	} else {
		lg.Warn().Msg("OSRM_BASE_URL not set; legs are straight lines")
	}

	geocoder := geocode.New(cfg.GoogleGeocodingAPIKey, logging.Component(lg, "geocode"))
	if !geocoder.Configured() {
		lg.Info().Msg("GOOGLE_GEOCODING_API_KEY not set; address lookup disabled")
	}

	// In-memory snapshot store with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	registry := routebuilder.NewRegistry(directions,
		routebuilder.WithHistoryLimit(cfg.HistoryLimit),
		routebuilder.WithLogger(lg),
	)

	// Scheduler that periodically snapshots changed routes.
	sched := scheduler.New(registry, memStore, cfg.SnapshotInterval, logging.Component(lg, "scheduler"))
	if err := sched.Start(); err != nil {
		lg.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          2 * httpapi.DefaultWaitTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  appName,
			"sessions": registry.Len(),
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Services{
		Registry: registry,
		Store:    memStore,
		Geocoder: geocoder,
		Logger:   logging.Component(lg, "http"),
	})

	go func() {
		lg.Info().Str("port", cfg.Port).Msg("listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			lg.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		lg.Error().Err(err).Msg("error during shutdown")
	}
	// Final snapshot of anything changed since the last tick.
	sched.SnapshotAll()
}
