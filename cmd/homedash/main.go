package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/ptarver/homedash/internal/api/http"
	"github.com/ptarver/homedash/internal/cache"
	"github.com/ptarver/homedash/internal/config"
	"github.com/ptarver/homedash/internal/dashboard"
	"github.com/ptarver/homedash/internal/fetch"
	"github.com/ptarver/homedash/internal/geo"
	"github.com/ptarver/homedash/internal/quote"
	"github.com/ptarver/homedash/internal/scheduler"
	"github.com/ptarver/homedash/internal/store"
	"github.com/ptarver/homedash/internal/weather"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Persisted user state (settings, reminders, favorites).
	fileStore, err := store.Open(cfg.DataDir)
	if err != nil {
		log.Fatalf("failed to open data dir: %v", err)
	}

	// Shared resilient HTTP client for outbound provider calls.
	httpClient := fetch.New(cfg.HTTPTimeout)

	// Location chain: Open-Meteo geocoder first, Nominatim as fallback.
	locations := geo.NewResolver(
		geo.NewOpenMeteoGeocoder(httpClient),
		geo.NewNominatimGeocoder(httpClient),
	)

	reader := weather.NewReader(httpClient)
	quotes := quote.NewResolver(quote.NewYahooClient(httpClient))

	// Core service orchestrating resolvers behind the TTL cache.
	service := dashboard.New(locations, reader, quotes, cache.New(), cfg.RefreshInterval, cfg.GeoTTL)

	// Scheduler that keeps the caches warm on the refresh cadence.
	sched := scheduler.New(service, fileStore, cfg.RefreshInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "homedash",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
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

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "homedash",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service, fileStore)

	// Start server with graceful shutdown
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
