package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/agrisense/farm-advisory/internal/advisor"
	httpapi "github.com/agrisense/farm-advisory/internal/api/http"
	"github.com/agrisense/farm-advisory/internal/config"
	"github.com/agrisense/farm-advisory/internal/scheduler"
	"github.com/agrisense/farm-advisory/internal/store"
	"github.com/agrisense/farm-advisory/internal/weather"
	"github.com/agrisense/farm-advisory/internal/weather/providers"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	adapters, err := buildAdapters(cfg, httpClient)
	if err != nil {
		log.Fatal("failed to build providers", zap.Error(err))
	}

	clock := clockwork.NewRealClock()
	validator := weather.NewValidator(cfg.Bounds, log)
	gateway := weather.NewGateway(adapters, cfg.Gateway, validator, clock, log)

	memStore := store.NewMemoryStore()
	for _, f := range cfg.Farms {
		memStore.UpsertFarm(f)
	}

	engineOpts := []advisor.Option{}
	if cfg.AdvisoryEnabled {
		engineOpts = append(engineOpts, advisor.WithAdvisory(
			advisor.NewHTTPAdvisoryClient(cfg.AdvisoryURL, cfg.AdvisoryKey, cfg.AdvisoryTimeout),
		))
		log.Info("remote advisory enabled", zap.String("url", cfg.AdvisoryURL))
	}
	engine := advisor.NewEngine(cfg.Thresholds, log, engineOpts...)

	sched := scheduler.New(scheduler.Config{
		DailyFetchCron: cfg.DailyFetchCron,
		BackfillCron:   cfg.BackfillCron,
		LookbackDays:   cfg.BackfillLookbackDays,
		Throttle:       cfg.BackfillThrottle,
	}, memStore, gateway, engine, clock, log)
	if err := sched.Start(); err != nil {
		log.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "farm-advisory",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
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

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "farm-advisory",
		})
	})

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Store:   memStore,
		Gateway: gateway,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}
}

// buildAdapters resolves the configured provider order to concrete adapter
// instances. Every entry resolves to its own adapter; the fallback chain
// never aliases the primary.
func buildAdapters(cfg *config.AppConfig, client *http.Client) ([]weather.Adapter, error) {
	adapters := make([]weather.Adapter, 0, len(cfg.ProviderOrder))
	for _, name := range cfg.ProviderOrder {
		switch name {
		case "weatherapi":
			adapters = append(adapters, providers.NewWeatherAPIAdapter(client, cfg.WeatherAPIKey))
		case "openweathermap":
			adapters = append(adapters, providers.NewOpenWeatherAdapter(client, cfg.OpenWeatherAPIKey))
		case "openmeteo":
			adapters = append(adapters, providers.NewOpenMeteoAdapter(client))
		default:
			return nil, fmt.Errorf("unknown provider %q in PROVIDER_ORDER", name)
		}
	}
	return adapters, nil
}
