// Package main is the entrypoint for the Wavedial API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/wavedial/wavedial/internal/aggregate"
	"github.com/wavedial/wavedial/internal/cache"
	"github.com/wavedial/wavedial/internal/catalog"
	"github.com/wavedial/wavedial/internal/clicks"
	"github.com/wavedial/wavedial/internal/config"
	"github.com/wavedial/wavedial/internal/handler"
	"github.com/wavedial/wavedial/internal/metrics"
	"github.com/wavedial/wavedial/internal/middleware"
	"github.com/wavedial/wavedial/internal/repository"
	"github.com/wavedial/wavedial/internal/server"
	"github.com/wavedial/wavedial/internal/stats"
)

func main() {
	// Initialize context
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	// Initialize catalog sources
	external := catalog.NewExternal(catalog.ExternalConfig{
		BaseURL:   cfg.ExternalBaseURL,
		UserAgent: cfg.ExternalUserAgent,
		Timeout:   cfg.ExternalTimeout,
		CacheTTL:  cfg.ExternalCacheTTL,
		Cache:     cacheClient,
	}, logger)
	local := catalog.NewLocal(repo)

	// Initialize services
	metricsRecorder := metrics.NewInMemory()
	aggregator := aggregate.New(local, external, logger, metricsRecorder)
	ingestor := clicks.NewIngestor(repo, external, logger, metricsRecorder)

	// Initialize statistics roller
	roller := stats.NewRoller(repo, logger, metricsRecorder)
	roller.SetInterval(cfg.RollerInterval)
	roller.SetRetention(cfg.RollerRetention)

	// Initialize handlers
	h := handler.New()
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	facetHandler := handler.NewFacetHandler(aggregator, logger)
	stationHandler := handler.NewStationHandler(repo, logger)
	clickHandler := handler.NewClickHandler(ingestor, logger)
	opsHandler := handler.NewOpsHandler(metricsRecorder, roller, logger)

	// Setup router
	r := setupRouter(h, healthHandler, facetHandler, stationHandler, clickHandler, opsHandler, cacheClient, cfg, logger)

	// Create server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Start the roller and make sure it drains before the pool closes
	rollerCtx, rollerStop := context.WithCancel(ctx)
	defer rollerStop()
	go func() {
		if err := roller.Run(rollerCtx); err != nil && err != context.Canceled {
			logger.Error("roller stopped", "error", err)
		}
	}()
	srv.OnShutdown("statistics-roller", roller.Shutdown)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"external_directory", cfg.ExternalBaseURL,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h *handler.Handler,
	healthHandler *handler.HealthHandler,
	facetHandler *handler.FacetHandler,
	stationHandler *handler.StationHandler,
	clickHandler *handler.ClickHandler,
	opsHandler *handler.OpsHandler,
	cacheClient *cache.Cache,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.DefaultSecurityConfig()))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()
	r.Use(middleware.CORS(corsCfg))

	// Health endpoints
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)

	// Root info endpoint
	r.Get("/", h.Hello)

	// Rate limit middleware configuration (click endpoints only)
	rateLimitCfg := middleware.RateLimitConfig{
		Logger:       logger,
		Cache:        cacheClient,
		ClickEnabled: cfg.RateLimitClickEnabled,
		ClickRPS:     cfg.RateLimitClickRPS,
		ClickBurst:   cfg.RateLimitClickBurst,
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Aggregated directory views
		r.Get("/countries", facetHandler.Countries)
		r.Get("/genres", facetHandler.Genres)
		r.Get("/languages", facetHandler.Languages)

		r.Route("/stations", func(r chi.Router) {
			r.Get("/popular", facetHandler.Popular)
			r.Get("/search", facetHandler.Search)
			r.Get("/", stationHandler.List)
			r.Post("/", stationHandler.Submit)

			r.Get("/{id}", stationHandler.Get)
			r.Get("/{id}/stats", stationHandler.Stats)

			// Click registration is rate limited per IP
			r.With(middleware.RateLimitIP(rateLimitCfg)).Post("/{id}/click", clickHandler.RegisterClick)
			r.With(middleware.RateLimitIP(rateLimitCfg)).Post("/external/{uuid}/click", clickHandler.RegisterExternalClick)
		})
	})

	// Operational endpoints, keep off the public listener in production
	r.Route("/internal", func(r chi.Router) {
		r.Get("/metrics", opsHandler.Metrics)
		r.Post("/stats/roll", opsHandler.Roll)
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
