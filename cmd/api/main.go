// @title Prestadiario API
// @version 1.0
// @description Daily microloan collection backend
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the Auth0 access token.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prestadiario/prestadiario-backend/internal/config"
	"github.com/prestadiario/prestadiario-backend/internal/handler"
	"github.com/prestadiario/prestadiario-backend/internal/middleware"
	"github.com/prestadiario/prestadiario-backend/internal/repository/postgres"
	"github.com/prestadiario/prestadiario-backend/internal/service"
	"github.com/prestadiario/prestadiario-backend/internal/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Connect to database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Initialize repositories
	userRepo := postgres.NewUserRepository(pool)
	loanRepo := postgres.NewLoanRepository(pool)
	paymentRepo := postgres.NewLoanPaymentRepository(pool)
	transactionRepo := postgres.NewTransactionRepository(pool)
	configRepo := postgres.NewInterestConfigRepository(pool)
	uow := postgres.NewUnitOfWork(pool)

	// Collection engine
	cal, err := cfg.Collection.Calendar()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load holiday calendar")
	}
	if year := cal.Today(time.Now()).Year; !cal.Covers(year) {
		log.Warn().Int("year", year).Str("policy", string(cfg.Collection.UnknownYearPolicy)).Msg("No holiday table for current year")
	}
	calculator, err := service.NewCalculator(cfg.Collection.Policy)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid collection policy")
	}
	lifecycle := service.NewLifecycle(calculator, cal)

	// WebSocket hub for real-time dashboard updates
	hub := websocket.NewHub()

	// Interest configuration, kept in sync with the store via LISTEN/NOTIFY
	configProvider := service.NewConfigProvider(configRepo, cfg.Collection.DefaultInterestRate, cfg.Collection.DefaultCurrency)
	configProvider.SetEventPublisher(hub)
	if _, err := configProvider.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("Using default interest config until the store is reachable")
	}
	listener := postgres.NewConfigListener(pool, log.Logger)
	go listener.Listen(ctx)
	go func() {
		if err := configProvider.Run(ctx, listener.Notifications()); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Config provider stopped")
		}
	}()

	// Initialize services
	loanService := service.NewLoanService(loanRepo, paymentRepo, transactionRepo, userRepo, uow, lifecycle, configProvider)
	loanService.SetEventPublisher(hub)
	collectorService := service.NewCollectorService(userRepo, loanRepo)
	collectorService.SetEventPublisher(hub)
	dashboardService := service.NewDashboardService(loanRepo, transactionRepo, userRepo, cal)

	// Daily delinquency sweep
	delinquencyWorker, err := service.NewDelinquencyWorker(loanService, log.Logger, service.DelinquencyWorkerConfig{
		Schedule:   cfg.Collection.SweepSchedule,
		Location:   cfg.Collection.Location,
		RunOnStart: true,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create delinquency worker")
	}
	delinquencyWorker.Start(ctx)

	// Initialize auth middleware
	authMiddleware, err := middleware.NewAuthMiddleware(cfg.Auth0Domain, cfg.Auth0Audience, userRepo)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create auth middleware")
	}
	wsValidator, err := websocket.NewAuth0JWTValidator(cfg.Auth0Domain, cfg.Auth0Audience, userRepo)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create WebSocket token validator")
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimitPerMinute > 0 {
		rateLimiter = middleware.NewRateLimiterWithConfig(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
		defer rateLimiter.Stop()
	}

	// Idempotency-Key replay is optional
	var idempotencyStore *middleware.IdempotencyStore
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		idempotencyStore = middleware.NewIdempotencyStore(redisClient, cfg.IdempotencyTTL)
		if err := idempotencyStore.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unreachable, idempotency keys fail open")
		} else {
			log.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")
		}
	}

	// Initialize handlers
	handlers := handler.Handlers{
		Me:          handler.NewMeHandler(configProvider),
		Config:      handler.NewConfigHandler(configProvider),
		Loan:        handler.NewLoanHandler(loanService),
		Collector:   handler.NewCollectorHandler(collectorService, loanService),
		Transaction: handler.NewTransactionHandler(loanService, cal),
		Dashboard:   handler.NewDashboardHandler(dashboardService),
	}
	wsHandler := handler.NewWebSocketHandler(hub, wsValidator, cfg.CORSOrigins)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{middleware.HeaderIdempotentReplayed, "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		if err := pool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	e.GET("/ws", wsHandler.HandleWS)
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET("/openapi.json", handler.OpenAPI3Handler([]handler.Server{
		{URL: "http://localhost:" + cfg.Port + "/api/v1", Description: "Local Development"},
	}))

	// Register API routes
	handler.RegisterRoutes(e, authMiddleware, rateLimiter, idempotencyStore, handlers)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Str("timezone", cfg.Collection.Location.String()).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	delinquencyWorker.Stop()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			event := log.Info()
			if res.Status >= http.StatusInternalServerError {
				event = log.Error()
			}
			event.
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
