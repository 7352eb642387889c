package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	swagger "github.com/gofiber/swagger"
	"github.com/localnerve/booksdb/internal/config"
	"github.com/localnerve/booksdb/internal/handlers"
	"github.com/localnerve/booksdb/internal/logging"
	"github.com/localnerve/booksdb/internal/middleware"
	"github.com/localnerve/booksdb/internal/services"
	"github.com/localnerve/booksdb/internal/storage"

	_ "github.com/localnerve/booksdb/docs/api" // Swagger docs
)

// @title BooksDB API
// @version 2.0.0
// @description Personal book tracking service with per-user book lists
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/booksdb
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

func main() {
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	flag.Parse()

	if err := config.LoadEnvFile(envFilename); err != nil {
		logging.Fatal().Err(err).Str("file", envFilename).Msg("Failed to load environment file")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// Connect to the store
	connectCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := storage.Open(connectCtx, cfg)
	cancel()
	if err != nil {
		logging.Fatal().Err(err).Str("db_type", cfg.DBType).Msg("Failed to connect to store")
	}
	defer store.Close()

	verifier, err := services.NewVerifier(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create identity verifier")
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    cfg.MaxUploadBytes,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		Output: logging.Writer(),
	}))
	app.Use(compress.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Api-Version",
		AllowCredentials: true,
	}))

	// Prometheus metrics
	prometheus := fiberprometheus.New("booksdb")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	var auth fiber.Handler
	switch cfg.AuthMode {
	case config.AuthModeAuthorizer:
		auth = middleware.AuthUser(verifier, cfg.AuthzCookie)
		logging.Info().Msg("Authorizer will be initialized on first authenticated request")
	case config.AuthModeJWT:
		auth = middleware.AuthUser(verifier, cfg.JWTCookie)
	default:
		logging.Warn().Msg("Authentication disabled, request body email is trusted")
	}

	handlers.RegisterRoutes(app,
		&handlers.BooksHandler{Service: services.NewBookService(store, cfg.StoreTimeout)},
		&handlers.HealthHandler{Config: cfg, Store: store},
		auth,
	)

	// 404 handler
	app.Use(handlers.NotFound)

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		logging.Info().Msg("Gracefully shutting down...")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	// Start server
	logging.Info().Str("port", cfg.Port).Str("db_type", cfg.DBType).Str("auth_mode", cfg.AuthMode).Msg("Starting server")
	if err := app.Listen(":" + cfg.Port); err != nil {
		logging.Fatal().Err(err).Msg("Failed to start server")
	}

	logging.Info().Msg("Server stopped")
}
