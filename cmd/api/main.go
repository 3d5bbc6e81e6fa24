package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"alfredoptarigan/resume-ingest/internal/config"
	"alfredoptarigan/resume-ingest/internal/handlers"
	"alfredoptarigan/resume-ingest/internal/logger"
	"alfredoptarigan/resume-ingest/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	appLogger, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		log.Fatalf("❌ Failed to create logger: %v", err)
	}
	defer appLogger.Sync()
	appLogger.Info("✅ Config loaded successfully", zap.String("env", cfg.Server.Env))

	// Initialize pipeline
	pipeline, err := services.NewPipeline(context.Background(), cfg.Pipeline(), appLogger)
	if err != nil {
		appLogger.Fatal("❌ Failed to initialize pipeline", zap.Error(err))
	}
	if err := pipeline.Storage.EnsureSpoolDir(); err != nil {
		appLogger.Fatal("❌ Failed to create spool directory", zap.Error(err))
	}
	for _, d := range pipeline.Registry.Descriptors() {
		appLogger.Info("🔌 adapter registered",
			zap.String("adapter", d.Name),
			zap.Int("priority", d.Priority),
			zap.Bool("enabled", d.Enabled),
		)
	}
	appLogger.Info("✅ Pipeline initialized successfully")

	// Initialize Handlers
	parseHandler := handlers.NewParseHandler(pipeline.Parser, cfg.Upload.MaxFileSize, appLogger.Named("http"))
	statusHandler := handlers.NewStatusHandler(pipeline.Registry, pipeline.Breakers)
	appLogger.Info("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Resume Ingest API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Parse.Timeout + 10*time.Second,
		BodyLimit:    int(cfg.Upload.MaxFileSize) + 1<<20,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	api := app.Group("/api/v1")
	api.Get("/health", statusHandler.HandleHealth)
	api.Get("/adapters", statusHandler.HandleAdapters)
	api.Post("/parse", parseHandler.HandleParse)

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Resume Ingest API",
			"version": "1.0.0",
			"endpoints": []string{
				"GET /api/v1/health",
				"GET /api/v1/adapters",
				"POST /api/v1/parse",
			},
		})
	})

	// SIGHUP re-reads ADAPTERS_CONFIG and ADAPTER_* overrides
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	go func() {
		for range reload {
			reloadAdapters(cfg, pipeline, appLogger)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		appLogger.Info("🛑 Shutting down server...")
		if err := app.ShutdownWithTimeout(cfg.Parse.Timeout); err != nil {
			appLogger.Error("❌ Server forced to shutdown", zap.Error(err))
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	appLogger.Info("🚀 Server starting", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		appLogger.Fatal("❌ Failed to start server", zap.Error(err))
	}
}

func reloadAdapters(cfg *config.Config, pipeline *services.Pipeline, appLogger *zap.Logger) {
	descs, err := config.LoadAdapters(cfg)
	if err != nil {
		appLogger.Error("❌ Failed to read adapter configuration", zap.Error(err))
		return
	}
	if err := pipeline.Reload(descs); err != nil {
		appLogger.Error("❌ Adapter reload rejected", zap.Error(err))
		return
	}
	for _, d := range pipeline.Registry.Descriptors() {
		appLogger.Info("🔄 adapter reloaded",
			zap.String("adapter", d.Name),
			zap.Int("priority", d.Priority),
			zap.Bool("enabled", d.Enabled),
		)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	if code == fiber.StatusRequestEntityTooLarge {
		return handlers.WriteError(c, services.NewPipelineError(services.CodeFileTooLarge, e.Message, nil), nil)
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
