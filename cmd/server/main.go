package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shelfwise/receiptscan/internal/config"
	"github.com/shelfwise/receiptscan/internal/handlers"
	"github.com/shelfwise/receiptscan/internal/services"
)

func main() {
	// Load .env file if it exists
	godotenv.Load()

	// Load configuration
	cfg := config.Load()

	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Warm up the OCR engine pool before accepting uploads
	engine, err := services.NewTesseractEngine(cfg.OcrPoolSize, cfg.OcrLanguage)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize OCR engine")
	}

	pipeline := services.NewPipeline(engine)
	receiptHandler := handlers.NewReceiptHandler(cfg, pipeline, engine)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		// Leave headroom above the per-file limit for multipart framing
		BodyLimit: int(cfg.MaxUploadBytes) + 1024*1024,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "engine": engine.Name()})
	})

	// API routes
	api := app.Group("/api")
	receipts := api.Group("/receipts")
	receipts.Post("/scan", receiptHandler.ScanReceipt)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	if err := app.Shutdown(); err != nil {
		log.Error().Err(err).Msg("failed to shut down server cleanly")
	}
	if err := engine.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close OCR engine")
	}
}
