package main

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"qphub/internal/config"
	"qphub/internal/database"
	"qphub/internal/database/migration"
	"qphub/internal/extract"
	handlers "qphub/internal/http/handler"
	"qphub/internal/http/middleware"
	"qphub/internal/llm"
	"qphub/internal/logger"
	"qphub/internal/ocr"
	"qphub/internal/otel"
	"qphub/internal/repository/postgres"
	"qphub/internal/search"
	"qphub/internal/service"
	"qphub/internal/storage"
)

func main() {
	if err := logger.Setup(logger.DefaultConfig()); err != nil {
		panic(err)
	}
	log := logger.WithComponent("main")

	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	ctx := context.Background()

	shutdownTracing, err := otel.Init(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, cfg.Database.Host); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	// S3-compatible object storage for the original PDFs
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize object storage")
	}

	// Pipeline components
	engine := ocr.NewFitzTesseract(cfg.OCR)
	completer, err := llm.NewOpenAIClient(cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize completion client")
	}
	extractor := extract.NewExtractor(completer)
	translator := search.NewTranslator(completer)

	paperRepo := postgres.NewPaperPostgres(db)
	paperSvc := service.NewPaperService(engine, extractor, objStore, paperRepo, cfg.OCR.TruncateChars)
	searchSvc := service.NewSearchService(translator, paperRepo)

	// Metrics registry with standard process/runtime collectors
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promMiddleware, err := middleware.NewPrometheusMiddleware(registry)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register metrics")
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    64 * 1024 * 1024, // scanned PDFs can be large
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())
	app.Use(promMiddleware.Handler())

	handlers.RegisterRoutes(app, db, paperSvc, searchSvc, registry)

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Msg("starting server")
	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
