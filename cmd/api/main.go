package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/config"
	"alfredoptarigan/resume-screener/internal/handlers"
	"alfredoptarigan/resume-screener/internal/logger"
	"alfredoptarigan/resume-screener/internal/repositories"
	"alfredoptarigan/resume-screener/internal/services"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		return err
	}

	runRepo := repositories.NewRunRepository(db)

	storageService := services.NewStorageService(cfg.Storage.UploadPath)
	if err := storageService.EnsureUploadDir(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pipeline, err := services.NewPipeline(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			log.Warn("failed to close pipeline", zap.Error(err))
		}
	}()
	log.Info("screening pipeline initialized")

	evaluatorService := services.NewEvaluatorService(
		runRepo,
		storageService,
		pipeline.Screener,
		pipeline.Exporter,
		services.EvaluatorOptions{
			OutputDir: cfg.Storage.OutputDir,
			WriteXLSX: cfg.Storage.WriteXLSX,
		},
		log,
	)

	worker := services.NewWorker(runRepo, evaluatorService, cfg.Worker.Concurrency, log)
	worker.Start(ctx)

	screenHandler := handlers.NewScreenHandler(runRepo, storageService, worker, cfg.Storage.MaxFileSize, log)
	resultHandler := handlers.NewResultHandler(runRepo)

	app := fiber.New(fiber.Config{
		AppName:      "Resume Screener API",
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		BodyLimit:    bodyLimit(cfg.Storage.MaxFileSize),
		ErrorHandler: customErrorHandler,
	})

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

	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	api.Post("/screen", screenHandler.HandleScreen)
	api.Get("/result/:id", resultHandler.HandleGetResult)
	api.Get("/result/:id/download", resultHandler.HandleDownload)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Resume Screener API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/screen",
				"GET /api/v1/result/:id",
				"GET /api/v1/result/:id/download",
			},
		})
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("shutting down server")
		worker.Stop()
		cancel()
		if err := app.Shutdown(); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("server starting", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// bodyLimit leaves room for several resumes in one multipart request.
func bodyLimit(maxFileSize int64) int {
	const maxFiles = 50
	if maxFileSize <= 0 {
		return fiber.DefaultBodyLimit
	}
	return int(maxFileSize) * maxFiles
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
