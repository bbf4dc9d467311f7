package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-co-op/gocron/v2"
	_ "github.com/lib/pq"
	"github.com/mecacaraudio/scoring-engine/config"
	"github.com/mecacaraudio/scoring-engine/db"
	"github.com/mecacaraudio/scoring-engine/handlers"
	"github.com/mecacaraudio/scoring-engine/repositories"
	api "github.com/mecacaraudio/scoring-engine/routes"
	"github.com/mecacaraudio/scoring-engine/scoring"
	"github.com/mecacaraudio/scoring-engine/services"
	"github.com/mecacaraudio/scoring-engine/storage"
)

const cacheWarmInterval = 5 * time.Minute

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	var uploader storage.FileUploader
	if cfg.R2Configured() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 not configured, season archiving disabled")
	}

	wsHub := scoring.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket hub started")

	seasonRepo := repositories.NewPostgresSeasonRepository(dbConn)
	eventRepo := repositories.NewPostgresEventRepository(dbConn)
	resultRepo := repositories.NewPostgresResultRepository(dbConn)
	awardRepo := repositories.NewPostgresAwardRepository(dbConn)
	standingRepo := repositories.NewPostgresStandingRepository(dbConn)
	qualRepo := repositories.NewPostgresQualificationRepository(dbConn)
	classRepo := repositories.NewPostgresClassRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	logger.Info("repositories initialized")

	emailService, err := services.NewEmailService(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}
	pointsService := services.NewPointsService(dbConn, seasonRepo, eventRepo, resultRepo, awardRepo, logger)
	standingsService := services.NewStandingsService(dbConn, seasonRepo, awardRepo, standingRepo, classRepo, teamRepo, logger)
	qualificationService := services.NewQualificationService(seasonRepo, awardRepo, classRepo, qualRepo, emailService, logger)
	classMapService := services.NewClassMapService(classRepo, logger)
	resultsService := services.NewResultsService(dbConn, eventRepo, resultRepo, classRepo, logger)

	var archiveService *services.ArchiveService
	if uploader != nil {
		archiveService = services.NewArchiveService(seasonRepo, standingRepo, awardRepo, qualRepo, classRepo, uploader, logger)
	}
	logger.Info("services initialized")

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		logger.Error("failed to create scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(cacheWarmInterval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			season, warmErr := seasonRepo.GetCurrent(ctx)
			if warmErr != nil {
				if !errors.Is(warmErr, repositories.ErrSeasonNotFound) {
					logger.Error("cache warm: failed to resolve current season", slog.Any("error", warmErr))
				}
				return
			}
			if warmErr = standingsService.WarmCache(ctx, season.ID); warmErr != nil {
				logger.Error("cache warm failed", slog.Int("seasonId", season.ID), slog.Any("error", warmErr))
			}
		}),
	)
	if err != nil {
		logger.Error("failed to schedule cache warm job", slog.Any("error", err))
		os.Exit(1)
	}
	scheduler.Start()
	defer func() { _ = scheduler.Shutdown() }()
	logger.Info("standings cache warm scheduler started", slog.Duration("interval", cacheWarmInterval))

	standingsHandler := handlers.NewStandingsHandler(standingsService, wsHub)
	pointsHandler := handlers.NewPointsHandler(pointsService, wsHub)
	qualificationHandler := handlers.NewQualificationHandler(qualificationService, wsHub)
	classMapHandler := handlers.NewClassMapHandler(classMapService)
	resultsHandler := handlers.NewResultsHandler(resultsService)
	archiveHandler := handlers.NewArchiveHandler(archiveService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub)
	logger.Info("HTTP handlers initialized")

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		standingsHandler,
		pointsHandler,
		qualificationHandler,
		classMapHandler,
		resultsHandler,
		archiveHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
