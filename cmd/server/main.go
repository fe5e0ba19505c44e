package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iconidentify/redgrabba/internal/api"
	"github.com/iconidentify/redgrabba/internal/api/handler"
	"github.com/iconidentify/redgrabba/internal/config"
	"github.com/iconidentify/redgrabba/internal/downloader"
	"github.com/iconidentify/redgrabba/internal/repository"
	"github.com/iconidentify/redgrabba/internal/service"
	"github.com/iconidentify/redgrabba/pkg/reddit"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("redgrabba %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Setup logger; level is adjusted once config is loaded
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting redgrabba",
		"version", Version,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if lvl, err := cfg.Log.SlogLevel(); err == nil {
		level.Set(lvl)
	}

	// Ensure storage directories exist
	if err := os.MkdirAll(cfg.Storage.BasePath, 0755); err != nil {
		logger.Error("failed to create storage directory", "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.Storage.PartialPath(), 0755); err != nil {
		logger.Error("failed to create temp directory", "error", err)
		os.Exit(1)
	}

	// Initialize dependencies
	var history repository.HistoryRepository
	if cfg.History.DBPath != "" {
		sqliteRepo, err := repository.NewSQLiteHistoryRepository(cfg.History.DBPath)
		if err != nil {
			logger.Error("failed to open history database", "path", cfg.History.DBPath, "error", err)
			os.Exit(1)
		}
		history = sqliteRepo
		logger.Info("history stored in sqlite", "path", cfg.History.DBPath)
	} else {
		history = repository.NewInMemoryHistoryRepository()
	}
	defer history.Close()

	mediaRepo := repository.NewFilesystemMediaRepository(cfg.Storage, cfg.Download.ChunkSize)
	redditClient := reddit.NewClient(cfg.Reddit, logger.With("component", "reddit"))
	dl := downloader.NewHTTPDownloader(cfg.Download, logger.With("component", "downloader"))

	// Initialize services
	mediaSvc := service.NewMediaService(
		redditClient,
		dl,
		mediaRepo,
		history,
		logger.With("component", "media"),
	)

	// Initialize handlers
	mediaHandler := handler.NewMediaHandler(mediaSvc, logger)
	historyHandler := handler.NewHistoryHandler(mediaSvc, logger)
	healthHandler := handler.NewHealthHandler(mediaSvc)
	uiHandler := handler.NewUIHandler()

	// Setup router
	router := api.NewRouter(cfg.Server, mediaHandler, historyHandler, healthHandler, uiHandler)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server",
			"addr", srv.Addr,
			"storage", cfg.Storage.BasePath,
		)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop accepting new requests; in-flight downloads finish or time out
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
