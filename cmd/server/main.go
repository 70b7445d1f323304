package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/gdl-bridge/api"
	"github.com/yourusername/gdl-bridge/api/handlers"
	"github.com/yourusername/gdl-bridge/internal/app"
	"github.com/yourusername/gdl-bridge/internal/domain"
	"github.com/yourusername/gdl-bridge/internal/infrastructure"
	"github.com/yourusername/gdl-bridge/pkg/logger"
)

var configPath = flag.String("config", "", "Path to config file (default: search ./configs, ~/.config/gdl-bridge, /etc/gdl-bridge)")

func main() {
	flag.Parse()

	if err := runServer(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer(configPath string) error {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	if err := createDirectories(config); err != nil {
		return err
	}

	// Categorized logs: job events and errors as JSON, raw gallery-dl output
	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Download.LogsDir,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize multi-logger: %w", err)
	}
	defer multiLog.Close()

	log.Info("Starting gdl-bridge server",
		zap.String("version", handlers.Version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("gallery_dl", config.GalleryDL.Binary))

	repo, err := infrastructure.NewSQLiteJobRepository(config.Download.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer repo.Close()

	rules, err := infrastructure.LoadExtractorRules(config.Tags.ExtractorsDir)
	if err != nil {
		log.Warn("Failed to load tag rules", zap.Error(err))
	}
	log.Info("Loaded tag rules", zap.Int("extractors", len(rules)))

	engine := infrastructure.NewGalleryDLEngine(&config.GalleryDL, config.Download.LogsDir, log)
	registry := app.NewRegistry()

	adapter := app.NewJobAdapter(engine, registry, config.GalleryDL.ConfigFile, config.Download.OutputDir, log)
	adapter.SetRepository(repo)
	adapter.SetIndexing(config.Download.IndexResults)
	adapter.SetTagExtractor(infrastructure.NewConfigurableTagExtractor(rules))
	adapter.SetSummaryCache(app.NewSummaryCache(config.Cache.Size, config.Cache.TTL))
	adapter.SetNotifier(infrastructure.NewNotificationService(&config.Notification, log))
	adapter.SetMultiLogger(multiLog)

	router := api.SetupRouter(api.RouterConfig{
		Jobs:           adapter,
		Counter:        registry,
		Repository:     repo,
		LogsDir:        config.Download.LogsDir,
		StatusInterval: config.Status.PushInterval,
		Logger:         log,
		MultiLogger:    multiLog,
	})

	// Request contexts derive from jobsCtx so shutdown can stop running jobs
	jobsCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     router,
		BaseContext: func(net.Listener) context.Context { return jobsCtx },
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Received shutdown signal")
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	}

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	for _, job := range registry.Active() {
		log.Warn("Cancelling running job",
			zap.String("job_id", job.ID),
			zap.String("url", job.URL))
	}
	cancelJobs()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if running := registry.Clear(); len(running) > 0 {
		log.Warn("Jobs did not finish before exit", zap.Int("count", len(running)))
	}

	log.Info("Server exited")
	return nil
}

func createDirectories(config *domain.Config) error {
	dirs := []string{
		config.Download.BaseDir,
		config.Download.OutputDir,
		config.Download.LogsDir,
		filepath.Dir(config.Download.DatabasePath),
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
