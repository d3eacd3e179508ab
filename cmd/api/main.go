package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dvloznov/spend-anomaly/internal/api"
	"github.com/dvloznov/spend-anomaly/internal/api/handlers"
	"github.com/dvloznov/spend-anomaly/internal/app"
	"github.com/dvloznov/spend-anomaly/internal/config"
	"github.com/dvloznov/spend-anomaly/internal/jobs/inmemory"
	"github.com/dvloznov/spend-anomaly/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default ./config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load config")
	}

	log, logCloser, err := logger.NewFromConfig(cfg.Log)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to create logger")
	}
	defer logCloser.Close()

	ctx := logger.WithContext(context.Background(), log)

	services, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Close()

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.Worker.QueueSize, cfg.Detection.Concurrency, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Msg("Starting job worker")
	if err := jobQueue.Start(workerCtx, services.Runner().Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job worker")
	}

	router := api.NewRouter(api.Handlers{
		Anomalies: handlers.NewAnomaliesHandler(services.Engine, services.Narrator, log),
		Alerts:    handlers.NewAlertsHandler(services.Alerts, log),
		Jobs:      handlers.NewJobsHandler(jobStore, jobQueue, log),
	}, cfg.Server.AllowedOrigins, log)

	port := strconv.Itoa(cfg.Server.Port)
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}
