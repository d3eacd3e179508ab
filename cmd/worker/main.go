package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/spend-anomaly/internal/app"
	"github.com/dvloznov/spend-anomaly/internal/config"
	"github.com/dvloznov/spend-anomaly/internal/jobs"
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

	if len(cfg.Worker.Users) == 0 {
		log.Fatal().Msg("worker.users is empty, nothing to scan")
	}

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	services, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Close()

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.Worker.QueueSize, cfg.Detection.Concurrency, jobStore)

	if err := jobQueue.Start(ctx, services.Runner().Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().
		Strs("users", cfg.Worker.Users).
		Dur("interval", cfg.Worker.Interval).
		Msg("Worker service started")

	go schedule(ctx, jobQueue, cfg.Worker.Users, cfg.Worker.Interval)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	// Cancel context to stop workers
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Worker service stopped")
}

// schedule enqueues one scan per user immediately and then on every tick
// until ctx is done.
func schedule(ctx context.Context, publisher jobs.Publisher, users []string, interval time.Duration) {
	log := logger.FromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for _, userID := range users {
			job := &jobs.DetectUserJob{UserID: userID}
			if err := publisher.PublishDetectUser(ctx, job); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Error().Err(err).Str("user_id", userID).Msg("Failed to enqueue scan job")
				continue
			}
			log.Debug().Str("job_id", job.JobID).Str("user_id", userID).Msg("Scan job enqueued")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
