package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/dvloznov/garden-ledger/internal/app"
	"github.com/dvloznov/garden-ledger/internal/config"
	"github.com/dvloznov/garden-ledger/internal/linebot"
	"github.com/dvloznov/garden-ledger/internal/logger"
)

func main() {
	cfg := config.Load()
	log := logger.NewWithLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if cfg.QueueBackend != config.QueueAMQP {
		log.Fatal().Str("queue", cfg.QueueBackend).Msg("Worker requires QUEUE_BACKEND=amqp; the memory queue runs inside the API")
	}
	if !cfg.LineEnabled() {
		log.Fatal().Msg("Worker requires LINE_CHANNEL_SECRET and LINE_CHANNEL_ACCESS_TOKEN to reply")
	}

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	deps, err := app.Init(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize dependencies")
	}
	defer deps.Cleanup()

	jobQueue, err := deps.NewQueue()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to job queue")
	}

	log.Info().Str("queue", cfg.AMQPQueue).Msg("Starting worker service")

	if err := jobQueue.Start(ctx, linebot.NewJobHandler(deps.Ledger, deps.Messenger())); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker service exited")
}
