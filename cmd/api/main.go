package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/dvloznov/garden-ledger/internal/api"
	"github.com/dvloznov/garden-ledger/internal/app"
	"github.com/dvloznov/garden-ledger/internal/config"
	"github.com/dvloznov/garden-ledger/internal/linebot"
	"github.com/dvloznov/garden-ledger/internal/logger"
	"github.com/dvloznov/garden-ledger/internal/scheduler"
)

func main() {
	cfg := config.Load()

	port := flag.String("port", cfg.Port, "HTTP server port (or set PORT)")
	flag.Parse()
	cfg.Port = *port

	log := logger.NewWithLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := logger.WithContext(context.Background(), log)

	deps, err := app.Init(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize dependencies")
	}
	defer deps.Cleanup()

	jobQueue, err := deps.NewQueue()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open job queue")
	}

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	// With the memory queue the API runs the worker itself; with AMQP the
	// worker binary consumes.
	if cfg.QueueBackend == config.QueueMemory {
		if messenger := deps.Messenger(); messenger != nil {
			log.Info().Int("workers", cfg.WorkerCount).Msg("Starting in-process job worker")
			if err := jobQueue.Start(workerCtx, linebot.NewJobHandler(deps.Ledger, messenger)); err != nil {
				log.Fatal().Err(err).Msg("Failed to start job worker")
			}
		} else {
			log.Warn().Msg("LINE not configured - webhook messages will not be processed")
		}
	}

	sched := scheduler.New(deps.Repo, deps.Messenger(), scheduler.Config{
		DailySpec:   cfg.DailySummaryCron,
		MonthlySpec: cfg.MonthlySummaryCron,
		Target:      cfg.LineSummaryTarget,
		Location:    deps.Location,
	}, log)
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	handler := api.NewRouter(api.Deps{
		Parser:         deps.Parser,
		Recorder:       deps.Ledger,
		Repo:           deps.Repo,
		Jobs:           deps.JobStore,
		Summaries:      sched,
		Webhook:        linebot.NewWebhookHandler(deps.EventParser(), jobQueue),
		Location:       deps.Location,
		StorageBackend: cfg.StorageBackend,
		QueueBackend:   cfg.QueueBackend,
		Semantic:       cfg.SemanticEnabled(),
		Line:           deps.Line != nil,
	}, log)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
		log.Warn().Msg("Scheduled summary still running at shutdown")
	}

	// Let in-flight jobs finish before cancelling the worker context.
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
