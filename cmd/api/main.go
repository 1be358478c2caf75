package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/api"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/api/handlers"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/bootstrap"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/config"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/jobs/inmemory"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/logger"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	port := flag.String("port", cfg.Port, "HTTP server port (or set PORT)")
	flag.Parse()

	log := logger.NewWithLevel(cfg.Log.Level, cfg.Log.JSON())
	ctx := logger.WithContext(context.Background(), log)

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize category runtime")
	}
	defer app.Close()

	// One worker: sync jobs never overlap.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(16, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if err := jobQueue.Start(workerCtx, handlers.SyncJobHandler(app.Syncer)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job worker")
	}

	handler := api.NewRouter(api.Deps{
		Syncer:    app.Syncer,
		Query:     app.Query,
		Publisher: jobQueue,
		Jobs:      jobStore,
		Metrics:   metrics.Handler(app.Registry),
		APIToken:  cfg.APIToken,
		Log:       log,
	})

	// Synchronous syncs run inside the request, so the write timeout must
	// outlast the sync timeout.
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Sync.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Let an in-flight sync finish before the store closes.
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
