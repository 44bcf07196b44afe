// Package main is the entry point for the processor service. Run with the
// "worker" argument to process continuously without the HTTP surface.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"content-radar/config"
	"content-radar/driver"
	"content-radar/llm"
	"content-radar/logger"
	"content-radar/port"
	"content-radar/processor"
	"content-radar/rest"
)

func main() {
	log := logger.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue, err := driver.NewRedisQueue(cfg.Queue.RedisURL, cfg.Queue.UseStreams, cfg.Queue.BlockTimeout)
	if err != nil {
		log.Error("failed to create queue client", "error", err)
		os.Exit(1)
	}
	defer queue.Close()

	analysisClient, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		log.Error("failed to create LLM client", "error", err)
		os.Exit(1)
	}
	log.Info("LLM provider configured", "provider", cfg.LLM.Provider)

	storage, err := buildStorage(ctx, cfg.Storage)
	if err != nil {
		log.Error("failed to create object storage", "error", err)
		os.Exit(1)
	}

	store, err := connectDatabase(ctx, cfg.Database.URL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	svc := processor.New(queue, analysisClient, storage, store,
		cfg.Queue.Topic, cfg.Processor.SkipExisting)

	if len(os.Args) > 1 && os.Args[1] == "worker" {
		svc.ProcessContinuous(ctx, cfg.Processor.BatchSize)
		return
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadHeaderTimeout = cfg.HTTP.ReadHeaderTimeout
	e.Use(middleware.Recover())
	e.Use(rest.RequestLogger())
	rest.NewProcessorHandler(ctx, svc, cfg.Processor.BatchSize).Register(e)

	go func() {
		log.Info("starting processor server", "addr", cfg.HTTP.ProcessorAddr)
		if err := e.Start(cfg.HTTP.ProcessorAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
	log.Info("processor stopped")
}

// buildStorage picks the object store backend. "auto" means GCS unless an S3
// endpoint override is present.
func buildStorage(ctx context.Context, cfg config.StorageConfig) (port.ObjectStore, error) {
	if cfg.Provider == "gcs" || (cfg.Provider == "auto" && cfg.EndpointURL == "") {
		return driver.NewGCSStorage(ctx, cfg.Bucket)
	}
	return driver.NewS3Storage(ctx, cfg)
}

// connectDatabase retries the initial connection with exponential backoff so
// the service survives Postgres starting after it does.
func connectDatabase(ctx context.Context, databaseURL string) (*driver.PostgresStore, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 30 * time.Second

	var store *driver.PostgresStore
	err := backoff.Retry(func() error {
		var err error
		store, err = driver.NewPostgresStore(ctx, databaseURL)
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(bo, 10), ctx))

	return store, err
}
