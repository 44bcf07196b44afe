// Package main is the entry point for the read-only query API.
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
	"content-radar/logger"
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

	store, err := connectDatabase(ctx, cfg.Database.URL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	queries := driver.NewPostgresQuery(store.Pool())

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadHeaderTimeout = cfg.HTTP.ReadHeaderTimeout
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(rest.RequestLogger())
	rest.NewQueryHandler(queries, cfg.HTTP.DefaultPageSize, cfg.HTTP.MaxPageSize).Register(e)

	go func() {
		log.Info("starting query API server", "addr", cfg.HTTP.QueryAPIAddr)
		if err := e.Start(cfg.HTTP.QueryAPIAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	log.Info("query API stopped")
}

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
