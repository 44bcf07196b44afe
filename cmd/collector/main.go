// Package main is the entry point for the collector service.
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

	"content-radar/collector"
	"content-radar/config"
	"content-radar/driver"
	"content-radar/logger"
	"content-radar/port"
	"content-radar/rest"
	"content-radar/source"
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

	if err := waitForQueue(ctx, queue); err != nil {
		log.Error("queue did not become reachable", "error", err)
		os.Exit(1)
	}

	sources := buildSources(cfg)
	if len(sources) == 0 {
		log.Error("no sources configured; enable at least one source")
		os.Exit(1)
	}
	for _, s := range sources {
		log.Info("source enabled", "source", s.Name())
	}

	svc := collector.New(sources, queue, cfg.Queue.Topic)

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadHeaderTimeout = cfg.HTTP.ReadHeaderTimeout
	e.Use(middleware.Recover())
	e.Use(rest.RequestLogger())
	rest.NewCollectorHandler(svc).Register(e)

	go func() {
		log.Info("starting collector server", "addr", cfg.HTTP.CollectorAddr)
		if err := e.Start(cfg.HTTP.CollectorAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	log.Info("collector stopped")
}

// buildSources instantiates every enabled and configured source adapter.
func buildSources(cfg *config.Config) []port.SourceAdapter {
	var sources []port.SourceAdapter

	if cfg.NewsAPI.Enabled && cfg.NewsAPI.APIKey != "" {
		sources = append(sources, source.NewNewsAPI(cfg.NewsAPI.APIKey, cfg.NewsAPI.PageSize))
	}
	if cfg.Reddit.Enabled && cfg.Reddit.ClientID != "" {
		sources = append(sources, source.NewReddit(
			cfg.Reddit.ClientID,
			cfg.Reddit.ClientSecret,
			cfg.Reddit.UserAgent,
			cfg.Reddit.Subreddits,
		))
	}
	if cfg.RSS.Enabled && len(cfg.RSS.Feeds) > 0 {
		sources = append(sources, source.NewRSS(cfg.RSS.Feeds))
	}
	if cfg.Twitter.Enabled && cfg.Twitter.BearerToken != "" {
		sources = append(sources, source.NewTwitter(cfg.Twitter.BearerToken, cfg.Twitter.MaxResults))
	}

	return sources
}

// waitForQueue retries the queue health check with exponential backoff so the
// service survives Redis starting after it does.
func waitForQueue(ctx context.Context, queue *driver.RedisQueue) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 30 * time.Second

	return backoff.Retry(func() error {
		if !queue.HealthCheck(ctx) {
			return errors.New("redis not reachable")
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, 10), ctx))
}
