// Package collector orchestrates collection runs across the configured
// source adapters.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"content-radar/domain"
	"content-radar/logger"
	"content-radar/metrics"
	"content-radar/port"
)

// SourceError records one source that failed during a run.
type SourceError struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// Stats summarizes one collection run.
type Stats struct {
	Total    int            `json:"total"`
	BySource map[string]int `json:"by_source"`
	Errors   []SourceError  `json:"errors"`
}

// Health reports component reachability for the collector.
type Health struct {
	Queue   bool            `json:"queue"`
	Sources map[string]bool `json:"sources"`
}

// Healthy is true when the queue and every source are reachable.
func (h Health) Healthy() bool {
	if !h.Queue {
		return false
	}
	for _, ok := range h.Sources {
		if !ok {
			return false
		}
	}
	return true
}

// publishFailure marks an error as coming from the queue rather than a
// source. Source errors are isolated per source; a queue that stopped
// accepting items fails the whole run.
type publishFailure struct {
	err error
}

func (e *publishFailure) Error() string { return e.err.Error() }
func (e *publishFailure) Unwrap() error { return e.err }

// Service fans a search request out to the source adapters and publishes
// every collected item onto the queue.
type Service struct {
	order   []port.SourceAdapter
	byType  map[domain.SourceType]port.SourceAdapter
	queue   port.QueuePublisher
	topic   string
	running sync.Mutex
}

// New creates a collector service over the given adapters.
func New(sources []port.SourceAdapter, queue port.QueuePublisher, topic string) *Service {
	byType := make(map[domain.SourceType]port.SourceAdapter, len(sources))
	for _, s := range sources {
		byType[s.SourceType()] = s
	}
	return &Service{
		order:  sources,
		byType: byType,
		queue:  queue,
		topic:  topic,
	}
}

// activeSources resolves the request's source filter against the configured
// adapters, preserving configuration order. Unknown names are ignored.
func (s *Service) activeSources(req domain.SearchRequest) []port.SourceAdapter {
	if len(req.Sources) == 0 {
		return s.order
	}

	wanted := make(map[domain.SourceType]bool, len(req.Sources))
	for _, name := range req.Sources {
		wanted[domain.SourceType(name)] = true
	}

	var active []port.SourceAdapter
	for _, adapter := range s.order {
		if wanted[adapter.SourceType()] {
			active = append(active, adapter)
		}
	}
	return active
}

// Collect runs one collection pass. Sources run sequentially; a failing
// source is recorded and the others still run. A publish failure aborts the
// whole run since the queue is shared downstream.
func (s *Service) Collect(ctx context.Context, req domain.SearchRequest) (*Stats, error) {
	// One run at a time; concurrent triggers queue up behind the mutex.
	s.running.Lock()
	defer s.running.Unlock()

	stats := &Stats{
		BySource: make(map[string]int),
		Errors:   []SourceError{},
	}

	for _, adapter := range s.activeSources(req) {
		count, err := s.collectSource(ctx, adapter, req, stats)
		stats.BySource[adapter.Name()] = count
		stats.Total += count

		if err != nil {
			var pf *publishFailure
			if errors.As(err, &pf) {
				return nil, fmt.Errorf("publish failed during %s: %w", adapter.Name(), pf.err)
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			metrics.CollectionErrorsTotal.WithLabelValues(adapter.SourceType().String()).Inc()
			logger.Logger.Error("source collection failed",
				"source", adapter.Name(),
				"job_id", req.JobID,
				"error", err,
			)
			stats.Errors = append(stats.Errors, SourceError{
				Source: adapter.Name(),
				Error:  err.Error(),
			})
		}
	}

	logger.Logger.Info("collection run finished",
		"job_id", req.JobID,
		"phrase", req.Phrase,
		"total", stats.Total,
		"errors", len(stats.Errors),
	)
	return stats, nil
}

func (s *Service) collectSource(ctx context.Context, adapter port.SourceAdapter, req domain.SearchRequest, stats *Stats) (int, error) {
	count := 0

	err := adapter.Search(ctx, req, func(item domain.CollectedItem) error {
		if err := item.Validate(); err != nil {
			// A malformed item is dropped; the rest of the source continues.
			logger.Logger.Warn("dropping invalid item",
				"source", adapter.Name(),
				"external_id", item.ExternalID,
				"error", err,
			)
			stats.Errors = append(stats.Errors, SourceError{
				Source: adapter.Name(),
				Error:  fmt.Sprintf("invalid item %s: %v", item.ExternalID, err),
			})
			return nil
		}

		payload, err := item.MarshalWire()
		if err != nil {
			return &publishFailure{err: err}
		}
		if err := s.queue.Publish(ctx, s.topic, payload); err != nil {
			return &publishFailure{err: err}
		}

		metrics.ItemsCollectedTotal.WithLabelValues(adapter.SourceType().String()).Inc()
		count++
		return nil
	})

	return count, err
}

// Health checks the queue and every configured source.
func (s *Service) Health(ctx context.Context) Health {
	health := Health{
		Queue:   s.queue.HealthCheck(ctx),
		Sources: make(map[string]bool, len(s.order)),
	}
	for _, adapter := range s.order {
		health.Sources[adapter.Name()] = adapter.HealthCheck(ctx)
	}
	return health
}
