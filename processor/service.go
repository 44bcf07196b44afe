// Package processor orchestrates the consume, archive, analyze, store
// pipeline stage.
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"content-radar/domain"
	"content-radar/logger"
	"content-radar/metrics"
	"content-radar/port"
)

// ItemError records one item that failed during a batch.
type ItemError struct {
	ItemID string `json:"item_id"`
	Error  string `json:"error"`
}

// Stats summarizes one processing batch.
type Stats struct {
	Processed int         `json:"processed"`
	Skipped   int         `json:"skipped"`
	Errors    []ItemError `json:"errors"`
}

// Health reports component reachability for the processor. The LLM and
// object store states are informational only: their checks are slow and the
// LLM probe costs money per call, so they never gate readiness.
type Health struct {
	Queue    bool `json:"queue"`
	Database bool `json:"database"`
	LLM      bool `json:"llm"`
	Storage  bool `json:"storage"`
}

// Healthy is true when both the queue and the database are reachable.
func (h Health) Healthy() bool {
	return h.Queue && h.Database
}

// Service consumes collected items from the queue, archives the raw payload,
// runs LLM analysis and persists the result.
type Service struct {
	queue        port.QueueConsumer
	llm          port.AnalysisClient
	storage      port.ObjectStore
	store        port.ItemStore
	topic        string
	skipExisting bool
}

// New creates a processor service.
func New(queue port.QueueConsumer, llm port.AnalysisClient, storage port.ObjectStore, store port.ItemStore, topic string, skipExisting bool) *Service {
	return &Service{
		queue:        queue,
		llm:          llm,
		storage:      storage,
		store:        store,
		topic:        topic,
		skipExisting: skipExisting,
	}
}

// ProcessBatch drains up to batchSize messages from the queue. A failing
// item is recorded and the batch moves on; only a broken queue read fails
// the batch itself.
func (s *Service) ProcessBatch(ctx context.Context, batchSize int) (*Stats, error) {
	stats := &Stats{Errors: []ItemError{}}

	err := s.queue.Consume(ctx, s.topic, batchSize, func(msg *domain.QueueMessage) error {
		if err := s.handleMessage(ctx, msg, stats); err != nil {
			metrics.RecordProcessed("error")
			logger.Logger.Error("item processing failed",
				"item_id", msg.ID,
				"source_type", msg.SourceType,
				"error", err,
			)
			stats.Errors = append(stats.Errors, ItemError{
				ItemID: msg.ID,
				Error:  err.Error(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("consume batch: %w", err)
	}

	return stats, nil
}

func (s *Service) handleMessage(ctx context.Context, msg *domain.QueueMessage, stats *Stats) error {
	if s.skipExisting {
		exists, err := s.store.Exists(ctx, msg.ID)
		if err != nil {
			return fmt.Errorf("existence probe: %w", err)
		}
		if exists {
			logger.Logger.Info("skipping already processed item", "item_id", msg.ID)
			metrics.RecordProcessed("skipped")
			stats.Skipped++
			return nil
		}
	}

	processed, err := s.processItem(ctx, msg)
	if err != nil {
		return err
	}

	storeStart := time.Now()
	if err := s.store.Insert(ctx, processed); err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	metrics.ProcessingDuration.WithLabelValues("store").Observe(time.Since(storeStart).Seconds())

	metrics.RecordProcessed("processed")
	stats.Processed++
	logger.Logger.Info("processed item",
		"item_id", msg.ID,
		"source_type", msg.SourceType,
		"sentiment", processed.Analysis.Sentiment,
	)
	return nil
}

// processItem archives the raw payload and runs analysis. The raw item is
// written to the object store before any LLM call, so a failed analysis can
// be replayed later from the archive.
func (s *Service) processItem(ctx context.Context, msg *domain.QueueMessage) (*domain.ProcessedItem, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal raw item: %w", err)
	}

	archiveStart := time.Now()
	rawKey := domain.RawStorageKey(msg.SourceType, msg.ID)
	if _, err := s.storage.Put(ctx, rawKey, raw); err != nil {
		return nil, fmt.Errorf("archive raw item: %w", err)
	}
	metrics.ProcessingDuration.WithLabelValues("archive").Observe(time.Since(archiveStart).Seconds())

	analyzeStart := time.Now()
	analysis, err := s.llm.Analyze(ctx, msg.Title, msg.Content, msg.SearchPhrase)
	if err != nil {
		return nil, fmt.Errorf("analyze item: %w", err)
	}
	metrics.ProcessingDuration.WithLabelValues("analyze").Observe(time.Since(analyzeStart).Seconds())

	return &domain.ProcessedItem{
		ID:             msg.ID,
		SourceType:     msg.SourceType,
		SourceName:     msg.SourceName,
		URL:            msg.URL,
		Title:          msg.Title,
		Content:        msg.Content,
		Author:         msg.Author,
		PublishedAt:    msg.PublishedAt,
		CollectedAt:    msg.CollectedAt,
		ProcessedAt:    time.Now().UTC(),
		SearchPhrase:   msg.SearchPhrase,
		Analysis:       *analysis,
		RawStoragePath: rawKey,
	}, nil
}

// errorRetryDelay paces the loop after a failed batch. A broken queue read
// fails fast, so without it the loop would spin hot logging errors.
const errorRetryDelay = time.Second

// ProcessContinuous loops over ProcessBatch until the context is canceled,
// then logs a final tally. Idle pacing comes from the queue's own blocking
// read, so no extra sleep is needed between empty batches.
func (s *Service) ProcessContinuous(ctx context.Context, batchSize int) {
	logger.Logger.Info("starting continuous processing", "batch_size", batchSize)

	totalProcessed := 0
	totalErrors := 0

	for {
		select {
		case <-ctx.Done():
			logger.Logger.Info("stopping continuous processing",
				"total_processed", totalProcessed,
				"total_errors", totalErrors,
			)
			return
		default:
		}

		stats, err := s.ProcessBatch(ctx, batchSize)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			totalErrors++
			logger.Logger.Error("batch failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(errorRetryDelay):
			}
			continue
		}

		totalProcessed += stats.Processed
		totalErrors += len(stats.Errors)

		if stats.Processed == 0 && stats.Skipped == 0 {
			logger.Logger.Debug("queue drained, waiting")
		}
	}
}

// Health checks every dependency; only queue and database gate readiness.
func (s *Service) Health(ctx context.Context) Health {
	return Health{
		Queue:    s.queue.HealthCheck(ctx),
		Database: s.store.HealthCheck(ctx),
		LLM:      s.llm.HealthCheck(ctx),
		Storage:  s.storage.HealthCheck(ctx),
	}
}
