// Package port defines interfaces for external dependencies.
package port

import (
	"context"

	"content-radar/domain"
)

// ItemYield receives one collected item at a time. Returning an error stops
// the adapter's search; the error propagates to the caller.
type ItemYield func(item domain.CollectedItem) error

// SourceAdapter is the per-provider contract: search plus health check.
// Implementations handle pagination internally and push items one at a time
// so result sets are never materialized in memory.
type SourceAdapter interface {
	// SourceType returns the constant tag for this adapter.
	SourceType() domain.SourceType

	// Name returns the human-readable adapter name.
	Name() string

	// Search streams items matching the request to yield, one at a time.
	// Every emitted item satisfies start_date <= published_at <= end_date;
	// out-of-window items are dropped inside the adapter.
	Search(ctx context.Context, req domain.SearchRequest, yield ItemYield) error

	// HealthCheck verifies the source is reachable and credentials are valid.
	HealthCheck(ctx context.Context) bool
}

// QueuePublisher publishes wire messages to a named topic.
type QueuePublisher interface {
	Publish(ctx context.Context, topic string, message []byte) error
	HealthCheck(ctx context.Context) bool
}

// MessageYield receives one parsed queue message at a time.
type MessageYield func(msg *domain.QueueMessage) error

// QueueConsumer drains messages from a named topic. Consume returns normally
// when the queue's blocking read times out with nothing to deliver, which
// signals "currently drained".
type QueueConsumer interface {
	Consume(ctx context.Context, topic string, batchSize int, yield MessageYield) error
	HealthCheck(ctx context.Context) bool
}

// ObjectStore is blob-level storage for raw content archival.
type ObjectStore interface {
	// Put stores data at key and returns the canonical URI of the object.
	// Overwriting an existing key is permitted and expected.
	Put(ctx context.Context, key string, data []byte) (string, error)

	// Get retrieves the data stored at key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Exists reports whether an object exists at key.
	Exists(ctx context.Context, key string) (bool, error)

	HealthCheck(ctx context.Context) bool
}

// AnalysisClient is the LLM contract shared by all providers.
type AnalysisClient interface {
	// Analyze runs the fixed analysis prompt over one item's text and
	// returns a validated Analysis.
	Analyze(ctx context.Context, title, content, searchPhrase string) (*domain.Analysis, error)

	HealthCheck(ctx context.Context) bool
}

// ItemStore is the relational persistence owned by the processor.
type ItemStore interface {
	// Insert upserts the processed item and replaces its themes and entities
	// in a single transaction.
	Insert(ctx context.Context, item *domain.ProcessedItem) error

	// Exists probes for the dedup check.
	Exists(ctx context.Context, id string) (bool, error)

	HealthCheck(ctx context.Context) bool
}
