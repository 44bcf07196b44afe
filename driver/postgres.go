package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"content-radar/domain"
)

// PostgresStore implements port.ItemStore on a pgx connection pool. The
// processor is the only writer; the query API reads through PostgresQuery.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// schemaDDL is idempotent and runs on every startup.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS processed_items (
	id VARCHAR(64) PRIMARY KEY,
	source_type VARCHAR(32) NOT NULL,
	source_name VARCHAR(128) NOT NULL,
	url TEXT NOT NULL,
	title TEXT NOT NULL,
	content TEXT,
	author VARCHAR(256),
	published_at TIMESTAMP WITH TIME ZONE NOT NULL,
	collected_at TIMESTAMP WITH TIME ZONE NOT NULL,
	processed_at TIMESTAMP WITH TIME ZONE NOT NULL,
	search_phrase VARCHAR(256) NOT NULL,
	raw_storage_path TEXT NOT NULL,
	sentiment VARCHAR(32) NOT NULL,
	sentiment_score FLOAT NOT NULL,
	summary TEXT,
	analysis JSONB NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_processed_items_search_phrase
	ON processed_items(search_phrase);
CREATE INDEX IF NOT EXISTS idx_processed_items_published_at
	ON processed_items(published_at);
CREATE INDEX IF NOT EXISTS idx_processed_items_sentiment
	ON processed_items(sentiment);
CREATE INDEX IF NOT EXISTS idx_processed_items_source_type
	ON processed_items(source_type);

CREATE TABLE IF NOT EXISTS themes (
	id SERIAL PRIMARY KEY,
	item_id VARCHAR(64) REFERENCES processed_items(id),
	name VARCHAR(128) NOT NULL,
	confidence FLOAT NOT NULL,
	keywords TEXT[] NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_themes_item_id ON themes(item_id);
CREATE INDEX IF NOT EXISTS idx_themes_name ON themes(name);

CREATE TABLE IF NOT EXISTS entities (
	id SERIAL PRIMARY KEY,
	item_id VARCHAR(64) REFERENCES processed_items(id),
	name VARCHAR(256) NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_entities_item_id ON entities(item_id);
CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(name);
`

// NewPostgresStore connects to the database and ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return store, nil
}

// NewPostgresStoreWithPool wraps an existing pool. Used by tests.
func NewPostgresStoreWithPool(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool exposes the underlying pool so the query API can share the connection.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Insert upserts the processed item and fully replaces its themes and
// entities. Everything runs in one transaction so partial reprocessing is
// never observable. On conflict only the analysis columns and processed_at
// change; collection-time fields keep their original values.
func (s *PostgresStore) Insert(ctx context.Context, item *domain.ProcessedItem) error {
	analysisJSON, err := json.Marshal(item.Analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO processed_items (
			id, source_type, source_name, url, title, content,
			author, published_at, collected_at, processed_at,
			search_phrase, raw_storage_path, sentiment,
			sentiment_score, summary, analysis
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
		ON CONFLICT (id) DO UPDATE SET
			processed_at = EXCLUDED.processed_at,
			sentiment = EXCLUDED.sentiment,
			sentiment_score = EXCLUDED.sentiment_score,
			summary = EXCLUDED.summary,
			analysis = EXCLUDED.analysis
	`,
		item.ID,
		item.SourceType.String(),
		item.SourceName,
		item.URL,
		item.Title,
		item.Content,
		nullableString(item.Author),
		item.PublishedAt,
		item.CollectedAt,
		item.ProcessedAt,
		item.SearchPhrase,
		item.RawStoragePath,
		item.Analysis.Sentiment.String(),
		item.Analysis.SentimentScore,
		item.Analysis.Summary,
		analysisJSON,
	)
	if err != nil {
		return fmt.Errorf("upsert processed item %s: %w", item.ID, err)
	}

	// Replace children so reprocessing never leaves stale rows behind.
	if _, err := tx.Exec(ctx, `DELETE FROM themes WHERE item_id = $1`, item.ID); err != nil {
		return fmt.Errorf("delete themes for %s: %w", item.ID, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM entities WHERE item_id = $1`, item.ID); err != nil {
		return fmt.Errorf("delete entities for %s: %w", item.ID, err)
	}

	for _, theme := range item.Analysis.Themes {
		_, err := tx.Exec(ctx, `
			INSERT INTO themes (item_id, name, confidence, keywords)
			VALUES ($1, $2, $3, $4)
		`, item.ID, theme.Name, theme.Confidence, theme.Keywords)
		if err != nil {
			return fmt.Errorf("insert theme for %s: %w", item.ID, err)
		}
	}

	for _, entity := range item.Analysis.Entities {
		_, err := tx.Exec(ctx, `
			INSERT INTO entities (item_id, name)
			VALUES ($1, $2)
		`, item.ID, entity)
		if err != nil {
			return fmt.Errorf("insert entity for %s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Exists probes whether an item has already been processed.
func (s *PostgresStore) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx, `SELECT 1 FROM processed_items WHERE id = $1`, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists probe for %s: %w", id, err)
	}
	return true, nil
}

// HealthCheck runs a trivial round-trip.
func (s *PostgresStore) HealthCheck(ctx context.Context) bool {
	var one int
	return s.pool.QueryRow(ctx, `SELECT 1`).Scan(&one) == nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
