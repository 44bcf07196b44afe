package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "redis://localhost:6379", cfg.Queue.RedisURL)
	assert.Equal(t, "raw_content", cfg.Queue.Topic)
	assert.False(t, cfg.Queue.UseStreams)
	assert.Equal(t, 5*time.Second, cfg.Queue.BlockTimeout)

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 10, cfg.Processor.BatchSize)
	assert.True(t, cfg.Processor.SkipExisting)
	assert.Equal(t, []string{"news", "worldnews", "technology"}, cfg.Reddit.Subreddits)
	assert.NotEmpty(t, cfg.RSS.Feeds)
	assert.Equal(t, 20, cfg.HTTP.DefaultPageSize)
	assert.Equal(t, 100, cfg.HTTP.MaxPageSize)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("QUEUE_TOPIC", "items")
	t.Setenv("USE_REDIS_STREAMS", "true")
	t.Setenv("QUEUE_BLOCK_TIMEOUT", "250ms")
	t.Setenv("PROCESSOR_BATCH_SIZE", "25")
	t.Setenv("REDDIT_SUBREDDITS", "golang, programming")
	t.Setenv("RSS_FEEDS", "Feed One=https://a.example/rss,Feed Two=https://b.example/rss")
	t.Setenv("LLM_PROVIDER", "openai")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "items", cfg.Queue.Topic)
	assert.True(t, cfg.Queue.UseStreams)
	assert.Equal(t, 250*time.Millisecond, cfg.Queue.BlockTimeout)
	assert.Equal(t, 25, cfg.Processor.BatchSize)
	assert.Equal(t, []string{"golang", "programming"}, cfg.Reddit.Subreddits)
	assert.Equal(t, map[string]string{
		"Feed One": "https://a.example/rss",
		"Feed Two": "https://b.example/rss",
	}, cfg.RSS.Feeds)
	assert.Equal(t, "openai", cfg.LLM.Provider)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Run("unknown llm provider", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "bard")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("unknown storage provider", func(t *testing.T) {
		t.Setenv("STORAGE_PROVIDER", "floppy")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("zero batch size", func(t *testing.T) {
		t.Setenv("PROCESSOR_BATCH_SIZE", "0")
		_, err := Load()
		require.Error(t, err)
	})
}

func TestMalformedNumbersFallBackToDefaults(t *testing.T) {
	t.Setenv("PROCESSOR_BATCH_SIZE", "many")
	t.Setenv("QUEUE_BLOCK_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Processor.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Queue.BlockTimeout)
}
