package driver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-radar/domain"
)

func wireMessage(t *testing.T, externalID string) []byte {
	t.Helper()

	now := time.Now().UTC()
	item := domain.CollectedItem{
		SourceType:   domain.SourceTypeRSS,
		SourceName:   "Example Feed",
		ExternalID:   externalID,
		URL:          "https://example.com/" + externalID,
		Title:        "Title " + externalID,
		Content:      "content",
		PublishedAt:  now.Add(-time.Hour),
		CollectedAt:  now,
		SearchPhrase: "electric vehicles",
	}

	payload, err := item.MarshalWire()
	require.NoError(t, err)
	return payload
}

func consumeAll(t *testing.T, q *RedisQueue, topic string, batchSize int) []*domain.QueueMessage {
	t.Helper()

	var msgs []*domain.QueueMessage
	err := q.Consume(context.Background(), topic, batchSize, func(msg *domain.QueueMessage) error {
		msgs = append(msgs, msg)
		return nil
	})
	require.NoError(t, err)
	return msgs
}

func TestListModeRoundTrip(t *testing.T) {
	q, _ := newTestQueue(t, false)
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, "raw_content", wireMessage(t, "a")))
	require.NoError(t, q.Publish(ctx, "raw_content", wireMessage(t, "b")))

	msgs := consumeAll(t, q, "raw_content", 10)
	require.Len(t, msgs, 2)

	// FIFO order and IDs preserved.
	assert.Equal(t, "a", msgs[0].ExternalID)
	assert.Equal(t, "b", msgs[1].ExternalID)
	assert.Equal(t, msgs[0].CollectedItem.ID(), msgs[0].ID)
}

func TestListModeBatchSizeBoundsDrain(t *testing.T) {
	q, _ := newTestQueue(t, false)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Publish(ctx, "raw_content", wireMessage(t, id)))
	}

	first := consumeAll(t, q, "raw_content", 2)
	assert.Len(t, first, 2)

	// The rest stays on the queue for the next batch.
	second := consumeAll(t, q, "raw_content", 10)
	require.Len(t, second, 1)
	assert.Equal(t, "c", second[0].ExternalID)
}

func TestListModeEmptyQueueReturnsNothing(t *testing.T) {
	q, _ := newTestQueue(t, false)

	start := time.Now()
	msgs := consumeAll(t, q, "raw_content", 10)

	assert.Empty(t, msgs)
	// The blocking read times out rather than spinning forever.
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestStreamModeRoundTrip(t *testing.T) {
	q, _ := newTestQueue(t, true)
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, "raw_content", wireMessage(t, "a")))
	require.NoError(t, q.Publish(ctx, "raw_content", wireMessage(t, "b")))

	msgs := consumeAll(t, q, "raw_content", 10)
	require.Len(t, msgs, 2)
	assert.Equal(t, "a", msgs[0].ExternalID)
	assert.Equal(t, "b", msgs[1].ExternalID)
}

func TestStreamModeBatchSizeBoundsDrain(t *testing.T) {
	q, _ := newTestQueue(t, true)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Publish(ctx, "raw_content", wireMessage(t, id)))
	}

	msgs := consumeAll(t, q, "raw_content", 2)
	assert.Len(t, msgs, 2)

	// The next batch continues after the last delivered entry.
	rest := consumeAll(t, q, "raw_content", 10)
	require.Len(t, rest, 1)
	assert.Equal(t, "c", rest[0].ExternalID)
}

func TestListModeDropsMalformedMessages(t *testing.T) {
	q, _ := newTestQueue(t, false)
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, "raw_content", []byte("not json")))
	require.NoError(t, q.Publish(ctx, "raw_content", wireMessage(t, "a")))

	// The malformed message is dropped; the valid one still arrives.
	msgs := consumeAll(t, q, "raw_content", 10)
	require.Len(t, msgs, 1)
	assert.Equal(t, "a", msgs[0].ExternalID)
}

func TestStreamModeDropsMalformedMessages(t *testing.T) {
	q, _ := newTestQueue(t, true)
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, "raw_content", []byte("not json")))
	require.NoError(t, q.Publish(ctx, "raw_content", wireMessage(t, "a")))

	msgs := consumeAll(t, q, "raw_content", 10)
	require.Len(t, msgs, 1)
	assert.Equal(t, "a", msgs[0].ExternalID)
}

func TestConsumeStopsOnYieldError(t *testing.T) {
	q, _ := newTestQueue(t, false)
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, "raw_content", wireMessage(t, "a")))
	require.NoError(t, q.Publish(ctx, "raw_content", wireMessage(t, "b")))

	wantErr := errors.New("downstream full")
	seen := 0
	err := q.Consume(ctx, "raw_content", 10, func(*domain.QueueMessage) error {
		seen++
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, seen)
}

func TestPublishAfterRedisGone(t *testing.T) {
	q, mr := newTestQueue(t, false)
	mr.Close()

	err := q.Publish(context.Background(), "raw_content", wireMessage(t, "a"))
	require.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	q, mr := newTestQueue(t, false)

	assert.True(t, q.HealthCheck(context.Background()))

	mr.Close()
	assert.False(t, q.HealthCheck(context.Background()))
}

func TestNewRedisQueueRejectsBadURL(t *testing.T) {
	_, err := NewRedisQueue("not-a-url", false, time.Second)
	require.Error(t, err)
}
