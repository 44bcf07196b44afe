// Package driver provides implementations for external dependencies.
package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"content-radar/domain"
	"content-radar/logger"
	"content-radar/metrics"
	"content-radar/port"
)

// RedisQueue implements port.QueuePublisher and port.QueueConsumer over a
// single Redis connection. Mode is fixed at construction time: list mode uses
// RPUSH/BLPOP, stream mode uses XADD/XREAD. Stream mode reserves room for
// consumer groups; v1 reads as a single logical consumer.
type RedisQueue struct {
	client       *redis.Client
	useStreams   bool
	blockTimeout time.Duration

	// lastID is the last-seen stream entry ID, so consecutive batches do
	// not re-deliver entries. Stream entries are retained in Redis; a fresh
	// instance re-reads from the start.
	lastID string
}

// NewRedisQueue creates a queue client from a Redis URL.
func NewRedisQueue(url string, useStreams bool, blockTimeout time.Duration) (*RedisQueue, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	return &RedisQueue{
		client:       client,
		useStreams:   useStreams,
		blockTimeout: blockTimeout,
		lastID:       "0",
	}, nil
}

// NewRedisQueueWithClient wraps an existing client. Used by tests.
func NewRedisQueueWithClient(client *redis.Client, useStreams bool, blockTimeout time.Duration) *RedisQueue {
	return &RedisQueue{
		client:       client,
		useStreams:   useStreams,
		blockTimeout: blockTimeout,
		lastID:       "0",
	}
}

// Close closes the Redis connection.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// Publish appends a message to the topic.
func (q *RedisQueue) Publish(ctx context.Context, topic string, message []byte) error {
	var err error
	if q.useStreams {
		err = q.client.XAdd(ctx, &redis.XAddArgs{
			Stream: topic,
			Values: map[string]interface{}{"data": string(message)},
		}).Err()
	} else {
		err = q.client.RPush(ctx, topic, message).Err()
	}

	if err != nil {
		metrics.RecordPublish(topic, "error")
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	metrics.RecordPublish(topic, "ok")
	return nil
}

// Consume drains up to batchSize messages from the topic, invoking yield for
// each parsed message. It returns nil when the blocking read times out with
// nothing left, which signals the queue is currently drained.
func (q *RedisQueue) Consume(ctx context.Context, topic string, batchSize int, yield port.MessageYield) error {
	if q.useStreams {
		return q.consumeStream(ctx, topic, batchSize, yield)
	}
	return q.consumeList(ctx, topic, batchSize, yield)
}

// consumeList pops messages one at a time with BLPOP.
func (q *RedisQueue) consumeList(ctx context.Context, topic string, batchSize int, yield port.MessageYield) error {
	for i := 0; i < batchSize; i++ {
		result, err := q.client.BLPop(ctx, q.blockTimeout, topic).Result()
		if errors.Is(err, redis.Nil) {
			// Nothing within the block timeout: the sequence ends here.
			return nil
		}
		if err != nil {
			return fmt.Errorf("blpop %s: %w", topic, err)
		}

		// BLPOP returns [key, value].
		if len(result) < 2 {
			continue
		}

		// The pop already removed the message; a malformed payload is
		// dropped rather than failing the rest of the batch.
		msg, err := domain.UnmarshalWire([]byte(result[1]))
		if err != nil {
			logger.Logger.Warn("dropping malformed queue message",
				"topic", topic, "error", err)
			continue
		}
		if err := yield(msg); err != nil {
			return err
		}
	}
	return nil
}

// consumeStream reads with XREAD from the last-seen entry ID.
func (q *RedisQueue) consumeStream(ctx context.Context, topic string, batchSize int, yield port.MessageYield) error {
	remaining := batchSize

	for remaining > 0 {
		streams, err := q.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{topic, q.lastID},
			Count:   int64(remaining),
			Block:   q.blockTimeout,
		}).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("xread %s: %w", topic, err)
		}

		delivered := 0
		for _, stream := range streams {
			for _, message := range stream.Messages {
				q.lastID = message.ID

				data, ok := message.Values["data"].(string)
				if !ok {
					continue
				}

				// The entry still counts as consumed: lastID has moved
				// past it and its batch slot is spent.
				msg, err := domain.UnmarshalWire([]byte(data))
				if err != nil {
					logger.Logger.Warn("dropping malformed queue message",
						"topic", topic, "error", err)
					delivered++
					continue
				}
				if err := yield(msg); err != nil {
					return err
				}
				delivered++
			}
		}

		if delivered == 0 {
			return nil
		}
		remaining -= delivered
	}
	return nil
}

// HealthCheck pings Redis.
func (q *RedisQueue) HealthCheck(ctx context.Context) bool {
	if err := q.client.Ping(ctx).Err(); err != nil {
		metrics.SetRedisDisconnected()
		return false
	}
	metrics.SetRedisConnected()
	return true
}
