package driver

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// newTestQueue starts a miniredis instance and returns a queue bound to it.
func newTestQueue(t *testing.T, useStreams bool) (*RedisQueue, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	// Short block timeout keeps drained-queue tests fast.
	return NewRedisQueueWithClient(client, useStreams, 100*time.Millisecond), mr
}
