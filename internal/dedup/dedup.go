// Package dedup provides the messageId idempotency cache RiskManager and
// Execution consult before acting on a redelivered bus message: JetStream
// guarantees at-least-once delivery, so both agents must recognize a
// messageId they've already processed and skip the side effect the second
// time. Backed by Redis (SET NX with a TTL).
package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ajitpratap0/tradingpipeline/internal/metrics"
)

// Cache marks messageIds as seen with a bounded TTL, so memory never grows
// unboundedly and a sufficiently old redelivery (past TTL) is reprocessed
// rather than tracked forever.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New constructs a Cache under the given key prefix (namespacing multiple
// consumers sharing one Redis instance, e.g. "risk:" vs "execution:").
func New(client *redis.Client, prefix string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{client: client, prefix: prefix, ttl: ttl}
}

// SeenOrMark atomically checks whether messageId has been processed before
// and, if not, marks it as seen. Returns true if this is the first time
// messageId has been observed (the caller should proceed); false means the
// caller already handled it and must skip the side effect.
func (c *Cache) SeenOrMark(ctx context.Context, messageID string) (firstTime bool, err error) {
	metrics.RecordRedisOperation("setnx")
	ok, err := c.client.SetNX(ctx, c.prefix+messageID, 1, c.ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Seen reports whether messageId is already tracked, without marking it.
func (c *Cache) Seen(ctx context.Context, messageID string) (bool, error) {
	metrics.RecordRedisOperation("exists")
	n, err := c.client.Exists(ctx, c.prefix+messageID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
