package publish

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSink writes snapshots to Redis: PUBLISH for the pub/sub channel and
// SET for the latest-value keys.
type RedisSink struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSink wraps a connected Redis client. ttl applies to latest-value
// keys; zero means keys persist until overwritten.
func NewRedisSink(client *redis.Client, ttl time.Duration) *RedisSink {
	return &RedisSink{client: client, ttl: ttl}
}

// Publish sends the payload to a pub/sub channel.
func (s *RedisSink) Publish(ctx context.Context, channel string, payload []byte) error {
	return s.client.Publish(ctx, channel, payload).Err()
}

// SetLatest stores the payload under a latest-value key.
func (s *RedisSink) SetLatest(ctx context.Context, key string, payload []byte) error {
	return s.client.Set(ctx, key, payload, s.ttl).Err()
}
