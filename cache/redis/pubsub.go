package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
)

// RedisPubSub publishes and subscribes over a shared Redis client.
type RedisPubSub struct {
	client *goredis.Client
}

// NewPubSub wraps an already dialled client.
func NewPubSub(client *goredis.Client) *RedisPubSub {
	return &RedisPubSub{client: client}
}

func (r *RedisPubSub) Publish(ctx context.Context, channel, message string) error {
	return r.client.Publish(ctx, channel, message).Err()
}

// Subscribe waits for Redis to confirm the subscription. The returned
// channel is closed once cancel runs.
func (r *RedisPubSub) Subscribe(ctx context.Context, channels ...string) (<-chan *goredis.Message, func(), error) {
	ps := r.client.Subscribe(ctx, channels...)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, err
	}
	return ps.Channel(), func() { _ = ps.Close() }, nil
}

func (r *RedisPubSub) Close() error {
	return r.client.Close()
}
