package gateway

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"zenfocus/backend/internal/logger"
)

// RedisFeed fans change signals out over Redis pub/sub so several API
// instances observe each other's writes.
type RedisFeed struct {
	client *redis.Client
	prefix string
}

var _ Notifier = (*RedisFeed)(nil)

func NewRedisFeed(client *redis.Client, prefix string) *RedisFeed {
	return &RedisFeed{client: client, prefix: prefix}
}

func (f *RedisFeed) channel(topic string) string {
	return f.prefix + topic
}

func (f *RedisFeed) Publish(ctx context.Context, topic string) error {
	if err := f.client.Publish(ctx, f.channel(topic), "changed").Err(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (f *RedisFeed) Watch(ctx context.Context, topic string) (<-chan struct{}, error) {
	pubsub := f.client.Subscribe(ctx, f.channel(topic))

	// Wait for the subscription confirmation so no publish is missed
	// between Watch returning and the caller's initial query.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	out := make(chan struct{}, 1)
	messages := pubsub.Channel()

	go func() {
		defer close(out)
		defer pubsub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					logger.Warn("change feed subscription closed", "topic", topic)
					return
				}
				signal(out)
			}
		}
	}()

	return out, nil
}

// Close is a no-op; the client is shared with the cache and closed there.
func (f *RedisFeed) Close() error {
	return nil
}
