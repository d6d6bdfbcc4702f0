package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSink publishes to a pub/sub channel. Subscribers that are not
// connected at publish time miss the message.
type RedisSink struct {
	client  *redis.Client
	channel string
}

func NewRedisSink(client *redis.Client, channel string) *RedisSink {
	return &RedisSink{client: client, channel: channel}
}

func (s *RedisSink) Send(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", s.channel, err)
	}
	return nil
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
