package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/weftlabs/weft/pkg/api"
)

// RedisPublisher delivers status events over Redis pub/sub. The Redis
// channel name is <prefix><channel>:<topic>, e.g. "weft:http-request:status",
// and the message is the JSON-encoded StatusEvent. A UI bridge subscribes
// with PSUBSCRIBE and forwards to websockets.
type RedisPublisher struct {
	client *redis.Client
	prefix string
}

var _ api.Publisher = (*RedisPublisher)(nil)

// NewRedisPublisher creates a RedisPublisher. prefix is optional but
// recommended (e.g. "weft:").
func NewRedisPublisher(client *redis.Client, prefix string) *RedisPublisher {
	if prefix == "" {
		prefix = "weft:"
	}
	return &RedisPublisher{client: client, prefix: prefix}
}

// ChannelName returns the Redis channel events for channel+topic go to.
func (p *RedisPublisher) ChannelName(channel, topic string) string {
	return p.prefix + channel + ":" + topic
}

func (p *RedisPublisher) Publish(ctx context.Context, channel, topic string, event api.StatusEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.ChannelName(channel, topic), payload).Err()
}
