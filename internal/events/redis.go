package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/faciam-dev/crmfields/internal/logger"
)

// DefaultChannel is used when no channel is configured.
const DefaultChannel = "crm:events"

// RedisConfig configures RedisSink.
type RedisConfig struct {
	Enabled bool     `yaml:"enabled"`
	DSN     string   `yaml:"dsn"`
	Channel string   `yaml:"channel"`
	Only    []string `yaml:"only"`
}

// RedisSink publishes events via Redis Pub/Sub.
type RedisSink struct {
	Client  *redis.Client
	Channel string
}

// NewRedisSink returns a RedisSink based on config.
func NewRedisSink(c RedisConfig) (*RedisSink, error) {
	if !c.Enabled || c.DSN == "" {
		return nil, nil
	}
	opt, err := redis.ParseURL(c.DSN)
	if err != nil {
		return nil, err
	}
	ch := c.Channel
	if ch == "" {
		ch = DefaultChannel
	}
	return &RedisSink{Client: redis.NewClient(opt), Channel: ch}, nil
}

func (s *RedisSink) Emit(ctx context.Context, e Event) error {
	if s == nil || s.Client == nil {
		return nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.Client.Publish(ctx, s.Channel, data).Err()
}

// Subscribe calls fn for every event published on channel until ctx is
// done. Messages that are not events are ignored.
func Subscribe(ctx context.Context, cli *redis.Client, channel string, fn func(Event)) {
	sub := cli.Subscribe(ctx, channel)
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				logger.L.Warn("ignore malformed event", "channel", channel, "err", err)
				continue
			}
			fn(e)
		}
	}
}
