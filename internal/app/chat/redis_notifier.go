package chat

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"chatroom/internal/pkg/logx"
)

// redisPubSub is the subset of redis.UniversalClient the notifier needs.
type redisPubSub interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) redisSubscription
}

// redisSubscription is the part of *redis.PubSub Listen uses.
type redisSubscription interface {
	Receive(ctx context.Context) (interface{}, error)
	Channel(opts ...redis.ChannelOption) <-chan *redis.Message
	Close() error
}

type universalPubSub struct {
	redis.UniversalClient
}

func (c universalPubSub) Subscribe(ctx context.Context, channels ...string) redisSubscription {
	return c.UniversalClient.Subscribe(ctx, channels...)
}

// RedisNotifier fans change signals out through a Redis pub/sub channel so
// every server process sharing the database refreshes its feed.
type RedisNotifier struct {
	client  redisPubSub
	channel string
	logger  zerolog.Logger
}

// NewRedisNotifier publishes on "<namespace>:messages".
func NewRedisNotifier(client redis.UniversalClient, namespace string) *RedisNotifier {
	return newRedisNotifier(universalPubSub{client}, namespace)
}

func newRedisNotifier(client redisPubSub, namespace string) *RedisNotifier {
	return &RedisNotifier{
		client:  client,
		channel: ChannelName(namespace),
		logger:  logx.Component("redis_notifier"),
	}
}

// ChannelName returns the pub/sub channel used for namespace.
func ChannelName(namespace string) string {
	return namespace + ":messages"
}

func (n *RedisNotifier) Publish(ctx context.Context) error {
	if err := n.client.Publish(ctx, n.channel, "changed").Err(); err != nil {
		return fmt.Errorf("publish change notification: %w", err)
	}
	return nil
}

// Listen subscribes to the channel and waits for the subscription to be
// confirmed before returning, so no publish after Listen returns is missed.
func (n *RedisNotifier) Listen(ctx context.Context) (<-chan struct{}, error) {
	pubsub := n.client.Subscribe(ctx, n.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", n.channel, err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					n.logger.Warn().Str("channel", n.channel).Msg("Redis subscription channel closed.")
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()

	return out, nil
}
