package broker

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Baaaki/roomchat/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const Channel = "roomchat:events"

// RedisRoomBroker implements RoomBroker using Redis pub/sub
type RedisRoomBroker struct {
	client *redis.Client

	mu      sync.Mutex
	pubsubs []*redis.PubSub
}

func NewRedisRoomBroker(ctx context.Context, redisURL string) (*RedisRoomBroker, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisRoomBroker{client: client}, nil
}

// Client exposes the connection for other Redis users such as the rate limiter.
func (r *RedisRoomBroker) Client() *redis.Client {
	return r.client
}

func (r *RedisRoomBroker) Publish(ctx context.Context, ev RoomEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	return r.client.Publish(ctx, Channel, data).Err()
}

func (r *RedisRoomBroker) Subscribe(ctx context.Context) (<-chan RoomEvent, error) {
	pubsub := r.client.Subscribe(ctx, Channel)

	// Wait for the subscription to be confirmed so no publish after this
	// call returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	r.mu.Lock()
	r.pubsubs = append(r.pubsubs, pubsub)
	r.mu.Unlock()

	out := make(chan RoomEvent, 100)

	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case redisMsg, ok := <-msgs:
				if !ok {
					return
				}

				var ev RoomEvent
				if err := json.Unmarshal([]byte(redisMsg.Payload), &ev); err != nil {
					logger.Log.Warn("Dropping malformed room event",
						zap.String("channel", redisMsg.Channel),
						zap.Error(err),
					)
					continue
				}

				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (r *RedisRoomBroker) Close() error {
	r.mu.Lock()
	for _, ps := range r.pubsubs {
		ps.Close()
	}
	r.pubsubs = nil
	r.mu.Unlock()

	return r.client.Close()
}
