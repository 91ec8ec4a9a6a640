package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/hospiq/scheduling/internal/domain/entities"
	"github.com/hospiq/scheduling/internal/domain/providers"
	redisclient "github.com/hospiq/scheduling/internal/infrastructure/clients/redis"
)

// RedisHistoryBus implements the HistoryBus interface using Redis Pub/Sub,
// decoupling audit writes from the lifecycle transitions that produce them.
type RedisHistoryBus struct {
	client *redisclient.Client

	mu          sync.Mutex
	pubsub      *redis.PubSub
	subscribers []chan *entities.AppointmentHistory
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewRedisHistoryBus creates a new Redis-backed history bus
func NewRedisHistoryBus(client *redisclient.Client) providers.HistoryBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisHistoryBus{
		client: client,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Publish publishes a history entry
func (b *RedisHistoryBus) Publish(ctx context.Context, entry *entities.AppointmentHistory) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	if err := b.client.Client().Publish(ctx, providers.HistoryChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish history entry: %w", err)
	}

	return nil
}

// Subscribe subscribes to published history entries
func (b *RedisHistoryBus) Subscribe(ctx context.Context) (<-chan *entities.AppointmentHistory, error) {
	b.mu.Lock()

	if b.pubsub == nil {
		b.pubsub = b.client.Client().Subscribe(b.ctx, providers.HistoryChannel)
		go b.receive(b.pubsub)
	}

	ch := make(chan *entities.AppointmentHistory, 100)
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.removeSubscriber(ch)
	}()

	return ch, nil
}

func (b *RedisHistoryBus) receive(pubsub *redis.PubSub) {
	ch := pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var entry entities.AppointmentHistory
			if err := json.Unmarshal([]byte(msg.Payload), &entry); err != nil {
				log.Warn().Err(err).Msg("failed to unmarshal history entry")
				continue
			}

			b.mu.Lock()
			for _, sub := range b.subscribers {
				select {
				case sub <- &entry:
				default:
					// Slow subscriber; drop rather than block the bus.
				}
			}
			b.mu.Unlock()
		}
	}
}

func (b *RedisHistoryBus) removeSubscriber(ch chan *entities.AppointmentHistory) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subscribers {
		if sub == ch {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			close(sub)
			break
		}
	}
}

// Close closes the bus and all subscriptions
func (b *RedisHistoryBus) Close() error {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subscribers {
		close(sub)
	}
	b.subscribers = nil

	if b.pubsub != nil {
		return b.pubsub.Close()
	}
	return nil
}
