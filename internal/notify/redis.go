package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBroker 基于 Redis Pub/Sub，API 与 worker 进程共享同一频道。
type RedisBroker struct {
	client *redis.Client
}

// NewRedisBroker 构造 Redis 消息代理。
func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

// Publish 发布消息到账号频道。
func (b *RedisBroker) Publish(ctx context.Context, accountID string, msg Message) error {
	payload, err := encode(msg)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, Channel(accountID), payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", Channel(accountID), err)
	}
	return nil
}

// Subscribe 订阅账号频道。
func (b *RedisBroker) Subscribe(ctx context.Context, accountID string) (<-chan []byte, func(), error) {
	pubsub := b.client.Subscribe(ctx, Channel(accountID))
	// 等待订阅确认，避免首条消息丢失
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", Channel(accountID), err)
	}

	out := make(chan []byte, 16)
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, cancel, nil
}
