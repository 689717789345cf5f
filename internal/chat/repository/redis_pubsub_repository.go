package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"chat_platform/internal/chat/domain"
	"chat_platform/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// PubSub realtime fan-out between service instances
type PubSub interface {
	Publish(ctx context.Context, channel string, ev domain.Event) error
	// Subscribe calls handler for each event until ctx is cancelled
	Subscribe(ctx context.Context, channel string, handler func(ev domain.Event)) error
}

// RedisPubSub definition redis pub/sub
type RedisPubSub struct {
	client *redis.Client
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{client: client}
}

// Publish 將 event 序列化後，發布到指定 channel
func (r *RedisPubSub) Publish(ctx context.Context, channel string, ev domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, channel, data).Err()
}

// Subscribe 訂閱 channel，收到訊息後呼叫 handler 處理。回傳時訂閱已生效
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string, handler func(ev domain.Event)) error {
	sub := r.client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}
				var ev domain.Event
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					logger.Log.Error("pubsub decode", zap.String("channel", channel), zap.Error(err))
					continue
				}
				handler(ev)
			case <-ctx.Done():
				logger.Log.Info(fmt.Sprintf("%s , sub close", channel))
				return
			}
		}
	}()
	return nil
}
