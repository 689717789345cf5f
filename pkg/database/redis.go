package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chat_platform/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ErrCacheMiss returned by RedisRepository.Get when the key does not exist
var ErrCacheMiss = errors.New("redis: key not found")

// RedisRepository generic json value store
type RedisRepository[T any] interface {
	Set(ctx context.Context, key string, value T, ttl time.Duration) error
	Get(ctx context.Context, key string) (T, error)
}

type redisRepository[T any] struct {
	client *redis.Client
	prefix string
}

// NewRedisClient inti Redis Sentinel connection
func NewRedisClient(masterName string, sentinelAddrs []string, db int) (*redis.Client, error) {
	rdb := redis.NewFailoverClient(&redis.FailoverOptions{
		MasterName:    masterName,
		SentinelAddrs: sentinelAddrs,
		DB:            db,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis sentinel: %w", err)
	}

	return rdb, nil
}

// NewRedisRepository wrap an existing client, every key is stored under prefix
func NewRedisRepository[T any](client *redis.Client, prefix string) RedisRepository[T] {
	return &redisRepository[T]{client: client, prefix: prefix}
}

func (r *redisRepository[T]) key(k string) string {
	return r.prefix + k
}

func (r *redisRepository[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return r.client.Set(ctx, r.key(key), data, ttl).Err()
}

func (r *redisRepository[T]) Get(ctx context.Context, key string) (T, error) {
	var zeroValue T
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if err == redis.Nil {
		return zeroValue, ErrCacheMiss
	} else if err != nil {
		return zeroValue, fmt.Errorf("failed to get %s: %w", key, err)
	}

	var result T
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		logger.Log.Error("redis decode", zap.String("key", key), zap.Error(err))
		return zeroValue, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}

	return result, nil
}
