package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "vetoapp:"

// Redis stores each namespace as one JSON blob under a prefixed key.
// SaveAll uses a transactional pipeline so all namespaces land together.
type Redis struct {
	client *redis.Client
}

// NewRedisWithClient wraps an existing client (shared with the job queue).
func NewRedisWithClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func redisKey(namespace string) string {
	return redisKeyPrefix + namespace
}

func (r *Redis) Load(ctx context.Context, namespace string, v any) error {
	raw, err := r.client.Get(ctx, redisKey(namespace)).Bytes()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %s", ErrNamespaceNotFound, namespace)
	}
	if err != nil {
		return fmt.Errorf("kv: redis get %s: %w", namespace, err)
	}
	return json.Unmarshal(raw, v)
}

func (r *Redis) Save(ctx context.Context, namespace string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kv: marshal %s: %w", namespace, err)
	}
	if err := r.client.Set(ctx, redisKey(namespace), raw, 0).Err(); err != nil {
		return fmt.Errorf("kv: redis set %s: %w", namespace, err)
	}
	return nil
}

func (r *Redis) SaveAll(ctx context.Context, entries map[string]any) error {
	pipe := r.client.TxPipeline()
	for ns, v := range entries {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("kv: marshal %s: %w", ns, err)
		}
		pipe.Set(ctx, redisKey(ns), raw, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("kv: redis pipeline: %w", err)
	}
	return nil
}

func (r *Redis) Reset(ctx context.Context, namespace string) error {
	if err := r.client.Del(ctx, redisKey(namespace)).Err(); err != nil {
		return fmt.Errorf("kv: redis del %s: %w", namespace, err)
	}
	return nil
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
