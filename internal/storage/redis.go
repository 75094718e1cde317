package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend keeps each document under a single prefixed key. Documents
// never expire; Redis must be configured with persistence for this to be
// a durable choice.
type RedisBackend struct {
	Client *redis.Client
	Prefix string
}

func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "checklist-bot:doc"
	}
	return &RedisBackend{Client: client, Prefix: prefix}
}

func (r *RedisBackend) key(name string) string {
	return r.Prefix + ":" + name
}

func (r *RedisBackend) Load(ctx context.Context, name string) ([]byte, error) {
	b, err := r.Client.Get(ctx, r.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return b, nil
}

func (r *RedisBackend) Save(ctx context.Context, name string, data []byte) error {
	if err := r.Client.Set(ctx, r.key(name), data, 0).Err(); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}
