package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each value as a plain Redis string under Prefix+key.
type RedisStore struct {
	Client *redis.Client
	Prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{Client: client, Prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.Client == nil {
		return nil, false, errors.New("kv store: redis client is nil")
	}

	if strings.TrimSpace(key) == "" {
		return nil, false, errors.New("get kv: key must not be empty")
	}

	b, err := s.Client.Get(ctx, s.Prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get kv key=%q: redis get: %w", key, err)
	}

	return b, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if s.Client == nil {
		return errors.New("kv store: redis client is nil")
	}

	if strings.TrimSpace(key) == "" {
		return errors.New("set kv: key must not be empty")
	}

	if err := s.Client.Set(ctx, s.Prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("set kv key=%q: redis set: %w", key, err)
	}

	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if s.Client == nil {
		return errors.New("kv store: redis client is nil")
	}

	if err := s.Client.Del(ctx, s.Prefix+key).Err(); err != nil {
		return fmt.Errorf("delete kv key=%q: redis del: %w", key, err)
	}

	return nil
}
