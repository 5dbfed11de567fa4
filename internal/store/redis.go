package store

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"

	"github.com/advenue/screen-server/internal/redis"
)

// RedisStore keeps each namespace in one hash.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	v, err := s.client.HGet(ctx, redis.StoreKey(namespace), key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	return v, err
}

func (s *RedisStore) Put(ctx context.Context, namespace, key string, value []byte) error {
	return s.client.HSet(ctx, redis.StoreKey(namespace), key, value).Err()
}

func (s *RedisStore) Delete(ctx context.Context, namespace, key string) error {
	return s.client.HDel(ctx, redis.StoreKey(namespace), key).Err()
}

func (s *RedisStore) List(ctx context.Context, namespace string) (map[string][]byte, error) {
	all, err := s.client.HGetAll(ctx, redis.StoreKey(namespace)).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(all))
	for k, v := range all {
		out[k] = []byte(v)
	}
	return out, nil
}
