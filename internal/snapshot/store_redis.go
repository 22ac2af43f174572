package snapshot

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each snapshot as a plain string value at <prefix><name>.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func OpenRedis(ctx context.Context, addr, prefix string) (*RedisStore, error) {
	s := NewRedisStore(redis.NewClient(&redis.Options{Addr: addr}), prefix)
	if err := s.Ping(ctx); err != nil {
		_ = s.client.Close()
		return nil, err
	}
	return s, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.client.Ping(ctx).Err()
	})
}

func (s *RedisStore) Load(ctx context.Context, name string) ([]byte, error) {
	var data []byte

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		var err error
		data, err = s.client.Get(ctx, s.prefix+name).Bytes()
		return err
	})

	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *RedisStore) Save(ctx context.Context, name string, data []byte) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.client.Set(ctx, s.prefix+name, data, 0).Err()
	})
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
