package storage

import (
	"context"
	"errors"
	"time"

	sfredis "github.com/angelmondragon/storefront/pkg/redis"
)

// RedisClient is the subset of pkg/redis used for snapshots.
type RedisClient interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	CartKey(key string) string
}

// Redis stores snapshots as plain strings under the sf: namespace.
type Redis struct {
	client RedisClient
	ttl    time.Duration
}

// NewRedis returns a backend writing with ttl; ttl <= 0 means no expiry.
func NewRedis(client RedisClient, ttl time.Duration) *Redis {
	if ttl < 0 {
		ttl = 0
	}
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Load(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, r.client.CartKey(key))
	if errors.Is(err, sfredis.ErrNil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

func (r *Redis) Save(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, r.client.CartKey(key), string(value), r.ttl)
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.client.CartKey(key))
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}
