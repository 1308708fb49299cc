package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCommands is the subset of the Redis client used for registration.
type redisCommands interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisRegistrar keeps presence keys in Redis. Keys never expire.
type RedisRegistrar struct {
	client redisCommands
	closer func() error
}

// NewRedisRegistrar connects to addr and checks the connection with PING.
func NewRedisRegistrar(ctx context.Context, addr, password string) (*RedisRegistrar, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0, // use default DB
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}

	return &RedisRegistrar{client: client, closer: client.Close}, nil
}

// Exists reports whether key is set.
func (r *RedisRegistrar) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis EXISTS %s: %w", key, err)
	}
	return n > 0, nil
}

// Create sets key to payload if it is not set yet. Losing a race to another
// process is not an error.
func (r *RedisRegistrar) Create(ctx context.Context, key string, payload []byte) error {
	if err := r.client.SetNX(ctx, key, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis SETNX %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *RedisRegistrar) Close() error {
	if r.closer != nil {
		return r.closer()
	}
	return nil
}
