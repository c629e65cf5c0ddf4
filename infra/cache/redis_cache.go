package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements Cache using Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache creates a new RedisCache from a redis:// URL.
func NewRedisCache(
	url, prefix string,
	ttl time.Duration,
	logger *slog.Logger,
) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewRedisCacheWithOptions(opt, prefix, ttl, logger), nil
}

// NewRedisCacheWithOptions creates a new RedisCache from redis.Options.
func NewRedisCacheWithOptions(
	opt *redis.Options,
	prefix string,
	ttl time.Duration,
	logger *slog.Logger,
) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{
		client: redis.NewClient(opt),
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With("component", "redis_cache"),
	}
}

func (r *RedisCache) key(key string) string {
	return r.prefix + key
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		r.logger.Debug("Redis cache miss", "key", key)
		return "", false, nil
	}
	if err != nil {
		r.logger.Error("Redis cache get error", "key", key, "error", err)
		return "", false, err
	}
	r.logger.Debug("Redis cache hit", "key", key)
	return val, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, r.ttl).Err(); err != nil {
		r.logger.Error("Redis cache set error", "key", key, "error", err)
		return err
	}
	r.logger.Debug("Redis cache set", "key", key, "ttl", r.ttl)
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		r.logger.Error("Redis cache delete error", "key", key, "error", err)
		return err
	}
	r.logger.Debug("Redis cache delete", "key", key)
	return nil
}

// Ping checks the connection.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
