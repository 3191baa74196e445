package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pairdaily/pairing-service/internal/config"
)

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// KeyForCycleLock generates the Redis key guarding one cycle date.
func (c *RedisCache) KeyForCycleLock(date string) string {
	return fmt.Sprintf("cycle:lock:%s", date)
}

// AcquireCycleLock takes the per-date run lock with SET NX. Returns false
// when another run already holds the lock. The TTL bounds how long a
// crashed run can keep the date locked.
func (c *RedisCache) AcquireCycleLock(ctx context.Context, date string, ttl time.Duration) (bool, error) {
	return c.Client.SetNX(ctx, c.KeyForCycleLock(date), "1", ttl).Result()
}

// ReleaseCycleLock frees the per-date run lock.
func (c *RedisCache) ReleaseCycleLock(ctx context.Context, date string) error {
	return c.Client.Del(ctx, c.KeyForCycleLock(date)).Err()
}
