package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/pature/internal/config"
)

// IncomingLikeCountTTL bounds how stale a cached counter can get if an
// invalidation is lost.
const IncomingLikeCountTTL = time.Hour

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

// NewFromClient wraps an existing client, e.g. one pointed at miniredis.
func NewFromClient(c *redis.Client) *RedisCache {
	return &RedisCache{Client: c}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
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

func (c *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.Client.Exists(ctx, key).Result()
	return n > 0, err
}

// IncrWithTTL increments key and sets ttl when the key is new, so a
// fixed window starts at its first hit.
func (c *RedisCache) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	n, err := c.Client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := c.Client.Expire(ctx, key, ttl).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// KeyForIncomingLikeCount generates Redis key for the likes a user's
// listings have received.
func (c *RedisCache) KeyForIncomingLikeCount(userID uint64) string {
	return fmt.Sprintf("likes:incoming:count:%d", userID)
}

// KeyForRateWindow is the per-IP counter for one wall-clock minute.
func (c *RedisCache) KeyForRateWindow(ip string, at time.Time) string {
	return fmt.Sprintf("iprl:%s:%d", ip, at.Unix()/60)
}

// KeyForRateBlock marks an IP as blocked until the key expires.
func (c *RedisCache) KeyForRateBlock(ip string) string {
	return fmt.Sprintf("iprl:block:%s", ip)
}

func (c *RedisCache) SetIncomingLikeCount(ctx context.Context, userID uint64, count int64) error {
	// Always refresh TTL when updating
	return c.Client.Set(ctx, c.KeyForIncomingLikeCount(userID), count, IncomingLikeCountTTL).Err()
}

// GetIncomingLikeCount returns the cached counter; ok is false on a miss.
func (c *RedisCache) GetIncomingLikeCount(ctx context.Context, userID uint64) (count int64, ok bool, err error) {
	key := c.KeyForIncomingLikeCount(userID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil // cache miss
	} else if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, IncomingLikeCountTTL).Err()
	return n, true, nil
}

func (c *RedisCache) InvalidateIncomingLikeCount(ctx context.Context, userID uint64) error {
	return c.Client.Del(ctx, c.KeyForIncomingLikeCount(userID)).Err()
}
