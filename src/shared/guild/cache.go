package guild

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// ConfigCache holds serialized guild configs in front of the database.
type ConfigCache interface {
	Get(ctx context.Context, guildID string) ([]byte, bool, error)
	Set(ctx context.Context, guildID string, val []byte) error
	Purge(ctx context.Context, guildID string) error
}

// MemConfigCache is a process-local cache with a bounded size and TTL.
type MemConfigCache struct {
	lru *expirable.LRU[string, []byte]
}

var _ ConfigCache = (*MemConfigCache)(nil)

func NewMemConfigCache(size int, ttl time.Duration) *MemConfigCache {
	if size <= 0 {
		size = 10_000
	}
	return &MemConfigCache{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (c *MemConfigCache) Get(_ context.Context, guildID string) ([]byte, bool, error) {
	v, ok := c.lru.Get(guildID)
	return v, ok, nil
}

func (c *MemConfigCache) Set(_ context.Context, guildID string, val []byte) error {
	c.lru.Add(guildID, val)
	return nil
}

func (c *MemConfigCache) Purge(_ context.Context, guildID string) error {
	c.lru.Remove(guildID)
	return nil
}

// RedisConfigCache shares cached configs between bot processes.
type RedisConfigCache struct {
	data *cache.Cache
	ttl  time.Duration
}

var _ ConfigCache = (*RedisConfigCache)(nil)

// NewRedisConfigCache wraps an existing client. A small local TinyLFU tier
// absorbs bursts of messages from the same guild.
func NewRedisConfigCache(rdb *redis.Client, ttl time.Duration) *RedisConfigCache {
	localTTL := ttl
	if localTTL > 10*time.Second {
		localTTL = 10 * time.Second
	}
	return &RedisConfigCache{
		data: cache.New(&cache.Options{
			Redis:      rdb,
			LocalCache: cache.NewTinyLFU(10_000, localTTL),
		}),
		ttl: ttl,
	}
}

func redisConfigKey(guildID string) string {
	return "guildmod/config/" + guildID
}

func (c *RedisConfigCache) Get(ctx context.Context, guildID string) ([]byte, bool, error) {
	var val []byte
	err := c.data.Get(ctx, redisConfigKey(guildID), &val)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisConfigCache) Set(ctx context.Context, guildID string, val []byte) error {
	return c.data.Set(&cache.Item{
		Ctx:   ctx,
		Key:   redisConfigKey(guildID),
		Value: val,
		TTL:   c.ttl,
	})
}

func (c *RedisConfigCache) Purge(ctx context.Context, guildID string) error {
	err := c.data.Delete(ctx, redisConfigKey(guildID))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil
	}
	return err
}
