// Package cache memoizes market-data responses for a bounded time.
package cache

import (
	"context"
	"sync"
	"time"

	appconfig "contextgate/config"
	"contextgate/logger"

	redis "github.com/redis/go-redis/v9"
)

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration)
}

// New returns a Redis-backed cache when an address is configured and an
// in-process one otherwise.
func New(cfg appconfig.RedisConfig) Cache {
	if cfg.Addr != "" {
		logger.GetLogger().WithComponent("cache").WithFields(logger.Fields{
			"addr": cfg.Addr,
			"db":   cfg.DB,
		}).Info("using redis market-data cache")
		return NewRedis(cfg)
	}
	return NewMemory(time.Now)
}

type Memory struct {
	mu  sync.Mutex
	m   map[string]entry
	now func() time.Time
}

type entry struct {
	b   []byte
	exp time.Time
}

func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{m: make(map[string]entry), now: now}
}

func (c *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok {
		return nil, false
	}
	if !e.exp.IsZero() && !c.now().Before(e.exp) {
		delete(c.m, key)
		return nil, false
	}
	return e.b, true
}

func (c *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := entry{b: append([]byte(nil), val...)}
	if ttl > 0 {
		e.exp = c.now().Add(ttl)
	}
	c.m[key] = e
}

// Len reports the number of stored entries, expired ones included.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// Redis stores entries with native key expiry. Failures degrade to misses.
type Redis struct {
	r       *redis.Client
	timeout time.Duration
}

func NewRedis(cfg appconfig.RedisConfig) *Redis {
	return &Redis{
		r: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		timeout: 500 * time.Millisecond,
	}
}

func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	v, err := c.r.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.GetLogger().WithComponent("cache").WithError(err).Debug("redis get failed")
		}
		return nil, false
	}
	return v, true
}

func (c *Redis) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.r.Set(ctx, key, val, ttl).Err(); err != nil {
		logger.GetLogger().WithComponent("cache").WithError(err).Debug("redis set failed")
	}
}

func (c *Redis) Close() error {
	return c.r.Close()
}
