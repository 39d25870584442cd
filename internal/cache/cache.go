package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the small key-value surface the service needs: request
// counters for rate limiting and short-lived lookups.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Close() error
}

type redisCache struct {
	client *redis.Client
}

// NewRedis connects to the given address. When the server is not
// reachable at startup the caller should fall back to NewMemory; the
// service degrades rather than refusing to start.
func NewRedis(addr, password string, db int) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &redisCache{client: client}, nil
}

func (c *redisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *redisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *redisCache) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (c *redisCache) Close() error {
	return c.client.Close()
}

type memoryEntry struct {
	value     string
	counter   int64
	expiresAt time.Time
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

// NewMemory is the in-process fallback used when redis is unavailable.
func NewMemory() Cache {
	return &memoryCache{entries: make(map[string]*memoryEntry)}
}

func (c *memoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.live(key)
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

func (c *memoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

func (c *memoryCache) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.live(key)
	if !ok {
		e = &memoryEntry{expiresAt: time.Now().Add(ttl)}
		c.entries[key] = e
	}
	e.counter++
	return e.counter, nil
}

func (c *memoryCache) Close() error {
	return nil
}

// live returns the entry only when it has not expired, removing it
// when it has. Callers hold the mutex.
func (c *memoryCache) live(key string) (*memoryEntry, bool) {
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e, true
}

// Connect tries redis first and silently degrades to the in-memory
// cache, logging the downgrade once.
func Connect(addr, password string, db int, logger *slog.Logger) Cache {
	if addr != "" {
		c, err := NewRedis(addr, password, db)
		if err == nil {
			logger.Info("connected to redis", "addr", addr)
			return c
		}
		logger.Warn("redis unavailable, using in-memory cache", "addr", addr, "error", err)
	}
	return NewMemory()
}
