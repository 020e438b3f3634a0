package market

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// Cache stores serialized bar histories with a TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration)
}

type memoryCache struct {
	mu sync.Mutex
	m  map[string]memoryEntry
}

type memoryEntry struct {
	b   []byte
	exp time.Time
}

// NewMemoryCache returns an in-process TTL cache.
func NewMemoryCache() Cache { return &memoryCache{m: make(map[string]memoryEntry)} }

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok || (!e.exp.IsZero() && time.Now().After(e.exp)) {
		delete(c.m, key)
		return nil, false
	}
	return e.b, true
}

func (c *memoryCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := memoryEntry{b: append([]byte(nil), val...)}
	if ttl > 0 {
		e.exp = time.Now().Add(ttl)
	}
	c.m[key] = e
}

type redisCache struct{ r redis.Cmdable }

// NewRedisCache adapts a redis client to the Cache interface. Redis
// errors degrade to cache misses; the provider remains the source of
// truth.
func NewRedisCache(r redis.Cmdable) Cache { return &redisCache{r: r} }

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	v, err := c.r.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Debug().Err(err).Str("key", key).Msg("redis get failed, treating as miss")
		}
		return nil, false
	}
	return v, true
}

func (c *redisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	if err := c.r.Set(ctx, key, val, ttl).Err(); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("redis set failed")
	}
}

// CachedProvider memoizes History calls. Price goes straight through:
// single-bar lookups are cheap against a warmed history cache.
type CachedProvider struct {
	next  Provider
	cache Cache
	ttl   time.Duration
}

func NewCachedProvider(next Provider, cache Cache, ttl time.Duration) *CachedProvider {
	return &CachedProvider{next: next, cache: cache, ttl: ttl}
}

func (p *CachedProvider) Price(ctx context.Context, symbol string, date time.Time) (Bar, error) {
	return p.next.Price(ctx, symbol, date)
}

func (p *CachedProvider) History(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error) {
	key := historyKey(symbol, from, to)
	if raw, ok := p.cache.Get(ctx, key); ok {
		var bars []Bar
		if err := json.Unmarshal(raw, &bars); err == nil {
			return bars, nil
		}
		// Corrupt entry: fall through and overwrite.
	}

	bars, err := p.next.History(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(bars); err == nil {
		p.cache.Set(ctx, key, raw, p.ttl)
	}
	return bars, nil
}

func historyKey(symbol string, from, to time.Time) string {
	return fmt.Sprintf("bars:%s:%s:%s", symbol, from.Format(csvDateLayout), to.Format(csvDateLayout))
}
