package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/statement-engine/internal/types"
)

// QuoteCache stores fiat quotes keyed by asset symbol for a bounded TTL.
type QuoteCache interface {
	Get(ctx context.Context, symbol string) (types.Quote, bool)
	Set(ctx context.Context, symbol string, quote types.Quote)
}

// MemoryQuoteCache is an in-process cache used when Redis is not
// configured.
type MemoryQuoteCache struct {
	cache *gocache.Cache
}

// NewMemoryQuoteCache creates an in-process quote cache.
func NewMemoryQuoteCache(ttl time.Duration) *MemoryQuoteCache {
	return &MemoryQuoteCache{cache: gocache.New(ttl, 2*ttl)}
}

func (c *MemoryQuoteCache) Get(ctx context.Context, symbol string) (types.Quote, bool) {
	v, ok := c.cache.Get(symbol)
	if !ok {
		return types.Quote{}, false
	}
	quote, ok := v.(types.Quote)
	return quote, ok
}

func (c *MemoryQuoteCache) Set(ctx context.Context, symbol string, quote types.Quote) {
	c.cache.SetDefault(symbol, quote)
}

// RedisQuoteCache shares quotes across instances.
type RedisQuoteCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisQuoteCache creates a Redis-backed quote cache.
func NewRedisQuoteCache(client *redis.Client, ttl time.Duration) *RedisQuoteCache {
	return &RedisQuoteCache{client: client, ttl: ttl}
}

func quoteKey(symbol string) string {
	return fmt.Sprintf("quote:%s", symbol)
}

func (c *RedisQuoteCache) Get(ctx context.Context, symbol string) (types.Quote, bool) {
	raw, err := c.client.Get(ctx, quoteKey(symbol)).Bytes()
	if err != nil {
		return types.Quote{}, false
	}
	var quote types.Quote
	if err := json.Unmarshal(raw, &quote); err != nil {
		return types.Quote{}, false
	}
	return quote, true
}

func (c *RedisQuoteCache) Set(ctx context.Context, symbol string, quote types.Quote) {
	raw, err := json.Marshal(quote)
	if err != nil {
		return
	}
	// Cache writes are best effort
	_ = c.client.Set(ctx, quoteKey(symbol), raw, c.ttl).Err()
}
