package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"tickerbot/internal/model"
)

const defaultCacheTTL = 60 * time.Second

// CacheConfig configures the Redis cache layer.
type CacheConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	TTL      time.Duration // zero means defaultCacheTTL
}

// Cache is a read-through decorator over another Source. Hits are served
// from Redis; misses fall through to the inner source and populate the
// cache. Redis outages degrade to uncached reads, never to failures.
type Cache struct {
	inner  Source
	client *goredis.Client
	ttl    time.Duration
}

var _ Source = (*Cache)(nil)

// NewCache wraps inner with a Redis cache and pings the server.
func NewCache(inner Source, cfg CacheConfig) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	log.Printf("[cache] connected to %s (ttl=%s)", cfg.Addr, ttl)
	return &Cache{inner: inner, client: client, ttl: ttl}, nil
}

func (c *Cache) RecentCloses(ctx context.Context, symbol string, count int) ([]float64, error) {
	key := fmt.Sprintf("market:closes:%s:%d", symbol, count)
	var closes []float64
	if c.lookup(ctx, key, &closes) {
		return closes, nil
	}
	closes, err := c.inner.RecentCloses(ctx, symbol, count)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, closes)
	return closes, nil
}

func (c *Cache) Candles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	key := fmt.Sprintf("market:candles:%s:%s:%d", symbol, interval, limit)
	var candles []model.Candle
	if c.lookup(ctx, key, &candles) {
		return candles, nil
	}
	candles, err := c.inner.Candles(ctx, symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, candles)
	return candles, nil
}

func (c *Cache) Ticker24h(ctx context.Context, symbol string) (*model.Ticker24h, error) {
	key := "market:ticker:" + symbol
	var ticker model.Ticker24h
	if c.lookup(ctx, key, &ticker) {
		return &ticker, nil
	}
	t, err := c.inner.Ticker24h(ctx, symbol)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, t)
	return t, nil
}

func (c *Cache) AllTickers(ctx context.Context) ([]model.Ticker24h, error) {
	const key = "market:tickers:all"
	var tickers []model.Ticker24h
	if c.lookup(ctx, key, &tickers) {
		return tickers, nil
	}
	tickers, err := c.inner.AllTickers(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, tickers)
	return tickers, nil
}

// lookup reports whether key held a decodable value. Redis errors other
// than a plain miss are logged and treated as misses.
func (c *Cache) lookup(ctx context.Context, key string, out any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			log.Printf("[cache] get %s: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Printf("[cache] decode %s: %v", key, err)
		return false
	}
	return true
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[cache] encode %s: %v", key, err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("[cache] set %s: %v", key, err)
	}
}

// Client exposes the underlying Redis client for health probes.
func (c *Cache) Client() *goredis.Client { return c.client }

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}
