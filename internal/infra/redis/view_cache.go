package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/dexcache/internal/core/domain"
	"github.com/vietddude/dexcache/internal/metrics"
)

const defaultViewTTL = 7 * 24 * time.Hour

func viewKey(key string) string {
	return "species:" + key
}

// ViewCache stores normalized views as JSON with a server-side TTL.
type ViewCache struct {
	client *Client
	ttl    time.Duration
	log    *slog.Logger
}

// NewViewCache creates a Redis-backed view cache; ttl <= 0 uses seven days.
func NewViewCache(client *Client, ttl time.Duration) *ViewCache {
	if ttl <= 0 {
		ttl = defaultViewTTL
	}
	return &ViewCache{
		client: client,
		ttl:    ttl,
		log:    slog.Default().With("component", "redis-cache"),
	}
}

// Get returns the cached view, treating errors and undecodable values as misses.
func (c *ViewCache) Get(ctx context.Context, key string) (*domain.NormalizedView, bool) {
	if key == "" {
		return nil, false
	}

	data, err := c.client.rdb.Get(ctx, viewKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		metrics.BackendErrorsTotal.WithLabelValues("redis", "get").Inc()
		c.log.Warn("Cache read failed", "key", key, "error", err)
		return nil, false
	}

	var view domain.NormalizedView
	if err := json.Unmarshal(data, &view); err != nil {
		metrics.BackendErrorsTotal.WithLabelValues("redis", "decode").Inc()
		c.log.Warn("Dropping undecodable cache entry", "key", key, "error", err)
		return nil, false
	}
	view.EnsureCollections()
	return &view, true
}

// Put writes view under key with the configured TTL.
func (c *ViewCache) Put(ctx context.Context, key string, view *domain.NormalizedView) {
	if key == "" || view == nil {
		return
	}

	data, err := json.Marshal(view)
	if err != nil {
		metrics.BackendErrorsTotal.WithLabelValues("redis", "encode").Inc()
		c.log.Warn("Failed to encode view", "key", key, "error", err)
		return
	}
	if err := c.client.rdb.Set(ctx, viewKey(key), data, c.ttl).Err(); err != nil {
		metrics.BackendErrorsTotal.WithLabelValues("redis", "set").Inc()
		c.log.Warn("Cache write failed", "key", key, "error", err)
	}
}
