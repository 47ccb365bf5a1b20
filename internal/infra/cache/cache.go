// Package cache holds the fast tier in front of the durable store.
package cache

import (
	"context"
	"time"

	"github.com/vietddude/dexcache/internal/core/domain"
)

const (
	// DefaultTTL is the expire-after-write lifetime of a cached view.
	DefaultTTL = 7 * 24 * time.Hour
	// DefaultMaxEntries bounds the in-process cache.
	DefaultMaxEntries = 10_000
)

// ViewCache maps lookup keys to normalized views. Implementations never
// return errors: a failing backend reads as a miss and drops writes.
type ViewCache interface {
	// Get returns a copy of the live view stored under key.
	Get(ctx context.Context, key string) (*domain.NormalizedView, bool)

	// Put stores view under key. An empty key or nil view is ignored.
	Put(ctx context.Context, key string, view *domain.NormalizedView)
}
