package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/vietddude/dexcache/internal/core/domain"
)

type entry struct {
	view      *domain.NormalizedView
	expiresAt time.Time
}

// Memory is an in-process LRU view cache with expire-after-write semantics.
type Memory struct {
	items *ttlcache.Cache[string, entry]
	ttl   time.Duration
	now   func() time.Time
}

// NewMemory creates a cache holding at most maxEntries views for ttl each.
// Zero values fall back to DefaultMaxEntries and DefaultTTL.
func NewMemory(ttl time.Duration, maxEntries uint64) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries == 0 {
		maxEntries = DefaultMaxEntries
	}

	return &Memory{
		items: ttlcache.New(
			ttlcache.WithTTL[string, entry](ttl),
			ttlcache.WithDisableTouchOnHit[string, entry](),
			ttlcache.WithCapacity[string, entry](maxEntries),
		),
		ttl: ttl,
		now: time.Now,
	}
}

// Get implements ViewCache.
func (m *Memory) Get(_ context.Context, key string) (*domain.NormalizedView, bool) {
	if key == "" {
		return nil, false
	}
	item := m.items.Get(key)
	if item == nil {
		return nil, false
	}

	e := item.Value()
	if !m.now().Before(e.expiresAt) {
		m.items.Delete(key)
		return nil, false
	}
	return e.view.Clone(), true
}

// Put implements ViewCache.
func (m *Memory) Put(_ context.Context, key string, view *domain.NormalizedView) {
	if key == "" || view == nil {
		return
	}
	m.items.Set(key, entry{
		view:      view.Clone(),
		expiresAt: m.now().Add(m.ttl),
	}, ttlcache.DefaultTTL)
}

// Len reports the number of entries currently held, expired ones included
// until the cleaner runs.
func (m *Memory) Len() int {
	return m.items.Len()
}

// Start runs the expired-entry cleaner until Stop is called. It blocks.
func (m *Memory) Start() {
	m.items.Start()
}

// Stop halts the cleaner started by Start.
func (m *Memory) Stop() {
	m.items.Stop()
}
