// Package resolver answers species lookups from the fastest tier that has
// them: view cache, then durable store, then the remote catalog.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vietddude/dexcache/internal/core/domain"
	"github.com/vietddude/dexcache/internal/core/reqctx"
	"github.com/vietddude/dexcache/internal/infra/cache"
	"github.com/vietddude/dexcache/internal/infra/catalog"
	"github.com/vietddude/dexcache/internal/infra/storage"
	"github.com/vietddude/dexcache/internal/metrics"
)

// writeBackTimeout bounds cache and store writes, which outlive the
// caller's context.
const writeBackTimeout = 5 * time.Second

// ErrBlankKey is returned for empty or whitespace-only keys.
var ErrBlankKey = errors.New("lookup key is blank")

// Fetcher is the remote catalog as seen by the resolver.
type Fetcher interface {
	Fetch(ctx context.Context, key string) catalog.Result
	URL(key string) string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithDedupe collapses concurrent misses for the same key onto one
// store and remote pass.
func WithDedupe() Option {
	return func(r *Resolver) {
		r.flight = &singleflight.Group{}
	}
}

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Resolver) {
		r.log = log
	}
}

// Resolver orchestrates the lookup tiers.
type Resolver struct {
	cache  cache.ViewCache
	store  storage.RecordStore
	remote Fetcher
	flight *singleflight.Group
	log    *slog.Logger
}

// New creates a Resolver over the given tiers.
func New(c cache.ViewCache, s storage.RecordStore, f Fetcher, opts ...Option) *Resolver {
	r := &Resolver{
		cache:  c,
		store:  s,
		remote: f,
		log:    slog.Default().With("component", "resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the view for key and whether it was found. Cache access
// uses the lowercased key; store and remote access use key as given.
// Backend failures are logged and read as misses, so the only error is
// ErrBlankKey.
func (r *Resolver) Resolve(ctx context.Context, key string) (*domain.NormalizedView, bool, error) {
	if strings.TrimSpace(key) == "" {
		return nil, false, ErrBlankKey
	}
	cacheKey := strings.ToLower(key)
	log := r.log.With("req_id", reqctx.RequestID(ctx), "key", key)

	if view, ok := r.cache.Get(ctx, cacheKey); ok {
		metrics.LookupsTotal.WithLabelValues("cache").Inc()
		log.Debug("Cache hit")
		return view, true, nil
	}

	if r.flight == nil {
		view, ok := r.resolveMiss(ctx, log, key, cacheKey)
		return view, ok, nil
	}

	v, _, shared := r.flight.Do(key, func() (any, error) {
		view, _ := r.resolveMiss(ctx, log, key, cacheKey)
		return view, nil
	})
	if shared {
		log.Debug("Joined in-flight lookup")
	}
	view, _ := v.(*domain.NormalizedView)
	if view == nil {
		return nil, false, nil
	}
	return view.Clone(), true, nil
}

func (r *Resolver) resolveMiss(
	ctx context.Context,
	log *slog.Logger,
	key, cacheKey string,
) (*domain.NormalizedView, bool) {
	rec, err := r.store.FindByKey(ctx, key)
	switch {
	case err == nil:
		view := domain.MinimalView(rec.NumericID, rec.Key, domain.LocalSourceURL)
		wctx, cancel := writeBackContext(ctx)
		r.cache.Put(wctx, cacheKey, view)
		cancel()
		metrics.LookupsTotal.WithLabelValues("store").Inc()
		log.Debug("Store hit")
		return view, true
	case errors.Is(err, storage.ErrRecordNotFound):
	default:
		metrics.BackendErrorsTotal.WithLabelValues("store", "find").Inc()
		log.Warn("Store lookup failed, falling through to remote", "error", err)
	}

	res := r.remote.Fetch(ctx, key)
	if res.Outcome != catalog.Found {
		metrics.LookupsTotal.WithLabelValues("miss").Inc()
		log.Info("Species not found", "outcome", res.Outcome.String(), "attempts", res.Attempts)
		return nil, false
	}

	// A found payload is persisted even if the caller has gone away.
	wctx, cancel := writeBackContext(ctx)
	defer cancel()

	if err := r.store.Upsert(wctx, &domain.RawRecord{
		Key:       key,
		NumericID: numericID(res.Body),
		Payload:   res.Body,
	}); err != nil {
		metrics.BackendErrorsTotal.WithLabelValues("store", "upsert").Inc()
		log.Warn("Failed to persist catalog payload", "error", err)
	}

	view, ok := Normalize(key, res.Body, r.remote.URL(key))
	if !ok {
		metrics.PayloadParseFailuresTotal.Inc()
		log.Warn("Catalog payload is not valid JSON, using minimal view")
	}
	r.cache.Put(wctx, cacheKey, view)

	metrics.LookupsTotal.WithLabelValues("remote").Inc()
	log.Info("Resolved from remote catalog", "attempts", res.Attempts)
	return view, true
}

func writeBackContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), writeBackTimeout)
}
