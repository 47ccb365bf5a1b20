package control

import (
	"context"
	"fmt"

	"github.com/vietddude/dexcache/internal/infra/storage"
	"github.com/vietddude/dexcache/internal/server"
)

// StoreStatus summarizes the durable store.
type StoreStatus struct {
	Backend       string
	Records       int
	SchemaVersion int64 // 0 for the memory backend
}

// StoreStatus reports record count and schema version of the store.
func (a *App) StoreStatus(ctx context.Context) (StoreStatus, error) {
	st := StoreStatus{Backend: a.cfg.Store.Backend}

	if counter, ok := a.store.(storage.RecordCounter); ok {
		n, err := counter.Count(ctx)
		if err != nil {
			return st, err
		}
		st.Records = n
	}

	var err error
	switch {
	case a.pg != nil:
		st.SchemaVersion, err = a.pg.SchemaVersion(ctx)
	case a.lite != nil:
		st.SchemaVersion, err = a.lite.SchemaVersion(ctx)
	}
	if err != nil {
		return st, fmt.Errorf("failed to read schema version: %w", err)
	}
	return st, nil
}

func (a *App) probes() map[string]server.Probe {
	return map[string]server.Probe{
		"store": a.probeStore,
		"cache": a.probeCache,
	}
}

func (a *App) probeStore(ctx context.Context) server.ComponentHealth {
	h := server.ComponentHealth{Status: server.StatusUp, Backend: a.cfg.Store.Backend}

	var err error
	switch {
	case a.pg != nil:
		err = a.pg.Health(ctx)
	case a.lite != nil:
		err = a.lite.Health(ctx)
	}
	if err != nil {
		h.Status = server.StatusDown
		h.Error = err.Error()
		return h
	}

	if counter, ok := a.store.(storage.RecordCounter); ok {
		n, err := counter.Count(ctx)
		if err != nil {
			h.Status = server.StatusDown
			h.Error = err.Error()
			return h
		}
		h.Records = &n
	}
	return h
}

func (a *App) probeCache(ctx context.Context) server.ComponentHealth {
	h := server.ComponentHealth{Status: server.StatusUp, Backend: a.cfg.Cache.Backend}

	if a.redisClient != nil {
		if err := a.redisClient.Health(ctx); err != nil {
			h.Status = server.StatusDown
			h.Error = err.Error()
		}
		return h
	}
	if a.memCache != nil {
		n := a.memCache.Len()
		h.Records = &n
	}
	return h
}
