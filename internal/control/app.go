// Package control wires configuration into running components.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vietddude/dexcache/internal/core/config"
	"github.com/vietddude/dexcache/internal/core/worker"
	"github.com/vietddude/dexcache/internal/infra/cache"
	"github.com/vietddude/dexcache/internal/infra/catalog"
	redisclient "github.com/vietddude/dexcache/internal/infra/redis"
	"github.com/vietddude/dexcache/internal/infra/storage"
	"github.com/vietddude/dexcache/internal/infra/storage/memory"
	"github.com/vietddude/dexcache/internal/infra/storage/postgres"
	"github.com/vietddude/dexcache/internal/infra/storage/sqlite"
	"github.com/vietddude/dexcache/internal/infra/storage/sqlrepo"
	"github.com/vietddude/dexcache/internal/resolver"
	"github.com/vietddude/dexcache/internal/server"
)

// App is the main application struct that manages the service lifecycle.
type App struct {
	cfg      *config.AppConfig
	store    storage.RecordStore
	cache    cache.ViewCache
	memCache *cache.Memory
	catalog  *catalog.Client
	resolver *resolver.Resolver
	server   *server.Server
	sweeper  *worker.Sweeper

	pg          *postgres.DB
	lite        *sqlite.DB
	redisClient *redisclient.Client

	log    *slog.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewApp creates the application, connecting to the configured backends
// and applying migrations where needed.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	a := &App{
		cfg: cfg,
		log: slog.Default().With("component", "app"),
	}

	if err := a.initStore(ctx); err != nil {
		a.closeBackends()
		return nil, err
	}
	if err := a.initCache(); err != nil {
		a.closeBackends()
		return nil, err
	}

	a.catalog = catalog.NewClient(cfg.Catalog)

	var opts []resolver.Option
	if cfg.Resolver.DedupeInflight {
		opts = append(opts, resolver.WithDedupe())
	}
	a.resolver = resolver.New(a.cache, a.store, a.catalog, opts...)

	a.server = server.NewServer(a.resolver, server.Config{
		Port:           cfg.Server.Port,
		RequestTimeout: cfg.Server.RequestTimeout,
	}, a.probes())

	if sw, ok := a.store.(storage.RecordSweeper); ok && cfg.Store.SweepInterval > 0 {
		a.sweeper = worker.NewSweeper(cfg.Store.SweepInterval, sw)
	}

	return a, nil
}

func (a *App) initStore(ctx context.Context) error {
	switch a.cfg.Store.Backend {
	case config.BackendPostgres:
		db, err := postgres.NewDB(ctx, a.cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}
		a.pg = db
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate db: %w", err)
		}
		a.store = sqlrepo.NewRecordRepo(db.DB, a.cfg.Store.TTL)
		a.log.Info("Using PostgreSQL storage")

	case config.BackendSQLite:
		db, err := sqlite.Open(ctx, a.cfg.SQLite)
		if err != nil {
			return fmt.Errorf("failed to open sqlite: %w", err)
		}
		a.lite = db
		a.store = sqlrepo.NewRecordRepo(db.DB, a.cfg.Store.TTL)
		a.log.Info("Using SQLite storage", "path", a.cfg.SQLite.Path)

	default:
		a.store = memory.NewRecordRepo(a.cfg.Store.TTL)
		a.log.Info("Using Memory storage")
	}
	return nil
}

func (a *App) initCache() error {
	switch a.cfg.Cache.Backend {
	case config.BackendRedis:
		client, err := redisclient.NewClient(a.cfg.Redis)
		if err != nil {
			return err
		}
		a.redisClient = client
		a.cache = redisclient.NewViewCache(client, a.cfg.Cache.TTL)
		a.log.Info("Using Redis cache")

	default:
		a.memCache = cache.NewMemory(a.cfg.Cache.TTL, a.cfg.Cache.MaxEntries)
		a.cache = a.memCache
		a.log.Info("Using Memory cache", "max_entries", a.cfg.Cache.MaxEntries)
	}
	return nil
}

// Resolver returns the lookup orchestrator.
func (a *App) Resolver() *resolver.Resolver {
	return a.resolver
}

// Server returns the HTTP server.
func (a *App) Server() *server.Server {
	return a.server
}

// Start starts the HTTP server and background workers.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	a.goRun(func() {
		if err := a.server.Start(); err != nil {
			a.log.Error("HTTP server failed", "error", err)
		}
	})

	if a.memCache != nil {
		a.goRun(a.memCache.Start)
	}

	if a.pg != nil {
		a.pg.StartMetricsCollector(ctx)
	}

	if a.sweeper != nil {
		a.log.Info("Starting sweeper", "interval", a.cfg.Store.SweepInterval)
		a.goRun(func() { a.sweeper.Start(ctx) })
	}

	return nil
}

func (a *App) goRun(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

// Stop stops the server and workers, then closes backends.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping dexcache...")

	var errs []error
	if err := a.server.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop server: %w", err))
	}
	if a.cancel != nil {
		a.cancel()
		if a.memCache != nil {
			a.memCache.Stop()
		}
	}
	a.wg.Wait()

	_ = a.catalog.Close()
	errs = append(errs, a.closeBackends())
	return errors.Join(errs...)
}

func (a *App) closeBackends() error {
	var errs []error
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close postgres: %w", err))
		}
	}
	if a.lite != nil {
		if err := a.lite.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sqlite: %w", err))
		}
	}
	return errors.Join(errs...)
}
