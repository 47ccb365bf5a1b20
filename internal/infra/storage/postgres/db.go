package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Use pgx via database/sql
	"github.com/jmoiron/sqlx"
	"github.com/sethvargo/go-retry"

	"github.com/vietddude/dexcache/internal/infra/storage/migrations"
	"github.com/vietddude/dexcache/internal/metrics"
)

// Config holds PostgreSQL connection configuration.
type Config struct {
	URL          string        `yaml:"url"           env:"DATABASE_URL"`
	MaxConns     int           `yaml:"max_conns"     env:"DATABASE_MAX_CONNS"`
	MinConns     int           `yaml:"min_conns"     env:"DATABASE_MIN_CONNS"`
	WaitRetries  int           `yaml:"wait_retries"  env:"DATABASE_WAIT_RETRIES"`
	WaitInterval time.Duration `yaml:"wait_interval" env:"DATABASE_WAIT_INTERVAL"`
}

// DB wraps the PostgreSQL connection.
type DB struct {
	*sqlx.DB
}

// NewDB opens the pool and waits for the server to accept connections.
func NewDB(ctx context.Context, cfg Config) (*DB, error) {
	db, err := sqlx.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set pool configuration
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	} else {
		db.SetMaxOpenConns(10)
	}

	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(cfg.MinConns)
	} else {
		db.SetMaxIdleConns(2)
	}

	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := waitForDB(ctx, db, cfg); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{DB: db}, nil
}

// waitForDB pings until the database answers or the retry budget runs out.
func waitForDB(ctx context.Context, db *sqlx.DB, cfg Config) error {
	retries := cfg.WaitRetries
	if retries < 1 {
		retries = 1
	}
	interval := cfg.WaitInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	slog.Info("Waiting for database", "max_retries", retries, "interval", interval)

	attempt := 0
	backoff := retry.WithMaxRetries(uint64(retries-1), retry.NewConstant(interval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := db.PingContext(ctx); err != nil {
			slog.Warn("Database not ready yet", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("database not available after %d attempts: %w", attempt, err)
	}

	slog.Info("Database is available", "attempt", attempt)
	return nil
}

// Migrate applies the embedded schema.
func (db *DB) Migrate(ctx context.Context) error {
	return migrations.Up(ctx, db.DB.DB, "postgres")
}

// SchemaVersion reports the applied schema version.
func (db *DB) SchemaVersion(ctx context.Context) (int64, error) {
	return migrations.Version(ctx, db.DB.DB, "postgres")
}

// StartMetricsCollector starts a background goroutine to collect DB metrics.
func (db *DB) StartMetricsCollector(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := db.Stats()
				// MaxOpenConnections is 0 when unlimited.
				if stats.MaxOpenConnections > 0 {
					usage := float64(stats.OpenConnections) / float64(stats.MaxOpenConnections) * 100
					metrics.DBConnectionPoolUsage.Set(usage)
				}
			}
		}
	}()
}

// Health checks if the database is healthy.
func (db *DB) Health(ctx context.Context) error {
	return db.PingContext(ctx)
}
