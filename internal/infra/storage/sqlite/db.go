// Package sqlite opens an embedded SQLite database for the record store.
package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/vietddude/dexcache/internal/infra/storage/migrations"
)

const driverName = "sqlite"

func init() {
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

// Config holds SQLite settings.
type Config struct {
	Path string `yaml:"path" env:"SQLITE_PATH"`
}

// DB wraps the SQLite handle.
type DB struct {
	*sqlx.DB
}

// Open opens (creating if needed) the database file at cfg.Path and applies
// the embedded schema.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(cfg.Path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer at a time; readers share the same connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := migrations.Up(ctx, db.DB, "sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &DB{DB: db}, nil
}

// Health checks if the database file is reachable.
func (db *DB) Health(ctx context.Context) error {
	return db.PingContext(ctx)
}

// SchemaVersion reports the applied schema version.
func (db *DB) SchemaVersion(ctx context.Context) (int64, error) {
	return migrations.Version(ctx, db.DB.DB, "sqlite3")
}
