package config

import (
	"time"

	"github.com/vietddude/dexcache/internal/infra/catalog"
	redisclient "github.com/vietddude/dexcache/internal/infra/redis"
	"github.com/vietddude/dexcache/internal/infra/storage/postgres"
	"github.com/vietddude/dexcache/internal/infra/storage/sqlite"
)

// Backend names accepted by cache.backend and store.backend.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	Catalog  catalog.Config     `yaml:"catalog"`
	Cache    CacheConfig        `yaml:"cache"`
	Redis    redisclient.Config `yaml:"redis"`
	Store    StoreConfig        `yaml:"store"`
	Database postgres.Config    `yaml:"database"`
	SQLite   sqlite.Config      `yaml:"sqlite"`
	Resolver ResolverConfig     `yaml:"resolver"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int           `yaml:"port"            env:"SERVER_PORT"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"SERVER_REQUEST_TIMEOUT"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"` // debug, info, warn, error
}

// CacheConfig selects and sizes the fast cache.
type CacheConfig struct {
	Backend    string        `yaml:"backend"     env:"CACHE_BACKEND"` // memory, redis
	TTL        time.Duration `yaml:"ttl"         env:"CACHE_TTL"`
	MaxEntries uint64        `yaml:"max_entries" env:"CACHE_MAX_ENTRIES"`
}

// StoreConfig selects the durable store.
type StoreConfig struct {
	Backend       string        `yaml:"backend"        env:"STORE_BACKEND"` // memory, postgres, sqlite
	TTL           time.Duration `yaml:"ttl"            env:"STORE_TTL"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"STORE_SWEEP_INTERVAL"` // 0 = disabled
}

// ResolverConfig holds orchestrator switches.
type ResolverConfig struct {
	DedupeInflight bool `yaml:"dedupe_inflight" env:"RESOLVER_DEDUPE_INFLIGHT"`
}
