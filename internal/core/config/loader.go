package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every environment override, e.g. DEXCACHE_STORE_BACKEND.
const EnvPrefix = "DEXCACHE_"

// Load reads configuration from a YAML file, applies DEXCACHE_* environment
// overrides and fills defaults. An empty path skips the file.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Expand environment variables in the YAML content
		expandedData := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment overrides: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 30 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	cfg.Catalog = cfg.Catalog.WithDefaults()

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = BackendMemory
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 7 * 24 * time.Hour
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 10_000
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = BackendMemory
	}
	if cfg.Store.TTL == 0 {
		cfg.Store.TTL = 30 * 24 * time.Hour
	}

	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Database.MinConns == 0 {
		cfg.Database.MinConns = 2
	}
	if cfg.Database.WaitRetries == 0 {
		cfg.Database.WaitRetries = 30
	}
	if cfg.Database.WaitInterval == 0 {
		cfg.Database.WaitInterval = 2 * time.Second
	}

	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = "dexcache.db"
	}
}

// Validate rejects configurations that cannot start.
func (c *AppConfig) Validate() error {
	switch c.Cache.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("cache.backend is redis but redis.url is empty")
		}
	default:
		return fmt.Errorf("unknown cache.backend %q", c.Cache.Backend)
	}

	switch c.Store.Backend {
	case BackendMemory, BackendSQLite:
	case BackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("store.backend is postgres but database.url is empty")
		}
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}

	u, err := url.Parse(c.Catalog.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid catalog.base_url %q", c.Catalog.BaseURL)
	}
	if err := c.Catalog.Validate(); err != nil {
		return err
	}

	// Store timestamps have second resolution.
	if c.Store.TTL < time.Second {
		return fmt.Errorf("store.ttl must be at least 1s, got %s", c.Store.TTL)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got %s", c.Cache.TTL)
	}
	return nil
}
