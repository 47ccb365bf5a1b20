package catalog

import (
	"fmt"
	"time"
)

// DefaultBaseURL is the public catalog the service fronts.
const DefaultBaseURL = "https://pokeapi.co/api/v2/pokemon"

// Config holds remote catalog settings.
type Config struct {
	BaseURL        string        `yaml:"base_url"        env:"CATALOG_BASE_URL"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"CATALOG_REQUEST_TIMEOUT"` // per attempt
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"CATALOG_CONNECT_TIMEOUT"`
	MaxAttempts    int           `yaml:"max_attempts"    env:"CATALOG_MAX_ATTEMPTS"`
	InitialBackoff time.Duration `yaml:"initial_backoff" env:"CATALOG_INITIAL_BACKOFF"`
}

// WithDefaults returns a copy of c with zero fields filled.
func (c Config) WithDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = 250 * time.Millisecond
	}
	return c
}

// Validate rejects settings the client cannot run with.
func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("catalog.max_attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("catalog.initial_backoff must be positive, got %s", c.InitialBackoff)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("catalog.request_timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("catalog.connect_timeout must be positive, got %s", c.ConnectTimeout)
	}
	return nil
}
