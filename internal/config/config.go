// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error kinds.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreBackend selects where lists and the catalog live: memory or mongo.
	StoreBackend string `koanf:"store_backend"`

	MongoURI       string `koanf:"mongo_uri"`
	MongoDatabase  string `koanf:"mongo_database"`
	MongoTimeoutMS int    `koanf:"mongo_timeout_ms"`

	// GuardBackend selects the replay guard for comparison steps: memory or redis.
	GuardBackend string `koanf:"guard_backend"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// GuardSize bounds the in-memory replay guard.
	GuardSize int `koanf:"guard_size"`

	// SessionSecret signs comparison session tokens.
	SessionSecret string `koanf:"session_secret"`

	// SessionTTLMinutes is the lifetime of a session token.
	SessionTTLMinutes int `koanf:"session_ttl_minutes"`

	// AuthSecret verifies bearer access tokens.
	AuthSecret string `koanf:"auth_secret"`

	// MaxSearchLimit caps GET /beers/search?limit.
	MaxSearchLimit int `koanf:"max_search_limit"`

	// SeedCatalog loads the sample beers into an empty catalog at start.
	SeedCatalog bool `koanf:"seed_catalog"`

	// MetricsNamespace prefixes every exported metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`

	// Instance, when set, is attached to every metric as the instance label.
	Instance string `koanf:"instance"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		StoreBackend:      BackendMemory,
		MongoDatabase:     "craftbeer",
		MongoTimeoutMS:    10_000,
		GuardBackend:      BackendMemory,
		GuardSize:         100_000,
		SessionTTLMinutes: 24 * 60,
		MaxSearchLimit:    50,
		SeedCatalog:       true,
		MetricsNamespace:  "brewrank",
	}
}

// MongoTimeout is MongoTimeoutMS as a duration.
func (c *Config) MongoTimeout() time.Duration {
	return time.Duration(c.MongoTimeoutMS) * time.Millisecond
}

// MetricLabels are the constant labels every metric carries.
func (c *Config) MetricLabels() map[string]string {
	if c.Instance == "" {
		return nil
	}
	return map[string]string{"instance": c.Instance}
}

// SessionTTL is SessionTTLMinutes as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// Validate reports the first inconsistency, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return invalid("addr must not be empty")
	case c.LogFormat != "text" && c.LogFormat != "json":
		return invalid("unknown log_format %q", c.LogFormat)
	case c.StoreBackend != BackendMemory && c.StoreBackend != BackendMongo:
		return invalid("unknown store_backend %q", c.StoreBackend)
	case c.StoreBackend == BackendMongo && strings.TrimSpace(c.MongoURI) == "":
		return invalid("mongo_uri is required for the mongo backend")
	case c.GuardBackend != BackendMemory && c.GuardBackend != BackendRedis:
		return invalid("unknown guard_backend %q", c.GuardBackend)
	case c.GuardBackend == BackendRedis && strings.TrimSpace(c.RedisAddr) == "":
		return invalid("redis_addr is required for the redis guard")
	case c.SessionSecret == "":
		return invalid("session_secret must not be empty")
	case c.AuthSecret == "":
		return invalid("auth_secret must not be empty")
	case c.SessionTTLMinutes <= 0:
		return invalid("session_ttl_minutes must be positive")
	case c.MaxSearchLimit <= 0:
		return invalid("max_search_limit must be positive")
	case strings.TrimSpace(c.MetricsNamespace) == "":
		return invalid("metrics_namespace must not be empty")
	}
	return nil
}
