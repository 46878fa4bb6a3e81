package tiercache

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries the environment-driven settings a composition root needs
// to assemble a Cache. Backends are opened by the application (the cache
// never dials anything on its own); the URLs here are passed through to
// whatever opens them.
type Config struct {
	RedisURL             string        `env:"CACHE_REDIS_URL"`
	DatabaseDSN          string        `env:"CACHE_DATABASE_DSN"`
	SchemaVersion        string        `env:"CACHE_SCHEMA_VERSION" envDefault:"v1"`
	DefaultTTL           time.Duration `env:"CACHE_DEFAULT_TTL" envDefault:"30m"`
	CleanupInterval      time.Duration `env:"CACHE_CLEANUP_INTERVAL" envDefault:"5m"`
	SmallObjectThreshold int           `env:"CACHE_SMALL_OBJECT_THRESHOLD" envDefault:"1048576"`
	RelayTimeout         time.Duration `env:"CACHE_RELAY_TIMEOUT" envDefault:"100ms"`
	MemoryCapacity       int           `env:"CACHE_MEMORY_CAPACITY" envDefault:"0"`
	CriticalPrefixes     []string      `env:"CACHE_CRITICAL_PREFIXES" envSeparator:"," envDefault:"identity_,auth_,content_,project_"`
	SyncChannel          string        `env:"CACHE_SYNC_CHANNEL" envDefault:"tiercache:sync"`
}

// ConfigFromEnv reads Config from the process environment.
func ConfigFromEnv() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("error parsing cache config: %w", err)
	}
	return cfg, nil
}

// Options translates the config into construction options. Backends still
// have to be attached separately with WithScalarStore and friends.
func (cfg Config) Options() []Option {
	return []Option{
		WithSchemaVersion(cfg.SchemaVersion),
		WithDefaultTTL(cfg.DefaultTTL),
		WithCleanupInterval(cfg.CleanupInterval),
		WithSmallObjectThreshold(cfg.SmallObjectThreshold),
		WithMemoryCapacity(cfg.MemoryCapacity),
		WithCriticalPrefixes(cfg.CriticalPrefixes...),
	}
}
