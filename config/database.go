package config

import "time"

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"subsentry"`
	Password string `env:"PASSWORD" envDefault:"subsentry"`
	Name     string `env:"NAME"     envDefault:"subsentry"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration for the ledger screen cache.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
}

// LedgerConfig tunes the abuse ledger screen cache.
type LedgerConfig struct {
	// CacheTTL bounds how stale a cached ledger screen may be.
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"5m"`
}

// Sanitize applies guardrails to ledger configuration values.
func (c *LedgerConfig) Sanitize() {
	if c.CacheTTL <= 0 {
		c.CacheTTL = 5 * time.Minute
	}
}
