// Package config holds the environment-driven configuration of the
// lifecycle engine, loaded with github.com/caarlos0/env. See the individual
// files for each domain's variables:
//   - database.go: PostgreSQL and Redis configuration
//   - http.go: HTTP server configuration
//   - services.go: payments, orchestrator, billing, and claim configuration
//   - observability.go: metrics configuration
package config

import "strings"

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
type AppConfig struct {
	// IsDev controls development mode behavior.
	IsDev bool `env:"DEV" envDefault:"false"`

	// IdentityEncryptionKey decrypts stored service identities. Required in
	// production; the noop cipher is used when left empty in development.
	IdentityEncryptionKey string `env:"IDENTITY_ENCRYPTION_KEY"`

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	HTTP HTTPConfig

	Payments     PaymentsConfig     `envPrefix:"PAYMENTS_"`
	Orchestrator OrchestratorConfig `envPrefix:"ORCHESTRATOR_"`
	Billing      BillingConfig      `envPrefix:"BILLING_"`
	Claims       ClaimsConfig       `envPrefix:"CLAIMS_"`
	Ledger       LedgerConfig       `envPrefix:"LEDGER_"`

	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.IdentityEncryptionKey = strings.TrimSpace(c.IdentityEncryptionKey)
	c.Payments.Sanitize()
	c.Orchestrator.Sanitize()
	c.Billing.Sanitize()
	c.Claims.Sanitize()
	c.Ledger.Sanitize()
	c.Observability.Sanitize()
}
