package config

import (
	"strings"
	"time"
)

// PaymentsConfig configures settlement event ingestion and the payment
// processor API client.
type PaymentsConfig struct {
	// WebhookSecret signs processor event deliveries. Required; without it
	// every event is rejected as unauthorized.
	WebhookSecret string `env:"WEBHOOK_SECRET"`

	// ProcessorBaseURL is the base URL of the processor's invoice API.
	ProcessorBaseURL string `env:"PROCESSOR_BASE_URL"`

	// ProcessorAPIKey authenticates invoice lookups.
	ProcessorAPIKey string `env:"PROCESSOR_API_KEY"`

	// AmountExpr overrides the JMESPath expression used to extract the
	// settled amount from invoice payloads. Empty uses the client default.
	AmountExpr string `env:"AMOUNT_EXPR"`

	// ProcessorTimeout bounds invoice API calls.
	ProcessorTimeout time.Duration `env:"PROCESSOR_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to payments configuration values.
func (c *PaymentsConfig) Sanitize() {
	c.WebhookSecret = strings.TrimSpace(c.WebhookSecret)
	c.ProcessorBaseURL = strings.TrimSpace(c.ProcessorBaseURL)
	c.ProcessorAPIKey = strings.TrimSpace(c.ProcessorAPIKey)
	c.AmountExpr = strings.TrimSpace(c.AmountExpr)
	if c.ProcessorTimeout <= 0 {
		c.ProcessorTimeout = 10 * time.Second
	}
}

// OrchestratorConfig configures the agent orchestrator webhook.
type OrchestratorConfig struct {
	// Enabled controls whether resume notifications are sent at all.
	Enabled bool `env:"ENABLED" envDefault:"false"`

	// WebhookURL receives account resume notifications.
	WebhookURL string `env:"WEBHOOK_URL"`

	// AuthToken is sent as a bearer token on notifications.
	AuthToken string `env:"AUTH_TOKEN"`

	// Timeout bounds each delivery attempt.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"5s"`

	// RetryLimit is the number of re-deliveries after a failed attempt.
	RetryLimit int `env:"RETRY_LIMIT" envDefault:"3"`
}

// Sanitize applies guardrails to orchestrator configuration values.
func (c *OrchestratorConfig) Sanitize() {
	c.WebhookURL = strings.TrimSpace(c.WebhookURL)
	c.AuthToken = strings.TrimSpace(c.AuthToken)
	if c.WebhookURL == "" {
		c.Enabled = false
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.RetryLimit < 0 {
		c.RetryLimit = 0
	}
}

// BillingConfig tunes the billing side effects of completed jobs.
type BillingConfig struct {
	// FallbackAccessDays is the approximate access window granted when a
	// cancel completes without a reported access end date.
	FallbackAccessDays int `env:"FALLBACK_ACCESS_DAYS" envDefault:"14"`

	// ResumeBillingDays is the first billing cycle after a paid resume.
	ResumeBillingDays int `env:"RESUME_BILLING_DAYS" envDefault:"30"`

	// SkipAdvanceDays is how far a skipped cancel pushes the next attempt.
	SkipAdvanceDays int `env:"SKIP_ADVANCE_DAYS" envDefault:"30"`
}

// Sanitize applies guardrails to billing configuration values.
func (c *BillingConfig) Sanitize() {
	if c.FallbackAccessDays <= 0 {
		c.FallbackAccessDays = 14
	}
	if c.ResumeBillingDays <= 0 {
		c.ResumeBillingDays = 30
	}
	if c.SkipAdvanceDays <= 0 {
		c.SkipAdvanceDays = 30
	}
}

// ClaimsConfig tunes claim batch processing.
type ClaimsConfig struct {
	// EnrichConcurrency bounds concurrent rotation lookups per batch.
	EnrichConcurrency int `env:"ENRICH_CONCURRENCY" envDefault:"8"`
}

// Sanitize applies guardrails to claims configuration values.
func (c *ClaimsConfig) Sanitize() {
	if c.EnrichConcurrency <= 0 {
		c.EnrichConcurrency = 8
	}
}
