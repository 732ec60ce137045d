package bootstrap

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/subsentry/subsentry-api/config"
	"github.com/subsentry/subsentry-api/internal/adapters/orchestrator"
	"github.com/subsentry/subsentry-api/internal/adapters/processor"
	"github.com/subsentry/subsentry-api/internal/core"
	"github.com/subsentry/subsentry-api/internal/data"
	"github.com/subsentry/subsentry-api/internal/observability/metrics"
	"github.com/subsentry/subsentry-api/internal/observability/statsd"
	"github.com/subsentry/subsentry-api/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Transitions *service.TransitionService
	Claims      *service.ClaimService
	Payments    *service.PaymentsService
	Ledger      *service.LedgerService

	Metrics     *metrics.Recorder
	MetricsSink *statsd.Client
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	Jobs     *data.JobRepo
	Rotation *data.RotationRepo
	Ledger   *data.LedgerRepo
	Identity *data.IdentityRepo
	Payments *data.PaymentRepo
	Cache    *data.RedisCacheRepo
}

// NewServices wires repositories, adapters, and services.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return nil, errors.New("service dependencies are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	repos := buildRepositories(deps, logger)
	recorder, sink := buildMetrics(logger, cfg.Observability.Metrics)

	var cache core.CacheRepository
	if repos.Cache != nil {
		cache = repos.Cache
	}

	ledgerSvc := service.NewLedgerService(service.LedgerServiceOptions{
		Ledger:   repos.Ledger,
		Identity: repos.Identity,
		Cache:    cache,
		CacheTTL: cfg.Ledger.CacheTTL,
		Logger:   logger,
	})

	dispatcher := service.NewDispatcher(service.DispatcherOptions{
		Handlers: []service.TransitionHandler{
			service.NewBillingHandler(service.BillingHandlerOptions{
				Jobs:     repos.Jobs,
				Rotation: repos.Rotation,
				Rules: service.BillingRules{
					FallbackAccessDays: cfg.Billing.FallbackAccessDays,
					ResumeBillingDays:  cfg.Billing.ResumeBillingDays,
					SkipAdvanceDays:    cfg.Billing.SkipAdvanceDays,
				},
				Logger: logger,
			}),
			service.NewLedgerHandler(service.LedgerHandlerOptions{
				Ledger:   repos.Ledger,
				Identity: repos.Identity,
				Cache:    cache,
				Logger:   logger,
			}),
		},
		Logger: logger,
	})

	transitions := service.NewTransitionService(service.TransitionServiceOptions{
		Jobs:       repos.Jobs,
		Dispatcher: dispatcher,
		Metrics:    recorder,
		Logger:     logger,
	})

	claims := service.NewClaimService(service.ClaimServiceOptions{
		Jobs:              repos.Jobs,
		Rotation:          repos.Rotation,
		Ledger:            ledgerSvc,
		Metrics:           recorder,
		EnrichConcurrency: cfg.Claims.EnrichConcurrency,
		Logger:            logger,
	})

	payments, err := buildPaymentsService(cfg, repos, recorder, logger)
	if err != nil {
		return nil, err
	}

	return &ServiceContainer{
		Transitions: transitions,
		Claims:      claims,
		Payments:    payments,
		Ledger:      ledgerSvc,
		Metrics:     recorder,
		MetricsSink: sink,
	}, nil
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(deps *ServiceDeps, logger *slog.Logger) *serviceRepositories {
	repoCfg := data.RepoConfig{Logger: logger}
	encryptor := CreateEncryptor(deps.Config.IdentityEncryptionKey, logger)

	repos := &serviceRepositories{
		Jobs:     data.NewJobRepo(deps.DB, repoCfg),
		Rotation: data.NewRotationRepo(deps.DB, repoCfg),
		Ledger:   data.NewLedgerRepo(deps.DB, repoCfg),
		Identity: data.NewIdentityRepo(deps.DB, encryptor),
		Payments: data.NewPaymentRepo(deps.DB, repoCfg),
	}
	if deps.RedisClient != nil {
		repos.Cache = data.NewRedisCacheRepo(deps.RedisClient)
	}
	return repos
}

// buildMetrics configures the StatsD sink and the job metrics recorder.
func buildMetrics(logger *slog.Logger, cfg config.ObservabilityMetricsConfig) (*metrics.Recorder, *statsd.Client) {
	if !cfg.IsEnabled() {
		return nil, nil
	}

	sink, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  "subsentry",
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil, nil
	}
	return metrics.NewRecorder(sink), sink
}

func buildPaymentsService(
	cfg *config.AppConfig,
	repos *serviceRepositories,
	recorder *metrics.Recorder,
	logger *slog.Logger,
) (*service.PaymentsService, error) {
	if cfg.Payments.ProcessorBaseURL == "" {
		return nil, errors.New("payments processor base url is required")
	}

	invoices, err := processor.NewClient(processor.Config{
		BaseURL:    cfg.Payments.ProcessorBaseURL,
		APIKey:     cfg.Payments.ProcessorAPIKey,
		AmountExpr: cfg.Payments.AmountExpr,
		Timeout:    cfg.Payments.ProcessorTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("build processor client: %w", err)
	}

	var notifier core.ResumeNotifier
	if cfg.Orchestrator.Enabled {
		client, nerr := orchestrator.NewClient(orchestrator.Config{
			WebhookURL: cfg.Orchestrator.WebhookURL,
			AuthToken:  cfg.Orchestrator.AuthToken,
			Timeout:    cfg.Orchestrator.Timeout,
			RetryLimit: cfg.Orchestrator.RetryLimit,
		})
		if nerr != nil {
			return nil, fmt.Errorf("build orchestrator client: %w", nerr)
		}
		notifier = client
	}

	if cfg.Payments.WebhookSecret == "" {
		logger.Warn("payments webhook secret is empty, every event delivery will be rejected")
	}

	return service.NewPaymentsService(service.PaymentsServiceOptions{
		Payments:      repos.Payments,
		Rotation:      repos.Rotation,
		Invoices:      invoices,
		Notifier:      notifier,
		WebhookSecret: cfg.Payments.WebhookSecret,
		Metrics:       recorder,
		Logger:        logger,
	}), nil
}
