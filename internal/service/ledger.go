package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/subsentry/subsentry-api/internal/core"
	"github.com/subsentry/subsentry-api/internal/data"
	"github.com/subsentry/subsentry-api/internal/domain/model"
	apperrors "github.com/subsentry/subsentry-api/internal/errors"
)

const (
	ledgerCacheKeyPrefix  = "ledger:check:"
	defaultLedgerCacheTTL = 5 * time.Minute
)

// LedgerService screens email hashes against the abuse ledger and books
// reneged debt. Screening is read-through cached: claim batches hit it for
// every pending job.
type LedgerService struct {
	ledger   core.LedgerRepository
	identity core.IdentityRepository
	cache    core.CacheRepository
	cacheTTL time.Duration
	logger   *slog.Logger
}

// LedgerServiceOptions holds dependencies for NewLedgerService.
type LedgerServiceOptions struct {
	Ledger   core.LedgerRepository
	Identity core.IdentityRepository
	Cache    core.CacheRepository
	CacheTTL time.Duration
	Logger   *slog.Logger
}

// NewLedgerService creates a LedgerService.
func NewLedgerService(opts LedgerServiceOptions) *LedgerService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultLedgerCacheTTL
	}
	return &LedgerService{
		ledger:   opts.Ledger,
		identity: opts.Identity,
		cache:    opts.Cache,
		cacheTTL: ttl,
		logger:   logger,
	}
}

// Check reports whether an email hash carries outstanding debt. Any positive
// balance blocks. Cache failures degrade to a direct read.
func (s *LedgerService) Check(ctx context.Context, emailHash string) (*model.LedgerCheck, error) {
	if emailHash == "" {
		return nil, apperrors.Validation("email_hash is required")
	}

	key := ledgerCacheKeyPrefix + emailHash
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key); err == nil && raw != nil {
			var cached model.LedgerCheck
			if unmarshalErr := json.Unmarshal(raw, &cached); unmarshalErr == nil {
				return &cached, nil
			}
		} else if err != nil {
			s.logger.WarnContext(ctx, "ledger cache read failed", "error", err)
		}
	}

	check := &model.LedgerCheck{}
	entry, err := s.ledger.GetByHash(ctx, emailHash)
	switch {
	case apperrors.IsNotFound(err):
		// no entry, clean hash
	case err != nil:
		return nil, err
	default:
		check.DebtSats = entry.TotalDebtSats
		check.Blocked = entry.TotalDebtSats > 0
	}

	if s.cache != nil {
		if raw, marshalErr := json.Marshal(check); marshalErr == nil {
			if setErr := s.cache.Set(ctx, key, raw, s.cacheTTL); setErr != nil {
				s.logger.WarnContext(ctx, "ledger cache write failed", "error", setErr)
			}
		}
	}
	return check, nil
}

// CheckUserService screens the identity a user holds at a service. A user
// with no identity on file passes clean.
func (s *LedgerService) CheckUserService(ctx context.Context, userID, serviceID string) (*model.LedgerCheck, error) {
	hash, err := s.identity.EmailHash(ctx, userID, serviceID)
	if apperrors.IsNotFound(err) {
		return &model.LedgerCheck{}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.Check(ctx, hash)
}

// LedgerHandler books debt when a job completes reneged.
type LedgerHandler struct {
	ledger   core.LedgerRepository
	identity core.IdentityRepository
	cache    core.CacheRepository
	logger   *slog.Logger
}

// LedgerHandlerOptions holds dependencies for NewLedgerHandler.
type LedgerHandlerOptions struct {
	Ledger   core.LedgerRepository
	Identity core.IdentityRepository
	Cache    core.CacheRepository
	Logger   *slog.Logger
}

// NewLedgerHandler creates a LedgerHandler.
func NewLedgerHandler(opts LedgerHandlerOptions) *LedgerHandler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerHandler{
		ledger:   opts.Ledger,
		identity: opts.Identity,
		cache:    opts.Cache,
		logger:   logger,
	}
}

// Name implements TransitionHandler.
func (h *LedgerHandler) Name() string { return "ledger" }

// HandleJobTransitioned implements TransitionHandler. A reneged completion
// with a positive owed amount books the debt against the user's identity at
// the service. Without an identity on file there is nothing to key the
// ledger by, so the booking is skipped rather than failed.
func (h *LedgerHandler) HandleJobTransitioned(ctx context.Context, ev JobTransitioned) error {
	if ev.To != model.JobStatusCompletedReneged {
		return nil
	}
	job := ev.Job
	if job.AmountSats == nil || *job.AmountSats <= 0 {
		return nil
	}

	hash, err := h.identity.EmailHash(ctx, job.UserID, job.ServiceID)
	if apperrors.IsNotFound(err) {
		h.logger.WarnContext(ctx, "reneged job has no identity on file, skipping ledger entry",
			"job_id", job.ID,
			"user_id", job.UserID,
			"service_id", job.ServiceID,
		)
		return nil
	}
	if err != nil {
		return err
	}

	if err := h.ledger.RecordRenegedDebt(ctx, data.RecordRenegedDebtParams{
		JobID:      job.ID,
		UserID:     job.UserID,
		EmailHash:  hash,
		AmountSats: *job.AmountSats,
	}); err != nil {
		return err
	}

	h.logger.InfoContext(ctx, "booked reneged debt",
		"job_id", job.ID,
		"amount_sats", *job.AmountSats,
	)

	if h.cache != nil {
		if _, delErr := h.cache.Delete(ctx, ledgerCacheKeyPrefix+hash); delErr != nil {
			h.logger.WarnContext(ctx, "ledger cache invalidation failed", "error", delErr)
		}
	}
	return nil
}
