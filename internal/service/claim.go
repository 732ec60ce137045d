package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/subsentry/subsentry-api/internal/core"
	"github.com/subsentry/subsentry-api/internal/domain/model"
	apperrors "github.com/subsentry/subsentry-api/internal/errors"
	"github.com/subsentry/subsentry-api/internal/observability/metrics"
)

const defaultEnrichConcurrency = 8

// ClaimService hands batches of pending jobs to agents. Claims are screened
// against the abuse ledger first and applied with a conditional bulk update,
// so concurrent agents partition a contested batch instead of double-working it.
type ClaimService struct {
	jobs              core.JobRepository
	rotation          core.RotationRepository
	ledger            *LedgerService
	metrics           *metrics.Recorder
	enrichConcurrency int
	logger            *slog.Logger
}

// ClaimServiceOptions holds dependencies for NewClaimService.
type ClaimServiceOptions struct {
	Jobs              core.JobRepository
	Rotation          core.RotationRepository
	Ledger            *LedgerService
	Metrics           *metrics.Recorder
	EnrichConcurrency int
	Logger            *slog.Logger
}

// NewClaimService creates a ClaimService.
func NewClaimService(opts ClaimServiceOptions) *ClaimService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := opts.EnrichConcurrency
	if concurrency <= 0 {
		concurrency = defaultEnrichConcurrency
	}
	return &ClaimService{
		jobs:              opts.Jobs,
		rotation:          opts.Rotation,
		ledger:            opts.Ledger,
		metrics:           opts.Metrics,
		enrichConcurrency: concurrency,
		logger:            logger,
	}
}

// Claim screens and dispatches the requested jobs. Ids that are missing, no
// longer pending, or blocked by the ledger simply do not come back claimed;
// an empty result is a valid outcome, not an error.
func (s *ClaimService) Claim(ctx context.Context, req *model.ClaimRequest) (*model.ClaimResult, error) {
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	candidates, err := s.jobs.ListByIDs(ctx, req.JobIDs)
	if err != nil {
		return nil, err
	}

	claimable, blocked, err := s.screen(ctx, candidates)
	if err != nil {
		return nil, err
	}

	result := &model.ClaimResult{Blocked: blocked}
	if len(claimable) > 0 {
		claimed, claimErr := s.jobs.ClaimPending(ctx, claimable, model.ActorAgent)
		if claimErr != nil {
			return nil, claimErr
		}
		if result.Claimed, err = s.enrich(ctx, claimed); err != nil {
			return nil, err
		}
	}

	s.logger.InfoContext(ctx, "claim batch processed",
		"requested", len(req.JobIDs),
		"claimed", len(result.Claimed),
		"blocked", len(result.Blocked),
	)
	s.metrics.ClaimProcessed(len(result.Claimed), len(result.Blocked))
	return result, nil
}

// screen partitions pending candidates into claimable ids and ledger-blocked
// ids. Blocked jobs stay pending; they are re-screened on the next claim.
func (s *ClaimService) screen(ctx context.Context, candidates []*model.Job) ([]string, []string, error) {
	var claimable, blocked []string
	for _, job := range candidates {
		if job.Status != model.JobStatusPending {
			continue
		}
		check, err := s.ledger.CheckUserService(ctx, job.UserID, job.ServiceID)
		if err != nil {
			return nil, nil, err
		}
		if check.Blocked {
			blocked = append(blocked, job.ID)
			continue
		}
		claimable = append(claimable, job.ID)
	}
	return claimable, blocked, nil
}

// enrich attaches rotation plan details to resume jobs so agents know what
// plan to reinstate. Lookups fan out with bounded concurrency.
func (s *ClaimService) enrich(ctx context.Context, claimed []*model.Job) ([]*model.ClaimedJob, error) {
	out := make([]*model.ClaimedJob, len(claimed))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.enrichConcurrency)
	for i, job := range claimed {
		g.Go(func() error {
			cj := &model.ClaimedJob{Job: *job}
			if job.Action == model.JobActionResume {
				entry, err := s.rotation.Get(gctx, job.UserID, job.ServiceID)
				switch {
				case apperrors.IsNotFound(err):
					// resume without a rotation entry ships without plan details
				case err != nil:
					return err
				default:
					cj.PlanID = entry.PlanID
					cj.PlanName = entry.PlanName
				}
			}
			out[i] = cj
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
