// Package service implements the lifecycle engine's business operations on
// top of the data layer.
package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/subsentry/subsentry-api/internal/core"
	"github.com/subsentry/subsentry-api/internal/data"
	jobdomain "github.com/subsentry/subsentry-api/internal/domain/job"
	"github.com/subsentry/subsentry-api/internal/domain/model"
	apperrors "github.com/subsentry/subsentry-api/internal/errors"
	"github.com/subsentry/subsentry-api/internal/observability/metrics"
)

// TransitionService validates and applies job status transitions.
type TransitionService struct {
	jobs       core.JobRepository
	dispatcher *Dispatcher
	metrics    *metrics.Recorder
	logger     *slog.Logger
}

// TransitionServiceOptions holds dependencies for NewTransitionService.
type TransitionServiceOptions struct {
	Jobs       core.JobRepository
	Dispatcher *Dispatcher
	Metrics    *metrics.Recorder
	Logger     *slog.Logger
}

// NewTransitionService creates a TransitionService.
func NewTransitionService(opts TransitionServiceOptions) *TransitionService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &TransitionService{
		jobs:       opts.Jobs,
		dispatcher: opts.Dispatcher,
		metrics:    opts.Metrics,
		logger:     logger,
	}
}

// ChangeStatus moves a job to the requested status. The write is guarded by
// the status the job had when read, so two agents racing on the same job
// resolve to one winner and one Conflict. Side effects run only after the
// transition has committed.
func (s *TransitionService) ChangeStatus(ctx context.Context, jobID string, req *model.ChangeStatusRequest) (*model.Job, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, apperrors.Validationf("malformed job id %q", jobID)
	}
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if !jobdomain.IsAllowed(job.Status, req.Status) {
		return nil, apperrors.InvalidTransitionf("cannot transition from %s to %s", job.Status, req.Status)
	}

	// Default the actor here so every repository implementation records the
	// same value in the history trail.
	changedBy := req.ChangedBy
	if changedBy == "" {
		changedBy = model.ActorAgent
	}

	result, err := s.jobs.UpdateStatus(ctx, data.UpdateStatusParams{
		JobID:     jobID,
		Expected:  job.Status,
		Target:    req.Status,
		Patch:     data.NewJobPatchFromRequest(req),
		ChangedBy: changedBy,
	})
	if err != nil {
		return nil, err
	}

	switch result.Outcome {
	case data.CASApplied:
		// fall through below
	case data.CASConflict:
		current := model.JobStatus("")
		if result.Job != nil {
			current = result.Job.Status
		}
		return nil, apperrors.Conflictf("job %s moved to %s since it was read", jobID, current)
	case data.CASNotFound:
		return nil, apperrors.NotFoundf("job %s not found", jobID)
	}

	updated := result.Job
	s.logger.InfoContext(ctx, "job transitioned",
		"job_id", updated.ID,
		"from", job.Status,
		"to", updated.Status,
		"changed_by", changedBy,
	)
	if s.metrics != nil {
		s.metrics.TransitionApplied(string(job.Status), string(updated.Status))
	}
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(ctx, JobTransitioned{Job: updated, From: job.Status, To: updated.Status})
	}
	return updated, nil
}

// GetJob retrieves a single job by id.
func (s *TransitionService) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, apperrors.Validationf("malformed job id %q", jobID)
	}
	return s.jobs.GetByID(ctx, jobID)
}

// History returns a job's status transition trail.
func (s *TransitionService) History(ctx context.Context, jobID string) ([]*model.StatusHistoryEntry, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, apperrors.Validationf("malformed job id %q", jobID)
	}
	if _, err := s.jobs.GetByID(ctx, jobID); err != nil {
		return nil, err
	}
	return s.jobs.History(ctx, jobID)
}

// Stats returns job counts per lifecycle phase.
func (s *TransitionService) Stats(ctx context.Context) (*model.JobStats, error) {
	return s.jobs.Stats(ctx)
}
