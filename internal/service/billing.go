package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/subsentry/subsentry-api/internal/core"
	"github.com/subsentry/subsentry-api/internal/domain/model"
)

// Billing schedule defaults, in days.
const (
	defaultFallbackAccessDays = 14
	defaultResumeBillingDays  = 30
	defaultSkipAdvanceDays    = 30
)

// BillingRules tunes how terminal transitions reshape the rotation schedule.
type BillingRules struct {
	// FallbackAccessDays is the assumed remaining access window after a
	// cancellation when the service did not report an end date.
	FallbackAccessDays int
	// ResumeBillingDays is the first billing horizon after a resume.
	ResumeBillingDays int
	// SkipAdvanceDays is how far a skipped cycle pushes the next charge.
	SkipAdvanceDays int
}

func (r BillingRules) withDefaults() BillingRules {
	if r.FallbackAccessDays <= 0 {
		r.FallbackAccessDays = defaultFallbackAccessDays
	}
	if r.ResumeBillingDays <= 0 {
		r.ResumeBillingDays = defaultResumeBillingDays
	}
	if r.SkipAdvanceDays <= 0 {
		r.SkipAdvanceDays = defaultSkipAdvanceDays
	}
	return r
}

// BillingHandler applies the rotation-schedule consequences of a committed
// transition: cancellations clear the upcoming charge, resumes schedule one,
// skips push it out.
type BillingHandler struct {
	jobs     core.JobRepository
	rotation core.RotationRepository
	rules    BillingRules
	now      func() time.Time
	logger   *slog.Logger
}

// BillingHandlerOptions holds dependencies for NewBillingHandler.
type BillingHandlerOptions struct {
	Jobs     core.JobRepository
	Rotation core.RotationRepository
	Rules    BillingRules
	Now      func() time.Time
	Logger   *slog.Logger
}

// NewBillingHandler creates a BillingHandler.
func NewBillingHandler(opts BillingHandlerOptions) *BillingHandler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &BillingHandler{
		jobs:     opts.Jobs,
		rotation: opts.Rotation,
		rules:    opts.Rules.withDefaults(),
		now:      now,
		logger:   logger,
	}
}

// Name implements TransitionHandler.
func (h *BillingHandler) Name() string { return "billing" }

// HandleJobTransitioned implements TransitionHandler.
func (h *BillingHandler) HandleJobTransitioned(ctx context.Context, ev JobTransitioned) error {
	job := ev.Job

	switch {
	case ev.To.PaidCompletion() && job.Action == model.JobActionCancel:
		return h.settleCancel(ctx, job)
	case ev.To.PaidCompletion() && job.Action == model.JobActionResume:
		next := h.now().AddDate(0, 0, h.rules.ResumeBillingDays)
		return h.rotation.SetNextBillingDate(ctx, job.UserID, job.ServiceID, next)
	case (ev.To == model.JobStatusUserSkip || ev.To == model.JobStatusImpliedSkip) && job.Action == model.JobActionCancel:
		return h.rotation.AdvanceNextBillingDate(ctx, job.UserID, job.ServiceID, h.rules.SkipAdvanceDays)
	}
	// failed and mid-flow statuses leave the schedule alone
	return nil
}

func (h *BillingHandler) settleCancel(ctx context.Context, job *model.Job) error {
	if err := h.rotation.ClearNextBillingDate(ctx, job.UserID, job.ServiceID); err != nil {
		return err
	}

	if job.AccessEndDate != nil {
		return nil
	}

	// The service did not report when access ends; assume a short window so
	// downstream scheduling has something to work from. The write is guarded
	// in SQL, so a concurrent exact date always wins.
	fallback := h.now().AddDate(0, 0, h.rules.FallbackAccessDays)
	applied, err := h.jobs.SetAccessEndFallback(ctx, job.ID, fallback, true)
	if err != nil {
		return err
	}
	if applied {
		h.logger.InfoContext(ctx, "applied access end fallback",
			"job_id", job.ID,
			"access_end_date", fallback,
		)
	}
	return nil
}
