package service

import (
	"context"
	"log/slog"

	"github.com/subsentry/subsentry-api/internal/domain/model"
)

// JobTransitioned is emitted after a status change has committed.
type JobTransitioned struct {
	Job  *model.Job
	From model.JobStatus
	To   model.JobStatus
}

// TransitionHandler reacts to committed status changes. Handlers run after
// the primary write, so a handler failure never rolls the transition back.
type TransitionHandler interface {
	Name() string
	HandleJobTransitioned(ctx context.Context, ev JobTransitioned) error
}

// Dispatcher fans a committed transition out to its handlers. Each handler
// is isolated: one failing does not stop the others.
type Dispatcher struct {
	handlers []TransitionHandler
	logger   *slog.Logger
}

// DispatcherOptions holds dependencies for NewDispatcher.
type DispatcherOptions struct {
	Handlers []TransitionHandler
	Logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{handlers: opts.Handlers, logger: logger}
}

// Dispatch delivers the event to every handler. Failures are logged and
// swallowed; the job row already reflects the new status.
func (d *Dispatcher) Dispatch(ctx context.Context, ev JobTransitioned) {
	for _, h := range d.handlers {
		if err := h.HandleJobTransitioned(ctx, ev); err != nil {
			d.logger.ErrorContext(ctx, "transition handler failed",
				"handler", h.Name(),
				"job_id", ev.Job.ID,
				"from", ev.From,
				"to", ev.To,
				"error", err,
			)
		}
	}
}
