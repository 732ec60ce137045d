package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subsentry/subsentry-api/internal/domain/model"
)

func TestDispatcher_DeliversToAllHandlers(t *testing.T) {
	first := &recordingHandler{name: "first"}
	second := &recordingHandler{name: "second"}
	d := NewDispatcher(DispatcherOptions{Handlers: []TransitionHandler{first, second}})

	d.Dispatch(context.Background(), JobTransitioned{
		Job:  testJob(model.JobStatusCompletedPaid, model.JobActionCancel),
		From: model.JobStatusActive,
		To:   model.JobStatusCompletedPaid,
	})

	require.Len(t, first.events, 1)
	require.Len(t, second.events, 1)
}

func TestDispatcher_IsolatesHandlerFailure(t *testing.T) {
	failing := &recordingHandler{name: "failing", err: errors.New("boom")}
	healthy := &recordingHandler{name: "healthy"}
	d := NewDispatcher(DispatcherOptions{Handlers: []TransitionHandler{failing, healthy}})

	d.Dispatch(context.Background(), JobTransitioned{
		Job:  testJob(model.JobStatusFailed, model.JobActionCancel),
		From: model.JobStatusActive,
		To:   model.JobStatusFailed,
	})

	// the failure is swallowed; the next handler still runs
	assert.Len(t, failing.events, 1)
	assert.Len(t, healthy.events, 1)
}

func TestDispatcher_NoHandlers(t *testing.T) {
	d := NewDispatcher(DispatcherOptions{})
	d.Dispatch(context.Background(), JobTransitioned{
		Job:  testJob(model.JobStatusFailed, model.JobActionCancel),
		From: model.JobStatusActive,
		To:   model.JobStatusFailed,
	})
}
