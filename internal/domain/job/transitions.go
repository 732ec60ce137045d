// Package job holds the lifecycle rules for subscription jobs: the status
// state machine and the helpers the concurrency controller validates against.
package job

import "github.com/subsentry/subsentry-api/internal/domain/model"

// transitions is the static adjacency set of the job state machine.
// A status missing from a target list is unreachable from that source,
// and a status with an empty target list is terminal. Every non-terminal
// status may move to failed.
var transitions = map[model.JobStatus][]model.JobStatus{
	model.JobStatusPending: {
		model.JobStatusDispatched,
		model.JobStatusFailed,
	},
	model.JobStatusDispatched: {
		model.JobStatusOutreachSent,
		model.JobStatusActive,
		model.JobStatusImpliedSkip,
		model.JobStatusFailed,
	},
	model.JobStatusOutreachSent: {
		model.JobStatusSnoozed,
		model.JobStatusActive,
		model.JobStatusUserSkip,
		model.JobStatusFailed,
	},
	model.JobStatusSnoozed: {
		model.JobStatusDispatched,
		model.JobStatusFailed,
	},
	model.JobStatusActive: {
		model.JobStatusAwaitingOTP,
		model.JobStatusCompletedPaid,
		model.JobStatusCompletedEventual,
		model.JobStatusCompletedReneged,
		model.JobStatusFailed,
	},
	model.JobStatusAwaitingOTP: {
		model.JobStatusActive,
		model.JobStatusUserAbandon,
		model.JobStatusCompletedPaid,
		model.JobStatusCompletedEventual,
		model.JobStatusCompletedReneged,
		model.JobStatusFailed,
	},
	model.JobStatusImpliedSkip:       {},
	model.JobStatusUserSkip:          {},
	model.JobStatusUserAbandon:       {},
	model.JobStatusCompletedPaid:     {},
	model.JobStatusCompletedEventual: {},
	model.JobStatusCompletedReneged:  {},
	model.JobStatusFailed:            {},
}

// IsAllowed reports whether moving from current to next is a legal
// transition. Any request on a terminal status is rejected here, before
// any mutation is attempted.
func IsAllowed(current, next model.JobStatus) bool {
	for _, target := range transitions[current] {
		if target == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status has no outgoing edges. Once a job
// reaches a terminal status it never changes again.
func IsTerminal(s model.JobStatus) bool {
	targets, ok := transitions[s]
	return ok && len(targets) == 0
}

// AllowedTargets returns a copy of the legal next statuses for the given
// status. The slice is empty for terminal and unknown statuses.
func AllowedTargets(s model.JobStatus) []model.JobStatus {
	return append([]model.JobStatus(nil), transitions[s]...)
}
