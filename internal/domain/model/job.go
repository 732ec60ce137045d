// Package model defines the core data types for the subsentry job lifecycle engine.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobAction represents what the agent is asked to do with a subscription.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobAction string

// JobTrigger represents how the job was created.
type JobTrigger string

// JobStatus represents where a job sits in its lifecycle.
type JobStatus string

const (
	// JobActionCancel requests cancellation of a subscription.
	JobActionCancel JobAction = "cancel"
	// JobActionResume requests reactivation of a previously cancelled subscription.
	JobActionResume JobAction = "resume"

	// JobTriggerScheduled marks jobs created by the rotation scheduler.
	JobTriggerScheduled JobTrigger = "scheduled"
	// JobTriggerOnDemand marks jobs requested directly by a user.
	JobTriggerOnDemand JobTrigger = "on_demand"

	// JobStatusPending indicates a job is waiting to be claimed by an agent.
	JobStatusPending JobStatus = "pending"
	// JobStatusDispatched indicates an agent has claimed the job.
	JobStatusDispatched JobStatus = "dispatched"
	// JobStatusOutreachSent indicates the agent has contacted the user.
	JobStatusOutreachSent JobStatus = "outreach_sent"
	// JobStatusSnoozed indicates the user deferred the job for later redispatch.
	JobStatusSnoozed JobStatus = "snoozed"
	// JobStatusActive indicates the agent is working the subscription flow.
	JobStatusActive JobStatus = "active"
	// JobStatusAwaitingOTP indicates the flow is blocked on a one-time passcode.
	JobStatusAwaitingOTP JobStatus = "awaiting_otp"
	// JobStatusImpliedSkip indicates the job was dropped without user input.
	JobStatusImpliedSkip JobStatus = "implied_skip"
	// JobStatusUserSkip indicates the user declined this rotation cycle.
	JobStatusUserSkip JobStatus = "user_skip"
	// JobStatusUserAbandon indicates the user walked away mid-flow.
	JobStatusUserAbandon JobStatus = "user_abandon"
	// JobStatusCompletedPaid indicates the action completed with payment settled.
	JobStatusCompletedPaid JobStatus = "completed_paid"
	// JobStatusCompletedEventual indicates completion with payment expected later.
	JobStatusCompletedEventual JobStatus = "completed_eventual"
	// JobStatusCompletedReneged indicates completion with an owed, uncollected amount.
	JobStatusCompletedReneged JobStatus = "completed_reneged"
	// JobStatusFailed indicates the job failed and will not be retried.
	JobStatusFailed JobStatus = "failed"
)

// UnmarshalText implements encoding.TextUnmarshaler for JobAction to allow env parsing.
func (a *JobAction) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	ja := JobAction(v)
	if ja.Valid() {
		*a = ja
		return nil
	}
	return fmt.Errorf("invalid JobAction: %q", v)
}

// Valid returns true if the JobAction is valid.
func (a JobAction) Valid() bool {
	return a == JobActionCancel || a == JobActionResume
}

// Valid returns true if the JobTrigger is valid.
func (t JobTrigger) Valid() bool {
	return t == JobTriggerScheduled || t == JobTriggerOnDemand
}

// AllJobStatuses lists every status a job row may carry.
var AllJobStatuses = []JobStatus{
	JobStatusPending,
	JobStatusDispatched,
	JobStatusOutreachSent,
	JobStatusSnoozed,
	JobStatusActive,
	JobStatusAwaitingOTP,
	JobStatusImpliedSkip,
	JobStatusUserSkip,
	JobStatusUserAbandon,
	JobStatusCompletedPaid,
	JobStatusCompletedEventual,
	JobStatusCompletedReneged,
	JobStatusFailed,
}

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	for _, st := range AllJobStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// PaidCompletion returns true for the completion statuses that settle the
// subscription action (paid now, paid eventually, or reneged).
func (s JobStatus) PaidCompletion() bool {
	return s == JobStatusCompletedPaid ||
		s == JobStatusCompletedEventual ||
		s == JobStatusCompletedReneged
}

// Job represents one requested cancel/resume action for a (user, service) pair.
// Rows are never deleted; they form the financial audit record.
type Job struct {
	ID                       string     `json:"id"                          db:"id"`
	UserID                   string     `json:"user_id"                     db:"user_id"`
	ServiceID                string     `json:"service_id"                  db:"service_id"`
	Action                   JobAction  `json:"action"                      db:"action"`
	Trigger                  JobTrigger `json:"trigger"                     db:"trigger_type"`
	Status                   JobStatus  `json:"status"                      db:"status"`
	StatusUpdatedAt          time.Time  `json:"status_updated_at"           db:"status_updated_at"`
	BillingDate              *time.Time `json:"billing_date,omitempty"      db:"billing_date"`
	AccessEndDate            *time.Time `json:"access_end_date,omitempty"   db:"access_end_date"`
	AccessEndDateApproximate bool       `json:"access_end_date_approximate" db:"access_end_date_approximate"`
	OutreachCount            int        `json:"outreach_count"              db:"outreach_count"`
	NextOutreachAt           *time.Time `json:"next_outreach_at,omitempty"  db:"next_outreach_at"`
	AmountSats               *int64     `json:"amount_sats,omitempty"       db:"amount_sats"`
	InvoiceID                *string    `json:"invoice_id,omitempty"        db:"invoice_id"`
	EmailHash                *string    `json:"email_hash,omitempty"        db:"email_hash"`
	CreatedAt                time.Time  `json:"created_at"                  db:"created_at"`
}

// ClaimedJob is a Job enriched with the rotation plan consumers need to
// drive a resume flow. PlanID and PlanName are only set for resume jobs.
type ClaimedJob struct {
	Job
	PlanID   *string `json:"plan_id,omitempty"`
	PlanName *string `json:"plan_name,omitempty"`
}

// ChangeStatusRequest carries a requested transition plus optional field updates.
type ChangeStatusRequest struct {
	Status         JobStatus  `json:"status"`
	NextOutreachAt *time.Time `json:"next_outreach_at,omitempty"`
	OutreachCount  *int       `json:"outreach_count,omitempty"`
	AccessEndDate  *time.Time `json:"access_end_date,omitempty"`
	AmountSats     *int64     `json:"amount_sats,omitempty"`
	BillingDate    *time.Time `json:"billing_date,omitempty"`
	// ChangedBy identifies the actor for the status history entry.
	// Defaults to "agent" when empty.
	ChangedBy string `json:"changed_by,omitempty"`
}

// Validate validates the ChangeStatusRequest fields. It runs before any
// store access so malformed input never reaches a transaction.
func (r *ChangeStatusRequest) Validate() error {
	if r.Status == "" {
		return errors.New("status is required")
	}
	if !r.Status.Valid() {
		return fmt.Errorf("unknown status %q", r.Status)
	}
	if r.AmountSats != nil && *r.AmountSats <= 0 {
		return errors.New("amount_sats must be a positive integer")
	}
	if r.OutreachCount != nil && *r.OutreachCount < 0 {
		return errors.New("outreach_count must be >= 0")
	}
	return nil
}

// MaxClaimBatchSize bounds a single claim request.
const MaxClaimBatchSize = 100

// ClaimRequest is a batch of job ids an agent wants to take ownership of.
type ClaimRequest struct {
	JobIDs []string `json:"job_ids"`
}

// Validate checks batch bounds and id well-formedness. It reports every
// malformed id so the caller can fix the whole batch at once.
func (r *ClaimRequest) Validate() error {
	if len(r.JobIDs) == 0 {
		return errors.New("job_ids is required")
	}
	if len(r.JobIDs) > MaxClaimBatchSize {
		return fmt.Errorf("job_ids exceeds maximum batch size of %d", MaxClaimBatchSize)
	}

	var malformed []string
	for _, id := range r.JobIDs {
		if _, err := uuid.Parse(id); err != nil {
			malformed = append(malformed, id)
		}
	}
	if len(malformed) > 0 {
		return fmt.Errorf("malformed job ids: %s", strings.Join(malformed, ", "))
	}
	return nil
}

// ClaimResult is the outcome of a claim batch. An empty Claimed list is
// success, not an error: every requested id was blocked or already taken.
type ClaimResult struct {
	Claimed []*ClaimedJob `json:"claimed"`
	Blocked []string      `json:"blocked,omitempty"`
}

// JobStats counts jobs per lifecycle phase.
type JobStats struct {
	Pending    int `json:"pending"`
	Dispatched int `json:"dispatched"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}
