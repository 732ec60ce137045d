// Package testutil provides testing utilities and helpers for the subsentry job system.
package testutil

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/subsentry/subsentry-api/internal/domain/model"
)

// JobSeedBuilder provides a fluent interface for seeding job rows for tests.
// Jobs enter the system through the rotation scheduler, not an API, so tests
// insert them directly.
type JobSeedBuilder struct {
	job model.Job
}

// NewJobSeed creates a JobSeedBuilder with sensible defaults: a pending
// scheduled cancel job for a fresh user and service.
func NewJobSeed() *JobSeedBuilder {
	return &JobSeedBuilder{
		job: model.Job{
			ID:        uuid.NewString(),
			UserID:    uuid.NewString(),
			ServiceID: uuid.NewString(),
			Action:    model.JobActionCancel,
			Trigger:   model.JobTriggerScheduled,
			Status:    model.JobStatusPending,
		},
	}
}

// WithID sets the job id.
func (b *JobSeedBuilder) WithID(id string) *JobSeedBuilder {
	b.job.ID = id
	return b
}

// WithUser sets the user id.
func (b *JobSeedBuilder) WithUser(userID string) *JobSeedBuilder {
	b.job.UserID = userID
	return b
}

// WithService sets the service id.
func (b *JobSeedBuilder) WithService(serviceID string) *JobSeedBuilder {
	b.job.ServiceID = serviceID
	return b
}

// WithAction sets the job action.
func (b *JobSeedBuilder) WithAction(action model.JobAction) *JobSeedBuilder {
	b.job.Action = action
	return b
}

// WithTrigger sets the trigger type.
func (b *JobSeedBuilder) WithTrigger(trigger model.JobTrigger) *JobSeedBuilder {
	b.job.Trigger = trigger
	return b
}

// WithStatus sets the job status.
func (b *JobSeedBuilder) WithStatus(status model.JobStatus) *JobSeedBuilder {
	b.job.Status = status
	return b
}

// WithAccessEndDate sets the access end date.
func (b *JobSeedBuilder) WithAccessEndDate(date time.Time, approximate bool) *JobSeedBuilder {
	d := date.UTC()
	b.job.AccessEndDate = &d
	b.job.AccessEndDateApproximate = approximate
	return b
}

// WithEmailHash sets the email hash.
func (b *JobSeedBuilder) WithEmailHash(hash string) *JobSeedBuilder {
	b.job.EmailHash = &hash
	return b
}

// WithAmountSats sets the job amount.
func (b *JobSeedBuilder) WithAmountSats(sats int64) *JobSeedBuilder {
	b.job.AmountSats = &sats
	return b
}

// Build returns the assembled job without touching the database.
func (b *JobSeedBuilder) Build() model.Job {
	return b.job
}

// Insert writes the job (and its owning account, if missing) to the database
// and returns the seeded job.
func (b *JobSeedBuilder) Insert(t TestingTB, db *sql.DB) model.Job {
	t.Helper()

	SeedAccount(t, db, b.job.UserID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := db.ExecContext(ctx, `
		INSERT INTO jobs (
			id, user_id, service_id, action, trigger_type, status,
			access_end_date, access_end_date_approximate,
			outreach_count, amount_sats, email_hash
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		b.job.ID, b.job.UserID, b.job.ServiceID, b.job.Action, b.job.Trigger, b.job.Status,
		b.job.AccessEndDate, b.job.AccessEndDateApproximate,
		b.job.OutreachCount, b.job.AmountSats, b.job.EmailHash,
	)
	if err != nil {
		t.Fatalf("Failed to seed job %s: %v", b.job.ID, err)
	}
	return b.job
}

// SeedAccount inserts an active account row if one does not exist yet.
func SeedAccount(t TestingTB, db *sql.DB, userID string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, `
		INSERT INTO accounts (id, status)
		VALUES ($1, 'active')
		ON CONFLICT (id) DO NOTHING
	`, userID); err != nil {
		t.Fatalf("Failed to seed account %s: %v", userID, err)
	}
}

// SeedRotationEntry inserts a rotation queue row for the given user/service.
func SeedRotationEntry(t TestingTB, db *sql.DB, entry model.RotationQueueEntry) {
	t.Helper()

	SeedAccount(t, db, entry.UserID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, `
		INSERT INTO rotation_queue (user_id, service_id, position, plan_id, plan_name, price_sats, next_billing_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.UserID, entry.ServiceID, entry.Position, entry.PlanID, entry.PlanName, entry.PriceSats, entry.NextBillingDate); err != nil {
		t.Fatalf("Failed to seed rotation entry %s/%s: %v", entry.UserID, entry.ServiceID, err)
	}
}
