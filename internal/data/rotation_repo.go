package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/subsentry/subsentry-api/internal/domain/model"
	apperrors "github.com/subsentry/subsentry-api/internal/errors"
)

// RotationRepo provides database operations for the per-user rotation queue
// of subscriptions.
type RotationRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewRotationRepo creates a new RotationRepo.
func NewRotationRepo(db *sql.DB, cfg RepoConfig) *RotationRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &RotationRepo{DB: db, timeProvider: tp, logger: cfg.Logger}
}

const rotationColumns = `
  user_id,
  service_id,
  position,
  plan_id,
  plan_name,
  price_sats,
  next_billing_date
`

func scanRotationRow(scanner interface{ Scan(dest ...any) error }) (*model.RotationQueueEntry, error) {
	var (
		entry           model.RotationQueueEntry
		planID          sql.NullString
		planName        sql.NullString
		priceSats       sql.NullInt64
		nextBillingDate sql.NullTime
	)
	if err := scanner.Scan(
		&entry.UserID,
		&entry.ServiceID,
		&entry.Position,
		&planID,
		&planName,
		&priceSats,
		&nextBillingDate,
	); err != nil {
		return nil, err
	}
	entry.PlanID = cloneNullableString(planID)
	entry.PlanName = cloneNullableString(planName)
	entry.PriceSats = cloneNullableInt64(priceSats)
	entry.NextBillingDate = cloneNullableTime(nextBillingDate)
	return &entry, nil
}

// Get retrieves the rotation entry for a (user, service) pair.
func (r *RotationRepo) Get(ctx context.Context, userID, serviceID string) (*model.RotationQueueEntry, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+rotationColumns+`
		FROM rotation_queue
		WHERE user_id = $1 AND service_id = $2
	`, userID, serviceID)

	entry, err := scanRotationRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("rotation entry for user %s service %s not found", userID, serviceID)
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("get rotation entry: %w", err))
	}
	return entry, nil
}

// ClearNextBillingDate unsets the billing schedule for a rotation entry.
// A cancelled subscription has no upcoming charge.
func (r *RotationRepo) ClearNextBillingDate(ctx context.Context, userID, serviceID string) error {
	if _, err := r.DB.ExecContext(ctx, `
		UPDATE rotation_queue
		SET next_billing_date = NULL
		WHERE user_id = $1 AND service_id = $2
	`, userID, serviceID); err != nil {
		return apperrors.MapDBError(fmt.Errorf("clear next billing date: %w", err))
	}
	return nil
}

// SetNextBillingDate writes an absolute billing date for a rotation entry.
func (r *RotationRepo) SetNextBillingDate(ctx context.Context, userID, serviceID string, date time.Time) error {
	if _, err := r.DB.ExecContext(ctx, `
		UPDATE rotation_queue
		SET next_billing_date = $3
		WHERE user_id = $1 AND service_id = $2
	`, userID, serviceID, date.UTC()); err != nil {
		return apperrors.MapDBError(fmt.Errorf("set next billing date: %w", err))
	}
	return nil
}

// AdvanceNextBillingDate pushes the billing date forward by the given number
// of days. An unset date advances from today, so a skipped cycle still lands
// a concrete next charge.
func (r *RotationRepo) AdvanceNextBillingDate(ctx context.Context, userID, serviceID string, days int) error {
	if _, err := r.DB.ExecContext(ctx, `
		UPDATE rotation_queue
		SET next_billing_date = COALESCE(next_billing_date, $3::timestamptz) + make_interval(days => $4)
		WHERE user_id = $1 AND service_id = $2
	`, userID, serviceID, r.timeProvider.Now().UTC(), days); err != nil {
		return apperrors.MapDBError(fmt.Errorf("advance next billing date: %w", err))
	}
	return nil
}

// NextQueued returns the user's lowest-position rotation entry, the one the
// engine would resume next. Returns NotFound when the queue is empty.
func (r *RotationRepo) NextQueued(ctx context.Context, userID string) (*model.RotationQueueEntry, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+rotationColumns+`
		FROM rotation_queue
		WHERE user_id = $1
		ORDER BY position ASC
		LIMIT 1
	`, userID)

	entry, err := scanRotationRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("rotation queue for user %s is empty", userID)
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("next queued rotation entry: %w", err))
	}
	return entry, nil
}
