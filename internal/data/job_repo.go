package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/subsentry/subsentry-api/internal/data/pgxutil"
	"github.com/subsentry/subsentry-api/internal/domain/model"
	apperrors "github.com/subsentry/subsentry-api/internal/errors"
)

// RepoConfig holds configuration options shared by the repositories.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// JobRepo provides database operations for lifecycle jobs.
type JobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewJobRepo creates a new JobRepo instance with the given database connection and configuration.
func NewJobRepo(db *sql.DB, cfg RepoConfig) *JobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}

	return &JobRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const jobColumns = `
  id,
  user_id,
  service_id,
  action,
  trigger_type,
  status,
  status_updated_at,
  billing_date,
  access_end_date,
  access_end_date_approximate,
  outreach_count,
  next_outreach_at,
  amount_sats,
  invoice_id,
  email_hash,
  created_at
`

type jobRowScanner interface {
	Scan(dest ...any) error
}

type jobRowData struct {
	billingDate, accessEndDate, nextOutreachAt sql.NullTime
	amountSats                                 sql.NullInt64
	invoiceID, emailHash                       sql.NullString
}

func (d *jobRowData) scanInto(scanner jobRowScanner, job *model.Job) error {
	return scanner.Scan(
		&job.ID,
		&job.UserID,
		&job.ServiceID,
		&job.Action,
		&job.Trigger,
		&job.Status,
		&job.StatusUpdatedAt,
		&d.billingDate,
		&d.accessEndDate,
		&job.AccessEndDateApproximate,
		&job.OutreachCount,
		&d.nextOutreachAt,
		&d.amountSats,
		&d.invoiceID,
		&d.emailHash,
		&job.CreatedAt,
	)
}

func (d *jobRowData) apply(job *model.Job) {
	job.BillingDate = cloneNullableTime(d.billingDate)
	job.AccessEndDate = cloneNullableTime(d.accessEndDate)
	job.NextOutreachAt = cloneNullableTime(d.nextOutreachAt)
	job.AmountSats = cloneNullableInt64(d.amountSats)
	job.InvoiceID = cloneNullableString(d.invoiceID)
	job.EmailHash = cloneNullableString(d.emailHash)
}

func scanJobFromRow(scanner jobRowScanner) (*model.Job, error) {
	job := &model.Job{}
	var data jobRowData
	if err := data.scanInto(scanner, job); err != nil {
		return nil, err
	}

	data.apply(job)
	return job, nil
}

// collectJobFromRows collects a single job from pgx rows using pgx v5 helpers.
func collectJobFromRows(rows pgx.Rows) (*model.Job, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}

	job, err := scanJobFromRow(rows)
	if err != nil {
		return nil, err
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, rowsErr
	}

	return job, nil
}

func collectJobsFromRows(rows pgx.Rows) ([]*model.Job, error) {
	var jobs []*model.Job
	for rows.Next() {
		job, err := scanJobFromRow(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

func cloneNullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func cloneNullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func cloneNullableInt64(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

// GetByID retrieves a job by its ID.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	var job *model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, `
			SELECT `+jobColumns+`
			FROM jobs
			WHERE id = $1
		`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		job, err = collectJobFromRows(rows)
		return err
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("get job: %w", err))
	}
	return job, nil
}

// ListByIDs retrieves the jobs whose ids appear in the given list. Missing
// ids are silently omitted.
func (r *JobRepo) ListByIDs(ctx context.Context, ids []string) ([]*model.Job, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var jobs []*model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, `
			SELECT `+jobColumns+`
			FROM jobs
			WHERE id = ANY($1)
			ORDER BY created_at ASC
		`, ids)
		if err != nil {
			return err
		}
		defer rows.Close()
		jobs, err = collectJobsFromRows(rows)
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("list jobs: %w", err))
	}
	return jobs, nil
}

// Stats returns job counts grouped by lifecycle phase.
func (r *JobRepo) Stats(ctx context.Context) (*model.JobStats, error) {
	var s model.JobStats
	err := r.DB.QueryRowContext(ctx, `
  SELECT
    count(*) FILTER (WHERE status = 'pending')    AS pending,
    count(*) FILTER (WHERE status = 'dispatched') AS dispatched,
    count(*) FILTER (WHERE status IN ('outreach_sent', 'snoozed', 'active', 'awaiting_otp')) AS in_progress,
    count(*) FILTER (WHERE status IN ('completed_paid', 'completed_eventual', 'completed_reneged')) AS completed,
    count(*) FILTER (WHERE status IN ('implied_skip', 'user_skip', 'user_abandon')) AS skipped,
    count(*) FILTER (WHERE status = 'failed')     AS failed
  FROM jobs
  `).Scan(
		&s.Pending,
		&s.Dispatched,
		&s.InProgress,
		&s.Completed,
		&s.Skipped,
		&s.Failed,
	)
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("job stats: %w", err))
	}
	return &s, nil
}

// History returns the status transition trail for a job, oldest first.
func (r *JobRepo) History(ctx context.Context, jobID string) ([]*model.StatusHistoryEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, job_id, from_status, to_status, changed_by, created_at
		FROM status_history
		WHERE job_id = $1
		ORDER BY id ASC
	`, jobID)
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("job history: %w", err))
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			_ = cerr
		}
	}()

	var entries []*model.StatusHistoryEntry
	for rows.Next() {
		var (
			entry model.StatusHistoryEntry
			from  sql.NullString
		)
		if scanErr := rows.Scan(&entry.ID, &entry.JobID, &from, &entry.ToStatus, &entry.ChangedBy, &entry.CreatedAt); scanErr != nil {
			return nil, apperrors.MapDBError(fmt.Errorf("scan history row: %w", scanErr))
		}
		if from.Valid {
			fs := model.JobStatus(from.String)
			entry.FromStatus = &fs
		}
		entries = append(entries, &entry)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("job history rows: %w", rowsErr))
	}
	return entries, nil
}

// SetAccessEndFallback writes a fallback access end date on a job, but only
// when the job does not already carry one.
func (r *JobRepo) SetAccessEndFallback(ctx context.Context, jobID string, date time.Time, approximate bool) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET access_end_date = $2,
		    access_end_date_approximate = $3
		WHERE id = $1 AND access_end_date IS NULL
	`, jobID, date.UTC(), approximate)
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("set access end fallback: %w", err))
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}
