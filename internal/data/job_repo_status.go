package data

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/subsentry/subsentry-api/internal/data/pgxutil"
	"github.com/subsentry/subsentry-api/internal/domain/model"
	apperrors "github.com/subsentry/subsentry-api/internal/errors"
)

// CASOutcome classifies the result of a compare-and-set status update.
type CASOutcome int

const (
	// CASApplied means the row matched the expected status and was updated.
	CASApplied CASOutcome = iota
	// CASConflict means the row exists but its status moved since it was read.
	CASConflict
	// CASNotFound means no row with the given id exists.
	CASNotFound
)

// CASResult reports the outcome of UpdateStatus. Job holds the updated row
// on CASApplied and the current row on CASConflict; it is nil on CASNotFound.
type CASResult struct {
	Outcome CASOutcome
	Job     *model.Job
}

// UpdateStatusParams groups parameters for UpdateStatus.
type UpdateStatusParams struct {
	JobID     string
	Expected  model.JobStatus
	Target    model.JobStatus
	Patch     *JobPatch
	ChangedBy string
}

// UpdateStatus moves a job from Expected to Target with a conditional UPDATE.
// The status predicate makes the write safe under concurrent agents: if the
// row changed since it was read, zero rows match and the caller gets a
// conflict instead of a lost update. The history row is written in the same
// transaction, so the trail never diverges from the jobs table.
func (r *JobRepo) UpdateStatus(ctx context.Context, p UpdateStatusParams) (*CASResult, error) {
	if p.ChangedBy == "" {
		p.ChangedBy = model.ActorAgent
	}

	var result CASResult
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			now := r.timeProvider.Now()

			args := []any{p.JobID, p.Expected, p.Target, now.UTC()}
			setClauses := []string{"status = $3", "status_updated_at = $4"}
			patchClauses, patchArgs := p.Patch.SetClauses(len(args) + 1)
			setClauses = append(setClauses, patchClauses...)
			args = append(args, patchArgs...)

			query := `
				UPDATE jobs
				SET ` + strings.Join(setClauses, ",\n				    ") + `
				WHERE id = $1 AND status = $2
				RETURNING ` + jobColumns

			rows, qerr := tx.Query(ctx, query, args...)
			if qerr != nil {
				return fmt.Errorf("update job status: %w", qerr)
			}
			job, cerr := collectJobFromRows(rows)
			rows.Close()

			if cerr == nil {
				if _, histErr := tx.Exec(ctx, `
					INSERT INTO status_history (job_id, from_status, to_status, changed_by, created_at)
					VALUES ($1, $2, $3, $4, $5)
				`, p.JobID, p.Expected, p.Target, p.ChangedBy, now.UTC()); histErr != nil {
					return fmt.Errorf("insert status history: %w", histErr)
				}
				result = CASResult{Outcome: CASApplied, Job: job}
				return nil
			}
			if !errors.Is(cerr, pgx.ErrNoRows) {
				return fmt.Errorf("collect updated job: %w", cerr)
			}

			// Zero rows: re-read inside the tx to tell a moved row from a
			// missing one.
			current, rerr := r.getByIDInTx(ctx, tx, p.JobID)
			if errors.Is(rerr, pgx.ErrNoRows) {
				result = CASResult{Outcome: CASNotFound}
				return nil
			}
			if rerr != nil {
				return fmt.Errorf("re-read job after conditional update: %w", rerr)
			}
			result = CASResult{Outcome: CASConflict, Job: current}
			return nil
		},
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &result, nil
}

func (r *JobRepo) getByIDInTx(ctx context.Context, tx pgx.Tx, id string) (*model.Job, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobFromRows(rows)
}

// SQL used by ClaimPending to atomically dispatch a batch of pending jobs.
// Jobs that are missing or no longer pending simply fall out of the update,
// so two agents racing on the same batch partition it instead of erroring.
const claimPendingSQL = `
  WITH claimed AS (
    UPDATE jobs
    SET status = 'dispatched',
        status_updated_at = $2
    WHERE id = ANY($1) AND status = 'pending'
    RETURNING ` + jobColumns + `
  ), trail AS (
    INSERT INTO status_history (job_id, from_status, to_status, changed_by, created_at)
    SELECT id, 'pending', 'dispatched', $3, $2 FROM claimed
  )
  SELECT ` + jobColumns + ` FROM claimed`

// ClaimPending dispatches every listed job that is still pending and returns
// the claimed rows. Ids that lost the race come back in the result's missing
// set only implicitly: callers diff against their request.
func (r *JobRepo) ClaimPending(ctx context.Context, ids []string, claimedBy string) ([]*model.Job, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if claimedBy == "" {
		claimedBy = model.ActorAgent
	}

	var jobs []*model.Job
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			rows, qerr := tx.Query(ctx, claimPendingSQL, ids, r.timeProvider.Now().UTC(), claimedBy)
			if qerr != nil {
				return fmt.Errorf("claim pending jobs: %w", qerr)
			}
			defer rows.Close()

			var cerr error
			jobs, cerr = collectJobsFromRows(rows)
			if cerr != nil {
				return fmt.Errorf("collect claimed jobs: %w", cerr)
			}
			return nil
		},
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return jobs, nil
}
