package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/subsentry/subsentry-api/internal/data/pgxutil"
	"github.com/subsentry/subsentry-api/internal/domain/model"
	apperrors "github.com/subsentry/subsentry-api/internal/errors"
)

// LedgerRepo provides database operations for the abuse ledger, the
// cross-account record of reneged subscription debt keyed by email hash.
type LedgerRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(db *sql.DB, cfg RepoConfig) *LedgerRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &LedgerRepo{DB: db, timeProvider: tp, logger: cfg.Logger}
}

// GetByHash looks up a ledger entry by email hash. Returns NotFound when the
// hash has no recorded debt.
func (r *LedgerRepo) GetByHash(ctx context.Context, emailHash string) (*model.AbuseLedgerEntry, error) {
	var entry model.AbuseLedgerEntry
	err := r.DB.QueryRowContext(ctx, `
		SELECT email_hash, total_debt_sats, last_seen_at
		FROM abuse_ledger
		WHERE email_hash = $1
	`, emailHash).Scan(&entry.EmailHash, &entry.TotalDebtSats, &entry.LastSeenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("no ledger entry for hash")
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("get ledger entry: %w", err))
	}
	return &entry, nil
}

// RecordRenegedDebtParams groups parameters for RecordRenegedDebt.
type RecordRenegedDebtParams struct {
	JobID      string
	UserID     string
	EmailHash  string
	AmountSats int64
}

// RecordRenegedDebt books a reneged amount as one atomic unit: the job is
// stamped with the email hash, the account's running debt grows, and the
// ledger entry for the hash is created or incremented. Either all three
// writes land or none do.
func (r *LedgerRepo) RecordRenegedDebt(ctx context.Context, p RecordRenegedDebtParams) error {
	if p.AmountSats <= 0 {
		return apperrors.Validationf("reneged amount must be positive, got %d", p.AmountSats)
	}

	now := r.timeProvider.Now().UTC()
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			res, execErr := tx.ExecContext(ctx, `
				UPDATE jobs
				SET email_hash = $2
				WHERE id = $1
			`, p.JobID, p.EmailHash)
			if execErr != nil {
				return fmt.Errorf("stamp job email hash: %w", execErr)
			}
			rowsAffected, raErr := res.RowsAffected()
			if raErr != nil {
				return fmt.Errorf("rows affected: %w", raErr)
			}
			if rowsAffected == 0 {
				return apperrors.NotFoundf("job %s not found", p.JobID)
			}

			if _, execErr := tx.ExecContext(ctx, `
				UPDATE accounts
				SET debt_sats = debt_sats + $2
				WHERE id = $1
			`, p.UserID, p.AmountSats); execErr != nil {
				return fmt.Errorf("increment account debt: %w", execErr)
			}

			if _, execErr := tx.ExecContext(ctx, `
				INSERT INTO abuse_ledger (email_hash, total_debt_sats, last_seen_at)
				VALUES ($1, $2, $3)
				ON CONFLICT (email_hash) DO UPDATE
				SET total_debt_sats = abuse_ledger.total_debt_sats + EXCLUDED.total_debt_sats,
				    last_seen_at = EXCLUDED.last_seen_at
			`, p.EmailHash, p.AmountSats, now); execErr != nil {
				return fmt.Errorf("upsert ledger entry: %w", execErr)
			}

			return nil
		},
	})
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}
