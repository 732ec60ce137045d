package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/subsentry/subsentry-api/internal/data/pgxutil"
	"github.com/subsentry/subsentry-api/internal/domain/model"
	apperrors "github.com/subsentry/subsentry-api/internal/errors"
)

// PaymentRepo provides database operations for payment records, credit
// balances, and the account state that settlement can flip.
type PaymentRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewPaymentRepo creates a new PaymentRepo.
func NewPaymentRepo(db *sql.DB, cfg RepoConfig) *PaymentRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &PaymentRepo{DB: db, timeProvider: tp, logger: cfg.Logger}
}

const paymentColumns = `
  id,
  user_id,
  kind,
  status,
  external_invoice_id,
  received_amount_sats,
  term_days,
  created_at,
  updated_at
`

func scanPaymentRow(scanner interface{ Scan(dest ...any) error }) (*model.PaymentRecord, error) {
	var (
		rec      model.PaymentRecord
		received sql.NullInt64
	)
	if err := scanner.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Kind,
		&rec.Status,
		&rec.ExternalInvoiceID,
		&received,
		&rec.TermDays,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rec.ReceivedAmountSats = cloneNullableInt64(received)
	return &rec, nil
}

// GetByExternalInvoiceID looks up a payment record by the processor's invoice id.
func (r *PaymentRepo) GetByExternalInvoiceID(ctx context.Context, invoiceID string) (*model.PaymentRecord, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payment_records
		WHERE external_invoice_id = $1
	`, invoiceID)

	rec, err := scanPaymentRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("no payment record for invoice %s", invoiceID)
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("get payment record: %w", err))
	}
	return rec, nil
}

// GetAccount retrieves the account row for a user.
func (r *PaymentRepo) GetAccount(ctx context.Context, userID string) (*model.Account, error) {
	var acct model.Account
	var pausedAt, onboardedAt, expires sql.NullTime
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, status, debt_sats, paused_at, onboarded_at, membership_expires_at, created_at
		FROM accounts
		WHERE id = $1
	`, userID).Scan(&acct.ID, &acct.Status, &acct.DebtSats, &pausedAt, &onboardedAt, &expires, &acct.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("account %s not found", userID)
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("get account: %w", err))
	}
	acct.PausedAt = cloneNullableTime(pausedAt)
	acct.OnboardedAt = cloneNullableTime(onboardedAt)
	acct.MembershipExpiresAt = cloneNullableTime(expires)
	return &acct, nil
}

// GetCreditBalance retrieves a user's prepaid balance. A user with no
// balance row has zero credit.
func (r *PaymentRepo) GetCreditBalance(ctx context.Context, userID string) (*model.CreditBalance, error) {
	bal := model.CreditBalance{UserID: userID}
	err := r.DB.QueryRowContext(ctx, `
		SELECT credit_sats
		FROM credit_balances
		WHERE user_id = $1
	`, userID).Scan(&bal.CreditSats)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.MapDBError(fmt.Errorf("get credit balance: %w", err))
	}
	return &bal, nil
}

// ApplyPrepaymentParams groups parameters for ApplyPrepayment.
type ApplyPrepaymentParams struct {
	RecordID   string
	UserID     string
	AmountSats int64
}

// ApplyPrepayment settles a prepayment invoice as one atomic unit: the
// record flips pending → paid with the received amount, the balance row is
// credited, and a credit transaction is appended. The status predicate on
// the record makes replayed settlements no-ops at the database level.
func (r *PaymentRepo) ApplyPrepayment(ctx context.Context, p ApplyPrepaymentParams) (int64, error) {
	if p.AmountSats <= 0 {
		return 0, apperrors.Validationf("settled amount must be positive, got %d", p.AmountSats)
	}

	var newBalance int64
	now := r.timeProvider.Now().UTC()
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			res, execErr := tx.ExecContext(ctx, `
				UPDATE payment_records
				SET status = 'paid',
				    received_amount_sats = $2,
				    updated_at = $3
				WHERE id = $1 AND status = 'pending'
			`, p.RecordID, p.AmountSats, now)
			if execErr != nil {
				return fmt.Errorf("settle payment record: %w", execErr)
			}
			rowsAffected, raErr := res.RowsAffected()
			if raErr != nil {
				return fmt.Errorf("rows affected: %w", raErr)
			}
			if rowsAffected == 0 {
				return apperrors.Conflictf("payment record %s already settled", p.RecordID)
			}

			if scanErr := tx.QueryRowContext(ctx, `
				INSERT INTO credit_balances (user_id, credit_sats)
				VALUES ($1, $2)
				ON CONFLICT (user_id) DO UPDATE
				SET credit_sats = credit_balances.credit_sats + EXCLUDED.credit_sats
				RETURNING credit_sats
			`, p.UserID, p.AmountSats).Scan(&newBalance); scanErr != nil {
				return fmt.Errorf("credit balance: %w", scanErr)
			}

			if _, execErr := tx.ExecContext(ctx, `
				INSERT INTO credit_transactions (user_id, payment_record_id, amount_sats, created_at)
				VALUES ($1, $2, $3, $4)
			`, p.UserID, p.RecordID, p.AmountSats, now); execErr != nil {
				return fmt.Errorf("append credit transaction: %w", execErr)
			}

			return nil
		},
	})
	if err != nil {
		return 0, apperrors.MapDBError(err)
	}
	return newBalance, nil
}

// ApplyMembershipParams groups parameters for ApplyMembership.
type ApplyMembershipParams struct {
	RecordID   string
	UserID     string
	AmountSats int64
	TermDays   int
}

// ApplyMembership settles a membership invoice: the record flips pending →
// paid and the account's membership window extends by the record's term.
// An unexpired membership extends from its current end, an expired one from
// today.
func (r *PaymentRepo) ApplyMembership(ctx context.Context, p ApplyMembershipParams) (time.Time, error) {
	if p.AmountSats <= 0 {
		return time.Time{}, apperrors.Validationf("settled amount must be positive, got %d", p.AmountSats)
	}
	if p.TermDays <= 0 {
		return time.Time{}, apperrors.Validationf("membership term must be positive, got %d days", p.TermDays)
	}

	var expiresAt time.Time
	now := r.timeProvider.Now().UTC()
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			res, execErr := tx.ExecContext(ctx, `
				UPDATE payment_records
				SET status = 'paid',
				    received_amount_sats = $2,
				    updated_at = $3
				WHERE id = $1 AND status = 'pending'
			`, p.RecordID, p.AmountSats, now)
			if execErr != nil {
				return fmt.Errorf("settle payment record: %w", execErr)
			}
			rowsAffected, raErr := res.RowsAffected()
			if raErr != nil {
				return fmt.Errorf("rows affected: %w", raErr)
			}
			if rowsAffected == 0 {
				return apperrors.Conflictf("payment record %s already settled", p.RecordID)
			}

			if scanErr := tx.QueryRowContext(ctx, `
				UPDATE accounts
				SET membership_expires_at = GREATEST(COALESCE(membership_expires_at, $2), $2) + make_interval(days => $3)
				WHERE id = $1
				RETURNING membership_expires_at
			`, p.UserID, now, p.TermDays).Scan(&expiresAt); scanErr != nil {
				if errors.Is(scanErr, sql.ErrNoRows) {
					return apperrors.NotFoundf("account %s not found", p.UserID)
				}
				return fmt.Errorf("extend membership: %w", scanErr)
			}

			return nil
		},
	})
	if err != nil {
		return time.Time{}, apperrors.MapDBError(err)
	}
	return expiresAt.UTC(), nil
}

// Reactivate flips an auto-paused account back to active. The status
// predicate keeps a concurrent settlement from double-reporting the resume.
func (r *PaymentRepo) Reactivate(ctx context.Context, userID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE accounts
		SET status = 'active',
		    paused_at = NULL
		WHERE id = $1 AND status = 'auto_paused'
	`, userID)
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("reactivate account: %w", err))
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}
