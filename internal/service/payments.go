package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/subsentry/subsentry-api/internal/core"
	"github.com/subsentry/subsentry-api/internal/data"
	"github.com/subsentry/subsentry-api/internal/domain/model"
	apperrors "github.com/subsentry/subsentry-api/internal/errors"
	"github.com/subsentry/subsentry-api/internal/observability/metrics"
)

// eventTypeInvoiceSettled is the only processor event the engine acts on.
const eventTypeInvoiceSettled = "invoice.settled"

// processorEvent is the envelope the payment processor delivers.
type processorEvent struct {
	Type      string `json:"type"`
	InvoiceID string `json:"invoice_id"`
}

// PaymentsService ingests settlement events from the payment processor and
// applies them idempotently to credit balances and membership terms.
type PaymentsService struct {
	payments core.PaymentRepository
	rotation core.RotationRepository
	invoices core.InvoiceFetcher
	notifier core.ResumeNotifier
	secret   []byte
	metrics  *metrics.Recorder
	logger   *slog.Logger
}

// PaymentsServiceOptions holds dependencies for NewPaymentsService.
type PaymentsServiceOptions struct {
	Payments      core.PaymentRepository
	Rotation      core.RotationRepository
	Invoices      core.InvoiceFetcher
	Notifier      core.ResumeNotifier
	WebhookSecret string
	Metrics       *metrics.Recorder
	Logger        *slog.Logger
}

// NewPaymentsService creates a PaymentsService.
func NewPaymentsService(opts PaymentsServiceOptions) *PaymentsService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentsService{
		payments: opts.Payments,
		rotation: opts.Rotation,
		invoices: opts.Invoices,
		notifier: opts.Notifier,
		secret:   []byte(opts.WebhookSecret),
		metrics:  opts.Metrics,
		logger:   logger,
	}
}

// VerifySignature checks an HMAC-SHA256 signature over the raw event body.
// An absent signature is always Unauthorized; there is no trust-by-default
// path even when verification itself would be disabled.
func (s *PaymentsService) VerifySignature(body []byte, signature string) error {
	signature = strings.TrimSpace(strings.TrimPrefix(signature, "sha256="))
	if signature == "" {
		return apperrors.Unauthorized("missing event signature")
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	expected := mac.Sum(nil)

	given, err := hex.DecodeString(signature)
	if err != nil || !hmac.Equal(given, expected) {
		return apperrors.Unauthorized("event signature mismatch")
	}
	return nil
}

// Ingest verifies, resolves, and applies one processor event. Replays of a
// settled invoice return success without re-applying; the paid status guard
// in the store makes the whole path idempotent.
func (s *PaymentsService) Ingest(ctx context.Context, body []byte, signature string) (*model.PaymentIngestResult, error) {
	if err := s.VerifySignature(body, signature); err != nil {
		return nil, err
	}

	var ev processorEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, apperrors.Validationf("malformed event body: %v", err)
	}

	if ev.Type != eventTypeInvoiceSettled {
		s.logger.DebugContext(ctx, "ignoring non-settlement event", "type", ev.Type)
		return &model.PaymentIngestResult{OK: true, Ignored: true}, nil
	}
	if strings.TrimSpace(ev.InvoiceID) == "" {
		return nil, apperrors.Validation("settlement event is missing invoice_id")
	}

	record, err := s.payments.GetByExternalInvoiceID(ctx, ev.InvoiceID)
	if apperrors.IsNotFound(err) {
		// May belong to an unrelated payment flow; ack so the processor
		// stops redelivering.
		s.logger.InfoContext(ctx, "settlement for unknown invoice acknowledged", "invoice_id", ev.InvoiceID)
		return &model.PaymentIngestResult{OK: true, Ignored: true}, nil
	}
	if err != nil {
		return nil, err
	}

	if record.Status == model.PaymentStatusPaid {
		s.logger.InfoContext(ctx, "replayed settlement acknowledged",
			"invoice_id", ev.InvoiceID,
			"record_id", record.ID,
		)
		result := &model.PaymentIngestResult{OK: true}
		if record.Kind == model.PaymentKindPrepayment {
			result.CreditedSats = record.ReceivedAmountSats
		}
		return result, nil
	}

	amount, err := s.invoices.SettledAmountSats(ctx, ev.InvoiceID)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, apperrors.Validationf("invoice %s settled for a non-positive amount", ev.InvoiceID)
	}

	switch record.Kind {
	case model.PaymentKindPrepayment:
		return s.applyPrepayment(ctx, record, amount)
	case model.PaymentKindMembership:
		return s.applyMembership(ctx, record, amount)
	default:
		return nil, apperrors.Internalf("payment record %s has unknown kind %q", record.ID, record.Kind)
	}
}

func (s *PaymentsService) applyPrepayment(ctx context.Context, record *model.PaymentRecord, amount int64) (*model.PaymentIngestResult, error) {
	newBalance, err := s.payments.ApplyPrepayment(ctx, data.ApplyPrepaymentParams{
		RecordID:   record.ID,
		UserID:     record.UserID,
		AmountSats: amount,
	})
	if apperrors.IsConflict(err) {
		// Lost a replay race after the status read; the credit landed once.
		return &model.PaymentIngestResult{OK: true, CreditedSats: &amount}, nil
	}
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "prepayment settled",
		"record_id", record.ID,
		"user_id", record.UserID,
		"amount_sats", amount,
	)
	s.metrics.SettlementApplied(string(model.PaymentKindPrepayment))

	result := &model.PaymentIngestResult{OK: true, CreditedSats: &amount}
	result.Resumed = s.tryAutoResume(ctx, record.UserID, newBalance)
	return result, nil
}

func (s *PaymentsService) applyMembership(ctx context.Context, record *model.PaymentRecord, amount int64) (*model.PaymentIngestResult, error) {
	expiresAt, err := s.payments.ApplyMembership(ctx, data.ApplyMembershipParams{
		RecordID:   record.ID,
		UserID:     record.UserID,
		AmountSats: amount,
		TermDays:   record.TermDays,
	})
	if apperrors.IsConflict(err) {
		return &model.PaymentIngestResult{OK: true}, nil
	}
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "membership settled",
		"record_id", record.ID,
		"user_id", record.UserID,
		"expires_at", expiresAt,
	)
	s.metrics.SettlementApplied(string(model.PaymentKindMembership))

	return &model.PaymentIngestResult{OK: true, MembershipExtendedTo: &expiresAt}, nil
}

// tryAutoResume reactivates an auto-paused account when the fresh credit
// covers the next queued service. The credit is already durable, so every
// failure here is swallowed: the user just stays paused.
func (s *PaymentsService) tryAutoResume(ctx context.Context, userID string, balance int64) bool {
	account, err := s.payments.GetAccount(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "auto-resume check: account lookup failed", "user_id", userID, "error", err)
		return false
	}
	if account.Status != model.AccountStatusAutoPaused || !account.Onboarded() {
		return false
	}

	next, err := s.rotation.NextQueued(ctx, userID)
	if apperrors.IsNotFound(err) {
		return false
	}
	if err != nil {
		s.logger.WarnContext(ctx, "auto-resume check: rotation lookup failed", "user_id", userID, "error", err)
		return false
	}
	if next.PriceSats == nil || balance < *next.PriceSats {
		return false
	}

	resumed, err := s.payments.Reactivate(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "auto-resume reactivation failed", "user_id", userID, "error", err)
		return false
	}
	if !resumed {
		return false
	}

	s.logger.InfoContext(ctx, "account auto-resumed", "user_id", userID)
	s.metrics.AutoResume()

	if s.notifier != nil {
		if notifyErr := s.notifier.NotifyResumed(ctx, userID); notifyErr != nil {
			s.logger.WarnContext(ctx, "resume notification failed", "user_id", userID, "error", notifyErr)
		}
	}
	return true
}
