package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/subsentry/subsentry-api/internal/domain/model"
	apperrors "github.com/subsentry/subsentry-api/internal/errors"
	"github.com/subsentry/subsentry-api/internal/mocks"
)

const (
	testWebhookSecret = "test-webhook-secret"
	testInvoiceID     = "inv-settle-1"
)

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func settledEvent(invoiceID string) []byte {
	return fmt.Appendf(nil, `{"type":"invoice.settled","invoice_id":"%s"}`, invoiceID)
}

type paymentsFixture struct {
	payments *fakePaymentRepo
	rotation *fakeRotationRepo
	invoices *mocks.MockInvoiceFetcher
	notifier *mocks.MockResumeNotifier
	svc      *PaymentsService
}

func newPaymentsFixture(t *testing.T) *paymentsFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &paymentsFixture{
		payments: newFakePaymentRepo(),
		rotation: newFakeRotationRepo(),
		invoices: mocks.NewMockInvoiceFetcher(ctrl),
		notifier: mocks.NewMockResumeNotifier(ctrl),
	}
	f.svc = NewPaymentsService(PaymentsServiceOptions{
		Payments:      f.payments,
		Rotation:      f.rotation,
		Invoices:      f.invoices,
		Notifier:      f.notifier,
		WebhookSecret: testWebhookSecret,
	})
	return f
}

func (f *paymentsFixture) addPrepayment(userID string, status model.PaymentRecordStatus) *model.PaymentRecord {
	rec := &model.PaymentRecord{
		ID:                "rec-prepay-1",
		UserID:            userID,
		Kind:              model.PaymentKindPrepayment,
		Status:            status,
		ExternalInvoiceID: testInvoiceID,
	}
	f.payments.records[testInvoiceID] = rec
	return rec
}

func TestIngest_MissingSignature(t *testing.T) {
	f := newPaymentsFixture(t)

	_, err := f.svc.Ingest(context.Background(), settledEvent(testInvoiceID), "")
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestIngest_SignatureMismatch(t *testing.T) {
	f := newPaymentsFixture(t)
	body := settledEvent(testInvoiceID)

	_, err := f.svc.Ingest(context.Background(), body, signBody([]byte("different body")))
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestIngest_MalformedBody(t *testing.T) {
	f := newPaymentsFixture(t)
	body := []byte("{not json")

	_, err := f.svc.Ingest(context.Background(), body, signBody(body))
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestIngest_IgnoresNonSettlementEvent(t *testing.T) {
	f := newPaymentsFixture(t)
	body := []byte(`{"type":"invoice.created","invoice_id":"inv-9"}`)

	result, err := f.svc.Ingest(context.Background(), body, signBody(body))
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.True(t, result.Ignored)
}

func TestIngest_MissingInvoiceID(t *testing.T) {
	f := newPaymentsFixture(t)
	body := []byte(`{"type":"invoice.settled","invoice_id":"  "}`)

	_, err := f.svc.Ingest(context.Background(), body, signBody(body))
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestIngest_AcksUnknownInvoice(t *testing.T) {
	f := newPaymentsFixture(t)
	body := settledEvent("inv-unknown")

	result, err := f.svc.Ingest(context.Background(), body, signBody(body))
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.True(t, result.Ignored)
}

func TestIngest_ReplayOfPaidInvoice(t *testing.T) {
	f := newPaymentsFixture(t)
	rec := f.addPrepayment(testUserID, model.PaymentStatusPaid)
	credited := int64(2100)
	rec.ReceivedAmountSats = &credited
	body := settledEvent(testInvoiceID)

	result, err := f.svc.Ingest(context.Background(), body, signBody(body))
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.False(t, result.Ignored)
	require.NotNil(t, result.CreditedSats)
	assert.Equal(t, int64(2100), *result.CreditedSats)
	// the settled amount is never re-fetched for a paid record
	assert.Zero(t, f.payments.balances[testUserID])
}

func TestIngest_RejectsNonPositiveAmount(t *testing.T) {
	f := newPaymentsFixture(t)
	f.addPrepayment(testUserID, model.PaymentStatusPending)
	f.invoices.EXPECT().SettledAmountSats(gomock.Any(), testInvoiceID).Return(int64(0), nil)
	body := settledEvent(testInvoiceID)

	_, err := f.svc.Ingest(context.Background(), body, signBody(body))
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestIngest_PropagatesFetcherFailure(t *testing.T) {
	f := newPaymentsFixture(t)
	f.addPrepayment(testUserID, model.PaymentStatusPending)
	f.invoices.EXPECT().SettledAmountSats(gomock.Any(), testInvoiceID).
		Return(int64(0), apperrors.Upstream("processor unavailable", errors.New("dial tcp: refused")))
	body := settledEvent(testInvoiceID)

	_, err := f.svc.Ingest(context.Background(), body, signBody(body))
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstream(err))
}

func TestIngest_CreditsPrepayment(t *testing.T) {
	f := newPaymentsFixture(t)
	f.addPrepayment(testUserID, model.PaymentStatusPending)
	f.payments.accounts[testUserID] = &model.Account{ID: testUserID, Status: model.AccountStatusActive}
	f.invoices.EXPECT().SettledAmountSats(gomock.Any(), testInvoiceID).Return(int64(2100), nil)
	body := settledEvent(testInvoiceID)

	result, err := f.svc.Ingest(context.Background(), body, signBody(body))
	require.NoError(t, err)
	assert.True(t, result.OK)
	require.NotNil(t, result.CreditedSats)
	assert.Equal(t, int64(2100), *result.CreditedSats)
	assert.False(t, result.Resumed)
	assert.Equal(t, int64(2100), f.payments.balances[testUserID])
	assert.Equal(t, model.PaymentStatusPaid, f.payments.records[testInvoiceID].Status)
}

func TestIngest_PrepaymentConflictIsIdempotentSuccess(t *testing.T) {
	f := newPaymentsFixture(t)
	f.addPrepayment(testUserID, model.PaymentStatusPending)
	f.payments.applyErr = apperrors.Conflictf("payment record rec-prepay-1 already settled")
	f.invoices.EXPECT().SettledAmountSats(gomock.Any(), testInvoiceID).Return(int64(2100), nil)
	body := settledEvent(testInvoiceID)

	result, err := f.svc.Ingest(context.Background(), body, signBody(body))
	require.NoError(t, err)
	assert.True(t, result.OK)
	require.NotNil(t, result.CreditedSats)
	assert.Equal(t, int64(2100), *result.CreditedSats)
}

func autoPausedAccount(userID string) *model.Account {
	onboarded := time.Now().UTC().Add(-48 * time.Hour)
	paused := time.Now().UTC().Add(-time.Hour)
	return &model.Account{
		ID:          userID,
		Status:      model.AccountStatusAutoPaused,
		OnboardedAt: &onboarded,
		PausedAt:    &paused,
	}
}

func queuedService(userID string, priceSats int64) *model.RotationQueueEntry {
	return &model.RotationQueueEntry{
		UserID:    userID,
		ServiceID: testServiceID,
		Position:  1,
		PriceSats: &priceSats,
	}
}

func TestIngest_AutoResumesPausedAccount(t *testing.T) {
	f := newPaymentsFixture(t)
	f.addPrepayment(testUserID, model.PaymentStatusPending)
	f.payments.accounts[testUserID] = autoPausedAccount(testUserID)
	f.rotation.queue[testUserID] = queuedService(testUserID, 1500)
	f.invoices.EXPECT().SettledAmountSats(gomock.Any(), testInvoiceID).Return(int64(2100), nil)
	f.notifier.EXPECT().NotifyResumed(gomock.Any(), testUserID).Return(nil)
	body := settledEvent(testInvoiceID)

	result, err := f.svc.Ingest(context.Background(), body, signBody(body))
	require.NoError(t, err)
	assert.True(t, result.Resumed)
	assert.Equal(t, []string{testUserID}, f.payments.reactivated)
	assert.Equal(t, model.AccountStatusActive, f.payments.accounts[testUserID].Status)
}

func TestIngest_NoResumeWhenBalanceShort(t *testing.T) {
	f := newPaymentsFixture(t)
	f.addPrepayment(testUserID, model.PaymentStatusPending)
	f.payments.accounts[testUserID] = autoPausedAccount(testUserID)
	f.rotation.queue[testUserID] = queuedService(testUserID, 5000)
	f.invoices.EXPECT().SettledAmountSats(gomock.Any(), testInvoiceID).Return(int64(2100), nil)
	body := settledEvent(testInvoiceID)

	result, err := f.svc.Ingest(context.Background(), body, signBody(body))
	require.NoError(t, err)
	assert.False(t, result.Resumed)
	assert.Empty(t, f.payments.reactivated)
}

func TestIngest_NoResumeForActiveAccount(t *testing.T) {
	f := newPaymentsFixture(t)
	f.addPrepayment(testUserID, model.PaymentStatusPending)
	onboarded := time.Now().UTC().Add(-48 * time.Hour)
	f.payments.accounts[testUserID] = &model.Account{
		ID:          testUserID,
		Status:      model.AccountStatusActive,
		OnboardedAt: &onboarded,
	}
	f.rotation.queue[testUserID] = queuedService(testUserID, 100)
	f.invoices.EXPECT().SettledAmountSats(gomock.Any(), testInvoiceID).Return(int64(2100), nil)
	body := settledEvent(testInvoiceID)

	result, err := f.svc.Ingest(context.Background(), body, signBody(body))
	require.NoError(t, err)
	assert.False(t, result.Resumed)
}

func TestIngest_NoResumeBeforeOnboarding(t *testing.T) {
	f := newPaymentsFixture(t)
	f.addPrepayment(testUserID, model.PaymentStatusPending)
	acct := autoPausedAccount(testUserID)
	acct.OnboardedAt = nil
	f.payments.accounts[testUserID] = acct
	f.rotation.queue[testUserID] = queuedService(testUserID, 100)
	f.invoices.EXPECT().SettledAmountSats(gomock.Any(), testInvoiceID).Return(int64(2100), nil)
	body := settledEvent(testInvoiceID)

	result, err := f.svc.Ingest(context.Background(), body, signBody(body))
	require.NoError(t, err)
	assert.False(t, result.Resumed)
}

func TestIngest_NotifierFailureDoesNotUndoResume(t *testing.T) {
	f := newPaymentsFixture(t)
	f.addPrepayment(testUserID, model.PaymentStatusPending)
	f.payments.accounts[testUserID] = autoPausedAccount(testUserID)
	f.rotation.queue[testUserID] = queuedService(testUserID, 1500)
	f.invoices.EXPECT().SettledAmountSats(gomock.Any(), testInvoiceID).Return(int64(2100), nil)
	f.notifier.EXPECT().NotifyResumed(gomock.Any(), testUserID).Return(errors.New("webhook timeout"))
	body := settledEvent(testInvoiceID)

	result, err := f.svc.Ingest(context.Background(), body, signBody(body))
	require.NoError(t, err)
	assert.True(t, result.Resumed)
	assert.Equal(t, model.AccountStatusActive, f.payments.accounts[testUserID].Status)
}

func TestIngest_ExtendsMembership(t *testing.T) {
	f := newPaymentsFixture(t)
	f.payments.records[testInvoiceID] = &model.PaymentRecord{
		ID:                "rec-member-1",
		UserID:            testUserID,
		Kind:              model.PaymentKindMembership,
		Status:            model.PaymentStatusPending,
		ExternalInvoiceID: testInvoiceID,
		TermDays:          30,
	}
	f.payments.accounts[testUserID] = &model.Account{ID: testUserID, Status: model.AccountStatusActive}
	f.invoices.EXPECT().SettledAmountSats(gomock.Any(), testInvoiceID).Return(int64(21000), nil)
	body := settledEvent(testInvoiceID)

	result, err := f.svc.Ingest(context.Background(), body, signBody(body))
	require.NoError(t, err)
	assert.True(t, result.OK)
	require.NotNil(t, result.MembershipExtendedTo)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 30), *result.MembershipExtendedTo, time.Minute)
	assert.Nil(t, result.CreditedSats)
}
