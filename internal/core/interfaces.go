// Package core defines the interfaces the service layer depends on, so
// services can be tested against fakes and wired against the data layer.
package core

import (
	"context"
	"time"

	"github.com/subsentry/subsentry-api/internal/data"
	"github.com/subsentry/subsentry-api/internal/domain/model"
)

// JobRepository is the persistence surface for lifecycle jobs.
type JobRepository interface {
	GetByID(ctx context.Context, id string) (*model.Job, error)
	ListByIDs(ctx context.Context, ids []string) ([]*model.Job, error)
	UpdateStatus(ctx context.Context, p data.UpdateStatusParams) (*data.CASResult, error)
	ClaimPending(ctx context.Context, ids []string, claimedBy string) ([]*model.Job, error)
	Stats(ctx context.Context) (*model.JobStats, error)
	History(ctx context.Context, jobID string) ([]*model.StatusHistoryEntry, error)
	SetAccessEndFallback(ctx context.Context, jobID string, date time.Time, approximate bool) (bool, error)
}

// RotationRepository is the persistence surface for the rotation queue.
type RotationRepository interface {
	Get(ctx context.Context, userID, serviceID string) (*model.RotationQueueEntry, error)
	ClearNextBillingDate(ctx context.Context, userID, serviceID string) error
	SetNextBillingDate(ctx context.Context, userID, serviceID string, date time.Time) error
	AdvanceNextBillingDate(ctx context.Context, userID, serviceID string, days int) error
	NextQueued(ctx context.Context, userID string) (*model.RotationQueueEntry, error)
}

// LedgerRepository is the persistence surface for the abuse ledger.
type LedgerRepository interface {
	GetByHash(ctx context.Context, emailHash string) (*model.AbuseLedgerEntry, error)
	RecordRenegedDebt(ctx context.Context, p data.RecordRenegedDebtParams) error
}

// IdentityRepository resolves a user's hashed identity at a service.
type IdentityRepository interface {
	EmailHash(ctx context.Context, userID, serviceID string) (string, error)
}

// PaymentRepository is the persistence surface for payment settlement.
type PaymentRepository interface {
	GetByExternalInvoiceID(ctx context.Context, invoiceID string) (*model.PaymentRecord, error)
	GetAccount(ctx context.Context, userID string) (*model.Account, error)
	GetCreditBalance(ctx context.Context, userID string) (*model.CreditBalance, error)
	ApplyPrepayment(ctx context.Context, p data.ApplyPrepaymentParams) (int64, error)
	ApplyMembership(ctx context.Context, p data.ApplyMembershipParams) (time.Time, error)
	Reactivate(ctx context.Context, userID string) (bool, error)
}

// CacheRepository is a byte cache with TTLs.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) (bool, error)
}

// InvoiceFetcher reads settled invoice details from the payment processor.
type InvoiceFetcher interface {
	SettledAmountSats(ctx context.Context, invoiceID string) (int64, error)
}

// ResumeNotifier tells the agent orchestrator an account came back to life.
type ResumeNotifier interface {
	NotifyResumed(ctx context.Context, userID string) error
}
