package service

import (
	"context"
	"sync"
	"time"

	"github.com/subsentry/subsentry-api/internal/core"
	"github.com/subsentry/subsentry-api/internal/data"
	"github.com/subsentry/subsentry-api/internal/domain/model"
	apperrors "github.com/subsentry/subsentry-api/internal/errors"
)

// Compile-time conformance for the fakes.
var (
	_ core.JobRepository      = (*fakeJobRepo)(nil)
	_ core.RotationRepository = (*fakeRotationRepo)(nil)
	_ core.LedgerRepository   = (*fakeLedgerRepo)(nil)
	_ core.IdentityRepository = (*fakeIdentityRepo)(nil)
	_ core.PaymentRepository  = (*fakePaymentRepo)(nil)
	_ core.CacheRepository    = (*fakeCache)(nil)
)

// fakeJobRepo keeps jobs in a map and emulates the conditional-update
// semantics of the real store.
type fakeJobRepo struct {
	mu        sync.Mutex
	jobs      map[string]*model.Job
	histories map[string][]*model.StatusHistoryEntry

	updateErr error
	claimErr  error

	fallbackJobID string
	fallbackDate  time.Time
}

func newFakeJobRepo(jobs ...*model.Job) *fakeJobRepo {
	r := &fakeJobRepo{
		jobs:      make(map[string]*model.Job),
		histories: make(map[string][]*model.StatusHistoryEntry),
	}
	for _, j := range jobs {
		cp := *j
		r.jobs[j.ID] = &cp
	}
	return r
}

func (r *fakeJobRepo) GetByID(_ context.Context, id string) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}
	cp := *job
	return &cp, nil
}

func (r *fakeJobRepo) ListByIDs(_ context.Context, ids []string) ([]*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Job
	for _, id := range ids {
		if job, ok := r.jobs[id]; ok {
			cp := *job
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) UpdateStatus(_ context.Context, p data.UpdateStatusParams) (*data.CASResult, error) {
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[p.JobID]
	if !ok {
		return &data.CASResult{Outcome: data.CASNotFound}, nil
	}
	if job.Status != p.Expected {
		cp := *job
		return &data.CASResult{Outcome: data.CASConflict, Job: &cp}, nil
	}

	job.Status = p.Target
	if p.Patch != nil {
		if p.Patch.AmountSats != nil {
			job.AmountSats = p.Patch.AmountSats
		}
		if p.Patch.AccessEndDate != nil {
			job.AccessEndDate = p.Patch.AccessEndDate
		}
		if p.Patch.AccessEndDateApproximate != nil {
			job.AccessEndDateApproximate = *p.Patch.AccessEndDateApproximate
		}
		if p.Patch.BillingDate != nil {
			job.BillingDate = p.Patch.BillingDate
		}
		if p.Patch.OutreachCount != nil {
			job.OutreachCount = *p.Patch.OutreachCount
		}
		if p.Patch.NextOutreachAt != nil {
			job.NextOutreachAt = p.Patch.NextOutreachAt
		}
	}
	from := p.Expected
	r.histories[p.JobID] = append(r.histories[p.JobID], &model.StatusHistoryEntry{
		JobID:      p.JobID,
		FromStatus: &from,
		ToStatus:   p.Target,
		ChangedBy:  p.ChangedBy,
	})
	cp := *job
	return &data.CASResult{Outcome: data.CASApplied, Job: &cp}, nil
}

func (r *fakeJobRepo) ClaimPending(_ context.Context, ids []string, claimedBy string) ([]*model.Job, error) {
	if r.claimErr != nil {
		return nil, r.claimErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Job
	for _, id := range ids {
		job, ok := r.jobs[id]
		if !ok || job.Status != model.JobStatusPending {
			continue
		}
		job.Status = model.JobStatusDispatched
		from := model.JobStatusPending
		r.histories[id] = append(r.histories[id], &model.StatusHistoryEntry{
			JobID:      id,
			FromStatus: &from,
			ToStatus:   model.JobStatusDispatched,
			ChangedBy:  claimedBy,
		})
		cp := *job
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeJobRepo) Stats(_ context.Context) (*model.JobStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var s model.JobStats
	for _, job := range r.jobs {
		switch job.Status {
		case model.JobStatusPending:
			s.Pending++
		case model.JobStatusDispatched:
			s.Dispatched++
		case model.JobStatusFailed:
			s.Failed++
		case model.JobStatusCompletedPaid, model.JobStatusCompletedEventual, model.JobStatusCompletedReneged:
			s.Completed++
		case model.JobStatusImpliedSkip, model.JobStatusUserSkip, model.JobStatusUserAbandon:
			s.Skipped++
		default:
			s.InProgress++
		}
	}
	return &s, nil
}

func (r *fakeJobRepo) History(_ context.Context, jobID string) ([]*model.StatusHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.histories[jobID], nil
}

func (r *fakeJobRepo) SetAccessEndFallback(_ context.Context, jobID string, date time.Time, approximate bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok || job.AccessEndDate != nil {
		return false, nil
	}
	d := date
	job.AccessEndDate = &d
	job.AccessEndDateApproximate = approximate
	r.fallbackJobID = jobID
	r.fallbackDate = d
	return true, nil
}

// fakeRotationRepo records schedule mutations.
type fakeRotationRepo struct {
	mu      sync.Mutex
	entries map[string]*model.RotationQueueEntry // keyed user|service
	queue   map[string]*model.RotationQueueEntry // keyed user, next in line

	cleared  []string
	set      map[string]time.Time
	advanced map[string]int
}

func newFakeRotationRepo() *fakeRotationRepo {
	return &fakeRotationRepo{
		entries:  make(map[string]*model.RotationQueueEntry),
		queue:    make(map[string]*model.RotationQueueEntry),
		set:      make(map[string]time.Time),
		advanced: make(map[string]int),
	}
}

func rotKey(userID, serviceID string) string { return userID + "|" + serviceID }

func (r *fakeRotationRepo) Get(_ context.Context, userID, serviceID string) (*model.RotationQueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[rotKey(userID, serviceID)]
	if !ok {
		return nil, apperrors.NotFoundf("rotation entry for user %s service %s not found", userID, serviceID)
	}
	cp := *entry
	return &cp, nil
}

func (r *fakeRotationRepo) ClearNextBillingDate(_ context.Context, userID, serviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared = append(r.cleared, rotKey(userID, serviceID))
	return nil
}

func (r *fakeRotationRepo) SetNextBillingDate(_ context.Context, userID, serviceID string, date time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set[rotKey(userID, serviceID)] = date
	return nil
}

func (r *fakeRotationRepo) AdvanceNextBillingDate(_ context.Context, userID, serviceID string, days int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advanced[rotKey(userID, serviceID)] += days
	return nil
}

func (r *fakeRotationRepo) NextQueued(_ context.Context, userID string) (*model.RotationQueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.queue[userID]
	if !ok {
		return nil, apperrors.NotFoundf("rotation queue for user %s is empty", userID)
	}
	cp := *entry
	return &cp, nil
}

// fakeLedgerRepo keeps ledger entries in a map.
type fakeLedgerRepo struct {
	mu       sync.Mutex
	entries  map[string]*model.AbuseLedgerEntry
	recorded []data.RecordRenegedDebtParams
	err      error
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{entries: make(map[string]*model.AbuseLedgerEntry)}
}

func (r *fakeLedgerRepo) GetByHash(_ context.Context, emailHash string) (*model.AbuseLedgerEntry, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[emailHash]
	if !ok {
		return nil, apperrors.NotFound("no ledger entry for hash")
	}
	cp := *entry
	return &cp, nil
}

func (r *fakeLedgerRepo) RecordRenegedDebt(_ context.Context, p data.RecordRenegedDebtParams) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorded = append(r.recorded, p)
	entry, ok := r.entries[p.EmailHash]
	if !ok {
		entry = &model.AbuseLedgerEntry{EmailHash: p.EmailHash}
		r.entries[p.EmailHash] = entry
	}
	entry.TotalDebtSats += p.AmountSats
	return nil
}

// fakeIdentityRepo resolves hashes from a static map.
type fakeIdentityRepo struct {
	hashes map[string]string // keyed user|service
}

func (r *fakeIdentityRepo) EmailHash(_ context.Context, userID, serviceID string) (string, error) {
	hash, ok := r.hashes[rotKey(userID, serviceID)]
	if !ok {
		return "", apperrors.NotFoundf("no identity for user %s at service %s", userID, serviceID)
	}
	return hash, nil
}

// fakePaymentRepo emulates the settlement guard semantics.
type fakePaymentRepo struct {
	mu       sync.Mutex
	records  map[string]*model.PaymentRecord // keyed external invoice id
	accounts map[string]*model.Account
	balances map[string]int64

	reactivated []string
	applyErr    error
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{
		records:  make(map[string]*model.PaymentRecord),
		accounts: make(map[string]*model.Account),
		balances: make(map[string]int64),
	}
}

func (r *fakePaymentRepo) GetByExternalInvoiceID(_ context.Context, invoiceID string) (*model.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[invoiceID]
	if !ok {
		return nil, apperrors.NotFoundf("no payment record for invoice %s", invoiceID)
	}
	cp := *rec
	return &cp, nil
}

func (r *fakePaymentRepo) GetAccount(_ context.Context, userID string) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.accounts[userID]
	if !ok {
		return nil, apperrors.NotFoundf("account %s not found", userID)
	}
	cp := *acct
	return &cp, nil
}

func (r *fakePaymentRepo) GetCreditBalance(_ context.Context, userID string) (*model.CreditBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &model.CreditBalance{UserID: userID, CreditSats: r.balances[userID]}, nil
}

func (r *fakePaymentRepo) ApplyPrepayment(_ context.Context, p data.ApplyPrepaymentParams) (int64, error) {
	if r.applyErr != nil {
		return 0, r.applyErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == p.RecordID {
			if rec.Status == model.PaymentStatusPaid {
				return 0, apperrors.Conflictf("payment record %s already settled", p.RecordID)
			}
			rec.Status = model.PaymentStatusPaid
			rec.ReceivedAmountSats = &p.AmountSats
		}
	}
	r.balances[p.UserID] += p.AmountSats
	return r.balances[p.UserID], nil
}

func (r *fakePaymentRepo) ApplyMembership(_ context.Context, p data.ApplyMembershipParams) (time.Time, error) {
	if r.applyErr != nil {
		return time.Time{}, r.applyErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == p.RecordID {
			if rec.Status == model.PaymentStatusPaid {
				return time.Time{}, apperrors.Conflictf("payment record %s already settled", p.RecordID)
			}
			rec.Status = model.PaymentStatusPaid
			rec.ReceivedAmountSats = &p.AmountSats
		}
	}
	acct := r.accounts[p.UserID]
	base := time.Now().UTC()
	if acct != nil && acct.MembershipExpiresAt != nil && acct.MembershipExpiresAt.After(base) {
		base = *acct.MembershipExpiresAt
	}
	expires := base.AddDate(0, 0, p.TermDays)
	if acct != nil {
		acct.MembershipExpiresAt = &expires
	}
	return expires, nil
}

func (r *fakePaymentRepo) Reactivate(_ context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.accounts[userID]
	if !ok || acct.Status != model.AccountStatusAutoPaused {
		return false, nil
	}
	acct.Status = model.AccountStatusActive
	acct.PausedAt = nil
	r.reactivated = append(r.reactivated, userID)
	return true, nil
}

// fakeCache is an in-memory CacheRepository.
type fakeCache struct {
	mu     sync.Mutex
	values map[string][]byte

	getErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string][]byte)}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[key], nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = append([]byte(nil), value...)
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	delete(c.values, key)
	return ok, nil
}
