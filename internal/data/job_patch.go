package data

import (
	"fmt"
	"time"

	"github.com/subsentry/subsentry-api/internal/domain/model"
)

// JobPatch carries the optional field updates that ride along with a status
// transition. Nil fields are left untouched; set fields are written in the
// same UPDATE as the status change.
type JobPatch struct {
	NextOutreachAt           *time.Time
	OutreachCount            *int
	AccessEndDate            *time.Time
	AccessEndDateApproximate *bool
	AmountSats               *int64
	BillingDate              *time.Time
}

// NewJobPatchFromRequest lifts the optional fields of a ChangeStatusRequest
// into a JobPatch. A supplied access_end_date is an exact date reported by
// the service, so it also clears the approximate flag a fallback may have
// set earlier.
func NewJobPatchFromRequest(req *model.ChangeStatusRequest) *JobPatch {
	if req == nil {
		return nil
	}
	p := &JobPatch{
		NextOutreachAt: req.NextOutreachAt,
		OutreachCount:  req.OutreachCount,
		AccessEndDate:  req.AccessEndDate,
		AmountSats:     req.AmountSats,
		BillingDate:    req.BillingDate,
	}
	if req.AccessEndDate != nil {
		exact := false
		p.AccessEndDateApproximate = &exact
	}
	if p.IsZero() {
		return nil
	}
	return p
}

// IsZero reports whether the patch sets no fields.
func (p *JobPatch) IsZero() bool {
	if p == nil {
		return true
	}
	return p.NextOutreachAt == nil &&
		p.OutreachCount == nil &&
		p.AccessEndDate == nil &&
		p.AccessEndDateApproximate == nil &&
		p.AmountSats == nil &&
		p.BillingDate == nil
}

// SetClauses renders the patch as "column = $n" fragments with placeholders
// starting at argIndex. Column order is fixed so generated SQL is stable.
func (p *JobPatch) SetClauses(argIndex int) ([]string, []any) {
	if p.IsZero() {
		return nil, nil
	}

	var (
		clauses []string
		args    []any
	)
	add := func(column string, value any) {
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}

	if p.NextOutreachAt != nil {
		add("next_outreach_at", p.NextOutreachAt.UTC())
	}
	if p.OutreachCount != nil {
		add("outreach_count", *p.OutreachCount)
	}
	if p.AccessEndDate != nil {
		add("access_end_date", p.AccessEndDate.UTC())
	}
	if p.AccessEndDateApproximate != nil {
		add("access_end_date_approximate", *p.AccessEndDateApproximate)
	}
	if p.AmountSats != nil {
		add("amount_sats", *p.AmountSats)
	}
	if p.BillingDate != nil {
		add("billing_date", p.BillingDate.UTC())
	}
	return clauses, args
}
