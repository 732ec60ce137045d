package model

import "time"

// AccountStatus represents the lifecycle state of a user account.
type AccountStatus string

const (
	// AccountStatusActive is a normally operating account.
	AccountStatusActive AccountStatus = "active"
	// AccountStatusAutoPaused is an account suspended for insufficient balance.
	AccountStatusAutoPaused AccountStatus = "auto_paused"
)

// Account is the partial view of a user the engine reads and writes:
// running debt, suspension state, and onboarding progress.
type Account struct {
	ID                  string        `json:"id"                              db:"id"`
	Status              AccountStatus `json:"status"                          db:"status"`
	DebtSats            int64         `json:"debt_sats"                       db:"debt_sats"`
	PausedAt            *time.Time    `json:"paused_at,omitempty"             db:"paused_at"`
	OnboardedAt         *time.Time    `json:"onboarded_at,omitempty"          db:"onboarded_at"`
	MembershipExpiresAt *time.Time    `json:"membership_expires_at,omitempty" db:"membership_expires_at"`
	CreatedAt           time.Time     `json:"created_at"                      db:"created_at"`
}

// Onboarded reports whether the account finished onboarding.
func (a *Account) Onboarded() bool {
	return a.OnboardedAt != nil
}

// CreditBalance is a user's prepaid balance in sats.
type CreditBalance struct {
	UserID     string `json:"user_id"     db:"user_id"`
	CreditSats int64  `json:"credit_sats" db:"credit_sats"`
}

// PaymentRecordKind distinguishes what a payment invoice buys.
type PaymentRecordKind string

// PaymentRecordStatus is the one-way pending → paid settlement state.
type PaymentRecordStatus string

const (
	// PaymentKindPrepayment credits the user's balance once settled.
	PaymentKindPrepayment PaymentRecordKind = "prepayment"
	// PaymentKindMembership extends the user's membership term once settled.
	PaymentKindMembership PaymentRecordKind = "membership"

	// PaymentStatusPending is the initial state of every payment record.
	PaymentStatusPending PaymentRecordStatus = "pending"
	// PaymentStatusPaid is terminal; a paid record is never re-applied.
	PaymentStatusPaid PaymentRecordStatus = "paid"
)

// PaymentRecord is a prepayment or membership invoice awaiting settlement.
type PaymentRecord struct {
	ID                 string              `json:"id"                             db:"id"`
	UserID             string              `json:"user_id"                        db:"user_id"`
	Kind               PaymentRecordKind   `json:"kind"                           db:"kind"`
	Status             PaymentRecordStatus `json:"status"                         db:"status"`
	ExternalInvoiceID  string              `json:"external_invoice_id"            db:"external_invoice_id"`
	ReceivedAmountSats *int64              `json:"received_amount_sats,omitempty" db:"received_amount_sats"`
	TermDays           int                 `json:"term_days"                      db:"term_days"`
	CreatedAt          time.Time           `json:"created_at"                     db:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"                     db:"updated_at"`
}

// PaymentIngestResult summarizes an applied (or acknowledged) settlement event.
type PaymentIngestResult struct {
	OK bool `json:"ok"`
	// Ignored is true for non-settlement events and unknown invoices.
	Ignored bool `json:"ignored,omitempty"`
	// CreditedSats is set when a prepayment was (or had already been) applied.
	CreditedSats *int64 `json:"credited_sats,omitempty"`
	// MembershipExtendedTo is set when a membership payment was applied.
	MembershipExtendedTo *time.Time `json:"membership_extended_to,omitempty"`
	// Resumed is true when the settlement reactivated an auto-paused account.
	Resumed bool `json:"resumed,omitempty"`
}
