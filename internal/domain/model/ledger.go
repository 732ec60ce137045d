package model

import "time"

// AbuseLedgerEntry tracks unpaid debt keyed by a one-way hash of the account
// email used at a service. A positive TotalDebtSats blocks future claims for
// that hashed identity regardless of which user account presents it.
type AbuseLedgerEntry struct {
	EmailHash     string    `json:"email_hash"      db:"email_hash"`
	TotalDebtSats int64     `json:"total_debt_sats" db:"total_debt_sats"`
	LastSeenAt    time.Time `json:"last_seen_at"    db:"last_seen_at"`
}

// LedgerCheck is the screening verdict for one (user, service) identity.
type LedgerCheck struct {
	Blocked  bool  `json:"blocked"`
	DebtSats int64 `json:"debt_sats"`
}
