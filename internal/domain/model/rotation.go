package model

import "time"

// RotationQueueEntry is the user's ordered subscription rotation for one
// service. NextBillingDate is the derived billing bookkeeping the
// side-effect engine maintains; the job's lifecycle state stays authoritative.
type RotationQueueEntry struct {
	UserID          string     `json:"user_id"                     db:"user_id"`
	ServiceID       string     `json:"service_id"                  db:"service_id"`
	Position        int        `json:"position"                    db:"position"`
	PlanID          *string    `json:"plan_id,omitempty"           db:"plan_id"`
	PlanName        *string    `json:"plan_name,omitempty"         db:"plan_name"`
	PriceSats       *int64     `json:"price_sats,omitempty"        db:"price_sats"`
	NextBillingDate *time.Time `json:"next_billing_date,omitempty" db:"next_billing_date"`
}
