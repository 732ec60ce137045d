package model

import "time"

// Actors recorded on status history entries.
const (
	ActorAgent    = "agent"
	ActorOperator = "operator"
	ActorSystem   = "system"
)

// StatusHistoryEntry is one row of the append-only transition log.
// FromStatus is nil for the first entry of a job. Entries are never mutated.
type StatusHistoryEntry struct {
	ID         int64      `json:"id"                    db:"id"`
	JobID      string     `json:"job_id"                db:"job_id"`
	FromStatus *JobStatus `json:"from_status,omitempty" db:"from_status"`
	ToStatus   JobStatus  `json:"to_status"             db:"to_status"`
	ChangedBy  string     `json:"changed_by"            db:"changed_by"`
	CreatedAt  time.Time  `json:"created_at"            db:"created_at"`
}
