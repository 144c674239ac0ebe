// internal/model/scheduled_email.go
package model

import "time"

const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// ScheduledEmail is one recipient's copy of a scheduled message.
// Status only moves pending -> sent or pending -> failed.
type ScheduledEmail struct {
	ID            string     `db:"id" json:"id"`
	To            string     `db:"to_address" json:"to"`
	FromAccount   string     `db:"from_account" json:"from_account"`
	Subject       string     `db:"subject" json:"subject"`
	HTML          string     `db:"html" json:"html"`
	ScheduledDate time.Time  `db:"scheduled_date" json:"scheduled_date"`
	Status        string     `db:"status" json:"status"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	NextSendAfter *time.Time `db:"next_send_after" json:"next_send_after,omitempty"`
}

func (e *ScheduledEmail) IsPending() bool {
	return e.Status == StatusPending
}

// Throttled reports whether the record carries a not-before marker later than now.
func (e *ScheduledEmail) Throttled(now time.Time) bool {
	return e.NextSendAfter != nil && e.NextSendAfter.After(now)
}
